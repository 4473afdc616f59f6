package audit

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// GormRepo persists events to the audit_events table. Insert only.
type GormRepo struct {
	db *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo { return &GormRepo{db: db} }

func (r *GormRepo) Append(ctx context.Context, e Event) error {
	if err := r.db.WithContext(ctx).Create(&e).Error; err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByTarget returns the events recorded against a member, newest first.
func (r *GormRepo) ListByTarget(ctx context.Context, targetUserID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []Event{}
	err := r.db.WithContext(ctx).
		Where("target_user_id = ?", targetUserID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return out, nil
}
