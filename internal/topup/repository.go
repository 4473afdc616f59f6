package topup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func findPackage(ctx context.Context, db *gorm.DB, id string) (CreditPackage, bool, error) {
	var p CreditPackage
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CreditPackage{}, false, nil
		}
		return CreditPackage{}, false, fmt.Errorf("load package: %w", err)
	}
	return p, true, nil
}

func activePackages(ctx context.Context, db *gorm.DB) ([]CreditPackage, error) {
	out := []CreditPackage{}
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order").Order("credits").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return out, nil
}

func findPaymentMethod(ctx context.Context, db *gorm.DB, code string) (PaymentMethod, bool, error) {
	var m PaymentMethod
	if err := db.WithContext(ctx).Where("code = ?", code).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PaymentMethod{}, false, nil
		}
		return PaymentMethod{}, false, fmt.Errorf("load payment method: %w", err)
	}
	return m, true, nil
}

func activePaymentMethods(ctx context.Context, db *gorm.DB) ([]PaymentMethod, error) {
	out := []PaymentMethod{}
	if err := db.WithContext(ctx).Where("is_active = ?", true).Order("sort_order").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return out, nil
}

func hasPending(ctx context.Context, db *gorm.DB, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&Request{}).
		Where("user_id = ? AND status = ?", userID, StatusPending).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check pending requests: %w", err)
	}
	return n > 0, nil
}

func insertRequest(ctx context.Context, db *gorm.DB, r *Request) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: request number %s already taken", ErrConflict, r.RequestNumber)
		}
		return fmt.Errorf("create topup request: %w", err)
	}
	return nil
}

func findRequest(ctx context.Context, db *gorm.DB, id string) (Request, error) {
	var r Request
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Request{}, fmt.Errorf("%w: request %s", ErrNotFound, id)
		}
		return Request{}, fmt.Errorf("load topup request: %w", err)
	}
	return r, nil
}

// transition moves a PENDING request to a terminal status. Zero rows affected
// means it was processed already (or concurrently).
func transition(ctx context.Context, db *gorm.DB, id string, to Status, processedBy string, at time.Time, fields map[string]any) error {
	updates := map[string]any{
		"status":       to,
		"processed_by": processedBy,
		"processed_at": at,
	}
	for k, v := range fields {
		updates[k] = v
	}
	res := db.WithContext(ctx).Model(&Request{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update topup request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidState
	}
	return nil
}

func listRequests(ctx context.Context, db *gorm.DB, userID string, status Status, page, limit int) ([]Request, int64, error) {
	q := func() *gorm.DB {
		q := db.WithContext(ctx).Model(&Request{})
		if userID != "" {
			q = q.Where("user_id = ?", userID)
		}
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}

	var total int64
	if err := q().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count topup requests: %w", err)
	}
	out := []Request{}
	query := q().Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Offset((page - 1) * limit).Limit(limit)
	}
	if err := query.Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list topup requests: %w", err)
	}
	return out, total, nil
}

// maxSequence returns the highest sequence already persisted for prefix ("TXN-2026-").
func maxSequence(ctx context.Context, db *gorm.DB, prefix string) (int64, error) {
	var r Request
	err := db.WithContext(ctx).
		Select("request_number").
		Where("request_number LIKE ?", prefix+"%").
		Order("LENGTH(request_number) DESC").Order("request_number DESC").
		Take(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("scan request numbers: %w", err)
	}
	return ParseSequence(r.RequestNumber, prefix)
}
