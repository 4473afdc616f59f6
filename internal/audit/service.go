package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"nikahfirst/internal/auth"
	"nikahfirst/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
// Audit is internal-only; callers treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.ActorUserID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// Record appends an event for actor acting on targetUserID. Failures are logged,
// never returned: the audited action has already committed.
func (s *Service) Record(ctx context.Context, actor auth.Actor, typ EventType, targetUserID, message string, metadata any) {
	if s == nil {
		return
	}
	var meta string
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			meta = string(b)
		}
	}
	err := s.Append(ctx, Event{
		Type:         typ,
		ActorUserID:  actor.UserID,
		ActorRole:    actor.Role,
		IPAddress:    actor.IP,
		TargetUserID: targetUserID,
		Message:      message,
		Metadata:     meta,
	})
	if err != nil {
		logger.From(ctx).Warn("audit append failed", "type", typ, "target_user_id", targetUserID, "err", err)
	}
}
