package audit

import "time"

// Event is an immutable, append-only audit log record of a privileged action.
//
// Invariants:
// - Events are never updated or deleted.
// - actor is required; ip capture is best-effort.
// - audit failures never block the action being audited.
type Event struct {
	ID   string    `json:"id" gorm:"primaryKey;size:36"`
	Type EventType `json:"type" gorm:"size:48;not null;index"`

	// ActorUserID is the authenticated staff member causing the event.
	ActorUserID string `json:"actorUserId" gorm:"size:36;not null;index"`
	// ActorRole is the role at the time of the action.
	ActorRole string `json:"actorRole" gorm:"size:32"`

	// IPAddress is the resolved client IP when available.
	IPAddress string `json:"ipAddress,omitempty" gorm:"size:64"`

	// TargetUserID is the member whose wallet/subscription was affected.
	TargetUserID string `json:"targetUserId,omitempty" gorm:"size:36;index"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty"`

	// Metadata is optional JSON with the full details.
	Metadata string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

func (Event) TableName() string { return "audit_events" }

type EventType string

const (
	EventTypeCreditsAdjusted     EventType = "credits_adjusted"
	EventTypeCreditsGranted      EventType = "credits_granted"
	EventTypeTopUpApproved       EventType = "topup_approved"
	EventTypeTopUpRejected       EventType = "topup_rejected"
	EventTypeTransactionDeleted  EventType = "transaction_deleted"
	EventTypeSubscriptionChanged EventType = "subscription_changed"
)

func Models() []any { return []any{&Event{}} }
