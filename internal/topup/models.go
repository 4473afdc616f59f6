package topup

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusRejected  Status = "REJECTED"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusRejected
}

// CreditPackage is a purchasable bundle of funding credits.
type CreditPackage struct {
	ID           string          `json:"id" gorm:"primaryKey;size:36"`
	Name         string          `json:"name" gorm:"size:128;not null"`
	Credits      int64           `json:"credits" gorm:"not null"`
	BonusCredits int64           `json:"bonusCredits" gorm:"not null;default:0"`
	Price        decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Currency     string          `json:"currency" gorm:"size:3;not null;default:PKR"`
	IsActive     bool            `json:"isActive" gorm:"not null"`
	SortOrder    int             `json:"sortOrder" gorm:"not null;default:0"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// TotalCredits is what an approved request for this package adds to the wallet.
func (p CreditPackage) TotalCredits() int64 { return p.Credits + p.BonusCredits }

// PaymentMethod is an offline channel a member pays through before review.
type PaymentMethod struct {
	Code          string    `json:"code" gorm:"primaryKey;size:64"`
	Name          string    `json:"name" gorm:"size:128;not null"`
	IsActive      bool      `json:"isActive" gorm:"not null"`
	Instructions  string    `json:"instructions"`
	AccountTitle  string    `json:"accountTitle" gorm:"size:128"`
	AccountNumber string    `json:"accountNumber" gorm:"size:64"`
	BankName      string    `json:"bankName" gorm:"size:128"`
	SortOrder     int       `json:"sortOrder" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Request is a member's ask to turn an external payment into funding credits.
// Credits, BonusCredits, Amount and Currency are copied from the package at
// creation so later package edits do not change a pending request.
type Request struct {
	ID            string `json:"id" gorm:"primaryKey;size:36"`
	RequestNumber string `json:"requestNumber" gorm:"size:32;not null;uniqueIndex"`
	UserID        string `json:"userId" gorm:"size:36;not null;index:idx_topup_requests_user_status,priority:1"`
	PackageID     string `json:"packageId" gorm:"size:36;not null"`

	Credits       int64           `json:"credits" gorm:"not null"`
	BonusCredits  int64           `json:"bonusCredits" gorm:"not null;default:0"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency      string          `json:"currency" gorm:"size:3;not null"`
	PaymentMethod string          `json:"paymentMethod" gorm:"size:64;not null"`

	Status Status `json:"status" gorm:"size:16;not null;default:PENDING;index:idx_topup_requests_user_status,priority:2"`

	ProcessedBy     *string    `json:"processedBy,omitempty" gorm:"size:36"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
	AdminNotes      *string    `json:"adminNotes,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`

	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Request) TableName() string { return "topup_requests" }

func (r Request) TotalCredits() int64 { return r.Credits + r.BonusCredits }

// Models lists the tables owned by this package, in migration order.
func Models() []any { return []any{&CreditPackage{}, &PaymentMethod{}, &Request{}} }
