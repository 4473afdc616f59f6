package users

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the subset of the member/staff record the credits domain reads and writes.
// Tier* fields are a snapshot of the assigned plan taken at assignment time, so later
// plan edits do not silently change what a user was sold.
type User struct {
	ID    string `json:"id" gorm:"primaryKey;size:36"`
	Email string `json:"email" gorm:"size:255;index"`
	Name  string `json:"name" gorm:"size:255"`
	Role  string `json:"role" gorm:"size:32;not null;default:USER;index"`

	SubscriptionPlanID *string `json:"subscriptionPlanId,omitempty" gorm:"size:36;index"`
	Subscription       string  `json:"subscription" gorm:"size:64;not null;default:FREE"`

	TierFreeCredits     int64           `json:"tierFreeCredits"`
	TierWalletLimit     int64           `json:"tierWalletLimit"`
	TierRedeemCredits   int64           `json:"tierRedeemCredits"`
	TierRedeemCycleDays int             `json:"tierRedeemCycleDays"`
	TierProfileLimit    int             `json:"tierProfileLimit"`
	TierPriceMonthly    decimal.Decimal `json:"tierPriceMonthly" gorm:"type:numeric(12,2);not null;default:0"`
	TierPriceYearly     decimal.Decimal `json:"tierPriceYearly" gorm:"type:numeric(12,2);not null;default:0"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SubscriptionPlan is a named bundle of wallet parameters assignable to a user.
type SubscriptionPlan struct {
	ID   string `json:"id" gorm:"primaryKey;size:36"`
	Slug string `json:"slug" gorm:"size:64;uniqueIndex;not null"`
	Name string `json:"name" gorm:"size:128;not null"`

	FreeCredits     int64 `json:"freeCredits"`
	WalletLimit     int64 `json:"walletLimit"`
	RedeemCredits   int64 `json:"redeemCredits"`
	RedeemCycleDays int   `json:"redeemCycleDays"`
	ProfileLimit    int   `json:"profileLimit"`

	PriceMonthly decimal.Decimal `json:"priceMonthly" gorm:"type:numeric(12,2);not null;default:0"`
	PriceYearly  decimal.Decimal `json:"priceYearly" gorm:"type:numeric(12,2);not null;default:0"`

	IsActive  bool      `json:"isActive" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Models lists the tables owned by this package, in migration order.
func Models() []any { return []any{&SubscriptionPlan{}, &User{}} }
