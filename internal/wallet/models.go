package wallet

import "time"

type WalletType string

const (
	WalletTypeFunding WalletType = "FUNDING"
	WalletTypeRedeem  WalletType = "REDEEM"
)

func (t WalletType) Valid() bool { return t == WalletTypeFunding || t == WalletTypeRedeem }

type TransactionType string

const (
	TransactionTypeCredit     TransactionType = "CREDIT"
	TransactionTypeDebit      TransactionType = "DEBIT"
	TransactionTypeTopUp      TransactionType = "TOP_UP"
	TransactionTypePurchase   TransactionType = "PURCHASE"
	TransactionTypeRedemption TransactionType = "REDEMPTION"
	TransactionTypeRefund     TransactionType = "REFUND"
	TransactionTypeBonus      TransactionType = "BONUS"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeCredit, TransactionTypeDebit, TransactionTypeTopUp, TransactionTypePurchase,
		TransactionTypeRedemption, TransactionTypeRefund, TransactionTypeBonus:
		return true
	default:
		return false
	}
}

// Outflow reports whether the type moves credits out of a wallet. Amounts are
// stored as magnitudes; direction comes from the type alone.
func (t TransactionType) Outflow() bool {
	return t == TransactionTypeDebit || t == TransactionTypePurchase
}

// FundingWallet holds credits bought with money. One per user.
type FundingWallet struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"`
	UserID string `json:"userId" gorm:"size:36;not null;uniqueIndex"`

	Balance        int64 `json:"balance" gorm:"not null;default:0"`
	TotalPurchased int64 `json:"totalPurchased" gorm:"not null;default:0"`
	TotalSpent     int64 `json:"totalSpent" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RedeemWallet holds free credits granted per cycle. One per user.
// Limit is stored but not enforced against Balance.
type RedeemWallet struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"`
	UserID string `json:"userId" gorm:"size:36;not null;uniqueIndex"`

	Balance         int64 `json:"balance" gorm:"not null;default:0"`
	Limit           int64 `json:"limit" gorm:"column:wallet_limit;not null"`
	RedeemCredits   int64 `json:"redeemCredits" gorm:"not null;default:0"`
	RedeemCycleDays int   `json:"redeemCycleDays" gorm:"not null;default:0"`

	LastRedeemed   *time.Time `json:"lastRedeemed,omitempty"`
	NextRedemption *time.Time `json:"nextRedemption,omitempty"`

	TotalEarned   int64 `json:"totalEarned" gorm:"not null;default:0"`
	CreditsWasted int64 `json:"creditsWasted" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Transaction is an immutable ledger row. Amount is always a non-negative magnitude.
type Transaction struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"`
	UserID string `json:"userId" gorm:"size:36;not null;index;uniqueIndex:idx_transactions_user_idempotency,priority:1"`

	Type       TransactionType `json:"type" gorm:"size:16;not null;index"`
	WalletType WalletType      `json:"walletType" gorm:"size:16;not null"`

	Amount       int64  `json:"amount" gorm:"not null"`
	BalanceAfter int64  `json:"balanceAfter" gorm:"not null;default:0"`
	Description  string `json:"description"`

	PaymentMethod *string `json:"paymentMethod,omitempty" gorm:"size:64"`
	ReferenceType *string `json:"referenceType,omitempty" gorm:"size:32"`
	ReferenceID   *string `json:"referenceId,omitempty" gorm:"size:36;index"`

	// CreatedBy is the staff member who caused the row, when one did.
	CreatedBy *string `json:"createdBy,omitempty" gorm:"size:36"`

	// IdempotencyKey makes a retried admin call return the original outcome.
	// RequestFingerprint is the canonical form of the call that used the key;
	// a reuse of the key for any other call is refused.
	IdempotencyKey     *string `json:"-" gorm:"size:128;uniqueIndex:idx_transactions_user_idempotency,priority:2"`
	RequestFingerprint *string `json:"-" gorm:"size:160"`

	// LimitBefore and LimitAfter are set on REDEEM adjustment rows.
	LimitBefore *int64 `json:"-"`
	LimitAfter  *int64 `json:"-"`

	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

// Snapshot is a user's pair of wallets. A wallet never created is reported
// zero-valued with its Has flag false.
type Snapshot struct {
	UserID     string        `json:"userId"`
	Funding    FundingWallet `json:"funding"`
	Redeem     RedeemWallet  `json:"redeem"`
	HasFunding bool          `json:"hasFunding"`
	HasRedeem  bool          `json:"hasRedeem"`
}

func Models() []any { return []any{&FundingWallet{}, &RedeemWallet{}, &Transaction{}} }
