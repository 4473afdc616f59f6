package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Every function here takes the handle to run on, so callers compose them inside
// one utils.WithTx unit of work. They never open their own transaction.
//
// Balance writes are always relative (balance = balance + ?) so concurrent
// writers cannot overwrite each other's effect. Absolute targets are applied as a
// delta guarded by the previously read value (compare-and-swap).

// FundingDelta is a relative change to a funding wallet's counters.
type FundingDelta struct {
	Balance   int64
	Purchased int64
	Spent     int64
}

// RedeemTier is the plan-derived parameter set copied onto a redeem wallet.
type RedeemTier struct {
	FreeCredits   int64
	Limit         int64
	RedeemCredits int64
	CycleDays     int
}

var onUserConflictDoNothing = clause.OnConflict{
	Columns:   []clause.Column{{Name: "user_id"}},
	DoNothing: true,
}

func GetFunding(ctx context.Context, db *gorm.DB, userID string) (FundingWallet, bool, error) {
	var w FundingWallet
	err := db.WithContext(ctx).Where("user_id = ?", userID).Take(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return FundingWallet{}, false, nil
		}
		return FundingWallet{}, false, fmt.Errorf("load funding wallet: %w", err)
	}
	return w, true, nil
}

func GetRedeem(ctx context.Context, db *gorm.DB, userID string) (RedeemWallet, bool, error) {
	var w RedeemWallet
	err := db.WithContext(ctx).Where("user_id = ?", userID).Take(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RedeemWallet{}, false, nil
		}
		return RedeemWallet{}, false, fmt.Errorf("load redeem wallet: %w", err)
	}
	return w, true, nil
}

// insertIfAbsent inserts row unless the user already owns one; created reports which happened.
func insertIfAbsent(ctx context.Context, db *gorm.DB, row any) (bool, error) {
	res := db.WithContext(ctx).Clauses(onUserConflictDoNothing).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// EnsureFunding returns the user's funding wallet, creating an empty one if absent.
func EnsureFunding(ctx context.Context, db *gorm.DB, userID string) (FundingWallet, error) {
	if _, err := insertIfAbsent(ctx, db, &FundingWallet{ID: uuid.NewString(), UserID: userID}); err != nil {
		return FundingWallet{}, fmt.Errorf("ensure funding wallet: %w", err)
	}
	w, _, err := GetFunding(ctx, db, userID)
	return w, err
}

// EnsureRedeem returns the user's redeem wallet, creating an empty one with limit if absent.
func EnsureRedeem(ctx context.Context, db *gorm.DB, userID string, limit int64) (RedeemWallet, error) {
	if _, err := insertIfAbsent(ctx, db, &RedeemWallet{ID: uuid.NewString(), UserID: userID, Limit: limit}); err != nil {
		return RedeemWallet{}, fmt.Errorf("ensure redeem wallet: %w", err)
	}
	w, _, err := GetRedeem(ctx, db, userID)
	return w, err
}

// CreateFunding inserts a funding wallet with the given opening balance.
// ErrConflict means another writer created it first.
func CreateFunding(ctx context.Context, db *gorm.DB, userID string, balance int64) (FundingWallet, error) {
	w := FundingWallet{ID: uuid.NewString(), UserID: userID, Balance: balance}
	created, err := insertIfAbsent(ctx, db, &w)
	if err != nil {
		return FundingWallet{}, fmt.Errorf("create funding wallet: %w", err)
	}
	if !created {
		return FundingWallet{}, ErrConflict
	}
	return w, nil
}

// IncrementFunding creates the wallet if needed and applies d atomically.
func IncrementFunding(ctx context.Context, db *gorm.DB, userID string, d FundingDelta) (FundingWallet, error) {
	if _, err := insertIfAbsent(ctx, db, &FundingWallet{ID: uuid.NewString(), UserID: userID}); err != nil {
		return FundingWallet{}, fmt.Errorf("ensure funding wallet: %w", err)
	}
	err := db.WithContext(ctx).Model(&FundingWallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"balance":         gorm.Expr("balance + ?", d.Balance),
			"total_purchased": gorm.Expr("total_purchased + ?", d.Purchased),
			"total_spent":     gorm.Expr("total_spent + ?", d.Spent),
		}).Error
	if err != nil {
		return FundingWallet{}, fmt.Errorf("increment funding wallet: %w", err)
	}
	w, _, err := GetFunding(ctx, db, userID)
	return w, err
}

// SwapFundingBalance moves the balance from prev to next only if it still equals prev.
func SwapFundingBalance(ctx context.Context, db *gorm.DB, userID string, prev, next int64) error {
	if prev == next {
		return nil
	}
	res := db.WithContext(ctx).Model(&FundingWallet{}).
		Where("user_id = ? AND balance = ?", userID, prev).
		Update("balance", gorm.Expr("balance + ?", next-prev))
	if res.Error != nil {
		return fmt.Errorf("update funding balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// CreateRedeem inserts w as the user's redeem wallet. ErrConflict means it already exists.
func CreateRedeem(ctx context.Context, db *gorm.DB, w RedeemWallet) (RedeemWallet, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	created, err := insertIfAbsent(ctx, db, &w)
	if err != nil {
		return RedeemWallet{}, fmt.Errorf("create redeem wallet: %w", err)
	}
	if !created {
		return RedeemWallet{}, ErrConflict
	}
	return w, nil
}

// SwapRedeem applies a new balance and limit only if both still equal what prev recorded.
func SwapRedeem(ctx context.Context, db *gorm.DB, prev RedeemWallet, nextBalance, nextLimit int64) error {
	if prev.Balance == nextBalance && prev.Limit == nextLimit {
		return nil
	}
	res := db.WithContext(ctx).Model(&RedeemWallet{}).
		Where("user_id = ? AND balance = ? AND wallet_limit = ?", prev.UserID, prev.Balance, prev.Limit).
		Updates(map[string]any{
			"balance":      gorm.Expr("balance + ?", nextBalance-prev.Balance),
			"wallet_limit": nextLimit,
		})
	if res.Error != nil {
		return fmt.Errorf("update redeem wallet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// SyncRedeemTier upserts the redeem wallet from a plan: a new wallet opens with
// FreeCredits; an existing one has FreeCredits added, never reset. Limit, allowance
// and cycle are overwritten and the next redemption moves to now + CycleDays.
func SyncRedeemTier(ctx context.Context, db *gorm.DB, userID string, tier RedeemTier, now time.Time) (RedeemWallet, error) {
	next := now.AddDate(0, 0, tier.CycleDays)

	created, err := insertIfAbsent(ctx, db, &RedeemWallet{
		ID:              uuid.NewString(),
		UserID:          userID,
		Balance:         tier.FreeCredits,
		Limit:           tier.Limit,
		RedeemCredits:   tier.RedeemCredits,
		RedeemCycleDays: tier.CycleDays,
		NextRedemption:  &next,
	})
	if err != nil {
		return RedeemWallet{}, fmt.Errorf("create redeem wallet: %w", err)
	}
	if !created {
		err = db.WithContext(ctx).Model(&RedeemWallet{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"balance":           gorm.Expr("balance + ?", tier.FreeCredits),
				"wallet_limit":      tier.Limit,
				"redeem_credits":    tier.RedeemCredits,
				"redeem_cycle_days": tier.CycleDays,
				"next_redemption":   next,
			}).Error
		if err != nil {
			return RedeemWallet{}, fmt.Errorf("sync redeem wallet: %w", err)
		}
	}
	w, _, err := GetRedeem(ctx, db, userID)
	return w, err
}

// AppendTransaction inserts one immutable ledger row.
func AppendTransaction(ctx context.Context, db *gorm.DB, t *Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Amount < 0 {
		return fmt.Errorf("%w: ledger amount must be a magnitude", ErrInvalidArgument)
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

func FindByIdempotencyKey(ctx context.Context, db *gorm.DB, userID, key string) (Transaction, bool, error) {
	var t Transaction
	err := db.WithContext(ctx).Where("user_id = ? AND idempotency_key = ?", userID, key).Take(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Transaction{}, false, nil
		}
		return Transaction{}, false, fmt.Errorf("find transaction by idempotency key: %w", err)
	}
	return t, true, nil
}

func findTransaction(ctx context.Context, db *gorm.DB, id string) (Transaction, error) {
	var t Transaction
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, fmt.Errorf("load transaction: %w", err)
	}
	return t, nil
}

func deleteTransaction(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&Transaction{})
	if res.Error != nil {
		return fmt.Errorf("delete transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func filteredTransactions(ctx context.Context, db *gorm.DB, userID string, f ListFilter) *gorm.DB {
	q := db.WithContext(ctx).Model(&Transaction{}).Where("user_id = ?", userID)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.WalletType != "" {
		q = q.Where("wallet_type = ?", f.WalletType)
	}
	return q
}

func listTransactions(ctx context.Context, db *gorm.DB, userID string, f ListFilter) ([]Transaction, int64, error) {
	var total int64
	if err := filteredTransactions(ctx, db, userID, f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}
	out := make([]Transaction, 0, f.Limit)
	err := filteredTransactions(ctx, db, userID, f).
		Order("created_at DESC").Order("id DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return out, total, nil
}

type typeTotal struct {
	Type  TransactionType
	Total int64
}

func totalsByType(ctx context.Context, db *gorm.DB, userID string) ([]typeTotal, error) {
	var rows []typeTotal
	err := db.WithContext(ctx).Model(&Transaction{}).
		Select("type, CAST(COALESCE(SUM(amount), 0) AS BIGINT) AS total").
		Where("user_id = ?", userID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sum transactions: %w", err)
	}
	return rows, nil
}
