package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nikahfirst/internal/audit"
	"nikahfirst/internal/auth"
	"nikahfirst/internal/users"
	"nikahfirst/pkg/logger"
	"nikahfirst/pkg/utils"

	"gorm.io/gorm"
)

// Service provides wallet and ledger operations.
//
// Money invariants:
// - No balance change through this service without a ledger row, except a zero delta
// - Ledger rows are never updated; only SUPER_ADMIN may hard-delete one
// - Every mutation runs in one DB transaction
// - Balance writes are relative increments, absolute targets are compare-and-swapped
type Service struct {
	db    *gorm.DB
	audit *audit.Service
	opts  Options
}

type Options struct {
	// DefaultRedeemLimit is the limit given to a redeem wallet created without one.
	DefaultRedeemLimit int64
	// MaxGrant caps a single admin credit grant.
	MaxGrant int64
}

func NewService(db *gorm.DB, auditSvc *audit.Service, opts Options) *Service {
	if opts.DefaultRedeemLimit <= 0 {
		opts.DefaultRedeemLimit = 50
	}
	if opts.MaxGrant <= 0 {
		opts.MaxGrant = 10000
	}
	return &Service{db: db, audit: auditSvc, opts: opts}
}

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type AdjustRequest struct {
	UserID     string
	WalletType WalletType
	// NewBalance and NewLimit are absolute targets; nil leaves the value unchanged.
	NewBalance     *int64
	NewLimit       *int64
	Reason         string
	IdempotencyKey string
}

type AdjustResult struct {
	UserID          string       `json:"userId"`
	WalletType      WalletType   `json:"walletType"`
	PreviousBalance int64        `json:"previousBalance"`
	NewBalance      int64        `json:"newBalance"`
	PreviousLimit   *int64       `json:"previousLimit,omitempty"`
	NewLimit        *int64       `json:"newLimit,omitempty"`
	Transaction     *Transaction `json:"transaction,omitempty"`
	Replayed        bool         `json:"replayed"`
}

type GrantRequest struct {
	UserID         string
	Amount         int64
	Reason         string
	IdempotencyKey string
}

type GrantResult struct {
	UserID      string      `json:"userId"`
	Amount      int64       `json:"amount"`
	NewBalance  int64       `json:"newBalance"`
	Transaction Transaction `json:"transaction"`
	Replayed    bool        `json:"replayed"`
}

type ListFilter struct {
	Page       int
	Limit      int
	Type       TransactionType
	WalletType WalletType
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type Summary struct {
	FundingBalance int64 `json:"fundingBalance"`
	RedeemBalance  int64 `json:"redeemBalance"`
	TotalCredited  int64 `json:"totalCredited"`
	TotalDebited   int64 `json:"totalDebited"`
}

type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
	Summary      Summary       `json:"summary"`
}

func validateAdjust(req AdjustRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidArgument)
	}
	if !req.WalletType.Valid() {
		return fmt.Errorf("%w: walletType must be FUNDING or REDEEM", ErrInvalidArgument)
	}
	if req.NewBalance != nil && *req.NewBalance < 0 {
		return fmt.Errorf("%w: newBalance must be non-negative", ErrInvalidArgument)
	}
	if req.NewLimit != nil && *req.NewLimit < 0 {
		return fmt.Errorf("%w: newLimit must be non-negative", ErrInvalidArgument)
	}
	switch req.WalletType {
	case WalletTypeFunding:
		if req.NewBalance == nil {
			return fmt.Errorf("%w: newBalance is required for FUNDING", ErrInvalidArgument)
		}
		if req.NewLimit != nil {
			return fmt.Errorf("%w: newLimit applies to REDEEM only", ErrInvalidArgument)
		}
	case WalletTypeRedeem:
		if req.NewBalance == nil && req.NewLimit == nil {
			return fmt.Errorf("%w: newBalance or newLimit is required", ErrInvalidArgument)
		}
	}
	return nil
}

func optionalKey(k string) *string {
	if k == "" {
		return nil
	}
	return &k
}

func ensureUser(ctx context.Context, tx *gorm.DB, userID string) error {
	ok, err := users.Exists(ctx, tx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return nil
}

// Adjust sets a wallet's balance (and, for REDEEM, its limit) to absolute targets.
// The change is applied as a delta guarded by the value read in the same
// transaction; ErrConflict means another writer moved the wallet first.
func (s *Service) Adjust(ctx context.Context, actor auth.Actor, req AdjustRequest) (AdjustResult, error) {
	if !actor.Valid() {
		return AdjustResult{}, fmt.Errorf("%w: actor is required", ErrInvalidArgument)
	}
	if err := validateAdjust(req); err != nil {
		return AdjustResult{}, err
	}

	out := AdjustResult{UserID: req.UserID, WalletType: req.WalletType}
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *gorm.DB) error {
		if err := ensureUser(ctx, tx, req.UserID); err != nil {
			return err
		}

		if req.IdempotencyKey != "" {
			prior, ok, err := FindByIdempotencyKey(ctx, tx, req.UserID, req.IdempotencyKey)
			if err != nil {
				return err
			}
			if ok {
				if !sameRequest(prior, adjustFingerprint(req)) {
					return keyReused(req.IdempotencyKey)
				}
				out = replayAdjust(prior)
				return nil
			}
		}

		var prev, next int64
		var prevLimit, nextLimit *int64
		switch req.WalletType {
		case WalletTypeFunding:
			w, err := EnsureFunding(ctx, tx, req.UserID)
			if err != nil {
				return err
			}
			prev, next = w.Balance, *req.NewBalance
			if err := SwapFundingBalance(ctx, tx, req.UserID, prev, next); err != nil {
				return err
			}
		case WalletTypeRedeem:
			w, err := EnsureRedeem(ctx, tx, req.UserID, s.opts.DefaultRedeemLimit)
			if err != nil {
				return err
			}
			prev, next = w.Balance, w.Balance
			if req.NewBalance != nil {
				next = *req.NewBalance
			}
			before, after := w.Limit, w.Limit
			if req.NewLimit != nil {
				after = *req.NewLimit
			}
			if err := SwapRedeem(ctx, tx, w, next, after); err != nil {
				return err
			}
			prevLimit, nextLimit = &before, &after
			out.PreviousLimit, out.NewLimit = prevLimit, nextLimit
		}
		out.PreviousBalance, out.NewBalance = prev, next

		entry, ok := AdjustmentEntry(req.UserID, req.WalletType, prev, next, req.Reason, actor)
		if !ok {
			return nil
		}
		entry.LimitBefore, entry.LimitAfter = prevLimit, nextLimit
		if req.IdempotencyKey != "" {
			fp := adjustFingerprint(req)
			entry.IdempotencyKey, entry.RequestFingerprint = optionalKey(req.IdempotencyKey), &fp
		}
		if err := AppendTransaction(ctx, tx, &entry); err != nil {
			return err
		}
		out.Transaction = &entry
		return nil
	})
	if err != nil {
		return AdjustResult{}, err
	}

	if !out.Replayed {
		s.audit.Record(ctx, actor, audit.EventTypeCreditsAdjusted, req.UserID,
			fmt.Sprintf("%s balance %d -> %d", req.WalletType, out.PreviousBalance, out.NewBalance),
			map[string]any{
				"walletType":      req.WalletType,
				"previousBalance": out.PreviousBalance,
				"newBalance":      out.NewBalance,
				"previousLimit":   out.PreviousLimit,
				"newLimit":        out.NewLimit,
				"reason":          req.Reason,
			})
	}
	logger.From(ctx).Info("wallet adjusted",
		"user_id", req.UserID,
		"wallet_type", req.WalletType,
		"previous_balance", out.PreviousBalance,
		"new_balance", out.NewBalance,
		"replayed", out.Replayed,
	)
	return out, nil
}

// replayAdjust rebuilds the outcome of an already-applied adjustment from its ledger row.
func replayAdjust(t Transaction) AdjustResult {
	prev := t.BalanceAfter - t.Amount
	if t.Type.Outflow() {
		prev = t.BalanceAfter + t.Amount
	}
	return AdjustResult{
		UserID:          t.UserID,
		WalletType:      t.WalletType,
		PreviousBalance: prev,
		NewBalance:      t.BalanceAfter,
		PreviousLimit:   t.LimitBefore,
		NewLimit:        t.LimitAfter,
		Transaction:     &t,
		Replayed:        true,
	}
}

func keyReused(key string) error {
	return fmt.Errorf("%w: idempotency key %q was already used for a different request", ErrConflict, key)
}

// Grant adds amount credits to the user's funding wallet, creating it if absent.
func (s *Service) Grant(ctx context.Context, actor auth.Actor, req GrantRequest) (GrantResult, error) {
	if !actor.Valid() {
		return GrantResult{}, fmt.Errorf("%w: actor is required", ErrInvalidArgument)
	}
	if req.UserID == "" {
		return GrantResult{}, fmt.Errorf("%w: userId is required", ErrInvalidArgument)
	}
	if req.Amount < 1 || req.Amount > s.opts.MaxGrant {
		return GrantResult{}, fmt.Errorf("%w: amount must be between 1 and %d", ErrInvalidArgument, s.opts.MaxGrant)
	}

	var out GrantResult
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *gorm.DB) error {
		if err := ensureUser(ctx, tx, req.UserID); err != nil {
			return err
		}
		if req.IdempotencyKey != "" {
			prior, ok, err := FindByIdempotencyKey(ctx, tx, req.UserID, req.IdempotencyKey)
			if err != nil {
				return err
			}
			if ok {
				if !sameRequest(prior, grantFingerprint(req.Amount)) {
					return keyReused(req.IdempotencyKey)
				}
				out = GrantResult{UserID: req.UserID, Amount: prior.Amount, NewBalance: prior.BalanceAfter, Transaction: prior, Replayed: true}
				return nil
			}
		}

		w, err := IncrementFunding(ctx, tx, req.UserID, FundingDelta{Balance: req.Amount})
		if err != nil {
			return err
		}
		entry := GrantEntry(req.UserID, req.Amount, w.Balance, req.Reason, actor)
		if req.IdempotencyKey != "" {
			fp := grantFingerprint(req.Amount)
			entry.IdempotencyKey, entry.RequestFingerprint = optionalKey(req.IdempotencyKey), &fp
		}
		if err := AppendTransaction(ctx, tx, &entry); err != nil {
			return err
		}
		out = GrantResult{UserID: req.UserID, Amount: req.Amount, NewBalance: w.Balance, Transaction: entry}
		return nil
	})
	if err != nil {
		return GrantResult{}, err
	}

	if !out.Replayed {
		s.audit.Record(ctx, actor, audit.EventTypeCreditsGranted, req.UserID,
			fmt.Sprintf("granted %d credits", req.Amount),
			map[string]any{"amount": req.Amount, "newBalance": out.NewBalance, "reason": req.Reason})
	}
	return out, nil
}

// GetWallets reads both wallets without creating either.
func (s *Service) GetWallets(ctx context.Context, userID string) (Snapshot, error) {
	if userID == "" {
		return Snapshot{}, ErrInvalidArgument
	}
	out := Snapshot{UserID: userID, Funding: FundingWallet{UserID: userID}, Redeem: RedeemWallet{UserID: userID}}
	f, ok, err := GetFunding(ctx, s.db, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if ok {
		out.Funding, out.HasFunding = f, true
	}
	r, ok, err := GetRedeem(ctx, s.db, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if ok {
		out.Redeem, out.HasRedeem = r, true
	}
	return out, nil
}

// GetUserWallets is GetWallets for staff views: the user must exist.
func (s *Service) GetUserWallets(ctx context.Context, userID string) (Snapshot, error) {
	if userID == "" {
		return Snapshot{}, ErrInvalidArgument
	}
	if err := ensureUser(ctx, s.db, userID); err != nil {
		return Snapshot{}, err
	}
	return s.GetWallets(ctx, userID)
}

func normalizeFilter(f ListFilter) (ListFilter, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	if f.Type != "" && !f.Type.Valid() {
		return ListFilter{}, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidArgument, f.Type)
	}
	if f.WalletType != "" && !f.WalletType.Valid() {
		return ListFilter{}, fmt.Errorf("%w: unknown wallet type %q", ErrInvalidArgument, f.WalletType)
	}
	return f, nil
}

// ListTransactions returns one page of the user's ledger, newest first, with a
// summary over the whole ledger and current balances.
func (s *Service) ListTransactions(ctx context.Context, userID string, f ListFilter) (TransactionPage, error) {
	if userID == "" {
		return TransactionPage{}, ErrInvalidArgument
	}
	f, err := normalizeFilter(f)
	if err != nil {
		return TransactionPage{}, err
	}

	rows, total, err := listTransactions(ctx, s.db, userID, f)
	if err != nil {
		return TransactionPage{}, err
	}
	totals, err := totalsByType(ctx, s.db, userID)
	if err != nil {
		return TransactionPage{}, err
	}
	snap, err := s.GetWallets(ctx, userID)
	if err != nil {
		return TransactionPage{}, err
	}

	sum := Summary{FundingBalance: snap.Funding.Balance, RedeemBalance: snap.Redeem.Balance}
	for _, t := range totals {
		if t.Type.Outflow() {
			sum.TotalDebited += t.Total
		} else {
			sum.TotalCredited += t.Total
		}
	}

	pages := int((total + int64(f.Limit) - 1) / int64(f.Limit))
	return TransactionPage{
		Transactions: rows,
		Pagination:   Pagination{Page: f.Page, Limit: f.Limit, Total: total, TotalPages: pages},
		Summary:      sum,
	}, nil
}

// DeleteTransaction hard-deletes a ledger row. The wallet balance it recorded is
// not reversed; a compensating REFUND row is the caller's job.
func (s *Service) DeleteTransaction(ctx context.Context, actor auth.Actor, id string) (Transaction, error) {
	if !actor.Valid() {
		return Transaction{}, fmt.Errorf("%w: actor is required", ErrInvalidArgument)
	}
	if id == "" {
		return Transaction{}, ErrInvalidArgument
	}

	var deleted Transaction
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *gorm.DB) error {
		t, err := findTransaction(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := deleteTransaction(ctx, tx, id); err != nil {
			return err
		}
		deleted = t
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}

	s.audit.Record(ctx, actor, audit.EventTypeTransactionDeleted, deleted.UserID,
		fmt.Sprintf("deleted %s transaction of %d", deleted.Type, deleted.Amount), deleted)
	logger.From(ctx).Warn("ledger row deleted, balance not reversed",
		"transaction_id", deleted.ID,
		"user_id", deleted.UserID,
		"amount", deleted.Amount,
	)
	return deleted, nil
}
