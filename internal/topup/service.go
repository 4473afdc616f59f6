package topup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"nikahfirst/internal/audit"
	"nikahfirst/internal/auth"
	"nikahfirst/internal/users"
	"nikahfirst/internal/wallet"
	"nikahfirst/pkg/logger"
	"nikahfirst/pkg/utils"

	"gorm.io/gorm"
)

// Service runs the top-up workflow: PENDING -> COMPLETED | REJECTED.
//
// Invariants:
// - At most one PENDING request per user (checked inside the creation transaction)
// - Only PENDING requests transition, through a guarded status update
// - Approval credits the funding wallet and writes one TOP_UP ledger row in the same transaction
type Service struct {
	db    *gorm.DB
	audit *audit.Service
	seq   Sequencer
	lock  Locker
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

// NewService wires the workflow. A nil seq falls back to the database scan and a
// nil lock disables per-user creation locking.
func NewService(db *gorm.DB, auditSvc *audit.Service, seq Sequencer, lock Locker) *Service {
	if seq == nil {
		seq = DBSequencer{}
	}
	if lock == nil {
		lock = nopLocker{}
	}
	return &Service{db: db, audit: auditSvc, seq: seq, lock: lock, clock: time.Now}
}

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState means the request is no longer PENDING.
	ErrInvalidState  = errors.New("request already processed")
	ErrPendingExists = errors.New("a pending top-up request already exists")
	// ErrBusy means another creation for the same user is in flight.
	ErrBusy     = errors.New("top-up creation in progress")
	ErrConflict = errors.New("conflict")
)

type CreateRequest struct {
	PackageID     string
	PaymentMethod string
}

type CreateResult struct {
	Request             Request        `json:"request"`
	PaymentInstructions string         `json:"paymentInstructions"`
	PaymentDetails      PaymentDetails `json:"paymentDetails"`
}

type ReviewAction string

const (
	ActionApprove ReviewAction = "approve"
	ActionReject  ReviewAction = "reject"
)

type ReviewRequest struct {
	Action          ReviewAction
	AdminNotes      string
	RejectionReason string
}

type ReviewResult struct {
	Request Request `json:"request"`
	// NewBalance is the funding balance after approval; nil on rejection.
	NewBalance *int64 `json:"newBalance,omitempty"`
}

type ListQuery struct {
	Status Status
	Page   int
	Limit  int
}

type RequestPage struct {
	Requests   []Request         `json:"requests"`
	Pagination wallet.Pagination `json:"pagination"`
}

func (s *Service) Packages(ctx context.Context) ([]CreditPackage, error) {
	return activePackages(ctx, s.db)
}

func (s *Service) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	return activePaymentMethods(ctx, s.db)
}

// Create opens a PENDING request for userID, pricing it from the package as it is now.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (CreateResult, error) {
	if userID == "" {
		return CreateResult{}, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if req.PackageID == "" || req.PaymentMethod == "" {
		return CreateResult{}, fmt.Errorf("%w: packageId and paymentMethod are required", ErrInvalidArgument)
	}

	release, ok, err := s.lock.Acquire(ctx, createLockKey(userID))
	if err != nil {
		return CreateResult{}, fmt.Errorf("acquire topup lock: %w", err)
	}
	if !ok {
		return CreateResult{}, ErrBusy
	}
	defer release()

	now := s.clock().UTC()
	var out CreateResult
	err = utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *gorm.DB) error {
		exists, err := users.Exists(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}

		pkg, found, err := findPackage(ctx, tx, req.PackageID)
		if err != nil {
			return err
		}
		if !found || !pkg.IsActive {
			return fmt.Errorf("%w: package %q is not available", ErrInvalidArgument, req.PackageID)
		}
		method, found, err := findPaymentMethod(ctx, tx, req.PaymentMethod)
		if err != nil {
			return err
		}
		if !found || !method.IsActive {
			return fmt.Errorf("%w: payment method %q is not available", ErrInvalidArgument, req.PaymentMethod)
		}

		pending, err := hasPending(ctx, tx, userID)
		if err != nil {
			return err
		}
		if pending {
			return ErrPendingExists
		}

		seq, err := s.seq.Next(ctx, tx, now.Year())
		if err != nil {
			return err
		}
		r := Request{
			RequestNumber: FormatRequestNumber(now.Year(), seq),
			UserID:        userID,
			PackageID:     pkg.ID,
			Credits:       pkg.Credits,
			BonusCredits:  pkg.BonusCredits,
			Amount:        pkg.Price,
			Currency:      pkg.Currency,
			PaymentMethod: method.Code,
			Status:        StatusPending,
		}
		if err := insertRequest(ctx, tx, &r); err != nil {
			return err
		}
		out = CreateResult{
			Request:             r,
			PaymentInstructions: paymentInstructions(method, r),
			PaymentDetails:      paymentDetails(method, r),
		}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}

	logger.From(ctx).Info("topup request created",
		"user_id", userID,
		"request_number", out.Request.RequestNumber,
		"credits", out.Request.TotalCredits(),
	)
	return out, nil
}

// ListForUser returns the user's requests, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Request, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	out, _, err := listRequests(ctx, s.db, userID, "", 1, 0)
	return out, err
}

// List returns a page of every user's requests for reviewers.
func (s *Service) List(ctx context.Context, q ListQuery) (RequestPage, error) {
	if q.Status != "" && !q.Status.Valid() {
		return RequestPage{}, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, q.Status)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	rows, total, err := listRequests(ctx, s.db, "", q.Status, q.Page, q.Limit)
	if err != nil {
		return RequestPage{}, err
	}
	pages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return RequestPage{
		Requests:   rows,
		Pagination: wallet.Pagination{Page: q.Page, Limit: q.Limit, Total: total, TotalPages: pages},
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	if id == "" {
		return Request{}, ErrInvalidArgument
	}
	return findRequest(ctx, s.db, id)
}

// Review approves or rejects a PENDING request on behalf of actor.
func (s *Service) Review(ctx context.Context, actor auth.Actor, id string, req ReviewRequest) (ReviewResult, error) {
	switch req.Action {
	case ActionApprove:
		return s.Approve(ctx, actor, id, req.AdminNotes)
	case ActionReject:
		return s.Reject(ctx, actor, id, req.RejectionReason, req.AdminNotes)
	default:
		return ReviewResult{}, fmt.Errorf("%w: action must be approve or reject", ErrInvalidArgument)
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Approve completes the request, credits credits+bonusCredits to the funding
// wallet and appends the TOP_UP ledger row, all in one transaction.
func (s *Service) Approve(ctx context.Context, actor auth.Actor, id, adminNotes string) (ReviewResult, error) {
	if !actor.Valid() {
		return ReviewResult{}, fmt.Errorf("%w: actor is required", ErrInvalidArgument)
	}
	if id == "" {
		return ReviewResult{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	var out ReviewResult
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *gorm.DB) error {
		r, err := findRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if r.Status != StatusPending {
			return ErrInvalidState
		}
		err = transition(ctx, tx, id, StatusCompleted, actor.UserID, now, map[string]any{
			"admin_notes": optional(adminNotes),
		})
		if err != nil {
			return err
		}

		credits := r.TotalCredits()
		w, err := wallet.IncrementFunding(ctx, tx, r.UserID, wallet.FundingDelta{Balance: credits, Purchased: credits})
		if err != nil {
			return err
		}
		entry := wallet.TopUpEntry(r.UserID, r.ID, r.RequestNumber, r.PaymentMethod, credits, w.Balance, actor)
		if err := wallet.AppendTransaction(ctx, tx, &entry); err != nil {
			return err
		}

		r, err = findRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		bal := w.Balance
		out = ReviewResult{Request: r, NewBalance: &bal}
		return nil
	})
	if err != nil {
		return ReviewResult{}, err
	}

	s.audit.Record(ctx, actor, audit.EventTypeTopUpApproved, out.Request.UserID,
		fmt.Sprintf("approved %s for %d credits", out.Request.RequestNumber, out.Request.TotalCredits()),
		map[string]any{"requestId": out.Request.ID, "credits": out.Request.TotalCredits(), "newBalance": *out.NewBalance})
	logger.From(ctx).Info("topup request approved",
		"request_number", out.Request.RequestNumber,
		"user_id", out.Request.UserID,
		"new_balance", *out.NewBalance,
	)
	return out, nil
}

// Reject closes the request with a reason. Wallets and ledger are untouched.
func (s *Service) Reject(ctx context.Context, actor auth.Actor, id, reason, adminNotes string) (ReviewResult, error) {
	if !actor.Valid() {
		return ReviewResult{}, fmt.Errorf("%w: actor is required", ErrInvalidArgument)
	}
	if id == "" {
		return ReviewResult{}, ErrInvalidArgument
	}
	if strings.TrimSpace(reason) == "" {
		return ReviewResult{}, fmt.Errorf("%w: rejectionReason is required", ErrInvalidArgument)
	}

	now := s.clock().UTC()
	var out ReviewResult
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *gorm.DB) error {
		r, err := findRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if r.Status != StatusPending {
			return ErrInvalidState
		}
		err = transition(ctx, tx, id, StatusRejected, actor.UserID, now, map[string]any{
			"rejection_reason": optional(reason),
			"admin_notes":      optional(adminNotes),
		})
		if err != nil {
			return err
		}
		out.Request, err = findRequest(ctx, tx, id)
		return err
	})
	if err != nil {
		return ReviewResult{}, err
	}

	s.audit.Record(ctx, actor, audit.EventTypeTopUpRejected, out.Request.UserID,
		fmt.Sprintf("rejected %s", out.Request.RequestNumber),
		map[string]any{"requestId": out.Request.ID, "reason": reason})
	return out, nil
}
