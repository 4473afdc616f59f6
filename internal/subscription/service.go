// Package subscription assigns plans to members and copies each plan's tier
// parameters onto the member and their redeem wallet.
package subscription

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

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

type Service struct {
	db    *gorm.DB
	audit *audit.Service
	clock func() time.Time
}

func NewService(db *gorm.DB, auditSvc *audit.Service) *Service {
	return &Service{db: db, audit: auditSvc, clock: time.Now}
}

type ChangeResult struct {
	User         users.User             `json:"user"`
	PreviousPlan string                 `json:"previousPlan"`
	Plan         users.SubscriptionPlan `json:"plan"`
	RedeemWallet wallet.RedeemWallet    `json:"redeemWallet"`
}

// Change moves userID onto the plan named by slug. The redeem wallet is
// upserted: a new one opens with the plan's free credits, an existing one has
// them added on top. No ledger row is written for that grant.
func (s *Service) Change(ctx context.Context, actor auth.Actor, userID, slug string) (ChangeResult, error) {
	if !actor.Valid() {
		return ChangeResult{}, fmt.Errorf("%w: actor is required", ErrInvalidArgument)
	}
	slug = strings.TrimSpace(slug)
	if userID == "" || slug == "" {
		return ChangeResult{}, fmt.Errorf("%w: userId and planSlug are required", ErrInvalidArgument)
	}

	now := s.clock().UTC()
	var out ChangeResult
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *gorm.DB) error {
		u, err := users.Find(ctx, tx, userID)
		if err != nil {
			return notFound(err)
		}
		plan, err := users.FindPlanBySlug(ctx, tx, slug)
		if err != nil {
			return notFound(err)
		}
		if !plan.IsActive {
			return fmt.Errorf("%w: plan %q is not active", ErrInvalidArgument, slug)
		}

		if err := users.ApplyPlan(ctx, tx, userID, plan); err != nil {
			return notFound(err)
		}
		rw, err := wallet.SyncRedeemTier(ctx, tx, userID, wallet.RedeemTier{
			FreeCredits:   plan.FreeCredits,
			Limit:         plan.WalletLimit,
			RedeemCredits: plan.RedeemCredits,
			CycleDays:     plan.RedeemCycleDays,
		}, now)
		if err != nil {
			return err
		}

		updated, err := users.Find(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = ChangeResult{User: updated, PreviousPlan: u.Subscription, Plan: plan, RedeemWallet: rw}
		return nil
	})
	if err != nil {
		return ChangeResult{}, err
	}

	s.audit.Record(ctx, actor, audit.EventTypeSubscriptionChanged, userID,
		fmt.Sprintf("subscription %s -> %s", out.PreviousPlan, out.Plan.Slug),
		map[string]any{
			"previousPlan":  out.PreviousPlan,
			"plan":          out.Plan.Slug,
			"freeCredits":   out.Plan.FreeCredits,
			"redeemBalance": out.RedeemWallet.Balance,
		})
	logger.From(ctx).Info("subscription changed",
		"user_id", userID,
		"from", out.PreviousPlan,
		"to", out.Plan.Slug,
	)
	return out, nil
}

func notFound(err error) error {
	if errors.Is(err, users.ErrUserNotFound) || errors.Is(err, users.ErrPlanNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
