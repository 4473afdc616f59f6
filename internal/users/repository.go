package users

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrPlanNotFound = errors.New("subscription plan not found")
)

// Find loads a user by id. db may be a transaction handle.
func Find(ctx context.Context, db *gorm.DB, id string) (User, error) {
	var u User
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// Exists reports whether a user row exists without loading it.
func Exists(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return n > 0, nil
}

func FindPlanBySlug(ctx context.Context, db *gorm.DB, slug string) (SubscriptionPlan, error) {
	var p SubscriptionPlan
	if err := db.WithContext(ctx).Where("slug = ?", slug).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SubscriptionPlan{}, ErrPlanNotFound
		}
		return SubscriptionPlan{}, fmt.Errorf("load plan: %w", err)
	}
	return p, nil
}

// ApplyPlan snapshots plan's tier parameters onto the user row.
func ApplyPlan(ctx context.Context, db *gorm.DB, userID string, plan SubscriptionPlan) error {
	planID := plan.ID
	res := db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(map[string]any{
		"subscription_plan_id":   &planID,
		"subscription":           plan.Slug,
		"tier_free_credits":      plan.FreeCredits,
		"tier_wallet_limit":      plan.WalletLimit,
		"tier_redeem_credits":    plan.RedeemCredits,
		"tier_redeem_cycle_days": plan.RedeemCycleDays,
		"tier_profile_limit":     plan.ProfileLimit,
		"tier_price_monthly":     plan.PriceMonthly,
		"tier_price_yearly":      plan.PriceYearly,
	})
	if res.Error != nil {
		return fmt.Errorf("apply plan: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
