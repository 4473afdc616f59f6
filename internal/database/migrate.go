// Package database owns schema migration for every persisted model.
package database

import (
	"context"
	"fmt"

	"nikahfirst/internal/audit"
	"nikahfirst/internal/topup"
	"nikahfirst/internal/users"
	"nikahfirst/internal/wallet"

	"gorm.io/gorm"
)

// Models returns every table in dependency order.
func Models() []any {
	var out []any
	out = append(out, users.Models()...)
	out = append(out, wallet.Models()...)
	out = append(out, topup.Models()...)
	out = append(out, audit.Models()...)
	return out
}

// Migrate creates or updates tables, columns and indexes. It never drops anything.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
