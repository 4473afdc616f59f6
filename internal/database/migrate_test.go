package database

import (
	"context"
	"testing"

	"nikahfirst/internal/testdb"
	"nikahfirst/internal/topup"
	"nikahfirst/internal/wallet"

	"github.com/stretchr/testify/require"
)

func TestMigrate_CreatesEveryTableAndIsRepeatable(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db))

	for _, table := range []string{"users", "subscription_plans", "funding_wallets", "redeem_wallets", "transactions", "credit_packages", "payment_methods", "topup_requests", "audit_events"} {
		require.True(t, db.Migrator().HasTable(table), table)
	}
	require.True(t, db.Migrator().HasIndex(&wallet.Transaction{}, "idx_transactions_user_idempotency"))
	require.True(t, db.Migrator().HasIndex(&topup.Request{}, "RequestNumber"))
}
