package wallet

import (
	"context"
	"testing"
	"time"

	"nikahfirst/internal/audit"
	"nikahfirst/internal/testdb"
	"nikahfirst/internal/users"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *audit.MemoryRepo) {
	t.Helper()
	models := append(users.Models(), Models()...)
	db := testdb.Open(t, models...)
	repo := audit.NewMemoryRepo()
	svc := NewService(db, audit.NewService(repo), Options{DefaultRedeemLimit: 50, MaxGrant: 10000})
	return svc, db, repo
}

func seedUser(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	require.NoError(t, db.Create(&users.User{ID: id, Name: "Member " + id, Role: "USER"}).Error)
}

func ptr(v int64) *int64 { return &v }

func ledger(t *testing.T, db *gorm.DB, userID string) []Transaction {
	t.Helper()
	var rows []Transaction
	require.NoError(t, db.Where("user_id = ?", userID).Order("created_at").Find(&rows).Error)
	return rows
}

func TestAdjust_FundingFromZeroWritesOneCredit(t *testing.T) {
	svc, db, repo := newTestService(t)
	seedUser(t, db, "u1")

	res, err := svc.Adjust(context.Background(), admin, AdjustRequest{
		UserID: "u1", WalletType: WalletTypeFunding, NewBalance: ptr(100), Reason: "promo",
	})
	require.NoError(t, err)
	require.EqualValues(t, 0, res.PreviousBalance)
	require.EqualValues(t, 100, res.NewBalance)

	w, ok, err := GetFunding(context.Background(), db, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 100, w.Balance)
	require.EqualValues(t, 0, w.TotalPurchased)

	rows := ledger(t, db, "u1")
	require.Len(t, rows, 1)
	require.Equal(t, TransactionTypeCredit, rows[0].Type)
	require.EqualValues(t, 100, rows[0].Amount)
	require.Contains(t, rows[0].Description, "promo")
	require.Equal(t, "admin-1", *rows[0].CreatedBy)

	evs := repo.Events()
	require.Len(t, evs, 1)
	require.Equal(t, audit.EventTypeCreditsAdjusted, evs[0].Type)
	require.Equal(t, "u1", evs[0].TargetUserID)
}

func TestAdjust_DecreaseWritesDebit(t *testing.T) {
	svc, db, _ := newTestService(t)
	seedUser(t, db, "u1")
	ctx := context.Background()

	_, err := svc.Adjust(ctx, admin, AdjustRequest{UserID: "u1", WalletType: WalletTypeFunding, NewBalance: ptr(80)})
	require.NoError(t, err)
	res, err := svc.Adjust(ctx, admin, AdjustRequest{UserID: "u1", WalletType: WalletTypeFunding, NewBalance: ptr(30)})
	require.NoError(t, err)
	require.EqualValues(t, 80, res.PreviousBalance)

	rows := ledger(t, db, "u1")
	require.Len(t, rows, 2)
	require.Equal(t, TransactionTypeDebit, rows[1].Type)
	require.EqualValues(t, 50, rows[1].Amount)
	require.EqualValues(t, 30, rows[1].BalanceAfter)
}

func TestAdjust_ZeroDeltaWritesNothing(t *testing.T) {
	svc, db, _ := newTestService(t)
	seedUser(t, db, "u1")
	ctx := context.Background()

	_, err := svc.Adjust(ctx, admin, AdjustRequest{UserID: "u1", WalletType: WalletTypeFunding, NewBalance: ptr(40)})
	require.NoError(t, err)
	res, err := svc.Adjust(ctx, admin, AdjustRequest{UserID: "u1", WalletType: WalletTypeFunding, NewBalance: ptr(40)})
	require.NoError(t, err)
	require.Nil(t, res.Transaction)
	require.Len(t, ledger(t, db, "u1"), 1)
}

func TestAdjust_RedeemCreatesWithDefaultLimit(t *testing.T) {
	svc, db, _ := newTestService(t)
	seedUser(t, db, "u1")

	res, err := svc.Adjust(context.Background(), admin, AdjustRequest{UserID: "u1", WalletType: WalletTypeRedeem, NewBalance: ptr(12)})
	require.NoError(t, err)
	require.EqualValues(t, 50, *res.PreviousLimit)
	require.EqualValues(t, 50, *res.NewLimit)

	w, ok, err := GetRedeem(context.Background(), db, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 12, w.Balance)
	require.EqualValues(t, 50, w.Limit)

	rows := ledger(t, db, "u1")
	require.Len(t, rows, 1)
	require.Equal(t, WalletTypeRedeem, rows[0].WalletType)
}

func TestAdjust_RedeemLimitOnlyWritesNoLedger(t *testing.T) {
	svc, db, _ := newTestService(t)
	seedUser(t, db, "u1")

	res, err := svc.Adjust(context.Background(), admin, AdjustRequest{UserID: "u1", WalletType: WalletTypeRedeem, NewLimit: ptr(0)})
	require.NoError(t, err)
	require.EqualValues(t, 0, *res.NewLimit)

	w, _, err := GetRedeem(context.Background(), db, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 0, w.Limit)
	require.Empty(t, ledger(t, db, "u1"))
}

func TestAdjust_RejectsInvalidInputWithoutWriting(t *testing.T) {
	svc, db, _ := newTestService(t)
	seedUser(t, db, "u1")
	ctx := context.Background()

	cases := []AdjustRequest{
		{UserID: "u1", WalletType: WalletTypeFunding, NewBalance: ptr(-1)},
		{UserID: "u1", WalletType: WalletTypeRedeem, NewLimit: ptr(-5)},
		{UserID: "u1", WalletType: WalletTypeFunding},
		{UserID: "u1", WalletType: WalletTypeRedeem},
		{UserID: "u1", WalletType: "GOLD", NewBalance: ptr(1)},
		{WalletType: WalletTypeFunding, NewBalance: ptr(1)},
	}
	for _, c := range cases {
		_, err := svc.Adjust(ctx, admin, c)
		require.ErrorIs(t, err, ErrInvalidArgument)
	}

	_, found, err := GetFunding(ctx, db, "u1")
	require.NoError(t, err)
	require.False(t, found)
	require.Empty(t, ledger(t, db, "u1"))
}

func TestAdjust_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Adjust(context.Background(), admin, AdjustRequest{UserID: "ghost", WalletType: WalletTypeFunding, NewBalance: ptr(1)})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAdjust_IdempotencyKeyReplaysOriginal(t *testing.T) {
	svc, db, repo := newTestService(t)
	seedUser(t, db, "u1")
	ctx := context.Background()
	req := AdjustRequest{UserID: "u1", WalletType: WalletTypeFunding, NewBalance: ptr(100), IdempotencyKey: "k-1"}

	first, err := svc.Adjust(ctx, admin, req)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	// Someone else moves the balance; the retry must not re-apply its absolute target.
	_, err = svc.Adjust(ctx, admin, AdjustRequest{UserID: "u1", WalletType: WalletTypeFunding, NewBalance: ptr(70)})
	require.NoError(t, err)

	again, err := svc.Adjust(ctx, admin, req)
	require.NoError(t, err)
	require.True(t, again.Replayed)
	require.EqualValues(t, 0, again.PreviousBalance)
	require.EqualValues(t, 100, again.NewBalance)
	require.Equal(t, first.Transaction.ID, again.Transaction.ID)

	w, _, err := GetFunding(ctx, db, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 70, w.Balance)
	require.Len(t, ledger(t, db, "u1"), 2)
	require.Len(t, repo.Events(), 2)
}

func TestAdjust_IdempotencyKeyReusedForOtherRequestConflicts(t *testing.T) {
	svc, db, _ := newTestService(t)
	seedUser(t, db, "u1")
	ctx := context.Background()

	_, err := svc.Grant(ctx, admin, GrantRequest{UserID: "u1", Amount: 10, IdempotencyKey: "k"})
	require.NoError(t, err)

	_, err = svc.Adjust(ctx, admin, AdjustRequest{UserID: "u1", WalletType: WalletTypeRedeem, NewBalance: ptr(500), IdempotencyKey: "k"})
	require.ErrorIs(t, err, ErrConflict)
	_, err = svc.Grant(ctx, admin, GrantRequest{UserID: "u1", Amount: 11, IdempotencyKey: "k"})
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Adjust(ctx, admin, AdjustRequest{UserID: "u1", WalletType: WalletTypeFunding, NewBalance: ptr(40), IdempotencyKey: "k-2"})
	require.NoError(t, err)
	_, err = svc.Adjust(ctx, admin, AdjustRequest{UserID: "u1", WalletType: WalletTypeFunding, NewBalance: ptr(41), IdempotencyKey: "k-2"})
	require.ErrorIs(t, err, ErrConflict)

	_, ok, err := GetRedeem(ctx, db, "u1")
	require.NoError(t, err)
	require.False(t, ok)
	f, _, err := GetFunding(ctx, db, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 40, f.Balance)
	require.Len(t, ledger(t, db, "u1"), 2)

	// The same key on another user is independent.
	seedUser(t, db, "u2")
	res, err := svc.Grant(ctx, admin, GrantRequest{UserID: "u2", Amount: 3, IdempotencyKey: "k"})
	require.NoError(t, err)
	require.False(t, res.Replayed)
}

func TestAdjust_RedeemReplayKeepsLimits(t *testing.T) {
	svc, db, _ := newTestService(t)
	seedUser(t, db, "u1")
	ctx := context.Background()
	req := AdjustRequest{UserID: "u1", WalletType: WalletTypeRedeem, NewBalance: ptr(30), NewLimit: ptr(200), IdempotencyKey: "r-1"}

	first, err := svc.Adjust(ctx, admin, req)
	require.NoError(t, err)
	require.EqualValues(t, 50, *first.PreviousLimit)
	require.EqualValues(t, 200, *first.NewLimit)

	again, err := svc.Adjust(ctx, admin, req)
	require.NoError(t, err)
	require.True(t, again.Replayed)
	require.Equal(t, WalletTypeRedeem, again.WalletType)
	require.EqualValues(t, 0, again.PreviousBalance)
	require.EqualValues(t, 30, again.NewBalance)
	require.NotNil(t, again.PreviousLimit)
	require.NotNil(t, again.NewLimit)
	require.EqualValues(t, 50, *again.PreviousLimit)
	require.EqualValues(t, 200, *again.NewLimit)
	require.Len(t, ledger(t, db, "u1"), 1)
}

func TestSwapFundingBalance_StalePreviousConflicts(t *testing.T) {
	_, db, _ := newTestService(t)
	ctx := context.Background()

	_, err := CreateFunding(ctx, db, "u1", 10)
	require.NoError(t, err)

	require.ErrorIs(t, SwapFundingBalance(ctx, db, "u1", 5, 20), ErrConflict)
	require.NoError(t, SwapFundingBalance(ctx, db, "u1", 10, 20))

	w, _, err := GetFunding(ctx, db, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 20, w.Balance)
}

func TestCreateFunding_SecondCreateConflicts(t *testing.T) {
	_, db, _ := newTestService(t)
	ctx := context.Background()

	_, err := CreateFunding(ctx, db, "u1", 0)
	require.NoError(t, err)
	_, err = CreateFunding(ctx, db, "u1", 0)
	require.ErrorIs(t, err, ErrConflict)
}

func TestSyncRedeemTier_IncrementsExistingBalance(t *testing.T) {
	_, db, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	w, err := SyncRedeemTier(ctx, db, "u1", RedeemTier{FreeCredits: 5, Limit: 50, RedeemCredits: 5, CycleDays: 7}, now)
	require.NoError(t, err)
	require.EqualValues(t, 5, w.Balance)

	w, err = SyncRedeemTier(ctx, db, "u1", RedeemTier{FreeCredits: 20, Limit: 200, RedeemCredits: 20, CycleDays: 30}, now)
	require.NoError(t, err)
	require.EqualValues(t, 25, w.Balance)
	require.EqualValues(t, 200, w.Limit)
	require.EqualValues(t, 20, w.RedeemCredits)
	require.Equal(t, 30, w.RedeemCycleDays)
	require.True(t, now.AddDate(0, 0, 30).Equal(*w.NextRedemption))
}

func TestGrant_IncrementsAndRecordsCredit(t *testing.T) {
	svc, db, repo := newTestService(t)
	seedUser(t, db, "u1")
	ctx := context.Background()

	res, err := svc.Grant(ctx, admin, GrantRequest{UserID: "u1", Amount: 25, Reason: "welcome"})
	require.NoError(t, err)
	require.EqualValues(t, 25, res.NewBalance)
	res, err = svc.Grant(ctx, admin, GrantRequest{UserID: "u1", Amount: 5})
	require.NoError(t, err)
	require.EqualValues(t, 30, res.NewBalance)

	rows := ledger(t, db, "u1")
	require.Len(t, rows, 2)
	require.Equal(t, "Admin credit: welcome (by Hina)", rows[0].Description)
	require.Equal(t, audit.EventTypeCreditsGranted, repo.Events()[0].Type)
}

func TestGrant_AmountBounds(t *testing.T) {
	svc, db, _ := newTestService(t)
	seedUser(t, db, "u1")
	ctx := context.Background()

	_, err := svc.Grant(ctx, admin, GrantRequest{UserID: "u1", Amount: 0})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.Grant(ctx, admin, GrantRequest{UserID: "u1", Amount: 10001})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.Grant(ctx, admin, GrantRequest{UserID: "ghost", Amount: 1})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetWallets_DoesNotCreate(t *testing.T) {
	svc, db, _ := newTestService(t)
	seedUser(t, db, "u1")
	ctx := context.Background()

	snap, err := svc.GetWallets(ctx, "u1")
	require.NoError(t, err)
	require.False(t, snap.HasFunding)
	require.False(t, snap.HasRedeem)
	require.EqualValues(t, 0, snap.Funding.Balance)

	_, found, err := GetFunding(ctx, db, "u1")
	require.NoError(t, err)
	require.False(t, found)

	_, err = svc.GetUserWallets(ctx, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListTransactions_PaginatesAndSummarizes(t *testing.T) {
	svc, db, _ := newTestService(t)
	seedUser(t, db, "u1")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Grant(ctx, admin, GrantRequest{UserID: "u1", Amount: 10})
		require.NoError(t, err)
	}
	_, err := svc.Adjust(ctx, admin, AdjustRequest{UserID: "u1", WalletType: WalletTypeFunding, NewBalance: ptr(25)})
	require.NoError(t, err)

	page, err := svc.ListTransactions(ctx, "u1", ListFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 2)
	require.EqualValues(t, 4, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.TotalPages)
	require.EqualValues(t, 25, page.Summary.FundingBalance)
	require.EqualValues(t, 30, page.Summary.TotalCredited)
	require.EqualValues(t, 5, page.Summary.TotalDebited)

	debits, err := svc.ListTransactions(ctx, "u1", ListFilter{Type: TransactionTypeDebit})
	require.NoError(t, err)
	require.Len(t, debits.Transactions, 1)
	require.Equal(t, 20, debits.Pagination.Limit)

	capped, err := svc.ListTransactions(ctx, "u1", ListFilter{Limit: 1000})
	require.NoError(t, err)
	require.Equal(t, 100, capped.Pagination.Limit)

	_, err = svc.ListTransactions(ctx, "u1", ListFilter{Type: "GIFT"})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeleteTransaction_KeepsBalance(t *testing.T) {
	svc, db, repo := newTestService(t)
	seedUser(t, db, "u1")
	ctx := context.Background()

	res, err := svc.Grant(ctx, admin, GrantRequest{UserID: "u1", Amount: 40})
	require.NoError(t, err)

	deleted, err := svc.DeleteTransaction(ctx, admin, res.Transaction.ID)
	require.NoError(t, err)
	require.Equal(t, res.Transaction.ID, deleted.ID)
	require.Empty(t, ledger(t, db, "u1"))

	w, _, err := GetFunding(ctx, db, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 40, w.Balance)

	_, err = svc.DeleteTransaction(ctx, admin, res.Transaction.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, audit.EventTypeTransactionDeleted, repo.Events()[len(repo.Events())-1].Type)
}
