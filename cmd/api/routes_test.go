package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nikahfirst/internal/audit"
	"nikahfirst/internal/auth"
	"nikahfirst/internal/config"
	"nikahfirst/internal/database"
	"nikahfirst/internal/httpapi"
	"nikahfirst/internal/rbac"
	"nikahfirst/internal/subscription"
	"nikahfirst/internal/testdb"
	"nikahfirst/internal/topup"
	"nikahfirst/internal/users"
	"nikahfirst/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type apiFixture struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	tokens map[string]string
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testdb.Open(t, database.Models()...)
	people := []users.User{
		{ID: "member", Name: "Ayesha", Role: rbac.RoleUser},
		{ID: "agent", Name: "Omar", Role: rbac.RoleSupportAgent},
		{ID: "supervisor", Name: "Hina", Role: rbac.RoleSupervisor},
		{ID: "root", Name: "Zara", Role: rbac.RoleSuperAdmin},
	}
	for _, u := range people {
		require.NoError(t, db.Create(&u).Error)
	}
	require.NoError(t, db.Create(&topup.CreditPackage{
		ID: "pkg-basic", Name: "Basic", Credits: 50, BonusCredits: 10,
		Price: decimal.NewFromInt(500), Currency: "PKR", IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&topup.PaymentMethod{Code: "bank_transfer", Name: "Bank Transfer", IsActive: true}).Error)
	require.NoError(t, db.Create(&users.SubscriptionPlan{
		ID: "p-gold", Slug: "GOLD", Name: "Gold", FreeCredits: 20, WalletLimit: 200, RedeemCredits: 20, RedeemCycleDays: 30, IsActive: true,
	}).Error)

	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTL: time.Hour, RefreshTokenTTL: 24 * time.Hour})
	require.NoError(t, err)

	auditLog := audit.NewGormRepo(db)
	auditSvc := audit.NewService(auditLog)
	h := httpapi.Handlers{
		Auth:         m,
		DB:           db,
		Wallet:       wallet.NewService(db, auditSvc, wallet.Options{DefaultRedeemLimit: 50, MaxGrant: 10000}),
		TopUp:        topup.NewService(db, auditSvc, nil, nil),
		Subscription: subscription.NewService(db, auditSvc),
		AuditLog:     auditLog,
		DevLogin:     true,
	}
	r := gin.New()
	registerRoutes(r, h, auth.RequireAccessToken(m))

	tokens := map[string]string{}
	for _, u := range people {
		pair, err := m.IssuePair(time.Now(), auth.Identity{UserID: u.ID, Role: u.Role, Name: u.Name})
		require.NoError(t, err)
		tokens[u.ID] = pair.AccessToken
	}
	return &apiFixture{t: t, router: r, db: db, tokens: tokens}
}

func (f *apiFixture) do(as, method, path string, body any) (int, map[string]any) {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+f.tokens[as])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func TestAdjustCredits_ScenarioA(t *testing.T) {
	api := newAPI(t)

	code, body := api.do("supervisor", http.MethodPost, "/v1/admin/credits/adjust", gin.H{
		"userId": "member", "walletType": "FUNDING", "newBalance": 100, "reason": "promo",
	})
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	require.EqualValues(t, 0, data["previousBalance"])
	require.EqualValues(t, 100, data["newBalance"])

	code, body = api.do("member", http.MethodGet, "/v1/transactions", nil)
	require.Equal(t, http.StatusOK, code)
	txs := body["transactions"].([]any)
	require.Len(t, txs, 1)
	tx := txs[0].(map[string]any)
	require.Equal(t, "CREDIT", tx["type"])
	require.Contains(t, tx["description"], "promo")
	summary := body["summary"].(map[string]any)
	require.EqualValues(t, 100, summary["fundingBalance"])
}

func TestAdjustCredits_AccessAndValidation(t *testing.T) {
	api := newAPI(t)
	payload := gin.H{"userId": "member", "walletType": "FUNDING", "newBalance": 5}

	code, _ := api.do("", http.MethodPost, "/v1/admin/credits/adjust", payload)
	require.Equal(t, http.StatusUnauthorized, code)
	code, _ = api.do("member", http.MethodPost, "/v1/admin/credits/adjust", payload)
	require.Equal(t, http.StatusForbidden, code)
	code, _ = api.do("agent", http.MethodPost, "/v1/admin/credits/adjust", payload)
	require.Equal(t, http.StatusForbidden, code)

	code, body := api.do("supervisor", http.MethodPost, "/v1/admin/credits/adjust", gin.H{"userId": "member", "walletType": "FUNDING", "newBalance": -1})
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, body["error"], "newBalance must be at least 0")

	code, _ = api.do("supervisor", http.MethodPost, "/v1/admin/credits/adjust", gin.H{"userId": "member", "walletType": "GEMS", "newBalance": 1})
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do("supervisor", http.MethodPost, "/v1/admin/credits/adjust", gin.H{"userId": "nobody", "walletType": "FUNDING", "newBalance": 1})
	require.Equal(t, http.StatusNotFound, code)
}

func TestAddCredits_Bounds(t *testing.T) {
	api := newAPI(t)

	code, body := api.do("supervisor", http.MethodPost, "/v1/admin/credits/add", gin.H{"userId": "member", "amount": 30, "reason": "welcome"})
	require.Equal(t, http.StatusOK, code, body)
	require.EqualValues(t, 30, body["newBalance"])

	code, _ = api.do("supervisor", http.MethodPost, "/v1/admin/credits/add", gin.H{"userId": "member", "amount": 10001})
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = api.do("supervisor", http.MethodPost, "/v1/admin/credits/add", gin.H{"userId": "member", "amount": 0})
	require.Equal(t, http.StatusBadRequest, code)
}

func TestAdjustCredits_IdempotencyKeyReuse(t *testing.T) {
	api := newAPI(t)

	code, body := api.do("supervisor", http.MethodPost, "/v1/admin/credits/add", gin.H{"userId": "member", "amount": 10, "idempotencyKey": "k"})
	require.Equal(t, http.StatusOK, code, body)

	code, body = api.do("supervisor", http.MethodPost, "/v1/admin/credits/add", gin.H{"userId": "member", "amount": 10, "idempotencyKey": "k"})
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, true, body["replayed"])

	code, _ = api.do("supervisor", http.MethodPost, "/v1/admin/credits/adjust", gin.H{
		"userId": "member", "walletType": "REDEEM", "newBalance": 500, "idempotencyKey": "k",
	})
	require.Equal(t, http.StatusConflict, code)

	_, body = api.do("member", http.MethodGet, "/v1/wallet", nil)
	require.Equal(t, false, body["hasRedeem"])
	require.EqualValues(t, 10, body["funding"].(map[string]any)["balance"])
}

func TestTopUpFlow_ScenarioB(t *testing.T) {
	api := newAPI(t)

	code, body := api.do("member", http.MethodPost, "/v1/topup", gin.H{"packageId": "pkg-basic", "paymentMethod": "bank_transfer"})
	require.Equal(t, http.StatusCreated, code, body)
	req := body["request"].(map[string]any)
	id := req["id"].(string)
	require.Regexp(t, `^TXN-\d{4}-00001$`, req["requestNumber"])
	require.NotEmpty(t, body["paymentInstructions"])

	code, _ = api.do("member", http.MethodPost, "/v1/topup", gin.H{"packageId": "pkg-basic", "paymentMethod": "bank_transfer"})
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = api.do("member", http.MethodPost, "/v1/topup", gin.H{"packageId": "nope", "paymentMethod": "bank_transfer"})
	require.Equal(t, http.StatusBadRequest, code)

	code, body = api.do("agent", http.MethodGet, "/v1/admin/topup-requests?status=PENDING", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["requests"].([]any), 1)
	code, _ = api.do("agent", http.MethodPut, "/v1/admin/topup-requests/"+id, gin.H{"action": "approve"})
	require.Equal(t, http.StatusForbidden, code)

	code, body = api.do("supervisor", http.MethodPut, "/v1/admin/topup-requests/"+id, gin.H{"action": "approve"})
	require.Equal(t, http.StatusOK, code, body)
	require.EqualValues(t, 60, body["newBalance"])
	require.Equal(t, "COMPLETED", body["request"].(map[string]any)["status"])

	code, _ = api.do("supervisor", http.MethodPut, "/v1/admin/topup-requests/"+id, gin.H{"action": "reject", "rejectionReason": "late"})
	require.Equal(t, http.StatusBadRequest, code)

	code, body = api.do("member", http.MethodGet, "/v1/wallet", nil)
	require.Equal(t, http.StatusOK, code)
	funding := body["funding"].(map[string]any)
	require.EqualValues(t, 60, funding["balance"])
	require.EqualValues(t, 60, funding["totalPurchased"])
}

func TestTopUpFlow_ScenarioC(t *testing.T) {
	api := newAPI(t)

	_, body := api.do("member", http.MethodPost, "/v1/topup", gin.H{"packageId": "pkg-basic", "paymentMethod": "bank_transfer"})
	id := body["request"].(map[string]any)["id"].(string)

	code, _ := api.do("supervisor", http.MethodPut, "/v1/admin/topup-requests/"+id, gin.H{"action": "reject"})
	require.Equal(t, http.StatusBadRequest, code)

	code, body = api.do("supervisor", http.MethodPut, "/v1/admin/topup-requests/"+id, gin.H{"action": "reject", "rejectionReason": "invalid receipt"})
	require.Equal(t, http.StatusOK, code, body)
	req := body["request"].(map[string]any)
	require.Equal(t, "REJECTED", req["status"])
	require.Equal(t, "invalid receipt", req["rejectionReason"])
	_, hasBalance := body["newBalance"]
	require.False(t, hasBalance)

	_, body = api.do("member", http.MethodGet, "/v1/wallet", nil)
	require.Equal(t, false, body["hasFunding"])
}

func TestDeleteTransaction_SuperAdminOnly(t *testing.T) {
	api := newAPI(t)

	_, body := api.do("supervisor", http.MethodPost, "/v1/admin/credits/add", gin.H{"userId": "member", "amount": 10})
	txID := body["transaction"].(map[string]any)["id"].(string)

	code, _ := api.do("supervisor", http.MethodDelete, "/v1/admin/transactions/"+txID, nil)
	require.Equal(t, http.StatusForbidden, code)

	code, body = api.do("root", http.MethodDelete, "/v1/admin/transactions/"+txID, nil)
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, txID, body["deletedTransaction"].(map[string]any)["id"])

	code, _ = api.do("root", http.MethodDelete, "/v1/admin/transactions/"+txID, nil)
	require.Equal(t, http.StatusNotFound, code)

	code, body = api.do("root", http.MethodGet, "/v1/admin/users/member/audit-events", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["events"].([]any), 2)
}

func TestChangeSubscription_ScenarioD(t *testing.T) {
	api := newAPI(t)

	code, body := api.do("supervisor", http.MethodPut, "/v1/admin/users/member/subscription", gin.H{"planSlug": "GOLD"})
	require.Equal(t, http.StatusOK, code, body)

	code, body = api.do("agent", http.MethodGet, "/v1/admin/users/member/wallets", nil)
	require.Equal(t, http.StatusOK, code)
	redeem := body["redeem"].(map[string]any)
	require.EqualValues(t, 20, redeem["balance"])
	require.EqualValues(t, 200, redeem["limit"])
	require.EqualValues(t, 30, redeem["redeemCycleDays"])

	code, _ = api.do("supervisor", http.MethodPut, "/v1/admin/users/member/subscription", gin.H{"planSlug": "DIAMOND"})
	require.Equal(t, http.StatusNotFound, code)
}

func TestDevLoginAndMe(t *testing.T) {
	api := newAPI(t)

	code, body := api.do("", http.MethodPost, "/v1/auth/token", gin.H{"userId": "supervisor"})
	require.Equal(t, http.StatusOK, code)
	api.tokens["fresh"] = body["accessToken"].(string)

	code, body = api.do("fresh", http.MethodGet, "/v1/me", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "SUPERVISOR", body["role"])
	require.Equal(t, "Hina", body["name"])

	code, _ = api.do("", http.MethodPost, "/v1/auth/token", gin.H{"userId": "stranger"})
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestRefreshToken_RotatesAndRereadsRole(t *testing.T) {
	api := newAPI(t)

	_, body := api.do("", http.MethodPost, "/v1/auth/token", gin.H{"userId": "supervisor"})
	refresh := body["refreshToken"].(string)
	require.NotEmpty(t, body["expiresAt"])

	// An access token is not accepted as a refresh token.
	code, _ := api.do("", http.MethodPost, "/v1/auth/refresh", gin.H{"refreshToken": body["accessToken"]})
	require.Equal(t, http.StatusUnauthorized, code)
	code, _ = api.do("", http.MethodPost, "/v1/auth/refresh", gin.H{"refreshToken": "garbage"})
	require.Equal(t, http.StatusUnauthorized, code)
	code, _ = api.do("", http.MethodPost, "/v1/auth/refresh", gin.H{})
	require.Equal(t, http.StatusBadRequest, code)

	require.NoError(t, api.db.Model(&users.User{}).Where("id = ?", "supervisor").Update("role", rbac.RoleUser).Error)

	code, body = api.do("", http.MethodPost, "/v1/auth/refresh", gin.H{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, code, body)
	require.NotEqual(t, refresh, body["refreshToken"])
	api.tokens["demoted"] = body["accessToken"].(string)

	code, body = api.do("demoted", http.MethodGet, "/v1/me", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, rbac.RoleUser, body["role"])
	code, _ = api.do("demoted", http.MethodGet, "/v1/admin/topup-requests", nil)
	require.Equal(t, http.StatusForbidden, code)

	require.NoError(t, api.db.Where("id = ?", "supervisor").Delete(&users.User{}).Error)
	code, _ = api.do("", http.MethodPost, "/v1/auth/refresh", gin.H{"refreshToken": refresh})
	require.Equal(t, http.StatusUnauthorized, code)
}
