package httpapi

import (
	"net/http"

	"nikahfirst/internal/wallet"
	"nikahfirst/pkg/validation"

	"github.com/gin-gonic/gin"
)

// --- Wallet ---

type adjustRequest struct {
	UserID         string `json:"userId" binding:"required"`
	WalletType     string `json:"walletType" binding:"required,oneof=FUNDING REDEEM"`
	NewBalance     *int64 `json:"newBalance" binding:"omitempty,gte=0"`
	NewLimit       *int64 `json:"newLimit" binding:"omitempty,gte=0"`
	Reason         string `json:"reason" binding:"max=500"`
	IdempotencyKey string `json:"idempotencyKey" binding:"max=128"`
}

type grantRequest struct {
	UserID         string `json:"userId" binding:"required"`
	Amount         int64  `json:"amount" binding:"required,min=1"`
	Reason         string `json:"reason" binding:"max=500"`
	IdempotencyKey string `json:"idempotencyKey" binding:"max=128"`
}

type transactionsQuery struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1"`
	Type       string `form:"type"`
	WalletType string `form:"walletType"`
}

// MyWallets returns the caller's funding and redeem wallets without creating them.
func (h Handlers) MyWallets(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	snap, err := h.Wallet.GetWallets(c.Request.Context(), a.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// UserWallets returns any user's wallets for staff.
func (h Handlers) UserWallets(c *gin.Context) {
	snap, err := h.Wallet.GetUserWallets(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// AdjustCredits sets a wallet's balance and, for REDEEM, its limit.
func (h Handlers) AdjustCredits(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Message(err))
		return
	}

	res, err := h.Wallet.Adjust(c.Request.Context(), a, wallet.AdjustRequest{
		UserID:         req.UserID,
		WalletType:     wallet.WalletType(req.WalletType),
		NewBalance:     req.NewBalance,
		NewLimit:       req.NewLimit,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	msg := "Wallet updated"
	if res.Replayed {
		msg = "Wallet already updated by this request"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg, "data": res})
}

// AddCredits grants funding credits to a user.
func (h Handlers) AddCredits(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Message(err))
		return
	}

	res, err := h.Wallet.Grant(c.Request.Context(), a, wallet.GrantRequest{
		UserID:         req.UserID,
		Amount:         req.Amount,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Credits added",
		"newBalance":  res.NewBalance,
		"transaction": res.Transaction,
		"replayed":    res.Replayed,
	})
}

// ListTransactions pages through the caller's ledger.
func (h Handlers) ListTransactions(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var q transactionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, validation.Message(err))
		return
	}
	page, err := h.Wallet.ListTransactions(c.Request.Context(), a.UserID, wallet.ListFilter{
		Page:       q.Page,
		Limit:      q.Limit,
		Type:       wallet.TransactionType(q.Type),
		WalletType: wallet.WalletType(q.WalletType),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// DeleteTransaction hard-deletes a ledger row. Balances are not reversed.
func (h Handlers) DeleteTransaction(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	t, err := h.Wallet.DeleteTransaction(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedTransaction": t})
}
