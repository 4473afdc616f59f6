package httpapi

import (
	"net/http"
	"strconv"

	"nikahfirst/pkg/validation"

	"github.com/gin-gonic/gin"
)

// --- Admin: users ---

type changeSubscriptionRequest struct {
	PlanSlug string `json:"planSlug" binding:"required"`
}

// ChangeSubscription assigns a plan and syncs the redeem wallet to its tier.
func (h Handlers) ChangeSubscription(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req changeSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Message(err))
		return
	}
	res, err := h.Subscription.Change(c.Request.Context(), a, c.Param("id"), req.PlanSlug)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subscription updated", "data": res})
}

// UserAuditEvents lists privileged actions taken against a user, newest first.
func (h Handlers) UserAuditEvents(c *gin.Context) {
	if h.AuditLog == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit log not configured"})
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			badRequest(c, "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	evs, err := h.AuditLog.ListByTarget(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": evs})
}
