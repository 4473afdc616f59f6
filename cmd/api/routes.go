package main

import (
	"net/http"

	"nikahfirst/internal/httpapi"
	"nikahfirst/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/v1/auth/token", h.IssueToken)
	r.POST("/v1/auth/refresh", h.RefreshToken)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", h.Me)

		// member routes
		v1.GET("/wallet", h.MyWallets)
		v1.GET("/transactions", h.ListTransactions)
		v1.GET("/topup/packages", h.TopUpPackages)
		v1.GET("/topup", h.MyTopUps)
		v1.POST("/topup", h.CreateTopUp)

		// ADMIN routes
		// Staff only; each route then asks the policy for its own permission.
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(
			rbac.RoleSupportAgent,
			rbac.RoleContentEditor,
			rbac.RoleConsultant,
			rbac.RoleSupervisor,
		))
		{
			admin.POST("/credits/adjust", rbac.RequirePermission(rbac.PermCreditsAdjust), h.AdjustCredits)
			admin.POST("/credits/add", rbac.RequirePermission(rbac.PermCreditsGrant), h.AddCredits)

			admin.GET("/users/:id/wallets", rbac.RequirePermission(rbac.PermWalletsView), h.UserWallets)
			admin.GET("/users/:id/audit-events", rbac.RequirePermission(rbac.PermAuditView), h.UserAuditEvents)
			admin.PUT("/users/:id/subscription", rbac.RequirePermission(rbac.PermSubscriptionAssign), h.ChangeSubscription)

			admin.GET("/topup-requests", rbac.RequirePermission(rbac.PermTopUpList), h.ListTopUpRequests)
			admin.GET("/topup-requests/:id", rbac.RequirePermission(rbac.PermTopUpList), h.GetTopUpRequest)
			admin.PUT("/topup-requests/:id", rbac.RequirePermission(rbac.PermTopUpReview), h.ReviewTopUpRequest)

			admin.DELETE("/transactions/:id", rbac.RequirePermission(rbac.PermTransactionsDelete), h.DeleteTransaction)
		}
	}
}
