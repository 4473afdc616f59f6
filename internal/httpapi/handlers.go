package httpapi

import (
	"errors"
	"net/http"
	"time"

	"nikahfirst/internal/audit"
	"nikahfirst/internal/auth"
	"nikahfirst/internal/rbac"
	"nikahfirst/internal/subscription"
	"nikahfirst/internal/topup"
	"nikahfirst/internal/users"
	"nikahfirst/internal/wallet"
	"nikahfirst/pkg/validation"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth         *auth.Manager
	DB           *gorm.DB
	Wallet       *wallet.Service
	TopUp        *topup.Service
	Subscription *subscription.Service
	AuditLog     *audit.GormRepo

	// DevLogin enables POST /v1/auth/token, which issues tokens for an existing
	// user id without credentials. Never enabled in production.
	DevLogin bool
}

func init() { validation.UseJSONFieldNames() }

// actor resolves the authenticated caller, or aborts with 401.
func actor(c *gin.Context) (auth.Actor, bool) {
	a, err := auth.ActorFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return auth.Actor{}, false
	}
	a.IP = c.ClientIP()
	return a, true
}

// --- Auth ---

type tokenRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// issueFor signs a fresh pair for userID with role and name read from the user row.
func (h Handlers) issueFor(c *gin.Context, userID string) {
	u, err := users.Find(c.Request.Context(), h.DB, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		writeError(c, err)
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), auth.Identity{UserID: u.ID, Role: u.Role, Name: u.Name})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// IssueToken issues a token pair for an existing user.
//
// NOTE: development helper only. Real credential checks live outside this service.
func (h Handlers) IssueToken(c *gin.Context) {
	if !h.DevLogin || h.Auth == nil || h.DB == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Message(err))
		return
	}
	h.issueFor(c, req.UserID)
}

// RefreshToken trades a valid refresh token for a new pair. The role is re-read
// from the user row, so a demoted admin loses staff access here.
func (h Handlers) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Message(err))
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	h.issueFor(c, claims.UserID)
}

// Me echoes the caller's identity and effective permissions.
func (h Handlers) Me(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":      a.UserID,
		"role":        a.Role,
		"name":        a.Name,
		"permissions": rbac.Permissions(a.Role),
	})
}
