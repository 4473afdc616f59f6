package httpapi

import (
	"errors"
	"net/http"

	"nikahfirst/internal/subscription"
	"nikahfirst/internal/topup"
	"nikahfirst/internal/wallet"
	"nikahfirst/pkg/logger"

	"github.com/gin-gonic/gin"
)

// statusFor maps service sentinels to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, wallet.ErrInvalidArgument),
		errors.Is(err, topup.ErrInvalidArgument),
		errors.Is(err, topup.ErrInvalidState),
		errors.Is(err, topup.ErrPendingExists),
		errors.Is(err, subscription.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrNotFound),
		errors.Is(err, topup.ErrNotFound),
		errors.Is(err, subscription.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, wallet.ErrConflict),
		errors.Is(err, topup.ErrConflict),
		errors.Is(err, topup.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "err", err)
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
