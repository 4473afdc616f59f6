package httpapi

import (
	"net/http"

	"nikahfirst/internal/topup"
	"nikahfirst/pkg/validation"

	"github.com/gin-gonic/gin"
)

// --- Top-up ---

type createTopUpRequest struct {
	PackageID     string `json:"packageId" binding:"required"`
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

type reviewTopUpRequest struct {
	Action          string `json:"action" binding:"required,oneof=approve reject"`
	AdminNotes      string `json:"adminNotes" binding:"max=1000"`
	RejectionReason string `json:"rejectionReason" binding:"max=1000"`
}

type topUpListQuery struct {
	Status string `form:"status"`
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
}

func (h Handlers) TopUpPackages(c *gin.Context) {
	pkgs, err := h.TopUp.Packages(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	methods, err := h.TopUp.PaymentMethods(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": pkgs, "paymentMethods": methods})
}

// MyTopUps lists the caller's top-up requests.
func (h Handlers) MyTopUps(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	reqs, err := h.TopUp.ListForUser(c.Request.Context(), a.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// CreateTopUp opens a PENDING request and returns how to pay for it.
func (h Handlers) CreateTopUp(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req createTopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Message(err))
		return
	}
	res, err := h.TopUp.Create(c.Request.Context(), a.UserID, topup.CreateRequest{
		PackageID:     req.PackageID,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListTopUpRequests is the reviewer queue.
func (h Handlers) ListTopUpRequests(c *gin.Context) {
	var q topUpListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, validation.Message(err))
		return
	}
	page, err := h.TopUp.List(c.Request.Context(), topup.ListQuery{
		Status: topup.Status(q.Status),
		Page:   q.Page,
		Limit:  q.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h Handlers) GetTopUpRequest(c *gin.Context) {
	r, err := h.TopUp.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": r})
}

// ReviewTopUpRequest approves or rejects a PENDING request.
func (h Handlers) ReviewTopUpRequest(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req reviewTopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Message(err))
		return
	}
	res, err := h.TopUp.Review(c.Request.Context(), a, c.Param("id"), topup.ReviewRequest{
		Action:          topup.ReviewAction(req.Action),
		AdminNotes:      req.AdminNotes,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	body := gin.H{"request": res.Request}
	if res.NewBalance != nil {
		body["message"] = "Top-up approved"
		body["newBalance"] = *res.NewBalance
	} else {
		body["message"] = "Top-up rejected"
	}
	c.JSON(http.StatusOK, body)
}
