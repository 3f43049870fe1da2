package handler

import (
	"net/http"
	"strconv"

	"gigpay/internal/domain"
	"gigpay/internal/middleware"
	"gigpay/internal/repository"
	"gigpay/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	payments    *service.PaymentService
	reconciler  *service.ReconcileService
	paymentRepo *repository.PaymentRepository
}

func NewPaymentHandler(payments *service.PaymentService, reconciler *service.ReconcileService, paymentRepo *repository.PaymentRepository) *PaymentHandler {
	return &PaymentHandler{payments: payments, reconciler: reconciler, paymentRepo: paymentRepo}
}

// Initialize opens a checkout session for a milestone or full project payment.
func (h *PaymentHandler) Initialize(c *gin.Context) {
	var req struct {
		PayeeID      uint   `json:"payee_id" binding:"required"`
		AmountMinor  int64  `json:"amount_minor" binding:"required,min=1"`
		PaymentType  string `json:"payment_type" binding:"required"`
		ProjectRef   string `json:"project_ref"`
		MilestoneRef string `json:"milestone_ref"`
		Description  string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, session, err := h.payments.InitializeEscrow(c.Request.Context(), middleware.GetUserID(c), middleware.GetEmail(c), service.EscrowPaymentParams{
		PayeeID:      req.PayeeID,
		AmountMinor:  req.AmountMinor,
		PaymentType:  req.PaymentType,
		ProjectRef:   req.ProjectRef,
		MilestoneRef: req.MilestoneRef,
		Description:  req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"payment":      p,
		"checkout_url": session.CheckoutURL,
	})
}

// InitializeJobVerification opens a checkout for the flat job verification fee.
func (h *PaymentHandler) InitializeJobVerification(c *gin.Context) {
	var req struct {
		AmountMinor int64  `json:"amount_minor" binding:"required,min=1"`
		JobRef      string `json:"job_ref" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, session, err := h.payments.InitializeJobVerification(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetEmail(c), req.AmountMinor, req.JobRef, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"payment":      p,
		"checkout_url": session.CheckoutURL,
	})
}

// Verify confirms a charge after the checkout redirect. The gateway is always
// re-queried; the caller's claim alone never completes a payment.
func (h *PaymentHandler) Verify(c *gin.Context) {
	reference := c.Param("reference")
	gatewayID := c.Query("transaction_id")

	var p interface{}
	var err error
	if gatewayID != "" {
		p, err = h.reconciler.VerifyWithGateway(c.Request.Context(), reference, gatewayID)
	} else {
		p, err = h.reconciler.VerifyByReference(c.Request.Context(), reference)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": p})
}

// Release moves held funds to the freelancer's available balance.
func (h *PaymentHandler) Release(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}
	p, err := h.reconciler.ReleaseEscrow(c.Request.Context(), uint(id), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": p})
}

// Refund returns held funds to the client.
func (h *PaymentHandler) Refund(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	p, err := h.reconciler.RefundEscrow(c.Request.Context(), uint(id), middleware.GetUserID(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": p})
}

// Get returns one payment; only its payer, payee or an admin may see it.
func (h *PaymentHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}
	p, err := h.paymentRepo.GetByID(uint(id))
	if err != nil {
		writeError(c, err)
		return
	}
	userID := middleware.GetUserID(c)
	role, _ := c.Get("role")
	if p.PayerID != userID && p.PayeeID != userID && role != domain.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": p})
}

// List returns the caller's payment history, paginated.
func (h *PaymentHandler) List(c *gin.Context) {
	page, limit := pagination(c)
	payments, total, err := h.paymentRepo.ListForUser(
		middleware.GetUserID(c), c.Query("status"), c.Query("payment_type"), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// ListAll is the admin view across all users.
func (h *PaymentHandler) ListAll(c *gin.Context) {
	page, limit := pagination(c)
	payments, total, err := h.paymentRepo.ListAll(c.Query("status"), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
