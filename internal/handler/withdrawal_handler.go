package handler

import (
	"net/http"
	"strconv"
	"strings"

	"gigpay/internal/domain"
	"gigpay/internal/middleware"
	"gigpay/internal/models"
	"gigpay/internal/repository"
	"gigpay/internal/service"

	"github.com/gin-gonic/gin"
)

type WithdrawalHandler struct {
	withdrawals    *service.WithdrawalService
	withdrawalRepo *repository.WithdrawalRepository
}

func NewWithdrawalHandler(withdrawals *service.WithdrawalService, withdrawalRepo *repository.WithdrawalRepository) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals, withdrawalRepo: withdrawalRepo}
}

// Request reserves funds and queues a withdrawal. Bank details in the body
// override the wallet's saved destination for this payout only.
func (h *WithdrawalHandler) Request(c *gin.Context) {
	var req struct {
		AmountMinor int64               `json:"amount_minor" binding:"required,min=1"`
		BankDetails *models.BankDetails `json:"bank_details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.withdrawals.Request(c.Request.Context(), middleware.GetUserID(c), req.AmountMinor, req.BankDetails)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"withdrawal": w})
}

// List returns the caller's withdrawal history.
func (h *WithdrawalHandler) List(c *gin.Context) {
	page, limit := pagination(c)
	ws, total, err := h.withdrawalRepo.ListForUser(middleware.GetUserID(c), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"withdrawals": ws,
		"total":       total,
		"page":        page,
		"limit":       limit,
	})
}

// ListAll is the admin queue view, optionally filtered by status.
func (h *WithdrawalHandler) ListAll(c *gin.Context) {
	page, limit := pagination(c)
	var statuses []string
	if q := c.Query("status"); q != "" {
		statuses = strings.Split(q, ",")
	}
	ws, total, err := h.withdrawalRepo.ListByStatus(statuses, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"withdrawals": ws,
		"total":       total,
		"page":        page,
		"limit":       limit,
	})
}

// Process initiates the bank transfer for a pending withdrawal. Admin only.
// A gateway timeout returns 202: the payout is in flight and the sweep will
// settle it.
func (h *WithdrawalHandler) Process(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal id"})
		return
	}
	w, err := h.withdrawals.Process(c.Request.Context(), uint(id))
	if err != nil {
		if w != nil && w.Status == domain.WithdrawalStatusProcessing {
			c.JSON(http.StatusAccepted, gin.H{
				"withdrawal": w,
				"message":    "transfer outcome unknown, reconciliation will settle it",
			})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawal": w})
}
