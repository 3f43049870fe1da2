package handler

import (
	"net/http"

	"gigpay/internal/middleware"
	"gigpay/internal/models"
	"gigpay/internal/repository"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	wallets *repository.WalletRepository
	journal *repository.TransactionRepository
}

func NewWalletHandler(wallets *repository.WalletRepository, journal *repository.TransactionRepository) *WalletHandler {
	return &WalletHandler{wallets: wallets, journal: journal}
}

// Get returns the caller's balance view. Available is derived on read.
func (h *WalletHandler) Get(c *gin.Context) {
	w, err := h.wallets.GetOrCreate(middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"wallet":          w,
		"available_minor": w.AvailableMinor(),
	})
}

// Transactions returns the caller's journal entries, newest first.
func (h *WalletHandler) Transactions(c *gin.Context) {
	page, limit := pagination(c)
	txs, total, err := h.journal.ListForUser(middleware.GetUserID(c), c.Query("type"), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"total":        total,
		"page":         page,
		"limit":        limit,
	})
}

// SaveBankDetails stores the payout destination on the wallet.
func (h *WalletHandler) SaveBankDetails(c *gin.Context) {
	var req struct {
		AccountName   string `json:"account_name" binding:"required"`
		AccountNumber string `json:"account_number" binding:"required"`
		BankName      string `json:"bank_name" binding:"required"`
		BankCode      string `json:"bank_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.wallets.SaveBankDetails(middleware.GetUserID(c), models.BankDetails{
		AccountName:   req.AccountName,
		AccountNumber: req.AccountNumber,
		BankName:      req.BankName,
		BankCode:      req.BankCode,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": w})
}

// ListAll is the admin view of every wallet.
func (h *WalletHandler) ListAll(c *gin.Context) {
	page, limit := pagination(c)
	wallets, total, err := h.wallets.ListAll(page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"wallets": wallets,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}
