package handler

import (
	"net/http"

	"gigpay/pkg/gateway"

	"github.com/gin-gonic/gin"
)

type BankHandler struct {
	gw gateway.Gateway
}

func NewBankHandler(gw gateway.Gateway) *BankHandler {
	return &BankHandler{gw: gw}
}

// ListBanks returns the supported payout banks.
func (h *BankHandler) ListBanks(c *gin.Context) {
	banks, err := h.gw.ListBanks(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"banks": banks})
}

// ResolveAccount verifies an account number against a bank before the user
// saves it as a payout destination.
func (h *BankHandler) ResolveAccount(c *gin.Context) {
	var req struct {
		AccountNumber string `json:"account_number" binding:"required"`
		BankCode      string `json:"bank_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := h.gw.ResolveAccount(c.Request.Context(), req.AccountNumber, req.BankCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}
