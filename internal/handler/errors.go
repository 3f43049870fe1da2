package handler

import (
	"errors"
	"net/http"

	"gigpay/internal/domain"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// writeError maps ledger errors to HTTP responses so every handler reports
// the same shape for the same failure.
func writeError(c *gin.Context, err error) {
	var transition *domain.InvalidStateTransitionError
	var mismatch *domain.AmountMismatchError
	var funds *domain.InsufficientFundsError

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrNotPayer):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrBankDetailsRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable, try again shortly"})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": transition.Error()})
	case errors.As(err, &mismatch):
		c.JSON(http.StatusConflict, gin.H{
			"error":          mismatch.Error(),
			"expected_minor": mismatch.ExpectedMinor,
			"received_minor": mismatch.ReceivedMinor,
		})
	case errors.As(err, &funds):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":           funds.Error(),
			"shortfall_minor": funds.ShortfallMinor(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
