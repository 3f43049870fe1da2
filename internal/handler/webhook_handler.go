package handler

import (
	"crypto/hmac"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"gigpay/config"
	"gigpay/internal/repository"
	"gigpay/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GatewayEvent is the provider's webhook envelope. Only the event name and
// the identifying references are read; amounts and statuses in the payload
// are advisory and every outcome is re-verified against the gateway.
type GatewayEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		TxRef     string `json:"tx_ref"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

type WebhookHandler struct {
	cfg            config.WebhookConfig
	reconciler     *service.ReconcileService
	payouts        *service.WithdrawalService
	withdrawalRepo *repository.WithdrawalRepository
}

func NewWebhookHandler(cfg config.WebhookConfig, reconciler *service.ReconcileService, payouts *service.WithdrawalService, withdrawalRepo *repository.WithdrawalRepository) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, reconciler: reconciler, payouts: payouts, withdrawalRepo: withdrawalRepo}
}

// Handle receives provider callbacks. Everything parseable is acked with 200,
// including events with a bad signature or an unknown reference, so the
// provider stops retrying; only malformed JSON is rejected. A bad signature is
// logged and the event is dropped without being applied.
func (h *WebhookHandler) Handle(c *gin.Context) {
	if h.cfg.SecretHash != "" {
		sig := c.GetHeader("verif-hash")
		if !hmac.Equal([]byte(sig), []byte(h.cfg.SecretHash)) {
			log.Printf("[Webhook] dropped: bad signature from %s", c.ClientIP())
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	var event GatewayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	switch event.Event {
	case "charge.completed":
		h.handleCharge(c, &event)
	case "transfer.completed":
		h.handleTransfer(c, &event)
	default:
		log.Printf("[Webhook] ignoring event %q", event.Event)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) handleCharge(c *gin.Context, event *GatewayEvent) {
	if event.Data.TxRef == "" {
		log.Printf("[Webhook] charge.completed without tx_ref")
		return
	}
	gatewayID := ""
	if event.Data.ID != 0 {
		gatewayID = strconv.FormatInt(event.Data.ID, 10)
	}
	var err error
	if gatewayID != "" {
		_, err = h.reconciler.VerifyWithGateway(c.Request.Context(), event.Data.TxRef, gatewayID)
	} else {
		_, err = h.reconciler.VerifyByReference(c.Request.Context(), event.Data.TxRef)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[Webhook] reconcile %s: %v", event.Data.TxRef, err)
	}
}

func (h *WebhookHandler) handleTransfer(c *gin.Context, event *GatewayEvent) {
	ref := event.Data.Reference
	if ref == "" {
		log.Printf("[Webhook] transfer.completed without reference")
		return
	}
	w, err := h.withdrawalRepo.GetByReference(ref)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Webhook] lookup withdrawal %s: %v", ref, err)
		}
		return
	}
	if _, err := h.payouts.Reconcile(c.Request.Context(), w.ID); err != nil {
		log.Printf("[Webhook] settle withdrawal %s: %v", ref, err)
	}
}
