package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"gigpay/internal/events"
	"gigpay/internal/models"
	"gigpay/internal/repository"
)

// NotificationService persists user-facing notifications and publishes the
// matching relay events. Both are best effort: a failed notification never
// rolls back a committed ledger mutation.
type NotificationService struct {
	repo      *repository.NotificationRepository
	publisher events.Publisher
}

func NewNotificationService(repo *repository.NotificationRepository, publisher events.Publisher) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher}
}

func (s *NotificationService) notify(userID uint, notifType, title, body string, data map[string]interface{}) {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	err := s.repo.Create(&models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	})
	if err != nil {
		log.Printf("[Notify] persist failed for user %d: %v", userID, err)
	}
}

func (s *NotificationService) publish(ctx context.Context, eventType, aggregateType, aggregateID string, data interface{}) {
	ev, err := events.New(eventType, aggregateType, aggregateID, data)
	if err != nil {
		log.Printf("[Notify] event marshal failed: %v", err)
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Printf("[Notify] publish %s failed: %v", eventType, err)
	}
}

func (s *NotificationService) PaymentHeld(ctx context.Context, p *models.Payment) {
	s.publish(ctx, events.EventEscrowHeld, "payment", p.Reference, map[string]interface{}{
		"payment_id":       p.ID,
		"payer_id":         p.PayerID,
		"payee_id":         p.PayeeID,
		"net_amount_minor": p.NetAmountMinor,
	})
	amount := fmt.Sprintf("%s %.2f", p.Currency, float64(p.AmountMinor)/100)
	s.notify(p.PayerID, "payment_sent", "Payment successful",
		"You paid "+amount+"; funds are held in escrow until you release them.",
		map[string]interface{}{"payment_id": p.ID, "reference": p.Reference})
	s.notify(p.PayeeID, "payment_received", "Payment received",
		"A payment of "+amount+" is held in escrow for you.",
		map[string]interface{}{"payment_id": p.ID, "reference": p.Reference})
}

func (s *NotificationService) JobVerified(ctx context.Context, p *models.Payment) {
	s.publish(ctx, events.EventJobVerified, "payment", p.Reference, map[string]interface{}{
		"payment_id": p.ID,
		"job_ref":    p.JobRef,
		"payer_id":   p.PayerID,
	})
	s.notify(p.PayerID, "job_verified", "Job verified",
		"Your job verification payment was confirmed.",
		map[string]interface{}{"payment_id": p.ID, "job_ref": p.JobRef})
}

func (s *NotificationService) PaymentFailed(ctx context.Context, p *models.Payment) {
	s.publish(ctx, events.EventPaymentFailed, "payment", p.Reference, map[string]interface{}{
		"payment_id": p.ID,
		"payer_id":   p.PayerID,
	})
	s.notify(p.PayerID, "payment_failed", "Payment failed",
		"Your payment could not be verified.",
		map[string]interface{}{"payment_id": p.ID, "reference": p.Reference})
}

func (s *NotificationService) EscrowReleased(ctx context.Context, p *models.Payment) {
	s.publish(ctx, events.EventEscrowReleased, "payment", p.Reference, map[string]interface{}{
		"payment_id":       p.ID,
		"payee_id":         p.PayeeID,
		"net_amount_minor": p.NetAmountMinor,
	})
	s.notify(p.PayeeID, "escrow_released", "Funds released",
		"Escrowed funds were released to your available balance.",
		map[string]interface{}{"payment_id": p.ID, "reference": p.Reference})
}

func (s *NotificationService) EscrowRefunded(ctx context.Context, p *models.Payment) {
	s.publish(ctx, events.EventEscrowRefunded, "payment", p.Reference, map[string]interface{}{
		"payment_id": p.ID,
		"payer_id":   p.PayerID,
		"payee_id":   p.PayeeID,
	})
	s.notify(p.PayerID, "refund", "Payment refunded",
		"Your escrowed payment was refunded.",
		map[string]interface{}{"payment_id": p.ID, "reference": p.Reference})
	s.notify(p.PayeeID, "refund", "Escrow refunded",
		"An escrowed payment to you was refunded to the client.",
		map[string]interface{}{"payment_id": p.ID, "reference": p.Reference})
}

func (s *NotificationService) WithdrawalRequested(ctx context.Context, w *models.Withdrawal) {
	s.publish(ctx, events.EventWithdrawalRequested, "withdrawal", w.Reference, map[string]interface{}{
		"withdrawal_id": w.ID,
		"user_id":       w.UserID,
		"amount_minor":  w.AmountMinor,
	})
}

func (s *NotificationService) WithdrawalCompleted(ctx context.Context, w *models.Withdrawal) {
	s.publish(ctx, events.EventWithdrawalCompleted, "withdrawal", w.Reference, map[string]interface{}{
		"withdrawal_id":    w.ID,
		"user_id":          w.UserID,
		"net_amount_minor": w.NetAmountMinor,
	})
	amount := fmt.Sprintf("%s %.2f", w.Currency, float64(w.AmountMinor)/100)
	s.notify(w.UserID, "withdrawal", "Withdrawal processed",
		"Your withdrawal of "+amount+" was sent to your bank account.",
		map[string]interface{}{"withdrawal_id": w.ID, "reference": w.Reference})
}

func (s *NotificationService) WithdrawalFailed(ctx context.Context, w *models.Withdrawal) {
	s.publish(ctx, events.EventWithdrawalFailed, "withdrawal", w.Reference, map[string]interface{}{
		"withdrawal_id": w.ID,
		"user_id":       w.UserID,
	})
	s.notify(w.UserID, "withdrawal", "Withdrawal failed",
		"Your withdrawal could not be completed. The reserved amount was returned to your wallet.",
		map[string]interface{}{"withdrawal_id": w.ID, "reference": w.Reference})
}
