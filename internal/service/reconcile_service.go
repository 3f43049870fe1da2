package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gigpay/internal/domain"
	"gigpay/internal/escrow"
	"gigpay/internal/lock"
	"gigpay/internal/models"
	"gigpay/internal/repository"
	"gigpay/pkg/gateway"

	"gorm.io/gorm"
)

// ReconcileService is the single entry point for every escrow state change.
// Client-polled verification, the webhook receiver, the admin surface and the
// sweep all funnel through it, so the check-then-act sequence runs exactly
// once per payment no matter how many triggers race.
type ReconcileService struct {
	db       *gorm.DB
	payments *repository.PaymentRepository
	wallets  *repository.WalletRepository
	journal  *repository.TransactionRepository
	locks    *lock.Keyed
	gw       gateway.Gateway
	notifier *NotificationService
}

func NewReconcileService(
	db *gorm.DB,
	payments *repository.PaymentRepository,
	wallets *repository.WalletRepository,
	journal *repository.TransactionRepository,
	locks *lock.Keyed,
	gw gateway.Gateway,
	notifier *NotificationService,
) *ReconcileService {
	return &ReconcileService{
		db:       db,
		payments: payments,
		wallets:  wallets,
		journal:  journal,
		locks:    locks,
		gw:       gw,
		notifier: notifier,
	}
}

func paymentKey(id uint) string    { return fmt.Sprintf("payment:%d", id) }
func walletKey(userID uint) string { return fmt.Sprintf("wallet:%d", userID) }

// VerifyWithGateway re-checks a charge with the gateway before applying it.
// Both the user-polled verification call and the webhook use this: the
// inbound claim is never trusted on its own.
func (s *ReconcileService) VerifyWithGateway(ctx context.Context, reference, gatewayID string) (*models.Payment, error) {
	status, err := s.gw.VerifyCharge(ctx, gatewayID)
	if err != nil {
		return nil, err
	}
	if status.Reference != "" && status.Reference != reference {
		return nil, fmt.Errorf("gateway returned reference %s, expected %s", status.Reference, reference)
	}
	return s.ApplyGatewayEvent(ctx, reference, status.Status, status.AmountMinor, status.GatewayID)
}

// VerifyByReference re-checks a charge by our own reference. Used when the
// caller has no gateway transaction id, such as a redirect landing without
// query parameters or the sweep.
func (s *ReconcileService) VerifyByReference(ctx context.Context, reference string) (*models.Payment, error) {
	status, err := s.gw.VerifyChargeByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.ApplyGatewayEvent(ctx, reference, status.Status, status.AmountMinor, status.GatewayID)
}

// ApplyGatewayEvent applies a gateway charge outcome to the ledger. It is
// idempotent: replaying a completed charge returns the payment unchanged and
// writes nothing. An under-paid charge fails with AmountMismatch and the
// payment stays pending for manual review.
func (s *ReconcileService) ApplyGatewayEvent(ctx context.Context, reference, gatewayStatus string, gatewayAmountMinor int64, gatewayID string) (*models.Payment, error) {
	p, err := s.payments.GetByReference(reference)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(paymentKey(p.ID))
	defer unlock()

	// Reload under the lock: a racing trigger may have won the guard already.
	p, err = s.payments.GetByID(p.ID)
	if err != nil {
		return nil, err
	}

	switch gatewayStatus {
	case gateway.ChargeSuccessful:
	case gateway.ChargeFailed:
		return s.markFailed(ctx, p, gatewayID)
	default:
		// Still in flight at the gateway; nothing to apply yet.
		return p, nil
	}

	effect, err := escrow.ConfirmCharge(p, gatewayAmountMinor, time.Now())
	if err != nil {
		var mismatch *domain.AmountMismatchError
		if errors.As(err, &mismatch) {
			log.Printf("[Reconcile] amount mismatch on %s: %v", reference, err)
		}
		return nil, err
	}
	if effect.NoOp {
		return p, nil
	}
	if gatewayID != "" {
		p.GatewayRef = gatewayID
	}

	if effect.JobVerified {
		if err := s.payments.Update(p); err != nil {
			return nil, err
		}
		log.Printf("[Reconcile] payment %s completed (job verification)", p.Reference)
		s.notifier.JobVerified(ctx, p)
		return p, nil
	}

	unlockWallets := s.lockWallets(p.PayerID, p.PayeeID)
	defer unlockWallets()

	if err := s.checkEscrowInvariant(p.PayeeID); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		payments := s.payments.WithTx(tx)
		wallets := s.wallets.WithTx(tx)
		journal := s.journal.WithTx(tx)

		if err := payments.Update(p); err != nil {
			return err
		}
		payerBefore, payerAfter, err := wallets.ApplyDeltas(p.PayerID, 0, 0, 0, effect.PayerSpentDelta)
		if err != nil {
			return err
		}
		payeeBefore, payeeAfter, err := wallets.ApplyDeltas(p.PayeeID, effect.PayeeBalanceDelta, effect.PayeeEscrowDelta, 0, 0)
		if err != nil {
			return err
		}
		if err := journal.Create(&models.Transaction{
			UserID:             p.PayerID,
			Type:               domain.TransactionPaymentSent,
			AmountMinor:        -p.AmountMinor,
			Currency:           p.Currency,
			Status:             domain.TransactionStatusCompleted,
			BalanceBeforeMinor: payerBefore.BalanceMinor,
			BalanceAfterMinor:  payerAfter.BalanceMinor,
			PaymentID:          &p.ID,
			Description:        "Payment sent, held in escrow",
		}); err != nil {
			return err
		}
		return journal.Create(&models.Transaction{
			UserID:             p.PayeeID,
			Type:               domain.TransactionPaymentReceived,
			AmountMinor:        p.NetAmountMinor,
			Currency:           p.Currency,
			Status:             domain.TransactionStatusCompleted,
			BalanceBeforeMinor: payeeBefore.BalanceMinor,
			BalanceAfterMinor:  payeeAfter.BalanceMinor,
			PaymentID:          &p.ID,
			Description:        "Payment received, held in escrow",
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Reconcile] payment %s completed, %d held in escrow for user %d", p.Reference, p.NetAmountMinor, p.PayeeID)
	s.notifier.PaymentHeld(ctx, p)
	return p, nil
}

// ReleaseEscrow moves held funds to the payee's available balance. Only the
// payer may call it.
func (s *ReconcileService) ReleaseEscrow(ctx context.Context, paymentID, requesterID uint) (*models.Payment, error) {
	unlock := s.locks.Lock(paymentKey(paymentID))
	defer unlock()

	p, err := s.payments.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	effect, err := escrow.Release(p, requesterID, time.Now())
	if err != nil {
		return nil, err
	}

	unlockWallet := s.locks.Lock(walletKey(p.PayeeID))
	defer unlockWallet()

	if err := s.checkEscrowInvariant(p.PayeeID); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.payments.WithTx(tx).Update(p); err != nil {
			return err
		}
		before, after, err := s.wallets.WithTx(tx).ApplyDeltas(p.PayeeID, 0, effect.PayeeEscrowDelta, effect.PayeeEarningsDelta, 0)
		if err != nil {
			return err
		}
		return s.journal.WithTx(tx).Create(&models.Transaction{
			UserID:             p.PayeeID,
			Type:               domain.TransactionPaymentReceived,
			AmountMinor:        p.NetAmountMinor,
			Currency:           p.Currency,
			Status:             domain.TransactionStatusCompleted,
			BalanceBeforeMinor: before.BalanceMinor,
			BalanceAfterMinor:  after.BalanceMinor,
			PaymentID:          &p.ID,
			Description:        "Escrow released",
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Reconcile] escrow released on %s, %d now available for user %d", p.Reference, p.NetAmountMinor, p.PayeeID)
	s.notifier.EscrowReleased(ctx, p)
	return p, nil
}

// RefundEscrow returns held funds to the payer. Only the payer may call it.
func (s *ReconcileService) RefundEscrow(ctx context.Context, paymentID, requesterID uint, reason string) (*models.Payment, error) {
	unlock := s.locks.Lock(paymentKey(paymentID))
	defer unlock()

	p, err := s.payments.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	effect, err := escrow.Refund(p, requesterID, time.Now())
	if err != nil {
		return nil, err
	}

	unlockWallets := s.lockWallets(p.PayerID, p.PayeeID)
	defer unlockWallets()

	if err := s.checkEscrowInvariant(p.PayeeID); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.payments.WithTx(tx).Update(p); err != nil {
			return err
		}
		if _, _, err := s.wallets.WithTx(tx).ApplyDeltas(p.PayeeID, effect.PayeeBalanceDelta, effect.PayeeEscrowDelta, 0, 0); err != nil {
			return err
		}
		payer, err := s.wallets.WithTx(tx).GetOrCreate(p.PayerID)
		if err != nil {
			return err
		}
		desc := "Refund for payment"
		if reason != "" {
			desc = "Refund: " + reason
		}
		return s.journal.WithTx(tx).Create(&models.Transaction{
			UserID:             p.PayerID,
			Type:               domain.TransactionRefund,
			AmountMinor:        p.AmountMinor,
			Currency:           p.Currency,
			Status:             domain.TransactionStatusCompleted,
			BalanceBeforeMinor: payer.BalanceMinor,
			BalanceAfterMinor:  payer.BalanceMinor,
			PaymentID:          &p.ID,
			Description:        desc,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Reconcile] payment %s refunded to user %d", p.Reference, p.PayerID)
	s.notifier.EscrowRefunded(ctx, p)
	return p, nil
}

func (s *ReconcileService) markFailed(ctx context.Context, p *models.Payment, gatewayID string) (*models.Payment, error) {
	effect, err := escrow.MarkFailed(p)
	if err != nil {
		return nil, err
	}
	if effect.NoOp {
		return p, nil
	}
	if gatewayID != "" {
		p.GatewayRef = gatewayID
	}
	if err := s.payments.Update(p); err != nil {
		return nil, err
	}
	log.Printf("[Reconcile] payment %s marked failed", p.Reference)
	s.notifier.PaymentFailed(ctx, p)
	return p, nil
}

// lockWallets acquires both wallet locks in ascending user id order so every
// writer uses the same acquisition order.
func (s *ReconcileService) lockWallets(a, b uint) func() {
	if a == b {
		return s.locks.Lock(walletKey(a))
	}
	if a > b {
		a, b = b, a
	}
	unlockA := s.locks.Lock(walletKey(a))
	unlockB := s.locks.Lock(walletKey(b))
	return func() {
		unlockB()
		unlockA()
	}
}

// checkEscrowInvariant verifies that the payee's escrow balance equals the
// sum of net amounts across their held payments. A mismatch means the ledger
// is corrupt; the mutation that found it must halt rather than fix forward.
func (s *ReconcileService) checkEscrowInvariant(payeeID uint) error {
	held, err := s.payments.SumHeldNetForPayee(payeeID)
	if err != nil {
		return err
	}
	var escrowMinor int64
	w, err := s.wallets.GetByUserID(payeeID)
	switch {
	case err == nil:
		escrowMinor = w.EscrowMinor
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No wallet yet: nothing can be held.
	default:
		return err
	}
	if escrowMinor != held {
		log.Printf("[Reconcile] invariant violation for user %d: wallet escrow %d, held payments %d", payeeID, escrowMinor, held)
		return fmt.Errorf("%w: user %d wallet escrow %d, held payments total %d",
			domain.ErrWalletInconsistent, payeeID, escrowMinor, held)
	}
	return nil
}
