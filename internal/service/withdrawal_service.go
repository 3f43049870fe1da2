package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gigpay/config"
	"gigpay/internal/domain"
	"gigpay/internal/lock"
	"gigpay/internal/models"
	"gigpay/internal/repository"
	"gigpay/pkg/gateway"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WithdrawalService runs the payout workflow. The gross amount is reserved
// from the wallet and journaled the moment the request is accepted; a failed
// transfer puts it back with a compensating refund entry.
type WithdrawalService struct {
	db          *gorm.DB
	withdrawals *repository.WithdrawalRepository
	wallets     *repository.WalletRepository
	journal     *repository.TransactionRepository
	locks       *lock.Keyed
	gw          gateway.Gateway
	fees        config.FeeConfig
	notifier    *NotificationService
}

func NewWithdrawalService(
	db *gorm.DB,
	withdrawals *repository.WithdrawalRepository,
	wallets *repository.WalletRepository,
	journal *repository.TransactionRepository,
	locks *lock.Keyed,
	gw gateway.Gateway,
	fees config.FeeConfig,
	notifier *NotificationService,
) *WithdrawalService {
	return &WithdrawalService{
		db:          db,
		withdrawals: withdrawals,
		wallets:     wallets,
		journal:     journal,
		locks:       locks,
		gw:          gw,
		fees:        fees,
		notifier:    notifier,
	}
}

func withdrawalKey(id uint) string { return fmt.Sprintf("withdrawal:%d", id) }

// Fee returns the flat processing fee for a gross withdrawal amount.
func (s *WithdrawalService) Fee(amountMinor int64) int64 {
	if amountMinor < s.fees.WithdrawalFeeTierMinor {
		return s.fees.WithdrawalFeeLowMinor
	}
	return s.fees.WithdrawalFeeHighMinor
}

// Request validates a withdrawal against the available balance and reserves
// the gross amount. Reservation and the pending row are committed atomically,
// so a crash between them cannot strand reserved funds.
func (s *WithdrawalService) Request(ctx context.Context, userID uint, amountMinor int64, bd *models.BankDetails) (*models.Withdrawal, error) {
	fee := s.Fee(amountMinor)
	if amountMinor <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive")
	}
	if amountMinor <= fee {
		return nil, fmt.Errorf("withdrawal amount %d does not cover the %d processing fee", amountMinor, fee)
	}

	unlock := s.locks.Lock(walletKey(userID))
	defer unlock()

	w, err := s.wallets.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	dest := w.BankDetails
	if bd != nil {
		dest = *bd
	}
	if dest.AccountNumber == "" || dest.BankCode == "" {
		return nil, domain.ErrBankDetailsRequired
	}

	if available := w.AvailableMinor(); amountMinor > available {
		return nil, &domain.InsufficientFundsError{
			RequestedMinor: amountMinor,
			AvailableMinor: available,
		}
	}

	wd := &models.Withdrawal{
		UserID:             userID,
		Reference:          "wd-" + uuid.New().String(),
		AmountMinor:        amountMinor,
		ProcessingFeeMinor: fee,
		NetAmountMinor:     amountMinor - fee,
		Currency:           w.Currency,
		BankDetails:        dest,
		Status:             domain.WithdrawalStatusPending,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.withdrawals.WithTx(tx).Create(wd); err != nil {
			return err
		}
		before, after, err := s.wallets.WithTx(tx).ApplyDeltas(userID, -amountMinor, 0, 0, 0)
		if err != nil {
			return err
		}
		// The journal row records the reservation itself, with the balance
		// pair observed from the debit rather than a reconstruction.
		return s.journal.WithTx(tx).Create(&models.Transaction{
			UserID:             userID,
			Type:               domain.TransactionWithdrawal,
			AmountMinor:        -amountMinor,
			Currency:           w.Currency,
			Status:             domain.TransactionStatusCompleted,
			BalanceBeforeMinor: before.BalanceMinor,
			BalanceAfterMinor:  after.BalanceMinor,
			WithdrawalID:       &wd.ID,
			Description:        "Withdrawal to " + dest.BankName,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Withdrawal] %s requested by user %d: gross %d, fee %d", wd.Reference, userID, amountMinor, fee)
	s.notifier.WithdrawalRequested(ctx, wd)
	return wd, nil
}

// Process initiates the bank transfer for a pending withdrawal. The row moves
// to processing before the gateway call, so a timeout leaves an in-flight
// record the sweep can settle later instead of a double payout.
func (s *WithdrawalService) Process(ctx context.Context, withdrawalID uint) (*models.Withdrawal, error) {
	unlock := s.locks.Lock(withdrawalKey(withdrawalID))
	defer unlock()

	w, err := s.withdrawals.GetByID(withdrawalID)
	if err != nil {
		return nil, err
	}
	if w.Status != domain.WithdrawalStatusPending {
		return w, &domain.InvalidStateTransitionError{
			Entity:    "withdrawal",
			Current:   w.Status,
			Attempted: domain.WithdrawalStatusProcessing,
		}
	}

	w.Status = domain.WithdrawalStatusProcessing
	if err := s.withdrawals.Update(w); err != nil {
		return nil, err
	}

	ts, err := s.gw.InitiateTransfer(ctx, gateway.TransferRequest{
		Reference:     w.Reference,
		AmountMinor:   w.NetAmountMinor,
		Currency:      w.Currency,
		BankCode:      w.BankDetails.BankCode,
		AccountNumber: w.BankDetails.AccountNumber,
		Narration:     "Wallet withdrawal",
	})
	if err != nil {
		if errors.Is(err, domain.ErrGatewayUnavailable) {
			// Outcome unknown. Leave it processing for the sweep.
			log.Printf("[Withdrawal] %s transfer outcome unknown: %v", w.Reference, err)
			return w, err
		}
		return s.fail(ctx, w, err.Error())
	}
	if ts.GatewayID != "" {
		w.GatewayRef = ts.GatewayID
	}
	return s.finalize(ctx, w, ts.Status)
}

// Reconcile settles an in-flight withdrawal from the gateway's transfer
// status. The sweep and the transfer webhook both land here.
func (s *WithdrawalService) Reconcile(ctx context.Context, withdrawalID uint) (*models.Withdrawal, error) {
	unlock := s.locks.Lock(withdrawalKey(withdrawalID))
	defer unlock()

	w, err := s.withdrawals.GetByID(withdrawalID)
	if err != nil {
		return nil, err
	}
	if w.Status != domain.WithdrawalStatusProcessing {
		return w, nil
	}
	ts, err := s.gw.FetchTransfer(ctx, w.Reference)
	if err != nil {
		return w, err
	}
	if ts.GatewayID != "" {
		w.GatewayRef = ts.GatewayID
	}
	return s.finalize(ctx, w, ts.Status)
}

func (s *WithdrawalService) finalize(ctx context.Context, w *models.Withdrawal, transferStatus string) (*models.Withdrawal, error) {
	switch transferStatus {
	case gateway.TransferSuccessful:
		return s.complete(ctx, w)
	case gateway.TransferFailed:
		return s.fail(ctx, w, "transfer failed at gateway")
	default:
		// Still pending at the gateway; persist the gateway ref and wait.
		if err := s.withdrawals.Update(w); err != nil {
			return nil, err
		}
		return w, nil
	}
}

// complete marks the withdrawal paid out. The wallet was already debited and
// journaled when the reservation was taken, so no further ledger entry is due.
func (s *WithdrawalService) complete(ctx context.Context, w *models.Withdrawal) (*models.Withdrawal, error) {
	now := time.Now()
	w.Status = domain.WithdrawalStatusCompleted
	w.CompletedAt = &now
	if err := s.withdrawals.Update(w); err != nil {
		return nil, err
	}

	log.Printf("[Withdrawal] %s completed, %d paid out to user %d", w.Reference, w.NetAmountMinor, w.UserID)
	s.notifier.WithdrawalCompleted(ctx, w)
	return w, nil
}

// fail marks the withdrawal failed and returns the reserved amount to the
// wallet. Returns a nil error: the failure is the withdrawal's terminal state,
// not a fault of the caller.
func (s *WithdrawalService) fail(ctx context.Context, w *models.Withdrawal, reason string) (*models.Withdrawal, error) {
	unlock := s.locks.Lock(walletKey(w.UserID))
	defer unlock()

	w.Status = domain.WithdrawalStatusFailed
	w.FailureReason = reason

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.withdrawals.WithTx(tx).Update(w); err != nil {
			return err
		}
		before, after, err := s.wallets.WithTx(tx).ApplyDeltas(w.UserID, w.AmountMinor, 0, 0, 0)
		if err != nil {
			return err
		}
		return s.journal.WithTx(tx).Create(&models.Transaction{
			UserID:             w.UserID,
			Type:               domain.TransactionRefund,
			AmountMinor:        w.AmountMinor,
			Currency:           w.Currency,
			Status:             domain.TransactionStatusCompleted,
			BalanceBeforeMinor: before.BalanceMinor,
			BalanceAfterMinor:  after.BalanceMinor,
			WithdrawalID:       &w.ID,
			Description:        "Withdrawal failed, reserved amount returned",
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Withdrawal] %s failed (%s), %d returned to user %d", w.Reference, reason, w.AmountMinor, w.UserID)
	s.notifier.WithdrawalFailed(ctx, w)
	return w, nil
}
