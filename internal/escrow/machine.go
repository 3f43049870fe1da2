package escrow

import (
	"time"

	"gigpay/internal/domain"
	"gigpay/internal/models"
)

// Effect is the wallet side of a state transition. The machine mutates the
// payment in place and hands the caller the deltas to apply; it never touches
// storage itself.
type Effect struct {
	// NoOp marks an idempotent replay: the payment was already in the target
	// state and nothing must be written.
	NoOp bool

	PayeeBalanceDelta  int64
	PayeeEscrowDelta   int64
	PayeeEarningsDelta int64
	PayerSpentDelta    int64

	// JobVerified is set for job_verification charges, which complete the
	// payment without any wallet movement. The job collaborator owns the flag.
	JobVerified bool
}

// ConfirmCharge applies a successful gateway charge to a pending payment.
// Replaying a completed charge is a no-op, not an error. A gateway amount
// below the recorded amount fails with AmountMismatch and leaves the payment
// pending.
func ConfirmCharge(p *models.Payment, gatewayAmountMinor int64, now time.Time) (Effect, error) {
	switch p.Status {
	case domain.PaymentStatusCompleted, domain.PaymentStatusRefunded:
		return Effect{NoOp: true}, nil
	case domain.PaymentStatusPending:
	default:
		return Effect{}, &domain.InvalidStateTransitionError{
			Entity:    "payment",
			Current:   p.Status,
			Attempted: domain.PaymentStatusCompleted,
		}
	}
	if p.EscrowStatus != domain.EscrowStatusNone {
		return Effect{}, &domain.InvalidStateTransitionError{
			Entity:    "escrow",
			Current:   p.EscrowStatus,
			Attempted: domain.EscrowStatusHeld,
		}
	}
	if gatewayAmountMinor < p.AmountMinor {
		return Effect{}, &domain.AmountMismatchError{
			ExpectedMinor: p.AmountMinor,
			ReceivedMinor: gatewayAmountMinor,
		}
	}

	p.Status = domain.PaymentStatusCompleted
	p.PaidAt = &now

	if !p.Escrowed() {
		return Effect{JobVerified: true}, nil
	}

	p.EscrowStatus = domain.EscrowStatusHeld
	return Effect{
		PayeeBalanceDelta: p.NetAmountMinor,
		PayeeEscrowDelta:  p.NetAmountMinor,
		PayerSpentDelta:   p.AmountMinor,
	}, nil
}

// Release moves held funds from escrow to the payee's available balance.
// Only the payer may release; the payment must be held.
func Release(p *models.Payment, callerID uint, now time.Time) (Effect, error) {
	if callerID != p.PayerID {
		return Effect{}, domain.ErrNotPayer
	}
	if p.EscrowStatus != domain.EscrowStatusHeld {
		return Effect{}, &domain.InvalidStateTransitionError{
			Entity:    "escrow",
			Current:   p.EscrowStatus,
			Attempted: domain.EscrowStatusReleased,
		}
	}

	p.EscrowStatus = domain.EscrowStatusReleased
	p.ReleasedAt = &now
	return Effect{
		PayeeEscrowDelta:   -p.NetAmountMinor,
		PayeeEarningsDelta: p.NetAmountMinor,
	}, nil
}

// Refund returns held funds to the payer. Only the payer may refund; the
// payment must be held.
func Refund(p *models.Payment, callerID uint, now time.Time) (Effect, error) {
	if callerID != p.PayerID {
		return Effect{}, domain.ErrNotPayer
	}
	if p.EscrowStatus != domain.EscrowStatusHeld {
		return Effect{}, &domain.InvalidStateTransitionError{
			Entity:    "escrow",
			Current:   p.EscrowStatus,
			Attempted: domain.EscrowStatusRefunded,
		}
	}

	p.Status = domain.PaymentStatusRefunded
	p.EscrowStatus = domain.EscrowStatusRefunded
	p.RefundedAt = &now
	return Effect{
		PayeeBalanceDelta: -p.NetAmountMinor,
		PayeeEscrowDelta:  -p.NetAmountMinor,
	}, nil
}

// MarkFailed records a definitive gateway failure. Legal from pending only;
// terminal states are left untouched and reported as no-ops.
func MarkFailed(p *models.Payment) (Effect, error) {
	switch p.Status {
	case domain.PaymentStatusFailed:
		return Effect{NoOp: true}, nil
	case domain.PaymentStatusPending:
		p.Status = domain.PaymentStatusFailed
		return Effect{}, nil
	default:
		return Effect{}, &domain.InvalidStateTransitionError{
			Entity:    "payment",
			Current:   p.Status,
			Attempted: domain.PaymentStatusFailed,
		}
	}
}
