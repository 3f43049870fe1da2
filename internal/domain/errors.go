package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrGatewayUnavailable marks a network or timeout failure talking to the
	// payment provider. The payment/withdrawal stays in-flight; the sweep retries.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrSignatureInvalid is returned when a webhook signature does not match
	// the configured secret.
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrWalletInconsistent is returned when the escrow-sum invariant check
	// fails. The mutation that detected it must not proceed.
	ErrWalletInconsistent = errors.New("wallet escrow balance inconsistent with held payments")
)

// InvalidStateTransitionError reports a guard failure on the escrow state
// machine, carrying the current and attempted state.
type InvalidStateTransitionError struct {
	Entity    string
	Current   string
	Attempted string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition: %s -> %s", e.Entity, e.Current, e.Attempted)
}

// AmountMismatchError means the gateway reported less money than the payment
// records. Treated as potential fraud; the payment stays pending.
type AmountMismatchError struct {
	ExpectedMinor int64
	ReceivedMinor int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("gateway amount %d below recorded amount %d", e.ReceivedMinor, e.ExpectedMinor)
}

// InsufficientFundsError reports a withdrawal exceeding the available balance.
type InsufficientFundsError struct {
	RequestedMinor int64
	AvailableMinor int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %d, available %d", e.RequestedMinor, e.AvailableMinor)
}

// ShortfallMinor is the amount missing from the wallet.
func (e *InsufficientFundsError) ShortfallMinor() int64 {
	return e.RequestedMinor - e.AvailableMinor
}

// ErrNotPayer guards release/refund: only the paying client may move escrow.
var ErrNotPayer = errors.New("only the payer may release or refund escrow")

// ErrBankDetailsRequired is returned when a withdrawal has no destination
// account, neither in the request nor saved on the wallet.
var ErrBankDetailsRequired = errors.New("bank details required for withdrawal")
