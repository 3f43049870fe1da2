package domain

// Payment lifecycle.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Escrow state of a payment. Forward-only: none -> held -> released|refunded.
const (
	EscrowStatusNone     = "none"
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

const (
	PaymentTypeJobVerification = "job_verification"
	PaymentTypeMilestone       = "milestone"
	PaymentTypeFullPayment     = "full_payment"
)

// Transaction journal entry types.
const (
	TransactionPaymentSent     = "payment_sent"
	TransactionPaymentReceived = "payment_received"
	TransactionRefund          = "refund"
	TransactionWithdrawal      = "withdrawal"
)

const (
	TransactionStatusCompleted = "completed"
	TransactionStatusPending   = "pending"
)

const (
	WithdrawalStatusPending    = "pending"
	WithdrawalStatusProcessing = "processing"
	WithdrawalStatusCompleted  = "completed"
	WithdrawalStatusFailed     = "failed"
)

const (
	RoleClient     = "CLIENT"
	RoleFreelancer = "FREELANCER"
	RoleAdmin      = "ADMIN"
)

const DefaultCurrency = "NGN"
