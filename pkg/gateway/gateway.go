package gateway

import "context"

// Normalized charge/transfer states across providers.
const (
	ChargeSuccessful = "successful"
	ChargeFailed     = "failed"
	ChargePending    = "pending"

	TransferSuccessful = "SUCCESSFUL"
	TransferFailed     = "FAILED"
	TransferPending    = "PENDING"
)

type ChargeRequest struct {
	Reference     string // our payment reference, sent as tx_ref
	AmountMinor   int64
	Currency      string
	CustomerEmail string
	RedirectURL   string
	Description   string
	Meta          map[string]string
}

// ChargeSession is a started checkout: the client is redirected to CheckoutURL.
type ChargeSession struct {
	Reference   string
	CheckoutURL string
}

type ChargeStatus struct {
	GatewayID   string // provider-side transaction id
	Reference   string // tx_ref echoed back
	Status      string
	AmountMinor int64
	Currency    string
}

type TransferRequest struct {
	Reference     string
	AmountMinor   int64
	Currency      string
	BankCode      string
	AccountNumber string
	Narration     string
}

type TransferStatus struct {
	GatewayID string
	Status    string
}

type Bank struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Account struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// Gateway is the external payment/transfer provider. Implementations own no
// ledger state; all calls are bounded-timeout network I/O.
type Gateway interface {
	InitializeCharge(ctx context.Context, req ChargeRequest) (*ChargeSession, error)
	VerifyCharge(ctx context.Context, gatewayID string) (*ChargeStatus, error)
	// VerifyChargeByReference looks a charge up by our tx_ref. The sweep uses
	// it for payments that never received a callback carrying a gateway id.
	VerifyChargeByReference(ctx context.Context, reference string) (*ChargeStatus, error)
	InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferStatus, error)
	// FetchTransfer queries a payout by our reference, so an in-flight
	// withdrawal can be settled even when the initiate call timed out before
	// returning a gateway id.
	FetchTransfer(ctx context.Context, reference string) (*TransferStatus, error)
	ListBanks(ctx context.Context) ([]Bank, error)
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*Account, error)
}
