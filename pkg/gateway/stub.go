package gateway

import (
	"context"
	"fmt"
	"sync"
)

// Stub is an in-memory gateway for development and tests. Charges and
// transfers succeed unless programmed otherwise.
type Stub struct {
	mu        sync.Mutex
	nextID    int64
	charges   map[string]*ChargeStatus   // by gateway id
	byRef     map[string]string          // tx_ref -> gateway id
	transfers map[string]*TransferStatus // by our reference

	// FailTransfers makes InitiateTransfer report FAILED.
	FailTransfers bool
	// TransferErr, VerifyErr are returned verbatim when set (e.g. ErrGatewayUnavailable).
	TransferErr error
	VerifyErr   error
}

func NewStub() *Stub {
	return &Stub{
		nextID:    1000,
		charges:   make(map[string]*ChargeStatus),
		byRef:     make(map[string]string),
		transfers: make(map[string]*TransferStatus),
	}
}

func (s *Stub) id() string {
	s.nextID++
	return fmt.Sprintf("%d", s.nextID)
}

func (s *Stub) InitializeCharge(ctx context.Context, req ChargeRequest) (*ChargeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.charges[id] = &ChargeStatus{
		GatewayID:   id,
		Reference:   req.Reference,
		Status:      ChargeSuccessful,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
	}
	s.byRef[req.Reference] = id
	return &ChargeSession{
		Reference:   req.Reference,
		CheckoutURL: "https://checkout.stub.local/" + id,
	}, nil
}

// SetCharge overrides the recorded outcome of a charge, keyed by tx_ref.
func (s *Stub) SetCharge(reference, status string, amountMinor int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byRef[reference]
	if !ok {
		id = s.id()
		s.byRef[reference] = id
	}
	s.charges[id] = &ChargeStatus{
		GatewayID:   id,
		Reference:   reference,
		Status:      status,
		AmountMinor: amountMinor,
		Currency:    "NGN",
	}
	return id
}

func (s *Stub) VerifyCharge(ctx context.Context, gatewayID string) (*ChargeStatus, error) {
	if s.VerifyErr != nil {
		return nil, s.VerifyErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charges[gatewayID]
	if !ok {
		return nil, fmt.Errorf("stub: unknown charge %s", gatewayID)
	}
	cp := *c
	return &cp, nil
}

func (s *Stub) VerifyChargeByReference(ctx context.Context, reference string) (*ChargeStatus, error) {
	if s.VerifyErr != nil {
		return nil, s.VerifyErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byRef[reference]
	if !ok {
		return nil, fmt.Errorf("stub: unknown reference %s", reference)
	}
	cp := *s.charges[id]
	return &cp, nil
}

func (s *Stub) InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferStatus, error) {
	if s.TransferErr != nil {
		return nil, s.TransferErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	status := TransferSuccessful
	if s.FailTransfers {
		status = TransferFailed
	}
	t := &TransferStatus{GatewayID: s.id(), Status: status}
	s.transfers[req.Reference] = t
	cp := *t
	return &cp, nil
}

// SetTransfer programs a transfer outcome by reference, for sweep tests.
func (s *Stub) SetTransfer(reference, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers[reference] = &TransferStatus{GatewayID: s.id(), Status: status}
}

func (s *Stub) FetchTransfer(ctx context.Context, reference string) (*TransferStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[reference]
	if !ok {
		return nil, fmt.Errorf("stub: unknown transfer %s", reference)
	}
	cp := *t
	return &cp, nil
}

func (s *Stub) ListBanks(ctx context.Context) ([]Bank, error) {
	return []Bank{
		{Code: "044", Name: "Access Bank"},
		{Code: "058", Name: "GTBank"},
		{Code: "057", Name: "Zenith Bank"},
	}, nil
}

func (s *Stub) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*Account, error) {
	return &Account{AccountNumber: accountNumber, AccountName: "Stub Account Holder"}, nil
}
