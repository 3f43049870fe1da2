package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gigpay/internal/domain"
	"gigpay/internal/models"
	"gigpay/pkg/gateway"
)

var testBank = models.BankDetails{
	AccountName:   "Ada Dev",
	AccountNumber: "0123456789",
	BankName:      "GTBank",
	BankCode:      "058",
}

func TestWithdrawalFeeTiers(t *testing.T) {
	e := newTestEnv(t)
	cases := []struct {
		amount int64
		want   int64
	}{
		{2000, 1000},
		{499999, 1000},
		{500000, 5000},
		{1000000, 5000},
	}
	for _, tc := range cases {
		if got := e.payouts.Fee(tc.amount); got != tc.want {
			t.Errorf("Fee(%d) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestRequestReservesFunds(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "dev@test.local", domain.RoleFreelancer)
	e.fund(t, u.ID, 100000)

	w, err := e.payouts.Request(context.Background(), u.ID, 90000, &testBank)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if w.Status != domain.WithdrawalStatusPending {
		t.Errorf("status = %q, want pending", w.Status)
	}
	if w.ProcessingFeeMinor != 1000 || w.NetAmountMinor != 89000 {
		t.Errorf("fee/net = %d/%d, want 1000/89000", w.ProcessingFeeMinor, w.NetAmountMinor)
	}
	if wallet := e.wallet(t, u.ID); wallet.BalanceMinor != 10000 {
		t.Errorf("balance = %d after reservation, want 10000", wallet.BalanceMinor)
	}

	// The reservation itself is journaled with the balances observed during
	// the debit.
	txs := e.journalFor(t, u.ID)
	if len(txs) != 1 {
		t.Fatalf("journal has %d rows after request, want 1", len(txs))
	}
	tx := txs[0]
	if tx.Type != domain.TransactionWithdrawal || tx.AmountMinor != -90000 {
		t.Errorf("journal row = {%s, %d}, want {withdrawal, -90000}", tx.Type, tx.AmountMinor)
	}
	if tx.BalanceBeforeMinor != 100000 || tx.BalanceAfterMinor != 10000 {
		t.Errorf("balances = {%d, %d}, want {100000, 10000}", tx.BalanceBeforeMinor, tx.BalanceAfterMinor)
	}
	if tx.WithdrawalID == nil || *tx.WithdrawalID != w.ID {
		t.Error("journal row not linked to the withdrawal")
	}
}

func TestRequestInsufficientFunds(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "dev@test.local", domain.RoleFreelancer)
	e.fund(t, u.ID, 50000)

	_, err := e.payouts.Request(context.Background(), u.ID, 80000, &testBank)
	var funds *domain.InsufficientFundsError
	if !errors.As(err, &funds) {
		t.Fatalf("err = %v, want InsufficientFundsError", err)
	}
	if funds.ShortfallMinor() != 30000 {
		t.Errorf("shortfall = %d, want 30000", funds.ShortfallMinor())
	}
	if wallet := e.wallet(t, u.ID); wallet.BalanceMinor != 50000 {
		t.Errorf("balance = %d after rejected request, want 50000", wallet.BalanceMinor)
	}
}

func TestRequestEscrowedFundsNotWithdrawable(t *testing.T) {
	e := newTestEnv(t)
	client := e.createUser(t, "client@test.local", domain.RoleClient)
	freelancer := e.createUser(t, "dev@test.local", domain.RoleFreelancer)
	ref := initEscrowPayment(t, e, client.ID, freelancer.ID, 100000)
	if _, err := e.reconciler.VerifyByReference(context.Background(), ref); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// Balance is 90000 but all of it sits in escrow.
	_, err := e.payouts.Request(context.Background(), freelancer.ID, 50000, &testBank)
	var funds *domain.InsufficientFundsError
	if !errors.As(err, &funds) {
		t.Fatalf("err = %v, want InsufficientFundsError", err)
	}
	if funds.AvailableMinor != 0 {
		t.Errorf("available = %d, want 0", funds.AvailableMinor)
	}
}

func TestRequestRequiresBankDetails(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "dev@test.local", domain.RoleFreelancer)
	e.fund(t, u.ID, 100000)

	if _, err := e.payouts.Request(context.Background(), u.ID, 50000, nil); !errors.Is(err, domain.ErrBankDetailsRequired) {
		t.Errorf("err = %v, want ErrBankDetailsRequired", err)
	}

	// Saved wallet details are used when the request carries none.
	if _, err := e.wallets.SaveBankDetails(u.ID, testBank); err != nil {
		t.Fatalf("save bank details: %v", err)
	}
	if _, err := e.payouts.Request(context.Background(), u.ID, 50000, nil); err != nil {
		t.Errorf("request with saved details: %v", err)
	}
}

func TestRequestRejectsAmountBelowFee(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "dev@test.local", domain.RoleFreelancer)
	e.fund(t, u.ID, 100000)

	if _, err := e.payouts.Request(context.Background(), u.ID, 1000, &testBank); err == nil {
		t.Error("request equal to the fee was accepted")
	}
	if _, err := e.payouts.Request(context.Background(), u.ID, -5, &testBank); err == nil {
		t.Error("negative request was accepted")
	}
}

func TestConcurrentRequestsExactlyOneSucceeds(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "dev@test.local", domain.RoleFreelancer)
	e.fund(t, u.ID, 100000)

	var wg sync.WaitGroup
	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.payouts.Request(context.Background(), u.ID, 80000, &testBank)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, failed int
	for err := range results {
		if err == nil {
			ok++
		} else {
			failed++
		}
	}
	if ok != 1 || failed != 4 {
		t.Errorf("got %d successes and %d failures, want 1 and 4", ok, failed)
	}
	if wallet := e.wallet(t, u.ID); wallet.BalanceMinor != 20000 {
		t.Errorf("balance = %d, want 20000", wallet.BalanceMinor)
	}
}

func TestProcessCompletesAndJournals(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "dev@test.local", domain.RoleFreelancer)
	e.fund(t, u.ID, 100000)
	w, err := e.payouts.Request(context.Background(), u.ID, 90000, &testBank)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	got, err := e.payouts.Process(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got.Status != domain.WithdrawalStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}

	txs := e.journalFor(t, u.ID)
	if len(txs) != 1 {
		t.Fatalf("journal has %d rows, want 1", len(txs))
	}
	tx := txs[0]
	if tx.Type != domain.TransactionWithdrawal || tx.AmountMinor != -90000 {
		t.Errorf("journal row = {%s, %d}, want {withdrawal, -90000}", tx.Type, tx.AmountMinor)
	}
	if tx.BalanceBeforeMinor != 100000 || tx.BalanceAfterMinor != 10000 {
		t.Errorf("balances = {%d, %d}, want {100000, 10000}", tx.BalanceBeforeMinor, tx.BalanceAfterMinor)
	}

	// Replaying process on a settled withdrawal is rejected, not re-paid.
	var transition *domain.InvalidStateTransitionError
	if _, err := e.payouts.Process(context.Background(), w.ID); !errors.As(err, &transition) {
		t.Errorf("second process err = %v, want InvalidStateTransitionError", err)
	}
}

func TestProcessFailureRefundsReservation(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "dev@test.local", domain.RoleFreelancer)
	e.fund(t, u.ID, 100000)
	w, err := e.payouts.Request(context.Background(), u.ID, 90000, &testBank)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	e.stub.FailTransfers = true
	got, err := e.payouts.Process(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got.Status != domain.WithdrawalStatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.FailureReason == "" {
		t.Error("failure reason not recorded")
	}
	if wallet := e.wallet(t, u.ID); wallet.BalanceMinor != 100000 {
		t.Errorf("balance = %d after compensation, want 100000", wallet.BalanceMinor)
	}

	// Reservation and compensation both appear, each with observed balances.
	txs := e.journalFor(t, u.ID)
	if len(txs) != 2 {
		t.Fatalf("journal has %d rows for a failed withdrawal, want 2", len(txs))
	}
	byType := map[string]models.Transaction{}
	for _, tx := range txs {
		byType[tx.Type] = tx
	}
	res, ok := byType[domain.TransactionWithdrawal]
	if !ok || res.AmountMinor != -90000 || res.BalanceBeforeMinor != 100000 || res.BalanceAfterMinor != 10000 {
		t.Errorf("reservation row = %+v, want -90000 moving 100000 to 10000", res)
	}
	ref, ok := byType[domain.TransactionRefund]
	if !ok || ref.AmountMinor != 90000 || ref.BalanceBeforeMinor != 10000 || ref.BalanceAfterMinor != 100000 {
		t.Errorf("refund row = %+v, want 90000 moving 10000 to 100000", ref)
	}
}

func TestProcessTimeoutLeavesProcessing(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "dev@test.local", domain.RoleFreelancer)
	e.fund(t, u.ID, 100000)
	w, err := e.payouts.Request(context.Background(), u.ID, 90000, &testBank)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	e.stub.TransferErr = domain.ErrGatewayUnavailable
	got, err := e.payouts.Process(context.Background(), w.ID)
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
	if got.Status != domain.WithdrawalStatusProcessing {
		t.Errorf("status = %q after timeout, want processing", got.Status)
	}
	// No compensation: the transfer may still have gone through.
	if wallet := e.wallet(t, u.ID); wallet.BalanceMinor != 10000 {
		t.Errorf("balance = %d, want 10000 (still reserved)", wallet.BalanceMinor)
	}
}

func TestSweepSettlesInFlightWithdrawal(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "dev@test.local", domain.RoleFreelancer)
	e.fund(t, u.ID, 100000)
	w, err := e.payouts.Request(context.Background(), u.ID, 90000, &testBank)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	e.stub.TransferErr = domain.ErrGatewayUnavailable
	if _, err := e.payouts.Process(context.Background(), w.ID); !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("process err = %v, want ErrGatewayUnavailable", err)
	}

	// The transfer actually succeeded provider-side; the sweep finds out.
	e.stub.TransferErr = nil
	e.stub.SetTransfer(w.Reference, gateway.TransferSuccessful)
	e.sweep.SweepOnce(context.Background())

	got, err := e.withdrawals.GetByID(w.ID)
	if err != nil {
		t.Fatalf("reload withdrawal: %v", err)
	}
	if got.Status != domain.WithdrawalStatusCompleted {
		t.Errorf("status = %q after sweep, want completed", got.Status)
	}
	if txs := e.journalFor(t, u.ID); len(txs) != 1 {
		t.Errorf("journal has %d rows, want 1", len(txs))
	}
}

// Full lifecycle: charge held, released, withdrawn, settled. Money is
// conserved at every step.
func TestEscrowToWithdrawalLifecycle(t *testing.T) {
	e := newTestEnv(t)
	client := e.createUser(t, "client@test.local", domain.RoleClient)
	freelancer := e.createUser(t, "dev@test.local", domain.RoleFreelancer)

	ref := initEscrowPayment(t, e, client.ID, freelancer.ID, 100000)
	p, err := e.reconciler.VerifyByReference(context.Background(), ref)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if w := e.wallet(t, freelancer.ID); w.BalanceMinor != 90000 || w.EscrowMinor != 90000 {
		t.Fatalf("after hold: {balance %d, escrow %d}, want {90000, 90000}", w.BalanceMinor, w.EscrowMinor)
	}

	if _, err := e.reconciler.ReleaseEscrow(context.Background(), p.ID, client.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if w := e.wallet(t, freelancer.ID); w.AvailableMinor() != 90000 || w.TotalEarningsMinor != 90000 {
		t.Fatalf("after release: available %d, earnings %d, want 90000 each", w.AvailableMinor(), w.TotalEarningsMinor)
	}

	wd, err := e.payouts.Request(context.Background(), freelancer.ID, 90000, &testBank)
	if err != nil {
		t.Fatalf("request withdrawal: %v", err)
	}
	if w := e.wallet(t, freelancer.ID); w.BalanceMinor != 0 {
		t.Fatalf("after reservation: balance %d, want 0", w.BalanceMinor)
	}

	done, err := e.payouts.Process(context.Background(), wd.ID)
	if err != nil {
		t.Fatalf("process withdrawal: %v", err)
	}
	if done.Status != domain.WithdrawalStatusCompleted || done.NetAmountMinor != 89000 {
		t.Fatalf("processed = {%s, net %d}, want {completed, 89000}", done.Status, done.NetAmountMinor)
	}

	txs := e.journalFor(t, freelancer.ID)
	if len(txs) != 3 {
		t.Fatalf("journal has %d rows, want 3 (received, released, withdrawal)", len(txs))
	}
	counts := map[string]int{}
	for _, tx := range txs {
		counts[tx.Type]++
	}
	if counts[domain.TransactionPaymentReceived] != 2 || counts[domain.TransactionWithdrawal] != 1 {
		t.Errorf("journal types = %v, want 2 payment_received and 1 withdrawal", counts)
	}
}
