package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"gigpay/config"
	"gigpay/internal/domain"
	"gigpay/internal/events"
	"gigpay/internal/lock"
	"gigpay/internal/models"
	"gigpay/internal/repository"
	"gigpay/internal/service"
	"gigpay/pkg/gateway"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecretHash = "whsec-test"

type webhookEnv struct {
	router      *gin.Engine
	stub        *gateway.Stub
	db          *gorm.DB
	users       *repository.UserRepository
	wallets     *repository.WalletRepository
	payments    *repository.PaymentRepository
	withdrawals *repository.WithdrawalRepository
	paymentSvc  *service.PaymentService
	payouts     *service.WithdrawalService
}

func newWebhookEnv(t *testing.T) *webhookEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.User{}, &models.Wallet{}, &models.Payment{},
		&models.Transaction{}, &models.Withdrawal{}, &models.Notification{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	stub := gateway.NewStub()
	locks := lock.NewKeyed()
	users := repository.NewUserRepository(db)
	wallets := repository.NewWalletRepository(db)
	payments := repository.NewPaymentRepository(db)
	journal := repository.NewTransactionRepository(db)
	withdrawals := repository.NewWithdrawalRepository(db)
	notifications := repository.NewNotificationRepository(db)

	fees := config.FeeConfig{
		PlatformFeeBasisPoints: 1000,
		WithdrawalFeeLowMinor:  1000,
		WithdrawalFeeHighMinor: 5000,
		WithdrawalFeeTierMinor: 500000,
	}
	notifier := service.NewNotificationService(notifications, events.LogPublisher{})
	reconciler := service.NewReconcileService(db, payments, wallets, journal, locks, stub, notifier)
	payouts := service.NewWithdrawalService(db, withdrawals, wallets, journal, locks, stub, fees, notifier)
	paymentSvc := service.NewPaymentService(payments, users, stub, fees, config.GatewayConfig{})

	h := NewWebhookHandler(config.WebhookConfig{SecretHash: testSecretHash}, reconciler, payouts, withdrawals)
	r := gin.New()
	r.POST("/api/v1/webhooks/gateway", h.Handle)

	return &webhookEnv{
		router:      r,
		stub:        stub,
		db:          db,
		users:       users,
		wallets:     wallets,
		payments:    payments,
		withdrawals: withdrawals,
		paymentSvc:  paymentSvc,
		payouts:     payouts,
	}
}

func (e *webhookEnv) post(t *testing.T, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gateway", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("verif-hash", signature)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func chargeEvent(t *testing.T, txRef string, gatewayID int64) []byte {
	t.Helper()
	body, err := json.Marshal(gin.H{
		"event": "charge.completed",
		"data":  gin.H{"id": gatewayID, "tx_ref": txRef, "status": "successful"},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return body
}

// A bad signature is acked with 200 so the provider stops retrying, but the
// event must not reach the ledger.
func TestWebhookBadSignatureAckedWithoutApplying(t *testing.T) {
	e := newWebhookEnv(t)
	client := &models.User{Email: "client@test.local", PasswordHash: "x", Role: domain.RoleClient}
	freelancer := &models.User{Email: "dev@test.local", PasswordHash: "x", Role: domain.RoleFreelancer}
	for _, u := range []*models.User{client, freelancer} {
		if err := e.users.Create(u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	p, _, err := e.paymentSvc.InitializeEscrow(context.Background(), client.ID, "client@test.local", service.EscrowPaymentParams{
		PayeeID:     freelancer.ID,
		AmountMinor: 100000,
		PaymentType: domain.PaymentTypeMilestone,
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	for _, sig := range []string{"wrong-signature", ""} {
		if rec := e.post(t, chargeEvent(t, p.Reference, 1), sig); rec.Code != http.StatusOK {
			t.Errorf("status = %d with signature %q, want 200", rec.Code, sig)
		}
	}

	got, err := e.payments.GetByReference(p.Reference)
	if err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if got.Status != domain.PaymentStatusPending {
		t.Errorf("payment status = %q after unsigned events, want pending", got.Status)
	}
	if _, err := e.wallets.GetByUserID(freelancer.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("payee wallet created from an unsigned event (err = %v)", err)
	}
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	e := newWebhookEnv(t)
	if rec := e.post(t, []byte("{not json"), testSecretHash); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d for malformed body, want 400", rec.Code)
	}
}

func TestWebhookChargeCompletedHoldsEscrow(t *testing.T) {
	e := newWebhookEnv(t)
	client := &models.User{Email: "client@test.local", PasswordHash: "x", Role: domain.RoleClient}
	freelancer := &models.User{Email: "dev@test.local", PasswordHash: "x", Role: domain.RoleFreelancer}
	for _, u := range []*models.User{client, freelancer} {
		if err := e.users.Create(u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	p, _, err := e.paymentSvc.InitializeEscrow(context.Background(), client.ID, "client@test.local", service.EscrowPaymentParams{
		PayeeID:     freelancer.ID,
		AmountMinor: 100000,
		PaymentType: domain.PaymentTypeMilestone,
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	gatewayID := e.stub.SetCharge(p.Reference, gateway.ChargeSuccessful, 100000)
	idNum, err := strconv.ParseInt(gatewayID, 10, 64)
	if err != nil {
		t.Fatalf("parse gateway id %q: %v", gatewayID, err)
	}

	rec := e.post(t, chargeEvent(t, p.Reference, idNum), testSecretHash)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	got, err := e.payments.GetByReference(p.Reference)
	if err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if got.Status != domain.PaymentStatusCompleted || got.EscrowStatus != domain.EscrowStatusHeld {
		t.Errorf("payment = {%s, %s}, want {completed, held}", got.Status, got.EscrowStatus)
	}
	w, err := e.wallets.GetByUserID(freelancer.ID)
	if err != nil {
		t.Fatalf("payee wallet: %v", err)
	}
	if w.EscrowMinor != 90000 {
		t.Errorf("payee escrow = %d, want 90000", w.EscrowMinor)
	}
}

func TestWebhookUnknownReferenceIsAcked(t *testing.T) {
	e := newWebhookEnv(t)
	if rec := e.post(t, chargeEvent(t, "pay-unknown", 7), testSecretHash); rec.Code != http.StatusOK {
		t.Errorf("status = %d for unknown reference, want 200", rec.Code)
	}
}

func TestWebhookIgnoresUnknownEvents(t *testing.T) {
	e := newWebhookEnv(t)
	body, _ := json.Marshal(gin.H{"event": "subscription.cancelled", "data": gin.H{}})
	if rec := e.post(t, body, testSecretHash); rec.Code != http.StatusOK {
		t.Errorf("status = %d for unknown event, want 200", rec.Code)
	}
}

func TestWebhookTransferCompletedSettlesWithdrawal(t *testing.T) {
	e := newWebhookEnv(t)
	u := &models.User{Email: "dev@test.local", PasswordHash: "x", Role: domain.RoleFreelancer}
	if err := e.users.Create(u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, _, err := e.wallets.ApplyDeltas(u.ID, 100000, 0, 0, 0); err != nil {
		t.Fatalf("fund wallet: %v", err)
	}
	wd, err := e.payouts.Request(context.Background(), u.ID, 90000, &models.BankDetails{
		AccountName: "Ada Dev", AccountNumber: "0123456789", BankName: "GTBank", BankCode: "058",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	e.stub.TransferErr = domain.ErrGatewayUnavailable
	if _, err := e.payouts.Process(context.Background(), wd.ID); !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("process err = %v, want ErrGatewayUnavailable", err)
	}
	e.stub.TransferErr = nil
	e.stub.SetTransfer(wd.Reference, gateway.TransferSuccessful)

	body, _ := json.Marshal(gin.H{
		"event": "transfer.completed",
		"data":  gin.H{"reference": wd.Reference, "status": "SUCCESSFUL"},
	})
	if rec := e.post(t, body, testSecretHash); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	got, err := e.withdrawals.GetByID(wd.ID)
	if err != nil {
		t.Fatalf("reload withdrawal: %v", err)
	}
	if got.Status != domain.WithdrawalStatusCompleted {
		t.Errorf("status = %q after webhook, want completed", got.Status)
	}
}
