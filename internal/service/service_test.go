package service

import (
	"testing"
	"time"

	"gigpay/config"
	"gigpay/internal/events"
	"gigpay/internal/lock"
	"gigpay/internal/models"
	"gigpay/internal/repository"
	"gigpay/pkg/gateway"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db          *gorm.DB
	stub        *gateway.Stub
	users       *repository.UserRepository
	wallets     *repository.WalletRepository
	payments    *repository.PaymentRepository
	journal     *repository.TransactionRepository
	withdrawals *repository.WithdrawalRepository
	reconciler  *ReconcileService
	payouts     *WithdrawalService
	paymentSvc  *PaymentService
	sweep       *SweepService
}

func testFees() config.FeeConfig {
	return config.FeeConfig{
		PlatformFeeBasisPoints: 1000,
		WithdrawalFeeLowMinor:  1000,
		WithdrawalFeeHighMinor: 5000,
		WithdrawalFeeTierMinor: 500000,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
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

	fees := testFees()
	notifier := NewNotificationService(notifications, events.LogPublisher{})
	reconciler := NewReconcileService(db, payments, wallets, journal, locks, stub, notifier)
	payouts := NewWithdrawalService(db, withdrawals, wallets, journal, locks, stub, fees, notifier)
	paymentSvc := NewPaymentService(payments, users, stub, fees, config.GatewayConfig{RedirectURL: "https://example.test/cb"})
	sweep := NewSweepService(payments, withdrawals, reconciler, payouts, stub, config.SweepConfig{
		Interval:      time.Minute,
		PendingMaxAge: 0,
		BatchSize:     50,
	})

	return &testEnv{
		db:          db,
		stub:        stub,
		users:       users,
		wallets:     wallets,
		payments:    payments,
		journal:     journal,
		withdrawals: withdrawals,
		reconciler:  reconciler,
		payouts:     payouts,
		paymentSvc:  paymentSvc,
		sweep:       sweep,
	}
}

func (e *testEnv) createUser(t *testing.T, email, role string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", Role: role}
	if err := e.users.Create(u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// fund credits available balance directly, standing in for released earnings.
func (e *testEnv) fund(t *testing.T, userID uint, amountMinor int64) {
	t.Helper()
	if _, _, err := e.wallets.ApplyDeltas(userID, amountMinor, 0, 0, 0); err != nil {
		t.Fatalf("fund wallet: %v", err)
	}
}

func (e *testEnv) wallet(t *testing.T, userID uint) *models.Wallet {
	t.Helper()
	w, err := e.wallets.GetOrCreate(userID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	return w
}

func (e *testEnv) journalFor(t *testing.T, userID uint) []models.Transaction {
	t.Helper()
	txs, _, err := e.journal.ListForUser(userID, "", 1, 100)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	return txs
}
