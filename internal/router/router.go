package router

import (
	"time"

	"gigpay/config"
	"gigpay/internal/domain"
	"gigpay/internal/events"
	"gigpay/internal/handler"
	"gigpay/internal/lock"
	"gigpay/internal/middleware"
	"gigpay/internal/repository"
	"gigpay/internal/service"
	"gigpay/pkg/gateway"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps collects the shared infrastructure the router wires into handlers.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Gateway   gateway.Gateway
	Publisher events.Publisher
}

// Setup wires repositories, services and routes. It also returns the sweep
// service so main can run it alongside the HTTP server.
func Setup(d Deps) (*gin.Engine, *service.SweepService) {
	cfg := d.Config
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Repositories
	userRepo := repository.NewUserRepository(d.DB)
	walletRepo := repository.NewWalletRepository(d.DB)
	paymentRepo := repository.NewPaymentRepository(d.DB)
	transactionRepo := repository.NewTransactionRepository(d.DB)
	withdrawalRepo := repository.NewWithdrawalRepository(d.DB)
	notificationRepo := repository.NewNotificationRepository(d.DB)

	locks := lock.NewKeyed()

	// Services
	authSvc := service.NewAuthService(cfg, userRepo)
	notifSvc := service.NewNotificationService(notificationRepo, d.Publisher)
	paymentSvc := service.NewPaymentService(paymentRepo, userRepo, d.Gateway, cfg.Fees, cfg.Gateway)
	reconcileSvc := service.NewReconcileService(d.DB, paymentRepo, walletRepo, transactionRepo, locks, d.Gateway, notifSvc)
	withdrawalSvc := service.NewWithdrawalService(d.DB, withdrawalRepo, walletRepo, transactionRepo, locks, d.Gateway, cfg.Fees, notifSvc)
	sweepSvc := service.NewSweepService(paymentRepo, withdrawalRepo, reconcileSvc, withdrawalSvc, d.Gateway, cfg.Sweep)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, userRepo)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, reconcileSvc, paymentRepo)
	walletHandler := handler.NewWalletHandler(walletRepo, transactionRepo)
	withdrawalHandler := handler.NewWithdrawalHandler(withdrawalSvc, withdrawalRepo)
	webhookHandler := handler.NewWebhookHandler(cfg.Webhook, reconcileSvc, withdrawalSvc, withdrawalRepo)
	bankHandler := handler.NewBankHandler(d.Gateway)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)

	moneyLimiter := middleware.NewSlidingWindowLimiter(30, time.Minute)

	api := r.Group("/api/v1")

	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// Provider callbacks are authenticated by signature, not by bearer token.
	api.POST("/webhooks/gateway", webhookHandler.Handle)

	authed := api.Group("")
	authed.Use(middleware.AuthRequired(&cfg.JWT))
	{
		authed.GET("/auth/me", authHandler.Me)

		payments := authed.Group("/payments")
		payments.POST("/initialize", middleware.RateLimit(moneyLimiter), paymentHandler.Initialize)
		payments.POST("/job-verification", middleware.RateLimit(moneyLimiter), paymentHandler.InitializeJobVerification)
		payments.GET("/verify/:reference", paymentHandler.Verify)
		payments.POST("/:id/release", paymentHandler.Release)
		payments.POST("/:id/refund", paymentHandler.Refund)
		payments.GET("/:id", paymentHandler.Get)
		payments.GET("", paymentHandler.List)

		wallet := authed.Group("/wallet")
		wallet.GET("", walletHandler.Get)
		wallet.GET("/transactions", walletHandler.Transactions)
		wallet.PUT("/bank-details", walletHandler.SaveBankDetails)

		withdrawals := authed.Group("/withdrawals")
		withdrawals.POST("", middleware.RateLimit(moneyLimiter), withdrawalHandler.Request)
		withdrawals.GET("", withdrawalHandler.List)

		authed.GET("/banks", bankHandler.ListBanks)
		authed.POST("/banks/resolve", bankHandler.ResolveAccount)

		authed.GET("/notifications", notificationHandler.List)
		authed.POST("/notifications/:id/read", notificationHandler.MarkRead)

		admin := authed.Group("/admin")
		admin.Use(middleware.RequireRole(domain.RoleAdmin))
		{
			admin.GET("/payments", paymentHandler.ListAll)
			admin.GET("/wallets", walletHandler.ListAll)
			admin.GET("/withdrawals", withdrawalHandler.ListAll)
			admin.POST("/withdrawals/:id/process", withdrawalHandler.Process)
		}
	}

	return r, sweepSvc
}
