// Package routes defines the API routing configuration.
// It builds the repositories and services, mounts the HTTP handlers and
// hands back the background workers for the caller to run.
package routes

import (
	"context"
	"log"
	"time"

	"digipay/internal/config"
	"digipay/internal/handlers"
	"digipay/internal/metrics"
	"digipay/internal/middleware"
	"digipay/internal/repositories"
	"digipay/internal/repositories/cache"
	"digipay/internal/services/commission"
	"digipay/internal/services/gateway"
	"digipay/internal/services/payment"
	"digipay/internal/services/settlement"
	"digipay/internal/services/webhook"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Workers are the long-running loops that back the HTTP surface.
type Workers struct {
	Settlements *settlement.Worker
	Webhooks    *webhook.RetryWorker
}

// Run starts both workers and blocks until ctx is cancelled.
func (w Workers) Run(ctx context.Context) {
	done := make(chan struct{}, 2)
	go func() { w.Settlements.Run(ctx); done <- struct{}{} }()
	go func() { w.Webhooks.Run(ctx); done <- struct{}{} }()
	<-done
	<-done
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, settings config.Settings) Workers {
	collector := metrics.NewPrometheusCollector()

	// Initialize repositories
	merchantRepo := repositories.NewMerchantRepository(db)
	var tierCache *cache.CacheService
	if rdb != nil {
		tierCache = cache.NewCacheService(rdb, 10*time.Minute)
	}
	tierRepo := repositories.NewCachedTierRepository(repositories.NewCommissionTierRepository(db), tierCache)
	transactionRepo := repositories.NewTransactionRepository(db)
	settlementRepo := repositories.NewSettlementRepository(db)
	webhookRepo := repositories.NewWebhookRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)

	mode := gateway.ModeLive
	if settings.Gateway.TestMode {
		mode = gateway.ModeSandbox
		log.Println("🧪 PAYMENT_TEST_MODE enabled: FreemoPay calls are simulated")
	}
	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:   settings.Gateway.BaseURL,
		AppKey:    settings.Gateway.AppKey,
		SecretKey: settings.Gateway.SecretKey,
		Mode:      mode,
		Timeout:   settings.Gateway.Timeout,
	}, nil, collector)

	// Initialize services in correct order
	webhookService := webhook.NewService(webhookRepo, webhook.Config{
		DefaultSecret:  settings.Webhook.DefaultSecret,
		Timeout:        settings.Webhook.Timeout,
		RetryBaseDelay: settings.Webhook.RetryBaseDelay,
		MaxAttempts:    settings.Webhook.MaxAttempts,
		RetryInterval:  settings.Webhook.RetryInterval,
	}, nil, collector)

	commissionService := commission.NewService(merchantRepo, tierRepo)

	paymentService := payment.NewService(
		merchantRepo,
		transactionRepo,
		commissionService,
		gatewayClient,
		webhookService,
		collector,
		payment.Config{CallbackURL: settings.Gateway.CallbackURL},
	)

	queue := settlementQueue(rdb, settings.Settlement)
	settlementService := settlement.NewService(
		merchantRepo,
		transactionRepo,
		settlementRepo,
		gatewayClient,
		webhookService,
		queue,
		collector,
		settlement.Config{
			CallbackURL:   settings.Gateway.CallbackURL,
			MinimumAmount: settings.Settlement.MinimumAmount,
			LinkLimit:     settings.Settlement.LinkLimit,
		},
	)

	// Initialize handlers
	auth := middleware.NewAPIKeyAuth(apiKeyRepo)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	settlementHandler := handlers.NewSettlementHandler(settlementService)
	subscriptionHandler := handlers.NewSubscriptionHandler(webhookService)
	gatewayWebhookHandler := handlers.NewGatewayWebhookHandler(
		paymentService,
		settlementService,
		settings.Gateway.WebhookSecret,
		mode == gateway.ModeLive,
	)
	healthHandler := handlers.NewHealthHandler(healthChecks(db, rdb), string(mode))

	// Public routes
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Gateway callbacks authenticate by signature, not API key
	hooks := api.Group("/webhooks")
	hooks.Post("/freemopay", gatewayWebhookHandler.PaymentCallback)
	hooks.Post("/freemopay/settlement", gatewayWebhookHandler.SettlementCallback)
	hooks.Post("/subscriptions", auth.Handler, subscriptionHandler.Create)

	payments := api.Group("/payments", auth.Handler)
	payments.Post("/initiate", paymentHandler.Initiate)
	payments.Get("/analytics", paymentHandler.Analytics)
	payments.Get("/transactions", paymentHandler.ListTransactions)
	payments.Get("/transactions/:transactionId", paymentHandler.GetTransaction)

	settlements := api.Group("/settlements", auth.Handler)
	settlements.Post("/request", settlementHandler.Request)
	settlements.Get("/balance", settlementHandler.Balance)
	settlements.Get("/", settlementHandler.List)

	return Workers{
		Settlements: settlement.NewWorker(settlementService, queue, settlement.WorkerConfig{
			Backoff:       settings.Settlement.WorkerBackoff,
			MaxAttempts:   settings.Settlement.WorkerAttempts,
			SweepInterval: settings.Settlement.SweepInterval,
			StaleAfter:    settings.Settlement.StaleAfter,
		}),
		Webhooks: webhook.NewRetryWorker(webhookService),
	}
}

// settlementQueue picks the job queue. The in-process queue loses pending
// jobs on restart, leaving them to the stale sweep, and only suits
// single-instance development setups.
func settlementQueue(rdb *redis.Client, cfg config.SettlementSettings) settlement.Queue {
	if cfg.Queue == "memory" || rdb == nil {
		log.Println("⚠️ Using in-memory settlement queue")
		return settlement.NewChannelQueue(1024, 5*time.Second)
	}
	log.Printf("✅ Settlement queue on redis key %s", cfg.QueueKey)
	return settlement.NewRedisQueue(cache.NewQueue(rdb, cfg.QueueKey, 5*time.Second))
}

func healthChecks(db *gorm.DB, rdb *redis.Client) map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			return cache.HealthCheck(ctx, rdb)
		}
	}
	return checks
}
