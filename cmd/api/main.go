package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/sheets/v4"

	"github.com/atelielash/agenda-api/internal/api/router"
	"github.com/atelielash/agenda-api/internal/availability"
	"github.com/atelielash/agenda-api/internal/booking"
	appconfig "github.com/atelielash/agenda-api/internal/config"
	"github.com/atelielash/agenda-api/internal/events"
	"github.com/atelielash/agenda-api/internal/ledger"
	"github.com/atelielash/agenda-api/internal/mercadopago"
	"github.com/atelielash/agenda-api/internal/notify"
	"github.com/atelielash/agenda-api/internal/observability/metrics"
	"github.com/atelielash/agenda-api/internal/payments"
	"github.com/atelielash/agenda-api/internal/retry"
	"github.com/atelielash/agenda-api/pkg/logging"
)

func main() {
	// .env is a local-dev convenience; deployed environments set real vars
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting agenda-api",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	durations, err := booking.ParseDurations(cfg.ServiceDurations)
	if err != nil {
		logger.Error("invalid SERVICE_DURATIONS", "error", err)
		os.Exit(1)
	}

	provider := mercadopago.NewClient(cfg.MPAccessToken, logger).WithBaseURL(cfg.MPBaseURL)

	var slots availability.Store
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("redis unreachable", "error", err, "addr", cfg.RedisAddr)
			os.Exit(1)
		}
		slots = availability.NewRedisStore(redisClient, 0, logger)
		logger.Info("availability store: redis", "addr", cfg.RedisAddr)
	} else {
		slots = availability.NewMemoryStore()
		logger.Warn("availability store: in-memory, holds are lost on restart")
	}

	var (
		intents   payments.IntentStore
		processed payments.ProcessedTracker
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("postgres pool creation failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
		intents = payments.NewRepository(pool)
		processed = events.NewProcessedStore(pool)
		logger.Info("payment stores: postgres")
	} else {
		intents = payments.NewMemoryRepository()
		processed = events.NewMemoryProcessedStore()
		logger.Warn("payment stores: in-memory, idempotency is lost on restart")
	}

	var sink ledger.Sink
	if cfg.SheetsWebAppURL != "" {
		sink = ledger.NewAppsScriptSink(cfg.SheetsWebAppURL, logger)
		logger.Info("ledger sink: apps script web app")
	} else {
		sheetsService, err := sheets.NewService(ctx)
		if err != nil {
			logger.Error("sheets client creation failed", "error", err)
			os.Exit(1)
		}
		sink = ledger.NewSheetsSink(sheetsService, cfg.SheetsSpreadsheetID, cfg.SheetsRange, logger)
		logger.Info("ledger sink: sheets api", "spreadsheet_id", cfg.SheetsSpreadsheetID)
	}

	var email notify.EmailSender
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		email = sender
	}

	paymentMetrics := metrics.NewPaymentMetrics(nil)
	retryPolicy := retry.Policy{MaxAttempts: cfg.RetryMaxAttempts, BaseDelay: cfg.RetryBaseDelay}

	checkout := payments.NewCheckoutHandler(slots, intents, provider, durations, payments.CheckoutConfig{
		DepositFraction: cfg.DepositFraction,
		SuccessURL:      cfg.SuccessURL,
		FailureURL:      cfg.FailureURL,
		NotificationURL: cfg.NotificationURL,
	}, paymentMetrics, logger)

	webhook := payments.NewWebhookHandler(provider, processed, sink, slots, intents, durations,
		payments.WebhookConfig{
			WhatsAppNumber: cfg.WhatsAppNumber,
			StaffEmail:     cfg.StaffEmail,
			Retry:          retryPolicy,
		}, email, paymentMetrics, logger)

	status := payments.NewStatusHandler(intents, provider, logger)
	slotsHandler := availability.NewHandler(slots, durations, cfg.OpeningHour, cfg.ClosingHour, logger)

	r := router.New(router.Config{
		Checkout:           checkout,
		Status:             status,
		Webhook:            webhook,
		Slots:              slotsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
