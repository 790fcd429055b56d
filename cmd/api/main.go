package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/southerncrossbullion/bullion-backend/api/routes"
	haltsvc "github.com/southerncrossbullion/bullion-backend/internal/halt"
	"github.com/southerncrossbullion/bullion-backend/internal/payment"
	"github.com/southerncrossbullion/bullion-backend/internal/pricelock"
	"github.com/southerncrossbullion/bullion-backend/internal/pricing"
	"github.com/southerncrossbullion/bullion-backend/internal/quotes"
	paymentwebhook "github.com/southerncrossbullion/bullion-backend/internal/webhooks/payment"
	"github.com/southerncrossbullion/bullion-backend/pkg/config"
	"github.com/southerncrossbullion/bullion-backend/pkg/db"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
	"github.com/southerncrossbullion/bullion-backend/pkg/metrics"
	"github.com/southerncrossbullion/bullion-backend/pkg/migrate"
	"github.com/southerncrossbullion/bullion-backend/pkg/outbox"
	"github.com/southerncrossbullion/bullion-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	provider, err := quotes.NewHTTPProvider(cfg.Quotes.BaseURL, cfg.Quotes.APIKey,
		quotes.WithTimeout(cfg.Quotes.RequestTimeout))
	if err != nil {
		logg.Error(context.Background(), "failed to create quote provider", err)
		os.Exit(1)
	}
	fxSource, err := quotes.NewFXSource(provider, decimal.NewFromFloat(cfg.Quotes.FallbackFXRate), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create fx source", err)
		os.Exit(1)
	}
	calculator, err := pricing.NewCalculator(provider, fxSource)
	if err != nil {
		logg.Error(context.Background(), "failed to create price calculator", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	haltMetrics := metrics.NewHaltMetrics(registry)
	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	haltService, err := haltsvc.NewService(dbClient.DB(), events, haltMetrics, logg, cfg.Notify.HaltRecipients...)
	if err != nil {
		logg.Error(context.Background(), "failed to create halt service", err)
		os.Exit(1)
	}
	pricingService, err := pricing.NewService(dbClient.DB(), calculator, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}
	lockService, err := pricelock.NewService(dbClient.DB(), calculator, haltService, events, cfg.Pricing.LockWindow, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create price lock service", err)
		os.Exit(1)
	}
	paymentValidator, err := payment.NewValidator(
		dbClient.DB(),
		haltService,
		fxSource,
		cfg.Pricing.ToleranceFraction,
		cfg.Pricing.ToleranceMinimum,
		haltMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment validator", err)
		os.Exit(1)
	}

	webhookService, err := paymentwebhook.NewService(paymentwebhook.ServiceParams{
		Locks:  lockService,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment webhook service", err)
		os.Exit(1)
	}
	webhookGuard, err := paymentwebhook.NewIdempotencyGuard(redisClient, cfg.Payment.IdempotencyTTL, "payment-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Gatherer:     registry,
			Pricing:      pricingService,
			Locks:        lockService,
			Payments:     paymentValidator,
			Halts:        haltService,
			WebhookSvc:   webhookService,
			WebhookGuard: webhookGuard,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
