package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/southerncrossbullion/bullion-backend/internal/cron"
	haltsvc "github.com/southerncrossbullion/bullion-backend/internal/halt"
	"github.com/southerncrossbullion/bullion-backend/internal/pricelock"
	"github.com/southerncrossbullion/bullion-backend/internal/pricing"
	"github.com/southerncrossbullion/bullion-backend/internal/quotes"
	"github.com/southerncrossbullion/bullion-backend/pkg/config"
	"github.com/southerncrossbullion/bullion-backend/pkg/db"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
	"github.com/southerncrossbullion/bullion-backend/pkg/metrics"
	"github.com/southerncrossbullion/bullion-backend/pkg/migrate"
	"github.com/southerncrossbullion/bullion-backend/pkg/outbox"
	"github.com/southerncrossbullion/bullion-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	haltMetrics := metrics.NewHaltMetrics(prometheus.DefaultRegisterer)
	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	haltService, err := haltsvc.NewService(dbClient.DB(), events, haltMetrics, logg, cfg.Notify.HaltRecipients...)
	if err != nil {
		logg.Error(context.Background(), "failed to create halt service", err)
		os.Exit(1)
	}
	lockService, err := pricelock.NewService(dbClient.DB(), calculator, haltService, events, cfg.Pricing.LockWindow, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create price lock service", err)
		os.Exit(1)
	}

	haltMonitorJob, err := cron.NewHaltMonitorJob(cron.HaltMonitorJobParams{
		Logger:    logg,
		Provider:  provider,
		Snapshots: quotes.NewSnapshotRepository(dbClient.DB()),
		Rules:     haltsvc.NewRepository(dbClient.DB()),
		Halts:     haltService,
		Retention: cfg.Halt.SnapshotRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create halt monitor job", err)
		os.Exit(1)
	}
	lockSweepJob, err := cron.NewLockSweepJob(logg, lockService)
	if err != nil {
		logg.Error(context.Background(), "failed to create lock sweep job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(haltMonitorJob, lockSweepJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
