package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/supplyhub-backend/internal/bootstrap"
	"github.com/angelmondragon/supplyhub-backend/internal/cron"
	"github.com/angelmondragon/supplyhub-backend/pkg/bigquery"
	"github.com/angelmondragon/supplyhub-backend/pkg/config"
	"github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/metrics"
	"github.com/angelmondragon/supplyhub-backend/pkg/migrate"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox"
	"github.com/angelmondragon/supplyhub-backend/pkg/redis"
)

const dispatcherDrainTimeout = 10 * time.Second

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

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

	if err := run(cfg, logg, *once); err != nil {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger, once bool) error {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing redis", err)
		}
	}()

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	ledger, err := bootstrap.NewLedger(bootstrap.Params{
		Config:  cfg,
		Logger:  logg,
		DB:      dbClient,
		Redis:   redisClient,
		Metrics: ledgerMetrics,
	})
	if err != nil {
		return err
	}
	ledger.Dispatcher.Start()
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), dispatcherDrainTimeout)
		defer cancel()
		if err := ledger.Dispatcher.Close(drainCtx); err != nil {
			logg.Error(drainCtx, "notification dispatcher did not drain", err)
		}
	}()

	registry := cron.NewRegistry()
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Cron.OutboxRetentionDays,
	})
	if err != nil {
		return err
	}
	lowStock, err := cron.NewLowStockJob(cron.LowStockJobParams{
		Logger:    logg,
		Inventory: ledger.Inventory,
		Notifier:  ledger.Dispatcher,
		Threshold: cfg.Inventory.LowStockThreshold,
	})
	if err != nil {
		return err
	}
	for _, job := range []cron.Job{retention, lowStock} {
		if err := registry.Register(job); err != nil {
			return err
		}
	}

	if cfg.Cron.SettlementExport {
		warehouse, err := bigquery.NewClient(bootCtx, cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			return fmt.Errorf("bootstrap bigquery: %w", err)
		}
		defer func() {
			if err := warehouse.Close(); err != nil {
				logg.Error(bootCtx, "error closing bigquery", err)
			}
		}()
		export, err := cron.NewSettlementExportJob(cron.SettlementExportJobParams{
			Logger:     logg,
			Settlement: ledger.Settlement,
			Warehouse:  warehouse,
			Days:       cfg.Cron.SettlementExportDays,
		})
		if err != nil {
			return err
		}
		if err := registry.Register(export); err != nil {
			return err
		}
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        len(registry.Jobs()),
	})

	if once {
		logg.Info(ctx, "running cron jobs once")
		return service.RunOnce(ctx)
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

func lockKey(cfg *config.Config) string {
	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("%s:%s", cfg.Cron.LockKey, env)
}
