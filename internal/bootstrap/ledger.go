// Package bootstrap assembles the ledger services shared by the API and the
// background workers.
package bootstrap

import (
	"fmt"

	"github.com/angelmondragon/supplyhub-backend/internal/catalog"
	"github.com/angelmondragon/supplyhub-backend/internal/commission"
	"github.com/angelmondragon/supplyhub-backend/internal/inventory"
	"github.com/angelmondragon/supplyhub-backend/internal/notifications"
	"github.com/angelmondragon/supplyhub-backend/internal/orders"
	"github.com/angelmondragon/supplyhub-backend/internal/settlement"
	storefrontwebhook "github.com/angelmondragon/supplyhub-backend/internal/webhooks/storefront"
	"github.com/angelmondragon/supplyhub-backend/pkg/config"
	"github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/locks"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/metrics"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox"
	"github.com/angelmondragon/supplyhub-backend/pkg/redis"
)

// Ledger holds the wired domain services. Dispatcher must be started by the
// caller and closed on shutdown.
type Ledger struct {
	Locker     locks.Locker
	Dispatcher *notifications.Dispatcher
	Catalog    catalog.Service
	Inventory  inventory.Service
	Settlement settlement.Service
	Orders     orders.Service
	Storefront *storefrontwebhook.Service
}

// Params configure NewLedger. Redis is only required when the locks backend is redis.
type Params struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *db.Client
	Redis   *redis.Client
	Metrics *metrics.LedgerMetrics
}

func NewLedger(params Params) (*Ledger, error) {
	cfg, logg, client := params.Config, params.Logger, params.DB
	if cfg == nil || logg == nil || client == nil {
		return nil, fmt.Errorf("config, logger and db are required")
	}
	conn := client.DB()

	locker, err := newLocker(cfg.Locks, params.Redis, logg)
	if err != nil {
		return nil, err
	}

	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	var sink notifications.Sink
	if cfg.Notifications.UseOutbox() {
		sink, err = notifications.NewOutboxSink(client, emitter)
	} else {
		sink, err = notifications.NewLogSink(logg)
	}
	if err != nil {
		return nil, fmt.Errorf("notification sink: %w", err)
	}
	dispatcher, err := notifications.NewDispatcher(sink, logg, params.Metrics, notifications.Options{
		QueueSize: cfg.Notifications.QueueSize,
		Workers:   cfg.Notifications.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("notification dispatcher: %w", err)
	}

	calculator := commission.NewCalculator(cfg.Commission.AgentRate())

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}
	inventorySvc, err := inventory.NewService(inventory.NewRepository(conn), client, locker, logg, params.Metrics, inventory.Options{
		PageSize: cfg.Inventory.LedgerPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("inventory service: %w", err)
	}
	settlementSvc, err := settlement.NewService(settlement.NewRepository(conn), client, calculator, emitter, logg, params.Metrics)
	if err != nil {
		return nil, fmt.Errorf("settlement service: %w", err)
	}
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:       orders.NewRepository(conn),
		Tx:         client,
		Locker:     locker,
		Catalog:    catalogSvc,
		Inventory:  inventorySvc,
		Settlement: settlementSvc,
		Notifier:   dispatcher,
		Calculator: calculator,
		Logger:     logg,
		Metrics:    params.Metrics,
		Options: orders.Options{
			OrderNumberAttempts: cfg.Orders.OrderNumberAttempts,
			DefaultCurrency:     cfg.Orders.DefaultCurrency,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}
	storefrontSvc, err := storefrontwebhook.NewService(storefrontwebhook.ServiceParams{
		Catalog:   catalogSvc,
		Orders:    ordersSvc,
		Inventory: inventorySvc,
		Logger:    logg,
		Metrics:   params.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("storefront webhook service: %w", err)
	}

	return &Ledger{
		Locker:     locker,
		Dispatcher: dispatcher,
		Catalog:    catalogSvc,
		Inventory:  inventorySvc,
		Settlement: settlementSvc,
		Orders:     ordersSvc,
		Storefront: storefrontSvc,
	}, nil
}

func newLocker(cfg config.LocksConfig, redisClient *redis.Client, logg *logger.Logger) (locks.Locker, error) {
	if !cfg.UseRedis() {
		return locks.NewLocalLocker(), nil
	}
	if redisClient == nil {
		return nil, fmt.Errorf("redis client required for %s locks", config.LocksBackendRedis)
	}
	return locks.NewRedisLocker(redisClient, cfg.TTL, cfg.RetryBackoff, logg)
}
