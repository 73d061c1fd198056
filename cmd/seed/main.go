package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/supplyhub-backend/internal/bootstrap"
	"github.com/angelmondragon/supplyhub-backend/internal/seed"
	"github.com/angelmondragon/supplyhub-backend/pkg/config"
	"github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/migrate"
	"github.com/angelmondragon/supplyhub-backend/pkg/redis"
)

const dispatcherDrainTimeout = 10 * time.Second

func main() {
	opts := seed.Options{}
	flag.IntVar(&opts.Suppliers, "suppliers", 3, "number of suppliers")
	flag.IntVar(&opts.Agents, "agents", 2, "number of sourcing agents")
	flag.IntVar(&opts.Dropshippers, "dropshippers", 2, "number of dropshipper storefronts")
	flag.IntVar(&opts.ProductsPerOwner, "products", 5, "products per supplier or agent")
	flag.IntVar(&opts.Orders, "orders", 10, "manual orders to place")
	flag.Uint64Var(&opts.Seed, "seed", 0, "random seed (0 picks one)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "seed"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "seed"

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg, opts); err != nil {
		logg.Error(context.Background(), "seed failed", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger, opts seed.Options) error {
	ctx := context.Background()
	if cfg.App.Env == config.AppEnvProd {
		return fmt.Errorf("refusing to seed %s", config.AppEnvProd)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Locks.UseRedis() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return fmt.Errorf("bootstrap redis: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}()
	}

	ledger, err := bootstrap.NewLedger(bootstrap.Params{
		Config: cfg,
		Logger: logg,
		DB:     dbClient,
		Redis:  redisClient,
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

	seeder, err := seed.New(dbClient.DB(), ledger.Orders, logg, opts.Seed)
	if err != nil {
		return err
	}
	result, err := seeder.Run(ctx, opts)
	if err != nil {
		return err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"suppliers": len(result.Suppliers),
		"agents":    len(result.Agents),
		"products":  len(result.Products),
		"listings":  result.Listings,
		"orders":    len(result.Orders),
	}), "seed complete")
	for _, conn := range result.Connections {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"shop_domain":    conn.ShopDomain,
			"dropshipper_id": conn.DropshipperID.String(),
		}), "storefront connection")
	}
	return nil
}
