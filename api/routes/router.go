package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/supplyhub-backend/api/controllers"
	inventorycontrollers "github.com/angelmondragon/supplyhub-backend/api/controllers/inventory"
	ordercontrollers "github.com/angelmondragon/supplyhub-backend/api/controllers/orders"
	outboxcontrollers "github.com/angelmondragon/supplyhub-backend/api/controllers/outbox"
	paymentcontrollers "github.com/angelmondragon/supplyhub-backend/api/controllers/payments"
	webhookcontrollers "github.com/angelmondragon/supplyhub-backend/api/controllers/webhooks"
	"github.com/angelmondragon/supplyhub-backend/api/middleware"
	"github.com/angelmondragon/supplyhub-backend/internal/inventory"
	"github.com/angelmondragon/supplyhub-backend/internal/orders"
	"github.com/angelmondragon/supplyhub-backend/internal/settlement"
	storefrontwebhook "github.com/angelmondragon/supplyhub-backend/internal/webhooks/storefront"
	"github.com/angelmondragon/supplyhub-backend/pkg/config"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/supplyhub-backend/pkg/redis"
)

// Cache is the Redis surface the HTTP layer needs for idempotency, throttling
// and session checks.
type Cache interface {
	pkgredis.IdempotencyStore
	middleware.SessionChecker
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

// Deps carries everything the router mounts. Nil services answer 500 from
// their handlers; a nil Cache disables idempotency and throttling.
type Deps struct {
	DB          controllers.Pinger
	Cache       Cache
	Orders      orders.Service
	Inventory   inventory.Service
	Settlement  settlement.Service
	Storefront  webhookcontrollers.StorefrontService
	DeadLetters outboxcontrollers.DLQReader
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	var (
		idempotencyStore pkgredis.IdempotencyStore
		sessions         middleware.SessionChecker
		limiter          interface {
			IncrWithTTL(context.Context, string, time.Duration) (int64, error)
		}
		readiness = []controllers.Dependency{{Name: "database", Pinger: deps.DB}}
	)
	if deps.Cache != nil {
		idempotencyStore = deps.Cache
		limiter = deps.Cache
		if cfg.JWT.CheckSessions {
			sessions = deps.Cache
		}
		readiness = append(readiness, controllers.Dependency{Name: "redis", Pinger: deps.Cache})
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness...))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	webhookPolicy := middleware.NewRateLimitPolicy(
		"storefront",
		cfg.Webhooks.RateLimitWindow,
		cfg.Webhooks.RateLimitPerIP,
		cfg.Webhooks.RateLimitPerShop,
		storefrontwebhook.ShopDomainHeader,
	)
	webhookOpts := webhookcontrollers.Options{RequireSignature: cfg.Webhooks.RequireSignature}

	r.Route("/api/v1/webhooks/storefront", func(r chi.Router) {
		r.Use(middleware.RateLimit(webhookPolicy, limiter, logg))
		r.Use(middleware.MaxBody(cfg.Webhooks.MaxBodyKB))
		r.Post("/orders", webhookcontrollers.StorefrontOrders(deps.Storefront, webhookOpts, logg))
		r.Post("/inventory", webhookcontrollers.StorefrontInventory(deps.Storefront, webhookOpts, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Post("/{orderId}/status", ordercontrollers.TransitionStatus(deps.Orders, logg))
			r.Post("/{orderId}/shipping", ordercontrollers.AttachShipping(deps.Orders, logg))
		})

		r.Route("/v1/inventory", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin, enums.ActorRoleSupplier, enums.ActorRoleSourcingAgent))
			r.Put("/products/{productId}", inventorycontrollers.SetProductQuantity(deps.Inventory, logg))
			r.Put("/variants/{variantId}", inventorycontrollers.SetVariantQuantity(deps.Inventory, logg))
			r.Post("/bulk", inventorycontrollers.Bulk(deps.Inventory, logg))
			r.Post("/adjustments", inventorycontrollers.Adjust(deps.Inventory, logg))
			r.Get("/ledger", inventorycontrollers.Ledger(deps.Inventory, logg))
			r.Get("/low-stock", inventorycontrollers.LowStock(deps.Inventory, cfg.Inventory.LowStockThreshold, logg))
		})

		r.Route("/v1/payments", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin, enums.ActorRoleSupplier, enums.ActorRoleSourcingAgent))
			r.Get("/history", paymentcontrollers.History(deps.Settlement, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))
			r.Get("/ping", controllers.AdminPing())
			r.Post("/v1/subscriptions/charges", paymentcontrollers.RecordSubscriptionCharge(deps.Settlement, logg))
			r.Get("/v1/outbox/dlq", outboxcontrollers.ListDLQ(deps.DeadLetters, logg))
			r.Get("/v1/outbox/dlq/{eventId}", outboxcontrollers.DLQDetail(deps.DeadLetters, logg))
		})
	})

	return r
}
