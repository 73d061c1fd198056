package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Locks         LocksConfig
	Commission    CommissionConfig
	Orders        OrdersConfig
	Inventory     InventoryConfig
	Notifications NotificationsConfig
	Webhooks      WebhooksConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Commission.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SUPPLYHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"SUPPLYHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SUPPLYHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUPPLYHUB_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"SUPPLYHUB_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SUPPLYHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SUPPLYHUB_DB_DSN"`
	Driver string `envconfig:"SUPPLYHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SUPPLYHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"SUPPLYHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SUPPLYHUB_DB_USER"`
	LegacyPassword string `envconfig:"SUPPLYHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"SUPPLYHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"SUPPLYHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SUPPLYHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUPPLYHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUPPLYHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUPPLYHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SUPPLYHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SUPPLYHUB_REDIS_ADDR"`
	Password     string        `envconfig:"SUPPLYHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUPPLYHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUPPLYHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUPPLYHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUPPLYHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUPPLYHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUPPLYHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SUPPLYHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SUPPLYHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SUPPLYHUB_JWT_EXPIRATION_MINUTES" required:"true"`
	CheckSessions     bool   `envconfig:"SUPPLYHUB_JWT_CHECK_SESSIONS" default:"false"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SUPPLYHUB_AUTO_MIGRATE" default:"false"`
}

// LocksConfig selects how per-order and per-product critical sections are serialized.
type LocksConfig struct {
	Backend      string        `envconfig:"SUPPLYHUB_LOCKS_BACKEND" default:"local"`
	TTL          time.Duration `envconfig:"SUPPLYHUB_LOCKS_TTL" default:"30s"`
	RetryBackoff time.Duration `envconfig:"SUPPLYHUB_LOCKS_RETRY_BACKOFF" default:"25ms"`
}

// UseRedis reports whether locks should be coordinated across instances.
func (l LocksConfig) UseRedis() bool {
	return strings.EqualFold(strings.TrimSpace(l.Backend), LocksBackendRedis)
}

type CommissionConfig struct {
	DefaultAgentRate string `envconfig:"SUPPLYHUB_COMMISSION_DEFAULT_AGENT_RATE" default:"10"`
}

// AgentRate returns the parsed default sourcing-agent commission percentage.
func (c CommissionConfig) AgentRate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.DefaultAgentRate))
	if err != nil {
		return decimal.NewFromInt(10)
	}
	return rate
}

func (c CommissionConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.DefaultAgentRate))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", EnvCommissionDefaultAgentRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be between 0 and 100", EnvCommissionDefaultAgentRate)
	}
	return nil
}

type OrdersConfig struct {
	OrderNumberAttempts int    `envconfig:"SUPPLYHUB_ORDER_NUMBER_ATTEMPTS" default:"5"`
	DefaultCurrency     string `envconfig:"SUPPLYHUB_DEFAULT_CURRENCY" default:"USD"`
}

type InventoryConfig struct {
	LowStockThreshold int `envconfig:"SUPPLYHUB_INVENTORY_LOW_STOCK_THRESHOLD" default:"5"`
	LedgerPageSize    int `envconfig:"SUPPLYHUB_INVENTORY_LEDGER_PAGE_SIZE" default:"100"`
}

type NotificationsConfig struct {
	QueueSize int    `envconfig:"SUPPLYHUB_NOTIFICATIONS_QUEUE_SIZE" default:"1024"`
	Workers   int    `envconfig:"SUPPLYHUB_NOTIFICATIONS_WORKERS" default:"4"`
	Sink      string `envconfig:"SUPPLYHUB_NOTIFICATIONS_SINK" default:"outbox"`
}

// UseOutbox reports whether notifications are relayed through the outbox.
func (n NotificationsConfig) UseOutbox() bool {
	return !strings.EqualFold(strings.TrimSpace(n.Sink), NotificationSinkLog)
}

type WebhooksConfig struct {
	RequireSignature bool `envconfig:"SUPPLYHUB_WEBHOOKS_REQUIRE_SIGNATURE" default:"true"`
	MaxBodyKB        int  `envconfig:"SUPPLYHUB_WEBHOOKS_MAX_BODY_KB" default:"512"`

	RateLimitWindow  time.Duration `envconfig:"SUPPLYHUB_WEBHOOKS_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitPerIP   int           `envconfig:"SUPPLYHUB_WEBHOOKS_RATE_LIMIT_PER_IP" default:"600"`
	RateLimitPerShop int           `envconfig:"SUPPLYHUB_WEBHOOKS_RATE_LIMIT_PER_SHOP" default:"300"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"SUPPLYHUB_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SUPPLYHUB_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SUPPLYHUB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SUPPLYHUB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"SUPPLYHUB_PUBSUB_NOTIFICATION_TOPIC" default:"sh-notification-events"`
	SettlementTopic   string `envconfig:"SUPPLYHUB_PUBSUB_SETTLEMENT_TOPIC" default:"sh-settlement-events"`

	NotificationSubscription string `envconfig:"SUPPLYHUB_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"sh-notification-delivery"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"SUPPLYHUB_BIGQUERY_DATASET" default:"supplyhub"`
	SettlementsTable string `envconfig:"SUPPLYHUB_BIGQUERY_SETTLEMENTS_TABLE" default:"settlement_records"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SUPPLYHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SUPPLYHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SUPPLYHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval             time.Duration `envconfig:"SUPPLYHUB_CRON_INTERVAL" default:"1h"`
	JobTimeout           time.Duration `envconfig:"SUPPLYHUB_CRON_JOB_TIMEOUT" default:"10m"`
	LockKey              string        `envconfig:"SUPPLYHUB_CRON_LOCK_KEY" default:"supplyhub:cron:cycle"`
	LockTTL              time.Duration `envconfig:"SUPPLYHUB_CRON_LOCK_TTL" default:"55m"`
	OutboxRetentionDays  int           `envconfig:"SUPPLYHUB_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	SettlementExport     bool          `envconfig:"SUPPLYHUB_CRON_SETTLEMENT_EXPORT" default:"false"`
	SettlementExportDays int           `envconfig:"SUPPLYHUB_CRON_SETTLEMENT_EXPORT_DAYS" default:"1"`
}

// IsSQLite reports whether the configured driver is SQLite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

func (db *DBConfig) ensureDSN() error {
	switch strings.ToLower(strings.TrimSpace(db.Driver)) {
	case "", DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvDBDriver, DBDriverPostgres, DBDriverSQLite)
	}
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
