package config

const (
	EnvPrefix = "SUPPLYHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	LocksBackendLocal = "local"
	LocksBackendRedis = "redis"

	NotificationSinkOutbox = "outbox"
	NotificationSinkLog    = "log"

	EnvAppEnv   = "SUPPLYHUB_APP_ENV"
	EnvPort     = "SUPPLYHUB_APP_PORT"
	EnvLogLevel = "SUPPLYHUB_LOG_LEVEL"

	EnvDBDSN    = "SUPPLYHUB_DB_DSN"
	EnvDBDriver = "SUPPLYHUB_DB_DRIVER"
	EnvDBHost   = "SUPPLYHUB_DB_HOST"
	EnvDBUser   = "SUPPLYHUB_DB_USER"
	EnvDBName   = "SUPPLYHUB_DB_NAME"

	EnvRedisURL   = "SUPPLYHUB_REDIS_URL"
	EnvJWTSecret  = "SUPPLYHUB_JWT_SECRET"
	EnvJWTIssuer  = "SUPPLYHUB_JWT_ISSUER"
	EnvJWTExpMins = "SUPPLYHUB_JWT_EXPIRATION_MINUTES"

	EnvLocksBackend               = "SUPPLYHUB_LOCKS_BACKEND"
	EnvCommissionDefaultAgentRate = "SUPPLYHUB_COMMISSION_DEFAULT_AGENT_RATE"
	EnvNotificationsQueueSize     = "SUPPLYHUB_NOTIFICATIONS_QUEUE_SIZE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
