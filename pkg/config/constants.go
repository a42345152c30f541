package config

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "ELTAFAWOOK_APP_ENV"
	EnvHost         = "ELTAFAWOOK_APP_HOST"
	EnvPort         = "ELTAFAWOOK_APP_PORT"
	EnvLogLevel     = "ELTAFAWOOK_LOG_LEVEL"
	EnvAPIBaseURL   = "ELTAFAWOOK_API_BASE_URL"
	EnvAPITimeout   = "ELTAFAWOOK_API_TIMEOUT"
	EnvBranchCode   = "ELTAFAWOOK_DEFAULT_BRANCH_CODE"
	EnvStoreDriver  = "ELTAFAWOOK_STORE_DRIVER"
	EnvStoreDSN     = "ELTAFAWOOK_STORE_DSN"
	EnvRedisURL     = "ELTAFAWOOK_REDIS_URL"
	EnvRedisAddr    = "ELTAFAWOOK_REDIS_ADDR"
	EnvMetricsPath  = "ELTAFAWOOK_METRICS_PATH"
	EnvAllowOrigins = "ELTAFAWOOK_CORS_ALLOWED_ORIGINS"

	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)
