package config

const (
	EnvPrefix = "CARTSYNC"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQL    = "sql"

	MalformedReset = "reset"
	MalformedFail  = "fail"

	EnvAppEnv          = "CARTSYNC_APP_ENV"
	EnvLogLevel        = "CARTSYNC_LOG_LEVEL"
	EnvStorageBackend  = "CARTSYNC_STORAGE_BACKEND"
	EnvStorageKey      = "CARTSYNC_STORAGE_KEY"
	EnvCartOnMalformed = "CARTSYNC_CART_ON_MALFORMED"
	EnvCatalogBaseURL  = "CARTSYNC_CATALOG_BASE_URL"
	EnvCatalogTimeout  = "CARTSYNC_CATALOG_TIMEOUT"
	EnvRedisURL        = "CARTSYNC_REDIS_URL"
	EnvRedisAddr       = "CARTSYNC_REDIS_ADDR"
	EnvDBDriver        = "CARTSYNC_DB_DRIVER"
	EnvDBDSN           = "CARTSYNC_DB_DSN"
)
