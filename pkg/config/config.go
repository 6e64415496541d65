package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Cart    CartConfig
	Catalog CatalogConfig
	Redis   RedisConfig
	DB      DBConfig
}

var validate = validator.New()

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.normalize()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if err := cfg.checkBackend(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARTSYNC_APP_ENV" default:"dev" validate:"required"`
	LogLevel     string `envconfig:"CARTSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARTSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StorageConfig selects the durable slot that mirrors the cart.
type StorageConfig struct {
	Backend string `envconfig:"CARTSYNC_STORAGE_BACKEND" default:"sql" validate:"oneof=memory redis sql"`
	Key     string `envconfig:"CARTSYNC_STORAGE_KEY" default:"cart" validate:"required"`
}

type CartConfig struct {
	OnMalformed string        `envconfig:"CARTSYNC_CART_ON_MALFORMED" default:"reset" validate:"oneof=reset fail"`
	LockTimeout time.Duration `envconfig:"CARTSYNC_CART_LOCK_TIMEOUT" default:"0s"`
}

type CatalogConfig struct {
	BaseURL  string        `envconfig:"CARTSYNC_CATALOG_BASE_URL" default:"http://localhost:3333" validate:"required,url"`
	Timeout  time.Duration `envconfig:"CARTSYNC_CATALOG_TIMEOUT" default:"10s"`
	Port     string        `envconfig:"CARTSYNC_CATALOG_PORT" default:"3333"`
	SeedFile string        `envconfig:"CARTSYNC_CATALOG_SEED_FILE" default:"server.json"`

	CORSOrigins []string `envconfig:"CARTSYNC_CATALOG_CORS_ORIGINS" default:"http://localhost:3000"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTSYNC_REDIS_URL"`
	Address      string        `envconfig:"CARTSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"CARTSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type DBConfig struct {
	Driver      string `envconfig:"CARTSYNC_DB_DRIVER" default:"sqlite" validate:"oneof=sqlite postgres"`
	DSN         string `envconfig:"CARTSYNC_DB_DSN" default:"cartsync.db"`
	AutoMigrate bool   `envconfig:"CARTSYNC_DB_AUTO_MIGRATE" default:"true"`

	MaxOpenConns    int           `envconfig:"CARTSYNC_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"CARTSYNC_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"CARTSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (c *Config) normalize() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Storage.Key = strings.TrimSpace(c.Storage.Key)
	c.Cart.OnMalformed = strings.ToLower(strings.TrimSpace(c.Cart.OnMalformed))
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
}

func (c *Config) checkBackend() error {
	switch c.Storage.Backend {
	case BackendRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("either %s or %s is required for the redis backend", EnvRedisURL, EnvRedisAddr)
		}
	case BackendSQL:
		if strings.TrimSpace(c.DB.DSN) == "" {
			return fmt.Errorf("%s is required for the sql backend", EnvDBDSN)
		}
	}
	return nil
}
