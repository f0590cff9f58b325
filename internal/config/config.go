// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Cache backends for rate card buckets.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds runtime configuration for the server.
type Config struct {
	AppEnv  string `envconfig:"APP_ENV" default:"development"`
	AppPort string `envconfig:"APP_PORT" default:"8080"`

	AppReadTimeout     time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout    time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppShutdownTimeout time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL        string        `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns         int32         `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns         int32         `envconfig:"DB_MIN_CONNS" default:"5"`
	DBMaxConnLifetime  time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"1h"`
	DBMaxConnIdleTime  time.Duration `envconfig:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
	DBStatementTimeout time.Duration `envconfig:"DB_STATEMENT_TIMEOUT" default:"30s"`

	CacheBackend string        `envconfig:"CACHE_BACKEND" default:"memory"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	CacheBucket  time.Duration `envconfig:"CACHE_BUCKET" default:"24h"`
	RedisAddr    string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer string `envconfig:"JWT_ISSUER" default:"quoteengine"`

	RateCardNotifyChannel string `envconfig:"RATE_CARD_NOTIFY_CHANNEL" default:"rate_cards_changed"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database url must be provided")
	}
	switch c.CacheBackend {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	if c.CacheBucket <= 0 {
		return errors.New("cache bucket width must be positive")
	}
	if c.CacheTTL <= 0 && c.CacheBackend != CacheNone {
		return errors.New("cache ttl must be positive")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("jwt secret must be at least 16 bytes")
	}
	if c.DBMinConns > c.DBMaxConns {
		return errors.New("db min conns exceeds max conns")
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + c.AppPort
}
