package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/quotes")
	t.Setenv("JWT_SECRET", "0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, CacheMemory, cfg.CacheBackend)
	assert.Equal(t, 24*time.Hour, cfg.CacheBucket)
	assert.Equal(t, "rate_cards_changed", cfg.RateCardNotifyChannel)
	assert.Equal(t, 30*time.Second, cfg.DBStatementTimeout)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/quotes")
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_BUCKET", "1h")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, CacheRedis, cfg.CacheBackend)
	assert.Equal(t, time.Hour, cfg.CacheBucket)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_Required(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "0123456789abcdef")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{
		DatabaseURL:  "postgres://localhost:5432/quotes",
		CacheBackend: CacheMemory,
		CacheTTL:     time.Minute,
		CacheBucket:  time.Hour,
		JWTSecret:    "0123456789abcdef",
		DBMaxConns:   10,
		DBMinConns:   2,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.CacheBackend = "memcached"
	assert.Error(t, bad.Validate())

	bad = base
	bad.CacheBucket = 0
	assert.Error(t, bad.Validate())

	bad = base
	bad.JWTSecret = "short"
	assert.Error(t, bad.Validate())

	bad = base
	bad.DBMinConns = 20
	assert.Error(t, bad.Validate())
}
