// Package main is the entry point for the quote pricing API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"quoteengine/internal/config"
	"quoteengine/internal/domain/auth"
	"quoteengine/internal/domain/currency"
	"quoteengine/internal/domain/quote"
	"quoteengine/internal/domain/ratecard"
	v1 "quoteengine/internal/infrastructure/http/v1"
	"quoteengine/internal/infrastructure/cache"
	"quoteengine/internal/infrastructure/storage/postgres"
	"quoteengine/internal/infrastructure/storage/postgres/catalog_repo"
	"quoteengine/internal/infrastructure/storage/postgres/ratecard_repo"
	"quoteengine/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Infow("starting quoteengine server", "version", version, "cache", cfg.CacheBackend)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	poolCfg.MaxConnLifetime = cfg.DBMaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.DBMaxConnIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	pool.LogStats(ctx)

	txm := postgres.NewTxManager(pool, cfg.DBStatementTimeout)

	// --- Currency catalog ---
	registry := currency.DefaultRegistry()
	if err := registry.Reload(ctx, catalog_repo.NewCurrencyRepo(txm)); err != nil {
		log.Warnw("currency catalog not loaded, using built-in defaults", "error", err)
	}

	// --- Rate card cache ---
	cardCache, closeCache := newCardCache(ctx, cfg, log.WithComponent("ratecard-cache"))
	defer closeCache()

	repo := ratecard_repo.NewRateCardRepo(txm, cfg.RateCardNotifyChannel)

	resolverOpts := []ratecard.ResolverOption{}
	if cfg.CacheBackend != config.CacheNone {
		resolverOpts = append(resolverOpts, ratecard.WithCache(cardCache, cfg.CacheBucket))

		invalidator := cache.NewNotifyInvalidator(pool.Pool, cfg.RateCardNotifyChannel, cardCache)
		invalidator.Start(logger.WithLogger(ctx, log.WithComponent("ratecard-invalidator")))
		defer invalidator.Stop()
	}
	resolver := ratecard.NewResolver(repo, resolverOpts...)

	// --- Router ---
	router, err := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		JWTValidator: auth.NewJWTService(jwtConfig(cfg)),
		Database:     pool,
		Calculator:   quote.NewCalculator(resolver, registry),
		RateCards:    ratecard.NewService(repo, txm, cardCache, registry),
		Currencies:   registry,
		Version:      version,
		Development:  cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalw("failed to build router", "error", err)
	}

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	c := auth.DefaultJWTConfig(cfg.JWTSecret)
	c.Issuer = cfg.JWTIssuer
	return c
}

// newCardCache builds the configured rate card cache and its cleanup.
func newCardCache(ctx context.Context, cfg *config.Config, log *logger.Logger) (ratecard.CardCache, func()) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalw("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		}
		log.Infow("rate card cache: redis", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		return cache.NewRedisCardCache(client, cfg.CacheTTL), func() { _ = client.Close() }
	case config.CacheMemory:
		log.Infow("rate card cache: memory", "ttl", cfg.CacheTTL)
		return cache.NewMemoryCardCache(cfg.CacheTTL), func() {}
	default:
		return ratecard.NopCache{}, func() {}
	}
}
