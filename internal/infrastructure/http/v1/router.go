// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"quoteengine/internal/core/security"
	"quoteengine/internal/domain/currency"
	"quoteengine/internal/infrastructure/http/v1/dto"
	"quoteengine/internal/infrastructure/http/v1/handlers"
	"quoteengine/internal/infrastructure/http/v1/middleware"
	"quoteengine/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Database backs the readiness probe; nil disables /health/ready and /health/info
	Database handlers.Database

	Calculator handlers.QuoteCalculator
	RateCards  handlers.RateCardService

	// Currencies backs the known_currency binding tag
	Currencies currency.Validator

	// Overrides answers the explicit-price permission; nil reads it from the token
	Overrides security.OverrideChecker

	Version     string
	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := dto.RegisterValidators(cfg.Currencies); err != nil {
		return nil, err
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	health := router.Group("/health")
	{
		healthHandler := handlers.NewHealthHandler(cfg.Database, cfg.Version)
		health.GET("/live", healthHandler.Live)
		if cfg.Database != nil {
			health.GET("/ready", healthHandler.Ready)
			health.GET("/info", healthHandler.Info)
		}
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	{
		base := handlers.NewBaseHandler(cfg.Overrides)

		RegisterPricingRoutes(v1, handlers.NewPricingHandler(base, cfg.Calculator))
		RegisterRateCardRoutes(v1.Group("/rate-cards"), handlers.NewRateCardHandler(base, cfg.RateCards), security.PermissionRateCardAdmin)
	}

	return router, nil
}
