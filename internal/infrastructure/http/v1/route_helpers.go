package v1

import (
	"github.com/gin-gonic/gin"

	"quoteengine/internal/core/security"
	"quoteengine/internal/infrastructure/http/v1/middleware"
)

// PricingRouteHandler serves the pricing endpoints.
type PricingRouteHandler interface {
	Resolve(c *gin.Context)
	Totals(c *gin.Context)
}

// RateCardRouteHandler serves rate card administration.
type RateCardRouteHandler interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	AddItem(c *gin.Context)
	Activate(c *gin.Context)
	Deactivate(c *gin.Context)
}

// RegisterPricingRoutes registers price resolution and quote totals.
// Any authenticated caller may price; explicit prices are still gated by
// the override permission inside the resolver.
func RegisterPricingRoutes(group *gin.RouterGroup, handler PricingRouteHandler) {
	group.POST("/pricing/resolve", handler.Resolve)
	group.POST("/quotes/totals", handler.Totals)
}

// RegisterRateCardRoutes registers rate card administration behind permission.
func RegisterRateCardRoutes(group *gin.RouterGroup, handler RateCardRouteHandler, permission security.Permission) {
	group.Use(middleware.RequirePermission(permission))
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.POST("/:id/items", handler.AddItem)
	group.POST("/:id/activate", handler.Activate)
	group.POST("/:id/deactivate", handler.Deactivate)
}
