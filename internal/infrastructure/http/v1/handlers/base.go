package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quoteengine/internal/core/apperror"
	appctx "quoteengine/internal/core/context"
	"quoteengine/internal/core/id"
	"quoteengine/internal/core/security"
	"quoteengine/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct {
	overrides security.OverrideChecker
}

// NewBaseHandler creates a new base handler. A nil checker answers from the
// request's token.
func NewBaseHandler(overrides security.OverrideChecker) *BaseHandler {
	if overrides == nil {
		overrides = security.ContextChecker{}
	}
	return &BaseHandler{overrides: overrides}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, dto.BindError(err))
		return false
	}
	return true
}

// Error registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// OrganizationID returns the caller's organization from the token.
func (h *BaseHandler) OrganizationID(c *gin.Context) (id.ID, bool) {
	raw := appctx.GetOrganizationID(c.Request.Context())
	if raw == "" {
		h.Error(c, apperror.NewUnauthorized("token carries no organization"))
		return id.ID{}, false
	}
	orgID, err := id.Parse(raw, "organizationId")
	if err != nil {
		h.Error(c, apperror.NewUnauthorized("token carries an invalid organization"))
		return id.ID{}, false
	}
	return orgID, true
}

// HasOverridePermission reports whether the caller may supply explicit prices.
func (h *BaseHandler) HasOverridePermission(c *gin.Context) bool {
	ctx := c.Request.Context()
	return h.overrides.HasOverridePermission(ctx, appctx.GetUserID(ctx))
}

// PathID parses the :id path parameter.
func (h *BaseHandler) PathID(c *gin.Context) (id.ID, bool) {
	v, err := id.Parse(c.Param("id"), "id")
	if err != nil {
		h.Error(c, err)
		return id.ID{}, false
	}
	return v, true
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}
