package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"quoteengine/internal/domain/pricing/tax"
	"quoteengine/internal/domain/quote"
	"quoteengine/internal/domain/ratecard"
	"quoteengine/internal/infrastructure/http/v1/dto"
)

// QuoteCalculator is the part of quote.Calculator the handlers call.
type QuoteCalculator interface {
	ResolvePricing(ctx context.Context, lines []ratecard.PricingLine, qc quote.Context) ([]ratecard.LinePrice, error)
	Recalculate(ctx context.Context, q *quote.Quote, hasOverridePermission bool) error
}

// PricingHandler exposes price resolution and quote totals.
type PricingHandler struct {
	*BaseHandler
	calc QuoteCalculator
}

// NewPricingHandler creates a new pricing handler.
func NewPricingHandler(base *BaseHandler, calc QuoteCalculator) *PricingHandler {
	return &PricingHandler{BaseHandler: base, calc: calc}
}

// Resolve resolves the unit price of every line.
// POST /api/v1/pricing/resolve
func (h *PricingHandler) Resolve(c *gin.Context) {
	orgID, ok := h.OrganizationID(c)
	if !ok {
		return
	}

	var req dto.ResolvePricingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	pr, err := req.ToRequest(orgID, h.HasOverridePermission(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	prices, err := h.calc.ResolvePricing(c.Request.Context(), pr.Lines, quote.Context{
		OrganizationID:        pr.OrganizationID,
		EffectiveDate:         pr.EffectiveDate,
		Currency:              pr.Currency,
		TaxMode:               tax.Exclusive,
		HasOverridePermission: pr.HasOverridePermission,
		RateCardID:            pr.RateCardID,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ResolvePricingResponse{Lines: prices})
}

// Totals computes line and quote totals.
// POST /api/v1/quotes/totals
func (h *PricingHandler) Totals(c *gin.Context) {
	orgID, ok := h.OrganizationID(c)
	if !ok {
		return
	}

	var req dto.QuoteTotalsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	q, err := req.ToQuote(orgID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.calc.Recalculate(c.Request.Context(), q, h.HasOverridePermission(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, q.Totals())
}
