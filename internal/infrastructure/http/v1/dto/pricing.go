package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"quoteengine/internal/core/id"
	"quoteengine/internal/core/types"
	"quoteengine/internal/domain/pricing/discount"
	"quoteengine/internal/domain/pricing/tax"
	"quoteengine/internal/domain/quote"
	"quoteengine/internal/domain/ratecard"
)

// PricingLineRequest is one line of a pricing request.
type PricingLineRequest struct {
	LineNumber int            `json:"lineNumber" binding:"required,min=1"`
	ItemCode   string         `json:"itemCode" binding:"omitempty,max=100"`
	Quantity   types.Quantity `json:"quantity"`
	UnitPrice  *types.Money   `json:"unitPrice"`
}

// ResolvePricingRequest resolves unit prices for a set of lines.
// The organization is taken from the caller's token.
type ResolvePricingRequest struct {
	EffectiveDate time.Time            `json:"effectiveDate" binding:"required"`
	Currency      string               `json:"currency" binding:"required,iso4217,known_currency"`
	RateCardID    *string              `json:"rateCardId" binding:"omitempty,uuid"`
	Lines         []PricingLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToRequest converts the body into a resolver request.
func (r *ResolvePricingRequest) ToRequest(orgID id.ID, hasOverride bool) (ratecard.PricingRequest, error) {
	cardID, err := parseOptionalID(r.RateCardID, "rateCardId")
	if err != nil {
		return ratecard.PricingRequest{}, err
	}

	lines := make([]ratecard.PricingLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = ratecard.PricingLine{
			LineNumber: l.LineNumber,
			ItemCode:   l.ItemCode,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
		}
	}

	return ratecard.PricingRequest{
		OrganizationID:        orgID,
		EffectiveDate:         r.EffectiveDate.UTC(),
		HasOverridePermission: hasOverride,
		Currency:              r.Currency,
		RateCardID:            cardID,
		Lines:                 lines,
	}, nil
}

// ResolvePricingResponse lists the resolved unit price of each line.
type ResolvePricingResponse struct {
	Lines []ratecard.LinePrice `json:"lines"`
}

// QuoteLineRequest is one line of a totals request.
type QuoteLineRequest struct {
	LineNumber int             `json:"lineNumber" binding:"required,min=1"`
	ItemCode   string          `json:"itemCode" binding:"omitempty,max=100"`
	Quantity   types.Quantity  `json:"quantity"`
	UnitPrice  *types.Money    `json:"unitPrice"`
	Discount   *discount.Spec  `json:"discount"`
	TaxRate    decimal.Decimal `json:"taxRate"`
}

// QuoteTotalsRequest computes line and quote totals without persisting anything.
type QuoteTotalsRequest struct {
	EffectiveDate      time.Time          `json:"effectiveDate" binding:"required"`
	Currency           string             `json:"currency" binding:"required,iso4217,known_currency"`
	TaxMode            string             `json:"taxMode" binding:"omitempty,oneof=exclusive inclusive"`
	RateCardID         *string            `json:"rateCardId" binding:"omitempty,uuid"`
	QuoteLevelDiscount *discount.Spec     `json:"quoteLevelDiscount"`
	Lines              []QuoteLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToQuote builds a draft quote carrying the request's inputs.
func (r *QuoteTotalsRequest) ToQuote(orgID id.ID) (*quote.Quote, error) {
	cardID, err := parseOptionalID(r.RateCardID, "rateCardId")
	if err != nil {
		return nil, err
	}
	mode, err := tax.ParseMode(r.TaxMode)
	if err != nil {
		return nil, err
	}

	lines := make([]quote.LineItem, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = quote.LineItem{
			LineNumber: l.LineNumber,
			ItemCode:   l.ItemCode,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			Discount:   l.Discount,
			TaxRate:    l.TaxRate,
		}
	}

	return &quote.Quote{
		ID:             id.New(),
		OrganizationID: orgID,
		Currency:       r.Currency,
		Status:         quote.StatusDraft,
		EffectiveDate:  r.EffectiveDate.UTC(),
		TaxMode:        mode,
		RateCardID:     cardID,
		QuoteDiscount:  r.QuoteLevelDiscount,
		LineItems:      lines,
	}, nil
}
