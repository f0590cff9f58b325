// Package quote computes line and quote totals.
//
// Computed figures are never set by callers: Recalculate derives them from
// the inputs and replaces them wholesale.
package quote

import (
	"time"

	"github.com/shopspring/decimal"

	"quoteengine/internal/core/id"
	"quoteengine/internal/core/types"
	"quoteengine/internal/domain/pricing/discount"
	"quoteengine/internal/domain/pricing/tax"
	"quoteengine/internal/domain/ratecard"
)

// Status is the quote lifecycle state. Pricing never consults it.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusDraft:    {StatusPending, StatusCancelled},
	StatusPending:  {StatusApproved, StatusRejected, StatusExpired, StatusCancelled},
	StatusApproved: {StatusSent, StatusCancelled},
	StatusSent:     {StatusAccepted, StatusRejected, StatusExpired, StatusCancelled},
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	_, ok := transitions[s]
	return !ok
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LineItem is one priced row of a quote.
type LineItem struct {
	LineNumber int            `json:"lineNumber"`
	ItemCode   string         `json:"itemCode,omitempty"`
	Quantity   types.Quantity `json:"quantity"`
	// UnitPrice is an explicit override, honoured only with permission.
	UnitPrice *types.Money    `json:"unitPrice,omitempty"`
	Discount  *discount.Spec  `json:"discount,omitempty"`
	TaxRate   decimal.Decimal `json:"taxRate"`

	computed *LineResult
}

// Computed returns the figures of the last recalculation, or nil.
func (l *LineItem) Computed() *LineResult { return l.computed }

// LineResult holds the derived figures of one line.
type LineResult struct {
	LineNumber         int             `json:"lineNumber"`
	UnitPrice          types.Money     `json:"unitPrice"`
	PriceSource        ratecard.Source `json:"priceSource"`
	Quantity           types.Quantity  `json:"quantity"`
	RawAmount          types.Money     `json:"rawAmount"`
	LineDiscountAmount types.Money     `json:"lineDiscountAmount"`
	LineSubtotal       types.Money     `json:"lineSubtotal"`
	LineTaxAmount      types.Money     `json:"lineTaxAmount"`
	LineTotal          types.Money     `json:"lineTotal"`
}

// Totals is the result of a quote calculation.
// TotalAmount == Subtotal - DiscountAmount + TaxAmount in exclusive mode and
// Subtotal - DiscountAmount in inclusive mode, where tax is already embedded.
type Totals struct {
	Currency            string       `json:"currency"`
	TaxMode             tax.Mode     `json:"taxMode"`
	Subtotal            types.Money  `json:"subtotal"`
	LineDiscountAmount  types.Money  `json:"lineDiscountAmount"`
	QuoteDiscountAmount types.Money  `json:"quoteDiscountAmount"`
	DiscountAmount      types.Money  `json:"discountAmount"`
	TaxAmount           types.Money  `json:"taxAmount"`
	TotalAmount         types.Money  `json:"totalAmount"`
	PerLine             []LineResult `json:"perLine"`
}

// Quote is the aggregate whose totals are recalculated on every change.
type Quote struct {
	ID             id.ID          `json:"id"`
	OrganizationID id.ID          `json:"organizationId"`
	Currency       string         `json:"currency"`
	Status         Status         `json:"status"`
	EffectiveDate  time.Time      `json:"effectiveDate"`
	TaxMode        tax.Mode       `json:"taxMode"`
	RateCardID     *id.ID         `json:"rateCardId,omitempty"`
	QuoteDiscount  *discount.Spec `json:"quoteLevelDiscount,omitempty"`
	LineItems      []LineItem     `json:"lineItems"`

	totals *Totals
}

// Totals returns the figures of the last recalculation, or nil.
func (q *Quote) Totals() *Totals { return q.totals }

// Context carries everything a calculation needs besides the lines.
type Context struct {
	OrganizationID        id.ID
	EffectiveDate         time.Time
	Currency              string
	TaxMode               tax.Mode
	HasOverridePermission bool
	RateCardID            *id.ID
}

// ContextFor builds the calculation context of q. An unset tax mode is exclusive.
func ContextFor(q *Quote, hasOverridePermission bool) Context {
	mode := q.TaxMode
	if mode == "" {
		mode = tax.Exclusive
	}
	return Context{
		OrganizationID:        q.OrganizationID,
		EffectiveDate:         q.EffectiveDate,
		Currency:              q.Currency,
		TaxMode:               mode,
		HasOverridePermission: hasOverridePermission,
		RateCardID:            q.RateCardID,
	}
}
