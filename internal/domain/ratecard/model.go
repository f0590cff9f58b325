// Package ratecard resolves catalog unit prices from versioned, effective-dated
// rate cards.
//
// Cards and items are never edited in place. A new version is a new row with a
// later EffectiveFrom; resolution always reads the version effective at the
// requested instant.
package ratecard

import (
	"strings"
	"time"

	"quoteengine/internal/core/apperror"
	"quoteengine/internal/core/id"
	"quoteengine/internal/core/types"
)

// Source tells where a resolved unit price came from.
type Source string

const (
	SourceRateCard Source = "rate_card"
	SourceExplicit Source = "explicit"
)

// Window is an effective-dating interval. Both bounds are inclusive;
// a nil Until means open-ended.
type Window struct {
	From  time.Time  `json:"effectiveFrom"`
	Until *time.Time `json:"effectiveUntil,omitempty"`
}

// Contains reports whether from <= at <= until.
func (w Window) Contains(at time.Time) bool {
	if at.Before(w.From) {
		return false
	}
	return w.Until == nil || !at.After(*w.Until)
}

// Overlaps reports whether the two windows share at least one instant.
func (w Window) Overlaps(o Window) bool {
	if w.Until != nil && w.Until.Before(o.From) {
		return false
	}
	if o.Until != nil && o.Until.Before(w.From) {
		return false
	}
	return true
}

// Validate fails when Until precedes From.
func (w Window) Validate() error {
	if w.From.IsZero() {
		return apperror.NewValidation("effectiveFrom is required").WithField("effectiveFrom")
	}
	if w.Until != nil && w.Until.Before(w.From) {
		return apperror.NewValidation("effectiveUntil must not precede effectiveFrom").
			WithField("effectiveUntil")
	}
	return nil
}

// RateCard is one version of an organization's price catalog.
type RateCard struct {
	ID             id.ID     `json:"id"`
	OrganizationID id.ID     `json:"organizationId"`
	Name           string    `json:"name"`
	Currency       string    `json:"currency"`
	Window                   // effective window of the card
	IsDefault      bool      `json:"isDefault"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Validate checks the fields an administrator supplies.
func (c *RateCard) Validate() error {
	if id.IsNil(c.OrganizationID) {
		return apperror.NewValidation("organizationId is required").WithField("organizationId")
	}
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").WithField("name")
	}
	if !types.IsISOCode(c.Currency) {
		return apperror.NewValidation("currency must be an ISO 4217 code").
			WithField("currency").
			WithDetail(apperror.DetailValue, c.Currency)
	}
	return c.Window.Validate()
}

// Item is one effective-dated price row of a rate card.
type Item struct {
	ID         id.ID       `json:"id"`
	RateCardID id.ID       `json:"rateCardId"`
	ItemCode   string      `json:"itemCode"`
	BaseRate   types.Money `json:"baseRate"`
	TaxClass   string      `json:"taxClass,omitempty"`
	Window
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the item against the card it belongs to.
func (i *Item) Validate(card *RateCard) error {
	if strings.TrimSpace(i.ItemCode) == "" {
		return apperror.NewValidation("itemCode is required").WithField("itemCode")
	}
	if i.BaseRate.Currency() != card.Currency {
		return apperror.NewCurrencyMismatch(card.Currency, i.BaseRate.Currency()).WithField("baseRate")
	}
	if i.BaseRate.IsNegative() {
		return apperror.NewValidation("baseRate must not be negative").
			WithField("baseRate").
			WithDetail(apperror.DetailValue, i.BaseRate.StringFixed())
	}
	return i.Window.Validate()
}

// SelectCard picks the card effective at instant at: among active default
// cards whose window contains at, the one with the latest EffectiveFrom.
// Ties fall to the later CreatedAt, then the greater ID, so the choice is stable.
// Returns nil when none qualifies.
func SelectCard(cards []RateCard, at time.Time) *RateCard {
	var best *RateCard
	for i := range cards {
		c := &cards[i]
		if !c.IsActive || !c.IsDefault || !c.Contains(at) {
			continue
		}
		if best == nil || newer(c.From, c.CreatedAt, c.ID, best.From, best.CreatedAt, best.ID) {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// SelectItem picks the version of an item effective at instant at.
func SelectItem(items []Item, at time.Time) *Item {
	var best *Item
	for i := range items {
		it := &items[i]
		if !it.Contains(at) {
			continue
		}
		if best == nil || newer(it.From, it.CreatedAt, it.ID, best.From, best.CreatedAt, best.ID) {
			best = it
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func newer(from, created time.Time, cid id.ID, bestFrom, bestCreated time.Time, bestID id.ID) bool {
	if !from.Equal(bestFrom) {
		return from.After(bestFrom)
	}
	if !created.Equal(bestCreated) {
		return created.After(bestCreated)
	}
	return strings.Compare(cid.String(), bestID.String()) > 0
}
