// Package ratecardtest provides an in-memory ratecard.Repository for tests.
package ratecardtest

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"quoteengine/internal/core/apperror"
	"quoteengine/internal/core/id"
	"quoteengine/internal/core/types"
	"quoteengine/internal/domain/ratecard"
)

// Repository keeps cards and items in memory.
type Repository struct {
	mu    sync.RWMutex
	cards map[id.ID]ratecard.RateCard
	items map[id.ID][]ratecard.Item

	// ListCalls counts ListDefaultCards invocations.
	ListCalls atomic.Int64
	// ActiveCalls counts GetActiveCard invocations.
	ActiveCalls atomic.Int64
}

var _ ratecard.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		cards: make(map[id.ID]ratecard.RateCard),
		items: make(map[id.ID][]ratecard.Item),
	}
}

// Date parses "2006-01-02" as UTC midnight. Panics on malformed input.
func Date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// DatePtr is Date returning a pointer.
func DatePtr(s string) *time.Time {
	t := Date(s)
	return &t
}

// AddCard stores a default active card and returns it.
func (r *Repository) AddCard(orgID id.ID, currency string, from time.Time, until *time.Time) ratecard.RateCard {
	c := ratecard.RateCard{
		ID:             id.New(),
		OrganizationID: orgID,
		Name:           "Standard",
		Currency:       currency,
		Window:         ratecard.Window{From: from, Until: until},
		IsDefault:      true,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
	_ = r.CreateCard(context.Background(), &c)
	return c
}

// AddItem stores an item version priced at amount in the card's currency.
func (r *Repository) AddItem(cardID id.ID, code, amount string, from time.Time, until *time.Time) ratecard.Item {
	r.mu.RLock()
	card := r.cards[cardID]
	r.mu.RUnlock()

	it := ratecard.Item{
		ID:         id.New(),
		RateCardID: cardID,
		ItemCode:   code,
		BaseRate:   types.MustMoney(amount, card.Currency),
		Window:     ratecard.Window{From: from, Until: until},
		CreatedAt:  time.Now().UTC(),
	}
	_ = r.CreateItem(context.Background(), &it)
	return it
}

func (r *Repository) GetActiveCard(_ context.Context, orgID id.ID, at time.Time) (*ratecard.RateCard, error) {
	r.ActiveCalls.Add(1)
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c := ratecard.SelectCard(r.orgCards(orgID), at); c != nil {
		return c, nil
	}
	return nil, apperror.NewNotFound("rate card", orgID.String())
}

func (r *Repository) ListDefaultCards(_ context.Context, orgID id.ID, from, until time.Time) ([]ratecard.RateCard, error) {
	r.ListCalls.Add(1)
	r.mu.RLock()
	defer r.mu.RUnlock()

	// [from, until) as an inclusive window ending just before until
	last := until.Add(-time.Nanosecond)
	bucket := ratecard.Window{From: from, Until: &last}

	var out []ratecard.RateCard
	for _, c := range r.orgCards(orgID) {
		if c.IsActive && c.IsDefault && c.Overlaps(bucket) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *Repository) GetCard(_ context.Context, cardID id.ID) (*ratecard.RateCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cards[cardID]
	if !ok {
		return nil, apperror.NewNotFound("rate card", cardID.String())
	}
	return &c, nil
}

func (r *Repository) GetItem(_ context.Context, cardID id.ID, code string, at time.Time) (*ratecard.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var versions []ratecard.Item
	for _, it := range r.items[cardID] {
		if it.ItemCode == code {
			versions = append(versions, it)
		}
	}
	if it := ratecard.SelectItem(versions, at); it != nil {
		return it, nil
	}
	return nil, apperror.NewNotFound("rate card item", code)
}

func (r *Repository) CreateCard(_ context.Context, card *ratecard.RateCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[card.ID] = *card
	return nil
}

func (r *Repository) SetCardActive(_ context.Context, cardID id.ID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cards[cardID]
	if !ok {
		return apperror.NewNotFound("rate card", cardID.String())
	}
	c.IsActive = active
	r.cards[cardID] = c
	return nil
}

func (r *Repository) CreateItem(_ context.Context, item *ratecard.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.RateCardID] = append(r.items[item.RateCardID], *item)
	return nil
}

func (r *Repository) ListItems(_ context.Context, cardID id.ID) ([]ratecard.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items[cardID]), nil
}

func (r *Repository) ListItemVersions(_ context.Context, cardID id.ID, code string) ([]ratecard.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ratecard.Item
	for _, it := range r.items[cardID] {
		if it.ItemCode == code {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *Repository) orgCards(orgID id.ID) []ratecard.RateCard {
	var out []ratecard.RateCard
	for _, c := range r.cards {
		if c.OrganizationID == orgID {
			out = append(out, c)
		}
	}
	return out
}
