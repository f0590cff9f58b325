package ratecard

import (
	"context"
	"time"

	"quoteengine/internal/core/id"
)

// Reader is the RateCardRepository port used during price resolution.
// Lookups that find nothing return an apperror NOT_FOUND.
type Reader interface {
	// GetActiveCard returns the default active card effective at at,
	// chosen by the same rule as SelectCard.
	GetActiveCard(ctx context.Context, organizationID id.ID, at time.Time) (*RateCard, error)

	// ListDefaultCards returns every default active card of the organization
	// whose window intersects [from, until).
	ListDefaultCards(ctx context.Context, organizationID id.ID, from, until time.Time) ([]RateCard, error)

	GetCard(ctx context.Context, cardID id.ID) (*RateCard, error)

	// GetItem returns the version of itemCode effective at at on the card.
	GetItem(ctx context.Context, cardID id.ID, itemCode string, at time.Time) (*Item, error)
}

// Writer holds the administrative operations. Cards are only ever inserted
// or toggled active; prices change by adding a new item version.
type Writer interface {
	CreateCard(ctx context.Context, card *RateCard) error
	SetCardActive(ctx context.Context, cardID id.ID, active bool) error
	CreateItem(ctx context.Context, item *Item) error
	ListItems(ctx context.Context, cardID id.ID) ([]Item, error)
	ListItemVersions(ctx context.Context, cardID id.ID, itemCode string) ([]Item, error)
}

// Repository combines both sides.
type Repository interface {
	Reader
	Writer
}
