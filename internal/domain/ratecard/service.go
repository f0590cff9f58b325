package ratecard

import (
	"context"
	"strings"
	"time"

	"quoteengine/internal/core/apperror"
	"quoteengine/internal/core/id"
	"quoteengine/internal/core/tx"
	"quoteengine/internal/core/types"
	"quoteengine/pkg/logger"
)

// CurrencyValidator is the subset of the currency registry the service needs.
type CurrencyValidator interface {
	IsValidCurrency(code string) bool
}

// Service provides rate card administration. Every mutation that can change
// which card is effective invalidates the organization's cached buckets after
// the transaction commits.
type Service struct {
	repo       Repository
	txm        tx.Manager
	cache      CardCache
	currencies CurrencyValidator
	now        func() time.Time
}

// NewService creates a rate card service. cache may be nil.
func NewService(repo Repository, txm tx.Manager, cache CardCache, currencies CurrencyValidator) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{
		repo:       repo,
		txm:        txm,
		cache:      cache,
		currencies: currencies,
		now:        time.Now,
	}
}

// CreateCardInput describes a new card version.
type CreateCardInput struct {
	OrganizationID id.ID
	Name           string
	Currency       string
	EffectiveFrom  time.Time
	EffectiveUntil *time.Time
	IsDefault      bool
	IsActive       bool
}

// CreateCard inserts a new card version.
func (s *Service) CreateCard(ctx context.Context, in CreateCardInput) (*RateCard, error) {
	card := &RateCard{
		ID:             id.New(),
		OrganizationID: in.OrganizationID,
		Name:           strings.TrimSpace(in.Name),
		Currency:       types.NormalizeCurrency(in.Currency),
		Window:         Window{From: in.EffectiveFrom.UTC(), Until: utcPtr(in.EffectiveUntil)},
		IsDefault:      in.IsDefault,
		IsActive:       in.IsActive,
		CreatedAt:      s.now().UTC(),
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	if s.currencies != nil && !s.currencies.IsValidCurrency(card.Currency) {
		return nil, apperror.NewValidation("unknown currency").
			WithField("currency").
			WithDetail(apperror.DetailValue, card.Currency)
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateCard(ctx, card)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, card.OrganizationID, "created", card.ID)
	return card, nil
}

// Activate marks a card active.
func (s *Service) Activate(ctx context.Context, cardID id.ID) (*RateCard, error) {
	return s.setActive(ctx, cardID, true)
}

// Deactivate marks a card inactive. Its history stays queryable.
func (s *Service) Deactivate(ctx context.Context, cardID id.ID) (*RateCard, error) {
	return s.setActive(ctx, cardID, false)
}

func (s *Service) setActive(ctx context.Context, cardID id.ID, active bool) (*RateCard, error) {
	var card *RateCard
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetCard(ctx, cardID)
		if err != nil {
			return err
		}
		if c.IsActive == active {
			card = c
			return nil
		}
		if err := s.repo.SetCardActive(ctx, cardID, active); err != nil {
			return err
		}
		c.IsActive = active
		card = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := "deactivated"
	if active {
		event = "activated"
	}
	s.invalidate(ctx, card.OrganizationID, event, card.ID)
	return card, nil
}

// AddItemInput describes a new item version.
type AddItemInput struct {
	ItemCode       string
	BaseRate       types.Money
	TaxClass       string
	EffectiveFrom  time.Time
	EffectiveUntil *time.Time
}

// AddItem adds a price version to a card. Versions of the same item code
// may not overlap, so at most one is effective at any instant.
func (s *Service) AddItem(ctx context.Context, cardID id.ID, in AddItemInput) (*Item, error) {
	item := &Item{
		ID:         id.New(),
		RateCardID: cardID,
		ItemCode:   strings.TrimSpace(in.ItemCode),
		BaseRate:   in.BaseRate,
		TaxClass:   strings.TrimSpace(in.TaxClass),
		Window:     Window{From: in.EffectiveFrom.UTC(), Until: utcPtr(in.EffectiveUntil)},
		CreatedAt:  s.now().UTC(),
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		card, err := s.repo.GetCard(ctx, cardID)
		if err != nil {
			return err
		}
		if err := item.Validate(card); err != nil {
			return err
		}

		versions, err := s.repo.ListItemVersions(ctx, cardID, item.ItemCode)
		if err != nil {
			return err
		}
		for _, v := range versions {
			if v.Overlaps(item.Window) {
				return apperror.NewConflict("item version overlaps an existing version").
					WithField("effectiveFrom").
					WithDetail("itemCode", item.ItemCode).
					WithDetail("conflictingItemId", v.ID.String())
			}
		}

		return s.repo.CreateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "rate card item added",
		"rate_card_id", cardID.String(),
		"item_code", item.ItemCode,
		"base_rate", item.BaseRate.String())
	return item, nil
}

// CardWithItems is a card and every item version on it.
type CardWithItems struct {
	RateCard
	Items []Item `json:"items"`
}

// GetCard returns a card with its items.
func (s *Service) GetCard(ctx context.Context, cardID id.ID) (*CardWithItems, error) {
	card, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, cardID)
	if err != nil {
		return nil, err
	}
	return &CardWithItems{RateCard: *card, Items: items}, nil
}

func (s *Service) invalidate(ctx context.Context, orgID id.ID, event string, cardID id.ID) {
	s.cache.Invalidate(ctx, orgID)
	logger.Info(ctx, "rate card "+event,
		"rate_card_id", cardID.String(),
		"organization_id", orgID.String())
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
