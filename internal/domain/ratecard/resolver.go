package ratecard

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"quoteengine/internal/core/apperror"
	"quoteengine/internal/core/id"
	"quoteengine/internal/core/types"
	"quoteengine/pkg/logger"
)

var tracer = otel.Tracer("quoteengine/ratecard")

// DefaultBucketWidth is the effective-date bucket used for cache keys.
const DefaultBucketWidth = 24 * time.Hour

// PriceRequest is the input of ResolvePrice.
type PriceRequest struct {
	OrganizationID id.ID
	ItemCode       string
	EffectiveDate  time.Time

	// ExplicitPrice is used only when HasOverridePermission is set.
	ExplicitPrice         *types.Money
	HasOverridePermission bool

	// RateCardID selects a specific card instead of the organization default.
	RateCardID *id.ID

	// Currency is the quote currency. Empty skips the currency check.
	Currency string
}

// ResolvedPrice is the outcome of ResolvePrice.
type ResolvedPrice struct {
	UnitPrice  types.Money `json:"unitPrice"`
	Source     Source      `json:"source"`
	RateCardID *id.ID      `json:"rateCardId,omitempty"`
	ItemID     *id.ID      `json:"itemId,omitempty"`
	TaxClass   string      `json:"taxClass,omitempty"`
}

// Resolver implements catalog price resolution with an optional read-through
// card cache. With or without the cache it returns the same result.
type Resolver struct {
	repo   Reader
	cache  CardCache
	bucket time.Duration
	loads  singleflight.Group
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCache enables the card cache with the given bucket width.
func WithCache(cache CardCache, bucket time.Duration) ResolverOption {
	return func(r *Resolver) {
		if cache == nil || bucket <= 0 {
			return
		}
		r.cache = cache
		r.bucket = bucket
	}
}

// NewResolver creates a resolver reading from repo.
func NewResolver(repo Reader, opts ...ResolverOption) *Resolver {
	r := &Resolver{repo: repo}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolvePrice returns the unit price for one item.
//
// An explicit price wins only with override permission; without it the price
// is silently replaced by the catalog price and Source reports "rate_card".
func (r *Resolver) ResolvePrice(ctx context.Context, req PriceRequest) (ResolvedPrice, error) {
	ctx, span := tracer.Start(ctx, "ratecard.ResolvePrice",
		trace.WithAttributes(
			attribute.String("organization.id", req.OrganizationID.String()),
			attribute.String("item.code", req.ItemCode),
		))
	defer span.End()

	res, err := r.resolve(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ResolvedPrice{}, err
	}
	span.SetAttributes(attribute.String("price.source", string(res.Source)))
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, req PriceRequest) (ResolvedPrice, error) {
	if req.ExplicitPrice != nil && req.HasOverridePermission {
		return explicit(*req.ExplicitPrice, req.Currency)
	}

	if req.ItemCode == "" {
		return ResolvedPrice{}, apperror.NewValidation("itemCode is required when no permitted unit price is supplied").
			WithField("itemCode")
	}

	card, err := r.card(ctx, req)
	if err != nil {
		return ResolvedPrice{}, err
	}
	if req.Currency != "" && card.Currency != req.Currency {
		return ResolvedPrice{}, apperror.NewCurrencyMismatch(req.Currency, card.Currency).
			WithField("currency").
			WithDetail("rateCardId", card.ID.String())
	}

	item, err := r.repo.GetItem(ctx, card.ID, req.ItemCode, req.EffectiveDate)
	if err != nil {
		return ResolvedPrice{}, withField(err, "itemCode")
	}
	if item.BaseRate.Currency() != card.Currency {
		return ResolvedPrice{}, apperror.NewCurrencyMismatch(card.Currency, item.BaseRate.Currency()).
			WithField("itemCode").
			WithDetail(apperror.DetailValue, req.ItemCode)
	}

	cardID, itemID := card.ID, item.ID
	return ResolvedPrice{
		UnitPrice:  item.BaseRate,
		Source:     SourceRateCard,
		RateCardID: &cardID,
		ItemID:     &itemID,
		TaxClass:   item.TaxClass,
	}, nil
}

func explicit(price types.Money, currency string) (ResolvedPrice, error) {
	if currency != "" && price.Currency() != currency {
		return ResolvedPrice{}, apperror.NewCurrencyMismatch(currency, price.Currency()).WithField("unitPrice")
	}
	if price.IsNegative() {
		return ResolvedPrice{}, apperror.NewValidation("unitPrice must not be negative").
			WithField("unitPrice").
			WithDetail(apperror.DetailValue, price.StringFixed())
	}
	return ResolvedPrice{UnitPrice: price, Source: SourceExplicit}, nil
}

// card finds the rate card that governs req.
func (r *Resolver) card(ctx context.Context, req PriceRequest) (*RateCard, error) {
	if req.RateCardID != nil {
		c, err := r.repo.GetCard(ctx, *req.RateCardID)
		if err != nil {
			return nil, withField(err, "rateCardId")
		}
		if c.OrganizationID != req.OrganizationID || !c.IsActive || !c.Contains(req.EffectiveDate) {
			return nil, apperror.NewNotFound("rate card", req.RateCardID.String()).
				WithField("rateCardId").
				WithDetail("effectiveDate", req.EffectiveDate.UTC().Format(time.RFC3339))
		}
		return c, nil
	}

	if r.cache == nil {
		c, err := r.repo.GetActiveCard(ctx, req.OrganizationID, req.EffectiveDate)
		if err != nil {
			return nil, withField(err, "effectiveDate")
		}
		return c, nil
	}

	cards, err := r.bucketCards(ctx, req.OrganizationID, req.EffectiveDate)
	if err != nil {
		return nil, err
	}
	if c := SelectCard(cards, req.EffectiveDate); c != nil {
		return c, nil
	}
	return nil, apperror.NewNotFound("rate card", req.OrganizationID.String()).
		WithField("effectiveDate").
		WithDetail("effectiveDate", req.EffectiveDate.UTC().Format(time.RFC3339))
}

// withField names the input that led to a not-found lookup.
func withField(err error, field string) error {
	if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeNotFound {
		if _, set := appErr.Details[apperror.DetailField]; !set {
			return appErr.WithField(field)
		}
	}
	return err
}

// bucketCards returns the candidate cards of the bucket containing at,
// loading them once per bucket on a miss.
func (r *Resolver) bucketCards(ctx context.Context, orgID id.ID, at time.Time) ([]RateCard, error) {
	start, end := Bucket(at, r.bucket)
	key := BucketKey{OrganizationID: orgID, Start: start}

	if cards, ok := r.cache.Get(ctx, key); ok {
		return cards, nil
	}

	logger.Debug(ctx, "rate card cache miss",
		"organization_id", orgID.String(),
		"bucket_start", start.Format(time.RFC3339))

	// The generation is part of the flight key so requests arriving after an
	// invalidation never join a load that started before it.
	gen, cacheable := r.cache.Generation(ctx, orgID)
	sfKey := fmt.Sprintf("%s|%s|%d|%t", orgID, start.Format(time.RFC3339), gen, cacheable)
	resultCh := r.loads.DoChan(sfKey, func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		cards, err := r.repo.ListDefaultCards(loadCtx, orgID, start, end)
		if err != nil {
			return nil, err
		}
		valid := make([]RateCard, 0, len(cards))
		for _, c := range cards {
			if c.OrganizationID == orgID && c.IsActive && c.IsDefault {
				valid = append(valid, c)
			}
		}
		if cacheable {
			r.cache.Set(loadCtx, key, gen, valid)
		}
		return valid, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]RateCard), nil
	}
}

// PricingLine is one line of a batch pricing request.
type PricingLine struct {
	LineNumber int            `json:"lineNumber"`
	ItemCode   string         `json:"itemCode,omitempty"`
	Quantity   types.Quantity `json:"quantity"`
	UnitPrice  *types.Money   `json:"unitPrice,omitempty"`
}

// PricingRequest is the input of ResolvePricing.
type PricingRequest struct {
	OrganizationID        id.ID
	EffectiveDate         time.Time
	HasOverridePermission bool
	Currency              string
	RateCardID            *id.ID
	Lines                 []PricingLine
}

// LinePrice is the resolved price of one line.
type LinePrice struct {
	LineNumber int         `json:"lineNumber"`
	UnitPrice  types.Money `json:"unitPrice"`
	Source     Source      `json:"source"`
}

// ResolvePricing resolves every line. It fails on the first failing line,
// tagging the error with that line number; no partial result is returned.
func (r *Resolver) ResolvePricing(ctx context.Context, req PricingRequest) ([]LinePrice, error) {
	out := make([]LinePrice, 0, len(req.Lines))
	for _, line := range req.Lines {
		if !line.Quantity.IsPositive() {
			return nil, apperror.AtLine(
				apperror.NewValidation("quantity must be greater than zero").
					WithField("quantity").
					WithDetail(apperror.DetailValue, line.Quantity.String()),
				line.LineNumber)
		}

		res, err := r.ResolvePrice(ctx, PriceRequest{
			OrganizationID:        req.OrganizationID,
			ItemCode:              line.ItemCode,
			EffectiveDate:         req.EffectiveDate,
			ExplicitPrice:         line.UnitPrice,
			HasOverridePermission: req.HasOverridePermission,
			RateCardID:            req.RateCardID,
			Currency:              req.Currency,
		})
		if err != nil {
			return nil, apperror.AtLine(err, line.LineNumber)
		}
		out = append(out, LinePrice{LineNumber: line.LineNumber, UnitPrice: res.UnitPrice, Source: res.Source})
	}
	return out, nil
}
