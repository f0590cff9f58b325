package ratecard

import (
	"context"
	"time"

	"quoteengine/internal/core/id"
)

// BucketKey addresses one cached effective-date bucket of an organization.
type BucketKey struct {
	OrganizationID id.ID
	Start          time.Time
}

// CardCache memoizes the candidate default cards of an organization per
// effective-date bucket. Entries hold only cards already filtered to the
// organization, active and default, so a warm lookup selects the same card
// a cold one would.
//
// Loads are fenced by generation: a loader reads Generation before querying
// the catalog and passes it to Set, which discards the entry if the
// organization was invalidated in between.
//
// Implementations must be safe for concurrent use. Failures are swallowed and
// reported as misses; the cache never decides a result on its own.
type CardCache interface {
	Get(ctx context.Context, key BucketKey) ([]RateCard, bool)
	// Generation returns the organization's current generation. ok is false
	// when it cannot be read; the loaded result must not be stored then.
	Generation(ctx context.Context, organizationID id.ID) (gen int64, ok bool)
	Set(ctx context.Context, key BucketKey, gen int64, cards []RateCard)
	// Invalidate drops every bucket of the organization and advances its generation.
	Invalidate(ctx context.Context, organizationID id.ID)
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, BucketKey) ([]RateCard, bool) { return nil, false }
func (NopCache) Generation(context.Context, id.ID) (int64, bool)   { return 0, false }
func (NopCache) Set(context.Context, BucketKey, int64, []RateCard) {}
func (NopCache) Invalidate(context.Context, id.ID)                 {}

// Bucket returns the [start, end) bucket of width that contains at.
// Buckets are aligned to UTC.
func Bucket(at time.Time, width time.Duration) (start, end time.Time) {
	start = at.UTC().Truncate(width)
	return start, start.Add(width)
}
