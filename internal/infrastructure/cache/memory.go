// Package cache provides rate card cache backends and cross-process
// invalidation through PostgreSQL LISTEN/NOTIFY.
package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"quoteengine/internal/core/id"
	"quoteengine/internal/domain/ratecard"
)

type memoryEntry struct {
	cards   []ratecard.RateCard
	expires time.Time
}

// MemoryCardCache keeps buckets in process memory with a TTL.
type MemoryCardCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[id.ID]map[time.Time]memoryEntry // org -> bucket start -> entry
	gens    map[id.ID]int64
	now     func() time.Time
}

var _ ratecard.CardCache = (*MemoryCardCache)(nil)

// NewMemoryCardCache creates an in-process cache. ttl <= 0 keeps entries until invalidated.
func NewMemoryCardCache(ttl time.Duration) *MemoryCardCache {
	return &MemoryCardCache{
		ttl:     ttl,
		entries: make(map[id.ID]map[time.Time]memoryEntry),
		gens:    make(map[id.ID]int64),
		now:     time.Now,
	}
}

func (c *MemoryCardCache) Get(_ context.Context, key ratecard.BucketKey) ([]ratecard.RateCard, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key.OrganizationID][key.Start]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		return nil, false
	}
	return slices.Clone(e.cards), true
}

func (c *MemoryCardCache) Generation(_ context.Context, orgID id.ID) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[orgID], true
}

// Set stores cards unless the organization was invalidated after gen was read.
func (c *MemoryCardCache) Set(_ context.Context, key ratecard.BucketKey, gen int64, cards []ratecard.RateCard) {
	e := memoryEntry{cards: slices.Clone(cards)}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key.OrganizationID] != gen {
		return
	}
	buckets, ok := c.entries[key.OrganizationID]
	if !ok {
		buckets = make(map[time.Time]memoryEntry)
		c.entries[key.OrganizationID] = buckets
	}
	buckets[key.Start] = e
}

func (c *MemoryCardCache) Invalidate(_ context.Context, orgID id.ID) {
	c.mu.Lock()
	delete(c.entries, orgID)
	c.gens[orgID]++
	c.mu.Unlock()
}

// Len returns the number of cached buckets.
func (c *MemoryCardCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, b := range c.entries {
		n += len(b)
	}
	return n
}
