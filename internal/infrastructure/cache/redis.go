package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quoteengine/internal/core/id"
	"quoteengine/internal/domain/ratecard"
	"quoteengine/pkg/logger"
)

// RedisCardCache shares buckets between processes.
//
// Each organization has a generation counter; bucket keys embed the
// generation, so Invalidate is a single INCR and old buckets age out by TTL.
// Set writes under the generation the loader read, so a load that raced an
// invalidation lands on a key no reader will look up.
type RedisCardCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

var _ ratecard.CardCache = (*RedisCardCache)(nil)

// NewRedisCardCache creates a Redis-backed cache.
func NewRedisCardCache(client redis.UniversalClient, ttl time.Duration) *RedisCardCache {
	return &RedisCardCache{client: client, ttl: ttl, prefix: "ratecard"}
}

func (c *RedisCardCache) genKey(orgID id.ID) string {
	return fmt.Sprintf("%s:%s:gen", c.prefix, orgID)
}

func (c *RedisCardCache) bucketKey(key ratecard.BucketKey, gen int64) string {
	return fmt.Sprintf("%s:%s:g%d:%d", c.prefix, key.OrganizationID, gen, key.Start.Unix())
}

func (c *RedisCardCache) generation(ctx context.Context, orgID id.ID) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(orgID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCardCache) Get(ctx context.Context, key ratecard.BucketKey) ([]ratecard.RateCard, bool) {
	gen, err := c.generation(ctx, key.OrganizationID)
	if err != nil {
		logger.Warn(ctx, "rate card cache generation read failed", "error", err)
		return nil, false
	}

	data, err := c.client.Get(ctx, c.bucketKey(key, gen)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn(ctx, "rate card cache read failed", "error", err)
		}
		return nil, false
	}

	var cards []ratecard.RateCard
	if err := json.Unmarshal(data, &cards); err != nil {
		logger.Warn(ctx, "rate card cache entry undecodable", "error", err)
		return nil, false
	}
	return cards, true
}

func (c *RedisCardCache) Generation(ctx context.Context, orgID id.ID) (int64, bool) {
	gen, err := c.generation(ctx, orgID)
	if err != nil {
		logger.Warn(ctx, "rate card cache generation read failed", "error", err)
		return 0, false
	}
	return gen, true
}

func (c *RedisCardCache) Set(ctx context.Context, key ratecard.BucketKey, gen int64, cards []ratecard.RateCard) {
	if cards == nil {
		cards = []ratecard.RateCard{}
	}
	data, err := json.Marshal(cards)
	if err != nil {
		logger.Warn(ctx, "rate card cache encode failed", "error", err)
		return
	}

	if err := c.client.Set(ctx, c.bucketKey(key, gen), data, c.ttl).Err(); err != nil {
		logger.Warn(ctx, "rate card cache write failed", "error", err)
	}
}

func (c *RedisCardCache) Invalidate(ctx context.Context, orgID id.ID) {
	if err := c.client.Incr(ctx, c.genKey(orgID)).Err(); err != nil {
		logger.Error(ctx, "rate card cache invalidation failed",
			"organization_id", orgID.String(), "error", err)
	}
}
