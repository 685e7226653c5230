package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/config"
	"github.com/stemsi/admissions-backend/internal/model"
)

// PassageCache keeps assembled passage payloads in Redis. Cache failures are
// logged and reported as misses; the database stays the source of truth.
type PassageCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewPassageCache creates a new PassageCache.
func NewPassageCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *PassageCache {
	return &PassageCache{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "passage_cache").Logger(),
	}
}

// Get returns the cached set for a passage, if present.
func (c *PassageCache) Get(ctx context.Context, passageID int64) (*model.AssembledSet, bool) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.PassagePayloadKey(passageID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Int64("passage_id", passageID).Msg("passage cache read failed")
		}
		return nil, false
	}

	var set model.AssembledSet
	if err := json.Unmarshal(raw, &set); err != nil {
		c.log.Warn().Err(err).Int64("passage_id", passageID).Msg("corrupt passage cache entry")
		return nil, false
	}
	return &set, true
}

// Set stores a passage payload with the configured TTL.
func (c *PassageCache) Set(ctx context.Context, passageID int64, set *model.AssembledSet) {
	raw, err := json.Marshal(set)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, config.CacheKey.PassagePayloadKey(passageID), raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Int64("passage_id", passageID).Msg("passage cache write failed")
	}
}

// Invalidate drops a passage payload after its content changed.
func (c *PassageCache) Invalidate(ctx context.Context, passageID int64) {
	if err := c.rdb.Del(ctx, config.CacheKey.PassagePayloadKey(passageID)).Err(); err != nil {
		c.log.Warn().Err(err).Int64("passage_id", passageID).Msg("passage cache invalidation failed")
	}
}
