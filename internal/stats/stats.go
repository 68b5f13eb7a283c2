// Package stats serves aggregate statistics with a Redis cache in front of
// the database. The cache is best-effort: Redis being down or unset degrades
// to direct database reads, never to an error.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/velin/jobradar/internal/types"
)

// DefaultTTL bounds how stale served stats may be.
const DefaultTTL = 5 * time.Minute

const cacheKey = "jobradar:stats"

// Source computes fresh stats, typically the database store.
type Source interface {
	GetStats(ctx context.Context) (*types.Stats, error)
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Cache wraps a Source with a Redis-backed TTL cache. A nil client turns the
// cache into a pass-through.
type Cache struct {
	rdb    *redis.Client
	source Source
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(rdb *redis.Client, source Source, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{rdb: rdb, source: source, ttl: ttl, logger: logger}
}

// GetStats returns cached stats when present, recomputing and re-caching
// them otherwise.
func (c *Cache) GetStats(ctx context.Context) (*types.Stats, error) {
	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, cacheKey).Bytes()
		switch {
		case err == nil:
			var stats types.Stats
			if jsonErr := json.Unmarshal(data, &stats); jsonErr == nil {
				return &stats, nil
			}
			// Corrupt entry; fall through to recompute.
			c.logger.Warn("discarding corrupt stats cache entry")
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("stats cache read failed", "error", err)
		}
	}

	stats, err := c.source.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := c.rdb.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
				c.logger.Warn("stats cache write failed", "error", err)
			}
		}
	}
	return stats, nil
}

// Invalidate drops the cached entry so the next read recomputes. Called
// after scrape runs that change the underlying counts.
func (c *Cache) Invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, cacheKey).Err(); err != nil {
		c.logger.Warn("stats cache invalidation failed", "error", err)
	}
}
