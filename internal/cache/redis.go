// Package cache wraps the Redis client used for the structured-input cache
// (C7). The teacher declared go-redis/v9 in go.mod but never wired it up;
// this package is where that wiring happens, generalized from the
// get/set-with-TTL shape of wisefido-alarm's CacheManager.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

func New(redisURL string, logger *zap.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	return &Cache{client: client, logger: logger}, nil
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get reads a cached value. A cache miss or error is reported via the
// second return; callers must treat both as "recompute", per §4.7's
// non-fatal cache-failure rule.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return val, true
}

// Set writes a cached value with a TTL. Failures are logged and swallowed —
// cache writes are never allowed to fail a request (§4.7, §5).
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Del evicts a cached key. Failures are logged and swallowed; the cache's
// TTL bounds staleness even if eviction never lands (§5 ordering rule).
func (c *Cache) Del(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
