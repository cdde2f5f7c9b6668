// Package cache wraps redis/go-redis/v9 for the two short-lived-state uses
// in this platform: the orchestrator's idempotency fast-path lookup, and
// the risk engine's velocity counters. Both are approximate by design —
// concurrent increments racing past a threshold by one are acceptable,
// matching spec's tolerance for imprecise velocity counting.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"paysaga/internal/platform/config"
)

type Cache struct {
	client *redis.Client
}

func New(cfg config.Cache) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{client: client}
}

// NewWithClient lets tests hand in a client pointed at miniredis.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// GetString returns the cached value and whether it was present.
func (c *Cache) GetString(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetString caches value under key with ttl.
func (c *Cache) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// SetNX sets key only if absent, returning true when this call won the
// race. The orchestrator's idempotency fast-path uses GetString/SetString,
// not SetNX.
func (c *Cache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, ttl).Result()
}

// IncrWithExpiry increments a velocity counter and (re)applies its TTL on
// first creation, so the window resets ttl after it empties out instead of
// sliding forward on every increment.
func (c *Cache) IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}
