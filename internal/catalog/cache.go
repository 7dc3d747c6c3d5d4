package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "catalog:"

// Cached fronts a Repository with a Redis TTL cache. Redis failures degrade to
// reading the backend directly.
type Cached struct {
	next   Repository
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(next Repository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{next: next, redis: client, ttl: ttl, logger: logger}
}

func (c *Cached) Get(ctx context.Context, id string) (PricedAction, error) {
	key := cachePrefix + "action:" + id
	var a PricedAction
	if c.load(ctx, key, &a) {
		return a, nil
	}
	a, err := c.next.Get(ctx, id)
	if err != nil {
		return PricedAction{}, err
	}
	c.store(ctx, key, a)
	return a, nil
}

func (c *Cached) ListActive(ctx context.Context, kind Kind) ([]PricedAction, error) {
	key := cachePrefix + "list:" + string(kind)
	var out []PricedAction
	if c.load(ctx, key, &out) {
		return out, nil
	}
	out, err := c.next.ListActive(ctx, kind)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, out)
	return out, nil
}

func (c *Cached) load(ctx context.Context, key string, dst any) bool {
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("catalog cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("catalog cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cached) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
}
