// Package cache is a small JSON cache in front of the feed read paths.
// It is optional: a nil *Cache is a valid always-miss cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/insights/pkg/config"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWithClient wraps an existing redis client. Test constructor.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// New connects to redis when an address is configured, otherwise returns nil
// and the feed serves every request from the store.
func New(lc fx.Lifecycle, l *zap.SugaredLogger, cfg *cfgpkg.Config) (*Cache, error) {
	if cfg.Redis.Addr == "" {
		l.Warnw("no redis configured, feed cache disabled")
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return client.Close() },
	})
	l.Infow("feed cache connected", "addr", cfg.Redis.Addr)
	return &Cache{client: client, ttl: time.Duration(cfg.Redis.FeedTTLSeconds) * time.Second}, nil
}

// Get unmarshals a cached value into out; returns false on miss or any
// cache error (misses and outages look the same to callers).
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// Set stores a value under the cache TTL. Errors are returned for logging
// but callers treat the cache as best-effort.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops keys after a write so readers do not see a full TTL of
// staleness.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	err := c.client.Del(ctx, keys...).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

var Module = fx.Options(
	fx.Provide(New),
)
