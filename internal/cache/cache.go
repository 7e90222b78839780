// Package cache keeps computed chart responses in Redis. Every key embeds the
// dataset generation, and a successful import bumps the generation, so stale
// entries are never read again and simply age out via TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// New returns a cache under prefix. A nil *Cache is valid and caches nothing.
func New(rdb *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Cache) genKey() string { return c.prefix + ":gen" }

// Key resolves the storage key for a canonical query string at the current
// generation. Resolve it once per request and reuse it for Get and Set.
func (c *Cache) Key(ctx context.Context, query string) (string, error) {
	if c == nil {
		return "", nil
	}
	gen, err := c.rdb.Get(ctx, c.genKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("read cache generation: %w", err)
	}
	return fmt.Sprintf("%s:v%d:%s", c.prefix, gen, query), nil
}

func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || key == "" {
		return false, nil
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, v any) error {
	if c == nil || key == "" {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate moves every reader to a fresh generation.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.rdb.Incr(ctx, c.genKey()).Err(); err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	return nil
}
