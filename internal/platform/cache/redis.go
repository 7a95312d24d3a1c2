// Package cache holds the redis client constructor and a small versioned
// JSON read-through cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a new Redis client.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// JSONCache stores loader results as JSON under a namespace. Bump moves the
// namespace to a new version so every older key is orphaned at once.
type JSONCache struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

// NewJSONCache builds a cache. A nil client turns every fetch into a load.
func NewJSONCache(client redis.UniversalClient, namespace string, ttl time.Duration) *JSONCache {
	return &JSONCache{client: client, namespace: namespace, ttl: ttl}
}

func (c *JSONCache) versionKey() string { return c.namespace + ":version" }

func (c *JSONCache) key(ctx context.Context, parts ...string) (string, error) {
	ver, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		ver = 0
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d:%s", c.namespace, ver, strings.Join(parts, ":")), nil
}

// Fetch decodes the cached value into dest, or runs loader and caches its
// result. Redis failures fall back to the loader.
func (c *JSONCache) Fetch(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	if c == nil || c.client == nil {
		return load(ctx, dest, loader)
	}
	key, err := c.key(ctx, parts...)
	if err != nil {
		return load(ctx, dest, loader)
	}
	if payload, err := c.client.Get(ctx, key).Bytes(); err == nil {
		return json.Unmarshal(payload, dest)
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	// A failed write only costs the next reader a reload.
	_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	return json.Unmarshal(raw, dest)
}

// Bump invalidates every key in the namespace.
func (c *JSONCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, c.versionKey()).Err()
}

func load(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
