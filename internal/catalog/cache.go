package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotCacheKey = "catalog:snapshot:current"

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A zero ttl stores entries without expiry.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{client: client, ttl: ttl}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// GetSnapshot returns the shared snapshot, if one is cached.
func (c *Cache) GetSnapshot(ctx context.Context) (Snapshot, bool, error) {
	var snap Snapshot
	ok, err := c.GetJSON(ctx, snapshotCacheKey, &snap)
	if err != nil || !ok {
		return Snapshot{}, false, err
	}
	return snap.Normalize(), true, nil
}

// SetSnapshot stores snap unless the cache already holds a newer generation.
func (c *Cache) SetSnapshot(ctx context.Context, snap Snapshot) error {
	current, ok, err := c.GetSnapshot(ctx)
	if err == nil && ok && current.Generation > snap.Generation {
		return nil
	}
	return c.SetJSON(ctx, snapshotCacheKey, snap)
}
