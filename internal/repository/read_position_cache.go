package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-demo/chatcore/internal/pkg/cache"
	"github.com/redis/go-redis/v9"
)

// ReadPositionCache is the fast tier of the read-position tracker.
type ReadPositionCache struct {
	client *redis.Client
}

func NewReadPositionCache(client *redis.Client) *ReadPositionCache {
	return &ReadPositionCache{client: client}
}

// Get returns the cached position and whether it was present.
func (c *ReadPositionCache) Get(ctx context.Context, roomID, userID int64) (int64, bool, error) {
	raw, err := c.client.Get(ctx, cache.LastReadKey(roomID, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get cached read position: %w", err)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("malformed cached read position %q: %w", raw, err)
	}
	return id, true, nil
}

// Set stores the position without expiry; the sync worker flushes it to the durable tier.
func (c *ReadPositionCache) Set(ctx context.Context, roomID, userID, messageID int64) error {
	if err := c.client.Set(ctx, cache.LastReadKey(roomID, userID), messageID, 0).Err(); err != nil {
		return fmt.Errorf("failed to cache read position: %w", err)
	}
	return nil
}

// Scan walks every cached position key, calling fn with batches of keys.
func (c *ReadPositionCache) Scan(ctx context.Context, batch int64, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, cache.PatternLastRead, batch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan read positions: %w", err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// MGet reads the values of keys; missing keys come back as -1.
func (c *ReadPositionCache) MGet(ctx context.Context, keys []string) ([]int64, error) {
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached positions: %w", err)
	}

	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = -1
		s, ok := v.(string)
		if !ok {
			continue
		}
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			out[i] = id
		}
	}
	return out, nil
}
