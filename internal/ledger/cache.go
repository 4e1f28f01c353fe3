package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// SummaryCache caches per-shop summaries in Redis behind a per-shop
// version counter. Writes bump the version, which orphans stale keys
// instead of deleting them; orphans age out via TTL.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewSummaryCache instantiates the cache helper.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

func (c *SummaryCache) versionKey(shopID int64) string {
	return fmt.Sprintf("ledger:summary:version:%d", shopID)
}

func (c *SummaryCache) version(ctx context.Context, shopID int64) (int64, error) {
	ver, err := c.client.Get(ctx, c.versionKey(shopID)).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, c.versionKey(shopID), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Fetch loads a cached summary or populates it using the loader.
// Concurrent fetches for the same key collapse into one loader call.
func (c *SummaryCache) Fetch(ctx context.Context, shopID int64, from, to time.Time, loader func(context.Context) (Summary, error)) (Summary, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	ver, err := c.version(ctx, shopID)
	if err != nil {
		return loader(ctx)
	}
	key := fmt.Sprintf("ledger:summary:%d:%d:%d:%d", shopID, from.Unix(), to.Unix(), ver)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var s Summary
		if err := json.Unmarshal(payload, &s); err == nil {
			return s, nil
		}
	}

	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		s, err := loader(ctx)
		if err != nil {
			return Summary{}, err
		}
		raw, err := json.Marshal(s)
		if err != nil {
			return Summary{}, err
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return Summary{}, err
		}
		return s, nil
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

// Bump invalidates all cached summaries of one shop.
func (c *SummaryCache) Bump(ctx context.Context, shopID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, c.versionKey(shopID)).Err()
}
