package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps leaderboard snapshots in Redis so repeated dashboard loads
// between recomputes do not rescan the whole population.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache creates a snapshot cache. A zero ttl disables caching.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Get returns the cached snapshot for a filter set, if present.
func (c *Cache) Get(ctx context.Context, f Filters) ([]Entry, bool, error) {
	if c == nil || c.ttl == 0 {
		return nil, false, nil
	}
	data, err := c.rdb.Get(ctx, filterKey(f)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading leaderboard snapshot: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("decoding leaderboard snapshot: %w", err)
	}
	return entries, true, nil
}

// Put stores a snapshot for a filter set.
func (c *Cache) Put(ctx context.Context, f Filters, entries []Entry) error {
	if c == nil || c.ttl == 0 {
		return nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding leaderboard snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, filterKey(f), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing leaderboard snapshot: %w", err)
	}
	return nil
}

func filterKey(f Filters) string {
	return fmt.Sprintf("leaderboard:%s:%s:%s", f.Topic, f.Grade, f.Section)
}
