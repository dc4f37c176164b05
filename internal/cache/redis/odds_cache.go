package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oddsight/oddsight/internal/domain"
)

// OddsCache implements domain.OddsCache with JSON string values. Keys are
// built by the market package; this layer never interprets them beyond
// passing patterns to SCAN.
//
// A stored value that fails to parse is treated as absent, never as an
// error: one corrupt entry must not abort an aggregation cycle.
type OddsCache struct {
	rdb *redis.Client
}

// NewOddsCache creates an OddsCache backed by the given Client.
func NewOddsCache(c *Client) *OddsCache {
	return &OddsCache{rdb: c.Underlying()}
}

// Get retrieves one odds entry. It returns domain.ErrNotFound when the key
// does not exist or holds a payload that no longer parses.
func (oc *OddsCache) Get(ctx context.Context, key string) (domain.OddsEntry, error) {
	data, err := oc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.OddsEntry{}, domain.ErrNotFound
		}
		return domain.OddsEntry{}, unavailable("get odds "+key, err)
	}

	var entry domain.OddsEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Malformed payload: filtered out, not fatal.
		return domain.OddsEntry{}, domain.ErrNotFound
	}
	return entry, nil
}

// SetWithTTL stores one odds entry under the given key with a TTL. Line
// prices move quickly, so callers keep TTLs short; a stale read after
// expiry means "unknown", never "zero".
func (oc *OddsCache) SetWithTTL(ctx context.Context, key string, entry domain.OddsEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: marshal odds %s: %w", key, err)
	}
	if err := oc.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return unavailable("set odds "+key, err)
	}
	return nil
}

// Scan walks the keyspace matching pattern with a cursor. It returns the
// next cursor and the keys found in this step; cursor 0 means done.
func (oc *OddsCache) Scan(ctx context.Context, cursor uint64, pattern string, count int64) (uint64, []string, error) {
	keys, next, err := oc.rdb.Scan(ctx, cursor, pattern, count).Result()
	if err != nil {
		return 0, nil, unavailable("scan "+pattern, err)
	}
	return next, keys, nil
}

// MultiGet fetches many entries in a single MGET. The result is positional:
// absent keys and malformed payloads are nil.
func (oc *OddsCache) MultiGet(ctx context.Context, keys []string) ([]*domain.OddsEntry, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := oc.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(fmt.Sprintf("mget %d keys", len(keys)), err)
	}

	entries := make([]*domain.OddsEntry, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var entry domain.OddsEntry
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			continue
		}
		entries[i] = &entry
	}
	return entries, nil
}

// Compile-time interface check.
var _ domain.OddsCache = (*OddsCache)(nil)
