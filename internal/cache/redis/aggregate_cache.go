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

// AggregateCache implements domain.AggregateCache. Each snapshot is one JSON
// value written with a single SET, so readers either see the previous
// complete snapshot or the new one, never a partial mix. Expiry on TTL is
// the only other transition.
type AggregateCache struct {
	rdb *redis.Client
}

// NewAggregateCache creates an AggregateCache backed by the given Client.
func NewAggregateCache(c *Client) *AggregateCache {
	return &AggregateCache{rdb: c.Underlying()}
}

// PublishEV atomically replaces the EV snapshot at key.
func (ac *AggregateCache) PublishEV(ctx context.Context, key string, snap domain.EVSnapshot, ttl time.Duration) error {
	return ac.publish(ctx, key, snap, ttl)
}

// GetEV reads the EV snapshot at key. It returns domain.ErrNotFound when no
// snapshot is published, which downstream consumers must distinguish from a
// published snapshot with zero records.
func (ac *AggregateCache) GetEV(ctx context.Context, key string) (domain.EVSnapshot, error) {
	var snap domain.EVSnapshot
	if err := ac.get(ctx, key, &snap); err != nil {
		return domain.EVSnapshot{}, err
	}
	return snap, nil
}

// PublishMispriced atomically replaces the mispricing snapshot at key.
func (ac *AggregateCache) PublishMispriced(ctx context.Context, key string, snap domain.MispricedSnapshot, ttl time.Duration) error {
	return ac.publish(ctx, key, snap, ttl)
}

// GetMispriced reads the mispricing snapshot at key.
func (ac *AggregateCache) GetMispriced(ctx context.Context, key string) (domain.MispricedSnapshot, error) {
	var snap domain.MispricedSnapshot
	if err := ac.get(ctx, key, &snap); err != nil {
		return domain.MispricedSnapshot{}, err
	}
	return snap, nil
}

func (ac *AggregateCache) publish(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: marshal aggregate %s: %w", key, err)
	}
	if err := ac.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return unavailable("publish aggregate "+key, err)
	}
	return nil
}

func (ac *AggregateCache) get(ctx context.Context, key string, v any) error {
	data, err := ac.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		return unavailable("get aggregate "+key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("redis: unmarshal aggregate %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.AggregateCache = (*AggregateCache)(nil)
