package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsight/oddsight/internal/domain"
)

// unreachableClient builds a Client around an address nothing listens on, so
// every command fails at dial time.
func unreachableClient() *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})}
}

func TestOddsCacheOutageIsCacheUnavailable(t *testing.T) {
	oc := NewOddsCache(unreachableClient())
	ctx := context.Background()

	_, err := oc.Get(ctx, "odds:basketball_nba:x:player_points")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)

	err = oc.SetWithTTL(ctx, "odds:basketball_nba:x:player_points", domain.OddsEntry{}, time.Minute)
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)

	_, _, err = oc.Scan(ctx, 0, "odds:basketball_nba:*:player_points", 500)
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)

	_, err = oc.MultiGet(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
}

func TestAggregateCacheOutageIsCacheUnavailable(t *testing.T) {
	ac := NewAggregateCache(unreachableClient())
	ctx := context.Background()

	_, err := ac.GetEV(ctx, "ev:basketball_nba")
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)

	err = ac.PublishEV(ctx, "ev:basketball_nba", domain.EVSnapshot{}, time.Minute)
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)

	_, err = ac.GetMispriced(ctx, "mispriced:featured")
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
}

func TestLockManagerOutageIsCacheUnavailable(t *testing.T) {
	lm := NewLockManager(unreachableClient())

	_, err := lm.Acquire(context.Background(), "pipeline:ev", time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
	assert.NotErrorIs(t, err, domain.ErrLockHeld)
}

func TestRateLimiterOutageIsCacheUnavailable(t *testing.T) {
	rl := NewRateLimiter(unreachableClient())

	_, err := rl.Allow(context.Background(), "provider:basketball_nba", 5, time.Second)
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
}

func TestRateLimiterWaitBudget(t *testing.T) {
	rl := NewRateLimiter(unreachableClient())
	assert.Equal(t, 1, rl.waitLimit)
	assert.Equal(t, time.Second, rl.waitWindow)

	rl.WithWaitBudget(5, 2*time.Second)
	assert.Equal(t, 5, rl.waitLimit)
	assert.Equal(t, 2*time.Second, rl.waitWindow)

	// Non-positive values keep the configured budget.
	rl.WithWaitBudget(0, 0)
	assert.Equal(t, 5, rl.waitLimit)
	assert.Equal(t, 2*time.Second, rl.waitWindow)
}
