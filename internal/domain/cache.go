package domain

import (
	"context"
	"time"
)

// OddsCache is the key-value odds store. Keys are structured tuples built by
// the market package; values are OddsEntry payloads with a per-key TTL.
//
// Get and MultiGet treat a malformed stored payload as absent, not as an
// error: a corrupt entry must never abort an aggregation run.
type OddsCache interface {
	Get(ctx context.Context, key string) (OddsEntry, error)
	SetWithTTL(ctx context.Context, key string, entry OddsEntry, ttl time.Duration) error
	// Scan walks the keyspace matching pattern, cursor-style. A returned
	// cursor of 0 means the iteration is complete.
	Scan(ctx context.Context, cursor uint64, pattern string, count int64) (uint64, []string, error)
	// MultiGet fetches many entries in one round trip. The result is
	// positional; absent or malformed entries are nil.
	MultiGet(ctx context.Context, keys []string) ([]*OddsEntry, error)
}

// AggregateCache publishes and reads the pre-computed result buckets the
// schedulers produce. Every publish is a single atomic overwrite with a TTL;
// readers never observe a partially written aggregate.
type AggregateCache interface {
	PublishEV(ctx context.Context, key string, snap EVSnapshot, ttl time.Duration) error
	GetEV(ctx context.Context, key string) (EVSnapshot, error)
	PublishMispriced(ctx context.Context, key string, snap MispricedSnapshot, ttl time.Duration) error
	GetMispriced(ctx context.Context, key string) (MispricedSnapshot, error)
}

// RateLimiter provides a distributed request budget. The scheduler uses it
// between cache batches instead of fixed sleeps.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking. Scheduler runs try-lock their
// aggregate key and skip the cycle when another run holds it.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
