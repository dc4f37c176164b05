package pipeline

import (
	"context"
	"io"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeOddsCache is an in-memory OddsCache with glob pattern scans.
type fakeOddsCache struct {
	mu      sync.Mutex
	entries map[string]domain.OddsEntry
	ttls    map[string]time.Duration
	fail    error
}

func newFakeOddsCache() *fakeOddsCache {
	return &fakeOddsCache{
		entries: make(map[string]domain.OddsEntry),
		ttls:    make(map[string]time.Duration),
	}
}

func (f *fakeOddsCache) Get(_ context.Context, key string) (domain.OddsEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return domain.OddsEntry{}, f.fail
	}
	e, ok := f.entries[key]
	if !ok {
		return domain.OddsEntry{}, domain.ErrNotFound
	}
	return e, nil
}

func (f *fakeOddsCache) SetWithTTL(_ context.Context, key string, entry domain.OddsEntry, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.entries[key] = entry
	f.ttls[key] = ttl
	return nil
}

func (f *fakeOddsCache) Scan(_ context.Context, _ uint64, pattern string, _ int64) (uint64, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return 0, nil, f.fail
	}
	var keys []string
	for k := range f.entries {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return 0, keys, nil
}

func (f *fakeOddsCache) MultiGet(_ context.Context, keys []string) ([]*domain.OddsEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	out := make([]*domain.OddsEntry, len(keys))
	for i, k := range keys {
		if e, ok := f.entries[k]; ok {
			copied := e
			out[i] = &copied
		}
	}
	return out, nil
}

// fakeAggCache records every published snapshot.
type fakeAggCache struct {
	mu        sync.Mutex
	ev        map[string]domain.EVSnapshot
	mispriced map[string]domain.MispricedSnapshot
	publishes int
}

func newFakeAggCache() *fakeAggCache {
	return &fakeAggCache{
		ev:        make(map[string]domain.EVSnapshot),
		mispriced: make(map[string]domain.MispricedSnapshot),
	}
}

func (f *fakeAggCache) PublishEV(_ context.Context, key string, snap domain.EVSnapshot, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ev[key] = snap
	f.publishes++
	return nil
}

func (f *fakeAggCache) GetEV(_ context.Context, key string) (domain.EVSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.ev[key]
	if !ok {
		return domain.EVSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func (f *fakeAggCache) PublishMispriced(_ context.Context, key string, snap domain.MispricedSnapshot, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mispriced[key] = snap
	f.publishes++
	return nil
}

func (f *fakeAggCache) GetMispriced(_ context.Context, key string) (domain.MispricedSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.mispriced[key]
	if !ok {
		return domain.MispricedSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

// fakeFetcher serves canned events and odds, recording odds calls.
type fakeFetcher struct {
	mu       sync.Mutex
	events   map[string][]provider.Event
	odds     map[string]provider.EventOdds
	oddsErr  map[string]error
	requests []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		events:  make(map[string][]provider.Event),
		odds:    make(map[string]provider.EventOdds),
		oddsErr: make(map[string]error),
	}
}

func (f *fakeFetcher) GetEvents(_ context.Context, sport string) ([]provider.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[sport], nil
}

func (f *fakeFetcher) GetEventOdds(_ context.Context, _, eventID string, _ []string) (provider.EventOdds, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, eventID)
	if err := f.oddsErr[eventID]; err != nil {
		return provider.EventOdds{}, err
	}
	return f.odds[eventID], nil
}

// fakeLocks simulates the distributed try-lock.
type fakeLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: make(map[string]bool)}
}

func (f *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return nil, domain.ErrLockHeld
	}
	f.held[key] = true
	return func() {
		f.mu.Lock()
		delete(f.held, key)
		f.mu.Unlock()
	}, nil
}

// positiveEVQuotes is a quote set with a real edge: reference -110/-110
// (fair 0.5 after the vig strip) against a +120 best price, four books on
// the over side.
func positiveEVQuotes(updated time.Time) domain.LineQuotes {
	q := func(price int) *domain.Quote {
		return &domain.Quote{Price: price, UpdatedAt: updated}
	}
	return domain.LineQuotes{
		"pinnacle":   {Over: q(-110), Under: q(-110)},
		"fanduel":    {Over: q(120), Under: q(-150)},
		"draftkings": {Over: q(-105), Under: q(-115)},
		"betmgm":     {Over: q(100), Under: q(-120)},
	}
}

// outlierQuotes is a quote set where one book's over price sits far from
// the three-book average.
func outlierQuotes(updated time.Time) domain.LineQuotes {
	q := func(price int) *domain.Quote {
		return &domain.Quote{Price: price, UpdatedAt: updated}
	}
	return domain.LineQuotes{
		"fanduel":    {Over: q(-110), Under: q(-110)},
		"draftkings": {Over: q(-110), Under: q(-110)},
		"betmgm":     {Over: q(150), Under: q(-180)},
	}
}
