package ws

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBus is an in-memory SignalBus for hub tests.
type fakeBus struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[string][]chan []byte)}
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[channel] {
		ch <- payload
	}
	return nil
}

func (b *fakeBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []byte, 16)
	b.subs[channel] = append(b.subs[channel], ch)
	return ch, nil
}

func TestHubStopsAcceptingAfterShutdown(t *testing.T) {
	hub := NewHub(newFakeBus(), "full", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- hub.Run(ctx) }()

	c := &client{hub: hub, send: make(chan []byte, 1)}
	select {
	case hub.register <- c:
	case <-time.After(time.Second):
		t.Fatal("register was not drained")
	}
	require.Eventually(t, func() bool {
		return hub.clientCount() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-runErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("run loop did not exit")
	}

	// The run loop closes each registered client's send channel on the way
	// out.
	select {
	case _, ok := <-c.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel left open")
	}

	// A disconnect after shutdown must return instead of blocking on the
	// drained-by-nobody unregister channel.
	done := make(chan struct{})
	go func() {
		hub.drop(c)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drop blocked after the run loop exited")
	}
}

func TestHubDropWhileRunning(t *testing.T) {
	hub := NewHub(newFakeBus(), "full", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	c := &client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- c
	require.Eventually(t, func() bool {
		return hub.clientCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.drop(c)
	require.Eventually(t, func() bool {
		return hub.clientCount() == 0
	}, time.Second, 10*time.Millisecond)

	select {
	case _, ok := <-c.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel left open after unregister")
	}
}
