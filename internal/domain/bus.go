package domain

import "context"

// Channel names for publish notifications on the SignalBus.
const (
	ChannelPublishes = "publishes"
)

// PublishEvent announces that a scheduler run replaced an aggregate bucket.
// The server forwards these to connected dashboard sockets.
type PublishEvent struct {
	Kind        string `json:"kind"` // "ev" or "mispriced"
	Key         string `json:"key"`
	Sport       string `json:"sport,omitempty"`
	RunID       string `json:"run_id"`
	RecordCount int    `json:"record_count"`
	GeneratedAt string `json:"generated_at"`
}

// SignalBus provides lightweight pub/sub between the schedulers and the
// read-side server.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
