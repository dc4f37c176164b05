package domain

import (
	"context"
	"time"
)

// ScanRun is the audit record for one scheduler cycle.
type ScanRun struct {
	ID          string
	Kind        string // "ev" or "mispriced"
	Sport       string
	EventsSeen  int
	RecordCount int
	Published   bool
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// EVHistoryStore persists the headline rows of each published EV snapshot so
// edges can be analyzed after the cache bucket expires.
type EVHistoryStore interface {
	InsertBatch(ctx context.Context, runID string, records []EVRecord) error
	ListBySport(ctx context.Context, sport string, since time.Time, limit int) ([]EVRecord, error)
}

// ScanRunStore persists scheduler run audit records.
type ScanRunStore interface {
	Insert(ctx context.Context, run ScanRun) error
	ListRecent(ctx context.Context, kind string, limit int) ([]ScanRun, error)
}

// BlobWriter writes an object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// SnapshotArchiver archives published aggregate snapshots for replay.
type SnapshotArchiver interface {
	Archive(ctx context.Context, kind, runID string, payload any) error
}
