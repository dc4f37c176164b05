package s3blob

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oddsight/oddsight/internal/domain"
)

// SnapshotArchiver implements domain.SnapshotArchiver by serializing each
// published aggregate snapshot and uploading it for replay and debugging.
// Objects are keyed by kind, date, and run ID:
//
//	snapshots/ev/2025-11-02/4f8c9d1e-....json
//	snapshots/mispriced/2025-11-02/7a2b3c4d-....json
type SnapshotArchiver struct {
	writer domain.BlobWriter
}

// NewSnapshotArchiver creates a new SnapshotArchiver.
func NewSnapshotArchiver(writer domain.BlobWriter) *SnapshotArchiver {
	return &SnapshotArchiver{writer: writer}
}

var _ domain.SnapshotArchiver = (*SnapshotArchiver)(nil)

// Archive uploads one snapshot. Failures are the caller's to log; archival
// must never block a publish.
func (a *SnapshotArchiver) Archive(ctx context.Context, kind, runID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("s3blob: marshal %s snapshot: %w", kind, err)
	}

	key := snapshotKey(kind, runID, time.Now().UTC())
	if err := a.writer.Put(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive %s snapshot: %w", kind, err)
	}
	return nil
}

// snapshotKey builds the object key, partitioned by day.
func snapshotKey(kind, runID string, now time.Time) string {
	return fmt.Sprintf("snapshots/%s/%s/%s.json", kind, now.Format("2006-01-02"), runID)
}
