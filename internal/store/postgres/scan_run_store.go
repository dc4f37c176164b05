package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddsight/oddsight/internal/domain"
)

// ScanRunStore implements domain.ScanRunStore using PostgreSQL.
type ScanRunStore struct {
	pool *pgxpool.Pool
}

// NewScanRunStore creates a new ScanRunStore backed by the given pool.
func NewScanRunStore(pool *pgxpool.Pool) *ScanRunStore {
	return &ScanRunStore{pool: pool}
}

var _ domain.ScanRunStore = (*ScanRunStore)(nil)

// Insert records one scheduler cycle's audit row.
func (s *ScanRunStore) Insert(ctx context.Context, run domain.ScanRun) error {
	const query = `
		INSERT INTO scan_runs (
			id, kind, sport, events_seen, record_count, published,
			error, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			events_seen = EXCLUDED.events_seen,
			record_count = EXCLUDED.record_count,
			published = EXCLUDED.published,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.Kind, run.Sport, run.EventsSeen, run.RecordCount,
		run.Published, run.Error, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert scan run %s: %w", run.ID, err)
	}
	return nil
}

// ListRecent returns the latest runs of one kind, newest first.
func (s *ScanRunStore) ListRecent(ctx context.Context, kind string, limit int) ([]domain.ScanRun, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, kind, sport, events_seen, record_count, published,
		       error, started_at, finished_at
		FROM scan_runs
		WHERE kind = $1
		ORDER BY started_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list scan runs for %s: %w", kind, err)
	}
	defer rows.Close()

	var runs []domain.ScanRun
	for rows.Next() {
		var r domain.ScanRun
		if err := rows.Scan(
			&r.ID, &r.Kind, &r.Sport, &r.EventsSeen, &r.RecordCount,
			&r.Published, &r.Error, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate scan run rows: %w", err)
	}
	return runs, nil
}
