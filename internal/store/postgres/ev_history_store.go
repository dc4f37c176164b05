package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddsight/oddsight/internal/domain"
)

// EVHistoryStore implements domain.EVHistoryStore using PostgreSQL.
type EVHistoryStore struct {
	pool *pgxpool.Pool
}

// NewEVHistoryStore creates a new EVHistoryStore backed by the given pool.
func NewEVHistoryStore(pool *pgxpool.Pool) *EVHistoryStore {
	return &EVHistoryStore{pool: pool}
}

var _ domain.EVHistoryStore = (*EVHistoryStore)(nil)

// InsertBatch appends every record of a published run in one batch.
func (s *EVHistoryStore) InsertBatch(ctx context.Context, runID string, records []domain.EVRecord) error {
	if len(records) == 0 {
		return nil
	}

	const query = `
		INSERT INTO ev_history (
			run_id, sport, event_id, commence_time, home_team, away_team,
			player_name, market, line, side, ev_percent, ev_dollars,
			best_book, best_odds, fair_probability, confidence, books_used,
			no_vig_line_used, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19
		)`

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query,
			runID, r.Sport, r.EventID, r.CommenceTime, r.HomeTeam, r.AwayTeam,
			r.PlayerName, r.MarketKey, r.Line, string(r.Side), r.EVPercent,
			r.EVDollars, r.BestBook, r.BestOdds, r.FairProbability,
			string(r.Confidence), r.BooksUsed, r.NoVigLineUsed, r.CreatedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: insert ev history for run %s: %w", runID, err)
		}
	}
	return nil
}

// ListBySport returns the most recent history rows for a sport since the
// given time.
func (s *EVHistoryStore) ListBySport(ctx context.Context, sport string, since time.Time, limit int) ([]domain.EVRecord, error) {
	query := `
		SELECT sport, event_id, commence_time, home_team, away_team,
		       player_name, market, line, side, ev_percent, ev_dollars,
		       best_book, best_odds, fair_probability, confidence,
		       books_used, no_vig_line_used, created_at
		FROM ev_history
		WHERE sport = $1 AND created_at >= $2
		ORDER BY created_at DESC`
	args := []any{sport, since}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list ev history for %s: %w", sport, err)
	}
	defer rows.Close()

	var records []domain.EVRecord
	for rows.Next() {
		var r domain.EVRecord
		var side, confidence string
		if err := rows.Scan(
			&r.Sport, &r.EventID, &r.CommenceTime, &r.HomeTeam, &r.AwayTeam,
			&r.PlayerName, &r.MarketKey, &r.Line, &side, &r.EVPercent,
			&r.EVDollars, &r.BestBook, &r.BestOdds, &r.FairProbability,
			&confidence, &r.BooksUsed, &r.NoVigLineUsed, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan ev history row: %w", err)
		}
		r.Side = domain.Side(side)
		r.Confidence = domain.Confidence(confidence)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate ev history rows: %w", err)
	}
	return records, nil
}
