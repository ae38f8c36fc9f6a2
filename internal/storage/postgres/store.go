package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashArb/internal/model"
)

// Store provides Postgres persistence for executions and run state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InsertExecutions appends settled execution records.
func (s *Store) InsertExecutions(ctx context.Context, records []model.ExecutionRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO executions (
				venue_a, venue_b, owed_asset, amount, profit, min_profit, height, settled_at, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		`,
			r.VenueA,
			r.VenueB,
			r.OwedAsset,
			r.Amount,
			r.Profit,
			r.MinProfit,
			int64(r.Height),
			r.SettledAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertAttemptErrors appends rejected attempts with their reasons.
func (s *Store) InsertAttemptErrors(ctx context.Context, attempts []model.AttemptError) error {
	if len(attempts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range attempts {
		batch.Queue(`
			INSERT INTO attempt_errors (
				venue_a, venue_b, amount, height, reason, error, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, now())
		`,
			a.VenueA,
			a.VenueB,
			a.Amount,
			int64(a.Height),
			a.Reason,
			a.Error,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range attempts {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the persisted run state for a name.
func (s *Store) LoadState(ctx context.Context, name string) (model.RunState, bool, error) {
	if name == "" {
		return model.RunState{}, false, fmt.Errorf("state name required")
	}
	var st model.RunState
	row := s.pool.QueryRow(ctx, `
		SELECT last_height, settled_count, reverted_count, cumulative_profit, updated_at::text
		FROM run_state WHERE name=$1
	`, name)
	if err := row.Scan(&st.LastHeight, &st.SettledCount, &st.RevertedCount, &st.CumulativeProfit, &st.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RunState{}, false, nil
		}
		return model.RunState{}, false, err
	}
	return st, true, nil
}

// SaveState upserts the run state for a name.
func (s *Store) SaveState(ctx context.Context, name string, st model.RunState) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO run_state (name, last_height, settled_count, reverted_count, cumulative_profit, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (name) DO UPDATE
		SET last_height = EXCLUDED.last_height,
			settled_count = EXCLUDED.settled_count,
			reverted_count = EXCLUDED.reverted_count,
			cumulative_profit = EXCLUDED.cumulative_profit,
			updated_at = now()
	`, name, int64(st.LastHeight), int64(st.SettledCount), int64(st.RevertedCount), st.CumulativeProfit)
	return err
}
