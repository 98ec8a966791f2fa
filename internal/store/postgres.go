package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// snapshotsKept bounds the history table; only the newest row is ever read.
const snapshotsKept = 20

const schema = `
CREATE TABLE IF NOT EXISTS leaderboard_snapshots (
    id         BIGSERIAL PRIMARY KEY,
    fetched_at TIMESTAMPTZ NOT NULL,
    entries    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS leaderboard_snapshots_fetched_at_idx
    ON leaderboard_snapshots (fetched_at DESC);
`

type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects with pool settings tuned for a light write load
// and creates the snapshot table when missing.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create leaderboard_snapshots: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveLeaderboard(ctx context.Context, snap Snapshot) error {
	entries, err := json.Marshal(snap.Entries)
	if err != nil {
		return fmt.Errorf("encoding leaderboard: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO leaderboard_snapshots (fetched_at, entries) VALUES ($1, $2)`,
		snap.FetchedAt, entries)
	if err != nil {
		return fmt.Errorf("failed to insert leaderboard snapshot: %w", err)
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM leaderboard_snapshots
		WHERE id NOT IN (
			SELECT id FROM leaderboard_snapshots
			ORDER BY fetched_at DESC
			LIMIT $1
		)`, snapshotsKept)
	if err != nil {
		return fmt.Errorf("failed to prune leaderboard snapshots: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) LatestLeaderboard(ctx context.Context) (*Snapshot, error) {
	var (
		snap Snapshot
		raw  []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT fetched_at, entries
		FROM leaderboard_snapshots
		ORDER BY fetched_at DESC
		LIMIT 1`).Scan(&snap.FetchedAt, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to get leaderboard snapshot: %w", err)
	}
	if err := json.Unmarshal(raw, &snap.Entries); err != nil {
		return nil, fmt.Errorf("decoding leaderboard snapshot: %w", err)
	}
	return &snap, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}
