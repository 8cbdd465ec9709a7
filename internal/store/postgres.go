package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradeval/valuation-engine/internal/marketdata"
)

// PostgresStore implements Store using PostgreSQL as the source of
// truth. Snapshots are stored as flat (kind, key, value) rows; saving a
// snapshot replaces all rows of its kind in one transaction.
//
// Schema:
//
//	CREATE TABLE snapshots (
//	    kind  TEXT NOT NULL,
//	    key   TEXT NOT NULL,
//	    value TEXT NOT NULL,
//	    PRIMARY KEY (kind, key)
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) SaveConfiguration(ctx context.Context, m marketdata.Map) error {
	return s.save(ctx, KindConfiguration, m)
}

func (s *PostgresStore) Configuration(ctx context.Context) (marketdata.Map, error) {
	return s.load(ctx, KindConfiguration)
}

func (s *PostgresStore) SaveMarketData(ctx context.Context, m marketdata.Map) error {
	return s.save(ctx, KindMarketData, m)
}

func (s *PostgresStore) MarketData(ctx context.Context) (marketdata.Map, error) {
	return s.load(ctx, KindMarketData)
}

func (s *PostgresStore) save(ctx context.Context, kind string, m marketdata.Map) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save %s snapshot: %w", kind, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM snapshots WHERE kind = $1`, kind); err != nil {
		return fmt.Errorf("save %s snapshot: %w", kind, err)
	}

	for key, value := range m {
		if _, err := tx.Exec(ctx,
			`INSERT INTO snapshots (kind, key, value) VALUES ($1, $2, $3)`,
			kind, key, value); err != nil {
			return fmt.Errorf("save %s snapshot key %s: %w", kind, key, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) load(ctx context.Context, kind string) (marketdata.Map, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM snapshots WHERE kind = $1`, kind)
	if err != nil {
		return nil, fmt.Errorf("load %s snapshot: %w", kind, err)
	}
	defer rows.Close()

	m := make(marketdata.Map)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("load %s snapshot: %w", kind, err)
		}
		m[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s snapshot: %w", kind, err)
	}
	if len(m) == 0 {
		return nil, ErrNotFound
	}
	return m, nil
}
