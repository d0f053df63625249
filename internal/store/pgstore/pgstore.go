// Package pgstore is the PostgreSQL implementation of the model, example and
// action stores, for deployments where several processes share one database.
package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS sieve_models (
	id UUID PRIMARY KEY,
	version BIGINT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT FALSE,
	input_size INTEGER NOT NULL,
	training_count BIGINT NOT NULL,
	state JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS sieve_models_one_active ON sieve_models (is_active) WHERE is_active;
CREATE TABLE IF NOT EXISTS sieve_examples (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	source_name TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	label SMALLINT NOT NULL CHECK (label IN (0, 1)),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS sieve_actions (
	id BIGSERIAL PRIMARY KEY,
	ts TIMESTAMPTZ NOT NULL,
	type TEXT NOT NULL,
	article_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS sieve_actions_type_ts ON sieve_actions (type, ts);
`

// Connect establishes a connection pool and applies the schema.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	db := &DB{pool: pool}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: migrate: %w", err)
	}
	return db, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}
