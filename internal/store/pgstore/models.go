package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"sieve/internal/nn"
)

// SaveModel deactivates the active model and inserts m as active in one
// transaction.
func (db *DB) SaveModel(ctx context.Context, m *nn.Model) error {
	state, err := nn.MarshalState(m)
	if err != nil {
		return fmt.Errorf("pgstore: save model: %w", err)
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
	id := uuid.New()

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `UPDATE sieve_models SET is_active = FALSE WHERE is_active`); err != nil {
		return fmt.Errorf("pgstore: deactivate models: %w", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO sieve_models (id, version, is_active, input_size, training_count, state, created_at, updated_at)
		 VALUES ($1, 1, TRUE, $2, $3, $4, $5, $6)`,
		id, m.Net.InputSize, m.TrainingCount, state, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("pgstore: insert model: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgstore: commit model: %w", err)
	}
	m.ID, m.Version = id, 1
	return nil
}

// UpdateModel is a compare-and-swap on (id, version) of the active row.
func (db *DB) UpdateModel(ctx context.Context, m *nn.Model) error {
	state, err := nn.MarshalState(m)
	if err != nil {
		return fmt.Errorf("pgstore: update model: %w", err)
	}
	result, err := db.pool.Exec(ctx,
		`UPDATE sieve_models SET state = $1, training_count = $2, updated_at = $3, version = version + 1
		 WHERE id = $4 AND version = $5 AND is_active`,
		state, m.TrainingCount, m.UpdatedAt, m.ID, m.Version,
	)
	if err != nil {
		return fmt.Errorf("pgstore: update model: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nn.ErrStaleModel
	}
	m.Version++
	return nil
}

// LoadActiveModel returns nil, nil when no model is active.
func (db *DB) LoadActiveModel(ctx context.Context) (*nn.Model, error) {
	var (
		id               uuid.UUID
		version          int64
		state            []byte
		created, updated time.Time
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, version, state, created_at, updated_at FROM sieve_models WHERE is_active`,
	).Scan(&id, &version, &state, &created, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: load active model: %w", err)
	}
	m, err := nn.UnmarshalState(state)
	if err != nil {
		return nil, fmt.Errorf("pgstore: model %s: %w", id, err)
	}
	m.ID, m.Version = id, version
	m.CreatedAt, m.UpdatedAt = created.UTC(), updated.UTC()
	return m, nil
}
