package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sieve/internal/nn"
)

// SaveModel deactivates the current active model and inserts m as the new
// active one in a single transaction. On success m.ID and m.Version are set.
func (d *DB) SaveModel(ctx context.Context, m *nn.Model) error {
	state, err := nn.MarshalState(m)
	if err != nil {
		return fmt.Errorf("sqlitestore: save model: %w", err)
	}
	id := uuid.New()
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE models SET is_active = 0 WHERE is_active = 1`); err != nil {
		return fmt.Errorf("sqlitestore: deactivate models: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO models(id, version, is_active, input_size, training_count, state, created_at, updated_at)
		 VALUES(?, 1, 1, ?, ?, ?, ?, ?)`,
		id.String(), m.Net.InputSize, m.TrainingCount, string(state), m.CreatedAt.Unix(), m.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("sqlitestore: insert model: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit model: %w", err)
	}
	m.ID, m.Version = id, 1
	return nil
}

// UpdateModel overwrites the active model in place when its stored version
// still equals m.Version. A concurrent writer yields nn.ErrStaleModel.
func (d *DB) UpdateModel(ctx context.Context, m *nn.Model) error {
	state, err := nn.MarshalState(m)
	if err != nil {
		return fmt.Errorf("sqlitestore: update model: %w", err)
	}
	res, err := d.sql.ExecContext(ctx,
		`UPDATE models SET state = ?, training_count = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ? AND is_active = 1`,
		string(state), m.TrainingCount, m.UpdatedAt.Unix(), m.ID.String(), m.Version)
	if err != nil {
		return fmt.Errorf("sqlitestore: update model: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitestore: update model: %w", err)
	}
	if n == 0 {
		return nn.ErrStaleModel
	}
	m.Version++
	return nil
}

// LoadActiveModel returns the active model, or nil, nil when none exists.
// Undecodable state wraps nn.ErrCorruptModel.
func (d *DB) LoadActiveModel(ctx context.Context) (*nn.Model, error) {
	var (
		id, state        string
		version          int64
		created, updated int64
	)
	err := d.sql.QueryRowContext(ctx,
		`SELECT id, version, state, created_at, updated_at FROM models WHERE is_active = 1`,
	).Scan(&id, &version, &state, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: load active model: %w", err)
	}
	m, err := nn.UnmarshalState([]byte(state))
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: model %s: %w", id, err)
	}
	if m.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("sqlitestore: model id %q: %w: %v", id, nn.ErrCorruptModel, err)
	}
	m.Version = version
	m.CreatedAt = time.Unix(created, 0).UTC()
	m.UpdatedAt = time.Unix(updated, 0).UTC()
	return m, nil
}

// CountModels returns the number of stored models, active or not.
func (d *DB) CountModels(ctx context.Context) (int, error) {
	var n int
	if err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM models`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlitestore: count models: %w", err)
	}
	return n, nil
}
