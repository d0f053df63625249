package pgstore

import (
	"context"
	"fmt"
	"time"

	"sieve/internal/model"
)

// PutExample appends a labeled example and returns its id.
func (db *DB) PutExample(ctx context.Context, e model.TrainingExample) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx,
		`INSERT INTO sieve_examples (title, description, source_name, notes, label)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		e.Title, e.Description, e.SourceName, e.Notes, int16(e.Label),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("pgstore: put example: %w", err)
	}
	return id, nil
}

// LoadExamples returns the labeled history in insertion order.
func (db *DB) LoadExamples(ctx context.Context) ([]model.TrainingExample, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT title, description, source_name, notes, label FROM sieve_examples ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: load examples: %w", err)
	}
	defer rows.Close()

	var out []model.TrainingExample
	for rows.Next() {
		var e model.TrainingExample
		var label int16
		if err := rows.Scan(&e.Title, &e.Description, &e.SourceName, &e.Notes, &label); err != nil {
			return nil, fmt.Errorf("pgstore: scan example: %w", err)
		}
		e.Label = model.Label(label)
		out = append(out, e)
	}
	return out, rows.Err()
}

// PutAction records a triage action.
func (db *DB) PutAction(ctx context.Context, ts time.Time, typ, articleID string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO sieve_actions (ts, type, article_id) VALUES ($1, $2, $3)`, ts, typ, articleID)
	if err != nil {
		return fmt.Errorf("pgstore: put action: %w", err)
	}
	return nil
}

// CountActionsWithin counts actions of typ in [start, end).
func (db *DB) CountActionsWithin(ctx context.Context, start, end time.Time, typ string) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sieve_actions WHERE type = $1 AND ts >= $2 AND ts < $3`, typ, start, end,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pgstore: count actions: %w", err)
	}
	return n, nil
}
