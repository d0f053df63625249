package sqlitestore

import (
	"context"
	"fmt"
	"time"

	"sieve/internal/model"
)

// PutExample appends a labeled example and returns its row id.
func (d *DB) PutExample(ctx context.Context, e model.TrainingExample) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO examples(title, description, source_name, notes, label, created_at) VALUES(?,?,?,?,?,?)`,
		e.Title, e.Description, e.SourceName, e.Notes, int(e.Label), time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: put example: %w", err)
	}
	return res.LastInsertId()
}

// LoadExamples returns every labeled example in insertion order.
func (d *DB) LoadExamples(ctx context.Context) ([]model.TrainingExample, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT title, description, source_name, notes, label FROM examples ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: load examples: %w", err)
	}
	defer rows.Close()
	var out []model.TrainingExample
	for rows.Next() {
		var e model.TrainingExample
		var label int
		if err := rows.Scan(&e.Title, &e.Description, &e.SourceName, &e.Notes, &label); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan example: %w", err)
		}
		e.Label = model.Label(label)
		out = append(out, e)
	}
	return out, rows.Err()
}
