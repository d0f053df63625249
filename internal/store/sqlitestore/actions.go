package sqlitestore

import (
	"context"
	"fmt"
	"time"
)

// PutAction records one triage action at ts.
func (d *DB) PutAction(ctx context.Context, ts time.Time, typ, articleID string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO actions(ts, type, article_id) VALUES(?,?,?)`, ts.Unix(), typ, articleID)
	if err != nil {
		return fmt.Errorf("sqlitestore: put action: %w", err)
	}
	return nil
}

// CountActionsWithin counts actions of typ in [start, end).
func (d *DB) CountActionsWithin(ctx context.Context, start, end time.Time, typ string) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM actions WHERE type = ? AND ts >= ? AND ts < ?`, typ, start.Unix(), end.Unix(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: count actions: %w", err)
	}
	return n, nil
}
