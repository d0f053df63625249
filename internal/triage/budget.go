package triage

import (
	"context"
	"time"

	"sieve/internal/config"
)

// Ledger records automatic actions and counts them over a window.
type Ledger interface {
	PutAction(ctx context.Context, ts time.Time, typ, articleID string) error
	CountActionsWithin(ctx context.Context, start, end time.Time, typ string) (int, error)
}

// withinBudget checks the hourly and daily budgets for typ. Windows are
// calendar hour and calendar day in UTC.
func withinBudget(ctx context.Context, l Ledger, b config.Budget, typ string, now time.Time) (bool, error) {
	if b.MaxPerHour <= 0 && b.MaxPerDay <= 0 {
		return true, nil
	}
	now = now.UTC()
	startHour := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, time.UTC)
	startDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if b.MaxPerHour > 0 {
		n, err := l.CountActionsWithin(ctx, startHour, startHour.Add(time.Hour), typ)
		if err != nil {
			return false, err
		}
		if n >= b.MaxPerHour {
			return false, nil
		}
	}
	if b.MaxPerDay > 0 {
		n, err := l.CountActionsWithin(ctx, startDay, startDay.Add(24*time.Hour), typ)
		if err != nil {
			return false, err
		}
		if n >= b.MaxPerDay {
			return false, nil
		}
	}
	return true, nil
}
