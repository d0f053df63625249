// Package triage turns score results into automatic actions and keeps the
// destructive ones within hourly and daily budgets.
package triage

import (
	"context"
	"fmt"
	"time"

	"sieve/internal/config"
	"sieve/internal/logging"
	"sieve/internal/metrics"
	"sieve/internal/model"
)

type Action string

const (
	ActionNone   Action = "none"
	ActionFlag   Action = "flag"
	ActionJunk   Action = "junk"
	ActionDelete Action = "delete"
)

// Decide maps a result to the strongest action its thresholds allow.
func Decide(r model.ScoreResult) Action {
	switch {
	case r.ShouldAutoDelete:
		return ActionDelete
	case r.ShouldAutoJunk():
		return ActionJunk
	case r.ShouldAutoFlag:
		return ActionFlag
	default:
		return ActionNone
	}
}

// Gate applies budgets before recording an action.
type Gate struct {
	ledger Ledger
	cfg    config.TriageConfig
	log    *logging.Logger
}

func NewGate(l Ledger, cfg config.TriageConfig, log *logging.Logger) *Gate {
	return &Gate{ledger: l, cfg: cfg, log: logging.OrNop(log).With("component", "triage")}
}

// Apply decides the action for r, downgrading delete to junk and junk to
// none when their budget is spent, and records the effective action.
// Flags are not budgeted.
func (g *Gate) Apply(ctx context.Context, now time.Time, r model.ScoreResult) (Action, error) {
	act := Decide(r)
	if act == ActionDelete {
		ok, err := withinBudget(ctx, g.ledger, g.cfg.Delete, string(ActionDelete), now)
		if err != nil {
			return ActionNone, fmt.Errorf("triage: delete budget: %w", err)
		}
		if !ok {
			g.log.Info("delete_budget_exhausted", "article_id", r.ArticleID)
			act = ActionJunk
		}
	}
	if act == ActionJunk {
		ok, err := withinBudget(ctx, g.ledger, g.cfg.Junk, string(ActionJunk), now)
		if err != nil {
			return ActionNone, fmt.Errorf("triage: junk budget: %w", err)
		}
		if !ok {
			g.log.Info("junk_budget_exhausted", "article_id", r.ArticleID)
			act = ActionNone
		}
	}
	if act != ActionNone {
		if err := g.ledger.PutAction(ctx, now, string(act), r.ArticleID); err != nil {
			return ActionNone, fmt.Errorf("triage: record %s: %w", act, err)
		}
	}
	metrics.TriageActions.WithLabelValues(string(act)).Inc()
	return act, nil
}

// ApplyAll runs Apply over a batch and stops at the first ledger error.
func (g *Gate) ApplyAll(ctx context.Context, now time.Time, results []model.ScoreResult) ([]Action, error) {
	out := make([]Action, 0, len(results))
	for _, r := range results {
		a, err := g.Apply(ctx, now, r)
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}
