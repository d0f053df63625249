package jobs

import (
	"context"
	"fmt"
	"time"

	"sieve/internal/logging"
	"sieve/internal/metrics"
	"sieve/internal/model"
)

// ExampleSource yields the full labeled history.
type ExampleSource interface {
	LoadExamples(ctx context.Context) ([]model.TrainingExample, error)
}

// Retrainer rebuilds the model from a full history.
type Retrainer interface {
	FullRetrain(ctx context.Context, examples []model.TrainingExample) (bool, error)
}

// RunRetrainOnce loads every label and runs a full retrain. Too few labels
// is not an error; the run is logged as skipped.
func RunRetrainOnce(ctx context.Context, src ExampleSource, r Retrainer, log *logging.Logger) error {
	log = logging.OrNop(log)
	metrics.RetrainJobRuns.Inc()
	start := time.Now()

	examples, err := src.LoadExamples(ctx)
	if err != nil {
		metrics.RetrainJobErrors.Inc()
		return fmt.Errorf("load examples: %w", err)
	}
	trained, err := r.FullRetrain(ctx, examples)
	if err != nil {
		metrics.RetrainJobErrors.Inc()
		return fmt.Errorf("full retrain: %w", err)
	}
	approved, junk := model.CountLabels(examples)
	log.Info("retrain_once",
		"trained", trained,
		"approved", approved,
		"junk", junk,
		"duration", time.Since(start))
	return nil
}

// RunRetrainLoop runs RunRetrainOnce immediately and then on every tick
// until ctx is cancelled.
func RunRetrainLoop(ctx context.Context, src ExampleSource, r Retrainer, interval time.Duration, log *logging.Logger) error {
	log = logging.OrNop(log)
	t := time.NewTicker(interval)
	defer t.Stop()

	if err := RunRetrainOnce(ctx, src, r, log); err != nil {
		log.Error("retrain_once_error", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			log.Info("retrain_loop_stop")
			return ctx.Err()
		case <-t.C:
			if err := RunRetrainOnce(ctx, src, r, log); err != nil {
				log.Error("retrain_once_error", "error", err)
			}
		}
	}
}
