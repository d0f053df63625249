package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"sieve/internal/config"
	"sieve/internal/logging"
	"sieve/internal/model"
	"sieve/internal/nn"
	"sieve/internal/scorer"
	"sieve/internal/store/pgstore"
	"sieve/internal/store/sqlitestore"
	"sieve/internal/triage"
)

// backend is what both storage drivers provide.
type backend interface {
	nn.ModelStore
	triage.Ledger
	PutExample(ctx context.Context, e model.TrainingExample) (int64, error)
	LoadExamples(ctx context.Context) ([]model.TrainingExample, error)
}

// app holds the wired components shared by every subcommand.
type app struct {
	cfg     config.Config
	log     *logging.Logger
	store   backend
	trainer *nn.Trainer
	scorer  *scorer.Scorer
	closeFn func()
}

// loadConfig reads cfgPath, falling back to defaults when the file does not
// exist.
func loadConfig(path string) (config.Config, bool, error) {
	cfg, err := config.Load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
		cfg.ResolveEnv()
		return cfg, false, cfg.Validate()
	case err != nil:
		return cfg, false, err
	}
	return cfg, true, cfg.Validate()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, found, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Logging.Mode)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if !found {
		log.Info("config_not_found_using_defaults", "path", cfgPath)
	}

	a := &app{cfg: cfg, log: log}
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := pgstore.Connect(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.store, a.closeFn = db, db.Close
	default:
		db, err := sqlitestore.Open(cfg.Storage.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Storage.DBPath, err)
		}
		a.store, a.closeFn = db, func() { _ = db.Close() }
	}

	opts := []nn.TrainerOption{
		nn.WithHistory(a.store),
		nn.WithLogger(log),
	}
	if cfg.Training.MaxFeatures > 0 {
		opts = append(opts, nn.WithMaxFeatures(cfg.Training.MaxFeatures))
	}
	if cfg.Training.Seed != 0 {
		opts = append(opts, nn.WithSeed(cfg.Training.Seed))
	}
	a.trainer = nn.NewTrainer(a.store, opts...)
	a.scorer = scorer.New(a.store, a.trainer, log)
	log.Debug("app_ready", "driver", cfg.Storage.Driver)
	return a, nil
}

func (a *app) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
	a.log.Sync()
}
