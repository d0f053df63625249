package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sieve/internal/jobs"
	"sieve/internal/metrics"
	"sieve/internal/schedule"
	"sieve/internal/server"
	"sieve/internal/summary"
	"sieve/internal/triage"
)

var (
	serveAddr         string
	serveRetrainEvery time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, metrics and scheduled retraining",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().DurationVar(&serveRetrainEvery, "retrain-every", 0, "retrain on a fixed interval instead of the cron schedule")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	gate := triage.NewGate(a.store, a.cfg.Triage, a.log)
	sum := summary.New(a.cfg.Summary, a.log)
	h := server.NewHandler(a.scorer, a.store, gate, sum, a.log).
		WithDefaultEpochs(a.cfg.Training.IncrementalEpochs)
	router := server.NewRouter(h, a.cfg.Server, a.log)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return server.ListenAndServe(ctx, addr, router, a.log)
	})

	if srv := metrics.StartServer(a.cfg.Server.MetricsAddr); srv != nil {
		a.log.Info("metrics_listen", "addr", srv.Addr)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	switch {
	case serveRetrainEvery > 0:
		g.Go(func() error {
			err := jobs.RunRetrainLoop(ctx, a.store, a.scorer, serveRetrainEvery, a.log)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	case a.cfg.Training.RetrainSchedule != "":
		sched, err := schedule.New(a.cfg.Training.Timezone, a.log)
		if err != nil {
			return err
		}
		err = sched.Schedule(a.cfg.Training.RetrainSchedule, func() {
			if err := jobs.RunRetrainOnce(ctx, a.store, a.scorer, a.log); err != nil {
				a.log.Error("scheduled_retrain_failed", "error", err)
			}
		})
		if err != nil {
			return err
		}
		sched.Start()
		g.Go(func() error {
			<-ctx.Done()
			sched.Stop()
			return nil
		})
	}

	a.log.Info("serve_started", "addr", addr, "summary_enabled", sum.Enabled())
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.log.Info("serve_stopped")
	return nil
}
