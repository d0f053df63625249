package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TrainingRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sieve_training_runs_total",
		Help: "Total training runs by kind (full, incremental)",
	}, []string{"kind"})
	TrainingErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sieve_training_errors_total",
		Help: "Total failed training runs by kind",
	}, []string{"kind"})
	TrainingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sieve_training_duration_seconds",
		Help:    "Training duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	ModelSaveErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sieve_model_save_errors_total",
		Help: "Total failures persisting a trained model",
	})
	ScoredArticles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sieve_scored_articles_total",
		Help: "Articles scored by source (neural network, keyword, neutral)",
	}, []string{"source"})
	NeutralFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sieve_neutral_fallbacks_total",
		Help: "Articles given neutral confidence by reason",
	}, []string{"reason"})
	TriageActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sieve_triage_actions_total",
		Help: "Effective triage actions by kind",
	}, []string{"action"})
	RetrainJobRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sieve_retrain_job_runs_total",
		Help: "Total scheduled retrain job runs",
	})
	RetrainJobErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sieve_retrain_job_errors_total",
		Help: "Total scheduled retrain job errors",
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sieve_command_runs_total",
		Help: "CLI command runs",
	}, []string{"cmd"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sieve_command_errors_total",
		Help: "CLI command errors",
	}, []string{"cmd"})
	WebhookRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sieve_webhook_retries_total",
		Help: "Total summary webhook retry attempts",
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(TrainingRuns, TrainingErrors, TrainingDuration, ModelSaveErrors,
		ScoredArticles, NeutralFallbacks, TriageActions, RetrainJobRuns, RetrainJobErrors,
		CommandRuns, CommandErrors, WebhookRetries)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) *http.Server {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

// ObserveTraining records a training run's duration and outcome.
func ObserveTraining(kind string, start time.Time, err error) {
	TrainingRuns.WithLabelValues(kind).Inc()
	TrainingDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		TrainingErrors.WithLabelValues(kind).Inc()
	}
}

// IncWebhookRetry increments the retry counter for an endpoint.
func IncWebhookRetry(endpoint string) { WebhookRetries.WithLabelValues(endpoint).Inc() }
