package cmdlog

import (
	"time"

	"sieve/internal/logging"
	"sieve/internal/metrics"
)

// Run executes f as the named command, counting runs and errors and
// logging the outcome.
func Run(log *logging.Logger, cmd string, f func() error) error {
	log = logging.OrNop(log)
	metrics.CommandRuns.WithLabelValues(cmd).Inc()
	start := time.Now()
	err := f()
	if err != nil {
		metrics.CommandErrors.WithLabelValues(cmd).Inc()
		log.Error(cmd+"_error", "error", err, "duration", time.Since(start))
	} else {
		log.Info(cmd+"_ok", "duration", time.Since(start))
	}
	return err
}
