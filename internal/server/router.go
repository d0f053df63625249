package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"sieve/internal/config"
	"sieve/internal/logging"
)

// NewRouter builds the gin engine for h.
func NewRouter(h *Handler, cfg config.ServerConfig, log *logging.Logger) *gin.Engine {
	log = logging.OrNop(log)
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLog(log))
	if len(cfg.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.AllowOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Content-Type", "Authorization", RequestIDHeader},
			ExposeHeaders: []string{RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	router.GET("/health", h.Health)
	api := router.Group("/api")
	{
		api.POST("/score", h.Score)
		api.POST("/summarize", h.Summarize)

		train := api.Group("/")
		train.Use(RateLimit(trainLimiter(cfg)))
		train.POST("/labels", h.Label)
		train.POST("/retrain", h.Retrain)
	}
	return router
}

func trainLimiter(cfg config.ServerConfig) *rate.Limiter {
	if cfg.TrainPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.TrainBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.TrainPerMinute)), burst)
}

// RateLimit rejects requests with 429 once l is exhausted.
func RateLimit(l *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow() {
			RespondError(c, http.StatusTooManyRequests, CodeRateLimited, errors.New("training rate limit exceeded"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func requestLog(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http_request",
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// ListenAndServe runs handler on addr until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, log *logging.Logger) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logging.OrNop(log).Info("http_listen", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
