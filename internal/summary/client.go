// Package summary requests article summaries from an external webhook.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"sieve/internal/config"
	"sieve/internal/logging"
	"sieve/internal/metrics"
	"sieve/internal/model"
)

// ErrDisabled is returned when no webhook URL is configured.
var ErrDisabled = errors.New("summary: webhook not configured")

// Summary is the text returned for one article.
type Summary struct {
	ArticleID string `json:"article_id,omitempty"`
	Text      string `json:"summary"`
	Shape     Shape  `json:"shape"`
}

// Client posts articles to the webhook with rate limiting and retries on
// 429 and 5xx.
type Client struct {
	url         string
	apiKey      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	log         *logging.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

func WithBackoff(d time.Duration) Option { return func(c *Client) { c.baseBackoff = d } }

func New(cfg config.SummaryConfig, log *logging.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	attempts := cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	c := &Client{
		url:         cfg.WebhookURL,
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(limit, 1),
		maxAttempts: attempts,
		baseBackoff: 500 * time.Millisecond,
		log:         logging.OrNop(log).With("component", "summary"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Enabled reports whether a webhook is configured.
func (c *Client) Enabled() bool { return c.url != "" }

// Summarize posts a and decodes the summary from the response.
func (c *Client) Summarize(ctx context.Context, a model.Article) (Summary, error) {
	if !c.Enabled() {
		return Summary{}, ErrDisabled
	}
	body, err := json.Marshal(a)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: encode article: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Summary{}, fmt.Errorf("summary: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return Summary{}, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Summary{}, fmt.Errorf("summary: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Summary{}, fmt.Errorf("summary: webhook status %d", resp.StatusCode)
	}
	text, shape, err := Extract(raw)
	if err != nil {
		c.log.Warn("summary_unrecognized_response", "article_id", a.ID, "bytes", len(raw))
		return Summary{}, err
	}
	return Summary{ArticleID: a.ID, Text: text, Shape: shape}, nil
}

// doWithRetry sends req, retrying 429 and 5xx responses and transport
// errors. Every attempt, retries included, waits on the rate limiter.
func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncWebhookRetry(endpointLabel(c.url))
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("summary: rate limit: %w", err)
		}
		r := req.Clone(ctx)
		if req.GetBody != nil {
			r.Body, _ = req.GetBody()
		}
		resp, err := c.httpClient.Do(r)
		if err != nil {
			lastErr = err
			if attempt == c.maxAttempts {
				break
			}
			if !sleep(ctx, backoff) {
				return nil, ctx.Err()
			}
			backoff *= 2
			continue
		}
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return resp, nil
		}
		lastErr = fmt.Errorf("webhook status %d", resp.StatusCode)
		wait := retryAfter(resp.Header.Get("Retry-After"), backoff)
		_ = resp.Body.Close()
		c.log.Debug("summary_retry", "attempt", attempt, "status", resp.StatusCode, "wait", wait)
		if attempt == c.maxAttempts {
			break
		}
		if !sleep(ctx, jitter(wait)) {
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("summary: request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func retryAfter(h string, def time.Duration) time.Duration {
	if h == "" {
		return def
	}
	if secs, err := strconv.Atoi(h); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return def
}

// jitter spreads d by +/-20%.
func jitter(d time.Duration) time.Duration {
	j := time.Duration(float64(d) * 0.2)
	if j <= 0 {
		return d
	}
	return d - j + time.Duration(rand.Int64N(int64(2*j)))
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func endpointLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid"
	}
	return u.Host
}
