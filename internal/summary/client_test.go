package summary

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sieve/internal/config"
	"sieve/internal/model"
)

func TestExtractShapes(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		text  string
		shape Shape
	}{
		{"summary", `{"summary":"Chip output rises."}`, "Chip output rises.", ShapeSummary},
		{"output_text", `{"id":"r1","output_text":" Fabs expand. "}`, "Fabs expand.", ShapeOutputText},
		{"chat", `{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":"New node."}}]}`, "New node.", ShapeChatChoices},
		{"list", `[{"output":"Short take."},{"output":"ignored"}]`, "Short take.", ShapeOutputList},
		{"empty summary falls through", `{"summary":"","output_text":"fallback"}`, "fallback", ShapeOutputText},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			text, shape, err := Extract([]byte(c.body))
			require.NoError(t, err)
			assert.Equal(t, c.text, text)
			assert.Equal(t, c.shape, shape)
		})
	}
}

func TestExtractRejectsUnknownShapes(t *testing.T) {
	for _, body := range []string{
		`{}`,
		`{"summary": 42}`,
		`{"choices":[{"message":{"content":[{"type":"text","text":"nested"}]}}]}`,
		`{"choices":[]}`,
		`[]`,
		`[{"text":"nope"}]`,
		`"plain string"`,
		`not json`,
	} {
		_, _, err := Extract([]byte(body))
		assert.ErrorIs(t, err, ErrUnrecognizedResponse, body)
	}
}

func newClient(url string, retries int) *Client {
	return New(config.SummaryConfig{WebhookURL: url, APIKey: "k", MaxRetries: retries}, nil, WithBackoff(time.Millisecond))
}

func TestSummarizePostsArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var a model.Article
		require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		assert.Equal(t, "Chip news", a.Title)
		_, _ = w.Write([]byte(`{"summary":"A chip story."}`))
	}))
	defer srv.Close()

	s, err := newClient(srv.URL, 0).Summarize(context.Background(), model.Article{ID: "a1", Title: "Chip news"})
	require.NoError(t, err)
	assert.Equal(t, Summary{ArticleID: "a1", Text: "A chip story.", Shape: ShapeSummary}, s)
}

func TestSummarizeRetriesOn429And5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a model.Article
		require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`[{"output":"third time lucky"}]`))
		}
	}))
	defer srv.Close()

	s, err := newClient(srv.URL, 3).Summarize(context.Background(), model.Article{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", s.Text)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestSummarizeGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, 2).Summarize(context.Background(), model.Article{Title: "x"})
	require.Error(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestSummarizeRetriesWaitOnRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"summary":"ok"}`))
	}))
	defer srv.Close()

	// 600/min is one request per 100ms with a burst of one.
	c := New(config.SummaryConfig{WebhookURL: srv.URL, MaxRetries: 2, RequestsPerMinute: 600}, nil, WithBackoff(time.Millisecond))
	start := time.Now()
	_, err := c.Summarize(context.Background(), model.Article{Title: "x"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}

func TestSummarizeNegativeRetriesStillAttemptsOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, -4).Summarize(context.Background(), model.Article{Title: "x"})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.NotContains(t, err.Error(), "%!w")
	assert.Contains(t, err.Error(), "status 503")
}

func TestSummarizeClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, 3).Summarize(context.Background(), model.Article{Title: "x"})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSummarizeUnrecognized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"text":"nested"}}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, 0).Summarize(context.Background(), model.Article{Title: "x"})
	assert.True(t, errors.Is(err, ErrUnrecognizedResponse))
}

func TestSummarizeDisabled(t *testing.T) {
	c := New(config.SummaryConfig{}, nil)
	assert.False(t, c.Enabled())
	_, err := c.Summarize(context.Background(), model.Article{Title: "x"})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, retryAfter("2", time.Millisecond))
	assert.Equal(t, time.Millisecond, retryAfter("", time.Millisecond))
	assert.Equal(t, time.Millisecond, retryAfter("garbage", time.Millisecond))
}
