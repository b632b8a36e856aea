package sourcehttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/logging"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/resilience"
	"github.com/riskibarqy/fantasy-player-mapper/internal/usecase"
)

func newTestClient(baseURL string, retries int, breaker resilience.BreakerConfig) *Client {
	return New(Config{
		Name:       "test-source",
		BaseURL:    baseURL,
		MaxRetries: retries,
		Backoff:    time.Millisecond,
		Logger:     logging.NewNop(),
		Breaker:    breaker,
	})
}

func TestGetJSON_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/players" || r.URL.Query().Get("season") != "2024" {
			t.Errorf("unexpected request: %s", r.URL.String())
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"count": 2}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL+"/", 2, resilience.BreakerConfig{})

	var out struct {
		Count int `json:"count"`
	}
	raw, err := client.GetJSON(context.Background(), "/api/players", url.Values{"season": {"2024"}}, &out)
	if err != nil {
		t.Fatalf("get json: %v", err)
	}
	if out.Count != 2 || string(raw) != `{"count": 2}` {
		t.Fatalf("unexpected payload: %+v raw=%s", out, raw)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestGet_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3, resilience.BreakerConfig{})

	_, err := client.Get(context.Background(), "element-summary/1/", nil, "")
	if StatusCode(err) != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if IsTransient(err) {
		t.Fatalf("404 must not be transient")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected single call, got %d", got)
	}
}

func TestGet_BreakerOpensOnTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0, resilience.BreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
		OpenTimeout:      time.Minute,
	})

	_, err := client.Get(context.Background(), "/bootstrap-static/", nil, "")
	if !IsTransient(err) || StatusCode(err) != http.StatusBadGateway {
		t.Fatalf("expected transient 502, got %v", err)
	}

	_, err = client.Get(context.Background(), "/bootstrap-static/", nil, "")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable once open, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected breaker to short-circuit second call, got %d calls", got)
	}
}

func TestGet_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(Config{
		Name:       "test-source",
		BaseURL:    server.URL,
		MaxRetries: 5,
		Backoff:    time.Hour,
		Logger:     logging.NewNop(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Get(ctx, "/", nil, ""); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestGetJSON_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0, resilience.BreakerConfig{})

	var out map[string]any
	if _, err := client.GetJSON(context.Background(), "/", nil, &out); err == nil {
		t.Fatalf("expected decode error")
	}
}
