// Package sourcehttp is the shared GET transport for the player data sources:
// retries with linear backoff, a circuit breaker and an optional rate limit.
package sourcehttp

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/logging"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/resilience"
	"github.com/riskibarqy/fantasy-player-mapper/internal/usecase"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultBackoff   = time.Second
	defaultUserAgent = "fantasy-player-mapper/1.0"
	maxBodyBytes     = 16 << 20
)

var errTransient = crerr.New("source transient failure")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status=%d body=%s", e.StatusCode, e.Body)
}

type Config struct {
	Name              string
	HTTPClient        *http.Client
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	Backoff           time.Duration
	RequestsPerMinute int
	UserAgent         string
	Logger            *logging.Logger
	Breaker           resilience.BreakerConfig
}

type Client struct {
	name       string
	httpClient *http.Client
	baseURL    string
	maxRetries int
	backoff    time.Duration
	userAgent  string
	limiter    *rate.Limiter
	breaker    *resilience.Breaker
	logger     *logging.Logger
}

func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	breaker := resilience.NewBreaker(cfg.Name, cfg.Breaker)
	breaker.OnStateChange(func(name string, from, to resilience.State) {
		logger.Warn("source circuit breaker state changed", "source", name, "from", from, "to", to)
	})

	return &Client{
		name:       cfg.Name,
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		maxRetries: max(cfg.MaxRetries, 0),
		backoff:    backoff,
		userAgent:  userAgent,
		limiter:    limiter,
		breaker:    breaker,
		logger:     logger,
	}
}

// GetJSON fetches path and decodes the body into target. The raw body is
// returned for payload archiving.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, target any) ([]byte, error) {
	raw, err := c.Get(ctx, path, query, "application/json")
	if err != nil {
		return nil, err
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", c.name, err)
	}
	return raw, nil
}

// Get fetches path relative to the base URL. Network errors, 429 and 5xx are
// retried; an open breaker fails fast with usecase.ErrDependencyUnavailable.
func (c *Client) Get(ctx context.Context, path string, query url.Values, accept string) ([]byte, error) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "source circuit breaker rejected request", "source", c.name, "state", c.breaker.State())
		return nil, fmt.Errorf("%w: %s is temporarily unavailable", usecase.ErrDependencyUnavailable, c.name)
	}

	fullURL := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	raw, err := c.execute(ctx, fullURL, accept)
	c.breaker.Record(err, IsTransient)
	return raw, err
}

func (c *Client) execute(ctx context.Context, fullURL, accept string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		raw, err := c.do(ctx, fullURL, accept)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return nil, err
		}

		if attempt == c.maxRetries {
			break
		}
		c.logger.DebugContext(ctx, "retrying source request", "source", c.name, "attempt", attempt+1, "error", err)
		timer := time.NewTimer(time.Duration(attempt+1) * c.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "source request failed", "source", c.name, "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, fullURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, crerr.Mark(fmt.Errorf("send request: %w", err), errTransient)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, crerr.Mark(fmt.Errorf("read response body: %w", err), errTransient)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: abbreviate(raw)}
		if isRetryableStatus(resp.StatusCode) {
			return nil, crerr.Mark(statusErr, errTransient)
		}
		return nil, statusErr
	}
	return raw, nil
}

// IsTransient reports whether err is worth retrying and counts against the
// breaker.
func IsTransient(err error) bool {
	return err != nil && crerr.Is(err, errTransient)
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if stderrors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviate(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
