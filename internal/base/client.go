// Package base provides the HTTP plumbing underneath the wiki client: pacing,
// retries, Retry-After handling, session cookies and the circuit breaker.
package base

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/olgasafonova/mediawiki-mcp-server/internal/infra"
	"github.com/olgasafonova/mediawiki-mcp-server/metrics"
)

const (
	// DefaultTimeout for API requests
	DefaultTimeout = 15 * time.Second

	// DefaultMaxRetry is the number of attempts per request
	DefaultMaxRetry = 3

	// DefaultUserAgent identifies the client when none is configured
	DefaultUserAgent = "mediawiki-mcp-server/1.0 (https://github.com/olgasafonova/mediawiki-mcp-server)"
)

// Client sends MediaWiki API requests. It is safe to share between goroutines,
// but the wiki layer above it is not.
type Client struct {
	HTTPClient     *http.Client
	Logger         *slog.Logger
	CircuitBreaker *infra.CircuitBreaker
	Limiter        *rate.Limiter // nil disables pacing
	UserAgent      string
	MaxRetry       int
	RetryBackoff   time.Duration
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.HTTPClient = c
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.Logger = l
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		if d > 0 {
			client.HTTPClient.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(client *Client) {
		if ua != "" {
			client.UserAgent = ua
		}
	}
}

// WithMaxRetry sets the number of attempts per request
func WithMaxRetry(n int) ClientOption {
	return func(client *Client) {
		if n > 0 {
			client.MaxRetry = n
		}
	}
}

// WithRetryBackoff sets the base delay between attempts. Attempt n waits n*n*base.
func WithRetryBackoff(d time.Duration) ClientOption {
	return func(client *Client) {
		client.RetryBackoff = d
	}
}

// WithRateLimit enforces a minimum interval between consecutive requests
func WithRateLimit(minWait time.Duration) ClientOption {
	return func(client *Client) {
		if minWait > 0 {
			client.Limiter = rate.NewLimiter(rate.Every(minWait), 1)
		}
	}
}

// WithCircuitBreaker sets a custom circuit breaker
func WithCircuitBreaker(cb *infra.CircuitBreaker) ClientOption {
	return func(client *Client) {
		client.CircuitBreaker = cb
	}
}

// NewClient creates a base client with default settings
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		HTTPClient:     newHTTPClient(DefaultTimeout),
		Logger:         slog.Default(),
		CircuitBreaker: infra.NewCircuitBreaker(),
		UserAgent:      DefaultUserAgent,
		MaxRetry:       DefaultMaxRetry,
		RetryBackoff:   100 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CircuitBreakerStats returns the current circuit breaker state
func (c *Client) CircuitBreakerStats() infra.CircuitBreakerStats {
	return c.CircuitBreaker.Stats()
}

// ResetSession drops every stored cookie
func (c *Client) ResetSession() {
	jar, _ := cookiejar.New(nil)
	c.HTTPClient.Jar = jar
}

// RequestConfig configures a single API request
type RequestConfig struct {
	URL    string
	Method string // GET unless set; POST sends Params form-encoded
	Params url.Values
}

// DoRequest sends the request with pacing, retries and circuit breaking and
// returns the raw body and status code. Non-retryable 4xx responses are returned
// to the caller as-is.
func (c *Client) DoRequest(ctx context.Context, cfg RequestConfig) ([]byte, int, error) {
	if !c.CircuitBreaker.Allow() {
		stats := c.CircuitBreaker.Stats()
		return nil, 0, &infra.ErrCircuitOpen{
			State:    stats.State,
			RetryAt:  stats.RetryAt,
			Failures: stats.ConsecutiveFails,
		}
	}

	action := cfg.Params.Get("action")
	maxRetry := c.MaxRetry
	if maxRetry <= 0 {
		maxRetry = DefaultMaxRetry
	}

	var lastErr error
	for attempt := 0; attempt < maxRetry; attempt++ {
		if attempt > 0 {
			metrics.APIRetries.WithLabelValues(action).Inc()
			wait := time.Duration(attempt*attempt) * c.RetryBackoff
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, 0, fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			}
		}

		if err := c.pace(ctx); err != nil {
			return nil, 0, err
		}

		req, err := c.newRequest(ctx, cfg)
		if err != nil {
			return nil, 0, err
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, fmt.Errorf("request failed: %w", err)
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			c.Logger.Warn("API request failed, retrying",
				"attempt", attempt+1,
				"action", action,
				"error", err)
			continue
		}

		body, err := readAndClose(resp)
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if seconds, ok := retryAfter(resp); ok {
				c.Logger.Warn("Rate limited by wiki, waiting",
					"retry_after", seconds,
					"attempt", attempt+1)
				select {
				case <-time.After(time.Duration(seconds) * time.Second):
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				}
			}
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, truncate(string(body), 200))
			c.Logger.Warn("API returned server error, retrying",
				"status", resp.StatusCode,
				"attempt", attempt+1)
			continue
		}

		c.CircuitBreaker.RecordSuccess()
		return body, resp.StatusCode, nil
	}

	c.CircuitBreaker.RecordFailure()
	return nil, 0, lastErr
}

// pace blocks until the minimum inter-request interval has elapsed
func (c *Client) pace(ctx context.Context) error {
	if c.Limiter == nil {
		return nil
	}
	if c.Limiter.Tokens() < 1 {
		metrics.RateLimitWaits.Inc()
	}
	if err := c.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, cfg RequestConfig) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)
	if cfg.Method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, strings.NewReader(cfg.Params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		target := cfg.URL
		if len(cfg.Params) > 0 {
			target += "?" + cfg.Params.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)
	return req, nil
}

// retryAfter parses a Retry-After header given in seconds
func retryAfter(resp *http.Response) (int, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return seconds, true
}

// readAndClose reads the response body and closes it
func readAndClose(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return body, err
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// newHTTPClient creates an HTTP client with a cookie jar for login sessions
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	jar, _ := cookiejar.New(nil)

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		Jar:       jar,
	}
}
