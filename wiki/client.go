package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/olgasafonova/mediawiki-mcp-server/internal/base"
	"github.com/olgasafonova/mediawiki-mcp-server/internal/infra"
	"github.com/olgasafonova/mediawiki-mcp-server/metrics"
	"github.com/olgasafonova/mediawiki-mcp-server/tracing"
)

// APIRequest is one call to the wiki API
type APIRequest struct {
	URL    string
	Post   bool
	Params url.Values
}

// Transport sends an API request and returns the raw response body
type Transport interface {
	RoundTrip(ctx context.Context, req APIRequest) ([]byte, error)
}

// httpTransport sends requests through the shared base client
type httpTransport struct {
	client *base.Client
}

func (t *httpTransport) RoundTrip(ctx context.Context, req APIRequest) ([]byte, error) {
	method := http.MethodGet
	if req.Post {
		method = http.MethodPost
	}
	body, status, err := t.client.DoRequest(ctx, base.RequestConfig{
		URL:    req.URL,
		Method: method,
		Params: req.Params,
	})
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		info := string(body)
		if len(info) > 200 {
			info = info[:200] + "..."
		}
		return nil, &APIError{Code: fmt.Sprintf("http-%d", status), Info: info}
	}
	return body, nil
}

// Client is a MediaWiki API client. It resolves pages, walks continued queries,
// builds category trees and memoizes read operations.
//
// A Client is not safe for concurrent use; callers sharing one must serialize access.
type Client struct {
	config    *Config
	transport Transport
	http      *base.Client
	logger    *slog.Logger
	memo      *infra.Memo

	siteInfo *SiteInfo
	loggedIn bool
}

// Option configures a Client
type Option func(*clientOptions)

type clientOptions struct {
	logger     *slog.Logger
	transport  Transport
	httpClient *http.Client
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = l
	}
}

// WithTransport replaces the HTTP transport, typically with a fake in tests
func WithTransport(t Transport) Option {
	return func(o *clientOptions) {
		o.transport = t
	}
}

// WithHTTPClient sets the underlying *http.Client of the default transport
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// NewClient creates a client for the wiki described by config
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	cfg := *config
	cfg.APIURL = languageURL(cfg.APIURL, cfg.Language)

	o := clientOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		config: &cfg,
		logger: o.logger,
		memo:   infra.NewMemo(cfg.UseCache, infra.WithRefreshInterval(cfg.RefreshInterval)),
	}

	if o.transport != nil {
		c.transport = o.transport
	} else {
		baseOpts := []base.ClientOption{
			base.WithLogger(o.logger),
			base.WithUserAgent(cfg.UserAgent),
			base.WithMaxRetry(cfg.MaxRetries),
		}
		if o.httpClient != nil {
			baseOpts = append(baseOpts, base.WithHTTPClient(o.httpClient))
		}
		baseOpts = append(baseOpts, base.WithTimeout(cfg.Timeout))
		if cfg.RateLimit {
			baseOpts = append(baseOpts, base.WithRateLimit(cfg.RateLimitWait))
		}
		c.http = base.NewClient(baseOpts...)
		c.transport = &httpTransport{client: c.http}
	}

	return c, nil
}

// Config returns a copy of the active configuration
func (c *Client) Config() Config {
	return *c.config
}

// APIURL returns the endpoint requests are sent to
func (c *Client) APIURL() string {
	return c.config.APIURL
}

// SetLanguage switches a Wikimedia client to another language edition and clears the cache
func (c *Client) SetLanguage(lang string) {
	c.config.Language = lang
	c.config.APIURL = languageURL(c.config.APIURL, lang)
	c.siteInfo = nil
	c.ClearCache()
}

// SetUseCache turns memoization on or off
func (c *Client) SetUseCache(enabled bool) {
	c.config.UseCache = enabled
	c.memo.SetEnabled(enabled)
}

// SetRefreshInterval sets how long memoized results stay fresh; zero means forever
func (c *Client) SetRefreshInterval(d time.Duration) {
	c.config.RefreshInterval = d
	c.memo.SetRefreshInterval(d)
}

// SetCategoryPrefix changes the category namespace name used for category titles
func (c *Client) SetCategoryPrefix(prefix string) {
	c.config.CategoryPrefix = prefix
}

// ClearCache discards every memoized result
func (c *Client) ClearCache() {
	c.memo.Clear()
	metrics.SetCacheSize(0)
}

// CacheLen returns the number of memoized results
func (c *Client) CacheLen() int {
	return c.memo.Len()
}

// CircuitBreakerStats reports the state of the HTTP circuit breaker, if the default transport is in use
func (c *Client) CircuitBreakerStats() (infra.CircuitBreakerStats, bool) {
	if c.http == nil {
		return infra.CircuitBreakerStats{}, false
	}
	return c.http.CircuitBreakerStats(), true
}

// request sends a GET query. format=json is always added, and action=query unless
// the caller set another action.
func (c *Client) request(ctx context.Context, params url.Values) (map[string]interface{}, error) {
	return c.send(ctx, params, false)
}

// send performs one API call whose response is a JSON object
func (c *Client) send(ctx context.Context, params url.Values, post bool) (map[string]interface{}, error) {
	v, err := c.call(ctx, params, post)
	if err != nil {
		return nil, err
	}
	result, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected response for action %s: %T", params.Get("action"), v)
	}
	return result, nil
}

// requestArray performs a GET call whose response is a JSON array, as opensearch returns
func (c *Client) requestArray(ctx context.Context, params url.Values) ([]interface{}, error) {
	v, err := c.call(ctx, params, false)
	if err != nil {
		return nil, err
	}
	result, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected response for action %s: %T", params.Get("action"), v)
	}
	return result, nil
}

// call performs one API call and maps the error envelope onto typed errors
func (c *Client) call(ctx context.Context, params url.Values, post bool) (interface{}, error) {
	params.Set("format", "json")
	if params.Get("action") == "" {
		params.Set("action", "query")
	}
	action := params.Get("action")

	ctx, span := tracing.StartSpan(ctx, "wiki.api."+action)
	tracing.AddWikiAttributes(span, action, params.Get("titles"))

	start := time.Now()
	result, err := c.roundTrip(ctx, params, post)
	duration := time.Since(start)

	metrics.RecordAPICall(action, duration.Seconds(), err == nil, errorCodeLabel(err))
	tracing.EndSpan(span, err)
	c.logger.Debug("API request",
		"action", action,
		"duration_ms", duration.Milliseconds(),
		"error", err)

	return result, err
}

func (c *Client) roundTrip(ctx context.Context, params url.Values, post bool) (interface{}, error) {
	body, err := c.transport.RoundTrip(ctx, APIRequest{URL: c.config.APIURL, Post: post, Params: params})
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Err: err}
		}
		return nil, err
	}

	var result interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if obj, ok := result.(map[string]interface{}); ok {
		if errObj := getMap(obj, "error"); errObj != nil {
			return nil, errorFromEnvelope(getString(errObj, "code"), getString(errObj, "info"))
		}
	}

	return result, nil
}

// isTimeout reports transport-level timeouts, excluding caller cancellation
func isTimeout(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// errorCodeLabel is the metrics label for an error envelope
func errorCodeLabel(err error) string {
	var api *APIError
	if errors.As(err, &api) {
		return api.Code
	}
	if err != nil {
		return string(Code(err))
	}
	return ""
}

// memoize serves op from the memo keyed by its effective arguments
func memoize[T any](c *Client, op string, args any, compute func() (T, error)) (T, error) {
	v, hit, err := c.memo.GetOrCompute(infra.MemoKey{Op: op, Args: args}, func() (any, error) {
		return compute()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if c.memo.Enabled() {
		metrics.RecordCacheAccess(op, hit)
		metrics.SetCacheSize(c.memo.Len())
		if hit {
			c.logger.Debug("Cache hit", "operation", op)
		}
	}
	return v.(T), nil
}
