// Package apiclient talks JSON to the external REST backend. Every failure is
// reduced to one of the outcome kinds in errors.go before it leaves the package.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/infrastructure/config"
	"github.com/sparknexora/backoffice/internal/infrastructure/logger"
	"github.com/sparknexora/backoffice/internal/infrastructure/metrics"
)

// maxBodyBytes caps how much of a backend response is read
const maxBodyBytes = 4 << 20

// TokenSource supplies the current bearer token, or "" when signed out
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// RetryConfig controls retries of idempotent calls
type RetryConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// Client is a thin JSON client bound to one backend base URL
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	userAgent  string
	retry      RetryConfig
	tokens     TokenSource
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// Option customises a Client
type Option func(*Client)

// WithTokenSource attaches the bearer token to requests that ask for it
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l.Named("backend") }
}

// WithHTTPClient replaces the transport, mainly for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New builds a client for cfg.BaseURL
func New(cfg config.BackendConfig, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:   base,
		userAgent: cfg.UserAgent,
		retry: RetryConfig{
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
			MaxDelay:   10 * time.Second,
			Multiplier: 2,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request describes one backend call
type Request struct {
	Method string
	Path   string     // relative to the base URL, e.g. "/contacts/abc/status"
	Route  string     // low-cardinality label for metrics, e.g. "/contacts/:id/status"; defaults to Path
	Query  url.Values // empty values are dropped
	Body   any
	Auth   bool // send the bearer token
	Token  string
}

// Response is a successful (2xx) backend answer
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Decode maps the body into dst, unwrapping the backend envelope
func (r *Response) Decode(dst any) error {
	return Decode(r.StatusCode, r.Body, dst)
}

// Do executes req. A nil error means a 2xx response. GET requests are
// retried with backoff on network errors, 429 and 5xx; other methods are
// sent exactly once.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	u := c.buildURL(req.Path, req.Query)
	route := req.Route
	if route == "" {
		route = req.Path
	}

	var payload []byte
	if req.Body != nil {
		var err error
		if payload, err = json.Marshal(req.Body); err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	attempts := 1
	if req.Method == http.MethodGet {
		attempts += max(c.retry.MaxRetries, 0)
	}

	log := logger.L(ctx, c.logger).With(zap.String("method", req.Method), zap.String("endpoint", route))

	var (
		resp *Response
		err  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := c.backoff(attempt - 1)
			log.Debug("retrying backend call", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		var retryable bool
		resp, retryable, err = c.once(ctx, req, u, payload)
		c.metrics.ObserveBackend(req.Method, route, Outcome(err), durationOf(resp))

		if err == nil || !retryable {
			break
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Debug("backend call failed", zap.String("outcome", Outcome(err)), zap.Error(err))
		return nil, err
	}
	return resp, nil
}

func (c *Client) once(ctx context.Context, req Request, u string, payload []byte) (*Response, bool, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if id := logger.RequestID(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}
	if req.Auth {
		token := req.Token
		if token == "" && c.tokens != nil {
			token = c.tokens.Token()
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("%w: %v", ErrNetworkUnreachable, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, true, fmt.Errorf("%w: read body: %v", ErrNetworkUnreachable, err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       raw,
		Duration:   time.Since(start),
	}
	if err := classify(httpResp.StatusCode, raw); err != nil {
		retryable := httpResp.StatusCode >= 500 || httpResp.StatusCode == http.StatusTooManyRequests
		return resp, retryable, err
	}
	return resp, false, nil
}

// Get performs an authorised GET and decodes the body into dst
func (c *Client) Get(ctx context.Context, path, route string, query url.Values, dst any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Route: route, Query: query, Auth: true})
	if err != nil {
		return err
	}
	return resp.Decode(dst)
}

// Send performs an authorised call with a JSON body; dst may be nil
func (c *Client) Send(ctx context.Context, method, path, route string, body, dst any) error {
	resp, err := c.Do(ctx, Request{Method: method, Path: path, Route: route, Body: body, Auth: true})
	if err != nil {
		return err
	}
	if dst == nil {
		// a 2xx envelope can still carry success=false
		_, err := Unwrap(resp.StatusCode, resp.Body)
		return err
	}
	return resp.Decode(dst)
}

// BaseURL returns the backend root every path is resolved against
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.baseURL.String(), "/")
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		q := url.Values{}
		for k, vs := range query {
			for _, v := range vs {
				if v != "" {
					q.Add(k, v)
				}
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) backoff(retry int) time.Duration {
	delay := float64(c.retry.RetryDelay) * math.Pow(c.retry.Multiplier, float64(retry-1))
	if c.retry.MaxDelay > 0 && delay > float64(c.retry.MaxDelay) {
		delay = float64(c.retry.MaxDelay)
	}
	// ±20% jitter
	delay += (rand.Float64()*2 - 1) * delay * 0.2
	return time.Duration(delay)
}

func durationOf(r *Response) time.Duration {
	if r == nil {
		return 0
	}
	return r.Duration
}
