package thirteenf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/etnz/timberline"
	"github.com/etnz/timberline/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the aggregator site.
const DefaultBaseURL = "https://13f.info"

// Client fetches pages and payloads from the aggregator site.
//
// It performs no retry: a failed fetch is reported as a *timberline.NetworkError.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	cacheDir   string
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for the aggregator at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheDir != "" {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		// shallow copy, do not alter a client that was given to us
		hc := *c.httpClient
		hc.Transport = &diskCache{base: base, dir: c.cacheDir, logger: c.logger}
		c.httpClient = &hc
	}
	return c, nil
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRate limits the client to rps requests per second. Zero or less means no limit.
func WithRate(rps float64) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithCache keeps successful responses in dir for the rest of the day.
// An empty dir disables the cache.
func WithCache(dir string) ClientOption {
	return func(c *Client) {
		c.cacheDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records every fetch in m.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// BaseURL returns the aggregator base URL.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Resolve returns the absolute URL of ref, relative to the base URL.
// Absolute refs are returned unchanged.
func (c *Client) Resolve(ref string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	return c.baseURL.ResolveReference(u).String(), nil
}

// Get fetches ref (absolute or relative to the base URL) and returns the body.
//
// A transport failure or a non 2xx status is returned as a *timberline.NetworkError.
func (c *Client) Get(ctx context.Context, ref string) ([]byte, error) {
	addr, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &timberline.NetworkError{URL: addr, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create request for %s: %w", addr, err)
	}
	req.Header.Set("Accept", "application/json,text/html,*/*")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Fetch("network_error", time.Since(start))
		return nil, &timberline.NetworkError{URL: addr, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.Fetch("http_error", time.Since(start))
		c.logger.Warn("fetch failed", zap.String("url", addr), zap.Int("status", resp.StatusCode))
		return nil, &timberline.NetworkError{URL: addr, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.Fetch("network_error", time.Since(start))
		return nil, &timberline.NetworkError{URL: addr, StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}
	c.metrics.Fetch("ok", time.Since(start))
	c.logger.Debug("fetched", zap.String("url", addr), zap.Int("bytes", len(body)), zap.Duration("took", time.Since(start)))
	return body, nil
}

