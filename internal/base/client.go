// Package base provides the shared Databricks REST client: a semaphore-gated
// GET with exponential backoff on rate limiting and typed errors.
package base

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	apierrors "github.com/revodata/databricks-mcp-server/internal/errors"
	"github.com/revodata/databricks-mcp-server/internal/jsontree"
	"github.com/revodata/databricks-mcp-server/metrics"
	"github.com/revodata/databricks-mcp-server/tracing"
)

const (
	// DefaultTimeout for a single API request
	DefaultTimeout = 30 * time.Second

	// DefaultAPIVersion is the REST API version prefix
	DefaultAPIVersion = "2.1"

	// MaxConcurrentRequests limits parallel API calls across the process
	MaxConcurrentRequests = 8

	// DefaultMaxRetries is the total number of attempts for a rate-limited request
	DefaultMaxRetries = 5

	// DefaultBaseDelay is the first backoff delay; it doubles after every 429
	DefaultBaseDelay = 500 * time.Millisecond

	// DefaultMaxPages caps how many pages FetchAll follows
	DefaultMaxPages = 100

	// UserAgent sent with every request
	UserAgent = "databricks-mcp-server/1.0"
)

// Fetcher is what the resource clients need from Client
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, headers map[string]string) (jsontree.Node, error)
	FetchAll(ctx context.Context, endpoint, itemsKey string, limit int) ([]jsontree.Node, error)
}

var _ Fetcher = (*Client)(nil)

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client performs authenticated GET requests against a Databricks workspace.
// It is safe for concurrent use; all callers share one semaphore.
type Client struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	Semaphore  chan struct{}

	Host       string
	Token      string
	APIVersion string
	MaxRetries int
	BaseDelay  time.Duration
	MaxPages   int

	sleep SleepFunc
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

// WithCredentials sets the workspace host and bearer token
func WithCredentials(host, token string) ClientOption {
	return func(client *Client) {
		client.Host = host
		client.Token = token
	}
}

// WithAPIVersion overrides the REST API version
func WithAPIVersion(version string) ClientOption {
	return func(client *Client) {
		if version != "" {
			client.APIVersion = version
		}
	}
}

// WithMaxConcurrency sets the semaphore capacity
func WithMaxConcurrency(n int) ClientOption {
	return func(client *Client) {
		if n > 0 {
			client.Semaphore = make(chan struct{}, n)
		}
	}
}

// WithRetry sets the attempt budget and first backoff delay for 429 responses
func WithRetry(maxRetries int, baseDelay time.Duration) ClientOption {
	return func(client *Client) {
		if maxRetries > 0 {
			client.MaxRetries = maxRetries
		}
		if baseDelay >= 0 {
			client.BaseDelay = baseDelay
		}
	}
}

// WithMaxPages caps pagination in FetchAll
func WithMaxPages(n int) ClientOption {
	return func(client *Client) {
		if n > 0 {
			client.MaxPages = n
		}
	}
}

// WithSleep replaces the backoff sleep
func WithSleep(fn SleepFunc) ClientOption {
	return func(client *Client) {
		if fn != nil {
			client.sleep = fn
		}
	}
}

// NewClient creates a new client with default settings
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		HTTPClient: NewHTTPClient(DefaultTimeout),
		Logger:     slog.Default(),
		Semaphore:  make(chan struct{}, MaxConcurrentRequests),
		APIVersion: DefaultAPIVersion,
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxPages:   DefaultMaxPages,
		sleep:      sleepContext,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Close releases idle connections held by the client
func (c *Client) Close() {
	c.HTTPClient.CloseIdleConnections()
}

// AcquireSlot blocks until a request slot is available or context is canceled
func (c *Client) AcquireSlot(ctx context.Context) error {
	select {
	case c.Semaphore <- struct{}{}:
		metrics.SemaphoreInUse.Inc()
		return nil
	default:
	}

	metrics.SemaphoreWaits.Inc()
	select {
	case c.Semaphore <- struct{}{}:
		metrics.SemaphoreInUse.Inc()
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context canceled while waiting for request slot: %w", ctx.Err())
	}
}

// ReleaseSlot releases a request slot
func (c *Client) ReleaseSlot() {
	<-c.Semaphore
	metrics.SemaphoreInUse.Dec()
}

// URL returns the absolute URL for an API endpoint such as "jobs/list"
func (c *Client) URL(endpoint string) string {
	host := strings.TrimRight(c.Host, "/")
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return fmt.Sprintf("%s/api/%s/%s", host, c.APIVersion, strings.TrimLeft(endpoint, "/"))
}

// Fetch issues a GET for endpoint and decodes the JSON body. Each attempt holds
// one semaphore slot until its body is read. A 429 response is retried after
// BaseDelay, doubling every time, for at most MaxRetries attempts in total.
// Headers are applied after the defaults and may override them.
func (c *Client) Fetch(ctx context.Context, endpoint string, headers map[string]string) (jsontree.Node, error) {
	if strings.TrimSpace(c.Host) == "" {
		return jsontree.Node{}, apierrors.NewConfigurationError("DATABRICKS_HOST", "workspace host is not set")
	}
	if strings.TrimSpace(c.Token) == "" {
		return jsontree.Node{}, apierrors.NewConfigurationError("DATABRICKS_TOKEN", "access token is not set")
	}

	label := EndpointLabel(endpoint)
	target := c.URL(endpoint)

	ctx, span := tracing.StartSpan(ctx, "databricks.fetch")
	defer span.End()

	start := time.Now()
	node, attempts, status, err := c.fetch(ctx, target, label, headers)

	tracing.AddAPIAttributes(span, label, attempts, status)
	tracing.RecordError(span, err)
	metrics.RecordAPICall(label, time.Since(start).Seconds(), err == nil, status)

	return node, err
}

func (c *Client) fetch(ctx context.Context, target, label string, headers map[string]string) (jsontree.Node, int, int, error) {
	delay := c.BaseDelay

	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		body, status, err := c.do(ctx, target, headers)
		if err != nil {
			return jsontree.Node{}, attempt, 0, err
		}

		if status == http.StatusTooManyRequests {
			if attempt == c.MaxRetries {
				break
			}
			c.Logger.Warn("Rate limited, backing off",
				"url", target,
				"attempt", attempt,
				"delay", delay)
			metrics.RecordRetry(label)
			if err := c.sleep(ctx, delay); err != nil {
				return jsontree.Node{}, attempt, status, fmt.Errorf("context canceled during backoff: %w", err)
			}
			delay *= 2
			continue
		}

		if status < 200 || status > 299 {
			return jsontree.Node{}, attempt, status, &apierrors.HTTPError{
				StatusCode: status,
				URL:        target,
				Body:       truncate(strings.TrimSpace(string(body)), 200),
			}
		}

		if len(strings.TrimSpace(string(body))) == 0 {
			return jsontree.ObjectNode(), attempt, status, nil
		}
		node, err := jsontree.Parse(body)
		if err != nil {
			return jsontree.Node{}, attempt, status, fmt.Errorf("failed to decode response from %s: %w", target, err)
		}
		return node, attempt, status, nil
	}

	return jsontree.Node{}, c.MaxRetries, http.StatusTooManyRequests, &apierrors.RateLimitError{
		URL:      target,
		Attempts: c.MaxRetries,
	}
}

// do performs one attempt inside a semaphore slot
func (c *Client) do(ctx context.Context, target string, headers map[string]string) ([]byte, int, error) {
	if err := c.AcquireSlot(ctx); err != nil {
		return nil, 0, err
	}
	defer c.ReleaseSlot()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}

	body, err := readAndClose(resp)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// FetchAll follows next_page_token across pages of a list endpoint and
// concatenates the arrays found under itemsKey in page order. A positive limit
// stops paging once that many items are collected and truncates to it.
func (c *Client) FetchAll(ctx context.Context, endpoint, itemsKey string, limit int) ([]jsontree.Node, error) {
	var items []jsontree.Node
	token := ""

	for page := 0; page < c.MaxPages; page++ {
		target := endpoint
		if token != "" {
			target = AppendQuery(endpoint, url.Values{"page_token": {token}})
		}

		resp, err := c.Fetch(ctx, target, nil)
		if err != nil {
			return nil, err
		}

		if list, ok := resp.Get(itemsKey); ok {
			items = append(items, list.Items()...)
		}
		if limit > 0 && len(items) >= limit {
			return items[:limit], nil
		}

		token = resp.StringField("next_page_token")
		if token == "" {
			return items, nil
		}
	}

	c.Logger.Warn("Pagination limit reached",
		"endpoint", endpoint,
		"max_pages", c.MaxPages,
		"items", len(items))
	return items, nil
}

// AppendQuery merges params into the query string of endpoint
func AppendQuery(endpoint string, params url.Values) string {
	path, rawQuery, _ := strings.Cut(endpoint, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		q = url.Values{}
	}
	for k, vs := range params {
		q[k] = vs
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// EndpointLabel reduces an endpoint to a low-cardinality metric label.
// Query strings and Unity Catalog object names are dropped.
func EndpointLabel(endpoint string) string {
	path, _, _ := strings.Cut(strings.TrimLeft(endpoint, "/"), "?")
	parts := strings.Split(path, "/")
	if parts[0] == "unity-catalog" && len(parts) > 2 {
		return strings.Join(parts[:2], "/")
	}
	return path
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readAndClose reads the response body and closes it
func readAndClose(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return body, err
}

// truncate shortens a string to at most maxLen bytes, adding "..." if
// truncated. The cut never splits a UTF-8 sequence.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// NewHTTPClient creates an HTTP client with optimized transport settings
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		DisableCompression:    false,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
