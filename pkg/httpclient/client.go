package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent identifies this service to the Bangumi API
const DefaultUserAgent = "bangumi-calendar-service/0.1.0 (+https://github.com/SumilerJR/astrbot_plugin_bangumi)"

// DefaultTimeout is the per-call timeout
const DefaultTimeout = 10 * time.Second

// maxBodySize caps how much of a response body is buffered
const maxBodySize = 8 << 20

// Observer is notified after every round trip.
// status is 0 when the request failed before a response arrived.
type Observer func(method, endpoint string, status int, elapsed time.Duration)

// Response is a fully buffered HTTP response
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status is 2xx
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is an HTTP client with a fixed User-Agent and timeout.
// It never retries; every call is a single round trip.
type Client struct {
	httpClient *http.Client
	userAgent  string
	observer   Observer
}

// Option configures a Client
type Option func(*Client)

// WithObserver installs a round-trip observer
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient creates a new HTTP client
func NewClient(userAgent string, timeout time.Duration, opts ...Option) *Client {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get makes an HTTP GET request
func (c *Client) Get(ctx context.Context, targetURL string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, targetURL, nil)
}

// PostJSON makes an HTTP POST request with a JSON body
func (c *Client) PostJSON(ctx context.Context, targetURL string, payload interface{}) (*Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.Do(ctx, http.MethodPost, targetURL, data)
}

// Do performs a single request and buffers the body.
// Non-2xx statuses are not errors; callers inspect Response.StatusCode.
func (c *Client) Do(ctx context.Context, method, targetURL string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, targetURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, targetURL, 0, time.Since(start))
		return nil, err
	}

	// 读取并立即关闭 body
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	resp.Body.Close()
	c.observe(method, targetURL, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
	}, nil
}

func (c *Client) observe(method, targetURL string, status int, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer(method, Endpoint(targetURL), status, elapsed)
}

// Endpoint reduces a URL to a low-cardinality label:
// https://api.bgm.tv/v0/subjects/12?x=1 -> /v0/subjects/:id
func Endpoint(targetURL string) string {
	u, err := url.Parse(targetURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	parts := strings.Split(u.Path, "/")
	for i, part := range parts {
		if isNumeric(part) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Snippet shortens a response body for logging
func Snippet(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit])
}
