// Package httpapi is the JSON-over-HTTP client the embedding and LLM
// provider adapters share.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTimeout applies when WithTimeout is not given.
	DefaultTimeout = 60 * time.Second

	// maxErrorBody caps how much of a failed response ends up in an error.
	maxErrorBody = 4 << 10
)

// StatusError is a provider response with a non-200 status. It unwraps to
// the client's error kind.
type StatusError struct {
	Provider   string
	Code       int
	Message    string
	RetryAfter string

	kind error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.kind }

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHeader sends key: value with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// Client posts JSON to one provider API. Every transport and status error
// it returns wraps kind.
type Client struct {
	provider string
	baseURL  string
	kind     error
	header   http.Header
	http     *http.Client
}

// New returns a client for the API rooted at baseURL.
func New(provider, baseURL string, kind error, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		kind:     kind,
		header:   http.Header{},
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// Post sends in to path and decodes a 200 response into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.provider, err)
	}
	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: decode response: %w", c.provider, c.kind, err)
	}
	return nil
}

// Get checks that path answers 200. Providers use it as a cheap ping.
func (c *Client) Get(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodGet, path, http.NoBody)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", c.provider, c.kind, err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &StatusError{
		Provider:   c.provider,
		Code:       resp.StatusCode,
		Message:    errorMessage(raw),
		RetryAfter: resp.Header.Get("Retry-After"),
		kind:       c.kind,
	}
}

// errorMessage pulls the message out of the two error shapes providers use,
// {"error":"..."} and {"error":{"message":"..."}}, or returns the raw body.
func errorMessage(raw []byte) string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && len(body.Error) > 0 {
		var s string
		if json.Unmarshal(body.Error, &s) == nil {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
