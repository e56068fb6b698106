package client

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
	defaultTimeout = 10 * time.Second
	defaultPrefix  = "/v1/student"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 4 << 20
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rosterd: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("rosterd: status %d: %s", e.Code, e.Message)
}

// Client talks to one rosterd server.
type Client struct {
	base   string
	prefix string
	http   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithPrefix sets the server's record route prefix.
func WithPrefix(prefix string) Option {
	return func(c *Client) { c.prefix = prefix }
}

// New creates a Client for the server at baseURL, e.g. "http://127.0.0.1:3030".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		prefix: defaultPrefix,
		http:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns every record held by the server.
func (c *Client) List(ctx context.Context) (map[string]string, error) {
	body, err := c.do(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	var out map[string]string
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("rosterd: decode listing: %w", err)
	}
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

// Upsert creates or replaces a record with POST and returns the server's
// confirmation message.
func (c *Client) Upsert(ctx context.Context, name, branch string) (string, error) {
	return c.send(ctx, http.MethodPost, map[string]string{"name": name, "branch": branch})
}

// Replace is Upsert sent with PUT.
func (c *Client) Replace(ctx context.Context, name, branch string) (string, error) {
	return c.send(ctx, http.MethodPut, map[string]string{"name": name, "branch": branch})
}

// Remove deletes a record. Removing an absent name succeeds.
func (c *Client) Remove(ctx context.Context, name string) (string, error) {
	return c.send(ctx, http.MethodDelete, map[string]string{"name": name})
}

func (c *Client) send(ctx context.Context, method string, payload interface{}) (string, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("rosterd: encode request: %w", err)
	}
	body, err := c.do(ctx, method, buf)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) do(ctx context.Context, method string, payload []byte) ([]byte, error) {
	var r io.Reader
	if payload != nil {
		r = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+c.prefix, r)
	if err != nil {
		return nil, fmt.Errorf("rosterd: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rosterd: %s %s: %w", method, c.prefix, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("rosterd: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage extracts {"error": "..."} or falls back to the raw body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
