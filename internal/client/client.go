// ABOUTME: HTTP client for the spellbook tool server.
// ABOUTME: Wraps listing, invocation, health, and info with bearer auth.

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

	"github.com/2389/spellbook/internal/catalog"
)

// Client talks to a spellbook server over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Info is the server's identity report.
type Info struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	ToolCount   int    `json:"tool_count"`
	AuthEnabled bool   `json:"auth_enabled"`
}

// ListTools returns the definitions of all tools visible to the caller.
func (c *Client) ListTools(ctx context.Context) ([]catalog.Definition, error) {
	var body struct {
		Tools []catalog.Definition `json:"tools"`
	}
	if err := c.get(ctx, "/tools", &body); err != nil {
		return nil, err
	}
	return body.Tools, nil
}

// CallOption customizes one invocation.
type CallOption func(*catalog.CallRequest)

// WithCallID names the invocation. The server echoes it back verbatim.
func WithCallID(callID string) CallOption {
	return func(req *catalog.CallRequest) { req.CallID = callID }
}

// CallTool invokes a tool by identifier. Input may be nil for tools without
// required input. Transport-level failures return an *APIError; a deliberate
// tool failure returns a response with Success=false and no error.
func (c *Client) CallTool(ctx context.Context, toolID string, input any, opts ...CallOption) (*catalog.CallResponse, error) {
	req := catalog.CallRequest{ToolID: toolID}
	if input != nil {
		raw, err := json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf("encoding input: %w", err)
		}
		req.Input = raw
	}
	for _, opt := range opts {
		opt(&req)
	}

	var resp catalog.CallResponse
	if err := c.post(ctx, "/tools/call", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", &body); err != nil {
		return err
	}
	if body.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", body.Status)
	}
	return nil
}

// Info fetches the server's identity report.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.get(ctx, "/info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
