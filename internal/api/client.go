// Package api is the HTTP client for the remote commerce backend. It owns
// the wire formats: legacy field variants are normalized into domain types
// here so nothing above this package sees backend quirks.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/avelane/storefront-session/pkg/httpclient"
	"github.com/avelane/storefront-session/pkg/logger"
)

// HTTPDoer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy it.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// TokenSource supplies the current access token. An empty token means the
// request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client talks to the commerce backend.
type Client struct {
	baseURL string
	http    HTTPDoer
	tokens  TokenSource
	log     *slog.Logger
}

// New creates a backend client. tokens may be nil for a client that only
// makes anonymous calls.
func New(baseURL string, doer HTTPDoer, tokens TokenSource, log *slog.Logger) *Client {
	return &Client{baseURL: baseURL, http: doer, tokens: tokens, log: log}
}

// envelope is the backend's success wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// do executes a JSON request against the backend. A non-nil body is encoded
// as JSON; a non-nil out receives the decoded "data" payload. Responses
// outside 2xx are translated through the shared error mapping.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body for %s: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := httpclient.ParseResponseError(resp, path)
		logger.WithContext(ctx, c.log).Warn("backend call failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return err
	}

	defer func() { _ = resp.Body.Close() }()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	// Some backend routes wrap payloads in {"data": ...}, others return the
	// payload bare. Unwrap when the envelope is present.
	var env envelope
	if json.Unmarshal(raw, &env) == nil && len(env.Data) > 0 {
		raw = env.Data
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
