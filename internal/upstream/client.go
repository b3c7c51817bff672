// Package upstream contains typed clients for the office REST API. Every
// collection AgriLink works with is owned by that API; the clients here only
// fetch, unwrap the {"data": ...} envelope and map the inconsistent field
// spellings into one canonical shape per resource.
package upstream

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

	"github.com/google/uuid"
)

// Client wraps interactions with the office API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Error is a server-reported failure: the upstream responded, and its body
// is preferred over any transport-level description.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream: status %d", e.Status)
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// Ping checks if the office API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: ping: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return &Error{Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("upstream: encode %s: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// The office API is trusted to dedupe writes; the key just gives it
	// something to dedupe on when the same Pay action is submitted twice.
	req.Header.Set("Idempotency-Key", uuid.NewString())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("upstream: read %s: %w", req.URL.Path, err)
	}

	var env envelope
	if len(raw) > 0 {
		// Non-JSON bodies are tolerated; the raw text then serves as the
		// error message for failed responses.
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode >= 400 {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	payload := env.Data
	if payload == nil {
		payload = raw
	}
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("upstream: decode %s: %w", req.URL.Path, err)
	}
	return nil
}
