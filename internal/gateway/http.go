// Package gateway implements the remote submission gateway and the
// connectivity probe over HTTP. The sync engine only sees the syncd
// interfaces; everything wire-level lives here.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldwork/formsync/internal/queue"
	"github.com/fieldwork/formsync/internal/syncd"
)

// TokenGenerator produces per-attempt idempotency tokens. Implemented by
// UUIDv7Generator (production) and any fixed-sequence fake (tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 attempt tokens.
//
// The token travels in the Idempotency-Key header: delivery is
// at-least-once, and the server deduplicates retried attempts by key.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Client talks to the remote form service. It implements syncd.Gateway.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	tokens     TokenGenerator
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (and with it the
// per-call timeout, which is the gateway's responsibility).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenGenerator overrides the idempotency token source.
func WithTokenGenerator(g TokenGenerator) ClientOption {
	return func(c *Client) { c.tokens = g }
}

// NewClient creates a gateway client for the service at baseURL. The
// bearer token may be empty for unauthenticated deployments.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		tokens:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit sends a payload directly, outside the sync loop. Used for
// online-first submission attempts; on failure the caller falls back to
// the offline queue.
func (c *Client) Submit(ctx context.Context, payload json.RawMessage) (syncd.SubmitResult, error) {
	var out syncd.SubmitResult
	if err := c.post(ctx, "/api/responses", payload, &out); err != nil {
		return syncd.SubmitResult{}, err
	}
	return out, nil
}

// syncRequest is the wire shape of one reconciliation call.
type syncRequest struct {
	ID           string          `json:"id"`
	FormTitle    string          `json:"formTitle"`
	FormData     json.RawMessage `json:"formData"`
	Timestamp    int64           `json:"timestamp"`
	UpdatedAt    int64           `json:"updatedAt"`
	SyncAttempts int             `json:"syncAttempts"`
}

// SyncItem reconciles one queued submission with the server. The server
// answers with an action classification; interpretation is the engine's
// job.
func (c *Client) SyncItem(ctx context.Context, item queue.Item) (syncd.SyncResult, error) {
	req := syncRequest{
		ID:           item.ID,
		FormTitle:    item.FormTitle,
		FormData:     item.Payload,
		Timestamp:    item.CreatedAt.UnixMilli(),
		UpdatedAt:    item.UpdatedAt.UnixMilli(),
		SyncAttempts: item.SyncAttempts,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return syncd.SyncResult{}, fmt.Errorf("encode sync request: %w", err)
	}

	var out syncd.SyncResult
	if err := c.post(ctx, "/api/responses/sync", body, &out); err != nil {
		return syncd.SyncResult{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", c.tokens.Generate())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// HTTPProbe answers "is the network usable" with a HEAD request against
// the service's health endpoint. Implements syncd.Probe.
type HTTPProbe struct {
	httpClient *http.Client
	healthURL  string
}

// NewHTTPProbe creates a probe for the service at baseURL.
func NewHTTPProbe(baseURL string, opts ...ProbeOption) *HTTPProbe {
	p := &HTTPProbe{
		httpClient: &http.Client{Timeout: 3 * time.Second},
		healthURL:  strings.TrimRight(baseURL, "/") + "/api/health",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProbeOption configures an HTTPProbe.
type ProbeOption func(*HTTPProbe)

// WithProbeHTTPClient overrides the probe's HTTP client.
func WithProbeHTTPClient(hc *http.Client) ProbeOption {
	return func(p *HTTPProbe) { p.httpClient = hc }
}

// Online reports whether the health endpoint answers at all. Any HTTP
// status counts as reachable; only transport errors mean offline.
func (p *HTTPProbe) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.healthURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
