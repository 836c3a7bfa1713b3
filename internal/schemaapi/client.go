// Package schemaapi is the client for the remote form schema store: the
// backend that persists named, versioned form definitions behind
// authenticated CRUD. The offline queue and sync core never touch this
// package; the CLI uses it to fetch and manage schemas, which then enter
// the core as ordinary form.Form values.
package schemaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fieldwork/formsync/internal/form"
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("schemaapi: form not found")

// Record is one stored form definition plus server-side metadata.
type Record struct {
	ID        string    `json:"id"`
	Form      form.Form `json:"form"`
	Status    string    `json:"status"` // draft, approved, rejected
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Page is one page of list or search results.
type Page struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
}

// Client talks to the form schema store.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the schema store at baseURL.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns one page of stored forms.
func (c *Client) List(ctx context.Context, page, limit int) (Page, error) {
	var out Page
	err := c.do(ctx, http.MethodGet, "/forms"+pageQuery(page, limit, ""), nil, &out)
	return out, err
}

// Search returns forms whose name, title, or description contains query.
func (c *Client) Search(ctx context.Context, query string, page, limit int) (Page, error) {
	var out Page
	err := c.do(ctx, http.MethodGet, "/forms/search"+pageQuery(page, limit, query), nil, &out)
	return out, err
}

// Get fetches a form by id.
func (c *Client) Get(ctx context.Context, id string) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodGet, "/forms/"+url.PathEscape(id), nil, &out)
	return out, err
}

// GetByName fetches a form by its unique name.
func (c *Client) GetByName(ctx context.Context, name string) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodGet, "/forms/name/"+url.PathEscape(name), nil, &out)
	return out, err
}

// Create stores a new form definition.
func (c *Client) Create(ctx context.Context, f *form.Form) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPost, "/forms", f, &out)
	return out, err
}

// Update replaces a stored form definition.
func (c *Client) Update(ctx context.Context, id string, f *form.Form) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPut, "/forms/"+url.PathEscape(id), f, &out)
	return out, err
}

// Delete removes a stored form definition.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/forms/"+url.PathEscape(id), nil, nil)
}

// Approve moves a form through the review workflow. Requires a reviewer
// role on the server; the client just carries the token.
func (c *Client) Approve(ctx context.Context, id string) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPost, "/forms/"+url.PathEscape(id)+"/approve", nil, &out)
	return out, err
}

// Reject marks a form as rejected in the review workflow.
func (c *Client) Reject(ctx context.Context, id string) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPost, "/forms/"+url.PathEscape(id)+"/reject", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func pageQuery(page, limit int, query string) string {
	v := url.Values{}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	if query != "" {
		v.Set("query", query)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}
