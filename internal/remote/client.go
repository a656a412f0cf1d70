// Package remote speaks to the remote relational store over its REST
// surface. The core treats the remote as an external collaborator: an
// upsert with a conflict key, a filtered select, nothing more.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Row is one remote record in wire shape.
type Row map[string]any

// Filter holds column filter expressions in the REST dialect the
// remote store exposes, e.g. {"is_active": "eq.true"}.
type Filter map[string]string

// Remote is the contract the sync engine requires of the remote
// store. Implemented by Client; tests substitute an in-memory fake.
type Remote interface {
	// Upsert writes rows keyed on conflictKey (possibly composite,
	// comma-separated). Re-running after a partial failure must not
	// create duplicates.
	Upsert(ctx context.Context, table string, rows []Row, conflictKey string) error

	// Select returns the rows of table matching filter.
	Select(ctx context.Context, table string, filter Filter) ([]Row, error)
}

// Client is the HTTP implementation of Remote, speaking the
// PostgREST-style dialect used by hosted Postgres platforms:
// on_conflict query parameter for the upsert key and a
// merge-duplicates Prefer header.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
// Tests point it at an httptest server; hosts may install
// instrumented transports.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient creates a remote client for the given endpoint.
// The API key is opaque to the core; it is sent as both the platform
// key header and the bearer token, matching the hosted-Postgres
// convention.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upsert implements Remote.
func (c *Client) Upsert(ctx context.Context, table string, rows []Row, conflictKey string) error {
	if len(rows) == 0 {
		return nil
	}

	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal %s rows: %w", table, err)
	}

	u := fmt.Sprintf("%s/rest/v1/%s?on_conflict=%s", c.baseURL, table, url.QueryEscape(conflictKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upsert request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := c.http.Do(req)
	if err != nil {
		return &RemoteError{Retryable: true, Message: "upsert " + table, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return c.errorFrom(resp, table, conflictKey)
}

// Select implements Remote.
func (c *Client) Select(ctx context.Context, table string, filter Filter) ([]Row, error) {
	params := url.Values{}
	params.Set("select", "*")
	for col, expr := range filter {
		params.Set(col, expr)
	}

	u := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, table, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build select request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Retryable: true, Message: "select " + table, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.errorFrom(resp, table, "")
	}

	var rows []Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode %s rows: %w", table, err)
	}
	return rows, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// errorFrom reads the error body the remote returns and classifies it.
func (c *Client) errorFrom(resp *http.Response, table, conflictKey string) error {
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	// Best effort - an unparseable body still classifies by status.
	_ = json.Unmarshal(raw, &payload)
	if payload.Message == "" {
		payload.Message = string(raw)
	}
	return classify(table, conflictKey, resp.StatusCode, payload.Code, payload.Message)
}
