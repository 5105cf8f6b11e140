// pkg/api/api.go
//
// Package api is a Go client for the LeadScout HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valpere/LeadScout/pkg/types"
)

// Client talks to a LeadScout server
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithAPIKey sends key as a bearer token
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client. Discovery requests can
// run for minutes, so the default has no overall timeout; use contexts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Discover runs a discovery and waits for its result. A run that failed on
// the server still returns its result together with an *Error.
func (c *Client) Discover(ctx context.Context, req DiscoverRequest) (types.DiscoveryResult, error) {
	req.Async = false
	var result types.DiscoveryResult
	err := c.do(ctx, http.MethodPost, "/api/v1/discover", req, &result)
	return result, err
}

// StartDiscover starts a discovery in the background and returns its run id
func (c *Client) StartDiscover(ctx context.Context, req DiscoverRequest) (RunAccepted, error) {
	req.Async = true
	var accepted RunAccepted
	err := c.do(ctx, http.MethodPost, "/api/v1/discover", req, &accepted)
	return accepted, err
}

// Run fetches one tracked run
func (c *Client) Run(ctx context.Context, id string) (Run, error) {
	var run Run
	err := c.do(ctx, http.MethodGet, "/api/v1/runs/"+url.PathEscape(id), nil, &run)
	return run, err
}

// Runs lists the recent runs, newest first
func (c *Client) Runs(ctx context.Context) ([]Run, error) {
	var body struct {
		Runs []Run `json:"runs"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/runs", nil, &body)
	return body.Runs, err
}

// WaitRun polls a run until it finishes or ctx ends
func (c *Client) WaitRun(ctx context.Context, id string, interval time.Duration) (Run, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		run, err := c.Run(ctx, id)
		if err != nil || run.Status.IsTerminal() {
			return run, err
		}
		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Score rates records; save stores them in the server's lead store
func (c *Client) Score(ctx context.Context, records []types.BusinessRecord, save bool) ([]types.Lead, error) {
	req := struct {
		Records []types.BusinessRecord `json:"records"`
		Save    bool                   `json:"save,omitempty"`
	}{records, save}
	var body struct {
		Leads []types.Lead `json:"leads"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/score", req, &body)
	return body.Leads, err
}

// Leads lists stored leads, best first. limit 0 means all.
func (c *Client) Leads(ctx context.Context, limit int) ([]types.Lead, error) {
	path := "/api/v1/leads"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var body struct {
		Leads []types.Lead `json:"leads"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &body)
	return body.Leads, err
}

// Personas drafts personas for the given stored leads
func (c *Client) Personas(ctx context.Context, leadIDs []int64) (PersonaResponse, error) {
	req := struct {
		LeadIDs []int64 `json:"lead_ids"`
	}{leadIDs}
	var resp PersonaResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/leads/personas", req, &resp)
	return resp, err
}

// Outreach returns the stored outreach content of a lead by channel
func (c *Client) Outreach(ctx context.Context, leadID int64) (map[string]string, error) {
	var body struct {
		ChannelContents map[string]string `json:"channel_contents"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/leads/%d/outreach", leadID), nil, &body)
	return body.ChannelContents, err
}

// MarkSent records that the content for channel went out
func (c *Client) MarkSent(ctx context.Context, leadID int64, channel string) error {
	path := fmt.Sprintf("/api/v1/leads/%d/outreach/%s/sent", leadID, url.PathEscape(channel))
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// Health returns the server health. An unhealthy server answers 503 with a
// body; that body is returned along with the *Error.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &h)
	return h, err
}

// do sends in as JSON and decodes the answer into out. Error answers are
// decoded into out as well when their body fits it.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		if out != nil {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
