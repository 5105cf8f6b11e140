// internal/search/tavily.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/LeadScout/internal/utils"
)

const defaultTavilyURL = "https://api.tavily.com"

// TavilyConnector queries the Tavily search API
type TavilyConnector struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewTavilyConnector creates a Tavily client. baseURL may be empty.
func NewTavilyConnector(baseURL, apiKey string, timeout time.Duration) (*TavilyConnector, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, utils.NewError(utils.ErrCodeMissingConfig, "tavily api key is required").Build()
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultTavilyURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TavilyConnector{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *TavilyConnector) Name() string {
	return "tavily"
}

type tavilyRequest struct {
	Query             string   `json:"query"`
	MaxResults        int      `json:"max_results,omitempty"`
	SearchDepth       string   `json:"search_depth,omitempty"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	IncludeRawContent bool     `json:"include_raw_content,omitempty"`
}

type tavilyResponse struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

// Search implements Connector
func (c *TavilyConnector) Search(ctx context.Context, q Query) ([]Result, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	body := tavilyRequest{
		Query:             q.Text,
		MaxResults:        q.MaxResults,
		SearchDepth:       string(q.Depth),
		IncludeRawContent: q.IncludeRawContent,
	}
	if q.Domain != "" {
		body.IncludeDomains = []string{q.Domain}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, utils.WrapError(err, utils.ErrCodeSearchFailed, "tavily request failed").
			WithContext("transient", true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, utils.NewError(utils.ErrCodeSearchFailed, fmt.Sprintf("tavily returned status %d", resp.StatusCode)).
			WithContext("status", resp.StatusCode).
			WithContext("body", strings.TrimSpace(string(snippet))).
			WithContext("transient", resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500).
			Build()
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeParsingError, "failed to decode tavily response")
	}

	return FilterResults(decoded.Results, q), nil
}
