// internal/search/search.go

// Package search looks businesses up on the web through interchangeable
// backends.
package search

import (
	"context"
	"net/url"
	"strings"
)

// Depth selects how thorough a backend search should be
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// Query is one search request
type Query struct {
	Text string
	// Domain restricts results to a host and path prefix, e.g. "yelp.com/biz".
	Domain            string
	MaxResults        int
	Depth             Depth
	IncludeRawContent bool
}

// Result is one search hit
type Result struct {
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	Snippet    string `json:"content,omitempty"`
	RawContent string `json:"raw_content,omitempty"`
}

// Connector is implemented by every search backend. No results is an empty
// slice and a nil error.
type Connector interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Result, error)
}

// MatchesDomain reports whether rawURL belongs to domain, written as a host
// with an optional path prefix such as "yelp.com/biz". The host matches
// itself or any subdomain; the path prefix must end on a segment boundary, so
// "yelp.com/biz" accepts /biz/rose-city but not /biz_photos/rose-city. An
// empty domain matches everything.
func MatchesDomain(rawURL, domain string) bool {
	domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), "/")
	if domain == "" {
		return true
	}
	host, prefix, _ := strings.Cut(domain, "/")

	raw := strings.TrimSpace(rawURL)
	if !strings.Contains(raw, "://") {
		raw = "https://" + strings.TrimPrefix(raw, "//")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return false
	}

	h := strings.ToLower(u.Hostname())
	if h != host && !strings.HasSuffix(h, "."+host) {
		return false
	}
	if prefix == "" {
		return true
	}
	path := strings.ToLower(strings.Trim(u.EscapedPath(), "/"))
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// FilterResults keeps results matching q.Domain in backend order, capped at
// q.MaxResults when positive.
func FilterResults(results []Result, q Query) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.URL) == "" || !MatchesDomain(r.URL, q.Domain) {
			continue
		}
		out = append(out, r)
		if q.MaxResults > 0 && len(out) >= q.MaxResults {
			break
		}
	}
	return out
}

// First returns the first result, if any
func First(results []Result) (Result, bool) {
	if len(results) == 0 {
		return Result{}, false
	}
	return results[0], true
}
