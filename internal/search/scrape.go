// internal/search/scrape.go
package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/LeadScout/internal/browser"
	"github.com/valpere/LeadScout/internal/utils"
)

const defaultScrapeEngine = "https://html.duckduckgo.com/html/"

// ScrapeConnector renders a search engine results page in the browser and
// reads the result links from it.
type ScrapeConnector struct {
	fetcher     browser.Fetcher
	engineURL   string
	waitTimeout time.Duration
}

// NewScrapeConnector creates a connector for a DuckDuckGo style results page
func NewScrapeConnector(fetcher browser.Fetcher, engineURL string, waitTimeout time.Duration) *ScrapeConnector {
	if strings.TrimSpace(engineURL) == "" {
		engineURL = defaultScrapeEngine
	}
	return &ScrapeConnector{
		fetcher:     fetcher,
		engineURL:   engineURL,
		waitTimeout: waitTimeout,
	}
}

func (c *ScrapeConnector) Name() string {
	return "scrape"
}

// SearchURL builds the results page URL for a query
func (c *ScrapeConnector) SearchURL(text string) string {
	sep := "?"
	if strings.Contains(c.engineURL, "?") {
		sep = "&"
	}
	return c.engineURL + sep + url.Values{"q": {text}}.Encode()
}

// Search implements Connector. Depth and raw content are not available
// from a results page and are ignored.
func (c *ScrapeConnector) Search(ctx context.Context, q Query) ([]Result, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	html, err := c.fetcher.Fetch(ctx, browser.FetchRequest{
		URL:         c.SearchURL(q.Text),
		Label:       "search",
		WaitFor:     "body",
		WaitTimeout: c.waitTimeout,
	})
	if err != nil {
		if utils.IsFatal(err) {
			return nil, err
		}
		return nil, utils.WrapError(err, utils.ErrCodeSearchFailed, "results page unavailable")
	}

	results, err := ParseResultsPage(html)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeParsingError, "failed to parse results page")
	}
	return FilterResults(results, q), nil
}

// ParseResultsPage reads result anchors and snippets from DuckDuckGo HTML
func ParseResultsPage(html string) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var results []Result
	doc.Find("a.result__a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		link := unwrapRedirect(href)
		if link == "" {
			return
		}

		snippet := ""
		if body := a.Closest(".result"); body.Length() > 0 {
			snippet = strings.TrimSpace(body.Find(".result__snippet").First().Text())
		}

		results = append(results, Result{
			URL:     link,
			Title:   strings.TrimSpace(a.Text()),
			Snippet: snippet,
		})
	})
	return results, nil
}

// unwrapRedirect resolves DuckDuckGo "/l/?uddg=<target>" links
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" && strings.HasPrefix(u.Path, "/l/") {
		return target
	}
	if u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.String()
}
