// internal/scraper/extractor.go
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/LeadScout/internal/browser"
	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

const defaultMapsBase = "https://www.google.com"

// DetailExtractor follows a listing entry to its detail page and reads the
// website and phone number from it.
type DetailExtractor struct {
	fetcher     browser.Fetcher
	selectors   Selectors
	phone       *regexp.Regexp
	baseURL     *url.URL
	waitTimeout time.Duration
	settle      time.Duration
	logger      utils.Logger
}

// DetailOption customizes a DetailExtractor
type DetailOption func(*DetailExtractor)

// WithDetailWait bounds the wait for the detail page and adds a settle delay
func WithDetailWait(timeout, settle time.Duration) DetailOption {
	return func(de *DetailExtractor) {
		de.waitTimeout = timeout
		de.settle = settle
	}
}

// WithBaseURL sets the origin used to resolve relative detail links
func WithBaseURL(raw string) DetailOption {
	return func(de *DetailExtractor) {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			de.baseURL = u
		}
	}
}

// WithDetailLogger replaces the component logger
func WithDetailLogger(l utils.Logger) DetailOption {
	return func(de *DetailExtractor) {
		de.logger = l
	}
}

// NewDetailExtractor creates an extractor; it fails only on a bad phone pattern
func NewDetailExtractor(fetcher browser.Fetcher, selectors Selectors, opts ...DetailOption) (*DetailExtractor, error) {
	selectors = selectors.WithDefaults()
	phone, err := regexp.Compile(selectors.PhonePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid phone pattern: %w", err)
	}
	base, _ := url.Parse(defaultMapsBase)

	de := &DetailExtractor{
		fetcher:   fetcher,
		selectors: selectors,
		phone:     phone,
		baseURL:   base,
		logger:    utils.NewComponentLogger("details"),
	}
	for _, opt := range opts {
		opt(de)
	}
	return de, nil
}

// DetailURL finds the entry's anchor whose aria-label equals name
func (de *DetailExtractor) DetailURL(item *goquery.Selection, name string) (string, bool) {
	if item == nil {
		return "", false
	}
	want := NormalizeLabel(name)

	var href string
	item.Find(de.selectors.DetailAnchor).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		label, _ := a.Attr("aria-label")
		link, ok := a.Attr("href")
		if !ok || strings.TrimSpace(link) == "" || NormalizeLabel(label) != want {
			return true
		}
		href = strings.TrimSpace(link)
		return false
	})
	if href == "" {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return de.baseURL.ResolveReference(ref).String(), true
}

// Extract reads website and phone for one entry. No matching anchor is
// Absent; a page or parse problem is logged and reported as Failed. The
// returned error is set only for fatal failures.
func (de *DetailExtractor) Extract(ctx context.Context, item *goquery.Selection, name string) (types.Lookup[Details], error) {
	link, ok := de.DetailURL(item, name)
	if !ok {
		de.logger.WithField("business", name).Debug("no detail link for entry")
		return types.Absent[Details](), nil
	}

	page, err := browser.FetchMarkup(ctx, de.fetcher, browser.FetchRequest{
		URL:         link,
		Label:       "detail",
		WaitFor:     de.selectors.DetailReady,
		WaitTimeout: de.waitTimeout,
		Settle:      de.settle,
	}, de.logger.WithField("business", name))
	if err != nil {
		return types.Failed[Details](err), err
	}
	if !page.OK() {
		if page.Status == types.LookupFailed {
			return types.Failed[Details](page.Err), nil
		}
		return types.Absent[Details](), nil
	}

	details, err := de.ParseDetails(page.Value)
	if err != nil {
		de.logger.WithField("business", name).Errorf("detail extraction failed: %v", err)
		return types.Failed[Details](utils.WrapError(err, utils.ErrCodeExtractionFailed, "detail page")), nil
	}
	if details == (Details{}) {
		return types.Absent[Details](), nil
	}
	return types.Found(details), nil
}

// ParseDetails reads website and phone from detail page markup. It has no
// side effects and returns the same result for the same markup.
func (de *DetailExtractor) ParseDetails(html string) (Details, error) {
	parser, err := NewHTMLParser(html)
	if err != nil {
		return Details{}, err
	}

	var details Details
	if section := parser.Find(de.selectors.WebsiteContainer).First(); section.Length() > 0 {
		details.Website = strings.TrimSpace(section.Find(de.selectors.WebsiteText).First().Text())
	}

	if label, ok := parser.Attr(de.selectors.PhoneButton, "aria-label"); ok {
		if m := de.phone.FindStringSubmatch(label); len(m) > 1 {
			details.Phone = strings.TrimSpace(m[1])
		}
	}

	return details, nil
}

// ParseReviewAbout reads the "About the Business" text of a review page by
// joining its innermost spans.
func (de *DetailExtractor) ParseReviewAbout(html string) string {
	parser, err := NewHTMLParser(html)
	if err != nil {
		return ""
	}

	block := parser.Find(de.selectors.ReviewAbout).First().Find(de.selectors.ReviewAboutText).First()
	if block.Length() == 0 {
		return ""
	}

	var parts []string
	block.Find("span").Each(func(_ int, s *goquery.Selection) {
		if s.Find("span").Length() > 0 {
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

// ReviewAbout fetches a review page and returns its about text
func (de *DetailExtractor) ReviewAbout(ctx context.Context, pageURL string) (types.Lookup[string], error) {
	page, err := browser.FetchMarkup(ctx, de.fetcher, browser.FetchRequest{
		URL:         pageURL,
		Label:       "review_page",
		WaitFor:     de.selectors.ReviewAbout,
		WaitTimeout: de.waitTimeout,
	}, de.logger)
	if err != nil || !page.OK() {
		return types.Lookup[string]{Status: page.Status, Err: page.Err}, err
	}
	if text := de.ParseReviewAbout(page.Value); text != "" {
		return types.Found(text), nil
	}
	return types.Absent[string](), nil
}
