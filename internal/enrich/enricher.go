// internal/enrich/enricher.go

// Package enrich turns a named listing entry into a complete business record.
package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/LeadScout/internal/scraper"
	"github.com/valpere/LeadScout/internal/search"
	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

// DetailSource reads website and phone for a listing entry
type DetailSource interface {
	Extract(ctx context.Context, item *goquery.Selection, name string) (types.Lookup[scraper.Details], error)
}

// ReviewPageSource reads the about text of a review page
type ReviewPageSource interface {
	ReviewAbout(ctx context.Context, pageURL string) (types.Lookup[string], error)
}

// LookupObserver is told how each lookup ended
type LookupObserver interface {
	ObserveLookup(kind string, status types.LookupStatus)
}

// Config tunes the two searches
type Config struct {
	ReviewDomain          string       `yaml:"review_domain" json:"review_domain"`
	ReviewMaxResults      int          `yaml:"review_max_results" json:"review_max_results"`
	ReviewDepth           search.Depth `yaml:"review_depth" json:"review_depth"`
	DescriptionMaxResults int          `yaml:"description_max_results" json:"description_max_results"`
	DescriptionDepth      search.Depth `yaml:"description_depth" json:"description_depth"`
	// ScrapeReviewPage opens the review page when the search gave no snippet
	ScrapeReviewPage bool `yaml:"scrape_review_page" json:"scrape_review_page"`
}

// DefaultConfig returns the standard enrichment settings
func DefaultConfig() Config {
	return Config{
		ReviewDomain:          "yelp.com/biz",
		ReviewMaxResults:      3,
		ReviewDepth:           search.DepthAdvanced,
		DescriptionMaxResults: 1,
		DescriptionDepth:      search.DepthAdvanced,
	}
}

// Target identifies the run a record belongs to
type Target struct {
	Region string
	Sector string
	RunID  string
}

// Enricher builds BusinessRecords from candidates
type Enricher struct {
	details  DetailSource
	searcher search.Connector
	reviews  ReviewPageSource
	config   Config
	observer LookupObserver
	logger   utils.Logger
	now      func() time.Time
}

// Option customizes an Enricher
type Option func(*Enricher)

// WithReviewPages enables the review page fallback
func WithReviewPages(src ReviewPageSource) Option {
	return func(e *Enricher) { e.reviews = src }
}

// WithObserver attaches a lookup observer
func WithObserver(o LookupObserver) Option {
	return func(e *Enricher) { e.observer = o }
}

// WithLogger replaces the component logger
func WithLogger(l utils.Logger) Option {
	return func(e *Enricher) { e.logger = l }
}

// New creates an Enricher. Zero config values fall back to DefaultConfig.
func New(details DetailSource, searcher search.Connector, config Config, opts ...Option) *Enricher {
	def := DefaultConfig()
	if config.ReviewDomain == "" {
		config.ReviewDomain = def.ReviewDomain
	}
	if config.ReviewMaxResults <= 0 {
		config.ReviewMaxResults = def.ReviewMaxResults
	}
	if config.ReviewDepth == "" {
		config.ReviewDepth = def.ReviewDepth
	}
	if config.DescriptionMaxResults <= 0 {
		config.DescriptionMaxResults = def.DescriptionMaxResults
	}
	if config.DescriptionDepth == "" {
		config.DescriptionDepth = def.DescriptionDepth
	}

	e := &Enricher{
		details:  details,
		searcher: searcher,
		config:   config,
		logger:   utils.NewComponentLogger("enrich"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ReviewQuery is the domain restricted review site query
func ReviewQuery(name, sector, region string) string {
	return fmt.Sprintf("%s %s, %s", name, sector, region)
}

// DescriptionQuery is the open web description query
func DescriptionQuery(name, sector, region string) string {
	return fmt.Sprintf("tell me about %s %s in %s", name, sector, region)
}

// Enrich runs detail extraction, the review search and the description
// search in that order. Misses leave fields empty; only fatal failures are
// returned as errors.
func (e *Enricher) Enrich(ctx context.Context, target Target, c scraper.Candidate) (types.BusinessRecord, error) {
	record := types.BusinessRecord{
		Name:         c.Name,
		Region:       target.Region,
		Industry:     target.Sector,
		RunID:        target.RunID,
		DiscoveredAt: e.now(),
	}
	log := e.logger.WithFields(map[string]interface{}{"business": c.Name, "run_id": target.RunID})

	if e.details != nil {
		details, err := e.details.Extract(ctx, c.Item, c.Name)
		e.observe("details", details.Status)
		if err != nil {
			return record, err
		}
		d := details.OrZero()
		record.Website = d.Website
		record.ContactPhone = d.Phone
	}

	review, err := e.search(ctx, log, search.Query{
		Text:       ReviewQuery(c.Name, target.Sector, target.Region),
		Domain:     e.config.ReviewDomain,
		MaxResults: e.config.ReviewMaxResults,
		Depth:      e.config.ReviewDepth,
	})
	e.observe("review", review.Status)
	if err != nil {
		return record, err
	}
	if r := review.OrZero(); review.OK() {
		record.ReviewSiteURL = r.URL
		record.ReviewSiteDescription = r.Snippet
	}

	if record.ReviewSiteURL != "" && record.ReviewSiteDescription == "" && e.config.ScrapeReviewPage && e.reviews != nil {
		about, err := e.reviews.ReviewAbout(ctx, record.ReviewSiteURL)
		e.observe("review_page", about.Status)
		if err != nil {
			return record, err
		}
		record.ReviewSiteDescription = about.OrZero()
	}

	desc, err := e.search(ctx, log, search.Query{
		Text:              DescriptionQuery(c.Name, target.Sector, target.Region),
		MaxResults:        e.config.DescriptionMaxResults,
		Depth:             e.config.DescriptionDepth,
		IncludeRawContent: true,
	})
	e.observe("description", desc.Status)
	if err != nil {
		return record, err
	}
	record.Description = desc.OrZero().Snippet

	return record, nil
}

// search returns the first hit as a lookup; transient errors are logged
func (e *Enricher) search(ctx context.Context, log utils.Logger, q search.Query) (types.Lookup[search.Result], error) {
	if e.searcher == nil {
		return types.Absent[search.Result](), nil
	}

	results, err := e.searcher.Search(ctx, q)
	if err != nil {
		if utils.IsFatal(err) || ctx.Err() != nil {
			if ctx.Err() != nil {
				err = utils.WrapError(ctx.Err(), utils.ErrCodeContextCanceled, "search interrupted")
			}
			return types.Failed[search.Result](err), err
		}
		log.WithField("query", q.Text).Warnf("search failed: %v", err)
		return types.Failed[search.Result](err), nil
	}

	first, ok := search.First(results)
	if !ok {
		log.WithField("query", q.Text).Debug("no search results")
		return types.Absent[search.Result](), nil
	}
	return types.Found(first), nil
}

func (e *Enricher) observe(kind string, status types.LookupStatus) {
	if e.observer != nil {
		e.observer.ObserveLookup(kind, status)
	}
}
