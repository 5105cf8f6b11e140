// internal/discovery/orchestrator.go

// Package discovery runs a maps search for a sector in a region and turns
// the listing into enriched business records.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/LeadScout/internal/browser"
	"github.com/valpere/LeadScout/internal/enrich"
	"github.com/valpere/LeadScout/internal/scraper"
	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

const defaultMapsURL = "https://www.google.com/maps"

// Enricher completes one candidate
type Enricher interface {
	Enrich(ctx context.Context, target enrich.Target, c scraper.Candidate) (types.BusinessRecord, error)
}

// Normalizer cleans a record before it joins the batch
type Normalizer interface {
	Normalize(record types.BusinessRecord) types.BusinessRecord
}

// Sink receives the finished batch
type Sink interface {
	WriteRecords(ctx context.Context, records []types.BusinessRecord) error
}

// Observer is notified about run progress
type Observer interface {
	RunStarted(sector, region string)
	CandidatesParsed(found, skipped int)
	RecordEmitted(sector, region string)
	RunFinished(status types.RunStatus, duration time.Duration)
}

// Options controls a discovery run
type Options struct {
	MapsURL            string        `yaml:"maps_url" json:"maps_url"`
	ListingWaitTimeout time.Duration `yaml:"listing_wait_timeout" json:"listing_wait_timeout"`
	ListingSettle      time.Duration `yaml:"listing_settle" json:"listing_settle"`
	// Workers above 1 enriches that many candidates at once; batch order is unchanged
	Workers int `yaml:"workers" json:"workers"`
	// ExcludeWithWebsite keeps only businesses that have no website
	ExcludeWithWebsite bool `yaml:"exclude_with_website" json:"exclude_with_website"`
}

// DefaultOptions returns sequential discovery against Google Maps
func DefaultOptions() Options {
	return Options{
		MapsURL:            defaultMapsURL,
		ListingWaitTimeout: 15 * time.Second,
		ListingSettle:      2 * time.Second,
		Workers:            1,
	}
}

// Orchestrator drives one discovery run at a time per call
type Orchestrator struct {
	fetcher    browser.Fetcher
	parser     *scraper.ListingParser
	enricher   Enricher
	selectors  scraper.Selectors
	options    Options
	normalizer Normalizer
	sink       Sink
	observer   Observer
	logger     utils.Logger
	newRunID   func() string
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithNormalizer sets the record normalizer
func WithNormalizer(n Normalizer) Option {
	return func(o *Orchestrator) { o.normalizer = n }
}

// WithSink sets where Run hands finished batches
func WithSink(s Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithObserver attaches a progress observer
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithLogger replaces the component logger
func WithLogger(l utils.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithRunIDs replaces the run id generator
func WithRunIDs(gen func() string) Option {
	return func(o *Orchestrator) { o.newRunID = gen }
}

// New creates an Orchestrator
func New(fetcher browser.Fetcher, enricher Enricher, selectors scraper.Selectors, options Options, opts ...Option) *Orchestrator {
	def := DefaultOptions()
	if options.MapsURL == "" {
		options.MapsURL = def.MapsURL
	}
	if options.ListingWaitTimeout <= 0 {
		options.ListingWaitTimeout = def.ListingWaitTimeout
	}
	if options.Workers <= 0 {
		options.Workers = 1
	}

	o := &Orchestrator{
		fetcher:   fetcher,
		parser:    scraper.NewListingParser(selectors),
		enricher:  enricher,
		selectors: selectors.WithDefaults(),
		options:   options,
		logger:    utils.NewComponentLogger("discovery"),
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ListingQuery is the text typed into the maps search box
func ListingQuery(sector, region string) string {
	return fmt.Sprintf("%s in %s", sector, region)
}

// Discover returns up to maxResults records for businesses of sector in
// region, in listing order. An unavailable listing gives an empty batch.
// Fatal failures are returned together with the records collected so far.
func (o *Orchestrator) Discover(ctx context.Context, region, sector string, maxResults int) ([]types.BusinessRecord, error) {
	return o.discover(ctx, o.newRunID(), region, sector, maxResults)
}

func (o *Orchestrator) discover(ctx context.Context, runID, region, sector string, maxResults int) ([]types.BusinessRecord, error) {
	batch := []types.BusinessRecord{}
	if maxResults <= 0 {
		return batch, nil
	}

	log := o.logger.WithFields(map[string]interface{}{
		"run_id": runID,
		"region": region,
		"sector": sector,
	})
	query := ListingQuery(sector, region)
	log.Infof("searching maps for %q (max %d)", query, maxResults)

	page, err := browser.FetchMarkup(ctx, o.fetcher, browser.FetchRequest{
		URL:   o.options.MapsURL,
		Label: "listing",
		Input: &browser.InputAction{
			Selector: o.selectors.SearchBox,
			Text:     query,
			Submit:   true,
		},
		WaitFor:     o.selectors.ResultsFeed,
		WaitTimeout: o.options.ListingWaitTimeout,
		Settle:      o.options.ListingSettle,
	}, log)
	if err != nil {
		return batch, err
	}
	if !page.OK() {
		log.Warn("listing unavailable, returning empty batch")
		return batch, nil
	}

	candidates, skipped, err := o.parser.ParseListing(page.Value)
	if err != nil {
		log.Errorf("listing could not be parsed: %v", err)
		return batch, nil
	}
	if o.observer != nil {
		o.observer.CandidatesParsed(len(candidates), skipped)
	}
	log.Infof("listing has %d named entries (%d without a name skipped)", len(candidates), skipped)

	target := enrich.Target{Region: region, Sector: sector, RunID: runID}
	if o.options.Workers > 1 {
		batch, err = o.enrichWindows(ctx, target, candidates, maxResults, batch)
	} else {
		batch, err = o.enrichSequential(ctx, target, candidates, maxResults, batch)
	}
	if err != nil {
		log.Errorf("run aborted after %d records: %v", len(batch), err)
		return batch, err
	}

	log.Infof("run produced %d records", len(batch))
	return batch, nil
}

func (o *Orchestrator) enrichSequential(ctx context.Context, target enrich.Target, candidates []scraper.Candidate, maxResults int, batch []types.BusinessRecord) ([]types.BusinessRecord, error) {
	for _, c := range candidates {
		if len(batch) >= maxResults {
			break
		}
		if err := ctx.Err(); err != nil {
			return batch, utils.WrapError(err, utils.ErrCodeContextCanceled, "discovery interrupted")
		}

		record, err := o.enricher.Enrich(ctx, target, c)
		if err != nil {
			return batch, err
		}
		batch = o.accept(batch, record)
	}
	return batch, nil
}

// enrichWindows enriches candidates in windows of Workers at a time and
// appends each window in listing order, so the batch matches the
// sequential result.
func (o *Orchestrator) enrichWindows(ctx context.Context, target enrich.Target, candidates []scraper.Candidate, maxResults int, batch []types.BusinessRecord) ([]types.BusinessRecord, error) {
	workers := o.options.Workers

	for start := 0; start < len(candidates) && len(batch) < maxResults; {
		size := workers
		if need := maxResults - len(batch); !o.options.ExcludeWithWebsite && size > need {
			size = need
		}
		end := start + size
		if end > len(candidates) {
			end = len(candidates)
		}
		window := candidates[start:end]
		records := make([]types.BusinessRecord, len(window))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, c := range window {
			g.Go(func() error {
				record, err := o.enricher.Enrich(gctx, target, c)
				if err != nil {
					return err
				}
				records[i] = record
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return batch, err
		}

		for _, record := range records {
			if len(batch) >= maxResults {
				break
			}
			batch = o.accept(batch, record)
		}
		start = end
	}
	return batch, nil
}

func (o *Orchestrator) accept(batch []types.BusinessRecord, record types.BusinessRecord) []types.BusinessRecord {
	if o.normalizer != nil {
		record = o.normalizer.Normalize(record)
	}
	if strings.TrimSpace(record.Name) == "" {
		return batch
	}
	if o.options.ExcludeWithWebsite && record.HasWebsite() {
		o.logger.WithField("business", record.Name).Debug("skipping business with a website")
		return batch
	}
	if o.observer != nil {
		o.observer.RecordEmitted(record.Industry, record.Region)
	}
	return append(batch, record)
}

// Run performs a discovery and hands the batch to the sink, reporting the
// outcome instead of returning an error.
func (o *Orchestrator) Run(ctx context.Context, req types.DiscoveryRequest) types.DiscoveryResult {
	return o.RunWithID(ctx, o.newRunID(), req)
}

// RunWithID is Run with a caller chosen run id
func (o *Orchestrator) RunWithID(ctx context.Context, runID string, req types.DiscoveryRequest) types.DiscoveryResult {
	if runID == "" {
		runID = o.newRunID()
	}
	result := types.DiscoveryResult{
		RunID:     runID,
		Status:    types.RunRunning,
		StartedAt: time.Now(),
	}
	if o.observer != nil {
		o.observer.RunStarted(req.Sector, req.Region)
	}

	records, err := o.discover(ctx, result.RunID, req.Region, req.Sector, req.MaxResults)
	result.Records = records

	if err == nil && o.sink != nil && len(records) > 0 {
		if werr := o.sink.WriteRecords(ctx, records); werr != nil {
			err = utils.WrapError(werr, utils.ErrCodeOutputFailed, "failed to persist batch")
		}
	}

	switch {
	case err == nil:
		result.Status = types.RunCompleted
	case utils.CodeOf(err) == utils.ErrCodeContextCanceled:
		result.Status = types.RunCancelled
		result.Error = err.Error()
	default:
		result.Status = types.RunFailed
		result.Error = err.Error()
	}
	result.Duration = time.Since(result.StartedAt)

	if o.observer != nil {
		o.observer.RunFinished(result.Status, result.Duration)
	}
	return result
}
