// cmd/leadscout/app.go
package main

import (
	"context"
	"strings"

	"github.com/valpere/LeadScout/internal/browser"
	"github.com/valpere/LeadScout/internal/config"
	"github.com/valpere/LeadScout/internal/discovery"
	"github.com/valpere/LeadScout/internal/enrich"
	apperrors "github.com/valpere/LeadScout/internal/errors"
	"github.com/valpere/LeadScout/internal/monitoring"
	"github.com/valpere/LeadScout/internal/output"
	"github.com/valpere/LeadScout/internal/pipeline"
	"github.com/valpere/LeadScout/internal/scoring"
	"github.com/valpere/LeadScout/internal/scraper"
	"github.com/valpere/LeadScout/internal/search"
	"github.com/valpere/LeadScout/internal/utils"
)

// app holds what the commands share: the loaded configuration, the metrics
// every component reports to and the resources to release on exit.
type app struct {
	cfg     *config.Config
	metrics *monitoring.Metrics
	logger  utils.Logger
	closers []func() error
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	level, err := utils.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, "invalid log level")
	}
	utils.SetDefaultLevel(level)

	return &app{
		cfg:     cfg,
		metrics: monitoring.NewMetrics(monitoring.MetricsConfig{EnableGoMetrics: true}),
		logger:  utils.NewComponentLogger("cli"),
	}, nil
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warnf("close failed: %v", err)
		}
	}
	a.closers = nil
}

func (a *app) fetcher() *browser.ChromeFetcher {
	f := browser.NewChromeFetcher(&a.cfg.Browser).WithObserver(a.metrics)
	a.onClose(f.Close)
	return f
}

// connector builds the configured search backend behind a circuit breaker
func (a *app) connector(fetcher browser.Fetcher) (search.Connector, error) {
	s := a.cfg.Search
	var inner search.Connector
	switch s.Backend {
	case config.BackendScrape:
		inner = search.NewScrapeConnector(fetcher, s.EngineURL, s.Timeout)
	default:
		tavily, err := search.NewTavilyConnector(s.TavilyURL, s.TavilyAPIKey, s.Timeout)
		if err != nil {
			return nil, err
		}
		inner = tavily
	}
	return search.NewGuardedConnector(inner, apperrors.NewCircuitBreaker(inner.Name(), s.Breaker)), nil
}

// orchestrator wires fetcher, search, detail extraction, enrichment,
// normalization and the output sink into one discovery orchestrator
func (a *app) orchestrator(out output.Config) (*discovery.Orchestrator, *output.Manager, error) {
	fetcher := a.fetcher()

	searcher, err := a.connector(fetcher)
	if err != nil {
		return nil, nil, err
	}

	details, err := scraper.NewDetailExtractor(fetcher, a.cfg.Selectors,
		scraper.WithDetailWait(a.cfg.Browser.WaitTimeout, 0))
	if err != nil {
		return nil, nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, "invalid selectors")
	}

	enrichOpts := []enrich.Option{enrich.WithObserver(a.metrics)}
	if a.cfg.Search.Enrich.ScrapeReviewPage {
		enrichOpts = append(enrichOpts, enrich.WithReviewPages(details))
	}
	enricher := enrich.New(details, searcher, a.cfg.Search.Enrich, enrichOpts...)

	sink, err := output.NewManager(out, output.WithWriteObserver(a.metrics))
	if err != nil {
		return nil, nil, err
	}

	opts := []discovery.Option{
		discovery.WithSink(sink),
		discovery.WithObserver(a.metrics),
	}
	if a.cfg.Normalize.Enabled {
		normalizer, err := pipeline.NewRecordNormalizer(a.cfg.Normalize.Global, a.cfg.Normalize.Fields)
		if err != nil {
			return nil, nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, "invalid normalize rules")
		}
		opts = append(opts, discovery.WithNormalizer(normalizer))
	}

	return discovery.New(fetcher, enricher, a.cfg.Selectors, a.cfg.Discovery, opts...), sink, nil
}

func (a *app) gemini(ctx context.Context) (*scoring.GeminiClient, error) {
	s := a.cfg.Scoring
	client, err := scoring.NewGeminiClient(ctx, scoring.Config{
		APIKey:  s.GeminiAPIKey,
		Model:   s.Model,
		BaseURL: s.BaseURL,
		Timeout: s.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return client.WithObserver(a.metrics), nil
}

// leadStore opens and migrates the lead database
func (a *app) leadStore(ctx context.Context) (*output.LeadStore, error) {
	l := a.cfg.Leads
	if strings.TrimSpace(l.DSN) == "" {
		return nil, utils.NewError(utils.ErrCodeMissingConfig, "leads.dsn is not set").Build()
	}
	store, err := output.OpenLeadStore(l.Format, l.Driver, l.DSN)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "failed to open lead store")
	}
	a.onClose(store.Close)
	if err := store.Migrate(ctx); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "failed to prepare lead store")
	}
	return store, nil
}
