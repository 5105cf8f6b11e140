// internal/config/validation.go
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/valpere/LeadScout/internal/output"
	"github.com/valpere/LeadScout/internal/pipeline"
	"github.com/valpere/LeadScout/internal/search"
	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Path, ve.Message)
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

func (r *ValidationResult) fail(path, format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate returns the first problems found, joined into one error
func (c *Config) Validate() error {
	result := c.Check()
	if result.Valid {
		return nil
	}
	msgs := make([]string, len(result.Errors))
	for i, e := range result.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Check validates every section and collects errors and warnings
func (c *Config) Check() *ValidationResult {
	result := &ValidationResult{Valid: true}

	if _, err := utils.ParseLevel(c.LogLevel); err != nil {
		result.fail("log_level", "%v", err)
	}

	c.validateBrowser(result)
	c.validateDiscovery(result)
	c.validateSearch(result)
	c.validateNormalize(result)
	c.validateOutput(result)
	c.validateScoring(result)
	c.validateServer(result)

	return result
}

func (c *Config) validateBrowser(result *ValidationResult) {
	b := c.Browser
	if b.Timeout < 0 || b.WaitTimeout < 0 {
		result.fail("browser", "timeouts cannot be negative")
	}
	if b.WaitTimeout > b.Timeout && b.Timeout > 0 {
		result.warn("browser.wait_timeout (%v) exceeds browser.timeout (%v)", b.WaitTimeout, b.Timeout)
	}
	if b.ViewportWidth < 320 || b.ViewportHeight < 240 {
		result.fail("browser.viewport", "viewport %dx%d is too small", b.ViewportWidth, b.ViewportHeight)
	}
	if b.PoolSize < 0 {
		result.fail("browser.pool_size", "cannot be negative")
	}
}

func (c *Config) validateDiscovery(result *ValidationResult) {
	d := c.Discovery
	if err := validateHTTPURL(d.MapsURL); err != nil {
		result.fail("discovery.maps_url", "%v", err)
	}
	if d.Workers < 1 {
		result.fail("discovery.workers", "must be at least 1")
	}
	if d.Workers > 1 && c.Browser.PoolSize == 0 {
		result.warn("discovery.workers is %d but browser.pool_size is 0; every worker opens its own browser", d.Workers)
	}
	if d.ListingSettle < 0 {
		result.fail("discovery.listing_settle", "cannot be negative")
	}
	if err := c.Selectors.Validate(); err != nil {
		result.fail("selectors", "%v", err)
	}
}

func (c *Config) validateSearch(result *ValidationResult) {
	s := c.Search
	switch s.Backend {
	case BackendTavily:
		if strings.TrimSpace(s.TavilyAPIKey) == "" {
			result.warn("search.tavily_api_key is empty; set %s_TAVILY_API_KEY before running discovery", EnvPrefix)
		}
		if s.TavilyURL != "" {
			if err := validateHTTPURL(s.TavilyURL); err != nil {
				result.fail("search.tavily_url", "%v", err)
			}
		}
	case BackendScrape:
		if s.EngineURL != "" {
			if err := validateHTTPURL(s.EngineURL); err != nil {
				result.fail("search.engine_url", "%v", err)
			}
		}
	default:
		result.fail("search.backend", "unknown backend %q (want %s or %s)", s.Backend, BackendTavily, BackendScrape)
	}

	if s.Timeout < 0 {
		result.fail("search.timeout", "cannot be negative")
	}
	if s.Breaker.MaxFailures < 1 {
		result.fail("search.breaker.max_failures", "must be at least 1")
	}
	if s.Breaker.ResetTimeout < 0 {
		result.fail("search.breaker.reset_timeout", "cannot be negative")
	}
	e := s.Enrich
	if e.ReviewDepth != search.DepthBasic && e.ReviewDepth != search.DepthAdvanced {
		result.fail("search.enrich.review_depth", "unknown depth %q", e.ReviewDepth)
	}
	if e.DescriptionDepth != search.DepthBasic && e.DescriptionDepth != search.DepthAdvanced {
		result.fail("search.enrich.description_depth", "unknown depth %q", e.DescriptionDepth)
	}
	if e.ReviewMaxResults < 1 || e.DescriptionMaxResults < 1 {
		result.fail("search.enrich", "max results must be at least 1")
	}
}

func (c *Config) validateNormalize(result *ValidationResult) {
	if !c.Normalize.Enabled {
		return
	}
	if _, err := pipeline.NewRecordNormalizer(c.Normalize.Global, c.Normalize.Fields); err != nil {
		result.fail("normalize", "%v", err)
	}
}

func (c *Config) validateOutput(result *ValidationResult) {
	if err := c.Output.Validate(); err != nil {
		result.fail("output", "%v", err)
	}

	switch c.Leads.Format {
	case output.FormatSQLite, output.FormatPostgreSQL, output.FormatMySQL:
	default:
		result.fail("leads.format", "lead store must be sqlite, postgresql or mysql, got %q", c.Leads.Format)
	}
	if strings.TrimSpace(c.Leads.DSN) == "" {
		result.warn("leads.dsn is empty; scoring results will not be stored")
	}
	if c.Leads.Format == output.FormatPostgreSQL && c.Leads.Driver != "" &&
		c.Leads.Driver != "postgres" && c.Leads.Driver != "pgx" {
		result.fail("leads.driver", "unknown postgresql driver %q", c.Leads.Driver)
	}
}

func (c *Config) validateScoring(result *ValidationResult) {
	s := c.Scoring
	if strings.TrimSpace(s.Model) == "" {
		result.fail("scoring.model", "cannot be empty")
	}
	if s.BaseURL != "" {
		if err := validateHTTPURL(s.BaseURL); err != nil {
			result.fail("scoring.base_url", "%v", err)
		}
	}
	if s.Workers < 1 {
		result.fail("scoring.workers", "must be at least 1")
	}
	for _, ch := range s.Channels {
		known := false
		for _, d := range types.DefaultChannels {
			if ch == d {
				known = true
			}
		}
		if !known {
			result.warn("scoring.channels: %q is not one of %v", ch, types.DefaultChannels)
		}
	}
}

func (c *Config) validateServer(result *ValidationResult) {
	if !strings.Contains(c.Server.Addr, ":") {
		result.fail("server.addr", "address %q has no port", c.Server.Addr)
	}
	if c.Server.MaxResults < 1 {
		result.fail("server.max_results", "must be at least 1")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		result.fail("metrics.path", "must start with /")
	}
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}

// ValidateConfig validates a configuration and returns detailed error information
func ValidateConfig(config *Config) []ValidationError {
	if config == nil {
		return []ValidationError{{Path: "config", Message: "configuration cannot be nil"}}
	}
	return config.Check().Errors
}
