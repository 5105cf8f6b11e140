// internal/config/types.go
package config

import (
	"time"

	"github.com/valpere/LeadScout/internal/browser"
	"github.com/valpere/LeadScout/internal/discovery"
	"github.com/valpere/LeadScout/internal/enrich"
	apperrors "github.com/valpere/LeadScout/internal/errors"
	"github.com/valpere/LeadScout/internal/output"
	"github.com/valpere/LeadScout/internal/pipeline"
	"github.com/valpere/LeadScout/internal/scraper"
)

// EnvPrefix is the prefix of every environment override
const EnvPrefix = "LEADSCOUT"

// Search backends
const (
	BackendTavily = "tavily"
	BackendScrape = "scrape"
)

// Config represents the complete LeadScout configuration
type Config struct {
	LogLevel string `yaml:"log_level" json:"log_level"`

	Browser   browser.BrowserConfig `yaml:"browser" json:"browser"`
	Discovery discovery.Options     `yaml:"discovery" json:"discovery"`
	Selectors scraper.Selectors     `yaml:"selectors" json:"selectors"`
	Search    SearchConfig          `yaml:"search" json:"search"`
	Normalize NormalizeConfig       `yaml:"normalize" json:"normalize"`
	Output    output.Config         `yaml:"output" json:"output"`
	Leads     LeadStoreConfig       `yaml:"leads" json:"leads"`
	Scoring   ScoringConfig         `yaml:"scoring" json:"scoring"`
	Metrics   MetricsConfig         `yaml:"metrics" json:"metrics"`
	Server    ServerConfig          `yaml:"server" json:"server"`
}

// SearchConfig selects the web search backend used for enrichment
type SearchConfig struct {
	// Backend is "tavily" (HTTP API) or "scrape" (search page in the browser)
	Backend      string        `yaml:"backend" json:"backend"`
	TavilyURL    string        `yaml:"tavily_url,omitempty" json:"tavily_url,omitempty"`
	TavilyAPIKey string        `yaml:"tavily_api_key,omitempty" json:"-"`
	EngineURL    string        `yaml:"engine_url,omitempty" json:"engine_url,omitempty"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	Enrich       enrich.Config `yaml:"enrich" json:"enrich"`
	// Breaker pauses the backend after consecutive failures
	Breaker apperrors.CircuitBreakerConfig `yaml:"breaker" json:"breaker"`
}

// NormalizeConfig holds the cleanup rules applied before records are emitted.
// Empty rule sets mean the built in defaults.
type NormalizeConfig struct {
	Enabled bool                      `yaml:"enabled" json:"enabled"`
	Global  pipeline.TransformList    `yaml:"global,omitempty" json:"global,omitempty"`
	Fields  []pipeline.FieldTransform `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// LeadStoreConfig points at the database holding scored leads and personas
type LeadStoreConfig struct {
	Format output.OutputFormat `yaml:"format" json:"format"`
	Driver string              `yaml:"driver,omitempty" json:"driver,omitempty"`
	DSN    string              `yaml:"dsn" json:"-"`
}

// ScoringConfig configures the Gemini backed scorer and persona generator
type ScoringConfig struct {
	GeminiAPIKey string        `yaml:"gemini_api_key,omitempty" json:"-"`
	Model        string        `yaml:"model" json:"model"`
	BaseURL      string        `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	Workers      int           `yaml:"workers" json:"workers"`
	Channels     []string      `yaml:"channels,omitempty" json:"channels,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	// MaxResults caps the batch size a single API request may ask for
	MaxResults int `yaml:"max_results" json:"max_results"`
	// APIKey, when set, is required as a bearer token on /api routes
	APIKey string `yaml:"api_key,omitempty" json:"-"`
}

// envOverrides are read with envconfig using EnvPrefix, for example
// LEADSCOUT_TAVILY_API_KEY. Empty values leave the file settings alone.
type envOverrides struct {
	LogLevel     string `envconfig:"LOG_LEVEL"`
	TavilyAPIKey string `envconfig:"TAVILY_API_KEY"`
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	DatabaseDSN  string `envconfig:"DATABASE_DSN"`
	OutputFormat string `envconfig:"OUTPUT_FORMAT"`
	ChromePath   string `envconfig:"CHROME_PATH"`
	ServerAddr   string `envconfig:"SERVER_ADDR"`
	APIKey       string `envconfig:"API_KEY"`
}

// DefaultConfig returns a configuration that discovers with Tavily and
// writes JSON files into the working directory
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		Browser:   *browser.DefaultBrowserConfig(),
		Discovery: discovery.DefaultOptions(),
		Selectors: scraper.DefaultSelectors(),
		Search: SearchConfig{
			Backend: BackendTavily,
			Timeout: 30 * time.Second,
			Enrich:  enrich.DefaultConfig(),
			Breaker: apperrors.CircuitBreakerConfig{MaxFailures: 5, ResetTimeout: time.Minute},
		},
		Normalize: NormalizeConfig{Enabled: true},
		Output:    output.DefaultConfig(),
		Leads: LeadStoreConfig{
			Format: output.FormatSQLite,
			DSN:    "leadscout.db",
		},
		Scoring: ScoringConfig{
			Model:   "gemini-2.5-flash",
			Timeout: 60 * time.Second,
			Workers: 1,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			MaxResults:      50,
		},
	}
}
