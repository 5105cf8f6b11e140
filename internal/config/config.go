// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/valpere/LeadScout/internal/output"
	"github.com/valpere/LeadScout/internal/utils"
)

// Load reads a .env file when present, then the YAML file at path. An empty
// path gives the defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// a missing .env is normal outside development
		if _, statErr := os.Stat(".env"); statErr == nil {
			utils.NewComponentLogger("config").Warnf(".env file found but could not be loaded: %v", err)
		}
	}

	if path == "" {
		config := DefaultConfig()
		if err := finish(config); err != nil {
			return nil, err
		}
		return config, nil
	}
	return LoadFromFile(path)
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, utils.NewError(utils.ErrCodeMissingConfig, "configuration file not found: "+filename).Build()
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. Keys missing from the
// document keep their default values.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := os.ExpandEnv(string(data))

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, "failed to parse YAML configuration")
	}

	if err := finish(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}

	return LoadFromBytes(data)
}

func finish(config *Config) error {
	if err := applyEnv(config); err != nil {
		return err
	}
	applyDefaults(config)
	if err := config.Validate(); err != nil {
		return utils.WrapError(err, utils.ErrCodeInvalidConfig, "invalid configuration")
	}
	return nil
}

// applyEnv overlays LEADSCOUT_* environment variables
func applyEnv(config *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return utils.WrapError(err, utils.ErrCodeInvalidConfig, "failed to read environment overrides")
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&config.LogLevel, env.LogLevel)
	set(&config.Search.TavilyAPIKey, env.TavilyAPIKey)
	set(&config.Scoring.GeminiAPIKey, env.GeminiAPIKey)
	set(&config.Browser.ExecPath, env.ChromePath)
	set(&config.Server.Addr, env.ServerAddr)
	set(&config.Server.APIKey, env.APIKey)
	if env.OutputFormat != "" {
		config.Output.Format = output.OutputFormat(strings.ToLower(env.OutputFormat))
	}
	if env.DatabaseDSN != "" {
		config.Leads.DSN = env.DatabaseDSN
		if !config.Output.Format.IsFile() {
			config.Output.DSN = env.DatabaseDSN
		}
	}
	return nil
}

// applyDefaults fills values that were explicitly zeroed in the file
func applyDefaults(config *Config) {
	def := DefaultConfig()

	if config.LogLevel == "" {
		config.LogLevel = def.LogLevel
	}

	if config.Browser.Timeout == 0 {
		config.Browser.Timeout = def.Browser.Timeout
	}
	if config.Browser.WaitTimeout == 0 {
		config.Browser.WaitTimeout = def.Browser.WaitTimeout
	}
	if config.Browser.ViewportWidth == 0 {
		config.Browser.ViewportWidth = def.Browser.ViewportWidth
	}
	if config.Browser.ViewportHeight == 0 {
		config.Browser.ViewportHeight = def.Browser.ViewportHeight
	}

	if config.Discovery.MapsURL == "" {
		config.Discovery.MapsURL = def.Discovery.MapsURL
	}
	if config.Discovery.ListingWaitTimeout == 0 {
		config.Discovery.ListingWaitTimeout = def.Discovery.ListingWaitTimeout
	}
	if config.Discovery.Workers == 0 {
		config.Discovery.Workers = 1
	}

	config.Selectors = config.Selectors.WithDefaults()

	if config.Search.Backend == "" {
		config.Search.Backend = def.Search.Backend
	}
	config.Search.Backend = strings.ToLower(config.Search.Backend)
	if config.Search.Timeout == 0 {
		config.Search.Timeout = def.Search.Timeout
	}
	if config.Search.Enrich.ReviewDomain == "" {
		config.Search.Enrich.ReviewDomain = def.Search.Enrich.ReviewDomain
	}
	if config.Search.Enrich.ReviewMaxResults == 0 {
		config.Search.Enrich.ReviewMaxResults = def.Search.Enrich.ReviewMaxResults
	}
	if config.Search.Enrich.ReviewDepth == "" {
		config.Search.Enrich.ReviewDepth = def.Search.Enrich.ReviewDepth
	}
	if config.Search.Enrich.DescriptionDepth == "" {
		config.Search.Enrich.DescriptionDepth = def.Search.Enrich.DescriptionDepth
	}
	if config.Search.Enrich.DescriptionMaxResults == 0 {
		config.Search.Enrich.DescriptionMaxResults = def.Search.Enrich.DescriptionMaxResults
	}
	if config.Search.Breaker.MaxFailures == 0 {
		config.Search.Breaker.MaxFailures = def.Search.Breaker.MaxFailures
	}
	if config.Search.Breaker.ResetTimeout == 0 {
		config.Search.Breaker.ResetTimeout = def.Search.Breaker.ResetTimeout
	}

	if config.Output.Format == "" {
		config.Output.Format = def.Output.Format
	}
	if config.Output.Directory == "" {
		config.Output.Directory = def.Output.Directory
	}
	if config.Output.Table == "" {
		config.Output.Table = def.Output.Table
	}
	if config.Output.Database == "" {
		config.Output.Database = def.Output.Database
	}
	if config.Output.Collection == "" {
		config.Output.Collection = def.Output.Collection
	}
	if config.Output.OnConflict == "" {
		config.Output.OnConflict = def.Output.OnConflict
	}

	if config.Leads.Format == "" {
		config.Leads.Format = def.Leads.Format
	}

	if config.Scoring.Model == "" {
		config.Scoring.Model = def.Scoring.Model
	}
	if config.Scoring.Timeout == 0 {
		config.Scoring.Timeout = def.Scoring.Timeout
	}
	if config.Scoring.Workers == 0 {
		config.Scoring.Workers = def.Scoring.Workers
	}

	if config.Metrics.Path == "" {
		config.Metrics.Path = def.Metrics.Path
	}

	if config.Server.Addr == "" {
		config.Server.Addr = def.Server.Addr
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if config.Server.MaxResults == 0 {
		config.Server.MaxResults = def.Server.MaxResults
	}
}

// SaveToFile saves configuration to a YAML file
func SaveToFile(config *Config, filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	if err := SaveToWriter(config, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SaveToWriter saves configuration to an io.Writer
func SaveToWriter(config *Config, writer io.Writer) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if writer == nil {
		return fmt.Errorf("writer cannot be nil")
	}

	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}
	return encoder.Close()
}

// GenerateTemplate returns a starting configuration. templateType is
// "basic" (Tavily search, JSON files), "database" (PostgreSQL output and
// lead store) or "offline" (browser search, no API keys).
func GenerateTemplate(templateType string) *Config {
	config := DefaultConfig()
	config.Search.TavilyAPIKey = "${" + EnvPrefix + "_TAVILY_API_KEY}"
	config.Scoring.GeminiAPIKey = "${" + EnvPrefix + "_GEMINI_API_KEY}"

	switch strings.ToLower(templateType) {
	case "database":
		config.Output.Format = output.FormatPostgreSQL
		config.Output.DSN = "${" + EnvPrefix + "_DATABASE_DSN}"
		config.Leads = LeadStoreConfig{
			Format: output.FormatPostgreSQL,
			Driver: "pgx",
			DSN:    "${" + EnvPrefix + "_DATABASE_DSN}",
		}
	case "offline":
		config.Search.Backend = BackendScrape
		config.Search.TavilyAPIKey = ""
		config.Search.Enrich.ScrapeReviewPage = true
		config.Output.Format = output.FormatCSV
	}
	return config
}

// TemplateTypes lists the values accepted by GenerateTemplate
func TemplateTypes() []string {
	return []string{"basic", "database", "offline"}
}
