// internal/config/config_test.go
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valpere/LeadScout/internal/output"
	"github.com/valpere/LeadScout/internal/utils"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("default configuration should be valid: %v", err)
	}
	if config.Discovery.Workers != 1 {
		t.Errorf("expected sequential discovery by default, got %d workers", config.Discovery.Workers)
	}
	if config.Browser.PoolSize != 0 {
		t.Errorf("expected scoped browser sessions by default, got pool size %d", config.Browser.PoolSize)
	}
}

func TestLoadFromBytes(t *testing.T) {
	configYAML := `
log_level: debug
browser:
  pool_size: 2
  wait_timeout: 20s
discovery:
  workers: 3
  exclude_with_website: true
output:
  format: csv
  directory: leads
`

	config, err := LoadFromBytes([]byte(configYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}

	if config.LogLevel != "debug" {
		t.Errorf("expected debug log level, got %q", config.LogLevel)
	}
	if config.Browser.WaitTimeout != 20*time.Second {
		t.Errorf("expected 20s wait timeout, got %v", config.Browser.WaitTimeout)
	}
	if !config.Browser.Headless {
		t.Error("keys missing from the file should keep their defaults")
	}
	if config.Discovery.Workers != 3 || !config.Discovery.ExcludeWithWebsite {
		t.Errorf("unexpected discovery options %+v", config.Discovery)
	}
	if config.Output.Format != output.FormatCSV || config.Output.Directory != "leads" {
		t.Errorf("unexpected output config %+v", config.Output)
	}
	if config.Selectors.ListingItem == "" {
		t.Error("selectors should be filled from defaults")
	}
}

func TestLoadFromBytes_ZeroedValuesGetDefaults(t *testing.T) {
	configYAML := `
discovery:
  workers: 0
  maps_url: ""
search:
  backend: ""
`
	config, err := LoadFromBytes([]byte(configYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}
	if config.Discovery.Workers != 1 {
		t.Errorf("expected workers to fall back to 1, got %d", config.Discovery.Workers)
	}
	if config.Discovery.MapsURL == "" || config.Search.Backend != BackendTavily {
		t.Errorf("defaults not applied: %+v %+v", config.Discovery, config.Search)
	}
}

func TestLoadFromBytes_ExpandsEnvironment(t *testing.T) {
	t.Setenv("LEADS_DIR", "/srv/leads")
	t.Setenv("MY_TAVILY_KEY", "tvly-from-file")

	config, err := LoadFromBytes([]byte(`
search:
  tavily_api_key: ${MY_TAVILY_KEY}
output:
  directory: ${LEADS_DIR}
`))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}
	if config.Output.Directory != "/srv/leads" {
		t.Errorf("expected expanded directory, got %q", config.Output.Directory)
	}
	if config.Search.TavilyAPIKey != "tvly-from-file" {
		t.Errorf("expected expanded key, got %q", config.Search.TavilyAPIKey)
	}
}

func TestLoadFromBytes_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LEADSCOUT_TAVILY_API_KEY", "tvly-env")
	t.Setenv("LEADSCOUT_GEMINI_API_KEY", "gemini-env")
	t.Setenv("LEADSCOUT_DATABASE_DSN", "postgres://scout@db/leads")
	t.Setenv("LEADSCOUT_OUTPUT_FORMAT", "PostgreSQL")

	config, err := LoadFromBytes([]byte(`
search:
  tavily_api_key: tvly-file
`))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}
	if config.Search.TavilyAPIKey != "tvly-env" {
		t.Errorf("environment should win over the file, got %q", config.Search.TavilyAPIKey)
	}
	if config.Scoring.GeminiAPIKey != "gemini-env" {
		t.Errorf("expected gemini key from environment, got %q", config.Scoring.GeminiAPIKey)
	}
	if config.Output.Format != output.FormatPostgreSQL || config.Output.DSN != "postgres://scout@db/leads" {
		t.Errorf("unexpected output config %+v", config.Output)
	}
	if config.Leads.DSN != "postgres://scout@db/leads" {
		t.Errorf("expected lead store dsn from environment, got %q", config.Leads.DSN)
	}
}

func TestLoadFromBytes_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty", "   ", "cannot be empty"},
		{"malformed", "browser: [", "parse YAML"},
		{"unknown backend", "search:\n  backend: bing\n", "search.backend"},
		{"bad log level", "log_level: loud\n", "log_level"},
		{"bad maps url", "discovery:\n  maps_url: ftp://maps\n", "discovery.maps_url"},
		{"bad selector", "selectors:\n  listing_item: \"[[\"\n", "selectors"},
		{"bad output", "output:\n  format: pdf\n", "output"},
		{"bad lead store", "leads:\n  format: json\n", "leads.format"},
		{"bad transform", "normalize:\n  enabled: true\n  global:\n    - type: shout\n", "normalize"},
		{"tiny viewport", "browser:\n  viewport_width: 100\n", "browser.viewport"},
		{"negative breaker", "search:\n  breaker:\n    max_failures: -1\n", "search.breaker.max_failures"},
		{"unknown description depth", "search:\n  enrich:\n    description_depth: deep\n", "search.enrich.description_depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadFromBytes_InvalidIsConfigError(t *testing.T) {
	_, err := LoadFromBytes([]byte("search:\n  backend: bing\n"))
	if utils.CodeOf(err) != utils.ErrCodeInvalidConfig {
		t.Errorf("expected INVALID_CONFIG, got %s", utils.CodeOf(err))
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leadscout.yaml")
	if err := os.WriteFile(path, []byte("discovery:\n  workers: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if config.Discovery.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", config.Discovery.Workers)
	}

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if utils.CodeOf(err) != utils.ErrCodeMissingConfig {
		t.Errorf("expected MISSING_CONFIG for a missing file, got %v", err)
	}
}

func TestLoad_WithoutFile(t *testing.T) {
	t.Setenv("LEADSCOUT_SERVER_ADDR", "127.0.0.1:9090")

	config, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Server.Addr != "127.0.0.1:9090" {
		t.Errorf("expected server address from environment, got %q", config.Server.Addr)
	}
}

func TestTemplatesRoundTrip(t *testing.T) {
	t.Setenv("LEADSCOUT_DATABASE_DSN", "postgres://scout@db/leads")

	for _, name := range TemplateTypes() {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := SaveToWriter(GenerateTemplate(name), &buf); err != nil {
				t.Fatalf("SaveToWriter failed: %v", err)
			}
			if !strings.Contains(buf.String(), "${LEADSCOUT_GEMINI_API_KEY}") {
				t.Errorf("template should reference the gemini key variable:\n%s", buf.String())
			}

			config, err := LoadFromReader(&buf)
			if err != nil {
				t.Fatalf("template %s does not load: %v", name, err)
			}
			switch name {
			case "database":
				if config.Output.Format != output.FormatPostgreSQL || config.Leads.Driver != "pgx" {
					t.Errorf("unexpected database template %+v %+v", config.Output, config.Leads)
				}
			case "offline":
				if config.Search.Backend != BackendScrape {
					t.Errorf("expected scrape backend, got %q", config.Search.Backend)
				}
			}
		})
	}
}

func TestSaveToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := SaveToFile(DefaultConfig(), path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}
	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("saved file does not load: %v", err)
	}
	if config.Server.MaxResults != DefaultConfig().Server.MaxResults {
		t.Errorf("unexpected max results %d", config.Server.MaxResults)
	}
}

func TestCheckWarnings(t *testing.T) {
	config := DefaultConfig()
	config.Discovery.Workers = 3
	config.Search.TavilyAPIKey = ""

	result := config.Check()
	if !result.Valid {
		t.Fatalf("warnings should not invalidate the config: %v", result.Errors)
	}
	joined := strings.Join(result.Warnings, "\n")
	if !strings.Contains(joined, "pool_size") || !strings.Contains(joined, "TAVILY_API_KEY") {
		t.Errorf("expected pool and api key warnings, got:\n%s", joined)
	}
}

func TestValidateConfig(t *testing.T) {
	if errs := ValidateConfig(nil); len(errs) != 1 || errs[0].Path != "config" {
		t.Errorf("unexpected errors for nil config: %v", errs)
	}

	config := DefaultConfig()
	config.Scoring.Workers = 0
	config.Server.Addr = "localhost"
	errs := ValidateConfig(config)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if errs[0].Path != "scoring.workers" || errs[1].Path != "server.addr" {
		t.Errorf("unexpected error paths: %v", errs)
	}
}
