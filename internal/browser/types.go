// internal/browser/types.go
package browser

import (
	"context"
	"sync/atomic"
	"time"
)

// BrowserConfig defines browser automation configuration
type BrowserConfig struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	ExecPath       string        `yaml:"exec_path,omitempty" json:"exec_path,omitempty"`
	UserDataDir    string        `yaml:"user_data_dir,omitempty" json:"user_data_dir,omitempty"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	WaitTimeout    time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	UserAgent      string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	DisableImages  bool          `yaml:"disable_images" json:"disable_images"`
	NoSandbox      bool          `yaml:"no_sandbox" json:"no_sandbox"`
	PoolSize       int           `yaml:"pool_size" json:"pool_size"`
}

// DefaultBrowserConfig returns default browser configuration
func DefaultBrowserConfig() *BrowserConfig {
	return &BrowserConfig{
		Headless:       true,
		Timeout:        60 * time.Second,
		WaitTimeout:    15 * time.Second,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		DisableImages:  true,
		NoSandbox:      true, // Required for Docker environments
	}
}

// InputAction fills a field on the loaded page before reading it
type InputAction struct {
	Selector string
	Text     string
	// Submit presses Enter after typing
	Submit bool
}

// FetchRequest describes one page load.
//
// WaitFor is a CSS selector that must become visible before the markup is
// read; the wait is bounded by WaitTimeout. Settle is an optional pause
// after the selector shows up, for pages that keep rendering lazily.
type FetchRequest struct {
	URL         string
	Label       string
	Input       *InputAction
	WaitFor     string
	WaitTimeout time.Duration
	Settle      time.Duration
}

// Fetcher renders a page and returns its markup
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, req FetchRequest) (string, error)

// Fetch calls f(ctx, req)
func (f FetcherFunc) Fetch(ctx context.Context, req FetchRequest) (string, error) {
	return f(ctx, req)
}

// Tab is one live browser page that can serve fetches until closed
type Tab interface {
	Fetch(ctx context.Context, req FetchRequest) (string, error)
	Close() error
}

// FetchObserver receives timing for every fetch
type FetchObserver interface {
	ObserveFetch(label string, duration time.Duration, err error)
}

// BrowserStats contains browser automation statistics
type BrowserStats struct {
	PagesLoaded    atomic.Int64
	Errors         atomic.Int64
	Timeouts       atomic.Int64
	SessionsOpened atomic.Int64
	SessionsClosed atomic.Int64
}

// Snapshot returns the counters as a plain map
func (s *BrowserStats) Snapshot() map[string]int64 {
	return map[string]int64{
		"pages_loaded":    s.PagesLoaded.Load(),
		"errors":          s.Errors.Load(),
		"timeouts":        s.Timeouts.Load(),
		"sessions_opened": s.SessionsOpened.Load(),
		"sessions_closed": s.SessionsClosed.Load(),
	}
}
