// internal/browser/chromedp.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/valpere/LeadScout/internal/utils"
)

var browserLogger = utils.NewComponentLogger("browser")

// Session owns one headless Chrome process and a single tab.
// It must be closed; Close releases both.
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	config      *BrowserConfig
}

// allocatorOptions translates the config into Chrome flags
func allocatorOptions(config *BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
	}

	if config.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(config.ExecPath))
	}
	if config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(config.UserDataDir))
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.ViewportWidth > 0 && config.ViewportHeight > 0 {
		opts = append(opts, chromedp.WindowSize(config.ViewportWidth, config.ViewportHeight))
	}
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	return opts
}

// NewSession launches a browser bound to parent. A launch failure is
// reported as ErrCodeBrowserFailed.
func NewSession(parent context.Context, config *BrowserConfig) (*Session, error) {
	if config == nil {
		config = DefaultBrowserConfig()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocatorOptions(config)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser and opens the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		if parent.Err() != nil {
			return nil, utils.WrapError(parent.Err(), utils.ErrCodeContextCanceled, "browser launch interrupted")
		}
		return nil, utils.NewError(utils.ErrCodeBrowserFailed, "failed to start browser").
			WithCause(err).
			WithSeverity(utils.SeverityCritical).
			Build()
	}

	return &Session{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		config:      config,
	}, nil
}

// Fetch loads req.URL in the session's tab and returns the page markup.
// ctx cancels the fetch without tearing down the session.
func (s *Session) Fetch(ctx context.Context, req FetchRequest) (string, error) {
	timeout := s.config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	fail := func(code utils.ErrorCode, msg string, err error) error {
		if ctx.Err() != nil {
			return utils.WrapError(ctx.Err(), utils.ErrCodeContextCanceled, msg)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			code = utils.ErrCodeNetworkTimeout
		}
		return utils.NewError(code, msg).
			WithCause(err).
			WithContext("url", req.URL).
			Build()
	}

	if err := chromedp.Run(runCtx, chromedp.Navigate(req.URL)); err != nil {
		return "", fail(utils.ErrCodeNavigation, "navigation failed", err)
	}

	waitTimeout := req.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = s.config.WaitTimeout
	}

	if in := req.Input; in != nil {
		if err := s.waitVisible(runCtx, in.Selector, waitTimeout); err != nil {
			return "", fail(utils.ErrCodeSelectorNotFound, fmt.Sprintf("input %q not ready", in.Selector), err)
		}
		actions := []chromedp.Action{chromedp.SendKeys(in.Selector, in.Text, chromedp.ByQuery)}
		if in.Submit {
			actions = append(actions, chromedp.SendKeys(in.Selector, kb.Enter, chromedp.ByQuery))
		}
		if err := chromedp.Run(runCtx, actions...); err != nil {
			return "", fail(utils.ErrCodeNavigation, "failed to submit input", err)
		}
	}

	if req.WaitFor != "" {
		if err := s.waitVisible(runCtx, req.WaitFor, waitTimeout); err != nil {
			return "", fail(utils.ErrCodeSelectorNotFound, fmt.Sprintf("%q never became visible", req.WaitFor), err)
		}
	} else if err := chromedp.Run(runCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return "", fail(utils.ErrCodeNavigation, "page body not ready", err)
	}

	if req.Settle > 0 {
		if err := chromedp.Run(runCtx, chromedp.Sleep(req.Settle)); err != nil {
			return "", fail(utils.ErrCodeNavigation, "interrupted while settling", err)
		}
	}

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fail(utils.ErrCodeExtractionFailed, "failed to read page markup", err)
	}
	return html, nil
}

func (s *Session) waitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Close shuts the tab and the browser process
func (s *Session) Close() error {
	if s.cancelTab != nil {
		s.cancelTab()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}
	return nil
}

// ChromeFetcher implements Fetcher with a fresh Session per call, or with
// sessions borrowed from a SessionPool when pooling is enabled.
type ChromeFetcher struct {
	config   *BrowserConfig
	pool     *SessionPool
	observer FetchObserver
	stats    *BrowserStats
	logger   utils.Logger

	newTab func(ctx context.Context) (Tab, error)
}

// NewChromeFetcher creates a fetcher. With config.PoolSize > 0 sessions are
// reused across fetches, up to PoolSize at once.
func NewChromeFetcher(config *BrowserConfig) *ChromeFetcher {
	if config == nil {
		config = DefaultBrowserConfig()
	}

	f := &ChromeFetcher{
		config: config,
		stats:  &BrowserStats{},
		logger: browserLogger,
	}
	f.newTab = func(ctx context.Context) (Tab, error) {
		return NewSession(ctx, f.config)
	}
	if config.PoolSize > 0 {
		// pooled sessions outlive any single request
		f.pool = NewSessionPool(context.Background(), config.PoolSize, f.openTab)
	}
	return f
}

// WithObserver attaches a metrics observer
func (f *ChromeFetcher) WithObserver(o FetchObserver) *ChromeFetcher {
	f.observer = o
	return f
}

// Stats returns the fetcher counters
func (f *ChromeFetcher) Stats() *BrowserStats {
	return f.stats
}

func (f *ChromeFetcher) openTab(ctx context.Context) (Tab, error) {
	tab, err := f.newTab(ctx)
	if err != nil {
		return nil, err
	}
	f.stats.SessionsOpened.Add(1)
	return &countingTab{Tab: tab, stats: f.stats}, nil
}

// Fetch implements Fetcher
func (f *ChromeFetcher) Fetch(ctx context.Context, req FetchRequest) (string, error) {
	start := time.Now()
	html, err := f.fetch(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		f.stats.Errors.Add(1)
		if utils.IsTimeout(err) || utils.CodeOf(err) == utils.ErrCodeSelectorNotFound {
			f.stats.Timeouts.Add(1)
		}
	} else {
		f.stats.PagesLoaded.Add(1)
	}
	if f.observer != nil {
		f.observer.ObserveFetch(req.Label, elapsed, err)
	}

	f.logger.WithFields(map[string]interface{}{
		"url":      utils.TruncateString(req.URL, 120),
		"label":    req.Label,
		"duration": utils.FormatDuration(elapsed),
	}).Debugf("fetch finished (err=%v)", err)

	return html, err
}

func (f *ChromeFetcher) fetch(ctx context.Context, req FetchRequest) (string, error) {
	if f.pool != nil {
		tab, err := f.pool.Get(ctx)
		if err != nil {
			return "", err
		}
		html, err := tab.Fetch(ctx, req)
		if err != nil {
			// a failed tab may be left mid-navigation
			f.pool.Discard(tab)
			return "", err
		}
		f.pool.Put(tab)
		return html, nil
	}

	tab, err := f.openTab(ctx)
	if err != nil {
		return "", err
	}
	defer tab.Close()
	return tab.Fetch(ctx, req)
}

// Close releases pooled sessions
func (f *ChromeFetcher) Close() error {
	if f.pool != nil {
		return f.pool.Close()
	}
	return nil
}

type countingTab struct {
	Tab
	stats  *BrowserStats
	closed bool
}

func (t *countingTab) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.stats.SessionsClosed.Add(1)
	return t.Tab.Close()
}
