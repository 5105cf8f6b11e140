// internal/browser/browser_test.go
package browser

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

func TestDefaultBrowserConfig(t *testing.T) {
	config := DefaultBrowserConfig()

	if !config.Headless {
		t.Error("Expected headless mode by default")
	}
	if config.ViewportWidth != 1920 || config.ViewportHeight != 1080 {
		t.Errorf("Expected 1920x1080 viewport, got %dx%d", config.ViewportWidth, config.ViewportHeight)
	}
	if config.WaitTimeout != 15*time.Second {
		t.Errorf("Expected 15s wait timeout, got %v", config.WaitTimeout)
	}
	if config.PoolSize != 0 {
		t.Errorf("Expected scoped sessions by default, got pool size %d", config.PoolSize)
	}
}

type fakeTab struct {
	mu     sync.Mutex
	html   string
	err    error
	closed bool
	calls  int
}

func (f *fakeTab) Fetch(ctx context.Context, req FetchRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.html, f.err
}

func (f *fakeTab) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestFetcher(config *BrowserConfig, factory func(ctx context.Context) (Tab, error)) *ChromeFetcher {
	f := NewChromeFetcher(config)
	f.newTab = factory
	return f
}

func TestChromeFetcher_ScopedSessionClosedOnEveryPath(t *testing.T) {
	tests := []struct {
		name    string
		tab     *fakeTab
		wantErr bool
	}{
		{"success", &fakeTab{html: "<html><body>ok</body></html>"}, false},
		{"navigation failure", &fakeTab{err: utils.NewError(utils.ErrCodeNavigation, "boom").Build()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFetcher(DefaultBrowserConfig(), func(ctx context.Context) (Tab, error) {
				return tt.tab, nil
			})

			_, err := f.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Fetch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.tab.closed {
				t.Error("expected session to be closed after fetch")
			}
			stats := f.Stats().Snapshot()
			if stats["sessions_opened"] != 1 || stats["sessions_closed"] != 1 {
				t.Errorf("unbalanced sessions: %v", stats)
			}
		})
	}
}

func TestChromeFetcher_LaunchFailureIsFatal(t *testing.T) {
	launchErr := utils.NewError(utils.ErrCodeBrowserFailed, "no chrome").Build()
	f := newTestFetcher(DefaultBrowserConfig(), func(ctx context.Context) (Tab, error) {
		return nil, launchErr
	})

	_, err := f.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})
	if !utils.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
}

type recordingObserver struct {
	labels []string
	errs   []error
}

func (o *recordingObserver) ObserveFetch(label string, d time.Duration, err error) {
	o.labels = append(o.labels, label)
	o.errs = append(o.errs, err)
}

func TestChromeFetcher_Observer(t *testing.T) {
	obs := &recordingObserver{}
	f := newTestFetcher(DefaultBrowserConfig(), func(ctx context.Context) (Tab, error) {
		return &fakeTab{html: "<html></html>"}, nil
	}).WithObserver(obs)

	if _, err := f.Fetch(context.Background(), FetchRequest{URL: "https://example.com", Label: "listing"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(obs.labels) != 1 || obs.labels[0] != "listing" || obs.errs[0] != nil {
		t.Errorf("unexpected observations: %+v", obs)
	}
}

func TestChromeFetcher_PoolReusesAndDiscards(t *testing.T) {
	config := DefaultBrowserConfig()
	config.PoolSize = 1

	var created []*fakeTab
	f := newTestFetcher(config, func(ctx context.Context) (Tab, error) {
		tab := &fakeTab{html: "<html></html>"}
		created = append(created, tab)
		return tab, nil
	})
	defer f.Close()

	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(context.Background(), FetchRequest{URL: "https://example.com"}); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if len(created) != 1 {
		t.Fatalf("expected a single pooled session, got %d", len(created))
	}
	if created[0].calls != 3 {
		t.Errorf("expected 3 fetches on pooled session, got %d", created[0].calls)
	}

	created[0].err = errors.New("tab crashed")
	if _, err := f.Fetch(context.Background(), FetchRequest{URL: "https://example.com"}); err == nil {
		t.Fatal("expected error from crashed tab")
	}
	if !created[0].closed {
		t.Error("failed tab should be discarded")
	}

	created[0].err = nil
	if _, err := f.Fetch(context.Background(), FetchRequest{URL: "https://example.com"}); err != nil {
		t.Fatalf("unexpected error after discard: %v", err)
	}
	if len(created) != 2 {
		t.Errorf("expected a replacement session, got %d sessions", len(created))
	}
}

func TestSessionPool_WaitsForReturnedTab(t *testing.T) {
	pool := NewSessionPool(context.Background(), 1, func(ctx context.Context) (Tab, error) {
		return &fakeTab{}, nil
	})
	defer pool.Close()

	first, err := pool.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Get(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline while pool exhausted, got %v", err)
	}

	pool.Put(first)
	second, err := pool.Get(context.Background())
	if err != nil {
		t.Fatalf("Get after Put: %v", err)
	}
	if second != first {
		t.Error("expected the returned tab to be reused")
	}
	if pool.TotalSize() != 1 {
		t.Errorf("expected total size 1, got %d", pool.TotalSize())
	}
}

func TestSessionPool_Closed(t *testing.T) {
	pool := NewSessionPool(context.Background(), 2, func(ctx context.Context) (Tab, error) {
		return &fakeTab{}, nil
	})
	tab, _ := pool.Get(context.Background())
	pool.Put(tab)
	pool.Close()

	if !tab.(*fakeTab).closed {
		t.Error("idle tab should be closed with the pool")
	}
	if _, err := pool.Get(context.Background()); err == nil {
		t.Error("expected error from closed pool")
	}
}

func TestSessionPool_PutDuringCloseClosesEveryTab(t *testing.T) {
	for round := 0; round < 50; round++ {
		const size = 8
		pool := NewSessionPool(context.Background(), size, func(ctx context.Context) (Tab, error) {
			return &fakeTab{}, nil
		})
		tabs := make([]Tab, size)
		for i := range tabs {
			tab, err := pool.Get(context.Background())
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			tabs[i] = tab
		}

		var wg sync.WaitGroup
		for _, tab := range tabs {
			wg.Add(1)
			go func(tab Tab) {
				defer wg.Done()
				pool.Put(tab)
			}(tab)
		}
		pool.Close()
		wg.Wait()

		for i, tab := range tabs {
			ft := tab.(*fakeTab)
			ft.mu.Lock()
			closed := ft.closed
			ft.mu.Unlock()
			if !closed {
				t.Fatalf("round %d: tab %d returned around Close was left open", round, i)
			}
		}
		if pool.TotalSize() != 0 {
			t.Fatalf("round %d: %d tabs still counted", round, pool.TotalSize())
		}
	}
}

func TestFetchMarkup(t *testing.T) {
	tests := []struct {
		name       string
		html       string
		err        error
		wantStatus types.LookupStatus
		wantErr    bool
	}{
		{"found", "<html></html>", nil, types.LookupFound, false},
		{"blank page", "  ", nil, types.LookupAbsent, false},
		{"timeout", "", utils.NewError(utils.ErrCodeNetworkTimeout, "slow").Build(), types.LookupFailed, false},
		{"browser down", "", utils.NewError(utils.ErrCodeBrowserFailed, "gone").Build(), types.LookupFailed, true},
		{"pool wait past deadline", "", context.DeadlineExceeded, types.LookupFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FetcherFunc(func(ctx context.Context, req FetchRequest) (string, error) {
				return tt.html, tt.err
			})
			got, err := FetchMarkup(context.Background(), f, FetchRequest{URL: "https://example.com"}, utils.NewLoggerWithLevel(utils.ErrorLevel))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %v, want %v", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestSession_RealChrome(t *testing.T) {
	if _, err := exec.LookPath("google-chrome"); err != nil {
		if _, err := exec.LookPath("chromium"); err != nil {
			t.Skip("Skipping browser test - Chrome is not available")
		}
	}

	config := DefaultBrowserConfig()
	config.Timeout = 20 * time.Second
	f := NewChromeFetcher(config)
	defer f.Close()

	html, err := f.Fetch(context.Background(), FetchRequest{
		URL:     "data:text/html,<html><body><h1>Test</h1></body></html>",
		WaitFor: "h1",
	})
	if err != nil {
		if utils.IsFatal(err) {
			t.Skipf("Skipping browser test - Chrome failed to start: %v", err)
		}
		t.Fatalf("Failed to fetch HTML: %v", err)
	}
	if !strings.Contains(html, "<h1>Test</h1>") {
		t.Error("Expected HTML to contain test content")
	}
}
