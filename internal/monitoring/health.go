// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck is a named probe. Critical checks make the whole service
// unhealthy when they fail; the others only degrade it.
type HealthCheck struct {
	Name     string
	Critical bool
	Timeout  time.Duration
	Check    func(ctx context.Context) HealthCheckResult
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Name     string                 `json:"name"`
	Status   HealthStatus           `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Duration time.Duration          `json:"duration"`
	Critical bool                   `json:"critical"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SystemHealth represents overall health at one point in time
type SystemHealth struct {
	Status    HealthStatus        `json:"status"`
	Timestamp time.Time           `json:"timestamp"`
	Version   string              `json:"version,omitempty"`
	Uptime    time.Duration       `json:"uptime"`
	Checks    []HealthCheckResult `json:"checks,omitempty"`
}

// HealthManager runs registered checks on demand
type HealthManager struct {
	mu             sync.RWMutex
	checks         map[string]*HealthCheck
	version        string
	started        time.Time
	defaultTimeout time.Duration
}

// NewHealthManager creates a health manager reporting version
func NewHealthManager(version string, defaultTimeout time.Duration) *HealthManager {
	if defaultTimeout <= 0 {
		defaultTimeout = 5 * time.Second
	}
	return &HealthManager{
		checks:         make(map[string]*HealthCheck),
		version:        version,
		started:        time.Now(),
		defaultTimeout: defaultTimeout,
	}
}

// RegisterCheck adds or replaces a check
func (hm *HealthManager) RegisterCheck(check *HealthCheck) {
	if check == nil || check.Name == "" {
		return
	}
	if check.Timeout <= 0 {
		check.Timeout = hm.defaultTimeout
	}
	hm.mu.Lock()
	hm.checks[check.Name] = check
	hm.mu.Unlock()
}

// Check runs every check concurrently and folds the results
func (hm *HealthManager) Check(ctx context.Context) SystemHealth {
	hm.mu.RLock()
	checks := make([]*HealthCheck, 0, len(hm.checks))
	for _, c := range hm.checks {
		checks = append(checks, c)
	}
	hm.mu.RUnlock()

	results := make([]HealthCheckResult, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, c *HealthCheck) {
			defer wg.Done()
			results[i] = runCheck(ctx, c)
		}(i, c)
	}
	wg.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	status := HealthStatusHealthy
	for _, r := range results {
		if r.Status == HealthStatusHealthy {
			continue
		}
		if r.Critical && r.Status == HealthStatusUnhealthy {
			status = HealthStatusUnhealthy
		} else if status == HealthStatusHealthy {
			status = HealthStatusDegraded
		}
	}

	return SystemHealth{
		Status:    status,
		Timestamp: time.Now(),
		Version:   hm.version,
		Uptime:    time.Since(hm.started),
		Checks:    results,
	}
}

func runCheck(ctx context.Context, check *HealthCheck) HealthCheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	start := time.Now()
	var result HealthCheckResult
	if check.Check != nil {
		result = check.Check(checkCtx)
	} else {
		result = HealthCheckResult{Status: HealthStatusDegraded, Message: "no check function"}
	}
	result.Name = check.Name
	result.Critical = check.Critical
	result.Duration = time.Since(start)
	return result
}

// HealthHandler serves the health report as JSON. Unhealthy answers 503.
func (hm *HealthManager) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := hm.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if health.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(health)
	}
}

// DatabaseHealthCheck wraps a ping function such as LeadStore.Ping
func DatabaseHealthCheck(name string, ping func(ctx context.Context) error) *HealthCheck {
	return &HealthCheck{
		Name:     name,
		Critical: true,
		Check: func(ctx context.Context) HealthCheckResult {
			if err := ping(ctx); err != nil {
				return HealthCheckResult{
					Status:  HealthStatusUnhealthy,
					Message: "database connection failed",
					Error:   err.Error(),
				}
			}
			return HealthCheckResult{Status: HealthStatusHealthy, Message: "database reachable"}
		},
	}
}

// GoroutineHealthCheck degrades when the goroutine count passes max
func GoroutineHealthCheck(max int) *HealthCheck {
	return &HealthCheck{
		Name: "goroutines",
		Check: func(ctx context.Context) HealthCheckResult {
			count := runtime.NumGoroutine()
			meta := map[string]interface{}{"goroutine_count": count, "max_allowed": max}
			if count > max {
				return HealthCheckResult{
					Status:   HealthStatusDegraded,
					Message:  fmt.Sprintf("high goroutine count: %d", count),
					Metadata: meta,
				}
			}
			return HealthCheckResult{Status: HealthStatusHealthy, Metadata: meta}
		},
	}
}

// HTTPHealthCheck probes an upstream such as the search API. Any answer
// below 500 counts as reachable.
func HTTPHealthCheck(name, url string, client *http.Client) *HealthCheck {
	if client == nil {
		client = http.DefaultClient
	}
	return &HealthCheck{
		Name: name,
		Check: func(ctx context.Context) HealthCheckResult {
			req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
			if err != nil {
				return HealthCheckResult{Status: HealthStatusUnhealthy, Message: "bad url", Error: err.Error()}
			}
			start := time.Now()
			resp, err := client.Do(req)
			meta := map[string]interface{}{"url": url, "response_time_ms": time.Since(start).Milliseconds()}
			if err != nil {
				return HealthCheckResult{Status: HealthStatusUnhealthy, Message: "request failed", Error: err.Error(), Metadata: meta}
			}
			resp.Body.Close()
			meta["status_code"] = resp.StatusCode
			if resp.StatusCode >= 500 {
				return HealthCheckResult{
					Status:   HealthStatusUnhealthy,
					Message:  fmt.Sprintf("upstream answered %d", resp.StatusCode),
					Metadata: meta,
				}
			}
			return HealthCheckResult{Status: HealthStatusHealthy, Metadata: meta}
		},
	}
}
