// internal/monitoring/monitoring_test.go
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/valpere/LeadScout/pkg/types"
)

func TestMetrics_DiscoveryObserver(t *testing.T) {
	m := NewMetrics(MetricsConfig{})

	m.RunStarted("plumbing", "Portland, OR")
	if got := testutil.ToFloat64(m.runsActive); got != 1 {
		t.Errorf("runs_active = %v, want 1", got)
	}
	m.CandidatesParsed(5, 2)
	m.RecordEmitted("plumbing", "Portland, OR")
	m.RecordEmitted("plumbing", "Portland, OR")
	m.RunFinished(types.RunCompleted, 3*time.Second)

	if got := testutil.ToFloat64(m.runsActive); got != 0 {
		t.Errorf("runs_active = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.candidatesSeen); got != 5 {
		t.Errorf("candidates_total = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.candidatesSkipped); got != 2 {
		t.Errorf("candidates_skipped_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.recordsEmitted.WithLabelValues("plumbing")); got != 2 {
		t.Errorf("records_emitted_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues("completed")); got != 1 {
		t.Errorf("runs_total{completed} = %v, want 1", got)
	}
}

func TestMetrics_Observers(t *testing.T) {
	m := NewMetrics(MetricsConfig{Namespace: "test"})

	m.ObserveFetch("listing", time.Second, nil)
	m.ObserveFetch("detail", time.Second, errors.New("timeout"))
	m.ObserveFetch("", time.Second, errors.New("timeout"))
	m.ObserveLookup("review", types.LookupFound)
	m.ObserveLookup("review", types.LookupAbsent)
	m.ObserveWrite("csv", 3, time.Millisecond, nil)
	m.ObserveWrite("csv", 3, time.Millisecond, errors.New("disk full"))
	m.ObserveLLMCall("score", time.Second, nil)
	m.ObserveLLMCall("persona", time.Second, errors.New("quota"))

	if got := testutil.ToFloat64(m.fetchErrors.WithLabelValues("detail")); got != 1 {
		t.Errorf("fetch_errors{detail} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.fetchErrors.WithLabelValues("page")); got != 1 {
		t.Errorf("fetch_errors{page} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lookupsTotal.WithLabelValues("review", types.LookupFound.String())); got != 1 {
		t.Errorf("lookups_total{review,found} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.writesTotal.WithLabelValues("csv", "error")); got != 1 {
		t.Errorf("writes_total{csv,error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.recordsWritten.WithLabelValues("csv")); got != 3 {
		t.Errorf("records_written_total{csv} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.llmCalls.WithLabelValues("persona", "error")); got != 1 {
		t.Errorf("llm_calls_total{persona,error} = %v, want 1", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(MetricsConfig{EnableGoMetrics: true})
	m.RunFinished(types.RunFailed, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`leadscout_discovery_runs_total{status="failed"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestHealthManager_Status(t *testing.T) {
	tests := []struct {
		name   string
		checks []*HealthCheck
		want   HealthStatus
		code   int
	}{
		{
			name: "all healthy",
			checks: []*HealthCheck{
				DatabaseHealthCheck("leads", func(ctx context.Context) error { return nil }),
				GoroutineHealthCheck(1 << 20),
			},
			want: HealthStatusHealthy,
			code: http.StatusOK,
		},
		{
			name: "non critical failure degrades",
			checks: []*HealthCheck{
				DatabaseHealthCheck("leads", func(ctx context.Context) error { return nil }),
				GoroutineHealthCheck(0),
			},
			want: HealthStatusDegraded,
			code: http.StatusOK,
		},
		{
			name: "critical failure",
			checks: []*HealthCheck{
				DatabaseHealthCheck("leads", func(ctx context.Context) error { return errors.New("connection refused") }),
			},
			want: HealthStatusUnhealthy,
			code: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm := NewHealthManager("test", time.Second)
			for _, c := range tt.checks {
				hm.RegisterCheck(c)
			}

			rec := httptest.NewRecorder()
			hm.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.code {
				t.Errorf("status code = %d, want %d", rec.Code, tt.code)
			}

			var health SystemHealth
			if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if health.Status != tt.want {
				t.Errorf("status = %s, want %s", health.Status, tt.want)
			}
			if len(health.Checks) != len(tt.checks) {
				t.Errorf("got %d check results, want %d", len(health.Checks), len(tt.checks))
			}
		})
	}
}

func TestHTTPHealthCheck(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer ok.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	if r := HTTPHealthCheck("search", ok.URL, nil).Check(context.Background()); r.Status != HealthStatusHealthy {
		t.Errorf("405 upstream status = %s, want healthy", r.Status)
	}
	if r := HTTPHealthCheck("search", broken.URL, nil).Check(context.Background()); r.Status != HealthStatusUnhealthy {
		t.Errorf("502 upstream status = %s, want unhealthy", r.Status)
	}
}

func TestRunTracker(t *testing.T) {
	rt := NewRunTracker(RunTrackerConfig{MaxRuns: 2})
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rt.now = func() time.Time { return clock }

	req := types.DiscoveryRequest{Region: "Portland, OR", Sector: "plumbing", MaxResults: 5}
	rt.StartRun("run-1", req)
	if active := rt.GetActiveRuns(); len(active) != 1 {
		t.Fatalf("active runs = %d, want 1", len(active))
	}

	clock = clock.Add(time.Minute)
	rt.CompleteRun("run-1", req, types.DiscoveryResult{
		RunID:   "run-1",
		Status:  types.RunCompleted,
		Records: []types.BusinessRecord{{Name: "Rose City Plumbing"}},
	})
	run, ok := rt.GetRun("run-1")
	if !ok {
		t.Fatal("run-1 not found")
	}
	if run.Status != types.RunCompleted || run.Records != 1 || run.Duration != time.Minute {
		t.Errorf("run-1 = %+v", run)
	}
	if run.Result == nil || run.Result.Records[0].Name != "Rose City Plumbing" {
		t.Error("GetRun should carry the result")
	}

	clock = clock.Add(time.Minute)
	rt.StartRun("run-2", req)
	clock = clock.Add(time.Minute)
	rt.StartRun("run-3", req)

	all := rt.GetAllRuns()
	if len(all) != 2 {
		t.Fatalf("runs kept = %d, want 2", len(all))
	}
	if all[0].ID != "run-3" || all[1].ID != "run-2" {
		t.Errorf("order = %s, %s; want run-3, run-2", all[0].ID, all[1].ID)
	}
	if all[0].Result != nil {
		t.Error("GetAllRuns should omit results")
	}
}
