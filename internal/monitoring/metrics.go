// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/LeadScout/pkg/types"
)

// Metrics holds the Prometheus collectors of one process. It implements the
// observer interfaces of the browser, enrichment, discovery, output and
// scoring packages.
type Metrics struct {
	registry *prometheus.Registry

	// Discovery metrics
	runsTotal         *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	runsActive        prometheus.Gauge
	candidatesSeen    prometheus.Counter
	candidatesSkipped prometheus.Counter
	recordsEmitted    *prometheus.CounterVec

	// Browser and search metrics
	fetchDuration *prometheus.HistogramVec
	fetchErrors   *prometheus.CounterVec
	lookupsTotal  *prometheus.CounterVec

	// Output metrics
	writesTotal    *prometheus.CounterVec
	writeDuration  *prometheus.HistogramVec
	recordsWritten *prometheus.CounterVec

	// Scoring metrics
	llmCalls    *prometheus.CounterVec
	llmDuration *prometheus.HistogramVec
}

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Namespace       string
	EnableGoMetrics bool
}

// NewMetrics creates the collectors on a private registry
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "leadscout"
	}
	ns := config.Namespace
	reg := prometheus.NewRegistry()
	if config.EnableGoMetrics {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		registry: reg,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "discovery", Name: "runs_total",
			Help: "Discovery runs by final status",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "discovery", Name: "run_duration_seconds",
			Help:    "Discovery run duration in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"status"}),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: "discovery", Name: "runs_active",
			Help: "Discovery runs in progress",
		}),
		candidatesSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "discovery", Name: "candidates_total",
			Help: "Named listing entries found",
		}),
		candidatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "discovery", Name: "candidates_skipped_total",
			Help: "Listing entries skipped because they had no name",
		}),
		recordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "discovery", Name: "records_emitted_total",
			Help: "Business records added to a batch",
		}, []string{"sector"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "browser", Name: "fetch_duration_seconds",
			Help:    "Page load duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"page"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "browser", Name: "fetch_errors_total",
			Help: "Page loads that failed",
		}, []string{"page"}),
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "enrich", Name: "lookups_total",
			Help: "Enrichment lookups by kind and outcome",
		}, []string{"kind", "status"}),
		writesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "output", Name: "writes_total",
			Help: "Persisted batches by format and outcome",
		}, []string{"format", "status"}),
		writeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "output", Name: "write_duration_seconds",
			Help:    "Time to persist a batch",
			Buckets: prometheus.DefBuckets,
		}, []string{"format"}),
		recordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "output", Name: "records_written_total",
			Help: "Records handed to a writer in successful batches",
		}, []string{"format"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "scoring", Name: "llm_calls_total",
			Help: "Model calls by kind and outcome",
		}, []string{"kind", "status"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "scoring", Name: "llm_call_duration_seconds",
			Help:    "Model call duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.runsTotal, m.runDuration, m.runsActive,
		m.candidatesSeen, m.candidatesSkipped, m.recordsEmitted,
		m.fetchDuration, m.fetchErrors, m.lookupsTotal,
		m.writesTotal, m.writeDuration, m.recordsWritten,
		m.llmCalls, m.llmDuration,
	)
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RunStarted implements discovery.Observer
func (m *Metrics) RunStarted(sector, region string) {
	m.runsActive.Inc()
}

// CandidatesParsed implements discovery.Observer
func (m *Metrics) CandidatesParsed(found, skipped int) {
	m.candidatesSeen.Add(float64(found))
	m.candidatesSkipped.Add(float64(skipped))
}

// RecordEmitted implements discovery.Observer
func (m *Metrics) RecordEmitted(sector, region string) {
	m.recordsEmitted.WithLabelValues(sector).Inc()
}

// RunFinished implements discovery.Observer
func (m *Metrics) RunFinished(status types.RunStatus, duration time.Duration) {
	m.runsActive.Dec()
	m.runsTotal.WithLabelValues(string(status)).Inc()
	m.runDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

// ObserveFetch implements browser.FetchObserver
func (m *Metrics) ObserveFetch(label string, duration time.Duration, err error) {
	if label == "" {
		label = "page"
	}
	m.fetchDuration.WithLabelValues(label).Observe(duration.Seconds())
	if err != nil {
		m.fetchErrors.WithLabelValues(label).Inc()
	}
}

// ObserveLookup implements enrich.LookupObserver
func (m *Metrics) ObserveLookup(kind string, status types.LookupStatus) {
	m.lookupsTotal.WithLabelValues(kind, status.String()).Inc()
}

// ObserveWrite implements output.WriteObserver
func (m *Metrics) ObserveWrite(format string, records int, duration time.Duration, err error) {
	m.writesTotal.WithLabelValues(format, outcome(err)).Inc()
	m.writeDuration.WithLabelValues(format).Observe(duration.Seconds())
	if err == nil {
		m.recordsWritten.WithLabelValues(format).Add(float64(records))
	}
}

// ObserveLLMCall implements scoring.CallObserver
func (m *Metrics) ObserveLLMCall(kind string, duration time.Duration, err error) {
	m.llmCalls.WithLabelValues(kind, outcome(err)).Inc()
	m.llmDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
