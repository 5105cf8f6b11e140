// internal/monitoring/runs.go
package monitoring

import (
	"sort"
	"sync"
	"time"

	"github.com/valpere/LeadScout/pkg/types"
)

// RunTrackerConfig configuration for run tracking
type RunTrackerConfig struct {
	MaxRuns         int           `json:"max_runs" yaml:"max_runs"`
	RetentionPeriod time.Duration `json:"retention_period" yaml:"retention_period"`
}

// RunStatus is what the tracker knows about one discovery run
type RunStatus struct {
	ID        string                 `json:"id"`
	Request   types.DiscoveryRequest `json:"request"`
	Status    types.RunStatus        `json:"status"`
	StartTime time.Time              `json:"start_time"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Duration  time.Duration          `json:"duration"`
	Records   int                    `json:"records"`
	Error     string                 `json:"error,omitempty"`
	Result    *types.DiscoveryResult `json:"result,omitempty"`
}

// RunTracker keeps recent discovery runs in memory
type RunTracker struct {
	runs   map[string]*RunStatus
	mu     sync.RWMutex
	config RunTrackerConfig
	now    func() time.Time
}

// NewRunTracker creates a run tracker
func NewRunTracker(config RunTrackerConfig) *RunTracker {
	if config.MaxRuns <= 0 {
		config.MaxRuns = 100
	}
	if config.RetentionPeriod <= 0 {
		config.RetentionPeriod = 24 * time.Hour
	}
	return &RunTracker{
		runs:   make(map[string]*RunStatus),
		config: config,
		now:    time.Now,
	}
}

// StartRun records a run as running
func (rt *RunTracker) StartRun(id string, req types.DiscoveryRequest) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.runs[id] = &RunStatus{
		ID:        id,
		Request:   req,
		Status:    types.RunRunning,
		StartTime: rt.now(),
	}
	if len(rt.runs) > rt.config.MaxRuns {
		rt.cleanup()
	}
}

// CompleteRun stores the final result. Unknown ids are started first.
func (rt *RunTracker) CompleteRun(id string, req types.DiscoveryRequest, result types.DiscoveryResult) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	run, ok := rt.runs[id]
	if !ok {
		start := result.StartedAt
		if start.IsZero() {
			start = rt.now()
		}
		run = &RunStatus{ID: id, Request: req, StartTime: start}
		rt.runs[id] = run
	}
	end := rt.now()
	run.EndTime = &end
	run.Duration = result.Duration
	if run.Duration == 0 {
		run.Duration = end.Sub(run.StartTime)
	}
	run.Status = result.Status
	run.Records = len(result.Records)
	run.Error = result.Error
	res := result
	run.Result = &res

	if len(rt.runs) > rt.config.MaxRuns {
		rt.cleanup()
	}
}

// GetRun returns one run with its result
func (rt *RunTracker) GetRun(id string) (RunStatus, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	run, ok := rt.runs[id]
	if !ok {
		return RunStatus{}, false
	}
	return *run, true
}

// GetAllRuns lists runs newest first without their records
func (rt *RunTracker) GetAllRuns() []RunStatus {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	runs := make([]RunStatus, 0, len(rt.runs))
	for _, run := range rt.runs {
		r := *run
		r.Result = nil
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartTime.After(runs[j].StartTime)
	})
	return runs
}

// GetActiveRuns lists runs still in progress
func (rt *RunTracker) GetActiveRuns() []RunStatus {
	all := rt.GetAllRuns()
	active := make([]RunStatus, 0)
	for _, run := range all {
		if !run.Status.IsTerminal() {
			active = append(active, run)
		}
	}
	return active
}

// cleanup drops finished runs past retention, then the oldest finished runs
// while over MaxRuns. Caller holds the lock.
func (rt *RunTracker) cleanup() {
	cutoff := rt.now().Add(-rt.config.RetentionPeriod)
	for id, run := range rt.runs {
		if run.Status.IsTerminal() && run.StartTime.Before(cutoff) {
			delete(rt.runs, id)
		}
	}
	if len(rt.runs) <= rt.config.MaxRuns {
		return
	}

	finished := make([]*RunStatus, 0, len(rt.runs))
	for _, run := range rt.runs {
		if run.Status.IsTerminal() {
			finished = append(finished, run)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].StartTime.Before(finished[j].StartTime)
	})
	for _, run := range finished {
		if len(rt.runs) <= rt.config.MaxRuns {
			break
		}
		delete(rt.runs, run.ID)
	}
}
