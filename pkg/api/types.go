// pkg/api/types.go
package api

import (
	"fmt"
	"time"

	"github.com/valpere/LeadScout/pkg/types"
)

// DiscoverRequest asks the server for one discovery run
type DiscoverRequest struct {
	Region     string `json:"region"`
	Sector     string `json:"sector"`
	MaxResults int    `json:"max_results,omitempty"`
	Async      bool   `json:"async,omitempty"`
}

// RunAccepted is returned for an asynchronous discovery
type RunAccepted struct {
	RunID  string          `json:"run_id"`
	Status types.RunStatus `json:"status"`
}

// Run is the server's record of a discovery run
type Run struct {
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

// Check is one health check result
type Check struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Critical bool          `json:"critical"`
}

// Health is the body of GET /health
type Health struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Uptime    time.Duration `json:"uptime"`
	Checks    []Check       `json:"checks,omitempty"`
}

// Healthy reports whether the server considers itself fully healthy
func (h Health) Healthy() bool {
	return h.Status == "healthy"
}

// PersonaResponse is the body of POST /api/v1/leads/personas
type PersonaResponse struct {
	Results []types.PersonaResult `json:"results"`
	Skipped []int64               `json:"skipped"`
}

// Error is a non-2xx answer from the server
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"error"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("leadscout api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("leadscout api: %d: %s", e.StatusCode, e.Message)
}
