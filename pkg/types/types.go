// pkg/types/types.go
package types

import (
	"strings"
	"time"
)

// RunStatus represents the state of a discovery run
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// ValidRunStatuses returns all valid run status values
func ValidRunStatuses() []RunStatus {
	return []RunStatus{RunPending, RunRunning, RunCompleted, RunFailed, RunCancelled}
}

// IsValid checks if the status is a valid value
func (s RunStatus) IsValid() bool {
	for _, valid := range ValidRunStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are expected
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// BusinessRecord is one discovered and enriched business.
// Empty strings mean the value was not found.
type BusinessRecord struct {
	Name                  string    `json:"name" yaml:"name" bson:"name"`
	Region                string    `json:"region" yaml:"region" bson:"region"`
	Industry              string    `json:"industry" yaml:"industry" bson:"industry"`
	Website               string    `json:"website,omitempty" yaml:"website,omitempty" bson:"website,omitempty"`
	ContactPhone          string    `json:"contact_phone,omitempty" yaml:"contact_phone,omitempty" bson:"contact_phone,omitempty"`
	ContactEmail          string    `json:"contact_email,omitempty" yaml:"contact_email,omitempty" bson:"contact_email,omitempty"`
	Description           string    `json:"description,omitempty" yaml:"description,omitempty" bson:"description,omitempty"`
	ReviewSiteURL         string    `json:"review_site_url,omitempty" yaml:"review_site_url,omitempty" bson:"review_site_url,omitempty"`
	ReviewSiteDescription string    `json:"review_site_description,omitempty" yaml:"review_site_description,omitempty" bson:"review_site_description,omitempty"`
	RunID                 string    `json:"run_id,omitempty" yaml:"run_id,omitempty" bson:"run_id,omitempty"`
	DiscoveredAt          time.Time `json:"discovered_at,omitempty" yaml:"discovered_at,omitempty" bson:"discovered_at,omitempty"`
}

// RecordFields lists the persisted keys of a BusinessRecord in column order
var RecordFields = []string{
	"name",
	"description",
	"contact_phone",
	"contact_email",
	"review_site_url",
	"review_site_description",
	"region",
	"industry",
	"website",
}

// ToMap converts the record into the map handed to persistence collaborators.
// Absent values are nil so writers can store NULL.
func (r BusinessRecord) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"name":                    r.Name,
		"description":             optional(r.Description),
		"contact_phone":           optional(r.ContactPhone),
		"contact_email":           optional(r.ContactEmail),
		"review_site_url":         optional(r.ReviewSiteURL),
		"review_site_description": optional(r.ReviewSiteDescription),
		"region":                  r.Region,
		"industry":                r.Industry,
		"website":                 optional(r.Website),
	}
}

// RecordFromMap rebuilds a record from a persisted row
func RecordFromMap(m map[string]interface{}) BusinessRecord {
	get := func(key string) string {
		if v, ok := m[key]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	return BusinessRecord{
		Name:                  get("name"),
		Description:           get("description"),
		ContactPhone:          get("contact_phone"),
		ContactEmail:          get("contact_email"),
		ReviewSiteURL:         get("review_site_url"),
		ReviewSiteDescription: get("review_site_description"),
		Region:                get("region"),
		Industry:              get("industry"),
		Website:               get("website"),
		RunID:                 get("run_id"),
	}
}

// HasWebsite reports whether a website was found for the business
func (r BusinessRecord) HasWebsite() bool {
	return strings.TrimSpace(r.Website) != ""
}

func optional(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// RecordsToMaps converts a batch for the output writers
func RecordsToMaps(records []BusinessRecord) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		row := r.ToMap()
		if r.RunID != "" {
			row["run_id"] = r.RunID
		}
		rows = append(rows, row)
	}
	return rows
}

// LookupStatus says how a single lookup ended
type LookupStatus int

const (
	// LookupAbsent means the lookup ran and found nothing
	LookupAbsent LookupStatus = iota
	// LookupFound means a value was produced
	LookupFound
	// LookupFailed means the lookup itself broke; Err is set
	LookupFailed
)

// String returns string representation of the lookup status
func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupAbsent:
		return "absent"
	case LookupFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Lookup carries the outcome of an optional lookup, keeping a missing
// value distinct from a failed attempt.
type Lookup[T any] struct {
	Value  T
	Status LookupStatus
	Err    error
}

// Found wraps a successful value
func Found[T any](v T) Lookup[T] {
	return Lookup[T]{Value: v, Status: LookupFound}
}

// Absent reports a normal miss
func Absent[T any]() Lookup[T] {
	return Lookup[T]{Status: LookupAbsent}
}

// Failed reports a failed attempt
func Failed[T any](err error) Lookup[T] {
	return Lookup[T]{Status: LookupFailed, Err: err}
}

// OK reports whether a value was found
func (l Lookup[T]) OK() bool {
	return l.Status == LookupFound
}

// OrZero returns the value when found, the zero value otherwise
func (l Lookup[T]) OrZero() T {
	if l.Status == LookupFound {
		return l.Value
	}
	var zero T
	return zero
}

// DiscoveryRequest describes one discovery run
type DiscoveryRequest struct {
	Region     string `json:"region" yaml:"region"`
	Sector     string `json:"sector" yaml:"sector"`
	MaxResults int    `json:"max_results" yaml:"max_results"`
}

// DiscoveryResult is the outcome of a run
type DiscoveryResult struct {
	RunID     string           `json:"run_id"`
	Status    RunStatus        `json:"status"`
	Records   []BusinessRecord `json:"records"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
	Error     string           `json:"error,omitempty"`
}
