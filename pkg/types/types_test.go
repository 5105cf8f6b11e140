// pkg/types/types_test.go
package types

import (
	"errors"
	"testing"
)

func TestRunStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   RunStatus
		isValid  bool
		terminal bool
	}{
		{"pending status", RunPending, true, false},
		{"running status", RunRunning, true, false},
		{"completed status", RunCompleted, true, true},
		{"failed status", RunFailed, true, true},
		{"cancelled status", RunCancelled, true, true},
		{"invalid status", RunStatus("invalid"), false, false},
		{"empty status", RunStatus(""), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.isValid {
				t.Errorf("RunStatus.IsValid() = %v, want %v", got, tt.isValid)
			}
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("RunStatus.IsTerminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestBusinessRecordToMap(t *testing.T) {
	record := BusinessRecord{
		Name:          "Example Bistro",
		Region:        "Austin",
		Industry:      "restaurant",
		ContactPhone:  "+1 512-555-0100",
		ReviewSiteURL: "https://www.yelp.com/biz/example-bistro-austin",
	}

	m := record.ToMap()
	if len(m) != len(RecordFields) {
		t.Fatalf("expected %d keys, got %d", len(RecordFields), len(m))
	}
	for _, key := range RecordFields {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if m["name"] != "Example Bistro" {
		t.Errorf("unexpected name: %v", m["name"])
	}
	if m["website"] != nil {
		t.Errorf("expected nil website, got %v", m["website"])
	}
	if m["contact_email"] != nil {
		t.Errorf("expected nil contact_email, got %v", m["contact_email"])
	}
	if m["contact_phone"] != "+1 512-555-0100" {
		t.Errorf("unexpected phone: %v", m["contact_phone"])
	}
}

func TestRecordFromMap(t *testing.T) {
	original := BusinessRecord{
		Name:        "Rose City Plumbing",
		Region:      "Portland",
		Industry:    "plumber",
		Website:     "rosecityplumbing.com",
		Description: "Family owned plumbers",
		RunID:       "run-1",
	}
	rows := RecordsToMaps([]BusinessRecord{original})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := RecordFromMap(rows[0])
	if got != original {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, original)
	}
}

func TestHasWebsite(t *testing.T) {
	if (BusinessRecord{Website: "  "}).HasWebsite() {
		t.Error("blank website should not count")
	}
	if !(BusinessRecord{Website: "example.com"}).HasWebsite() {
		t.Error("expected website to be detected")
	}
}

func TestLookup(t *testing.T) {
	found := Found("value")
	if !found.OK() || found.OrZero() != "value" {
		t.Errorf("unexpected found lookup: %+v", found)
	}

	absent := Absent[string]()
	if absent.OK() || absent.Status != LookupAbsent || absent.Err != nil {
		t.Errorf("unexpected absent lookup: %+v", absent)
	}

	failed := Failed[string](errors.New("boom"))
	if failed.OK() || failed.Status != LookupFailed || failed.Err == nil {
		t.Errorf("unexpected failed lookup: %+v", failed)
	}
	if failed.OrZero() != "" {
		t.Errorf("failed lookup should yield zero value")
	}

	for status, want := range map[LookupStatus]string{
		LookupFound:      "found",
		LookupAbsent:     "absent",
		LookupFailed:     "failed",
		LookupStatus(42): "unknown",
	} {
		if status.String() != want {
			t.Errorf("LookupStatus(%d).String() = %q, want %q", status, status.String(), want)
		}
	}
}

func TestLeadScoreClamp(t *testing.T) {
	got := LeadScore{PredictedROI: 140, PredictedProbability: -0.2}.Clamp()
	if got.PredictedROI != 100 || got.PredictedProbability != 0 {
		t.Errorf("Clamp() = %+v", got)
	}
	inRange := LeadScore{PredictedROI: 42, PredictedProbability: 0.5}
	if inRange.Clamp() != inRange {
		t.Errorf("Clamp() changed an in range score: %+v", inRange.Clamp())
	}
}

func TestRankLeads(t *testing.T) {
	leads := []Lead{
		{Business: BusinessRecord{Name: "a"}, Score: LeadScore{PredictedProbability: 0.2}},
		{Business: BusinessRecord{Name: "b"}, Score: LeadScore{PredictedProbability: 0.9}},
		{Business: BusinessRecord{Name: "c"}, Score: LeadScore{PredictedProbability: 0.2}},
		{Business: BusinessRecord{Name: "d"}, Score: LeadScore{PredictedProbability: 0.5}},
	}
	RankLeads(leads)

	want := []string{"b", "d", "a", "c"}
	for i, name := range want {
		if leads[i].Business.Name != name {
			t.Errorf("position %d: got %q, want %q", i, leads[i].Business.Name, name)
		}
	}
}
