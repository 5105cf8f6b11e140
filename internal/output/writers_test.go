// internal/output/writers_test.go
package output

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/valpere/LeadScout/pkg/types"
)

func sampleRows() []map[string]interface{} {
	return types.RecordsToMaps([]types.BusinessRecord{
		{
			Name:         "Rose City Plumbing",
			Region:       "Portland",
			Industry:     "plumbers",
			Website:      "https://rosecityplumbing.com",
			ContactPhone: "(503) 555-0142",
			Description:  "Family owned since 1987.\nLicensed and bonded.",
			RunID:        "run-1",
		},
		{
			Name:     "Stumptown Pipes",
			Region:   "Portland",
			Industry: "plumbers",
		},
	})
}

func TestJSONWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("NewJSONWriter: %v", err)
	}
	if err := w.Write(sampleRows()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got []map[string]interface{}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0]["contact_phone"] != "(503) 555-0142" {
		t.Errorf("unexpected phone %v", got[0]["contact_phone"])
	}
	if v, ok := got[1]["website"]; !ok || v != nil {
		t.Errorf("absent website should be null, got %v (present=%v)", v, ok)
	}
}

func TestJSONWriter_EmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(nil); err != nil {
		t.Fatal(err)
	}
	w.Close()

	raw, _ := os.ReadFile(path)
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Errorf("expected empty array, got %q", raw)
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	if err := w.Write(sampleRows()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(BusinessColumns, ",") {
		t.Errorf("unexpected header %v", rows[0])
	}

	index := map[string]int{}
	for i, h := range rows[0] {
		index[h] = i
	}
	if rows[1][index["run_id"]] != "run-1" {
		t.Errorf("run id not written: %v", rows[1])
	}
	if rows[2][index["website"]] != "" {
		t.Errorf("absent website should be an empty cell, got %q", rows[2][index["website"]])
	}
	if !strings.Contains(rows[1][index["description"]], "\n") {
		t.Error("multiline description should survive quoting")
	}
}

func TestYAMLWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	w, err := NewYAMLWriter(path)
	if err != nil {
		t.Fatalf("NewYAMLWriter: %v", err)
	}
	if err := w.Write(sampleRows()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw), "- name: Rose City Plumbing") {
		t.Errorf("expected name as first key, got:\n%s", raw)
	}

	var got []map[string]interface{}
	if err := yaml.Unmarshal(raw, &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0]["description"] != "Family owned since 1987.\nLicensed and bonded." {
		t.Errorf("description not preserved: %q", got[0]["description"])
	}
	if got[1]["website"] != nil {
		t.Errorf("absent website should be null, got %v", got[1]["website"])
	}
}

func TestExcelWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	w, err := NewExcelWriter(path, "")
	if err != nil {
		t.Fatalf("NewExcelWriter: %v", err)
	}
	if err := w.Write(sampleRows()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// second close is a no-op
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Businesses")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "name" || rows[1][0] != "Rose City Plumbing" {
		t.Errorf("unexpected first column: %q, %q", rows[0][0], rows[1][0])
	}
}
