// internal/output/manager_test.go
package output

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

type writeEvent struct {
	format  string
	records int
	err     error
}

type recordingWriteObserver struct {
	mu     sync.Mutex
	events []writeEvent
}

func (o *recordingWriteObserver) ObserveWrite(format string, records int, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, writeEvent{format, records, err})
}

func TestNewManager_Defaults(t *testing.T) {
	m, err := NewManager(Config{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.Format() != FormatJSON {
		t.Errorf("expected json by default, got %s", m.Format())
	}
}

func TestNewManager_InvalidConfig(t *testing.T) {
	_, err := NewManager(Config{Format: FormatPostgreSQL})
	if err == nil {
		t.Fatal("expected missing dsn to be rejected")
	}
	if utils.CodeOf(err) != utils.ErrCodeInvalidConfig {
		t.Errorf("expected INVALID_CONFIG, got %s", utils.CodeOf(err))
	}
}

func TestManager_FileName(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(Config{Format: FormatCSV, Directory: dir})
	if err != nil {
		t.Fatal(err)
	}
	name := m.FileName("Portland, OR", "plumbers")
	if filepath.Dir(name) != dir {
		t.Errorf("expected file inside %s, got %s", dir, name)
	}
	if !strings.HasSuffix(name, ".csv") || !strings.Contains(filepath.Base(name), "plumbers") {
		t.Errorf("unexpected file name %s", name)
	}

	fixed, _ := NewManager(Config{Format: FormatCSV, File: "leads.csv"})
	if fixed.FileName("x", "y") != "leads.csv" {
		t.Errorf("configured file should win, got %s", fixed.FileName("x", "y"))
	}
}

func TestManager_WriteRecords(t *testing.T) {
	dir := t.TempDir()
	observer := &recordingWriteObserver{}
	m, err := NewManager(Config{Format: FormatJSON, Directory: filepath.Join(dir, "nested")}, WithWriteObserver(observer))
	if err != nil {
		t.Fatal(err)
	}

	records := []types.BusinessRecord{
		{Name: "Stumptown Pipes", Region: "Portland", Industry: "plumbers", RunID: "run-7"},
	}
	if err := m.WriteRecords(context.Background(), records); err != nil {
		t.Fatalf("WriteRecords: %v", err)
	}

	target := m.LastTarget()
	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("reading %s: %v", target, err)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(raw, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["run_id"] != "run-7" {
		t.Errorf("unexpected rows %v", rows)
	}

	if len(observer.events) != 1 {
		t.Fatalf("expected one observed write, got %d", len(observer.events))
	}
	ev := observer.events[0]
	if ev.format != "json" || ev.records != 1 || ev.err != nil {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestManager_WriteReportsFailure(t *testing.T) {
	dir := t.TempDir()
	// a directory where the file should go makes the create fail
	blocked := filepath.Join(dir, "blocked.json")
	if err := os.Mkdir(blocked, 0755); err != nil {
		t.Fatal(err)
	}

	observer := &recordingWriteObserver{}
	m, err := NewManager(Config{Format: FormatJSON, File: blocked}, WithWriteObserver(observer))
	if err != nil {
		t.Fatal(err)
	}
	err = m.WriteRecords(context.Background(), nil)
	if err == nil {
		t.Fatal("expected write to fail")
	}
	if len(observer.events) != 1 || observer.events[0].err == nil {
		t.Errorf("failure not observed: %+v", observer.events)
	}
}

func TestManager_SQLiteTarget(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(Config{Format: FormatSQLite, Directory: dir, CreateTable: true})
	if err != nil {
		t.Fatal(err)
	}
	records := []types.BusinessRecord{{Name: "Stumptown Pipes", Region: "Portland", Industry: "plumbers"}}
	if err := m.WriteRecords(context.Background(), records); err != nil {
		t.Skipf("SQLite unavailable: %v", err)
	}
	if !strings.HasSuffix(m.LastTarget(), ".db") {
		t.Errorf("expected a .db target, got %s", m.LastTarget())
	}
}
