// cmd/leadscout/main_test.go
package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valpere/LeadScout/internal/config"
	apperrors "github.com/valpere/LeadScout/internal/errors"
	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCLIVersion(t *testing.T) {
	version = "test-version"
	buildTime = "2026-06-23"
	gitCommit = "abc123"

	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, want := range []string{"test-version", "2026-06-23", "abc123"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output should contain %q, got: %s", want, out)
		}
	}
}

func TestCLIHelp(t *testing.T) {
	out, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, cmd := range []string{"discover", "score", "persona", "validate", "template", "serve", "version"} {
		if !strings.Contains(out, cmd) {
			t.Errorf("help output should contain command %q, got: %s", cmd, out)
		}
	}
}

func TestTemplateThenValidate(t *testing.T) {
	for _, typ := range []string{"basic", "database", "offline"} {
		t.Run(typ, func(t *testing.T) {
			t.Setenv("LEADSCOUT_TAVILY_API_KEY", "tvly-test")
			t.Setenv("LEADSCOUT_GEMINI_API_KEY", "gem-test")
			t.Setenv("LEADSCOUT_DATABASE_DSN", "postgres://localhost/leads")

			tmpl, err := execute(t, "template", "--type", typ)
			if err != nil {
				t.Fatalf("template: %v", err)
			}
			path := filepath.Join(t.TempDir(), "leadscout.yaml")
			if err := os.WriteFile(path, []byte(tmpl), 0o644); err != nil {
				t.Fatal(err)
			}

			out, err := execute(t, "validate", path)
			if err != nil {
				t.Fatalf("validate: %v\n%s", err, tmpl)
			}
			if !strings.Contains(out, "is valid") {
				t.Errorf("unexpected validate output: %s", out)
			}
		})
	}
}

func TestTemplate_UnknownType(t *testing.T) {
	_, err := execute(t, "template", "--type", "ecommerce")
	if apperrors.ExitCode(err) != apperrors.ExitValidation {
		t.Errorf("exit code = %d, want %d (%v)", apperrors.ExitCode(err), apperrors.ExitValidation, err)
	}
}

func TestValidate_Failures(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("search:\n  backend: bing\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		code int
	}{
		{"missing file", filepath.Join(dir, "nope.yaml"), apperrors.ExitConfig},
		{"invalid backend", bad, apperrors.ExitConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "validate", tt.path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := apperrors.ExitCode(err); got != tt.code {
				t.Errorf("exit code = %d, want %d (%v)", got, tt.code, err)
			}
		})
	}
}

func TestDiscover_RequiresRegionAndSector(t *testing.T) {
	tests := [][]string{
		{"discover", "--sector", "plumbing"},
		{"discover", "--region", "Portland"},
		{"discover", "--region", "Portland", "--sector", "plumbing", "--max", "0"},
	}
	for _, args := range tests {
		_, err := execute(t, args...)
		if utils.CodeOf(err) != utils.ErrCodeValidation {
			t.Errorf("%v: got %v, want a validation error", args, err)
		}
	}
}

func TestPersona_RequiresSelection(t *testing.T) {
	_, err := execute(t, "persona")
	if utils.CodeOf(err) != utils.ErrCodeValidation {
		t.Errorf("got %v, want a validation error", err)
	}
}

func TestReadRecords(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "batch.json")
	yamlPath := filepath.Join(dir, "batch.yaml")
	unnamed := filepath.Join(dir, "unnamed.json")
	broken := filepath.Join(dir, "broken.json")

	files := map[string]string{
		jsonPath: `[{"name":"Rose City Plumbing","region":"Portland","industry":"plumbing","contact_phone":"(503) 555-0101"}]`,
		yamlPath: "- name: Stumptown Pipes\n  region: Portland\n  industry: plumbing\n  website: https://stumptown.example\n",
		unnamed:  `[{"region":"Portland"}]`,
		broken:   `[{"name":`,
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	records, err := readRecords(jsonPath)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(records) != 1 || records[0].ContactPhone != "(503) 555-0101" {
		t.Errorf("unexpected json records %+v", records)
	}

	records, err = readRecords(yamlPath)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if len(records) != 1 || records[0].Website != "https://stumptown.example" {
		t.Errorf("unexpected yaml records %+v", records)
	}

	if _, err := readRecords(unnamed); utils.CodeOf(err) != utils.ErrCodeValidation {
		t.Errorf("unnamed record: got %v", err)
	}
	if _, err := readRecords(broken); utils.CodeOf(err) != utils.ErrCodeParsingError {
		t.Errorf("broken file: got %v", err)
	}
}

func TestRunError(t *testing.T) {
	tests := []struct {
		msg  string
		want utils.ErrorCode
	}{
		{"BROWSER_FAILED: failed to start chrome", utils.ErrCodeBrowserFailed},
		{"OUTPUT_FAILED: failed to persist batch (caused by: disk full)", utils.ErrCodeOutputFailed},
		{"listing parse: bad markup", utils.ErrCodeInternal},
		{"", utils.ErrCodeInternal},
	}
	for _, tt := range tests {
		err := runError(types.DiscoveryResult{RunID: "r1", Status: types.RunFailed, Error: tt.msg})
		if got := utils.CodeOf(err); got != tt.want {
			t.Errorf("runError(%q) code = %s, want %s", tt.msg, got, tt.want)
		}
	}
}

func TestPrintLeads(t *testing.T) {
	var buf bytes.Buffer
	printLeads(&buf, []types.Lead{
		{ID: 4, Business: types.BusinessRecord{Name: "Rose City Plumbing"},
			Score: types.LeadScore{Reasoning: strings.Repeat("no website ", 10), PredictedROI: 80, PredictedProbability: 0.75}},
		{Business: types.BusinessRecord{Name: "Stumptown Pipes"}},
	})
	out := buf.String()
	for _, want := range []string{"PROBABILITY", "Rose City Plumbing", "0.75", "...", "-  "} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q:\n%s", want, out)
		}
	}
}

func TestApplyLogLevel(t *testing.T) {
	defer utils.SetDefaultLevel(utils.InfoLevel)

	var buf bytes.Buffer
	utils.SetDefaultOutput(&buf)
	defer utils.SetDefaultOutput(os.Stderr)
	logger := utils.NewComponentLogger("cli")

	applyLogLevel(&config.Config{LogLevel: "debug"})
	logger.Debug("visible")
	applyLogLevel(&config.Config{LogLevel: "nonsense"})
	logger.Debug("still visible")

	if !strings.Contains(buf.String(), "still visible") {
		t.Errorf("debug lines missing after reload: %s", buf.String())
	}
}

type recordingRunner struct {
	deadline bool
	result   types.DiscoveryResult
}

func (r *recordingRunner) Run(ctx context.Context, req types.DiscoveryRequest) types.DiscoveryResult {
	_, r.deadline = ctx.Deadline()
	r.result.Records = make([]types.BusinessRecord, req.MaxResults)
	return r.result
}

func TestRunDiscovery_NoOverallDeadline(t *testing.T) {
	runner := &recordingRunner{result: types.DiscoveryResult{RunID: "r1", Status: types.RunCompleted}}
	var buf bytes.Buffer
	req := types.DiscoveryRequest{Region: "Portland", Sector: "plumbing", MaxResults: 3}

	err := runDiscovery(context.Background(), &buf, runner, req, func() string { return "out.json" }, false)
	if err != nil {
		t.Fatalf("runDiscovery: %v", err)
	}
	if runner.deadline {
		t.Error("discovery should run without an overall deadline")
	}
	if !strings.Contains(buf.String(), "Found 3 businesses") || !strings.Contains(buf.String(), "out.json") {
		t.Errorf("unexpected summary: %s", buf.String())
	}
}

func TestRunDiscovery_Outcomes(t *testing.T) {
	tests := []struct {
		status types.RunStatus
		errMsg string
		want   utils.ErrorCode
	}{
		{types.RunCancelled, "", utils.ErrCodeContextCanceled},
		{types.RunFailed, "BROWSER_FAILED: chrome missing", utils.ErrCodeBrowserFailed},
	}
	for _, tt := range tests {
		runner := &recordingRunner{result: types.DiscoveryResult{RunID: "r1", Status: tt.status, Error: tt.errMsg}}
		err := runDiscovery(context.Background(), io.Discard, runner, types.DiscoveryRequest{MaxResults: 1},
			func() string { return "" }, false)
		if got := utils.CodeOf(err); got != tt.want {
			t.Errorf("%s: code = %s, want %s", tt.status, got, tt.want)
		}
	}
}
