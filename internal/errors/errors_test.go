// internal/errors/errors_test.go
package errors

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/valpere/LeadScout/internal/utils"
)

func TestCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker("tavily", CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Minute})
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return clock }

	boom := stderrors.New("boom")
	cb.Record(boom)
	if err := cb.Allow(); err != nil {
		t.Fatalf("one failure should not open the circuit: %v", err)
	}
	cb.Record(boom)
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}
	err := cb.Allow()
	if utils.CodeOf(err) != utils.ErrCodeCircuitOpen {
		t.Fatalf("Allow() = %v, want CIRCUIT_OPEN", err)
	}

	clock = clock.Add(2 * time.Minute)
	if err := cb.Allow(); err != nil {
		t.Fatalf("probe should be allowed after reset timeout: %v", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Errorf("state = %s, want half-open", cb.State())
	}
	cb.Record(boom)
	if cb.State() != CircuitOpen {
		t.Errorf("failed probe should reopen, state = %s", cb.State())
	}

	clock = clock.Add(2 * time.Minute)
	_ = cb.Allow()
	cb.Record(nil)
	if cb.State() != CircuitClosed {
		t.Errorf("successful probe should close, state = %s", cb.State())
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{stderrors.New("boom"), ExitGeneral},
		{utils.NewError(utils.ErrCodeInvalidConfig, "bad").Build(), ExitConfig},
		{utils.NewError(utils.ErrCodeBrowserFailed, "no chrome").Build(), ExitNetwork},
		{utils.NewError(utils.ErrCodeDatabaseError, "down").Build(), ExitOutput},
		{utils.NewError(utils.ErrCodeLLMFailed, "quota").Build(), ExitLLM},
		{context.Canceled, ExitInterrupted},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestFormatForCLI(t *testing.T) {
	err := utils.NewError(utils.ErrCodeMissingConfig, "tavily api key is required").
		WithContext("field", "search.tavily_api_key").
		Build()

	plain := FormatForCLI(err, false)
	if !strings.HasPrefix(plain, "Error: The configuration is invalid.") {
		t.Errorf("unexpected headline:\n%s", plain)
	}
	if strings.Contains(plain, "tavily api key is required") {
		t.Error("technical details should only show in verbose mode")
	}
	if !strings.Contains(plain, "leadscout validate") {
		t.Error("expected a validate suggestion")
	}

	verbose := FormatForCLI(err, true)
	for _, want := range []string{"MISSING_CONFIG: tavily api key is required", "field: search.tavily_api_key"} {
		if !strings.Contains(verbose, want) {
			t.Errorf("verbose output missing %q:\n%s", want, verbose)
		}
	}

	if !strings.Contains(FormatForCLI(stderrors.New("disk on fire"), false), "disk on fire") {
		t.Error("unstructured errors should show their text")
	}
	if FormatForCLI(nil, true) != "" {
		t.Error("nil error should format as empty")
	}
}
