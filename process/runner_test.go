package process_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/process"
	"github.com/Mulet-J/desktopeye/resilience"
)

func TestRunner_NoPolicy(t *testing.T) {
	r := process.NewRunner(process.RunnerConfig{Name: "echo"})
	res, err := r.Run(context.Background(), process.Command{Binary: "echo", Args: []string{"ok"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Stdout) != "ok\n" {
		t.Errorf("unexpected stdout %q", res.Stdout)
	}
	if r.Breaker() != nil {
		t.Error("expected no breaker")
	}
}

func TestRunner_WrapsFailures(t *testing.T) {
	r := process.NewRunner(process.RunnerConfig{Name: "espeak-ng"})
	_, err := r.Run(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "echo 'voice not found' >&2; exit 1"},
	})
	if !apperrors.Is(err, apperrors.ErrCodeExternalService) {
		t.Fatalf("expected EXTERNAL_SERVICE_ERROR, got %v", err)
	}
	appErr, _ := apperrors.AsAppError(err)
	if appErr.Details["stderr"] != "voice not found" {
		t.Errorf("expected stderr detail, got %v", appErr.Details)
	}
	if appErr.Details["exit_code"] != 1 {
		t.Errorf("expected exit_code detail, got %v", appErr.Details)
	}
}

func TestRunner_RetriesTransientFailure(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "attempted")
	r := process.NewRunner(process.RunnerConfig{
		Name:  "flaky",
		Retry: &resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
	})
	// Fails on the first run, succeeds once the marker exists.
	script := "if [ -f " + marker + " ]; then echo done; else touch " + marker + "; exit 1; fi"
	res, err := r.Run(context.Background(), process.Command{Binary: "sh", Args: []string{"-c", script}})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if string(res.Stdout) != "done\n" {
		t.Errorf("unexpected stdout %q", res.Stdout)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("expected first attempt to run: %v", err)
	}
}

func TestRunner_BreakerTrips(t *testing.T) {
	r := process.NewRunner(process.RunnerConfig{
		Name:    "tesseract",
		Breaker: &resilience.CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Hour},
	})
	failing := process.Command{Binary: "sh", Args: []string{"-c", "exit 3"}}
	for i := 0; i < 2; i++ {
		_, _ = r.Run(context.Background(), failing)
	}
	if r.Breaker().State() != resilience.StateOpen {
		t.Fatalf("expected open breaker, got %s", r.Breaker().State())
	}
	_, err := r.Run(context.Background(), process.Command{Binary: "echo"})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestRunner_Cancellation(t *testing.T) {
	r := process.NewRunner(process.RunnerConfig{
		Name:    "slow",
		Breaker: &resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour},
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := r.Run(ctx, process.Command{Binary: "sleep", Args: []string{"10"}, GracePeriod: 200 * time.Millisecond})
	if !apperrors.Is(err, apperrors.ErrCodeCanceled) {
		t.Fatalf("expected CANCELED, got %v", err)
	}
	if r.Breaker().State() != resilience.StateClosed {
		t.Errorf("cancellation must not trip the breaker, got %s", r.Breaker().State())
	}
}

func TestDefaultRunner(t *testing.T) {
	r := process.DefaultRunner("espeak-ng")
	if r.Name() != "espeak-ng" {
		t.Errorf("expected name espeak-ng, got %q", r.Name())
	}
	if r.Breaker() == nil || r.Breaker().Name() != "espeak-ng" {
		t.Fatal("expected a breaker named after the engine")
	}
	if r.Breaker().State() != resilience.StateClosed {
		t.Errorf("expected closed breaker, got %s", r.Breaker().State())
	}
}
