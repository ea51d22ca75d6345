package process

import (
	"bytes"
	"context"
	"errors"
	"time"

	apperrors "github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/resilience"
)

// RunnerConfig configures a Runner. Nil sections are skipped.
type RunnerConfig struct {
	// Name labels errors and the circuit breaker, e.g. "tesseract".
	Name    string
	Retry   *resilience.RetryConfig
	Breaker *resilience.CircuitBreakerConfig
}

// Runner executes one external engine repeatedly. The circuit breaker state
// persists across calls, so an engine that keeps crashing fails fast.
type Runner struct {
	name    string
	retry   *resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// NewRunner creates a Runner from cfg.
func NewRunner(cfg RunnerConfig) *Runner {
	r := &Runner{name: cfg.Name, retry: cfg.Retry}
	if r.name == "" {
		r.name = "subprocess"
	}
	if cfg.Breaker != nil {
		bc := *cfg.Breaker
		if bc.Name == "" {
			bc.Name = r.name
		}
		r.breaker = resilience.NewCircuitBreaker(bc)
	}
	return r
}

// DefaultRunner creates the runner used for local engines: up to three
// attempts with a short backoff, and a circuit that opens after five
// consecutive failures.
func DefaultRunner(name string) *Runner {
	retry := resilience.DefaultRetryConfig()
	retry.InitialBackoff = 200 * time.Millisecond
	breaker := resilience.DefaultCircuitBreakerConfig(name)
	return NewRunner(RunnerConfig{Name: name, Retry: &retry, Breaker: &breaker})
}

// Name returns the engine name used in errors.
func (r *Runner) Name() string { return r.name }

// Breaker returns the circuit breaker, or nil when none is configured.
func (r *Runner) Breaker() *resilience.CircuitBreaker { return r.breaker }

// Run executes cmd through the breaker and retry policy. Failures come back
// as EXTERNAL_SERVICE_ERROR with stderr in the details; cancellation comes
// back as CANCELED or TIMEOUT.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	once := func() (*Result, error) {
		var res *Result
		call := func() error {
			var err error
			res, err = Run(ctx, cmd)
			return err
		}
		var err error
		if r.breaker != nil {
			err = r.breaker.Execute(call)
		} else {
			err = call()
		}
		return res, r.wrap(ctx, res, err)
	}

	if r.retry == nil {
		return once()
	}
	return resilience.Retry(ctx, *r.retry, once)
}

func (r *Runner) wrap(ctx context.Context, res *Result, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return apperrors.FromContext(ctx.Err())
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return err
	}
	appErr := apperrors.ExternalServiceError(r.name, err)
	if res != nil {
		appErr.WithDetail("exit_code", res.ExitCode)
		if msg := bytes.TrimSpace(res.Stderr); len(msg) > 0 {
			appErr.WithDetail("stderr", string(msg))
		}
	}
	return appErr
}
