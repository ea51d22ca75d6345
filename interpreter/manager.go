package interpreter

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/logger"
	"github.com/Mulet-J/desktopeye/observability"
	"github.com/Mulet-J/desktopeye/provider"
)

const componentName = "interpreter"

// gate serializes every call into any embedded runtime in the process.
var gate = semaphore.NewWeighted(1)

// ManagerConfig configures a Manager. Every field is optional.
type ManagerConfig struct {
	Environment EnvironmentResolver
	Reporter    provider.Reporter
	Logger      *logger.Logger
	Metrics     *observability.Metrics
}

// Manager reference-counts the dependents of one embedded runtime.
type Manager[V any] struct {
	interp   Interpreter[V]
	env      EnvironmentResolver
	reporter provider.Reporter
	log      *logger.Logger
	metrics  *observability.Metrics

	mu          sync.Mutex
	dependents  map[any]struct{}
	initialized bool
	disposed    bool
	// generation counts successful initializations.
	generation uint64
}

// NewManager creates a manager for interp. The runtime is not initialized
// until the first Start.
func NewManager[V any](interp Interpreter[V], cfg ManagerConfig) *Manager[V] {
	env := cfg.Environment
	if env == nil {
		env = StaticEnvironment{}
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = provider.NopReporter{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Manager[V]{
		interp:     interp,
		env:        env,
		reporter:   reporter,
		log:        log.WithComponent(componentName),
		metrics:    cfg.Metrics,
		dependents: make(map[any]struct{}),
	}
}

// Start registers caller as a dependent, initializing the runtime if it is
// not up. Registering the same caller twice is a no-op. caller must be a
// non-nil comparable value, typically a pointer.
//
// If initialization fails the caller is not registered and the error is a
// RUNTIME_INIT_FAILED AppError wrapping the cause.
func (m *Manager[V]) Start(caller any) error {
	if err := checkCaller(caller); err != nil {
		return err
	}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return errors.Disposed(componentName)
	}
	if m.initialized {
		m.addLocked(caller)
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	// Initialization touches the runtime, so it runs under the gate.
	if err := gate.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer gate.Release(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return errors.Disposed(componentName)
	}
	if !m.initialized {
		if err := m.initializeLocked(); err != nil {
			return err
		}
	}
	m.addLocked(caller)
	return nil
}

// Stop removes caller. When the last dependent leaves, the runtime is
// finalized. Finalize errors are reported and logged, never returned. Stop
// does nothing after Close.
func (m *Manager[V]) Stop(caller any) {
	if checkCaller(caller) != nil {
		return
	}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	if _, ok := m.dependents[caller]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.dependents, caller)
	m.recordDependentsLocked()
	last := len(m.dependents) == 0 && m.initialized
	m.mu.Unlock()

	if !last {
		return
	}

	_ = gate.Acquire(context.Background(), 1)
	defer gate.Release(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	// A Start may have slipped in while waiting for the gate.
	if len(m.dependents) == 0 && m.initialized && !m.disposed {
		m.finalizeLocked()
	}
}

// ForceShutdown finalizes the runtime and forgets every dependent. It is
// meant for process teardown; dependents still running are not notified.
func (m *Manager[V]) ForceShutdown() {
	_ = gate.Acquire(context.Background(), 1)
	defer gate.Release(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceShutdownLocked()
}

// Close force-shuts the runtime down and disposes the manager. Later Start
// calls fail with DISPOSED. Close is idempotent.
func (m *Manager[V]) Close() error {
	_ = gate.Acquire(context.Background(), 1)
	defer gate.Release(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return nil
	}
	m.forceShutdownLocked()
	m.disposed = true
	m.log.Info("Runtime manager closed")
	return nil
}

// Execute runs fn with exclusive access to the runtime.
func (m *Manager[V]) Execute(fn func(vm V) error) error {
	return m.ExecuteContext(context.Background(), func(_ context.Context, vm V) error {
		return fn(vm)
	})
}

// ExecuteContext runs fn with exclusive access to the runtime. ctx bounds
// the wait for the gate and, for Interruptible runtimes, interrupts a
// script still running when ctx ends. Errors from fn are returned
// unchanged; the gate is released even if fn panics.
func (m *Manager[V]) ExecuteContext(ctx context.Context, fn func(ctx context.Context, vm V) error) error {
	start := time.Now()
	if err := gate.Acquire(ctx, 1); err != nil {
		return errors.FromContext(err)
	}
	defer gate.Release(1)
	m.metrics.RecordGateWait(ctx, time.Since(start))

	m.mu.Lock()
	disposed, initialized := m.disposed, m.initialized
	m.mu.Unlock()
	if disposed {
		return errors.Disposed(componentName)
	}
	if !initialized {
		return errors.InvalidState(componentName, "runtime is not initialized")
	}

	vm, err := m.interp.Lock()
	if err != nil {
		return err
	}
	defer m.interp.Unlock()

	if it, ok := m.interp.(Interruptible); ok && ctx.Done() != nil {
		stop := watchInterrupt(ctx, it)
		defer stop()
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanRuntimeCall)
	defer span.End()
	err = fn(ctx, vm)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return err
}

// Call runs a value-returning fn through m.Execute.
func Call[V any, R any](m *Manager[V], fn func(vm V) (R, error)) (R, error) {
	return CallContext(context.Background(), m, func(_ context.Context, vm V) (R, error) {
		return fn(vm)
	})
}

// CallContext runs a value-returning fn through m.ExecuteContext.
func CallContext[V any, R any](ctx context.Context, m *Manager[V], fn func(ctx context.Context, vm V) (R, error)) (R, error) {
	var out R
	err := m.ExecuteContext(ctx, func(ctx context.Context, vm V) error {
		var err error
		out, err = fn(ctx, vm)
		return err
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return out, nil
}

// DependentCount returns the number of registered dependents.
func (m *Manager[V]) DependentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dependents)
}

// IsInitialized reports whether the runtime is up.
func (m *Manager[V]) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Generation identifies the current runtime instance. It grows by one on
// every successful initialization, so state evaluated into the runtime is
// valid only while Generation is unchanged.
func (m *Manager[V]) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// IsClosed reports whether Close has been called.
func (m *Manager[V]) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

func (m *Manager[V]) initializeLocked() error {
	env, err := m.env.Resolve()
	if err == nil {
		err = m.interp.Initialize(env)
	}
	if err != nil {
		wrapped := errors.RuntimeInitFailed(err)
		m.reporter.Report(context.Background(), wrapped, logger.Fields(logger.FieldComponent, componentName))
		m.log.Error("Runtime initialization failed", logger.ErrorFields("initialize", err))
		return wrapped
	}
	m.initialized = true
	m.generation++
	m.log.Info("Runtime initialized", logger.Fields(
		"home", env.Home,
		"search_paths", env.SearchPaths,
	))
	return nil
}

func (m *Manager[V]) finalizeLocked() {
	if err := m.interp.Finalize(); err != nil {
		m.reporter.Report(context.Background(), err, logger.Fields(logger.FieldComponent, componentName))
		m.log.Error("Runtime finalize failed", logger.ErrorFields("finalize", err))
	} else {
		m.log.Info("Runtime finalized")
	}
	m.initialized = false
}

func (m *Manager[V]) forceShutdownLocked() {
	if m.initialized {
		m.finalizeLocked()
	}
	if len(m.dependents) > 0 {
		m.log.Warn("Forcing runtime shutdown", logger.Fields(logger.FieldDependents, len(m.dependents)))
	}
	clear(m.dependents)
	m.recordDependentsLocked()
}

func (m *Manager[V]) addLocked(caller any) {
	if _, ok := m.dependents[caller]; ok {
		return
	}
	m.dependents[caller] = struct{}{}
	m.recordDependentsLocked()
	m.log.Debug("Runtime dependent added", logger.Fields(
		logger.FieldCaller, fmt.Sprintf("%T", caller),
		logger.FieldDependents, len(m.dependents),
	))
}

func (m *Manager[V]) recordDependentsLocked() {
	m.metrics.RecordDependents(context.Background(), len(m.dependents))
}

func checkCaller(caller any) error {
	if caller == nil {
		return errors.InvalidInput("caller", "caller identity must not be nil")
	}
	if !reflect.TypeOf(caller).Comparable() {
		return errors.InvalidInput("caller", fmt.Sprintf("caller identity %T is not comparable", caller))
	}
	return nil
}

// watchInterrupt interrupts it when ctx ends. The returned func stops the
// watcher and clears any interrupt it raised.
func watchInterrupt(ctx context.Context, it Interruptible) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			it.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	return func() {
		close(done)
		wg.Wait()
		it.ClearInterrupt()
	}
}
