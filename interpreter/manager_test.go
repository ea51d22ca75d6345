package interpreter

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/Mulet-J/desktopeye/component"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeRuntime counts lifecycle calls. Its handle is the runtime itself.
type fakeRuntime struct {
	token sync.Mutex

	initErr     error
	finalizeErr error
	inits       atomic.Int32
	finals      atomic.Int32
	up          atomic.Bool
	lastEnv     Environment
}

func (f *fakeRuntime) Initialize(env Environment) error {
	f.inits.Add(1)
	if f.initErr != nil {
		return f.initErr
	}
	f.lastEnv = env
	f.up.Store(true)
	return nil
}

func (f *fakeRuntime) Finalize() error {
	f.finals.Add(1)
	f.up.Store(false)
	return f.finalizeErr
}

func (f *fakeRuntime) Lock() (*fakeRuntime, error) {
	f.token.Lock()
	return f, nil
}

func (f *fakeRuntime) Unlock() { f.token.Unlock() }

type dependent struct{ name string }

type countingReporter struct{ n atomic.Int32 }

func (r *countingReporter) Report(context.Context, error, map[string]interface{}) { r.n.Add(1) }

func newManager(t *testing.T, rt *fakeRuntime) *Manager[*fakeRuntime] {
	t.Helper()
	m := NewManager[*fakeRuntime](rt, ManagerConfig{Logger: logger.Nop()})
	t.Cleanup(func() { m.Close() })
	return m
}

func TestStartInitializesOnce(t *testing.T) {
	rt := &fakeRuntime{}
	m := newManager(t, rt)
	a, b := &dependent{"a"}, &dependent{"b"}

	if err := m.Start(a); err != nil {
		t.Fatalf("Start(a) failed: %v", err)
	}
	if !m.IsInitialized() {
		t.Fatal("expected runtime initialized after first Start")
	}
	if err := m.Start(b); err != nil {
		t.Fatalf("Start(b) failed: %v", err)
	}
	if rt.inits.Load() != 1 {
		t.Errorf("expected one Initialize, got %d", rt.inits.Load())
	}
	if m.DependentCount() != 2 {
		t.Errorf("expected 2 dependents, got %d", m.DependentCount())
	}
}

func TestConcurrentStartInitializesOnce(t *testing.T) {
	rt := &fakeRuntime{}
	m := newManager(t, rt)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Start(&dependent{}); err != nil {
				t.Errorf("Start failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if rt.inits.Load() != 1 {
		t.Errorf("expected one Initialize under racing starts, got %d", rt.inits.Load())
	}
	if m.DependentCount() != 16 {
		t.Errorf("expected 16 dependents, got %d", m.DependentCount())
	}
}

func TestSameDependentCountedOnce(t *testing.T) {
	m := newManager(t, &fakeRuntime{})
	a := &dependent{"a"}
	m.Start(a)
	m.Start(a)
	if m.DependentCount() != 1 {
		t.Errorf("expected 1 dependent, got %d", m.DependentCount())
	}
}

func TestBalancedStop(t *testing.T) {
	rt := &fakeRuntime{}
	m := newManager(t, rt)
	a, b := &dependent{"a"}, &dependent{"b"}
	m.Start(a)
	m.Start(b)

	m.Stop(a)
	if !m.IsInitialized() || m.DependentCount() != 1 {
		t.Fatalf("expected runtime up with 1 dependent, got up=%v count=%d", m.IsInitialized(), m.DependentCount())
	}
	m.Stop(a)
	if m.DependentCount() != 1 {
		t.Fatalf("stopping an absent dependent changed the count to %d", m.DependentCount())
	}

	m.Stop(b)
	if m.IsInitialized() || m.DependentCount() != 0 {
		t.Errorf("expected runtime down with no dependents, got up=%v count=%d", m.IsInitialized(), m.DependentCount())
	}
	if rt.finals.Load() != 1 {
		t.Errorf("expected one Finalize, got %d", rt.finals.Load())
	}

	if err := m.Start(a); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if rt.inits.Load() != 2 {
		t.Errorf("expected a second initialization cycle, got %d", rt.inits.Load())
	}
}

func TestForceShutdownClearsAll(t *testing.T) {
	rt := &fakeRuntime{}
	m := newManager(t, rt)
	m.Start(&dependent{"a"})
	m.Start(&dependent{"b"})

	m.ForceShutdown()
	if m.IsInitialized() || m.DependentCount() != 0 {
		t.Errorf("expected runtime down and no dependents, got up=%v count=%d", m.IsInitialized(), m.DependentCount())
	}
	if rt.finals.Load() != 1 {
		t.Errorf("expected one Finalize, got %d", rt.finals.Load())
	}
}

func TestGenerationTracksInitializations(t *testing.T) {
	rt := &fakeRuntime{}
	m := newManager(t, rt)
	if m.Generation() != 0 {
		t.Fatalf("expected generation 0 before Start, got %d", m.Generation())
	}
	a := &dependent{"a"}
	m.Start(a)
	m.Start(&dependent{"b"})
	if m.Generation() != 1 {
		t.Fatalf("expected generation 1, got %d", m.Generation())
	}

	m.ForceShutdown()
	if m.Generation() != 1 {
		t.Errorf("shutdown must not bump the generation, got %d", m.Generation())
	}
	if err := m.Start(a); err != nil {
		t.Fatalf("Start after shutdown failed: %v", err)
	}
	if m.Generation() != 2 {
		t.Errorf("expected generation 2 after reinitialization, got %d", m.Generation())
	}
}

func TestInitFailureLeavesCleanState(t *testing.T) {
	rt := &fakeRuntime{initErr: stderrors.New("library not found")}
	rep := &countingReporter{}
	m := NewManager[*fakeRuntime](rt, ManagerConfig{Logger: logger.Nop(), Reporter: rep})
	defer m.Close()

	err := m.Start(&dependent{"a"})
	if !errors.Is(err, errors.ErrCodeRuntimeInit) {
		t.Fatalf("expected RUNTIME_INIT_FAILED, got %v", err)
	}
	if !stderrors.Is(err, rt.initErr) {
		t.Error("expected the cause to be wrapped")
	}
	if m.IsInitialized() || m.DependentCount() != 0 {
		t.Errorf("expected clean not-initialized state, got up=%v count=%d", m.IsInitialized(), m.DependentCount())
	}
	if rep.n.Load() != 1 {
		t.Errorf("expected failure reported once, got %d", rep.n.Load())
	}

	rt.initErr = nil
	if err := m.Start(&dependent{"b"}); err != nil {
		t.Fatalf("retry after failure failed: %v", err)
	}
}

func TestFinalizeErrorIsSwallowed(t *testing.T) {
	rt := &fakeRuntime{finalizeErr: stderrors.New("stuck")}
	rep := &countingReporter{}
	m := NewManager[*fakeRuntime](rt, ManagerConfig{Logger: logger.Nop(), Reporter: rep})
	defer m.Close()

	a := &dependent{"a"}
	m.Start(a)
	m.Stop(a)
	if m.DependentCount() != 0 || m.IsInitialized() {
		t.Errorf("expected dependent removed despite finalize error")
	}
	if rep.n.Load() != 1 {
		t.Errorf("expected finalize error reported, got %d", rep.n.Load())
	}
}

func TestCallerIdentityChecks(t *testing.T) {
	m := newManager(t, &fakeRuntime{})
	if err := m.Start(nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for nil caller, got %v", err)
	}
	if err := m.Start([]int{1}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for non-comparable caller, got %v", err)
	}
	m.Stop(map[string]int{})
	if m.DependentCount() != 0 {
		t.Error("invalid callers must not be registered")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	rt := &fakeRuntime{}
	m := NewManager[*fakeRuntime](rt, ManagerConfig{Logger: logger.Nop()})
	m.Start(&dependent{"a"})

	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if rt.finals.Load() != 1 {
		t.Errorf("expected one Finalize, got %d", rt.finals.Load())
	}
	if err := m.Start(&dependent{"b"}); !errors.Is(err, errors.ErrCodeDisposed) {
		t.Errorf("expected DISPOSED after Close, got %v", err)
	}
	if err := m.Execute(func(*fakeRuntime) error { return nil }); !errors.Is(err, errors.ErrCodeDisposed) {
		t.Errorf("expected DISPOSED Execute after Close, got %v", err)
	}
	m.Stop(&dependent{"b"})
}

func TestExecuteRequiresInitializedRuntime(t *testing.T) {
	m := newManager(t, &fakeRuntime{})
	err := m.Execute(func(*fakeRuntime) error { return nil })
	if !errors.Is(err, errors.ErrCodeInvalidState) {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
}

func TestExecuteIsMutuallyExclusiveAcrossManagers(t *testing.T) {
	m1 := newManager(t, &fakeRuntime{})
	m2 := newManager(t, &fakeRuntime{})
	m1.Start(&dependent{"a"})
	m2.Start(&dependent{"b"})

	var inside, peak atomic.Int32
	body := func(*fakeRuntime) error {
		n := inside.Add(1)
		if n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(time.Millisecond)
		inside.Add(-1)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		m := m1
		if i%2 == 1 {
			m = m2
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Execute(body); err != nil {
				t.Errorf("Execute failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak.Load() != 1 {
		t.Errorf("expected at most one protected call at a time, saw %d", peak.Load())
	}
}

func TestExecuteErrorPropagatesUnchanged(t *testing.T) {
	m := newManager(t, &fakeRuntime{})
	m.Start(&dependent{"a"})

	boom := stderrors.New("script failed")
	_, err := Call(m, func(*fakeRuntime) (int, error) { return 0, boom })
	if err != boom {
		t.Fatalf("expected error unchanged, got %v", err)
	}
	n, err := Call(m, func(*fakeRuntime) (int, error) { return 42, nil })
	if err != nil || n != 42 {
		t.Fatalf("Call: got %d, %v", n, err)
	}
}

func TestExecuteReleasesGateOnPanic(t *testing.T) {
	m := newManager(t, &fakeRuntime{})
	m.Start(&dependent{"a"})

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the panic to propagate")
			}
		}()
		m.Execute(func(*fakeRuntime) error { panic("bad script") })
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.ExecuteContext(ctx, func(context.Context, *fakeRuntime) error { return nil }); err != nil {
		t.Fatalf("gate not released after panic: %v", err)
	}
}

func TestExecuteContextCanceledWhileWaiting(t *testing.T) {
	m := newManager(t, &fakeRuntime{})
	m.Start(&dependent{"a"})

	hold := make(chan struct{})
	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Execute(func(*fakeRuntime) error {
			close(held)
			<-hold
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := m.ExecuteContext(ctx, func(context.Context, *fakeRuntime) error { return nil })
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("expected TIMEOUT, got %v", err)
	}
	close(hold)
	<-done
}

func TestRuntimeComponent(t *testing.T) {
	m := NewManager[*fakeRuntime](&fakeRuntime{}, ManagerConfig{Logger: logger.Nop()})
	c := m.Component()

	if c.Name() != "interpreter" {
		t.Errorf("expected name interpreter, got %q", c.Name())
	}
	if h := c.Health(context.Background()); h.Status != component.StatusHealthy || h.Message != "idle" {
		t.Errorf("expected healthy idle, got %+v", h)
	}
	m.Start(&dependent{"a"})
	if d := c.(component.Describable).Describe(); d.Details != "initialized=true dependents=1" {
		t.Errorf("unexpected description %q", d.Details)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy after stop, got %s", h.Status)
	}
}
