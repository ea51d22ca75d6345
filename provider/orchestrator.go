package provider

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Mulet-J/desktopeye/component"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/logger"
	"github.com/Mulet-J/desktopeye/observability"
)

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig[T any, K Kind] struct {
	// Capability names what the orchestrator serves, e.g. "ocr".
	Capability string
	// Locator creates backend instances. Required.
	Locator *Locator[T, K]
	// Default is the kind created at construction.
	Default K
	// Reporter receives every observed error. Nil means NopReporter.
	Reporter Reporter
	// Logger is optional; nil uses the global logger.
	Logger *logger.Logger
	// Metrics is optional.
	Metrics *observability.Metrics
	// ModelHint is passed to LoadRequired by background and switch loads.
	ModelHint string
	// OnSwitched runs under the gate after a successful switch.
	OnSwitched func(ctx context.Context, kind K, instance T) error
	// DisableBackgroundLoad skips the construction-time load of the default.
	DisableBackgroundLoad bool
}

// Orchestrator owns exactly one active backend of a capability and runs
// every operation against it under a single gate. Switching backends closes
// the outgoing instance before creating the incoming one, so two instances
// never coexist.
type Orchestrator[T any, K Kind] struct {
	capability  string
	locator     *Locator[T, K]
	defaultKind K
	reporter    Reporter
	log         *logger.Logger
	metrics     *observability.Metrics
	modelHint   string
	onSwitched  func(ctx context.Context, kind K, instance T) error

	gate *semaphore.Weighted

	mu          sync.RWMutex
	kind        K
	instance    T
	hasInstance bool
	load        *LoadGate
	loadCancel  context.CancelFunc

	closed   atomic.Bool
	lifetime context.Context
	stop     context.CancelFunc
}

// NewOrchestrator creates the orchestrator and its default backend. A
// default that cannot be created is reported and logged; the orchestrator is
// still returned, without an active instance. Only an unusable configuration
// fails construction.
func NewOrchestrator[T any, K Kind](cfg OrchestratorConfig[T, K]) (*Orchestrator[T, K], error) {
	if cfg.Capability == "" {
		return nil, errors.Validation("orchestrator capability is required")
	}
	if cfg.Locator == nil {
		return nil, errors.Validation("orchestrator locator is required")
	}

	reporter := cfg.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	lifetime, stop := context.WithCancel(context.Background())
	o := &Orchestrator[T, K]{
		capability:  cfg.Capability,
		locator:     cfg.Locator,
		defaultKind: cfg.Default,
		reporter:    reporter,
		log:         log.WithComponent(cfg.Capability),
		metrics:     cfg.Metrics,
		modelHint:   cfg.ModelHint,
		onSwitched:  cfg.OnSwitched,
		gate:        semaphore.NewWeighted(1),
		kind:        cfg.Default,
		lifetime:    lifetime,
		stop:        stop,
	}

	inst, err := o.locator.Create(lifetime, cfg.Default)
	if err != nil {
		o.report(lifetime, err, cfg.Default)
		o.log.Error("Default backend unavailable", o.fields(cfg.Default, err))
		return o, nil
	}
	o.install(cfg.Default, inst)

	if !cfg.DisableBackgroundLoad {
		o.startBackgroundLoad()
	}
	o.log.Info("Orchestrator ready", o.fields(cfg.Default, nil))
	return o, nil
}

// Execute runs fn against the active backend under the gate. It first waits
// for any in-flight load of the active backend, without holding the gate.
// Errors from fn are reported, logged and returned unchanged.
func (o *Orchestrator[T, K]) Execute(ctx context.Context, fn func(ctx context.Context, svc T) error) error {
	if o.closed.Load() {
		return errors.Disposed(o.capability)
	}
	if lg := o.currentLoad(); lg != nil {
		if err := lg.Wait(ctx); err != nil {
			err = errors.FromContext(err)
			o.report(ctx, err, o.Kind())
			return err
		}
	}

	if err := o.acquire(ctx); err != nil {
		o.report(ctx, err, o.Kind())
		return err
	}
	defer o.gate.Release(1)

	if o.closed.Load() {
		return errors.Disposed(o.capability)
	}

	o.mu.RLock()
	inst, kind, has := o.instance, o.kind, o.hasInstance
	o.mu.RUnlock()
	if !has {
		err := errors.InvalidState(o.capability, "no active backend")
		o.report(ctx, err, kind)
		return err
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanExecute)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrCapability, o.capability)
	observability.SetSpanAttribute(ctx, observability.AttrBackend, kind.String())

	start := time.Now()
	err := fn(ctx, inst)
	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError
		observability.SetSpanError(ctx, err)
		o.report(ctx, err, kind)
		o.log.WithContext(ctx).Error("Operation failed", o.fields(kind, err))
	}
	o.metrics.RecordOperation(ctx, o.capability, kind.String(), status, time.Since(start))
	return err
}

// ExecuteSync is Execute without a caller context.
func (o *Orchestrator[T, K]) ExecuteSync(fn func(ctx context.Context, svc T) error) error {
	return o.Execute(context.Background(), fn)
}

// Call runs a value-returning operation through o.Execute.
func Call[T any, K Kind, R any](ctx context.Context, o *Orchestrator[T, K], fn func(ctx context.Context, svc T) (R, error)) (R, error) {
	var out R
	err := o.Execute(ctx, func(ctx context.Context, svc T) error {
		var err error
		out, err = fn(ctx, svc)
		return err
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return out, nil
}

// SwitchTo makes kind the active backend. Switching to the active kind is a
// no-op. Otherwise the current instance is closed, the new one created and,
// when loadModel is set, loaded before the gate is released.
func (o *Orchestrator[T, K]) SwitchTo(ctx context.Context, kind K, loadModel bool) error {
	if o.closed.Load() {
		return errors.Disposed(o.capability)
	}
	if err := o.acquire(ctx); err != nil {
		return err
	}
	defer o.gate.Release(1)

	if o.closed.Load() {
		return errors.Disposed(o.capability)
	}

	o.mu.RLock()
	from, has := o.kind, o.hasInstance
	o.mu.RUnlock()
	if has && from == kind {
		o.log.Debug("Switch skipped, backend already active", o.fields(kind, nil))
		return nil
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanSwitch)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrCapability, o.capability)
	observability.SetSpanAttribute(ctx, observability.AttrKind, kind.String())

	fail := func(err error) error {
		observability.SetSpanError(ctx, err)
		o.report(ctx, err, kind)
		o.log.WithContext(ctx).Error("Backend switch failed", logger.MergeWithError(o.fields(kind, nil), err))
		o.metrics.RecordSwitch(ctx, o.capability, from.String(), kind.String(), observability.StatusError)
		return err
	}

	o.retire(ctx)

	inst, err := o.locator.Create(ctx, kind)
	if err != nil {
		o.mu.Lock()
		o.kind = kind
		o.mu.Unlock()
		return fail(err)
	}
	o.install(kind, inst)

	if loadModel {
		lg := o.currentLoad()
		ok, err := lg.Load(ctx, o.loadFunc(kind, inst))
		if errors.Is(err, errors.ErrCodeLoadFailed) {
			// Already reported and logged by the load itself.
			o.metrics.RecordSwitch(ctx, o.capability, from.String(), kind.String(), observability.StatusError)
			return err
		}
		if err != nil {
			return fail(errors.FromContext(err))
		}
		if !ok {
			return fail(errors.LoadFailed(kind.String(), fmt.Errorf("backend did not load")))
		}
	}

	if o.onSwitched != nil {
		if err := o.onSwitched(ctx, kind, inst); err != nil {
			return fail(err)
		}
	}

	o.metrics.RecordSwitch(ctx, o.capability, from.String(), kind.String(), observability.StatusOK)
	o.log.WithContext(ctx).Info("Backend switched", logger.Fields(
		logger.FieldCapability, o.capability,
		"from", from.String(),
		"to", kind.String(),
		logger.FieldLoadState, o.LoadState().String(),
	))
	return nil
}

// LoadRequired loads the active backend if it is Loadable and reports
// whether it is ready. Non-loadable backends are always ready. Concurrent
// callers share one load and its result. Failures are reported and logged,
// never returned.
func (o *Orchestrator[T, K]) LoadRequired(ctx context.Context, modelHint string) bool {
	if o.closed.Load() {
		o.report(ctx, errors.Disposed(o.capability), o.Kind())
		return false
	}
	kind, wait, err := o.beginLoad(ctx, modelHint)
	if err != nil {
		o.report(ctx, err, kind)
		o.log.Warn("Load skipped", o.fields(kind, err))
		return false
	}
	if wait == nil {
		return true
	}

	ok, err := wait()
	if err != nil && !errors.Is(err, errors.ErrCodeLoadFailed) {
		// LOAD_FAILED was reported by the load itself; cancellations and
		// panics were not.
		err = errors.FromContext(err)
		o.report(ctx, err, kind)
	}
	if err != nil || !ok {
		o.log.WithContext(ctx).Warn("Backend not loaded", o.fields(kind, err))
		return false
	}
	return true
}

// beginLoad starts or joins the active backend's load under the gate, so a
// switch queued behind it sees the load in flight and waits for it. The
// returned wait is called after the gate is released; it is nil when the
// backend has nothing to load.
func (o *Orchestrator[T, K]) beginLoad(ctx context.Context, modelHint string) (K, func() (bool, error), error) {
	if err := o.acquire(ctx); err != nil {
		return o.Kind(), nil, err
	}
	defer o.gate.Release(1)

	o.mu.RLock()
	inst, kind, has, lg := o.instance, o.kind, o.hasInstance, o.load
	o.mu.RUnlock()
	if o.closed.Load() {
		return kind, nil, errors.Disposed(o.capability)
	}
	if !has {
		return kind, nil, errors.InvalidState(o.capability, "no active backend")
	}
	if _, ok := any(inst).(Loadable); !ok {
		return kind, nil, nil
	}

	hint := modelHint
	if hint == "" {
		hint = o.modelHint
	}
	f := lg.start(ctx, o.loadFuncWithHint(kind, inst, hint))
	return kind, func() (bool, error) { return lg.await(ctx, f) }, nil
}

// Close closes the active instance and disposes the orchestrator. It is
// idempotent; later Execute and SwitchTo calls fail with DISPOSED.
func (o *Orchestrator[T, K]) Close() error {
	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}
	o.stop()

	if err := o.gate.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer o.gate.Release(1)

	o.retire(context.Background())
	o.log.Info("Orchestrator closed", logger.Fields(logger.FieldCapability, o.capability))
	return nil
}

// Kind returns the active (or last attempted) backend kind.
func (o *Orchestrator[T, K]) Kind() K {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.kind
}

// Default returns the kind created at construction.
func (o *Orchestrator[T, K]) Default() K { return o.defaultKind }

// Capability returns the capability name.
func (o *Orchestrator[T, K]) Capability() string { return o.capability }

// KindName returns the active kind as its config name.
func (o *Orchestrator[T, K]) KindName() string { return o.Kind().String() }

// KindNames lists the registered kinds by name.
func (o *Orchestrator[T, K]) KindNames() []string {
	kinds := o.locator.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}

// SwitchToName is SwitchTo for a kind given by name, as it arrives from the
// CLI or the local API.
func (o *Orchestrator[T, K]) SwitchToName(ctx context.Context, name string, loadModel bool) error {
	for _, k := range o.locator.Kinds() {
		if k.String() == name {
			return o.SwitchTo(ctx, k, loadModel)
		}
	}
	return errors.NotRegistered(o.capability, name)
}

// LoadErr returns the error of the active backend's last failed load.
func (o *Orchestrator[T, K]) LoadErr() error {
	if lg := o.currentLoad(); lg != nil {
		return lg.Err()
	}
	return nil
}

// HasInstance reports whether a backend is active.
func (o *Orchestrator[T, K]) HasInstance() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.hasInstance
}

// LoadState returns the load state of the active backend.
func (o *Orchestrator[T, K]) LoadState() LoadState {
	if lg := o.currentLoad(); lg != nil {
		return lg.State()
	}
	return NotLoaded
}

// WaitReady blocks until the active backend has no load in flight.
func (o *Orchestrator[T, K]) WaitReady(ctx context.Context) error {
	if lg := o.currentLoad(); lg != nil {
		return lg.Wait(ctx)
	}
	return nil
}

// Name implements component.Component.
func (o *Orchestrator[T, K]) Name() string { return o.capability }

// Start waits for the default backend's background load, bounded by ctx. A
// load still running when ctx ends is not an error.
func (o *Orchestrator[T, K]) Start(ctx context.Context) error {
	if err := o.WaitReady(ctx); err != nil {
		o.log.Warn("Backend still loading at startup", o.fields(o.Kind(), err))
	}
	return nil
}

// Stop implements component.Component.
func (o *Orchestrator[T, K]) Stop(ctx context.Context) error {
	return o.Close()
}

// Health implements component.Component.
func (o *Orchestrator[T, K]) Health(ctx context.Context) component.Health {
	h := component.Health{Name: o.capability}
	kind := o.Kind().String()
	switch {
	case o.closed.Load():
		h.Status, h.Message = component.StatusUnhealthy, "closed"
	case !o.HasInstance():
		h.Status, h.Message = component.StatusUnhealthy, "no backend for "+kind
	default:
		state := o.LoadState()
		h.Message = kind + " " + state.String()
		switch state {
		case Loaded:
			h.Status = component.StatusHealthy
		case LoadFailed:
			h.Status = component.StatusUnhealthy
			if err := o.currentLoad().Err(); err != nil {
				h.Message += ": " + err.Error()
			}
		default:
			h.Status = component.StatusDegraded
		}
	}
	return h
}

// Describe implements component.Describable.
func (o *Orchestrator[T, K]) Describe() component.Description {
	return component.Description{
		Name:    o.capability,
		Type:    "orchestrator",
		Details: fmt.Sprintf("kind=%s state=%s", o.Kind(), o.LoadState()),
	}
}

func (o *Orchestrator[T, K]) acquire(ctx context.Context) error {
	start := time.Now()
	if err := o.gate.Acquire(ctx, 1); err != nil {
		return errors.FromContext(err)
	}
	o.metrics.RecordGateWait(ctx, time.Since(start))
	return nil
}

// install makes inst active with a fresh load gate. Non-loadable backends
// start out loaded. Called with the gate held or during construction.
func (o *Orchestrator[T, K]) install(kind K, inst T) {
	lg := &LoadGate{}
	if _, ok := any(inst).(Loadable); !ok {
		lg.MarkLoaded()
	}
	o.mu.Lock()
	o.kind = kind
	o.instance = inst
	o.hasInstance = true
	o.load = lg
	o.loadCancel = nil
	o.mu.Unlock()
}

func (o *Orchestrator[T, K]) startBackgroundLoad() {
	o.mu.Lock()
	inst, kind, lg := o.instance, o.kind, o.load
	if _, ok := any(inst).(Loadable); !ok {
		o.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(o.lifetime)
	o.loadCancel = cancel
	o.mu.Unlock()

	lg.Go(ctx, o.loadFunc(kind, inst))
}

// retire cancels any load of the active instance, waits for it to settle
// and closes the instance. Close errors are reported and logged only.
// Called with the gate held.
func (o *Orchestrator[T, K]) retire(ctx context.Context) {
	o.mu.Lock()
	inst, kind, has, lg, cancel := o.instance, o.kind, o.hasInstance, o.load, o.loadCancel
	var zero T
	o.instance = zero
	o.hasInstance = false
	o.loadCancel = nil
	o.mu.Unlock()

	if !has {
		return
	}
	if cancel != nil {
		cancel()
	}
	if lg != nil {
		if err := lg.Wait(ctx); err != nil {
			o.log.Warn("Closing backend with load in flight", o.fields(kind, err))
		}
	}
	if c, ok := any(inst).(Closer); ok {
		if err := c.Close(); err != nil {
			o.report(ctx, err, kind)
			o.log.Error("Backend close failed", o.fields(kind, err))
			return
		}
	}
	o.log.Debug("Backend closed", o.fields(kind, nil))
}

func (o *Orchestrator[T, K]) currentLoad() *LoadGate {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.hasInstance {
		return nil
	}
	return o.load
}

func (o *Orchestrator[T, K]) loadFunc(kind K, inst T) LoadFunc {
	return o.loadFuncWithHint(kind, inst, o.modelHint)
}

// loadFuncWithHint wraps the backend's LoadRequired. It runs once per
// actual attempt and is the single place load failures are reported.
func (o *Orchestrator[T, K]) loadFuncWithHint(kind K, inst T, hint string) LoadFunc {
	return func(ctx context.Context) (bool, error) {
		l, ok := any(inst).(Loadable)
		if !ok {
			return true, nil
		}
		// Loads outlive the caller that started them but not the
		// orchestrator.
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(o.lifetime, cancel)
		defer stop()

		ctx, span := observability.StartSpan(ctx, observability.SpanLoad)
		defer span.End()
		observability.SetSpanAttribute(ctx, observability.AttrBackend, kind.String())
		observability.SetSpanAttribute(ctx, observability.AttrModelHint, hint)

		start := time.Now()
		loaded, err := l.LoadRequired(ctx, hint)
		if errors.IsContext(err) {
			o.metrics.RecordLoad(ctx, o.capability, kind.String(), "canceled", time.Since(start))
			return false, err
		}
		if err == nil && !loaded {
			err = fmt.Errorf("backend reported not loaded")
		}
		if err != nil {
			err = errors.LoadFailed(kind.String(), err)
			observability.SetSpanError(ctx, err)
			o.report(ctx, err, kind)
			o.log.WithContext(ctx).Error("Backend load failed", o.fields(kind, err))
			o.metrics.RecordLoad(ctx, o.capability, kind.String(), observability.StatusError, time.Since(start))
			return false, err
		}

		o.metrics.RecordLoad(ctx, o.capability, kind.String(), observability.StatusOK, time.Since(start))
		o.log.Info("Backend loaded", logger.Fields(
			logger.FieldCapability, o.capability,
			logger.FieldBackend, kind.String(),
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
		return true, nil
	}
}

func (o *Orchestrator[T, K]) report(ctx context.Context, err error, kind K) {
	o.reporter.Report(ctx, err, logger.Fields(
		logger.FieldCapability, o.capability,
		logger.FieldBackend, kind.String(),
	))
}

func (o *Orchestrator[T, K]) fields(kind K, err error) map[string]interface{} {
	f := logger.Fields(
		logger.FieldCapability, o.capability,
		logger.FieldBackend, kind.String(),
	)
	if err != nil {
		f = logger.MergeWithError(f, err)
	}
	return f
}
