package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dop251/goja"

	"github.com/Mulet-J/desktopeye/classify"
	"github.com/Mulet-J/desktopeye/component"
	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/interpreter"
	"github.com/Mulet-J/desktopeye/logger"
	"github.com/Mulet-J/desktopeye/observability"
	"github.com/Mulet-J/desktopeye/ocr"
	"github.com/Mulet-J/desktopeye/provider"
	"github.com/Mulet-J/desktopeye/translate"
	"github.com/Mulet-J/desktopeye/tts"
)

// Capability is the kind-agnostic view of an orchestrator used by the
// preloader, the summary and the local API.
type Capability interface {
	component.Component
	component.Describable
	Capability() string
	KindName() string
	KindNames() []string
	HasInstance() bool
	LoadState() provider.LoadState
	LoadErr() error
	LoadRequired(ctx context.Context, modelHint string) bool
	SwitchToName(ctx context.Context, name string, loadModel bool) error
}

// App wires the runtime, the orchestrators and their lifecycle.
type App struct {
	Name       string
	Version    string
	Cfg        *config.Config
	Components *component.Registry
	Logger     *logger.Logger
	Telemetry  *observability.Telemetry
	Reporter   provider.Reporter

	Runtime   *interpreter.Manager[*goja.Runtime]
	OCR       *ocr.Orchestrator
	Classify  *classify.Orchestrator
	Translate *translate.Orchestrator
	TTS       *tts.Orchestrator

	capabilities    []Capability
	gracefulTimeout time.Duration
	banner          io.Writer
	startupDuration time.Duration

	onStart []Hook
	onReady []Hook
	onStop  []Hook

	stopOnce sync.Once
	stopErr  error
}

// NewApp applies defaults to cfg, validates it and builds the application.
// Default backends start loading in the background right away unless
// WithoutBackgroundLoad is given.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.Validation("config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)
	app := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
		banner:          o.banner,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(cfg.Logging)
		app.Logger = logger.GetGlobalLogger()
	}
	app.Components = component.NewRegistry(app.Logger)

	tel, err := observability.Setup(context.Background(), observability.Config{
		Enabled:        cfg.Observability.Enabled,
		ServiceName:    cfg.Name,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.Observability.Endpoint,
		Insecure:       cfg.Observability.Insecure,
		Interval:       cfg.Observability.Interval,
		SampleRate:     cfg.Observability.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry setup: %w", err)
	}
	app.Telemetry = tel
	app.Reporter = provider.MultiReporter(provider.NewMetricsReporter(tel.Metrics), o.reporter)

	app.Runtime = interpreter.NewManager[*goja.Runtime](interpreter.NewGojaInterpreter(), interpreter.ManagerConfig{
		Environment: interpreter.ConfigEnvironment{Config: cfg.Interpreter, ServiceName: cfg.Name},
		Reporter:    app.Reporter,
		Logger:      app.Logger,
		Metrics:     tel.Metrics,
	})
	// The runtime is registered first so it is stopped after every backend.
	if err := app.Components.Register(app.Runtime.Component()); err != nil {
		return nil, err
	}

	if err := app.buildOrchestrators(o); err != nil {
		app.closeAll()
		_ = tel.Shutdown(context.Background())
		return nil, err
	}
	return app, nil
}

func (a *App) buildOrchestrators(o *appOptions) error {
	cfg := a.Cfg

	ocrKind, err := ocr.ParseKind(cfg.Backends.OCR)
	if err != nil {
		return err
	}
	ocrLoc := ocr.NewLocator()
	ocr.Register(ocrLoc, ocr.Deps{Config: cfg.OCR, Runner: o.ocrRunner})
	a.OCR, err = ocr.NewOrchestrator(orchestratorConfig(a, o, ocrLoc, ocrKind))
	if err != nil {
		return err
	}
	if err := a.addCapability(a.OCR); err != nil {
		return err
	}

	classifyKind, err := classify.ParseKind(cfg.Backends.Classify)
	if err != nil {
		return err
	}
	classifyLoc := classify.NewLocator()
	classify.Register(classifyLoc, classify.Deps{Config: cfg.Classify})
	a.Classify, err = classify.NewOrchestrator(orchestratorConfig(a, o, classifyLoc, classifyKind))
	if err != nil {
		return err
	}
	if err := a.addCapability(a.Classify); err != nil {
		return err
	}

	translateKind, err := translate.ParseKind(cfg.Backends.Translate)
	if err != nil {
		return err
	}
	translateLoc := translate.NewLocator()
	translate.Register(translateLoc, translate.Deps{Config: cfg.Translate, Runtime: a.Runtime, HTTPClient: o.httpClient})
	a.Translate, err = translate.NewOrchestrator(orchestratorConfig(a, o, translateLoc, translateKind))
	if err != nil {
		return err
	}
	if err := a.addCapability(a.Translate); err != nil {
		return err
	}

	ttsKind, err := tts.ParseKind(cfg.Backends.TTS)
	if err != nil {
		return err
	}
	ttsLoc := tts.NewLocator()
	tts.Register(ttsLoc, tts.Deps{Config: cfg.TTS, Runtime: a.Runtime, Runner: o.ttsRunner})
	a.TTS, err = tts.NewOrchestrator(orchestratorConfig(a, o, ttsLoc, ttsKind))
	if err != nil {
		return err
	}
	return a.addCapability(a.TTS)
}

func orchestratorConfig[T any, K provider.Kind](a *App, o *appOptions, loc *provider.Locator[T, K], kind K) provider.OrchestratorConfig[T, K] {
	return provider.OrchestratorConfig[T, K]{
		Locator:               loc,
		Default:               kind,
		Reporter:              a.Reporter,
		Logger:                a.Logger,
		Metrics:               a.Telemetry.Metrics,
		DisableBackgroundLoad: o.noBackground,
	}
}

func (a *App) addCapability(c Capability) error {
	if err := a.Components.Register(c); err != nil {
		return err
	}
	a.capabilities = append(a.capabilities, c)
	return nil
}

// Capabilities returns the orchestrators in registration order.
func (a *App) Capabilities() []Capability {
	return append([]Capability(nil), a.capabilities...)
}

// Capability returns the orchestrator serving name, or nil.
func (a *App) Capability(name string) Capability {
	for _, c := range a.capabilities {
		if c.Capability() == name {
			return c
		}
	}
	return nil
}

// RegisterComponent adds a component, such as the local API server, after
// the built-in ones.
func (a *App) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// ReadyCheck reports every component that is not healthy.
func (a *App) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("components not ready: %v", unhealthy)
	}
	return nil
}

// Run starts everything, preloads the configured capabilities, blocks
// until a shutdown signal or ctx ends, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		_ = a.stop()
		return err
	}

	a.Logger.Info("Application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.stop()
}

// RunTask runs a finite task with the same lifecycle as Run. The task's
// context is canceled on SIGINT or SIGTERM.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		_ = a.stop()
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("Received signal, canceling task", map[string]interface{}{
				"signal": sig.String(),
			})
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)
	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("Starting application", map[string]interface{}{
		"name":    a.Name,
		"version": a.Version,
	})

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	if len(a.Cfg.Backends.Preload) > 0 {
		a.Preload(ctx)
	}

	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.ErrorFields("ready_check", err))
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.startupDuration = time.Since(start)
	a.Logger.Info("Application started", logger.DurationFields("startup", a.startupDuration))
	if a.banner != nil {
		a.DisplaySummary(ctx, a.banner)
	}
	return nil
}

// WaitForSignal blocks until SIGINT, SIGTERM or the end of ctx.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal", map[string]interface{}{
			"signal": sig.String(),
		})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown stops the application. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	return a.stop()
}

// stop runs the OnStop hooks, stops every component in reverse order and
// flushes telemetry, within the graceful timeout.
func (a *App) stop() error {
	a.stopOnce.Do(func() {
		a.Logger.Info("Shutting down application", map[string]interface{}{
			"timeout": a.gracefulTimeout.String(),
		})

		ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
		defer cancel()

		if err := runHooks(ctx, a.onStop); err != nil {
			a.Logger.Error("OnStop hook error", logger.ErrorFields("on_stop", err))
			a.stopErr = err
		}
		if err := a.Components.StopAll(ctx); err != nil {
			a.Logger.Error("Shutdown completed with errors", logger.ErrorFields("stop_all", err))
			a.stopErr = err
		}
		a.closeAll()
		if err := a.Telemetry.Shutdown(ctx); err != nil {
			a.Logger.Error("Telemetry shutdown error", logger.ErrorFields("telemetry", err))
			if a.stopErr == nil {
				a.stopErr = err
			}
		}
		a.Logger.Info("Application shutdown complete")
	})
	return a.stopErr
}

// closeAll closes whatever StopAll did not reach because it was never
// started: the orchestrators newest first, then the runtime.
func (a *App) closeAll() {
	for i := len(a.capabilities) - 1; i >= 0; i-- {
		_ = a.capabilities[i].Stop(context.Background())
	}
	_ = a.Runtime.Close()
}
