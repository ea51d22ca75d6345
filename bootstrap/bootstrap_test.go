package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Mulet-J/desktopeye/component"
	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/logger"
	"github.com/Mulet-J/desktopeye/process"
)

// fakeBinaries answers the probes of both tesseract and espeak-ng.
type fakeBinaries struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeBinaries) Run(ctx context.Context, cmd process.Command) (*process.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	last := cmd.Args[len(cmd.Args)-1]
	f.calls = append(f.calls, cmd.Binary+" "+last)
	switch {
	case cmd.Binary == "tesseract" && last == "--version":
		return &process.Result{Stdout: []byte("tesseract 5.3.4\n")}, nil
	case cmd.Binary == "tesseract" && last == "--list-langs":
		return &process.Result{Stdout: []byte("List of available languages (2):\neng\nosd\n")}, nil
	case last == "--version":
		return &process.Result{Stdout: []byte("eSpeak NG text-to-speech: 1.51  Data at: /usr/share/espeak-ng-data\n")}, nil
	case last == "--voices":
		return &process.Result{Stdout: []byte("Pty Language Age/Gender VoiceName File Other Languages\n 5  en  --/M  English  gmw/en\n")}, nil
	}
	return &process.Result{}, nil
}

type mockComponent struct {
	name    string
	started bool
	stopped bool
}

func (m *mockComponent) Name() string                    { return m.name }
func (m *mockComponent) Start(ctx context.Context) error { m.started = true; return nil }
func (m *mockComponent) Stop(ctx context.Context) error  { m.stopped = true; return nil }
func (m *mockComponent) Health(ctx context.Context) component.Health {
	return component.Health{Name: m.name, Status: component.StatusHealthy}
}
func (m *mockComponent) Routes() []component.Route {
	return []component.Route{{Method: "GET", Path: "/health", Handler: "health"}}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	glossary := filepath.Join(dir, "glossary.yml")
	body := "pairs:\n  - source: en\n    target: de\n    phrases:\n      file: Datei\n"
	if err := os.WriteFile(glossary, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{}
	cfg.Version = "0.0.1-test"
	cfg.Backends.OCR = "tesseract-cli"
	cfg.Interpreter.Home = filepath.Join(dir, "scripts")
	cfg.Translate.GlossaryPath = glossary
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) (*App, *fakeBinaries) {
	t.Helper()
	bins := &fakeBinaries{}
	opts = append([]Option{
		WithLogger(logger.Nop()),
		WithOCRRunner(bins),
		WithTTSRunner(bins),
		WithoutBackgroundLoad(),
	}, opts...)
	app, err := NewApp(cfg, opts...)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app, bins
}

func TestNewAppRejectsNilConfig(t *testing.T) {
	if _, err := NewApp(nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backends.Translate = "script"
	if _, err := NewApp(cfg, WithLogger(logger.Nop())); err == nil {
		t.Fatal("expected error for script translation without a model script")
	}

	cfg = testConfig(t)
	cfg.Backends.OCR = "cuneiform"
	if _, err := NewApp(cfg, WithLogger(logger.Nop())); err == nil {
		t.Fatal("expected error for unknown OCR backend")
	}
}

func TestNewAppRegistersComponents(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t))
	defer app.Shutdown(context.Background())

	var names []string
	for _, c := range app.Components.All() {
		names = append(names, c.Name())
	}
	want := "interpreter,ocr,classify,translate,tts"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("components = %s, want %s", got, want)
	}

	if app.Capability("translate") != app.Translate {
		t.Error("Capability(translate) should return the translate orchestrator")
	}
	if app.Capability("vision") != nil {
		t.Error("unknown capability should be nil")
	}
	if got := app.OCR.KindName(); got != "tesseract-cli" {
		t.Errorf("ocr kind = %s", got)
	}
	if got := len(app.Capabilities()); got != 4 {
		t.Errorf("capabilities = %d", got)
	}
}

func TestRegisterComponentDuplicate(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t))
	defer app.Shutdown(context.Background())

	if err := app.RegisterComponent(&mockComponent{name: "ocr"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestPreload(t *testing.T) {
	app, bins := newTestApp(t, testConfig(t))
	defer app.Shutdown(context.Background())

	results := app.Preload(context.Background(), "ocr", "translate", "tts", "vision")
	if len(results) != 4 {
		t.Fatalf("results = %d", len(results))
	}
	for _, r := range results[:3] {
		if !r.Loaded || r.Err != nil {
			t.Errorf("%s: loaded=%t err=%v", r.Capability, r.Loaded, r.Err)
		}
	}
	if results[0].Kind != "tesseract-cli" || results[2].Kind != "espeak" {
		t.Errorf("kinds = %s, %s", results[0].Kind, results[2].Kind)
	}
	unknown := results[3]
	if unknown.Loaded || !errors.Is(unknown.Err, errors.ErrCodeInvalidInput) || unknown.Error == "" {
		t.Errorf("unknown capability result = %+v", unknown)
	}
	if app.OCR.LoadState().String() != "loaded" {
		t.Errorf("ocr state = %s", app.OCR.LoadState())
	}
	if len(bins.calls) == 0 {
		t.Error("expected probe commands to run")
	}
}

func TestPreloadReportsLoadFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Translate.GlossaryPath = filepath.Join(t.TempDir(), "missing.yml")
	app, _ := newTestApp(t, cfg)
	defer app.Shutdown(context.Background())

	res := app.Preload(context.Background(), "translate")[0]
	if res.Loaded {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, errors.ErrCodeLoadFailed) {
		t.Errorf("expected LOAD_FAILED, got %v", res.Err)
	}
	if res.Kind != "glossary" {
		t.Errorf("kind = %s", res.Kind)
	}
}

func TestPreloadUsesConfiguredList(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backends.Preload = []string{"classify"}
	app, _ := newTestApp(t, cfg)
	defer app.Shutdown(context.Background())

	results := app.Preload(context.Background())
	if len(results) != 1 || results[0].Capability != "classify" || !results[0].Loaded {
		t.Fatalf("results = %+v", results)
	}
}

func TestRunTaskLifecycle(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backends.Preload = []string{"ocr", "tts"}
	var banner bytes.Buffer
	app, _ := newTestApp(t, cfg, WithBanner(&banner))

	extra := &mockComponent{name: "api"}
	if err := app.RegisterComponent(extra); err != nil {
		t.Fatal(err)
	}

	var order []string
	app.OnStart(func(ctx context.Context) error { order = append(order, "start"); return nil })
	app.OnReady(func(ctx context.Context) error { order = append(order, "ready"); return nil })
	app.OnStop(func(ctx context.Context) error { order = append(order, "stop"); return nil })

	var summary Summary
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		order = append(order, "task")
		summary = app.Summary(ctx)
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}

	if got := strings.Join(order, ","); got != "start,ready,task,stop" {
		t.Errorf("hook order = %s", got)
	}
	if !extra.started || !extra.stopped {
		t.Errorf("extra component started=%t stopped=%t", extra.started, extra.stopped)
	}
	if !app.Runtime.IsClosed() {
		t.Error("runtime should be closed after RunTask")
	}
	if h := app.TTS.Health(context.Background()); h.Message != "closed" {
		t.Errorf("tts health = %+v", h)
	}

	if len(summary.Capabilities) != 4 {
		t.Fatalf("summary capabilities = %d", len(summary.Capabilities))
	}
	ocrStatus := summary.Capabilities[0]
	if ocrStatus.Capability != "ocr" || ocrStatus.LoadState != "loaded" || !ocrStatus.Active {
		t.Errorf("ocr status = %+v", ocrStatus)
	}
	if len(ocrStatus.Kinds) != 2 {
		t.Errorf("ocr kinds = %v", ocrStatus.Kinds)
	}
	if summary.Capabilities[2].LoadState != "not_loaded" {
		t.Errorf("translate should not be preloaded, got %s", summary.Capabilities[2].LoadState)
	}
	if len(summary.Routes) != 1 {
		t.Errorf("routes = %v", summary.Routes)
	}

	out := banner.String()
	for _, want := range []string{"desktopeye", "tesseract-cli", "Script runtime", "/health"} {
		if !strings.Contains(out, want) {
			t.Errorf("banner missing %q:\n%s", want, out)
		}
	}
}

func TestRunTaskReturnsTaskError(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t))
	want := fmt.Errorf("boom")
	if err := app.RunTask(context.Background(), func(ctx context.Context) error { return want }); err != want {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if !app.Runtime.IsClosed() {
		t.Error("runtime should be closed")
	}
}

func TestStartHookFailureStopsApp(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t))
	app.OnStart(func(ctx context.Context) error { return fmt.Errorf("nope") })

	ran := false
	err := app.RunTask(context.Background(), func(ctx context.Context) error { ran = true; return nil })
	if err == nil || !strings.Contains(err.Error(), "onStart") {
		t.Fatalf("err = %v", err)
	}
	if ran {
		t.Error("task should not run")
	}
	if !app.Runtime.IsClosed() {
		t.Error("runtime should be closed")
	}
}

func TestShutdownIdempotent(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t))
	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestReadyCheck(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t))
	defer app.Shutdown(context.Background())

	err := app.ReadyCheck(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ocr=degraded") {
		t.Fatalf("expected unloaded ocr to be reported, got %v", err)
	}

	app.Preload(context.Background(), "ocr", "classify", "translate", "tts")
	if err := app.ReadyCheck(context.Background()); err != nil {
		t.Fatalf("expected ready, got %v", err)
	}
}

func TestSummaryPrint(t *testing.T) {
	s := Summary{
		Service: "desktopeye",
		Version: "1.2.3",
		Capabilities: []CapabilityStatus{
			{Capability: "ocr", Kind: "tesseract", Kinds: []string{"tesseract", "tesseract-cli"}, LoadState: "loaded",
				Health: component.Health{Status: component.StatusHealthy}},
		},
		Runtime:    RuntimeStatus{Initialized: true, Dependents: 2},
		Components: []component.Health{{Name: "ocr", Status: component.StatusUnhealthy, Message: "load failed"}},
	}
	var buf bytes.Buffer
	s.Print(&buf)
	out := buf.String()
	for _, want := range []string{"desktopeye v1.2.3", "ocr: tesseract (loaded)", "2 dependents", "0/1 healthy"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
