package interpreter

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dop251/goja"

	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/logger"
)

func writeScript(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
		t.Fatalf("write %s failed: %v", name, err)
	}
}

func newGojaManager(t *testing.T, env Environment) (*Manager[*goja.Runtime], *GojaInterpreter) {
	t.Helper()
	g := NewGojaInterpreter()
	m := NewManager[*goja.Runtime](g, ManagerConfig{
		Environment: StaticEnvironment(env),
		Logger:      logger.Nop(),
	})
	t.Cleanup(func() { m.Close() })
	if err := m.Start(t); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return m, g
}

func TestGojaPreloadAndGlobals(t *testing.T) {
	home := t.TempDir()
	extra := t.TempDir()
	writeScript(t, home, "b.js", `function shout(s) { return greet(s).toUpperCase(); }`)
	writeScript(t, home, "a.js", `function greet(s) { return "hello " + s; }`)
	writeScript(t, extra, "data.txt", "bonjour")

	m, g := newGojaManager(t, Environment{Home: home, SearchPaths: []string{extra}})

	if got := g.Preloaded(); len(got) != 2 || filepath.Base(got[0]) != "a.js" {
		t.Fatalf("expected a.js then b.js preloaded, got %v", got)
	}

	out, err := Call(m, func(vm *goja.Runtime) (string, error) {
		v, err := CallFunction(vm, "shout", "world")
		if err != nil {
			return "", err
		}
		return v.String(), nil
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if out != "HELLO WORLD" {
		t.Errorf("expected HELLO WORLD, got %q", out)
	}

	out, err = Call(m, func(vm *goja.Runtime) (string, error) {
		v, err := Run(vm, "probe.js", `sys.home + "|" + sys.path.length + "|" + sys.readFile("data.txt")`)
		if err != nil {
			return "", err
		}
		return v.String(), nil
	})
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if want := home + "|2|bonjour"; out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestGojaReadFileMissingThrows(t *testing.T) {
	m, _ := newGojaManager(t, Environment{Home: t.TempDir()})
	err := m.Execute(func(vm *goja.Runtime) error {
		_, err := Run(vm, "missing.js", `sys.readFile("nope.txt")`)
		return err
	})
	if err == nil || !strings.Contains(err.Error(), "not found on search path") {
		t.Fatalf("expected search path error, got %v", err)
	}
}

func TestGojaInterruptOnContext(t *testing.T) {
	m, _ := newGojaManager(t, Environment{Home: t.TempDir()})

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()
	err := m.ExecuteContext(ctx, func(ctx context.Context, vm *goja.Runtime) error {
		_, err := Run(vm, "spin.js", `while (true) {}`)
		return err
	})
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	// The runtime recovers once the interrupt is cleared.
	n, err := Call(m, func(vm *goja.Runtime) (int64, error) {
		v, err := Run(vm, "sum.js", `1 + 1`)
		if err != nil {
			return 0, err
		}
		return v.ToInteger(), nil
	})
	if err != nil || n != 2 {
		t.Fatalf("expected 2 after interrupt, got %d, %v", n, err)
	}
}

func TestGojaMissingLibraryFailsInit(t *testing.T) {
	g := NewGojaInterpreter()
	m := NewManager[*goja.Runtime](g, ManagerConfig{
		Environment: StaticEnvironment{Home: t.TempDir(), Library: filepath.Join(t.TempDir(), "libmissing.so")},
		Logger:      logger.Nop(),
	})
	defer m.Close()

	err := m.Start(t)
	if !errors.Is(err, errors.ErrCodeRuntimeInit) {
		t.Fatalf("expected RUNTIME_INIT_FAILED, got %v", err)
	}
	if !stderrors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist cause, got %v", err)
	}
}

func TestGojaBrokenPreloadFailsInit(t *testing.T) {
	home := t.TempDir()
	writeScript(t, home, "broken.js", `function (`)
	g := NewGojaInterpreter()
	m := NewManager[*goja.Runtime](g, ManagerConfig{
		Environment: StaticEnvironment{Home: home},
		Logger:      logger.Nop(),
	})
	defer m.Close()

	if err := m.Start(t); !errors.Is(err, errors.ErrCodeRuntimeInit) {
		t.Fatalf("expected RUNTIME_INIT_FAILED, got %v", err)
	}
	if m.IsInitialized() {
		t.Error("runtime must stay uninitialized")
	}
}

func TestGojaFinalizeTwice(t *testing.T) {
	g := NewGojaInterpreter()
	if err := g.Initialize(Environment{}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := g.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if err := g.Finalize(); !errors.Is(err, errors.ErrCodeInvalidState) {
		t.Errorf("expected INVALID_STATE on second Finalize, got %v", err)
	}
	if _, err := g.Lock(); !errors.Is(err, errors.ErrCodeInvalidState) {
		t.Errorf("expected INVALID_STATE Lock after Finalize, got %v", err)
	}
}

func TestGojaRunFileResolvesOnSearchPath(t *testing.T) {
	home := t.TempDir()
	if err := os.Mkdir(filepath.Join(home, "lib"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeScript(t, filepath.Join(home, "lib"), "twice.js", `function twice(n) { return n * 2; }`)

	m, g := newGojaManager(t, Environment{Home: home})
	if len(g.Preloaded()) != 0 {
		t.Fatalf("scripts in subdirectories must not be preloaded, got %v", g.Preloaded())
	}

	out, err := Call(m, func(vm *goja.Runtime) (int64, error) {
		if _, err := RunFile(vm, "lib/twice.js"); err != nil {
			return 0, err
		}
		v, err := CallFunction(vm, "twice", 21)
		if err != nil {
			return 0, err
		}
		return v.ToInteger(), nil
	})
	if err != nil || out != 42 {
		t.Fatalf("expected 42, got %d, %v", out, err)
	}

	err = m.Execute(func(vm *goja.Runtime) error {
		_, err := RunFile(vm, "lib/absent.js")
		return err
	})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}
