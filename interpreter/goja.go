package interpreter

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dop251/goja"

	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/logger"
)

// GojaInterpreter runs JavaScript through goja. Initialize exposes a global
// sys object and evaluates every *.js file found directly in the search
// path directories, in path order and then by file name.
//
// Scripts see:
//
//	sys.home            home directory
//	sys.library         library path, may be empty
//	sys.path            search path directories
//	sys.resolve(name)   first search path match for name, or ""
//	sys.readFile(path)  file contents as a string; relative paths use sys.resolve
//	console.log(...)    debug log line
type GojaInterpreter struct {
	token sync.Mutex

	vm        *goja.Runtime
	env       Environment
	preloaded []string
	log       *logger.Logger
}

// NewGojaInterpreter creates an uninitialized goja runtime.
func NewGojaInterpreter() *GojaInterpreter {
	return &GojaInterpreter{log: logger.WithComponent("goja")}
}

func (g *GojaInterpreter) Initialize(env Environment) error {
	g.token.Lock()
	defer g.token.Unlock()

	if g.vm != nil {
		return errors.InvalidState(componentName, "goja runtime already initialized")
	}
	if env.Library != "" {
		if _, err := os.Stat(env.Library); err != nil {
			return fmt.Errorf("locate runtime library: %w", err)
		}
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if err := g.installGlobals(vm, env); err != nil {
		return err
	}

	preloaded, err := preload(vm, env.SearchPaths)
	if err != nil {
		return err
	}

	g.vm = vm
	g.env = env
	g.preloaded = preloaded
	return nil
}

func (g *GojaInterpreter) Finalize() error {
	g.token.Lock()
	defer g.token.Unlock()

	if g.vm == nil {
		return errors.InvalidState(componentName, "goja runtime is not initialized")
	}
	g.vm.Interrupt(stderrors.New("runtime finalized"))
	g.vm = nil
	g.preloaded = nil
	return nil
}

func (g *GojaInterpreter) Lock() (*goja.Runtime, error) {
	g.token.Lock()
	if g.vm == nil {
		g.token.Unlock()
		return nil, errors.InvalidState(componentName, "goja runtime is not initialized")
	}
	return g.vm, nil
}

func (g *GojaInterpreter) Unlock() { g.token.Unlock() }

// Interrupt aborts the running script. It is only called while the token
// is held by Manager.ExecuteContext, so vm is stable.
func (g *GojaInterpreter) Interrupt(cause error) {
	if g.vm != nil {
		g.vm.Interrupt(cause)
	}
}

func (g *GojaInterpreter) ClearInterrupt() {
	if g.vm != nil {
		g.vm.ClearInterrupt()
	}
}

// Preloaded returns the scripts evaluated by the last Initialize.
func (g *GojaInterpreter) Preloaded() []string {
	g.token.Lock()
	defer g.token.Unlock()
	return append([]string(nil), g.preloaded...)
}

// Run evaluates src as the script name. An interrupted script returns the
// interrupt cause, so a cancelled context surfaces as context.Canceled or
// context.DeadlineExceeded.
func Run(vm *goja.Runtime, name, src string) (goja.Value, error) {
	v, err := vm.RunScript(name, src)
	if err != nil {
		return nil, unwrapInterrupt(err)
	}
	return v, nil
}

// RunFile evaluates the script at path. A relative path is resolved with
// sys.resolve, so it is looked up on the interpreter search path.
func RunFile(vm *goja.Runtime, path string) (goja.Value, error) {
	if !filepath.IsAbs(path) {
		resolved := ""
		if sys := vm.Get("sys"); sys != nil && !goja.IsUndefined(sys) {
			if resolve, ok := goja.AssertFunction(sys.ToObject(vm).Get("resolve")); ok {
				v, err := resolve(sys, vm.ToValue(path))
				if err != nil {
					return nil, unwrapInterrupt(err)
				}
				resolved = v.String()
			}
		}
		if resolved == "" {
			return nil, fmt.Errorf("script %s not found on search path", path)
		}
		path = resolved
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Run(vm, path, string(src))
}

// CallFunction calls the global function fn with args.
func CallFunction(vm *goja.Runtime, fn string, args ...any) (goja.Value, error) {
	callable, ok := goja.AssertFunction(vm.Get(fn))
	if !ok {
		return nil, fmt.Errorf("script function %s is not defined", fn)
	}
	values := make([]goja.Value, len(args))
	for i, a := range args {
		values[i] = vm.ToValue(a)
	}
	v, err := callable(goja.Undefined(), values...)
	if err != nil {
		return nil, unwrapInterrupt(err)
	}
	return v, nil
}

func unwrapInterrupt(err error) error {
	var interrupted *goja.InterruptedError
	if stderrors.As(err, &interrupted) {
		if cause := interrupted.Unwrap(); cause != nil {
			return cause
		}
	}
	return err
}

func (g *GojaInterpreter) installGlobals(vm *goja.Runtime, env Environment) error {
	resolve := func(name string) string {
		if filepath.IsAbs(name) {
			return name
		}
		for _, dir := range env.SearchPaths {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		return ""
	}

	sys := vm.NewObject()
	if err := sys.Set("home", env.Home); err != nil {
		return err
	}
	if err := sys.Set("library", env.Library); err != nil {
		return err
	}
	if err := sys.Set("path", append([]string(nil), env.SearchPaths...)); err != nil {
		return err
	}
	if err := sys.Set("resolve", resolve); err != nil {
		return err
	}
	// A non-nil error return is thrown into the script.
	err := sys.Set("readFile", func(name string) (string, error) {
		p := resolve(name)
		if p == "" {
			return "", fmt.Errorf("%s not found on search path", name)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
	if err != nil {
		return err
	}
	if err := vm.Set("sys", sys); err != nil {
		return err
	}

	console := vm.NewObject()
	err = console.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		g.log.Debug("script", logger.Fields("args", parts))
		return goja.Undefined()
	})
	if err != nil {
		return err
	}
	return vm.Set("console", console)
}

func preload(vm *goja.Runtime, dirs []string) ([]string, error) {
	var loaded []string
	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, "*.js"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		for _, path := range matches {
			src, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read preload script: %w", err)
			}
			if _, err := vm.RunScript(path, string(src)); err != nil {
				return nil, fmt.Errorf("preload %s: %w", filepath.Base(path), err)
			}
			loaded = append(loaded, path)
		}
	}
	return loaded, nil
}
