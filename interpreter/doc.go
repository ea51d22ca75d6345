// Package interpreter shares one embedded script runtime between any number
// of independent dependents.
//
// A Manager tracks its dependents by identity. The first Start initializes
// the runtime, the last Stop finalizes it, and ForceShutdown or Close tear it
// down regardless of who still holds it. Every call into the runtime goes
// through Execute (or Call), which takes a single process-wide gate shared by
// all managers and then the interpreter's own exclusive token.
//
// GojaInterpreter is the production runtime, built on github.com/dop251/goja.
//
//	m := interpreter.NewManager[*goja.Runtime](interpreter.NewGojaInterpreter(), interpreter.ManagerConfig{
//	    Environment: interpreter.ConfigEnvironment{Config: cfg.Interpreter},
//	})
//	if err := m.Start(backend); err != nil {
//	    return err
//	}
//	defer m.Stop(backend)
//
//	out, err := interpreter.CallContext(ctx, m, func(ctx context.Context, vm *goja.Runtime) (string, error) {
//	    v, err := interpreter.Run(vm, "hello.js", `greet("world")`)
//	    if err != nil {
//	        return "", err
//	    }
//	    return v.String(), nil
//	})
//
// Start and Stop must not be called from inside Execute; the gate is not
// reentrant.
package interpreter
