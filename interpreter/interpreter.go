package interpreter

// Interpreter is an embedded runtime that a Manager initializes, finalizes
// and hands out under exclusive access. V is the handle scripts run against.
type Interpreter[V any] interface {
	// Initialize brings the runtime up in env. It is called at most once per
	// initialized cycle.
	Initialize(env Environment) error
	// Finalize tears the runtime down. The Manager never calls it twice in a
	// row without an Initialize in between.
	Finalize() error
	// Lock takes the interpreter's own exclusive token and returns its handle.
	Lock() (V, error)
	// Unlock releases the token taken by a successful Lock.
	Unlock()
}

// Interruptible is implemented by interpreters that can abort a running
// script from another goroutine.
type Interruptible interface {
	Interrupt(cause error)
	ClearInterrupt()
}
