package provider

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Mulet-J/desktopeye/errors"
)

// LoadState is the warm-up state of one backend instance.
type LoadState int

const (
	NotLoaded LoadState = iota
	Loading
	Loaded
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case NotLoaded:
		return "not_loaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case LoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// LoadFunc performs the actual load. It reports success with (true, nil).
type LoadFunc func(ctx context.Context) (bool, error)

// LoadGate makes a load idempotent and convergent. The zero value is ready
// to use.
//
// Concurrent callers share one in-flight load and all receive its result.
// The load runs on a context that keeps the values of the caller that
// started it but not its cancellation: a caller whose context ends stops
// waiting, and the load is cancelled only once every caller has stopped
// waiting. A load that fails moves the gate to LoadFailed and a cancelled
// one back to NotLoaded; either way the next call retries. Loaded is only
// entered when the load function reports success.
type LoadGate struct {
	group singleflight.Group

	mu       sync.Mutex
	state    LoadState
	err      error
	gen      uint64
	done     chan struct{}
	attempts int

	// waiters counts callers still waiting on the current flight.
	waiters int
	runCtx  context.Context
	cancel  context.CancelFunc
}

// flight is one caller's handle on a load.
type flight struct {
	ch     <-chan singleflight.Result
	gen    uint64
	loaded bool
}

// Load runs fn unless the gate is already loaded or a load is in flight, in
// which case it returns immediately or joins that load. An error from ctx
// ends only this caller's wait.
func (g *LoadGate) Load(ctx context.Context, fn LoadFunc) (bool, error) {
	if err := ctx.Err(); err != nil {
		if g.State() == Loaded {
			return true, nil
		}
		return false, err
	}
	return g.await(ctx, g.start(ctx, fn))
}

// await waits for a flight returned by start.
func (g *LoadGate) await(ctx context.Context, f flight) (bool, error) {
	if f.loaded {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		g.leave(f.gen)
		return false, err
	}
	select {
	case res := <-f.ch:
		ok, _ := res.Val.(bool)
		return ok, res.Err
	case <-ctx.Done():
		g.leave(f.gen)
		return false, ctx.Err()
	}
}

// Go starts a load without waiting for it. The gate is in the Loading state
// when Go returns, so Wait observes the load. Go counts as a caller until
// ctx ends.
func (g *LoadGate) Go(ctx context.Context, fn LoadFunc) {
	f := g.start(ctx, fn)
	if f.loaded || ctx.Done() == nil {
		return
	}
	go func() {
		select {
		case <-f.ch:
		case <-ctx.Done():
			g.leave(f.gen)
		}
	}()
}

// Wait blocks until no load is in flight or ctx is done.
func (g *LoadGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	done, loading := g.done, g.state == Loading
	g.mu.Unlock()
	if !loading {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state.
func (g *LoadGate) State() LoadState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Err returns the error of the last settled load, if any.
func (g *LoadGate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Attempts returns how many times a load function actually ran.
func (g *LoadGate) Attempts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts
}

// MarkLoaded moves an idle gate straight to Loaded, for backends with
// nothing to load.
func (g *LoadGate) MarkLoaded() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Loading {
		g.state = Loaded
		g.err = nil
	}
}

// Reset returns a settled gate to NotLoaded so the next call loads again.
// It reports false and does nothing while a load is in flight.
func (g *LoadGate) Reset() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Loading {
		return false
	}
	g.gen++
	g.state = NotLoaded
	g.err = nil
	return true
}

func (g *LoadGate) start(ctx context.Context, fn LoadFunc) flight {
	g.mu.Lock()
	if g.state == Loaded {
		g.mu.Unlock()
		return flight{loaded: true}
	}
	if g.state != Loading {
		g.gen++
		g.state = Loading
		g.err = nil
		g.done = make(chan struct{})
		g.waiters = 0
		g.runCtx, g.cancel = context.WithCancel(context.WithoutCancel(ctx))
	}
	g.waiters++
	gen, runCtx := g.gen, g.runCtx
	g.mu.Unlock()

	ch := g.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		g.mu.Lock()
		if gen != g.gen || g.state != Loading {
			// The flight for this generation already settled.
			ok, err := g.state == Loaded, g.err
			g.mu.Unlock()
			return ok, err
		}
		g.attempts++
		g.mu.Unlock()

		ok, err := callLoad(runCtx, fn)
		g.settle(gen, ok, err)
		return ok && err == nil, err
	})
	return flight{ch: ch, gen: gen}
}

// leave drops one waiter of flight gen and cancels the load when nobody is
// left waiting for it.
func (g *LoadGate) leave(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen || g.state != Loading {
		return
	}
	g.waiters--
	if g.waiters <= 0 && g.cancel != nil {
		g.cancel()
	}
}

func (g *LoadGate) settle(gen uint64, ok bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen || g.state != Loading {
		return
	}
	switch {
	case ok && err == nil:
		g.state = Loaded
		g.err = nil
	case errors.IsContext(err):
		g.state = NotLoaded
		g.err = err
	default:
		g.state = LoadFailed
		g.err = err
	}
	if g.cancel != nil {
		g.cancel()
	}
	g.runCtx, g.cancel = nil, nil
	close(g.done)
}

func callLoad(ctx context.Context, fn LoadFunc) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, errors.Internal(fmt.Errorf("load panicked: %v", r))
		}
	}()
	return fn(ctx)
}
