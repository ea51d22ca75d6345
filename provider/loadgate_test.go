package provider

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mulet-J/desktopeye/errors"
)

func TestLoadGateZeroValue(t *testing.T) {
	var g LoadGate
	if g.State() != NotLoaded {
		t.Fatalf("expected not_loaded, got %s", g.State())
	}

	ok, err := g.Load(context.Background(), func(context.Context) (bool, error) { return true, nil })
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if g.State() != Loaded {
		t.Errorf("expected loaded, got %s", g.State())
	}

	ok, err = g.Load(context.Background(), func(context.Context) (bool, error) {
		t.Error("load function called again after success")
		return true, nil
	})
	if err != nil || !ok {
		t.Fatalf("second Load failed: ok=%v err=%v", ok, err)
	}
	if g.Attempts() != 1 {
		t.Errorf("expected 1 attempt, got %d", g.Attempts())
	}
}

func TestLoadGateConverges(t *testing.T) {
	var g LoadGate
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (bool, error) {
		calls.Add(1)
		<-release
		return true, nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, _ := g.Load(context.Background(), fn)
			results[i] = ok
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected one load, got %d", calls.Load())
	}
	for i, ok := range results {
		if !ok {
			t.Errorf("caller %d got false", i)
		}
	}
}

func TestLoadGateRetriesAfterFailure(t *testing.T) {
	var g LoadGate
	boom := stderrors.New("model missing")

	ok, err := g.Load(context.Background(), func(context.Context) (bool, error) { return false, boom })
	if ok || !stderrors.Is(err, boom) {
		t.Fatalf("expected failure, got ok=%v err=%v", ok, err)
	}
	if g.State() != LoadFailed || !stderrors.Is(g.Err(), boom) {
		t.Fatalf("expected load_failed with cause, got %s %v", g.State(), g.Err())
	}

	ok, err = g.Load(context.Background(), func(context.Context) (bool, error) { return true, nil })
	if err != nil || !ok {
		t.Fatalf("retry failed: ok=%v err=%v", ok, err)
	}
	if g.State() != Loaded || g.Err() != nil {
		t.Errorf("expected loaded without error, got %s %v", g.State(), g.Err())
	}
	if g.Attempts() != 2 {
		t.Errorf("expected 2 attempts, got %d", g.Attempts())
	}
}

func TestLoadGateFalseWithoutErrorIsFailure(t *testing.T) {
	var g LoadGate
	ok, err := g.Load(context.Background(), func(context.Context) (bool, error) { return false, nil })
	if ok || err != nil {
		t.Fatalf("expected (false, nil), got ok=%v err=%v", ok, err)
	}
	if g.State() != LoadFailed {
		t.Errorf("expected load_failed, got %s", g.State())
	}
}

func TestLoadGateCancelLeavesNotLoaded(t *testing.T) {
	var g LoadGate
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := g.Load(ctx, func(ctx context.Context) (bool, error) {
			close(started)
			<-ctx.Done()
			return false, ctx.Err()
		})
		done <- err
	}()

	<-started
	cancel()
	if err := <-done; !stderrors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if g.State() != NotLoaded {
		t.Errorf("expected not_loaded after cancel, got %s", g.State())
	}

	ok, err := g.Load(context.Background(), func(context.Context) (bool, error) { return true, nil })
	if err != nil || !ok {
		t.Fatalf("Load after cancel failed: ok=%v err=%v", ok, err)
	}
}

func TestLoadGateWaiterCancelDoesNotAbortLoad(t *testing.T) {
	var g LoadGate
	release := make(chan struct{})
	g.Go(context.Background(), func(context.Context) (bool, error) {
		<-release
		return true, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := g.Load(ctx, func(context.Context) (bool, error) { return false, nil }); !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded for waiter, got %v", err)
	}
	if g.State() != Loading {
		t.Fatalf("expected load still in flight, got %s", g.State())
	}

	close(release)
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if g.State() != Loaded {
		t.Errorf("expected loaded, got %s", g.State())
	}
}

func TestLoadGateStarterCancelDoesNotAbortJoiner(t *testing.T) {
	var g LoadGate
	fn := func(ctx context.Context) (bool, error) {
		select {
		case <-time.After(80 * time.Millisecond):
			return true, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	starterCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	starter := make(chan error, 1)
	go func() {
		_, err := g.Load(starterCtx, fn)
		starter <- err
	}()
	for g.State() != Loading {
		time.Sleep(time.Millisecond)
	}

	ok, err := g.Load(context.Background(), fn)
	if err != nil || !ok {
		t.Fatalf("joiner: ok=%v err=%v", ok, err)
	}
	if err := <-starter; !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded for the starter, got %v", err)
	}
	if g.State() != Loaded {
		t.Errorf("expected loaded, got %s", g.State())
	}
	if g.Attempts() != 1 {
		t.Errorf("expected 1 attempt, got %d", g.Attempts())
	}
}

func TestLoadGateCancelsWhenEveryWaiterLeaves(t *testing.T) {
	var g LoadGate
	aborted := make(chan struct{})
	fn := func(ctx context.Context) (bool, error) {
		<-ctx.Done()
		close(aborted)
		return false, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Load(ctx, fn); !stderrors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		}()
	}
	for g.State() != Loading {
		time.Sleep(time.Millisecond)
	}
	cancel()
	wg.Wait()

	select {
	case <-aborted:
	case <-time.After(time.Second):
		t.Fatal("load kept running after every caller left")
	}
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if g.State() != NotLoaded {
		t.Errorf("expected not_loaded, got %s", g.State())
	}
}

func TestLoadGatePanicBecomesError(t *testing.T) {
	var g LoadGate
	ok, err := g.Load(context.Background(), func(context.Context) (bool, error) { panic("bad model") })
	if ok {
		t.Fatal("expected false after panic")
	}
	if !errors.Is(err, errors.ErrCodeInternal) {
		t.Fatalf("expected INTERNAL_ERROR, got %v", err)
	}
	if g.State() != LoadFailed {
		t.Errorf("expected load_failed, got %s", g.State())
	}
}

func TestLoadGateGoSetsLoadingSynchronously(t *testing.T) {
	var g LoadGate
	release := make(chan struct{})
	g.Go(context.Background(), func(context.Context) (bool, error) {
		<-release
		return true, nil
	})
	if g.State() != Loading {
		t.Fatalf("expected loading right after Go, got %s", g.State())
	}
	if g.Reset() {
		t.Error("Reset should refuse while loading")
	}
	close(release)
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if !g.Reset() || g.State() != NotLoaded {
		t.Errorf("expected reset to not_loaded, got %s", g.State())
	}
}

func TestLoadStateString(t *testing.T) {
	tests := map[LoadState]string{
		NotLoaded:     "not_loaded",
		Loading:       "loading",
		Loaded:        "loaded",
		LoadFailed:    "load_failed",
		LoadState(99): "unknown",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("LoadState(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
