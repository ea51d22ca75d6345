package component

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/logger"
)

type fakeComponent struct {
	name     string
	startErr error
	stopErr  error
	health   Health
	events   *[]string
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(context.Context) error {
	f.note("start")
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	f.note("stop")
	return f.stopErr
}

func (f *fakeComponent) Health(context.Context) Health { return f.health }

func (f *fakeComponent) note(op string) {
	if f.events != nil {
		*f.events = append(*f.events, op+":"+f.name)
	}
}

func newRegistry(t *testing.T, comps ...Component) *Registry {
	t.Helper()
	r := NewRegistry(logger.Nop())
	for _, c := range comps {
		if err := r.Register(c); err != nil {
			t.Fatalf("Register(%s): %v", c.Name(), err)
		}
	}
	return r
}

func TestRegistry_Lifecycle(t *testing.T) {
	var events []string
	r := newRegistry(t,
		&fakeComponent{name: "interpreter", events: &events},
		&fakeComponent{name: "ocr", events: &events},
		&fakeComponent{name: "http-server", events: &events},
	)

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("second StartAll: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}

	want := "start:interpreter,start:ocr,start:http-server,stop:http-server,stop:ocr,stop:interpreter"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("events = %s\nwant     %s", got, want)
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := newRegistry(t, &fakeComponent{name: "ocr"})
	err := r.Register(&fakeComponent{name: "ocr"})
	if !apperrors.Is(err, apperrors.ErrCodeInvalidState) {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
	if len(r.All()) != 1 {
		t.Errorf("duplicate must not be added, have %d", len(r.All()))
	}
}

func TestRegistry_GetAndAll(t *testing.T) {
	r := newRegistry(t, &fakeComponent{name: "interpreter"}, &fakeComponent{name: "tts"})
	if c := r.Get("tts"); c == nil || c.Name() != "tts" {
		t.Fatalf("Get(tts) = %v", c)
	}
	if r.Get("vision") != nil {
		t.Error("expected nil for an unknown name")
	}
	all := r.All()
	if len(all) != 2 || all[0].Name() != "interpreter" {
		t.Errorf("All() order wrong: %v", all)
	}
}

func TestRegistry_PartialStartStopsOnlyStarted(t *testing.T) {
	var events []string
	boom := errors.New("tessdata missing")
	r := newRegistry(t,
		&fakeComponent{name: "interpreter", events: &events},
		&fakeComponent{name: "ocr", startErr: boom, events: &events},
		&fakeComponent{name: "http-server", events: &events},
	)

	err := r.StartAll(context.Background())
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "ocr") {
		t.Fatalf("expected wrapped ocr failure, got %v", err)
	}
	events = nil
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if got := strings.Join(events, ","); got != "stop:interpreter" {
		t.Errorf("expected only the interpreter to stop, got %s", got)
	}
}

func TestRegistry_StopJoinsErrors(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	r := newRegistry(t,
		&fakeComponent{name: "classify", stopErr: errA},
		&fakeComponent{name: "translate", stopErr: errB},
	)
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both stop errors, got %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Errorf("stopped components must not stop twice: %v", err)
	}
}

type hangingStop struct{ fakeComponent }

func (h *hangingStop) Stop(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRegistry_StopTimeout(t *testing.T) {
	r := newRegistry(t, &hangingStop{fakeComponent{name: "llm"}})
	r.SetStopTimeout(10 * time.Millisecond)
	r.SetStopTimeout(0)
	_ = r.StartAll(context.Background())

	if err := r.StopAll(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRegistry_HealthAll(t *testing.T) {
	r := newRegistry(t,
		&fakeComponent{name: "interpreter", health: Health{Name: "interpreter", Status: StatusHealthy}},
		&fakeComponent{name: "ocr", health: Health{Status: StatusDegraded, Message: "loading"}},
		&fakeComponent{name: "tts", health: Health{Name: "tts", Status: StatusUnhealthy, Message: "closed"}},
	)

	got := r.HealthAll(context.Background())
	want := []Health{
		{Name: "interpreter", Status: StatusHealthy},
		{Name: "ocr", Status: StatusDegraded, Message: "loading"},
		{Name: "tts", Status: StatusUnhealthy, Message: "closed"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d results", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
