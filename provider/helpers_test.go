package provider

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testKind string

func (k testKind) String() string { return string(k) }

const (
	kindAlpha   testKind = "alpha"
	kindBeta    testKind = "beta"
	kindMissing testKind = "missing"
)

type echoService interface {
	Echo(ctx context.Context) (string, error)
}

// fakeBackend is a loadable, closable echoService.
type fakeBackend struct {
	name      string
	loadDelay time.Duration
	loadErr   error

	loads  atomic.Int32
	closes atomic.Int32
	loaded atomic.Bool
	hints  chan string
}

func (b *fakeBackend) Echo(ctx context.Context) (string, error) {
	if b.closes.Load() > 0 {
		return "", fmt.Errorf("%s used after close", b.name)
	}
	return b.name, nil
}

func (b *fakeBackend) LoadRequired(ctx context.Context, hint string) (bool, error) {
	b.loads.Add(1)
	if b.hints != nil {
		select {
		case b.hints <- hint:
		default:
		}
	}
	select {
	case <-time.After(b.loadDelay):
	case <-ctx.Done():
		return false, ctx.Err()
	}
	if b.loadErr != nil {
		return false, b.loadErr
	}
	b.loaded.Store(true)
	return true, nil
}

func (b *fakeBackend) Close() error {
	b.closes.Add(1)
	return nil
}

// plainBackend has nothing to load and nothing to close.
type plainBackend struct{ name string }

func (p *plainBackend) Echo(context.Context) (string, error) { return p.name, nil }

// backendSet records every instance its factories create.
type backendSet struct {
	mu        sync.Mutex
	created   []*fakeBackend
	loadDelay time.Duration
	loadErr   error
}

func (s *backendSet) factory(name string) Factory[echoService] {
	return func(ctx context.Context) (echoService, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		b := &fakeBackend{name: name, loadDelay: s.loadDelay, loadErr: s.loadErr}
		s.created = append(s.created, b)
		return b, nil
	}
}

func (s *backendSet) all() []*fakeBackend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeBackend(nil), s.created...)
}

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) Report(_ context.Context, err error, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) reported() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}
