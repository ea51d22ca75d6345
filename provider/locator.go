package provider

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/Mulet-J/desktopeye/errors"
)

// Factory creates a backend instance.
type Factory[T any] func(ctx context.Context) (T, error)

// Locator is the explicit registry from backend kind to factory for one
// capability.
type Locator[T any, K Kind] struct {
	capability string

	mu        sync.RWMutex
	factories map[K]Factory[T]
}

// NewLocator creates an empty locator for capability.
func NewLocator[T any, K Kind](capability string) *Locator[T, K] {
	return &Locator[T, K]{
		capability: capability,
		factories:  make(map[K]Factory[T]),
	}
}

// Capability returns the capability name the locator serves.
func (l *Locator[T, K]) Capability() string { return l.capability }

// Register binds kind to factory, replacing any earlier registration.
func (l *Locator[T, K]) Register(kind K, factory Factory[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[kind] = factory
}

// Has reports whether kind has a factory.
func (l *Locator[T, K]) Has(kind K) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.factories[kind]
	return ok
}

// Create builds a new instance of kind. An unregistered kind fails with
// NOT_REGISTERED; a factory that returns no instance fails with INVALID_STATE.
func (l *Locator[T, K]) Create(ctx context.Context, kind K) (T, error) {
	l.mu.RLock()
	factory, ok := l.factories[kind]
	l.mu.RUnlock()

	var zero T
	if !ok || factory == nil {
		return zero, errors.NotRegistered(l.capability, kind.String())
	}
	inst, err := factory(ctx)
	if err != nil {
		return zero, err
	}
	if isNil(inst) {
		return zero, errors.InvalidState(l.capability, "factory for "+kind.String()+" returned no instance")
	}
	return inst, nil
}

// Kinds returns the registered kinds sorted by name.
func (l *Locator[T, K]) Kinds() []K {
	l.mu.RLock()
	defer l.mu.RUnlock()
	kinds := make([]K, 0, len(l.factories))
	for k := range l.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].String() < kinds[j].String() })
	return kinds
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
