package provider

import "context"

// Loadable is implemented by backends that need warm-up before first use,
// typically loading a model or resource files.
//
// LoadRequired must be idempotent and safe for concurrent use. Once loaded it
// returns true immediately. On failure it returns false together with the
// cause; panics are reserved for programmer errors.
type Loadable interface {
	LoadRequired(ctx context.Context, modelHint string) (bool, error)
}

// Closer is implemented by backends that hold resources. The orchestrator
// calls Close exactly once, before the backend is replaced or when the
// orchestrator itself is closed.
type Closer interface {
	Close() error
}
