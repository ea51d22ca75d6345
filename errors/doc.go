// Package errors provides the structured error type shared by the
// orchestration core, the interpreter manager and the control API.
//
// Every error carries a machine-readable code. The taxonomy mirrors the
// failure classes of the core: configuration errors (no backend registered),
// runtime initialization errors, load errors, operation errors and
// disposed-state errors. HTTP status mapping is kept so the local control API
// can render errors without a translation table.
package errors
