// Package component defines the lifecycle contract shared by the long-lived
// parts of desktopeye: the script runtime, the capability orchestrators and
// the HTTP server.
//
// A Registry starts components in registration order and stops them in
// reverse, so a component registered after the runtime can rely on it for
// its whole lifetime.
//
// # Interfaces
//
//   - Component: Start/Stop/Health
//   - Describable: one-line summary for the startup banner
//   - RouteProvider: HTTP routes for the startup banner
package component
