package component

import "context"

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is one component's entry in /health and the startup banner.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a long-lived part of the application owned by a Registry.
// Names are unique within a registry.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is a component's own line in the startup summary, for
// example Type "orchestrator" with Details "kind=tesseract state=loaded".
// An empty Name means Component.Name().
type Description struct {
	Name    string
	Type    string
	Details string
	Port    int
}

// Describable components supply their banner line.
type Describable interface {
	Describe() Description
}

// Route is one endpoint listed in the startup summary.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider is implemented by components that serve HTTP.
type RouteProvider interface {
	Routes() []Route
}
