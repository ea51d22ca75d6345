package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Mulet-J/desktopeye/component"
)

// CapabilityStatus is the state of one orchestrator.
type CapabilityStatus struct {
	Capability string           `json:"capability"`
	Kind       string           `json:"kind"`
	Kinds      []string         `json:"kinds"`
	Active     bool             `json:"active"`
	LoadState  string           `json:"load_state"`
	Health     component.Health `json:"health"`
}

// RuntimeStatus is the state of the shared script runtime.
type RuntimeStatus struct {
	Initialized bool `json:"initialized"`
	Dependents  int  `json:"dependents"`
	Closed      bool `json:"closed"`
}

// Summary is a point-in-time view of the application.
type Summary struct {
	Service         string             `json:"service"`
	Version         string             `json:"version"`
	Environment     string             `json:"environment"`
	StartupDuration time.Duration      `json:"startup_duration"`
	Capabilities    []CapabilityStatus `json:"capabilities"`
	Runtime         RuntimeStatus      `json:"runtime"`
	Components      []component.Health `json:"components"`
	Routes          []component.Route  `json:"routes,omitempty"`
}

// Summary collects the current state of every capability, the runtime and
// the registered components.
func (a *App) Summary(ctx context.Context) Summary {
	s := Summary{
		Service:         a.Name,
		Version:         a.Version,
		Environment:     a.Cfg.Environment,
		StartupDuration: a.startupDuration,
		Runtime: RuntimeStatus{
			Initialized: a.Runtime.IsInitialized(),
			Dependents:  a.Runtime.DependentCount(),
			Closed:      a.Runtime.IsClosed(),
		},
		Components: a.Components.HealthAll(ctx),
	}
	for _, c := range a.capabilities {
		s.Capabilities = append(s.Capabilities, CapabilityStatus{
			Capability: c.Capability(),
			Kind:       c.KindName(),
			Kinds:      c.KindNames(),
			Active:     c.HasInstance(),
			LoadState:  c.LoadState().String(),
			Health:     c.Health(ctx),
		})
	}
	for _, comp := range a.Components.All() {
		if rp, ok := comp.(component.RouteProvider); ok {
			s.Routes = append(s.Routes, rp.Routes()...)
		}
	}
	return s
}

// DisplaySummary prints the startup banner to w.
func (a *App) DisplaySummary(ctx context.Context, w io.Writer) {
	a.Summary(ctx).Print(w)
}

// Print writes the banner.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n\n", s.Service, s.Version, s.StartupDuration.Seconds())

	fmt.Fprintf(w, "🧩 Capabilities\n")
	for i, c := range s.Capabilities {
		fmt.Fprintf(w, "   %s %s %s: %s (%s) [%s]\n",
			branch(i, len(s.Capabilities)), healthStatusIcon(c.Health.Status),
			c.Capability, c.Kind, c.LoadState, strings.Join(c.Kinds, ", "))
	}

	runtime := "idle"
	switch {
	case s.Runtime.Closed:
		runtime = "closed"
	case s.Runtime.Initialized:
		runtime = fmt.Sprintf("initialized, %d dependents", s.Runtime.Dependents)
	}
	fmt.Fprintf(w, "\n📜 Script runtime: %s\n", runtime)

	if len(s.Routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(s.Routes))
		for i, r := range s.Routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", branch(i, len(s.Routes)), r.Method, r.Path, r.Handler)
		}
	}

	if len(s.Components) > 0 {
		fmt.Fprintf(w, "\n🏥 Health Check\n")
		healthy := 0
		for i, h := range s.Components {
			msg := ""
			if h.Message != "" {
				msg = " (" + h.Message + ")"
			}
			fmt.Fprintf(w, "   %s %s %s: %s%s\n", branch(i, len(s.Components)), healthStatusIcon(h.Status), h.Name, h.Status, msg)
			if h.Status == component.StatusHealthy {
				healthy++
			}
		}
		if healthy == len(s.Components) {
			fmt.Fprintf(w, "\n✅ All components healthy (%d/%d)\n", healthy, len(s.Components))
		} else {
			fmt.Fprintf(w, "\n⚠️  Some components have issues (%d/%d healthy)\n", healthy, len(s.Components))
		}
	}
	fmt.Fprintln(w)
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
