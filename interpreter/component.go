package interpreter

import (
	"context"
	"fmt"

	"github.com/Mulet-J/desktopeye/component"
)

// Component adapts m to component.Component. Starting it does nothing;
// dependents bring the runtime up. Stopping it closes the manager, so
// register it before any dependent.
func (m *Manager[V]) Component() component.Component {
	return &runtimeComponent[V]{m: m}
}

type runtimeComponent[V any] struct {
	m *Manager[V]
}

func (c *runtimeComponent[V]) Name() string { return componentName }

func (c *runtimeComponent[V]) Start(ctx context.Context) error { return nil }

func (c *runtimeComponent[V]) Stop(ctx context.Context) error { return c.m.Close() }

func (c *runtimeComponent[V]) Health(ctx context.Context) component.Health {
	h := component.Health{Name: componentName, Status: component.StatusHealthy}
	switch {
	case c.m.IsClosed():
		h.Status, h.Message = component.StatusUnhealthy, "closed"
	case c.m.IsInitialized():
		h.Message = fmt.Sprintf("initialized, %d dependents", c.m.DependentCount())
	default:
		h.Message = "idle"
	}
	return h
}

func (c *runtimeComponent[V]) Describe() component.Description {
	return component.Description{
		Name:    "Script runtime",
		Type:    "runtime",
		Details: fmt.Sprintf("initialized=%t dependents=%d", c.m.IsInitialized(), c.m.DependentCount()),
	}
}
