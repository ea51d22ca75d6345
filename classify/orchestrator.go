package classify

import (
	"context"
	"strings"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/provider"
)

// Orchestrator owns the active classifier backend.
type Orchestrator struct {
	*provider.Orchestrator[Service, Kind]
}

// NewOrchestrator creates the classification orchestrator under the
// "classify" capability.
func NewOrchestrator(cfg provider.OrchestratorConfig[Service, Kind]) (*Orchestrator, error) {
	cfg.Capability = config.CapabilityClassify
	o, err := provider.NewOrchestrator(cfg)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{Orchestrator: o}, nil
}

// ClassifyText detects the language of text with the active backend.
func (o *Orchestrator) ClassifyText(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.InvalidInput("text", "text is empty")
	}
	return provider.Call(ctx, o.Orchestrator, func(ctx context.Context, s Service) (*Result, error) {
		return s.ClassifyText(ctx, text)
	})
}
