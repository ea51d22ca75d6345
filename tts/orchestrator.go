package tts

import (
	"context"
	"strings"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/provider"
)

// Orchestrator owns the active speech backend.
type Orchestrator struct {
	*provider.Orchestrator[Service, Kind]
}

// NewOrchestrator creates the speech orchestrator under the "tts"
// capability.
func NewOrchestrator(cfg provider.OrchestratorConfig[Service, Kind]) (*Orchestrator, error) {
	cfg.Capability = config.CapabilityTTS
	o, err := provider.NewOrchestrator(cfg)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{Orchestrator: o}, nil
}

// Synthesize speaks text with the active backend.
func (o *Orchestrator) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.InvalidInput("text", "text is empty")
	}
	return provider.Call(ctx, o.Orchestrator, func(ctx context.Context, s Service) (*Audio, error) {
		return s.Synthesize(ctx, text, voice)
	})
}
