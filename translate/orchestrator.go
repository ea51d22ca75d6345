package translate

import (
	"context"
	"strings"

	"golang.org/x/text/language"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/provider"
)

// Orchestrator owns the active translation backend.
type Orchestrator struct {
	*provider.Orchestrator[Service, Kind]
}

// NewOrchestrator creates the translation orchestrator under the
// "translate" capability.
func NewOrchestrator(cfg provider.OrchestratorConfig[Service, Kind]) (*Orchestrator, error) {
	cfg.Capability = config.CapabilityTranslate
	o, err := provider.NewOrchestrator(cfg)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{Orchestrator: o}, nil
}

// Translate renders text in target with the active backend. An
// undetermined source lets the backend infer it.
func (o *Orchestrator) Translate(ctx context.Context, text string, source, target language.Tag) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.InvalidInput("text", "text is empty")
	}
	if undetermined(target) {
		return "", errors.InvalidInput("target", "target language is required")
	}
	return provider.Call(ctx, o.Orchestrator, func(ctx context.Context, s Service) (string, error) {
		return s.Translate(ctx, text, source, target)
	})
}
