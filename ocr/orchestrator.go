package ocr

import (
	"context"
	"image"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/provider"
)

// Orchestrator owns the active OCR backend.
type Orchestrator struct {
	*provider.Orchestrator[Service, Kind]
}

// NewOrchestrator creates the OCR orchestrator. A zero cfg.Default selects
// DefaultKind; the capability name is always "ocr".
func NewOrchestrator(cfg provider.OrchestratorConfig[Service, Kind]) (*Orchestrator, error) {
	cfg.Capability = config.CapabilityOCR
	o, err := provider.NewOrchestrator(cfg)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{Orchestrator: o}, nil
}

// ExtractText reads text from img with the active backend.
func (o *Orchestrator) ExtractText(ctx context.Context, img image.Image, languages []string, preprocess bool) (*Result, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.InvalidInput("image", "image is empty")
	}
	return provider.Call(ctx, o.Orchestrator, func(ctx context.Context, s Service) (*Result, error) {
		return s.ExtractText(ctx, img, Options{Languages: languages, Preprocess: preprocess})
	})
}
