package ocr

import (
	"context"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/process"
	"github.com/Mulet-J/desktopeye/provider"
)

// NewLocator creates an empty OCR locator.
func NewLocator() *provider.Locator[Service, Kind] {
	return provider.NewLocator[Service, Kind](config.CapabilityOCR)
}

// Deps carries what the OCR factories need.
type Deps struct {
	Config config.OCRConfig
	// Runner overrides the tesseract runner, mainly for tests.
	Runner CommandRunner
}

// Register binds both Tesseract backends on loc.
func Register(loc *provider.Locator[Service, Kind], deps Deps) {
	loc.Register(Tesseract, func(context.Context) (Service, error) {
		return newTesseract(deps.Config)
	})
	loc.Register(TesseractCLI, func(context.Context) (Service, error) {
		runner := deps.Runner
		if runner == nil {
			runner = process.DefaultRunner(deps.Config.Binary)
		}
		return NewTesseractCommand(deps.Config, runner), nil
	})
}
