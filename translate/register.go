package translate

import (
	"context"
	"net/http"

	"github.com/dop251/goja"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/interpreter"
	"github.com/Mulet-J/desktopeye/provider"
)

// NewLocator creates an empty translation locator.
func NewLocator() *provider.Locator[Service, Kind] {
	return provider.NewLocator[Service, Kind](config.CapabilityTranslate)
}

// Deps carries what the translation factories need.
type Deps struct {
	Config config.TranslateConfig
	// Runtime is the shared interpreter. Without it the script backend
	// cannot be created.
	Runtime *interpreter.Manager[*goja.Runtime]
	// HTTPClient is used by the LLM backend; nil uses the default.
	HTTPClient *http.Client
}

// Register binds every translation backend on loc.
func Register(loc *provider.Locator[Service, Kind], deps Deps) {
	loc.Register(Glossary, func(context.Context) (Service, error) {
		return NewGlossaryTranslator(deps.Config.GlossaryPath), nil
	})
	loc.Register(Script, func(context.Context) (Service, error) {
		if deps.Runtime == nil {
			return nil, errors.ServiceUnavailable("interpreter")
		}
		s, err := NewScriptTranslator(deps.Config, deps.Runtime)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	loc.Register(LLM, func(context.Context) (Service, error) {
		return NewLLMTranslator(deps.Config.LLM, deps.HTTPClient), nil
	})
}
