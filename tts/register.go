package tts

import (
	"context"

	"github.com/dop251/goja"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/interpreter"
	"github.com/Mulet-J/desktopeye/process"
	"github.com/Mulet-J/desktopeye/provider"
)

// NewLocator creates an empty speech locator.
func NewLocator() *provider.Locator[Service, Kind] {
	return provider.NewLocator[Service, Kind](config.CapabilityTTS)
}

// Deps carries what the speech factories need.
type Deps struct {
	Config  config.TTSConfig
	Runtime *interpreter.Manager[*goja.Runtime]
	// Runner overrides the espeak-ng runner, mainly for tests.
	Runner CommandRunner
}

// Register binds both speech backends on loc.
func Register(loc *provider.Locator[Service, Kind], deps Deps) {
	loc.Register(Espeak, func(context.Context) (Service, error) {
		runner := deps.Runner
		if runner == nil {
			runner = process.DefaultRunner(deps.Config.Binary)
		}
		return NewEspeakSpeaker(deps.Config, runner), nil
	})
	loc.Register(Script, func(context.Context) (Service, error) {
		if deps.Runtime == nil {
			return nil, errors.ServiceUnavailable("interpreter")
		}
		s, err := NewScriptSynth(deps.Config, deps.Runtime)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
