package translate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
	"golang.org/x/text/language"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/interpreter"
	"github.com/Mulet-J/desktopeye/provider"
)

// scriptEntry is the function the model script must define:
// translate(text, source, target) returning a string.
const scriptEntry = "translate"

// ScriptTranslator runs a translation model written for the embedded
// interpreter. It is a dependent of the shared runtime from construction
// until Close.
type ScriptTranslator struct {
	cfg     config.TranslateConfig
	runtime *interpreter.Manager[*goja.Runtime]
	gate    provider.LoadGate

	// loadedGen is the runtime generation the scripts were evaluated in.
	loadedGen atomic.Uint64
	// betweenSteps, when set, runs after the tokenizer step of a load.
	betweenSteps func()

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewScriptTranslator registers the translator with runtime, starting the
// runtime if needed.
func NewScriptTranslator(cfg config.TranslateConfig, runtime *interpreter.Manager[*goja.Runtime]) (*ScriptTranslator, error) {
	s := &ScriptTranslator{cfg: cfg, runtime: runtime}
	if err := runtime.Start(s); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadRequired evaluates the tokenizer script and then the model script.
// Nothing is committed if ctx ends between the two.
func (s *ScriptTranslator) LoadRequired(ctx context.Context, _ string) (bool, error) {
	if err := s.attach(); err != nil {
		return false, err
	}
	return s.gate.Load(ctx, func(ctx context.Context) (bool, error) {
		if s.cfg.TokenizerScript == "" || s.cfg.ModelScript == "" {
			return false, fmt.Errorf("tokenizer and model scripts must both be configured")
		}
		var tokenizerGen, gen uint64
		err := s.runtime.ExecuteContext(ctx, func(ctx context.Context, vm *goja.Runtime) error {
			tokenizerGen = s.runtime.Generation()
			_, err := interpreter.RunFile(vm, s.cfg.TokenizerScript)
			return err
		})
		if err != nil {
			return false, err
		}
		if s.betweenSteps != nil {
			s.betweenSteps()
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}

		err = s.runtime.ExecuteContext(ctx, func(ctx context.Context, vm *goja.Runtime) error {
			gen = s.runtime.Generation()
			if gen != tokenizerGen {
				return errors.InvalidState("script translator", "runtime restarted between tokenizer and model")
			}
			if _, err := interpreter.RunFile(vm, s.cfg.ModelScript); err != nil {
				return err
			}
			if _, ok := goja.AssertFunction(vm.Get(scriptEntry)); !ok {
				return fmt.Errorf("model script does not define %s()", scriptEntry)
			}
			return nil
		})
		if err != nil {
			return false, err
		}
		s.loadedGen.Store(gen)
		return true, nil
	})
}

func (s *ScriptTranslator) Translate(ctx context.Context, text string, source, target language.Tag) (string, error) {
	if ok, err := s.LoadRequired(ctx, ""); !ok {
		return "", loadError(Script, err)
	}
	out, err := interpreter.CallContext(ctx, s.runtime, func(ctx context.Context, vm *goja.Runtime) (string, error) {
		v, err := interpreter.CallFunction(vm, scriptEntry, text, source.String(), target.String())
		if err != nil {
			return "", err
		}
		return v.String(), nil
	})
	if err != nil {
		if errors.IsContext(err) {
			return "", errors.FromContext(err)
		}
		if _, ok := errors.AsAppError(err); ok {
			return "", err
		}
		return "", errors.OperationFailed(Script.String(), "translate", err)
	}
	return out, nil
}

// Close leaves the runtime. The runtime is finalized when this was its
// last dependent.
func (s *ScriptTranslator) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.runtime.Stop(s)
	})
	return nil
}

// attach rejoins the runtime, which a forced shutdown leaves without
// dependents, and forgets a load whose scripts went away with an earlier
// runtime instance.
func (s *ScriptTranslator) attach() error {
	if s.closed.Load() {
		return errors.Disposed("script translator")
	}
	if err := s.runtime.Start(s); err != nil {
		return err
	}
	if s.gate.State() == provider.Loaded && s.loadedGen.Load() != s.runtime.Generation() {
		s.gate.Reset()
	}
	return nil
}
