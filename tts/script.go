package tts

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/interpreter"
	"github.com/Mulet-J/desktopeye/provider"
)

// scriptEntry must be defined by the synthesis script as
// synthesize(text, voice, sampleRate), returning mono samples in [-1, 1].
const scriptEntry = "synthesize"

const defaultSampleRate = 22050

// ScriptSynth runs a synthesis model in the shared interpreter. Like the
// script translator it holds a runtime dependency until Close.
type ScriptSynth struct {
	cfg     config.TTSConfig
	runtime *interpreter.Manager[*goja.Runtime]
	gate    provider.LoadGate

	loadedGen atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewScriptSynth registers the synthesizer with runtime.
func NewScriptSynth(cfg config.TTSConfig, runtime *interpreter.Manager[*goja.Runtime]) (*ScriptSynth, error) {
	s := &ScriptSynth{cfg: cfg, runtime: runtime}
	if err := runtime.Start(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ScriptSynth) LoadRequired(ctx context.Context, _ string) (bool, error) {
	if err := s.attach(); err != nil {
		return false, err
	}
	return s.gate.Load(ctx, func(ctx context.Context) (bool, error) {
		if s.cfg.Script == "" {
			return false, fmt.Errorf("synthesis script is not configured")
		}
		var gen uint64
		err := s.runtime.ExecuteContext(ctx, func(ctx context.Context, vm *goja.Runtime) error {
			gen = s.runtime.Generation()
			if _, err := interpreter.RunFile(vm, s.cfg.Script); err != nil {
				return err
			}
			if _, ok := goja.AssertFunction(vm.Get(scriptEntry)); !ok {
				return fmt.Errorf("synthesis script does not define %s()", scriptEntry)
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

func (s *ScriptSynth) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	if ok, err := s.LoadRequired(ctx, ""); !ok {
		return nil, loadError(Script, err)
	}
	if voice == "" {
		voice = s.cfg.Voice
	}
	rate := s.cfg.SampleRate
	if rate == 0 {
		rate = defaultSampleRate
	}

	samples, err := interpreter.CallContext(ctx, s.runtime, func(ctx context.Context, vm *goja.Runtime) ([]float64, error) {
		v, err := interpreter.CallFunction(vm, scriptEntry, text, voice, rate)
		if err != nil {
			return nil, err
		}
		if obj, ok := v.(*goja.Object); !ok || obj.ClassName() != "Array" {
			return nil, fmt.Errorf("synthesize must return an array of numbers, got %s", v)
		}
		var out []float64
		if err := vm.ExportTo(v, &out); err != nil {
			return nil, fmt.Errorf("synthesize must return an array of numbers: %w", err)
		}
		return out, nil
	})
	if err != nil {
		if errors.IsContext(err) {
			return nil, errors.FromContext(err)
		}
		if _, ok := errors.AsAppError(err); ok {
			return nil, err
		}
		return nil, errors.OperationFailed(Script.String(), "synthesize", err)
	}

	pcm := floatsToPCM(samples)
	data := EncodeWAV(pcm, rate, 1)
	return &Audio{
		Data:       data,
		Format:     FormatWAV,
		SampleRate: rate,
		Channels:   1,
		Duration:   WAVInfo{SampleRate: rate, Channels: 1, BitsPerSample: 16, DataBytes: len(pcm) * 2}.Duration(),
		Voice:      voice,
		Backend:    Script.String(),
	}, nil
}

// Close leaves the runtime.
func (s *ScriptSynth) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.runtime.Stop(s)
	})
	return nil
}

// attach rejoins the runtime after a forced shutdown and drops a load made
// in an earlier runtime instance.
func (s *ScriptSynth) attach() error {
	if s.closed.Load() {
		return errors.Disposed("script synthesizer")
	}
	if err := s.runtime.Start(s); err != nil {
		return err
	}
	if s.gate.State() == provider.Loaded && s.loadedGen.Load() != s.runtime.Generation() {
		s.gate.Reset()
	}
	return nil
}
