package tts

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/process"
	"github.com/Mulet-J/desktopeye/provider"
)

// CommandRunner runs an external engine. *process.Runner implements it.
type CommandRunner interface {
	Run(ctx context.Context, cmd process.Command) (*process.Result, error)
}

// EspeakSpeaker speaks through the espeak-ng binary. Loading checks the binary
// answers and that the configured voice is installed; text is passed on
// stdin and the WAV clip read from stdout.
type EspeakSpeaker struct {
	cfg    config.TTSConfig
	runner CommandRunner
	gate   provider.LoadGate

	mu      sync.Mutex
	version string
	voices  map[string]bool
}

// NewEspeakSpeaker creates an espeak-ng backend that runs through runner.
func NewEspeakSpeaker(cfg config.TTSConfig, runner CommandRunner) *EspeakSpeaker {
	return &EspeakSpeaker{cfg: cfg, runner: runner}
}

// Version returns the engine version after a successful load.
func (e *EspeakSpeaker) Version() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// LoadRequired checks the engine. modelHint, when set, names the voice to
// require instead of the configured one.
func (e *EspeakSpeaker) LoadRequired(ctx context.Context, modelHint string) (bool, error) {
	return e.gate.Load(ctx, func(ctx context.Context) (bool, error) {
		res, err := e.runner.Run(ctx, e.command(nil, "--version"))
		if err != nil {
			return false, err
		}
		version := parseEspeakVersion(res.Stdout)

		res, err = e.runner.Run(ctx, e.command(nil, "--voices"))
		if err != nil {
			return false, err
		}
		voices := parseVoices(res.Stdout)

		want := e.cfg.Voice
		if modelHint != "" {
			want = modelHint
		}
		if want != "" && !voices[strings.ToLower(want)] {
			return false, fmt.Errorf("espeak-ng voice %q is not installed", want)
		}

		e.mu.Lock()
		e.version = version
		e.voices = voices
		e.mu.Unlock()
		return true, nil
	})
}

func (e *EspeakSpeaker) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	if ok, err := e.LoadRequired(ctx, ""); !ok {
		return nil, loadError(Espeak, err)
	}
	if voice == "" {
		voice = e.cfg.Voice
	}

	args := []string{"--stdout", "--stdin"}
	if voice != "" {
		e.mu.Lock()
		known := e.voices[strings.ToLower(voice)]
		e.mu.Unlock()
		if !known {
			return nil, errors.InvalidInput("voice", fmt.Sprintf("espeak-ng voice %q is not installed", voice))
		}
		args = append([]string{"-v", voice}, args...)
	}

	res, err := e.runner.Run(ctx, e.command(strings.NewReader(text), args...))
	if err != nil {
		return nil, err
	}
	info, err := ParseWAV(res.Stdout)
	if err != nil {
		return nil, errors.OperationFailed(Espeak.String(), "synthesize", err)
	}
	return &Audio{
		Data:       res.Stdout,
		Format:     FormatWAV,
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
		Duration:   info.Duration(),
		Voice:      voice,
		Backend:    Espeak.String(),
	}, nil
}

func (e *EspeakSpeaker) command(stdin *strings.Reader, args ...string) process.Command {
	cmd := process.Command{Binary: e.cfg.Binary, Args: args}
	if stdin != nil {
		cmd.Stdin = stdin
	}
	return cmd
}

// parseEspeakVersion reads "eSpeak NG text-to-speech: 1.51  Data at: ...".
func parseEspeakVersion(out []byte) string {
	line, _, _ := strings.Cut(string(out), "\n")
	_, rest, ok := strings.Cut(line, "text-to-speech:")
	if !ok {
		return strings.TrimSpace(line)
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// parseVoices reads the --voices table. Both the language column and the
// voice name are accepted as voice names, lower-cased.
func parseVoices(out []byte) map[string]bool {
	voices := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		voices[strings.ToLower(fields[1])] = true
		voices[strings.ToLower(fields[3])] = true
	}
	return voices
}
