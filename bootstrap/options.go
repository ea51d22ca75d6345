package bootstrap

import (
	"io"
	"net/http"
	"time"

	"github.com/Mulet-J/desktopeye/logger"
	"github.com/Mulet-J/desktopeye/ocr"
	"github.com/Mulet-J/desktopeye/provider"
	"github.com/Mulet-J/desktopeye/tts"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	reporter        provider.Reporter
	gracefulTimeout *time.Duration
	ocrRunner       ocr.CommandRunner
	ttsRunner       tts.CommandRunner
	httpClient      *http.Client
	noBackground    bool
	banner          io.Writer
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the application logger. Without it the logger is
// initialized from the logging section of the config.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithReporter adds an error reporter next to the metrics reporter.
func WithReporter(r provider.Reporter) Option {
	return func(o *appOptions) {
		o.reporter = r
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithOCRRunner replaces the tesseract subprocess runner.
func WithOCRRunner(r ocr.CommandRunner) Option {
	return func(o *appOptions) {
		o.ocrRunner = r
	}
}

// WithTTSRunner replaces the espeak-ng subprocess runner.
func WithTTSRunner(r tts.CommandRunner) Option {
	return func(o *appOptions) {
		o.ttsRunner = r
	}
}

// WithHTTPClient sets the client used by the LLM translator.
func WithHTTPClient(c *http.Client) Option {
	return func(o *appOptions) {
		o.httpClient = c
	}
}

// WithoutBackgroundLoad keeps default backends unloaded until first use or
// Preload.
func WithoutBackgroundLoad() Option {
	return func(o *appOptions) {
		o.noBackground = true
	}
}

// WithBanner prints the startup summary to w once the application is ready.
func WithBanner(w io.Writer) Option {
	return func(o *appOptions) {
		o.banner = w
	}
}
