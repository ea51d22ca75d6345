package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Mulet-J/desktopeye/logger"
)

// Config selects whether telemetry is exported and where to.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Insecure       bool
	Interval       time.Duration
	SampleRate     float64
}

// Telemetry owns the providers created by Setup and the shared instruments.
type Telemetry struct {
	Metrics *Metrics

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Setup creates the instruments and, when enabled, the OTLP exporters.
// With export disabled the instruments bind to the global (no-op) provider.
func Setup(ctx context.Context, cfg Config) (*Telemetry, error) {
	t := &Telemetry{}
	if cfg.Enabled {
		res, err := newResource(cfg)
		if err != nil {
			return nil, fmt.Errorf("creating resource: %w", err)
		}
		if t.tp, err = newTracerProvider(ctx, cfg, res); err != nil {
			return nil, err
		}
		if t.mp, err = newMeterProvider(ctx, cfg, res); err != nil {
			_ = t.tp.Shutdown(ctx)
			return nil, err
		}
		logger.Info("telemetry export enabled", logger.Fields(
			"endpoint", cfg.Endpoint,
			"sample_rate", cfg.SampleRate,
			"interval", cfg.Interval.String(),
		))
	}

	m, err := NewMetrics(otel.Meter(cfg.ServiceName))
	if err != nil {
		return nil, err
	}
	t.Metrics = m
	return t, nil
}

// Exporting reports whether OTLP export is active.
func (t *Telemetry) Exporting() bool {
	return t != nil && t.tp != nil
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	if t.mp != nil {
		errs = append(errs, t.mp.Shutdown(ctx))
	}
	if t.tp != nil {
		errs = append(errs, t.tp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
