package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// newMeterProvider exports metrics over OTLP/HTTP every cfg.Interval and
// installs the provider globally.
func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Status values used on metric attributes.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds the instruments for orchestrators, backend loads, the
// embedded runtime and the local API. A nil *Metrics records nothing.
type Metrics struct {
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	switchTotal       metric.Int64Counter
	loadTotal         metric.Int64Counter
	loadDuration      metric.Float64Histogram
	runtimeDependents metric.Int64Gauge
	runtimeGateWait   metric.Float64Histogram
	requestTotal      metric.Int64Counter
	requestDuration   metric.Float64Histogram
	errorTotal        metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.operationTotal, err = meter.Int64Counter("orchestrator.operation.total",
		metric.WithDescription("Operations executed against the active backend"),
	); err != nil {
		return nil, fmt.Errorf("creating orchestrator.operation.total counter: %w", err)
	}
	if m.operationDuration, err = meter.Float64Histogram("orchestrator.operation.duration",
		metric.WithDescription("Duration of backend operations in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating orchestrator.operation.duration histogram: %w", err)
	}
	if m.switchTotal, err = meter.Int64Counter("orchestrator.switch.total",
		metric.WithDescription("Backend switches by capability and target kind"),
	); err != nil {
		return nil, fmt.Errorf("creating orchestrator.switch.total counter: %w", err)
	}
	if m.loadTotal, err = meter.Int64Counter("backend.load.total",
		metric.WithDescription("Backend load attempts"),
	); err != nil {
		return nil, fmt.Errorf("creating backend.load.total counter: %w", err)
	}
	if m.loadDuration, err = meter.Float64Histogram("backend.load.duration",
		metric.WithDescription("Duration of backend loads in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating backend.load.duration histogram: %w", err)
	}
	if m.runtimeDependents, err = meter.Int64Gauge("runtime.dependents",
		metric.WithDescription("Callers currently keeping the embedded runtime alive"),
	); err != nil {
		return nil, fmt.Errorf("creating runtime.dependents gauge: %w", err)
	}
	if m.runtimeGateWait, err = meter.Float64Histogram("runtime.gate.wait",
		metric.WithDescription("Time spent waiting for the runtime gate in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating runtime.gate.wait histogram: %w", err)
	}
	if m.requestTotal, err = meter.Int64Counter("http.request.total",
		metric.WithDescription("Local API requests"),
	); err != nil {
		return nil, fmt.Errorf("creating http.request.total counter: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("http.request.duration",
		metric.WithDescription("Duration of local API requests in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating http.request.duration histogram: %w", err)
	}
	if m.errorTotal, err = meter.Int64Counter("error.total",
		metric.WithDescription("Reported errors by code and component"),
	); err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}
	return &m, nil
}

// RecordOperation records one gated operation against a backend.
func (m *Metrics) RecordOperation(ctx context.Context, capability, backend, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrCapability, capability),
		attribute.String(AttrBackend, backend),
		attribute.String(AttrStatus, status),
	))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrCapability, capability),
		attribute.String(AttrBackend, backend),
	))
}

// RecordSwitch records a backend switch.
func (m *Metrics) RecordSwitch(ctx context.Context, capability, from, to, status string) {
	if m == nil {
		return
	}
	m.switchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrCapability, capability),
		attribute.String("from", from),
		attribute.String("to", to),
		attribute.String(AttrStatus, status),
	))
}

// RecordLoad records a backend load attempt.
func (m *Metrics) RecordLoad(ctx context.Context, capability, backend, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrCapability, capability),
		attribute.String(AttrBackend, backend),
		attribute.String(AttrStatus, status),
	)
	m.loadTotal.Add(ctx, 1, attrs)
	m.loadDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordDependents records the current size of the runtime dependent set.
func (m *Metrics) RecordDependents(ctx context.Context, count int) {
	if m == nil {
		return
	}
	m.runtimeDependents.Record(ctx, int64(count))
}

// RecordGateWait records how long a caller waited for the runtime gate.
func (m *Metrics) RecordGateWait(ctx context.Context, wait time.Duration) {
	if m == nil {
		return
	}
	m.runtimeGateWait.Record(ctx, wait.Seconds())
}

// RecordRequest records a completed local API request.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
