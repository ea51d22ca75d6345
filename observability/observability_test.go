package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tc := range tests {
		if got := sampler(tc.rate).Description(); got != tc.want {
			t.Errorf("rate %v: got %q, want %q", tc.rate, got, tc.want)
		}
	}
}

func TestNewMetrics_Noop(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	ctx := context.Background()
	metrics.RecordOperation(ctx, "ocr", "tesseract", StatusOK, 10*time.Millisecond)
	metrics.RecordSwitch(ctx, "ocr", "tesseract", "tesseract-cli", StatusOK)
	metrics.RecordLoad(ctx, "ocr", "tesseract", StatusError, time.Second)
	metrics.RecordDependents(ctx, 2)
	metrics.RecordGateWait(ctx, time.Millisecond)
	metrics.RecordRequest(ctx, "POST", "/api/ocr", 200, time.Millisecond)
	metrics.RecordError(ctx, "LOAD_FAILED", "ocr")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordOperation(ctx, "ocr", "tesseract", StatusOK, 0)
	m.RecordDependents(ctx, 1)
	m.RecordError(ctx, "X", "y")
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestMetrics_RecordsToSDK(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	ctx := context.Background()
	m.RecordOperation(ctx, "translate", "glossary", StatusOK, 5*time.Millisecond)
	m.RecordOperation(ctx, "translate", "glossary", StatusOK, 5*time.Millisecond)
	m.RecordDependents(ctx, 2)
	m.RecordDependents(ctx, 1)

	got := collect(t, reader)

	ops, ok := got["orchestrator.operation.total"]
	if !ok {
		t.Fatal("missing orchestrator.operation.total")
	}
	sum, ok := ops.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 2 {
		t.Errorf("expected one data point with value 2, got %+v", ops.Data)
	}

	deps, ok := got["runtime.dependents"]
	if !ok {
		t.Fatal("missing runtime.dependents")
	}
	gauge, ok := deps.Data.(metricdata.Gauge[int64])
	if !ok || len(gauge.DataPoints) != 1 || gauge.DataPoints[0].Value != 1 {
		t.Errorf("expected last gauge value 1, got %+v", deps.Data)
	}
}

func TestSetSpanError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), SpanExecute)
	SetSpanError(ctx, fmt.Errorf("backend failed"))
	SetSpanAttribute(ctx, AttrCapability, "ocr")
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status.Code)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected recorded error event")
	}
}

func TestSetup_Disabled(t *testing.T) {
	tel, err := Setup(context.Background(), Config{ServiceName: "desktopeye"})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if tel.Metrics == nil {
		t.Fatal("expected instruments even when export is disabled")
	}
	if tel.Exporting() {
		t.Error("expected no export")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
