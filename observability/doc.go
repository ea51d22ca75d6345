// Package observability wires OpenTelemetry tracing and metrics.
//
// Export is optional. Setup always returns usable instruments; with export
// disabled they bind to the global no-op provider:
//
//	tel, err := observability.Setup(ctx, observability.Config{ServiceName: "desktopeye"})
//	defer tel.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanExecute)
//	defer span.End()
//	tel.Metrics.RecordOperation(ctx, "ocr", "tesseract", observability.StatusOK, elapsed)
package observability
