package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Mulet-J/desktopeye/observability"
)

// Telemetry opens an http.request span per request and records request
// counts and latency on m. RequestID must run first for the span to carry
// the request ID.
func Telemetry(m *observability.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := observability.StartSpan(r.Context(), observability.SpanHTTPRequest)
			defer span.End()
			observability.SetSpanAttribute(ctx, "http.method", r.Method)
			observability.SetSpanAttribute(ctx, "http.path", r.URL.Path)
			if id := r.Header.Get(HeaderRequestID); id != "" {
				observability.SetSpanAttribute(ctx, observability.AttrRequestID, id)
			}

			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			observability.SetSpanAttribute(ctx, "http.status_code", rec.status)
			if rec.status >= http.StatusInternalServerError {
				observability.SetSpanError(ctx, fmt.Errorf("%s %s: status %d", r.Method, r.URL.Path, rec.status))
			}
			m.RecordRequest(ctx, r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}
