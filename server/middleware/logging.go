package middleware

import (
	"net/http"
	"time"

	"github.com/Mulet-J/desktopeye/logger"
)

// quietPaths are polled by the UI and not logged.
var quietPaths = map[string]bool{
	"/health":     true,
	"/ready":      true,
	"/api/status": true,
}

// RequestLogger logs every request with method, path, status and duration.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)
			duration := time.Since(start)

			fields := map[string]interface{}{
				"method":              r.Method,
				"path":                r.URL.Path,
				logger.FieldStatus:    rec.status,
				logger.FieldDuration:  duration.Milliseconds(),
				"bytes":               rec.written,
				logger.FieldRequestID: r.Header.Get(HeaderRequestID),
			}
			logByStatus(log, fields, rec.status)
		})
	}
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
