package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// responseWriter captures the status code and body size for logging,
// tracing and metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Logger writes one access log line per request. Server errors log at
// error level, client errors at warn, and ops probes at debug so platform
// health checks do not flood the log. Weather lookups carry the searched
// city or coordinates.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			event := accessEvent(log, r.URL.Path, wrapped.statusCode)
			if !event.Enabled() {
				return
			}

			spanCtx := trace.SpanContextFromContext(r.Context())
			traceID, spanID := "", ""
			if spanCtx.IsValid() {
				traceID = spanCtx.TraceID().String()
				spanID = spanCtx.SpanID().String()
			}

			event.
				Str("request_id", GetRequestID(r.Context())).
				Str("trace_id", traceID).
				Str("span_id", spanID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Int("status", wrapped.statusCode).
				Int64("bytes", wrapped.written).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent())

			if strings.HasPrefix(r.URL.Path, "/v1/weather") {
				q := r.URL.Query()
				if city := q.Get("city"); city != "" {
					event.Str("city", city)
				}
				if lat, lon := q.Get("lat"), q.Get("lon"); lat != "" || lon != "" {
					event.Str("lat", lat).Str("lon", lon)
				}
			}

			event.Msg("request completed")
		})
	}
}

func accessEvent(log zerolog.Logger, path string, status int) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return log.Error()
	case status >= http.StatusBadRequest:
		return log.Warn()
	case strings.HasPrefix(path, "/v1/ops/"):
		return log.Debug()
	default:
		return log.Info()
	}
}
