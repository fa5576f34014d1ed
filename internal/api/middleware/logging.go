package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger returns a middleware that logs HTTP requests.
// A request-scoped logger carrying the request id is stored in the context
// for handlers (see zerolog.Ctx).
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newStatusRecorder(w)
			requestID := GetRequestID(r.Context())

			reqLog := log.With().Str("request_id", requestID).Logger()
			r = r.WithContext(reqLog.WithContext(r.Context()))

			// Process request
			next.ServeHTTP(wrapped, r)

			// Extract trace ID from span context
			spanCtx := trace.SpanContextFromContext(r.Context())
			traceID := ""
			spanID := ""
			if spanCtx.IsValid() {
				traceID = spanCtx.TraceID().String()
				spanID = spanCtx.SpanID().String()
			}

			event := log.Info()
			if wrapped.statusCode >= http.StatusInternalServerError {
				event = log.Error()
			}

			event.
				Str("request_id", requestID).
				Str("trace_id", traceID).
				Str("span_id", spanID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Int64("bytes", wrapped.written).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("request completed")
		})
	}
}
