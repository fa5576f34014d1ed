package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/wokexpress/storefront/internal/api/middleware"

// Tracing starts a server span per request, continuing any W3C trace
// context the storefront frontend sent. Once routing is done the span is
// renamed to "METHOD /route/{pattern}" so order ids and other path values
// do not end up in span names. A websocket session is one long span that
// ends when the socket closes.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	propagator := otel.GetTextMapPropagator()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("service.name", serviceName),
					attribute.String("http.request.method", r.Method),
					attribute.String("url.scheme", scheme(r)),
					attribute.String("url.path", r.URL.Path),
					attribute.String("server.address", r.Host),
					attribute.String("user_agent.original", r.UserAgent()),
					attribute.String("client.address", r.RemoteAddr),
				),
			)
			defer span.End()

			if requestID := GetRequestID(ctx); requestID != "" {
				span.SetAttributes(attribute.String("request.id", requestID))
			}

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			route := routePattern(r)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", rec.statusCode),
				attribute.Int64("http.response.body.size", rec.written),
			)
			if rec.statusCode == http.StatusSwitchingProtocols {
				span.SetAttributes(attribute.Bool("http.upgraded", true))
			}
			if rec.statusCode >= 500 {
				span.SetStatus(codes.Error, http.StatusText(rec.statusCode))
			}
		})
	}
}

// scheme returns the scheme the client used.
func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := forwardedProto(r); proto != "" {
		return proto
	}
	return "http"
}
