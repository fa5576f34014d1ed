package middleware

import (
	"net/http"
	"strings"

	"github.com/wokexpress/storefront/internal/api/models"
)

// SecurityHeaders adds the response headers every storefront API response
// carries. Quotes and orders hold customer data, so responses are never cached.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")
		h.Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects plain-HTTP requests forwarded by the load balancer.
// Requests without X-Forwarded-Proto (direct connections, local development)
// pass through. When enabled is false the middleware is a no-op.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if proto := forwardedProto(r); proto != "" && proto != "https" && proto != "wss" {
				models.NewProblem(
					models.ProblemTypeTLSRequired,
					"TLS required",
					http.StatusForbidden,
					GetRequestID(r.Context()),
				).
					WithDetail("This endpoint requires HTTPS").
					WithInstance(r.URL.Path).
					Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedProto returns the scheme the client used. Chained proxies append
// to the header; the first entry is the client-facing one.
func forwardedProto(r *http.Request) string {
	proto := r.Header.Get("X-Forwarded-Proto")
	if i := strings.IndexByte(proto, ','); i >= 0 {
		proto = proto[:i]
	}
	return strings.ToLower(strings.TrimSpace(proto))
}
