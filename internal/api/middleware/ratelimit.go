package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/api/models"
)

// RateLimitConfig is one rate limit class. Each class keeps its own counters,
// so spending the order budget does not block quotes.
type RateLimitConfig struct {
	// Name labels the class in problem details and logs.
	Name string
	// RequestLimit is the number of requests allowed per window and client IP.
	RequestLimit int
	// WindowLength is the sliding window length.
	WindowLength time.Duration
}

// Rate limit classes used by the API router.
var (
	// OrderRateLimit applies to order placement.
	OrderRateLimit = RateLimitConfig{Name: "order placement", RequestLimit: 10, WindowLength: time.Minute}

	// ExpensiveRateLimit applies to endpoints that call the routing provider.
	ExpensiveRateLimit = RateLimitConfig{Name: "route lookups", RequestLimit: 30, WindowLength: time.Minute}

	// StandardRateLimit applies to pure policy endpoints.
	StandardRateLimit = RateLimitConfig{Name: "delivery quotes", RequestLimit: 100, WindowLength: time.Minute}
)

// RateLimitByIP limits requests per client IP. Run it after chi's RealIP
// so requests forwarded by the load balancer are keyed by the customer.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(cfg.exceeded),
	)
}

// RetryAfterSeconds is the Retry-After value sent with a 429, the window
// rounded up to whole seconds. httprate does not expose the reset time.
func (c RateLimitConfig) RetryAfterSeconds() int {
	return int(math.Ceil(c.WindowLength.Seconds()))
}

func (c RateLimitConfig) exceeded(w http.ResponseWriter, r *http.Request) {
	traceID := GetRequestID(r.Context())

	zerolog.Ctx(r.Context()).Warn().
		Str("limit", c.Name).
		Int("request_limit", c.RequestLimit).
		Msg("rate limit exceeded")

	detail := fmt.Sprintf("Rate limit exceeded: %s is limited to %d requests per %s. Please try again later.",
		c.Name, c.RequestLimit, c.WindowLength)
	w.Header().Set("Retry-After", strconv.Itoa(c.RetryAfterSeconds()))
	models.NewTooManyRequests(traceID, detail).
		WithInstance(r.URL.Path).
		Write(w)
}
