package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/api/models"
)

// Recovery turns a handler panic into a 500 problem response. Panics after
// the response has started, including inside an upgraded live session, are
// logged and the connection is left to the server to close.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				logger := zerolog.Ctx(r.Context())
				if logger.GetLevel() == zerolog.Disabled {
					logger = &log
				}
				requestID := GetRequestID(r.Context())
				logger.Error().
					Str("request_id", requestID).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Interface("panic", v).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				if rec.wroteHeader {
					return
				}
				models.NewInternalError(requestID, "an unexpected error occurred").
					WithInstance(r.URL.Path).
					Write(rec)
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
