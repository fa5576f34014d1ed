package middleware

import (
	"mime"
	"net/http"
	"strings"

	"github.com/wokexpress/storefront/internal/api/models"
)

// ContentTypeJSON defaults the response Content-Type to application/json.
// Handlers that write problem documents override it.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects request bodies that are not JSON with 415. A missing
// Content-Type is accepted so curl and simple clients work; application/json
// and structured +json types are accepted, with any parameters.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if ct := r.Header.Get("Content-Type"); ct != "" && !isJSONMediaType(ct) {
				problem := models.NewProblem(
					models.ProblemTypeUnsupportedMedia,
					"Unsupported media type",
					http.StatusUnsupportedMediaType,
					GetRequestID(r.Context()),
				)
				problem.Detail = "request body must be application/json"
				problem.Instance = r.URL.Path
				problem.Write(w)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isJSONMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
