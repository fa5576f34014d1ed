package models

import (
	"encoding/json"
	"net/http"
)

// Problem represents an RFC7807 error response.
// This is used for all API error responses with Content-Type: application/problem+json.
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// Instance is a URI reference that identifies the specific occurrence.
	Instance string `json:"instance,omitempty"`

	// TraceID is the request trace identifier for debugging.
	TraceID string `json:"traceId"`

	// Errors contains structured field validation errors.
	Errors []FieldError `json:"errors,omitempty"`

	// Reason is the delivery refusal code (TOO_FAR, BELOW_MINIMUM).
	Reason string `json:"reason,omitempty"`
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ProblemType constants for standard error types.
const (
	ProblemTypeValidation           = "https://api.wokexpress.pl/problems/validation-error"
	ProblemTypeNotFound             = "https://api.wokexpress.pl/problems/not-found"
	ProblemTypeDeliveryNotAvailable = "https://api.wokexpress.pl/problems/delivery-not-available"
	ProblemTypeRouteNotFound        = "https://api.wokexpress.pl/problems/route-not-found"
	ProblemTypeTooManyRequests      = "https://api.wokexpress.pl/problems/too-many-requests"
	ProblemTypeInternal             = "https://api.wokexpress.pl/problems/internal-error"
	ProblemTypeUnavailable          = "https://api.wokexpress.pl/problems/service-unavailable"
	ProblemTypeUnsupportedMedia     = "https://api.wokexpress.pl/problems/unsupported-media-type"
	ProblemTypeTLSRequired          = "https://api.wokexpress.pl/problems/tls-required"
)

// NewProblem creates a new Problem with the given parameters.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// WithDetail adds a detail message to the Problem.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance adds the request instance URI to the Problem.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors adds field errors to the Problem.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write writes the Problem as JSON to the ResponseWriter.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-Id", p.TraceID)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 Bad Request problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := NewProblem(ProblemTypeValidation, "Validation error", http.StatusBadRequest, traceID)
	p.Detail = detail
	p.Errors = errors
	return p
}

// NewNotFound creates a 404 Not Found problem.
func NewNotFound(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeNotFound, "Not found", http.StatusNotFound, traceID)
	p.Detail = detail
	return p
}

// NewDeliveryNotAvailable creates a 422 problem for a refused delivery.
func NewDeliveryNotAvailable(traceID, reason, detail string) *Problem {
	p := NewProblem(ProblemTypeDeliveryNotAvailable, "Delivery not available", http.StatusUnprocessableEntity, traceID)
	p.Detail = detail
	p.Reason = reason
	return p
}

// NewRouteNotFound creates a 422 problem when no drivable route or address match exists.
func NewRouteNotFound(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeRouteNotFound, "Route not found", http.StatusUnprocessableEntity, traceID)
	p.Detail = detail
	return p
}

// NewTooManyRequests creates a 429 Too Many Requests problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, traceID)
	p.Detail = detail
	return p
}

// NewInternalError creates a 500 Internal Server Error problem.
func NewInternalError(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, traceID)
	p.Detail = detail
	return p
}

// NewServiceUnavailable creates a 503 Service Unavailable problem.
func NewServiceUnavailable(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable, traceID)
	p.Detail = detail
	return p
}
