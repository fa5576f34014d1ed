package response_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wokexpress/storefront/internal/api/middleware"
	"github.com/wokexpress/storefront/internal/api/models"
	"github.com/wokexpress/storefront/internal/api/response"
)

// requestWithContext creates an HTTP request that has been processed by the RequestID middleware
// to populate the context with a request ID.
func requestWithContext(t *testing.T, method, path string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, path, http.NoBody)
	rec := httptest.NewRecorder()

	// Process through RequestID middleware to set up context
	var processedReq *http.Request
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		processedReq = r
	}))
	handler.ServeHTTP(rec, req)

	// Reset the recorder for actual test use
	rec = httptest.NewRecorder()

	return processedReq, rec
}

func TestJSON_IncludesRequestID(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/test")

	response.JSON(rec, req, http.StatusOK, map[string]string{"message": "hello"})

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	requestID := rec.Header().Get("X-Request-Id")
	if requestID == "" {
		t.Error("expected X-Request-Id header to be set")
	}
	if len(requestID) < 10 {
		t.Errorf("expected request ID to be a valid ID, got %q", requestID)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", contentType)
	}
}

func TestJSON_WithoutRequestID(t *testing.T) {
	// Create request without middleware (no request ID in context)
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"message": "hello"})

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	// Should not have X-Request-Id if context doesn't have it
	requestID := rec.Header().Get("X-Request-Id")
	if requestID != "" {
		t.Errorf("expected no X-Request-Id header when not in context, got %q", requestID)
	}
}

func TestCreated_IncludesRequestIDAndLocation(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodPost, "/test")

	response.Created(rec, req, "/v1/items/123", map[string]string{"id": "123"})

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}

	requestID := rec.Header().Get("X-Request-Id")
	if requestID == "" {
		t.Error("expected X-Request-Id header to be set")
	}

	location := rec.Header().Get("Location")
	if location != "/v1/items/123" {
		t.Errorf("expected Location /v1/items/123, got %q", location)
	}
}

func TestBadRequest_IncludesTraceID(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodPost, "/v1/test")

	fieldErrors := []models.FieldError{
		{Field: "name", Message: "is required"},
	}
	response.BadRequest(rec, req, "validation failed", fieldErrors)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}

	var problem models.Problem
	if err := json.NewDecoder(rec.Body).Decode(&problem); err != nil {
		t.Fatalf("failed to decode Problem response: %v", err)
	}

	if problem.TraceID == "" {
		t.Error("expected traceId to be set in Problem response")
	}
	if problem.Instance != "/v1/test" {
		t.Errorf("expected instance /v1/test, got %q", problem.Instance)
	}
}

func TestNotFound_ReturnsCorrectProblem(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/v1/items/missing")

	response.NotFound(rec, req, "item not found")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}

	var problem models.Problem
	if err := json.NewDecoder(rec.Body).Decode(&problem); err != nil {
		t.Fatalf("failed to decode Problem response: %v", err)
	}

	if problem.Status != http.StatusNotFound {
		t.Errorf("expected problem status 404, got %d", problem.Status)
	}
}

func TestDeliveryNotAvailable_ReturnsReason(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodPost, "/v1/orders")

	response.DeliveryNotAvailable(rec, req, "BELOW_MINIMUM", "minimum order is 30.00 zł")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", rec.Code)
	}

	var problem models.Problem
	if err := json.NewDecoder(rec.Body).Decode(&problem); err != nil {
		t.Fatalf("failed to decode Problem response: %v", err)
	}

	if problem.Reason != "BELOW_MINIMUM" {
		t.Errorf("expected reason BELOW_MINIMUM, got %q", problem.Reason)
	}
	if problem.Instance != "/v1/orders" {
		t.Errorf("expected instance /v1/orders, got %q", problem.Instance)
	}
}

func TestRouteNotFound_ReturnsCorrectProblem(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodPost, "/v1/delivery/resolve")

	response.RouteNotFound(rec, req, "address not found")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", rec.Code)
	}
}

func TestInternalError_ReturnsCorrectProblem(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/v1/test")

	response.InternalError(rec, req, "something went wrong")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}

	var problem models.Problem
	if err := json.NewDecoder(rec.Body).Decode(&problem); err != nil {
		t.Fatalf("failed to decode Problem response: %v", err)
	}

	if problem.Status != http.StatusInternalServerError {
		t.Errorf("expected problem status 500, got %d", problem.Status)
	}
}

func TestServiceUnavailable_ReturnsCorrectProblem(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/v1/test")

	response.ServiceUnavailable(rec, req, "service temporarily unavailable", 30)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Errorf("expected Retry-After 30, got %q", got)
	}

	var problem models.Problem
	if err := json.NewDecoder(rec.Body).Decode(&problem); err != nil {
		t.Fatalf("failed to decode Problem response: %v", err)
	}

	if problem.Status != http.StatusServiceUnavailable {
		t.Errorf("expected problem status 503, got %d", problem.Status)
	}
}

func TestJSON_NilData(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/test")

	response.JSON(rec, req, http.StatusOK, nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	// Body should be empty when data is nil
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got %q", rec.Body.String())
	}
}

func TestRequestIDPropagation(t *testing.T) {
	// Test that incoming X-Request-Id header is preserved
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("X-Request-Id", "client-request-123")
	rec := httptest.NewRecorder()

	// Process through RequestID middleware
	var processedReq *http.Request
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		processedReq = r
	}))
	handler.ServeHTTP(rec, req)

	// Verify the client's request ID was preserved in context
	requestID := middleware.GetRequestID(processedReq.Context())
	if requestID != "client-request-123" {
		t.Errorf("expected client request ID to be preserved, got %q", requestID)
	}

	// Now use the response functions with the processed request
	rec = httptest.NewRecorder()
	response.JSON(rec, processedReq, http.StatusOK, map[string]string{"status": "ok"})

	// Verify the response contains the client's request ID
	respRequestID := rec.Header().Get("X-Request-Id")
	if respRequestID != "client-request-123" {
		t.Errorf("expected response X-Request-Id to match client's, got %q", respRequestID)
	}
}

// Verify context.Background() returns empty request ID.
func TestGetRequestID_EmptyContext(t *testing.T) {
	requestID := middleware.GetRequestID(context.Background())
	if requestID != "" {
		t.Errorf("expected empty request ID for background context, got %q", requestID)
	}
}
