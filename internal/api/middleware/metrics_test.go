package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/wokexpress/storefront/internal/api/middleware"
)

func TestNewMetrics(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)
	assert.NotNil(t, metrics)
}

func TestMetrics_Middleware_Success(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/test/path", http.NoBody)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestMetrics_Middleware_Error(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("error"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/resource", http.NoBody)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetrics_Middleware_BadRequest(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "bad request"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/resource", http.NoBody)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetrics_Middleware_DefaultStatusCode(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Don't explicitly call WriteHeader - should default to 200
		_, _ = w.Write([]byte("response"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetrics_Middleware_UsesRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/v1/orders/{orderId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"ord_1", "ord_2"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/orders/"+id, http.NoBody)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total *metricdata.Sum[int64]
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "http.server.request.total" {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				total = &sum
			}
		}
	}
	require.NotNil(t, total)
	require.Len(t, total.DataPoints, 1)

	dp := total.DataPoints[0]
	assert.Equal(t, int64(2), dp.Value)
	route, ok := dp.Attributes.Value(attribute.Key("http.route"))
	require.True(t, ok)
	assert.Equal(t, "/v1/orders/{orderId}", route.AsString())
	status, _ := dp.Attributes.Value(attribute.Key("http.status_code"))
	assert.Equal(t, "404", status.AsString())
}
