package openrouteservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/routing"
)

var (
	restaurant = routing.Coordinate{Lat: 52.2297, Lng: 21.0122}
	customer   = routing.Coordinate{Lat: 52.2551, Lng: 21.0352}
)

const directionsFixture = `{
  "routes": [
    {
      "summary": {"distance": 4012.7, "duration": 545.2},
      "geometry": "sbx}Hg}f_Ck_Awo@k}A_~A",
      "way_points": [0, 2]
    }
  ],
  "metadata": {"service": "routing"}
}`

// mockHTTPClient wraps http.Client to implement HTTPDoer interface.
type mockHTTPClient struct {
	client *http.Client
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.client.Do(req)
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient(ClientConfig{
		APIKey:     "mock123",
		BaseURL:    server.URL,
		HTTPClient: &mockHTTPClient{client: server.Client()},
		Logger:     zerolog.Nop(),
	})
}

func TestClient_Route_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v2/directions/driving-car" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "mock123" {
			t.Errorf("expected Authorization header 'mock123', got '%s'", r.Header.Get("Authorization"))
		}

		var body directionsRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		if len(body.Coordinates) != 2 || body.Coordinates[0][0] != restaurant.Lng || body.Coordinates[0][1] != restaurant.Lat {
			t.Errorf("expected [lng, lat] coordinates, got %v", body.Coordinates)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(directionsFixture))
	}))
	defer server.Close()

	route, err := newTestClient(server).Route(context.Background(), restaurant, customer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if route.DistanceMeters != 4012.7 {
		t.Errorf("expected distance 4012.7, got %v", route.DistanceMeters)
	}
	if route.DurationSeconds != 545.2 {
		t.Errorf("expected duration 545.2, got %v", route.DurationSeconds)
	}
	if len(route.Path) != 3 {
		t.Fatalf("expected 3 path points, got %d", len(route.Path))
	}
	if route.Path[2] != (routing.Coordinate{Lat: 52.2551, Lng: 21.0352}) {
		t.Errorf("unexpected last point %+v", route.Path[2])
	}
	if route.Provider != ProviderName || route.Origin != restaurant || route.Destination != customer {
		t.Errorf("unexpected route metadata %+v", route)
	}
}

func TestClient_Route_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  error
		wantCode string
	}{
		{"route not found", http.StatusNotFound, `{"error":{"code":2009,"message":"Route could not be found"}}`, routing.ErrNoRouteFound, "NO_ROUTE"},
		{"point not routable", http.StatusBadRequest, `{"error":{"code":2010,"message":"Could not find routable point"}}`, routing.ErrNoRouteFound, "NO_ROUTE"},
		{"bad request", http.StatusBadRequest, `{"error":{"code":2003,"message":"Parameter 'coordinates' has incorrect value"}}`, routing.ErrInvalidCoordinates, "BAD_REQUEST"},
		{"rate limited", http.StatusTooManyRequests, `{"error":"Rate limit exceeded"}`, routing.ErrRateLimitExceeded, "RATE_LIMIT"},
		{"forbidden", http.StatusForbidden, `{"error":{"message":"Access denied"}}`, routing.ErrProviderUnavailable, "FORBIDDEN"},
		{"server error", http.StatusBadGateway, `not json`, routing.ErrProviderUnavailable, "SERVER_502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server).Route(context.Background(), restaurant, customer)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var routingErr *routing.Error
			if !errors.As(err, &routingErr) {
				t.Fatalf("expected *routing.Error, got %T", err)
			}
			if routingErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, routingErr.Code)
			}
			if routingErr.Provider != ProviderName {
				t.Errorf("expected provider %s, got %s", ProviderName, routingErr.Provider)
			}
		})
	}
}

func TestClient_Route_EmptyRoutes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"routes":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).Route(context.Background(), restaurant, customer)
	if !errors.Is(err, routing.ErrNoRouteFound) {
		t.Errorf("expected ErrNoRouteFound, got %v", err)
	}
}

func TestClient_Route_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	client := newTestClient(server)
	server.Close()

	_, err := client.Route(context.Background(), restaurant, customer)
	if !errors.Is(err, routing.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestClient_Route_InvalidCoordinates(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "mock123", Logger: zerolog.Nop()})

	_, err := client.Route(context.Background(), routing.Coordinate{Lat: 95, Lng: 0}, customer)
	if !errors.Is(err, routing.ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestClient_Geocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geocode/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("text"); got != "Marszałkowska 10, Warszawa" {
			t.Errorf("expected normalised address, got %q", got)
		}
		if got := r.URL.Query().Get("boundary.country"); got != "PL" {
			t.Errorf("expected country PL, got %q", got)
		}
		_, _ = w.Write([]byte(`{
		  "type": "FeatureCollection",
		  "features": [{
		    "geometry": {"type": "Point", "coordinates": [21.0158, 52.2226]},
		    "properties": {"label": "Marszałkowska 10, Warszawa, Poland", "confidence": 0.9}
		  }]
		}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		APIKey:         "mock123",
		BaseURL:        server.URL,
		HTTPClient:     &mockHTTPClient{client: server.Client()},
		GeocodeCountry: "PL",
		Logger:         zerolog.Nop(),
	})

	coord, err := client.Geocode(context.Background(), "  Marszałkowska 10,   Warszawa ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coord != (routing.Coordinate{Lat: 52.2226, Lng: 21.0158}) {
		t.Errorf("unexpected coordinate %+v", coord)
	}
}

func TestClient_Geocode_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).Geocode(context.Background(), "Nowhere 0")
	if !errors.Is(err, routing.ErrAddressNotFound) {
		t.Errorf("expected ErrAddressNotFound, got %v", err)
	}
}

func TestClient_Geocode_EmptyAddress(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "mock123", Logger: zerolog.Nop()})

	_, err := client.Geocode(context.Background(), "   ")
	if !errors.Is(err, routing.ErrAddressNotFound) {
		t.Errorf("expected ErrAddressNotFound, got %v", err)
	}
}

func TestClient_Name(t *testing.T) {
	if got := NewClient(ClientConfig{}).Name(); got != ProviderName {
		t.Errorf("expected %s, got %s", ProviderName, got)
	}
}
