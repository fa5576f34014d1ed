// Package openrouteservice provides a routing.Provider and routing.Geocoder
// backed by the OpenRouteService driving-car directions and Pelias geocoding APIs.
package openrouteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/provider/resilience"
	"github.com/wokexpress/storefront/internal/routing"
	"github.com/wokexpress/storefront/pkg/polyline"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "openrouteservice"

	// DefaultBaseURL is the OpenRouteService API base URL.
	DefaultBaseURL = "https://api.openrouteservice.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	profileDrivingCar = "driving-car"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenRouteService client.
type ClientConfig struct {
	// APIKey is the ORS API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to ORS API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// GeocodeCountry restricts address lookups to an ISO 3166 country (optional).
	GeocodeCountry string

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenRouteService API client.
type Client struct {
	apiKey         string
	baseURL        string
	geocodeCountry string
	httpClient     HTTPDoer
	logger         zerolog.Logger
}

// NewClient creates a new OpenRouteService client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:         cfg.APIKey,
		baseURL:        baseURL,
		geocodeCountry: cfg.GeocodeCountry,
		httpClient:     httpClient,
		logger:         cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Route retrieves a driving route between two points.
func (c *Client) Route(ctx context.Context, origin, destination routing.Coordinate) (*routing.Route, error) {
	if !origin.Valid() || !destination.Valid() {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_COORDINATES",
			Message:  "invalid route endpoints",
			Err:      routing.ErrInvalidCoordinates,
		}
	}

	body, err := json.Marshal(directionsRequest{
		// ORS uses [lng, lat] order (GeoJSON)
		Coordinates: [][]float64{
			{origin.Lng, origin.Lat},
			{destination.Lng, destination.Lat},
		},
		Geometry: true,
		Units:    "m",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/directions/%s", c.baseURL, profileDrivingCar)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Float64("origin_lat", origin.Lat).
		Float64("origin_lng", origin.Lng).
		Float64("dest_lat", destination.Lat).
		Float64("dest_lng", destination.Lng).
		Msg("requesting directions from ORS")

	respBody, status, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, c.handleErrorResponse(status, respBody)
	}

	var orsResp directionsResponse
	if err := json.Unmarshal(respBody, &orsResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(orsResp.Routes) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "provider returned no routes",
			Err:      routing.ErrNoRouteFound,
		}
	}

	best := orsResp.Routes[0]
	path, err := polyline.Decode(best.Geometry)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_GEOMETRY",
			Message:  "route geometry could not be decoded",
			Err:      err,
		}
	}

	route := &routing.Route{
		Origin:          origin,
		Destination:     destination,
		Path:            toCoordinates(path),
		DistanceMeters:  best.Summary.Distance,
		DurationSeconds: best.Summary.Duration,
		Provider:        ProviderName,
	}

	c.logger.Debug().
		Float64("distance_m", route.DistanceMeters).
		Float64("duration_s", route.DurationSeconds).
		Int("path_points", len(route.Path)).
		Msg("received directions from ORS")

	return route, nil
}

// do executes the request and reads the whole body.
func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, 0, err
		}
		return nil, 0, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// handleErrorResponse maps ORS error responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var orsErr orsErrorResponse
	_ = json.Unmarshal(body, &orsErr)

	message := orsErr.Error.Message
	if message == "" {
		message = fmt.Sprintf("routing provider returned status %d", statusCode)
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check API key configuration",
			Err:      routing.ErrProviderUnavailable,
		}
	case statusCode == http.StatusNotFound,
		orsErr.Error.Code == orsErrorCodeRouteNotFound,
		orsErr.Error.Code == orsErrorCodePointNotFound:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  message,
			Err:      routing.ErrNoRouteFound,
		}
	case statusCode == http.StatusBadRequest:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  message,
			Err:      routing.ErrInvalidCoordinates,
		}
	case statusCode >= 500:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "routing provider is temporarily unavailable",
			Err:      routing.ErrProviderUnavailable,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  message,
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

func toCoordinates(points []polyline.Coordinate) []routing.Coordinate {
	out := make([]routing.Coordinate, len(points))
	for i, p := range points {
		out[i] = routing.Coordinate{Lat: p.Lat, Lng: p.Lng}
	}
	return out
}
