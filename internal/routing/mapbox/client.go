// Package mapbox provides a routing.Provider backed by the Mapbox Directions API.
package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/provider/resilience"
	"github.com/wokexpress/storefront/internal/routing"
	"github.com/wokexpress/storefront/pkg/polyline"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "mapbox"

	// DefaultBaseURL is the Mapbox API base URL.
	DefaultBaseURL = "https://api.mapbox.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Mapbox client.
type ClientConfig struct {
	// AccessToken is the Mapbox access token (required).
	AccessToken string

	// BaseURL overrides the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional, defaults to a resilient client).
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Mapbox Directions API client.
type Client struct {
	accessToken string
	baseURL     string
	httpClient  HTTPDoer
	logger      zerolog.Logger
}

// NewClient creates a new Mapbox client.
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
		accessToken: cfg.AccessToken,
		baseURL:     baseURL,
		httpClient:  httpClient,
		logger:      cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type directionsResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"` // metres
		Duration float64 `json:"duration"` // seconds
		Geometry string  `json:"geometry"` // polyline6
	} `json:"routes"`
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

	q := url.Values{}
	q.Set("geometries", "polyline6")
	q.Set("overview", "full")
	q.Set("access_token", c.accessToken)
	endpoint := fmt.Sprintf("%s/directions/v5/mapbox/driving/%f,%f;%f,%f?%s",
		c.baseURL, origin.Lng, origin.Lat, destination.Lng, destination.Lat, q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug().
		Float64("dest_lat", destination.Lat).
		Float64("dest_lng", destination.Lng).
		Msg("requesting directions from Mapbox")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var decoded directionsResponse
	if jsonErr := json.Unmarshal(body, &decoded); jsonErr != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("decoding response: %w", jsonErr)
	}

	if resp.StatusCode != http.StatusOK || decoded.Code != "Ok" {
		return nil, mapError(resp.StatusCode, decoded.Code, decoded.Message)
	}
	if len(decoded.Routes) == 0 {
		return nil, mapError(resp.StatusCode, "NoRoute", "provider returned no routes")
	}

	best := decoded.Routes[0]
	path, err := polyline.DecodePrecision(best.Geometry, polyline.Precision6)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_GEOMETRY",
			Message:  "route geometry could not be decoded",
			Err:      err,
		}
	}

	coords := make([]routing.Coordinate, len(path))
	for i, p := range path {
		coords[i] = routing.Coordinate{Lat: p.Lat, Lng: p.Lng}
	}

	return &routing.Route{
		Origin:          origin,
		Destination:     destination,
		Path:            coords,
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
		Provider:        ProviderName,
	}, nil
}

// mapError maps Mapbox status codes and response codes to domain errors.
func mapError(statusCode int, code, message string) error {
	if message == "" {
		message = fmt.Sprintf("routing provider returned status %d", statusCode)
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return &routing.Error{Provider: ProviderName, Code: "RATE_LIMIT", Message: message, Err: routing.ErrRateLimitExceeded}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &routing.Error{Provider: ProviderName, Code: "FORBIDDEN", Message: "API access denied - check access token", Err: routing.ErrProviderUnavailable}
	case code == "NoRoute" || code == "NoSegment":
		return &routing.Error{Provider: ProviderName, Code: "NO_ROUTE", Message: message, Err: routing.ErrNoRouteFound}
	case code == "InvalidInput" || statusCode == http.StatusUnprocessableEntity:
		return &routing.Error{Provider: ProviderName, Code: "BAD_REQUEST", Message: message, Err: routing.ErrInvalidCoordinates}
	case statusCode >= 500:
		return &routing.Error{Provider: ProviderName, Code: fmt.Sprintf("SERVER_%d", statusCode), Message: "routing provider is temporarily unavailable", Err: routing.ErrProviderUnavailable}
	default:
		return &routing.Error{Provider: ProviderName, Code: fmt.Sprintf("HTTP_%d", statusCode), Message: message, Err: routing.ErrProviderUnavailable}
	}
}
