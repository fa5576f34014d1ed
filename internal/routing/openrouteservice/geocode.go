package openrouteservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/wokexpress/storefront/internal/routing"
)

// Geocode resolves a delivery address to the best matching coordinate.
func (c *Client) Geocode(ctx context.Context, address string) (routing.Coordinate, error) {
	address = strings.Join(strings.Fields(address), " ")
	if address == "" {
		return routing.Coordinate{}, &routing.Error{
			Provider: ProviderName,
			Code:     "EMPTY_ADDRESS",
			Message:  "address is empty",
			Err:      routing.ErrAddressNotFound,
		}
	}

	q := url.Values{}
	q.Set("text", address)
	q.Set("size", "1")
	if c.geocodeCountry != "" {
		q.Set("boundary.country", c.geocodeCountry)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/geocode/search?"+q.Encode(), http.NoBody)
	if err != nil {
		return routing.Coordinate{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	body, status, err := c.do(httpReq)
	if err != nil {
		return routing.Coordinate{}, err
	}
	if status != http.StatusOK {
		return routing.Coordinate{}, c.handleErrorResponse(status, body)
	}

	var decoded geocodeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return routing.Coordinate{}, fmt.Errorf("decoding geocode response: %w", err)
	}

	if len(decoded.Features) == 0 || len(decoded.Features[0].Geometry.Coordinates) != 2 {
		return routing.Coordinate{}, &routing.Error{
			Provider: ProviderName,
			Code:     "ADDRESS_NOT_FOUND",
			Message:  fmt.Sprintf("no match for %q", address),
			Err:      routing.ErrAddressNotFound,
		}
	}

	feature := decoded.Features[0]
	coord := routing.Coordinate{
		Lng: feature.Geometry.Coordinates[0],
		Lat: feature.Geometry.Coordinates[1],
	}

	c.logger.Debug().
		Str("label", feature.Properties.Label).
		Float64("confidence", feature.Properties.Confidence).
		Msg("geocoded delivery address")

	return coord, nil
}
