package openrouteservice

// directionsRequest is the ORS directions request body.
type directionsRequest struct {
	Coordinates  [][]float64 `json:"coordinates"`
	Instructions bool        `json:"instructions"`
	Geometry     bool        `json:"geometry"`
	Units        string      `json:"units"`
}

// directionsResponse is the ORS directions response (JSON, encoded polyline geometry).
type directionsResponse struct {
	Routes []orsRoute `json:"routes"`
}

type orsRoute struct {
	Summary  routeSummary `json:"summary"`
	Geometry string       `json:"geometry"`
}

type routeSummary struct {
	Distance float64 `json:"distance"` // metres
	Duration float64 `json:"duration"` // seconds
}

// geocodeResponse is the subset of the Pelias GeoJSON returned by /geocode/search.
type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // [lng, lat]
		} `json:"geometry"`
		Properties struct {
			Label      string  `json:"label"`
			Confidence float64 `json:"confidence"`
		} `json:"properties"`
	} `json:"features"`
}

// orsErrorResponse is an ORS error body.
type orsErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ORS error codes used for mapping.
const (
	orsErrorCodeRouteNotFound = 2009
	orsErrorCodePointNotFound = 2010
)
