package animator

import (
	"math"

	"github.com/wokexpress/storefront/internal/routing"
)

// Bearing returns the marker heading from one point to the next in degrees,
// computed as atan2(Δlat, Δlng) on raw degrees. Consecutive path points are
// close together, so no projection is applied.
func Bearing(from, to routing.Coordinate) float64 {
	return math.Atan2(to.Lat-from.Lat, to.Lng-from.Lng) * 180 / math.Pi
}

// Sanitize returns the valid points of path in order, dropping any that are
// non-finite or outside coordinate range.
func Sanitize(path []routing.Coordinate) []routing.Coordinate {
	clean := make([]routing.Coordinate, 0, len(path))
	for _, p := range path {
		if p.Valid() {
			clean = append(clean, p)
		}
	}
	return clean
}

// BoundingBox is the smallest lat/lng rectangle containing a path.
type BoundingBox struct {
	SouthWest routing.Coordinate
	NorthEast routing.Coordinate
}

// Bounds returns the bounding box of path. ok is false for an empty path.
func Bounds(path []routing.Coordinate) (box BoundingBox, ok bool) {
	if len(path) == 0 {
		return BoundingBox{}, false
	}
	box.SouthWest, box.NorthEast = path[0], path[0]
	for _, p := range path[1:] {
		box.SouthWest.Lat = math.Min(box.SouthWest.Lat, p.Lat)
		box.SouthWest.Lng = math.Min(box.SouthWest.Lng, p.Lng)
		box.NorthEast.Lat = math.Max(box.NorthEast.Lat, p.Lat)
		box.NorthEast.Lng = math.Max(box.NorthEast.Lng, p.Lng)
	}
	return box, true
}
