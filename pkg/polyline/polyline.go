// Package polyline encodes and decodes route geometry in the Google polyline format.
// OpenRouteService returns precision 5; Mapbox "polyline6" geometries use precision 6.
// Algorithm reference: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"math"
)

// Precision values supported by the routing providers.
const (
	Precision5 = 5
	Precision6 = 6
)

// ErrTruncated is returned when the encoded string ends in the middle of a value.
var ErrTruncated = errors.New("polyline: truncated input")

// Coordinate is a decoded point in degrees.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Decode decodes a precision 5 polyline.
func Decode(encoded string) ([]Coordinate, error) {
	return DecodePrecision(encoded, Precision5)
}

// Encode encodes coordinates as a precision 5 polyline.
func Encode(coords []Coordinate) string {
	return EncodePrecision(coords, Precision5)
}

// DecodePrecision decodes a polyline written with the given number of decimal places.
func DecodePrecision(encoded string, precision int) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}

	factor := math.Pow10(precision)
	coords := make([]Coordinate, 0, len(encoded)/4)
	index, lat, lng := 0, 0, 0

	for index < len(encoded) {
		latDelta, next, ok := decodeValue(encoded, index)
		if !ok {
			return nil, ErrTruncated
		}
		lngDelta, next, ok := decodeValue(encoded, next)
		if !ok {
			return nil, ErrTruncated
		}
		index = next
		lat += latDelta
		lng += lngDelta

		coords = append(coords, Coordinate{
			Lat: float64(lat) / factor,
			Lng: float64(lng) / factor,
		})
	}

	return coords, nil
}

// decodeValue reads one zig-zag varint starting at index. ok is false when the
// input ends before the terminating chunk.
func decodeValue(encoded string, index int) (value, next int, ok bool) {
	shift, result := 0, 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), index, true
			}
			return result >> 1, index, true
		}
	}
	return 0, index, false
}

// EncodePrecision encodes coordinates with the given number of decimal places.
func EncodePrecision(coords []Coordinate, precision int) string {
	if len(coords) == 0 {
		return ""
	}

	factor := math.Pow10(precision)
	encoded := make([]byte, 0, len(coords)*6)
	prevLat, prevLng := 0, 0

	for _, c := range coords {
		lat := int(math.Round(c.Lat * factor))
		lng := int(math.Round(c.Lng * factor))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lng-prevLng)

		prevLat, prevLng = lat, lng
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}
