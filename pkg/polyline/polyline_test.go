package polyline

import (
	"errors"
	"math"
	"testing"
)

func TestDecode_ValidPolyline(t *testing.T) {
	tests := []struct {
		name     string
		encoded  string
		expected []Coordinate
	}{
		{
			name:     "single point",
			encoded:  "_p~iF~ps|U",
			expected: []Coordinate{{Lat: 38.5, Lng: -120.2}},
		},
		{
			name:    "reference example",
			encoded: "_p~iF~ps|U_ulLnnqC_mqNvxq`@",
			expected: []Coordinate{
				{Lat: 38.5, Lng: -120.2},
				{Lat: 40.7, Lng: -120.95},
				{Lat: 43.252, Lng: -126.453},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Decode(tt.encoded)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d coordinates, got %d", len(tt.expected), len(result))
			}
			for i, coord := range result {
				if !coordsEqual(coord, tt.expected[i], 1e-5) {
					t.Errorf("coordinate %d: expected %+v, got %+v", i, tt.expected[i], coord)
				}
			}
		})
	}
}

func TestDecodePrecision_Polyline6(t *testing.T) {
	result, err := DecodePrecision("_izlhA~rlgdF_{geC~ywl@_kwzCn`{nI", Precision6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []Coordinate{
		{Lat: 38.5, Lng: -120.2},
		{Lat: 40.7, Lng: -120.95},
		{Lat: 43.252, Lng: -126.453},
	}
	if len(result) != len(expected) {
		t.Fatalf("expected %d coordinates, got %d", len(expected), len(result))
	}
	for i := range expected {
		if !coordsEqual(result[i], expected[i], 1e-6) {
			t.Errorf("coordinate %d: expected %+v, got %+v", i, expected[i], result[i])
		}
	}
}

func TestDecode_EmptyString(t *testing.T) {
	result, err := Decode("")
	if err != nil || result != nil {
		t.Errorf("expected nil, nil for empty string, got %v, %v", result, err)
	}
}

func TestDecode_Truncated(t *testing.T) {
	// latitude only, longitude missing
	if _, err := Decode("_p~iF"); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
	// continuation bit set on the final byte
	if _, err := Decode("_p~iF~ps|"); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestEncode(t *testing.T) {
	coords := []Coordinate{
		{Lat: 38.5, Lng: -120.2},
		{Lat: 40.7, Lng: -120.95},
		{Lat: 43.252, Lng: -126.453},
	}
	if got := Encode(coords); got != "_p~iF~ps|U_ulLnnqC_mqNvxq`@" {
		t.Errorf("unexpected encoding %q", got)
	}
	if got := EncodePrecision(coords, Precision6); got != "_izlhA~rlgdF_{geC~ywl@_kwzCn`{nI" {
		t.Errorf("unexpected precision 6 encoding %q", got)
	}
	if got := Encode(nil); got != "" {
		t.Errorf("expected empty string for no coordinates, got %q", got)
	}
}

func TestRoundTrip_Warsaw(t *testing.T) {
	coords := []Coordinate{
		{Lat: 52.229676, Lng: 21.012229},
		{Lat: 52.231901, Lng: 21.006725},
		{Lat: 52.235012, Lng: 21.001133},
	}

	decoded, err := DecodePrecision(EncodePrecision(coords, Precision6), Precision6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range coords {
		if !coordsEqual(decoded[i], coords[i], 1e-6) {
			t.Errorf("coordinate %d lost precision: expected %+v, got %+v", i, coords[i], decoded[i])
		}
	}
}

func coordsEqual(a, b Coordinate, tolerance float64) bool {
	return math.Abs(a.Lat-b.Lat) <= tolerance && math.Abs(a.Lng-b.Lng) <= tolerance
}

func BenchmarkDecode(b *testing.B) {
	encoded := "_p~iF~ps|U_ulLnnqC_mqNvxq`@"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Decode(encoded)
	}
}
