// Package models provides request and response models for the storefront API.
package models

import (
	"encoding/json"
	"time"
)

// Point is a WGS84 coordinate as the storefront map sends it.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HealthStatus is the health of the service, a subsystem or a provider.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a time.Time that always serialises as RFC 3339 in UTC, so
// order times read the same whichever zone the server runs in.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339))
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp. null leaves t unchanged.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
