// Package geocode provides cache-first reverse geocoding for import records,
// backed by a Nominatim-compatible endpoint.
package geocode

import "context"

// Result holds the human-readable location fields for a coordinate pair.
// All fields are optional; an unmatched lookup returns Matched=false.
type Result struct {
	DisplayName string `json:"display_name,omitempty"`
	Country     string `json:"country,omitempty"`
	State       string `json:"state,omitempty"`
	City        string `json:"city,omitempty"`
	Matched     bool   `json:"matched"`
}

// Provider resolves coordinates to human-readable location fields.
type Provider interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (*Result, error)
}
