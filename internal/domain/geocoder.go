package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceName        string  `json:"place_name,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"` // 0.0-1.0 provider confidence score
}

// Geocoder resolves place names that the county table does not cover.
type Geocoder interface {
	// ForwardGeocode converts a county name and state abbreviation to coordinates.
	// A zero result with a nil error means the provider had no match.
	ForwardGeocode(ctx context.Context, name, state string) (GeocodingResult, error)
}
