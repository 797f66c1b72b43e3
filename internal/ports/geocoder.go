package ports

import (
	"context"
	"route-scheduling-service/internal/domain"
)

// Port: resolves addresses to coordinates and back.
type Geocoder interface {
	// Geocode fails with *domain.GeocodingError when nothing matches or the match is invalid.
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
	// ReverseGeocode returns an empty string when no address is known for the point.
	ReverseGeocode(ctx context.Context, c domain.Coordinates) (string, error)
}
