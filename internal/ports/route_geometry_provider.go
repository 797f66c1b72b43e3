package ports

import (
	"context"
	"route-scheduling-service/internal/domain"
)

// Port: renders an ordered coordinate list into path geometry.
type RouteGeometryProvider interface {
	Geometry(ctx context.Context, ordered []domain.Coordinates) (domain.RouteGeometry, error)
}
