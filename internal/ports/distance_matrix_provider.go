package ports

import (
	"context"
	"route-scheduling-service/internal/domain"
)

// Contract for retrieving pairwise travel distance and duration.
type DistanceMatrixProvider interface {
	// Return meters/seconds matrices aligned with coords; index 0 is conventionally the route start.
	Matrix(ctx context.Context, coords []domain.Coordinates) (domain.DistanceMatrix, error)
}
