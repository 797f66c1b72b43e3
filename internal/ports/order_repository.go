package ports

import (
	"context"
	"route-scheduling-service/internal/domain"
)

// Port: a boundary for retrieving orders referenced by delivery points.
type OrderRepository interface {
	// Return domain.ErrOrderNotFound when the order does not exist.
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
}
