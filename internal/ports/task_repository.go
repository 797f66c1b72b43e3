package ports

import (
	"context"
	"route-scheduling-service/internal/domain"
)

// Port: a boundary for persisting generated work items.
type TaskRepository interface {
	// Persist a work item and return it with its assigned ID.
	CreateTask(ctx context.Context, item domain.WorkItem) (domain.WorkItem, error)
	// Remove a previously created work item. Used only for batch rollback.
	DeleteTask(ctx context.Context, id string) error
}
