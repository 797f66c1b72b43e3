package ports

import (
	"context"
	"route-scheduling-service/internal/domain"
)

// VisibilityStore keeps the operator's hide state (per plan date) and hide templates (global).
// Implementations are read and written whole per operation; they are not built for
// concurrent writers.
type VisibilityStore interface {
	LoadHidden(ctx context.Context, date string) (map[string]domain.HideRecord, error)
	SaveHidden(ctx context.Context, date string, records map[string]domain.HideRecord) error
	LoadTemplates(ctx context.Context) (map[string]domain.HideTemplate, error)
	SaveTemplates(ctx context.Context, templates map[string]domain.HideTemplate) error
}
