package mock

import (
	"context"
	"encoding/json"
	"route-scheduling-service/internal/domain"
	"sync"
)

// GeometryProvider returns a GeoJSON LineString through the given coordinates
// and records every request.
type GeometryProvider struct {
	mu    sync.Mutex
	calls [][]domain.Coordinates

	Err error
}

func (p *GeometryProvider) Geometry(ctx context.Context, ordered []domain.Coordinates) (domain.RouteGeometry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, append([]domain.Coordinates(nil), ordered...))
	if p.Err != nil {
		return nil, p.Err
	}

	line := make([][]float64, 0, len(ordered))
	for _, c := range ordered {
		line = append(line, c.CoordsToList())
	}
	b, err := json.Marshal(map[string]any{"type": "LineString", "coordinates": line})
	if err != nil {
		return nil, err
	}
	return domain.RouteGeometry(b), nil
}

// Calls returns the coordinate lists passed to Geometry.
func (p *GeometryProvider) Calls() [][]domain.Coordinates {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]domain.Coordinates(nil), p.calls...)
}
