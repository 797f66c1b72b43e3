package mock

import (
	"context"
	"route-scheduling-service/internal/domain"
	"sync"
)

// Pair overrides the travel figures between two coordinates.
type Pair struct {
	From, To domain.Coordinates
	Meters   float64
	Seconds  float64
}

// DefaultSpeedMPS is the speed used to derive durations from straight-line
// distance (about 30 mph).
const DefaultSpeedMPS = 13.4

// MatrixProvider builds distance matrices from great-circle distances unless a
// Pair says otherwise. Set Err to make every call fail.
type MatrixProvider struct {
	mu    sync.Mutex
	pairs map[[2]domain.Coordinates]Pair
	calls [][]domain.Coordinates

	Err      error
	SpeedMPS float64
}

func NewMatrixProvider(pairs ...Pair) *MatrixProvider {
	m := make(map[[2]domain.Coordinates]Pair, len(pairs))
	for _, p := range pairs {
		m[[2]domain.Coordinates{p.From, p.To}] = p
	}
	return &MatrixProvider{pairs: m, SpeedMPS: DefaultSpeedMPS}
}

func (p *MatrixProvider) Matrix(ctx context.Context, coords []domain.Coordinates) (domain.DistanceMatrix, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, append([]domain.Coordinates(nil), coords...))
	if p.Err != nil {
		return domain.DistanceMatrix{}, p.Err
	}

	speed := p.SpeedMPS
	if speed <= 0 {
		speed = DefaultSpeedMPS
	}

	n := len(coords)
	out := domain.DistanceMatrix{
		Distances: make([][]float64, n),
		Durations: make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		out.Distances[i] = make([]float64, n)
		out.Durations[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if pair, ok := p.pairs[[2]domain.Coordinates{coords[i], coords[j]}]; ok {
				out.Distances[i][j] = pair.Meters
				out.Durations[i][j] = pair.Seconds
				continue
			}
			d := domain.HaversineMeters(coords[i], coords[j])
			out.Distances[i][j] = d
			out.Durations[i][j] = d / speed
		}
	}
	return out, nil
}

// Calls returns the coordinate lists passed to Matrix.
func (p *MatrixProvider) Calls() [][]domain.Coordinates {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]domain.Coordinates(nil), p.calls...)
}
