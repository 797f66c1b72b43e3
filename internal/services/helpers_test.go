package services

import (
	"math"
	"route-scheduling-service/internal/adapters/mock"
	"route-scheduling-service/internal/domain"
	"testing"
	"time"
)

const hubAddress = "100 Hub Rd, Phoenix, AZ 85001"

var (
	hub        = domain.Coordinates{Lon: -112.0740, Lat: 33.4484}
	planStart  = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	phoenixPts = []domain.Coordinates{
		{Lon: -112.0700, Lat: 33.4500},
		{Lon: -112.0000, Lat: 33.5000},
		{Lon: -112.0650, Lat: 33.4550},
	}
	scottsdalePts = []domain.Coordinates{
		{Lon: -111.9000, Lat: 33.6000},
		{Lon: -111.9050, Lat: 33.6050},
	}
)

func point(id, street, zip string) domain.DeliveryPoint {
	return domain.DeliveryPoint{
		ID:           id,
		OrderID:      "ORD-" + id,
		CustomerName: "Customer " + id,
		Street:       street,
		City:         "Phoenix",
		State:        "AZ",
		ZipCode:      zip,
	}
}

// fixture wires a RouteOptimizer to mock providers with every point address registered.
type fixture struct {
	geocoder  *mock.Geocoder
	matrix    *mock.MatrixProvider
	geometry  *mock.GeometryProvider
	optimizer *RouteOptimizer
}

func newFixture(t *testing.T, points []domain.DeliveryPoint, coords []domain.Coordinates) *fixture {
	t.Helper()
	if len(points) != len(coords) {
		t.Fatalf("fixture: %d points but %d coordinates", len(points), len(coords))
	}

	g := mock.NewGeocoder(map[string]domain.Coordinates{hubAddress: hub})
	for i, p := range points {
		g.Add(p.Address(), coords[i])
	}

	f := &fixture{
		geocoder: g,
		matrix:   mock.NewMatrixProvider(),
		geometry: &mock.GeometryProvider{},
	}
	f.optimizer = NewRouteOptimizer(f.geocoder, f.matrix, f.geometry, 0)
	f.optimizer.newSessionID = func() string { return "session-1" }
	return f
}

func threePoints() []domain.DeliveryPoint {
	return []domain.DeliveryPoint{
		point("A", "1 A St", "85004"),
		point("B", "2 B St", "85008"),
		point("C", "3 C St", "85004"),
	}
}

// assertGreedyTour checks that each stop is the closest remaining point to the previous one.
func assertGreedyTour(t *testing.T, route domain.OptimizedRoute) {
	t.Helper()

	remaining := make([]domain.Coordinates, 0, len(route.TimeSlots))
	for _, s := range route.TimeSlots {
		remaining = append(remaining, *s.Point.Coordinates)
	}

	current := route.StartCoordinates
	for step, s := range route.TimeSlots {
		chosen := domain.HaversineMeters(current, *s.Point.Coordinates)
		for _, r := range remaining {
			if d := domain.HaversineMeters(current, r); d < chosen-1e-6 {
				t.Fatalf("stop %d (%s) is not the nearest remaining point: %.1f m < %.1f m", step, s.Point.ID, d, chosen)
			}
		}
		for i, r := range remaining {
			if r == *s.Point.Coordinates {
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
		current = *s.Point.Coordinates
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func ptr[T any](v T) *T { return &v }
