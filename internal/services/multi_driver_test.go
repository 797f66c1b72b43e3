package services

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"route-scheduling-service/internal/domain"
	"testing"
	"time"
)

func fivePoints() ([]domain.DeliveryPoint, []domain.Coordinates) {
	points := append(threePoints(),
		point("S1", "10 Scottsdale Rd", "85251"),
		point("S2", "12 Scottsdale Rd", "85251"),
	)
	coords := append(append([]domain.Coordinates{}, phoenixPts...), scottsdalePts...)
	return points, coords
}

func TestOptimizeForDriversValidatesDriverCount(t *testing.T) {
	points := threePoints()
	f := newFixture(t, points, phoenixPts)
	m := NewMultiDriverOptimizer(f.optimizer, NewGeoClusterer(rand.New(rand.NewSource(1))))

	for _, n := range []int{0, -1, 11} {
		_, err := m.OptimizeForDrivers(context.Background(), MultiDriverRequest{
			Points:       points,
			DriverCount:  n,
			StartAddress: hubAddress,
			StartTime:    planStart,
		})
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("driverCount %d: expected ValidationError, got %v", n, err)
		}
	}
}

func TestOptimizeForOneDriverMatchesSingleRoute(t *testing.T) {
	points := threePoints()
	req := MultiDriverRequest{
		Points:        points,
		DriverCount:   1,
		StartAddress:  hubAddress,
		StartTime:     planStart,
		ReturnToStart: true,
	}

	f := newFixture(t, points, phoenixPts)
	m := NewMultiDriverOptimizer(f.optimizer, NewGeoClusterer(rand.New(rand.NewSource(1))))
	res, err := m.OptimizeForDrivers(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Routes) != 1 {
		t.Fatalf("expected one route, got %d", len(res.Routes))
	}
	if calls := f.geometry.Calls(); len(calls) != 1 {
		t.Fatalf("expected exactly one optimizer run, got %d geometry calls", len(calls))
	}

	single := newFixture(t, points, phoenixPts)
	want, err := single.optimizer.Optimize(context.Background(), OptimizeRequest{
		Points:        points,
		StartAddress:  hubAddress,
		StartTime:     planStart,
		ReturnToStart: true,
	})
	if err != nil {
		t.Fatalf("single route: %v", err)
	}
	if !reflect.DeepEqual(res.Routes[0], *want) {
		t.Fatalf("multi-driver route differs from single route:\n%+v\n%+v", res.Routes[0], *want)
	}
	if res.Stats.DriversUsed != 1 || res.Stats.TotalStops != 3 {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}
}

func TestOptimizeForTwoDrivers(t *testing.T) {
	points, coords := fivePoints()
	f := newFixture(t, points, coords)
	m := NewMultiDriverOptimizer(f.optimizer, NewGeoClusterer(rand.New(rand.NewSource(11))))

	res, err := m.OptimizeForDrivers(context.Background(), MultiDriverRequest{
		Points:       points,
		DriverCount:  2,
		StartAddress: hubAddress,
		StartTime:    planStart,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(res.Routes))
	}
	total := 0
	for i, r := range res.Routes {
		if len(r.TimeSlots) == 0 {
			t.Fatalf("route %d is empty", i)
		}
		if r.DriverIndex != i {
			t.Fatalf("route %d has driver index %d", i, r.DriverIndex)
		}
		total += len(r.TimeSlots)
		assertGreedyTour(t, r)
		for _, id := range r.DeliveryOrder {
			if res.Assignments[id] != i {
				t.Fatalf("point %s assigned to %d but routed by %d", id, res.Assignments[id], i)
			}
		}
	}
	if total != 5 {
		t.Fatalf("expected 5 stops in total, got %d", total)
	}
	if len(res.Assignments) != 5 {
		t.Fatalf("expected 5 assignments, got %d", len(res.Assignments))
	}
	if res.Stats.DriversUsed != 2 || !almostEqual(res.Stats.AvgStopsPerDriver, 2.5) {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}

	geocodedHub := 0
	for _, a := range f.geocoder.Calls() {
		if a == hubAddress {
			geocodedHub++
		}
	}
	if geocodedHub != 1 {
		t.Fatalf("expected the hub to be geocoded once, got %d", geocodedHub)
	}
}

func TestOptimizeForDriversKeepsEmptyRoutes(t *testing.T) {
	points := threePoints()[:2]
	f := newFixture(t, points, phoenixPts[:2])
	m := NewMultiDriverOptimizer(f.optimizer, NewGeoClusterer(rand.New(rand.NewSource(1))))

	res, err := m.OptimizeForDrivers(context.Background(), MultiDriverRequest{
		Points:       points,
		DriverCount:  3,
		StartAddress: hubAddress,
		StartTime:    planStart,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Routes) != 3 {
		t.Fatalf("expected 3 routes, got %d", len(res.Routes))
	}
	empty := res.Routes[2]
	if empty.DriverIndex != 2 || len(empty.TimeSlots) != 0 || empty.TotalDistanceMeters != 0 {
		t.Fatalf("expected explicit empty route for driver 2, got %+v", empty)
	}
	if !empty.EndTime.Equal(planStart) {
		t.Fatalf("expected empty route to end at its start time, got %v", empty.EndTime)
	}
	if res.Stats.DriversUsed != 2 || res.Stats.DriverCount != 3 {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}
}

func TestOptimizeForDriversReportsFailures(t *testing.T) {
	points, coords := fivePoints()
	f := newFixture(t, points, coords)
	m := NewMultiDriverOptimizer(f.optimizer, NewGeoClusterer(rand.New(rand.NewSource(1))))

	input := append(points, point("Z", "1 Unknown Way", "85999"))
	res, err := m.OptimizeForDrivers(context.Background(), MultiDriverRequest{
		Points:       input,
		DriverCount:  2,
		StartAddress: hubAddress,
		StartTime:    planStart,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.FailedGeocodes) != 1 || res.FailedGeocodes[0].PointID != "Z" {
		t.Fatalf("unexpected failures %+v", res.FailedGeocodes)
	}
	if res.Stats.TotalStops != 5 {
		t.Fatalf("expected 5 routed stops, got %d", res.Stats.TotalStops)
	}
}

func TestRebalanceReusesAssignedPoints(t *testing.T) {
	points, coords := fivePoints()
	f := newFixture(t, points, coords)
	m := NewMultiDriverOptimizer(f.optimizer, NewGeoClusterer(rand.New(rand.NewSource(5))))

	first, err := m.OptimizeForDrivers(context.Background(), MultiDriverRequest{
		Points:       points,
		DriverCount:  2,
		StartAddress: hubAddress,
		StartTime:    planStart,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pointGeocodes := len(f.geocoder.Calls())

	again, err := m.Rebalance(context.Background(), first, RebalanceRequest{
		StartAddress: hubAddress,
		StartTime:    planStart.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("rebalance: %v", err)
	}
	if len(again.Routes) != 2 || again.Stats.TotalStops != 5 {
		t.Fatalf("unexpected rebalance result %+v", again.Stats)
	}
	// Only the start address is geocoded again; points keep their coordinates.
	if got := len(f.geocoder.Calls()) - pointGeocodes; got != 1 {
		t.Fatalf("expected 1 new geocode call, got %d", got)
	}

	if _, err := m.Rebalance(context.Background(), &domain.MultiRouteResult{}, RebalanceRequest{}); err == nil {
		t.Fatalf("expected error for empty result")
	}
}
