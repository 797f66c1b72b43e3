package services

import (
	"context"
	"fmt"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/platform/obs"
	"time"

	"github.com/go-playground/validator/v10"
)

const MaxDrivers = 10

type MultiDriverRequest struct {
	Points        []domain.DeliveryPoint
	DriverCount   int `validate:"min=1,max=10"`
	StartAddress  string
	StartTime     time.Time
	ReturnToStart bool
}

type RebalanceRequest struct {
	StartAddress  string
	StartTime     time.Time
	ReturnToStart bool
}

// MultiDriverOptimizer splits a day's points across drivers and plans one route per driver.
type MultiDriverOptimizer struct {
	optimizer *RouteOptimizer
	clusterer *GeoClusterer
	validate  *validator.Validate
}

func NewMultiDriverOptimizer(optimizer *RouteOptimizer, clusterer *GeoClusterer) *MultiDriverOptimizer {
	return &MultiDriverOptimizer{
		optimizer: optimizer,
		clusterer: clusterer,
		validate:  validator.New(),
	}
}

// OptimizeForDrivers returns exactly req.DriverCount routes, indexed by driver.
// Drivers without assigned points get an empty route.
func (m *MultiDriverOptimizer) OptimizeForDrivers(ctx context.Context, req MultiDriverRequest) (_ *domain.MultiRouteResult, err error) {
	defer obs.Time(ctx, "services.OptimizeForDrivers")(&err)

	if err := m.validate.Struct(req); err != nil {
		return nil, &domain.ValidationError{
			Field:  "driverCount",
			Reason: fmt.Sprintf("must be between 1 and %d, got %d", MaxDrivers, req.DriverCount),
		}
	}
	if len(req.Points) == 0 {
		return nil, &domain.ValidationError{Field: "points", Reason: "at least one delivery point is required"}
	}

	if req.DriverCount == 1 {
		route, err := m.optimizer.Optimize(ctx, OptimizeRequest{
			Points:        req.Points,
			StartAddress:  req.StartAddress,
			StartTime:     req.StartTime,
			ReturnToStart: req.ReturnToStart,
		})
		if err != nil {
			return nil, err
		}
		return aggregate([]domain.OptimizedRoute{*route}, route.FailedGeocodes), nil
	}

	start, err := m.optimizer.ResolveStart(ctx, req.StartAddress, nil)
	if err != nil {
		return nil, err
	}

	resolved, failures, err := m.optimizer.ResolvePoints(ctx, req.Points)
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 {
		return nil, &domain.GeocodingError{Failures: failures}
	}

	groups, err := m.clusterer.Split(resolved, req.DriverCount)
	if err != nil {
		return nil, fmt.Errorf("optimize for drivers: split: %w", err)
	}

	routes := make([]domain.OptimizedRoute, 0, req.DriverCount)
	for driver, group := range groups {
		if len(group) == 0 {
			routes = append(routes, domain.EmptyRoute(driver, req.StartAddress, start, req.StartTime, req.ReturnToStart))
			continue
		}

		route, err := m.optimizer.Optimize(ctx, OptimizeRequest{
			Points:           group,
			StartAddress:     req.StartAddress,
			StartCoordinates: &start,
			StartTime:        req.StartTime,
			ReturnToStart:    req.ReturnToStart,
		})
		if err != nil {
			return nil, &domain.OptimizationError{Op: fmt.Sprintf("route for driver %d", driver), Err: err}
		}
		route.DriverIndex = driver
		routes = append(routes, *route)
	}

	return aggregate(routes, failures), nil
}

// Rebalance re-splits every point currently assigned in existing across the same number of drivers.
func (m *MultiDriverOptimizer) Rebalance(ctx context.Context, existing *domain.MultiRouteResult, req RebalanceRequest) (*domain.MultiRouteResult, error) {
	if existing == nil || len(existing.Routes) == 0 {
		return nil, &domain.ValidationError{Field: "routes", Reason: "existing result has no routes"}
	}

	var points []domain.DeliveryPoint
	for _, r := range existing.Routes {
		points = append(points, r.Points()...)
	}

	return m.OptimizeForDrivers(ctx, MultiDriverRequest{
		Points:        points,
		DriverCount:   len(existing.Routes),
		StartAddress:  req.StartAddress,
		StartTime:     req.StartTime,
		ReturnToStart: req.ReturnToStart,
	})
}

func aggregate(routes []domain.OptimizedRoute, failures []domain.GeocodeFailure) *domain.MultiRouteResult {
	res := &domain.MultiRouteResult{
		Routes:         routes,
		Assignments:    make(map[string]int),
		FailedGeocodes: failures,
	}

	stats := domain.MultiRouteStats{DriverCount: len(routes)}
	for _, r := range routes {
		if len(r.TimeSlots) == 0 {
			continue
		}
		stats.DriversUsed++
		stats.TotalStops += len(r.TimeSlots)
		stats.TotalDistanceMeters += r.TotalDistanceMeters
		stats.TotalDurationSeconds += r.TotalDurationSeconds
		for _, id := range r.DeliveryOrder {
			res.Assignments[id] = r.DriverIndex
		}
	}
	if stats.DriversUsed > 0 {
		stats.AvgStopsPerDriver = float64(stats.TotalStops) / float64(stats.DriversUsed)
		stats.AvgDistancePerDriver = stats.TotalDistanceMeters / float64(stats.DriversUsed)
	}
	res.Stats = stats
	return res
}
