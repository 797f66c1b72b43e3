package services

import (
	"context"
	"errors"
	"fmt"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/platform/obs"
	"route-scheduling-service/internal/ports"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxLegKm is the leg length above which a route is treated as a geocoding defect.
const DefaultMaxLegKm = 100.0

type OptimizeRequest struct {
	Points       []domain.DeliveryPoint
	StartAddress string
	// StartCoordinates skips geocoding of StartAddress when set.
	StartCoordinates *domain.Coordinates
	StartTime        time.Time
	ReturnToStart    bool
}

// RouteOptimizer sequences delivery points into a single driver route.
type RouteOptimizer struct {
	geocoder     ports.Geocoder
	matrix       ports.DistanceMatrixProvider
	geometry     ports.RouteGeometryProvider
	maxLegMeters float64
	newSessionID func() string
}

func NewRouteOptimizer(
	geocoder ports.Geocoder,
	matrix ports.DistanceMatrixProvider,
	geometry ports.RouteGeometryProvider,
	maxLegKm float64,
) *RouteOptimizer {
	if maxLegKm <= 0 {
		maxLegKm = DefaultMaxLegKm
	}
	return &RouteOptimizer{
		geocoder:     geocoder,
		matrix:       matrix,
		geometry:     geometry,
		maxLegMeters: maxLegKm * 1000,
		newSessionID: uuid.NewString,
	}
}

// Optimize plans one route over req.Points.
//
// Stops are visited in greedy nearest-neighbor order and given fixed
// one-hour service slots chained from req.StartTime; travel between stops is
// recorded but does not move the slots.
func (o *RouteOptimizer) Optimize(ctx context.Context, req OptimizeRequest) (_ *domain.OptimizedRoute, err error) {
	defer obs.Time(ctx, "services.Optimize")(&err)
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = errorOutcome(err)
		}
		obs.RouteOptimizations.WithLabelValues(outcome).Inc()
	}()

	if len(req.Points) == 0 {
		return nil, &domain.ValidationError{Field: "points", Reason: "at least one delivery point is required"}
	}

	start, err := o.ResolveStart(ctx, req.StartAddress, req.StartCoordinates)
	if err != nil {
		return nil, err
	}

	resolved, failures, err := o.ResolvePoints(ctx, req.Points)
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 {
		return nil, &domain.GeocodingError{Failures: failures}
	}

	sortByPreferredWindow(resolved)

	coords := make([]domain.Coordinates, 0, len(resolved)+1)
	coords = append(coords, start)
	for _, p := range resolved {
		coords = append(coords, *p.Coordinates)
	}

	m, err := o.matrix.Matrix(ctx, coords)
	if err != nil {
		return nil, &domain.OptimizationError{Op: "distance matrix", Err: err}
	}
	if err := validateMatrix(m, len(coords)); err != nil {
		return nil, &domain.OptimizationError{Op: "distance matrix", Err: err}
	}

	route := &domain.OptimizedRoute{
		SessionID:        o.newSessionID(),
		TimeSlots:        make([]domain.TimeSlot, 0, len(resolved)),
		DeliveryOrder:    make([]string, 0, len(resolved)),
		StartAddress:     req.StartAddress,
		StartCoordinates: start,
		ReturnToStart:    req.ReturnToStart,
		StartTime:        req.StartTime,
		FailedGeocodes:   failures,
	}

	nodeID := func(idx int) string {
		if idx == 0 {
			return "start"
		}
		return resolved[idx-1].ID
	}

	prev := 0
	for i, idx := range NearestNeighborOrder(m.Distances) {
		leg := domain.TravelInfo{
			DistanceMeters:  m.Distances[prev][idx],
			DurationSeconds: m.Durations[prev][idx],
		}
		if leg.DistanceMeters > o.maxLegMeters {
			return nil, &domain.SanityError{
				FromID:          nodeID(prev),
				ToID:            nodeID(idx),
				DistanceMeters:  leg.DistanceMeters,
				ThresholdMeters: o.maxLegMeters,
			}
		}

		slotStart := req.StartTime.Add(time.Duration(i) * domain.ServiceDuration)
		point := resolved[idx-1]
		route.TimeSlots = append(route.TimeSlots, domain.TimeSlot{
			Point:     point,
			StopIndex: i,
			Start:     slotStart,
			End:       slotStart.Add(domain.ServiceDuration),
			Travel:    leg,
		})
		route.DeliveryOrder = append(route.DeliveryOrder, point.ID)
		route.TotalDistanceMeters += leg.DistanceMeters
		route.TotalDurationSeconds += leg.DurationSeconds
		prev = idx
	}

	route.EndTime = route.TimeSlots[len(route.TimeSlots)-1].End

	// Optionally includes return leg to the start for totals and end time.
	if req.ReturnToStart {
		back := domain.TravelInfo{
			DistanceMeters:  m.Distances[prev][0],
			DurationSeconds: m.Durations[prev][0],
		}
		if back.DistanceMeters > o.maxLegMeters {
			return nil, &domain.SanityError{
				FromID:          nodeID(prev),
				ToID:            nodeID(0),
				DistanceMeters:  back.DistanceMeters,
				ThresholdMeters: o.maxLegMeters,
			}
		}
		route.ReturnLeg = back
		route.TotalDistanceMeters += back.DistanceMeters
		route.TotalDurationSeconds += back.DurationSeconds
		route.EndTime = route.EndTime.Add(seconds(back.DurationSeconds))
	}

	path := make([]domain.Coordinates, 0, len(route.TimeSlots)+2)
	path = append(path, start)
	for _, s := range route.TimeSlots {
		path = append(path, *s.Point.Coordinates)
	}
	if req.ReturnToStart {
		path = append(path, start)
	}

	geometry, err := o.geometry.Geometry(ctx, path)
	if err != nil {
		return nil, &domain.OptimizationError{Op: "route geometry", Err: err}
	}
	route.Geometry = geometry

	obs.RouteStops.Observe(float64(len(route.TimeSlots)))
	return route, nil
}

// ResolveStart returns known start coordinates or geocodes the start address.
func (o *RouteOptimizer) ResolveStart(ctx context.Context, address string, known *domain.Coordinates) (domain.Coordinates, error) {
	if known != nil && known.Valid() {
		return *known, nil
	}
	if strings.TrimSpace(address) == "" {
		return domain.Coordinates{}, &domain.ValidationError{Field: "startAddress", Reason: "must be non-empty"}
	}

	c, err := o.geocoder.Geocode(ctx, address)
	if err != nil {
		return domain.Coordinates{}, &domain.OptimizationError{Op: "geocode start address", Err: err}
	}
	return c, nil
}

// ResolvePoints geocodes points one at a time so each failure is attributed to its address.
// Points that already carry valid coordinates are kept as they are.
// The returned points are copies; the input is not modified.
func (o *RouteOptimizer) ResolvePoints(ctx context.Context, points []domain.DeliveryPoint) ([]domain.DeliveryPoint, []domain.GeocodeFailure, error) {
	resolved := make([]domain.DeliveryPoint, 0, len(points))
	var failures []domain.GeocodeFailure

	for _, p := range points {
		if err := ctx.Err(); err != nil {
			return nil, nil, &domain.OptimizationError{Op: "geocode delivery points", Err: err}
		}

		if p.Coordinates != nil && p.Coordinates.Valid() {
			c := *p.Coordinates
			p.Coordinates = &c
			resolved = append(resolved, p)
			continue
		}

		if !p.HasCompleteAddress() {
			failures = append(failures, domain.GeocodeFailure{PointID: p.ID, Address: p.Address(), Reason: "incomplete address"})
			continue
		}

		c, err := o.geocoder.Geocode(ctx, p.Address())
		if err != nil {
			failures = append(failures, domain.GeocodeFailure{PointID: p.ID, Address: p.Address(), Reason: geocodeReason(err)})
			continue
		}
		p.Coordinates = &c
		resolved = append(resolved, p)
	}

	if len(failures) > 0 {
		obs.GeocodeFailures.Add(float64(len(failures)))
		zerolog.Ctx(ctx).Warn().
			Int("failed", len(failures)).
			Str("points", domain.JoinFailures(failures)).
			Msg("delivery points excluded from route")
	}
	return resolved, failures, nil
}

// sortByPreferredWindow moves points with a preferred window to the front, earliest first.
// It seeds the candidate order only; the greedy tour decides the final sequence.
func sortByPreferredWindow(points []domain.DeliveryPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		a, b := points[i].PreferredWindow, points[j].PreferredWindow
		switch {
		case a != nil && b != nil:
			return a.Start.Before(b.Start)
		case a != nil:
			return true
		default:
			return false
		}
	})
}

func validateMatrix(m domain.DistanceMatrix, n int) error {
	if len(m.Distances) != n || len(m.Durations) != n {
		return fmt.Errorf("expected %d rows; got distances=%d durations=%d", n, len(m.Distances), len(m.Durations))
	}
	for i := 0; i < n; i++ {
		if len(m.Distances[i]) != n || len(m.Durations[i]) != n {
			return fmt.Errorf("row %d length does not match %d locations", i, n)
		}
		for j := 0; j < n; j++ {
			if m.Distances[i][j] < 0 || m.Durations[i][j] < 0 {
				return fmt.Errorf("negative entry at [%d][%d]", i, j)
			}
		}
	}
	return nil
}

func geocodeReason(err error) string {
	var ge *domain.GeocodingError
	if errors.As(err, &ge) && ge.Err == nil {
		return "no match"
	}
	return err.Error()
}

func errorOutcome(err error) string {
	var (
		ve *domain.ValidationError
		ge *domain.GeocodingError
		se *domain.SanityError
	)
	switch {
	case errors.As(err, &ve):
		return "invalid"
	case errors.As(err, &se):
		return "sanity"
	case errors.As(err, &ge):
		return "geocoding"
	default:
		return "error"
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
