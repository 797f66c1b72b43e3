package domain

import (
	"encoding/json"
	"time"
)

// ServiceDuration is the fixed service block allotted to every stop.
// Slots are chained from the route start time; travel time does not stretch them.
const ServiceDuration = time.Hour

// TravelInfo is the leg from the previous stop (or the route start) to this one.
type TravelInfo struct {
	DurationSeconds float64
	DistanceMeters  float64
}

// Represents a scheduled service block for one delivery point within a route.
type TimeSlot struct {
	Point     DeliveryPoint
	StopIndex int
	Start     time.Time
	End       time.Time
	Travel    TravelInfo
}

// RouteGeometry is a renderable path returned by the geometry provider.
// Its content is opaque to the engine.
type RouteGeometry json.RawMessage

// MarshalJSON keeps the geometry verbatim when a route is encoded.
func (g RouteGeometry) MarshalJSON() ([]byte, error) {
	if len(g) == 0 {
		return []byte("null"), nil
	}
	return json.RawMessage(g).MarshalJSON()
}

// UnmarshalJSON stores the raw geometry document.
func (g *RouteGeometry) UnmarshalJSON(b []byte) error {
	*g = append((*g)[:0], b...)
	return nil
}

// Represents the planned, time-sequenced route for a single driver.
// An OptimizedRoute is created once per optimization call and is not mutated afterwards;
// visibility adjustments produce a RouteView copy.
type OptimizedRoute struct {
	SessionID            string
	DriverIndex          int
	TimeSlots            []TimeSlot
	DeliveryOrder        []string
	TotalDistanceMeters  float64
	TotalDurationSeconds float64
	ReturnLeg            TravelInfo
	Geometry             RouteGeometry
	StartAddress         string
	StartCoordinates     Coordinates
	ReturnToStart        bool
	StartTime            time.Time
	EndTime              time.Time
	FailedGeocodes       []GeocodeFailure
}

// EmptyRoute builds the explicit zero-stop route given to a driver with no assigned points.
func EmptyRoute(driverIndex int, startAddress string, start Coordinates, startTime time.Time, returnToStart bool) OptimizedRoute {
	return OptimizedRoute{
		DriverIndex:      driverIndex,
		TimeSlots:        []TimeSlot{},
		DeliveryOrder:    []string{},
		StartAddress:     startAddress,
		StartCoordinates: start,
		ReturnToStart:    returnToStart,
		StartTime:        startTime,
		EndTime:          startTime,
	}
}

// Points returns the delivery points of the route in visit order.
func (r OptimizedRoute) Points() []DeliveryPoint {
	out := make([]DeliveryPoint, 0, len(r.TimeSlots))
	for _, s := range r.TimeSlots {
		out = append(out, s.Point)
	}
	return out
}

// RouteView is an OptimizedRoute filtered by the visibility overlay for one date.
// TimeSlots and DeliveryOrder hold active stops only.
type RouteView struct {
	OptimizedRoute
	Date             string
	HiddenDeliveries []TimeSlot
	ActiveCount      int
	HiddenCount      int
	TotalCount       int
}

// MultiRouteStats aggregates a multi-driver plan.
type MultiRouteStats struct {
	DriverCount          int
	DriversUsed          int
	TotalStops           int
	TotalDistanceMeters  float64
	TotalDurationSeconds float64
	AvgStopsPerDriver    float64
	AvgDistancePerDriver float64
}

// MultiRouteResult holds one route per driver index, including empty ones.
type MultiRouteResult struct {
	Routes         []OptimizedRoute
	Assignments    map[string]int
	Stats          MultiRouteStats
	FailedGeocodes []GeocodeFailure
}

// DistanceMatrix holds pairwise meters/seconds aligned with the requested coordinates.
type DistanceMatrix struct {
	Distances [][]float64
	Durations [][]float64
}
