package dto

import (
	"encoding/json"
	"route-scheduling-service/internal/domain"
	"time"
)

type Coordinates struct {
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
}

type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type DeliveryPoint struct {
	ID              string       `json:"id" validate:"required"`
	OrderID         string       `json:"orderId,omitempty"`
	CustomerName    string       `json:"customerName"`
	Street          string       `json:"street"`
	City            string       `json:"city"`
	State           string       `json:"state"`
	ZipCode         string       `json:"zipCode"`
	PreferredWindow *TimeWindow  `json:"preferredWindow,omitempty"`
	OrderValue      float64      `json:"orderValue" validate:"gte=0"`
	CustomerTags    []string     `json:"customerTags,omitempty"`
	Coordinates     *Coordinates `json:"coordinates,omitempty"`
}

type Travel struct {
	DurationSeconds float64 `json:"durationSeconds"`
	DistanceMeters  float64 `json:"distanceMeters"`
}

type TimeSlot struct {
	Point     DeliveryPoint `json:"point"`
	StopIndex int           `json:"stopIndex"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Travel    Travel        `json:"travel"`
}

type GeocodeFailure struct {
	PointID string `json:"pointId"`
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

type Route struct {
	SessionID            string           `json:"sessionId"`
	DriverIndex          int              `json:"driverIndex"`
	TimeSlots            []TimeSlot       `json:"timeSlots"`
	DeliveryOrder        []string         `json:"deliveryOrder"`
	TotalDistanceMeters  float64          `json:"totalDistanceMeters"`
	TotalDurationSeconds float64          `json:"totalDurationSeconds"`
	ReturnLeg            Travel           `json:"returnLeg"`
	Geometry             json.RawMessage  `json:"geometry,omitempty"`
	StartAddress         string           `json:"startAddress"`
	StartCoordinates     Coordinates      `json:"startCoordinates"`
	ReturnToStart        bool             `json:"returnToStart"`
	StartTime            time.Time        `json:"startTime"`
	EndTime              time.Time        `json:"endTime"`
	FailedGeocodes       []GeocodeFailure `json:"failedGeocodes"`
}

type RouteView struct {
	Route
	Date             string     `json:"date"`
	HiddenDeliveries []TimeSlot `json:"hiddenDeliveries"`
	ActiveCount      int        `json:"activeCount"`
	HiddenCount      int        `json:"hiddenCount"`
	TotalCount       int        `json:"totalCount"`
}

type MultiRouteStats struct {
	DriverCount          int     `json:"driverCount"`
	DriversUsed          int     `json:"driversUsed"`
	TotalStops           int     `json:"totalStops"`
	TotalDistanceMeters  float64 `json:"totalDistanceMeters"`
	TotalDurationSeconds float64 `json:"totalDurationSeconds"`
	AvgStopsPerDriver    float64 `json:"avgStopsPerDriver"`
	AvgDistancePerDriver float64 `json:"avgDistancePerDriver"`
}

type MultiRoute struct {
	Routes         []Route          `json:"routes"`
	Assignments    map[string]int   `json:"assignments"`
	Stats          MultiRouteStats  `json:"stats"`
	FailedGeocodes []GeocodeFailure `json:"failedGeocodes"`
}

type OptimizeRouteRequest struct {
	Points        []DeliveryPoint `json:"points" validate:"required,min=1,dive"`
	StartAddress  string          `json:"startAddress"`
	StartTime     *time.Time      `json:"startTime"`
	ReturnToStart bool            `json:"returnToStart"`
}

type OptimizeDriversRequest struct {
	Points        []DeliveryPoint `json:"points" validate:"required,min=1,dive"`
	DriverCount   int             `json:"driverCount"`
	StartAddress  string          `json:"startAddress"`
	StartTime     *time.Time      `json:"startTime"`
	ReturnToStart bool            `json:"returnToStart"`
}

type RebalanceRequest struct {
	Routes        []Route    `json:"routes" validate:"required,min=1"`
	StartAddress  string     `json:"startAddress"`
	StartTime     *time.Time `json:"startTime"`
	ReturnToStart bool       `json:"returnToStart"`
}

func (c Coordinates) ToDomain() domain.Coordinates {
	return domain.Coordinates{Lon: c.Lon, Lat: c.Lat}
}

func FromCoordinates(c domain.Coordinates) Coordinates {
	return Coordinates{Lon: c.Lon, Lat: c.Lat}
}

func (p DeliveryPoint) ToDomain() domain.DeliveryPoint {
	out := domain.DeliveryPoint{
		ID:           p.ID,
		OrderID:      p.OrderID,
		CustomerName: p.CustomerName,
		Street:       p.Street,
		City:         p.City,
		State:        p.State,
		ZipCode:      p.ZipCode,
		OrderValue:   p.OrderValue,
		CustomerTags: p.CustomerTags,
	}
	if p.PreferredWindow != nil {
		out.PreferredWindow = &domain.TimeWindow{Start: p.PreferredWindow.Start, End: p.PreferredWindow.End}
	}
	if p.Coordinates != nil {
		c := p.Coordinates.ToDomain()
		out.Coordinates = &c
	}
	return out
}

func PointsToDomain(points []DeliveryPoint) []domain.DeliveryPoint {
	out := make([]domain.DeliveryPoint, 0, len(points))
	for _, p := range points {
		out = append(out, p.ToDomain())
	}
	return out
}

func FromPoint(p domain.DeliveryPoint) DeliveryPoint {
	out := DeliveryPoint{
		ID:           p.ID,
		OrderID:      p.OrderID,
		CustomerName: p.CustomerName,
		Street:       p.Street,
		City:         p.City,
		State:        p.State,
		ZipCode:      p.ZipCode,
		OrderValue:   p.OrderValue,
		CustomerTags: p.CustomerTags,
	}
	if p.PreferredWindow != nil {
		out.PreferredWindow = &TimeWindow{Start: p.PreferredWindow.Start, End: p.PreferredWindow.End}
	}
	if p.Coordinates != nil {
		c := FromCoordinates(*p.Coordinates)
		out.Coordinates = &c
	}
	return out
}

func fromSlots(slots []domain.TimeSlot) []TimeSlot {
	out := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		out = append(out, TimeSlot{
			Point:     FromPoint(s.Point),
			StopIndex: s.StopIndex,
			Start:     s.Start,
			End:       s.End,
			Travel:    Travel(s.Travel),
		})
	}
	return out
}

func toSlots(slots []TimeSlot) []domain.TimeSlot {
	out := make([]domain.TimeSlot, 0, len(slots))
	for _, s := range slots {
		out = append(out, domain.TimeSlot{
			Point:     s.Point.ToDomain(),
			StopIndex: s.StopIndex,
			Start:     s.Start,
			End:       s.End,
			Travel:    domain.TravelInfo(s.Travel),
		})
	}
	return out
}

func FromFailures(failures []domain.GeocodeFailure) []GeocodeFailure {
	out := make([]GeocodeFailure, 0, len(failures))
	for _, f := range failures {
		out = append(out, GeocodeFailure(f))
	}
	return out
}

func FromRoute(r domain.OptimizedRoute) Route {
	order := r.DeliveryOrder
	if order == nil {
		order = []string{}
	}
	return Route{
		SessionID:            r.SessionID,
		DriverIndex:          r.DriverIndex,
		TimeSlots:            fromSlots(r.TimeSlots),
		DeliveryOrder:        order,
		TotalDistanceMeters:  r.TotalDistanceMeters,
		TotalDurationSeconds: r.TotalDurationSeconds,
		ReturnLeg:            Travel(r.ReturnLeg),
		Geometry:             json.RawMessage(r.Geometry),
		StartAddress:         r.StartAddress,
		StartCoordinates:     FromCoordinates(r.StartCoordinates),
		ReturnToStart:        r.ReturnToStart,
		StartTime:            r.StartTime,
		EndTime:              r.EndTime,
		FailedGeocodes:       FromFailures(r.FailedGeocodes),
	}
}

// ToDomain rebuilds a route sent back by a client. DeliveryOrder is derived from the slots.
func (r Route) ToDomain() domain.OptimizedRoute {
	slots := toSlots(r.TimeSlots)
	order := make([]string, 0, len(slots))
	for _, s := range slots {
		order = append(order, s.Point.ID)
	}

	failures := make([]domain.GeocodeFailure, 0, len(r.FailedGeocodes))
	for _, f := range r.FailedGeocodes {
		failures = append(failures, domain.GeocodeFailure(f))
	}

	return domain.OptimizedRoute{
		SessionID:            r.SessionID,
		DriverIndex:          r.DriverIndex,
		TimeSlots:            slots,
		DeliveryOrder:        order,
		TotalDistanceMeters:  r.TotalDistanceMeters,
		TotalDurationSeconds: r.TotalDurationSeconds,
		ReturnLeg:            domain.TravelInfo(r.ReturnLeg),
		Geometry:             domain.RouteGeometry(r.Geometry),
		StartAddress:         r.StartAddress,
		StartCoordinates:     r.StartCoordinates.ToDomain(),
		ReturnToStart:        r.ReturnToStart,
		StartTime:            r.StartTime,
		EndTime:              r.EndTime,
		FailedGeocodes:       failures,
	}
}

func RoutesToDomain(routes []Route) []domain.OptimizedRoute {
	out := make([]domain.OptimizedRoute, 0, len(routes))
	for _, r := range routes {
		out = append(out, r.ToDomain())
	}
	return out
}

func FromRouteView(v domain.RouteView) RouteView {
	return RouteView{
		Route:            FromRoute(v.OptimizedRoute),
		Date:             v.Date,
		HiddenDeliveries: fromSlots(v.HiddenDeliveries),
		ActiveCount:      v.ActiveCount,
		HiddenCount:      v.HiddenCount,
		TotalCount:       v.TotalCount,
	}
}

func FromMultiRoute(m domain.MultiRouteResult) MultiRoute {
	routes := make([]Route, 0, len(m.Routes))
	for _, r := range m.Routes {
		routes = append(routes, FromRoute(r))
	}
	assignments := m.Assignments
	if assignments == nil {
		assignments = map[string]int{}
	}
	return MultiRoute{
		Routes:         routes,
		Assignments:    assignments,
		Stats:          MultiRouteStats(m.Stats),
		FailedGeocodes: FromFailures(m.FailedGeocodes),
	}
}
