package domain

import (
	"strings"
	"time"
)

// TimeWindow is a customer's preferred arrival window.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Represents a single address-bearing unit of work to visit on a route.
// Coordinates are populated by a Geocoder; a point whose address cannot be
// resolved never enters a route and is reported as a GeocodeFailure instead.
type DeliveryPoint struct {
	ID              string
	OrderID         string
	CustomerName    string
	Street          string
	City            string
	State           string
	ZipCode         string
	PreferredWindow *TimeWindow
	OrderValue      float64
	CustomerTags    []string
	Coordinates     *Coordinates
}

// HasCompleteAddress reports whether every address field required for geocoding is present.
func (p DeliveryPoint) HasCompleteAddress() bool {
	for _, f := range []string{p.Street, p.City, p.State, p.ZipCode} {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

// Address joins the address fields into a single geocoder query.
func (p DeliveryPoint) Address() string {
	parts := make([]string, 0, 3)
	for _, f := range []string{p.Street, p.City} {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}

	stateZip := strings.TrimSpace(strings.TrimSpace(p.State) + " " + strings.TrimSpace(p.ZipCode))
	if stateZip != "" {
		parts = append(parts, stateZip)
	}
	return strings.Join(parts, ", ")
}

// GeocodeFailure records why a delivery point could not be placed on a route.
type GeocodeFailure struct {
	PointID string
	Address string
	Reason  string
}
