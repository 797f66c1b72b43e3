package mock

import (
	"context"
	"route-scheduling-service/internal/domain"
	"strings"
	"sync"
)

// Geocoder resolves addresses from a fixed table. Unknown addresses fail
// with *domain.GeocodingError, the same way a real provider reports no match.
type Geocoder struct {
	mu        sync.Mutex
	addresses map[string]domain.Coordinates
	calls     []string
}

func NewGeocoder(addresses map[string]domain.Coordinates) *Geocoder {
	m := make(map[string]domain.Coordinates, len(addresses))
	for a, c := range addresses {
		m[key(a)] = c
	}
	return &Geocoder{addresses: m}
}

// Add registers (or replaces) one address.
func (g *Geocoder) Add(address string, c domain.Coordinates) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addresses[key(address)] = c
}

func (g *Geocoder) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, address)
	c, ok := g.addresses[key(address)]
	if !ok {
		return domain.Coordinates{}, &domain.GeocodingError{Address: address}
	}
	return c, nil
}

func (g *Geocoder) ReverseGeocode(ctx context.Context, c domain.Coordinates) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for a, co := range g.addresses {
		if co == c {
			return a, nil
		}
	}
	return "", nil
}

// Calls returns the addresses passed to Geocode, in call order.
func (g *Geocoder) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func key(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}
