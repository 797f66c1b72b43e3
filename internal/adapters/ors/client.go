package ors

import (
	"context"
	"errors"
	"net/http"
	"route-scheduling-service/internal/domain"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// GeocodeCache is the persistent address cache consulted before the geocoding API.
type GeocodeCache interface {
	Get(ctx context.Context, address string) (domain.Coordinates, bool, error)
	Put(ctx context.Context, address string, c domain.Coordinates) error
}

// MatrixCache is the persistent leg cache consulted before the matrix API.
type MatrixCache interface {
	GetMatrix(ctx context.Context, coords []domain.Coordinates) (domain.DistanceMatrix, bool, error)
	PutMatrix(ctx context.Context, coords []domain.Coordinates, m domain.DistanceMatrix) error
}

// Client implements Geocoder, DistanceMatrixProvider and RouteGeometryProvider
// on top of OpenRouteService.
//
// It coordinates:
//   - Address normalization
//   - Persistent geocode and matrix caching
//   - Client-side request rate limiting
//   - External API calls with retry/backoff
//
// The client is safe for concurrent use.
type Client struct {
	session      *http.Client
	apiKey       string
	baseURL      string
	profile      string
	country      string
	limiter      *rate.Limiter
	geocodeCache GeocodeCache
	matrixCache  MatrixCache
	retryBackoff time.Duration
}

type Options struct {
	BaseURL           string
	Profile           string
	Country           string
	RequestsPerMinute int
	HTTPClient        *http.Client
	GeocodeCache      GeocodeCache
	MatrixCache       MatrixCache
}

func NewClient(apiKey string, opts Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}

	c := &Client{
		session:      opts.HTTPClient,
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		profile:      opts.Profile,
		country:      opts.Country,
		geocodeCache: opts.GeocodeCache,
		matrixCache:  opts.MatrixCache,
		retryBackoff: 200 * time.Millisecond,
	}
	if c.session == nil {
		c.session = &http.Client{Timeout: 10 * time.Second}
	}
	if c.baseURL == "" {
		c.baseURL = "https://api.openrouteservice.org"
	}
	if c.profile == "" {
		c.profile = "driving-car"
	}
	if c.country == "" {
		c.country = "US"
	}

	// ORS quotas are per minute; a zero value disables client-side limiting.
	if opts.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return c, nil
}

// normalize ensures consistent cache keys by collapsing whitespace.
func (c *Client) normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
