package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/platform/obs"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Geocoder resolves addresses through an OpenStreetMap Nominatim instance.
// Public instances allow one request per second; results are cached in process.
type Geocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter

	mu    sync.Mutex
	cache map[string]domain.Coordinates
}

type Options struct {
	BaseURL     string
	UserAgent   string
	MinInterval time.Duration
	HTTPClient  *http.Client
}

func New(opts Options) *Geocoder {
	g := &Geocoder{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		client:    opts.HTTPClient,
		cache:     map[string]domain.Coordinates{},
	}
	if g.baseURL == "" {
		g.baseURL = "https://nominatim.openstreetmap.org"
	}
	if g.userAgent == "" {
		g.userAgent = "route-scheduling-service"
	}
	if g.client == nil {
		g.client = &http.Client{Timeout: 10 * time.Second}
	}

	interval := opts.MinInterval
	if interval <= 0 {
		interval = time.Second
	}
	g.limiter = rate.NewLimiter(rate.Every(interval), 1)
	return g
}

type item struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (g *Geocoder) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "nominatim.Geocode")(&err)

	query := strings.Join(strings.Fields(address), " ")
	if query == "" {
		return domain.Coordinates{}, &domain.GeocodingError{Address: address, Err: errors.New("empty address")}
	}

	g.mu.Lock()
	cached, ok := g.cache[query]
	g.mu.Unlock()
	if ok {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.baseURL, url.QueryEscape(query))
	var items []item
	if err := g.get(ctx, endpoint, &items); err != nil {
		return domain.Coordinates{}, &domain.GeocodingError{Address: query, Err: err}
	}

	c, err := parseItems(items)
	if err != nil {
		return domain.Coordinates{}, &domain.GeocodingError{Address: query, Err: err}
	}
	if c == nil {
		return domain.Coordinates{}, &domain.GeocodingError{Address: query}
	}

	g.mu.Lock()
	g.cache[query] = *c
	g.mu.Unlock()

	return *c, nil
}

func (g *Geocoder) ReverseGeocode(ctx context.Context, point domain.Coordinates) (_ string, err error) {
	defer obs.Time(ctx, "nominatim.ReverseGeocode")(&err)

	endpoint := fmt.Sprintf("%s/reverse?lat=%s&lon=%s&format=json",
		g.baseURL,
		strconv.FormatFloat(point.Lat, 'f', -1, 64),
		strconv.FormatFloat(point.Lon, 'f', -1, 64),
	)

	var res struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := g.get(ctx, endpoint, &res); err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	if res.Error != "" {
		return "", nil
	}
	return res.DisplayName, nil
}

func (g *Geocoder) get(ctx context.Context, endpoint string, out any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("nominatim http error: %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// parseItems returns nil when the response holds no usable match.
func parseItems(items []item) (*domain.Coordinates, error) {
	if len(items) == 0 {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(items[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(items[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lon: %w", err)
	}
	c := domain.Coordinates{Lon: lon, Lat: lat}
	if !c.Valid() {
		return nil, nil
	}
	return &c, nil
}
