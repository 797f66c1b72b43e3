package ors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/platform/obs"
	"strconv"

	"github.com/rs/zerolog"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode resolves one address using OpenRouteService (/geocode/search).
// Every failure, transport errors included, is reported as *domain.GeocodingError
// so callers can attribute it to the address.
func (c *Client) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	norm := c.normalize(address)
	if norm == "" {
		return domain.Coordinates{}, &domain.GeocodingError{Address: address, Err: errors.New("empty address")}
	}

	if c.geocodeCache != nil {
		cached, ok, err := c.geocodeCache.Get(ctx, norm)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("geocode cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	endpoint := c.baseURL + "/geocode/search"
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", norm)
		q.Set("boundary.country", c.country)
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Coordinates{}, &domain.GeocodingError{Address: norm, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, &domain.GeocodingError{Address: norm, Err: fmt.Errorf("decode geocode response: %w", err)}
	}

	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, &domain.GeocodingError{Address: norm}
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Coordinates{}, &domain.GeocodingError{Address: norm, Err: errors.New("invalid coordinate format")}
	}

	out := domain.Coordinates{Lon: coords[0], Lat: coords[1]}
	if !out.Valid() {
		return domain.Coordinates{}, &domain.GeocodingError{Address: norm, Err: fmt.Errorf("invalid coordinates %v", coords)}
	}

	if c.geocodeCache != nil {
		if err := c.geocodeCache.Put(ctx, norm, out); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("geocode cache write failed")
		}
	}

	return out, nil
}

// ReverseGeocode returns the best label for a coordinate, or "" when ORS knows none.
func (c *Client) ReverseGeocode(ctx context.Context, point domain.Coordinates) (_ string, err error) {
	defer obs.Time(ctx, "ors.ReverseGeocode")(&err)

	if !point.Valid() {
		return "", fmt.Errorf("reverse geocode: invalid coordinates %v", point.CoordsToList())
	}

	endpoint := c.baseURL + "/geocode/reverse"
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("point.lon", strconv.FormatFloat(point.Lon, 'f', -1, 64))
		q.Set("point.lat", strconv.FormatFloat(point.Lat, 'f', -1, 64))
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode: execute request: %w", err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("reverse geocode: decode response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return "", nil
	}
	return decoded.Features[0].Properties.Label, nil
}
