package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/platform/obs"
)

type directionsRequest struct {
	Coordinates  [][]float64 `json:"coordinates"`
	Instructions bool        `json:"instructions"`
}

// Geometry fetches the GeoJSON path for the ordered coordinates (/v2/directions/{profile}/geojson).
// The response document is returned untouched.
func (c *Client) Geometry(ctx context.Context, ordered []domain.Coordinates) (_ domain.RouteGeometry, err error) {
	defer obs.Time(ctx, "ors.Geometry")(&err)

	if len(ordered) < 2 {
		return nil, errors.New("geometry: at least two coordinates are required")
	}

	coords := make([][]float64, 0, len(ordered))
	for _, co := range ordered {
		coords = append(coords, co.CoordsToList())
	}

	payload, err := json.Marshal(directionsRequest{Coordinates: coords})
	if err != nil {
		return nil, fmt.Errorf("marshal directions request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", c.baseURL, c.profile)
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read directions response: %w", err)
	}
	if !json.Valid(body) {
		return nil, errors.New("directions response is not valid JSON")
	}

	return domain.RouteGeometry(body), nil
}
