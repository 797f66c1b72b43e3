package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/platform/obs"

	"github.com/rs/zerolog"
)

type matrixRequest struct {
	Locations [][]float64 `json:"locations"`
	Metrics   []string    `json:"metrics"`
	Units     string      `json:"units"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// Matrix retrieves the all-to-all distance and duration matrix for coords
// using the OpenRouteService matrix endpoint.
func (c *Client) Matrix(ctx context.Context, coords []domain.Coordinates) (_ domain.DistanceMatrix, err error) {
	defer obs.Time(ctx, "ors.Matrix")(&err)

	if len(coords) < 2 {
		return domain.DistanceMatrix{}, errors.New("matrix: at least two locations are required")
	}

	if c.matrixCache != nil {
		cached, ok, err := c.matrixCache.GetMatrix(ctx, coords)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("distance cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", c.baseURL, c.profile)

	locations := make([][]float64, 0, len(coords))
	for _, co := range coords {
		locations = append(locations, co.CoordsToList())
	}

	payload, err := json.Marshal(matrixRequest{
		Locations: locations,
		Metrics:   []string{"distance", "duration"},
		Units:     "m",
	})
	if err != nil {
		return domain.DistanceMatrix{}, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return domain.DistanceMatrix{}, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return domain.DistanceMatrix{}, fmt.Errorf("decode matrix response: %w", err)
	}

	out, err := toDomainMatrix(mr, len(coords))
	if err != nil {
		return domain.DistanceMatrix{}, err
	}

	if c.matrixCache != nil {
		if err := c.matrixCache.PutMatrix(ctx, coords, out); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("distance cache write failed")
		}
	}

	return out, nil
}

// toDomainMatrix validates the response shape. ORS reports unroutable pairs as null.
func toDomainMatrix(mr matrixResponse, n int) (domain.DistanceMatrix, error) {
	if len(mr.Distances) != n || len(mr.Durations) != n {
		return domain.DistanceMatrix{}, fmt.Errorf(
			"expected %d rows; got distances=%d durations=%d",
			n, len(mr.Distances), len(mr.Durations),
		)
	}

	out := domain.DistanceMatrix{
		Distances: make([][]float64, n),
		Durations: make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		if len(mr.Distances[i]) != n || len(mr.Durations[i]) != n {
			return domain.DistanceMatrix{}, fmt.Errorf("row %d length does not match %d locations", i, n)
		}
		out.Distances[i] = make([]float64, n)
		out.Durations[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			d, s := mr.Distances[i][j], mr.Durations[i][j]
			if d == nil || s == nil {
				return domain.DistanceMatrix{}, fmt.Errorf("matrix returned no route between locations %d and %d", i, j)
			}
			out.Distances[i][j] = *d
			out.Durations[i][j] = *s
		}
	}
	return out, nil
}
