package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"route-scheduling-service/internal/domain"
	"testing"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &domain.ValidationError{Field: "driverCount"}, http.StatusBadRequest},
		{"geocoding", &domain.GeocodingError{Address: "x"}, http.StatusUnprocessableEntity},
		{"sanity inside optimization", &domain.OptimizationError{Op: "route for driver 1", Err: &domain.SanityError{}}, http.StatusUnprocessableEntity},
		{"geocoding start address", &domain.OptimizationError{Op: "geocode start address", Err: &domain.GeocodingError{}}, http.StatusUnprocessableEntity},
		{"upstream", &domain.OptimizationError{Op: "distance matrix", Err: errors.New("timeout")}, http.StatusBadGateway},
		{"template", fmt.Errorf("task template %q: %w", "x", domain.ErrTemplateNotFound), http.StatusNotFound},
		{"order", domain.ErrOrderNotFound, http.StatusNotFound},
		{"other", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}
