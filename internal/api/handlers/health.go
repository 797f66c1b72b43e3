package handlers

import (
	"context"
	"net/http"
	"time"
)

// Check pings one dependency, such as the database or Redis.
type Check func(ctx context.Context) error

type HealthHandler struct {
	Checks map[string]Check
}

// Health provides a minimal liveness check endpoint.
func Health(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	res := map[string]string{"status": "ok"}
	writeJSON(w, r, http.StatusOK, res)
}

// Ready pings every registered dependency and reports 503 if any fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	res := map[string]string{}
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			res[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		res[name] = "ok"
	}
	writeJSON(w, r, status, res)
}
