package handlers

import (
	"net/http"
	"route-scheduling-service/internal/api/dto"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/services"
	"strings"
	"time"
)

type RouteHandler struct {
	Optimizer  *services.RouteOptimizer
	Drivers    *services.MultiDriverOptimizer
	DefaultHub string
	Now        func() time.Time
}

func (h *RouteHandler) startAddress(requested string) string {
	if s := strings.TrimSpace(requested); s != "" {
		return s
	}
	return strings.TrimSpace(h.DefaultHub)
}

func (h *RouteHandler) startTime(requested *time.Time) time.Time {
	if requested != nil {
		return *requested
	}
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Optimize plans a single route through every geocodable point.
func (h *RouteHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.OptimizeRouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	route, err := h.Optimizer.Optimize(r.Context(), services.OptimizeRequest{
		Points:        dto.PointsToDomain(req.Points),
		StartAddress:  h.startAddress(req.StartAddress),
		StartTime:     h.startTime(req.StartTime),
		ReturnToStart: req.ReturnToStart,
	})
	if err != nil {
		writeServiceError(w, r, "optimize route", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.FromRoute(*route))
}

// OptimizeDrivers splits the points across driverCount drivers.
func (h *RouteHandler) OptimizeDrivers(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.OptimizeDriversRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Drivers.OptimizeForDrivers(r.Context(), services.MultiDriverRequest{
		Points:        dto.PointsToDomain(req.Points),
		DriverCount:   req.DriverCount,
		StartAddress:  h.startAddress(req.StartAddress),
		StartTime:     h.startTime(req.StartTime),
		ReturnToStart: req.ReturnToStart,
	})
	if err != nil {
		writeServiceError(w, r, "optimize for drivers", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.FromMultiRoute(*res))
}

// Rebalance re-splits the points of an existing multi-driver plan.
func (h *RouteHandler) Rebalance(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.RebalanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	existing := &domain.MultiRouteResult{Routes: dto.RoutesToDomain(req.Routes)}
	res, err := h.Drivers.Rebalance(r.Context(), existing, services.RebalanceRequest{
		StartAddress:  h.startAddress(req.StartAddress),
		StartTime:     h.startTime(req.StartTime),
		ReturnToStart: req.ReturnToStart,
	})
	if err != nil {
		writeServiceError(w, r, "rebalance routes", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.FromMultiRoute(*res))
}
