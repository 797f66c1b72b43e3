package handlers

import (
	"fmt"
	"net/http"
	"route-scheduling-service/internal/api/dto"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/ports"
	"route-scheduling-service/internal/services"
	"strings"

	"github.com/rs/zerolog"
)

type TaskHandler struct {
	Converter *services.RouteToTaskConverter
	Creator   *services.BatchTaskCreator
	Catalog   ports.TemplateCatalog
}

// Templates lists the task template names from the catalog.
func (h *TaskHandler) Templates(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, r, http.StatusOK, dto.TaskTemplatesResponse{Templates: h.Catalog.Names()})
}

// Convert turns a route (or the routes of a multi-driver plan) into work items.
func (h *TaskHandler) Convert(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.ConvertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if (req.Route == nil) == (len(req.Routes) == 0) {
		writeError(w, r, http.StatusBadRequest, "exactly one of route or routes is required")
		return
	}

	var tpl *domain.TaskTemplate
	if name := strings.TrimSpace(req.Template); name != "" {
		t, ok := h.Catalog.Template(name)
		if !ok {
			writeServiceError(w, r, "convert routes", fmt.Errorf("task template %q: %w", name, domain.ErrTemplateNotFound))
			return
		}
		tpl = &t
	}

	opts := services.ConversionOptions{
		Granularity:           services.Granularity(req.Options.Granularity),
		PaymentCalculation:    services.PaymentSource(req.Options.PaymentCalculation),
		CustomPayment:         req.Options.CustomPayment,
		SchedulingOffsetHours: req.Options.SchedulingOffsetHours,
		AssignedWorkers:       req.Options.AssignedWorkers,
		WorkersByDriver:       req.Options.WorkersByDriver,
	}

	var (
		res *services.ConversionResult
		err error
	)
	if req.Route != nil {
		route := req.Route.ToDomain()
		res, err = h.Converter.ConvertSingleRoute(r.Context(), &route, opts, tpl)
	} else {
		multi := &domain.MultiRouteResult{Routes: dto.RoutesToDomain(req.Routes)}
		res, err = h.Converter.ConvertMultipleRoutes(r.Context(), multi, opts, tpl)
	}
	if err != nil {
		writeServiceError(w, r, "convert routes", err)
		return
	}

	writeJSON(w, r, http.StatusOK, convertResponse(res))
}

// Batch persists work items with bounded concurrency.
func (h *TaskHandler) Batch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.BatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]domain.WorkItem, 0, len(req.Tasks))
	for _, t := range req.Tasks {
		items = append(items, t.ToDomain())
	}

	logger := zerolog.Ctx(r.Context())
	res, err := h.Creator.CreateTasks(r.Context(), items, services.BatchOptions{
		MaxConcurrency:    req.MaxConcurrency,
		ContinueOnError:   req.ContinueOnError,
		RollbackOnFailure: req.RollbackOnFailure,
		OnProgress: func(p services.Progress) {
			logger.Debug().
				Int("completed", p.Completed).
				Int("failed", p.Failed).
				Int("total", p.Total).
				Msg("batch progress")
		},
	})
	if err != nil {
		writeServiceError(w, r, "create tasks", err)
		return
	}

	out := dto.BatchResponse{
		Created:           dto.FromWorkItems(res.Created),
		Failed:            make([]dto.TaskFailure, 0, len(res.Failed)),
		Total:             res.Total,
		RollbackPerformed: res.RollbackPerformed,
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, dto.TaskFailure{Index: f.Index, Title: f.Title, Error: f.Err.Error()})
	}

	status := http.StatusCreated
	if len(res.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, r, status, out)
}

func convertResponse(res *services.ConversionResult) dto.ConvertResponse {
	out := dto.ConvertResponse{
		Tasks:         dto.FromWorkItems(res.Tasks),
		RouteMetadata: make([]dto.RouteMetadata, 0, len(res.RouteMetadata)),
		Errors:        make([]dto.ConversionIssue, 0, len(res.Errors)),
		Warnings:      make([]dto.ConversionIssue, 0, len(res.Warnings)),
	}
	for _, m := range res.RouteMetadata {
		out.RouteMetadata = append(out.RouteMetadata, dto.RouteMetadata(m))
	}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, dto.ConversionIssue{StopIndex: e.StopIndex, PointID: e.PointID, Message: e.Err.Error()})
	}
	for _, wn := range res.Warnings {
		out.Warnings = append(out.Warnings, dto.ConversionIssue{StopIndex: wn.StopIndex, PointID: wn.PointID, Message: wn.Message})
	}
	return out
}
