package handlers

import (
	"net/http"
	"route-scheduling-service/internal/api/dto"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/services"
	"strings"
)

type VisibilityHandler struct {
	Overlay *services.VisibilityOverlay
}

func (h *VisibilityHandler) Hide(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.HideRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reason := domain.HideReason(strings.TrimSpace(req.Reason))
	if reason == "" {
		reason = domain.HideReasonManual
	}

	n, err := h.Overlay.HideMany(r.Context(), req.Date, req.PointIDs, reason)
	if err != nil {
		writeServiceError(w, r, "hide points", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.VisibilityChangeResponse{Date: req.Date, Changed: n})
}

func (h *VisibilityHandler) Show(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.ShowRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.Overlay.ShowMany(r.Context(), req.Date, req.PointIDs)
	if err != nil {
		writeServiceError(w, r, "show points", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.VisibilityChangeResponse{Date: req.Date, Changed: n})
}

func (h *VisibilityHandler) ShowAll(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.ShowAllRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.Overlay.ShowAll(r.Context(), req.Date)
	if err != nil {
		writeServiceError(w, r, "show all points", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.VisibilityChangeResponse{Date: req.Date, Changed: n})
}

// Hidden lists the hide records of ?date=YYYY-MM-DD.
func (h *VisibilityHandler) Hidden(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	date := r.URL.Query().Get("date")
	records, err := h.Overlay.Hidden(r.Context(), date)
	if err != nil {
		writeServiceError(w, r, "list hidden points", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.HiddenResponse{Date: date, Hidden: records})
}

// Apply returns the route as seen on the given date.
func (h *VisibilityHandler) Apply(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.ApplyVisibilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	route := req.Route.ToDomain()
	view, err := h.Overlay.ApplyToRoute(r.Context(), &route, req.Date)
	if err != nil {
		writeServiceError(w, r, "apply visibility", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromRouteView(*view))
}

func (h *VisibilityHandler) Criteria(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.CriteriaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	matched, n, err := h.Overlay.HideByCriteria(r.Context(), req.Date, dto.PointsToDomain(req.Points), req.Criteria)
	if err != nil {
		writeServiceError(w, r, "hide by criteria", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.CriteriaResponse{Date: req.Date, Matched: matched, Hidden: n})
}

// Templates lists (GET), saves (POST) or deletes (DELETE ?name=) hide templates.
func (h *VisibilityHandler) Templates(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodPost, http.MethodDelete) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		list, err := h.Overlay.Templates(r.Context())
		if err != nil {
			writeServiceError(w, r, "list hide templates", err)
			return
		}
		writeJSON(w, r, http.StatusOK, dto.TemplatesResponse{Templates: list})

	case http.MethodPost:
		var req dto.SaveTemplateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		saved, err := h.Overlay.SaveTemplate(r.Context(), domain.HideTemplate{
			Name:        req.Name,
			Description: req.Description,
			Criteria:    req.Criteria,
		})
		if err != nil {
			writeServiceError(w, r, "save hide template", err)
			return
		}
		writeJSON(w, r, http.StatusCreated, saved)

	case http.MethodDelete:
		if err := h.Overlay.DeleteTemplate(r.Context(), r.URL.Query().Get("name")); err != nil {
			writeServiceError(w, r, "delete hide template", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *VisibilityHandler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.ApplyTemplateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	matched, n, err := h.Overlay.ApplyTemplate(r.Context(), req.Name, dto.PointsToDomain(req.Points), req.Date)
	if err != nil {
		writeServiceError(w, r, "apply hide template", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.CriteriaResponse{Date: req.Date, Matched: matched, Hidden: n})
}
