package dto

import "route-scheduling-service/internal/domain"

type HideRequest struct {
	Date     string   `json:"date" validate:"required"`
	PointIDs []string `json:"pointIds" validate:"required,min=1"`
	// Reason defaults to manual.
	Reason string `json:"reason"`
}

type ShowRequest struct {
	Date     string   `json:"date" validate:"required"`
	PointIDs []string `json:"pointIds" validate:"required,min=1"`
}

type ShowAllRequest struct {
	Date string `json:"date" validate:"required"`
}

type VisibilityChangeResponse struct {
	Date    string `json:"date"`
	Changed int    `json:"changed"`
}

type HiddenResponse struct {
	Date   string              `json:"date"`
	Hidden []domain.HideRecord `json:"hidden"`
}

type ApplyVisibilityRequest struct {
	Date  string `json:"date" validate:"required"`
	Route Route  `json:"route"`
}

type CriteriaRequest struct {
	Date     string              `json:"date" validate:"required"`
	Points   []DeliveryPoint     `json:"points" validate:"required,min=1,dive"`
	Criteria domain.HideCriteria `json:"criteria"`
}

type CriteriaResponse struct {
	Date    string   `json:"date"`
	Matched []string `json:"matched"`
	Hidden  int      `json:"hidden"`
}

type SaveTemplateRequest struct {
	Name        string              `json:"name" validate:"required"`
	Description string              `json:"description"`
	Criteria    domain.HideCriteria `json:"criteria"`
}

type ApplyTemplateRequest struct {
	Name   string          `json:"name" validate:"required"`
	Date   string          `json:"date" validate:"required"`
	Points []DeliveryPoint `json:"points" validate:"required,min=1,dive"`
}

type TemplatesResponse struct {
	Templates []domain.HideTemplate `json:"templates"`
}
