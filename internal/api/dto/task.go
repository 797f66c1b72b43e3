package dto

import (
	"route-scheduling-service/internal/domain"
	"time"
)

type ConversionOptions struct {
	Granularity           string           `json:"granularity" validate:"omitempty,oneof=individual consolidated"`
	PaymentCalculation    string           `json:"paymentCalculation" validate:"omitempty,oneof=template custom none"`
	CustomPayment         float64          `json:"customPayment"`
	SchedulingOffsetHours float64          `json:"schedulingOffsetHours"`
	AssignedWorkers       []string         `json:"assignedWorkers"`
	WorkersByDriver       map[int][]string `json:"workersByDriver"`
}

// ConvertRequest carries either a single route or the routes of a multi-driver plan.
type ConvertRequest struct {
	Route    *Route            `json:"route"`
	Routes   []Route           `json:"routes"`
	Template string            `json:"template"`
	Options  ConversionOptions `json:"options"`
}

type WorkItem struct {
	ID               string     `json:"id,omitempty"`
	Title            string     `json:"title" validate:"required"`
	Description      string     `json:"description"`
	ScheduledAt      *time.Time `json:"scheduledAt,omitempty"`
	PaymentAmount    *float64   `json:"paymentAmount,omitempty" validate:"omitempty,gte=0"`
	AssignedWorkers  []string   `json:"assignedWorkers,omitempty"`
	OrderIDs         []string   `json:"orderIds"`
	DeliveryPointIDs []string   `json:"deliveryPointIds"`
	Customers        []string   `json:"customers"`
	RouteSessionID   string     `json:"routeSessionId"`
	StopIndex        *int       `json:"stopIndex,omitempty"`
	DriverIndex      int        `json:"driverIndex"`
	Warnings         []string   `json:"warnings,omitempty"`
}

type RouteMetadata struct {
	SessionID            string    `json:"sessionId"`
	DriverIndex          int       `json:"driverIndex"`
	StopCount            int       `json:"stopCount"`
	TotalDistanceMeters  float64   `json:"totalDistanceMeters"`
	TotalDurationSeconds float64   `json:"totalDurationSeconds"`
	StartTime            time.Time `json:"startTime"`
	EndTime              time.Time `json:"endTime"`
}

// ConversionIssue is a per-stop warning or error. StopIndex -1 refers to a whole route.
type ConversionIssue struct {
	StopIndex int    `json:"stopIndex"`
	PointID   string `json:"pointId,omitempty"`
	Message   string `json:"message"`
}

type ConvertResponse struct {
	Tasks         []WorkItem        `json:"tasks"`
	RouteMetadata []RouteMetadata   `json:"routeMetadata"`
	Errors        []ConversionIssue `json:"errors"`
	Warnings      []ConversionIssue `json:"warnings"`
}

type BatchRequest struct {
	Tasks             []WorkItem `json:"tasks" validate:"required,min=1,dive"`
	MaxConcurrency    int        `json:"maxConcurrency"`
	ContinueOnError   bool       `json:"continueOnError"`
	RollbackOnFailure bool       `json:"rollbackOnFailure"`
}

type TaskFailure struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Error string `json:"error"`
}

type BatchResponse struct {
	Created           []WorkItem    `json:"created"`
	Failed            []TaskFailure `json:"failed"`
	Total             int           `json:"total"`
	RollbackPerformed bool          `json:"rollbackPerformed"`
}

type TaskTemplatesResponse struct {
	Templates []string `json:"templates"`
}

func FromWorkItem(w domain.WorkItem) WorkItem {
	return WorkItem{
		ID:               w.ID,
		Title:            w.Title,
		Description:      w.Description,
		ScheduledAt:      w.ScheduledAt,
		PaymentAmount:    w.PaymentAmount,
		AssignedWorkers:  w.AssignedWorkers,
		OrderIDs:         w.OrderIDs,
		DeliveryPointIDs: w.DeliveryPointIDs,
		Customers:        w.Customers,
		RouteSessionID:   w.RouteSessionID,
		StopIndex:        w.StopIndex,
		DriverIndex:      w.DriverIndex,
		Warnings:         w.Warnings,
	}
}

func FromWorkItems(items []domain.WorkItem) []WorkItem {
	out := make([]WorkItem, 0, len(items))
	for _, w := range items {
		out = append(out, FromWorkItem(w))
	}
	return out
}

// ToDomain drops any client supplied id; ids are assigned by the task store.
func (w WorkItem) ToDomain() domain.WorkItem {
	return domain.WorkItem{
		Title:            w.Title,
		Description:      w.Description,
		ScheduledAt:      w.ScheduledAt,
		PaymentAmount:    w.PaymentAmount,
		AssignedWorkers:  w.AssignedWorkers,
		OrderIDs:         w.OrderIDs,
		DeliveryPointIDs: w.DeliveryPointIDs,
		Customers:        w.Customers,
		RouteSessionID:   w.RouteSessionID,
		StopIndex:        w.StopIndex,
		DriverIndex:      w.DriverIndex,
		Warnings:         w.Warnings,
	}
}
