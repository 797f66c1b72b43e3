package domain

import "time"

// PaymentType selects how a task payment is derived from an order total.
type PaymentType string

const (
	PaymentFixed      PaymentType = "fixed"
	PaymentPercentage PaymentType = "percentage"
	PaymentFormula    PaymentType = "formula"
)

type PaymentRule struct {
	Type          PaymentType `yaml:"type"`
	BaseAmount    float64     `yaml:"baseAmount"`
	Percentage    float64     `yaml:"percentage"`
	MinimumAmount *float64    `yaml:"minimumAmount"`
	MaximumAmount *float64    `yaml:"maximumAmount"`
}

// ScheduleAnchor is the order date a task schedule is computed from.
type ScheduleAnchor string

const (
	AnchorDeliveryDate ScheduleAnchor = "delivery_date"
	AnchorEventDate    ScheduleAnchor = "event_date"
	AnchorManual       ScheduleAnchor = "manual"
)

type SchedulingRule struct {
	RelativeTo        ScheduleAnchor `yaml:"relativeTo"`
	OffsetDays        int            `yaml:"offsetDays"`
	DefaultTime       string         `yaml:"defaultTime"`
	BusinessHoursOnly bool           `yaml:"businessHoursOnly"`
}

// TaskTemplate describes how a work item is generated from an order.
// ConsolidatedPayment, when present, replaces the per-stop payment sum of a consolidated task.
type TaskTemplate struct {
	Name                string         `yaml:"name"`
	TitlePattern        string         `yaml:"title"`
	DescriptionPattern  string         `yaml:"description"`
	Payment             PaymentRule    `yaml:"payment"`
	ConsolidatedPayment *PaymentRule   `yaml:"consolidatedPayment"`
	Scheduling          SchedulingRule `yaml:"scheduling"`
}

// WorkItem is a schedulable, priced task derived from a route.
// It is created by the converter and persisted by the batch creator.
type WorkItem struct {
	ID               string
	Title            string
	Description      string
	ScheduledAt      *time.Time
	PaymentAmount    *float64
	AssignedWorkers  []string
	OrderIDs         []string
	DeliveryPointIDs []string
	Customers        []string
	RouteSessionID   string
	StopIndex        *int
	DriverIndex      int
	Warnings         []string
}
