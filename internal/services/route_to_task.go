package services

import (
	"context"
	"fmt"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/platform/obs"
	"route-scheduling-service/internal/ports"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Granularity string

const (
	GranularityIndividual   Granularity = "individual"
	GranularityConsolidated Granularity = "consolidated"
)

type PaymentSource string

const (
	PaymentFromTemplate PaymentSource = "template"
	PaymentCustom       PaymentSource = "custom"
	PaymentNone         PaymentSource = "none"
)

type ConversionOptions struct {
	Granularity           Granularity
	PaymentCalculation    PaymentSource
	CustomPayment         float64
	SchedulingOffsetHours float64
	AssignedWorkers       []string
	// WorkersByDriver replaces AssignedWorkers for the listed driver indexes.
	WorkersByDriver map[int][]string
}

type RouteMetadata struct {
	SessionID            string
	DriverIndex          int
	StopCount            int
	TotalDistanceMeters  float64
	TotalDurationSeconds float64
	StartTime            time.Time
	EndTime              time.Time
}

// ConversionResult carries the produced work items together with the
// per-stop problems met along the way.
type ConversionResult struct {
	Tasks         []domain.WorkItem
	RouteMetadata []RouteMetadata
	Errors        []*domain.ConversionError
	Warnings      []domain.ConversionWarning
}

func (r *ConversionResult) merge(o *ConversionResult) {
	r.Tasks = append(r.Tasks, o.Tasks...)
	r.RouteMetadata = append(r.RouteMetadata, o.RouteMetadata...)
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// RouteToTaskConverter turns optimized routes into work items.
type RouteToTaskConverter struct {
	orders ports.OrderRepository
	engine *TemplateEngine
}

func NewRouteToTaskConverter(orders ports.OrderRepository, engine *TemplateEngine) *RouteToTaskConverter {
	return &RouteToTaskConverter{orders: orders, engine: engine}
}

// stop is one route stop with its order, after the order lookup succeeded.
type stop struct {
	slot     domain.TimeSlot
	order    *domain.Order
	rendered *RenderedTask
	payment  float64
}

// ConvertSingleRoute converts one route. Stops whose order cannot be loaded are
// reported in Errors and skipped; template failures fall back to the default
// title, description and payment and are reported in Warnings.
func (c *RouteToTaskConverter) ConvertSingleRoute(
	ctx context.Context,
	route *domain.OptimizedRoute,
	opts ConversionOptions,
	tpl *domain.TaskTemplate,
) (_ *ConversionResult, err error) {
	defer obs.Time(ctx, "services.ConvertSingleRoute")(&err)

	if route == nil {
		return nil, &domain.ValidationError{Field: "route", Reason: "is required"}
	}
	opts, err = normalizeOptions(opts)
	if err != nil {
		return nil, err
	}

	res := &ConversionResult{
		Tasks:    []domain.WorkItem{},
		Errors:   []*domain.ConversionError{},
		Warnings: []domain.ConversionWarning{},
		RouteMetadata: []RouteMetadata{{
			SessionID:            route.SessionID,
			DriverIndex:          route.DriverIndex,
			StopCount:            len(route.TimeSlots),
			TotalDistanceMeters:  route.TotalDistanceMeters,
			TotalDurationSeconds: route.TotalDurationSeconds,
			StartTime:            route.StartTime,
			EndTime:              route.EndTime,
		}},
	}

	stops := c.loadStops(ctx, route, tpl, res)

	switch opts.Granularity {
	case GranularityIndividual:
		for _, s := range stops {
			res.Tasks = append(res.Tasks, c.individualTask(route, s, opts))
		}
	case GranularityConsolidated:
		if len(stops) > 0 {
			res.Tasks = append(res.Tasks, c.consolidatedTask(route, stops, opts, tpl, res))
		}
	}

	zerolog.Ctx(ctx).Debug().
		Str("session_id", route.SessionID).
		Int("tasks", len(res.Tasks)).
		Int("errors", len(res.Errors)).
		Int("warnings", len(res.Warnings)).
		Msg("route converted")
	return res, nil
}

// ConvertMultipleRoutes converts every non-empty driver route; empty routes are skipped with a warning.
func (c *RouteToTaskConverter) ConvertMultipleRoutes(
	ctx context.Context,
	multi *domain.MultiRouteResult,
	opts ConversionOptions,
	tpl *domain.TaskTemplate,
) (*ConversionResult, error) {
	if multi == nil {
		return nil, &domain.ValidationError{Field: "routes", Reason: "is required"}
	}

	out := &ConversionResult{
		Tasks:         []domain.WorkItem{},
		RouteMetadata: []RouteMetadata{},
		Errors:        []*domain.ConversionError{},
		Warnings:      []domain.ConversionWarning{},
	}
	for i := range multi.Routes {
		route := &multi.Routes[i]
		if len(route.TimeSlots) == 0 {
			out.Warnings = append(out.Warnings, domain.ConversionWarning{
				StopIndex: -1,
				Message:   fmt.Sprintf("driver %d has no stops; route skipped", route.DriverIndex),
			})
			continue
		}

		res, err := c.ConvertSingleRoute(ctx, route, opts, tpl)
		if err != nil {
			return nil, fmt.Errorf("convert route for driver %d: %w", route.DriverIndex, err)
		}
		out.merge(res)
	}
	return out, nil
}

func (c *RouteToTaskConverter) loadStops(ctx context.Context, route *domain.OptimizedRoute, tpl *domain.TaskTemplate, res *ConversionResult) []stop {
	stops := make([]stop, 0, len(route.TimeSlots))
	for _, slot := range route.TimeSlots {
		orderID := slot.Point.OrderID
		if orderID == "" {
			orderID = slot.Point.ID
		}

		order, err := c.orders.GetOrder(ctx, orderID)
		if err != nil {
			res.Errors = append(res.Errors, &domain.ConversionError{
				StopIndex: slot.StopIndex,
				PointID:   slot.Point.ID,
				Err:       fmt.Errorf("load order %q: %w", orderID, err),
			})
			continue
		}

		s := stop{slot: slot, order: order, payment: DefaultPayment(order.Total)}
		if tpl != nil {
			rendered, err := c.engine.Render(*tpl, order)
			if err != nil {
				res.Warnings = append(res.Warnings, domain.ConversionWarning{
					StopIndex: slot.StopIndex,
					PointID:   slot.Point.ID,
					Message:   fmt.Sprintf("template failed, using default task: %v", err),
				})
			} else {
				s.rendered = &rendered
				s.payment = rendered.Payment
				for _, name := range UnknownPlaceholders(tpl.TitlePattern, tpl.DescriptionPattern) {
					res.Warnings = append(res.Warnings, domain.ConversionWarning{
						StopIndex: slot.StopIndex,
						PointID:   slot.Point.ID,
						Message:   fmt.Sprintf("unknown placeholder {%s} rendered empty", name),
					})
				}
				for _, w := range rendered.Schedule.Warnings {
					res.Warnings = append(res.Warnings, domain.ConversionWarning{
						StopIndex: slot.StopIndex,
						PointID:   slot.Point.ID,
						Message:   w,
					})
				}
			}
		}
		stops = append(stops, s)
	}
	return stops
}

func (c *RouteToTaskConverter) individualTask(route *domain.OptimizedRoute, s stop, opts ConversionOptions) domain.WorkItem {
	stopIndex := s.slot.StopIndex
	at := s.slot.Start.Add(hours(opts.SchedulingOffsetHours))

	item := domain.WorkItem{
		Title:            fmt.Sprintf("Delivery: %s (stop %d)", s.order.CustomerName, stopIndex+1),
		Description:      c.defaultDescription(s),
		AssignedWorkers:  workersFor(opts, route.DriverIndex),
		OrderIDs:         []string{s.order.ID},
		DeliveryPointIDs: []string{s.slot.Point.ID},
		Customers:        []string{s.order.CustomerName},
		RouteSessionID:   route.SessionID,
		StopIndex:        &stopIndex,
		DriverIndex:      route.DriverIndex,
	}

	if s.rendered != nil {
		item.Title = s.rendered.Title
		if s.rendered.Description != "" {
			item.Description = s.rendered.Description
		}
		if s.rendered.Schedule.OK {
			at = s.rendered.Schedule.At
		}
		item.Warnings = append(item.Warnings, s.rendered.Schedule.Warnings...)
	}
	item.ScheduledAt = &at

	switch opts.PaymentCalculation {
	case PaymentFromTemplate:
		amount := s.payment
		item.PaymentAmount = &amount
	case PaymentCustom:
		amount := opts.CustomPayment
		item.PaymentAmount = &amount
	}
	return item
}

// consolidatedTask builds one work item for the whole route. A template
// consolidated payment that cannot be computed falls back to the summed
// per-stop payments and is reported in res.Warnings.
func (c *RouteToTaskConverter) consolidatedTask(
	route *domain.OptimizedRoute,
	stops []stop,
	opts ConversionOptions,
	tpl *domain.TaskTemplate,
	res *ConversionResult,
) domain.WorkItem {
	item := domain.WorkItem{
		Title:            fmt.Sprintf("Driver %d route %s: %d stops", route.DriverIndex+1, route.StartTime.Format("2006-01-02"), len(stops)),
		AssignedWorkers:  workersFor(opts, route.DriverIndex),
		OrderIDs:         make([]string, 0, len(stops)),
		DeliveryPointIDs: make([]string, 0, len(stops)),
		Customers:        make([]string, 0, len(stops)),
		RouteSessionID:   route.SessionID,
		DriverIndex:      route.DriverIndex,
	}

	var (
		items    strings.Builder
		schedule strings.Builder
		total    float64
		sum      float64
	)
	seenCustomer := map[string]struct{}{}
	for _, s := range stops {
		item.OrderIDs = append(item.OrderIDs, s.order.ID)
		item.DeliveryPointIDs = append(item.DeliveryPointIDs, s.slot.Point.ID)
		if _, ok := seenCustomer[s.order.CustomerName]; !ok {
			seenCustomer[s.order.CustomerName] = struct{}{}
			item.Customers = append(item.Customers, s.order.CustomerName)
		}

		summary, _ := summarizeItems(s.order.Items)
		if summary == "" {
			summary = "no items listed"
		}
		fmt.Fprintf(&items, "- Stop %d, %s: %s\n", s.slot.StopIndex+1, s.order.CustomerName, summary)
		fmt.Fprintf(&schedule, "- %s-%s stop %d: %s, %s\n",
			s.slot.Start.Format("15:04"), s.slot.End.Format("15:04"),
			s.slot.StopIndex+1, s.order.CustomerName, s.slot.Point.Address())

		total += s.order.Total
		sum += s.payment
	}

	item.Description = fmt.Sprintf(
		"Items:\n%s\nSchedule:\n%s\nTotals:\nStops: %d\nOrder total: %s\nDistance: %.1f km\n",
		items.String(), schedule.String(), len(stops), c.engine.FormatMoney(total), route.TotalDistanceMeters/1000,
	)

	at := route.StartTime.Add(hours(opts.SchedulingOffsetHours))
	if first := stops[0].rendered; first != nil {
		if first.Schedule.OK {
			at = first.Schedule.At
		}
		item.Warnings = append(item.Warnings, first.Schedule.Warnings...)
	}
	item.ScheduledAt = &at

	switch opts.PaymentCalculation {
	case PaymentFromTemplate:
		amount := roundCents(sum)
		if tpl != nil && tpl.ConsolidatedPayment != nil {
			override, err := CalculatePayment(*tpl.ConsolidatedPayment, total)
			if err != nil {
				res.Warnings = append(res.Warnings, domain.ConversionWarning{
					StopIndex: -1,
					Message:   fmt.Sprintf("consolidated payment failed, using summed stop payments: %v", err),
				})
			} else {
				amount = override
			}
		}
		item.PaymentAmount = &amount
	case PaymentCustom:
		amount := opts.CustomPayment
		item.PaymentAmount = &amount
	}
	return item
}

func (c *RouteToTaskConverter) defaultDescription(s stop) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s for %s\n", s.order.ID, s.order.CustomerName)
	fmt.Fprintf(&b, "Address: %s\n", s.slot.Point.Address())
	if summary, _ := summarizeItems(s.order.Items); summary != "" {
		fmt.Fprintf(&b, "Items: %s\n", summary)
	}
	fmt.Fprintf(&b, "Service window: %s-%s\n", s.slot.Start.Format("15:04"), s.slot.End.Format("15:04"))
	if w := s.slot.Point.PreferredWindow; w != nil {
		fmt.Fprintf(&b, "Customer prefers: %s-%s\n", w.Start.Format("15:04"), w.End.Format("15:04"))
	}
	if si := strings.TrimSpace(s.order.SpecialInstructions); si != "" {
		fmt.Fprintf(&b, "Instructions: %s\n", truncateRunes(si, instructionsMaxRunes))
	}
	return strings.TrimSpace(b.String())
}

func normalizeOptions(opts ConversionOptions) (ConversionOptions, error) {
	if opts.Granularity == "" {
		opts.Granularity = GranularityIndividual
	}
	if opts.PaymentCalculation == "" {
		opts.PaymentCalculation = PaymentFromTemplate
	}

	switch opts.Granularity {
	case GranularityIndividual, GranularityConsolidated:
	default:
		return opts, &domain.ValidationError{Field: "granularity", Reason: fmt.Sprintf("unknown granularity %q", opts.Granularity)}
	}

	switch opts.PaymentCalculation {
	case PaymentFromTemplate, PaymentNone:
	case PaymentCustom:
		if opts.CustomPayment <= 0 {
			return opts, &domain.ValidationError{Field: "customPayment", Reason: "must be greater than zero"}
		}
		opts.CustomPayment = roundCents(opts.CustomPayment)
	default:
		return opts, &domain.ValidationError{Field: "paymentCalculation", Reason: fmt.Sprintf("unknown payment calculation %q", opts.PaymentCalculation)}
	}
	return opts, nil
}

func workersFor(opts ConversionOptions, driver int) []string {
	if w, ok := opts.WorkersByDriver[driver]; ok {
		return append([]string(nil), w...)
	}
	return append([]string(nil), opts.AssignedWorkers...)
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
