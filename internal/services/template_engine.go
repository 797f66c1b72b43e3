package services

import (
	"fmt"
	"math"
	"regexp"
	"route-scheduling-service/internal/domain"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultBusinessTimezone = "America/Chicago"
	defaultTaskTime         = "09:00"
	instructionsMaxRunes    = 200
	businessDayStartHour    = 8
	businessDayEndHour      = 18
)

// TemplateVariables is the closed set of values a task pattern can reference.
type TemplateVariables struct {
	CustomerName        string
	CustomerEmail       string
	CustomerPhone       string
	EventDate           string
	DeliveryDate        string
	ItemsSummary        string
	ItemCount           string
	OrderTotal          string
	SpecialInstructions string
	DeliveryAddress     string
	OrderID             string
	TemplateName        string
}

// VariableSource resolves a placeholder name to its value.
type VariableSource interface {
	Lookup(name string) (string, bool)
}

// VariableNames lists the placeholders TemplateVariables understands.
var VariableNames = []string{
	"customerName", "customerEmail", "customerPhone", "eventDate", "deliveryDate",
	"itemsSummary", "itemCount", "orderTotal", "specialInstructions",
	"deliveryAddress", "orderId", "templateName",
}

func (v TemplateVariables) Lookup(name string) (string, bool) {
	switch name {
	case "customerName":
		return v.CustomerName, true
	case "customerEmail":
		return v.CustomerEmail, true
	case "customerPhone":
		return v.CustomerPhone, true
	case "eventDate":
		return v.EventDate, true
	case "deliveryDate":
		return v.DeliveryDate, true
	case "itemsSummary":
		return v.ItemsSummary, true
	case "itemCount":
		return v.ItemCount, true
	case "orderTotal":
		return v.OrderTotal, true
	case "specialInstructions":
		return v.SpecialInstructions, true
	case "deliveryAddress":
		return v.DeliveryAddress, true
	case "orderId":
		return v.OrderID, true
	case "templateName":
		return v.TemplateName, true
	}
	return "", false
}

// VariableMap is an ad-hoc VariableSource.
type VariableMap map[string]string

func (m VariableMap) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

type ScheduleResult struct {
	At       time.Time
	OK       bool
	Warnings []string
}

type RenderedTask struct {
	Title       string
	Description string
	Payment     float64
	Schedule    ScheduleResult
}

// TemplateEngine expands task templates against orders.
type TemplateEngine struct {
	loc     *time.Location
	now     func() time.Time
	printer *message.Printer
}

// NewTemplateEngine schedules in loc; nil means America/Chicago.
func NewTemplateEngine(loc *time.Location) *TemplateEngine {
	if loc == nil {
		var err error
		if loc, err = time.LoadLocation(DefaultBusinessTimezone); err != nil {
			loc = time.UTC
		}
	}
	return &TemplateEngine{
		loc:     loc,
		now:     time.Now,
		printer: message.NewPrinter(language.AmericanEnglish),
	}
}

// FormatMoney renders an amount as US dollars with grouping, e.g. $1,234.50.
func (e *TemplateEngine) FormatMoney(amount float64) string {
	if amount < 0 {
		return "-$" + e.printer.Sprintf("%.2f", -amount)
	}
	return "$" + e.printer.Sprintf("%.2f", amount)
}

func (e *TemplateEngine) GenerateVariables(order *domain.Order, templateName string) TemplateVariables {
	v := TemplateVariables{TemplateName: templateName}
	if order == nil {
		return v
	}

	v.CustomerName = order.CustomerName
	v.CustomerEmail = order.CustomerEmail
	v.CustomerPhone = order.CustomerPhone
	v.DeliveryAddress = order.DeliveryAddress
	v.OrderID = order.ID
	v.OrderTotal = e.FormatMoney(order.Total)
	v.SpecialInstructions = truncateRunes(strings.TrimSpace(order.SpecialInstructions), instructionsMaxRunes)

	if order.EventDate != nil {
		v.EventDate = formatDate(*order.EventDate)
	}
	if order.DeliveryDate != nil {
		v.DeliveryDate = formatDate(*order.DeliveryDate)
	}

	v.ItemsSummary, v.ItemCount = summarizeItems(order.Items)
	return v
}

var (
	placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	leftoverRe    = regexp.MustCompile(`\{[^{}]*\}`)
)

// UnknownPlaceholders returns the {name} tokens in patterns that are not in
// VariableNames, in first-seen order without duplicates.
func UnknownPlaceholders(patterns ...string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, p := range patterns {
		for _, m := range placeholderRe.FindAllStringSubmatch(p, -1) {
			name := m[1]
			if _, dup := seen[name]; dup || slices.Contains(VariableNames, name) {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// ProcessPattern substitutes {name} placeholders from vars (unknown names become
// empty), strips any remaining {...} tokens, trims trailing whitespace on each
// line and collapses runs of blank lines.
func ProcessPattern(pattern string, vars VariableSource) string {
	out := placeholderRe.ReplaceAllStringFunc(pattern, func(tok string) string {
		if vars == nil {
			return ""
		}
		v, _ := vars.Lookup(tok[1 : len(tok)-1])
		return v
	})
	out = leftoverRe.ReplaceAllString(out, "")

	lines := strings.Split(out, "\n")
	kept := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// CalculatePayment applies rule to orderTotal, clamps to the rule's bounds and rounds to cents.
func CalculatePayment(rule domain.PaymentRule, orderTotal float64) (float64, error) {
	var amount float64
	switch rule.Type {
	case domain.PaymentFixed:
		amount = rule.BaseAmount
	case domain.PaymentPercentage:
		amount = orderTotal * rule.Percentage / 100
	case domain.PaymentFormula:
		amount = rule.BaseAmount + orderTotal*rule.Percentage/100
	default:
		return 0, &domain.ValidationError{Field: "payment.type", Reason: fmt.Sprintf("unknown payment type %q", rule.Type)}
	}

	if rule.MinimumAmount != nil && amount < *rule.MinimumAmount {
		amount = *rule.MinimumAmount
	}
	if rule.MaximumAmount != nil && amount > *rule.MaximumAmount {
		amount = *rule.MaximumAmount
	}
	return roundCents(amount), nil
}

// DefaultPayment is the payment used when no template rule applies: $10 plus 10% of the order.
func DefaultPayment(orderTotal float64) float64 {
	return roundCents(10 + 0.10*orderTotal)
}

// CalculateScheduling derives the task time from the order's dates.
// Results outside business hours are reported as warnings, never moved.
func (e *TemplateEngine) CalculateScheduling(rule domain.SchedulingRule, order *domain.Order) ScheduleResult {
	if rule.RelativeTo == domain.AnchorManual {
		return ScheduleResult{Warnings: []string{"template requires manual scheduling"}}
	}
	if order == nil {
		return ScheduleResult{Warnings: []string{"no order to schedule from"}}
	}

	base, ok := baseDate(rule.RelativeTo, order)
	if !ok {
		return ScheduleResult{Warnings: []string{"order has no delivery, event or notes date"}}
	}

	var warnings []string
	clock := rule.DefaultTime
	if clock == "" {
		clock = defaultTaskTime
	}
	hh, mm, err := parseClock(clock)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("invalid default time %q, using %s", clock, defaultTaskTime))
		hh, mm, _ = parseClock(defaultTaskTime)
	}

	y, m, d := base.Date()
	at := time.Date(y, m, d+rule.OffsetDays, hh, mm, 0, 0, e.loc)

	if !at.After(e.now()) {
		return ScheduleResult{Warnings: append(warnings, fmt.Sprintf("computed time %s is not in the future", at.Format(time.RFC3339)))}
	}

	if rule.BusinessHoursOnly {
		if at.Hour() < businessDayStartHour || at.Hour() >= businessDayEndHour {
			warnings = append(warnings, fmt.Sprintf("scheduled at %s, outside business hours", at.Format("15:04")))
		}
		if wd := at.Weekday(); wd == time.Saturday || wd == time.Sunday {
			warnings = append(warnings, fmt.Sprintf("scheduled on a %s", wd))
		}
	}

	return ScheduleResult{At: at, OK: true, Warnings: warnings}
}

// Render expands every part of tpl for order.
func (e *TemplateEngine) Render(tpl domain.TaskTemplate, order *domain.Order) (RenderedTask, error) {
	vars := e.GenerateVariables(order, tpl.Name)

	title := ProcessPattern(tpl.TitlePattern, vars)
	if title == "" {
		return RenderedTask{}, fmt.Errorf("render %q: title pattern produced an empty title", tpl.Name)
	}

	total := 0.0
	if order != nil {
		total = order.Total
	}
	payment, err := CalculatePayment(tpl.Payment, total)
	if err != nil {
		return RenderedTask{}, fmt.Errorf("render %q: %w", tpl.Name, err)
	}

	return RenderedTask{
		Title:       title,
		Description: ProcessPattern(tpl.DescriptionPattern, vars),
		Payment:     payment,
		Schedule:    e.CalculateScheduling(tpl.Scheduling, order),
	}, nil
}

// baseDate prefers the anchor the rule names, then falls back to the other date, then notes.
func baseDate(anchor domain.ScheduleAnchor, order *domain.Order) (time.Time, bool) {
	first, second := order.DeliveryDate, order.EventDate
	if anchor == domain.AnchorEventDate {
		first, second = order.EventDate, order.DeliveryDate
	}
	if first != nil {
		return *first, true
	}
	if second != nil {
		return *second, true
	}
	return dateFromNotes(order.Notes)
}

var (
	isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	usDateRe  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
)

// dateFromNotes finds the first YYYY-MM-DD or M/D/YYYY date in free text.
func dateFromNotes(notes string) (time.Time, bool) {
	if m := isoDateRe.FindStringSubmatch(notes); m != nil {
		if t, ok := makeDate(m[1], m[2], m[3]); ok {
			return t, true
		}
	}
	if m := usDateRe.FindStringSubmatch(notes); m != nil {
		if t, ok := makeDate(m[3], m[1], m[2]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func makeDate(ys, ms, ds string) (time.Time, bool) {
	y, _ := strconv.Atoi(ys)
	m, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// Reject dates time.Date had to normalize, such as 2/30.
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

func summarizeItems(items []domain.OrderItem) (string, string) {
	parts := make([]string, 0, len(items))
	count := 0
	for _, it := range items {
		q := it.Quantity
		if q <= 0 {
			q = 1
		}
		count += q
		parts = append(parts, fmt.Sprintf("%dx %s", q, it.Name))
	}
	return strings.Join(parts, ", "), strconv.Itoa(count)
}

func formatDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
