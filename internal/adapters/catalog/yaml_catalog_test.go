package catalog

import (
	"route-scheduling-service/internal/domain"
	"testing"
)

const sample = `
templates:
  - name: delivery
    title: "Deliver to {customerName}"
    description: |
      Order {orderId}
      {specialInstructions}
    payment:
      type: percentage
      percentage: 10
      minimumAmount: 15
      maximumAmount: 80
    consolidatedPayment:
      type: fixed
      baseAmount: 120
    scheduling:
      relativeTo: delivery_date
      offsetDays: 0
      defaultTime: "09:00"
      businessHoursOnly: true
  - name: setup
    title: "Setup for {customerName}"
    payment:
      type: fixed
      baseAmount: 25
    scheduling:
      relativeTo: event_date
      offsetDays: -1
      defaultTime: "14:00"
`

func TestParseCatalog(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	names := c.Names()
	if len(names) != 2 || names[0] != "delivery" || names[1] != "setup" {
		t.Fatalf("unexpected names %v", names)
	}

	d, ok := c.Template("delivery")
	if !ok {
		t.Fatalf("delivery template missing")
	}
	if d.Payment.Type != domain.PaymentPercentage || d.Payment.Percentage != 10 {
		t.Fatalf("unexpected payment %+v", d.Payment)
	}
	if d.Payment.MinimumAmount == nil || *d.Payment.MinimumAmount != 15 {
		t.Fatalf("unexpected minimum %v", d.Payment.MinimumAmount)
	}
	if d.ConsolidatedPayment == nil || d.ConsolidatedPayment.BaseAmount != 120 {
		t.Fatalf("unexpected consolidated payment %+v", d.ConsolidatedPayment)
	}
	if d.Scheduling.DefaultTime != "09:00" || !d.Scheduling.BusinessHoursOnly {
		t.Fatalf("unexpected scheduling %+v", d.Scheduling)
	}

	s, _ := c.Template("setup")
	if s.Scheduling.OffsetDays != -1 || s.Scheduling.RelativeTo != domain.AnchorEventDate {
		t.Fatalf("unexpected setup scheduling %+v", s.Scheduling)
	}
}

func TestNewRejectsInvalidTemplates(t *testing.T) {
	lo, hi := 50.0, 10.0
	cases := map[string][]domain.TaskTemplate{
		"no name":       {{TitlePattern: "x", Payment: domain.PaymentRule{Type: domain.PaymentFixed}}},
		"no title":      {{Name: "a", Payment: domain.PaymentRule{Type: domain.PaymentFixed}}},
		"bad type":      {{Name: "a", TitlePattern: "x", Payment: domain.PaymentRule{Type: "hourly"}}},
		"min above max": {{Name: "a", TitlePattern: "x", Payment: domain.PaymentRule{Type: domain.PaymentFixed, MinimumAmount: &lo, MaximumAmount: &hi}}},
		"duplicate": {
			{Name: "a", TitlePattern: "x", Payment: domain.PaymentRule{Type: domain.PaymentFixed}},
			{Name: "a", TitlePattern: "y", Payment: domain.PaymentRule{Type: domain.PaymentFixed}},
		},
		"bad anchor": {{Name: "a", TitlePattern: "x", Payment: domain.PaymentRule{Type: domain.PaymentFixed}, Scheduling: domain.SchedulingRule{RelativeTo: "someday"}}},
	}
	for name, tpls := range cases {
		if _, err := New(tpls...); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
