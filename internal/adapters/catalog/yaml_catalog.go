package catalog

import (
	"fmt"
	"os"
	"route-scheduling-service/internal/domain"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type file struct {
	Templates []domain.TaskTemplate `yaml:"templates"`
}

// Catalog holds the task templates loaded at startup. It is read-only after construction.
type Catalog struct {
	templates map[string]domain.TaskTemplate
}

// Load reads a YAML template catalog from disk.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load task templates: read %q: %w", path, err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("load task templates: parse yaml: %w", err)
	}
	return New(f.Templates...)
}

// New validates templates and indexes them by name.
func New(templates ...domain.TaskTemplate) (*Catalog, error) {
	c := &Catalog{templates: make(map[string]domain.TaskTemplate, len(templates))}
	for i, t := range templates {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, fmt.Errorf("task template #%d: name cannot be empty", i+1)
		}
		if _, dup := c.templates[name]; dup {
			return nil, fmt.Errorf("task template %q: duplicate name", name)
		}
		if strings.TrimSpace(t.TitlePattern) == "" {
			return nil, fmt.Errorf("task template %q: title cannot be empty", name)
		}
		if err := validatePayment(t.Payment); err != nil {
			return nil, fmt.Errorf("task template %q: payment: %w", name, err)
		}
		if t.ConsolidatedPayment != nil {
			if err := validatePayment(*t.ConsolidatedPayment); err != nil {
				return nil, fmt.Errorf("task template %q: consolidatedPayment: %w", name, err)
			}
		}
		switch t.Scheduling.RelativeTo {
		case "", domain.AnchorDeliveryDate, domain.AnchorEventDate, domain.AnchorManual:
		default:
			return nil, fmt.Errorf("task template %q: unknown relativeTo %q", name, t.Scheduling.RelativeTo)
		}
		t.Name = name
		c.templates[name] = t
	}
	return c, nil
}

func validatePayment(p domain.PaymentRule) error {
	switch p.Type {
	case domain.PaymentFixed, domain.PaymentPercentage, domain.PaymentFormula:
	default:
		return fmt.Errorf("unknown type %q", p.Type)
	}
	if p.MinimumAmount != nil && p.MaximumAmount != nil && *p.MinimumAmount > *p.MaximumAmount {
		return fmt.Errorf("minimumAmount %.2f exceeds maximumAmount %.2f", *p.MinimumAmount, *p.MaximumAmount)
	}
	return nil
}

func (c *Catalog) Template(name string) (domain.TaskTemplate, bool) {
	t, ok := c.templates[name]
	return t, ok
}

// Names returns the template names in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.templates))
	for n := range c.templates {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
