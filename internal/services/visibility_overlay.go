package services

import (
	"context"
	"fmt"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/ports"
	"sort"
	"strings"
	"time"
)

const planDateLayout = "2006-01-02"

// VisibilityOverlay tracks which delivery points an operator has hidden from a
// day's route. Each point is either active or hidden for a given date.
//
// Every operation loads the date's state, applies the change and saves it back,
// so concurrent writers for the same date may lose updates.
type VisibilityOverlay struct {
	store ports.VisibilityStore
	now   func() time.Time
}

func NewVisibilityOverlay(store ports.VisibilityStore) *VisibilityOverlay {
	return &VisibilityOverlay{store: store, now: time.Now}
}

// Hide marks id hidden. Hiding an already hidden id changes nothing: the original
// reason and timestamp are kept and changed is false.
func (v *VisibilityOverlay) Hide(ctx context.Context, date, id string, reason domain.HideReason) (changed bool, err error) {
	n, err := v.HideMany(ctx, date, []string{id}, reason)
	return n == 1, err
}

// HideMany hides every id that is not hidden yet and returns how many changed.
func (v *VisibilityOverlay) HideMany(ctx context.Context, date string, ids []string, reason domain.HideReason) (int, error) {
	if err := validateDate(date); err != nil {
		return 0, err
	}
	if !reason.Valid() {
		return 0, &domain.ValidationError{Field: "reason", Reason: fmt.Sprintf("unknown hide reason %q", reason)}
	}
	if err := validateIDs(ids); err != nil {
		return 0, err
	}

	records, err := v.store.LoadHidden(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("hide: %w", err)
	}

	at := v.now().UTC()
	changed := 0
	for _, id := range ids {
		if _, hidden := records[id]; hidden {
			continue
		}
		records[id] = domain.HideRecord{PointID: id, Reason: reason, HiddenAt: at}
		changed++
	}
	if changed == 0 {
		return 0, nil
	}

	if err := v.store.SaveHidden(ctx, date, records); err != nil {
		return 0, fmt.Errorf("hide: %w", err)
	}
	return changed, nil
}

// Show restores id. Showing an active id is a no-op.
func (v *VisibilityOverlay) Show(ctx context.Context, date, id string) (changed bool, err error) {
	n, err := v.ShowMany(ctx, date, []string{id})
	return n == 1, err
}

func (v *VisibilityOverlay) ShowMany(ctx context.Context, date string, ids []string) (int, error) {
	if err := validateDate(date); err != nil {
		return 0, err
	}
	if err := validateIDs(ids); err != nil {
		return 0, err
	}

	records, err := v.store.LoadHidden(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("show: %w", err)
	}

	changed := 0
	for _, id := range ids {
		if _, hidden := records[id]; hidden {
			delete(records, id)
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}

	if err := v.store.SaveHidden(ctx, date, records); err != nil {
		return 0, fmt.Errorf("show: %w", err)
	}
	return changed, nil
}

// ShowAll clears the date's hide state. Saved templates are untouched.
func (v *VisibilityOverlay) ShowAll(ctx context.Context, date string) (int, error) {
	if err := validateDate(date); err != nil {
		return 0, err
	}

	records, err := v.store.LoadHidden(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("show all: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := v.store.SaveHidden(ctx, date, nil); err != nil {
		return 0, fmt.Errorf("show all: %w", err)
	}
	return len(records), nil
}

func (v *VisibilityOverlay) IsHidden(ctx context.Context, date, id string) (bool, error) {
	_, ok, err := v.record(ctx, date, id)
	return ok, err
}

func (v *VisibilityOverlay) ReasonFor(ctx context.Context, date, id string) (domain.HideReason, bool, error) {
	rec, ok, err := v.record(ctx, date, id)
	return rec.Reason, ok, err
}

func (v *VisibilityOverlay) HiddenAt(ctx context.Context, date, id string) (time.Time, bool, error) {
	rec, ok, err := v.record(ctx, date, id)
	return rec.HiddenAt, ok, err
}

// Hidden lists the date's hide records, oldest first.
func (v *VisibilityOverlay) Hidden(ctx context.Context, date string) ([]domain.HideRecord, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	records, err := v.store.LoadHidden(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list hidden: %w", err)
	}

	out := make([]domain.HideRecord, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].HiddenAt.Equal(out[j].HiddenAt) {
			return out[i].HiddenAt.Before(out[j].HiddenAt)
		}
		return out[i].PointID < out[j].PointID
	})
	return out, nil
}

func (v *VisibilityOverlay) record(ctx context.Context, date, id string) (domain.HideRecord, bool, error) {
	if err := validateDate(date); err != nil {
		return domain.HideRecord{}, false, err
	}
	records, err := v.store.LoadHidden(ctx, date)
	if err != nil {
		return domain.HideRecord{}, false, fmt.Errorf("load hidden: %w", err)
	}
	rec, ok := records[id]
	return rec, ok, nil
}

// ApplyToRoute returns a view of route with hidden stops moved to HiddenDeliveries.
// The route itself is not modified.
func (v *VisibilityOverlay) ApplyToRoute(ctx context.Context, route *domain.OptimizedRoute, date string) (*domain.RouteView, error) {
	if route == nil {
		return nil, &domain.ValidationError{Field: "route", Reason: "is required"}
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}

	records, err := v.store.LoadHidden(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("apply to route: %w", err)
	}

	view := &domain.RouteView{
		OptimizedRoute:   *route,
		Date:             date,
		HiddenDeliveries: []domain.TimeSlot{},
		TotalCount:       len(route.TimeSlots),
	}
	view.TimeSlots = make([]domain.TimeSlot, 0, len(route.TimeSlots))
	view.DeliveryOrder = make([]string, 0, len(route.TimeSlots))

	for _, slot := range route.TimeSlots {
		if _, hidden := records[slot.Point.ID]; hidden {
			view.HiddenDeliveries = append(view.HiddenDeliveries, slot)
			continue
		}
		view.TimeSlots = append(view.TimeSlots, slot)
		view.DeliveryOrder = append(view.DeliveryOrder, slot.Point.ID)
	}
	view.ActiveCount = len(view.TimeSlots)
	view.HiddenCount = len(view.HiddenDeliveries)
	return view, nil
}

// CriteriaMatch returns the ids of points satisfying every predicate set in c.
// Order-value bounds are inclusive; tags match when any tag is shared.
// Criteria with no predicates match nothing.
func CriteriaMatch(points []domain.DeliveryPoint, c domain.HideCriteria) []string {
	if c.Empty() {
		return []string{}
	}

	zips := toSet(c.ZipCodes, strings.TrimSpace)
	tags := toSet(c.CustomerTags, normalizeTag)
	if len(zips) == 0 && len(tags) == 0 && c.MinOrderValue == nil && c.MaxOrderValue == nil {
		return []string{}
	}

	out := []string{}
	for _, p := range points {
		if len(zips) > 0 {
			if _, ok := zips[strings.TrimSpace(p.ZipCode)]; !ok {
				continue
			}
		}
		if c.MinOrderValue != nil && p.OrderValue < *c.MinOrderValue {
			continue
		}
		if c.MaxOrderValue != nil && p.OrderValue > *c.MaxOrderValue {
			continue
		}
		if len(tags) > 0 && !anyIn(p.CustomerTags, tags) {
			continue
		}
		out = append(out, p.ID)
	}
	return out
}

// HideByCriteria hides the matching points as a bulk operation and returns the matched ids.
func (v *VisibilityOverlay) HideByCriteria(ctx context.Context, date string, points []domain.DeliveryPoint, c domain.HideCriteria) ([]string, int, error) {
	ids := CriteriaMatch(points, c)
	if len(ids) == 0 {
		if err := validateDate(date); err != nil {
			return nil, 0, err
		}
		return ids, 0, nil
	}
	n, err := v.HideMany(ctx, date, ids, domain.HideReasonBulkOperation)
	if err != nil {
		return nil, 0, err
	}
	return ids, n, nil
}

// SaveTemplate stores tpl under its name, replacing any template with that name.
func (v *VisibilityOverlay) SaveTemplate(ctx context.Context, tpl domain.HideTemplate) (domain.HideTemplate, error) {
	tpl.Name = strings.TrimSpace(tpl.Name)
	if tpl.Name == "" {
		return domain.HideTemplate{}, &domain.ValidationError{Field: "name", Reason: "must be non-empty"}
	}
	if tpl.Criteria.Empty() {
		return domain.HideTemplate{}, &domain.ValidationError{Field: "criteria", Reason: "at least one predicate is required"}
	}
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = v.now().UTC()
	}

	templates, err := v.store.LoadTemplates(ctx)
	if err != nil {
		return domain.HideTemplate{}, fmt.Errorf("save template: %w", err)
	}
	templates[tpl.Name] = tpl
	if err := v.store.SaveTemplates(ctx, templates); err != nil {
		return domain.HideTemplate{}, fmt.Errorf("save template: %w", err)
	}
	return tpl, nil
}

func (v *VisibilityOverlay) DeleteTemplate(ctx context.Context, name string) error {
	templates, err := v.store.LoadTemplates(ctx)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if _, ok := templates[name]; !ok {
		return domain.ErrTemplateNotFound
	}
	delete(templates, name)
	if err := v.store.SaveTemplates(ctx, templates); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// Templates lists saved hide templates by name.
func (v *VisibilityOverlay) Templates(ctx context.Context) ([]domain.HideTemplate, error) {
	templates, err := v.store.LoadTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	out := make([]domain.HideTemplate, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ApplyTemplate hides the points matched by the named template's criteria.
func (v *VisibilityOverlay) ApplyTemplate(ctx context.Context, name string, points []domain.DeliveryPoint, date string) ([]string, int, error) {
	templates, err := v.store.LoadTemplates(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("apply template: %w", err)
	}
	tpl, ok := templates[name]
	if !ok {
		return nil, 0, domain.ErrTemplateNotFound
	}
	return v.HideByCriteria(ctx, date, points, tpl.Criteria)
}

func validateDate(date string) error {
	if _, err := time.Parse(planDateLayout, date); err != nil {
		return &domain.ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", date)}
	}
	return nil
}

func validateIDs(ids []string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return &domain.ValidationError{Field: "pointId", Reason: "must be non-empty"}
		}
	}
	return nil
}

func normalizeTag(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func toSet(values []string, norm func(string) string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = norm(v); v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}

func anyIn(values []string, set map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := set[normalizeTag(v)]; ok {
			return true
		}
	}
	return false
}
