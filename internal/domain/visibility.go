package domain

import "time"

// HideReason is the closed set of reasons an operator can give for excluding a stop.
type HideReason string

const (
	HideReasonVehicleCapacity HideReason = "vehicle_capacity"
	HideReasonDriverExpertise HideReason = "driver_expertise"
	HideReasonTimeConstraints HideReason = "time_constraints"
	HideReasonCustomerRequest HideReason = "customer_request"
	HideReasonRouteSplitting  HideReason = "route_splitting"
	HideReasonAddressIssue    HideReason = "address_issue"
	HideReasonManual          HideReason = "manual"
	HideReasonBulkOperation   HideReason = "bulk_operation"
)

var hideReasons = map[HideReason]struct{}{
	HideReasonVehicleCapacity: {},
	HideReasonDriverExpertise: {},
	HideReasonTimeConstraints: {},
	HideReasonCustomerRequest: {},
	HideReasonRouteSplitting:  {},
	HideReasonAddressIssue:    {},
	HideReasonManual:          {},
	HideReasonBulkOperation:   {},
}

func (r HideReason) Valid() bool {
	_, ok := hideReasons[r]
	return ok
}

// HideRecord marks one delivery point as hidden on one plan date.
type HideRecord struct {
	PointID  string     `json:"pointId"`
	Reason   HideReason `json:"reason"`
	HiddenAt time.Time  `json:"hiddenAt"`
}

// HideCriteria selects delivery points for bulk hiding.
// Every predicate that is set must hold; a criteria set with no predicates matches nothing.
type HideCriteria struct {
	ZipCodes      []string `json:"zipCodes,omitempty" yaml:"zipCodes"`
	MinOrderValue *float64 `json:"minOrderValue,omitempty" yaml:"minOrderValue"`
	MaxOrderValue *float64 `json:"maxOrderValue,omitempty" yaml:"maxOrderValue"`
	CustomerTags  []string `json:"customerTags,omitempty" yaml:"customerTags"`
}

// Empty reports whether no predicate is set.
func (c HideCriteria) Empty() bool {
	return len(c.ZipCodes) == 0 && c.MinOrderValue == nil && c.MaxOrderValue == nil && len(c.CustomerTags) == 0
}

// HideTemplate is a named, date-independent criteria set an operator can reuse.
type HideTemplate struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Criteria    HideCriteria `json:"criteria"`
	CreatedAt   time.Time    `json:"createdAt"`
}
