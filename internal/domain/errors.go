package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrTemplateNotFound = errors.New("template not found")
)

// ValidationError reports bad caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// GeocodingError reports an address that could not be resolved.
// When a whole request fails, Failures lists every point that was rejected.
type GeocodingError struct {
	Address  string
	Failures []GeocodeFailure
	Err      error
}

func (e *GeocodingError) Error() string {
	if len(e.Failures) > 0 {
		return fmt.Sprintf("geocoding: none of %d addresses could be resolved", len(e.Failures))
	}
	if e.Err != nil {
		return fmt.Sprintf("geocoding %q: %v", e.Address, e.Err)
	}
	return fmt.Sprintf("geocoding %q: no match", e.Address)
}

func (e *GeocodingError) Unwrap() error { return e.Err }

// OptimizationError wraps an upstream failure that aborted route optimization.
type OptimizationError struct {
	Op  string
	Err error
}

func (e *OptimizationError) Error() string {
	return fmt.Sprintf("optimization: %s: %v", e.Op, e.Err)
}

func (e *OptimizationError) Unwrap() error { return e.Err }

// SanityError reports an implausible leg, usually a geocoding defect.
type SanityError struct {
	FromID          string
	ToID            string
	DistanceMeters  float64
	ThresholdMeters float64
}

func (e *SanityError) Error() string {
	return fmt.Sprintf(
		"sanity: leg %s -> %s is %.1f km, above the %.1f km limit",
		e.FromID, e.ToID, e.DistanceMeters/1000, e.ThresholdMeters/1000,
	)
}

// ConversionWarning is a non-fatal issue with one stop; its task was still produced.
type ConversionWarning struct {
	StopIndex int
	PointID   string
	Message   string
}

func (w ConversionWarning) String() string {
	return fmt.Sprintf("stop %d (%s): %s", w.StopIndex, w.PointID, w.Message)
}

// ConversionError is a stop that produced no task.
type ConversionError struct {
	StopIndex int
	PointID   string
	Err       error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert stop %d (%s): %v", e.StopIndex, e.PointID, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// TaskCreationError is one work item the task store rejected.
type TaskCreationError struct {
	Index int
	Title string
	Err   error
}

func (e *TaskCreationError) Error() string {
	return fmt.Sprintf("create task #%d %q: %v", e.Index, e.Title, e.Err)
}

func (e *TaskCreationError) Unwrap() error { return e.Err }

// JoinFailures renders geocode failures for logs.
func JoinFailures(failures []GeocodeFailure) string {
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, fmt.Sprintf("%s(%s)", f.PointID, f.Reason))
	}
	return strings.Join(parts, ", ")
}
