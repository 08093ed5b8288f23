package commute

import (
	"context"
	"errors"

	telemetry "campus-pulse/internal/telemetry/domain"
)

var (
	// ErrAnchorMissing indicates the anchor is absent or has no usable coordinates.
	ErrAnchorMissing = errors.New("commute: anchor coordinates not found")
	// ErrAnchorNotFound indicates no anchor exists for the given id.
	ErrAnchorNotFound = errors.New("commute: anchor not found")
)

// Per-place error texts.
const (
	ErrTextCoordinatesMissing = "POI coordinates missing"
	ErrTextCoordinatesInvalid = "POI coordinates invalid"
	ErrTextDurationMissing    = "route duration missing"
)

// PlaceError describes why one place was not updated in a sync cycle.
type PlaceError struct {
	Place  string `json:"poi"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Result summarizes one sync cycle. Errors is nil when every place succeeded.
type Result struct {
	Success     bool         `json:"success"`
	Updated     int          `json:"updated"`
	TotalPlaces int          `json:"total_pois"`
	Errors      []PlaceError `json:"errors,omitempty"`
}

// Partial reports whether some places failed.
func (r Result) Partial() bool {
	return len(r.Errors) > 0
}

// RecordStore persists the commute record set.
type RecordStore interface {
	// ReplaceAll swaps the whole stored set for records atomically.
	ReplaceAll(ctx context.Context, records []telemetry.CommuteRecord) error
}
