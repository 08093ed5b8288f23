package telemetry

import (
	"context"
	"errors"
)

// ResourceKind identifies the facility family an occupancy sample belongs to.
type ResourceKind string

const (
	ResourceParking ResourceKind = "parking"
	ResourceLibrary ResourceKind = "library"
	ResourceCanteen ResourceKind = "canteen"
	ResourceLift    ResourceKind = "lift"
)

// Valid returns true when the kind is supported.
func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceParking, ResourceLibrary, ResourceCanteen, ResourceLift:
		return true
	default:
		return false
	}
}

// OccupancySample is one facility resource reading from an upstream occupancy feed.
// Lifts additionally report an estimated wait time.
type OccupancySample struct {
	ResourceID  string
	Name        string
	Kind        ResourceKind
	Total       int
	Occupied    int
	WaitMinutes float64
}

// Ratio returns occupied/total clamped to [0,1]. The ratio is undefined when total is 0.
func (s OccupancySample) Ratio() (float64, bool) {
	if s.Total <= 0 {
		return 0, false
	}
	ratio := float64(s.Occupied) / float64(s.Total)
	switch {
	case ratio < 0:
		ratio = 0
	case ratio > 1:
		ratio = 1
	}
	return ratio, true
}

// OccupancySnapshot groups the current samples by resource kind.
type OccupancySnapshot struct {
	Parking []OccupancySample
	Library []OccupancySample
	Canteen []OccupancySample
	Lifts   []OccupancySample
}

// ErrUnknownResource indicates an unsupported resource kind.
var ErrUnknownResource = errors.New("telemetry: unknown resource kind")

// OccupancyReader loads the current occupancy samples.
type OccupancyReader interface {
	Snapshot(ctx context.Context) (OccupancySnapshot, error)
}
