package commute

import (
	"context"
	"errors"
	"math"

	masterdata "campus-pulse/internal/masterdata/domain"
	telemetry "campus-pulse/internal/telemetry/domain"
)

// StatusOK is the provider status for a successful request or route.
const StatusOK = "OK"

// MatrixRequest asks for the live-traffic driving time from Origin to Destination.
type MatrixRequest struct {
	Origin      masterdata.Coordinate
	Destination masterdata.Coordinate
}

// Duration is a provider duration in seconds with its display text.
type Duration struct {
	Value int64  `json:"value"`
	Text  string `json:"text"`
}

// MatrixElement is one origin/destination route.
type MatrixElement struct {
	Status            string    `json:"status"`
	Duration          *Duration `json:"duration,omitempty"`
	DurationInTraffic *Duration `json:"duration_in_traffic,omitempty"`
}

// MatrixRow holds the routes for one origin.
type MatrixRow struct {
	Elements []MatrixElement `json:"elements"`
}

// MatrixResponse is the routing provider reply.
type MatrixResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Rows         []MatrixRow `json:"rows"`
}

// FirstElement returns the single route of a one-to-one request.
func (r MatrixResponse) FirstElement() (MatrixElement, bool) {
	if len(r.Rows) == 0 || len(r.Rows[0].Elements) == 0 {
		return MatrixElement{}, false
	}
	return r.Rows[0].Elements[0], true
}

// Router queries the routing provider.
type Router interface {
	Matrix(ctx context.Context, req MatrixRequest) (*MatrixResponse, error)
}

// ErrDurationMissing indicates a successful route without any duration.
var ErrDurationMissing = errors.New(ErrTextDurationMissing)

// Estimate derives commute minutes and tier from a successful route.
// Minutes round up the live-traffic duration (or the baseline when no live
// figure exists). The tier stays low without a live figure or a baseline.
func Estimate(element MatrixElement) (int, telemetry.TrafficTier, error) {
	traffic := element.DurationInTraffic
	if traffic == nil {
		traffic = element.Duration
	}
	if traffic == nil {
		return 0, "", ErrDurationMissing
	}
	minutes := int(math.Ceil(float64(traffic.Value) / 60))

	tier := telemetry.TierLow
	if element.DurationInTraffic != nil && element.Duration != nil && element.Duration.Value > 0 {
		ratio := float64(element.DurationInTraffic.Value) / float64(element.Duration.Value)
		tier = telemetry.TierForRatio(ratio)
	}
	return minutes, tier, nil
}
