package telemetry

import (
	"context"
	"time"
)

// TrafficTier is an ordered congestion classification.
type TrafficTier string

const (
	TierLow      TrafficTier = "low"
	TierModerate TrafficTier = "moderate"
	TierHeavy    TrafficTier = "heavy"
	TierSevere   TrafficTier = "severe"
)

// Duration ratio thresholds; each bound is inclusive for its tier.
const (
	ModerateRatio = 1.15
	HeavyRatio    = 1.4
	SevereRatio   = 2.0
)

// Rank orders tiers low < moderate < heavy < severe. Unknown tiers rank 0.
func (t TrafficTier) Rank() int {
	switch t {
	case TierLow:
		return 1
	case TierModerate:
		return 2
	case TierHeavy:
		return 3
	case TierSevere:
		return 4
	default:
		return 0
	}
}

// Valid returns true when the tier is supported.
func (t TrafficTier) Valid() bool {
	return t.Rank() > 0
}

// TierForRatio maps a traffic/baseline duration ratio to a tier.
func TierForRatio(ratio float64) TrafficTier {
	switch {
	case ratio >= SevereRatio:
		return TierSevere
	case ratio >= HeavyRatio:
		return TierHeavy
	case ratio >= ModerateRatio:
		return TierModerate
	default:
		return TierLow
	}
}

// CommuteRecord is the latest commute estimate from the anchor to one place.
type CommuteRecord struct {
	PlaceID     string      `json:"poi_id"`
	PlaceName   string      `json:"poi_name,omitempty"`
	Minutes     int         `json:"commute_time_minutes"`
	Tier        TrafficTier `json:"traffic_level"`
	LastUpdated time.Time   `json:"last_updated"`
}

// CommuteReader lists stored commute records, newest first, up to limit (0 = all).
type CommuteReader interface {
	ListCommutes(ctx context.Context, limit int) ([]CommuteRecord, error)
}
