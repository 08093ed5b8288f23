package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	telemetry "campus-pulse/internal/telemetry/domain"
)

const (
	defaultCommuteLimit = 10
	unknownTiers        = "unknown"
)

// Summary is the fixed-shape telemetry digest used to build forecast requests.
// It carries only human-readable data; resource and place ids are left out.
type Summary struct {
	ParkingPct      float64 `json:"parking_pct"`
	LibraryPct      float64 `json:"library_pct"`
	CanteenPct      float64 `json:"canteen_pct"`
	LiftPct         float64 `json:"lift_pct"`
	LiftWaitMinutes float64 `json:"lift_wait_minutes"`
	TrafficTiers    string  `json:"traffic_tiers"`
}

// Aggregator reads occupancy and commute telemetry and summarizes it.
type Aggregator struct {
	occupancy    telemetry.OccupancyReader
	commutes     telemetry.CommuteReader
	commuteLimit int
}

// AggregatorOption configures the aggregator.
type AggregatorOption func(*Aggregator)

// WithCommuteLimit caps how many commute records feed the traffic listing.
func WithCommuteLimit(limit int) AggregatorOption {
	return func(a *Aggregator) {
		if limit > 0 {
			a.commuteLimit = limit
		}
	}
}

// NewAggregator constructs an Aggregator.
func NewAggregator(occupancy telemetry.OccupancyReader, commutes telemetry.CommuteReader, opts ...AggregatorOption) (*Aggregator, error) {
	if occupancy == nil {
		return nil, errors.New("aggregator: nil occupancy reader")
	}
	if commutes == nil {
		return nil, errors.New("aggregator: nil commute reader")
	}
	a := &Aggregator{occupancy: occupancy, commutes: commutes, commuteLimit: defaultCommuteLimit}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Summarize pulls the current telemetry and reduces it to a Summary.
func (a *Aggregator) Summarize(ctx context.Context) (Summary, error) {
	if a == nil {
		return Summary{}, errors.New("aggregator: nil")
	}
	snapshot, err := a.occupancy.Snapshot(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("aggregator: occupancy: %w", err)
	}
	records, err := a.commutes.ListCommutes(ctx, a.commuteLimit)
	if err != nil {
		return Summary{}, fmt.Errorf("aggregator: commutes: %w", err)
	}
	return Summarize(snapshot, records), nil
}

// Summarize reduces a snapshot and commute records to a Summary.
func Summarize(snapshot telemetry.OccupancySnapshot, records []telemetry.CommuteRecord) Summary {
	return Summary{
		ParkingPct:      MeanOccupancyPct(snapshot.Parking),
		LibraryPct:      MeanOccupancyPct(snapshot.Library),
		CanteenPct:      MeanOccupancyPct(snapshot.Canteen),
		LiftPct:         MeanOccupancyPct(snapshot.Lifts),
		LiftWaitMinutes: MeanWaitMinutes(snapshot.Lifts),
		TrafficTiers:    TrafficListing(records),
	}
}

// MeanOccupancyPct averages per-sample occupancy percentages. Samples with a
// zero total have no defined ratio and are left out; no samples yields 0.
func MeanOccupancyPct(samples []telemetry.OccupancySample) float64 {
	var (
		sum   float64
		count int
	)
	for _, sample := range samples {
		ratio, ok := sample.Ratio()
		if !ok {
			continue
		}
		sum += ratio * 100
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// MeanWaitMinutes averages lift wait times; no samples yields 0.
func MeanWaitMinutes(samples []telemetry.OccupancySample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, sample := range samples {
		sum += sample.WaitMinutes
	}
	return sum / float64(len(samples))
}

// TrafficListing renders "name: tier" pairs joined by ", ".
func TrafficListing(records []telemetry.CommuteRecord) string {
	if len(records) == 0 {
		return unknownTiers
	}
	parts := make([]string, 0, len(records))
	for _, record := range records {
		tier := string(record.Tier)
		if tier == "" {
			tier = unknownTiers
		}
		if record.PlaceName == "" {
			parts = append(parts, tier)
			continue
		}
		parts = append(parts, record.PlaceName+": "+tier)
	}
	return strings.Join(parts, ", ")
}
