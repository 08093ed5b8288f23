package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	telemetry "campus-pulse/internal/telemetry/domain"
)

const defaultLiftLimit = 20

// OccupancyRepository reads facility occupancy tables maintained by upstream feeds.
type OccupancyRepository struct {
	db        DBTX
	liftLimit int
}

// OccupancyOption configures the repository.
type OccupancyOption func(*OccupancyRepository)

// WithLiftLimit caps how many lift rows are read per snapshot.
func WithLiftLimit(limit int) OccupancyOption {
	return func(repo *OccupancyRepository) {
		if limit > 0 {
			repo.liftLimit = limit
		}
	}
}

// NewOccupancyRepository constructs a repository.
func NewOccupancyRepository(db DBTX, opts ...OccupancyOption) *OccupancyRepository {
	repo := &OccupancyRepository{db: db, liftLimit: defaultLiftLimit}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Snapshot loads the current samples for every resource kind.
func (r *OccupancyRepository) Snapshot(ctx context.Context) (telemetry.OccupancySnapshot, error) {
	var (
		snapshot telemetry.OccupancySnapshot
		err      error
	)
	if snapshot.Parking, err = r.Samples(ctx, telemetry.ResourceParking); err != nil {
		return telemetry.OccupancySnapshot{}, err
	}
	if snapshot.Library, err = r.Samples(ctx, telemetry.ResourceLibrary); err != nil {
		return telemetry.OccupancySnapshot{}, err
	}
	if snapshot.Canteen, err = r.Samples(ctx, telemetry.ResourceCanteen); err != nil {
		return telemetry.OccupancySnapshot{}, err
	}
	if snapshot.Lifts, err = r.Samples(ctx, telemetry.ResourceLift); err != nil {
		return telemetry.OccupancySnapshot{}, err
	}
	return snapshot, nil
}

// Samples loads the samples of one resource kind.
func (r *OccupancyRepository) Samples(ctx context.Context, kind telemetry.ResourceKind) ([]telemetry.OccupancySample, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("occupancy repo: nil db")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", telemetry.ErrUnknownResource, kind)
	}
	var (
		rows *sql.Rows
		err  error
	)
	switch kind {
	case telemetry.ResourceParking:
		rows, err = r.db.QueryContext(ctx, `
SELECT id, name, total_spaces, total_spaces - available_spaces, 0
FROM parking_lots`)
	case telemetry.ResourceLibrary:
		rows, err = r.db.QueryContext(ctx, `
SELECT id, zone_name, total_seats, total_seats - available_seats, 0
FROM library_seats`)
	case telemetry.ResourceCanteen:
		rows, err = r.db.QueryContext(ctx, `
SELECT id, name, total_seats, total_seats - available_seats, 0
FROM food_stalls`)
	case telemetry.ResourceLift:
		rows, err = r.db.QueryContext(ctx, `
SELECT id, name, capacity, current_load, estimated_wait_time
FROM lifts
LIMIT $1`, r.liftLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("occupancy repo: query %s: %w", kind, err)
	}
	defer rows.Close()

	var samples []telemetry.OccupancySample
	for rows.Next() {
		var (
			sample      telemetry.OccupancySample
			name        sql.NullString
			total, occ  sql.NullInt64
			waitMinutes sql.NullFloat64
		)
		if err := rows.Scan(&sample.ResourceID, &name, &total, &occ, &waitMinutes); err != nil {
			return nil, err
		}
		sample.Kind = kind
		sample.Name = name.String
		sample.Total = int(total.Int64)
		sample.Occupied = int(occ.Int64)
		sample.WaitMinutes = waitMinutes.Float64
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}
