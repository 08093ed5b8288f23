package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "campus-pulse/internal/masterdata/domain"
)

const defaultPlacesTable = "pois"

// PlaceRepository is a Postgres implementation of the place registry.
type PlaceRepository struct {
	db    DBTX
	table string
}

// PlaceOption configures the repository.
type PlaceOption func(*PlaceRepository)

// WithPlaceTable overrides the default table name.
func WithPlaceTable(table string) PlaceOption {
	return func(repo *PlaceRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewPlaceRepository constructs a repository.
func NewPlaceRepository(db DBTX, opts ...PlaceOption) *PlaceRepository {
	repo := &PlaceRepository{db: db, table: defaultPlacesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// List loads every registered place ordered by name.
func (r *PlaceRepository) List(ctx context.Context) ([]masterdata.Place, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("place repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, name, latitude, longitude
FROM %s
ORDER BY name, id`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []masterdata.Place
	for rows.Next() {
		var (
			place    masterdata.Place
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&place.ID, &place.Name, &lat, &lng); err != nil {
			return nil, err
		}
		place.Location = coordinateFrom(lat, lng)
		places = append(places, place)
	}
	return places, rows.Err()
}

// coordinateFrom treats NULL and zero values as missing, matching how the
// registry is populated before geocoding completes.
func coordinateFrom(lat, lng sql.NullFloat64) *masterdata.Coordinate {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	if lat.Float64 == 0 || lng.Float64 == 0 {
		return nil
	}
	return &masterdata.Coordinate{Lat: lat.Float64, Lng: lng.Float64}
}
