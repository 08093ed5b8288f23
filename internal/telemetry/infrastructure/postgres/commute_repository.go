package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	telemetry "campus-pulse/internal/telemetry/domain"
)

const (
	defaultCommuteTable = "poi_traffic"
	defaultPlaceTable   = "pois"
)

// CommuteRepository stores the commute record set. The set is only ever
// replaced as a whole.
type CommuteRepository struct {
	db         *sql.DB
	table      string
	placeTable string
}

// CommuteOption configures the repository.
type CommuteOption func(*CommuteRepository)

// WithCommuteTables overrides the default table names.
func WithCommuteTables(commutes, places string) CommuteOption {
	return func(repo *CommuteRepository) {
		if commutes != "" {
			repo.table = commutes
		}
		if places != "" {
			repo.placeTable = places
		}
	}
}

// NewCommuteRepository constructs a repository.
func NewCommuteRepository(db *sql.DB, opts ...CommuteOption) *CommuteRepository {
	repo := &CommuteRepository{db: db, table: defaultCommuteTable, placeTable: defaultPlaceTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ListCommutes returns stored records joined with place names, newest first.
func (r *CommuteRepository) ListCommutes(ctx context.Context, limit int) ([]telemetry.CommuteRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("commute repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT t.poi_id, COALESCE(p.name, ''), t.commute_time_minutes, t.traffic_level, t.last_updated
FROM %s t
LEFT JOIN %s p ON p.id = t.poi_id
ORDER BY t.last_updated DESC, p.name`, r.table, r.placeTable)
	args := []any{}
	if limit > 0 {
		query += "\nLIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []telemetry.CommuteRecord
	for rows.Next() {
		var (
			record telemetry.CommuteRecord
			tier   string
		)
		if err := rows.Scan(&record.PlaceID, &record.PlaceName, &record.Minutes, &tier, &record.LastUpdated); err != nil {
			return nil, err
		}
		record.Tier = telemetry.TrafficTier(tier)
		if !record.Tier.Valid() {
			return nil, fmt.Errorf("commute repo: %s: unknown traffic level %q", record.PlaceID, tier)
		}
		record.LastUpdated = record.LastUpdated.UTC()
		records = append(records, record)
	}
	return records, rows.Err()
}

// ReplaceAll deletes every stored record and inserts the new batch inside one
// transaction, so concurrent readers see either the old or the new set.
func (r *CommuteRepository) ReplaceAll(ctx context.Context, records []telemetry.CommuteRecord) error {
	if r == nil || r.db == nil {
		return errors.New("commute repo: nil db")
	}
	if len(records) == 0 {
		return errors.New("commute repo: empty batch")
	}
	for _, record := range records {
		if !record.Tier.Valid() {
			return fmt.Errorf("commute repo: %s: unknown traffic level %q", record.PlaceID, record.Tier)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, r.table)); err != nil {
		return fmt.Errorf("commute repo: delete: %w", err)
	}

	var (
		values []string
		args   = make([]any, 0, len(records)*4)
	)
	for i, record := range records {
		base := i * 4
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
		updated := record.LastUpdated
		if updated.IsZero() {
			updated = time.Now()
		}
		args = append(args, record.PlaceID, record.Minutes, string(record.Tier), updated.UTC())
	}
	query := fmt.Sprintf(`
INSERT INTO %s (poi_id, commute_time_minutes, traffic_level, last_updated)
VALUES %s`, r.table, strings.Join(values, ",\n"))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("commute repo: insert: %w", err)
	}
	return tx.Commit()
}
