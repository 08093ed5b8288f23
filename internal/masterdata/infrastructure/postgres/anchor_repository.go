package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "campus-pulse/internal/masterdata/domain"
)

const (
	defaultAnchorsTable  = "universities"
	defaultProfilesTable = "user_profiles"
)

// AnchorRepository resolves university anchors and the caller → profile → anchor chain.
type AnchorRepository struct {
	db            DBTX
	anchorsTable  string
	profilesTable string
}

// AnchorOption configures the repository.
type AnchorOption func(*AnchorRepository)

// WithAnchorTables overrides the default table names.
func WithAnchorTables(anchors, profiles string) AnchorOption {
	return func(repo *AnchorRepository) {
		if anchors != "" {
			repo.anchorsTable = anchors
		}
		if profiles != "" {
			repo.profilesTable = profiles
		}
	}
}

// NewAnchorRepository constructs a repository.
func NewAnchorRepository(db DBTX, opts ...AnchorOption) *AnchorRepository {
	repo := &AnchorRepository{db: db, anchorsTable: defaultAnchorsTable, profilesTable: defaultProfilesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Get loads an anchor by id. A missing row yields (nil, nil).
func (r *AnchorRepository) Get(ctx context.Context, id string) (*masterdata.Anchor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("anchor repo: nil db")
	}
	if id == "" {
		return nil, errors.New("anchor repo: empty id")
	}
	query := fmt.Sprintf(`
SELECT id, code, name, latitude, longitude
FROM %s
WHERE id = $1
LIMIT 1`, r.anchorsTable)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// ResolveForUser follows user_profiles.university_id to the anchor row.
// It returns masterdata.ErrProfileNotFound when the profile or its anchor link is absent.
func (r *AnchorRepository) ResolveForUser(ctx context.Context, userID string) (*masterdata.Anchor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("anchor repo: nil db")
	}
	if userID == "" {
		return nil, masterdata.ErrProfileNotFound
	}

	var anchorID sql.NullString
	query := fmt.Sprintf(`SELECT university_id FROM %s WHERE id = $1 LIMIT 1`, r.profilesTable)
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&anchorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, masterdata.ErrProfileNotFound
		}
		return nil, err
	}
	if !anchorID.Valid || anchorID.String == "" {
		return nil, masterdata.ErrProfileNotFound
	}

	anchor, err := r.Get(ctx, anchorID.String)
	if err != nil {
		return nil, err
	}
	if anchor == nil {
		return nil, masterdata.ErrProfileNotFound
	}
	return anchor, nil
}

func (r *AnchorRepository) scanOne(row *sql.Row) (*masterdata.Anchor, error) {
	var (
		anchor     masterdata.Anchor
		code, name sql.NullString
		lat, lng   sql.NullFloat64
	)
	if err := row.Scan(&anchor.ID, &code, &name, &lat, &lng); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	anchor.Code = code.String
	anchor.Name = name.String
	anchor.Location = coordinateFrom(lat, lng)
	return &anchor, nil
}
