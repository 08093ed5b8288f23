package masterdata

import (
	"context"
	"errors"
)

// ErrProfileNotFound indicates the caller has no profile or the profile has no anchor.
var ErrProfileNotFound = errors.New("masterdata: profile or anchor not found")

// PlaceRepository reads the place registry.
type PlaceRepository interface {
	List(ctx context.Context) ([]Place, error)
}

// AnchorRepository resolves anchors.
type AnchorRepository interface {
	Get(ctx context.Context, id string) (*Anchor, error)
	ResolveForUser(ctx context.Context, userID string) (*Anchor, error)
}
