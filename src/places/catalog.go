package places

import (
	"context"
	"errors"
)

// ErrLocationNotFound is returned when a location reference does not resolve.
var ErrLocationNotFound = errors.New("location not found")

// Catalog is the interface for the relational store of locations and media.
// It's our primary repository interface for the places domain; the import
// pipeline depends only on this, never on a concrete storage engine.
type Catalog interface {
	// Location methods
	AddLocation(ctx context.Context, location *Location) error
	FindLocation(ctx context.Context, id string) (*Location, error)
	GetLocations(ctx context.Context) ([]*Location, error)
	GetLocationsCount(ctx context.Context) (int, error)

	// Media methods
	CheckDuplicate(ctx context.Context, hash string, mediaType MediaType) (bool, error)
	GetMediaForLocation(ctx context.Context, locationID string) ([]*MediaItem, error)
	GetMediaCount(ctx context.Context) (int, error)

	// RunTransaction runs fn inside a single transaction. Everything fn
	// writes through the CatalogTx becomes visible atomically on commit;
	// an error from fn rolls the whole transaction back.
	RunTransaction(ctx context.Context, fn func(tx CatalogTx) error) error
}

// CatalogTx is the write surface available inside a catalog transaction.
type CatalogTx interface {
	InsertMedia(item *MediaItem) error
	InsertImportSession(session *ImportSession) error
	UpdateLocationFields(locationID string, update LocationUpdate) error
}
