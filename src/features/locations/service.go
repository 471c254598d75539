package locations

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nvall/sitevault/src/places"
)

// Service is the domain service for the locations feature.
type Service struct {
	catalog places.Catalog
}

// NewService creates a new locations service.
func NewService(catalog places.Catalog) *Service {
	return &Service{catalog: catalog}
}

// GetLocations returns all cataloged locations.
func (s *Service) GetLocations(ctx context.Context) ([]*places.Location, error) {
	locations, err := s.catalog.GetLocations(ctx)
	if err != nil {
		slog.Error("GetLocations failed", "error", err)
		return nil, err
	}
	return locations, nil
}

// GetLocation returns a single location by id.
func (s *Service) GetLocation(ctx context.Context, id string) (*places.Location, error) {
	return s.catalog.FindLocation(ctx, id)
}

// CreateLocation validates and stores a new location.
func (s *Service) CreateLocation(ctx context.Context, location *places.Location) error {
	if location.ID == "" {
		location.ID = uuid.New().String()
	}
	if err := location.Validate(); err != nil {
		return err
	}
	if err := s.catalog.AddLocation(ctx, location); err != nil {
		slog.Error("CreateLocation failed", "error", err, "name", location.Name)
		return err
	}
	slog.Info("CreateLocation: location added", "id", location.ID, "name", location.Name)
	return nil
}

// GetMediaForLocation returns the archived media for a location.
func (s *Service) GetMediaForLocation(ctx context.Context, locationID string) ([]*places.MediaItem, error) {
	if _, err := s.catalog.FindLocation(ctx, locationID); err != nil {
		return nil, err
	}
	return s.catalog.GetMediaForLocation(ctx, locationID)
}

// Stats summarizes catalog size for status surfaces.
type Stats struct {
	Locations int `json:"locations"`
	Media     int `json:"media"`
}

// GetStats returns catalog counts.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	locationCount, err := s.catalog.GetLocationsCount(ctx)
	if err != nil {
		return nil, err
	}
	mediaCount, err := s.catalog.GetMediaCount(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Locations: locationCount, Media: mediaCount}, nil
}
