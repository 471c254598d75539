package locations

import (
	"context"
	"errors"
	"testing"

	"github.com/nvall/sitevault/src/places"
)

// MockCatalog is a mock implementation of places.Catalog
type MockCatalog struct {
	places.Catalog
	locations map[string]*places.Location
	media     map[string][]*places.MediaItem
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		locations: make(map[string]*places.Location),
		media:     make(map[string][]*places.MediaItem),
	}
}

func (m *MockCatalog) AddLocation(ctx context.Context, location *places.Location) error {
	if _, ok := m.locations[location.ID]; ok {
		return errors.New("location already exists")
	}
	m.locations[location.ID] = location
	return nil
}

func (m *MockCatalog) FindLocation(ctx context.Context, id string) (*places.Location, error) {
	if location, ok := m.locations[id]; ok {
		return location, nil
	}
	return nil, places.ErrLocationNotFound
}

func (m *MockCatalog) GetLocations(ctx context.Context) ([]*places.Location, error) {
	out := make([]*places.Location, 0, len(m.locations))
	for _, location := range m.locations {
		out = append(out, location)
	}
	return out, nil
}

func (m *MockCatalog) GetLocationsCount(ctx context.Context) (int, error) {
	return len(m.locations), nil
}

func (m *MockCatalog) GetMediaForLocation(ctx context.Context, locationID string) ([]*places.MediaItem, error) {
	return m.media[locationID], nil
}

func (m *MockCatalog) GetMediaCount(ctx context.Context) (int, error) {
	total := 0
	for _, items := range m.media {
		total += len(items)
	}
	return total, nil
}

func TestCreateLocation_AssignsIDAndValidates(t *testing.T) {
	catalog := NewMockCatalog()
	service := NewService(catalog)
	ctx := context.Background()

	location := &places.Location{Name: "Old Mill", Region: "hudson-valley", Type: "industrial"}
	if err := service.CreateLocation(ctx, location); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if location.ID == "" {
		t.Error("expected an id to be assigned")
	}
	if _, ok := catalog.locations[location.ID]; !ok {
		t.Error("location was not added to catalog")
	}
}

func TestCreateLocation_RejectsInvalid(t *testing.T) {
	service := NewService(NewMockCatalog())
	ctx := context.Background()

	cases := []*places.Location{
		{Region: "r", Type: "t"},             // no name
		{Name: "n", Type: "t"},               // no region
		{Name: "n", Region: "r"},             // no type
		{Name: "n", Region: "r", Type: "t", Latitude: ptr(12.0)}, // lat without lon
	}
	for i, location := range cases {
		if err := service.CreateLocation(ctx, location); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestGetMediaForLocation_UnknownLocation(t *testing.T) {
	service := NewService(NewMockCatalog())
	_, err := service.GetMediaForLocation(context.Background(), "nope")
	if !errors.Is(err, places.ErrLocationNotFound) {
		t.Errorf("expected ErrLocationNotFound, got %v", err)
	}
}

func TestGetStats(t *testing.T) {
	catalog := NewMockCatalog()
	catalog.locations["l1"] = &places.Location{ID: "l1"}
	catalog.media["l1"] = []*places.MediaItem{{ID: "m1"}, {ID: "m2"}}

	stats, err := NewService(catalog).GetStats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Locations != 1 || stats.Media != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func ptr(f float64) *float64 { return &f }
