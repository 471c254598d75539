package places

import (
	"fmt"
	"strings"
	"time"
)

// Location represents a single cataloged real-world site.
type Location struct {
	ID           string
	Name         string
	ShortName    string
	Region       string
	Type         string
	Latitude     *float64
	Longitude    *float64
	Address      string
	Notes        string
	AddedDate    time.Time
	ModifiedDate time.Time
}

// LocationSnapshot is an immutable copy of the fields the import pipeline
// needs from a location. It is captured once at intake so later phases never
// re-query the catalog mid-batch.
type LocationSnapshot struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ShortName string   `json:"shortName"`
	Region    string   `json:"region"`
	Type      string   `json:"type"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Snapshot captures the location's import-relevant fields.
func (l *Location) Snapshot() LocationSnapshot {
	return LocationSnapshot{
		ID:        l.ID,
		Name:      l.Name,
		ShortName: l.ShortName,
		Region:    l.Region,
		Type:      l.Type,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
	}
}

// HasCoordinates reports whether the snapshot carries a GPS position.
func (s LocationSnapshot) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Validate validates the location fields.
func (l *Location) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("location name cannot be empty")
	}
	if len(l.Name) > 300 {
		return fmt.Errorf("location name cannot exceed 300 characters, got %d: name -> %s", len(l.Name), l.Name)
	}
	if strings.TrimSpace(l.Region) == "" {
		return fmt.Errorf("location region cannot be empty")
	}
	if strings.TrimSpace(l.Type) == "" {
		return fmt.Errorf("location type cannot be empty")
	}
	if (l.Latitude == nil) != (l.Longitude == nil) {
		return fmt.Errorf("location coordinates must be set together: name -> %s", l.Name)
	}
	if l.Latitude != nil && (*l.Latitude < -90 || *l.Latitude > 90) {
		return fmt.Errorf("latitude out of range, got %f", *l.Latitude)
	}
	if l.Longitude != nil && (*l.Longitude < -180 || *l.Longitude > 180) {
		return fmt.Errorf("longitude out of range, got %f", *l.Longitude)
	}
	return nil
}

// LocationUpdate is a partial update applied to a location inside a commit
// transaction, used for back-filling fields inferred during import.
type LocationUpdate struct {
	Latitude  *float64
	Longitude *float64
	Address   *string
}

// Empty reports whether the update carries no fields.
func (u LocationUpdate) Empty() bool {
	return u.Latitude == nil && u.Longitude == nil && u.Address == nil
}
