package importing

import (
	"math"
	"testing"

	"github.com/nvall/sitevault/src/features/config"
	"github.com/nvall/sitevault/src/places"
)

func TestHaversineKm(t *testing.T) {
	// NYC to Philadelphia, roughly 130 km.
	d := HaversineKm(40.7128, -74.0060, 39.9526, -75.1652)
	if d < 125 || d > 135 {
		t.Errorf("unexpected distance: %f", d)
	}
	if d := HaversineKm(40.7128, -74.0060, 40.7128, -74.0060); d != 0 {
		t.Errorf("identical points should be 0 km apart, got %f", d)
	}
}

func TestGradeDistance_BoundsAreInclusive(t *testing.T) {
	policy := config.GPSPolicy{MinorKm: 1, MajorKm: 10}

	cases := []struct {
		km   float64
		want GPSSeverity
	}{
		{0, GPSSeverityNone},
		{0.999, GPSSeverityNone},
		{1, GPSSeverityMinor},
		{5, GPSSeverityMinor},
		{9.999, GPSSeverityMinor},
		{10, GPSSeverityMajor},
		{500, GPSSeverityMajor},
	}
	for _, tc := range cases {
		if got := gradeDistance(tc.km, policy); got != tc.want {
			t.Errorf("gradeDistance(%f) = %s, want %s", tc.km, got, tc.want)
		}
	}
}

func TestCheckGPS(t *testing.T) {
	policy := config.GPSPolicy{MinorKm: 1, MajorKm: 10}
	lat, lon := 40.7128, -74.0060
	snapshot := places.LocationSnapshot{ID: "loc-1", Latitude: &lat, Longitude: &lon}

	if w := CheckGPS(snapshot, nil, policy); w != nil {
		t.Errorf("no media gps should yield no warning, got %+v", w)
	}
	if w := CheckGPS(places.LocationSnapshot{ID: "loc-2"}, &places.GPSPoint{Latitude: lat, Longitude: lon}, policy); w != nil {
		t.Errorf("location without coordinates should yield no warning, got %+v", w)
	}

	// ~2 km north of the location.
	warning := CheckGPS(snapshot, &places.GPSPoint{Latitude: lat + 0.018, Longitude: lon}, policy)
	if warning == nil {
		t.Fatal("expected a warning")
	}
	if warning.Severity != GPSSeverityMinor {
		t.Errorf("expected minor severity at %.2f km, got %s", warning.DistanceKm, warning.Severity)
	}
	if math.Abs(warning.DistanceKm-2.0) > 0.1 {
		t.Errorf("unexpected distance: %f", warning.DistanceKm)
	}
}
