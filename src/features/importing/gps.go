package importing

import (
	"math"

	"github.com/nvall/sitevault/src/features/config"
	"github.com/nvall/sitevault/src/places"
)

const earthRadiusKm = 6371.0

// HaversineKm computes the great-circle distance between two coordinates in
// kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// gradeDistance maps a distance to a severity tier. Lower bounds are
// inclusive: exactly at the minor threshold grades minor, exactly at the
// major threshold grades major.
func gradeDistance(distanceKm float64, policy config.GPSPolicy) GPSSeverity {
	switch {
	case distanceKm >= policy.MajorKm:
		return GPSSeverityMajor
	case distanceKm >= policy.MinorKm:
		return GPSSeverityMinor
	default:
		return GPSSeverityNone
	}
}

// CheckGPS compares extracted media coordinates to the location snapshot's
// coordinates. Returns nil when either side has no GPS. The result is an
// advisory warning; it never blocks the file.
func CheckGPS(snapshot places.LocationSnapshot, gps *places.GPSPoint, policy config.GPSPolicy) *GPSWarning {
	if gps == nil || !snapshot.HasCoordinates() {
		return nil
	}
	distance := HaversineKm(*snapshot.Latitude, *snapshot.Longitude, gps.Latitude, gps.Longitude)
	return &GPSWarning{
		DistanceKm: distance,
		Severity:   gradeDistance(distance, policy),
	}
}
