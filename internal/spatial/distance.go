package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for spherical math
const EarthRadiusMeters = 6371000.0

// HaversineDistance calculates the great-circle distance between two points
// in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// CellRadiusMeters approximates the radius of a square grid cell as the
// distance from its center to a corner. Cells shrink in east-west extent
// toward the poles; the spherical distance accounts for that.
func CellRadiusMeters(centerLat, centerLon, cellSizeDegrees float64) float64 {
	half := cellSizeDegrees / 2
	cornerLat := centerLat + half
	cornerLon := centerLon + half
	if cornerLat > 90 {
		cornerLat = 90
	}
	if cornerLon > 180 {
		cornerLon = math.Mod(cornerLon+180, 360) - 180
	}
	return HaversineDistance(centerLat, centerLon, cornerLat, cornerLon)
}
