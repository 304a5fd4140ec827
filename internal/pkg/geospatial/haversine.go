package geospatial

import (
	"math"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// metersPerDegree is the length of one degree of arc on a sphere of
// EarthRadius.
const metersPerDegree = EarthRadius * math.Pi / 180

// Haversine calculates the great-circle distance in meters between two
// points on a sphere of EarthRadius, the radius CircleToPolygon uses.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadius * c
}

// BoundingBox returns lon/lat bounds around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) domain.Bounds {
	latDelta := radiusMeters / metersPerDegree
	lonDelta := radiusMeters / (metersPerDegree * math.Cos(toRad(lat)))

	return domain.Bounds{MinX: lon - lonDelta, MinY: lat - latDelta, MaxX: lon + lonDelta, MaxY: lat + latDelta}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
