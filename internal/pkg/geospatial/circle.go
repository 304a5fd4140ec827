package geospatial

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// EarthRadius is the radius used by the circle approximation (WGS84
// semi-major axis, meters).
const EarthRadius = 6378137.0

// DefaultSegments is the number of ring segments used when a caller passes 0.
const DefaultSegments = 64

// MaxCircleLatitude is the latitude beyond which the longitude term of the
// approximation is numerically unstable.
const MaxCircleLatitude = 89.9

// CircleToPolygon approximates a circle around center (lon, lat degrees)
// with a closed ring of segments+1 points.
//
// Offsets use an equirectangular small-angle approximation around
// EarthRadius: Δlat = r·cos θ / R, Δlon = r·sin θ / (R·cos lat). This is a
// local planar approximation, not a true geodesic. It stays within a few
// percent of the true area for radii up to tens of kilometres and degrades
// with radius and latitude.
func CircleToPolygon(center orb.Point, radiusMeters float64, segments int) (orb.Polygon, error) {
	if segments == 0 {
		segments = DefaultSegments
	}
	if segments < 3 {
		return nil, fmt.Errorf("%w: circle needs at least 3 segments, got %d", domain.ErrInvalidGeometry, segments)
	}
	if !finite(radiusMeters) || radiusMeters <= 0 {
		return nil, fmt.Errorf("%w: circle radius must be positive, got %v", domain.ErrInvalidGeometry, radiusMeters)
	}
	lon, lat := center[0], center[1]
	if !finite(lon) || !finite(lat) || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return nil, fmt.Errorf("%w: circle center %v out of range", domain.ErrInvalidGeometry, center)
	}
	if math.Abs(lat) >= MaxCircleLatitude {
		return nil, fmt.Errorf("%w: circle centered at latitude %.4f", domain.ErrDegenerateGeometry, lat)
	}

	latRad := toRad(lat)
	cosLat := math.Cos(latRad)
	ring := make(orb.Ring, segments+1)
	for i := 0; i < segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		dLat := radiusMeters * math.Cos(theta) / EarthRadius
		dLon := radiusMeters * math.Sin(theta) / (EarthRadius * cosLat)

		p := orb.Point{toDeg(toRad(lon) + dLon), toDeg(latRad + dLat)}
		if !finite(p[0]) || !finite(p[1]) || math.Abs(p[1]) > 90 {
			return nil, fmt.Errorf("%w: circle of %.0fm at latitude %.4f crosses a pole", domain.ErrDegenerateGeometry, radiusMeters, lat)
		}
		ring[i] = p
	}
	ring[segments] = ring[0]

	return orb.Polygon{ring}, nil
}

// WrapAntimeridian returns p unchanged when every longitude lies in
// [-180, 180]. Otherwise p is cut at the antimeridian and each piece is
// shifted back into range, giving a MultiPolygon whose parts meet at ±180.
// p is not modified.
func WrapAntimeridian(p orb.Polygon) orb.Geometry {
	b := p.Bound()
	if b.Min[0] >= -180 && b.Max[0] <= 180 {
		return p
	}

	var out orb.MultiPolygon
	for _, shift := range []float64{360, 0, -360} {
		window := orb.Bound{
			Min: orb.Point{-180 - shift, -90},
			Max: orb.Point{180 - shift, 90},
		}
		part := clip.Polygon(window, p.Clone())
		if len(part) == 0 || len(part[0]) < 4 {
			continue
		}
		for _, r := range part {
			for i := range r {
				r[i][0] += shift
			}
		}
		out = append(out, part)
	}
	return out
}
