package geospatial

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// ComputeArea returns the area of g in km².
//
// Geographic geometry is measured on a sphere of radius orb.EarthRadius
// (spherical excess); projected geometry is measured in the plane. The same
// formula applies to every polygon of a given CRS regardless of how it was
// created. Points have zero area.
func ComputeArea(g domain.Geometry, cs domain.CoordinateSystem) (float64, error) {
	if g.CRS != cs.ID {
		return 0, fmt.Errorf("%w: geometry is in %q but was measured as %q", domain.ErrUnknownCoordinateSystem, g.CRS, cs.ID)
	}
	if err := g.Validate(); err != nil {
		return 0, err
	}
	if !g.IsPolygonal() {
		return 0, nil
	}

	var m2 float64
	if cs.IsGeographic() {
		m2 = geo.Area(g.Shape)
	} else {
		m2 = planarArea(g.Shape)
	}
	if !finite(m2) {
		return 0, fmt.Errorf("%w: area is not finite", domain.ErrDegenerateGeometry)
	}
	return math.Abs(m2) / 1e6, nil
}

// planarArea sums outer rings and subtracts holes.
func planarArea(s orb.Geometry) float64 {
	switch s := s.(type) {
	case orb.Polygon:
		var a float64
		for i, r := range s {
			ra := math.Abs(planar.Area(r))
			if i == 0 {
				a += ra
			} else {
				a -= ra
			}
		}
		return a
	case orb.MultiPolygon:
		var a float64
		for _, p := range s {
			a += planarArea(p)
		}
		return a
	default:
		return 0
	}
}

// ComputeBounds returns the bounding box of g in its own CRS.
func ComputeBounds(g domain.Geometry) (domain.Bounds, error) {
	if err := g.Validate(); err != nil {
		return domain.Bounds{}, err
	}
	return domain.BoundsFromOrb(g.Shape.Bound()), nil
}

// CloseRing returns r with its first point appended when the host left it
// open. Rings with fewer than three distinct vertices are rejected.
func CloseRing(r orb.Ring) (orb.Ring, error) {
	if len(r) < 3 {
		return nil, fmt.Errorf("%w: ring has %d vertices, need at least 3", domain.ErrEmptyGeometry, len(r))
	}
	for _, p := range r {
		if !finite(p[0]) || !finite(p[1]) {
			return nil, fmt.Errorf("%w: non-finite vertex", domain.ErrInvalidGeometry)
		}
	}
	out := make(orb.Ring, len(r), len(r)+1)
	copy(out, r)
	if !out.Closed() {
		out = append(out, out[0])
	}
	if len(out) < 4 {
		return nil, fmt.Errorf("%w: closed ring has %d points, need at least 4", domain.ErrEmptyGeometry, len(out))
	}
	return out, nil
}
