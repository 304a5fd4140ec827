package geospatial

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// BoundsToPolygon builds the closed 5-point rectangle spanned by the
// south-west and north-east corners, given as [x, y].
func BoundsToPolygon(sw, ne orb.Point) (orb.Polygon, error) {
	for _, v := range []float64{sw[0], sw[1], ne[0], ne[1]} {
		if !finite(v) {
			return nil, fmt.Errorf("%w: non-finite corner coordinate", domain.ErrInvalidGeometry)
		}
	}
	if sw[0] >= ne[0] {
		return nil, fmt.Errorf("%w: west edge %v is not less than east edge %v", domain.ErrInvalidGeometry, sw[0], ne[0])
	}
	if sw[1] >= ne[1] {
		return nil, fmt.Errorf("%w: south edge %v is not less than north edge %v", domain.ErrInvalidGeometry, sw[1], ne[1])
	}

	return orb.Polygon{orb.Ring{
		sw,
		{ne[0], sw[1]},
		ne,
		{sw[0], ne[1]},
		sw,
	}}, nil
}
