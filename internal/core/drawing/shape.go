package drawing

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/pkg/geospatial"
)

// Mode is the active drawing tool.
type Mode string

const (
	ModeNone      Mode = "none"
	ModeRectangle Mode = "rectangle"
	ModeCircle    Mode = "circle"
	ModePolygon   Mode = "polygon"
	ModeFreehand  Mode = "freehand"
)

// ParseMode validates a tool name. The empty string is ModeNone.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "", ModeNone:
		return ModeNone, nil
	case ModeRectangle, ModeCircle, ModePolygon, ModeFreehand:
		return m, nil
	}
	return "", fmt.Errorf("unknown drawing mode %q", s)
}

// RawShape is what the host map reports for a gesture, in lon/lat degrees.
// Only the fields relevant to Mode are read.
type RawShape struct {
	Mode    Mode   `json:"mode"`
	ShapeID string `json:"shape_id,omitempty"`

	// Rectangle: two opposite corners in any order.
	CornerA orb.Point `json:"corner_a"`
	CornerB orb.Point `json:"corner_b"`

	// Circle: center plus either a radius or a point on the rim.
	Center       orb.Point  `json:"center"`
	RadiusMeters float64    `json:"radius_m,omitempty"`
	Edge         *orb.Point `json:"edge,omitempty"`

	// Polygon and freehand: vertices in drawing order, closed or not.
	Vertices orb.Ring `json:"vertices,omitempty"`
}

// normalize turns a raw gesture into a closed polygon. Circles that cross
// the antimeridian come back as a MultiPolygon split at ±180.
func normalize(mode Mode, raw RawShape, segments int) (orb.Geometry, error) {
	switch mode {
	case ModeCircle:
		radius := raw.RadiusMeters
		if radius == 0 && raw.Edge != nil {
			radius = geospatial.Haversine(raw.Center[1], raw.Center[0], raw.Edge[1], raw.Edge[0])
		}
		poly, err := geospatial.CircleToPolygon(raw.Center, radius, segments)
		if err != nil {
			return nil, err
		}
		return geospatial.WrapAntimeridian(poly), nil

	case ModeRectangle:
		sw := orb.Point{min(raw.CornerA[0], raw.CornerB[0]), min(raw.CornerA[1], raw.CornerB[1])}
		ne := orb.Point{max(raw.CornerA[0], raw.CornerB[0]), max(raw.CornerA[1], raw.CornerB[1])}
		poly, err := geospatial.BoundsToPolygon(sw, ne)
		if err != nil {
			return nil, err
		}
		return poly, nil

	case ModePolygon, ModeFreehand:
		ring, err := geospatial.CloseRing(raw.Vertices)
		if err != nil {
			return nil, err
		}
		return orb.Polygon{ring}, nil
	}
	return nil, fmt.Errorf("%w: no shape for mode %q", domain.ErrInvalidGeometry, mode)
}
