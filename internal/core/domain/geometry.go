package domain

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeometryKind is the tag of the Geometry union.
type GeometryKind string

const (
	KindPoint        GeometryKind = "Point"
	KindPolygon      GeometryKind = "Polygon"
	KindMultiPolygon GeometryKind = "MultiPolygon"
)

// Geometry pairs raw coordinates with the ID of the coordinate system they
// are expressed in. Coordinates are always [x, y]: longitude-or-easting
// first, latitude-or-northing second.
type Geometry struct {
	CRS   string
	Shape orb.Geometry
}

// NewPolygon builds a single-ring polygon geometry.
func NewPolygon(crs string, ring orb.Ring) Geometry {
	return Geometry{CRS: crs, Shape: orb.Polygon{ring}}
}

// Kind returns the union tag, or "" for unsupported or missing shapes.
func (g Geometry) Kind() GeometryKind {
	switch g.Shape.(type) {
	case orb.Point:
		return KindPoint
	case orb.Polygon:
		return KindPolygon
	case orb.MultiPolygon:
		return KindMultiPolygon
	default:
		return ""
	}
}

// IsPolygonal reports whether the geometry can carry an area.
func (g Geometry) IsPolygonal() bool {
	k := g.Kind()
	return k == KindPolygon || k == KindMultiPolygon
}

// Clone returns a deep copy so callers never share coordinate slices.
func (g Geometry) Clone() Geometry {
	if g.Shape == nil {
		return g
	}
	return Geometry{CRS: g.CRS, Shape: orb.Clone(g.Shape)}
}

// Validate checks the structural invariants: every polygon ring is closed
// and has at least four points.
func (g Geometry) Validate() error {
	switch s := g.Shape.(type) {
	case nil:
		return fmt.Errorf("%w: missing shape", ErrInvalidGeometry)
	case orb.Point:
		return nil
	case orb.Polygon:
		return validatePolygon(s)
	case orb.MultiPolygon:
		if len(s) == 0 {
			return fmt.Errorf("%w: multipolygon has no members", ErrEmptyGeometry)
		}
		for i, p := range s {
			if err := validatePolygon(p); err != nil {
				return fmt.Errorf("member %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported shape %s", ErrInvalidGeometry, g.Shape.GeoJSONType())
	}
}

func validatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: polygon has no rings", ErrEmptyGeometry)
	}
	for i, r := range p {
		if len(r) < 4 {
			return fmt.Errorf("%w: ring %d has %d points, need at least 4", ErrEmptyGeometry, i, len(r))
		}
		if !r.Closed() {
			return fmt.Errorf("%w: ring %d is not closed", ErrInvalidGeometry, i)
		}
	}
	return nil
}

type geometryJSON struct {
	CRS      string            `json:"crs"`
	Geometry *geojson.Geometry `json:"geometry"`
}

// MarshalJSON encodes the geometry as {"crs": id, "geometry": GeoJSON}.
func (g Geometry) MarshalJSON() ([]byte, error) {
	out := geometryJSON{CRS: g.CRS}
	if g.Shape != nil {
		out.Geometry = geojson.NewGeometry(g.Shape)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var in geometryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	g.CRS = in.CRS
	g.Shape = nil
	if in.Geometry != nil {
		g.Shape = in.Geometry.Geometry()
	}
	return nil
}

// Bounds is an axis-aligned bounding box in the owning geometry's CRS.
type Bounds struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// BoundsFromOrb converts an orb.Bound.
func BoundsFromOrb(b orb.Bound) Bounds {
	return Bounds{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1]}
}

// Array returns [minX, minY, maxX, maxY].
func (b Bounds) Array() [4]float64 {
	return [4]float64{b.MinX, b.MinY, b.MaxX, b.MaxY}
}

// IsZero reports whether the bounds were never set.
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// Extend returns the union of b and o.
func (b Bounds) Extend(o Bounds) Bounds {
	if b.IsZero() {
		return o
	}
	if o.IsZero() {
		return b
	}
	return Bounds{
		MinX: min(b.MinX, o.MinX),
		MinY: min(b.MinY, o.MinY),
		MaxX: max(b.MaxX, o.MaxX),
		MaxY: max(b.MaxY, o.MaxY),
	}
}

// MarshalJSON encodes bounds as a four-element array.
func (b Bounds) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Array())
}

// UnmarshalJSON decodes a four-element array.
func (b *Bounds) UnmarshalJSON(data []byte) error {
	var a [4]float64
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*b = Bounds{MinX: a[0], MinY: a[1], MaxX: a[2], MaxY: a[3]}
	return nil
}
