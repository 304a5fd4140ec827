package domain

// CRSKind classifies a coordinate reference system.
type CRSKind string

const (
	CRSGeographic     CRSKind = "geographic"
	CRSUTM            CRSKind = "utm"
	CRSOtherProjected CRSKind = "other-projected"
)

// Axis describes one coordinate field of a reference system: lon/lat for
// geographic systems, easting/northing for projected ones.
type Axis struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Unit  string  `json:"unit"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Contains reports whether v lies within the axis' valid range.
func (a Axis) Contains(v float64) bool {
	return v >= a.Min && v <= a.Max
}

// CoordinateSystem is an immutable registry entry. Geometry records carry
// only its ID.
type CoordinateSystem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Authority   string  `json:"authority"` // e.g. "EPSG:4326"
	Kind        CRSKind `json:"kind"`
	Zone        string  `json:"zone,omitempty"`
	Description string  `json:"description"`
	X           Axis    `json:"x"`
	Y           Axis    `json:"y"`

	// Transverse Mercator parameters, set for Kind == CRSUTM only.
	UTMZone  int  `json:"-"`
	Southern bool `json:"-"`
}

// IsGeographic reports whether coordinates are lon/lat degrees.
func (cs CoordinateSystem) IsGeographic() bool {
	return cs.Kind == CRSGeographic
}
