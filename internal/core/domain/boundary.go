package domain

// BoundaryLevel is the administrative tier of a boundary.
type BoundaryLevel string

const (
	LevelCountry  BoundaryLevel = "country"
	LevelProvince BoundaryLevel = "province"
	LevelDistrict BoundaryLevel = "district"
	LevelWard     BoundaryLevel = "ward"
)

// AdministrativeBoundary is read-only reference data supplied by the
// boundary catalogue. The core renders and filters it, never mutates it.
type AdministrativeBoundary struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Level    BoundaryLevel `json:"level"`
	ParentID string        `json:"parent_id,omitempty"`
	Geometry Geometry      `json:"geometry"`
	AreaKm2  *float64      `json:"area_km2,omitempty"`
}

// VisibilitySet is an immutable snapshot of boundary IDs eligible for
// rendering.
type VisibilitySet struct {
	ids map[string]struct{}
}

// NewVisibilitySet copies ids into a new snapshot.
func NewVisibilitySet(ids ...string) VisibilitySet {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return VisibilitySet{ids: m}
}

// Contains reports whether id is visible.
func (v VisibilitySet) Contains(id string) bool {
	_, ok := v.ids[id]
	return ok
}

// Len returns the number of visible IDs.
func (v VisibilitySet) Len() int { return len(v.ids) }

// IDs returns the members in no particular order.
func (v VisibilitySet) IDs() []string {
	out := make([]string, 0, len(v.ids))
	for id := range v.ids {
		out = append(out, id)
	}
	return out
}
