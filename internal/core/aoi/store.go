package aoi

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/pkg/geospatial"
)

// CoordinateSystems resolves registry IDs.
type CoordinateSystems interface {
	Get(id string) (domain.CoordinateSystem, error)
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the uuid-based ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// Store is the in-memory AOI collection of a single workspace. It performs
// no I/O and no locking; its owner serializes access.
type Store struct {
	systems CoordinateSystems
	items   []AOI
	seq     map[Type]int
	newID   func() string
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore(systems CoordinateSystems, opts ...Option) *Store {
	s := &Store{
		systems: systems,
		seq:     make(map[Type]int),
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add validates g, derives its area and bounds, and stores a new AOI.
//
// Geometry problems return errors wrapping ErrInvalidGeometry,
// ErrDegenerateGeometry or ErrEmptyGeometry and leave the store unchanged.
// An unregistered csID returns ErrUnknownCoordinateSystem.
func (s *Store) Add(t Type, g domain.Geometry, csID string, meta Metadata) (AOI, error) {
	if !t.Valid() {
		return AOI{}, fmt.Errorf("%w: unknown aoi type %q", domain.ErrInvalidGeometry, t)
	}
	cs, err := s.systems.Get(csID)
	if err != nil {
		return AOI{}, err
	}
	if g.CRS == "" {
		g.CRS = cs.ID
	}
	if g.CRS != cs.ID {
		return AOI{}, fmt.Errorf("%w: geometry tagged %q added as %q", domain.ErrUnknownCoordinateSystem, g.CRS, cs.ID)
	}
	if !g.IsPolygonal() {
		return AOI{}, fmt.Errorf("%w: aoi geometry must be Polygon or MultiPolygon, got %q", domain.ErrInvalidGeometry, g.Kind())
	}
	g = g.Clone()

	if err := checkRange(g.Shape, cs); err != nil {
		return AOI{}, err
	}
	area, err := geospatial.ComputeArea(g, cs)
	if err != nil {
		return AOI{}, err
	}
	bounds, err := geospatial.ComputeBounds(g)
	if err != nil {
		return AOI{}, err
	}

	s.seq[t]++
	name := strings.TrimSpace(meta.Name)
	if name == "" {
		name = defaultName(t, s.seq[t], meta.Filename)
	}

	a := AOI{
		id:        s.newID(),
		name:      name,
		typ:       t,
		geometry:  g,
		area:      area,
		bounds:    bounds,
		createdAt: s.now(),
	}
	if t == TypeFile {
		a.filename = meta.Filename
		a.uploadedAt = meta.UploadedAt
	}
	s.items = append(s.items, a)
	return a, nil
}

// Get returns the AOI with the given id.
func (s *Store) Get(id string) (AOI, bool) {
	for _, a := range s.items {
		if a.id == id {
			return a, true
		}
	}
	return AOI{}, false
}

// Remove deletes one AOI.
func (s *Store) Remove(id string) error {
	for i, a := range s.items {
		if a.id == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrAOINotFound, id)
}

// Clear removes every AOI.
func (s *Store) Clear() {
	s.items = nil
	clear(s.seq)
}

// List returns the AOIs in insertion order.
func (s *Store) List() []AOI {
	out := make([]AOI, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of stored AOIs.
func (s *Store) Len() int { return len(s.items) }

// TotalArea sums the area of the current AOIs in km².
func (s *Store) TotalArea() float64 {
	var total float64
	for _, a := range s.items {
		total += a.area
	}
	return total
}

func defaultName(t Type, n int, filename string) string {
	if t == TypeFile && filename != "" {
		return filename
	}
	label := string(t)
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	return fmt.Sprintf("%s %d", label, n)
}

func checkRange(shape orb.Geometry, cs domain.CoordinateSystem) error {
	var bad *orb.Point
	visit := func(r orb.Ring) {
		for _, p := range r {
			if bad == nil && (!cs.X.Contains(p[0]) || !cs.Y.Contains(p[1])) {
				p := p
				bad = &p
			}
		}
	}
	switch s := shape.(type) {
	case orb.Polygon:
		for _, r := range s {
			visit(r)
		}
	case orb.MultiPolygon:
		for _, p := range s {
			for _, r := range p {
				visit(r)
			}
		}
	}
	if bad != nil {
		return fmt.Errorf("%w: coordinate %v outside %s range %s[%g,%g] %s[%g,%g]",
			domain.ErrInvalidGeometry, *bad, cs.ID, cs.X.Key, cs.X.Min, cs.X.Max, cs.Y.Key, cs.Y.Min, cs.Y.Max)
	}
	return nil
}
