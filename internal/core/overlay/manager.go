// Package overlay reconciles AOIs, administrative boundaries and the drawing
// preview against a host map surface.
package overlay

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/samirrijal/geoportal/internal/core/aoi"
	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/ports"
	"github.com/samirrijal/geoportal/internal/pkg/geospatial"
)

// PreviewLayerID is the ID of the single in-progress drawing layer.
const PreviewLayerID = "drawing-preview"

// Layer ID prefixes.
const (
	boundaryPrefix = "boundary:"
	aoiPrefix      = "aoi:"
)

// CoordinateSystems resolves CRS ids.
type CoordinateSystems interface {
	Get(id string) (domain.CoordinateSystem, error)
}

// Config holds the fit-to-bounds rules.
type Config struct {
	// DisplayCRS is the geographic CRS of the host map.
	DisplayCRS string
	// Padding is the fit padding in pixels, [x, y].
	Padding [2]int
	// MaxZoom caps how far a fit may zoom in.
	MaxZoom int
	// MinSpanMeters is the extent given to fits whose bounds have no area.
	MinSpanMeters float64
}

// DefaultConfig returns padding 20px, max zoom 15 and a 500 m minimum span.
func DefaultConfig(displayCRS string) Config {
	return Config{
		DisplayCRS:    displayCRS,
		Padding:       [2]int{20, 20},
		MaxZoom:       15,
		MinSpanMeters: 500,
	}
}

// RenderFailure records a feature that was skipped.
type RenderFailure struct {
	Kind string // "aoi", "boundary" or "preview"
	ID   string
	Err  error
}

func (f RenderFailure) key() string { return f.Kind + "/" + f.ID }

// Option configures a Manager.
type Option func(*Manager)

// WithPalette replaces the default palette.
func WithPalette(p Palette) Option {
	return func(m *Manager) { m.palette = p }
}

// WithLogger sets the logger used for render failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithFailureHook is called once for every newly failing feature.
func WithFailureHook(fn func(RenderFailure)) Option {
	return func(m *Manager) { m.onFailure = fn }
}

// Manager owns the rendered layer set of one map surface. Every setter
// re-reconciles; layers whose rendering did not change produce no surface
// calls, so repeated identical input is a no-op. Not safe for concurrent use.
type Manager struct {
	surface   ports.MapSurface
	systems   CoordinateSystems
	cfg       Config
	palette   Palette
	log       *slog.Logger
	onFailure func(RenderFailure)

	aois           []aoi.AOI
	focalAOI       string
	boundaries     []domain.AdministrativeBoundary
	visible        domain.VisibilitySet
	focalBoundary  string
	previewVisible bool
	preview        *domain.Geometry

	rendered map[string]domain.Layer
	order    []string
	failures []RenderFailure
	lastFit  *domain.FitInstruction
}

// NewManager creates a manager with nothing rendered.
func NewManager(surface ports.MapSurface, systems CoordinateSystems, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		surface:  surface,
		systems:  systems,
		cfg:      cfg,
		palette:  DefaultPalette(),
		visible:  domain.NewVisibilitySet(),
		rendered: make(map[string]domain.Layer),
	}
	for _, o := range opts {
		o(m)
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	return m
}

// SetAOIs replaces the AOI input. A focal AOI that is no longer present is
// cleared.
func (m *Manager) SetAOIs(aois []aoi.AOI) error {
	m.aois = slices.Clone(aois)
	if m.focalAOI != "" {
		if _, ok := m.findAOI(m.focalAOI); !ok {
			m.focalAOI = ""
		}
	}
	return m.reconcile()
}

// SetFocalAOI highlights an AOI and fits the view to it. An empty id clears
// the focus without moving the view.
func (m *Manager) SetFocalAOI(id string) error {
	if id == "" {
		m.focalAOI = ""
		return m.reconcile()
	}
	a, ok := m.findAOI(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrAOINotFound, id)
	}
	m.focalAOI = id
	if err := m.reconcile(); err != nil {
		return err
	}

	bounds, err := m.aoiFitBounds(a)
	if err != nil {
		return err
	}
	return m.fit(aoiPrefix+id, bounds)
}

// SetBoundaries replaces the boundary input. Only members of visible are
// rendered; a focal boundary that is no longer visible is cleared.
func (m *Manager) SetBoundaries(boundaries []domain.AdministrativeBoundary, visible domain.VisibilitySet) error {
	m.boundaries = slices.Clone(boundaries)
	m.visible = visible
	if m.focalBoundary != "" && !m.visible.Contains(m.focalBoundary) {
		m.focalBoundary = ""
	}
	return m.reconcile()
}

// SetFocalBoundary highlights a visible boundary and fits the view to it.
// An empty id clears the focus.
func (m *Manager) SetFocalBoundary(id string) error {
	if id == "" {
		m.focalBoundary = ""
		return m.reconcile()
	}
	if !m.visible.Contains(id) {
		return fmt.Errorf("%w: %s is not visible", domain.ErrBoundaryNotFound, id)
	}
	m.focalBoundary = id
	if err := m.reconcile(); err != nil {
		return err
	}

	l, ok := m.rendered[boundaryPrefix+id]
	if !ok {
		return fmt.Errorf("%w: boundary %s has no renderable geometry", domain.ErrInvalidGeometry, id)
	}
	bounds, err := geospatial.ComputeBounds(l.Geometry)
	if err != nil {
		return err
	}
	return m.fit(boundaryPrefix+id, bounds)
}

// SetDrawingPreviewVisible toggles the drawing preview layer.
func (m *Manager) SetDrawingPreviewVisible(visible bool) error {
	m.previewVisible = visible
	return m.reconcile()
}

// SetPreview replaces the in-progress drawing geometry; nil clears it.
func (m *Manager) SetPreview(g *domain.Geometry) error {
	if g == nil {
		m.preview = nil
	} else {
		c := g.Clone()
		m.preview = &c
	}
	return m.reconcile()
}

// FocalAOI returns the focal AOI id, or "".
func (m *Manager) FocalAOI() string { return m.focalAOI }

// FocalBoundary returns the focal boundary id, or "".
func (m *Manager) FocalBoundary() string { return m.focalBoundary }

// PreviewVisible reports whether the drawing preview is enabled.
func (m *Manager) PreviewVisible() bool { return m.previewVisible }

// Layers returns the rendered layers in draw order: boundaries, AOIs, then
// the preview.
func (m *Manager) Layers() []domain.Layer {
	out := make([]domain.Layer, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rendered[id])
	}
	return out
}

// LastFit returns the most recent fit instruction.
func (m *Manager) LastFit() (domain.FitInstruction, bool) {
	if m.lastFit == nil {
		return domain.FitInstruction{}, false
	}
	return *m.lastFit, true
}

// Failures returns the features skipped by the last reconcile.
func (m *Manager) Failures() []RenderFailure {
	return slices.Clone(m.failures)
}

func (m *Manager) findAOI(id string) (aoi.AOI, bool) {
	for _, a := range m.aois {
		if a.ID() == id {
			return a, true
		}
	}
	return aoi.AOI{}, false
}

// reconcile diffs the desired layer set against what is rendered.
func (m *Manager) reconcile() error {
	desired, failures := m.desired()
	m.recordFailures(failures)

	want := make(map[string]struct{}, len(desired))
	order := make([]string, 0, len(desired))
	var errs []error

	for _, l := range desired {
		want[l.ID] = struct{}{}
		cur, ok := m.rendered[l.ID]
		switch {
		case !ok:
			if err := m.surface.AddLayer(l); err != nil {
				errs = append(errs, fmt.Errorf("add layer %s: %w", l.ID, err))
				continue
			}
		case !cur.Equal(l):
			if err := m.surface.UpdateLayer(l); err != nil {
				errs = append(errs, fmt.Errorf("update layer %s: %w", l.ID, err))
				order = append(order, l.ID)
				continue
			}
		}
		m.rendered[l.ID] = l
		order = append(order, l.ID)
	}

	var stuck []string
	for _, id := range m.order {
		if _, ok := want[id]; ok {
			continue
		}
		if err := m.surface.RemoveLayer(id); err != nil {
			errs = append(errs, fmt.Errorf("remove layer %s: %w", id, err))
			stuck = append(stuck, id)
			continue
		}
		delete(m.rendered, id)
	}
	// layers that failed to remove stay tracked, in their old order, so the
	// next pass retries them
	m.order = append(order, stuck...)
	return errors.Join(errs...)
}

func (m *Manager) desired() ([]domain.Layer, []RenderFailure) {
	var (
		layers   []domain.Layer
		failures []RenderFailure
	)

	for _, b := range m.boundaries {
		if !m.visible.Contains(b.ID) {
			continue
		}
		g, err := m.display(b.Geometry)
		if err != nil {
			failures = append(failures, RenderFailure{Kind: "boundary", ID: b.ID, Err: err})
			continue
		}
		layers = append(layers, domain.Layer{
			ID:       boundaryPrefix + b.ID,
			Group:    domain.GroupBoundary,
			SourceID: b.ID,
			Style:    m.palette.Boundary(b.Level, b.ID == m.focalBoundary),
			Geometry: g,
			Popup:    domain.Popup{Title: b.Name, Kind: string(b.Level), AreaKm2: b.AreaKm2},
		})
	}

	for _, a := range m.aois {
		g, err := m.display(a.Geometry())
		if err != nil {
			failures = append(failures, RenderFailure{Kind: "aoi", ID: a.ID(), Err: err})
			continue
		}
		area := a.Area()
		layers = append(layers, domain.Layer{
			ID:       aoiPrefix + a.ID(),
			Group:    domain.GroupAOI,
			SourceID: a.ID(),
			Style:    m.palette.AOI(a.ID() == m.focalAOI),
			Geometry: g,
			Popup:    domain.Popup{Title: a.Name(), Kind: string(a.Type()), AreaKm2: &area},
		})
	}

	if m.previewVisible && m.preview != nil {
		g, err := m.display(*m.preview)
		if err != nil {
			failures = append(failures, RenderFailure{Kind: "preview", ID: PreviewLayerID, Err: err})
		} else {
			layers = append(layers, domain.Layer{
				ID:       PreviewLayerID,
				Group:    domain.GroupPreview,
				Style:    m.palette.Preview(),
				Geometry: g,
				Popup:    domain.Popup{Title: "Drawing"},
			})
		}
	}
	return layers, failures
}

// display validates g and projects it into the display CRS.
func (m *Manager) display(g domain.Geometry) (domain.Geometry, error) {
	if err := g.Validate(); err != nil {
		return domain.Geometry{}, err
	}
	if g.CRS == "" {
		g.CRS = m.cfg.DisplayCRS
	}
	cs, err := m.systems.Get(g.CRS)
	if err != nil {
		return domain.Geometry{}, err
	}
	return geospatial.ToWGS84Geometry(g, cs, m.cfg.DisplayCRS)
}

func (m *Manager) recordFailures(failures []RenderFailure) {
	seen := make(map[string]struct{}, len(m.failures))
	for _, f := range m.failures {
		seen[f.key()] = struct{}{}
	}
	for _, f := range failures {
		if _, ok := seen[f.key()]; ok {
			continue
		}
		m.log.Warn("skipping unrenderable feature",
			"kind", f.Kind,
			"id", f.ID,
			"error", f.Err,
		)
		if m.onFailure != nil {
			m.onFailure(f)
		}
	}
	m.failures = failures
}

// aoiFitBounds prefers the AOI's own bounds and falls back to the rendered
// geometry.
func (m *Manager) aoiFitBounds(a aoi.AOI) (domain.Bounds, error) {
	if b := a.Bounds(); !b.IsZero() {
		cs, err := m.systems.Get(a.CoordinateSystem())
		if err == nil {
			if wb, err := geospatial.BoundsToWGS84(b, cs); err == nil {
				return wb, nil
			}
		}
	}
	l, ok := m.rendered[aoiPrefix+a.ID()]
	if !ok {
		return domain.Bounds{}, fmt.Errorf("%w: AOI %s has no renderable geometry", domain.ErrInvalidGeometry, a.ID())
	}
	return geospatial.ComputeBounds(l.Geometry)
}

func (m *Manager) fit(target string, b domain.Bounds) error {
	if b.MaxX-b.MinX == 0 || b.MaxY-b.MinY == 0 {
		cx, cy := (b.MinX+b.MaxX)/2, (b.MinY+b.MaxY)/2
		b = b.Extend(geospatial.BoundingBox(cy, cx, m.cfg.MinSpanMeters/2))
	}
	fi := domain.FitInstruction{
		Target:  target,
		Bounds:  b,
		Padding: m.cfg.Padding,
		MaxZoom: m.cfg.MaxZoom,
	}
	if err := m.surface.FitBounds(fi); err != nil {
		return fmt.Errorf("fit %s: %w", target, err)
	}
	m.lastFit = &fi
	return nil
}
