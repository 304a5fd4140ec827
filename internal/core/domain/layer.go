package domain

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// LayerGroup partitions rendered layers by origin.
type LayerGroup string

const (
	GroupAOI      LayerGroup = "aoi"
	GroupBoundary LayerGroup = "boundary"
	GroupPreview  LayerGroup = "preview"
)

// Style is the declarative paint of a layer.
type Style struct {
	Color       string  `json:"color"`
	FillColor   string  `json:"fill_color"`
	FillOpacity float64 `json:"fill_opacity"`
	Weight      float64 `json:"weight"`
	DashArray   string  `json:"dash_array,omitempty"`
}

// Popup is the read-only metadata shown when a rendered feature is clicked.
type Popup struct {
	Title   string   `json:"title"`
	Kind    string   `json:"kind"`
	AreaKm2 *float64 `json:"area_km2,omitempty"`
}

// Text renders the popup as plain lines.
func (p Popup) Text() string {
	var b strings.Builder
	b.WriteString(p.Title)
	if p.Kind != "" {
		fmt.Fprintf(&b, "\nType: %s", p.Kind)
	}
	if p.AreaKm2 != nil {
		fmt.Fprintf(&b, "\nArea: %.2f km²", *p.AreaKm2)
	}
	return b.String()
}

// Layer is one entry of the declarative layer list handed to the host map.
// Geometry is always in WGS84 lon/lat.
type Layer struct {
	ID       string     `json:"id"`
	Group    LayerGroup `json:"group"`
	SourceID string     `json:"source_id"`
	Style    Style      `json:"style"`
	Geometry Geometry   `json:"geometry"`
	Popup    Popup      `json:"popup"`
}

// Equal reports whether two layers would render identically.
func (l Layer) Equal(o Layer) bool {
	if l.ID != o.ID || l.Group != o.Group || l.SourceID != o.SourceID || l.Style != o.Style {
		return false
	}
	if !popupEqual(l.Popup, o.Popup) || l.Geometry.CRS != o.Geometry.CRS {
		return false
	}
	if l.Geometry.Shape == nil || o.Geometry.Shape == nil {
		return l.Geometry.Shape == nil && o.Geometry.Shape == nil
	}
	return orb.Equal(l.Geometry.Shape, o.Geometry.Shape)
}

func popupEqual(a, b Popup) bool {
	if a.Title != b.Title || a.Kind != b.Kind {
		return false
	}
	if a.AreaKm2 == nil || b.AreaKm2 == nil {
		return a.AreaKm2 == nil && b.AreaKm2 == nil
	}
	return *a.AreaKm2 == *b.AreaKm2
}

// FitInstruction asks the host map to show Bounds (WGS84) with padding in
// pixels, never zooming past MaxZoom.
type FitInstruction struct {
	Target  string `json:"target"`
	Bounds  Bounds `json:"bounds"`
	Padding [2]int `json:"padding"`
	MaxZoom int    `json:"max_zoom"`
}
