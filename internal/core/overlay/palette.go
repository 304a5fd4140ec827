package overlay

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// Default colours.
const (
	DefaultBoundaryColor = "#7f7f7f"
	DefaultAOIColor      = "#3388ff"
	DefaultFocalColor    = "#ff7800"
)

var defaultLevelColors = map[domain.BoundaryLevel]string{
	domain.LevelCountry:  "#1f78b4",
	domain.LevelProvince: "#33a02c",
	domain.LevelDistrict: "#e31a1c",
	domain.LevelWard:     "#6a3d9a",
}

var white = colorful.Color{R: 1, G: 1, B: 1}

// Palette maps boundary levels and AOI states to styles. Unknown levels use
// the fallback colour.
type Palette struct {
	levels   map[domain.BoundaryLevel]colorful.Color
	fallback colorful.Color
	aoi      colorful.Color
	focal    colorful.Color
}

// DefaultPalette returns the built-in palette.
func DefaultPalette() Palette {
	p, err := NewPalette(nil)
	if err != nil {
		panic(err)
	}
	return p
}

// NewPalette builds a palette from the defaults plus level overrides given
// as hex strings.
func NewPalette(overrides map[string]string) (Palette, error) {
	p := Palette{
		levels:   make(map[domain.BoundaryLevel]colorful.Color, len(defaultLevelColors)+len(overrides)),
		fallback: mustHex(DefaultBoundaryColor),
		aoi:      mustHex(DefaultAOIColor),
		focal:    mustHex(DefaultFocalColor),
	}
	for lvl, hex := range defaultLevelColors {
		p.levels[lvl] = mustHex(hex)
	}
	for lvl, hex := range overrides {
		c, err := colorful.Hex(hex)
		if err != nil {
			return Palette{}, fmt.Errorf("palette colour for %q: %w", lvl, err)
		}
		p.levels[domain.BoundaryLevel(lvl)] = c
	}
	return p, nil
}

// Boundary returns the style for a boundary level.
func (p Palette) Boundary(level domain.BoundaryLevel, focal bool) domain.Style {
	c, ok := p.levels[level]
	if !ok {
		c = p.fallback
	}
	s := domain.Style{
		Color:       c.Hex(),
		FillColor:   c.BlendLab(white, 0.6).Clamped().Hex(),
		FillOpacity: 0.15,
		Weight:      2,
		DashArray:   "4 4",
	}
	if focal {
		s.Weight = 3
		s.FillOpacity = 0.3
		s.DashArray = ""
	}
	return s
}

// AOI returns the style for an area of interest.
func (p Palette) AOI(focal bool) domain.Style {
	c := p.aoi
	weight := 2.0
	if focal {
		c = p.focal
		weight = 4
	}
	return domain.Style{
		Color:       c.Hex(),
		FillColor:   c.BlendLab(white, 0.4).Clamped().Hex(),
		FillOpacity: 0.2,
		Weight:      weight,
	}
}

// Preview returns the style of the in-progress drawing.
func (p Palette) Preview() domain.Style {
	return domain.Style{
		Color:       p.aoi.Hex(),
		FillColor:   p.aoi.BlendLab(white, 0.7).Clamped().Hex(),
		FillOpacity: 0.1,
		Weight:      2,
		DashArray:   "6 6",
	}
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}
