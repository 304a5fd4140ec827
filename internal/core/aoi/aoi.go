// Package aoi holds areas of interest and the in-memory store that creates
// them. Area and bounds are derived here and nowhere else.
package aoi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// Type records how an AOI was defined.
type Type string

const (
	TypeRectangle Type = "rectangle"
	TypeCircle    Type = "circle"
	TypePolygon   Type = "polygon"
	TypeFreehand  Type = "freehand"
	TypeFile      Type = "file"
)

// Valid reports whether t is a known AOI type.
func (t Type) Valid() bool {
	switch t {
	case TypeRectangle, TypeCircle, TypePolygon, TypeFreehand, TypeFile:
		return true
	}
	return false
}

// Metadata is optional caller-supplied information about an AOI.
type Metadata struct {
	Name       string
	Filename   string
	UploadedAt time.Time
}

// AOI is immutable once constructed. The zero value is not usable; AOIs
// come from Store.Add.
type AOI struct {
	id         string
	name       string
	typ        Type
	geometry   domain.Geometry
	area       float64
	bounds     domain.Bounds
	filename   string
	uploadedAt time.Time
	createdAt  time.Time
}

func (a AOI) ID() string   { return a.id }
func (a AOI) Name() string { return a.name }
func (a AOI) Type() Type   { return a.typ }

// CoordinateSystem returns the registry ID the geometry is expressed in.
func (a AOI) CoordinateSystem() string { return a.geometry.CRS }

// Geometry returns a copy of the normalized polygonal geometry.
func (a AOI) Geometry() domain.Geometry { return a.geometry.Clone() }

// Area is in km², derived from the geometry.
func (a AOI) Area() float64 { return a.area }

// Bounds are in the AOI's own coordinate system.
func (a AOI) Bounds() domain.Bounds { return a.bounds }

// Filename is the uploaded source file for TypeFile AOIs.
func (a AOI) Filename() string { return a.filename }

// UploadedAt is zero unless the AOI came from a file.
func (a AOI) UploadedAt() time.Time { return a.uploadedAt }

func (a AOI) CreatedAt() time.Time { return a.createdAt }

func (a AOI) String() string {
	return fmt.Sprintf("%s %q (%s, %.2f km²)", a.typ, a.name, a.geometry.CRS, a.area)
}

type aoiJSON struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Type             Type            `json:"type"`
	CoordinateSystem string          `json:"coordinate_system"`
	Geometry         domain.Geometry `json:"geometry"`
	AreaKm2          float64         `json:"area_km2"`
	Bounds           domain.Bounds   `json:"bounds"`
	Filename         string          `json:"filename,omitempty"`
	UploadedAt       *time.Time      `json:"uploaded_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// MarshalJSON exposes the derived fields read-only.
func (a AOI) MarshalJSON() ([]byte, error) {
	out := aoiJSON{
		ID:               a.id,
		Name:             a.name,
		Type:             a.typ,
		CoordinateSystem: a.geometry.CRS,
		Geometry:         a.geometry,
		AreaKm2:          a.area,
		Bounds:           a.bounds,
		Filename:         a.filename,
		CreatedAt:        a.createdAt,
	}
	if !a.uploadedAt.IsZero() {
		t := a.uploadedAt
		out.UploadedAt = &t
	}
	return json.Marshal(out)
}
