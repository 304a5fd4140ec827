// Package crs holds the static catalogue of supported coordinate reference
// systems.
package crs

import (
	"fmt"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// Well-known registry IDs.
const (
	WGS84  = "wgs84"
	UTM35S = "utm35s"
	UTM36S = "utm36s"
)

var (
	lonAxis = domain.Axis{Key: "lon", Label: "Longitude", Unit: "deg", Min: -180, Max: 180}
	latAxis = domain.Axis{Key: "lat", Label: "Latitude", Unit: "deg", Min: -90, Max: 90}

	// UTM false easting is 500 km; a zone spans roughly 166–834 km.
	eastingAxis  = domain.Axis{Key: "easting", Label: "Easting", Unit: "m", Min: 100000, Max: 900000}
	northingAxis = domain.Axis{Key: "northing", Label: "Northing", Unit: "m", Min: 0, Max: 10000000}
)

// Registry is read-only after construction.
type Registry struct {
	systems []domain.CoordinateSystem
	byID    map[string]int
}

// New builds a registry from the given systems. IDs must be unique.
func New(systems ...domain.CoordinateSystem) (*Registry, error) {
	r := &Registry{
		systems: make([]domain.CoordinateSystem, 0, len(systems)),
		byID:    make(map[string]int, len(systems)),
	}
	for _, cs := range systems {
		if cs.ID == "" {
			return nil, fmt.Errorf("coordinate system %q has no id", cs.Name)
		}
		if _, dup := r.byID[cs.ID]; dup {
			return nil, fmt.Errorf("duplicate coordinate system id %q", cs.ID)
		}
		if cs.Kind == domain.CRSUTM && (cs.UTMZone < 1 || cs.UTMZone > 60) {
			return nil, fmt.Errorf("coordinate system %q: utm zone %d out of range", cs.ID, cs.UTMZone)
		}
		r.byID[cs.ID] = len(r.systems)
		r.systems = append(r.systems, cs)
	}
	return r, nil
}

// Default returns the catalogue used by the portal: WGS84 plus UTM zones
// 35S and 36S.
func Default() *Registry {
	r, err := New(
		domain.CoordinateSystem{
			ID:          WGS84,
			Name:        "WGS 84",
			Authority:   "EPSG:4326",
			Kind:        domain.CRSGeographic,
			Description: "Geographic latitude/longitude in decimal degrees",
			X:           lonAxis,
			Y:           latAxis,
		},
		domain.CoordinateSystem{
			ID:          UTM35S,
			Name:        "WGS 84 / UTM zone 35S",
			Authority:   "EPSG:32735",
			Kind:        domain.CRSUTM,
			Zone:        "35S",
			Description: "Projected easting/northing in metres, 24°E to 30°E, southern hemisphere",
			X:           eastingAxis,
			Y:           northingAxis,
			UTMZone:     35,
			Southern:    true,
		},
		domain.CoordinateSystem{
			ID:          UTM36S,
			Name:        "WGS 84 / UTM zone 36S",
			Authority:   "EPSG:32736",
			Kind:        domain.CRSUTM,
			Zone:        "36S",
			Description: "Projected easting/northing in metres, 30°E to 36°E, southern hemisphere",
			X:           eastingAxis,
			Y:           northingAxis,
			UTMZone:     36,
			Southern:    true,
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// List returns all systems in registration order.
func (r *Registry) List() []domain.CoordinateSystem {
	out := make([]domain.CoordinateSystem, len(r.systems))
	copy(out, r.systems)
	return out
}

// Get returns the system with the given id or ErrUnknownCoordinateSystem.
func (r *Registry) Get(id string) (domain.CoordinateSystem, error) {
	i, ok := r.byID[id]
	if !ok {
		return domain.CoordinateSystem{}, fmt.Errorf("%w: %q", domain.ErrUnknownCoordinateSystem, id)
	}
	return r.systems[i], nil
}
