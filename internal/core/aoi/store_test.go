package aoi_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/samirrijal/geoportal/internal/core/aoi"
	"github.com/samirrijal/geoportal/internal/core/crs"
	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/pkg/geospatial"
)

func newStore() *aoi.Store {
	n := 0
	return aoi.NewStore(crs.Default(),
		aoi.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("aoi-%d", n)
		}),
		aoi.WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }),
	)
}

func rect(t *testing.T, crsID string, minX, minY, maxX, maxY float64) domain.Geometry {
	t.Helper()
	poly, err := geospatial.BoundsToPolygon(orb.Point{minX, minY}, orb.Point{maxX, maxY})
	if err != nil {
		t.Fatalf("rectangle: %v", err)
	}
	return domain.Geometry{CRS: crsID, Shape: poly}
}

func TestStore_AddDerivesAreaAndBounds(t *testing.T) {
	s := newStore()
	g := rect(t, crs.WGS84, 28, -20, 30, -18)

	a, err := s.Add(aoi.TypeRectangle, g, crs.WGS84, aoi.Metadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID() != "aoi-1" {
		t.Errorf("expected id aoi-1, got %s", a.ID())
	}
	if a.Name() != "Rectangle 1" {
		t.Errorf("expected default name, got %q", a.Name())
	}
	if a.Bounds().Array() != [4]float64{28, -20, 30, -18} {
		t.Errorf("unexpected bounds %v", a.Bounds().Array())
	}

	want, _ := geospatial.ComputeArea(g, mustCRS(t, crs.WGS84))
	if a.Area() != want {
		t.Errorf("expected area %v, got %v", want, a.Area())
	}
	if s.TotalArea() != a.Area() {
		t.Errorf("total area %v does not match %v", s.TotalArea(), a.Area())
	}
}

func TestStore_AddTwiceIsIndependent(t *testing.T) {
	s := newStore()
	g := rect(t, crs.WGS84, 28, -20, 30, -18)

	a1, err := s.Add(aoi.TypeRectangle, g, crs.WGS84, aoi.Metadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a2, err := s.Add(aoi.TypeRectangle, g, crs.WGS84, aoi.Metadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a1.ID() == a2.ID() {
		t.Fatal("expected distinct ids")
	}
	if a1.Area() != a2.Area() || a1.Bounds() != a2.Bounds() {
		t.Errorf("expected equal derived values, got %v/%v and %v/%v", a1.Area(), a1.Bounds(), a2.Area(), a2.Bounds())
	}

	// Mutating the caller's geometry or a returned copy must not leak.
	g.Shape.(orb.Polygon)[0][0] = orb.Point{0, 0}
	got := a1.Geometry()
	got.Shape.(orb.Polygon)[0][1] = orb.Point{1, 1}

	for _, a := range s.List() {
		ring := a.Geometry().Shape.(orb.Polygon)[0]
		if ring[0] != (orb.Point{28, -20}) || ring[1] != (orb.Point{30, -20}) {
			t.Errorf("%s: stored geometry was mutated: %v", a.ID(), ring)
		}
	}
	if math.Abs(s.TotalArea()-2*a1.Area()) > 1e-9 {
		t.Errorf("expected total of both areas, got %v", s.TotalArea())
	}
}

func TestStore_AddRejectsBadGeometry(t *testing.T) {
	s := newStore()

	cases := []struct {
		name string
		g    domain.Geometry
		want error
	}{
		{"point", domain.Geometry{CRS: crs.WGS84, Shape: orb.Point{1, 1}}, domain.ErrInvalidGeometry},
		{"short ring", domain.Geometry{CRS: crs.WGS84, Shape: orb.Polygon{{{0, 0}, {1, 1}, {0, 0}}}}, domain.ErrEmptyGeometry},
		{"open ring", domain.Geometry{CRS: crs.WGS84, Shape: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}}, domain.ErrInvalidGeometry},
		{"out of range", rect(t, crs.WGS84, 170, 80, 190, 85), domain.ErrInvalidGeometry},
		{"missing shape", domain.Geometry{CRS: crs.WGS84}, domain.ErrInvalidGeometry},
	}
	for _, tc := range cases {
		_, err := s.Add(aoi.TypePolygon, tc.g, crs.WGS84, aoi.Metadata{})
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store after failures, got %d", s.Len())
	}
}

func TestStore_AddUnknownCRS(t *testing.T) {
	s := newStore()
	_, err := s.Add(aoi.TypeRectangle, rect(t, "", 0, 0, 1, 1), "epsg:1234", aoi.Metadata{})
	if !errors.Is(err, domain.ErrUnknownCoordinateSystem) {
		t.Fatalf("expected ErrUnknownCoordinateSystem, got %v", err)
	}

	_, err = s.Add(aoi.TypeRectangle, rect(t, crs.UTM35S, 0, 0, 1, 1), crs.WGS84, aoi.Metadata{})
	if !errors.Is(err, domain.ErrUnknownCoordinateSystem) {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}

func TestStore_AddUTM(t *testing.T) {
	s := newStore()
	a, err := s.Add(aoi.TypeRectangle, rect(t, "", 290000, 8020000, 292000, 8021000), crs.UTM36S, aoi.Metadata{Name: " Farm "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.CoordinateSystem() != crs.UTM36S {
		t.Errorf("expected utm36s, got %s", a.CoordinateSystem())
	}
	if a.Name() != "Farm" {
		t.Errorf("expected trimmed name, got %q", a.Name())
	}
	if math.Abs(a.Area()-2.0) > 1e-9 {
		t.Errorf("expected 2 km², got %v", a.Area())
	}
}

func TestStore_FileProvenance(t *testing.T) {
	s := newStore()
	uploaded := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	a, err := s.Add(aoi.TypeFile, rect(t, crs.WGS84, 30, -18, 31, -17), crs.WGS84,
		aoi.Metadata{Filename: "farm.zip", UploadedAt: uploaded})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Name() != "farm.zip" || a.Filename() != "farm.zip" || !a.UploadedAt().Equal(uploaded) {
		t.Errorf("unexpected provenance: %s %s %v", a.Name(), a.Filename(), a.UploadedAt())
	}

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["type"] != "file" || out["filename"] != "farm.zip" {
		t.Errorf("unexpected json: %s", data)
	}
	if b, ok := out["bounds"].([]any); !ok || len(b) != 4 {
		t.Errorf("expected bounds array, got %v", out["bounds"])
	}
}

func TestStore_RemoveAndClear(t *testing.T) {
	s := newStore()
	a1, _ := s.Add(aoi.TypeRectangle, rect(t, crs.WGS84, 0, 0, 1, 1), crs.WGS84, aoi.Metadata{})
	a2, _ := s.Add(aoi.TypeRectangle, rect(t, crs.WGS84, 1, 1, 2, 2), crs.WGS84, aoi.Metadata{})

	if err := s.Remove(a1.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Remove(a1.ID()); !errors.Is(err, domain.ErrAOINotFound) {
		t.Errorf("expected ErrAOINotFound, got %v", err)
	}
	list := s.List()
	if len(list) != 1 || list[0].ID() != a2.ID() {
		t.Fatalf("expected only %s, got %v", a2.ID(), list)
	}
	if s.TotalArea() != a2.Area() {
		t.Errorf("total area not updated after remove")
	}

	s.Clear()
	if s.Len() != 0 || s.TotalArea() != 0 {
		t.Errorf("expected empty store, got %d / %v", s.Len(), s.TotalArea())
	}
	a3, _ := s.Add(aoi.TypeRectangle, rect(t, crs.WGS84, 0, 0, 1, 1), crs.WGS84, aoi.Metadata{})
	if a3.Name() != "Rectangle 1" {
		t.Errorf("expected naming to restart after clear, got %q", a3.Name())
	}
}

func mustCRS(t *testing.T, id string) domain.CoordinateSystem {
	t.Helper()
	cs, err := crs.Default().Get(id)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return cs
}
