package geospatial_test

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/samirrijal/geoportal/internal/core/crs"
	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/pkg/geospatial"
)

func TestUTM_Harare(t *testing.T) {
	u := geospatial.NewUTM(36, true)
	x, y := u.FromWGS84(31.0335, -17.8252)
	if x < 280000 || x > 300000 {
		t.Errorf("easting %v outside expected range", x)
	}
	if y < 8020000 || y > 8040000 {
		t.Errorf("northing %v outside expected range", y)
	}

	lon, lat := u.ToWGS84(x, y)
	if math.Abs(lon-31.0335) > 1e-6 || math.Abs(lat+17.8252) > 1e-6 {
		t.Errorf("round trip drifted: got (%v, %v)", lon, lat)
	}
}

func TestUTM_CentralMeridian(t *testing.T) {
	u := geospatial.NewUTM(35, true)
	x, y := u.FromWGS84(27, 0)
	if math.Abs(x-500000) > 1e-6 {
		t.Errorf("expected false easting on central meridian, got %v", x)
	}
	if math.Abs(y-10000000) > 1e-6 {
		t.Errorf("expected false northing at the equator, got %v", y)
	}
}

func TestToWGS84Geometry_UTM(t *testing.T) {
	reg := crs.Default()
	utm, _ := reg.Get(crs.UTM36S)

	poly, err := geospatial.BoundsToPolygon(orb.Point{290000, 8020000}, orb.Point{300000, 8030000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src := domain.Geometry{CRS: crs.UTM36S, Shape: poly}

	out, err := geospatial.ToWGS84Geometry(src, utm, crs.WGS84)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.CRS != crs.WGS84 {
		t.Errorf("expected wgs84 tag, got %s", out.CRS)
	}
	b := out.Shape.Bound()
	if b.Min[0] < 30 || b.Max[0] > 32 || b.Min[1] < -19 || b.Max[1] > -17 {
		t.Errorf("projected bounds %v not around Harare", b)
	}
	if src.Shape.(orb.Polygon)[0][0] != (orb.Point{290000, 8020000}) {
		t.Error("source geometry was modified")
	}
}

func TestBoundsToWGS84_Geographic(t *testing.T) {
	cs, _ := crs.Default().Get(crs.WGS84)
	in := domain.Bounds{MinX: 28, MinY: -20, MaxX: 30, MaxY: -18}
	out, err := geospatial.BoundsToWGS84(in, cs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != in {
		t.Errorf("expected identity, got %v", out)
	}
}

func TestHaversine(t *testing.T) {
	// One degree of arc on a sphere of EarthRadius.
	d := geospatial.Haversine(0, 0, 1, 0)
	if math.Abs(d-111319.49) > 0.5 {
		t.Errorf("expected ~111319.49 m, got %v", d)
	}
}
