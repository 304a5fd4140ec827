package geospatial

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// Projection converts between a source CRS and WGS84 longitude/latitude.
type Projection interface {
	// ToWGS84 converts source coordinates to longitude/latitude degrees.
	ToWGS84(x, y float64) (lon, lat float64)

	// FromWGS84 converts longitude/latitude degrees to source coordinates.
	FromWGS84(lon, lat float64) (x, y float64)
}

// ForCoordinateSystem returns the projection for cs.
func ForCoordinateSystem(cs domain.CoordinateSystem) (Projection, error) {
	switch cs.Kind {
	case domain.CRSGeographic:
		return Identity{}, nil
	case domain.CRSUTM:
		return NewUTM(cs.UTMZone, cs.Southern), nil
	default:
		return nil, fmt.Errorf("%w: no projection for %s (%s)", domain.ErrUnknownCoordinateSystem, cs.ID, cs.Kind)
	}
}

// Identity is a no-op projection for data already in WGS84.
type Identity struct{}

func (Identity) ToWGS84(x, y float64) (lon, lat float64)   { return x, y }
func (Identity) FromWGS84(lon, lat float64) (x, y float64) { return lon, lat }

// WGS84 ellipsoid and UTM constants.
const (
	wgs84A  = 6378137.0
	wgs84F  = 1 / 298.257223563
	utmK0   = 0.9996
	utmE0   = 500000.0
	utmN0S  = 10000000.0
	utmZone = 6.0
)

// UTM is a Transverse Mercator projection for one UTM zone (Snyder, USGS
// Professional Paper 1395, series truncated at the sixth order).
type UTM struct {
	zone     int
	southern bool
	lon0     float64 // central meridian, radians
}

// NewUTM returns the projection for a zone in the given hemisphere.
func NewUTM(zone int, southern bool) UTM {
	return UTM{
		zone:     zone,
		southern: southern,
		lon0:     toRad(float64(zone)*utmZone - 183),
	}
}

var (
	e2  = wgs84F * (2 - wgs84F)
	e4  = e2 * e2
	e6  = e4 * e2
	ep2 = e2 / (1 - e2)
)

func meridianArc(phi float64) float64 {
	return wgs84A * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

// FromWGS84 projects lon/lat degrees to easting/northing meters.
func (u UTM) FromWGS84(lon, lat float64) (x, y float64) {
	phi := toRad(lat)
	sin, cos, tan := math.Sin(phi), math.Cos(phi), math.Tan(phi)

	n := wgs84A / math.Sqrt(1-e2*sin*sin)
	t := tan * tan
	c := ep2 * cos * cos
	a := cos * (toRad(lon) - u.lon0)
	m := meridianArc(phi)

	x = utmK0*n*(a+(1-t+c)*math.Pow(a, 3)/6+
		(5-18*t+t*t+72*c-58*ep2)*math.Pow(a, 5)/120) + utmE0
	y = utmK0 * (m + n*tan*(a*a/2+
		(5-t+9*c+4*c*c)*math.Pow(a, 4)/24+
		(61-58*t+t*t+600*c-330*ep2)*math.Pow(a, 6)/720))
	if u.southern {
		y += utmN0S
	}
	return x, y
}

// ToWGS84 inverts FromWGS84.
func (u UTM) ToWGS84(x, y float64) (lon, lat float64) {
	x -= utmE0
	if u.southern {
		y -= utmN0S
	}

	m := y / utmK0
	mu := m / (wgs84A * (1 - e2/4 - 3*e4/64 - 5*e6/256))
	sq := math.Sqrt(1 - e2)
	e1 := (1 - sq) / (1 + sq)

	phi1 := mu +
		(3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sin, cos, tan := math.Sin(phi1), math.Cos(phi1), math.Tan(phi1)
	n1 := wgs84A / math.Sqrt(1-e2*sin*sin)
	t1 := tan * tan
	c1 := ep2 * cos * cos
	r1 := wgs84A * (1 - e2) / math.Pow(1-e2*sin*sin, 1.5)
	d := x / (n1 * utmK0)

	phi := phi1 - (n1*tan/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*math.Pow(d, 4)/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*math.Pow(d, 6)/720)
	lam := u.lon0 + (d-
		(1+2*t1+c1)*math.Pow(d, 3)/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*math.Pow(d, 5)/120)/cos

	return toDeg(lam), toDeg(phi)
}

// ToWGS84Geometry returns a copy of g expressed in WGS84 lon/lat, tagged
// with targetCRS. Geographic input is cloned unchanged.
func ToWGS84Geometry(g domain.Geometry, cs domain.CoordinateSystem, targetCRS string) (domain.Geometry, error) {
	if g.CRS != cs.ID {
		return domain.Geometry{}, fmt.Errorf("%w: geometry is in %q, not %q", domain.ErrUnknownCoordinateSystem, g.CRS, cs.ID)
	}
	if g.Shape == nil {
		return domain.Geometry{}, fmt.Errorf("%w: missing shape", domain.ErrInvalidGeometry)
	}
	out := g.Clone()
	out.CRS = targetCRS
	if cs.IsGeographic() {
		return out, nil
	}

	p, err := ForCoordinateSystem(cs)
	if err != nil {
		return domain.Geometry{}, err
	}
	out.Shape = project.Geometry(out.Shape, func(pt orb.Point) orb.Point {
		lon, lat := p.ToWGS84(pt[0], pt[1])
		return orb.Point{lon, lat}
	})
	return out, nil
}

// BoundsToWGS84 projects the four corners of b and returns their envelope.
func BoundsToWGS84(b domain.Bounds, cs domain.CoordinateSystem) (domain.Bounds, error) {
	if cs.IsGeographic() {
		return b, nil
	}
	p, err := ForCoordinateSystem(cs)
	if err != nil {
		return domain.Bounds{}, err
	}
	var out orb.Bound
	for i, c := range [][2]float64{{b.MinX, b.MinY}, {b.MaxX, b.MinY}, {b.MaxX, b.MaxY}, {b.MinX, b.MaxY}} {
		lon, lat := p.ToWGS84(c[0], c[1])
		pt := orb.Point{lon, lat}
		if i == 0 {
			out = pt.Bound()
		} else {
			out = out.Extend(pt)
		}
	}
	return domain.BoundsFromOrb(out), nil
}
