package geo

import (
	"errors"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371.0

// ErrEmptyZone is returned when an alert zone is built from an empty geometry.
var ErrEmptyZone = errors.New("alert zone geometry is empty")

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// HaversineKm returns the great-circle distance between two points in
// kilometers, assuming a spherical Earth. Coincident points yield 0.
func HaversineKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// WebMercator projects a WGS84 point to EPSG:3857 meters.
// Used to build map URLs that accept a projected center coordinate.
func WebMercator(p Point) (x, y float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ = f(p.Lon, p.Lat, 0)
	return x, y
}

// Zone is a polygonal area of interest, parsed once from WKT.
type Zone struct {
	g geom.Geometry
}

// ParseZone parses a WKT polygon (lon/lat axis order) into a Zone.
func ParseZone(wkt string) (*Zone, error) {
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return nil, err
	}
	if g.IsEmpty() {
		return nil, ErrEmptyZone
	}
	return &Zone{g: g}, nil
}

// Contains reports whether the point lies inside (or on the boundary of) the zone.
func (z *Zone) Contains(p Point) bool {
	pt := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.Lon, Y: p.Lat},
		Type: geom.DimXY,
	})
	return geom.Intersects(z.g, pt.AsGeometry())
}
