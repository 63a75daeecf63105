package geo

import (
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/truckmatch/routecompare/pkg/core"
)

// Web Mercator extent in metres along one axis.
const mercatorWorldSize = 2 * 20037508.342789244

// ToWebMercator projects a WGS84 coordinate to EPSG:3857 metres.
func ToWebMercator(c core.Coordinate) geom.XY {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(c.Lon, c.Lat, 0)
	return geom.XY{X: x, Y: y}
}

// FromWebMercator converts EPSG:3857 metres back to a WGS84 coordinate.
func FromWebMercator(xy geom.XY) core.Coordinate {
	f := wgs84.EPSG().Transform(3857, 4326)
	lon, lat, _ := f(xy.X, xy.Y, 0)
	return core.Coordinate{Lat: lat, Lon: lon}
}

// LineString converts a path to a simplefeatures LineString in lon/lat order.
// A path with a single distinct point or a non-finite coordinate is rejected.
func LineString(path core.PathShape) (geom.LineString, error) {
	flat := make([]float64, 0, len(path)*2)
	for _, c := range path {
		flat = append(flat, c.Lon, c.Lat)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// Point converts a coordinate to a simplefeatures Point.
func Point(c core.Coordinate) (geom.Point, error) {
	return geom.XY{X: c.Lon, Y: c.Lat}.AsPoint()
}
