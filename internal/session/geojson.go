package session

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/truckmatch/routecompare/internal/geo"
)

// GeoJSON renders the loaded routes as a feature collection: one full path
// and one traveled prefix per strategy, plus the current markers. Geometries
// that cannot be built, such as a path collapsed onto a single point, are
// left out.
func (f Frame) GeoJSON() geom.GeoJSONFeatureCollection {
	fc := geom.GeoJSONFeatureCollection{}
	for _, r := range f.Routes {
		if !r.Loaded {
			continue
		}
		if ls, err := geo.LineString(r.Path); err == nil {
			fc = append(fc, geom.GeoJSONFeature{
				ID:       r.Strategy + ":path",
				Geometry: ls.AsGeometry(),
				Properties: map[string]interface{}{
					"strategy": r.Strategy,
					"kind":     "path",
					"lengthKm": r.LengthKm,
					"points":   r.Points,
				},
			})
		}
		if ls, err := geo.LineString(r.Traveled); err == nil && !ls.IsEmpty() {
			fc = append(fc, geom.GeoJSONFeature{
				ID:       r.Strategy + ":traveled",
				Geometry: ls.AsGeometry(),
				Properties: map[string]interface{}{
					"strategy": r.Strategy,
					"kind":     "traveled",
				},
			})
		}
		if r.Marker == nil {
			continue
		}
		if pt, err := geo.Point(*r.Marker); err == nil {
			fc = append(fc, geom.GeoJSONFeature{
				ID:       r.Strategy + ":marker",
				Geometry: pt.AsGeometry(),
				Properties: map[string]interface{}{
					"strategy": r.Strategy,
					"kind":     "marker",
					"progress": f.Progress,
				},
			})
		}
	}
	return fc
}
