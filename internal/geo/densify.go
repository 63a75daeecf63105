package geo

import (
	"math"

	"github.com/truckmatch/routecompare/pkg/core"
)

// DefaultIntervalKm is the densification step used when none is configured.
const DefaultIntervalKm = 0.5

// Interpolate inserts evenly spaced points on every segment longer than
// intervalKm so that marker motion looks continuous. Original vertices are
// kept in order. Paths with fewer than two points are returned unchanged.
func Interpolate(path core.PathShape, intervalKm float64) core.PathShape {
	if len(path) < 2 || intervalKm <= 0 {
		return path
	}

	out := make(core.PathShape, 0, len(path))
	for i := 0; i < len(path)-1; i++ {
		a, b := path[i], path[i+1]
		out = append(out, a)

		d := Distance(a, b)
		if d <= intervalKm {
			continue
		}

		n := int(math.Floor(d / intervalKm))
		for j := 1; j <= n; j++ {
			t := float64(j) / float64(n+1)
			out = append(out, core.Coordinate{
				Lat: a.Lat + (b.Lat-a.Lat)*t,
				Lon: a.Lon + (b.Lon-a.Lon)*t,
			})
		}
	}
	out = append(out, path[len(path)-1])

	return out
}
