package geo

import (
	"math"

	"github.com/truckmatch/routecompare/pkg/core"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in kilometres.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Distance is HaversineKm for two coordinates.
func Distance(a, b core.Coordinate) float64 {
	return HaversineKm(a.Lat, a.Lon, b.Lat, b.Lon)
}

// PathLengthKm sums the segment distances of a path.
func PathLengthKm(path core.PathShape) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += Distance(path[i-1], path[i])
	}
	return total
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
