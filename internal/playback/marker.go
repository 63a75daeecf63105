package playback

import (
	"math"

	"github.com/truckmatch/routecompare/pkg/core"
)

// MarkerIndex maps progress onto a path of n points.
func MarkerIndex(progress float64, n int) int {
	if n <= 0 {
		return 0
	}
	i := int(math.Floor(progress / MaxProgress * float64(n-1)))
	return max(0, min(i, n-1))
}

// Marker returns the marker position on path at progress.
func Marker(path core.PathShape, progress float64) (core.Coordinate, bool) {
	if len(path) == 0 {
		return core.Coordinate{}, false
	}
	return path[MarkerIndex(progress, len(path))], true
}

// Traveled returns the prefix of path already covered at progress.
func Traveled(path core.PathShape, progress float64) core.PathShape {
	if len(path) == 0 {
		return nil
	}
	end := int(math.Floor(progress/MaxProgress*float64(len(path)))) + 1
	end = max(1, min(end, len(path)))
	return path[:end]
}
