// internal/storage/storage.go
package storage

import (
	"strconv"
	"strings"

	"github.com/truckmatch/routecompare/pkg/core"
)

// keyPrecision is the number of decimal places waypoints are rounded to
// before being used as a cache key.
const keyPrecision = 5

// Backend is the interface all route shape stores must satisfy.
// Stores are scoped to one process session and never outlive it.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveRoute stores the geometry fetched for key.
	SaveRoute(key string, shape core.PathShape) error
	// LoadRoute returns the stored geometry and whether it was found.
	LoadRoute(key string) (core.PathShape, bool, error)
	// Len returns the number of stored routes.
	Len() int
}

// RouteKey builds a stable key from the costing model and rounded waypoints.
func RouteKey(waypoints core.WaypointList, costing string) string {
	var b strings.Builder
	b.WriteString(costing)
	for _, w := range waypoints {
		r := w.Round(keyPrecision)
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(r.Lat, 'f', keyPrecision, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(r.Lon, 'f', keyPrecision, 64))
	}
	return b.String()
}
