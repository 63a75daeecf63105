// pkg/core/coordinate.go
package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidCoordinate is returned when a "lat,lon" string cannot be parsed.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a geographic point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// String formats the coordinate as "lat,lon".
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// Round returns the coordinate rounded to the given number of decimal places.
func (c Coordinate) Round(places int) Coordinate {
	p := math.Pow(10, float64(places))
	return Coordinate{
		Lat: math.Round(c.Lat*p) / p,
		Lon: math.Round(c.Lon*p) / p,
	}
}

// Valid reports whether the coordinate lies within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180 &&
		!math.IsNaN(c.Lat) && !math.IsNaN(c.Lon)
}

// ParseCoordinate parses a "lat,lon" string.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	c := Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("%w: %q out of range", ErrInvalidCoordinate, s)
	}
	return c, nil
}

// WaypointList is an ordered list of coordinates a route must visit.
type WaypointList []Coordinate

// PathShape is the ordered polyline geometry of a route.
// A non-empty WaypointList never yields an empty PathShape.
type PathShape []Coordinate

// Clone returns a copy of the path that shares no backing array.
func (p PathShape) Clone() PathShape {
	if p == nil {
		return nil
	}
	out := make(PathShape, len(p))
	copy(out, p)
	return out
}
