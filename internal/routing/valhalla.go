package routing

import "github.com/truckmatch/routecompare/pkg/core"

// Location is one stop in a route request.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RouteRequest is the body posted to the routing service.
type RouteRequest struct {
	Locations []Location `json:"locations"`
	Costing   string     `json:"costing"`
	Units     string     `json:"units"`
}

// RouteResponse is the subset of the routing service reply that is read.
type RouteResponse struct {
	Trip *Trip `json:"trip"`
}

// Trip holds one leg per consecutive waypoint pair.
type Trip struct {
	Legs    []Leg    `json:"legs"`
	Summary *Summary `json:"summary,omitempty"`
}

// Leg carries the encoded polyline of one leg.
type Leg struct {
	Shape string `json:"shape"`
}

// Summary is the trip total reported by the service.
type Summary struct {
	Length float64 `json:"length"`
	Time   float64 `json:"time"`
}

func newRouteRequest(waypoints core.WaypointList, costing, units string) RouteRequest {
	locs := make([]Location, len(waypoints))
	for i, w := range waypoints {
		locs[i] = Location{Lat: w.Lat, Lon: w.Lon}
	}
	return RouteRequest{Locations: locs, Costing: costing, Units: units}
}
