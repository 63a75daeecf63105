// Package mockrouter is a stand-in for the routing service. It answers route
// requests with gently bent lines between the requested stops so the rest of
// the system can run without a road graph.
package mockrouter

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"sync/atomic"

	"github.com/truckmatch/routecompare/internal/geo"
	"github.com/truckmatch/routecompare/internal/routing"
	"github.com/truckmatch/routecompare/pkg/core"
)

// DefaultStepKm is the spacing of generated shape points.
const DefaultStepKm = 2.0

// bendRatio offsets each leg's midpoint sideways by this share of its length.
const bendRatio = 0.08

// Router serves POST /route.
type Router struct {
	StepKm    float64
	Precision int
	// FailStatus, when non-zero, is returned instead of a route.
	FailStatus int
	Logger     *slog.Logger

	requests atomic.Int64
}

// New returns a router with default settings.
func New() *Router {
	return &Router{StepKm: DefaultStepKm, Precision: geo.DefaultPrecision, Logger: slog.Default()}
}

// Requests returns the number of route requests served.
func (rt *Router) Requests() int64 {
	return rt.requests.Load()
}

// Handler returns the HTTP handler.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /route", rt.route)
	return mux
}

func (rt *Router) route(w http.ResponseWriter, r *http.Request) {
	rt.requests.Add(1)

	if rt.FailStatus != 0 {
		http.Error(w, http.StatusText(rt.FailStatus), rt.FailStatus)
		return
	}

	var req routing.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Locations) < 2 {
		http.Error(w, "at least two locations required", http.StatusBadRequest)
		return
	}

	trip := rt.Trip(req.Locations)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(routing.RouteResponse{Trip: &trip}); err != nil {
		rt.Logger.Warn("mockrouter: write failed", "error", err)
	}
}

// Trip builds one leg per consecutive pair of locations.
func (rt *Router) Trip(locations []routing.Location) routing.Trip {
	step := rt.StepKm
	if step <= 0 {
		step = DefaultStepKm
	}
	precision := rt.Precision
	if precision <= 0 {
		precision = geo.DefaultPrecision
	}

	trip := routing.Trip{Summary: &routing.Summary{}}
	for i := 0; i+1 < len(locations); i++ {
		a := core.Coordinate{Lat: locations[i].Lat, Lon: locations[i].Lon}
		b := core.Coordinate{Lat: locations[i+1].Lat, Lon: locations[i+1].Lon}
		leg := geo.Interpolate(bend(a, b), step)

		trip.Legs = append(trip.Legs, routing.Leg{Shape: geo.Encode(leg, precision)})
		trip.Summary.Length += geo.PathLengthKm(leg)
	}
	// a truck averages 50 km/h
	trip.Summary.Time = math.Round(trip.Summary.Length / 50 * 3600)
	return trip
}

// bend returns a, a point beside the midpoint, b.
func bend(a, b core.Coordinate) core.PathShape {
	dLat, dLon := b.Lat-a.Lat, b.Lon-a.Lon
	mid := core.Coordinate{
		Lat: (a.Lat+b.Lat)/2 - dLon*bendRatio,
		Lon: (a.Lon+b.Lon)/2 + dLat*bendRatio,
	}
	return core.PathShape{a, mid, b}
}
