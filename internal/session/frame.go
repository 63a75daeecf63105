package session

import (
	"github.com/truckmatch/routecompare/internal/geo"
	"github.com/truckmatch/routecompare/internal/playback"
	"github.com/truckmatch/routecompare/pkg/core"
)

// PlaceholderIncomplete is shown instead of the map when a scenario lacks
// the coordinates needed to draw it.
const PlaceholderIncomplete = "coordinate data incomplete"

// Frame is everything a renderer needs to draw one moment of the comparison.
type Frame struct {
	ScenarioID  string           `json:"scenarioId,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
	Loading     bool             `json:"loading"`
	Playing     bool             `json:"playing"`
	Progress    float64          `json:"progress"`
	Speed       float64          `json:"speed"`
	Port        *core.Coordinate `json:"port,omitempty"`
	Dest        *core.Coordinate `json:"dest,omitempty"`
	Orig        *core.Coordinate `json:"orig,omitempty"`
	Routes      []RouteFrame     `json:"routes"`
	Bounds      geo.Bounds       `json:"bounds"`
	Camera      geo.Camera       `json:"camera"`
	// Revision changes whenever a route path is replaced.
	Revision uint64 `json:"revision"`
}

// RouteFrame is the state of one strategy.
type RouteFrame struct {
	Strategy string           `json:"strategy"`
	Loaded   bool             `json:"loaded"`
	Path     core.PathShape   `json:"path,omitempty"`
	Traveled core.PathShape   `json:"traveled,omitempty"`
	Marker   *core.Coordinate `json:"marker,omitempty"`
	Points   int              `json:"points"`
	LengthKm float64          `json:"lengthKm"`
}

// Route returns the frame of the given strategy.
func (f Frame) Route(s core.Strategy) (RouteFrame, bool) {
	for _, r := range f.Routes {
		if r.Strategy == s.String() {
			return r, true
		}
	}
	return RouteFrame{}, false
}

func newRouteFrame(strategy core.Strategy, sl *slot, progress float64) RouteFrame {
	rf := RouteFrame{Strategy: strategy.String()}
	if sl == nil || !sl.loaded {
		return rf
	}
	rf.Loaded = true
	rf.Path = sl.path
	rf.Points = len(sl.path)
	rf.LengthKm = sl.lengthKm
	rf.Traveled = playback.Traveled(sl.path, progress)
	if m, ok := playback.Marker(sl.path, progress); ok {
		rf.Marker = &m
	}
	return rf
}
