// pkg/core/scenario.go
package core

import "errors"

// Precondition errors for a scenario that cannot be rendered.
var (
	ErrMissingDest = errors.New("unload point coordinate is missing")
	ErrMissingOrig = errors.New("load point coordinate is missing")
)

// Strategy is one of the two compared trucking strategies.
type Strategy int

const (
	// Triangulation chains the import delivery into the export pickup.
	Triangulation Strategy = iota
	// ViaPort returns the truck to the port between the two legs.
	ViaPort
)

// Strategies lists both strategies in display order.
var Strategies = []Strategy{Triangulation, ViaPort}

func (s Strategy) String() string {
	switch s {
	case Triangulation:
		return "triangulation"
	case ViaPort:
		return "via_port"
	default:
		return "unknown"
	}
}

// Scenario is one import delivery paired with one export pickup around a port.
type Scenario struct {
	ID   string      `json:"id"`
	Port *Coordinate `json:"port,omitempty"`
	Dest *Coordinate `json:"dest,omitempty"` // import unload point
	Orig *Coordinate `json:"orig,omitempty"` // export load point
}

// Validate checks the coordinates needed to render the comparison. The port
// is optional: without it the map still shows both points but no routes.
func (s Scenario) Validate() error {
	if s.Dest == nil {
		return ErrMissingDest
	}
	if s.Orig == nil {
		return ErrMissingOrig
	}
	return nil
}

// Routable reports whether both strategies can be built.
func (s Scenario) Routable() bool {
	return s.Validate() == nil && s.Port != nil
}

// Waypoints returns the ordered stops for the given strategy.
// Returns nil unless the scenario is routable.
func (s Scenario) Waypoints(strategy Strategy) WaypointList {
	if !s.Routable() {
		return nil
	}
	port, dest, orig := *s.Port, *s.Dest, *s.Orig
	switch strategy {
	case Triangulation:
		return WaypointList{port, dest, orig, port}
	case ViaPort:
		return WaypointList{port, dest, port, orig, port}
	default:
		return nil
	}
}
