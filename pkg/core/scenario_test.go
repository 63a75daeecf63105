package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testScenario() Scenario {
	return Scenario{
		ID:   "imp-1/exp-1",
		Port: &Coordinate{Lat: -6.1, Lon: 106.88},
		Dest: &Coordinate{Lat: -6.2, Lon: 106.9},
		Orig: &Coordinate{Lat: -6.3, Lon: 107.0},
	}
}

func TestScenario_Validate(t *testing.T) {
	s := testScenario()
	assert.NoError(t, s.Validate())

	noDest := testScenario()
	noDest.Dest = nil
	assert.ErrorIs(t, noDest.Validate(), ErrMissingDest)

	noOrig := testScenario()
	noOrig.Orig = nil
	assert.ErrorIs(t, noOrig.Validate(), ErrMissingOrig)

	noPort := testScenario()
	noPort.Port = nil
	assert.NoError(t, noPort.Validate())
}

func TestScenario_Routable(t *testing.T) {
	assert.True(t, testScenario().Routable())

	noPort := testScenario()
	noPort.Port = nil
	assert.False(t, noPort.Routable())
	assert.Nil(t, noPort.Waypoints(Triangulation))

	noDest := testScenario()
	noDest.Dest = nil
	assert.False(t, noDest.Routable())
}

func TestScenario_Waypoints(t *testing.T) {
	s := testScenario()
	port, dest, orig := *s.Port, *s.Dest, *s.Orig

	assert.Equal(t, WaypointList{port, dest, orig, port}, s.Waypoints(Triangulation))
	assert.Equal(t, WaypointList{port, dest, port, orig, port}, s.Waypoints(ViaPort))
}

func TestScenario_Waypoints_Incomplete(t *testing.T) {
	s := testScenario()
	s.Orig = nil
	assert.Nil(t, s.Waypoints(Triangulation))
	assert.Nil(t, s.Waypoints(ViaPort))
}

func TestStrategy_String(t *testing.T) {
	assert.Equal(t, "triangulation", Triangulation.String())
	assert.Equal(t, "via_port", ViaPort.String())
	assert.Equal(t, "unknown", Strategy(7).String())
}
