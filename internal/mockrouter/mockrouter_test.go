package mockrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truckmatch/routecompare/internal/geo"
	"github.com/truckmatch/routecompare/internal/routing"
	"github.com/truckmatch/routecompare/pkg/core"
)

var (
	jakarta  = core.Coordinate{Lat: -6.2, Lon: 106.8}
	bandung  = core.Coordinate{Lat: -6.9, Lon: 107.6}
	cirebon  = core.Coordinate{Lat: -6.7, Lon: 108.55}
	stopList = []routing.Location{
		{Lat: jakarta.Lat, Lon: jakarta.Lon},
		{Lat: bandung.Lat, Lon: bandung.Lon},
		{Lat: cirebon.Lat, Lon: cirebon.Lon},
	}
)

func TestTrip_OneLegPerPair(t *testing.T) {
	rt := New()
	trip := rt.Trip(stopList)

	require.Len(t, trip.Legs, 2)
	first := geo.Decode(trip.Legs[0].Shape, geo.DefaultPrecision)
	require.NotEmpty(t, first)
	assert.InDelta(t, jakarta.Lat, first[0].Lat, 1e-6)
	assert.InDelta(t, bandung.Lon, first[len(first)-1].Lon, 1e-6)

	require.NotNil(t, trip.Summary)
	assert.Greater(t, trip.Summary.Length, geo.Distance(jakarta, bandung)+geo.Distance(bandung, cirebon))
	assert.Greater(t, trip.Summary.Time, 0.0)
}

func TestTrip_LegPointsAreSpaced(t *testing.T) {
	rt := &Router{StepKm: 5}
	trip := rt.Trip(stopList[:2])

	leg := geo.Decode(trip.Legs[0].Shape, geo.DefaultPrecision)
	for i := 1; i < len(leg); i++ {
		assert.LessOrEqual(t, geo.Distance(leg[i-1], leg[i]), 5.0*1.01)
	}
}

func TestHandler_ServesClient(t *testing.T) {
	rt := New()
	server := httptest.NewServer(rt.Handler())
	defer server.Close()

	client, err := routing.New(routing.Config{Endpoint: server.URL + "/route", Timeout: 5 * time.Second})
	require.NoError(t, err)

	shape, err := client.Fetch(context.Background(), core.WaypointList{jakarta, bandung, cirebon}, "truck")
	require.NoError(t, err)
	assert.Greater(t, len(shape), 3)
	assert.Equal(t, int64(1), rt.Requests())
}

func TestHandler_FailStatus(t *testing.T) {
	rt := New()
	rt.FailStatus = http.StatusBadGateway
	server := httptest.NewServer(rt.Handler())
	defer server.Close()

	client, err := routing.New(routing.Config{Endpoint: server.URL + "/route"})
	require.NoError(t, err)

	waypoints := core.WaypointList{jakarta, bandung}
	shape := client.FetchRoute(context.Background(), waypoints, "")
	assert.Equal(t, core.PathShape(waypoints), shape)
}

func TestHandler_BadRequests(t *testing.T) {
	server := httptest.NewServer(New().Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/route", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, _ := json.Marshal(routing.RouteRequest{Locations: stopList[:1]})
	resp, err = http.Post(server.URL+"/route", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(server.URL + "/route")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
