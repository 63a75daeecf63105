package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/truckmatch/routecompare/pkg/core"
)

func line(n int) core.PathShape {
	p := make(core.PathShape, n)
	for i := range p {
		p[i] = core.Coordinate{Lat: float64(i), Lon: float64(i)}
	}
	return p
}

func TestMarkerIndex(t *testing.T) {
	tests := []struct {
		progress float64
		n        int
		want     int
	}{
		{0, 11, 0},
		{50, 11, 5},
		{99.9, 11, 9},
		{100, 11, 10},
		{100, 1, 0},
		{-5, 11, 0},
		{150, 11, 10},
		{50, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MarkerIndex(tt.progress, tt.n), "progress=%v n=%d", tt.progress, tt.n)
	}
}

func TestMarkerIndex_AlwaysInRange(t *testing.T) {
	for n := 1; n < 30; n++ {
		for p := 0.0; p <= 100; p += 0.5 {
			i := MarkerIndex(p, n)
			assert.GreaterOrEqual(t, i, 0)
			assert.Less(t, i, n)
		}
	}
}

func TestMarker(t *testing.T) {
	path := line(5)

	m, ok := Marker(path, 0)
	assert.True(t, ok)
	assert.Equal(t, path[0], m)

	m, ok = Marker(path, 100)
	assert.True(t, ok)
	assert.Equal(t, path[4], m)

	_, ok = Marker(nil, 50)
	assert.False(t, ok)
}

func TestTraveled(t *testing.T) {
	path := line(10)

	assert.Equal(t, path[:1], Traveled(path, 0))
	assert.Equal(t, path[:6], Traveled(path, 50))
	assert.Equal(t, path, Traveled(path, 100))
	assert.Nil(t, Traveled(nil, 50))
}
