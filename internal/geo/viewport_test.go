package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truckmatch/routecompare/pkg/core"
)

func TestComputeBounds(t *testing.T) {
	b := ComputeBounds(
		core.Coordinate{Lat: -6.2, Lon: 106.9},
		core.Coordinate{Lat: -6.3, Lon: 107.0},
		core.Coordinate{Lat: -6.1, Lon: 106.88},
	)

	assert.False(t, b.Empty)
	assert.Equal(t, core.Coordinate{Lat: -6.3, Lon: 106.88}, b.SouthWest)
	assert.Equal(t, core.Coordinate{Lat: -6.1, Lon: 107.0}, b.NorthEast)
}

func TestComputeBounds_Empty(t *testing.T) {
	assert.True(t, ComputeBounds().Empty)
}

func TestComputeBounds_SkipsNonFinite(t *testing.T) {
	b := ComputeBounds(
		core.Coordinate{Lat: 1, Lon: 2},
		core.Coordinate{Lat: math.NaN(), Lon: 3},
		core.Coordinate{Lat: -3, Lon: math.Inf(1)},
		core.Coordinate{Lat: -3, Lon: 5},
	)

	assert.False(t, b.Empty)
	assert.Equal(t, core.Coordinate{Lat: -3, Lon: 2}, b.SouthWest)
	assert.Equal(t, core.Coordinate{Lat: 1, Lon: 5}, b.NorthEast)
	assert.True(t, ComputeBounds(core.Coordinate{Lat: math.NaN()}).Empty)
}

func TestViewportPoints(t *testing.T) {
	port := core.Coordinate{Lat: -6.1, Lon: 106.88}
	dest := core.Coordinate{Lat: -6.2, Lon: 106.9}
	orig := core.Coordinate{Lat: -6.3, Lon: 107.0}

	withPort := ViewportPoints(core.Scenario{Port: &port, Dest: &dest, Orig: &orig})
	assert.Equal(t, []core.Coordinate{dest, orig, port}, withPort)

	withoutPort := ViewportPoints(core.Scenario{Dest: &dest, Orig: &orig})
	assert.Equal(t, []core.Coordinate{dest, orig}, withoutPort)
}

func TestBounds_Fit_SinglePointUsesMaxZoom(t *testing.T) {
	p := core.Coordinate{Lat: -6.2, Lon: 106.9}
	cam := ComputeBounds(p).Fit(FitOptions{WidthPx: 800, HeightPx: 600, Padding: DefaultPaddingPx, MaxZoom: DefaultMaxZoom})

	assert.Equal(t, DefaultMaxZoom, cam.Zoom)
	assert.InDelta(t, p.Lat, cam.Center.Lat, 1e-6)
	assert.InDelta(t, p.Lon, cam.Center.Lon, 1e-6)
}

func TestBounds_Fit_ContentFitsInsidePadding(t *testing.T) {
	b := ComputeBounds(
		core.Coordinate{Lat: -6.1, Lon: 106.88},
		core.Coordinate{Lat: -6.9, Lon: 107.6},
	)
	opts := FitOptions{WidthPx: 800, HeightPx: 600, Padding: 60, MaxZoom: 18}

	cam := b.Fit(opts)

	sw, ne := ToWebMercator(b.SouthWest), ToWebMercator(b.NorthEast)
	spanX, spanY := ne.X-sw.X, ne.Y-sw.Y
	ppm := PixelsPerMetre(cam.Zoom)
	assert.LessOrEqual(t, spanX*ppm, float64(800-120))
	assert.LessOrEqual(t, spanY*ppm, float64(600-120))

	// one level deeper would overflow
	next := PixelsPerMetre(cam.Zoom + 1)
	assert.True(t, spanX*next > float64(800-120) || spanY*next > float64(600-120))
	assert.Less(t, cam.Zoom, 18)
}

func TestBounds_Fit_CappedAtMaxZoom(t *testing.T) {
	b := ComputeBounds(
		core.Coordinate{Lat: -6.2000, Lon: 106.9000},
		core.Coordinate{Lat: -6.2001, Lon: 106.9001},
	)

	cam := b.Fit(FitOptions{WidthPx: 800, HeightPx: 600, Padding: 60, MaxZoom: 12})
	assert.Equal(t, 12, cam.Zoom)
}

func TestBounds_Fit_Empty(t *testing.T) {
	assert.Equal(t, Camera{}, Bounds{Empty: true}.Fit(FitOptions{WidthPx: 800, HeightPx: 600}))
}

func TestLineString(t *testing.T) {
	ls, err := LineString(core.PathShape{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}})
	require.NoError(t, err)
	seq := ls.Coordinates()

	assert.Equal(t, 2, seq.Length())
	assert.Equal(t, 2.0, seq.GetXY(0).X)
	assert.Equal(t, 1.0, seq.GetXY(0).Y)
}

func TestLineString_Degenerate(t *testing.T) {
	_, err := LineString(core.PathShape{{Lat: 1, Lon: 2}})
	assert.Error(t, err)

	_, err = LineString(core.PathShape{{Lat: 1, Lon: 2}, {Lat: 1, Lon: 2}})
	assert.Error(t, err)

	_, err = LineString(core.PathShape{{Lat: 1, Lon: 2}, {Lat: math.NaN(), Lon: 4}})
	assert.Error(t, err)
}

func TestPoint(t *testing.T) {
	p, err := Point(core.Coordinate{Lat: -6.1, Lon: 106.8})
	require.NoError(t, err)
	xy, ok := p.XY()
	require.True(t, ok)
	assert.Equal(t, 106.8, xy.X)
	assert.Equal(t, -6.1, xy.Y)

	_, err = Point(core.Coordinate{Lat: math.Inf(-1), Lon: 0})
	assert.Error(t, err)
}
