package geo

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/truckmatch/routecompare/pkg/core"
)

// Viewport defaults.
const (
	DefaultPaddingPx = 60
	DefaultMaxZoom   = 12
	tileSize         = 256
)

// Bounds is the minimal lat/lon rectangle enclosing a set of points.
type Bounds struct {
	SouthWest core.Coordinate `json:"southWest"`
	NorthEast core.Coordinate `json:"northEast"`
	Empty     bool            `json:"empty"`
}

// FitOptions controls how bounds are fitted into a viewport.
type FitOptions struct {
	WidthPx  int
	HeightPx int
	Padding  int
	MaxZoom  int
}

// Camera is the resulting map view.
type Camera struct {
	Center core.Coordinate `json:"center"`
	Zoom   int             `json:"zoom"`
}

// ComputeBounds returns the bounds of all given points. Points with a NaN or
// infinite component are skipped.
func ComputeBounds(points ...core.Coordinate) Bounds {
	var env geom.Envelope
	for _, p := range points {
		next, err := env.ExtendToIncludeXY(geom.XY{X: p.Lon, Y: p.Lat})
		if err != nil {
			continue
		}
		env = next
	}
	return boundsFromEnvelope(env)
}

func boundsFromEnvelope(env geom.Envelope) Bounds {
	lo, hi, ok := env.MinMaxXYs()
	if !ok {
		return Bounds{Empty: true}
	}
	return Bounds{
		SouthWest: core.Coordinate{Lat: lo.Y, Lon: lo.X},
		NorthEast: core.Coordinate{Lat: hi.Y, Lon: hi.X},
	}
}

// ViewportPoints collects the points the map must show for a scenario:
// dest, orig and the port when it is known.
func ViewportPoints(s core.Scenario) []core.Coordinate {
	var pts []core.Coordinate
	if s.Dest != nil {
		pts = append(pts, *s.Dest)
	}
	if s.Orig != nil {
		pts = append(pts, *s.Orig)
	}
	if s.Port != nil {
		pts = append(pts, *s.Port)
	}
	return pts
}

// Fit returns the camera that shows the whole rectangle inside the padded
// viewport, never zooming in past MaxZoom.
func (b Bounds) Fit(opts FitOptions) Camera {
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = DefaultMaxZoom
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	}
	if b.Empty {
		return Camera{}
	}

	sw := ToWebMercator(b.SouthWest)
	ne := ToWebMercator(b.NorthEast)
	center := FromWebMercator(geom.XY{X: (sw.X + ne.X) / 2, Y: (sw.Y + ne.Y) / 2})

	availW := float64(opts.WidthPx - 2*opts.Padding)
	availH := float64(opts.HeightPx - 2*opts.Padding)
	spanX := math.Abs(ne.X - sw.X)
	spanY := math.Abs(ne.Y - sw.Y)

	if availW <= 0 || availH <= 0 {
		return Camera{Center: center, Zoom: 0}
	}
	if spanX == 0 && spanY == 0 {
		return Camera{Center: center, Zoom: opts.MaxZoom}
	}

	scale := math.Inf(1)
	if spanX > 0 {
		scale = availW / spanX
	}
	if spanY > 0 {
		scale = math.Min(scale, availH/spanY)
	}

	zoom := int(math.Floor(math.Log2(scale * mercatorWorldSize / tileSize)))
	zoom = max(0, min(zoom, opts.MaxZoom))

	return Camera{Center: center, Zoom: zoom}
}

// PixelsPerMetre is the Web Mercator scale at the given zoom level.
func PixelsPerMetre(zoom int) float64 {
	return tileSize * math.Pow(2, float64(zoom)) / mercatorWorldSize
}
