package overlay

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	tileSize      = 256
	earthRadius   = 6378137.0
	defaultWidth  = 1280
	defaultHeight = 720
)

// Viewport is the visible map window in screen pixels.
type Viewport struct {
	Center orb.Point
	Zoom   float64
	Width  int
	Height int
}

func (v Viewport) size() (float64, float64) {
	w, h := v.Width, v.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return float64(w), float64(h)
}

// Pixel projects lat/lon to container pixel offsets using Web Mercator.
func (v Viewport) Pixel(lat, lon float64) (x, y float64) {
	metresPerPx := 2 * math.Pi * earthRadius / (tileSize * math.Exp2(v.Zoom))
	c := project.WGS84.ToMercator(v.Center)
	p := project.WGS84.ToMercator(orb.Point{lon, lat})
	w, h := v.size()
	return w/2 + (p.X()-c.X())/metresPerPx, h/2 - (p.Y()-c.Y())/metresPerPx
}
