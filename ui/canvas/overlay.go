// Package canvas provides the anchor overlay shown over the composed surface.
package canvas

import (
	"math"

	"moldura/internal/template"
	"moldura/pkg/geometry"
)

// MarkerRadius is the anchor marker radius in surface pixels.
const MarkerRadius = 8.0

// Marker is a text point anchor projected onto the surface.
type Marker struct {
	PointID  string
	Name     string
	Center   geometry.Point2D // Surface pixels
	Selected bool
}

// Markers projects every text point onto a surface.
func Markers(points []template.TextPoint, surface geometry.Size, selected string) []Marker {
	out := make([]Marker, 0, len(points))
	for _, p := range points {
		out = append(out, Marker{
			PointID:  p.ID,
			Name:     p.Name,
			Center:   geometry.Pt(p.X/100*surface.Width, p.Y/100*surface.Height),
			Selected: p.ID == selected,
		})
	}
	return out
}

// MarkerAt returns the marker nearest to p within radius. Later markers win
// ties, matching draw order.
func MarkerAt(markers []Marker, p geometry.Point2D, radius float64) (Marker, bool) {
	best, found := Marker{}, false
	bestDist := math.Inf(1)
	for _, m := range markers {
		d := m.Center.Distance(p)
		if d <= radius && d <= bestDist {
			best, bestDist, found = m, d, true
		}
	}
	return best, found
}

// DisplayRect is where a surface appears inside a widget of size area: scaled
// to fit and centred.
func DisplayRect(area, surface geometry.Size) geometry.Rect {
	if area.Empty() || surface.Empty() {
		return geometry.Rect{}
	}
	scale := math.Min(area.Width/surface.Width, area.Height/surface.Height)
	w, h := surface.Width*scale, surface.Height*scale
	return geometry.NewRect((area.Width-w)/2, (area.Height-h)/2, w, h)
}

// Local converts a widget position into a position relative to the display
// rect. It reports false when pos lies outside the rect.
func Local(pos geometry.Point2D, rect geometry.Rect) (geometry.Point2D, bool) {
	return geometry.Pt(pos.X-rect.X, pos.Y-rect.Y), rect.Width > 0 && rect.Contains(pos)
}
