package canvas

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

var (
	markerFill     = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xC0}
	markerSelected = color.NRGBA{R: 0xFA, G: 0xCC, B: 0x15, A: 0xE0}
)

// Annotate returns a copy of frame with anchor markers drawn on top. The
// frame itself is never modified since it may be the exported image.
func Annotate(frame image.Image, markers []Marker, accent color.Color) *image.RGBA {
	b := frame.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.DrawImage(frame, -b.Min.X, -b.Min.Y)

	for _, m := range markers {
		x, y := m.Center.X, m.Center.Y

		dc.DrawCircle(x, y, MarkerRadius)
		if m.Selected {
			dc.SetColor(markerSelected)
		} else {
			dc.SetColor(markerFill)
		}
		dc.FillPreserve()
		dc.SetColor(accent)
		dc.SetLineWidth(2)
		dc.Stroke()

		dc.SetLineWidth(1)
		dc.DrawLine(x-MarkerRadius*1.5, y, x+MarkerRadius*1.5, y)
		dc.DrawLine(x, y-MarkerRadius*1.5, x, y+MarkerRadius*1.5)
		dc.Stroke()
	}

	return dc.Image().(*image.RGBA)
}
