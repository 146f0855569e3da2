// Package compositor owns the fixed-resolution output surface and redraws it
// in z-order whenever the background, its transform, the frame, the footer or
// the text changes.
package compositor

import (
	"image"
	"image/color"
	"math"
	"sync"

	layer "moldura/internal/image"
	"moldura/internal/textlabel"
	"moldura/internal/viewport"
	"moldura/pkg/geometry"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// Layers holds the bitmaps of one pass. Nil layers are skipped.
type Layers struct {
	Background *layer.Bitmap
	Frame      *layer.Bitmap
	Footer     *layer.Bitmap
}

// Options controls how a pass paints.
type Options struct {
	Fill   color.Color         // Solid colour under everything
	Text   *textlabel.Renderer // Draws labels; nil skips text
	Fitted *Fitted             // Resample memo for frame and footer; nil resamples every pass
}

// Compose paints one complete frame onto dc, bottom to top: fill, background
// photo under view, frame stretched to the surface, footer anchored to the
// bottom edge at full width, then labels.
func Compose(dc *gg.Context, view viewport.RenderState, layers Layers, labels []textlabel.Label, opts Options) {
	w, h := dc.Width(), dc.Height()

	dc.Identity()
	dc.SetColor(opts.Fill)
	dc.Clear()

	if bg := layers.Background; bg != nil && view.Scale > 0 {
		natural := geometry.NewSize(float64(bg.Width), float64(bg.Height))
		surface := geometry.NewRect(0, 0, float64(w), float64(h))
		if view.ImageRect(natural).Intersects(surface) {
			t := view.Transform()
			dc.Push()
			dc.Translate(t.TX, t.TY)
			dc.Scale(t.A, t.D)
			dc.DrawImage(bg.Image, 0, 0)
			dc.Pop()
		}
	}

	if fr := layers.Frame; fr != nil {
		dc.DrawImage(opts.Fitted.fit(layer.SlotFrame, fr, w, h), 0, 0)
	}

	if ft := layers.Footer; ft != nil && ft.Width > 0 {
		fh := FooterHeight(ft.Width, ft.Height, w)
		if fh > 0 {
			dc.DrawImage(opts.Fitted.fit(layer.SlotFooter, ft, w, fh), 0, h-fh)
		}
	}

	if opts.Text != nil && len(labels) > 0 {
		opts.Text.Draw(dc, labels)
	}
}

// FooterHeight keeps the footer's aspect ratio at the given surface width.
func FooterHeight(naturalW, naturalH, surfaceW int) int {
	if naturalW <= 0 || naturalH <= 0 {
		return 0
	}
	return int(math.Round(float64(naturalH) / float64(naturalW) * float64(surfaceW)))
}

// Fitted memoises the resampled frame and footer so a redraw during a drag
// does not resize them again. One entry per slot; a new bitmap or size
// replaces it.
type Fitted struct {
	mu      sync.Mutex
	entries map[layer.Slot]fittedEntry
}

type fittedEntry struct {
	src  *layer.Bitmap
	w, h int
	img  image.Image
}

// NewFitted creates an empty memo.
func NewFitted() *Fitted {
	return &Fitted{entries: make(map[layer.Slot]fittedEntry)}
}

func (f *Fitted) fit(slot layer.Slot, bm *layer.Bitmap, w, h int) image.Image {
	if bm.Width == w && bm.Height == h {
		return bm.Image
	}
	if f == nil {
		return imaging.Resize(bm.Image, w, h, imaging.Lanczos)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[slot]; ok && e.src == bm && e.w == w && e.h == h {
		return e.img
	}
	img := imaging.Resize(bm.Image, w, h, imaging.Lanczos)
	f.entries[slot] = fittedEntry{src: bm, w: w, h: h, img: img}
	return img
}
