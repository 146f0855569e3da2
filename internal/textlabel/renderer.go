package textlabel

import (
	"image/color"
	"log/slog"
	"strings"
	"sync"

	"moldura/internal/config"
	"moldura/internal/logging"
	"moldura/internal/template"
	"moldura/pkg/colorutil"
	"moldura/pkg/geometry"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

// Segment is a stroked line.
type Segment struct {
	From  geometry.Point2D
	To    geometry.Point2D
	Width float64
}

// Label is a laid-out text field in surface pixels. (X, Y) is the visual
// centre of the text.
type Label struct {
	PointID   string
	Text      string
	Font      FontSpec
	Color     color.RGBA
	X, Y      float64
	Width     float64 // Advance width of Text
	Ascent    float64
	Descent   float64
	Underline *Segment
}

// Baseline returns the y coordinate glyphs sit on.
func (l Label) Baseline() float64 {
	return l.Y + (l.Ascent-l.Descent)/2
}

// Bounds returns the box from the top of the ascent to the bottom of the
// descent.
func (l Label) Bounds() geometry.Rect {
	h := l.Ascent + l.Descent
	return geometry.NewRect(l.X-l.Width/2, l.Y-h/2, l.Width, h)
}

// Options tunes label styling.
type Options struct {
	DefaultColor    color.RGBA
	UnderlineOffset float64 // Distance below the anchor, as a fraction of the font size
	UnderlineWidth  float64 // Stroke width, as a fraction of the font size
}

// OptionsFrom builds label options from cfg.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		DefaultColor:    colorutil.ParseHexOr(cfg.DefaultTextColor, colorutil.Black),
		UnderlineOffset: cfg.UnderlineOffsetRatio,
		UnderlineWidth:  cfg.UnderlineWidthRatio,
	}
}

// Renderer turns text points and their values into labels and draws them.
// Faces are not safe for concurrent use, so measuring and drawing are
// serialised.
type Renderer struct {
	fonts *Registry
	opts  Options
	mu    sync.Mutex
}

// NewRenderer creates a renderer.
func NewRenderer(fonts *Registry, opts Options) *Renderer {
	return &Renderer{fonts: fonts, opts: opts}
}

// Spec derives the font spec of a point.
func Spec(p template.TextPoint) FontSpec {
	return FontSpec{
		Family: p.FontFamily,
		Size:   float64(p.FontSize),
		Bold:   p.FontStyle.Bold(),
		Italic: p.FontStyle.Italic(),
	}
}

// Layout places one point on a surface. It reports false when value is empty
// or no face can be resolved.
func (r *Renderer) Layout(p template.TextPoint, value string, surface geometry.Size) (Label, bool) {
	if value == "" {
		return Label{}, false
	}
	spec := Spec(p)
	face, err := r.fonts.Face(spec)
	if err != nil {
		logging.Logger().Warn("text point skipped",
			slog.String("point", p.Name),
			slog.String("font", spec.String()),
			slog.Any("err", err))
		return Label{}, false
	}

	r.mu.Lock()
	width := float64(font.MeasureString(face, value)) / 64
	m := face.Metrics()
	r.mu.Unlock()

	l := Label{
		PointID: p.ID,
		Text:    value,
		Font:    spec,
		Color:   r.opts.DefaultColor,
		X:       p.X / 100 * surface.Width,
		Y:       p.Y / 100 * surface.Height,
		Width:   width,
		Ascent:  float64(m.Ascent) / 64,
		Descent: float64(m.Descent) / 64,
	}
	if strings.TrimSpace(p.Color) != "" {
		l.Color = colorutil.ParseHexOr(p.Color, r.opts.DefaultColor)
	}
	if p.FontStyle.Underline() {
		y := l.Y + spec.Size*r.opts.UnderlineOffset
		l.Underline = &Segment{
			From:  geometry.Pt(l.X-width/2, y),
			To:    geometry.Pt(l.X+width/2, y),
			Width: spec.Size * r.opts.UnderlineWidth,
		}
	}
	return l, true
}

// LayoutAll lays out every point with a non-empty value, in list order.
func (r *Renderer) LayoutAll(points []template.TextPoint, values template.TextValues, surface geometry.Size) []Label {
	labels := make([]Label, 0, len(points))
	for _, p := range points {
		if l, ok := r.Layout(p, values.Get(p.ID), surface); ok {
			labels = append(labels, l)
		}
	}
	return labels
}

// Draw paints labels onto dc in order, later labels on top.
func (r *Renderer) Draw(dc *gg.Context, labels []Label) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range labels {
		face, err := r.fonts.Face(l.Font)
		if err != nil {
			continue
		}
		dc.SetFontFace(face)
		dc.SetColor(l.Color)
		dc.DrawString(l.Text, l.X-l.Width/2, l.Baseline())

		if u := l.Underline; u != nil {
			dc.SetLineWidth(u.Width)
			dc.SetLineCapButt()
			dc.DrawLine(u.From.X, u.From.Y, u.To.X, u.To.Y)
			dc.Stroke()
		}
	}
}

// HitTest returns the topmost label whose box contains p.
func HitTest(labels []Label, p geometry.Point2D) (Label, bool) {
	for i := len(labels) - 1; i >= 0; i-- {
		if labels[i].Bounds().Contains(p) {
			return labels[i], true
		}
	}
	return Label{}, false
}
