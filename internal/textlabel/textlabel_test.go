package textlabel

import (
	"image"
	"image/color"
	"testing"

	"moldura/internal/config"
	"moldura/internal/template"
	"moldura/pkg/colorutil"
	"moldura/pkg/geometry"

	"github.com/fogleman/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
)

func newRenderer() *Renderer {
	cfg := config.Default()
	return NewRenderer(NewRegistry(nil), OptionsFrom(cfg))
}

func TestFontSpecString(t *testing.T) {
	tests := []struct {
		spec FontSpec
		want string
	}{
		{FontSpec{Family: "Arial", Size: 12}, "12px Arial"},
		{FontSpec{Family: "Verdana", Size: 14, Bold: true}, "bold 14px Verdana"},
		{FontSpec{Family: "Georgia", Size: 16, Italic: true}, "italic 16px Georgia"},
		{FontSpec{Family: "Times New Roman", Size: 20, Bold: true, Italic: true}, "italic bold 20px Times New Roman"},
		{FontSpec{Family: "Arial", Size: 10.5}, "10.5px Arial"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.spec.String())
	}
}

func TestSpecFromPoint(t *testing.T) {
	p := template.TextPoint{FontFamily: "Arial", FontSize: 18, FontStyle: template.FontStyle{"underline", "italic"}}
	assert.Equal(t, FontSpec{Family: "Arial", Size: 18, Italic: true}, Spec(p))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(map[string]config.FontFiles{
		"Broken": {Regular: "/does/not/exist.ttf"},
	})

	a, err := r.Face(FontSpec{Family: "Arial", Size: 12})
	require.NoError(t, err)
	b, err := r.Face(FontSpec{Family: "Arial", Size: 12})
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = r.Face(FontSpec{Family: "Broken", Size: 12})
	assert.NoError(t, err)

	_, err = r.Face(FontSpec{Family: "Arial", Size: 0})
	assert.Error(t, err)

	mono, err := r.Face(FontSpec{Family: "Courier New", Size: 20})
	require.NoError(t, err)
	assert.Equal(t, font.MeasureString(mono, "iii"), font.MeasureString(mono, "mmm"))
}

func TestLayoutSkipsEmptyValue(t *testing.T) {
	r := newRenderer()
	_, ok := r.Layout(template.TextPoint{ID: "a", FontFamily: "Arial", FontSize: 12}, "", geometry.NewSize(1000, 1000))
	assert.False(t, ok)

	labels := r.LayoutAll(
		[]template.TextPoint{
			{ID: "a", FontFamily: "Arial", FontSize: 12, X: 10, Y: 10},
			{ID: "b", FontFamily: "Arial", FontSize: 12, X: 20, Y: 20},
		},
		template.TextValues{"a": "", "b": "x"},
		geometry.NewSize(1000, 1000))
	require.Len(t, labels, 1)
	assert.Equal(t, "b", labels[0].PointID)
}

func TestLayoutPosition(t *testing.T) {
	r := newRenderer()
	p := template.TextPoint{ID: "t", Name: "Título", X: 50, Y: 50, FontFamily: "Arial", FontSize: 12}
	l, ok := r.Layout(p, "Olá", geometry.NewSize(1000, 1000))
	require.True(t, ok)
	assert.Equal(t, 500.0, l.X)
	assert.Equal(t, 500.0, l.Y)
	assert.Equal(t, "12px Arial", l.Font.String())
	assert.Equal(t, colorutil.Black, l.Color)
	assert.Nil(t, l.Underline)
	assert.Greater(t, l.Width, 0.0)

	p.X, p.Y = 10, 10
	l, _ = r.Layout(p, "Olá", geometry.NewSize(1000, 1000))
	assert.Equal(t, 100.0, l.X)
	assert.Equal(t, 100.0, l.Y)

	p.Color = "#FF0000"
	l, _ = r.Layout(p, "Olá", geometry.NewSize(1000, 1000))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, l.Color)
}

func TestUnderlineGeometry(t *testing.T) {
	r := newRenderer()
	p := template.TextPoint{X: 50, Y: 50, FontFamily: "Arial", FontSize: 20, FontStyle: template.FontStyle{"underline"}}
	l, ok := r.Layout(p, "word", geometry.NewSize(1000, 1000))
	require.True(t, ok)
	require.NotNil(t, l.Underline)

	u := l.Underline
	assert.InDelta(t, 510, u.From.Y, 1e-9)
	assert.InDelta(t, 510, u.To.Y, 1e-9)
	assert.InDelta(t, l.Width, u.To.X-u.From.X, 1e-9)
	assert.InDelta(t, 500, (u.From.X+u.To.X)/2, 1e-9)
	assert.InDelta(t, 1, u.Width, 1e-9)
}

func inkBounds(img *image.RGBA) image.Rectangle {
	var box image.Rectangle
	first := true
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).R < 128 {
				px := image.Rect(x, y, x+1, y+1)
				if first {
					box, first = px, false
				} else {
					box = box.Union(px)
				}
			}
		}
	}
	return box
}

func TestDrawCentresText(t *testing.T) {
	r := newRenderer()
	p := template.TextPoint{X: 50, Y: 50, FontFamily: "Arial", FontSize: 24}
	surface := geometry.NewSize(200, 100)
	l, ok := r.Layout(p, "Olá", surface)
	require.True(t, ok)

	dc := gg.NewContext(200, 100)
	dc.SetColor(color.White)
	dc.Clear()
	r.Draw(dc, []Label{l})

	box := inkBounds(dc.Image().(*image.RGBA))
	require.False(t, box.Empty())
	cx := float64(box.Min.X+box.Max.X) / 2
	cy := float64(box.Min.Y+box.Max.Y) / 2
	assert.InDelta(t, 100, cx, 4)
	assert.InDelta(t, 50, cy, 6)
}

func TestDrawUnderline(t *testing.T) {
	r := newRenderer()
	surface := geometry.NewSize(200, 100)
	p := template.TextPoint{X: 50, Y: 50.5, FontFamily: "Arial", FontSize: 20}

	draw := func(p template.TextPoint) *image.RGBA {
		l, ok := r.Layout(p, "ma", surface)
		require.True(t, ok)
		dc := gg.NewContext(200, 100)
		dc.SetColor(color.White)
		dc.Clear()
		r.Draw(dc, []Label{l})
		return dc.Image().(*image.RGBA)
	}

	plain := draw(p)
	assert.Greater(t, plain.RGBAAt(100, 60).R, uint8(200))

	p.FontStyle = template.FontStyle{"underline"}
	underlined := draw(p)
	assert.Less(t, underlined.RGBAAt(100, 60).R, uint8(60))
}

func TestHitTest(t *testing.T) {
	labels := []Label{
		{PointID: "low", X: 100, Y: 100, Width: 80, Ascent: 10, Descent: 4},
		{PointID: "high", X: 120, Y: 100, Width: 80, Ascent: 10, Descent: 4},
	}
	got, ok := HitTest(labels, geometry.Pt(110, 100))
	require.True(t, ok)
	assert.Equal(t, "high", got.PointID)

	got, ok = HitTest(labels, geometry.Pt(65, 98))
	require.True(t, ok)
	assert.Equal(t, "low", got.PointID)

	_, ok = HitTest(labels, geometry.Pt(100, 200))
	assert.False(t, ok)
}
