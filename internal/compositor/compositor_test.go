package compositor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"moldura/internal/config"
	layer "moldura/internal/image"
	"moldura/internal/template"
	"moldura/internal/textlabel"
	"moldura/internal/viewport"
	"moldura/pkg/colorutil"

	"github.com/fogleman/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

func fill(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// halfFrame is opaque blue on the left half and transparent on the right.
func halfFrame(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			img.Set(x, y, blue)
		}
	}
	return img
}

type decoder struct {
	mu     sync.Mutex
	images map[string]image.Image
	gates  map[string]chan struct{}
}

func newDecoder(images map[string]image.Image) *decoder {
	return &decoder{images: images, gates: make(map[string]chan struct{})}
}

// hold makes Decode of src block until release.
func (d *decoder) hold(src string) {
	d.mu.Lock()
	d.gates[src] = make(chan struct{})
	d.mu.Unlock()
}

func (d *decoder) release(src string) {
	d.mu.Lock()
	close(d.gates[src])
	d.mu.Unlock()
}

func (d *decoder) Decode(ctx context.Context, src string) (image.Image, error) {
	d.mu.Lock()
	gate := d.gates[src]
	img := d.images[src]
	d.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if img == nil {
		return nil, errors.New("no such image")
	}
	return img, nil
}

func newCompositor(t *testing.T, dec layer.Decoder, w, h int) *Compositor {
	t.Helper()
	cfg := config.Default()
	text := textlabel.NewRenderer(textlabel.NewRegistry(nil), textlabel.OptionsFrom(cfg))
	c := New(layer.NewCache(dec), text, Config{Width: w, Height: h, Fill: colorutil.Neutral})
	t.Cleanup(c.Close)
	return c
}

func render(t *testing.T, c *Compositor) *image.RGBA {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	img, err := c.Render(ctx)
	require.NoError(t, err)
	require.NotNil(t, img)
	return img
}

func assertColor(t *testing.T, img *image.RGBA, x, y int, want color.RGBA) {
	t.Helper()
	got := img.RGBAAt(x, y)
	near := func(a, b uint8) bool {
		d := int(a) - int(b)
		return d > -8 && d < 8
	}
	assert.True(t, near(got.R, want.R) && near(got.G, want.G) && near(got.B, want.B),
		"pixel (%d,%d) = %v, want %v", x, y, got, want)
}

// dark reports glyph ink over any of the light test backgrounds.
func dark(c color.RGBA) bool {
	return c.R < 160 && c.G < 160 && c.B < 160
}

func TestExportBeforeFirstFrame(t *testing.T) {
	c := newCompositor(t, newDecoder(nil), 10, 10)
	var buf bytes.Buffer
	err := c.ExportPNG(&buf)
	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.ErrorIs(t, err, ErrNoFrame)
	assert.Zero(t, buf.Len())
}

func TestEmptySceneIsFill(t *testing.T) {
	c := newCompositor(t, newDecoder(nil), 20, 20)
	img := render(t, c)
	assertColor(t, img, 0, 0, colorutil.Neutral)
	assertColor(t, img, 19, 19, colorutil.Neutral)
}

func TestZOrder(t *testing.T) {
	dec := newDecoder(map[string]image.Image{
		"bg":     fill(100, 100, red),
		"frame":  halfFrame(50, 50),
		"footer": fill(50, 10, green),
	})
	c := newCompositor(t, dec, 100, 100)
	c.SetScene(Scene{
		View: viewport.Identity,
		Points: []template.TextPoint{{
			ID: "t", X: 50, Y: 90, FontFamily: "Arial", FontSize: 16, FontStyle: template.FontStyle{"bold"},
		}},
		Values: template.TextValues{"t": "MMMM"},
	})
	c.SetLayerSource(layer.SlotBackground, "bg")
	c.SetLayerSource(layer.SlotFrame, "frame")
	c.SetLayerSource(layer.SlotFooter, "footer")
	img := render(t, c)

	assertColor(t, img, 10, 10, blue) // frame over photo
	assertColor(t, img, 90, 10, red)  // transparent part of frame
	assertColor(t, img, 2, 97, green) // footer over frame
	assertColor(t, img, 98, 97, green)

	// Text over footer.
	inked := false
	for y := 80; y < 100; y++ {
		for x := 20; x < 80; x++ {
			if dark(img.RGBAAt(x, y)) {
				inked = true
			}
		}
	}
	assert.True(t, inked, "text not drawn above the footer")

	// Removing the frame leaves the rest in order.
	c.SetLayerSource(layer.SlotFrame, "")
	img = render(t, c)
	assertColor(t, img, 10, 10, red)
	assertColor(t, img, 2, 97, green)
}

func TestBackgroundTransform(t *testing.T) {
	dec := newDecoder(map[string]image.Image{"bg": fill(10, 10, red)})
	c := newCompositor(t, dec, 100, 100)
	c.SetLayerSource(layer.SlotBackground, "bg")
	c.UpdateView(viewport.RenderState{Scale: 2, OffsetX: 10, OffsetY: 10})
	img := render(t, c)

	assertColor(t, img, 15, 15, red)
	assertColor(t, img, 28, 28, red)
	assertColor(t, img, 5, 5, colorutil.Neutral)
	assertColor(t, img, 35, 35, colorutil.Neutral)
}

func TestBackgroundOffSurfaceIsSkipped(t *testing.T) {
	dec := newDecoder(map[string]image.Image{"bg": fill(10, 10, red)})
	c := newCompositor(t, dec, 100, 100)
	c.SetLayerSource(layer.SlotBackground, "bg")
	c.UpdateView(viewport.RenderState{Scale: 1, OffsetX: 100, OffsetY: 0})
	img := render(t, c)

	assertColor(t, img, 99, 5, colorutil.Neutral)
	assertColor(t, img, 0, 0, colorutil.Neutral)
}

func TestFooterGeometry(t *testing.T) {
	assert.Equal(t, 25, FooterHeight(200, 50, 100))
	assert.Equal(t, 0, FooterHeight(0, 50, 100))

	dec := newDecoder(map[string]image.Image{"footer": fill(200, 50, green)})
	c := newCompositor(t, dec, 100, 100)
	c.SetLayerSource(layer.SlotFooter, "footer")
	img := render(t, c)

	assertColor(t, img, 50, 73, colorutil.Neutral)
	assertColor(t, img, 50, 76, green)
	assertColor(t, img, 0, 99, green)
	assertColor(t, img, 99, 99, green)
}

func TestTextScenario(t *testing.T) {
	c := newCompositor(t, newDecoder(nil), 1000, 1000)
	c.SetLayerSource(layer.SlotFrame, "")
	c.SetLayerSource(layer.SlotFooter, "")
	c.SetScene(Scene{
		View: viewport.Identity,
		Points: []template.TextPoint{{
			ID: "p1", Name: "Título", X: 10, Y: 10, FontFamily: "Arial", FontSize: 12, FontStyle: template.FontStyle{},
		}},
		Values: template.TextValues{"p1": "Olá"},
	})
	img := render(t, c)

	assertColor(t, img, 500, 500, colorutil.Neutral)
	assertColor(t, img, 999, 999, colorutil.Neutral)

	var box image.Rectangle
	found := false
	for y := 0; y < 1000; y++ {
		for x := 0; x < 1000; x++ {
			if !dark(img.RGBAAt(x, y)) {
				continue
			}
			px := image.Rect(x, y, x+1, y+1)
			if !found {
				box, found = px, true
			} else {
				box = box.Union(px)
			}
		}
	}
	require.True(t, found)
	assert.InDelta(t, 100, float64(box.Min.X+box.Max.X)/2, 3)
	assert.InDelta(t, 100, float64(box.Min.Y+box.Max.Y)/2, 4)
	assert.Less(t, box.Dx(), 40)
	assert.Less(t, box.Dy(), 20)
}

func TestRedrawIsIdempotent(t *testing.T) {
	dec := newDecoder(map[string]image.Image{
		"bg":    fill(40, 20, red),
		"frame": halfFrame(10, 10),
	})
	c := newCompositor(t, dec, 100, 100)
	c.SetLayerSource(layer.SlotBackground, "bg")
	c.SetLayerSource(layer.SlotFrame, "frame")
	c.SetScene(Scene{
		View:   viewport.RenderState{Scale: 1.7, OffsetX: 3.3, OffsetY: -2.1},
		Points: []template.TextPoint{{ID: "a", X: 40, Y: 60, FontFamily: "Georgia", FontSize: 14, FontStyle: template.FontStyle{"italic", "underline"}}},
		Values: template.TextValues{"a": "Feliz"},
	})
	first := render(t, c)
	second := render(t, c)
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Pix, second.Pix)
}

func TestRedrawsCoalesce(t *testing.T) {
	dec := newDecoder(map[string]image.Image{"bg": fill(10, 10, red)})
	dec.hold("bg")
	c := newCompositor(t, dec, 50, 50)

	frames := 0
	c.OnFrame(func(*image.RGBA) { frames++ })

	points := []template.TextPoint{{ID: "a", X: 50, Y: 50, FontFamily: "Arial", FontSize: 10}}
	c.UpdatePoints(points)
	c.SetLayerSource(layer.SlotBackground, "bg")
	for _, v := range []string{"a", "ab", "abc", "abcd", "abcde"} {
		c.UpdateValues(template.TextValues{"a": v})
	}
	assert.True(t, c.Pending())
	dec.release("bg")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Flush(ctx))
	assert.False(t, c.Pending())
	assert.LessOrEqual(t, c.Passes(), uint64(3))
	assert.Equal(t, int(c.Passes()), frames)

	// The published frame shows the final values.
	ref := newCompositor(t, newDecoder(map[string]image.Image{"bg": fill(10, 10, red)}), 50, 50)
	ref.SetLayerSource(layer.SlotBackground, "bg")
	ref.SetScene(Scene{View: viewport.Identity, Points: points, Values: template.TextValues{"a": "abcde"}})
	assert.Equal(t, render(t, ref).Pix, c.Surface().Pix)
}

func TestSettledListenersSeeIdle(t *testing.T) {
	dec := newDecoder(map[string]image.Image{"bg": fill(10, 10, red)})
	dec.hold("bg")
	c := newCompositor(t, dec, 50, 50)

	var mu sync.Mutex
	var framePending, settledPending []bool
	c.OnFrame(func(*image.RGBA) {
		mu.Lock()
		framePending = append(framePending, c.Pending())
		mu.Unlock()
	})
	c.OnSettled(func() {
		mu.Lock()
		settledPending = append(settledPending, c.Pending())
		mu.Unlock()
	})

	c.SetLayerSource(layer.SlotBackground, "bg")
	c.UpdateValues(template.TextValues{"a": "x"})
	dec.release("bg")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Flush(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, framePending)
	assert.True(t, framePending[0], "a frame is published while its run is still open")
	assert.Equal(t, []bool{false}, settledPending)
}

func TestStaleBackgroundNeverDrawn(t *testing.T) {
	dec := newDecoder(map[string]image.Image{
		"A": fill(100, 100, red),
		"B": fill(100, 100, blue),
	})
	dec.hold("A")
	dec.hold("B")
	c := newCompositor(t, dec, 20, 20)

	var mu sync.Mutex
	var seen []color.RGBA
	c.OnFrame(func(img *image.RGBA) {
		mu.Lock()
		seen = append(seen, img.RGBAAt(5, 5))
		mu.Unlock()
	})

	c.SetLayerSource(layer.SlotBackground, "A")
	c.SetLayerSource(layer.SlotBackground, "B")
	dec.release("B")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Flush(ctx))
	assertColor(t, c.Surface(), 5, 5, blue)

	passes := c.Passes()
	dec.release("A")
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, passes, c.Passes())
	assertColor(t, c.Surface(), 5, 5, blue)

	mu.Lock()
	defer mu.Unlock()
	for _, px := range seen {
		assert.NotEqual(t, red, px)
	}
}

func TestFailedLayerIsAbsent(t *testing.T) {
	c := newCompositor(t, newDecoder(nil), 20, 20)
	c.SetLayerSource(layer.SlotFrame, "missing.png")
	img := render(t, c)
	assertColor(t, img, 10, 10, colorutil.Neutral)
}

func TestCloseAbandonsPass(t *testing.T) {
	dec := newDecoder(map[string]image.Image{"bg": fill(5, 5, red)})
	dec.hold("bg")
	c := newCompositor(t, dec, 10, 10)
	c.SetLayerSource(layer.SlotBackground, "bg")
	c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Flush(ctx))
	assert.Nil(t, c.Surface())
	dec.release("bg")
}

func TestExportPNG(t *testing.T) {
	dec := newDecoder(map[string]image.Image{"bg": fill(30, 30, red)})
	c := newCompositor(t, dec, 30, 30)
	c.SetLayerSource(layer.SlotBackground, "bg")
	surface := render(t, c)

	var buf bytes.Buffer
	require.NoError(t, c.ExportPNG(&buf))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, surface.Bounds(), decoded.Bounds())
	r, g, b, _ := decoded.At(15, 15).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0, 0}, [3]uint32{r, g, b})

	path := t.TempDir() + "/" + DefaultFilename
	require.NoError(t, c.ExportFile(path))

	err = c.ExportFile(t.TempDir() + "/missing/dir/out.png")
	var exportErr *ExportError
	assert.ErrorAs(t, err, &exportErr)
}

func TestFittedMemo(t *testing.T) {
	f := NewFitted()
	bm := &layer.Bitmap{Source: "f", Image: fill(20, 20, green), Width: 20, Height: 20}
	a := f.fit(layer.SlotFrame, bm, 10, 10)
	b := f.fit(layer.SlotFrame, bm, 10, 10)
	assert.Same(t, a.(*image.NRGBA), b.(*image.NRGBA))
	assert.Equal(t, 10, a.Bounds().Dx())

	// Natural size needs no resample.
	assert.Same(t, bm.Image.(*image.NRGBA), f.fit(layer.SlotFrame, bm, 20, 20).(*image.NRGBA))
}

func TestComposeWithoutTextRenderer(t *testing.T) {
	dc := gg.NewContext(10, 10)
	Compose(dc, viewport.Identity, Layers{}, nil, Options{Fill: red})
	assertColor(t, dc.Image().(*image.RGBA), 5, 5, red)
}
