package compositor

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"time"

	layer "moldura/internal/image"
	"moldura/internal/logging"
	"moldura/internal/template"
	"moldura/internal/textlabel"
	"moldura/internal/viewport"
	"moldura/pkg/colorutil"
	"moldura/pkg/geometry"

	"github.com/fogleman/gg"
)

// Scene is everything a pass needs besides the layer bitmaps.
type Scene struct {
	View   viewport.RenderState
	Points []template.TextPoint
	Values template.TextValues
}

func (s Scene) clone() Scene {
	return Scene{
		View:   s.View,
		Points: template.ClonePoints(s.Points),
		Values: s.Values.Clone(),
	}
}

// Config sizes the surface.
type Config struct {
	Width  int
	Height int
	Fill   color.Color
}

// Compositor renders passes in the background. At most one pass runs at a
// time; requests arriving during a pass mark the scene dirty and one more
// pass runs over the newest inputs when it finishes. A pass paints into a
// fresh buffer that replaces the published surface only once complete.
type Compositor struct {
	cache  *layer.Cache
	text   *textlabel.Renderer
	fitted *Fitted
	cfg    Config

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	scene     Scene
	rendering bool
	dirty     bool
	settled   chan struct{} // Closed when the current run of passes ends
	front     *image.RGBA
	passes    uint64
	listeners []func(*image.RGBA)
	onSettled []func()
}

// New creates a compositor reading layers from cache.
func New(cache *layer.Cache, text *textlabel.Renderer, cfg Config) *Compositor {
	if cfg.Fill == nil {
		cfg.Fill = colorutil.Neutral
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Compositor{
		cache:  cache,
		text:   text,
		fitted: NewFitted(),
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		scene:  Scene{View: viewport.Identity, Values: template.TextValues{}},
	}
}

// Close abandons any pass waiting on a layer load.
func (c *Compositor) Close() {
	c.cancel()
}

// Size returns the surface size.
func (c *Compositor) Size() geometry.Size {
	return geometry.NewSize(float64(c.cfg.Width), float64(c.cfg.Height))
}

// OnFrame registers fn to receive every published surface.
func (c *Compositor) OnFrame(fn func(*image.RGBA)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// OnSettled registers fn to run whenever a run of passes ends and no pass is
// running or queued. Flush returns only after these listeners have run.
func (c *Compositor) OnSettled(fn func()) {
	c.mu.Lock()
	c.onSettled = append(c.onSettled, fn)
	c.mu.Unlock()
}

// SetLayerSource points a layer at source and schedules a redraw.
func (c *Compositor) SetLayerSource(slot layer.Slot, source string) {
	c.cache.EnsureLoaded(slot, source)
	c.Invalidate()
}

// SetScene replaces all inputs and schedules a redraw.
func (c *Compositor) SetScene(s Scene) {
	c.mu.Lock()
	c.scene = s.clone()
	c.mu.Unlock()
	c.Invalidate()
}

// Scene returns a copy of the current inputs.
func (c *Compositor) Scene() Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scene.clone()
}

// UpdateView replaces the background transform and schedules a redraw.
func (c *Compositor) UpdateView(v viewport.RenderState) {
	c.mu.Lock()
	c.scene.View = v
	c.mu.Unlock()
	c.Invalidate()
}

// UpdatePoints replaces the text point list and schedules a redraw.
func (c *Compositor) UpdatePoints(points []template.TextPoint) {
	c.mu.Lock()
	c.scene.Points = template.ClonePoints(points)
	c.mu.Unlock()
	c.Invalidate()
}

// UpdateValues replaces the text values and schedules a redraw.
func (c *Compositor) UpdateValues(values template.TextValues) {
	c.mu.Lock()
	c.scene.Values = values.Clone()
	c.mu.Unlock()
	c.Invalidate()
}

// Invalidate schedules a redraw. If a pass is running it is followed by
// exactly one more.
func (c *Compositor) Invalidate() {
	c.mu.Lock()
	if c.rendering {
		c.dirty = true
		c.mu.Unlock()
		return
	}
	c.rendering = true
	c.settled = make(chan struct{})
	c.mu.Unlock()

	go c.run()
}

func (c *Compositor) run() {
	log := logging.Logger()
	for {
		c.mu.Lock()
		scene := c.scene.clone()
		c.dirty = false
		c.mu.Unlock()

		start := time.Now()
		img, err := c.pass(c.ctx, scene)

		if err == nil {
			c.mu.Lock()
			c.front = img
			c.passes++
			n := c.passes
			listeners := append([]func(*image.RGBA){}, c.listeners...)
			c.mu.Unlock()

			log.Debug("redraw pass complete",
				slog.Uint64("pass", n),
				slog.Duration("duration", time.Since(start)))
			for _, fn := range listeners {
				fn(img)
			}
		} else {
			log.Debug("redraw pass abandoned", slog.Any("err", err))
		}

		c.mu.Lock()
		if c.dirty && err == nil {
			c.mu.Unlock()
			continue
		}
		c.rendering = false
		c.dirty = false
		settled := c.settled
		idle := append([]func(){}, c.onSettled...)
		c.mu.Unlock()

		for _, fn := range idle {
			fn()
		}
		close(settled)
		return
	}
}

// pass paints scene into a new buffer. Each layer waits for its own load,
// in z-order; text never waits.
func (c *Compositor) pass(ctx context.Context, scene Scene) (*image.RGBA, error) {
	var layers Layers
	var err error
	if layers.Background, err = c.cache.Acquire(ctx, layer.SlotBackground); err != nil {
		return nil, err
	}
	if layers.Frame, err = c.cache.Acquire(ctx, layer.SlotFrame); err != nil {
		return nil, err
	}
	if layers.Footer, err = c.cache.Acquire(ctx, layer.SlotFooter); err != nil {
		return nil, err
	}

	labels := c.text.LayoutAll(scene.Points, scene.Values, c.Size())

	dc := gg.NewContext(c.cfg.Width, c.cfg.Height)
	Compose(dc, scene.View, layers, labels, Options{
		Fill:   c.cfg.Fill,
		Text:   c.text,
		Fitted: c.fitted,
	})
	return dc.Image().(*image.RGBA), nil
}

// Render schedules a redraw and waits until the surface reflects the current
// inputs.
func (c *Compositor) Render(ctx context.Context) (*image.RGBA, error) {
	c.Invalidate()
	if err := c.Flush(ctx); err != nil {
		return nil, err
	}
	return c.Surface(), nil
}

// Flush waits until no pass is running or queued.
func (c *Compositor) Flush(ctx context.Context) error {
	c.mu.Lock()
	if !c.rendering {
		c.mu.Unlock()
		return nil
	}
	ch := c.settled
	c.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Surface returns the last completed frame, or nil before the first pass.
// The image must not be modified.
func (c *Compositor) Surface() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.front
}

// Passes returns how many passes have completed.
func (c *Compositor) Passes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passes
}

// Pending reports whether the surface may lag behind the inputs: a pass is
// running or queued, or a layer is still loading.
func (c *Compositor) Pending() bool {
	c.mu.Lock()
	busy := c.rendering || c.dirty
	c.mu.Unlock()
	return busy || c.cache.AnyPending()
}
