package viewport

import (
	"log/slog"
	"sync"

	"moldura/internal/logging"
	"moldura/pkg/geometry"

	"gonum.org/v1/gonum/floats"
)

// Result describes how a gesture handler treated an event.
type Result struct {
	Claimed bool // The host must not scroll or zoom the page for this event
	Changed bool // The render state was updated
}

// Viewport owns the background transform and the gesture tracking that
// drives it. Gesture positions are in display pixels relative to the top-left
// corner of the displayed surface.
type Viewport struct {
	mu sync.Mutex

	limits  Limits
	surface geometry.Size
	display geometry.Size

	state    RenderState
	natural  geometry.Size
	hasImage bool

	dragging bool
	last     geometry.Point2D
	lastDist float64

	listeners []func(RenderState)
}

// New creates a viewport for an output surface of the given size.
func New(surface geometry.Size, lim Limits) *Viewport {
	return &Viewport{
		limits:  lim,
		surface: surface,
		display: surface,
		state:   Identity,
	}
}

// OnChange registers fn to receive every new render state.
func (v *Viewport) OnChange(fn func(RenderState)) {
	v.mu.Lock()
	v.listeners = append(v.listeners, fn)
	v.mu.Unlock()
}

// SetDisplaySize records the on-screen size of the surface.
func (v *Viewport) SetDisplaySize(sz geometry.Size) {
	v.mu.Lock()
	v.display = sz
	v.mu.Unlock()
}

// Surface returns the output surface size.
func (v *Viewport) Surface() geometry.Size {
	return v.surface
}

// State returns the current render state.
func (v *Viewport) State() RenderState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// HasImage reports whether a background image is loaded.
func (v *Viewport) HasImage() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hasImage
}

// SetState replaces the render state.
func (v *Viewport) SetState(s RenderState) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
	v.notify(s)
}

// SetImage records a newly decoded background of the given natural size and
// fits it to the surface.
func (v *Viewport) SetImage(natural geometry.Size) {
	v.mu.Lock()
	v.natural = natural
	v.hasImage = !natural.Empty()
	v.dragging = false
	s, ok := v.fitLocked()
	v.mu.Unlock()
	if ok {
		v.notify(s)
	}
}

// ClearImage forgets the background. Gestures become no-ops.
func (v *Viewport) ClearImage() {
	v.mu.Lock()
	v.hasImage = false
	v.natural = geometry.Size{}
	v.dragging = false
	v.mu.Unlock()
}

// Center fits and centres the current background. It reports false when no
// image is loaded.
func (v *Viewport) Center() bool {
	v.mu.Lock()
	s, ok := v.fitLocked()
	v.mu.Unlock()
	if !ok {
		return false
	}
	v.notify(s)
	return true
}

func (v *Viewport) fitLocked() (RenderState, bool) {
	if !v.hasImage {
		return v.state, false
	}
	s := FitAndCenter(v.natural, v.surface, v.limits.FitRatio)
	v.state = s
	logging.Logger().Debug("background fitted",
		slog.Float64("scale", s.Scale),
		slog.Float64("offset_x", s.OffsetX),
		slog.Float64("offset_y", s.OffsetY))
	return s, true
}

// ToSurface converts a display position into surface pixels.
func (v *Viewport) ToSurface(p geometry.Point2D) geometry.Point2D {
	v.mu.Lock()
	defer v.mu.Unlock()
	return p.Scale(v.ratio())
}

// ratio is surfaceWidth/displayedWidth. Caller holds mu.
func (v *Viewport) ratio() float64 {
	if v.display.Width <= 0 {
		return 1
	}
	return v.surface.Width / v.display.Width
}

// PointerDown starts a drag.
func (v *Viewport) PointerDown(p geometry.Point2D) Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.hasImage {
		return Result{}
	}
	v.dragging = true
	v.last = p
	return Result{Claimed: true}
}

// PointerMove pans the image while a drag is active.
func (v *Viewport) PointerMove(p geometry.Point2D) Result {
	return v.dragTo(p)
}

// PointerUp ends a drag. Leaving the surface counts as pointer up.
func (v *Viewport) PointerUp() Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	claimed := v.dragging
	v.dragging = false
	return Result{Claimed: claimed}
}

func (v *Viewport) dragTo(p geometry.Point2D) Result {
	v.mu.Lock()
	if !v.dragging || !v.hasImage {
		v.mu.Unlock()
		return Result{}
	}
	d := p.Sub(v.last).Scale(v.ratio())
	v.last = p
	s := v.state.Pan(d.X, d.Y)
	v.state = s
	v.mu.Unlock()

	v.notify(s)
	return Result{Claimed: true, Changed: true}
}

// Wheel zooms about the pointer. A positive deltaY zooms out. Wheel events
// are always claimed so the page never scrolls under the surface.
func (v *Viewport) Wheel(p geometry.Point2D, deltaY float64) Result {
	v.mu.Lock()
	if !v.hasImage || deltaY == 0 {
		v.mu.Unlock()
		return Result{Claimed: true}
	}
	factor := v.limits.WheelIn
	if deltaY > 0 {
		factor = v.limits.WheelOut
	}
	s, ok := v.state.Zoom(factor, p.Scale(v.ratio()), v.limits)
	v.state = s
	v.mu.Unlock()

	if ok {
		v.notify(s)
	}
	return Result{Claimed: true, Changed: ok}
}

// TouchStart begins a one-finger drag or a two-finger pinch.
func (v *Viewport) TouchStart(touches []geometry.Point2D) Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.hasImage {
		return Result{}
	}
	switch len(touches) {
	case 1:
		v.dragging = true
		v.last = touches[0]
	case 2:
		v.dragging = false
		v.lastDist = distance(touches[0], touches[1])
		v.last = midpoint(touches[0], touches[1])
	}
	return Result{Claimed: true}
}

// TouchMove pans with one finger and pinch-zooms about the finger midpoint
// with two.
func (v *Viewport) TouchMove(touches []geometry.Point2D) Result {
	switch len(touches) {
	case 1:
		if r := v.dragTo(touches[0]); r.Claimed {
			return r
		}
		return Result{Claimed: v.HasImage()}
	case 2:
		return v.pinch(touches[0], touches[1])
	}
	return Result{Claimed: v.HasImage()}
}

func (v *Viewport) pinch(a, b geometry.Point2D) Result {
	v.mu.Lock()
	if !v.hasImage {
		v.mu.Unlock()
		return Result{}
	}
	dist := distance(a, b)
	if v.lastDist <= 0 {
		// Second finger landed without a TouchStart for it.
		v.lastDist = dist
		v.last = midpoint(a, b)
		v.mu.Unlock()
		return Result{Claimed: true}
	}
	center := midpoint(a, b)
	s, ok := v.state.Zoom(dist/v.lastDist, center.Scale(v.ratio()), v.limits)
	if ok {
		v.state = s
		v.lastDist = dist
		v.last = center
	}
	v.mu.Unlock()

	if ok {
		v.notify(s)
	}
	return Result{Claimed: true, Changed: ok}
}

// TouchEnd stops any touch gesture.
func (v *Viewport) TouchEnd() Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dragging = false
	v.lastDist = 0
	return Result{Claimed: v.hasImage}
}

func (v *Viewport) notify(s RenderState) {
	v.mu.Lock()
	listeners := append([]func(RenderState){}, v.listeners...)
	v.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}

func distance(a, b geometry.Point2D) float64 {
	return floats.Distance([]float64{a.X, a.Y}, []float64{b.X, b.Y}, 2)
}

func midpoint(a, b geometry.Point2D) geometry.Point2D {
	return a.Add(b).Scale(0.5)
}
