package canvas

import (
	"image"
	"sync"

	"moldura/internal/app"
	"moldura/internal/template"
	"moldura/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// Mode selects what pointer input does on the surface.
type Mode int

const (
	ModeFill    Mode = iota // Drag pans, wheel zooms the photo
	ModeAnchors             // Drag moves text anchors
)

// SurfaceView shows the composed surface, scaled to fit and centred, and
// turns mouse input into viewport gestures or anchor edits.
type SurfaceView struct {
	widget.BaseWidget

	state *app.State
	image *fynecanvas.Image

	mu       sync.Mutex
	frame    *image.RGBA
	rect     geometry.Rect // Display rect inside the widget
	mode     Mode
	selected string
	moving   string // Point being dragged in ModeAnchors
	onSelect func(id string)
}

var (
	_ fyne.Draggable    = (*SurfaceView)(nil)
	_ fyne.Scrollable   = (*SurfaceView)(nil)
	_ desktop.Mouseable = (*SurfaceView)(nil)
)

// NewSurfaceView creates a view following the state's rendered frames.
func NewSurfaceView(state *app.State) *SurfaceView {
	sv := &SurfaceView{state: state}
	sv.image = &fynecanvas.Image{
		FillMode:  fynecanvas.ImageFillContain,
		ScaleMode: fynecanvas.ImageScaleSmooth,
	}
	sv.ExtendBaseWidget(sv)

	state.On(app.EventFrameRendered, func(data interface{}) {
		if f, ok := data.(*image.RGBA); ok {
			sv.mu.Lock()
			sv.frame = f
			sv.mu.Unlock()
			sv.Refresh()
		}
	})
	state.On(app.EventPointsChanged, func(interface{}) { sv.Refresh() })
	state.On(app.EventClientLoaded, func(interface{}) { sv.Select("") })
	return sv
}

func (sv *SurfaceView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(sv.image)
}

func (sv *SurfaceView) MinSize() fyne.Size {
	return fyne.NewSize(320, 320)
}

// Resize tracks the display rect so gestures map onto surface pixels.
func (sv *SurfaceView) Resize(size fyne.Size) {
	sv.BaseWidget.Resize(size)

	rect := DisplayRect(geometry.NewSize(float64(size.Width), float64(size.Height)), sv.state.Compositor.Size())
	sv.mu.Lock()
	sv.rect = rect
	sv.mu.Unlock()
	sv.state.View.SetDisplaySize(geometry.NewSize(rect.Width, rect.Height))
}

// Refresh redraws the last frame, with anchors in ModeAnchors.
func (sv *SurfaceView) Refresh() {
	sv.mu.Lock()
	frame, mode, selected := sv.frame, sv.mode, sv.selected
	sv.mu.Unlock()

	if frame != nil {
		if mode == ModeAnchors {
			sv.image.Image = Annotate(frame, sv.markers(selected), app.AnchorColor)
		} else {
			sv.image.Image = frame
		}
	}
	sv.image.Refresh()
	sv.BaseWidget.Refresh()
}

func (sv *SurfaceView) markers(selected string) []Marker {
	c := sv.state.Client()
	if c == nil {
		return nil
	}
	return Markers(c.TextPoints, sv.state.Compositor.Size(), selected)
}

// SetMode switches between filling and anchor editing.
func (sv *SurfaceView) SetMode(m Mode) {
	sv.mu.Lock()
	sv.mode = m
	sv.moving = ""
	sv.mu.Unlock()
	sv.Refresh()
}

// Mode returns the current interaction mode.
func (sv *SurfaceView) Mode() Mode {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.mode
}

// OnSelect registers fn to run when an anchor is picked on the surface.
func (sv *SurfaceView) OnSelect(fn func(id string)) {
	sv.mu.Lock()
	sv.onSelect = fn
	sv.mu.Unlock()
}

// Select highlights a text point. An empty id clears the selection.
func (sv *SurfaceView) Select(id string) {
	sv.mu.Lock()
	changed := sv.selected != id
	sv.selected = id
	fn := sv.onSelect
	sv.mu.Unlock()

	if !changed {
		return
	}
	if fn != nil {
		fn(id)
	}
	sv.Refresh()
}

// Selected returns the highlighted text point id.
func (sv *SurfaceView) Selected() string {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.selected
}

func (sv *SurfaceView) local(pos fyne.Position) (geometry.Point2D, bool) {
	sv.mu.Lock()
	rect := sv.rect
	sv.mu.Unlock()
	return Local(geometry.Pt(float64(pos.X), float64(pos.Y)), rect)
}

// pick finds the anchor under a display position: markers first, then drawn
// labels.
func (sv *SurfaceView) pick(p geometry.Point2D) (string, bool) {
	sp := sv.state.View.ToSurface(p)
	if m, ok := MarkerAt(sv.markers(""), sp, MarkerRadius*1.5); ok {
		return m.PointID, true
	}
	return sv.state.PointAt(sp)
}

// MouseDown starts a pan, or grabs an anchor in ModeAnchors.
func (sv *SurfaceView) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	p, inside := sv.local(ev.Position)
	if !inside {
		return
	}
	if sv.Mode() == ModeAnchors {
		if id, ok := sv.pick(p); ok {
			sv.mu.Lock()
			sv.moving = id
			sv.mu.Unlock()
			sv.Select(id)
		}
		return
	}
	sv.state.View.PointerDown(p)
}

// MouseUp ends any gesture.
func (sv *SurfaceView) MouseUp(*desktop.MouseEvent) {
	sv.release()
}

// Dragged pans the photo or moves the grabbed anchor.
func (sv *SurfaceView) Dragged(ev *fyne.DragEvent) {
	p, _ := sv.local(ev.Position)

	sv.mu.Lock()
	moving, rect := sv.moving, sv.rect
	sv.mu.Unlock()

	if moving != "" {
		x, y := template.PercentAt(p, geometry.NewSize(rect.Width, rect.Height))
		_ = sv.state.MoveTextPoint(moving, x, y)
		return
	}
	sv.state.View.PointerMove(p)
}

// DragEnd ends any gesture.
func (sv *SurfaceView) DragEnd() {
	sv.release()
}

func (sv *SurfaceView) release() {
	sv.mu.Lock()
	sv.moving = ""
	sv.mu.Unlock()
	sv.state.View.PointerUp()
}

// Scrolled zooms about the pointer. Fyne reports wheel-up as positive DY,
// which zooms in.
func (sv *SurfaceView) Scrolled(ev *fyne.ScrollEvent) {
	p, inside := sv.local(ev.Position)
	if !inside {
		return
	}
	sv.state.View.Wheel(p, -float64(ev.Scrolled.DY))
}
