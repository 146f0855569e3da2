// Package app provides application state, events and lifecycle around the
// compositor.
package app

import (
	"fmt"
	goimage "image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"moldura/internal/compositor"
	"moldura/internal/config"
	layer "moldura/internal/image"
	"moldura/internal/logging"
	"moldura/internal/template"
	"moldura/internal/textlabel"
	"moldura/internal/viewport"
	"moldura/pkg/colorutil"
	"moldura/pkg/geometry"

	"github.com/h2non/filetype"
)

// State holds the loaded client, what the end user entered, and the
// compositor pipeline that turns both into the output surface.
type State struct {
	mu sync.RWMutex

	cfg config.Config

	// Template
	path     string
	client   *template.Client
	unlocked bool

	// Fill-time inputs
	values     template.TextValues
	background string

	Cache      *layer.Cache
	View       *viewport.Viewport
	Compositor *compositor.Compositor
	Text       *textlabel.Renderer

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventClientLoaded      EventType = iota // data: *template.Client
	EventBackgroundChanged                  // data: string source ("" when cleared)
	EventValuesChanged                      // data: template.TextValues
	EventPointsChanged                      // data: []template.TextPoint
	EventFrameRendered                      // data: *image.RGBA
	EventExportFailed                       // data: error
	EventRenderSettled                      // data: nil; no redraw running or queued
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Option configures NewState.
type Option func(*options)

type options struct {
	decoder layer.Decoder
}

// WithDecoder replaces the layer decoder.
func WithDecoder(d layer.Decoder) Option {
	return func(o *options) { o.decoder = d }
}

// NewState builds the pipeline from cfg. A background that finishes decoding
// is fitted and centred automatically.
func NewState(cfg config.Config, opts ...Option) *State {
	o := options{decoder: layer.NewSourceDecoder("", cfg.HTTPTimeout.Duration)}
	for _, opt := range opts {
		opt(&o)
	}
	s := &State{
		cfg:       cfg,
		values:    template.TextValues{},
		listeners: make(map[EventType][]EventListener),
	}
	surface := geometry.NewSize(float64(cfg.SurfaceWidth), float64(cfg.SurfaceHeight))

	s.Cache = layer.NewCache(o.decoder)
	s.Text = textlabel.NewRenderer(textlabel.NewRegistry(cfg.Fonts), textlabel.OptionsFrom(cfg))
	s.Compositor = compositor.New(s.Cache, s.Text, compositor.Config{
		Width:  cfg.SurfaceWidth,
		Height: cfg.SurfaceHeight,
		Fill:   colorutil.ParseHexOr(cfg.FillColor, colorutil.Neutral),
	})
	s.View = viewport.New(surface, viewport.LimitsFrom(cfg))

	s.Cache.OnBackgroundReady(func(bm *layer.Bitmap) {
		s.View.SetImage(geometry.NewSize(float64(bm.Width), float64(bm.Height)))
	})
	s.View.OnChange(s.Compositor.UpdateView)
	s.Compositor.OnFrame(func(img *goimage.RGBA) {
		s.Emit(EventFrameRendered, img)
	})
	s.Compositor.OnSettled(func() {
		s.Emit(EventRenderSettled, nil)
	})
	return s
}

// Config returns the configuration the state was built with.
func (s *State) Config() config.Config {
	return s.cfg
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Close stops any pending redraw.
func (s *State) Close() {
	s.Compositor.Close()
}

// LoadClient reads a template file and makes it current.
func (s *State) LoadClient(path string) error {
	c, err := template.Load(path)
	if err != nil {
		return err
	}
	s.SetClient(c, path)
	return nil
}

// ReloadClient re-reads the current template file, keeping the values of
// points that still exist.
func (s *State) ReloadClient() error {
	s.mu.RLock()
	path := s.path
	s.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("no template loaded")
	}
	return s.LoadClient(path)
}

// SetClient makes c the current template. path locates relative layer
// sources and may be empty.
func (s *State) SetClient(c *template.Client, path string) {
	c = c.Clone()
	c.Normalize()

	s.mu.Lock()
	samePath := path != "" && path == s.path
	s.path = path
	s.client = c
	s.values = s.values.Sync(c.TextPoints)
	if !samePath {
		s.unlocked = !c.RequiresPassword()
	}
	values := s.values.Clone()
	s.mu.Unlock()

	base := ""
	if path != "" {
		base = filepath.Dir(path)
	}
	s.Compositor.SetLayerSource(layer.SlotFrame, resolveSource(base, c.Frame))
	s.Compositor.SetLayerSource(layer.SlotFooter, resolveSource(base, c.Footer))
	s.Compositor.UpdatePoints(c.TextPoints)
	s.Compositor.UpdateValues(values)

	logging.Logger().Info("client loaded",
		slog.String("client", c.DisplayName()),
		slog.Int("text_points", len(c.TextPoints)))
	s.Emit(EventClientLoaded, c.Clone())
}

// Path returns the file the current template was loaded from, or "".
func (s *State) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Client returns a copy of the current template, or nil.
func (s *State) Client() *template.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client.Clone()
}

// Authenticate opens the password gate of the current client.
func (s *State) Authenticate(password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return false
	}
	if s.client.Authenticate(password) {
		s.unlocked = true
	}
	return s.unlocked
}

// Unlocked reports whether the fill screen may be shown.
func (s *State) Unlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil && s.unlocked
}

// Values returns a copy of the text values.
func (s *State) Values() template.TextValues {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Clone()
}

// SetValue stores the text typed for a point and redraws.
func (s *State) SetValue(id, value string) {
	s.mu.Lock()
	s.values.Set(id, value)
	values := s.values.Clone()
	s.mu.Unlock()

	s.Compositor.UpdateValues(values)
	s.Emit(EventValuesChanged, values)
}

// SetValueByName is SetValue addressed by point name (case insensitive).
func (s *State) SetValueByName(name, value string) bool {
	s.mu.RLock()
	id := ""
	if s.client != nil {
		for _, p := range s.client.TextPoints {
			if strings.EqualFold(p.Name, name) {
				id = p.ID
				break
			}
		}
	}
	s.mu.RUnlock()
	if id == "" {
		return false
	}
	s.SetValue(id, value)
	return true
}

// Background returns the current background source.
func (s *State) Background() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.background
}

// SetBackground replaces the background photo. An empty source clears it.
func (s *State) SetBackground(source string) {
	s.mu.Lock()
	s.background = source
	s.mu.Unlock()

	if source == "" {
		s.View.ClearImage()
	}
	s.Compositor.SetLayerSource(layer.SlotBackground, source)
	s.Emit(EventBackgroundChanged, source)
}

// ClearBackground removes the background photo.
func (s *State) ClearBackground() {
	s.SetBackground("")
}

// LoadBackgroundFile reads an image file and hands it over as a data URL,
// the same way uploads arrive.
func (s *State) LoadBackgroundFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return s.LoadBackgroundBytes(data)
}

// LoadBackgroundBytes sets an encoded image as the background.
func (s *State) LoadBackgroundBytes(data []byte) error {
	kind, err := filetype.Match(data)
	if err != nil {
		return err
	}
	if !filetype.IsImage(data) {
		return layer.ErrNotImage
	}
	s.SetBackground(layer.DataURL(kind.MIME.Value, data))
	return nil
}

// CenterImage fits and centres the background. It reports false when there
// is none.
func (s *State) CenterImage() bool {
	return s.View.Center()
}

// AddTextPoint adds a point to the current client.
func (s *State) AddTextPoint(p template.TextPoint) (template.TextPoint, error) {
	var out template.TextPoint
	err := s.editPoints(func(c *template.Client) error {
		var err error
		out, err = c.AddTextPoint(p)
		return err
	})
	return out, err
}

// UpdateTextPoint edits a point of the current client.
func (s *State) UpdateTextPoint(id string, fn func(*template.TextPoint)) (template.TextPoint, error) {
	var out template.TextPoint
	err := s.editPoints(func(c *template.Client) error {
		var err error
		out, err = c.UpdateTextPoint(id, fn)
		return err
	})
	return out, err
}

// MoveTextPoint repositions a point's anchor.
func (s *State) MoveTextPoint(id string, x, y float64) error {
	return s.editPoints(func(c *template.Client) error {
		_, err := c.MoveTextPoint(id, x, y)
		return err
	})
}

// DeleteTextPoint removes a point and its value.
func (s *State) DeleteTextPoint(id string) error {
	return s.editPoints(func(c *template.Client) error {
		return c.DeleteTextPoint(id)
	})
}

func (s *State) editPoints(fn func(*template.Client) error) error {
	s.mu.Lock()
	if s.client == nil {
		s.mu.Unlock()
		return fmt.Errorf("no client loaded")
	}
	if err := fn(s.client); err != nil {
		s.mu.Unlock()
		return err
	}
	s.values = s.values.Sync(s.client.TextPoints)
	points := template.ClonePoints(s.client.TextPoints)
	values := s.values.Clone()
	s.mu.Unlock()

	s.Compositor.UpdatePoints(points)
	s.Compositor.UpdateValues(values)
	s.Emit(EventPointsChanged, points)
	return nil
}

// SaveClient writes the current template back to its file.
func (s *State) SaveClient() error {
	s.mu.RLock()
	c, path := s.client.Clone(), s.path
	s.mu.RUnlock()
	if c == nil || path == "" {
		return fmt.Errorf("no template file to save to")
	}
	return c.Save(path)
}

// PointAt returns the id of the topmost drawn label under a surface point.
func (s *State) PointAt(p geometry.Point2D) (string, bool) {
	scene := s.Compositor.Scene()
	labels := s.Text.LayoutAll(scene.Points, scene.Values, s.Compositor.Size())
	l, ok := textlabel.HitTest(labels, p)
	return l.PointID, ok
}

// Export writes the last rendered frame as PNG. Failures are reported to
// EventExportFailed listeners as well as returned.
func (s *State) Export(w io.Writer) error {
	if err := s.Compositor.ExportPNG(w); err != nil {
		s.exportFailed(err)
		return err
	}
	return nil
}

// ExportFile writes the last rendered frame to path.
func (s *State) ExportFile(path string) error {
	if err := s.Compositor.ExportFile(path); err != nil {
		s.exportFailed(err)
		return err
	}
	logging.Logger().Info("image exported", slog.String("path", path))
	return nil
}

func (s *State) exportFailed(err error) {
	logging.Logger().Error("export failed", slog.Any("err", err))
	s.Emit(EventExportFailed, err)
}

// resolveSource makes plain relative paths relative to base.
func resolveSource(base, src string) string {
	if src == "" || base == "" || strings.Contains(src, ":") || filepath.IsAbs(src) {
		return src
	}
	return filepath.Join(base, src)
}
