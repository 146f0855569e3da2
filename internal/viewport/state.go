// Package viewport maps user gestures onto the scale and offset of the
// background layer. Frame, footer and text never move with it.
package viewport

import (
	"moldura/internal/config"
	"moldura/pkg/geometry"
)

// RenderState places the background image on the output surface: the image
// is scaled by Scale and its top-left corner lands on (OffsetX, OffsetY).
type RenderState struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// Identity draws the image at natural size in the top-left corner.
var Identity = RenderState{Scale: 1}

// Limits holds the zoom policy.
type Limits struct {
	MinScale float64
	MaxScale float64
	FitRatio float64 // Fraction of the constraining axis filled by FitAndCenter
	WheelIn  float64 // Zoom factor for a wheel step towards the user
	WheelOut float64
}

// DefaultLimits returns [0.1, 5] zoom, 90% fit and 10% wheel steps.
func DefaultLimits() Limits {
	return LimitsFrom(config.Default())
}

// LimitsFrom extracts the zoom policy from cfg.
func LimitsFrom(cfg config.Config) Limits {
	return Limits{
		MinScale: cfg.MinScale,
		MaxScale: cfg.MaxScale,
		FitRatio: cfg.FitRatio,
		WheelIn:  cfg.WheelZoomIn,
		WheelOut: cfg.WheelZoomOut,
	}
}

// Pan shifts the image by a delta given in surface pixels.
func (s RenderState) Pan(dx, dy float64) RenderState {
	s.OffsetX += dx
	s.OffsetY += dy
	return s
}

// Zoom multiplies the scale by factor keeping pivot (surface space) fixed.
// If the new scale falls outside the limits the state is returned unchanged
// and ok is false.
func (s RenderState) Zoom(factor float64, pivot geometry.Point2D, lim Limits) (RenderState, bool) {
	if factor <= 0 || s.Scale <= 0 {
		return s, false
	}
	next := s.Scale * factor
	if next < lim.MinScale || next > lim.MaxScale {
		return s, false
	}
	k := next / s.Scale
	return RenderState{
		Scale:   next,
		OffsetX: pivot.X - (pivot.X-s.OffsetX)*k,
		OffsetY: pivot.Y - (pivot.Y-s.OffsetY)*k,
	}, true
}

// FitAndCenter scales natural to fill ratio of surface along its constraining
// axis and centres the result.
func FitAndCenter(natural, surface geometry.Size, ratio float64) RenderState {
	if natural.Empty() || surface.Empty() {
		return Identity
	}
	var scale float64
	if natural.Aspect() > surface.Aspect() {
		scale = surface.Width / natural.Width * ratio
	} else {
		scale = surface.Height / natural.Height * ratio
	}
	return RenderState{
		Scale:   scale,
		OffsetX: (surface.Width - natural.Width*scale) / 2,
		OffsetY: (surface.Height - natural.Height*scale) / 2,
	}
}

// Transform returns the image-to-surface mapping.
func (s RenderState) Transform() geometry.AffineTransform {
	return geometry.Translation(s.OffsetX, s.OffsetY).Compose(geometry.Scale(s.Scale, s.Scale))
}

// ImageRect returns the area the image covers on the surface.
func (s RenderState) ImageRect(natural geometry.Size) geometry.Rect {
	t := s.Transform()
	lo := t.Apply(geometry.Pt(0, 0))
	hi := t.Apply(geometry.Pt(natural.Width, natural.Height))
	return geometry.NewRect(lo.X, lo.Y, hi.X-lo.X, hi.Y-lo.Y)
}
