// Package colorutil provides colour parsing and the named colours offered by
// the text point editor.
package colorutil

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Common colours.
var (
	Black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Neutral = color.RGBA{R: 0xF3, G: 0xF4, B: 0xF6, A: 255}
)

// ErrBadHex is returned for strings that are not #RGB, #RGBA, #RRGGBB or #RRGGBBAA.
var ErrBadHex = errors.New("colorutil: invalid hex colour")

// Named is a labelled colour choice.
type Named struct {
	Label string
	Hex   string
}

// Palette lists the colours offered when configuring a text point.
var Palette = []Named{
	{"Preto", "#000000"},
	{"Branco", "#FFFFFF"},
	{"Vermelho", "#FF0000"},
	{"Verde", "#008000"},
	{"Azul", "#0000FF"},
	{"Amarelo", "#FFFF00"},
	{"Laranja", "#FFA500"},
	{"Roxo", "#800080"},
	{"Rosa", "#FFC0CB"},
	{"Marrom", "#A52A2A"},
	{"Cinza", "#808080"},
}

// ParseHex parses a CSS-style hex colour. The leading '#' is optional.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 3, 4:
		var b strings.Builder
		for _, r := range h {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		h = b.String()
	case 6, 8:
	default:
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadHex, s)
	}
	if len(h) == 6 {
		h += "ff"
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadHex, s)
	}
	return color.RGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// ParseHexOr parses s, returning fallback when s is empty or malformed.
func ParseHexOr(s string, fallback color.RGBA) color.RGBA {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	c, err := ParseHex(s)
	if err != nil {
		return fallback
	}
	return c
}

// Hex formats c as #RRGGBB, appending alpha only when it is not opaque.
func Hex(c color.Color) string {
	r, g, b, a := c.RGBA()
	if a == 0xffff {
		return fmt.Sprintf("#%02X%02X%02X", r>>8, g>>8, b>>8)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", r>>8, g>>8, b>>8, a>>8)
}
