// Package template models a client's visual template: the frame, footer and
// logo sources plus the named, positioned text fields an end user fills in.
package template

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"moldura/pkg/geometry"
)

// Style flags accepted in TextPoint.FontStyle.
const (
	StyleBold      = "bold"
	StyleItalic    = "italic"
	StyleUnderline = "underline"
)

var styleOrder = []string{StyleBold, StyleItalic, StyleUnderline}

// Defaults used for new text points.
const (
	DefaultFontFamily = "Arial"
	DefaultFontSize   = 14
	DefaultColor      = "#000000"
)

// FontFamilies and FontSizes are the choices offered by the configuration UI.
var (
	FontFamilies = []string{"Arial", "Helvetica", "Times New Roman", "Courier New", "Georgia", "Verdana"}
	FontSizes    = []int{8, 10, 12, 14, 16, 18, 20, 24, 28, 32, 36, 42, 48, 60, 72}
)

var (
	ErrPointNotFound = errors.New("template: text point not found")
	ErrInvalidPoint  = errors.New("template: invalid text point")
	ErrUnknownFormat = errors.New("template: unknown file format")
)

// FontStyle is an order-independent set of style flags.
type FontStyle []string

// Has reports whether flag is set.
func (s FontStyle) Has(flag string) bool {
	for _, f := range s {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}

// Bold, Italic and Underline are shorthands for Has.
func (s FontStyle) Bold() bool      { return s.Has(StyleBold) }
func (s FontStyle) Italic() bool    { return s.Has(StyleItalic) }
func (s FontStyle) Underline() bool { return s.Has(StyleUnderline) }

// Normalize returns the known flags in canonical order without duplicates.
func (s FontStyle) Normalize() FontStyle {
	out := FontStyle{}
	for _, f := range styleOrder {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// With returns a copy with flag set or cleared.
func (s FontStyle) With(flag string, on bool) FontStyle {
	out := FontStyle{}
	for _, f := range s {
		if !strings.EqualFold(f, flag) {
			out = append(out, f)
		}
	}
	if on {
		out = append(out, flag)
	}
	return out.Normalize()
}

// TextPoint is a named text field anchored at a percentage position of the
// output surface. X and Y address the visual centre of the rendered text.
type TextPoint struct {
	ID         string    `json:"id" yaml:"id" toml:"id"`
	Name       string    `json:"name" yaml:"name" toml:"name"`
	X          float64   `json:"x" yaml:"x" toml:"x"`
	Y          float64   `json:"y" yaml:"y" toml:"y"`
	FontFamily string    `json:"fontFamily" yaml:"fontFamily" toml:"fontFamily"`
	FontSize   int       `json:"fontSize" yaml:"fontSize" toml:"fontSize"`
	FontStyle  FontStyle `json:"fontStyle" yaml:"fontStyle" toml:"fontStyle"`
	Color      string    `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
}

// Normalize clamps the position into [0,100], enforces a positive font size
// and canonicalises the style set.
func (p *TextPoint) Normalize() {
	p.X = clampPercent(p.X)
	p.Y = clampPercent(p.Y)
	if p.FontSize < 1 {
		p.FontSize = 1
	}
	if strings.TrimSpace(p.FontFamily) == "" {
		p.FontFamily = DefaultFontFamily
	}
	p.FontStyle = p.FontStyle.Normalize()
}

// Client is a configured template as delivered by the administration backend.
// Empty image sources mean the layer is absent.
type Client struct {
	ID          string      `json:"id" yaml:"id" toml:"id"`
	Name        string      `json:"name" yaml:"name" toml:"name"`
	CompanyName string      `json:"companyName,omitempty" yaml:"companyName,omitempty" toml:"companyName,omitempty"`
	URL         string      `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty"`
	Frame       string      `json:"frame,omitempty" yaml:"frame,omitempty" toml:"frame,omitempty"`
	Footer      string      `json:"footer,omitempty" yaml:"footer,omitempty" toml:"footer,omitempty"`
	Logo        string      `json:"logo,omitempty" yaml:"logo,omitempty" toml:"logo,omitempty"`
	Password    string      `json:"password,omitempty" yaml:"password,omitempty" toml:"password,omitempty"`
	TextPoints  []TextPoint `json:"textPoints" yaml:"textPoints" toml:"textPoints"`
}

// DisplayName returns the company name when set, otherwise the client name.
func (c *Client) DisplayName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return c.Name
}

// RequiresPassword reports whether the fill screen is gated.
func (c *Client) RequiresPassword() bool {
	return c.Password != ""
}

// Authenticate checks a password against the client's gate. Clients without a
// password accept anything. bcrypt hashes are verified as such; other values
// are compared in constant time.
func (c *Client) Authenticate(password string) bool {
	if !c.RequiresPassword() {
		return true
	}
	if isBcrypt(c.Password) {
		return bcrypt.CompareHashAndPassword([]byte(c.Password), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(c.Password), []byte(password)) == 1
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// Clone returns a deep copy, so readers can hold a snapshot while the
// original is edited.
func (c *Client) Clone() *Client {
	if c == nil {
		return nil
	}
	cp := *c
	cp.TextPoints = ClonePoints(c.TextPoints)
	return &cp
}

// ClonePoints deep-copies a point list.
func ClonePoints(points []TextPoint) []TextPoint {
	if points == nil {
		return nil
	}
	out := make([]TextPoint, len(points))
	for i, p := range points {
		out[i] = p
		out[i].FontStyle = append(FontStyle(nil), p.FontStyle...)
	}
	return out
}

func clampPercent(v float64) float64 {
	if v != v { // NaN
		return 0
	}
	return geometry.Clamp(v, 0, 100)
}
