// Package textlabel lays out and draws the text fields of a template: font
// selection, centre anchoring and synthesized underlines.
package textlabel

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"moldura/internal/config"
	"moldura/internal/logging"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// FontSpec selects a face.
type FontSpec struct {
	Family string
	Size   float64 // Pixels
	Bold   bool
	Italic bool
}

// String renders the spec as "[italic ][bold ]{size}px {family}".
func (f FontSpec) String() string {
	var b strings.Builder
	if f.Italic {
		b.WriteString("italic ")
	}
	if f.Bold {
		b.WriteString("bold ")
	}
	b.WriteString(strconv.FormatFloat(f.Size, 'f', -1, 64))
	b.WriteString("px ")
	b.WriteString(f.Family)
	return b.String()
}

var monospace = map[string]bool{
	"courier new": true,
	"courier":     true,
	"monospace":   true,
}

// Registry resolves font specs to faces. Families listed in the configuration
// load from their TrueType files; everything else falls back to the Go fonts.
// Parsed fonts and faces are cached.
type Registry struct {
	mu     sync.Mutex
	files  map[string]config.FontFiles
	parsed map[string]*truetype.Font
	faces  map[FontSpec]font.Face
}

// NewRegistry creates a registry over the configured family files.
func NewRegistry(files map[string]config.FontFiles) *Registry {
	r := &Registry{
		files:  make(map[string]config.FontFiles, len(files)),
		parsed: make(map[string]*truetype.Font),
		faces:  make(map[FontSpec]font.Face),
	}
	for name, ff := range files {
		r.files[strings.ToLower(name)] = ff
	}
	return r
}

// Face returns the face for spec.
func (r *Registry) Face(spec FontSpec) (font.Face, error) {
	if spec.Size <= 0 {
		return nil, fmt.Errorf("textlabel: invalid font size %v", spec.Size)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if face, ok := r.faces[spec]; ok {
		return face, nil
	}
	f, err := r.font(spec)
	if err != nil {
		return nil, err
	}
	// At 72 DPI one point is one pixel.
	face := truetype.NewFace(f, &truetype.Options{
		Size:    spec.Size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	r.faces[spec] = face
	return face, nil
}

// font returns the parsed font for spec. Caller holds mu.
func (r *Registry) font(spec FontSpec) (*truetype.Font, error) {
	family := strings.ToLower(strings.TrimSpace(spec.Family))
	if ff, ok := r.files[family]; ok {
		if path := variant(ff, spec.Bold, spec.Italic); path != "" {
			f, err := r.parse(path, func() ([]byte, error) { return os.ReadFile(path) })
			if err == nil {
				return f, nil
			}
			logging.Logger().Warn("font file unusable, using built-in face",
				slog.String("family", spec.Family),
				slog.String("path", path),
				slog.Any("err", err))
		}
	}
	name, data := builtin(monospace[family], spec.Bold, spec.Italic)
	return r.parse(name, func() ([]byte, error) { return data, nil })
}

func (r *Registry) parse(key string, read func() ([]byte, error)) (*truetype.Font, error) {
	if f, ok := r.parsed[key]; ok {
		return f, nil
	}
	data, err := read()
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", key, err)
	}
	r.parsed[key] = f
	return f, nil
}

// variant picks the file for a style, falling back to the regular file.
func variant(ff config.FontFiles, bold, italic bool) string {
	var p string
	switch {
	case bold && italic:
		p = ff.BoldItalic
	case bold:
		p = ff.Bold
	case italic:
		p = ff.Italic
	}
	if p == "" {
		p = ff.Regular
	}
	return p
}

func builtin(mono, bold, italic bool) (string, []byte) {
	switch {
	case mono && bold && italic:
		return "gomonobolditalic", gomonobolditalic.TTF
	case mono && bold:
		return "gomonobold", gomonobold.TTF
	case mono && italic:
		return "gomonoitalic", gomonoitalic.TTF
	case mono:
		return "gomono", gomono.TTF
	case bold && italic:
		return "gobolditalic", gobolditalic.TTF
	case bold:
		return "gobold", gobold.TTF
	case italic:
		return "goitalic", goitalic.TTF
	default:
		return "goregular", goregular.TTF
	}
}
