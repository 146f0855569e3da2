// Package image provides the layer image cache: decoding of layer sources and
// a single-slot memo per layer so redraws never decode the same image twice.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Slot identifies one of the image layers of the composite.
type Slot int

const (
	SlotBackground Slot = iota // User photo
	SlotFrame                  // Full-bleed overlay
	SlotFooter                 // Bottom-anchored strip
	slotCount
)

func (s Slot) String() string {
	switch s {
	case SlotBackground:
		return "background"
	case SlotFrame:
		return "frame"
	case SlotFooter:
		return "footer"
	default:
		return "unknown"
	}
}

// Slots lists every layer slot in z-order.
var Slots = []Slot{SlotBackground, SlotFrame, SlotFooter}

var (
	ErrUnsupportedSource = errors.New("image: unsupported source")
	ErrNotImage          = errors.New("image: data is not a supported image")
)

// Bitmap is a decoded layer image. It is immutable once published.
type Bitmap struct {
	Source string      // Source the image was decoded from
	Image  image.Image // Decoded pixels
	Width  int         // Natural width in pixels
	Height int         // Natural height in pixels
}

func newBitmap(source string, img image.Image) *Bitmap {
	b := img.Bounds()
	return &Bitmap{
		Source: source,
		Image:  img,
		Width:  b.Dx(),
		Height: b.Dy(),
	}
}

// DecodeBytes sniffs and decodes an encoded image.
func DecodeBytes(data []byte) (image.Image, error) {
	if !filetype.IsImage(data) {
		return nil, ErrNotImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// SupportedFormats returns the file extensions offered when picking a photo.
// Each has a registered decoder.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".tiff", ".tif"}
}

// DataURL builds a base64 data URL, as produced for uploads and captures.
func DataURL(mime string, data []byte) string {
	var b strings.Builder
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64Std.EncodeToString(data))
	return b.String()
}

// PNGDataURL encodes img as PNG and wraps it in a data URL.
func PNGDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return DataURL("image/png", buf.Bytes()), nil
}

// describe shortens a source for log output.
func describe(source string) string {
	if strings.HasPrefix(source, "data:") {
		if i := strings.IndexByte(source, ','); i > 0 {
			return fmt.Sprintf("%s,...(%d bytes)", source[:i], len(source)-i-1)
		}
	}
	if len(source) > 120 {
		return source[:120] + "..."
	}
	return source
}
