package compositor

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fogleman/gg"
)

// DefaultFilename is offered when the user downloads the composite.
const DefaultFilename = "imagem_personalizada.png"

// ErrNoFrame means no pass has completed yet.
var ErrNoFrame = errors.New("compositor: nothing rendered yet")

// ExportError is the failure reported to the user when a download cannot be
// produced. Layer failures never surface as ExportError.
type ExportError struct {
	Err error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("could not export image: %v", e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// ExportPNG encodes the last completed frame. It does not render.
func (c *Compositor) ExportPNG(w io.Writer) error {
	img := c.Surface()
	if img == nil {
		return &ExportError{Err: ErrNoFrame}
	}
	if err := gg.NewContextForRGBA(img).EncodePNG(w); err != nil {
		return &ExportError{Err: err}
	}
	return nil
}

// ExportFile writes the last completed frame to path as PNG.
func (c *Compositor) ExportFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &ExportError{Err: err}
	}
	if err := c.ExportPNG(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return &ExportError{Err: err}
	}
	return nil
}
