// Package camera grabs still frames from a capture device. A still becomes the
// background layer as a PNG data URL.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	layer "moldura/internal/image"
	"moldura/internal/logging"

	"gocv.io/x/gocv"
)

var (
	ErrNoFrame = errors.New("camera: no frame available")
	ErrClosed  = errors.New("camera: device closed")
)

// Source produces frames on demand.
type Source interface {
	Frame() (image.Image, error)
	Close() error
}

// Device is a video capture device opened through OpenCV.
type Device struct {
	mu     sync.Mutex
	id     int
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

// Open opens capture device id (0 is the default camera).
func Open(id int) (*Device, error) {
	vc, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", id, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open camera %d: device not available", id)
	}
	logging.Logger().Info("camera opened", slog.Int("device", id))
	return &Device{id: id, cap: vc, mat: gocv.NewMat()}, nil
}

// Frame reads the next frame.
func (d *Device) Frame() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if ok := d.cap.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, ErrNoFrame
	}
	img, err := d.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("camera frame: %w", err)
	}
	return img, nil
}

// Close releases the device. It is safe to call more than once.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.mat.Close()
	logging.Logger().Info("camera closed", slog.Int("device", d.id))
	return d.cap.Close()
}

// Still grabs one frame and returns it as a PNG data URL.
func Still(src Source) (string, error) {
	img, err := src.Frame()
	if err != nil {
		return "", err
	}
	return layer.PNGDataURL(img)
}

// Preview calls fn with a fresh frame every interval until ctx ends or the
// source fails with something other than ErrNoFrame.
func Preview(ctx context.Context, src Source, interval time.Duration, fn func(image.Image)) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		img, err := src.Frame()
		switch {
		case errors.Is(err, ErrNoFrame):
			continue
		case err != nil:
			return err
		}
		fn(img)
	}
}
