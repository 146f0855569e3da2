package dialogs

import (
	"context"
	"image"
	"log/slog"
	"time"

	"moldura/internal/camera"
	"moldura/internal/logging"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

const previewInterval = 66 * time.Millisecond

// CameraDialog shows a live preview and hands a still frame to onCapture as
// a PNG data URL.
type CameraDialog struct {
	source    camera.Source
	window    fyne.Window
	onCapture func(dataURL string)

	preview *fynecanvas.Image
	cancel  context.CancelFunc
	dlg     *dialog.CustomDialog
}

// NewCameraDialog wraps an opened source. The dialog owns it and closes it
// when dismissed.
func NewCameraDialog(src camera.Source, window fyne.Window, onCapture func(string)) *CameraDialog {
	return &CameraDialog{source: src, window: window, onCapture: onCapture}
}

// ShowCamera opens capture device id and shows the dialog, or reports the
// failure.
func ShowCamera(id int, window fyne.Window, onCapture func(string)) {
	dev, err := camera.Open(id)
	if err != nil {
		dialog.ShowError(err, window)
		return
	}
	NewCameraDialog(dev, window, onCapture).Show()
}

// Show displays the dialog and starts the preview.
func (d *CameraDialog) Show() {
	d.preview = fynecanvas.NewImageFromImage(nil)
	d.preview.FillMode = fynecanvas.ImageFillContain
	d.preview.SetMinSize(fyne.NewSize(480, 360))

	captureBtn := widget.NewButton("Capturar", d.capture)
	captureBtn.Importance = widget.HighImportance

	content := container.NewBorder(nil, captureBtn, nil, nil, d.preview)
	d.dlg = dialog.NewCustom("Câmera", "Cancelar", content, d.window)
	d.dlg.SetOnClosed(d.stop)

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	go func() {
		err := camera.Preview(ctx, d.source, previewInterval, func(img image.Image) {
			d.preview.Image = img
			d.preview.Refresh()
		})
		if err != nil && ctx.Err() == nil {
			logging.Logger().Warn("camera preview stopped", slog.Any("err", err))
		}
	}()

	d.dlg.Show()
}

func (d *CameraDialog) capture() {
	url, err := camera.Still(d.source)
	if err != nil {
		dialog.ShowError(err, d.window)
		return
	}
	d.dlg.Hide()
	if d.onCapture != nil {
		d.onCapture(url)
	}
}

func (d *CameraDialog) stop() {
	if d.cancel != nil {
		d.cancel()
	}
	if err := d.source.Close(); err != nil {
		logging.Logger().Warn("camera close failed", slog.Any("err", err))
	}
}
