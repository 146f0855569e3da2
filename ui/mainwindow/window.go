// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"moldura/internal/app"
	"moldura/internal/compositor"
	layer "moldura/internal/image"
	"moldura/internal/logging"
	"moldura/internal/template"
	"moldura/internal/version"
	"moldura/ui/canvas"
	"moldura/ui/dialogs"
	"moldura/ui/panels"
	"moldura/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const appTitle = "Moldura"

var templateExts = []string{".json", ".yaml", ".yml", ".toml"}

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *prefs.Prefs
	view      *canvas.SurfaceView
	sidePanel *panels.SidePanel
	statusBar *widget.Label

	workspace   fyne.CanvasObject
	lockScreen  fyne.CanvasObject
	locked      bool
	downloadBtn *widget.Button

	onTemplateOpened func(path string)
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	w := float32(p.Int(prefs.KeyWindowWidth, 1200))
	h := float32(p.Int(prefs.KeyWindowHeight, 800))
	win.Resize(fyne.NewSize(w, h))
	win.SetCloseIntercept(mw.onClose)

	return mw
}

// OnTemplateOpened registers fn to run after a template is opened from the
// file dialog.
func (mw *MainWindow) OnTemplateOpened(fn func(path string)) {
	mw.onTemplateOpened = fn
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.view = canvas.NewSurfaceView(mw.state)

	mw.sidePanel = panels.NewSidePanel(mw.state, mw.view)
	mw.sidePanel.SetWindow(mw.Window)

	mw.statusBar = widget.NewLabel("Abra um modelo para começar")

	surfaceArea := container.NewBorder(mw.createToolbar(), nil, nil, nil, mw.view)

	split := container.NewHSplit(mw.sidePanel.Container(), surfaceArea)
	split.SetOffset(0.3)
	mw.workspace = split

	unlockBtn := widget.NewButtonWithIcon("Desbloquear", theme.LoginIcon(), mw.askPassword)
	mw.lockScreen = container.NewCenter(container.NewVBox(
		widget.NewLabelWithStyle("Este modelo é protegido por senha.", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		unlockBtn,
	))

	mw.applyLock()
}

// applyLock shows the workspace only when the current client is unlocked.
func (mw *MainWindow) applyLock() {
	mw.locked = mw.state.Client() != nil && !mw.state.Unlocked()
	center := mw.workspace
	if mw.locked {
		center = mw.lockScreen
	}
	mw.SetContent(container.NewBorder(nil, container.NewPadded(mw.statusBar), nil, nil, center))
}

// createToolbar creates the photo and download controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	uploadBtn := widget.NewButtonWithIcon("Enviar foto", theme.UploadIcon(), mw.onUploadPhoto)
	cameraBtn := widget.NewButtonWithIcon("Câmera", theme.MediaPhotoIcon(), mw.onCamera)
	centerBtn := widget.NewButtonWithIcon("Centralizar", theme.ZoomFitIcon(), mw.onCenter)
	clearBtn := widget.NewButtonWithIcon("Limpar", theme.ContentClearIcon(), mw.onClearPhoto)
	mw.downloadBtn = widget.NewButtonWithIcon("Baixar imagem", theme.DownloadIcon(), mw.onDownload)
	mw.downloadBtn.Importance = widget.HighImportance

	return container.NewHBox(
		uploadBtn,
		cameraBtn,
		centerBtn,
		clearBtn,
		widget.NewSeparator(),
		mw.downloadBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("Arquivo",
		fyne.NewMenuItem("Abrir modelo...", mw.onOpenTemplate),
		fyne.NewMenuItem("Recarregar modelo", mw.onReloadTemplate),
		fyne.NewMenuItem("Salvar modelo", mw.onSaveTemplate),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Baixar imagem...", mw.onDownload),
	)

	imageMenu := fyne.NewMenu("Imagem",
		fyne.NewMenuItem("Enviar foto...", mw.onUploadPhoto),
		fyne.NewMenuItem("Tirar foto...", mw.onCamera),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Centralizar", mw.onCenter),
		fyne.NewMenuItem("Limpar foto", mw.onClearPhoto),
	)

	configMenu := fyne.NewMenu("Configurar",
		fyne.NewMenuItem("Campos de texto", mw.sidePanel.ShowConfigure),
	)

	helpMenu := fyne.NewMenu("Ajuda",
		fyne.NewMenuItem("Sobre", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, imageMenu, configMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventClientLoaded, func(data interface{}) {
		c, ok := data.(*template.Client)
		if !ok || c == nil {
			return
		}
		mw.SetTitle(appTitle + " - " + c.DisplayName())
		mw.updateStatus(fmt.Sprintf("Modelo carregado: %s (%d campos)", c.DisplayName(), len(c.TextPoints)))
		mw.applyLock()
		if !mw.state.Unlocked() {
			mw.askPassword()
		}
	})

	mw.state.On(app.EventBackgroundChanged, func(data interface{}) {
		if src, _ := data.(string); src == "" {
			mw.updateStatus("Foto removida")
		} else {
			mw.updateStatus("Carregando foto...")
		}
	})

	mw.state.On(app.EventRenderSettled, func(interface{}) {
		if !mw.state.Compositor.Pending() {
			mw.downloadBtn.Enable()
		}
	})

	mw.state.On(app.EventExportFailed, func(data interface{}) {
		if err, ok := data.(error); ok {
			dialog.ShowError(err, mw.Window)
		}
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) askPassword() {
	c := mw.state.Client()
	if c == nil {
		return
	}
	dialogs.ShowPasswordGate(c.DisplayName(), mw.Window, mw.state.Authenticate, func() {
		mw.applyLock()
		mw.updateStatus("Acesso liberado")
	})
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

// Menu action handlers

func (mw *MainWindow) onOpenTemplate() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		if err := mw.state.LoadClient(path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.prefs.SetString(prefs.KeyLastTemplate, path)
		if mw.onTemplateOpened != nil {
			mw.onTemplateOpened(path)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(templateExts))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onReloadTemplate() {
	if err := mw.state.ReloadClient(); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onSaveTemplate() {
	if err := mw.state.SaveClient(); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.updateStatus("Modelo salvo em " + mw.state.Path())
}

func (mw *MainWindow) onUploadPhoto() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		defer reader.Close()
		mw.saveLastDir(reader.URI().Path())

		data, err := io.ReadAll(reader)
		if err == nil {
			err = mw.state.LoadBackgroundBytes(data)
		}
		if err != nil {
			dialog.ShowError(fmt.Errorf("não foi possível abrir a foto: %w", err), mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(layer.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onCamera() {
	dialogs.ShowCamera(mw.prefs.Int(prefs.KeyCameraDevice, 0), mw.Window, func(dataURL string) {
		mw.state.SetBackground(dataURL)
	})
}

func (mw *MainWindow) onCenter() {
	if !mw.state.CenterImage() {
		mw.updateStatus("Nenhuma foto para centralizar")
	}
}

func (mw *MainWindow) onClearPhoto() {
	mw.state.ClearBackground()
}

// onDownload saves the last rendered frame. While a layer is still loading
// the frame on screen is not final, so the download waits.
func (mw *MainWindow) onDownload() {
	if mw.state.Compositor.Pending() {
		mw.downloadBtn.Disable()
		mw.updateStatus("Aguarde a imagem terminar de carregar")
		return
	}

	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		path := writer.URI().Path()
		mw.saveLastDir(path)
		exportErr := mw.state.Export(writer)
		if err := writer.Close(); err != nil && exportErr == nil {
			dialog.ShowError(&compositor.ExportError{Err: err}, mw.Window)
			return
		}
		if exportErr == nil {
			logging.Logger().Info("image downloaded", slog.String("path", path))
			mw.updateStatus("Imagem salva em " + path)
		}
	}, mw.Window)
	fd.SetFileName(compositor.DefaultFilename)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("Sobre o Moldura",
		fmt.Sprintf("%s\n\n"+
			"Compõe fotos com a moldura, o rodapé e os textos de cada cliente.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.String(), version.BuildTime, version.GitCommit),
		mw.Window)
}

func (mw *MainWindow) onClose() {
	size := mw.Canvas().Size()
	mw.prefs.SetInt(prefs.KeyWindowWidth, int(size.Width))
	mw.prefs.SetInt(prefs.KeyWindowHeight, int(size.Height))
	if err := mw.prefs.SaveIfChanged(); err != nil {
		logging.Logger().Warn("saving preferences failed", slog.Any("err", err))
	}
	mw.Close()
}
