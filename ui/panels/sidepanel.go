// Package panels provides UI panels for the application.
package panels

import (
	"moldura/internal/app"
	"moldura/ui/canvas"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
)

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	state     *app.State
	view      *canvas.SurfaceView
	container *container.AppTabs

	valuesPanel *ValuesPanel
	pointsPanel *PointsPanel
}

// NewSidePanel creates a new side panel. The configuration tab switches the
// surface into anchor editing.
func NewSidePanel(state *app.State, view *canvas.SurfaceView) *SidePanel {
	sp := &SidePanel{
		state: state,
		view:  view,
	}

	sp.valuesPanel = NewValuesPanel(state)
	sp.pointsPanel = NewPointsPanel(state, view)

	fill := container.NewTabItem("Preencher", sp.valuesPanel.Container())
	configure := container.NewTabItem("Configurar", sp.pointsPanel.Container())
	sp.container = container.NewAppTabs(fill, configure)
	sp.container.OnSelected = func(tab *container.TabItem) {
		if tab == configure {
			view.SetMode(canvas.ModeAnchors)
		} else {
			view.SetMode(canvas.ModeFill)
		}
	}
	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// SetWindow sets the parent window for dialogs.
func (sp *SidePanel) SetWindow(w fyne.Window) {
	sp.pointsPanel.SetWindow(w)
}

// ShowConfigure selects the configuration tab.
func (sp *SidePanel) ShowConfigure() {
	sp.container.SelectIndex(1)
}
