package panels

import (
	"fmt"
	"log/slog"

	"moldura/internal/app"
	"moldura/internal/logging"
	"moldura/internal/template"
	"moldura/ui/canvas"
	"moldura/ui/dialogs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// PointsPanel configures the client's text points: list, add, edit, delete
// and save back to the template file.
type PointsPanel struct {
	state     *app.State
	view      *canvas.SurfaceView
	window    fyne.Window
	container fyne.CanvasObject

	list       *widget.List
	points     []template.TextPoint
	editBtn    *widget.Button
	deleteBtn  *widget.Button
	saveBtn    *widget.Button
	statusText *widget.Label
	syncing    bool
}

// NewPointsPanel creates the configuration panel. Selecting a point in the
// list or on the surface highlights it in both.
func NewPointsPanel(state *app.State, view *canvas.SurfaceView) *PointsPanel {
	pp := &PointsPanel{state: state, view: view}

	pp.list = widget.NewList(
		func() int { return len(pp.points) },
		func() fyne.CanvasObject { return widget.NewLabel("Campo") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < len(pp.points) {
				obj.(*widget.Label).SetText(describePoint(pp.points[id]))
			}
		},
	)
	pp.list.OnSelected = func(id widget.ListItemID) {
		if pp.syncing || id >= len(pp.points) {
			return
		}
		view.Select(pp.points[id].ID)
		pp.updateButtons()
	}

	addBtn := widget.NewButtonWithIcon("Adicionar", theme.ContentAddIcon(), pp.add)
	pp.editBtn = widget.NewButtonWithIcon("Editar", theme.DocumentCreateIcon(), pp.editSelected)
	pp.deleteBtn = widget.NewButtonWithIcon("Excluir", theme.DeleteIcon(), pp.deleteSelected)
	pp.saveBtn = widget.NewButtonWithIcon("Salvar modelo", theme.DocumentSaveIcon(), pp.save)
	pp.statusText = widget.NewLabel("Arraste os marcadores na imagem para reposicionar os campos.")
	pp.statusText.Wrapping = fyne.TextWrapWord

	buttons := container.NewGridWithColumns(3, addBtn, pp.editBtn, pp.deleteBtn)
	pp.container = container.NewBorder(
		container.NewVBox(buttons, pp.statusText),
		pp.saveBtn, nil, nil,
		pp.list,
	)

	view.OnSelect(pp.selectFromView)
	reload := func(interface{}) { pp.Reload() }
	state.On(app.EventClientLoaded, reload)
	state.On(app.EventPointsChanged, reload)
	pp.Reload()
	return pp
}

// Container returns the panel container.
func (pp *PointsPanel) Container() fyne.CanvasObject {
	return pp.container
}

// SetWindow sets the parent window for dialogs.
func (pp *PointsPanel) SetWindow(w fyne.Window) {
	pp.window = w
}

// Reload refreshes the list from the current client.
func (pp *PointsPanel) Reload() {
	pp.points = nil
	if c := pp.state.Client(); c != nil {
		pp.points = c.TextPoints
	}
	pp.list.Refresh()
	pp.selectFromView(pp.view.Selected())
	pp.updateButtons()
}

func (pp *PointsPanel) selectFromView(id string) {
	pp.syncing = true
	defer func() { pp.syncing = false }()

	if i := pp.indexOf(id); i >= 0 {
		pp.list.Select(i)
	} else {
		pp.list.UnselectAll()
	}
	pp.updateButtons()
}

func (pp *PointsPanel) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, p := range pp.points {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (pp *PointsPanel) selected() (template.TextPoint, bool) {
	i := pp.indexOf(pp.view.Selected())
	if i < 0 {
		return template.TextPoint{}, false
	}
	return pp.points[i], true
}

func (pp *PointsPanel) updateButtons() {
	loaded := pp.state.Client() != nil
	_, has := pp.selected()
	setEnabled(pp.editBtn, has)
	setEnabled(pp.deleteBtn, has)
	setEnabled(pp.saveBtn, loaded && pp.state.Path() != "")
}

func (pp *PointsPanel) add() {
	if pp.state.Client() == nil {
		pp.showError(fmt.Errorf("nenhum modelo carregado"))
		return
	}
	p := template.TextPoint{X: 50, Y: 50}
	dialogs.NewTextPointDialog(p, pp.window, func(p template.TextPoint) {
		added, err := pp.state.AddTextPoint(p)
		if err != nil {
			pp.showError(err)
			return
		}
		pp.view.Select(added.ID)
	}).Show()
}

func (pp *PointsPanel) editSelected() {
	p, ok := pp.selected()
	if !ok {
		return
	}
	dialogs.NewTextPointDialog(p, pp.window, func(edited template.TextPoint) {
		_, err := pp.state.UpdateTextPoint(p.ID, func(tp *template.TextPoint) {
			*tp = edited
			tp.ID = p.ID
		})
		if err != nil {
			pp.showError(err)
		}
	}).Show()
}

func (pp *PointsPanel) deleteSelected() {
	p, ok := pp.selected()
	if !ok {
		return
	}
	dialog.ShowConfirm("Excluir campo", fmt.Sprintf("Excluir o campo %q?", p.Name), func(yes bool) {
		if !yes {
			return
		}
		if err := pp.state.DeleteTextPoint(p.ID); err != nil {
			pp.showError(err)
			return
		}
		pp.view.Select("")
	}, pp.window)
}

func (pp *PointsPanel) save() {
	if err := pp.state.SaveClient(); err != nil {
		pp.showError(err)
		return
	}
	logging.Logger().Info("template saved", slog.String("path", pp.state.Path()))
	pp.statusText.SetText("Modelo salvo.")
}

func (pp *PointsPanel) showError(err error) {
	if pp.window != nil {
		dialog.ShowError(err, pp.window)
	}
}

func describePoint(p template.TextPoint) string {
	return fmt.Sprintf("%s  (%.0f%%, %.0f%%)  %dpx %s", p.Name, p.X, p.Y, p.FontSize, p.FontFamily)
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}
