package panels

import (
	"moldura/internal/app"
	"moldura/internal/template"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// ValuesPanel is the fill form: one entry per configured text point.
type ValuesPanel struct {
	state     *app.State
	form      *fyne.Container
	container fyne.CanvasObject

	entries map[string]*widget.Entry
	points  []template.TextPoint
	built   bool
}

// NewValuesPanel creates the fill form and keeps it in step with the loaded
// client.
func NewValuesPanel(state *app.State) *ValuesPanel {
	vp := &ValuesPanel{
		state:   state,
		entries: make(map[string]*widget.Entry),
	}
	vp.form = container.NewVBox()

	hint := widget.NewLabel("Preencha os campos abaixo. O texto aparece na imagem conforme você digita.")
	hint.Wrapping = fyne.TextWrapWord
	vp.container = container.NewBorder(hint, nil, nil, nil, container.NewVScroll(vp.form))

	rebuild := func(interface{}) { vp.Rebuild() }
	state.On(app.EventClientLoaded, rebuild)
	state.On(app.EventPointsChanged, rebuild)
	vp.Rebuild()
	return vp
}

// Container returns the panel container.
func (vp *ValuesPanel) Container() fyne.CanvasObject {
	return vp.container
}

// Rebuild recreates the entries from the current client. Typed text survives
// for points that still exist.
func (vp *ValuesPanel) Rebuild() {
	c := vp.state.Client()
	values := vp.state.Values()

	var points []template.TextPoint
	if c != nil {
		points = c.TextPoints
	}
	if vp.built && samePoints(vp.points, points) {
		return
	}
	vp.points = points
	vp.built = true

	vp.form.RemoveAll()
	vp.entries = make(map[string]*widget.Entry, len(points))
	if len(points) == 0 {
		vp.form.Add(widget.NewLabel("Nenhum campo de texto configurado."))
		vp.form.Refresh()
		return
	}

	for _, p := range points {
		id := p.ID
		entry := widget.NewEntry()
		entry.SetPlaceHolder(p.Name)
		entry.SetText(values.Get(id))
		entry.OnChanged = func(s string) {
			vp.state.SetValue(id, s)
		}
		vp.entries[id] = entry
		vp.form.Add(widget.NewLabelWithStyle(p.Name, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
		vp.form.Add(entry)
	}
	vp.form.Refresh()
}

// Entry returns the entry bound to a text point.
func (vp *ValuesPanel) Entry(id string) (*widget.Entry, bool) {
	e, ok := vp.entries[id]
	return e, ok
}

// samePoints reports whether two lists produce the same form: same ids and
// names in the same order. Moving an anchor must not rebuild the form.
func samePoints(a, b []template.TextPoint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}
