// Package dialogs provides application dialogs.
package dialogs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"moldura/internal/template"
	"moldura/pkg/colorutil"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// TextPointDialog edits the definition of one text field.
type TextPointDialog struct {
	point  template.TextPoint
	title  string
	window fyne.Window

	nameEntry    *widget.Entry
	xEntry       *widget.Entry
	yEntry       *widget.Entry
	familySelect *widget.Select
	sizeSelect   *widget.Select
	colorSelect  *widget.Select
	boldCheck    *widget.Check
	italicCheck  *widget.Check
	underCheck   *widget.Check

	onSave func(template.TextPoint)
}

// NewTextPointDialog creates an editor for p. New points pass a zero ID.
func NewTextPointDialog(p template.TextPoint, window fyne.Window, onSave func(template.TextPoint)) *TextPointDialog {
	title := "Editar campo: " + p.Name
	if p.ID == "" {
		title = "Novo campo de texto"
	}
	if p.FontFamily == "" {
		p.FontFamily = template.DefaultFontFamily
	}
	if p.FontSize == 0 {
		p.FontSize = template.DefaultFontSize
	}
	if p.Color == "" {
		p.Color = template.DefaultColor
	}
	return &TextPointDialog{point: p, title: title, window: window, onSave: onSave}
}

// Show displays the dialog.
func (d *TextPointDialog) Show() {
	content := d.createContent()

	dlg := dialog.NewCustomConfirm(d.title, "Salvar", "Cancelar", content, func(save bool) {
		if !save {
			return
		}
		p, err := d.collect()
		if err != nil {
			dialog.ShowError(err, d.window)
			return
		}
		if d.onSave != nil {
			d.onSave(p)
		}
	}, d.window)
	dlg.Resize(fyne.NewSize(420, 480))
	dlg.Show()
}

func (d *TextPointDialog) createContent() fyne.CanvasObject {
	p := d.point

	d.nameEntry = widget.NewEntry()
	d.nameEntry.SetText(p.Name)
	d.nameEntry.SetPlaceHolder("Nome do campo (ex.: Nome, Data)")

	d.xEntry = widget.NewEntry()
	d.xEntry.SetText(formatPercent(p.X))
	d.yEntry = widget.NewEntry()
	d.yEntry.SetText(formatPercent(p.Y))

	families := familyOptions(p.FontFamily)
	d.familySelect = widget.NewSelect(families, nil)
	d.familySelect.SetSelected(canonical(families, p.FontFamily))

	d.sizeSelect = widget.NewSelect(sizeOptions(p.FontSize), nil)
	d.sizeSelect.SetSelected(strconv.Itoa(p.FontSize))

	d.colorSelect = widget.NewSelect(colorOptions(p.Color), nil)
	d.colorSelect.SetSelected(colorLabel(p.Color))

	d.boldCheck = widget.NewCheck("Negrito", nil)
	d.boldCheck.SetChecked(p.FontStyle.Bold())
	d.italicCheck = widget.NewCheck("Itálico", nil)
	d.italicCheck.SetChecked(p.FontStyle.Italic())
	d.underCheck = widget.NewCheck("Sublinhado", nil)
	d.underCheck.SetChecked(p.FontStyle.Underline())

	form := widget.NewForm(
		widget.NewFormItem("Nome", d.nameEntry),
		widget.NewFormItem("X (%)", d.xEntry),
		widget.NewFormItem("Y (%)", d.yEntry),
		widget.NewFormItem("Fonte", d.familySelect),
		widget.NewFormItem("Tamanho", d.sizeSelect),
		widget.NewFormItem("Cor", d.colorSelect),
	)
	styles := container.NewHBox(d.boldCheck, d.italicCheck, d.underCheck)
	return container.NewVBox(form, widget.NewLabel("Estilo"), styles)
}

func (d *TextPointDialog) collect() (template.TextPoint, error) {
	p := d.point
	p.Name = strings.TrimSpace(d.nameEntry.Text)
	if p.Name == "" {
		return p, errors.New("o nome do campo é obrigatório")
	}

	var err error
	if p.X, err = parsePercent(d.xEntry.Text); err != nil {
		return p, fmt.Errorf("X: %w", err)
	}
	if p.Y, err = parsePercent(d.yEntry.Text); err != nil {
		return p, fmt.Errorf("Y: %w", err)
	}
	p.FontFamily = d.familySelect.Selected
	if n, err := strconv.Atoi(d.sizeSelect.Selected); err == nil {
		p.FontSize = n
	}
	p.Color = colorHex(d.colorSelect.Selected, p.Color)
	p.FontStyle = p.FontStyle.
		With(template.StyleBold, d.boldCheck.Checked).
		With(template.StyleItalic, d.italicCheck.Checked).
		With(template.StyleUnderline, d.underCheck.Checked)
	return p, nil
}

var errPercent = errors.New("informe um valor entre 0 e 100")

// parsePercent accepts "12.5", "12,5" and "12.5%".
func parsePercent(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 100 {
		return 0, errPercent
	}
	return v, nil
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// familyOptions keeps a family read from a template file selectable even if
// it is not one of the stock choices.
func familyOptions(current string) []string {
	opts := append([]string(nil), template.FontFamilies...)
	for _, f := range opts {
		if strings.EqualFold(f, current) {
			return opts
		}
	}
	return append(opts, current)
}

func sizeOptions(current int) []string {
	opts := make([]string, 0, len(template.FontSizes)+1)
	found := false
	for _, n := range template.FontSizes {
		opts = append(opts, strconv.Itoa(n))
		found = found || n == current
	}
	if !found && current > 0 {
		opts = append(opts, strconv.Itoa(current))
	}
	return opts
}

func colorOptions(current string) []string {
	opts := make([]string, 0, len(colorutil.Palette)+1)
	for _, c := range colorutil.Palette {
		opts = append(opts, c.Label)
	}
	if label := colorLabel(current); !contains(opts, label) {
		opts = append(opts, label)
	}
	return opts
}

// colorLabel names a hex colour, falling back to the hex itself.
func colorLabel(hex string) string {
	for _, c := range colorutil.Palette {
		if strings.EqualFold(c.Hex, hex) {
			return c.Label
		}
	}
	return strings.ToUpper(hex)
}

func colorHex(label, fallback string) string {
	for _, c := range colorutil.Palette {
		if c.Label == label {
			return c.Hex
		}
	}
	if _, err := colorutil.ParseHex(label); err == nil {
		return label
	}
	return fallback
}

// canonical returns the option spelled like s, ignoring case.
func canonical(opts []string, s string) string {
	for _, o := range opts {
		if strings.EqualFold(o, s) {
			return o
		}
	}
	return s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
