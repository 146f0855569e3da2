package dialogs

import (
	"testing"

	"moldura/internal/template"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"50", 50, false},
		{" 12.5 ", 12.5, false},
		{"12,5", 12.5, false},
		{"75%", 75, false},
		{"0", 0, false},
		{"100", 100, false},
		{"101", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePercent(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptionLists(t *testing.T) {
	assert.Equal(t, template.FontFamilies, familyOptions("arial"))
	assert.Equal(t, "Comic Sans", familyOptions("Comic Sans")[len(template.FontFamilies)])
	assert.Equal(t, "Courier New", canonical(template.FontFamilies, "courier new"))

	sizes := sizeOptions(14)
	assert.Len(t, sizes, len(template.FontSizes))
	assert.Equal(t, "13", sizeOptions(13)[len(template.FontSizes)])

	assert.Equal(t, "Vermelho", colorLabel("#ff0000"))
	assert.Equal(t, "#123456", colorLabel("#123456"))
	assert.Contains(t, colorOptions("#123456"), "#123456")

	assert.Equal(t, "#0000FF", colorHex("Azul", "#000000"))
	assert.Equal(t, "#123456", colorHex("#123456", "#000000"))
	assert.Equal(t, "#000000", colorHex("Nada", "#000000"))
}

func TestTextPointDialogCollect(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()
	w := a.NewWindow("t")

	var saved template.TextPoint
	d := NewTextPointDialog(template.TextPoint{ID: "p1", Name: "Nome", X: 10, Y: 20}, w, func(p template.TextPoint) {
		saved = p
	})
	d.createContent()

	assert.Equal(t, template.DefaultFontFamily, d.familySelect.Selected)
	assert.Equal(t, "14", d.sizeSelect.Selected)
	assert.Equal(t, "Preto", d.colorSelect.Selected)

	d.xEntry.SetText("33,5")
	d.sizeSelect.SetSelected("24")
	d.colorSelect.SetSelected("Azul")
	d.boldCheck.SetChecked(true)
	d.underCheck.SetChecked(true)

	p, err := d.collect()
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, 33.5, p.X)
	assert.Equal(t, 20.0, p.Y)
	assert.Equal(t, 24, p.FontSize)
	assert.Equal(t, "#0000FF", p.Color)
	assert.True(t, p.FontStyle.Bold())
	assert.False(t, p.FontStyle.Italic())
	assert.True(t, p.FontStyle.Underline())
	assert.Empty(t, saved.ID, "onSave only runs from the dialog")

	d.nameEntry.SetText("  ")
	_, err = d.collect()
	assert.Error(t, err)

	d.nameEntry.SetText("Nome")
	d.yEntry.SetText("200")
	_, err = d.collect()
	assert.Error(t, err)
}
