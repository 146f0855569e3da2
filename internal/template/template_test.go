package template

import (
	"os"
	"path/filepath"
	"testing"

	"moldura/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestFontStyleSet(t *testing.T) {
	s := FontStyle{"underline", "bold", "bold", "sparkle"}
	assert.True(t, s.Bold())
	assert.False(t, s.Italic())
	assert.True(t, s.Underline())
	assert.Equal(t, FontStyle{"bold", "underline"}, s.Normalize())

	s = s.With(StyleItalic, true).With(StyleBold, false)
	assert.Equal(t, FontStyle{"italic", "underline"}, s)
}

func TestNormalizeClampsPosition(t *testing.T) {
	p := TextPoint{X: -5, Y: 140, FontSize: 0}
	p.Normalize()
	assert.Equal(t, 0.0, p.X)
	assert.Equal(t, 100.0, p.Y)
	assert.Equal(t, 1, p.FontSize)
	assert.Equal(t, DefaultFontFamily, p.FontFamily)
	assert.Equal(t, FontStyle{}, p.FontStyle)
}

func TestAddUpdateDelete(t *testing.T) {
	c := &Client{Name: "Acme"}

	_, err := c.AddTextPoint(TextPoint{})
	assert.ErrorIs(t, err, ErrInvalidPoint)

	p, err := c.AddTextPoint(TextPoint{Name: "Título", X: 10, Y: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, DefaultFontSize, p.FontSize)
	assert.Equal(t, DefaultColor, p.Color)
	assert.Equal(t, "Arial", p.FontFamily)

	got, ok := c.TextPoint(p.ID)
	require.True(t, ok)
	assert.Equal(t, p, got)

	moved, err := c.MoveTextPoint(p.ID, 120, 33.5)
	require.NoError(t, err)
	assert.Equal(t, 100.0, moved.X)
	assert.Equal(t, 33.5, moved.Y)

	upd, err := c.UpdateTextPoint(p.ID, func(tp *TextPoint) {
		tp.ID = "hijack"
		tp.FontStyle = FontStyle{"italic", "bold"}
	})
	require.NoError(t, err)
	assert.Equal(t, p.ID, upd.ID)
	assert.Equal(t, FontStyle{"bold", "italic"}, upd.FontStyle)

	_, err = c.UpdateTextPoint("missing", func(*TextPoint) {})
	assert.ErrorIs(t, err, ErrPointNotFound)

	require.NoError(t, c.DeleteTextPoint(p.ID))
	assert.Empty(t, c.TextPoints)
	assert.ErrorIs(t, c.DeleteTextPoint(p.ID), ErrPointNotFound)
}

func TestCloneIsDeep(t *testing.T) {
	c := &Client{TextPoints: []TextPoint{{ID: "a", FontStyle: FontStyle{"bold"}}}}
	cp := c.Clone()
	cp.TextPoints[0].FontStyle[0] = "italic"
	cp.TextPoints[0].X = 50
	assert.Equal(t, "bold", c.TextPoints[0].FontStyle[0])
	assert.Equal(t, 0.0, c.TextPoints[0].X)
}

func TestAuthenticate(t *testing.T) {
	open := &Client{}
	assert.True(t, open.Authenticate(""))

	plain := &Client{Password: "segredo"}
	assert.True(t, plain.Authenticate("segredo"))
	assert.False(t, plain.Authenticate("errado"))

	hash, err := bcrypt.GenerateFromPassword([]byte("segredo"), bcrypt.MinCost)
	require.NoError(t, err)
	hashed := &Client{Password: string(hash)}
	assert.True(t, hashed.Authenticate("segredo"))
	assert.False(t, hashed.Authenticate(string(hash)))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Acme", (&Client{Name: "Acme"}).DisplayName())
	assert.Equal(t, "Acme Ltda", (&Client{Name: "Acme", CompanyName: "Acme Ltda"}).DisplayName())
}

func TestPercentAt(t *testing.T) {
	x, y := PercentAt(geometry.Pt(250, 100), geometry.NewSize(500, 400))
	assert.Equal(t, 50.0, x)
	assert.Equal(t, 25.0, y)

	x, y = PercentAt(geometry.Pt(-10, 900), geometry.NewSize(500, 400))
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 100.0, y)
}

func TestTextValuesSync(t *testing.T) {
	points := []TextPoint{{ID: "a"}, {ID: "b"}}
	v := NewTextValues(points)
	assert.Equal(t, TextValues{"a": "", "b": ""}, v)

	v["a"] = "Olá"
	v["gone"] = "x"
	synced := v.Sync([]TextPoint{{ID: "a"}, {ID: "c"}})
	assert.Equal(t, TextValues{"a": "Olá", "c": ""}, synced)
	assert.Equal(t, "x", v.Get("gone"))

	v.Set("b", "Mundo")
	v.Prune([]TextPoint{{ID: "b"}})
	assert.Equal(t, TextValues{"b": "Mundo"}, v)
}

func TestLoadSaveFormats(t *testing.T) {
	src := &Client{
		ID:    "1",
		Name:  "Acme",
		Frame: "frame.png",
		TextPoints: []TextPoint{{
			ID: "p1", Name: "Título", X: 10, Y: 10,
			FontFamily: "Arial", FontSize: 12, FontStyle: FontStyle{"bold"}, Color: "#FF0000",
		}},
	}
	for _, ext := range []string{".json", ".yaml", ".toml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "client"+ext)
			require.NoError(t, src.Save(path))
			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, src, got)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "client.xml"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoadOriginalShape(t *testing.T) {
	data := `{
  "id": "7", "name": "Obra", "frame": null, "footer": null, "logo": null,
  "textPoints": [
    {"id": "t1", "name": "Título", "x": 10, "y": 10, "fontFamily": "Arial",
     "fontSize": 12, "fontStyle": [], "color": null},
    {"name": "Sem id", "x": 150, "y": 50, "fontFamily": "", "fontSize": 20,
     "fontStyle": ["underline", "italic", "italic"]}
  ]
}`
	path := filepath.Join(t.TempDir(), "obra.json")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.TextPoints, 2)
	assert.Equal(t, "", c.Frame)
	assert.Equal(t, "", c.TextPoints[0].Color)
	assert.NotEmpty(t, c.TextPoints[1].ID)
	assert.Equal(t, 100.0, c.TextPoints[1].X)
	assert.Equal(t, "Arial", c.TextPoints[1].FontFamily)
	assert.Equal(t, FontStyle{"italic", "underline"}, c.TextPoints[1].FontStyle)
}

func TestMissingIDsAreStableAcrossLoads(t *testing.T) {
	data := []byte(`{"textPoints":[{"name":"Título","x":10,"y":10},{"name":"Título","x":20,"y":20}]}`)

	first, err := Decode(data, FormatJSON)
	require.NoError(t, err)
	second, err := Decode(data, FormatJSON)
	require.NoError(t, err)

	require.Len(t, first.TextPoints, 2)
	assert.Equal(t, first.TextPoints[0].ID, second.TextPoints[0].ID)
	assert.Equal(t, first.TextPoints[1].ID, second.TextPoints[1].ID)
	assert.NotEqual(t, first.TextPoints[0].ID, first.TextPoints[1].ID)
	assert.Equal(t, PointID(0, "Título"), first.TextPoints[0].ID)
}
