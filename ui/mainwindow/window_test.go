package mainwindow

import (
	"context"
	"errors"
	"testing"
	"time"

	"moldura/internal/app"
	"moldura/internal/config"
	"moldura/internal/template"
	"moldura/ui/prefs"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWindow(t *testing.T) (*MainWindow, *app.State, *prefs.Prefs) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	cfg := config.Default()
	cfg.SurfaceWidth = 100
	cfg.SurfaceHeight = 100
	s := app.NewState(cfg)
	t.Cleanup(s.Close)

	p := prefs.Open(t.TempDir())
	return New(a, s, p), s, p
}

func TestPasswordProtectedClientLocksWorkspace(t *testing.T) {
	mw, s, _ := newWindow(t)
	assert.False(t, mw.locked)

	s.SetClient(&template.Client{Name: "Loja", Password: "segredo"}, "")
	assert.True(t, mw.locked)
	assert.Equal(t, "Moldura - Loja", mw.Title())

	require.True(t, s.Authenticate("segredo"))
	mw.applyLock()
	assert.False(t, mw.locked)
}

func TestOpenClientIsNotLocked(t *testing.T) {
	mw, s, _ := newWindow(t)
	s.SetClient(&template.Client{Name: "Loja"}, "")
	assert.False(t, mw.locked)
	assert.Contains(t, mw.statusBar.Text, "Loja")
}

func TestClearPhotoUpdatesStatus(t *testing.T) {
	mw, _, _ := newWindow(t)
	mw.onClearPhoto()
	assert.Equal(t, "Foto removida", mw.statusBar.Text)

	mw.onCenter()
	assert.Equal(t, "Nenhuma foto para centralizar", mw.statusBar.Text)
}

func TestExportFailureIsReported(t *testing.T) {
	mw, s, _ := newWindow(t)
	var got error
	s.On(app.EventExportFailed, func(data interface{}) { got, _ = data.(error) })

	mw.state.Emit(app.EventExportFailed, errors.New("disco cheio"))
	assert.EqualError(t, got, "disco cheio")
}

func TestCloseSavesWindowSize(t *testing.T) {
	mw, _, p := newWindow(t)
	mw.onClose()
	assert.Greater(t, p.Int(prefs.KeyWindowWidth, 0), 0)
}

func TestDownloadReenabledWhenRedrawSettles(t *testing.T) {
	mw, s, _ := newWindow(t)
	mw.downloadBtn.Disable()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		_, err := s.Compositor.Render(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, s.Compositor.Flush(ctx))
	assert.False(t, mw.downloadBtn.Disabled())
}
