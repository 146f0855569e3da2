package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "moldura")
	p := Open(dir)
	assert.Equal(t, "", p.String(KeyLastTemplate))
	assert.Equal(t, 900, p.Int(KeyWindowWidth, 900))
	assert.True(t, p.Bool(KeyEditAnchors, true))

	p.SetString(KeyLastTemplate, "/tmp/cliente.yaml")
	p.SetInt(KeyWindowWidth, 1280)
	p.SetBool(KeyEditAnchors, false)
	p.SetFloat("ratio", 0.5)
	require.NoError(t, p.SaveIfChanged())

	q := Open(dir)
	assert.Equal(t, "/tmp/cliente.yaml", q.String(KeyLastTemplate))
	assert.Equal(t, 1280, q.Int(KeyWindowWidth, 0))
	assert.False(t, q.Bool(KeyEditAnchors, true))
	assert.Equal(t, 0.5, q.FloatWithFallback("ratio", 0))
}

func TestSaveIfChangedSkipsCleanPrefs(t *testing.T) {
	dir := t.TempDir()
	p := Open(dir)
	require.NoError(t, p.SaveIfChanged())
	_, err := os.Stat(p.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestCorruptFileIgnored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, prefsFile), []byte("{nope"), 0o644))
	p := Open(dir)
	assert.Equal(t, "", p.String(KeyLastDir))
}
