package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedFragments(t *testing.T) {
	r := Default()

	html, err := r.Render("layer-row", map[string]any{"ID": "cables-layer", "DataCount": 4})
	require.NoError(t, err)
	assert.Contains(t, html, `id="layer-cables-layer"`)
	assert.Contains(t, html, `data-count="4"`)

	html, err = r.Render("banner", map[string]any{"Show": false})
	require.NoError(t, err)
	assert.Empty(t, html)

	html, err = r.Render("live-status", map[string]any{"Channel": "dw", "Offline": true, "Source": "none"})
	require.NoError(t, err)
	assert.Contains(t, html, "dw offline")

	_, err = r.Render("missing", nil)
	assert.Error(t, err)
}

func TestDirFragmentsReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.html")
	require.NoError(t, os.WriteFile(path, []byte(`{{define "x"}}one{{end}}`), 0o644))

	r, err := New(dir)
	require.NoError(t, err)
	out, err := r.Render("x", nil)
	require.NoError(t, err)
	assert.Equal(t, "one", out)

	require.NoError(t, os.WriteFile(path, []byte(`{{define "x"}}two{{end}}`), 0o644))
	require.NoError(t, r.Reload())
	out, err = r.Render("x", nil)
	require.NoError(t, err)
	assert.Equal(t, "two", out)
}

func TestCameraFragment(t *testing.T) {
	html, err := Default().Render("camera", map[string]any{
		"Zoom":      4.5,
		"Center":    map[string]float64{"Lat": 48.8566, "Lon": 2.3522},
		"View":      "eu",
		"TimeRange": "24h",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "<dd>4.50</dd>")
	assert.Contains(t, html, "48.857, 2.352")
}
