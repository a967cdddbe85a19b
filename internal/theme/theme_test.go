package theme

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Bundled(t *testing.T) {
	theme, found, err := Resolve("warm", t.TempDir())
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, theme.Embedded)
	assert.Equal(t, "warm", theme.Name)
	assert.Contains(t, theme.CSS, "softdim-overlay")
}

func TestResolve_EmptyNameIsDefault(t *testing.T) {
	theme, found, err := Resolve("", "")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, DefaultThemeName, theme.Name)
}

func TestResolve_UnknownFallsBackToDefault(t *testing.T) {
	theme, found, err := Resolve("neon", t.TempDir())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, DefaultThemeName, theme.Name)
	assert.True(t, theme.Embedded)
}

func TestResolve_UserOverridesBundled(t *testing.T) {
	dir := t.TempDir()
	css := `window.softdim-overlay { background-color: #102030; }`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.css"), []byte(css), 0644))

	theme, found, err := Resolve("default", dir)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, theme.Embedded)
	assert.Equal(t, css, theme.CSS)
	assert.Equal(t, filepath.Join(dir, "default.css"), theme.Path)
}

func TestTheme_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mine.css")
	require.NoError(t, os.WriteFile(path, []byte(`.a {}`), 0644))

	theme, _, err := Resolve("mine", dir)
	require.NoError(t, err)

	changed, err := theme.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "unchanged file")

	require.NoError(t, os.WriteFile(path, []byte(`.b {}`), 0644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	changed, err = theme.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, `.b {}`, theme.CSS)
}

func TestTheme_ReloadEmbeddedIsNoop(t *testing.T) {
	theme, _, err := Resolve(DefaultThemeName, "")
	require.NoError(t, err)

	changed, err := theme.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestWatcher_ReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mine.css")
	require.NoError(t, os.WriteFile(path, []byte(`.a {}`), 0644))
	theme, _, err := Resolve("mine", dir)
	require.NoError(t, err)

	got := make(chan string, 1)
	w := NewWatcher(theme, nil)
	w.SetPollInterval(10 * time.Millisecond)
	w.SetChangeCallback(func(css string) {
		select {
		case got <- css:
		default:
		}
	})
	w.Start(t.Context())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`.b {}`), 0644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case css := <-got:
		assert.Equal(t, `.b {}`, css)
	case <-time.After(2 * time.Second):
		t.Fatal("theme change not reported")
	}
}
