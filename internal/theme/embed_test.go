package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEmbeddedTheme_Default(t *testing.T) {
	css, found := GetEmbeddedTheme(DefaultThemeName)
	require.True(t, found, "default theme should be found")
	assert.Contains(t, css, "window.softdim-overlay")
	assert.Contains(t, css, "window.softdim-inhibitor")
	assert.Contains(t, css, "transparent")
}

func TestGetEmbeddedTheme_NotFound(t *testing.T) {
	_, found := GetEmbeddedTheme("nonexistent")
	assert.False(t, found)
}

func TestListEmbeddedThemes(t *testing.T) {
	names := ListEmbeddedThemes()
	assert.ElementsMatch(t, []string{"default", "warm"}, names)
}
