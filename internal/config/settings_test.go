package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, 0.1, s.MinBrightness)
	assert.Equal(t, 1.0, s.CurrentBrightness)
	assert.Equal(t, string(MonitorsAll), s.Monitors)
	assert.Empty(t, s.BuiltinMonitor)
	assert.False(t, s.UseBacklight)
	assert.Equal(t, string(UnredirectWhenCorrecting), s.PreventUnredirect)
	assert.False(t, s.Debug)
	assert.True(t, s.Enabled)
	require.NoError(t, s.Validate())
}

func TestLoadSettings_DefaultsWhenNoFile(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettings_ParsesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	content := `
min-brightness = 0.25
current-brightness = 0.6
monitors = "external"
builtin-monitor = "Built-in display"
use-backlight = true
prevent-unredirect = "always"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, 0.25, s.MinBrightness)
	assert.Equal(t, 0.6, s.CurrentBrightness)
	assert.Equal(t, "external", s.Monitors)
	assert.Equal(t, "Built-in display", s.BuiltinMonitor)
	assert.True(t, s.UseBacklight)
	assert.Equal(t, "always", s.PreventUnredirect)
	// Unset keys keep their defaults
	assert.True(t, s.Enabled)
}

func TestLoadSettings_KeepsUnknownEnums(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(`prevent-unredirect = "sometimes"`), 0644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "sometimes", s.PreventUnredirect)
}

func TestLoadSettings_RejectsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(`current-brightness = 1.5`), 0644))

	_, err := LoadSettings(path)
	assert.Error(t, err)
}

func TestLoadSettings_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(`min-brightness = [`), 0644))

	_, err := LoadSettings(path)
	assert.Error(t, err)
}

func TestSaveSettings_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")

	s := DefaultSettings()
	s.CurrentBrightness = 0.42
	s.Monitors = string(MonitorsBuiltin)
	require.NoError(t, SaveSettings(path, s))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	loaded, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestSettings_SetValueTypeMismatch(t *testing.T) {
	s := DefaultSettings()

	err := s.SetValue(KeyMinBrightness, "0.5")
	var typeErr *TypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, KeyMinBrightness, typeErr.Key)
	assert.Equal(t, "double", typeErr.Want)

	assert.Error(t, s.SetValue(Key("bogus"), true))
}

func TestSettings_SetFromString(t *testing.T) {
	tests := []struct {
		name    string
		key     Key
		value   string
		want    any
		wantErr bool
	}{
		{"double", KeyCurrentBrightness, "0.5", 0.5, false},
		{"double out of range", KeyMinBrightness, "2", nil, true},
		{"double not a number", KeyMinBrightness, "dim", nil, true},
		{"monitors", KeyMonitors, "built-in", "built-in", false},
		{"monitors invalid", KeyMonitors, "left", nil, true},
		{"unredirect", KeyPreventUnredirect, "never", "never", false},
		{"unredirect invalid", KeyPreventUnredirect, "sometimes", nil, true},
		{"bool", KeyUseBacklight, "true", true, false},
		{"bool invalid", KeyDebug, "maybe", nil, true},
		{"free string", KeyBuiltinMonitor, "eDP-1 panel", "eDP-1 panel", false},
		{"unknown key", Key("volume"), "1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			err := s.SetFromString(tt.key, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			got, ok := s.Value(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiff(t *testing.T) {
	a := DefaultSettings()
	b := DefaultSettings()
	assert.Empty(t, Diff(a, b))

	b.CurrentBrightness = 0.3
	b.Monitors = string(MonitorsExternal)
	assert.Equal(t, []Key{KeyCurrentBrightness, KeyMonitors}, Diff(a, b))
}
