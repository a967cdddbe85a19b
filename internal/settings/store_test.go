package settings

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/softdim/internal/config"
)

func TestMemoryStore_Defaults(t *testing.T) {
	s := NewMemoryStore(nil, nil)

	assert.Equal(t, 0.1, s.Double(config.KeyMinBrightness))
	assert.Equal(t, 1.0, s.Double(config.KeyCurrentBrightness))
	assert.Equal(t, "all", s.String(config.KeyMonitors))
	assert.False(t, s.Bool(config.KeyUseBacklight))
	assert.Empty(t, s.Path())
}

func TestMemoryStore_TypeMismatch(t *testing.T) {
	s := NewMemoryStore(nil, nil)

	assert.Zero(t, s.Double(config.KeyMonitors))
	assert.Empty(t, s.String(config.KeyUseBacklight))
	assert.Error(t, s.SetString(config.KeyMinBrightness, "0.5"))
}

func TestStore_SetFromString(t *testing.T) {
	s := NewMemoryStore(nil, nil)

	var notified int
	s.Connect(config.KeyMinBrightness, func() { notified++ })

	require.NoError(t, s.SetFromString(config.KeyMinBrightness, "0.25"))
	assert.Equal(t, 0.25, s.Double(config.KeyMinBrightness))
	assert.Equal(t, 1, notified)

	require.NoError(t, s.SetFromString(config.KeyUseBacklight, "true"))
	assert.True(t, s.Bool(config.KeyUseBacklight))

	require.NoError(t, s.SetFromString(config.KeyMonitors, "external"))
	assert.Equal(t, "external", s.String(config.KeyMonitors))

	assert.Error(t, s.SetFromString(config.KeyMonitors, "left"))
	assert.Error(t, s.SetFromString(config.KeyMinBrightness, "2"))
	assert.Error(t, s.SetFromString(config.Key("colour"), "red"))
	assert.Equal(t, "external", s.String(config.KeyMonitors))
	assert.Equal(t, 1, notified)
}

func TestStore_ConnectNotifiesPerKey(t *testing.T) {
	s := NewMemoryStore(nil, nil)

	var current, monitors int
	s.Connect(config.KeyCurrentBrightness, func() { current++ })
	s.Connect(config.KeyMonitors, func() { monitors++ })

	require.NoError(t, s.SetDouble(config.KeyCurrentBrightness, 0.5))
	assert.Equal(t, 1, current)
	assert.Equal(t, 0, monitors)
	assert.Equal(t, 0.5, s.Double(config.KeyCurrentBrightness))

	// Same value does not notify
	require.NoError(t, s.SetDouble(config.KeyCurrentBrightness, 0.5))
	assert.Equal(t, 1, current)

	require.NoError(t, s.SetString(config.KeyMonitors, "external"))
	assert.Equal(t, 1, monitors)
}

func TestStore_Disconnect(t *testing.T) {
	s := NewMemoryStore(nil, nil)

	var calls int
	id := s.Connect(config.KeyDebug, func() { calls++ })
	other := s.Connect(config.KeyDebug, func() {})

	s.Disconnect(id)
	s.Disconnect(id) // unknown IDs are ignored
	require.NoError(t, s.SetBool(config.KeyDebug, true))
	assert.Equal(t, 0, calls)

	s.Disconnect(other)
	assert.Empty(t, s.handlers)
}

func TestStore_HandlersMayReenter(t *testing.T) {
	s := NewMemoryStore(nil, nil)

	// A handler that clamps the value writes back into the store
	var calls int
	s.Connect(config.KeyCurrentBrightness, func() {
		calls++
		if s.Double(config.KeyCurrentBrightness) < 0.2 {
			require.NoError(t, s.SetDouble(config.KeyCurrentBrightness, 0.2))
		}
	})

	require.NoError(t, s.SetDouble(config.KeyCurrentBrightness, 0.05))
	assert.Equal(t, 0.2, s.Double(config.KeyCurrentBrightness))
	assert.Equal(t, 2, calls)
}

func TestFileStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")

	s, err := NewFileStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetDouble(config.KeyCurrentBrightness, 0.7))
	require.NoError(t, s.SetString(config.KeyBuiltinMonitor, "Built-in display"))

	loaded, err := config.LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 0.7, loaded.CurrentBrightness)
	assert.Equal(t, "Built-in display", loaded.BuiltinMonitor)
}

func TestFileStore_ReloadNotifiesChangedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	s, err := NewFileStore(path, nil)
	require.NoError(t, err)

	var notified []config.Key
	for _, key := range config.Keys() {
		s.Connect(key, func() { notified = append(notified, key) })
	}

	external := config.DefaultSettings()
	external.MinBrightness = 0.3
	external.UseBacklight = true
	require.NoError(t, config.SaveSettings(path, external))

	require.NoError(t, s.Reload())
	assert.Equal(t, []config.Key{config.KeyMinBrightness, config.KeyUseBacklight}, notified)
	assert.Equal(t, 0.3, s.Double(config.KeyMinBrightness))

	// Nothing changed on disk: no notifications
	notified = nil
	require.NoError(t, s.Reload())
	assert.Empty(t, notified)
}

func TestFileStore_ReloadKeepsPreviousOnInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	s, err := NewFileStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetDouble(config.KeyCurrentBrightness, 0.4))

	require.NoError(t, os.WriteFile(path, []byte("current-brightness = 7\n"), 0600))
	assert.Error(t, s.Reload())
	assert.Equal(t, 0.4, s.Double(config.KeyCurrentBrightness))
}

func TestWatcher_ReloadsOnExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	s, err := NewFileStore(path, nil)
	require.NoError(t, err)

	var changed atomic.Int32
	s.Connect(config.KeyMonitors, func() { changed.Add(1) })

	w, err := NewWatcher(s, nil, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	external := config.DefaultSettings()
	external.Monitors = string(config.MonitorsBuiltin)
	require.NoError(t, config.SaveSettings(path, external))

	require.Eventually(t, func() bool {
		return changed.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "built-in", s.String(config.KeyMonitors))
}

func TestWatcher_ReportsRejectedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	s, err := NewFileStore(path, nil)
	require.NoError(t, err)

	w, err := NewWatcher(s, nil, nil)
	require.NoError(t, err)
	errs := make(chan error, 4)
	w.SetErrorCallback(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("min-brightness = 3\n"), 0600))

	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "min-brightness")
	case <-time.After(2 * time.Second):
		t.Fatal("rejected settings file not reported")
	}
	assert.Equal(t, 0.1, s.Double(config.KeyMinBrightness))
}
