// Package config defines the softdim settings schema and its on-disk format.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Key names a single setting. The names match the keys in settings.toml.
type Key string

const (
	KeyMinBrightness     Key = "min-brightness"
	KeyCurrentBrightness Key = "current-brightness"
	KeyMonitors          Key = "monitors"
	KeyBuiltinMonitor    Key = "builtin-monitor"
	KeyUseBacklight      Key = "use-backlight"
	KeyPreventUnredirect Key = "prevent-unredirect"
	KeyDebug             Key = "debug"
	KeyEnabled           Key = "enabled"
)

// Keys returns every known key in file order.
func Keys() []Key {
	return []Key{
		KeyMinBrightness,
		KeyCurrentBrightness,
		KeyMonitors,
		KeyBuiltinMonitor,
		KeyUseBacklight,
		KeyPreventUnredirect,
		KeyDebug,
		KeyEnabled,
	}
}

// Monitors selects which monitors receive an overlay.
type Monitors string

const (
	MonitorsAll      Monitors = "all"
	MonitorsBuiltin  Monitors = "built-in"
	MonitorsExternal Monitors = "external"
)

// ValidMonitors returns all valid monitor selection values.
func ValidMonitors() []Monitors {
	return []Monitors{MonitorsAll, MonitorsBuiltin, MonitorsExternal}
}

// Unredirect controls when the compositor's direct-scanout bypass is suppressed.
type Unredirect string

const (
	UnredirectAlways         Unredirect = "always"
	UnredirectWhenCorrecting Unredirect = "when-correcting"
	UnredirectNever          Unredirect = "never"
)

// ValidUnredirect returns all valid prevent-unredirect values.
func ValidUnredirect() []Unredirect {
	return []Unredirect{UnredirectAlways, UnredirectWhenCorrecting, UnredirectNever}
}

// Settings is the shared state between softdim and softdimd.
// Loaded from ~/.config/softdim/settings.toml
type Settings struct {
	MinBrightness     float64 `toml:"min-brightness"`     // 0.0-1.0 floor for the overlay path
	CurrentBrightness float64 `toml:"current-brightness"` // 0.0-1.0, software brightness
	Monitors          string  `toml:"monitors"`           // "all", "built-in", "external"
	BuiltinMonitor    string  `toml:"builtin-monitor"`    // pinned monitor name, empty = auto
	UseBacklight      bool    `toml:"use-backlight"`      // prefer the hardware backlight proxy
	PreventUnredirect string  `toml:"prevent-unredirect"` // "always", "when-correcting", "never"
	Debug             bool    `toml:"debug"`
	Enabled           bool    `toml:"enabled"`
}

// DefaultSettings returns a new Settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		MinBrightness:     0.1,
		CurrentBrightness: 1.0,
		Monitors:          string(MonitorsAll),
		BuiltinMonitor:    "",
		UseBacklight:      false,
		PreventUnredirect: string(UnredirectWhenCorrecting),
		Debug:             false,
		Enabled:           true,
	}
}

// SettingsPath returns the path to the settings file.
func SettingsPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "softdim", "settings.toml"), nil
}

// LoadSettings loads settings from path.
// If the file doesn't exist, returns the default settings.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	s := DefaultSettings()
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return s, nil
}

// SaveSettings writes settings to path atomically.
func SaveSettings(path string, s *Settings) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks numeric ranges.
// Enum values are deliberately not rejected here: the daemon treats unknown
// values as their fail-safe default at the point of use.
func (s *Settings) Validate() error {
	if s.MinBrightness < 0 || s.MinBrightness > 1 {
		return fmt.Errorf("min-brightness must be between 0 and 1, got %g", s.MinBrightness)
	}
	if s.CurrentBrightness < 0 || s.CurrentBrightness > 1 {
		return fmt.Errorf("current-brightness must be between 0 and 1, got %g", s.CurrentBrightness)
	}
	return nil
}

// Value returns the value stored under key.
func (s *Settings) Value(key Key) (any, bool) {
	switch key {
	case KeyMinBrightness:
		return s.MinBrightness, true
	case KeyCurrentBrightness:
		return s.CurrentBrightness, true
	case KeyMonitors:
		return s.Monitors, true
	case KeyBuiltinMonitor:
		return s.BuiltinMonitor, true
	case KeyUseBacklight:
		return s.UseBacklight, true
	case KeyPreventUnredirect:
		return s.PreventUnredirect, true
	case KeyDebug:
		return s.Debug, true
	case KeyEnabled:
		return s.Enabled, true
	default:
		return nil, false
	}
}

// SetValue stores v under key. The dynamic type of v must match the key.
func (s *Settings) SetValue(key Key, v any) error {
	switch key {
	case KeyMinBrightness, KeyCurrentBrightness:
		f, ok := v.(float64)
		if !ok {
			return &TypeError{Key: key, Want: "double", Got: v}
		}
		if key == KeyMinBrightness {
			s.MinBrightness = f
		} else {
			s.CurrentBrightness = f
		}
	case KeyMonitors, KeyBuiltinMonitor, KeyPreventUnredirect:
		str, ok := v.(string)
		if !ok {
			return &TypeError{Key: key, Want: "string", Got: v}
		}
		switch key {
		case KeyMonitors:
			s.Monitors = str
		case KeyBuiltinMonitor:
			s.BuiltinMonitor = str
		default:
			s.PreventUnredirect = str
		}
	case KeyUseBacklight, KeyDebug, KeyEnabled:
		b, ok := v.(bool)
		if !ok {
			return &TypeError{Key: key, Want: "bool", Got: v}
		}
		switch key {
		case KeyUseBacklight:
			s.UseBacklight = b
		case KeyDebug:
			s.Debug = b
		default:
			s.Enabled = b
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// SetFromString parses a user-supplied value for key and stores it.
// Unlike Validate, enum values are checked strictly here.
func (s *Settings) SetFromString(key Key, value string) error {
	switch key {
	case KeyMinBrightness, KeyCurrentBrightness:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value %q for %s: %w", value, key, err)
		}
		if f < 0 || f > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %g", key, f)
		}
		return s.SetValue(key, f)
	case KeyMonitors:
		if !slices.Contains(ValidMonitors(), Monitors(value)) {
			return fmt.Errorf("invalid monitors %q, must be one of: %v", value, ValidMonitors())
		}
		return s.SetValue(key, value)
	case KeyPreventUnredirect:
		if !slices.Contains(ValidUnredirect(), Unredirect(value)) {
			return fmt.Errorf("invalid prevent-unredirect %q, must be one of: %v", value, ValidUnredirect())
		}
		return s.SetValue(key, value)
	case KeyBuiltinMonitor:
		return s.SetValue(key, value)
	case KeyUseBacklight, KeyDebug, KeyEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value %q for %s: %w", value, key, err)
		}
		return s.SetValue(key, b)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
}

// Diff returns the keys whose values differ between a and b.
func Diff(a, b *Settings) []Key {
	var changed []Key
	for _, key := range Keys() {
		av, _ := a.Value(key)
		bv, _ := b.Value(key)
		if av != bv {
			changed = append(changed, key)
		}
	}
	return changed
}

// TypeError reports a value of the wrong type for a key.
type TypeError struct {
	Key  Key
	Want string
	Got  any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("setting %s expects %s, got %T", e.Key, e.Want, e.Got)
}
