// Package brightness keeps the logical brightness level consistent across the
// hardware backlight proxy and the persisted software setting.
package brightness

import (
	"log/slog"
	"math"

	"github.com/jmylchreest/softdim/internal/config"
	"github.com/jmylchreest/softdim/internal/settings"
)

// Backlight is the hardware brightness proxy.
type Backlight interface {
	// Brightness returns the current percentage and whether it is known.
	Brightness() (percent int, ok bool)
	// SetBrightness requests a new percentage in [0,100].
	SetBrightness(percent int) error
}

// ToPercent converts a brightness level to the proxy's integer percentage.
// The +1 offsets truncation on the proxy side so that repeated
// read-modify-write cycles do not decay toward zero.
func ToPercent(value float64) int {
	return min(100, int(math.Round(value*100))+1)
}

// FromPercent converts a proxy percentage back to a brightness level.
func FromPercent(percent int) float64 {
	return float64(percent) / 100.0
}

// Store reads and writes the authoritative brightness level. The hardware
// proxy is authoritative only while use-backlight is set and the proxy
// reports a known, non-negative value; otherwise the software setting is.
type Store struct {
	settings  settings.Store
	backlight Backlight
	logger    *slog.Logger
}

// NewStore creates a brightness store. backlight may be nil when no hardware
// proxy is available.
func NewStore(s settings.Store, backlight Backlight, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		settings:  s,
		backlight: backlight,
		logger:    logger,
	}
}

// hardware returns the proxy value when the hardware backend is authoritative.
func (s *Store) hardware() (int, bool) {
	if !s.settings.Bool(config.KeyUseBacklight) {
		return 0, false
	}
	return s.proxyValue()
}

func (s *Store) proxyValue() (int, bool) {
	if s.backlight == nil {
		return 0, false
	}
	percent, ok := s.backlight.Brightness()
	if !ok || percent < 0 {
		return 0, false
	}
	return percent, true
}

// UsingHardware reports whether reads and writes currently go to the proxy.
func (s *Store) UsingHardware() bool {
	_, ok := s.hardware()
	return ok
}

// HardwarePending reports whether the hardware backend is selected but the
// proxy has not reported a value yet.
func (s *Store) HardwarePending() bool {
	return s.settings.Bool(config.KeyUseBacklight) && !s.UsingHardware()
}

// Get returns the current brightness level.
func (s *Store) Get() float64 {
	if percent, ok := s.hardware(); ok {
		value := FromPercent(percent)
		s.logger.Debug("brightness from proxy", "value", value, "percent", percent)
		return value
	}
	value := s.settings.Double(config.KeyCurrentBrightness)
	s.logger.Debug("brightness from setting", "value", value)
	return value
}

// Set stores a new brightness level, clamped to [0,1].
func (s *Store) Set(value float64) {
	value = min(1, max(0, value))

	if _, ok := s.hardware(); ok {
		percent := ToPercent(value)
		s.logger.Debug("storing brightness by proxy", "value", value, "percent", percent)
		err := s.backlight.SetBrightness(percent)
		if err == nil {
			return
		}
		s.logger.Warn("failed to set backlight, storing in setting", "percent", percent, "error", err)
	}

	s.logger.Debug("storing brightness by setting", "value", value)
	if err := s.settings.SetDouble(config.KeyCurrentBrightness, value); err != nil {
		s.logger.Warn("failed to store brightness", "value", value, "error", err)
	}
}

// Minimum returns the configured brightness floor.
func (s *Store) Minimum() float64 {
	return s.settings.Double(config.KeyMinBrightness)
}

// OnBackendToggle carries the brightness across a use-backlight change.
// Switching to hardware pushes the software value to the proxy; switching to
// software pulls a known proxy value into the setting.
func (s *Store) OnBackendToggle() {
	if s.settings.Bool(config.KeyUseBacklight) {
		s.logger.Debug("backend switched to backlight")
		s.Set(s.settings.Double(config.KeyCurrentBrightness))
		return
	}

	s.logger.Debug("backend switched to setting")
	if percent, ok := s.proxyValue(); ok {
		s.Set(FromPercent(percent))
	}
}
