// Package settings provides a live, change-notifying view of the softdim
// settings file. It plays the role GSettings plays for a shell extension:
// typed get/set by key plus per-key change handlers.
package settings

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/softdim/internal/config"
)

// HandlerID identifies a connected change handler.
type HandlerID uint64

// Store is a key/value settings store with change notification per key.
type Store interface {
	Double(key config.Key) float64
	SetDouble(key config.Key, value float64) error
	String(key config.Key) string
	SetString(key config.Key, value string) error
	Bool(key config.Key) bool
	SetBool(key config.Key, value bool) error

	// Connect registers fn to run whenever key changes.
	Connect(key config.Key, fn func()) HandlerID
	// Disconnect removes a handler. Unknown IDs are ignored.
	Disconnect(id HandlerID)
}

type handler struct {
	id  HandlerID
	key config.Key
	fn  func()
}

// FileStore is a Store persisted to a TOML file.
// Handlers run synchronously on the goroutine that caused the change: the
// caller of a setter, or whoever calls Reload.
type FileStore struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	path    string // empty = memory only
	current *config.Settings

	handlers []handler
	nextID   HandlerID
}

// NewFileStore loads the settings file at path and returns a store backed by it.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	s, err := config.LoadSettings(path)
	if err != nil {
		return nil, err
	}
	store := NewMemoryStore(s, logger)
	store.path = path
	return store, nil
}

// NewMemoryStore returns a store that is never persisted.
// A nil initial value starts from the defaults.
func NewMemoryStore(initial *config.Settings, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	if initial == nil {
		initial = config.DefaultSettings()
	}
	cp := *initial
	return &FileStore{
		logger:  logger,
		current: &cp,
	}
}

// Path returns the backing file path, or "" for memory-only stores.
func (s *FileStore) Path() string {
	return s.path
}

// Snapshot returns a copy of the current settings.
func (s *FileStore) Snapshot() config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.current
}

func (s *FileStore) value(key config.Key) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.current.Value(key)
	if !ok {
		s.logger.Warn("unknown setting requested", "key", key)
	}
	return v
}

// Double returns a floating point setting, or 0 on a type mismatch.
func (s *FileStore) Double(key config.Key) float64 {
	f, ok := s.value(key).(float64)
	if !ok {
		s.logger.Warn("setting is not a double", "key", key)
	}
	return f
}

// String returns a string setting, or "" on a type mismatch.
func (s *FileStore) String(key config.Key) string {
	str, ok := s.value(key).(string)
	if !ok {
		s.logger.Warn("setting is not a string", "key", key)
	}
	return str
}

// Bool returns a boolean setting, or false on a type mismatch.
func (s *FileStore) Bool(key config.Key) bool {
	b, ok := s.value(key).(bool)
	if !ok {
		s.logger.Warn("setting is not a bool", "key", key)
	}
	return b
}

// SetDouble stores a floating point setting.
func (s *FileStore) SetDouble(key config.Key, value float64) error {
	return s.set(key, value)
}

// SetString stores a string setting.
func (s *FileStore) SetString(key config.Key, value string) error {
	return s.set(key, value)
}

// SetBool stores a boolean setting.
func (s *FileStore) SetBool(key config.Key, value bool) error {
	return s.set(key, value)
}

// SetFromString parses a user-supplied value and stores it under key. Enum
// keys only accept their listed values.
func (s *FileStore) SetFromString(key config.Key, value string) error {
	parsed := s.Snapshot()
	if err := parsed.SetFromString(key, value); err != nil {
		return err
	}
	v, _ := parsed.Value(key)
	return s.set(key, v)
}

// set updates one key, persists and notifies. Setting a key to its current
// value is a no-op and does not notify.
func (s *FileStore) set(key config.Key, value any) error {
	s.mu.Lock()
	if old, ok := s.current.Value(key); ok && old == value {
		s.mu.Unlock()
		return nil
	}

	next := *s.current
	if err := next.SetValue(key, value); err != nil {
		s.mu.Unlock()
		return err
	}

	if s.path != "" {
		if err := config.SaveSettings(s.path, &next); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to persist %s: %w", key, err)
		}
	}
	s.current = &next
	s.mu.Unlock()

	s.logger.Debug("setting changed", "key", key, "value", value)
	s.emit([]config.Key{key})
	return nil
}

// Reload re-reads the backing file and notifies handlers for every key whose
// value changed. Invalid files are rejected and the previous values kept.
func (s *FileStore) Reload() error {
	if s.path == "" {
		return nil
	}

	loaded, err := config.LoadSettings(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	changed := config.Diff(s.current, loaded)
	s.current = loaded
	s.mu.Unlock()

	if len(changed) > 0 {
		s.logger.Debug("settings reloaded", "path", s.path, "changed", changed)
		s.emit(changed)
	}
	return nil
}

// Connect registers fn to run whenever key changes.
func (s *FileStore) Connect(key config.Key, fn func()) HandlerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.handlers = append(s.handlers, handler{id: s.nextID, key: key, fn: fn})
	return s.nextID
}

// Disconnect removes a handler.
func (s *FileStore) Disconnect(id HandlerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, h := range s.handlers {
		if h.id == id {
			s.handlers = append(s.handlers[:i:i], s.handlers[i+1:]...)
			return
		}
	}
}

// emit runs handlers for the given keys outside the lock, in connection order.
// Handlers may freely call back into the store.
func (s *FileStore) emit(keys []config.Key) {
	s.mu.RLock()
	var fns []func()
	for _, key := range keys {
		for _, h := range s.handlers {
			if h.key == key {
				fns = append(fns, h.fn)
			}
		}
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
