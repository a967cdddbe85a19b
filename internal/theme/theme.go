package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Theme is the CSS applied to the overlay windows.
type Theme struct {
	Name     string    // theme name without .css
	Path     string    // user file, empty when bundled
	CSS      string
	ModTime  time.Time // of the user file
	Embedded bool
}

// ThemesDir returns the user's theme directory.
func ThemesDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "softdim", "themes"), nil
}

// Resolve finds a theme by name. A file in dir overrides a bundled theme of
// the same name; an unknown name resolves to the default theme with found
// set to false.
func Resolve(name, dir string) (theme *Theme, found bool, err error) {
	if name == "" {
		name = DefaultThemeName
	}

	if dir != "" {
		path := filepath.Join(dir, name+".css")
		if _, statErr := os.Stat(path); statErr == nil {
			t, err := fromFile(name, path)
			if err != nil {
				return nil, false, err
			}
			return t, true, nil
		}
	}

	if css, ok := GetEmbeddedTheme(name); ok {
		return &Theme{Name: name, CSS: css, Embedded: true}, true, nil
	}

	css, _ := GetEmbeddedTheme(DefaultThemeName)
	return &Theme{Name: DefaultThemeName, CSS: css, Embedded: true}, false, nil
}

func fromFile(name, path string) (*Theme, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat theme: %w", err)
	}
	css, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme: %w", err)
	}
	return &Theme{
		Name:    name,
		Path:    path,
		CSS:     string(css),
		ModTime: info.ModTime(),
	}, nil
}

// Reload rereads a user theme if its file changed. It reports whether the
// CSS is different.
func (t *Theme) Reload() (bool, error) {
	if t.Embedded {
		return false, nil
	}

	info, err := os.Stat(t.Path)
	if err != nil {
		return false, err
	}
	if !info.ModTime().After(t.ModTime) {
		return false, nil
	}

	css, err := os.ReadFile(t.Path)
	if err != nil {
		return false, err
	}
	old := t.CSS
	t.CSS = string(css)
	t.ModTime = info.ModTime()
	return old != t.CSS, nil
}
