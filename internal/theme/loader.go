package theme

import (
	"context"
	"log/slog"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// Loader installs the overlay theme on the default display and reloads it
// when the user's file changes.
type Loader struct {
	logger   *slog.Logger
	provider *gtk.CSSProvider
	dir      string
	theme    *Theme
	watcher  *Watcher
}

// NewLoader creates a loader that looks for user themes in ThemesDir.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := ThemesDir()
	if err != nil {
		logger.Warn("failed to get themes directory", "error", err)
	}
	return &Loader{
		logger:   logger,
		provider: gtk.NewCSSProvider(),
		dir:      dir,
	}
}

// Load resolves the named theme and loads it into the provider. Must be
// called on the GTK main loop.
func (l *Loader) Load(name string) error {
	theme, found, err := Resolve(name, l.dir)
	if err != nil {
		return err
	}
	if !found {
		l.logger.Warn("theme not found, using default", "theme", name, "available", ListEmbeddedThemes())
	}
	l.theme = theme
	l.provider.LoadFromString(theme.CSS)
	l.logger.Info("loaded theme", "name", theme.Name, "path", theme.Path)
	return nil
}

// Apply adds the provider to the default display.
func (l *Loader) Apply() {
	display := gdk.DisplayGetDefault()
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return
	}
	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
}

// StartHotReload follows changes to a user theme file.
func (l *Loader) StartHotReload(ctx context.Context) {
	if l.theme == nil || l.theme.Embedded {
		return
	}
	l.StopHotReload()
	l.watcher = NewWatcher(l.theme, l.logger)
	l.watcher.SetChangeCallback(func(css string) {
		glib.IdleAdd(func() {
			l.provider.LoadFromString(css)
			l.logger.Info("hot-reloaded theme", "name", l.theme.Name)
		})
	})
	l.watcher.Start(ctx)
}

// StopHotReload stops following the theme file.
func (l *Loader) StopHotReload() {
	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}
}
