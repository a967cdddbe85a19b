package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the TUI.
type KeyMap struct {
	// Brightness
	Up       key.Binding
	Down     key.Binding
	FineUp   key.Binding
	FineDown key.Binding
	Max      key.Binding
	Min      key.Binding

	// Settings
	Backend    key.Binding
	Monitors   key.Binding
	Unredirect key.Binding
	Enabled    key.Binding

	// Global
	Quit key.Binding
	Help key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enabled, k.Help, k.Quit}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.FineUp, k.FineDown, k.Max, k.Min},
		{k.Backend, k.Monitors, k.Unredirect, k.Enabled},
		{k.Help, k.Quit},
	}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("right", "l", "+", "up", "k"),
			key.WithHelp("→/l", "brighter"),
		),
		Down: key.NewBinding(
			key.WithKeys("left", "h", "-", "down", "j"),
			key.WithHelp("←/h", "dimmer"),
		),
		FineUp: key.NewBinding(
			key.WithKeys("L", "shift+right"),
			key.WithHelp("L", "brighter by 1%"),
		),
		FineDown: key.NewBinding(
			key.WithKeys("H", "shift+left"),
			key.WithHelp("H", "dimmer by 1%"),
		),
		Max: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("end/G", "full brightness"),
		),
		Min: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("home/g", "minimum"),
		),
		Backend: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "toggle backlight"),
		),
		Monitors: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "cycle monitors"),
		),
		Unredirect: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "cycle unredirect"),
		),
		Enabled: key.NewBinding(
			key.WithKeys("e", " "),
			key.WithHelp("e", "toggle dimming"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}
