// Package dbus talks to the GNOME session services softdim depends on: the
// settings daemon's screen brightness property, Mutter's DisplayConfig for
// monitor identities, and the screensaver for lock state.
package dbus
