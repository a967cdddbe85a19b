// Package daemon provides the main orchestration for softdimd.
// It wires settings, the backlight proxy, monitor topology and the overlay
// set together and keeps them reconciled on the GTK main loop.
package daemon
