// Package display is the GTK4 side of softdim. It exposes the GDK monitor
// list as a topology, creates dimming surfaces through Wayland layer-shell,
// and keeps compositor direct scanout inhibited while dimming.
package display
