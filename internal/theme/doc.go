// Package theme handles the CSS for softdim's overlay windows. Bundled themes
// are embedded; a file of the same name in ~/.config/softdim/themes/
// overrides one and is hot-reloaded.
package theme
