package toothnzoom

import (
	"github.com/unioslo-odont/toothnzoom-edu/loader"
	"github.com/unioslo-odont/toothnzoom-edu/viewer"
)

// Inner exposes the underlying viewer.Viewer for advanced use (e.g., direct
// state access in tests).  Prefer the high-level API for normal usage.
func (v *Viewer) Inner() *viewer.Viewer { return v.inner }

// Loader exposes the underlying loader for advanced use.
func (v *Viewer) Loader() *loader.Loader { return v.loader }
