package diagfmt

import (
	"path"
	"strings"

	"vellum/internal/source"
)

// autoPathLimit is the longest relative path PathModeAuto prints in full.
const autoPathLimit = 40

func formatPath(id source.VirtualID, mode PathMode, root string) string {
	if !id.Package.IsZero() {
		// package files have no stable location worth showing
		return id.String()
	}
	rel := strings.TrimPrefix(id.Path, "/")
	switch mode {
	case PathModeAbsolute:
		if abs, ok := id.Resolve(root); ok {
			return abs
		}
		return id.Path
	case PathModeRelative:
		return rel
	case PathModeBasename:
		return path.Base(id.Path)
	default:
		if len(rel) > autoPathLimit {
			return path.Base(id.Path)
		}
		return rel
	}
}
