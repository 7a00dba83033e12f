// Package diagfmt renders diagnostics for terminals and tools.
package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto uses the project relative path, or the basename when that
	// is long.
	PathModeAuto PathMode = iota
	// PathModeAbsolute joins project files onto the project root.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color    bool
	Context  int8 // lines shown around the primary line
	PathMode PathMode
	Root     string // needed by PathModeAbsolute
	Width    uint8  // максимальная ширина сообщения, 0 - не ограничено
	NoHints  bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // добавить line/col
	PathMode         PathMode
	Root             string
	Max              int // обрезка вывода
}
