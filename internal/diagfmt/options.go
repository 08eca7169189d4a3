package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	PathModeFull PathMode = iota
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	ShowNotes bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // add line/col alongside byte offsets
	PathMode         PathMode
	Max              int // truncate the output, not the Bag
	IncludeNotes     bool
}
