// Package diagfmt renders sorted diagnostic bags for people (pretty) and
// tools (json).
package diagfmt

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"ember/internal/diag"
	"ember/internal/source"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan, color.Bold)
	noteColor = color.New(color.FgBlue)
	posColor  = color.New(color.Bold)
)

// Pretty renders bag.Items() (call bag.Sort() first) one diagnostic per
// block:
//
//	<path>:<line>:<col>: <SEV> <Code>: <message>
//	      <source line>
//	      ^~~~~
//
// followed by notes in the same shape. Files missing from fs degrade to
// byte offsets without context lines.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		printHeadline(w, fs, opts, d.Severity.String(), d.Code.Name(), d.Primary, d.Message)
		printContext(w, fs, d.Primary)
		if opts.ShowNotes {
			for _, n := range d.Notes {
				printHeadline(w, fs, opts, "NOTE", "", n.Span, n.Msg)
				printContext(w, fs, n.Span)
			}
		}
	}
}

func printHeadline(w io.Writer, fs *source.FileSet, opts PrettyOpts, sev, code string, span source.Span, msg string) {
	pos := formatPos(fs, opts.PathMode, span)
	sevText := sev
	if opts.Color {
		pos = posColor.Sprint(pos)
		sevText = severityColor(sev).Sprint(sev)
	}
	if code != "" {
		fmt.Fprintf(w, "%s: %s %s: %s\n", pos, sevText, code, msg)
		return
	}
	fmt.Fprintf(w, "%s: %s: %s\n", pos, sevText, msg)
}

// printContext shows the first line covered by span with a caret run under
// the covered columns.
func printContext(w io.Writer, fs *source.FileSet, span source.Span) {
	if fs == nil {
		return
	}
	f := fs.Get(span.File)
	if f == nil || len(f.Content) == 0 {
		return
	}
	start := fs.Position(span.File, span.Start)
	line := fs.Line(span.File, start.Line)
	if line == nil {
		return
	}
	text := strings.ReplaceAll(string(line), "\t", "    ")
	fmt.Fprintf(w, "    %s\n", text)

	prefix := string(line[:min(int(start.Col)-1, len(line))])
	pad := runewidth.StringWidth(strings.ReplaceAll(prefix, "\t", "    "))
	width := int(span.Len())
	if rest := len(line) - (int(start.Col) - 1); width > rest {
		width = rest
	}
	if width < 1 {
		width = 1
	}
	marker := "^"
	if width > 1 {
		marker += strings.Repeat("~", width-1)
	}
	fmt.Fprintf(w, "    %s%s\n", strings.Repeat(" ", pad), marker)
}

func formatPos(fs *source.FileSet, mode PathMode, span source.Span) string {
	if fs == nil {
		return fmt.Sprintf("<unit>:%d-%d", span.Start, span.End)
	}
	f := fs.Get(span.File)
	if f == nil {
		return fmt.Sprintf("<unit>:%d-%d", span.Start, span.End)
	}
	path := f.Path
	if mode == PathModeBasename {
		path = filepath.Base(path)
	}
	pos := fs.Position(span.File, span.Start)
	return fmt.Sprintf("%s:%d:%d", path, pos.Line, pos.Col)
}

func severityColor(sev string) *color.Color {
	switch sev {
	case "ERROR":
		return errColor
	case "WARNING":
		return warnColor
	case "NOTE":
		return noteColor
	default:
		return infoColor
	}
}
