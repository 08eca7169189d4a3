package diag

import (
	"ember/internal/source"
)

// Note attaches secondary context to a diagnostic (e.g. the previous
// declaration in a duplicate report).
type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one reported problem with a primary span.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}

// WithNote returns a copy of d with one extra note.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}
