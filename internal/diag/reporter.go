package diag

import (
	"fmt"

	"ember/internal/source"
)

// Reporter is the minimal contract phases use to emit diagnostics.
// Implementations: BagReporter (collects into a Bag), NopReporter.
type Reporter interface {
	Report(code Code, sev Severity, primary source.Span, msg string, notes []Note)
}

// BagReporter forwards every report into a Bag.
type BagReporter struct {
	Bag *Bag
}

func (r *BagReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r == nil || r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  msg,
		Primary:  primary,
		Notes:    notes,
	})
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, source.Span, string, []Note) {}

// Errorf reports an error diagnostic with a formatted message.
func Errorf(r Reporter, code Code, primary source.Span, format string, args ...any) {
	if r == nil {
		return
	}
	r.Report(code, SevError, primary, fmt.Sprintf(format, args...), nil)
}

// Warnf reports a warning diagnostic with a formatted message.
func Warnf(r Reporter, code Code, primary source.Span, format string, args ...any) {
	if r == nil {
		return
	}
	r.Report(code, SevWarning, primary, fmt.Sprintf(format, args...), nil)
}

// ErrorfNoted reports an error with secondary notes attached.
func ErrorfNoted(r Reporter, code Code, primary source.Span, notes []Note, format string, args ...any) {
	if r == nil {
		return
	}
	r.Report(code, SevError, primary, fmt.Sprintf(format, args...), notes)
}
