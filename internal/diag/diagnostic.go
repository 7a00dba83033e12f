package diag

import (
	"vellum/internal/source"
)

// Severity orders diagnostics by importance; higher is worse.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{"INFO", "WARNING", "ERROR"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Hints    []string
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func NewWarning(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevWarning, code, primary, msg)
}

// WithHint returns a copy of d with hint appended; d's hints are not shared.
func (d Diagnostic) WithHint(hint string) Diagnostic {
	d.Hints = append(d.Hints[:len(d.Hints):len(d.Hints)], hint)
	return d
}

// In reports whether the primary span belongs to id.
func (d Diagnostic) In(id source.VirtualID) bool {
	return d.Primary.ID == id
}
