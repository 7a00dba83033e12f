package diag

import (
	"slices"

	"vellum/internal/source"
)

// Reporter receives diagnostics from the parser and the evaluator.
type Reporter interface {
	Report(d Diagnostic)
}

// Pending is a diagnostic being assembled. Nothing reaches the Reporter
// until Emit.
type Pending struct {
	rep  Reporter
	d    Diagnostic
	sent bool
}

func ReportError(r Reporter, code Code, primary source.Span, msg string) *Pending {
	return &Pending{rep: r, d: NewError(code, primary, msg)}
}

func ReportWarning(r Reporter, code Code, primary source.Span, msg string) *Pending {
	return &Pending{rep: r, d: NewWarning(code, primary, msg)}
}

func (p *Pending) WithHint(hint string) *Pending {
	p.d.Hints = append(p.d.Hints, hint)
	return p
}

// Emit reports the diagnostic once; later calls do nothing.
func (p *Pending) Emit() {
	if p.sent || p.rep == nil {
		return
	}
	p.sent = true
	d := p.d
	d.Hints = slices.Clone(d.Hints)
	p.rep.Report(d)
}

func (p *Pending) Diagnostic() Diagnostic { return p.d }
