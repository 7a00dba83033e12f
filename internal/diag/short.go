package diag

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"vellum/internal/source"
)

// SourceLookup returns the loaded source of id, or nil when it is unknown.
type SourceLookup func(id source.VirtualID) *source.Source

type shortLine struct {
	sev  Severity
	code string
	path string
	pos  source.LineCol
	msg  string
}

// FormatShort renders one line per diagnostic, ordered by file and position:
//
//	error SEM3001 /main.vel:3:1 unknown function "foo"
//
// Package files are dropped when skipPackages is set. A diagnostic whose file
// cannot be looked up is printed at 0:0.
func FormatShort(diags []Diagnostic, lookup SourceLookup, skipPackages bool) string {
	lines := make([]shortLine, 0, len(diags))
	for _, d := range diags {
		if skipPackages && !d.Primary.ID.Package.IsZero() {
			continue
		}
		l := shortLine{
			sev:  d.Severity,
			code: d.Code.ID(),
			path: d.Primary.ID.String(),
			msg:  strings.Join(strings.Fields(d.Message), " "),
		}
		if lookup != nil {
			if src := lookup(d.Primary.ID); src != nil && int(d.Primary.Start) <= src.Len() {
				l.pos = src.LineCol(d.Primary.Start)
			}
		}
		lines = append(lines, l)
	}

	slices.SortStableFunc(lines, func(a, b shortLine) int {
		return cmp.Or(
			strings.Compare(a.path, b.path),
			cmp.Compare(a.pos.Line, b.pos.Line),
			cmp.Compare(a.pos.Col, b.pos.Col),
			cmp.Compare(b.sev, a.sev),
			strings.Compare(a.code, b.code),
		)
	})

	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", strings.ToLower(l.sev.String()), l.code, l.path, l.pos.Line, l.pos.Col, l.msg)
	}
	return b.String()
}
