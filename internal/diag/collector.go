package diag

import (
	"cmp"
	"slices"

	"vellum/internal/source"
)

type seenKey struct {
	code  Code
	sev   Severity
	file  source.VirtualID
	start uint32
	end   uint32
	msg   string
}

// Collector gathers the diagnostics of one compilation. A problem reported
// twice at the same span (a file included twice) is kept once.
type Collector struct {
	items  []Diagnostic
	seen   map[seenKey]struct{}
	errors int
}

func NewCollector() *Collector {
	return &Collector{seen: make(map[seenKey]struct{})}
}

func (c *Collector) Report(d Diagnostic) {
	key := seenKey{d.Code, d.Severity, d.Primary.ID, d.Primary.Start, d.Primary.End, d.Message}
	if _, dup := c.seen[key]; dup {
		return
	}
	c.seen[key] = struct{}{}
	if d.Hints == nil {
		d.Hints = []string{}
	}
	c.items = append(c.items, d)
	if d.Severity >= SevError {
		c.errors++
	}
}

func (c *Collector) Len() int { return len(c.items) }

// Errors counts the error-severity diagnostics.
func (c *Collector) Errors() int { return c.errors }

// Items returns the diagnostics in report order. The slice is shared.
func (c *Collector) Items() []Diagnostic { return c.items }

// Sorted orders the diagnostics by file and position, worst first within a
// span, and returns them.
func (c *Collector) Sorted() []Diagnostic {
	slices.SortStableFunc(c.items, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Primary.ID.String(), b.Primary.ID.String()),
			cmp.Compare(a.Primary.Start, b.Primary.Start),
			cmp.Compare(a.Primary.End, b.Primary.End),
			cmp.Compare(b.Severity, a.Severity),
			cmp.Compare(a.Code, b.Code),
		)
	})
	return c.items
}
