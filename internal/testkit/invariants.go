// Package testkit holds invariant checks shared by tests of several packages.
package testkit

import (
	"fmt"
	"unicode/utf8"

	"vellum/internal/events"
	"vellum/internal/layout"
)

const eps = 0.001

// CheckDocument runs the structural invariants of a laid out document:
// 1) pages are numbered 1..n and have a positive size
// 2) every item origin lies inside its frame, groups included
// 3) text runs end inside the frame width
// 4) the fingerprint is deterministic
func CheckDocument(doc *layout.Document) error {
	if doc == nil {
		return fmt.Errorf("nil document")
	}
	for i := range doc.Pages {
		p := &doc.Pages[i]
		if p.Number != i+1 {
			return fmt.Errorf("page %d is numbered %d", i, p.Number)
		}
		if p.Frame.Size.W <= 0 || p.Frame.Size.H <= 0 {
			return fmt.Errorf("page %d has size %vx%v", p.Number, p.Frame.Size.W, p.Frame.Size.H)
		}
		if err := checkFrame(&p.Frame, fmt.Sprintf("page %d", p.Number)); err != nil {
			return err
		}
	}
	if a, b := doc.Fingerprint(), doc.Fingerprint(); a != b {
		return fmt.Errorf("fingerprint not deterministic: %x != %x", a, b)
	}
	return nil
}

func checkFrame(f *layout.Frame, where string) error {
	for j, it := range f.Items {
		if it.Pos.X < -eps || it.Pos.Y < -eps || it.Pos.X > f.Size.W+eps || it.Pos.Y > f.Size.H+eps {
			return fmt.Errorf("%s item %d at (%v, %v) outside %vx%v", where, j, it.Pos.X, it.Pos.Y, f.Size.W, f.Size.H)
		}
		switch v := it.Item.(type) {
		case layout.Text:
			if it.Pos.X+v.Width > f.Size.W+eps {
				return fmt.Errorf("%s text %q overflows: x=%v width=%v", where, v.Text, it.Pos.X, v.Width)
			}
		case layout.Group:
			if err := checkFrame(&v.Frame, fmt.Sprintf("%s group %d", where, j)); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckRanges verifies that every diagnostic range is a non-empty or empty
// half-open character range inside content.
func CheckRanges(content string, diags []events.Diagnostic) error {
	n := utf8.RuneCountInString(content)
	for i, d := range diags {
		start, end := d.Range[0], d.Range[1]
		if start < 0 || end < start || end > n {
			return fmt.Errorf("diagnostic %d (%s) has range [%d, %d) over %d characters", i, d.Code, start, end, n)
		}
		if d.Hints == nil {
			return fmt.Errorf("diagnostic %d (%s) has nil hints", i, d.Code)
		}
	}
	return nil
}
