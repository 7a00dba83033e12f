package diagfmt

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"vellum/internal/diag"
	"vellum/internal/source"
)

const tabWidth = 4

type palette struct {
	sev    map[diag.Severity]*color.Color
	gutter *color.Color
	caret  *color.Color
	hint   *color.Color
	bold   *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgBlue, color.Bold),
		},
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgRed, color.Bold),
		hint:   color.New(color.FgCyan),
		bold:   color.New(color.Bold),
	}
	all := []*color.Color{p.gutter, p.caret, p.hint, p.bold}
	for _, c := range p.sev {
		all = append(all, c)
	}
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// ShouldColor reports whether output to f should be colored: it must be a
// terminal and NO_COLOR must be unset.
func ShouldColor(f *os.File) bool {
	if f == nil || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Pretty форматирует диагностики в человекочитаемый вид:
//
//	chapters/intro.vel:3:7: ERROR LEX1001: unexpected character
//	   3 | Grüße #€ welt
//	     |       ^^
//	     = hint: ...
//
// Diagnostics print in the given order. Without a source for the file only
// the header line is written.
func Pretty(w io.Writer, diags []diag.Diagnostic, lookup diag.SourceLookup, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	for i := range diags {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, &diags[i], lookup, opts, pal)
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, lookup diag.SourceLookup, opts PrettyOpts, pal palette) {
	var src *source.Source
	if lookup != nil {
		src = lookup(d.Primary.ID)
	}
	start, end, ok := 0, 0, false
	if src != nil {
		start, end, ok = src.Range(d.Primary)
	}

	loc := formatPath(d.Primary.ID, opts.PathMode, opts.Root)
	var lc source.LineCol
	if ok {
		lc = src.LineCol(uint32(start))
		loc = fmt.Sprintf("%s:%d:%d", loc, lc.Line, lc.Col)
	}
	msg := d.Message
	if opts.Width > 0 {
		msg = runewidth.Truncate(msg, int(opts.Width), "...")
	}
	sevColor := pal.sev[d.Severity]
	if sevColor == nil {
		sevColor = pal.bold
	}
	fmt.Fprintf(w, "%s: %s %s: %s\n",
		pal.bold.Sprint(loc), sevColor.Sprint(d.Severity.String()), d.Code.ID(), msg)

	if ok {
		writeSnippet(w, src, lc.Line, start, end, int(opts.Context), pal)
	}

	if opts.NoHints {
		return
	}
	pad := strings.Repeat(" ", gutterWidth(src, lc.Line, int(opts.Context)))
	for _, h := range d.Hints {
		fmt.Fprintf(w, "%s %s %s\n", pad, pal.gutter.Sprint("="), pal.hint.Sprint("hint: "+h))
	}
}

func gutterWidth(src *source.Source, line uint32, context int) int {
	if src == nil {
		return 4
	}
	last := min(int(line)+max(context, 0), src.LineCount())
	return max(len(fmt.Sprint(last)), 3) + 1
}

func writeSnippet(w io.Writer, src *source.Source, line uint32, start, end, context int, pal palette) {
	context = max(context, 0)
	first := max(int(line)-context, 1)
	last := min(int(line)+context, src.LineCount())
	width := gutterWidth(src, line, context)

	for n := first; n <= last; n++ {
		text := src.Line(uint32(n))
		fmt.Fprintf(w, "%s %s\n", pal.gutter.Sprintf("%*d |", width, n), expandTabs(text))
		if n != int(line) {
			continue
		}
		lineStart := start - int(src.LineCol(uint32(start)).Col) + 1
		col := start - lineStart
		stop := min(end-lineStart, len(text))
		prefix := runewidth.StringWidth(expandTabs(text[:col]))
		carets := max(runewidth.StringWidth(expandTabs(text[col:max(stop, col)])), 1)
		fmt.Fprintf(w, "%s %s%s\n",
			pal.gutter.Sprintf("%*s |", width, ""),
			strings.Repeat(" ", prefix),
			pal.caret.Sprint(strings.Repeat("^", carets)))
	}
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}
