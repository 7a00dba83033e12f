package markup

import (
	gmparser "github.com/yuin/goldmark/parser"

	"vellum/internal/diag"
	"vellum/internal/fonts"
	"vellum/internal/layout"
	"vellum/internal/source"
)

const maxIncludeDepth = 64

// engine evaluates blocks and lays them out onto pages as it goes.
type engine struct {
	world World
	rep   diag.Reporter
	md    gmparser.Parser

	st      style
	files   []source.VirtualID // include stack, innermost last
	aborted bool

	title string
	pages []layout.Page
	frame *layout.Frame
	y     layout.Pt
	empty bool // nothing placed on the current page yet
}

func newEngine(w World, rep diag.Reporter) *engine {
	e := &engine{
		world: w,
		rep:   rep,
		md:    newInlineParser(),
		st:    defaultStyle(fonts.DefaultFamily),
	}
	e.newPage()
	return e
}

func (e *engine) file() source.VirtualID {
	return e.files[len(e.files)-1]
}

func (e *engine) newPage() {
	e.pages = append(e.pages, layout.Page{
		Frame:  layout.Frame{Size: layout.Size{W: e.st.pageW, H: e.st.pageH}},
		Number: len(e.pages) + 1,
	})
	e.frame = &e.pages[len(e.pages)-1].Frame
	e.y = e.st.margin
	e.empty = true
}

// applyPageStyle resizes the current page if nothing was placed on it yet.
func (e *engine) applyPageStyle() {
	if !e.empty {
		return
	}
	e.frame.Size = layout.Size{W: e.st.pageW, H: e.st.pageH}
	e.y = e.st.margin
}

func (e *engine) textWidth() layout.Pt {
	return max(e.st.pageW-2*e.st.margin, e.st.size)
}

// ensure starts a new page unless h more points fit on the current one.
func (e *engine) ensure(h layout.Pt) {
	if !e.empty && e.y+h > e.st.pageH-e.st.margin {
		e.newPage()
	}
}

func (e *engine) place(pos layout.Point, it layout.Item) {
	e.frame.Push(pos, it)
	e.empty = false
}

// gap adds vertical space, dropped at the top of a page.
func (e *engine) gap(h layout.Pt) {
	if e.empty {
		return
	}
	e.y += h
	if e.y > e.st.pageH-e.st.margin {
		e.newPage()
	}
}

func (e *engine) document() *layout.Document {
	return &layout.Document{Title: e.title, Pages: e.pages}
}

// lines lays words out with greedy wrapping.
func (e *engine) lines(words []word, size layout.Pt) {
	avail := e.textWidth()
	space := advance(' ', size)
	var (
		line  []word
		width layout.Pt
	)
	for _, w := range words {
		if w == nil {
			e.line(line, size)
			line, width = nil, 0
			continue
		}
		ww := w.width(size)
		if len(line) > 0 && width+space+ww > avail {
			e.line(line, size)
			line, width = nil, 0
		}
		if len(line) > 0 {
			width += space
		}
		line = append(line, w)
		width += ww
	}
	if len(line) > 0 {
		e.line(line, size)
	}
}

func (e *engine) line(words []word, size layout.Pt) {
	h := size * lineHeight
	e.ensure(h)
	baseline := e.y + size
	x := e.st.margin
	space := advance(' ', size)

	var (
		cur  *layout.Text
		curX layout.Pt
	)
	flush := func() {
		if cur != nil {
			e.place(layout.Point{X: curX, Y: baseline}, *cur)
			cur = nil
		}
	}
	for wi, w := range words {
		for pi, p := range w {
			pw := textWidth(p.text, size)
			sep := wi > 0 && pi == 0
			if sep {
				x += space
			}
			if cur != nil && cur.Weight == p.weight && cur.Style == p.style && cur.Link == p.link {
				if sep {
					cur.Text += " "
				}
				cur.Text += p.text
				cur.Width = x + pw - curX
			} else {
				flush()
				cur = &layout.Text{
					Font:   e.st.family,
					Size:   size,
					Fill:   layout.Black,
					Weight: p.weight,
					Style:  p.style,
					Link:   p.link,
					Text:   p.text,
					Width:  pw,
				}
				curX = x
			}
			x += pw
		}
	}
	flush()
	if len(words) == 0 {
		// forced break on an empty line still takes its height
		e.empty = false
	}
	e.y += h
}
