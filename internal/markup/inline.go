package markup

import (
	"github.com/yuin/goldmark/ast"
	gmparser "github.com/yuin/goldmark/parser"
	gtext "github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"vellum/internal/layout"
)

// run is a stretch of text with uniform styling.
type run struct {
	text   string
	weight layout.Weight
	style  layout.Style
	link   string
	brk    bool // hard line break, text is empty
}

// newInlineParser returns a goldmark parser that only knows paragraphs, so
// that block syntax ('#', '-', '>') in the text stays literal.
func newInlineParser() gmparser.Parser {
	return gmparser.NewParser(
		gmparser.WithBlockParsers(util.Prioritized(gmparser.NewParagraphParser(), 1000)),
		gmparser.WithInlineParsers(gmparser.DefaultInlineParsers()...),
		gmparser.WithParagraphTransformers(gmparser.DefaultParagraphTransformers()...),
	)
}

// inlineRuns parses CommonMark inline markup into styled runs.
func inlineRuns(p gmparser.Parser, text string) []run {
	src := []byte(text)
	root := p.Parse(gtext.NewReader(src))

	var runs []run
	emit := func(st run, s string) {
		if s == "" {
			return
		}
		st.text = s
		runs = append(runs, st)
	}

	var walk func(n ast.Node, st run)
	walk = func(n ast.Node, st run) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch v := c.(type) {
			case *ast.Text:
				emit(st, string(util.UnescapePunctuations(v.Segment.Value(src))))
				switch {
				case v.HardLineBreak():
					runs = append(runs, run{brk: true})
				case v.SoftLineBreak():
					emit(st, " ")
				}
			case *ast.String:
				emit(st, string(v.Value))
			case *ast.Emphasis:
				inner := st
				if v.Level >= 2 {
					inner.weight = layout.Bold
				} else {
					inner.style = layout.Italic
				}
				walk(v, inner)
			case *ast.CodeSpan:
				inner := st
				inner.style = layout.Mono
				for t := v.FirstChild(); t != nil; t = t.NextSibling() {
					if seg, ok := t.(*ast.Text); ok {
						emit(inner, string(seg.Segment.Value(src)))
					}
				}
			case *ast.Link:
				inner := st
				inner.link = string(v.Destination)
				walk(v, inner)
			case *ast.AutoLink:
				inner := st
				inner.link = string(v.URL(src))
				emit(inner, string(v.Label(src)))
			case *ast.RawHTML:
				for i := 0; i < v.Segments.Len(); i++ {
					seg := v.Segments.At(i)
					emit(st, string(seg.Value(src)))
				}
			default:
				walk(c, st)
			}
		}
	}
	walk(root, run{})
	return runs
}
