package markup

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"

	"vellum/internal/layout"
)

const (
	defaultPageW  layout.Pt = 595
	defaultPageH  layout.Pt = 842
	defaultMargin layout.Pt = 56
	defaultSize   layout.Pt = 11
	lineHeight              = 1.4
)

// style is the state that #set changes.
type style struct {
	family string
	size   layout.Pt
	pageW  layout.Pt
	pageH  layout.Pt
	margin layout.Pt
}

func defaultStyle(family string) style {
	return style{
		family: family,
		size:   defaultSize,
		pageW:  defaultPageW,
		pageH:  defaultPageH,
		margin: defaultMargin,
	}
}

// advance is the width of r at size: wide runes take 1em, narrow ones 0.5em.
func advance(r rune, size layout.Pt) layout.Pt {
	return size * layout.Pt(runewidth.RuneWidth(r)) / 2
}

func textWidth(s string, size layout.Pt) layout.Pt {
	var w layout.Pt
	for _, r := range s {
		w += advance(r, size)
	}
	return w
}

type piece struct {
	text   string
	weight layout.Weight
	style  layout.Style
	link   string
}

func (p piece) sameStyle(o piece) bool {
	return p.weight == o.weight && p.style == o.style && p.link == o.link
}

// word is an unbreakable unit; a nil word is a forced line break.
type word []piece

func (w word) width(size layout.Pt) layout.Pt {
	var total layout.Pt
	for _, p := range w {
		total += textWidth(p.text, size)
	}
	return total
}

// splitWords breaks styled runs at whitespace. base is merged into every run.
func splitWords(runs []run, base layout.Weight) []word {
	var (
		words []word
		cur   word
		b     strings.Builder
		attrs piece
	)
	flushPiece := func() {
		if b.Len() == 0 {
			return
		}
		p := attrs
		p.text = b.String()
		cur = append(cur, p)
		b.Reset()
	}
	flushWord := func() {
		flushPiece()
		if len(cur) > 0 {
			words = append(words, cur)
			cur = nil
		}
	}

	for _, r := range runs {
		if r.brk {
			flushWord()
			words = append(words, nil)
			continue
		}
		next := piece{weight: max(r.weight, base), style: r.style, link: r.link}
		if !next.sameStyle(attrs) {
			flushPiece()
			attrs = next
		}
		for _, ch := range r.text {
			if unicode.IsSpace(ch) {
				flushWord()
				continue
			}
			b.WriteRune(ch)
		}
	}
	flushWord()
	return words
}
