package markup

import (
	"unicode/utf8"

	"vellum/internal/source"
)

// cursor walks the text of one source file byte by byte.
type cursor struct {
	id   source.VirtualID
	text string
	off  uint32
}

func newCursor(src *source.Source) cursor {
	return cursor{id: src.ID(), text: src.Text()}
}

func (c *cursor) eof() bool {
	return int(c.off) >= len(c.text)
}

// peek читает текущий байт, если есть, иначе возвращает 0
func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.text[c.off]
}

func (c *cursor) peekAt(n uint32) byte {
	if int(c.off+n) >= len(c.text) {
		return 0
	}
	return c.text[c.off+n]
}

func (c *cursor) peekRune() (rune, int) {
	if c.eof() {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(c.text[c.off:])
}

// bump перемещает курсор на один байт вперед и возвращает прочитанный байт
func (c *cursor) bump() byte {
	if c.eof() {
		return 0
	}
	b := c.text[c.off]
	c.off++
	return b
}

func (c *cursor) bumpRune() rune {
	r, n := c.peekRune()
	c.off += uint32(n)
	return r
}

func (c *cursor) eat(b byte) bool {
	if !c.eof() && c.text[c.off] == b {
		c.off++
		return true
	}
	return false
}

func (c *cursor) hasPrefix(s string) bool {
	return int(c.off)+len(s) <= len(c.text) && c.text[c.off:int(c.off)+len(s)] == s
}

// mark это метка, что бы быстро получать Span читаемого фрагмента
type mark uint32

func (c *cursor) mark() mark { return mark(c.off) }

func (c *cursor) spanFrom(m mark) source.Span {
	return source.Span{ID: c.id, Start: uint32(m), End: c.off}
}

func (c *cursor) reset(m mark) { c.off = uint32(m) }

func (c *cursor) slice(m mark) string { return c.text[m:c.off] }

func (c *cursor) skipSpaces() {
	for b := c.peek(); b == ' ' || b == '\t'; b = c.peek() {
		c.off++
	}
}

// skipLine moves past the next newline (or to EOF).
func (c *cursor) skipLine() {
	for !c.eof() {
		if c.bump() == '\n' {
			return
		}
	}
}

// atLineEnd reports whether only spaces remain on the current line.
func (c *cursor) atLineEnd() bool {
	for i := int(c.off); i < len(c.text); i++ {
		switch c.text[i] {
		case ' ', '\t':
		case '\n':
			return true
		default:
			return false
		}
	}
	return true
}
