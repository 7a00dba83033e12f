package markup

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"vellum/internal/diag"
	"vellum/internal/source"
)

const maxHeadingLevel = 6

var lengthUnits = map[string]bool{"pt": true, "mm": true, "cm": true, "in": true, "em": true}

type parser struct {
	c    cursor
	rep  diag.Reporter
	para *paragraph
	text strings.Builder
	out  []block
}

// parse splits src into headings and paragraphs. Problems are reported to
// rep; the offending text is dropped and parsing continues on the same line.
func parse(src *source.Source, rep diag.Reporter) []block {
	p := &parser{c: newCursor(src), rep: rep}
	for !p.c.eof() {
		lineStart := p.c.mark()
		p.c.skipSpaces()
		switch {
		case p.c.atLineEnd():
			p.flushParagraph()
			p.c.skipLine()
		case p.c.hasPrefix("//"):
			p.c.skipLine()
		case p.c.peek() == '=' && p.isHeading():
			p.flushParagraph()
			p.heading()
		default:
			if p.para == nil {
				p.para = &paragraph{span: p.c.spanFrom(lineStart)}
			}
			p.para.body = p.inline(p.para.body)
			p.para.span.End = p.c.off
		}
	}
	p.flushParagraph()
	return p.out
}

func (p *parser) flushParagraph() {
	if p.para == nil {
		return
	}
	// trailing soft break from the last line
	if n := len(p.para.body); n > 0 && p.para.body[n-1].call == nil {
		p.para.body[n-1].text = strings.TrimRight(p.para.body[n-1].text, "\n")
	}
	p.out = append(p.out, p.para)
	p.para = nil
}

func (p *parser) isHeading() bool {
	n := uint32(0)
	for p.c.peekAt(n) == '=' {
		n++
	}
	if n > maxHeadingLevel {
		return false
	}
	next := p.c.peekAt(n)
	return next == ' ' || next == '\t' || next == '\n' || next == 0
}

func (p *parser) heading() {
	start := p.c.mark()
	level := 0
	for p.c.eat('=') {
		level++
	}
	h := &heading{level: level, marker: p.c.spanFrom(start)}
	p.c.skipSpaces()
	h.body = p.inline(nil)
	h.span = p.c.spanFrom(start)
	if n := len(h.body); n > 0 && h.body[n-1].call == nil {
		h.body[n-1].text = strings.TrimRight(h.body[n-1].text, " \t\n")
		if h.body[n-1].text == "" {
			h.body = h.body[:n-1]
		}
	}
	if len(h.body) == 0 {
		diag.ReportWarning(p.rep, diag.SynEmptyHeading, h.marker, "heading has no content").
			WithHint("write text after the '=' markers").
			Emit()
	}
	p.out = append(p.out, h)
}

// inline reads markup up to and including the end of the line, appending to
// segs. Calls may span several lines inside their argument list.
func (p *parser) inline(segs []segment) []segment {
	p.text.Reset()
	flush := func() {
		if p.text.Len() == 0 {
			return
		}
		if n := len(segs); n > 0 && segs[n-1].call == nil {
			segs[n-1].text += p.text.String()
		} else {
			segs = append(segs, segment{text: p.text.String()})
		}
		p.text.Reset()
	}

	for !p.c.eof() {
		b := p.c.peek()
		switch {
		case b == '\n':
			p.c.bump()
			p.text.WriteByte('\n')
			flush()
			return segs
		case b == '\\' && p.c.peekAt(1) == '#':
			p.c.bump()
			p.c.bump()
			p.text.WriteByte('#')
		case b == '/' && p.c.peekAt(1) == '/' && p.atWordStart():
			// comment to end of line
			for !p.c.eof() && p.c.peek() != '\n' {
				p.c.bump()
			}
		case b == '#':
			if c, ok := p.call(); ok {
				flush()
				segs = append(segs, segment{call: c})
			}
		default:
			p.text.WriteRune(p.c.bumpRune())
		}
	}
	flush()
	return segs
}

func (p *parser) atWordStart() bool {
	if p.c.off == 0 {
		return true
	}
	prev := p.c.text[p.c.off-1]
	return prev == ' ' || prev == '\t' || prev == '\n'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || r == '-' || unicode.IsDigit(r)
}

func (p *parser) ident() string {
	start := p.c.mark()
	for {
		r, n := p.c.peekRune()
		if n == 0 || !isIdentPart(r) {
			break
		}
		p.c.bumpRune()
	}
	return p.c.slice(start)
}

// call parses "#name(args)" at the cursor. On failure a diagnostic has been
// reported and the cursor is past the bad text.
func (p *parser) call() (*call, bool) {
	start := p.c.mark()
	p.c.bump() // '#'

	r, n := p.c.peekRune()
	if n == 0 || !isIdentStart(r) {
		if n > 0 && r != '\n' && !unicode.IsSpace(r) {
			p.c.bumpRune()
		}
		diag.ReportError(p.rep, diag.LexUnknownChar, p.c.spanFrom(start),
			fmt.Sprintf("unexpected %s after '#'", describeRune(r, n))).
			WithHint(`use \# for a literal '#'`).
			Emit()
		return nil, false
	}

	c := &call{name: p.ident()}
	c.nameSpan = p.c.spanFrom(start)
	if !p.c.eat('(') {
		diag.ReportError(p.rep, diag.SynUnexpectedToken, c.nameSpan,
			fmt.Sprintf("expected argument list after #%s", c.name)).
			WithHint(fmt.Sprintf("write #%s() to call it", c.name)).
			Emit()
		return nil, false
	}

	for {
		p.skipWS()
		if p.c.eat(')') {
			break
		}
		if p.c.eof() {
			diag.ReportError(p.rep, diag.SynUnclosedParen, p.c.spanFrom(start), "unclosed argument list").Emit()
			return nil, false
		}
		a, ok := p.arg()
		if !ok {
			p.recoverCall()
			return nil, false
		}
		c.args = append(c.args, a)
		p.skipWS()
		if p.c.eat(',') || p.c.peek() == ')' {
			continue
		}
		if p.c.eof() {
			diag.ReportError(p.rep, diag.SynUnclosedParen, p.c.spanFrom(start), "unclosed argument list").Emit()
			return nil, false
		}
		at := p.c.mark()
		p.c.bumpRune()
		diag.ReportError(p.rep, diag.SynUnexpectedToken, p.c.spanFrom(at), "expected ',' or ')'").Emit()
		p.recoverCall()
		return nil, false
	}
	c.span = p.c.spanFrom(start)
	return c, true
}

// recoverCall skips to the closing ')' on the current line.
func (p *parser) recoverCall() {
	for !p.c.eof() {
		switch p.c.peek() {
		case '\n':
			return
		case ')':
			p.c.bump()
			return
		}
		p.c.bumpRune()
	}
}

func (p *parser) skipWS() {
	for b := p.c.peek(); b == ' ' || b == '\t' || b == '\n' || b == '\r'; b = p.c.peek() {
		p.c.bump()
	}
}

func (p *parser) arg() (arg, bool) {
	start := p.c.mark()
	if r, n := p.c.peekRune(); n > 0 && isIdentStart(r) {
		name := p.ident()
		p.c.skipSpaces()
		if p.c.eat(':') {
			p.skipWS()
			v, ok := p.value()
			return arg{name: name, val: v, span: p.c.spanFrom(start)}, ok
		}
		p.c.reset(start)
	}
	v, ok := p.value()
	return arg{val: v, span: p.c.spanFrom(start)}, ok
}

func (p *parser) value() (value, bool) {
	start := p.c.mark()
	r, n := p.c.peekRune()
	switch {
	case r == '"':
		return p.str()
	case r == '-' || r == '.' || (r >= '0' && r <= '9'):
		return p.number()
	case n > 0 && isIdentStart(r):
		name := p.ident()
		v := value{kind: valIdent, str: name, span: p.c.spanFrom(start)}
		if name == "true" || name == "false" {
			v.kind, v.b = valBool, name == "true"
		}
		return v, true
	}
	if n > 0 && r != '\n' {
		p.c.bumpRune()
	}
	diag.ReportError(p.rep, diag.SynExpectValue, p.c.spanFrom(start),
		fmt.Sprintf("expected a value, found %s", describeRune(r, n))).Emit()
	return value{}, false
}

func (p *parser) str() (value, bool) {
	start := p.c.mark()
	p.c.bump() // '"'
	var b strings.Builder
	for {
		if p.c.eof() || p.c.peek() == '\n' {
			diag.ReportError(p.rep, diag.LexUnterminatedString, p.c.spanFrom(start), "unterminated string").
				WithHint(`close the string with '"'`).
				Emit()
			return value{}, false
		}
		r := p.c.bumpRune()
		switch r {
		case '"':
			return value{kind: valStr, str: b.String(), span: p.c.spanFrom(start)}, true
		case '\\':
			esc := p.c.mark()
			switch e := p.c.bumpRune(); e {
			case '"', '\\':
				b.WriteRune(e)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				diag.ReportError(p.rep, diag.LexBadEscape, source.Span{ID: p.c.id, Start: uint32(esc) - 1, End: p.c.off},
					fmt.Sprintf("unknown escape sequence \\%c", e)).Emit()
				return value{}, false
			}
		default:
			b.WriteRune(r)
		}
	}
}

func (p *parser) number() (value, bool) {
	start := p.c.mark()
	p.c.eat('-')
	digits := p.c.mark()
	for b := p.c.peek(); (b >= '0' && b <= '9') || b == '.'; b = p.c.peek() {
		p.c.bump()
	}
	numText := p.c.slice(start)
	hasDigits := p.c.off > uint32(digits)
	unitStart := p.c.mark()
	for b := p.c.peek(); (b >= 'a' && b <= 'z') || b == '%'; b = p.c.peek() {
		p.c.bump()
	}
	unit := p.c.slice(unitStart)
	sp := p.c.spanFrom(start)

	num, err := strconv.ParseFloat(numText, 64)
	if !hasDigits || err != nil {
		diag.ReportError(p.rep, diag.LexBadNumber, sp, fmt.Sprintf("malformed number %q", p.c.slice(start))).Emit()
		return value{}, false
	}
	switch {
	case unit == "":
		return value{kind: valNum, num: num, span: sp}, true
	case lengthUnits[unit]:
		return value{kind: valLen, num: num, unit: unit, span: sp}, true
	}
	diag.ReportError(p.rep, diag.LexBadNumber, sp, fmt.Sprintf("unknown unit %q", unit)).
		WithHint("lengths use pt, mm, cm, in or em").
		Emit()
	return value{}, false
}

func describeRune(r rune, n int) string {
	switch {
	case n == 0:
		return "end of file"
	case r == '\n':
		return "end of line"
	case unicode.IsSpace(r):
		return "whitespace"
	}
	return fmt.Sprintf("%q", r)
}
