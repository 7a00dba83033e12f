package markup

import (
	"strconv"

	"vellum/internal/source"
)

type block interface {
	blockSpan() source.Span
}

type heading struct {
	level  int
	marker source.Span // the run of '='
	body   []segment
	span   source.Span
}

type paragraph struct {
	body []segment
	span source.Span
}

func (h *heading) blockSpan() source.Span   { return h.span }
func (p *paragraph) blockSpan() source.Span { return p.span }

// segment is either a piece of inline markup or a call.
type segment struct {
	text string
	call *call
}

type call struct {
	name     string
	nameSpan source.Span // includes the '#'
	args     []arg
	span     source.Span
}

// named returns the argument called name.
func (c *call) named(name string) (arg, bool) {
	for _, a := range c.args {
		if a.name == name {
			return a, true
		}
	}
	return arg{}, false
}

// positional returns the i-th unnamed argument.
func (c *call) positional(i int) (arg, bool) {
	n := 0
	for _, a := range c.args {
		if a.name != "" {
			continue
		}
		if n == i {
			return a, true
		}
		n++
	}
	return arg{}, false
}

type arg struct {
	name string // empty for positional arguments
	val  value
	span source.Span
}

type valueKind uint8

const (
	valStr valueKind = iota + 1
	valNum
	valLen
	valBool
	valIdent
)

func (k valueKind) String() string {
	switch k {
	case valStr:
		return "string"
	case valNum:
		return "number"
	case valLen:
		return "length"
	case valBool:
		return "boolean"
	case valIdent:
		return "identifier"
	}
	return "value"
}

type value struct {
	kind valueKind
	str  string // string contents, identifier name
	num  float64
	unit string // for lengths: pt, mm, cm, in, em
	b    bool
	span source.Span
}

func (v value) String() string {
	switch v.kind {
	case valStr:
		return strconv.Quote(v.str)
	case valNum:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case valLen:
		return strconv.FormatFloat(v.num, 'g', -1, 64) + v.unit
	case valBool:
		return strconv.FormatBool(v.b)
	}
	return v.str
}
