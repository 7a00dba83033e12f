package source

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// Source is the parsed text of one file together with its line index.
//
// Text and the line index are never mutated in place: Replace swaps in new
// values, so a Clone taken earlier stays valid.
type Source struct {
	id    VirtualID
	text  string
	lines []uint32 // offsets of '\n'
	rev   uint64
}

// New builds a Source for id.
func New(id VirtualID, text string) *Source {
	mustFit(len(text))
	return &Source{
		id:    id,
		text:  text,
		lines: buildLineIndex(text, 0, make([]uint32, 0, strings.Count(text, "\n"))),
	}
}

func mustFit(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("source length overflow: %w", err))
	}
	return v
}

// ID returns the file the text belongs to.
func (s *Source) ID() VirtualID { return s.id }

// Text returns the full text.
func (s *Source) Text() string { return s.text }

// Len returns the text length in bytes.
func (s *Source) Len() int { return len(s.text) }

// Revision counts effective replacements.
func (s *Source) Revision() uint64 { return s.rev }

// Clone returns a snapshot sharing the immutable text and index.
func (s *Source) Clone() *Source {
	c := *s
	return &c
}

// Replace swaps the text for text, keeping the line index entries of the
// unchanged prefix. It reports whether anything changed.
func (s *Source) Replace(text string) bool {
	if text == s.text {
		return false
	}
	mustFit(len(text))

	prefix := commonPrefix(s.text, text)
	// back up to the start of the line that contains the first change
	lineStart := strings.LastIndexByte(text[:prefix], '\n') + 1
	keep := 0
	for keep < len(s.lines) && int(s.lines[keep]) < lineStart {
		keep++
	}
	lines := make([]uint32, keep, keep+strings.Count(text[lineStart:], "\n"))
	copy(lines, s.lines[:keep])

	s.lines = buildLineIndex(text[lineStart:], uint32(lineStart), lines)
	s.text = text
	s.rev++
	return true
}

func commonPrefix(a, b string) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// LineCount returns the number of lines (at least 1).
func (s *Source) LineCount() int { return len(s.lines) + 1 }

// LineCol converts a byte offset into a 1-based position.
func (s *Source) LineCol(off uint32) LineCol {
	return toLineCol(s.lines, off)
}

// Line returns the 1-based line n without its newline, or "" if out of range.
func (s *Source) Line(n uint32) string {
	if n == 0 || int(n) > len(s.lines)+1 {
		return ""
	}
	var start uint32
	if n > 1 {
		start = s.lines[n-2] + 1
	}
	end := mustFit(len(s.text))
	if int(n) <= len(s.lines) {
		end = s.lines[n-1]
	}
	if start > end {
		return ""
	}
	return s.text[start:end]
}

// Range returns the byte range of span if it belongs to this source and lies
// within the text.
func (s *Source) Range(span Span) (start, end int, ok bool) {
	if span.ID != s.id || span.End < span.Start || int(span.End) > len(s.text) {
		return 0, 0, false
	}
	return int(span.Start), int(span.End), true
}
