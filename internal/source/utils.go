package source

import (
	"bytes"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	bom  = []byte{0xEF, 0xBB, 0xBF}
	crlf = []byte("\r\n")
)

// Decode turns raw file bytes into source text: a leading BOM is dropped and
// CRLF becomes LF, a lone CR stays. ok is false when the bytes are not valid
// UTF-8.
func Decode(content []byte) (text string, ok bool) {
	content = bytes.TrimPrefix(content, bom)
	if !utf8.Valid(content) {
		return "", false
	}
	if bytes.Contains(content, crlf) {
		content = bytes.ReplaceAll(content, crlf, []byte("\n"))
	}
	return string(content), true
}

func buildLineIndex(text string, base uint32, out []uint32) []uint32 {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			out = append(out, base+uint32(i))
		}
	}
	return out
}

func toLineCol(lineIdx []uint32, off uint32) LineCol {
	if len(lineIdx) == 0 {
		return LineCol{Line: 1, Col: off + 1}
	}

	// largest lineIdx[i] < off
	lo, hi := 0, len(lineIdx)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		if lineIdx[mid] < off {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	line := hi + 1 // 0-based

	var startOff uint32
	if line > 0 {
		startOff = lineIdx[line-1] + 1
	}

	return LineCol{Line: uint32(line + 1), Col: off - startOff + 1}
}

// CleanVirtualPath returns the rooted, slash separated, NFC form of p.
// ok is false when ".." would climb above the root.
func CleanVirtualPath(p string) (string, bool) {
	p = norm.NFC.String(strings.ReplaceAll(p, `\`, "/"))
	depth := 0
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return "", false
			}
		default:
			depth++
		}
	}
	return path.Clean("/" + p), true
}

// CharRange converts the byte range [start, end) of text into a rune range.
// Out of bounds offsets are clamped and offsets inside a multi-byte rune move
// back to its first byte.
func CharRange(text string, start, end int) (int, int) {
	start = runeStart(text, min(max(start, 0), len(text)))
	end = runeStart(text, min(max(end, start), len(text)))
	first := utf8.RuneCountInString(text[:start])
	return first, first + utf8.RuneCountInString(text[start:end])
}

func runeStart(text string, off int) int {
	for off > 0 && off < len(text) && !utf8.RuneStart(text[off]) {
		off--
	}
	return off
}
