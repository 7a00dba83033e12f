// Package fonts discovers font files once at startup and exposes them as a
// read-only table. Font data is loaded lazily on first use.
package fonts

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"unicode"

	"vellum/internal/layout"
)

// Families that are always present. They carry no data and are rendered
// through the viewer's generic CSS families.
const (
	DefaultFamily = "Serif"
	SansFamily    = "Sans"
	MonoFamily    = "Mono"
)

type Info struct {
	Family string
	Weight layout.Weight
	Style  layout.Style
	Path   string // empty for builtin families
}

// Font is a table entry. Data reads the file on first call and memoizes the
// outcome, error included.
type Font struct {
	Info Info
	data func() ([]byte, error)
}

func newFont(info Info) *Font {
	f := &Font{Info: info}
	if info.Path == "" {
		f.data = func() ([]byte, error) { return nil, nil }
		return f
	}
	f.data = sync.OnceValues(func() ([]byte, error) {
		return os.ReadFile(info.Path)
	})
	return f
}

func (f *Font) Data() ([]byte, error) {
	return f.data()
}

// Book indexes font infos by lower-cased family name.
type Book struct {
	infos    []Info
	byFamily map[string][]int
}

func newBook(infos []Info) *Book {
	b := &Book{infos: infos, byFamily: make(map[string][]int)}
	for i, info := range infos {
		key := strings.ToLower(info.Family)
		b.byFamily[key] = append(b.byFamily[key], i)
	}
	return b
}

func (b *Book) Len() int { return len(b.infos) }

func (b *Book) Info(i int) (Info, bool) {
	if i < 0 || i >= len(b.infos) {
		return Info{}, false
	}
	return b.infos[i], true
}

// Has reports whether any face of family exists.
func (b *Book) Has(family string) bool {
	_, ok := b.byFamily[strings.ToLower(family)]
	return ok
}

// Select picks the face of family closest to weight and style: an exact
// match first, then the same style, then any face of the family.
func (b *Book) Select(family string, weight layout.Weight, style layout.Style) (int, bool) {
	idx, ok := b.byFamily[strings.ToLower(family)]
	if !ok {
		return 0, false
	}
	best, score := idx[0], -1
	for _, i := range idx {
		s := 0
		if b.infos[i].Style == style {
			s += 2
		}
		if b.infos[i].Weight == weight {
			s++
		}
		if s > score {
			best, score = i, s
		}
	}
	return best, true
}

// Families returns the sorted distinct family names.
func (b *Book) Families() []string {
	seen := make(map[string]struct{}, len(b.byFamily))
	out := make([]string, 0, len(b.byFamily))
	for _, info := range b.infos {
		if _, ok := seen[info.Family]; ok {
			continue
		}
		seen[info.Family] = struct{}{}
		out = append(out, info.Family)
	}
	slices.Sort(out)
	return out
}

// Table pairs a Book with the loadable fonts it describes; Font(i) matches Info(i).
type Table struct {
	book  *Book
	fonts []*Font
}

func NewTable(infos []Info) *Table {
	t := &Table{book: newBook(infos), fonts: make([]*Font, len(infos))}
	for i, info := range infos {
		t.fonts[i] = newFont(info)
	}
	return t
}

// Builtin returns a table with only the builtin families.
func Builtin() *Table {
	return NewTable(builtinInfos())
}

func builtinInfos() []Info {
	var infos []Info
	for _, fam := range []string{DefaultFamily, SansFamily, MonoFamily} {
		for _, w := range []layout.Weight{layout.Regular, layout.Bold} {
			infos = append(infos, Info{Family: fam, Weight: w, Style: layout.Normal})
			infos = append(infos, Info{Family: fam, Weight: w, Style: layout.Italic})
		}
	}
	return infos
}

func (t *Table) Book() *Book { return t.book }

func (t *Table) Font(i int) (*Font, bool) {
	if i < 0 || i >= len(t.fonts) {
		return nil, false
	}
	return t.fonts[i], true
}

var fontExts = map[string]bool{".ttf": true, ".otf": true, ".ttc": true, ".otc": true}

// infoFromFile derives an Info from a conventional file name such as
// "SourceSerif4-BoldItalic.otf". ok is false for non-font files.
func infoFromFile(path string) (Info, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if !fontExts[ext] {
		return Info{}, false
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	family, variant, _ := strings.Cut(base, "-")
	info := Info{Family: splitWords(family), Path: path}
	v := strings.ToLower(variant)
	if strings.Contains(v, "bold") || strings.Contains(v, "black") || strings.Contains(v, "heavy") {
		info.Weight = layout.Bold
	}
	if strings.Contains(v, "italic") || strings.Contains(v, "oblique") {
		info.Style = layout.Italic
	}
	if info.Family == "" {
		return Info{}, false
	}
	return info, true
}

// splitWords turns "SourceSerif4" or "source_serif" into "Source Serif4" / "source serif".
func splitWords(s string) string {
	s = strings.NewReplacer("_", " ", ".", " ").Replace(s)
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
