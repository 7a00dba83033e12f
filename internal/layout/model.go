package layout

import "fmt"

// Pt is a length in typographic points (1/72 in).
type Pt float64

const (
	Mm Pt = 72 / 25.4
	Cm Pt = 10 * Mm
	In Pt = 72
)

func (p Pt) String() string { return fmt.Sprintf("%.2fpt", float64(p)) }

type Size struct {
	W, H Pt
}

type Point struct {
	X, Y Pt
}

type Color struct {
	R, G, B, A uint8
}

var (
	Black = Color{A: 255}
	Gray  = Color{R: 128, G: 128, B: 128, A: 255}
)

// Hex formats c as #rrggbb, dropping alpha.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Item is one visual element of a frame.
type Item interface {
	isItem()
}

// Positioned places an item at a point relative to the frame origin.
type Positioned struct {
	Pos  Point
	Item Item
}

// Frame is a fixed-size container of positioned items.
type Frame struct {
	Size  Size
	Items []Positioned
}

func (f *Frame) Push(pos Point, it Item) {
	f.Items = append(f.Items, Positioned{Pos: pos, Item: it})
}

// Text is a shaped run of glyphs on one baseline.
type Text struct {
	Font   string
	Size   Pt
	Fill   Color
	Weight Weight
	Style  Style
	Width  Pt
	Link   string
	Text   string
}

type Weight uint8

const (
	Regular Weight = iota
	Bold
)

type Style uint8

const (
	Normal Style = iota
	Italic
	Mono
)

type ShapeKind uint8

const (
	ShapeLine ShapeKind = iota
	ShapeRect
)

// Shape is a stroked line (from the origin to Size) or an axis aligned rectangle.
type Shape struct {
	Kind      ShapeKind
	Size      Size
	Stroke    Color
	Thickness Pt
	Fill      *Color
}

// Image is an embedded raster image scaled to Size.
type Image struct {
	Size   Size
	Format string // "png", "jpeg", "gif", "svg"
	Data   []byte
	Alt    string
}

// Group nests a frame, for example a block that was laid out as a unit.
type Group struct {
	Frame Frame
}

func (Text) isItem()  {}
func (Shape) isItem() {}
func (Image) isItem() {}
func (Group) isItem() {}

type Page struct {
	Frame  Frame
	Number int // 1-based
}

type Document struct {
	Title string
	Pages []Page
}

// Size returns the size of the first page, or zero for an empty document.
func (d *Document) Size() Size {
	if d == nil || len(d.Pages) == 0 {
		return Size{}
	}
	return d.Pages[0].Frame.Size
}
