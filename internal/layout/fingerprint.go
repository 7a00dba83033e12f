package layout

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Fingerprints are structural: two pages with equal fingerprints are assumed
// to render identically. They are order sensitive and detect equality only.

type hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

func newHasher() *hasher {
	return &hasher{d: xxhash.New()}
}

func (h *hasher) u64(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	_, _ = h.d.Write(h.buf[:])
}

func (h *hasher) tag(b byte) {
	h.buf[0] = b
	_, _ = h.d.Write(h.buf[:1])
}

func (h *hasher) pt(p Pt) { h.u64(math.Float64bits(float64(p))) }

func (h *hasher) str(s string) {
	h.u64(uint64(len(s)))
	_, _ = h.d.WriteString(s)
}

func (h *hasher) color(c Color) {
	h.u64(uint64(c.R)<<24 | uint64(c.G)<<16 | uint64(c.B)<<8 | uint64(c.A))
}

func (h *hasher) size(s Size) {
	h.pt(s.W)
	h.pt(s.H)
}

func (h *hasher) frame(f *Frame) {
	h.tag('F')
	h.size(f.Size)
	h.u64(uint64(len(f.Items)))
	for i := range f.Items {
		h.pt(f.Items[i].Pos.X)
		h.pt(f.Items[i].Pos.Y)
		h.item(f.Items[i].Item)
	}
}

func (h *hasher) item(it Item) {
	switch v := it.(type) {
	case Text:
		h.tag('T')
		h.str(v.Font)
		h.pt(v.Size)
		h.color(v.Fill)
		h.tag(byte(v.Weight))
		h.tag(byte(v.Style))
		h.pt(v.Width)
		h.str(v.Link)
		h.str(v.Text)
	case Shape:
		h.tag('S')
		h.tag(byte(v.Kind))
		h.size(v.Size)
		h.color(v.Stroke)
		h.pt(v.Thickness)
		if v.Fill != nil {
			h.tag(1)
			h.color(*v.Fill)
		} else {
			h.tag(0)
		}
	case Image:
		h.tag('I')
		h.size(v.Size)
		h.str(v.Format)
		h.str(v.Alt)
		h.u64(xxhash.Sum64(v.Data))
	case Group:
		h.tag('G')
		h.frame(&v.Frame)
	default:
		h.tag('?')
	}
}

// Fingerprint hashes the page's frame tree.
func (p *Page) Fingerprint() uint64 {
	h := newHasher()
	h.frame(&p.Frame)
	return h.d.Sum64()
}

// Fingerprint hashes every page in order.
func (d *Document) Fingerprint() uint64 {
	h := newHasher()
	h.str(d.Title)
	h.u64(uint64(len(d.Pages)))
	for i := range d.Pages {
		h.u64(d.Pages[i].Fingerprint())
	}
	return h.d.Sum64()
}

// Hash is the document fingerprint in hex, as published to clients.
func (d *Document) Hash() string {
	return fmt.Sprintf("%016x", d.Fingerprint())
}
