// Package render turns laid out pages into SVG and caches the result per page
// index, keyed by the page's structural fingerprint.
package render

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"vellum/internal/fonts"
	"vellum/internal/layout"
)

// SVG renders page as a standalone SVG document in point units.
func SVG(page *layout.Page) string {
	var b strings.Builder
	size := page.Frame.Size
	fmt.Fprintf(&b, `<svg class="vellum-page" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" width="%spt" height="%spt">`,
		num(size.W), num(size.H), num(size.W), num(size.H))
	fmt.Fprintf(&b, `<rect width="%s" height="%s" fill="#ffffff"/>`, num(size.W), num(size.H))
	writeFrame(&b, &page.Frame)
	b.WriteString("</svg>")
	return b.String()
}

func writeFrame(b *strings.Builder, f *layout.Frame) {
	for i := range f.Items {
		writeItem(b, f.Items[i].Pos, f.Items[i].Item)
	}
}

func writeItem(b *strings.Builder, pos layout.Point, it layout.Item) {
	switch v := it.(type) {
	case layout.Text:
		if v.Link != "" {
			fmt.Fprintf(b, `<a href="%s">`, attr(v.Link))
		}
		fmt.Fprintf(b, `<text x="%s" y="%s" font-family="%s" font-size="%s" fill="%s" textLength="%s" xml:space="preserve"`,
			num(pos.X), num(pos.Y), attr(fontFamily(v)), num(v.Size), v.Fill.Hex(), num(v.Width))
		if v.Weight == layout.Bold {
			b.WriteString(` font-weight="bold"`)
		}
		if v.Style == layout.Italic {
			b.WriteString(` font-style="italic"`)
		}
		b.WriteByte('>')
		_ = xml.EscapeText(b, []byte(v.Text))
		b.WriteString("</text>")
		if v.Link != "" {
			b.WriteString("</a>")
		}
	case layout.Shape:
		fill := "none"
		if v.Fill != nil {
			fill = v.Fill.Hex()
		}
		switch v.Kind {
		case layout.ShapeLine:
			fmt.Fprintf(b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s"/>`,
				num(pos.X), num(pos.Y), num(pos.X+v.Size.W), num(pos.Y+v.Size.H), v.Stroke.Hex(), num(v.Thickness))
		case layout.ShapeRect:
			fmt.Fprintf(b, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s" stroke="%s" stroke-width="%s"/>`,
				num(pos.X), num(pos.Y), num(v.Size.W), num(v.Size.H), fill, v.Stroke.Hex(), num(v.Thickness))
		}
	case layout.Image:
		fmt.Fprintf(b, `<image x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="none" href="data:%s;base64,%s"`,
			num(pos.X), num(pos.Y), num(v.Size.W), num(v.Size.H), mimeType(v.Format), base64.StdEncoding.EncodeToString(v.Data))
		if v.Alt != "" {
			fmt.Fprintf(b, ` aria-label="%s"`, attr(v.Alt))
		}
		b.WriteString("/>")
	case layout.Group:
		fmt.Fprintf(b, `<g transform="translate(%s %s)">`, num(pos.X), num(pos.Y))
		writeFrame(b, &v.Frame)
		b.WriteString("</g>")
	}
}

func fontFamily(t layout.Text) string {
	if t.Style == layout.Mono {
		return "monospace"
	}
	switch t.Font {
	case fonts.DefaultFamily:
		return "serif"
	case fonts.SansFamily:
		return "sans-serif"
	case fonts.MonoFamily:
		return "monospace"
	}
	return "'" + strings.ReplaceAll(t.Font, "'", "") + "', serif"
}

func mimeType(format string) string {
	switch format {
	case "svg":
		return "image/svg+xml"
	case "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	}
	return "image/png"
}

// num formats a length with at most two decimals.
func num(p layout.Pt) string {
	return strconv.FormatFloat(math.Round(float64(p)*100)/100, 'f', -1, 64)
}

func attr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// withTID adds data-tid="tid" to the root <svg> element.
func withTID(svg, tid string) string {
	start := strings.Index(svg, "<svg")
	if start < 0 {
		return svg
	}
	end := strings.IndexByte(svg[start:], '>')
	if end < 0 {
		return svg
	}
	at := start + end
	if svg[at-1] == '/' {
		at--
	}
	return svg[:at] + ` data-tid="` + attr(tid) + `"` + svg[at:]
}

// TID is the stable identifier of page index with fingerprint fp.
func TID(index int, fp uint64) string {
	return fmt.Sprintf("p%d-%016x", index, fp)
}

// PixelSize converts a page size in points to whole pixels at scale.
func PixelSize(size layout.Size, scale float64) (w, h uint32) {
	px := func(p layout.Pt) uint32 {
		v := float64(p) * scale
		if v <= 0 || math.IsNaN(v) {
			return 0
		}
		n, err := safecast.Conv[uint32](int64(min(v, math.MaxInt64/2)))
		if err != nil {
			return math.MaxUint32
		}
		return n
	}
	return px(size.W), px(size.H)
}
