package layout

import "testing"

func samplePage(text string) Page {
	var f Frame
	f.Size = Size{W: 595, H: 842}
	f.Push(Point{X: 56, Y: 70}, Text{Font: "Serif", Size: 11, Fill: Black, Text: text, Width: 40})
	f.Push(Point{X: 56, Y: 90}, Shape{Kind: ShapeLine, Size: Size{W: 100}, Stroke: Black, Thickness: 1})
	return Page{Frame: f, Number: 1}
}

func TestPageFingerprintIsStructural(t *testing.T) {
	a := samplePage("hello")
	b := samplePage("hello")
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("equal pages hashed differently")
	}
	c := samplePage("hellp")
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatal("text change not reflected in fingerprint")
	}

	// order matters
	d := samplePage("hello")
	d.Frame.Items[0], d.Frame.Items[1] = d.Frame.Items[1], d.Frame.Items[0]
	if a.Fingerprint() == d.Fingerprint() {
		t.Fatal("item order not reflected in fingerprint")
	}
}

func TestPageFingerprintNested(t *testing.T) {
	a := samplePage("x")
	b := samplePage("x")
	a.Frame.Push(Point{}, Group{Frame: Frame{Items: []Positioned{{Item: Image{Format: "png", Data: []byte{1, 2}}}}}})
	b.Frame.Push(Point{}, Group{Frame: Frame{Items: []Positioned{{Item: Image{Format: "png", Data: []byte{1, 3}}}}}})
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("nested image data not reflected in fingerprint")
	}
}

func TestDocumentHash(t *testing.T) {
	doc := &Document{Pages: []Page{samplePage("a"), samplePage("b")}}
	h := doc.Hash()
	if len(h) != 16 {
		t.Fatalf("hash %q is not 16 hex digits", h)
	}
	doc2 := &Document{Pages: []Page{samplePage("b"), samplePage("a")}}
	if doc2.Hash() == h {
		t.Fatal("page order not reflected in document hash")
	}
	if got := doc.Size(); got != (Size{W: 595, H: 842}) {
		t.Fatalf("Size() = %+v", got)
	}
	var empty *Document
	if empty.Size() != (Size{}) {
		t.Fatal("nil document should have zero size")
	}
}
