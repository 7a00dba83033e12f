package render

import (
	"strings"
	"sync/atomic"
	"testing"

	"vellum/internal/layout"
)

func page(text string) layout.Page {
	var f layout.Frame
	f.Size = layout.Size{W: 200, H: 100}
	f.Push(layout.Point{X: 10, Y: 20}, layout.Text{Font: "Serif", Size: 11, Fill: layout.Black, Text: text, Width: 30})
	return layout.Page{Frame: f, Number: 1}
}

func doc(texts ...string) *layout.Document {
	d := &layout.Document{}
	for _, t := range texts {
		d.Pages = append(d.Pages, page(t))
	}
	return d
}

func countingCache(calls *atomic.Int32) *Cache {
	return NewCache(CacheOptions{Render: func(p *layout.Page) string {
		calls.Add(1)
		return SVG(p)
	}})
}

func TestRenderPageHitAndMiss(t *testing.T) {
	var calls atomic.Int32
	c := countingCache(&calls)
	p := page("one")

	first, unchanged, err := c.RenderPage(0, &p)
	if err != nil || unchanged {
		t.Fatalf("first render: unchanged=%v err=%v", unchanged, err)
	}
	wantTID := TID(0, p.Fingerprint())
	if !strings.HasPrefix(first, `<svg class="vellum-page"`) || !strings.Contains(first, `data-tid="`+wantTID+`"`) {
		t.Fatalf("markup = %s", first)
	}

	again, unchanged, _ := c.RenderPage(0, &p)
	if !unchanged || again != first {
		t.Fatal("equal page was not served from cache")
	}
	if calls.Load() != 1 {
		t.Fatalf("render calls = %d", calls.Load())
	}

	q := page("two")
	changed, unchanged, _ := c.RenderPage(0, &q)
	if unchanged || changed == first {
		t.Fatal("changed page reused old markup")
	}
	if !strings.Contains(changed, `data-tid="`+TID(0, q.Fingerprint())+`"`) {
		t.Fatal("tid did not follow the new fingerprint")
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 2 || st.Entries != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestChangedPages(t *testing.T) {
	c := NewCache(CacheOptions{})
	d := doc("a", "b", "c")
	for i := range d.Pages {
		if _, _, err := c.RenderPage(i, &d.Pages[i]); err != nil {
			t.Fatal(err)
		}
	}
	if got := c.ChangedPages(d); len(got) != 0 {
		t.Fatalf("unchanged doc reported %v", got)
	}

	got := c.ChangedPages(doc("a", "B", "c", "d"))
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("ChangedPages = %v, want [1 3]", got)
	}

	// shrinking: one marker equal to the new page count, however many pages went away
	got = c.ChangedPages(doc("a"))
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("ChangedPages after shrink = %v, want [1]", got)
	}
	c.Prune(1)
	if got := c.ChangedPages(doc("a")); len(got) != 0 {
		t.Fatalf("after prune = %v", got)
	}
	if idx := c.Indices(); len(idx) != 1 || idx[0] != 0 {
		t.Fatalf("indices = %v", idx)
	}
}

func TestResetBumpsVersion(t *testing.T) {
	c := NewCache(CacheOptions{})
	p := page("x")
	_, _, _ = c.RenderPage(0, &p)
	v := c.Version()
	c.Reset()
	if c.Version() != v+1 {
		t.Fatalf("version %d -> %d", v, c.Version())
	}
	if _, ok := c.Cached(0); ok {
		t.Fatal("entries survived Reset")
	}
	if c.IsCached(0, &p) {
		t.Fatal("IsCached after Reset")
	}
}

func TestRenderPanicPoisonsAndRecovers(t *testing.T) {
	boom := true
	c := NewCache(CacheOptions{Render: func(p *layout.Page) string {
		if boom {
			panic("renderer bug")
		}
		return SVG(p)
	}})
	p := page("x")
	if _, _, err := c.RenderPage(0, &p); err == nil {
		t.Fatal("panic not reported")
	}
	boom = false
	markup, _, err := c.RenderPage(0, &p)
	if err != nil || markup == "" {
		t.Fatalf("render after poison: %q, %v", markup, err)
	}
}

func TestDiskStoreBacksCache(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var calls atomic.Int32
	render := func(p *layout.Page) string {
		calls.Add(1)
		return SVG(p)
	}
	p := page("persisted")

	first := NewCache(CacheOptions{Render: render, Store: store})
	a, _, _ := first.RenderPage(0, &p)

	// a fresh cache, as after reopening the project, loads from disk
	second := NewCache(CacheOptions{Render: render, Store: store})
	b, unchanged, _ := second.RenderPage(0, &p)
	if unchanged {
		t.Fatal("fresh cache cannot report unchanged")
	}
	if a != b {
		t.Fatal("disk copy differs")
	}
	if calls.Load() != 1 {
		t.Fatalf("render calls = %d, want 1", calls.Load())
	}
	if second.Stats().DiskHits != 1 {
		t.Fatalf("stats = %+v", second.Stats())
	}
}
