package compiler

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"vellum/internal/markup"
	"vellum/internal/metrics"
	"vellum/internal/testkit"
)

func TestSessionCompilesMinimalDocument(t *testing.T) {
	s, sink, _ := newTestSession(t, nil)

	id, err := s.Submit(Request{Path: "main.vel", Content: "= Notes\n\nHello *world*.\n"})
	if err != nil {
		t.Fatal(err)
	}
	ev := nextEvent(t, sink)
	if ev.RequestID != id || ev.Session != "test" {
		t.Fatalf("event for %s/%d, submitted %d", ev.Session, ev.RequestID, id)
	}
	if !ev.OK() {
		t.Fatalf("compile failed: %+v", ev.Diagnostics)
	}
	doc := ev.Document
	if doc.Pages != 1 || len(doc.PageSvgs) != 1 {
		t.Fatalf("pages = %d, svgs = %d", doc.Pages, len(doc.PageSvgs))
	}
	if !strings.Contains(doc.PageSvgs[0], `data-tid="p0-`) || !strings.Contains(doc.PageSvgs[0], "Hello") {
		t.Errorf("page svg = %s", doc.PageSvgs[0])
	}
	if doc.Width != 595 || doc.Height != 842 || len(doc.Hash) != 16 {
		t.Errorf("document = %+v", doc)
	}
	if len(doc.ChangedPages) != 1 || doc.ChangedPages[0] != 0 {
		t.Errorf("changed = %v", doc.ChangedPages)
	}

	page, err := s.RenderPage(0, 2, 99)
	if err != nil {
		t.Fatal(err)
	}
	if page.Nonce != 99 || page.Width != 1190 || page.Height != 1684 || page.SVG != doc.PageSvgs[0] {
		t.Errorf("render = %dx%d nonce %d", page.Width, page.Height, page.Nonce)
	}
	if _, err := s.RenderPage(1, 1, 0); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("RenderPage(1) = %v", err)
	}
	if st := s.RenderStats(); st.Hits != 1 || st.Misses != 1 {
		t.Errorf("render stats = %+v", st)
	}
}

func TestSessionUnchangedEditKeepsPages(t *testing.T) {
	s, sink, _ := newTestSession(t, nil)

	s.Submit(Request{Path: "main.vel", Content: "one\n\n#pagebreak()\n\ntwo\n"})
	first := nextEvent(t, sink)
	if !first.OK() || first.Document.Pages != 2 {
		t.Fatalf("first = %+v", first)
	}

	s.Submit(Request{Path: "main.vel", Content: "one\n\n#pagebreak()\n\ntwo, edited\n"})
	second := nextEvent(t, sink)
	if got := second.Document.ChangedPages; len(got) != 1 || got[0] != 1 {
		t.Errorf("changed = %v, want [1]", got)
	}
	if second.Document.PageSvgs[0] != first.Document.PageSvgs[0] {
		t.Error("unchanged first page was re-rendered differently")
	}

	s.Submit(Request{Path: "main.vel", Content: "one\n"})
	third := nextEvent(t, sink)
	if got := third.Document.ChangedPages; len(got) != 1 || got[0] != 1 {
		t.Errorf("changed after shrink = %v, want marker [1]", got)
	}
}

func TestSessionMapsDiagnosticsToCharacters(t *testing.T) {
	s, sink, _ := newTestSession(t, nil)

	// "Grüße " is 6 characters but 8 bytes; "#€" is 2 characters, 4 bytes
	s.Submit(Request{Path: "main.vel", Content: "Grüße #€ welt\n"})
	ev := nextEvent(t, sink)
	if ev.OK() {
		t.Fatal("expected failure")
	}
	if len(ev.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %+v", ev.Diagnostics)
	}
	if err := testkit.CheckRanges("Grüße #€ welt\n", ev.Diagnostics); err != nil {
		t.Error(err)
	}
	d := ev.Diagnostics[0]
	if d.Range != [2]int{6, 8} {
		t.Errorf("range = %v, want [6 8]", d.Range)
	}
	if d.Severity != "error" || d.Code != "LEX1001" || len(d.Hints) == 0 {
		t.Errorf("diagnostic = %+v", d)
	}
}

func TestSessionKeepsOnlyEditedFileDiagnostics(t *testing.T) {
	s, sink, _ := newTestSession(t, nil)
	writeFile(t, s.Root(), "chapter.vel", "#nosuch()\n")

	s.Submit(Request{Path: "main.vel", Content: "#include(\"chapter.vel\")\n"})
	ev := nextEvent(t, sink)
	if ev.OK() {
		t.Fatal("expected failure")
	}
	if len(ev.Diagnostics) != 0 {
		t.Errorf("diagnostics of another file leaked: %+v", ev.Diagnostics)
	}

	s.Submit(Request{Path: "chapter.vel", Content: "#nosuch()\n", Main: "main.vel"})
	ev = nextEvent(t, sink)
	if len(ev.Diagnostics) != 1 || ev.Diagnostics[0].Code != "SEM3001" {
		t.Errorf("diagnostics = %+v", ev.Diagnostics)
	}
}

func TestSessionNewestWins(t *testing.T) {
	release := make(chan struct{})
	started := make(chan string, 8)
	s, sink, rec := newTestSession(t, func(o *Options) {
		o.Compile = func(w markup.World) markup.Result {
			if src, err := w.Source(w.Main()); err == nil {
				started <- src.Text()
				if src.Text() == "first" {
					<-release
				}
			}
			return markup.Compile(w)
		}
	})

	s.Submit(Request{Path: "main.vel", Content: "first", ID: 1})
	if got := <-started; got != "first" {
		t.Fatalf("started %q", got)
	}
	s.Submit(Request{Path: "main.vel", Content: "second", ID: 2})
	// the second job waits for the overlay while the first one compiles
	close(release)

	ev := nextEvent(t, sink)
	if ev.RequestID != 2 || !ev.OK() {
		t.Fatalf("published request %d (ok=%v), want 2", ev.RequestID, ev.OK())
	}
	got := map[metrics.Outcome]int{}
	got[rec.next(t)]++
	got[rec.next(t)]++
	if got[metrics.OutcomeDiscarded] != 1 || got[metrics.OutcomeSuccess] != 1 {
		t.Errorf("outcomes = %v", got)
	}
	noMoreEvents(t, sink)
}

func TestSessionLowerIDNeverPublished(t *testing.T) {
	s, sink, rec := newTestSession(t, nil)

	s.Submit(Request{Path: "main.vel", Content: "newest", ID: 10})
	ev := nextEvent(t, sink)
	if ev.RequestID != 10 {
		t.Fatalf("request %d", ev.RequestID)
	}
	rec.next(t)

	s.Submit(Request{Path: "main.vel", Content: "late", ID: 4})
	s.Submit(Request{Path: "main.vel", Content: "also late", ID: 9})
	time.Sleep(50 * time.Millisecond)
	noMoreEvents(t, sink)

	id, _ := s.Submit(Request{Path: "main.vel", Content: "auto"})
	if id != 11 {
		t.Fatalf("assigned id %d, want 11", id)
	}
	if ev := nextEvent(t, sink); ev.RequestID != 11 {
		t.Fatalf("request %d", ev.RequestID)
	}
}

func TestSessionDebounceCoalesces(t *testing.T) {
	var compiles atomic.Int32
	s, sink, _ := newTestSession(t, func(o *Options) {
		o.Debounce = 100 * time.Millisecond
		o.Compile = func(w markup.World) markup.Result {
			compiles.Add(1)
			return markup.Compile(w)
		}
	})
	for i, text := range []string{"a", "ab", "abc"} {
		s.Submit(Request{Path: "main.vel", Content: text, ID: uint64(i + 1)})
	}
	if ev := nextEvent(t, sink); ev.RequestID != 3 {
		t.Fatalf("request %d", ev.RequestID)
	}
	s.Close()
	if n := compiles.Load(); n != 1 {
		t.Errorf("compiles = %d, want 1", n)
	}
}

func TestSessionAbandonsUnresolvableMain(t *testing.T) {
	s, sink, rec := newTestSession(t, func(o *Options) {
		o.DefaultMain = "../outside.vel"
	})
	s.Submit(Request{Path: "main.vel", Content: "text"})
	if out := rec.next(t); out != metrics.OutcomeAbandoned {
		t.Fatalf("outcome = %s", out)
	}
	noMoreEvents(t, sink)
	if _, err := s.RenderPage(0, 1, 0); !errors.Is(err, ErrNoDocument) {
		t.Errorf("RenderPage = %v", err)
	}
}

func TestSessionDefaultMain(t *testing.T) {
	s, sink, _ := newTestSession(t, func(o *Options) {
		o.DefaultMain = "book.vel"
	})
	writeFile(t, s.Root(), "book.vel", "#include(\"part.vel\")\n")

	s.Submit(Request{Path: "part.vel", Content: "from the editor"})
	ev := nextEvent(t, sink)
	if !ev.OK() || !strings.Contains(ev.Document.PageSvgs[0], "from the editor") {
		t.Fatalf("event = %+v", ev)
	}
}

func TestSessionMainChangeResetsRenderCache(t *testing.T) {
	s, sink, _ := newTestSession(t, nil)
	writeFile(t, s.Root(), "b.vel", "bee")

	s.Submit(Request{Path: "a.vel", Content: "ay"})
	nextEvent(t, sink)
	v := s.RenderStats().Version

	s.Submit(Request{Path: "a.vel", Content: "ay", Main: "b.vel"})
	ev := nextEvent(t, sink)
	if !ev.OK() || len(ev.Document.ChangedPages) != 1 {
		t.Fatalf("event = %+v", ev)
	}
	if got := s.RenderStats().Version; got != v+1 {
		t.Errorf("cache version %d -> %d", v, got)
	}
}

func TestSessionInfrastructureFailure(t *testing.T) {
	s, sink, _ := newTestSession(t, nil)
	s.Submit(Request{Path: "../escape.vel", Content: "x"})
	ev := nextEvent(t, sink)
	if ev.OK() || ev.Diagnostics == nil || len(ev.Diagnostics) != 0 {
		t.Fatalf("event = %+v", ev)
	}
}

func TestSessionSurvivesCompilePanic(t *testing.T) {
	s, sink, rec := newTestSession(t, func(o *Options) {
		o.Compile = func(w markup.World) markup.Result {
			if src, err := w.Source(w.Main()); err == nil && src.Text() == "boom" {
				panic("compiler bug")
			}
			return markup.Compile(w)
		}
	})

	s.Submit(Request{Path: "main.vel", Content: "boom"})
	ev := nextEvent(t, sink)
	if ev.OK() || len(ev.Diagnostics) != 0 {
		t.Fatalf("event after panic = %+v", ev)
	}
	if out := rec.next(t); out != metrics.OutcomePanic {
		t.Fatalf("outcome = %s", out)
	}

	s.Submit(Request{Path: "main.vel", Content: "fine"})
	if ev := nextEvent(t, sink); !ev.OK() {
		t.Fatalf("session did not recover: %+v", ev)
	}
}

func TestSessionInvalidatePicksUpDiskChanges(t *testing.T) {
	s, sink, _ := newTestSession(t, nil)
	writeFile(t, s.Root(), "inc.vel", "old text")

	s.Submit(Request{Path: "main.vel", Content: "#include(\"inc.vel\")"})
	if ev := nextEvent(t, sink); !strings.Contains(ev.Document.PageSvgs[0], "old") {
		t.Fatal("include missing")
	}

	writeFile(t, s.Root(), "inc.vel", "new text")
	if !s.Invalidate("inc.vel") {
		t.Fatal("Invalidate reported nothing to reset")
	}
	s.Submit(Request{Path: "main.vel", Content: "#include(\"inc.vel\")"})
	if ev := nextEvent(t, sink); !strings.Contains(ev.Document.PageSvgs[0], "new") {
		t.Fatal("stale include after Invalidate")
	}
}

func TestSubmitAfterClose(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	s.Close()
	s.Close()
	if _, err := s.Submit(Request{Path: "main.vel"}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Submit = %v", err)
	}
}
