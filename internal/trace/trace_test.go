package trace

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelAllows(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeSession, false},
		{LevelError, ScopeSession, false},
		{LevelPhase, ScopeJob, true},
		{LevelPhase, ScopePhase, false},
		{LevelDetail, ScopePhase, true},
		{LevelDetail, ScopePage, false},
		{LevelDebug, ScopePage, true},
		{Level(9), ScopeSession, false},
	}
	for _, tt := range tests {
		if got := tt.level.Allows(tt.scope); got != tt.want {
			t.Errorf("%s.Allows(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestParseLevelAndMode(t *testing.T) {
	if l, err := ParseLevel(" Detail "); err != nil || l != LevelDetail {
		t.Errorf("ParseLevel = %v, %v", l, err)
	}
	if l, err := ParseLevel(""); err != nil || l != LevelOff {
		t.Errorf("ParseLevel(\"\") = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel accepted loud")
	}
	if m, err := ParseMode("ring"); err != nil || m != ModeRing {
		t.Errorf("ParseMode = %v, %v", m, err)
	}
	if _, err := ParseMode(""); err == nil {
		t.Error("ParseMode accepted empty")
	}
}

func TestTextTrace(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDetail, Output: &buf, Format: FormatText})
	if err != nil {
		t.Fatal(err)
	}

	job := Begin(tr, ScopeJob, "job", 0)
	phase := Begin(tr, ScopePhase, "compile", job.ID())
	phase.WithExtra("pages", "2").WithExtra("changed", "1").End("ok")
	page := Begin(tr, ScopePage, "page:0", phase.ID())
	if page.ID() != 0 || page.End("") != 0 {
		t.Error("page span recorded at detail level")
	}
	job.End("published")
	job.End("twice")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "job      > job#") {
		t.Errorf("begin line = %q", lines[0])
	}
	if !strings.Contains(lines[2], "phase      < compile#") || !strings.HasSuffix(lines[2], "(ok) pages=2 changed=1") {
		t.Errorf("end line = %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], "(published)") {
		t.Errorf("job end = %q", lines[3])
	}
}

func TestNDJSONTrace(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDebug, Output: &buf, OutputPath: "trace.ndjson"})
	if err != nil {
		t.Fatal(err)
	}
	Point(tr, ScopePage, "hit", "p1")

	var ev map[string]any
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("bad json %q: %v", buf.String(), err)
	}
	if ev["kind"] != "point" || ev["scope"] != "page" || ev["detail"] != "p1" {
		t.Errorf("event = %v", ev)
	}
}

func TestRingKeepsNewest(t *testing.T) {
	r := NewRing(3, LevelPhase)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(r, ScopeJob, name, "")
	}
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len = %d", len(snap))
	}
	for i, want := range []string{"c", "d", "e"} {
		if snap[i].Name != want {
			t.Errorf("snap[%d] = %q, want %q", i, snap[i].Name, want)
		}
	}
	if r.Close() != nil {
		t.Error("ring without output failed to close")
	}
}

func TestRingModeDumpsOnClose(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeRing, RingSize: 2, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"open", "job", "close"} {
		Point(tr, ScopeSession, name, "")
	}
	if buf.Len() != 0 {
		t.Fatalf("ring wrote before close: %q", buf.String())
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "open") || !strings.Contains(out, "job") || !strings.Contains(out, "close") {
		t.Errorf("dump = %q", out)
	}
}

func TestBothModes(t *testing.T) {
	if tr, err := New(Config{Level: LevelOff}); err != nil || tr != Nop {
		t.Fatalf("off tracer: %v %v", tr, err)
	}

	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	Point(tr, ScopeSession, "open", "")
	ring, ok := RingOf(tr)
	if !ok || len(ring.Snapshot()) != 1 || buf.Len() == 0 {
		t.Fatal("event did not reach both sinks")
	}
}

func TestHeartbeat(t *testing.T) {
	r := NewRing(16, LevelPhase)
	tr := startHeartbeat(r, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(r.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	snap := r.Snapshot()
	if len(snap) == 0 || snap[0].Kind != KindHeartbeat {
		t.Fatalf("snapshot = %+v", snap)
	}
	if got, ok := RingOf(tr); !ok || got != r {
		t.Error("RingOf does not see through the heartbeat")
	}
}
