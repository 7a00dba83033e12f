package compiler

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vellum/internal/events"
	"vellum/internal/metrics"
)

const waitFor = 5 * time.Second

func writeFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestSession(t *testing.T, configure func(*Options)) (*Session, *events.Chan, *outcomes) {
	t.Helper()
	sink := events.NewChan(64)
	rec := newOutcomes()
	opts := Options{
		Root:      t.TempDir(),
		Publisher: sink,
		Metrics:   rec,
		Now:       func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
	if configure != nil {
		configure(&opts)
	}
	s := NewSession("test", opts)
	t.Cleanup(s.Close)
	return s, sink, rec
}

func nextEvent(t *testing.T, sink *events.Chan) events.Compiled {
	t.Helper()
	select {
	case ev := <-sink.C():
		return ev
	case <-time.After(waitFor):
		t.Fatal("no compile event")
		return events.Compiled{}
	}
}

func noMoreEvents(t *testing.T, sink *events.Chan) {
	t.Helper()
	select {
	case ev := <-sink.C():
		t.Fatalf("unexpected event for request %d", ev.RequestID)
	default:
	}
}

// outcomes is a metrics.Recorder that reports finished jobs on a channel.
type outcomes struct {
	metrics.NoopRecorder
	ch chan metrics.Outcome

	mu       sync.Mutex
	requests int
}

func newOutcomes() *outcomes {
	return &outcomes{ch: make(chan metrics.Outcome, 64)}
}

func (o *outcomes) IncRequests() {
	o.mu.Lock()
	o.requests++
	o.mu.Unlock()
}

func (o *outcomes) ObserveJob(_ time.Duration, out metrics.Outcome) { o.ch <- out }

func (o *outcomes) next(t *testing.T) metrics.Outcome {
	t.Helper()
	select {
	case out := <-o.ch:
		return out
	case <-time.After(waitFor):
		t.Fatal("no job finished")
		return ""
	}
}
