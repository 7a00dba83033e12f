package trace

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

// writerSink encodes each event straight to w.
type writerSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	level  Level
	format Format
	buf    bytes.Buffer
}

func newWriterSink(w io.Writer, closer io.Closer, level Level, format Format) *writerSink {
	return &writerSink{w: w, closer: closer, level: level, format: format}
}

func (s *writerSink) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
	encode(&s.buf, &ev, s.format)
	// a broken trace output must not fail a compile
	_, _ = s.w.Write(s.buf.Bytes())
}

func (s *writerSink) Level() Level { return s.level }

func (s *writerSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Ring keeps the most recent events in memory.
type Ring struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
	level  Level

	out    io.Writer
	closer io.Closer
	format Format
}

func NewRing(size int, level Level) *Ring {
	if size <= 0 {
		size = defaultRingSize
	}
	return &Ring{events: make([]Event, size), level: level}
}

func (r *Ring) dumpTo(w io.Writer, closer io.Closer, format Format) *Ring {
	r.out, r.closer, r.format = w, closer, format
	return r
}

func (r *Ring) Emit(ev Event) {
	r.mu.Lock()
	r.events[r.next] = ev
	r.next++
	if r.next == len(r.events) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
}

func (r *Ring) Level() Level { return r.level }

// Snapshot returns the stored events oldest first.
func (r *Ring) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Event(nil), r.events[:r.next]...)
	}
	out := make([]Event, 0, len(r.events))
	out = append(out, r.events[r.next:]...)
	return append(out, r.events[:r.next]...)
}

// Dump writes the snapshot to w.
func (r *Ring) Dump(w io.Writer, format Format) error {
	var buf bytes.Buffer
	for _, ev := range r.Snapshot() {
		encode(&buf, &ev, format)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Close dumps the ring when it was built with an output.
func (r *Ring) Close() error {
	if r.out == nil {
		return nil
	}
	err := r.Dump(r.out, r.format)
	if r.closer != nil {
		err = errors.Join(err, r.closer.Close())
	}
	return err
}

// heartbeat emits a liveness event every interval. Heartbeats without span
// ends around them mean a job is stuck.
type heartbeat struct {
	Tracer
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func startHeartbeat(t Tracer, interval time.Duration) *heartbeat {
	h := &heartbeat{Tracer: t, stop: make(chan struct{}), done: make(chan struct{})}
	go h.run(interval)
	return h
}

func (h *heartbeat) run(interval time.Duration) {
	defer close(h.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for n := uint64(1); ; n++ {
		select {
		case now := <-ticker.C:
			h.Emit(Event{
				At:      now,
				Seq:     seqCounter.Add(1),
				Kind:    KindHeartbeat,
				Scope:   ScopeSession,
				Name:    "heartbeat",
				Elapsed: time.Duration(n) * interval,
			})
		case <-h.stop:
			return
		}
	}
}

// Close stops the ticker before closing the wrapped tracer.
func (h *heartbeat) Close() error {
	h.once.Do(func() { close(h.stop) })
	<-h.done
	return h.Tracer.Close()
}
