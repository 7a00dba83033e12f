package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Tracer receives events. Implementations must be safe for concurrent use.
// Filtering by level happens in Begin and Point, so Emit records whatever
// it is given.
type Tracer interface {
	Emit(ev Event)
	Level() Level
	Close() error
}

type nopTracer struct{}

func (nopTracer) Emit(Event)   {}
func (nopTracer) Level() Level { return LevelOff }
func (nopTracer) Close() error { return nil }

// Nop discards everything.
var Nop Tracer = nopTracer{}

// Mode selects where events go.
type Mode uint8

const (
	ModeStream Mode = iota + 1 // written as they happen
	ModeRing                   // last RingSize events, written on Close
	ModeBoth
)

var modeNames = [...]string{"", "stream", "ring", "both"}

func (m Mode) String() string {
	if m > 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range modeNames[1:] {
		if name == s {
			return Mode(i + 1), nil
		}
	}
	return ModeStream, fmt.Errorf("invalid trace mode %q (expected stream|ring|both)", s)
}

const defaultRingSize = 4096

// Config describes a tracer. Output wins over OutputPath; an empty
// OutputPath or "-" means stderr.
type Config struct {
	Level      Level
	Mode       Mode
	Format     Format
	Output     io.Writer
	OutputPath string
	RingSize   int
	Heartbeat  time.Duration
}

// New builds the tracer described by cfg. LevelOff gives Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.Mode == 0 {
		cfg.Mode = ModeStream
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = defaultRingSize
	}
	if cfg.Format == FormatAuto {
		cfg.Format = formatForPath(cfg.OutputPath)
	}

	w, closer, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}

	var t Tracer
	switch cfg.Mode {
	case ModeStream:
		t = newWriterSink(w, closer, cfg.Level, cfg.Format)
	case ModeRing:
		t = NewRing(cfg.RingSize, cfg.Level).dumpTo(w, closer, cfg.Format)
	case ModeBoth:
		t = fanout{
			level: cfg.Level,
			sinks: []Tracer{newWriterSink(w, nil, cfg.Level, cfg.Format), NewRing(cfg.RingSize, cfg.Level)},
			close: closer,
		}
	default:
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("unknown trace mode %v", cfg.Mode)
	}
	if cfg.Heartbeat > 0 {
		t = startHeartbeat(t, cfg.Heartbeat)
	}
	return t, nil
}

// openOutput returns the writer and, for files it opened, their closer.
func openOutput(cfg Config) (io.Writer, io.Closer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return os.Stderr, nil, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open trace output: %w", err)
	}
	return f, f, nil
}

// fanout copies every event to each sink.
type fanout struct {
	level Level
	sinks []Tracer
	close io.Closer
}

func (f fanout) Emit(ev Event) {
	for _, s := range f.sinks {
		s.Emit(ev)
	}
}

func (f fanout) Level() Level { return f.level }

func (f fanout) Close() error {
	errs := make([]error, 0, len(f.sinks)+1)
	for _, s := range f.sinks {
		errs = append(errs, s.Close())
	}
	if f.close != nil {
		errs = append(errs, f.close.Close())
	}
	return errors.Join(errs...)
}

// RingOf returns the in-memory ring of t, if it keeps one.
func RingOf(t Tracer) (*Ring, bool) {
	switch t := t.(type) {
	case *Ring:
		return t, true
	case fanout:
		for _, s := range t.sinks {
			if r, ok := s.(*Ring); ok {
				return r, true
			}
		}
	case *heartbeat:
		return RingOf(t.Tracer)
	}
	return nil, false
}
