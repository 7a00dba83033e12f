package compiler

import (
	"log/slog"
	"time"

	"vellum/internal/events"
	"vellum/internal/fonts"
	"vellum/internal/markup"
	"vellum/internal/metrics"
	"vellum/internal/render"
	"vellum/internal/trace"
	"vellum/internal/world"
)

// DefaultPrerender is how many leading pages a success event carries.
const DefaultPrerender = 10

// Request asks a session to compile after replacing Path with Content.
type Request struct {
	Path    string
	Content string
	// Main is the entry file of this compile. Empty falls back to the
	// session default, then to Path.
	Main string
	// ID orders requests; results of lower ids are never published after a
	// higher id was submitted. Zero lets the session assign the next id.
	ID        uint64
	SessionID string
}

type Options struct {
	// Root is the project directory.
	Root     string
	Fonts    *fonts.Table
	Packages *world.Packages
	Now      func() time.Time

	// DefaultMain is the entry file when a request names none.
	DefaultMain string
	// Debounce delays taking a request so that bursts of edits coalesce.
	Debounce time.Duration
	// Prerender is the number of pages rendered into each success event.
	// Zero means DefaultPrerender, negative disables pre-rendering.
	Prerender int

	// Compile defaults to markup.Compile.
	Compile func(markup.World) markup.Result
	// Store persists rendered pages across sessions. Optional.
	Store *render.DiskStore

	Publisher events.Publisher
	Logger    *slog.Logger
	Tracer    trace.Tracer
	Metrics   metrics.Recorder
}

func (o Options) withDefaults() Options {
	if o.Compile == nil {
		o.Compile = markup.Compile
	}
	if o.Prerender == 0 {
		o.Prerender = DefaultPrerender
	}
	if o.Publisher == nil {
		o.Publisher = events.Nop
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Tracer == nil {
		o.Tracer = trace.Nop
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NoopRecorder{}
	}
	return o
}
