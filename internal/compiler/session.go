// Package compiler runs compiles for live preview. A Session owns the
// overlay of one project, takes the newest edit from a single-slot mailbox,
// cancels the job it supersedes and publishes only results that are still
// the newest when they finish.
package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"vellum/internal/diag"
	"vellum/internal/events"
	"vellum/internal/layout"
	"vellum/internal/markup"
	"vellum/internal/metrics"
	"vellum/internal/render"
	"vellum/internal/source"
	"vellum/internal/syncx"
	"vellum/internal/trace"
	"vellum/internal/world"
)

var (
	ErrNoDocument     = errors.New("no compiled document")
	ErrPageOutOfRange = errors.New("page index out of range")
	ErrSessionClosed  = errors.New("session closed")
	ErrUnknownSession = errors.New("unknown session")
)

type Session struct {
	id   string
	opts Options
	log  *slog.Logger

	// overlayMu is held for writing while a job applies its edit and
	// compiles, and for reading while diagnostics are mapped.
	overlayMu syncx.RWMutex
	overlay   *world.Overlay

	cache *render.Cache

	docMu sync.RWMutex
	doc   *layout.Document

	// publishMu covers the final admission check, the document swap and
	// the publish call.
	publishMu sync.Mutex
	highest   atomic.Uint64

	mbMu    sync.Mutex
	pending *Request
	wake    chan struct{}

	closed     atomic.Bool
	closeOnce  sync.Once
	done       chan struct{}
	readerDone chan struct{}
	jobs       sync.WaitGroup
}

// NewSession starts a session over opts.Root. Close releases it.
func NewSession(id string, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		id:   id,
		opts: opts,
		log:  opts.Logger.With("session", id),
		overlay: world.New(world.Options{
			Root:     opts.Root,
			Fonts:    opts.Fonts,
			Packages: opts.Packages,
			Now:      opts.Now,
		}),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	s.cache = render.NewCache(render.CacheOptions{Store: opts.Store, Logger: s.log})
	go s.read()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Root() string { return s.overlay.Root() }

// Submit queues req, replacing any request that has not started yet. It
// returns the request id, assigning one when req.ID is zero.
func (s *Session) Submit(req Request) (uint64, error) {
	if s.closed.Load() {
		return 0, ErrSessionClosed
	}
	if req.ID == 0 {
		req.ID = s.highest.Add(1)
	} else {
		s.raise(req.ID)
	}
	req.SessionID = s.id
	s.opts.Metrics.IncRequests()

	s.mbMu.Lock()
	s.pending = &req
	s.mbMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return req.ID, nil
}

// raise lifts the highest observed id to id and returns the result.
func (s *Session) raise(id uint64) uint64 {
	for {
		cur := s.highest.Load()
		if id <= cur {
			return cur
		}
		if s.highest.CompareAndSwap(cur, id) {
			return id
		}
	}
}

func (s *Session) stale(id uint64) bool {
	return id < s.raise(id)
}

func (s *Session) take() (Request, bool) {
	s.mbMu.Lock()
	defer s.mbMu.Unlock()
	if s.pending == nil {
		return Request{}, false
	}
	req := *s.pending
	s.pending = nil
	return req, true
}

// read is the mailbox reader. It is the only goroutine that starts jobs and
// flips their tokens.
func (s *Session) read() {
	defer close(s.readerDone)

	var token *Token
	defer func() {
		if token != nil {
			token.Cancel()
		}
	}()

	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		if s.opts.Debounce > 0 {
			timer := time.NewTimer(s.opts.Debounce)
			select {
			case <-s.done:
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		req, ok := s.take()
		if !ok {
			continue
		}
		if s.stale(req.ID) {
			// a newer request is already pending or running; leave it alone
			s.log.Debug("dropping superseded request", "request", req.ID)
			continue
		}
		if token != nil {
			token.Cancel()
		}
		token = NewToken()
		s.jobs.Add(1)
		go s.job(req, token)
	}
}

func (s *Session) job(req Request, token *Token) {
	defer s.jobs.Done()

	start := time.Now()
	span := trace.Begin(s.opts.Tracer, trace.ScopeJob, "job", 0).
		WithExtra("request", strconv.FormatUint(req.ID, 10))
	outcome := metrics.OutcomeDiscarded
	defer func() {
		if r := recover(); r != nil {
			outcome = metrics.OutcomePanic
			s.log.Error("compile job panicked", "request", req.ID, "panic", r, "stack", string(debug.Stack()))
		}
		span.End(string(outcome))
		s.opts.Metrics.ObserveJob(time.Since(start), outcome)
		s.log.Debug("compile job finished", "request", req.ID, "outcome", outcome, "took", time.Since(start))
	}()

	outcome = s.run(req, token, span.ID())
}

func (s *Session) run(req Request, token *Token, parent uint64) metrics.Outcome {
	if token.Cancelled() || s.stale(req.ID) {
		return metrics.OutcomeDiscarded
	}

	var (
		edited    source.VirtualID
		applyErr  error
		abandoned bool
		result    markup.Result
	)
	adopted, err := s.overlayMu.Do(func() {
		p := s.phase("apply", parent)
		edited, applyErr = s.overlay.Update(req.Path, req.Content)
		if applyErr != nil {
			p.done()
			return
		}
		ok := s.resolveMain(req, edited)
		p.done()
		if !ok {
			abandoned = true
			return
		}

		p = s.phase("compile", parent)
		result = s.opts.Compile(NewGuard(s.overlay, token))
		p.done()
	})
	if adopted {
		s.log.Warn("overlay lock was poisoned by an earlier job, continuing", "request", req.ID)
		if err == nil {
			s.overlayMu.ClearPoison()
		}
	}

	switch {
	case err != nil:
		var pe *syncx.PanicError
		if errors.As(err, &pe) {
			s.log.Error("compile panicked", "request", req.ID, "panic", pe.Value, "stack", string(pe.Stack))
		}
		s.publishFailure(req, nil)
		return metrics.OutcomePanic
	case applyErr != nil:
		s.log.Error("cannot apply edit", "request", req.ID, "path", req.Path, "err", applyErr)
		if !s.publishFailure(req, nil) {
			return metrics.OutcomeDiscarded
		}
		return metrics.OutcomeFailure
	case abandoned:
		return metrics.OutcomeAbandoned
	case token.Cancelled():
		return metrics.OutcomeDiscarded
	}

	if result.Failed() {
		if !s.publishFailure(req, s.mapDiagnostics(edited, req.Content, result.Diagnostics)) {
			return metrics.OutcomeDiscarded
		}
		return metrics.OutcomeFailure
	}
	if !s.publishSuccess(req, result.Document, parent) {
		return metrics.OutcomeDiscarded
	}
	return metrics.OutcomeSuccess
}

// resolveMain picks the entry file: the request's, the session default, or
// the edited file. The caller holds overlayMu for writing.
func (s *Session) resolveMain(req Request, edited source.VirtualID) bool {
	var (
		main source.VirtualID
		err  error
	)
	switch {
	case req.Main != "":
		main, err = s.overlay.Resolve(req.Main)
	case s.opts.DefaultMain != "":
		main, err = s.overlay.Resolve(s.opts.DefaultMain)
	default:
		main = edited
	}
	if err != nil {
		s.log.Debug("main entry does not resolve, skipping compile", "request", req.ID, "err", err)
		return false
	}
	if s.overlay.IsMainSet() && s.overlay.Main() != main {
		// page indices of another document mean nothing
		s.cache.Reset()
	}
	s.overlay.SetMain(main)
	return true
}

// mapDiagnostics keeps the diagnostics of the edited file and converts their
// byte spans into character ranges over content.
func (s *Session) mapDiagnostics(edited source.VirtualID, content string, diags []diag.Diagnostic) []events.Diagnostic {
	out := []events.Diagnostic{}
	adopted, err := s.overlayMu.DoRead(func() {
		if _, err := s.overlay.Source(edited); err != nil {
			return
		}
		for _, d := range diags {
			if !d.In(edited) || d.Primary.End < d.Primary.Start || int(d.Primary.End) > len(content) {
				continue
			}
			from, to := source.CharRange(content, int(d.Primary.Start), int(d.Primary.End))
			hints := d.Hints
			if hints == nil {
				hints = []string{}
			}
			out = append(out, events.Diagnostic{
				Range:    [2]int{from, to},
				Severity: severityName(d.Severity),
				Code:     d.Code.ID(),
				Message:  d.Message,
				Hints:    hints,
			})
		}
	})
	if adopted {
		s.log.Warn("overlay lock was poisoned, mapping diagnostics anyway")
	}
	if err != nil {
		s.log.Error("mapping diagnostics panicked", "err", err)
	}
	return out
}

func severityName(sev diag.Severity) string {
	if sev == diag.SevError {
		return "error"
	}
	return "warning"
}

func (s *Session) publishFailure(req Request, diags []events.Diagnostic) bool {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	if s.stale(req.ID) {
		return false
	}
	if diags == nil {
		diags = []events.Diagnostic{}
	}
	s.opts.Publisher.Publish(events.Compiled{Session: s.id, RequestID: req.ID, Diagnostics: diags})
	return true
}

func (s *Session) publishSuccess(req Request, doc *layout.Document, parent uint64) bool {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	if s.stale(req.ID) {
		return false
	}

	p := s.phase("render", parent)
	changed := s.cache.ChangedPages(doc)
	if changed == nil {
		changed = []int{}
	}
	n := max(0, min(len(doc.Pages), s.opts.Prerender))
	svgs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		svg, _, err := s.renderPage(i, &doc.Pages[i], p.span.ID())
		if err != nil {
			s.log.Error("pre-render failed", "request", req.ID, "page", i, "err", err)
		}
		svgs = append(svgs, svg)
	}
	s.cache.Prune(len(doc.Pages))
	p.done()

	s.docMu.Lock()
	s.doc = doc
	s.docMu.Unlock()

	size := doc.Size()
	s.opts.Publisher.Publish(events.Compiled{
		Session:   s.id,
		RequestID: req.ID,
		Document: &events.Document{
			Pages:        len(doc.Pages),
			Hash:         doc.Hash(),
			Width:        float64(size.W),
			Height:       float64(size.H),
			PageSvgs:     svgs,
			ChangedPages: changed,
		},
	})
	return true
}

func (s *Session) renderPage(index int, page *layout.Page, parent uint64) (string, bool, error) {
	span := trace.Begin(s.opts.Tracer, trace.ScopePage, "page:"+strconv.Itoa(index), parent)
	svg, unchanged, err := s.cache.RenderPage(index, page)
	if unchanged {
		span.End("cached")
	} else {
		span.End("")
	}
	s.opts.Metrics.IncPageRender(unchanged)
	return svg, unchanged, err
}

// RenderPage renders page index of the last published document at scale.
func (s *Session) RenderPage(index int, scale float64, nonce uint64) (events.Page, error) {
	doc := s.Document()
	if doc == nil {
		return events.Page{}, ErrNoDocument
	}
	if index < 0 || index >= len(doc.Pages) {
		return events.Page{}, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, index, len(doc.Pages))
	}
	page := &doc.Pages[index]
	svg, _, err := s.renderPage(index, page, 0)
	if err != nil {
		return events.Page{}, err
	}
	w, h := render.PixelSize(page.Frame.Size, scale)
	return events.Page{SVG: svg, Width: w, Height: h, Nonce: nonce}, nil
}

// Document returns the last published document, or nil.
func (s *Session) Document() *layout.Document {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	return s.doc
}

// RenderStats reports the page cache counters.
func (s *Session) RenderStats() render.Stats { return s.cache.Stats() }

// Invalidate drops what the overlay remembers about path on disk, after the
// file changed outside the editor.
func (s *Session) Invalidate(path string) bool {
	var reset bool
	_, _ = s.overlayMu.Do(func() {
		reset = s.overlay.Invalidate(path)
	})
	return reset
}

// Close stops the mailbox, cancels the running job and waits for every job
// to return. Events may still be published while Close waits.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})
	<-s.readerDone
	s.jobs.Wait()
}

type phase struct {
	s     *Session
	name  string
	span  *trace.Span
	start time.Time
}

func (s *Session) phase(name string, parent uint64) phase {
	return phase{
		s:     s,
		name:  name,
		span:  trace.Begin(s.opts.Tracer, trace.ScopePhase, name, parent),
		start: time.Now(),
	}
}

func (p phase) done() {
	p.span.End("")
	p.s.opts.Metrics.ObservePhase(p.name, time.Since(p.start))
}
