// Package events defines what a compile session reports and the publishers
// that deliver it (channels, websocket clients, JSON-RPC notifications, the
// watch view).
package events

import (
	"encoding/json"
	"sync"
)

// Diagnostic is a problem in the edited file. Range is a half-open character
// range over the submitted content.
type Diagnostic struct {
	Range    [2]int   `json:"range"`
	Severity string   `json:"severity"`
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message"`
	Hints    []string `json:"hints"`
}

// Document summarizes a successful compile. PageSvgs holds the leading
// pre-rendered pages; the rest are fetched with a render request.
type Document struct {
	Pages        int      `json:"pages"`
	Hash         string   `json:"hash"`
	Width        float64  `json:"width"`
	Height       float64  `json:"height"`
	PageSvgs     []string `json:"pageSvgs"`
	ChangedPages []int    `json:"changedPages"`
}

// Compiled is the outcome of one admitted compile job. Exactly one of
// Document and Diagnostics is meaningful: Document is nil on failure.
type Compiled struct {
	Session     string
	RequestID   uint64
	Document    *Document
	Diagnostics []Diagnostic
}

func (c Compiled) OK() bool { return c.Document != nil }

func (c Compiled) MarshalJSON() ([]byte, error) {
	type success struct {
		Session   string    `json:"session"`
		RequestID uint64    `json:"requestId"`
		Document  *Document `json:"document"`
	}
	type failure struct {
		Session     string       `json:"session"`
		RequestID   uint64       `json:"requestId"`
		Diagnostics []Diagnostic `json:"diagnostics"`
	}
	if c.OK() {
		return json.Marshal(success{c.Session, c.RequestID, c.Document})
	}
	diags := c.Diagnostics
	if diags == nil {
		diags = []Diagnostic{}
	}
	return json.Marshal(failure{c.Session, c.RequestID, diags})
}

func (c *Compiled) UnmarshalJSON(data []byte) error {
	var raw struct {
		Session     string       `json:"session"`
		RequestID   uint64       `json:"requestId"`
		Document    *Document    `json:"document"`
		Diagnostics []Diagnostic `json:"diagnostics"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Compiled{Session: raw.Session, RequestID: raw.RequestID, Document: raw.Document, Diagnostics: raw.Diagnostics}
	return nil
}

// Page is an on-demand render of one page.
type Page struct {
	SVG    string `json:"svg"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	Nonce  uint64 `json:"nonce"`
}

// Publisher receives compile outcomes. Publish is called from job goroutines,
// in request id order per session, and must not block for long.
type Publisher interface {
	Publish(Compiled)
}

type PublisherFunc func(Compiled)

func (f PublisherFunc) Publish(c Compiled) { f(c) }

// Nop drops everything.
var Nop Publisher = PublisherFunc(func(Compiled) {})

type multi []Publisher

// Multi publishes to every non-nil publisher in order.
func Multi(pubs ...Publisher) Publisher {
	out := make(multi, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (m multi) Publish(c Compiled) {
	for _, p := range m {
		p.Publish(c)
	}
}

// Chan is a buffered channel sink. When the buffer is full the oldest event is
// dropped so that the newest one always gets through.
type Chan struct {
	mu      sync.Mutex
	ch      chan Compiled
	dropped uint64
}

func NewChan(size int) *Chan {
	if size <= 0 {
		size = 16
	}
	return &Chan{ch: make(chan Compiled, size)}
}

func (c *Chan) C() <-chan Compiled { return c.ch }

func (c *Chan) Publish(ev Compiled) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		select {
		case c.ch <- ev:
			return
		default:
		}
		select {
		case <-c.ch:
			c.dropped++
		default:
		}
	}
}

// Dropped counts events discarded because nobody was reading.
func (c *Chan) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Compiled
}

func (r *Recorder) Publish(c Compiled) {
	r.mu.Lock()
	r.events = append(r.events, c)
	r.mu.Unlock()
}

func (r *Recorder) Events() []Compiled {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Compiled(nil), r.events...)
}

// Last returns the most recent event.
func (r *Recorder) Last() (Compiled, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Compiled{}, false
	}
	return r.events[len(r.events)-1], true
}
