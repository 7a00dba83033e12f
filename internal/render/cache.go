package render

import (
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"vellum/internal/layout"
	"vellum/internal/syncx"
)

type entry struct {
	Fingerprint uint64
	Markup      string
	TID         string
}

type CacheOptions struct {
	// Render defaults to SVG.
	Render func(*layout.Page) string
	// Store is optional.
	Store  *DiskStore
	Logger *slog.Logger
}

type Stats struct {
	Hits     uint64
	Misses   uint64
	DiskHits uint64
	Entries  int
	Version  uint64
}

// Cache remembers the rendered markup of each page index. A page whose
// fingerprint matches the cached one is never rendered again. Equal
// fingerprints are taken to mean equal pages.
type Cache struct {
	mu      syncx.Mutex
	entries map[int]entry
	version uint64

	render func(*layout.Page) string
	store  *DiskStore
	log    *slog.Logger

	hits, misses, diskHits atomic.Uint64
}

func NewCache(opts CacheOptions) *Cache {
	c := &Cache{
		entries: make(map[int]entry),
		render:  opts.Render,
		store:   opts.Store,
		log:     opts.Logger,
	}
	if c.render == nil {
		c.render = SVG
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// RenderPage returns the markup of page at index. unchanged is true when the
// cached markup was reused; otherwise the page was rendered (or loaded from
// the disk store) and given a new data-tid. err is set only if rendering
// panicked.
func (c *Cache) RenderPage(index int, page *layout.Page) (markup string, unchanged bool, err error) {
	fp := page.Fingerprint()
	adopted, err := c.mu.Do(func() {
		if e, ok := c.entries[index]; ok && e.Fingerprint == fp {
			c.hits.Add(1)
			markup, unchanged = e.Markup, true
			return
		}
		c.misses.Add(1)
		raw := c.load(fp, page)
		tid := TID(index, fp)
		markup = withTID(raw, tid)
		c.entries[index] = entry{Fingerprint: fp, Markup: markup, TID: tid}
	})
	if adopted && err == nil {
		c.log.Warn("render cache lock was poisoned, continuing", "page", index)
		c.mu.ClearPoison()
	}
	if err != nil {
		return "", false, fmt.Errorf("render page %d: %w", index, err)
	}
	return markup, unchanged, nil
}

func (c *Cache) load(fp uint64, page *layout.Page) string {
	if c.store != nil {
		raw, ok, err := c.store.Get(fp)
		if err != nil {
			c.log.Debug("page store read failed", "fingerprint", fmt.Sprintf("%016x", fp), "err", err)
		}
		if ok {
			c.diskHits.Add(1)
			return raw
		}
	}
	raw := c.render(page)
	if c.store != nil {
		if err := c.store.Put(fp, raw); err != nil {
			c.log.Debug("page store write failed", "err", err)
		}
	}
	return raw
}

// ChangedPages lists the indices of doc whose fingerprint is new or differs
// from the cache. If the cache holds pages past the end of doc, the page
// count is appended once as a marker that trailing pages disappeared.
func (c *Cache) ChangedPages(doc *layout.Document) []int {
	fps := make([]uint64, len(doc.Pages))
	for i := range doc.Pages {
		fps[i] = doc.Pages[i].Fingerprint()
	}
	var changed []int
	_, _ = c.mu.Do(func() {
		stale := false
		for i, fp := range fps {
			if e, ok := c.entries[i]; !ok || e.Fingerprint != fp {
				changed = append(changed, i)
			}
		}
		for i := range c.entries {
			if i >= len(fps) {
				stale = true
				break
			}
		}
		if stale {
			changed = append(changed, len(fps))
		}
	})
	return changed
}

// IsCached reports whether page at index would be served from the cache.
func (c *Cache) IsCached(index int, page *layout.Page) bool {
	fp := page.Fingerprint()
	var ok bool
	_, _ = c.mu.Do(func() {
		e, found := c.entries[index]
		ok = found && e.Fingerprint == fp
	})
	return ok
}

// Cached returns the cached markup of index, if any.
func (c *Cache) Cached(index int) (string, bool) {
	var (
		markup string
		ok     bool
	)
	_, _ = c.mu.Do(func() {
		var e entry
		e, ok = c.entries[index]
		markup = e.Markup
	})
	return markup, ok
}

// Prune drops entries at index maxPage and above.
func (c *Cache) Prune(maxPage int) {
	_, _ = c.mu.Do(func() {
		for i := range c.entries {
			if i >= maxPage {
				delete(c.entries, i)
			}
		}
	})
}

// Reset drops all entries and bumps the version so that holders of old page
// ids can tell they are stale.
func (c *Cache) Reset() {
	_, _ = c.mu.Do(func() {
		clear(c.entries)
		c.version++
	})
}

func (c *Cache) Version() uint64 {
	var v uint64
	_, _ = c.mu.Do(func() { v = c.version })
	return v
}

// Indices returns the cached page indices in order.
func (c *Cache) Indices() []int {
	var out []int
	_, _ = c.mu.Do(func() {
		for i := range c.entries {
			out = append(out, i)
		}
	})
	slices.Sort(out)
	return out
}

func (c *Cache) Stats() Stats {
	s := Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		DiskHits: c.diskHits.Load(),
	}
	_, _ = c.mu.Do(func() {
		s.Entries = len(c.entries)
		s.Version = c.version
	})
	return s
}
