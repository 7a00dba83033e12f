package compiler

import (
	"sync/atomic"
	"time"

	"vellum/internal/fonts"
	"vellum/internal/markup"
	"vellum/internal/source"
)

// Token is a one-way cancellation flag shared by a job and the session that
// started it.
type Token struct {
	flipped atomic.Bool
}

func NewToken() *Token { return &Token{} }

// Cancel flips the token; it never flips back.
func (t *Token) Cancel() { t.flipped.Store(true) }

func (t *Token) Cancelled() bool { return t.flipped.Load() }

// Guard wraps a World so that file access fails once its token is flipped.
// Cancellation is observed only when the compiler asks for a file; anything
// already in progress runs to its next resolution.
type Guard struct {
	world markup.World
	token *Token
}

func NewGuard(w markup.World, t *Token) *Guard {
	return &Guard{world: w, token: t}
}

var _ markup.World = (*Guard)(nil)

func (g *Guard) Source(id source.VirtualID) (*source.Source, error) {
	if g.token.Cancelled() {
		return nil, markup.CancelledError(id)
	}
	return g.world.Source(id)
}

func (g *Guard) File(id source.VirtualID) ([]byte, error) {
	if g.token.Cancelled() {
		return nil, markup.CancelledError(id)
	}
	return g.world.File(id)
}

func (g *Guard) Main() source.VirtualID { return g.world.Main() }

func (g *Guard) Book() *fonts.Book { return g.world.Book() }

func (g *Guard) Font(i int) (*fonts.Font, bool) { return g.world.Font(i) }

func (g *Guard) Today(offset *int) (time.Time, bool) { return g.world.Today(offset) }
