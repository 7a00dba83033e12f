package compiler

import (
	"errors"
	"testing"

	"vellum/internal/markup"
	"vellum/internal/source"
	"vellum/internal/world"
)

func TestGuardStopsFileAccessOnceCancelled(t *testing.T) {
	o := world.New(world.Options{Root: t.TempDir()})
	id, err := o.Update("main.vel", "= Hi")
	if err != nil {
		t.Fatal(err)
	}
	o.SetMain(id)

	token := NewToken()
	g := NewGuard(o, token)
	if src, err := g.Source(id); err != nil || src.Text() != "= Hi" {
		t.Fatalf("Source before cancel = %v, %v", src, err)
	}

	token.Cancel()
	token.Cancel()
	if !token.Cancelled() {
		t.Fatal("token did not stay flipped")
	}
	_, err = g.Source(id)
	if !errors.Is(err, markup.ErrCancelled) || markup.KindOf(err) != markup.Cancelled {
		t.Fatalf("Source after cancel: %v", err)
	}
	other, _ := source.ProjectFile("/never-read.vel")
	if _, err := g.File(other); markup.KindOf(err) != markup.Cancelled {
		t.Fatalf("File after cancel: %v", err)
	}
	if o.Len() != 1 {
		t.Errorf("cancelled read reached the overlay: %d slots", o.Len())
	}

	// static accessors keep working
	if g.Main() != id || g.Book().Len() == 0 {
		t.Error("static accessors changed after cancel")
	}
	if _, ok := g.Today(nil); !ok {
		t.Error("Today failed after cancel")
	}
}

func TestCancelledCompileReportsCancellation(t *testing.T) {
	o := world.New(world.Options{Root: t.TempDir()})
	id, _ := o.Update("main.vel", "text")
	o.SetMain(id)
	token := NewToken()
	token.Cancel()

	res := markup.Compile(NewGuard(o, token))
	if !res.Failed() || len(res.Diagnostics) != 1 {
		t.Fatalf("result = %+v", res)
	}
}
