// Package markup defines the resolution interface between a compiler and its
// environment (World), and a small compiler for Vellum markup built on it.
//
// Vellum markup is line oriented: "= Heading" lines, paragraphs separated by
// blank lines, "// comments", CommonMark inline markup inside paragraphs and
// "#name(args)" calls. Compile lays the result out onto fixed-size pages.
package markup

import (
	"fmt"

	"vellum/internal/diag"
	"vellum/internal/layout"
	"vellum/internal/source"
)

// Result is the outcome of one compilation. Document is nil when any error
// was reported; warnings may accompany a document.
type Result struct {
	Document    *layout.Document
	Diagnostics []diag.Diagnostic
}

func (r Result) Failed() bool {
	return r.Document == nil
}

// Compile compiles w.Main() and everything it includes.
func Compile(w World) Result {
	rep := diag.NewCollector()

	main := w.Main()
	src, err := w.Source(main)
	if err != nil {
		e := &engine{rep: rep}
		e.fileError(source.Detached(main), fmt.Sprintf("read %s", main), err)
		return Result{Diagnostics: rep.Items()}
	}

	e := newEngine(w, rep)
	e.evalFile(src)
	diags := rep.Sorted()
	if rep.Errors() > 0 {
		return Result{Diagnostics: diags}
	}
	return Result{Document: e.document(), Diagnostics: diags}
}
