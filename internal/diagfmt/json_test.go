package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"vellum/internal/diag"
	"vellum/internal/source"
)

func TestJSONOutput(t *testing.T) {
	id, lookup := fixture(t, "/main.vel", "first\nsecond #x\n")
	diags := []diag.Diagnostic{
		diag.NewError(diag.LexUnknownChar, source.Span{ID: id, Start: 13, End: 15}, "unexpected character").WithHint("escape it"),
		diag.NewWarning(diag.SynEmptyHeading, source.Span{ID: id, Start: 0, End: 1}, "empty heading"),
		diag.NewError(diag.SemUnknownFunction, source.Span{ID: id, Start: 0, End: 5}, "unknown function"),
	}

	var buf bytes.Buffer
	if err := JSON(&buf, diags, lookup, JSONOpts{IncludePositions: true, Max: 2}); err != nil {
		t.Fatal(err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if out.Count != 2 || len(out.Diagnostics) != 2 || out.Errors != 2 {
		t.Fatalf("count=%d len=%d errors=%d", out.Count, len(out.Diagnostics), out.Errors)
	}

	first := out.Diagnostics[0]
	if first.Severity != "error" || first.Code != "LEX1001" || first.Title != "Unexpected character" {
		t.Errorf("first = %+v", first)
	}
	want := LocationJSON{File: "main.vel", StartByte: 13, EndByte: 15, StartLine: 2, StartCol: 8, EndLine: 2, EndCol: 10}
	if first.Location != want {
		t.Errorf("location = %+v, want %+v", first.Location, want)
	}
	if len(first.Hints) != 1 || first.Hints[0] != "escape it" {
		t.Errorf("hints = %v", first.Hints)
	}
	if out.Diagnostics[1].Severity != "warning" {
		t.Errorf("second severity = %q", out.Diagnostics[1].Severity)
	}
}

func TestJSONWithoutPositions(t *testing.T) {
	id, lookup := fixture(t, "/a.vel", "abc")
	out := BuildDiagnosticsOutput([]diag.Diagnostic{
		diag.NewError(diag.LexUnknownChar, source.Span{ID: id, Start: 1, End: 2}, "x"),
	}, lookup, JSONOpts{PathMode: PathModeAbsolute, Root: "/proj"})
	loc := out.Diagnostics[0].Location
	if loc.File != "/proj/a.vel" || loc.StartLine != 0 {
		t.Errorf("location = %+v", loc)
	}
}
