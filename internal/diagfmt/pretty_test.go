package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"vellum/internal/diag"
	"vellum/internal/source"
)

func fixture(t *testing.T, vpath, text string) (source.VirtualID, diag.SourceLookup) {
	t.Helper()
	id, err := source.ProjectFile(vpath)
	if err != nil {
		t.Fatal(err)
	}
	src := source.New(id, text)
	return id, func(v source.VirtualID) *source.Source {
		if v == id {
			return src
		}
		return nil
	}
}

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	id, lookup := fixture(t, "/src/test.vel", "let x = \"unterminated string\n")
	diags := []diag.Diagnostic{
		diag.New(diag.SevError, diag.LexUnterminatedString, source.Span{ID: id, Start: 8, End: 28}, "Unterminated string literal"),
	}

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"Absolute path", PathModeAbsolute, "/home/user/project/src/test.vel:1:9"},
		{"Relative path", PathModeRelative, "src/test.vel:1:9"},
		{"Basename only", PathModeBasename, "test.vel:1:9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, diags, lookup, PrettyOpts{Context: 1, PathMode: tt.mode, Root: "/home/user/project"})
			output := buf.String()

			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.contains, output)
			}
			for _, want := range []string{"ERROR", "LEX1002", "Unterminated string"} {
				if !strings.Contains(output, want) {
					t.Errorf("Expected %q in output:\n%s", want, output)
				}
			}
		})
	}
}

// TestPathModeAuto проверяет авто-режим выбора пути
func TestPathModeAuto(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"Short path - as is", "/chapters/one.vel", "chapters/one.vel:"},
		{"Long path - basename", "/very/long/path/to/some/nested/directory/file.vel", "\nfile.vel:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, lookup := fixture(t, tt.path, "x = 42\n")
			diags := []diag.Diagnostic{
				diag.NewWarning(diag.LexUnknownChar, source.Span{ID: id, Start: 4, End: 6}, "Test warning"),
			}
			var buf bytes.Buffer
			Pretty(&buf, diags, lookup, PrettyOpts{})
			output := "\n" + buf.String()
			if !strings.Contains(output, tt.expected) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.expected, output)
			}
		})
	}
}

func TestPrettyCaretUsesDisplayWidth(t *testing.T) {
	id, lookup := fixture(t, "/main.vel", "日本 #€ x\n")
	// "#€" starts at byte 7
	diags := []diag.Diagnostic{
		diag.NewError(diag.LexUnknownChar, source.Span{ID: id, Start: 7, End: 11}, "unexpected character").
			WithHint("escape it"),
	}
	var buf bytes.Buffer
	Pretty(&buf, diags, lookup, PrettyOpts{})
	lines := strings.Split(buf.String(), "\n")
	if len(lines) < 4 {
		t.Fatalf("output:\n%s", buf.String())
	}
	if lines[0] != "main.vel:1:8: ERROR LEX1001: unexpected character" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "   1 | 日本 #€ x" {
		t.Errorf("source line = %q", lines[1])
	}
	// 日本 is four columns wide, then a space
	if lines[2] != "     |      ^^" {
		t.Errorf("caret line = %q", lines[2])
	}
	if lines[3] != "     = hint: escape it" {
		t.Errorf("hint line = %q", lines[3])
	}
}

func TestPrettyContextAndOptions(t *testing.T) {
	id, lookup := fixture(t, "/main.vel", "one\ntwo\n\tthree\nfour\n")
	d := diag.NewError(diag.SynUnexpectedToken, source.Span{ID: id, Start: 9, End: 14}, "a rather long message").WithHint("h")

	var buf bytes.Buffer
	Pretty(&buf, []diag.Diagnostic{d}, lookup, PrettyOpts{Context: 1})
	out := buf.String()
	for _, want := range []string{"   2 | two\n", "   3 |     three\n", "     |     ^^^^^\n", "   4 | four\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "| one") {
		t.Errorf("context too wide:\n%s", out)
	}

	buf.Reset()
	Pretty(&buf, []diag.Diagnostic{d}, lookup, PrettyOpts{Width: 10, NoHints: true})
	out = buf.String()
	if !strings.Contains(out, ": a rathe...\n") || strings.Contains(out, "hint") {
		t.Errorf("width/hints not applied:\n%s", out)
	}

	buf.Reset()
	Pretty(&buf, []diag.Diagnostic{d}, lookup, PrettyOpts{Color: true})
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected ANSI escapes:\n%q", buf.String())
	}
}

func TestPrettyWithoutSource(t *testing.T) {
	id, err := source.ProjectFile("/gone.vel")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	Pretty(&buf, []diag.Diagnostic{diag.NewError(diag.IOLoadFileError, source.Detached(id), "file not found")}, nil, PrettyOpts{})
	if got := buf.String(); got != "gone.vel: ERROR IO4001: file not found\n" {
		t.Errorf("output = %q", got)
	}
}

func TestPrettyPackagePath(t *testing.T) {
	spec, err := source.ParsePackageSpec("@preview/lib:1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	id, err := source.NewVirtualID(spec, "/lib.vel")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	Pretty(&buf, []diag.Diagnostic{diag.NewError(diag.IOPackage, source.Detached(id), "package not found")}, nil, PrettyOpts{PathMode: PathModeBasename})
	if !strings.HasPrefix(buf.String(), "@preview/lib:1.0.0/lib.vel: ERROR") {
		t.Errorf("output = %q", buf.String())
	}
}
