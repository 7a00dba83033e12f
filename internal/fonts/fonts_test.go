package fonts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vellum/internal/layout"
)

func TestInfoFromFile(t *testing.T) {
	tests := []struct {
		path   string
		family string
		weight layout.Weight
		style  layout.Style
		ok     bool
	}{
		{"/f/SourceSerif-BoldItalic.otf", "Source Serif", layout.Bold, layout.Italic, true},
		{"/f/Inter.ttf", "Inter", layout.Regular, layout.Normal, true},
		{"/f/fira_code-Regular.TTF", "fira code", layout.Regular, layout.Normal, true},
		{"/f/readme.txt", "", 0, 0, false},
	}
	for _, tt := range tests {
		info, ok := infoFromFile(tt.path)
		if ok != tt.ok {
			t.Errorf("%s: ok = %v, want %v", tt.path, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if info.Family != tt.family || info.Weight != tt.weight || info.Style != tt.style {
			t.Errorf("%s: got %+v", tt.path, info)
		}
	}
}

func TestSearchAndLazyLoad(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	fontPath := filepath.Join(sub, "Lora-Italic.ttf")
	if err := os.WriteFile(fontPath, []byte("font-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	table, err := Search(context.Background(), []string{dir, filepath.Join(dir, "missing"), dir})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	book := table.Book()
	builtin := len(builtinInfos())
	if book.Len() != builtin+1 {
		t.Fatalf("book has %d faces, want %d", book.Len(), builtin+1)
	}
	idx, ok := book.Select("lora", layout.Regular, layout.Italic)
	if !ok {
		t.Fatal("Lora not found")
	}
	f, ok := table.Font(idx)
	if !ok {
		t.Fatal("font index out of range")
	}

	data, err := f.Data()
	if err != nil || string(data) != "font-bytes" {
		t.Fatalf("Data() = %q, %v", data, err)
	}
	// memoized: removing the file does not matter any more
	if err := os.Remove(fontPath); err != nil {
		t.Fatal(err)
	}
	data, err = f.Data()
	if err != nil || string(data) != "font-bytes" {
		t.Fatalf("second Data() = %q, %v", data, err)
	}
}

func TestBuiltinSelect(t *testing.T) {
	book := Builtin().Book()
	if !book.Has(DefaultFamily) || !book.Has("mono") {
		t.Fatal("builtin families missing")
	}
	i, ok := book.Select(SansFamily, layout.Bold, layout.Italic)
	if !ok {
		t.Fatal("Sans not selectable")
	}
	info, _ := book.Info(i)
	if info.Weight != layout.Bold || info.Style != layout.Italic {
		t.Fatalf("selected %+v", info)
	}
	if book.Has("Comic") {
		t.Fatal("unexpected family")
	}
	fams := book.Families()
	if len(fams) != 3 || fams[0] != "Mono" {
		t.Fatalf("Families() = %v", fams)
	}
}
