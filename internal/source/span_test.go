package source

import (
	"testing"
)

func TestSpanCover(t *testing.T) {
	a := ProjectFileMust(t, "/a.vel")
	b := ProjectFileMust(t, "/b.vel")

	tests := []struct {
		name     string
		span     Span
		other    Span
		expected Span
	}{
		{
			name:     "other extends both ends",
			span:     Span{ID: a, Start: 5, End: 10},
			other:    Span{ID: a, Start: 2, End: 12},
			expected: Span{ID: a, Start: 2, End: 12},
		},
		{
			name:     "other inside",
			span:     Span{ID: a, Start: 5, End: 10},
			other:    Span{ID: a, Start: 6, End: 7},
			expected: Span{ID: a, Start: 5, End: 10},
		},
		{
			name:     "different file is ignored",
			span:     Span{ID: a, Start: 5, End: 10},
			other:    Span{ID: b, Start: 0, End: 40},
			expected: Span{ID: a, Start: 5, End: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.span.Cover(tt.other); got != tt.expected {
				t.Errorf("Cover() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSpanString(t *testing.T) {
	spec := PackageSpec{Namespace: "preview", Name: "tables", Version: "0.2.0"}
	id, err := NewVirtualID(spec, "lib.vel")
	if err != nil {
		t.Fatal(err)
	}
	got := Span{ID: id, Start: 3, End: 9}.String()
	if got != "@preview/tables:0.2.0/lib.vel:3-9" {
		t.Errorf("unexpected span string %q", got)
	}
}

func ProjectFileMust(t *testing.T, p string) VirtualID {
	t.Helper()
	id, err := ProjectFile(p)
	if err != nil {
		t.Fatalf("ProjectFile(%q): %v", p, err)
	}
	return id
}
