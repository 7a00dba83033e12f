package source

import (
	"testing"
)

func TestDecodeNormalizesBOMAndCRLF(t *testing.T) {
	raw := []byte("\xEF\xBB\xBFfirst\r\nsecond\rthird\r\n")
	text, ok := Decode(raw)
	if !ok {
		t.Fatal("expected valid utf-8")
	}
	if text != "first\nsecond\rthird\n" {
		t.Errorf("unexpected decoded text %q", text)
	}
}

func TestDecodeRejectsInvalidUTF8(t *testing.T) {
	if _, ok := Decode([]byte{0xff, 0xfe, 'a'}); ok {
		t.Error("expected invalid utf-8 to be rejected")
	}
}

func TestCleanVirtualPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"main.vel", "/main.vel", true},
		{"/chapters/../main.vel", "/main.vel", true},
		{`chapters\intro.vel`, "/chapters/intro.vel", true},
		{"./a//b/./c.vel", "/a/b/c.vel", true},
		{"../secret", "", false},
		{"a/../../b", "", false},
		// decomposed e + combining acute becomes the composed form
		{"cafe\u0301.vel", "/caf\u00e9.vel", true},
	}
	for _, tt := range tests {
		got, ok := CleanVirtualPath(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("CleanVirtualPath(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCharRange(t *testing.T) {
	text := "héllo wörld"
	// "wörld" starts after "héllo " (7 bytes, 6 runes) and is 6 bytes long.
	start, end := CharRange(text, 7, 13)
	if start != 6 || end != 11 {
		t.Errorf("CharRange = [%d, %d), want [6, 11)", start, end)
	}

	start, end = CharRange(text, -4, 99)
	if start != 0 || end != 11 {
		t.Errorf("clamped CharRange = [%d, %d), want [0, 11)", start, end)
	}
}

func TestCharRangeInsideRune(t *testing.T) {
	tests := []struct {
		text       string
		start, end int
		from, to   int
	}{
		{"€", 1, 2, 0, 0},
		{"€", 0, 2, 0, 0},
		{"€", 1, 3, 0, 1},
		{"a€b", 2, 5, 1, 3},
		{"😀x", 3, 4, 0, 1},
	}
	for _, tt := range tests {
		from, to := CharRange(tt.text, tt.start, tt.end)
		if from != tt.from || to != tt.to {
			t.Errorf("CharRange(%q, %d, %d) = [%d, %d), want [%d, %d)", tt.text, tt.start, tt.end, from, to, tt.from, tt.to)
		}
	}
}
