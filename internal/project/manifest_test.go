package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func write(t *testing.T, path, text string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, ManifestName), `
[project]
name = "thesis"
main = "src/main.vel"

[compile]
debounce = "150ms"
prerender = 4

[fonts]
dirs = ["fonts", "/opt/fonts"]
no_system = true

[render]
disk_cache = true
`)
	nested := filepath.Join(root, "src", "chapters")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, ok, err := Load(nested)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if m.Root != root {
		t.Errorf("root = %q, want %q", m.Root, root)
	}
	if m.Name() != "thesis" || m.MainPath() != filepath.Join(root, "src", "main.vel") {
		t.Errorf("project = %+v", m.Config.Project)
	}
	if time.Duration(m.Config.Compile.Debounce) != 150*time.Millisecond || m.Config.Compile.Prerender != 4 {
		t.Errorf("compile = %+v", m.Config.Compile)
	}
	dirs := m.FontDirs()
	if len(dirs) != 2 || dirs[0] != filepath.Join(root, "fonts") || dirs[1] != "/opt/fonts" {
		t.Errorf("font dirs = %v", dirs)
	}
	if !m.Config.Fonts.NoSystem || !m.Config.Render.DiskCache {
		t.Errorf("config = %+v", m.Config)
	}

	found, ok, err := FindRoot(nested)
	if err != nil || !ok || found != root {
		t.Errorf("FindRoot = %q %v %v", found, ok, err)
	}
}

func TestLoadWithoutManifest(t *testing.T) {
	m, ok, err := Load(t.TempDir())
	if err != nil || ok || m != nil {
		t.Fatalf("Load = %v, %v, %v", m, ok, err)
	}
	if m.MainPath() != "" || m.FontDirs() != nil {
		t.Error("nil manifest accessors")
	}
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name, text, want string
	}{
		{"empty main", "[project]\nmain = \"  \"\n", "[project].main is empty"},
		{"absolute main", "[project]\nmain = \"/etc/main.vel\"\n", "must be relative"},
		{"escaping main", "[project]\nmain = \"../main.vel\"\n", "[project].main"},
		{"bad duration", "[compile]\ndebounce = \"soon\"\n", "failed to parse TOML"},
		{"negative debounce", "[compile]\ndebounce = \"-1s\"\n", "must not be negative"},
		{"unknown key", "[compile]\nthreads = 4\n", "unknown key compile.threads"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), ManifestName)
			write(t, p, tt.text)
			_, err := LoadFile(p)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}
