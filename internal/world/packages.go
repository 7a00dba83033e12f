package world

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/singleflight"

	"vellum/internal/markup"
	"vellum/internal/source"
)

// Packages locates package roots in the local package cache. A package
// @ns/name:1.0.0 lives in <dir>/vellum/packages/ns/name/1.0.0, looked up in
// the data directory first and the cache directory second. Nothing is ever
// downloaded.
type Packages struct {
	dirs []string

	group singleflight.Group
	mu    sync.RWMutex
	roots map[source.PackageSpec]string
}

func NewPackages(dataDir, cacheDir string) *Packages {
	p := &Packages{roots: make(map[source.PackageSpec]string)}
	for _, d := range []string{dataDir, cacheDir} {
		if d != "" {
			p.dirs = append(p.dirs, filepath.Join(d, "vellum", "packages"))
		}
	}
	return p
}

// DefaultPackages uses the per-user data and cache directories.
func DefaultPackages() *Packages {
	cache, _ := os.UserCacheDir()
	return NewPackages(UserDataDir(), cache)
}

// UserDataDir returns the per-user data directory, or "" if unknown.
func UserDataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" && runtime.GOOS != "windows" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "windows":
		return os.Getenv("APPDATA")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support")
	default:
		return filepath.Join(home, ".local", "share")
	}
}

// Root returns the directory of spec. Concurrent lookups of the same spec
// share one scan; found roots are remembered.
func (p *Packages) Root(spec source.PackageSpec) (string, error) {
	p.mu.RLock()
	root, ok := p.roots[spec]
	p.mu.RUnlock()
	if ok {
		return root, nil
	}

	v, err, _ := p.group.Do(spec.String(), func() (any, error) {
		for _, dir := range p.dirs {
			candidate := filepath.Join(dir, spec.Subdir())
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				p.mu.Lock()
				p.roots[spec] = candidate
				p.mu.Unlock()
				return candidate, nil
			}
		}
		return "", &markup.FileError{
			Kind: markup.PackageNotFound,
			ID:   source.VirtualID{Package: spec},
			Err:  fmt.Errorf("%s is not in the local package cache", spec),
		}
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
