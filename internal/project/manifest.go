// Package project finds and loads vellum.toml, the optional project manifest
// that names the main file and tunes compilation.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"vellum/internal/source"
)

const ManifestName = "vellum.toml"

// Manifest is a loaded vellum.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

type Config struct {
	Project  ProjectConfig  `toml:"project"`
	Compile  CompileConfig  `toml:"compile"`
	Fonts    FontsConfig    `toml:"fonts"`
	Packages PackagesConfig `toml:"packages"`
	Render   RenderConfig   `toml:"render"`
}

type ProjectConfig struct {
	Name string `toml:"name"`
	// Main is the entry file, relative to the project root.
	Main string `toml:"main"`
}

type CompileConfig struct {
	Debounce  Duration `toml:"debounce"`
	Prerender int      `toml:"prerender"`
}

type FontsConfig struct {
	// Dirs are searched in addition to the system font directories.
	Dirs []string `toml:"dirs"`
	// NoSystem skips the system font directories.
	NoSystem bool `toml:"no_system"`
}

type PackagesConfig struct {
	DataDir  string `toml:"data_dir"`
	CacheDir string `toml:"cache_dir"`
}

type RenderConfig struct {
	// DiskCache keeps rendered pages in the user cache directory.
	DiskCache bool `toml:"disk_cache"`
}

// Duration is a time.Duration written as "150ms" in TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Find walks up from startDir to locate vellum.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// FindRoot returns the directory containing vellum.toml, if any.
func FindRoot(startDir string) (root string, ok bool, err error) {
	manifestPath, ok, err := Find(startDir)
	if err != nil || !ok {
		return "", ok, err
	}
	return filepath.Dir(manifestPath), true, nil
}

// Load finds and parses the manifest above startDir. ok is false when there
// is none.
func Load(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := Find(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadFile(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

func LoadFile(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if meta.IsDefined("project", "main") {
		main := strings.TrimSpace(cfg.Project.Main)
		if main == "" {
			return Config{}, fmt.Errorf("%s: [project].main is empty", path)
		}
		if filepath.IsAbs(main) {
			return Config{}, fmt.Errorf("%s: [project].main must be relative to the project root", path)
		}
		if _, err := source.ProjectFile(filepath.ToSlash(main)); err != nil {
			return Config{}, fmt.Errorf("%s: [project].main: %w", path, err)
		}
		cfg.Project.Main = main
	}
	if cfg.Compile.Debounce < 0 {
		return Config{}, fmt.Errorf("%s: [compile].debounce must not be negative", path)
	}
	return cfg, nil
}

// MainPath returns the absolute main file, or "" when none is configured.
func (m *Manifest) MainPath() string {
	if m == nil || m.Config.Project.Main == "" {
		return ""
	}
	return filepath.Join(m.Root, filepath.FromSlash(m.Config.Project.Main))
}

// FontDirs returns the configured font directories resolved against the root.
func (m *Manifest) FontDirs() []string {
	if m == nil {
		return nil
	}
	dirs := make([]string, 0, len(m.Config.Fonts.Dirs))
	for _, d := range m.Config.Fonts.Dirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(m.Root, d)
		}
		dirs = append(dirs, d)
	}
	return dirs
}

// Name falls back to the root directory name.
func (m *Manifest) Name() string {
	if m.Config.Project.Name != "" {
		return m.Config.Project.Name
	}
	return filepath.Base(m.Root)
}
