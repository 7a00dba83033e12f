package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vellum/internal/compiler"
	"vellum/internal/diagfmt"
	"vellum/internal/fonts"
	"vellum/internal/project"
	"vellum/internal/render"
	"vellum/internal/world"
)

// projectEnv is everything a command needs to compile inside one project.
type projectEnv struct {
	root     string
	manifest *project.Manifest // nil without vellum.toml
	fonts    *fonts.Table
	packages *world.Packages
	store    *render.DiskStore
	log      *slog.Logger
}

func setupLogging(cmd *cobra.Command) (*slog.Logger, error) {
	levelStr, err := cmd.Root().PersistentFlags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, nil
}

// loadProject resolves the project root from --root or the nearest manifest,
// loads vellum.toml when present and prepares fonts, packages and the page
// store it asks for.
func loadProject(cmd *cobra.Command, log *slog.Logger) (*projectEnv, error) {
	flags := cmd.Root().PersistentFlags()
	rootFlag, err := flags.GetString("root")
	if err != nil {
		return nil, fmt.Errorf("failed to get root flag: %w", err)
	}
	noSystem, err := flags.GetBool("no-system-fonts")
	if err != nil {
		return nil, fmt.Errorf("failed to get no-system-fonts flag: %w", err)
	}

	start := rootFlag
	if start == "" {
		if start, err = os.Getwd(); err != nil {
			return nil, err
		}
	}
	start, err = filepath.Abs(start)
	if err != nil {
		return nil, err
	}

	env := &projectEnv{root: start, log: log}
	manifest, found, err := project.Load(start)
	if err != nil {
		return nil, err
	}
	if found {
		env.manifest = manifest
		// an explicit --root wins over a manifest further up
		if rootFlag == "" || manifest.Root == start {
			env.root = manifest.Root
		} else {
			env.manifest = nil
		}
	}
	cfg := env.config()

	dirs := env.manifest.FontDirs()
	if !noSystem && !cfg.Fonts.NoSystem {
		dirs = append(dirs, fonts.SystemDirs()...)
	}
	if env.fonts, err = fonts.Search(cmd.Context(), dirs); err != nil {
		return nil, fmt.Errorf("font discovery: %w", err)
	}
	log.Debug("fonts loaded", "families", len(env.fonts.Book().Families()), "dirs", len(dirs))

	env.packages = world.DefaultPackages()
	if cfg.Packages.DataDir != "" || cfg.Packages.CacheDir != "" {
		env.packages = world.NewPackages(env.resolve(cfg.Packages.DataDir), env.resolve(cfg.Packages.CacheDir))
	}

	if cfg.Render.DiskCache {
		store, err := render.OpenDiskStore("vellum")
		if err != nil {
			log.Warn("page disk cache unavailable", "err", err)
		} else {
			env.store = store
		}
	}
	return env, nil
}

func (e *projectEnv) config() project.Config {
	if e.manifest == nil {
		return project.Config{}
	}
	return e.manifest.Config
}

func (e *projectEnv) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.root, p)
}

func (e *projectEnv) title() string {
	if e.manifest != nil {
		return e.manifest.Name()
	}
	return filepath.Base(e.root)
}

// mainFile picks the entry file: the argument, then the manifest, then
// main.vel in the root.
func (e *projectEnv) mainFile(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		p := args[0]
		if !filepath.IsAbs(p) {
			if abs, err := filepath.Abs(p); err == nil {
				p = abs
			}
		}
		return p
	}
	if p := e.manifest.MainPath(); p != "" {
		return p
	}
	return filepath.Join(e.root, "main.vel")
}

// overlay builds a fresh world for one-shot compiles.
func (e *projectEnv) overlay() *world.Overlay {
	return world.New(world.Options{Root: e.root, Fonts: e.fonts, Packages: e.packages})
}

// sessionOptions are the compiler options every session of this project
// starts from.
func (e *projectEnv) sessionOptions(mainFile string) compiler.Options {
	cfg := e.config()
	return compiler.Options{
		Root:        e.root,
		Fonts:       e.fonts,
		Packages:    e.packages,
		DefaultMain: mainFile,
		Debounce:    time.Duration(cfg.Compile.Debounce),
		Prerender:   cfg.Compile.Prerender,
		Store:       e.store,
		Logger:      e.log,
	}
}

func useColor(cmd *cobra.Command) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch colorFlag {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		return diagfmt.ShouldColor(os.Stdout), nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}
}
