package fonts

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// SystemDirs lists the usual font directories of the host.
func SystemDirs() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return []string{"/System/Library/Fonts", "/Library/Fonts", filepath.Join(home, "Library/Fonts")}
	case "windows":
		return []string{filepath.Join(os.Getenv("WINDIR"), "Fonts")}
	default:
		return []string{"/usr/share/fonts", "/usr/local/share/fonts", filepath.Join(home, ".local/share/fonts"), filepath.Join(home, ".fonts")}
	}
}

// Search walks dirs in parallel and returns a table with the builtin families
// first, followed by every font file found, sorted by path. Missing
// directories are skipped.
func Search(ctx context.Context, dirs []string) (*Table, error) {
	found := make([][]Info, len(dirs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, runtime.GOMAXPROCS(0)))
	for i, dir := range dirs {
		g.Go(func() error {
			infos, err := scanDir(ctx, dir)
			found[i] = infos
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Info
	for _, infos := range found {
		all = append(all, infos...)
	}
	slices.SortFunc(all, func(a, b Info) int { return strings.Compare(a.Path, b.Path) })
	all = slices.CompactFunc(all, func(a, b Info) bool { return a.Path == b.Path })
	return NewTable(append(builtinInfos(), all...)), nil
}

func scanDir(ctx context.Context, dir string) ([]Info, error) {
	if dir == "" {
		return nil, nil
	}
	var out []Info
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			// unreadable subtrees are ignored
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if info, ok := infoFromFile(path); ok {
			out = append(out, info)
		}
		return nil
	})
	return out, err
}
