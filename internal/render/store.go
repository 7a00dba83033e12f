package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when diskPage or the SVG output changes.
const diskSchemaVersion uint16 = 1

// DiskStore keeps rendered pages on disk by fingerprint, so reopening a
// project does not re-render pages that did not change. Safe for concurrent use.
type DiskStore struct {
	mu  sync.RWMutex
	dir string
}

type diskPage struct {
	Schema      uint16
	Fingerprint uint64
	Markup      string
}

// OpenDiskStore opens the store under the user cache directory.
func OpenDiskStore(app string) (*DiskStore, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	return NewDiskStore(filepath.Join(base, app, "pages"))
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) pathFor(fp uint64) string {
	// два уровня, чтобы не складывать всё в один каталог
	name := fmt.Sprintf("%016x", fp)
	return filepath.Join(s.dir, name[:2], name+".mp")
}

// Put writes markup for fp atomically.
func (s *DiskStore) Put(fp uint64, markup string) (err error) {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.pathFor(fp)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(&diskPage{Schema: diskSchemaVersion, Fingerprint: fp, Markup: markup}); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), p)
}

// Get returns the markup stored for fp. Entries written by another schema
// version count as missing.
func (s *DiskStore) Get(fp uint64) (string, bool, error) {
	if s == nil {
		return "", false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.pathFor(fp))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	defer f.Close()

	var page diskPage
	if err := msgpack.NewDecoder(f).Decode(&page); err != nil {
		return "", false, err
	}
	if page.Schema != diskSchemaVersion || page.Fingerprint != fp {
		return "", false, nil
	}
	return page.Markup, true, nil
}

// DropAll removes every stored page.
func (s *DiskStore) DropAll() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(s.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
