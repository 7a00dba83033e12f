// Package world implements markup.World over a project directory with
// in-memory overrides for files that are being edited.
package world

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"vellum/internal/fonts"
	"vellum/internal/markup"
	"vellum/internal/source"
)

type Options struct {
	// Root is the project directory; project files never resolve outside it.
	Root     string
	Fonts    *fonts.Table
	Packages *Packages
	// Now defaults to time.Now.
	Now func() time.Time
}

// Overlay serves project and package files, preferring overrides set with
// Update. Disk reads happen once per file and their outcome, errors
// included, is memoized until Invalidate.
type Overlay struct {
	root     string
	fonts    *fonts.Table
	packages *Packages
	now      func() time.Time

	mu      sync.RWMutex
	slots   map[source.VirtualID]*slot
	main    source.VirtualID
	mainSet bool
}

// slot holds the state of one file. Source and bytes are memoized
// independently, each under its own lock.
type slot struct {
	id source.VirtualID

	srcMu   sync.RWMutex
	src     *source.Source
	srcErr  error
	srcDone bool

	fileMu     sync.RWMutex
	path       string
	data       []byte
	fileErr    error
	fileDone   bool
	overridden bool
}

func New(opts Options) *Overlay {
	o := &Overlay{
		root:     opts.Root,
		fonts:    opts.Fonts,
		packages: opts.Packages,
		now:      opts.Now,
		slots:    make(map[source.VirtualID]*slot),
	}
	if o.fonts == nil {
		o.fonts = fonts.Builtin()
	}
	if o.packages == nil {
		o.packages = NewPackages("", "")
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

var _ markup.World = (*Overlay)(nil)

func (o *Overlay) Root() string { return o.root }

// Resolve maps an absolute path inside the root, or a root-relative path, to
// a project file id.
func (o *Overlay) Resolve(path string) (source.VirtualID, error) {
	id, err := source.VirtualIDFromPath(o.root, path)
	if err != nil {
		return source.VirtualID{}, &markup.FileError{Kind: markup.AccessDenied, Path: path, Err: err}
	}
	return id, nil
}

func (o *Overlay) slot(id source.VirtualID) *slot {
	o.mu.RLock()
	s, ok := o.slots[id]
	o.mu.RUnlock()
	if ok {
		return s
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok = o.slots[id]; !ok {
		s = &slot{id: id}
		o.slots[id] = s
	}
	return s
}

// Len returns the number of files the overlay knows about.
func (o *Overlay) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.slots)
}

// Update overrides the content of path. An already parsed source is updated
// in place; identical content changes nothing.
func (o *Overlay) Update(path, content string) (source.VirtualID, error) {
	id, err := o.Resolve(path)
	if err != nil {
		return source.VirtualID{}, err
	}
	s := o.slot(id)

	s.fileMu.Lock()
	if !s.fileDone || s.fileErr != nil || string(s.data) != content {
		s.data = []byte(content)
	}
	s.fileErr = nil
	s.fileDone = true
	s.overridden = true
	s.fileMu.Unlock()

	s.srcMu.Lock()
	if s.srcDone && s.srcErr == nil && s.src != nil {
		s.src.Replace(content)
	} else {
		s.src = source.New(id, content)
		s.srcErr = nil
		s.srcDone = true
	}
	s.srcMu.Unlock()
	return id, nil
}

// Invalidate forgets memoized disk reads of path. Overrides are kept.
// It reports whether a slot was reset.
func (o *Overlay) Invalidate(path string) bool {
	id, err := o.Resolve(path)
	if err != nil {
		return false
	}
	o.mu.RLock()
	s, ok := o.slots[id]
	o.mu.RUnlock()
	if !ok {
		return false
	}

	// same order as Source: source lock, then file lock
	s.srcMu.Lock()
	defer s.srcMu.Unlock()
	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	if s.overridden {
		return false
	}
	s.src, s.srcErr, s.srcDone = nil, nil, false
	s.data, s.fileErr, s.fileDone = nil, nil, false
	return true
}

// Source returns the parsed text of id. Disk content is decoded with its BOM
// stripped and CRLF line endings converted.
func (o *Overlay) Source(id source.VirtualID) (*source.Source, error) {
	s := o.slot(id)

	s.srcMu.RLock()
	if s.srcDone {
		src, err := s.src, s.srcErr
		s.srcMu.RUnlock()
		return src, err
	}
	s.srcMu.RUnlock()

	s.srcMu.Lock()
	defer s.srcMu.Unlock()
	if s.srcDone {
		return s.src, s.srcErr
	}
	data, err := o.File(id)
	if err == nil {
		text, ok := source.Decode(data)
		if ok {
			s.src = source.New(id, text)
		} else {
			err = &markup.FileError{Kind: markup.NotSource, ID: id, Path: s.diskPath()}
		}
	}
	s.srcErr = err
	s.srcDone = true
	return s.src, s.srcErr
}

// File returns the raw bytes of id.
func (o *Overlay) File(id source.VirtualID) ([]byte, error) {
	s := o.slot(id)

	s.fileMu.RLock()
	if s.fileDone {
		data, err := s.data, s.fileErr
		s.fileMu.RUnlock()
		return data, err
	}
	s.fileMu.RUnlock()

	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	if s.fileDone {
		return s.data, s.fileErr
	}
	s.data, s.fileErr = o.read(s)
	s.fileDone = true
	return s.data, s.fileErr
}

func (s *slot) diskPath() string {
	s.fileMu.RLock()
	defer s.fileMu.RUnlock()
	return s.path
}

// read loads the slot from disk; the caller holds fileMu.
func (o *Overlay) read(s *slot) ([]byte, error) {
	root := o.root
	if !s.id.Package.IsZero() {
		var err error
		if root, err = o.packages.Root(s.id.Package); err != nil {
			return nil, err
		}
	}
	p, ok := s.id.Resolve(root)
	if !ok {
		return nil, &markup.FileError{Kind: markup.AccessDenied, ID: s.id, Err: errors.New("no root to resolve against")}
	}
	s.path = p

	data, err := os.ReadFile(p)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, &markup.FileError{Kind: markup.NotFound, ID: s.id, Path: p, Err: fs.ErrNotExist}
	default:
		return nil, &markup.FileError{Kind: markup.IO, ID: s.id, Path: p, Err: err}
	}
}

func (o *Overlay) SetMain(id source.VirtualID) {
	o.mu.Lock()
	o.main, o.mainSet = id, true
	o.mu.Unlock()
}

func (o *Overlay) Main() source.VirtualID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.main
}

func (o *Overlay) IsMainSet() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mainSet
}

func (o *Overlay) Book() *fonts.Book { return o.fonts.Book() }

func (o *Overlay) Font(i int) (*fonts.Font, bool) { return o.fonts.Font(i) }

func (o *Overlay) Today(offset *int) (time.Time, bool) {
	now := o.now()
	if offset == nil {
		return now.Local(), true
	}
	return now.UTC().Add(time.Duration(*offset) * time.Hour), true
}

func (o *Overlay) String() string {
	return fmt.Sprintf("overlay(%s, %d files)", o.root, o.Len())
}
