package markup

import (
	"io/fs"
	"sync"
	"testing"
	"time"

	"vellum/internal/fonts"
	"vellum/internal/source"
)

// memWorld serves files from memory.
type memWorld struct {
	main  source.VirtualID
	files map[source.VirtualID][]byte
	table *fonts.Table
	now   time.Time

	mu    sync.Mutex
	reads map[source.VirtualID]int
	fail  map[source.VirtualID]error
}

func newMemWorld(t *testing.T, mainText string) *memWorld {
	t.Helper()
	w := &memWorld{
		files: make(map[source.VirtualID][]byte),
		table: fonts.Builtin(),
		now:   time.Date(2024, 3, 9, 22, 30, 0, 0, time.UTC),
		reads: make(map[source.VirtualID]int),
		fail:  make(map[source.VirtualID]error),
	}
	w.main = w.add(t, "/main.vel", mainText)
	return w
}

func (w *memWorld) add(t *testing.T, p, text string) source.VirtualID {
	t.Helper()
	id, err := source.ProjectFile(p)
	if err != nil {
		t.Fatalf("ProjectFile(%q): %v", p, err)
	}
	w.files[id] = []byte(text)
	return id
}

func (w *memWorld) Main() source.VirtualID { return w.main }

func (w *memWorld) File(id source.VirtualID) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reads[id]++
	if err, ok := w.fail[id]; ok {
		return nil, err
	}
	data, ok := w.files[id]
	if !ok {
		return nil, &FileError{Kind: NotFound, ID: id, Err: fs.ErrNotExist}
	}
	return data, nil
}

func (w *memWorld) Source(id source.VirtualID) (*source.Source, error) {
	data, err := w.File(id)
	if err != nil {
		return nil, err
	}
	text, ok := source.Decode(data)
	if !ok {
		return nil, &FileError{Kind: NotSource, ID: id}
	}
	return source.New(id, text), nil
}

func (w *memWorld) Book() *fonts.Book { return w.table.Book() }

func (w *memWorld) Font(i int) (*fonts.Font, bool) { return w.table.Font(i) }

func (w *memWorld) Today(offset *int) (time.Time, bool) {
	if offset == nil {
		return w.now, true
	}
	return w.now.Add(time.Duration(*offset) * time.Hour), true
}
