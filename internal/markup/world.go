package markup

import (
	"errors"
	"fmt"
	"time"

	"vellum/internal/fonts"
	"vellum/internal/source"
)

// World is everything the compiler may ask of its environment. All file
// access goes through Source and File.
type World interface {
	// Main is the entry file of the compilation.
	Main() source.VirtualID
	// Source returns the parsed text of id.
	Source(id source.VirtualID) (*source.Source, error)
	// File returns the raw bytes of id.
	File(id source.VirtualID) ([]byte, error)
	// Book describes the available fonts; Font(i) loads face i of the book.
	Book() *fonts.Book
	Font(i int) (*fonts.Font, bool)
	// Today returns the current date, in UTC shifted by offset hours or in
	// local time when offset is nil. ok is false if the date is unavailable.
	Today(offset *int) (t time.Time, ok bool)
}

type FileErrorKind uint8

const (
	// AccessDenied: the path escapes its root or cannot be mapped to disk.
	AccessDenied FileErrorKind = iota + 1
	NotFound
	IO
	PackageNotFound
	Cancelled
	// NotSource: the bytes are not valid UTF-8.
	NotSource
)

func (k FileErrorKind) String() string {
	switch k {
	case AccessDenied:
		return "access denied"
	case NotFound:
		return "not found"
	case IO:
		return "i/o error"
	case PackageNotFound:
		return "package not found"
	case Cancelled:
		return "cancelled"
	case NotSource:
		return "not valid utf-8"
	}
	return "unknown"
}

// ErrCancelled is wrapped by every file error of kind Cancelled.
var ErrCancelled = errors.New("compilation cancelled")

// FileError is returned by World file accessors.
type FileError struct {
	Kind FileErrorKind
	ID   source.VirtualID
	Path string // absolute path, when one was resolved
	Err  error
}

func (e *FileError) Error() string {
	where := e.ID.String()
	if e.Path != "" {
		where = e.Path
	}
	if e.Err != nil && e.Kind != Cancelled {
		return fmt.Sprintf("%s: %s: %v", where, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", where, e.Kind)
}

func (e *FileError) Unwrap() error { return e.Err }

// CancelledError builds the error returned for id once a compilation was cancelled.
func CancelledError(id source.VirtualID) *FileError {
	return &FileError{Kind: Cancelled, ID: id, Err: ErrCancelled}
}

// KindOf returns the kind of the first FileError in err's chain, or 0.
func KindOf(err error) FileErrorKind {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
