package source

import (
	"fmt"
)

// Span is a half-open byte range inside one file.
type Span struct {
	ID    VirtualID
	Start uint32 // inclusive
	End   uint32 // exclusive
}

// Detached returns an empty span at the start of id, used for problems that
// have no better location.
func Detached(id VirtualID) Span {
	return Span{ID: id}
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d-%d", s.ID, s.Start, s.End)
}

// Cover extends s to include other when both are in the same file.
func (s Span) Cover(other Span) Span {
	if s.ID != other.ID {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

func (s Span) ShiftRight(n uint32) Span {
	return Span{
		ID:    s.ID,
		Start: s.Start + n,
		End:   s.End + n,
	}
}
