package scope

import (
	"sort"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
	"github.com/wippyai/typeart-runtime/tracker"
)

// Remover releases one specific allocation event. *tracker.Table satisfies it.
type Remover interface {
	RemoveID(base uintptr, id ids.AllocID) (tracker.Record, error)
}

// Handle identifies a pushed scope. Handles are never reused within a Stack;
// the zero Handle is invalid.
type Handle uint64

type entry struct {
	base uintptr
	id   ids.AllocID
}

type marker struct {
	entries []entry
	handle  Handle
}

// Result reports what a pop released.
type Result struct {
	// Released holds the released records in release order.
	Released []tracker.Record
	// Missing counts registrations whose allocation had already been
	// released or replaced.
	Missing int
	// Scopes is the number of scopes popped.
	Scopes int
}

// Stack is the scope marker stack of one execution context.
// It is not safe for concurrent use.
type Stack struct {
	remover Remover
	markers []marker
	last    Handle
}

// NewStack creates an empty stack releasing through r.
func NewStack(r Remover) *Stack {
	return &Stack{remover: r}
}

// Push opens a new scope.
func (s *Stack) Push() Handle {
	s.last++
	s.markers = append(s.markers, marker{handle: s.last})
	return s.last
}

// index finds the live marker for h. Handles grow with depth, so the
// markers are sorted by handle.
func (s *Stack) index(h Handle) (int, bool) {
	i := sort.Search(len(s.markers), func(i int) bool { return s.markers[i].handle >= h })
	if i < len(s.markers) && s.markers[i].handle == h {
		return i, true
	}
	return 0, false
}

// Register ties a recorded allocation to the scope h.
func (s *Stack) Register(h Handle, id ids.AllocID, base uintptr) error {
	i, ok := s.index(h)
	if !ok {
		return errors.New(errors.PhaseScope, errors.KindInvalidHandle).
			Addr(base).
			Value(h).
			Detail("scope %d is not open", h).
			Build()
	}
	m := &s.markers[i]
	m.entries = append(m.entries, entry{base: base, id: id})
	return nil
}

// Pop closes scope h together with every scope opened after it. Scopes are
// unwound from the most recent, and within a scope allocations are released
// from the most recently registered.
func (s *Stack) Pop(h Handle) (Result, error) {
	i, ok := s.index(h)
	if !ok {
		return Result{}, errors.New(errors.PhaseScope, errors.KindInvalidHandle).
			Value(h).
			Detail("scope %d is not open", h).
			Build()
	}
	return s.unwind(i), nil
}

func (s *Stack) unwind(to int) Result {
	var res Result
	for k := len(s.markers) - 1; k >= to; k-- {
		entries := s.markers[k].entries
		for j := len(entries) - 1; j >= 0; j-- {
			rec, err := s.remover.RemoveID(entries[j].base, entries[j].id)
			if err != nil {
				res.Missing++
				continue
			}
			res.Released = append(res.Released, rec)
		}
		s.markers[k] = marker{}
		res.Scopes++
	}
	s.markers = s.markers[:to]
	return res
}

// Top returns the innermost open scope.
func (s *Stack) Top() (Handle, bool) {
	if len(s.markers) == 0 {
		return 0, false
	}
	return s.markers[len(s.markers)-1].handle, true
}

// Depth returns the number of open scopes.
func (s *Stack) Depth() int {
	return len(s.markers)
}

// Pending returns the number of registrations in open scopes.
func (s *Stack) Pending() int {
	n := 0
	for _, m := range s.markers {
		n += len(m.entries)
	}
	return n
}

// Close unwinds every open scope, as on exit of the execution context.
func (s *Stack) Close() Result {
	if len(s.markers) == 0 {
		return Result{}
	}
	return s.unwind(0)
}
