package scope

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
	"github.com/wippyai/typeart-runtime/tracker"
)

type fixedSize uint64

func (s fixedSize) SizeOf(ids.TypeID) (uint64, bool) {
	return uint64(s), true
}

func record(t *testing.T, table *tracker.Table, s *Stack, h Handle, base uintptr) ids.AllocID {
	t.Helper()
	id, err := table.Insert(tracker.Allocation{Base: base, Type: 256, Count: 1, Kind: tracker.KindStack})
	be.Err(t, err, nil)
	be.Err(t, s.Register(h, id, base), nil)
	return id
}

func bases(recs []tracker.Record) []uintptr {
	out := make([]uintptr, len(recs))
	for i, r := range recs {
		out[i] = r.Base
	}
	return out
}

func TestPop_Ordering(t *testing.T) {
	table := tracker.NewTable(fixedSize(8))
	s := NewStack(table)

	s1 := s.Push()
	s2 := s.Push()
	record(t, table, s, s1, 0x100) // X
	record(t, table, s, s2, 0x200) // Y

	res, err := s.Pop(s1)
	be.Err(t, err, nil)
	be.Equal(t, bases(res.Released), []uintptr{0x200, 0x100})
	be.Equal(t, res.Scopes, 2)
	be.Equal(t, res.Missing, 0)
	be.Equal(t, s.Depth(), 0)
	be.Equal(t, table.Len(), 0)
}

func TestPop_MostRecentRegistrationFirst(t *testing.T) {
	table := tracker.NewTable(fixedSize(8))
	s := NewStack(table)

	h := s.Push()
	record(t, table, s, h, 0x100)
	record(t, table, s, h, 0x110)
	record(t, table, s, h, 0x120)

	res, err := s.Pop(h)
	be.Err(t, err, nil)
	be.Equal(t, bases(res.Released), []uintptr{0x120, 0x110, 0x100})
}

func TestPop_InnerOnly(t *testing.T) {
	table := tracker.NewTable(fixedSize(8))
	s := NewStack(table)

	outer := s.Push()
	inner := s.Push()
	record(t, table, s, outer, 0x100)
	record(t, table, s, inner, 0x200)

	res, err := s.Pop(inner)
	be.Err(t, err, nil)
	be.Equal(t, bases(res.Released), []uintptr{0x200})

	top, ok := s.Top()
	be.True(t, ok)
	be.Equal(t, top, outer)
	be.Equal(t, s.Pending(), 1)

	_, ok = table.Get(0x100)
	be.True(t, ok)
}

func TestPop_AlreadyReleased(t *testing.T) {
	table := tracker.NewTable(fixedSize(8))
	s := NewStack(table)

	h := s.Push()
	record(t, table, s, h, 0x100)
	record(t, table, s, h, 0x200)
	record(t, table, s, h, 0x300)

	// freed explicitly
	_, err := table.Remove(0x100)
	be.Err(t, err, nil)
	// reused by an unrelated heap allocation
	_, err = table.Insert(tracker.Allocation{Base: 0x200, Type: 256, Count: 1})
	be.Err(t, err, nil)

	res, err := s.Pop(h)
	be.Err(t, err, nil)
	be.Equal(t, res.Missing, 2)
	be.Equal(t, bases(res.Released), []uintptr{0x300})

	_, ok := table.Get(0x200)
	be.True(t, ok)
}

func TestHandles(t *testing.T) {
	table := tracker.NewTable(fixedSize(8))
	s := NewStack(table)

	h := s.Push()
	_, err := s.Pop(h)
	be.Err(t, err, nil)

	_, err = s.Pop(h)
	be.True(t, errors.IsKind(err, errors.KindInvalidHandle))

	err = s.Register(h, 1, 0x100)
	be.True(t, errors.IsKind(err, errors.KindInvalidHandle))

	_, err = s.Pop(0)
	be.True(t, errors.IsKind(err, errors.KindInvalidHandle))

	next := s.Push()
	be.True(t, next != h)
}

func TestRecursion(t *testing.T) {
	table := tracker.NewTable(fixedSize(16))
	s := NewStack(table)

	var frames []Handle
	for depth := 0; depth < 50; depth++ {
		h := s.Push()
		frames = append(frames, h)
		record(t, table, s, h, uintptr(0x1000+depth*0x10))
	}
	be.Equal(t, table.Len(), 50)

	// unwind half by returning normally, then a non-local exit from the rest
	for i := len(frames) - 1; i >= 25; i-- {
		res, err := s.Pop(frames[i])
		be.Err(t, err, nil)
		be.Equal(t, len(res.Released), 1)
	}
	res, err := s.Pop(frames[0])
	be.Err(t, err, nil)
	be.Equal(t, len(res.Released), 25)
	be.Equal(t, res.Released[0].Base, uintptr(0x1000+24*0x10))
	be.Equal(t, table.Len(), 0)
}

func TestClose(t *testing.T) {
	table := tracker.NewTable(fixedSize(8))
	s := NewStack(table)

	record(t, table, s, s.Push(), 0x100)
	record(t, table, s, s.Push(), 0x200)

	res := s.Close()
	be.Equal(t, res.Scopes, 2)
	be.Equal(t, len(res.Released), 2)
	be.Equal(t, table.Len(), 0)

	res = s.Close()
	be.Equal(t, res.Scopes, 0)
}
