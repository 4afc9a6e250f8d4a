package tracker

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/btree"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
)

const btreeDegree = 32

// Table indexes live allocations by base address.
//
// Lookups take a read lock and run concurrently with each other. Inserts and
// removals take the write lock. Live records never overlap: an insert evicts
// every record whose range intersects the new one.
type Table struct {
	index     *btree.BTreeG[Record]
	sizer     Sizer
	observers []subscription
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	nextID    atomic.Uint64
	nextSub   uint64
	closed    atomic.Bool
}

type subscription struct {
	o  Observer
	id uint64
}

func byBase(a, b Record) bool {
	return a.Base < b.Base
}

// NewTable creates an empty table. sizer supplies type sizes for extents
// and may be nil, in which case every record has a zero extent.
func NewTable(sizer Sizer) *Table {
	return &Table{
		index: btree.NewG[Record](btreeDegree, byBase),
		sizer: sizer,
	}
}

// extent computes count*size for a, failing on overflow of the address space.
func (t *Table) extent(a Allocation) (uint64, error) {
	if t.sizer == nil {
		return 0, nil
	}
	size, ok := t.sizer.SizeOf(a.Type)
	if !ok {
		return 0, nil
	}
	if size != 0 && a.Count > math.MaxUint64/size {
		return 0, errors.New(errors.PhaseRecord, errors.KindOverflow).
			Addr(a.Base).
			Value(a.Count).
			Detail("%d elements of %d bytes overflow", a.Count, size).
			Build()
	}
	ext := a.Count * size
	if span := max(ext, 1); span > uint64(^uintptr(0))-uint64(a.Base) {
		return 0, errors.New(errors.PhaseRecord, errors.KindOverflow).
			Addr(a.Base).
			Value(ext).
			Detail("allocation of %d bytes wraps the address space", ext).
			Build()
	}
	return ext, nil
}

// Insert records a new live allocation and returns its id.
// Records overlapping the new one are evicted and reported as EventReplaced.
// A null base address is refused with an invalid input error.
func (t *Table) Insert(a Allocation) (ids.AllocID, error) {
	if t.closed.Load() {
		return ids.InvalidAlloc, errors.NotInitialized(errors.PhaseRecord, "allocation table")
	}
	if a.Base == 0 {
		err := errors.InvalidInput(errors.PhaseRecord, "null base address")
		t.notify(Event{Type: EventSkipped, Record: Record{Allocation: a}, Err: err})
		return ids.InvalidAlloc, err
	}
	ext, err := t.extent(a)
	if err != nil {
		t.notify(Event{Type: EventSkipped, Record: Record{Allocation: a}, Addr: a.Base, Err: err})
		return ids.InvalidAlloc, err
	}

	rec := Record{
		Allocation: a,
		Extent:     ext,
		ID:         ids.AllocID(t.nextID.Add(1)),
	}

	t.mu.Lock()
	evicted := t.evictLocked(rec.Base, rec.End())
	t.index.ReplaceOrInsert(rec)
	t.mu.Unlock()

	for _, old := range evicted {
		t.notify(Event{Type: EventReplaced, Record: old, Addr: rec.Base})
	}
	t.notify(Event{Type: EventRecorded, Record: rec})
	return rec.ID, nil
}

// evictLocked removes every record intersecting [base, end).
func (t *Table) evictLocked(base, end uintptr) []Record {
	var evicted []Record

	t.index.DescendLessOrEqual(Record{Allocation: Allocation{Base: base}}, func(r Record) bool {
		if r.Base < base && r.End() > base {
			evicted = append(evicted, r)
		}
		return false
	})
	t.index.AscendRange(
		Record{Allocation: Allocation{Base: base}},
		Record{Allocation: Allocation{Base: end}},
		func(r Record) bool {
			evicted = append(evicted, r)
			return true
		})

	for _, r := range evicted {
		t.index.Delete(r)
	}
	return evicted
}

// Remove erases the record at base. It fails with a not-found error when no
// record starts there.
func (t *Table) Remove(base uintptr) (Record, error) {
	t.mu.Lock()
	rec, ok := t.index.Delete(Record{Allocation: Allocation{Base: base}})
	t.mu.Unlock()

	if !ok {
		err := errors.NotFound(errors.PhaseRelease, base)
		t.notify(Event{Type: EventMissed, Addr: base, Err: err})
		return Record{}, err
	}
	t.notify(Event{Type: EventReleased, Record: rec})
	return rec, nil
}

// RemoveID erases the record at base only if it is the allocation id.
// A record that was replaced or released in the meantime is left alone.
func (t *Table) RemoveID(base uintptr, id ids.AllocID) (Record, error) {
	key := Record{Allocation: Allocation{Base: base}}

	t.mu.Lock()
	rec, ok := t.index.Get(key)
	if ok && rec.ID == id {
		t.index.Delete(key)
	}
	t.mu.Unlock()

	if !ok || rec.ID != id {
		return Record{}, errors.New(errors.PhaseRelease, errors.KindNotFound).
			Addr(base).
			Value(id).
			Detail("%s is no longer live", id).
			Build()
	}
	t.notify(Event{Type: EventReleased, Record: rec})
	return rec, nil
}

// Find returns the record whose range contains addr and the offset of addr
// within it.
func (t *Table) Find(addr uintptr) (Record, uint64, bool) {
	var (
		rec   Record
		found bool
	)
	t.mu.RLock()
	t.index.DescendLessOrEqual(Record{Allocation: Allocation{Base: addr}}, func(r Record) bool {
		rec, found = r, r.Contains(addr)
		return false
	})
	t.mu.RUnlock()

	if !found {
		return Record{}, 0, false
	}
	return rec, uint64(addr - rec.Base), true
}

// RemoveRange erases every record whose base lies in [lo, hi) and returns
// the number removed.
func (t *Table) RemoveRange(lo, hi uintptr) int {
	var removed []Record
	t.mu.Lock()
	t.index.AscendRange(
		Record{Allocation: Allocation{Base: lo}},
		Record{Allocation: Allocation{Base: hi}},
		func(r Record) bool {
			removed = append(removed, r)
			return true
		})
	for _, r := range removed {
		t.index.Delete(r)
	}
	t.mu.Unlock()

	for _, r := range removed {
		t.notify(Event{Type: EventReleased, Record: r})
	}
	return len(removed)
}

// Get returns the record starting exactly at base.
func (t *Table) Get(base uintptr) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.Get(Record{Allocation: Allocation{Base: base}})
}

// Len returns the number of live records.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.Len()
}

// Each calls fn for every live record in address order until fn returns
// false. It iterates over a copy, so fn may modify the table.
func (t *Table) Each(fn func(Record) bool) {
	t.mu.RLock()
	records := make([]Record, 0, t.index.Len())
	t.index.Ascend(func(r Record) bool {
		records = append(records, r)
		return true
	})
	t.mu.RUnlock()

	for _, r := range records {
		if !fn(r) {
			return
		}
	}
}

// Clear releases every live record.
func (t *Table) Clear() {
	t.mu.Lock()
	records := make([]Record, 0, t.index.Len())
	t.index.Ascend(func(r Record) bool {
		records = append(records, r)
		return true
	})
	t.index.Clear(false)
	t.mu.Unlock()

	for _, r := range records {
		t.notify(Event{Type: EventReleased, Record: r})
	}
}

// Close releases every live record and refuses further inserts.
// Closing twice is a no-op.
func (t *Table) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.Clear()
	return nil
}

// Subscribe adds an observer and returns a function that removes it.
func (t *Table) Subscribe(o Observer) (unsubscribe func()) {
	t.obsMu.Lock()
	t.nextSub++
	id := t.nextSub
	t.observers = append(t.observers, subscription{o: o, id: id})
	t.obsMu.Unlock()

	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		for i, s := range t.observers {
			if s.id == id {
				// Copy so a notify already holding the old slice is unaffected.
				t.observers = slices.Delete(slices.Clone(t.observers), i, i+1)
				return
			}
		}
	}
}

// notify calls observers without holding obsMu, so an observer may
// subscribe or unsubscribe from inside its callback.
func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	observers := t.observers
	t.obsMu.RUnlock()
	for _, s := range observers {
		s.o.OnAllocationEvent(e)
	}
}
