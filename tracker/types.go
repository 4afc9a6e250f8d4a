package tracker

import (
	"github.com/wippyai/typeart-runtime/ids"
)

// Kind is the provenance of an allocation.
type Kind uint8

const (
	KindHeap Kind = iota
	KindStack
	KindGlobal
)

var kindNames = [...]string{
	KindHeap:   "heap",
	KindStack:  "stack",
	KindGlobal: "global",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Allocation is what a producer reports at an allocation site.
type Allocation struct {
	Base     uintptr
	CallSite uintptr // optional return address of the allocation site
	Count    uint64
	Type     ids.TypeID
	Kind     Kind
}

// Record is a live allocation held by a Table.
type Record struct {
	Allocation
	// Extent is Count times the type size when the record was inserted,
	// or 0 when the size was unknown.
	Extent uint64
	ID     ids.AllocID
}

// span is the number of bytes the record claims. A zero-extent record still
// claims its base address.
func (r Record) span() uint64 {
	if r.Extent == 0 {
		return 1
	}
	return r.Extent
}

// End is the first address past the claimed range.
func (r Record) End() uintptr {
	return r.Base + uintptr(r.span())
}

// Contains reports whether addr lies in the claimed range.
func (r Record) Contains(addr uintptr) bool {
	return addr >= r.Base && addr < r.End()
}

// EventType identifies a table lifecycle notification.
type EventType uint8

const (
	EventRecorded EventType = iota
	// EventReleased is sent for explicit removals and for Clear.
	EventReleased
	// EventReplaced is sent for a live record evicted by an overlapping insert.
	EventReplaced
	// EventSkipped is sent for an insert that was refused.
	EventSkipped
	// EventMissed is sent for a removal of an address that is not tracked.
	EventMissed
)

var eventNames = [...]string{
	EventRecorded: "recorded",
	EventReleased: "released",
	EventReplaced: "replaced",
	EventSkipped:  "skipped",
	EventMissed:   "missed",
}

func (e EventType) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return "unknown"
}

// Event describes one change to a table.
type Event struct {
	Err    error // EventSkipped, EventMissed
	Record Record
	Addr   uintptr
	Type   EventType
}

// Observer receives table events. Observers are called outside the table's
// lock and may call back into the table.
type Observer interface {
	OnAllocationEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnAllocationEvent(e Event) {
	f(e)
}

// Sizer reports the byte size of a type. *typedb.Database satisfies it.
type Sizer interface {
	SizeOf(ids.TypeID) (uint64, bool)
}
