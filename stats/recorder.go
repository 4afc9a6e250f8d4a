package stats

import (
	"sync"
	"sync/atomic"

	"github.com/elliotchance/orderedmap"
	"go.uber.org/zap"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
	"github.com/wippyai/typeart-runtime/tracker"
)

// TypeCount is the per-type slice of a Snapshot.
type TypeCount struct {
	Type   ids.TypeID
	Allocs uint64
	Frees  uint64
	// Elements is the total element count over all allocations of Type.
	Elements uint64
}

// Snapshot is a point-in-time copy of a Recorder's counters.
type Snapshot struct {
	Types []TypeCount

	HeapAllocs   uint64
	HeapArrays   uint64
	HeapFrees    uint64
	StackAllocs  uint64
	StackArrays  uint64
	StackFrees   uint64
	GlobalAllocs uint64
	GlobalArrays uint64
	GlobalFrees  uint64

	CurHeap  int64
	MaxHeap  int64
	CurStack int64
	MaxStack int64

	AddrReuses     uint64
	NullAddrs      uint64
	ZeroCounts     uint64
	Overflows      uint64
	UntrackedFrees uint64
	ScopeMissing   uint64
	Unscoped       uint64
	UnknownTypes   uint64

	Queries      uint64
	QueryMisses  uint64
	LoadFailures uint64
	CatalogLoads uint64
}

// Recorder accumulates counters from tracker events and runtime callbacks.
// It is safe for concurrent use.
type Recorder struct {
	types *orderedmap.OrderedMap // ids.TypeID -> *TypeCount
	mu    sync.Mutex

	heapAllocs, heapArrays, heapFrees       atomic.Uint64
	stackAllocs, stackArrays, stackFrees    atomic.Uint64
	globalAllocs, globalArrays, globalFrees atomic.Uint64

	curHeap, maxHeap   atomic.Int64
	curStack, maxStack atomic.Int64

	addrReuses, nullAddrs, zeroCounts, overflows atomic.Uint64
	untrackedFrees, scopeMissing, unscoped       atomic.Uint64
	unknownTypes                                 atomic.Uint64

	queries, queryMisses, loadFailures, catalogLoads atomic.Uint64
}

// NewRecorder creates a Recorder with all counters at zero.
func NewRecorder() *Recorder {
	return &Recorder{types: orderedmap.NewOrderedMap()}
}

// OnAllocationEvent implements tracker.Observer.
func (r *Recorder) OnAllocationEvent(e tracker.Event) {
	switch e.Type {
	case tracker.EventRecorded:
		r.recorded(e.Record)
	case tracker.EventReleased:
		r.released(e.Record)
	case tracker.EventReplaced:
		r.addrReuses.Add(1)
		r.live(e.Record.Kind, -1)
	case tracker.EventSkipped:
		switch errors.KindOf(e.Err) {
		case errors.KindInvalidInput:
			r.nullAddrs.Add(1)
		case errors.KindOverflow:
			r.overflows.Add(1)
		}
	case tracker.EventMissed:
		r.untrackedFrees.Add(1)
	}
}

func (r *Recorder) recorded(rec tracker.Record) {
	array := rec.Count > 1
	if rec.Count == 0 {
		r.zeroCounts.Add(1)
	}
	switch rec.Kind {
	case tracker.KindHeap:
		r.heapAllocs.Add(1)
		if array {
			r.heapArrays.Add(1)
		}
	case tracker.KindStack:
		r.stackAllocs.Add(1)
		if array {
			r.stackArrays.Add(1)
		}
	case tracker.KindGlobal:
		r.globalAllocs.Add(1)
		if array {
			r.globalArrays.Add(1)
		}
	}
	r.live(rec.Kind, 1)

	r.mu.Lock()
	tc := r.typeLocked(rec.Type)
	tc.Allocs++
	tc.Elements += rec.Count
	r.mu.Unlock()
}

func (r *Recorder) released(rec tracker.Record) {
	switch rec.Kind {
	case tracker.KindHeap:
		r.heapFrees.Add(1)
	case tracker.KindStack:
		r.stackFrees.Add(1)
	case tracker.KindGlobal:
		r.globalFrees.Add(1)
	}
	r.live(rec.Kind, -1)

	r.mu.Lock()
	r.typeLocked(rec.Type).Frees++
	r.mu.Unlock()
}

func (r *Recorder) live(kind tracker.Kind, delta int64) {
	switch kind {
	case tracker.KindHeap:
		updateMax(&r.maxHeap, r.curHeap.Add(delta))
	case tracker.KindStack:
		updateMax(&r.maxStack, r.curStack.Add(delta))
	}
}

func updateMax(peak *atomic.Int64, v int64) {
	for {
		old := peak.Load()
		if v <= old || peak.CompareAndSwap(old, v) {
			return
		}
	}
}

func (r *Recorder) typeLocked(id ids.TypeID) *TypeCount {
	if v, ok := r.types.Get(id); ok {
		return v.(*TypeCount)
	}
	tc := &TypeCount{Type: id}
	r.types.Set(id, tc)
	return tc
}

// ScopeMissing counts scope entries that were already released or replaced
// when their scope was popped.
func (r *Recorder) ScopeMissing(n int) {
	if n > 0 {
		r.scopeMissing.Add(uint64(n))
	}
}

// Unscoped counts a stack allocation recorded with no open scope.
func (r *Recorder) Unscoped() { r.unscoped.Add(1) }

// UnknownType counts an allocation whose type the catalog does not describe.
func (r *Recorder) UnknownType() { r.unknownTypes.Add(1) }

// Query counts a type query and whether its address was tracked.
func (r *Recorder) Query(tracked bool) {
	r.queries.Add(1)
	if !tracked {
		r.queryMisses.Add(1)
	}
}

// CatalogLoad counts a catalog load attempt.
func (r *Recorder) CatalogLoad(err error) {
	if err != nil {
		r.loadFailures.Add(1)
		return
	}
	r.catalogLoads.Add(1)
}

// Snapshot copies the current counters.
func (r *Recorder) Snapshot() Snapshot {
	s := Snapshot{
		HeapAllocs:     r.heapAllocs.Load(),
		HeapArrays:     r.heapArrays.Load(),
		HeapFrees:      r.heapFrees.Load(),
		StackAllocs:    r.stackAllocs.Load(),
		StackArrays:    r.stackArrays.Load(),
		StackFrees:     r.stackFrees.Load(),
		GlobalAllocs:   r.globalAllocs.Load(),
		GlobalArrays:   r.globalArrays.Load(),
		GlobalFrees:    r.globalFrees.Load(),
		CurHeap:        r.curHeap.Load(),
		MaxHeap:        r.maxHeap.Load(),
		CurStack:       r.curStack.Load(),
		MaxStack:       r.maxStack.Load(),
		AddrReuses:     r.addrReuses.Load(),
		NullAddrs:      r.nullAddrs.Load(),
		ZeroCounts:     r.zeroCounts.Load(),
		Overflows:      r.overflows.Load(),
		UntrackedFrees: r.untrackedFrees.Load(),
		ScopeMissing:   r.scopeMissing.Load(),
		Unscoped:       r.unscoped.Load(),
		UnknownTypes:   r.unknownTypes.Load(),
		Queries:        r.queries.Load(),
		QueryMisses:    r.queryMisses.Load(),
		LoadFailures:   r.loadFailures.Load(),
		CatalogLoads:   r.catalogLoads.Load(),
	}

	r.mu.Lock()
	s.Types = make([]TypeCount, 0, r.types.Len())
	for el := r.types.Front(); el != nil; el = el.Next() {
		s.Types = append(s.Types, *el.Value.(*TypeCount))
	}
	r.mu.Unlock()
	return s
}

// Fields renders the snapshot as structured log fields. Per-type counts are
// left out.
func (s Snapshot) Fields() []zap.Field {
	return []zap.Field{
		zap.Uint64("heap_allocs", s.HeapAllocs),
		zap.Uint64("heap_arrays", s.HeapArrays),
		zap.Uint64("heap_frees", s.HeapFrees),
		zap.Uint64("stack_allocs", s.StackAllocs),
		zap.Uint64("stack_arrays", s.StackArrays),
		zap.Uint64("stack_frees", s.StackFrees),
		zap.Uint64("global_allocs", s.GlobalAllocs),
		zap.Uint64("global_frees", s.GlobalFrees),
		zap.Int64("max_heap", s.MaxHeap),
		zap.Int64("max_stack", s.MaxStack),
		zap.Int64("leaked_heap", s.CurHeap),
		zap.Uint64("addr_reuses", s.AddrReuses),
		zap.Uint64("null_addrs", s.NullAddrs),
		zap.Uint64("zero_counts", s.ZeroCounts),
		zap.Uint64("overflows", s.Overflows),
		zap.Uint64("untracked_frees", s.UntrackedFrees),
		zap.Uint64("scope_missing", s.ScopeMissing),
		zap.Uint64("unscoped", s.Unscoped),
		zap.Uint64("unknown_types", s.UnknownTypes),
		zap.Uint64("queries", s.Queries),
		zap.Uint64("query_misses", s.QueryMisses),
		zap.Uint64("catalog_loads", s.CatalogLoads),
		zap.Uint64("load_failures", s.LoadFailures),
		zap.Int("types", len(s.Types)),
	}
}
