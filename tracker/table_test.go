package tracker

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
)

// sizes is a fixed Sizer: type id n has size n bytes.
type sizes map[ids.TypeID]uint64

func (s sizes) SizeOf(id ids.TypeID) (uint64, bool) {
	v, ok := s[id]
	return v, ok
}

var testSizes = sizes{1: 1, 4: 4, 8: 8, 16: 16}

type testObserver struct {
	events []Event
}

func (o *testObserver) OnAllocationEvent(e Event) {
	o.events = append(o.events, e)
}

func (o *testObserver) count(typ EventType) int {
	n := 0
	for _, e := range o.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func TestTable_RoundTrip(t *testing.T) {
	table := NewTable(testSizes)

	a := Allocation{Base: 0x1000, Type: 4, Count: 3, Kind: KindStack, CallSite: 0x42}
	id, err := table.Insert(a)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !id.IsValid() {
		t.Fatal("expected valid id")
	}

	rec, off, ok := table.Find(0x1000)
	if !ok {
		t.Fatal("Find failed")
	}
	if rec.Allocation != a || off != 0 {
		t.Errorf("Find = %+v, %d", rec, off)
	}
	if rec.Extent != 12 || rec.ID != id {
		t.Errorf("Extent = %d, ID = %v", rec.Extent, rec.ID)
	}

	rec, off, ok = table.Find(0x100b)
	if !ok || off != 11 || rec.ID != id {
		t.Errorf("Find(last byte) = %+v, %d, %v", rec, off, ok)
	}
	if _, _, ok := table.Find(0x100c); ok {
		t.Error("Find past the end succeeded")
	}
	if _, _, ok := table.Find(0xfff); ok {
		t.Error("Find before the base succeeded")
	}
}

func TestTable_RemoveTwice(t *testing.T) {
	table := NewTable(testSizes)
	table.Insert(Allocation{Base: 0x1000, Type: 8, Count: 1})
	table.Insert(Allocation{Base: 0x2000, Type: 8, Count: 1})

	if _, err := table.Remove(0x1000); err != nil {
		t.Fatalf("first Remove: %v", err)
	}
	_, err := table.Remove(0x1000)
	if !errors.IsKind(err, errors.KindNotFound) {
		t.Fatalf("second Remove = %v, want not_found", err)
	}

	rec, off, ok := table.Find(0x2004)
	if !ok || rec.Base != 0x2000 || off != 4 {
		t.Errorf("unrelated lookup broken: %+v %d %v", rec, off, ok)
	}
	if table.Len() != 1 {
		t.Errorf("Len = %d, want 1", table.Len())
	}
}

func TestTable_Replacement(t *testing.T) {
	tests := []struct {
		name    string
		live    []Allocation
		insert  Allocation
		evicted int
		remain  int
	}{
		{
			name:    "same base",
			live:    []Allocation{{Base: 0x100, Type: 8, Count: 1}},
			insert:  Allocation{Base: 0x100, Type: 4, Count: 1},
			evicted: 1,
			remain:  1,
		},
		{
			name:    "predecessor overlaps",
			live:    []Allocation{{Base: 0x100, Type: 16, Count: 1}},
			insert:  Allocation{Base: 0x108, Type: 4, Count: 1},
			evicted: 1,
			remain:  1,
		},
		{
			name: "covers several",
			live: []Allocation{
				{Base: 0x100, Type: 4, Count: 1},
				{Base: 0x104, Type: 4, Count: 1},
				{Base: 0x108, Type: 4, Count: 1},
				{Base: 0x110, Type: 4, Count: 1},
			},
			insert:  Allocation{Base: 0x102, Type: 8, Count: 1},
			evicted: 3,
			remain:  2,
		},
		{
			name:    "adjacent",
			live:    []Allocation{{Base: 0x100, Type: 8, Count: 1}},
			insert:  Allocation{Base: 0x108, Type: 8, Count: 1},
			evicted: 0,
			remain:  2,
		},
		{
			name:    "zero extent claims base only",
			live:    []Allocation{{Base: 0x100, Type: 99, Count: 1}},
			insert:  Allocation{Base: 0x101, Type: 99, Count: 1},
			evicted: 0,
			remain:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewTable(testSizes)
			for _, a := range tt.live {
				if _, err := table.Insert(a); err != nil {
					t.Fatalf("Insert: %v", err)
				}
			}
			obs := &testObserver{}
			table.Subscribe(obs)

			id, err := table.Insert(tt.insert)
			if err != nil {
				t.Fatalf("Insert: %v", err)
			}
			if got := obs.count(EventReplaced); got != tt.evicted {
				t.Errorf("evicted %d, want %d", got, tt.evicted)
			}
			if table.Len() != tt.remain {
				t.Errorf("Len = %d, want %d", table.Len(), tt.remain)
			}
			rec, _, ok := table.Find(tt.insert.Base)
			if !ok || rec.ID != id {
				t.Errorf("new record not found at base")
			}
		})
	}
}

func TestTable_Disjoint(t *testing.T) {
	table := NewTable(testSizes)
	rng := rand.New(rand.NewSource(7))
	types := []ids.TypeID{1, 4, 8, 16}

	for i := 0; i < 2000; i++ {
		a := Allocation{
			Base:  uintptr(0x1000 + rng.Intn(4096)),
			Type:  types[rng.Intn(len(types))],
			Count: uint64(1 + rng.Intn(4)),
		}
		if _, err := table.Insert(a); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if rng.Intn(4) == 0 {
			table.Remove(uintptr(0x1000 + rng.Intn(4096)))
		}
	}

	var prev *Record
	table.Each(func(r Record) bool {
		if prev != nil && prev.End() > r.Base {
			t.Errorf("records overlap: %+v and %+v", *prev, r)
			return false
		}
		cur := r
		prev = &cur
		return true
	})
}

func TestTable_RemoveID(t *testing.T) {
	table := NewTable(testSizes)
	old, _ := table.Insert(Allocation{Base: 0x100, Type: 8, Count: 1})
	cur, _ := table.Insert(Allocation{Base: 0x100, Type: 8, Count: 1})

	if _, err := table.RemoveID(0x100, old); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("RemoveID(stale) = %v", err)
	}
	if _, ok := table.Get(0x100); !ok {
		t.Fatal("stale RemoveID removed the live record")
	}
	if _, err := table.RemoveID(0x100, cur); err != nil {
		t.Errorf("RemoveID(live) = %v", err)
	}
	if table.Len() != 0 {
		t.Error("record still live")
	}
}

func TestTable_Events(t *testing.T) {
	table := NewTable(testSizes)
	obs := &testObserver{}
	unsubscribe := table.Subscribe(obs)

	_, err := table.Insert(Allocation{Base: 0, Type: 4, Count: 1})
	if !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("null insert = %v", err)
	}
	table.Insert(Allocation{Base: 0x10, Type: 4, Count: 1})
	table.Remove(0x10)
	table.Remove(0x10)

	want := []EventType{EventSkipped, EventRecorded, EventReleased, EventMissed}
	if len(obs.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(obs.events), len(want))
	}
	for i, typ := range want {
		if obs.events[i].Type != typ {
			t.Errorf("event %d = %v, want %v", i, obs.events[i].Type, typ)
		}
	}

	unsubscribe()
	table.Insert(Allocation{Base: 0x20, Type: 4, Count: 1})
	if len(obs.events) != len(want) {
		t.Error("event delivered after unsubscribe")
	}
}

func TestTable_ObserverResubscribes(t *testing.T) {
	table := NewTable(testSizes)
	late := &testObserver{}

	var unsubscribe func()
	unsubscribe = table.Subscribe(ObserverFunc(func(e Event) {
		if e.Type == EventRecorded {
			unsubscribe()
			table.Subscribe(late)
		}
	}))

	table.Insert(Allocation{Base: 0x10, Type: 4, Count: 1})
	table.Remove(0x10)
	table.Insert(Allocation{Base: 0x20, Type: 4, Count: 1})

	if late.count(EventReleased) != 1 || late.count(EventRecorded) != 1 {
		t.Errorf("late observer saw %+v", late.events)
	}
}

func TestTable_RemoveRange(t *testing.T) {
	table := NewTable(testSizes)
	obs := &testObserver{}
	table.Subscribe(obs)

	for _, base := range []uintptr{0x0f00, 0x1000, 0x1800, 0x1ffc, 0x2000} {
		table.Insert(Allocation{Base: base, Type: 4, Count: 1})
	}
	if n := table.RemoveRange(0x1000, 0x2000); n != 3 {
		t.Errorf("RemoveRange = %d, want 3", n)
	}
	if table.Len() != 2 {
		t.Errorf("Len = %d", table.Len())
	}
	for _, base := range []uintptr{0x0f00, 0x2000} {
		if _, ok := table.Get(base); !ok {
			t.Errorf("record at %#x removed", base)
		}
	}
	if obs.count(EventReleased) != 3 {
		t.Errorf("released events = %d", obs.count(EventReleased))
	}
	if n := table.RemoveRange(0x1000, 0x2000); n != 0 {
		t.Errorf("second RemoveRange = %d", n)
	}
}

func TestTable_Overflow(t *testing.T) {
	table := NewTable(testSizes)
	_, err := table.Insert(Allocation{Base: 0x1000, Type: 16, Count: 1 << 62})
	if !errors.IsKind(err, errors.KindOverflow) {
		t.Errorf("Insert = %v, want overflow", err)
	}
	_, err = table.Insert(Allocation{Base: ^uintptr(0) - 2, Type: 8, Count: 1})
	if !errors.IsKind(err, errors.KindOverflow) {
		t.Errorf("Insert at top = %v, want overflow", err)
	}
	if table.Len() != 0 {
		t.Error("refused inserts were stored")
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable(nil)
	table.Insert(Allocation{Base: 0x10, Type: 4, Count: 1})
	obs := &testObserver{}
	table.Subscribe(obs)

	if err := table.Close(); err != nil {
		t.Fatal(err)
	}
	if err := table.Close(); err != nil {
		t.Fatal(err)
	}
	if obs.count(EventReleased) != 1 {
		t.Errorf("released %d on close", obs.count(EventReleased))
	}
	if _, err := table.Insert(Allocation{Base: 0x10}); !errors.IsKind(err, errors.KindNotInitialized) {
		t.Errorf("Insert after Close = %v", err)
	}
}

func TestTable_Concurrent(t *testing.T) {
	table := NewTable(testSizes)
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			base := uintptr(0x10000 * (g + 1))
			for i := 0; i < 500; i++ {
				addr := base + uintptr(i*16)
				if _, err := table.Insert(Allocation{Base: addr, Type: 8, Count: 2}); err != nil {
					t.Errorf("Insert: %v", err)
					return
				}
				rec, off, ok := table.Find(addr + 9)
				if !ok || rec.Base != addr || off != 9 {
					t.Errorf("Find(%#x) = %+v, %d, %v", addr+9, rec, off, ok)
					return
				}
				if i%2 == 0 {
					if _, err := table.Remove(addr); err != nil {
						t.Errorf("Remove: %v", err)
						return
					}
				}
			}
		}(g)
	}
	wg.Wait()

	if table.Len() != 8*250 {
		t.Errorf("Len = %d, want %d", table.Len(), 8*250)
	}
}
