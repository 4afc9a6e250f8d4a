package query

import (
	"strconv"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
	"github.com/wippyai/typeart-runtime/tracker"
	"github.com/wippyai/typeart-runtime/typedb"
)

// Finder locates the live allocation containing an address.
// *tracker.Table satisfies it.
type Finder interface {
	Find(addr uintptr) (tracker.Record, uint64, bool)
}

// Resolved is the innermost type found at an address.
type Resolved struct {
	// Chain lists the types descended through, outermost first, ending with Type.
	Chain []ids.TypeID
	// Path lists the member names descended through. Array steps add no name.
	Path       []string
	Allocation tracker.Record
	Addr       uintptr
	// Offset is the residual offset inside Type. Queries that do not land on
	// an element boundary fail instead, so it is always 0.
	Offset uint64
	// Index is the element index of Type within its run: the allocation, an
	// array or a repeated struct member.
	Index uint64
	// Count is the number of elements of Type from Addr to the end of the run.
	Count uint64
	Type  ids.TypeID
}

// Containing describes an address relative to the allocation holding it.
type Containing struct {
	Allocation tracker.Record
	// Index is the element of the allocation holding the address.
	Index uint64
	// Count is the number of elements from Index to the end of the allocation.
	Count uint64
	// Offset is the byte offset inside element Index.
	Offset uint64
	Type   ids.TypeID
}

// Engine answers type queries against a catalog and a set of live allocations.
type Engine struct {
	db     *typedb.Database
	finder Finder
}

// New creates an engine. finder may be nil for catalog-only queries.
func New(db *typedb.Database, finder Finder) *Engine {
	return &Engine{db: db, finder: finder}
}

func (e *Engine) find(addr uintptr) (tracker.Record, uint64, error) {
	if e.finder == nil {
		return tracker.Record{}, 0, errors.NotInitialized(errors.PhaseQuery, "allocation index")
	}
	rec, off, ok := e.finder.Find(addr)
	if !ok {
		return tracker.Record{}, 0, errors.Untracked(addr)
	}
	return rec, off, nil
}

// Resolve returns the innermost type at addr.
func (e *Engine) Resolve(addr uintptr) (Resolved, error) {
	rec, off, err := e.find(addr)
	if err != nil {
		return Resolved{Type: ids.UnknownType, Addr: addr}, err
	}
	res, err := descend(e.db.Snapshot(), rec.Type, rec.Count, off, addr)
	res.Allocation = rec
	return res, err
}

// ResolveOffset resolves the type at byte offset off past addr.
func (e *Engine) ResolveOffset(addr uintptr, off uint64) (Resolved, error) {
	target := addr + uintptr(off)
	if target < addr {
		return Resolved{Type: ids.UnknownType, Addr: addr}, errors.New(errors.PhaseQuery, errors.KindOverflow).
			Addr(addr).
			Value(off).
			Detail("offset %d wraps the address space", off).
			Build()
	}
	return e.Resolve(target)
}

// Containing returns the allocation holding addr and the position of addr
// among its elements.
func (e *Engine) Containing(addr uintptr) (Containing, error) {
	rec, off, err := e.find(addr)
	if err != nil {
		return Containing{Type: ids.UnknownType}, err
	}
	cat := e.db.Snapshot()
	d := cat.Lookup(rec.Type)
	if d == nil {
		return Containing{Allocation: rec, Type: ids.UnknownType}, unknownType(cat, rec.Type, addr)
	}

	c := Containing{Allocation: rec, Type: rec.Type, Offset: off}
	if d.Size > 0 {
		c.Index, c.Offset = off/d.Size, off%d.Size
	}
	if c.Index < rec.Count {
		c.Count = rec.Count - c.Index
	}
	return c, nil
}

// SubType resolves byte offset off inside a single value of type id without
// consulting any allocation.
func (e *Engine) SubType(id ids.TypeID, off uint64) (Resolved, error) {
	return descend(e.db.Snapshot(), id, 1, off, 0)
}

func unknownType(cat *typedb.Catalog, id ids.TypeID, addr uintptr) error {
	return errors.New(errors.PhaseQuery, errors.KindUnknownType).
		Addr(addr).
		Type(cat.Name(id)).
		Value(id).
		Detail("type is not described by the active catalog").
		Build()
}

// descend walks from a run of count values of type id down to the element
// starting at off. It fails when off does not start an element.
func descend(cat *typedb.Catalog, id ids.TypeID, count, off uint64, addr uintptr) (Resolved, error) {
	res := Resolved{Addr: addr, Type: ids.UnknownType}
	cur, run := id, count
	limit := cat.MaxDepth() + 1

	outOfRange := func(name string, rel uint64) error {
		return errors.New(errors.PhaseQuery, errors.KindOffsetOutOfRange).
			Addr(addr).
			Path(res.Path...).
			Type(name).
			Value(rel).
			Detail("byte offset %d does not start an element", rel).
			Build()
	}

	for depth := 0; ; depth++ {
		if depth > limit {
			return res, errors.New(errors.PhaseQuery, errors.KindOverflow).
				Addr(addr).
				Type(cat.Name(id)).
				Detail("nesting exceeds catalog depth %d", cat.MaxDepth()).
				Build()
		}

		d := cat.Lookup(cur)
		if d == nil {
			return res, unknownType(cat, cur, addr)
		}
		res.Chain = append(res.Chain, cur)

		idx, rel := uint64(0), off
		if d.Size > 0 {
			idx, rel = off/d.Size, off%d.Size
		} else if off != 0 {
			return res, outOfRange(d.Name, off)
		}

		if rel == 0 && (idx < run || (run == 0 && idx == 0)) {
			res.Type = cur
			res.Index = idx
			if idx < run {
				res.Count = run - idx
			}
			return res, nil
		}
		if idx >= run {
			return res, outOfRange(d.Name, off)
		}

		switch d.Kind {
		case typedb.KindStruct:
			i, ok := d.MemberAt(rel)
			if !ok {
				return res, outOfRange(d.Name, rel)
			}
			m := d.Members[i]
			msize, _ := cat.SizeOf(m.Type)
			inner := rel - m.Offset
			if inner >= m.Count*msize {
				// padding after the member
				return res, outOfRange(d.Name, rel)
			}
			res.Path = append(res.Path, memberName(m, i))
			cur, run, off = m.Type, m.Count, inner

		case typedb.KindArray:
			cur, run, off = d.Elem, d.Length, rel

		default:
			return res, outOfRange(d.Name, rel)
		}
	}
}

func memberName(m typedb.Member, i int) string {
	if m.Name != "" {
		return m.Name
	}
	return "#" + strconv.Itoa(i)
}
