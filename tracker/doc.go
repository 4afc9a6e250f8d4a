// Package tracker keeps the set of live allocations and answers point
// queries over it.
//
// A Table maps base addresses to records of the allocation's type, element
// count and provenance (heap, stack or global). The records are held in an
// ordered index, so finding the allocation that contains an arbitrary address
// is a predecessor search:
//
//	table := tracker.NewTable(db)
//
//	id, err := table.Insert(tracker.Allocation{Base: p, Type: t, Count: 4})
//
//	rec, offset, ok := table.Find(p + 12)
//
//	rec, err = table.Remove(p)
//
// # Replacement
//
// Live records never overlap. An insert whose range intersects live records
// evicts them; each eviction is reported to observers as EventReplaced, the
// sign of an allocation that was never released.
//
// # Observers
//
// Observers receive every insert, removal, eviction, refused insert and
// failed removal. They are called after the table lock is released.
package tracker
