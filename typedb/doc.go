// Package typedb holds the catalog of type layouts used to interpret tracked
// allocations.
//
// A catalog maps a TypeID to a Descriptor: a builtin scalar, a struct with
// ordered members, a fixed-length array or a pointer. The eleven builtin
// scalars are present in every catalog. User types are loaded from a Source
// and validated before they become visible:
//
//   - ids must be outside the reserved range and unique
//   - struct member offsets must be strictly increasing and members must not
//     overlap or extend past the struct extent
//   - every referenced type must be known
//   - containment (struct member, array element) must be acyclic
//
// The active catalog is an immutable snapshot published atomically, so a
// reader sees either the old or the new catalog and never a mix of the two.
package typedb
