// Package query resolves the type occupying an address.
//
// Resolution finds the live allocation containing the address, then walks
// the catalog layout of the allocation's type from the outermost value
// inward: struct offsets select a member, array offsets select an element.
// The walk is a loop bounded by the catalog's nesting depth.
//
// An address that does not start an element, whether it falls inside a
// scalar or in padding between members, fails with an
// offset_out_of_range error rather than returning the enclosing scalar with
// a residual offset.
package query
