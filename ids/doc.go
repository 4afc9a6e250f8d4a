// Package ids defines the identifier types shared by the catalog, the
// allocation table and the query engine.
//
// Both identifiers reserve sentinel values instead of using a separate error
// channel: TypeID has UnknownType and InvalidType, AllocID has InvalidAlloc.
// No package in this module treats a sentinel as a valid key.
package ids
