// Package wasmhost exposes a runtime to WebAssembly guests as the "typeart"
// host module.
//
// Instrumented guests import:
//
//	(import "typeart" "record"     (func (param i32 i32 i64 i32) (result i64)))
//	(import "typeart" "release"    (func (param i32) (result i32)))
//	(import "typeart" "push_scope" (func (result i64)))
//	(import "typeart" "pop_scope"  (func (param i64) (result i32)))
//	(import "typeart" "resolve"    (func (param i32) (result i64)))
//	(import "typeart" "type_size"  (func (param i32) (result i64)))
//
// Addresses are offsets into the guest's linear memory. Guests share the
// runtime's allocation table, but each calling module gets its own address
// space within it and its own scope stack, so equal offsets in two guests
// never collide. Forget releases everything a closed guest still tracks.
//
// resolve packs its answer as status<<32 | type id. type_size returns -1 for
// a type the catalog does not describe.
package wasmhost
