// Package typeart tracks the runtime type of every live allocation of an
// instrumented program and answers "what type lives at this address".
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	typeart/            Root package with the module version
//	├── runtime/        Entry point for instrumented code: record, release, resolve
//	├── typedb/         Immutable catalogs of type descriptors, atomically replaced
//	├── catalog/        YAML, JSON and WIT sources for type catalogs
//	├── tracker/        Address-ordered index of live allocations
//	├── scope/          Per-thread scope markers for stack allocations
//	├── query/          Address to innermost type resolution
//	├── stats/          Counters for allocations and absorbed misuse
//	├── wasmhost/       wazero host module exposing a runtime to guests
//	├── ids/            Type and allocation identifiers
//	└── errors/         Structured error types for debugging
//
// # Quick Start
//
//	rt := runtime.New(runtime.DefaultOptions())
//	defer rt.Close()
//
//	if err := rt.LoadTypes(ctx, catalog.YAMLFile("types.yaml")); err != nil {
//	    log.Fatal(err)
//	}
//
//	rt.Record(tracker.Allocation{Base: addr, Type: pointID, Count: 4})
//
//	res, err := rt.Resolve(addr + 12)
//	fmt.Println(res.Type, res.Path) // int32 [y]
//
// # Type Catalogs
//
// Type ids 0 through 10 are builtin scalars and the pointer type, 255 is the
// unknown type and -1 is invalid. Catalogs describe user types from id 256
// as structs (members at byte offsets), fixed-length arrays or pointers.
// Member graphs must be acyclic; pointers may refer back to their own type.
//
// # Error Handling
//
// Errors carry a phase and a kind:
//
//	if errors.IsKind(err, errors.KindUntracked) {
//	    // address is not inside any live allocation
//	}
//
// Misuse by the instrumented program is counted and logged, never fatal.
package typeart
