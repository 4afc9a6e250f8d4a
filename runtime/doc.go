// Package runtime is the entry point for instrumented code.
//
// # Quick Start
//
//	rt := runtime.New(runtime.DefaultOptions())
//	defer rt.Close()
//
//	// Load TYPEART_TYPE_FILE, or types.yaml from the working directory
//	if err := rt.LoadDefault(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Allocation sites
//	rt.Record(tracker.Allocation{Base: p, Type: 256, Count: 4})
//	rt.Release(p)
//
//	// Function entry and exit
//	th := rt.NewThread()
//	h := th.PushScope()
//	th.Record(tracker.Allocation{Base: sp, Type: typedb.Double, Count: 1, Kind: tracker.KindStack})
//	th.PopScope(h)
//
//	// Checkers
//	res, err := rt.Resolve(p + 8)
//
// # Configuration
//
// Options can be loaded from a TOML file with LoadConfig and applied with
// Config.Apply. The TYPEART_TYPE_FILE environment variable overrides the
// configured type file; TA_TYPE_FILE is still read when it is unset.
//
// # Misuse
//
// The runtime observes the program, it does not change it. Null addresses,
// double frees, allocations over live ones and stack allocations outside a
// scope are counted in Stats and logged at warn level, at most WarnRate per
// second.
package runtime
