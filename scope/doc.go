// Package scope releases stack allocations when their lexical scope exits.
//
// Each execution context owns a Stack. Entering a function pushes a scope,
// stack allocations made inside it are registered with the scope, and
// leaving pops it:
//
//	h := stack.Push()
//	id, _ := table.Insert(tracker.Allocation{Base: p, Type: t, Count: 1, Kind: tracker.KindStack})
//	stack.Register(h, id, p)
//	...
//	res, err := stack.Pop(h)
//
// Popping a scope also pops every scope pushed after it, which covers early
// returns and non-local exits that skipped their own pops. Registrations
// refer to allocations by base address and id only; an allocation released
// or replaced before its scope exits is counted in Result.Missing.
package scope
