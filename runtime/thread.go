package runtime

import (
	"go.uber.org/zap"

	"github.com/wippyai/typeart-runtime/ids"
	"github.com/wippyai/typeart-runtime/scope"
	"github.com/wippyai/typeart-runtime/tracker"
)

// Thread is the scope state of one execution context. Stack allocations
// recorded through it are released when their scope is popped.
// A Thread is not safe for concurrent use; give each goroutine its own.
type Thread struct {
	rt    *Runtime
	stack *scope.Stack
}

func newThread(r *Runtime) *Thread {
	return &Thread{rt: r, stack: scope.NewStack(r.table)}
}

// PushScope opens a scope, typically on function entry.
func (t *Thread) PushScope() scope.Handle {
	return t.stack.Push()
}

// PopScope closes scope h and every scope opened after it, releasing their
// stack allocations.
func (t *Thread) PopScope(h scope.Handle) error {
	res, err := t.stack.Pop(h)
	if err != nil {
		t.rt.warnf("pop of scope that is not open", zap.Uint64("scope", uint64(h)))
		return err
	}
	t.settle(res)
	return nil
}

// Depth returns the number of open scopes.
func (t *Thread) Depth() int {
	return t.stack.Depth()
}

// Record tracks an allocation. Stack allocations are registered with the
// innermost open scope; with no scope open they stay live until released.
func (t *Thread) Record(a tracker.Allocation) ids.AllocID {
	id := t.rt.Record(a)
	if id == ids.InvalidAlloc || a.Kind != tracker.KindStack {
		return id
	}

	h, ok := t.stack.Top()
	if !ok {
		if t.rt.stats != nil {
			t.rt.stats.Unscoped()
		}
		t.rt.warnf("stack allocation outside any scope", zap.Uintptr("addr", a.Base))
		return id
	}
	// h is the live top, so registration cannot fail.
	_ = t.stack.Register(h, id, a.Base)
	return id
}

// Release stops tracking the allocation at addr.
func (t *Thread) Release(addr uintptr) error {
	return t.rt.Release(addr)
}

// Close pops every open scope, as on exit of the execution context.
func (t *Thread) Close() {
	t.settle(t.stack.Close())
}

func (t *Thread) settle(res scope.Result) {
	if res.Missing == 0 {
		return
	}
	if t.rt.stats != nil {
		t.rt.stats.ScopeMissing(res.Missing)
	}
	t.rt.warnf("scope entries already released",
		zap.Int("missing", res.Missing),
		zap.Int("released", len(res.Released)))
}
