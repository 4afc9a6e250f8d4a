package wasmhost

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
	"github.com/wippyai/typeart-runtime/runtime"
	"github.com/wippyai/typeart-runtime/scope"
	"github.com/wippyai/typeart-runtime/tracker"
)

// ModuleName is the import module name guests use.
const ModuleName = "typeart"

// Status is the result code returned to guests.
type Status uint32

const (
	StatusOK Status = iota
	StatusUntracked
	StatusOffsetOutOfRange
	StatusUnknownType
	StatusNotFound
	StatusInvalidHandle
	StatusInvalidInput
	StatusError
)

var statusByKind = map[errors.Kind]Status{
	errors.KindUntracked:        StatusUntracked,
	errors.KindOffsetOutOfRange: StatusOffsetOutOfRange,
	errors.KindUnknownType:      StatusUnknownType,
	errors.KindNotFound:         StatusNotFound,
	errors.KindInvalidHandle:    StatusInvalidHandle,
	errors.KindInvalidInput:     StatusInvalidInput,
}

// StatusOf maps an error to the status reported to guests.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	if s, ok := statusByKind[errors.KindOf(err)]; ok {
		return s
	}
	return StatusError
}

// guest is the state of one calling module. Each guest has its own linear
// memory, so its 32-bit addresses are tracked in a separate space selected
// by the upper half of the table key.
type guest struct {
	thread *runtime.Thread
	space  uintptr
	end    uintptr
	mu     sync.Mutex
}

// addr maps a guest memory offset to its table key.
func (g *guest) addr(v uint64) uintptr {
	return g.space | uintptr(uint32(v))
}

// Host serves the typeart host functions for a runtime.
type Host struct {
	rt        *runtime.Runtime
	module    api.Module
	guests    map[string]*guest
	nextSpace uint64
	mu        sync.Mutex
}

// Instantiate builds the typeart host module in r, backed by rt.
func Instantiate(ctx context.Context, r wazero.Runtime, rt *runtime.Runtime) (*Host, error) {
	h := New(rt)
	if err := h.Instantiate(ctx, r); err != nil {
		return nil, err
	}
	return h, nil
}

// New creates a host for rt without instantiating it.
func New(rt *runtime.Runtime) *Host {
	return &Host{rt: rt, guests: make(map[string]*guest)}
}

// Instantiate builds the host module in r.
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) error {
	i32, i64 := api.ValueTypeI32, api.ValueTypeI64

	builder := r.NewHostModuleBuilder(ModuleName)
	export := func(name string, fn func(caller string, stack []uint64), params, results []api.ValueType) {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
				fn(mod.Name(), stack)
			}), params, results).
			Export(name)
	}
	export("record", h.record, []api.ValueType{i32, i32, i64, i32}, []api.ValueType{i64})
	export("release", h.release, []api.ValueType{i32}, []api.ValueType{i32})
	export("push_scope", h.pushScope, nil, []api.ValueType{i64})
	export("pop_scope", h.popScope, []api.ValueType{i64}, []api.ValueType{i32})
	export("resolve", h.resolve, []api.ValueType{i32}, []api.ValueType{i64})
	export("type_size", h.typeSize, []api.ValueType{i32}, []api.ValueType{i64})

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "instantiate "+ModuleName)
	}
	h.module = mod
	Logger().Debug("host module instantiated", zap.String("module", ModuleName))
	return nil
}

func (h *Host) guest(caller string) *guest {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.guests[caller]
	if !ok {
		h.nextSpace++
		g = &guest{
			thread: h.rt.NewThread(),
			space:  uintptr(h.nextSpace << 32),
			end:    uintptr((h.nextSpace + 1) << 32),
		}
		h.guests[caller] = g
	}
	return g
}

// record(addr i32, type i32, count i64, kind i32) -> id i64
func (h *Host) record(caller string, stack []uint64) {
	if raw := uint32(stack[3]); raw > uint32(tracker.KindGlobal) {
		Logger().Debug("record with invalid kind", zap.String("caller", caller), zap.Uint32("kind", raw))
		stack[0] = uint64(ids.InvalidAlloc)
		return
	}

	g := h.guest(caller)
	a := tracker.Allocation{
		Base:  g.addr(stack[0]),
		Type:  ids.TypeID(int32(uint32(stack[1]))),
		Count: stack[2],
		Kind:  tracker.Kind(uint32(stack[3])),
	}
	g.mu.Lock()
	id := g.thread.Record(a)
	g.mu.Unlock()
	stack[0] = uint64(id)
}

// release(addr i32) -> status i32
func (h *Host) release(caller string, stack []uint64) {
	err := h.rt.Release(h.guest(caller).addr(stack[0]))
	stack[0] = uint64(StatusOf(err))
}

// push_scope() -> handle i64
func (h *Host) pushScope(caller string, stack []uint64) {
	g := h.guest(caller)
	g.mu.Lock()
	handle := g.thread.PushScope()
	g.mu.Unlock()
	stack[0] = uint64(handle)
}

// pop_scope(handle i64) -> status i32
func (h *Host) popScope(caller string, stack []uint64) {
	g := h.guest(caller)
	g.mu.Lock()
	err := g.thread.PopScope(scope.Handle(stack[0]))
	g.mu.Unlock()
	stack[0] = uint64(StatusOf(err))
}

// resolve(addr i32) -> status<<32 | type i64
func (h *Host) resolve(caller string, stack []uint64) {
	res, err := h.rt.Resolve(h.guest(caller).addr(stack[0]))
	stack[0] = Pack(StatusOf(err), res.Type)
}

// type_size(type i32) -> size i64, -1 if unknown
func (h *Host) typeSize(_ string, stack []uint64) {
	size, ok := h.rt.Database().SizeOf(ids.TypeID(int32(uint32(stack[0]))))
	if !ok {
		stack[0] = ^uint64(0)
		return
	}
	stack[0] = size
}

// Pack encodes a resolve answer.
func Pack(s Status, t ids.TypeID) uint64 {
	return uint64(s)<<32 | uint64(uint32(t))
}

// Unpack decodes a resolve answer.
func Unpack(v uint64) (Status, ids.TypeID) {
	return Status(v >> 32), ids.TypeID(int32(uint32(v)))
}

// Forget drops the state of a guest module: its open scopes are closed and
// every allocation it still tracks is released. Call it when the guest is
// closed.
func (h *Host) Forget(caller string) {
	h.mu.Lock()
	g, ok := h.guests[caller]
	delete(h.guests, caller)
	h.mu.Unlock()
	if !ok {
		return
	}
	g.mu.Lock()
	g.thread.Close()
	g.mu.Unlock()

	n := h.rt.Table().RemoveRange(g.space, g.end)
	Logger().Debug("guest forgotten", zap.String("caller", caller), zap.Int("released", n))
}

// Guests returns the number of modules with host state.
func (h *Host) Guests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.guests)
}

// Module returns the instantiated host module, or nil before Instantiate.
func (h *Host) Module() api.Module {
	return h.module
}

// Close forgets every guest and closes the host module.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	names := make([]string, 0, len(h.guests))
	for name := range h.guests {
		names = append(names, name)
	}
	h.mu.Unlock()
	for _, name := range names {
		h.Forget(name)
	}
	if h.module == nil {
		return nil
	}
	return h.module.Close(ctx)
}
