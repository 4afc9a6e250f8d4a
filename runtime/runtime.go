package runtime

import (
	"context"
	stderrors "errors"
	"io/fs"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wippyai/typeart-runtime/catalog"
	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
	"github.com/wippyai/typeart-runtime/query"
	"github.com/wippyai/typeart-runtime/stats"
	"github.com/wippyai/typeart-runtime/tracker"
	"github.com/wippyai/typeart-runtime/typedb"
)

// Runtime ties a type database, an allocation table and a query engine
// together behind the calls instrumented code makes.
//
// Record, Release and Resolve never panic on misuse. Failures are counted,
// logged at warn level through a rate limiter, and reported as sentinel
// results or errors.
type Runtime struct {
	log    *zap.Logger
	db     *typedb.Database
	table  *tracker.Table
	engine *query.Engine
	stats  *stats.Recorder
	warn   *rate.Limiter
	unsub  []func()
	opts   Options
	once   sync.Once
	closed atomic.Bool
}

// New creates a runtime holding only the builtin types.
func New(opts Options) *Runtime {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.WarnRate == 0 {
		opts.WarnRate = DefaultOptions().WarnRate
	}
	if opts.WarnBurst <= 0 {
		opts.WarnBurst = DefaultOptions().WarnBurst
	}

	db := typedb.New()
	table := tracker.NewTable(db)
	r := &Runtime{
		log:    log,
		db:     db,
		table:  table,
		engine: query.New(db, table),
		warn:   rate.NewLimiter(opts.WarnRate, opts.WarnBurst),
		opts:   opts,
	}
	if opts.Stats {
		r.stats = stats.NewRecorder()
		r.unsub = append(r.unsub, table.Subscribe(r.stats))
	}
	if opts.TraceEvents {
		r.unsub = append(r.unsub, table.Subscribe(tracker.ObserverFunc(r.trace)))
	}
	return r
}

func (r *Runtime) trace(e tracker.Event) {
	r.log.Debug("allocation event",
		zap.Stringer("event", e.Type),
		zap.Uintptr("base", e.Record.Base),
		zap.Stringer("type", e.Record.Type),
		zap.Uint64("count", e.Record.Count),
		zap.Stringer("kind", e.Record.Kind),
		zap.Error(e.Err))
}

// warnf logs a misuse warning unless the limiter is exhausted.
func (r *Runtime) warnf(msg string, fields ...zap.Field) {
	if r.warn.Allow() {
		r.log.Warn(msg, fields...)
	}
}

// Database returns the runtime's type database.
func (r *Runtime) Database() *typedb.Database { return r.db }

// Table returns the runtime's allocation table.
func (r *Runtime) Table() *tracker.Table { return r.table }

// Engine returns the runtime's query engine.
func (r *Runtime) Engine() *query.Engine { return r.engine }

// LoadTypes replaces the active catalog. On failure the previous catalog
// stays active.
func (r *Runtime) LoadTypes(ctx context.Context, src typedb.Source) error {
	err := r.db.Load(ctx, src)
	if r.stats != nil {
		r.stats.CatalogLoad(err)
	}
	if err != nil {
		r.log.Error("load types", zap.Error(err))
		return err
	}

	cat := r.db.Snapshot()
	var user []string
	for _, id := range cat.Types() {
		if cat.IsUserDefined(id) {
			user = append(user, cat.Name(id))
		}
	}
	r.log.Info("types loaded",
		zap.String("version", cat.Version()),
		zap.Int("types", cat.Len()),
		zap.Strings("user_defined", user))
	return nil
}

// LoadDefault loads the configured type file. An explicitly configured file
// that fails to load is an error. When nothing is configured, a missing
// DefaultTypeFile leaves the builtin types active and only logs a warning.
func (r *Runtime) LoadDefault(ctx context.Context) error {
	path, explicit := r.opts.typeFile(r.log)
	err := r.LoadTypes(ctx, catalog.Open(path))
	if err == nil || explicit {
		return err
	}
	if errors.IsKind(err, errors.KindMissing) && stderrors.Is(err, fs.ErrNotExist) {
		r.log.Warn("no type file, using builtin types only",
			zap.String("path", path),
			zap.String("env", EnvTypeFile))
		return nil
	}
	return err
}

// Record tracks a new allocation and returns its id, or ids.InvalidAlloc if
// it was refused. A type the catalog does not describe is still tracked with
// a zero extent.
func (r *Runtime) Record(a tracker.Allocation) ids.AllocID {
	if r.closed.Load() {
		return ids.InvalidAlloc
	}
	if _, ok := r.db.SizeOf(a.Type); !ok {
		if r.stats != nil {
			r.stats.UnknownType()
		}
		r.warnf("record of unknown type",
			zap.Uintptr("addr", a.Base),
			zap.Stringer("type", a.Type))
	}

	id, err := r.table.Insert(a)
	if err != nil {
		r.warnf("record refused",
			zap.Uintptr("addr", a.Base),
			zap.Stringer("type", a.Type),
			zap.Uint64("count", a.Count),
			zap.Error(err))
		return ids.InvalidAlloc
	}
	return id
}

// Release stops tracking the allocation at addr. Releasing an address that
// is not tracked fails with a not-found error and changes nothing.
func (r *Runtime) Release(addr uintptr) error {
	if r.closed.Load() {
		return errors.NotInitialized(errors.PhaseRelease, "runtime")
	}
	if _, err := r.table.Remove(addr); err != nil {
		r.warnf("release of untracked address", zap.Uintptr("addr", addr))
		return err
	}
	return nil
}

// Resolve returns the innermost type at addr.
func (r *Runtime) Resolve(addr uintptr) (query.Resolved, error) {
	res, err := r.engine.Resolve(addr)
	r.countQuery(err)
	return res, err
}

// ResolveOffset returns the innermost type at off bytes past addr.
func (r *Runtime) ResolveOffset(addr uintptr, off uint64) (query.Resolved, error) {
	res, err := r.engine.ResolveOffset(addr, off)
	r.countQuery(err)
	return res, err
}

func (r *Runtime) countQuery(err error) {
	if r.stats != nil {
		r.stats.Query(!errors.IsKind(err, errors.KindUntracked))
	}
}

// NewThread creates the scope state for one execution context.
func (r *Runtime) NewThread() *Thread {
	return newThread(r)
}

// Stats returns the current counters. The zero Snapshot is returned when
// statistics are disabled.
func (r *Runtime) Stats() stats.Snapshot {
	if r.stats == nil {
		return stats.Snapshot{}
	}
	return r.stats.Snapshot()
}

// Close logs a summary, releases every live allocation and refuses further
// records. Closing twice is a no-op.
func (r *Runtime) Close() error {
	var err error
	r.once.Do(func() {
		r.closed.Store(true)
		if r.stats != nil {
			snap := r.stats.Snapshot()
			r.log.Info("allocation summary", snap.Fields()...)
		}
		for _, unsub := range r.unsub {
			unsub()
		}
		err = r.table.Close()
	})
	return err
}
