package typedb

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
)

// Database holds the active catalog.
//
// Readers never block: every read goes through the current snapshot, which
// is replaced as a whole by Load. Concurrent loads are serialized.
type Database struct {
	current atomic.Pointer[Catalog]
	mu      sync.Mutex
	loads   atomic.Uint64
}

// New creates a database whose catalog holds only the builtin types.
func New() *Database {
	db := &Database{}
	db.current.Store(emptyCatalog())
	return db
}

// Load reads src, validates it and publishes it as the active catalog.
// On failure the previously active catalog stays in effect.
func (db *Database) Load(ctx context.Context, src Source) error {
	if src == nil {
		return errors.Missing("type source", nil)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	set, err := src.Load(ctx)
	if err != nil {
		Logger().Warn("type source failed", zap.Error(err))
		var te *errors.Error
		if stderrors.As(err, &te) {
			return err
		}
		return errors.Wrap(errors.PhaseLoad, errors.KindMalformed, err, "read type source")
	}
	if set == nil {
		return errors.Missing("type source", nil)
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindMissing, err, "load canceled")
	}

	cat, err := build(set)
	if err != nil {
		Logger().Warn("type catalog rejected",
			zap.String("version", set.Version),
			zap.Int("records", len(set.Records)),
			zap.Error(err))
		return err
	}

	db.current.Store(cat)
	db.loads.Add(1)
	Logger().Debug("type catalog loaded",
		zap.String("version", cat.version),
		zap.Int("types", cat.Len()),
		zap.Int("max_depth", cat.maxDepth))
	return nil
}

// Snapshot returns the active catalog.
func (db *Database) Snapshot() *Catalog {
	return db.current.Load()
}

// Loaded reports whether any Load has succeeded.
func (db *Database) Loaded() bool {
	return db.loads.Load() > 0
}

// Describe returns a copy of the descriptor for id.
// It returns false for sentinels and unregistered ids.
func (db *Database) Describe(id ids.TypeID) (Descriptor, bool) {
	d := db.Snapshot().Lookup(id)
	if d == nil {
		return Descriptor{}, false
	}
	return d.clone(), true
}

// SizeOf returns the byte size of id.
func (db *Database) SizeOf(id ids.TypeID) (uint64, bool) {
	return db.Snapshot().SizeOf(id)
}
