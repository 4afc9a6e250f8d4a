package typedb

import (
	"github.com/wippyai/typeart-runtime/ids"
)

// Catalog is an immutable snapshot of loaded type descriptors.
// A Catalog never changes after it is published, so readers may hold one
// across several lookups and observe a consistent view.
type Catalog struct {
	byID     map[ids.TypeID]*Descriptor
	byName   map[string]ids.TypeID
	version  string
	order    []ids.TypeID
	maxDepth int
}

func emptyCatalog() *Catalog {
	return &Catalog{
		byID:   map[ids.TypeID]*Descriptor{},
		byName: map[string]ids.TypeID{},
	}
}

// Lookup returns the shared descriptor for id, or nil for sentinels and
// unregistered ids.
func (c *Catalog) Lookup(id ids.TypeID) *Descriptor {
	if id.IsBuiltin() {
		return &builtins[id]
	}
	if id.IsSentinel() {
		return nil
	}
	return c.byID[id]
}

// SizeOf returns the byte size of id.
func (c *Catalog) SizeOf(id ids.TypeID) (uint64, bool) {
	d := c.Lookup(id)
	if d == nil {
		return 0, false
	}
	return d.Size, true
}

// Name returns the type name, falling back to the id form for unnamed or
// unregistered types.
func (c *Catalog) Name(id ids.TypeID) string {
	if d := c.Lookup(id); d != nil && d.Name != "" {
		return d.Name
	}
	return id.String()
}

// ByName looks up a type id by name. Builtin names take precedence.
func (c *Catalog) ByName(name string) (ids.TypeID, bool) {
	if id, ok := BuiltinByName(name); ok {
		return id, true
	}
	id, ok := c.byName[name]
	return id, ok
}

// Types returns the user type ids in declaration order.
func (c *Catalog) Types() []ids.TypeID {
	out := make([]ids.TypeID, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of user types.
func (c *Catalog) Len() int {
	return len(c.order)
}

// MaxDepth is the deepest aggregate nesting of any type in the catalog.
func (c *Catalog) MaxDepth() int {
	return c.maxDepth
}

// Version is the version string of the record set the catalog was built from.
func (c *Catalog) Version() string {
	return c.version
}

func (c *Catalog) IsValid(id ids.TypeID) bool {
	return c.Lookup(id) != nil
}

func (c *Catalog) IsBuiltin(id ids.TypeID) bool {
	return id.IsBuiltin()
}

func (c *Catalog) IsStruct(id ids.TypeID) bool {
	d := c.Lookup(id)
	return d != nil && d.Kind == KindStruct
}

func (c *Catalog) IsUserDefined(id ids.TypeID) bool {
	d := c.Lookup(id)
	return d != nil && d.Flags.Has(FlagUserDefined)
}

func (c *Catalog) IsVector(id ids.TypeID) bool {
	d := c.Lookup(id)
	return d != nil && d.Flags.Has(FlagVector)
}
