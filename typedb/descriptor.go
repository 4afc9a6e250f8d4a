package typedb

import (
	"slices"
	"sort"

	"github.com/wippyai/typeart-runtime/ids"
)

// Member is one entry of a struct layout.
type Member struct {
	Name   string
	Offset uint64
	Type   ids.TypeID
	Count  uint64
}

// Descriptor describes the layout of one catalog type.
//
// Descriptors reached through a Catalog are shared by every reader of that
// catalog and must not be modified. Database.Describe returns a copy.
type Descriptor struct {
	Name    string
	Members []Member // KindStruct, ordered by Offset
	Size    uint64
	Length  uint64 // KindArray
	ID      ids.TypeID
	Elem    ids.TypeID // KindArray
	Pointee ids.TypeID // KindPointer, ids.UnknownType when opaque
	Kind    Kind
	Flags   Flag
	depth   int
}

// MemberAt returns the index of the member whose declared offset is the
// greatest one not exceeding off. It does not check the member's extent.
func (d *Descriptor) MemberAt(off uint64) (int, bool) {
	n := len(d.Members)
	if n == 0 {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return d.Members[i].Offset > off }) - 1
	if i < 0 {
		return 0, false
	}
	return i, true
}

// Depth is the number of aggregate levels below this type; scalars have depth 0.
func (d *Descriptor) Depth() int {
	return d.depth
}

func (d *Descriptor) clone() Descriptor {
	c := *d
	c.Members = slices.Clone(d.Members)
	return c
}
