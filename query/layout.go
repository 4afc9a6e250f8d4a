package query

import (
	"strings"

	"github.com/wippyai/typeart-runtime/ids"
	"github.com/wippyai/typeart-runtime/typedb"
)

// Slot is one entry of a flattened type layout.
type Slot struct {
	// Path is the dotted member path from the root type; array elements
	// appear as "[]".
	Path   string
	Offset uint64
	Size   uint64
	Count  uint64
	Depth  int
	Type   ids.TypeID
	Kind   typedb.Kind
}

// Layout flattens type id into slots in offset order. Each aggregate is
// followed by the slots of its first element; repeated elements are not
// expanded.
func (e *Engine) Layout(id ids.TypeID) ([]Slot, error) {
	cat := e.db.Snapshot()
	root := cat.Lookup(id)
	if root == nil {
		return nil, unknownType(cat, id, 0)
	}

	type item struct {
		path []string
		slot Slot
	}
	stack := []item{{slot: Slot{Type: id, Kind: root.Kind, Size: root.Size, Count: 1}}}
	var out []Slot

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		it.slot.Path = strings.Join(it.path, ".")
		out = append(out, it.slot)

		d := cat.Lookup(it.slot.Type)
		switch d.Kind {
		case typedb.KindStruct:
			for i := len(d.Members) - 1; i >= 0; i-- {
				m := d.Members[i]
				md := cat.Lookup(m.Type)
				stack = append(stack, item{
					path: appendPath(it.path, memberName(m, i)),
					slot: Slot{
						Offset: it.slot.Offset + m.Offset,
						Size:   md.Size,
						Count:  m.Count,
						Depth:  it.slot.Depth + 1,
						Type:   m.Type,
						Kind:   md.Kind,
					},
				})
			}
		case typedb.KindArray:
			ed := cat.Lookup(d.Elem)
			stack = append(stack, item{
				path: appendPath(it.path, "[]"),
				slot: Slot{
					Offset: it.slot.Offset,
					Size:   ed.Size,
					Count:  d.Length,
					Depth:  it.slot.Depth + 1,
					Type:   d.Elem,
					Kind:   ed.Kind,
				},
			})
		}
	}
	return out, nil
}

func appendPath(path []string, name string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, name)
}
