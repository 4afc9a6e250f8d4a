package typedb

import (
	"math/bits"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
)

// SupportedMajor is the record set major version this package understands.
const SupportedMajor = "v1"

func safeMul(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

func safeAdd(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

func checkVersion(v string) error {
	if v == "" {
		return nil
	}
	canon := v
	if !strings.HasPrefix(canon, "v") {
		canon = "v" + canon
	}
	if !semver.IsValid(canon) {
		return errors.New(errors.PhaseLoad, errors.KindMalformed).
			Value(v).
			Detail("version %q is not a semantic version", v).
			Build()
	}
	if semver.Major(canon) != SupportedMajor {
		return errors.New(errors.PhaseLoad, errors.KindMalformed).
			Value(v).
			Detail("version %q is not compatible with %s", v, SupportedMajor).
			Build()
	}
	return nil
}

type builder struct {
	recs  map[ids.TypeID]*Record
	descs map[ids.TypeID]*Descriptor
	order []ids.TypeID
}

func recordName(r *Record) string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID.String()
}

// build validates a record set and assembles a catalog from it.
// It never modifies the input.
func build(set *RecordSet) (*Catalog, error) {
	if err := checkVersion(set.Version); err != nil {
		return nil, err
	}

	b := &builder{
		recs:  make(map[ids.TypeID]*Record, len(set.Records)),
		descs: make(map[ids.TypeID]*Descriptor, len(set.Records)),
		order: make([]ids.TypeID, 0, len(set.Records)),
	}

	for i := range set.Records {
		r := &set.Records[i]
		if r.ID.IsReserved() {
			return nil, errors.Malformed(recordName(r), "id %d is reserved", r.ID)
		}
		if _, dup := b.recs[r.ID]; dup {
			return nil, errors.Malformed(recordName(r), "duplicate id %d", r.ID)
		}
		if r.Kind >= KindBuiltin {
			return nil, errors.Malformed(recordName(r), "kind %s cannot be declared", r.Kind)
		}
		b.recs[r.ID] = r
		b.order = append(b.order, r.ID)
	}

	for _, id := range b.order {
		if err := b.checkRefs(b.recs[id]); err != nil {
			return nil, err
		}
	}

	topo, err := b.sortContainment()
	if err != nil {
		return nil, err
	}

	cat := &Catalog{
		byID:    b.descs,
		byName:  make(map[string]ids.TypeID, len(b.order)),
		version: set.Version,
		order:   b.order,
	}
	for _, id := range topo {
		d, err := b.describe(b.recs[id])
		if err != nil {
			return nil, err
		}
		b.descs[id] = d
		if d.depth > cat.maxDepth {
			cat.maxDepth = d.depth
		}
	}
	for _, id := range b.order {
		r := b.recs[id]
		if r.Name == "" {
			continue
		}
		if _, taken := cat.byName[r.Name]; !taken {
			cat.byName[r.Name] = id
		}
	}
	return cat, nil
}

func (b *builder) checkRef(r *Record, what string, t ids.TypeID) error {
	if t.IsSentinel() {
		return errors.Malformed(recordName(r), "%s refers to sentinel %s", what, t)
	}
	if t.IsBuiltin() {
		return nil
	}
	if _, ok := b.recs[t]; !ok {
		return errors.Malformed(recordName(r), "%s refers to unknown %s", what, t)
	}
	return nil
}

func (b *builder) checkRefs(r *Record) error {
	switch r.Kind {
	case KindStruct:
		for i, m := range r.Members {
			what := memberLabel(i, m.Name)
			if m.Count == 0 {
				return errors.Malformed(recordName(r), "%s has count 0", what)
			}
			if i > 0 && m.Offset <= r.Members[i-1].Offset {
				return errors.Malformed(recordName(r), "%s offset %d is not strictly increasing", what, m.Offset)
			}
			if err := b.checkRef(r, what, m.Type); err != nil {
				return err
			}
		}
	case KindArray:
		if err := b.checkRef(r, "element", r.Element); err != nil {
			return err
		}
	case KindPointer:
		if r.Pointee == ids.UnknownType {
			return nil
		}
		if err := b.checkRef(r, "pointee", r.Pointee); err != nil {
			return err
		}
	}
	return nil
}

func memberLabel(i int, name string) string {
	if name != "" {
		return "member " + name
	}
	return "member #" + strconv.Itoa(i)
}

// children lists the containment edges of a record. Pointer edges are not
// containment and may form cycles freely.
func (b *builder) children(id ids.TypeID) []ids.TypeID {
	r := b.recs[id]
	switch r.Kind {
	case KindStruct:
		out := make([]ids.TypeID, 0, len(r.Members))
		for _, m := range r.Members {
			if !m.Type.IsBuiltin() {
				out = append(out, m.Type)
			}
		}
		return out
	case KindArray:
		if !r.Element.IsBuiltin() {
			return []ids.TypeID{r.Element}
		}
	}
	return nil
}

type visit uint8

const (
	unvisited visit = iota
	inProgress
	done
)

type frame struct {
	id    ids.TypeID
	kids  []ids.TypeID
	index int
}

// sortContainment returns the records in containment post-order, so every
// type appears after the types it contains. It rejects cyclic containment.
func (b *builder) sortContainment() ([]ids.TypeID, error) {
	state := make(map[ids.TypeID]visit, len(b.order))
	topo := make([]ids.TypeID, 0, len(b.order))

	for _, root := range b.order {
		if state[root] != unvisited {
			continue
		}
		state[root] = inProgress
		stack := []frame{{id: root, kids: b.children(root)}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.index < len(top.kids) {
				next := top.kids[top.index]
				top.index++
				switch state[next] {
				case inProgress:
					return nil, errors.CycleRejected(b.cyclePath(stack, next))
				case unvisited:
					state[next] = inProgress
					stack = append(stack, frame{id: next, kids: b.children(next)})
				}
				continue
			}
			state[top.id] = done
			topo = append(topo, top.id)
			stack = stack[:len(stack)-1]
		}
	}
	return topo, nil
}

func (b *builder) cyclePath(stack []frame, back ids.TypeID) []string {
	start := 0
	for i := range stack {
		if stack[i].id == back {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, recordName(b.recs[f.id]))
	}
	return append(path, recordName(b.recs[back]))
}

func (b *builder) lookup(id ids.TypeID) *Descriptor {
	if id.IsBuiltin() {
		return &builtins[id]
	}
	return b.descs[id]
}

// describe converts a record whose contained types are already described.
func (b *builder) describe(r *Record) (*Descriptor, error) {
	d := &Descriptor{
		ID:      r.ID,
		Name:    r.Name,
		Kind:    r.Kind,
		Flags:   r.Flags,
		Elem:    ids.InvalidType,
		Pointee: ids.InvalidType,
	}

	switch r.Kind {
	case KindStruct:
		d.Size = r.Extent
		d.Members = make([]Member, len(r.Members))
		for i, m := range r.Members {
			what := memberLabel(i, m.Name)
			md := b.lookup(m.Type)
			span, ok := safeMul(m.Count, md.Size)
			if !ok {
				return nil, errors.Malformed(recordName(r), "%s size overflows", what)
			}
			end, ok := safeAdd(m.Offset, span)
			if !ok {
				return nil, errors.Malformed(recordName(r), "%s end overflows", what)
			}
			if i+1 < len(r.Members) && end > r.Members[i+1].Offset {
				return nil, errors.Malformed(recordName(r), "%s overlaps the next member", what)
			}
			if end > r.Extent {
				return nil, errors.Malformed(recordName(r), "%s ends at %d past extent %d", what, end, r.Extent)
			}
			d.Members[i] = Member(m)
			if md.depth+1 > d.depth {
				d.depth = md.depth + 1
			}
		}
		if len(r.Members) == 0 {
			d.depth = 1
		}

	case KindArray:
		ed := b.lookup(r.Element)
		size, ok := safeMul(r.Length, ed.Size)
		if !ok {
			return nil, errors.Malformed(recordName(r), "array of %d x %d bytes overflows", r.Length, ed.Size)
		}
		if r.Extent != 0 && r.Extent != size {
			return nil, errors.Malformed(recordName(r), "extent %d does not match %d x %d", r.Extent, r.Length, ed.Size)
		}
		d.Size = size
		d.Length = r.Length
		d.Elem = r.Element
		d.depth = ed.depth + 1

	case KindPointer:
		d.Size = r.Extent
		if d.Size == 0 {
			d.Size = PointerSize
		}
		d.Pointee = r.Pointee
	}
	return d, nil
}
