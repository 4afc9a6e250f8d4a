package catalog

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/typeart-runtime/catalog/internal/layout"
	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
	"github.com/wippyai/typeart-runtime/typedb"
)

// WIT returns a Source describing WIT type definitions as they are laid out
// in a 32-bit guest's linear memory. Records and tuples become structs,
// strings and lists become {ptr, len} structs, enums, flags and handles
// become integers, and variants, options and results become a tag followed
// by an opaque payload. Ids are assigned from ids.FirstUserType upward.
func WIT(defs ...*wit.TypeDef) typedb.Source {
	return typedb.SourceFunc(func(context.Context) (*typedb.RecordSet, error) {
		c := newWITConverter()
		for _, def := range defs {
			if _, err := c.def(def); err != nil {
				return nil, err
			}
		}
		return c.set(), nil
	})
}

type witJSONFormat struct{}

func (witJSONFormat) Name() string         { return "wit-json" }
func (witJSONFormat) Extensions() []string { return []string{".wit.json"} }

// Decode reads the JSON form of a resolved WIT package set and converts
// every type definition whose layout is known. Resources and other
// definitions without a memory layout are skipped.
func (witJSONFormat) Decode(r io.Reader) (*typedb.RecordSet, error) {
	res, err := wit.DecodeJSON(r)
	if err != nil {
		return nil, err
	}
	c := newWITConverter()
	for _, def := range res.TypeDefs {
		if _, err := c.def(def); err != nil {
			if errors.IsKind(err, errors.KindUnsupported) {
				continue
			}
			return nil, err
		}
	}
	return c.set(), nil
}

type witConverter struct {
	calc    *layout.Calculator
	byDef   map[*wit.TypeDef]ids.TypeID
	slices  map[string]ids.TypeID
	records []typedb.Record
	next    ids.TypeID
}

func newWITConverter() *witConverter {
	return &witConverter{
		calc:   layout.NewCalculator(),
		byDef:  make(map[*wit.TypeDef]ids.TypeID),
		slices: make(map[string]ids.TypeID),
		next:   ids.FirstUserType,
	}
}

func (c *witConverter) set() *typedb.RecordSet {
	return &typedb.RecordSet{Records: c.records}
}

func (c *witConverter) add(r typedb.Record) ids.TypeID {
	r.ID = c.next
	c.next++
	c.records = append(c.records, r)
	return r.ID
}

func (c *witConverter) typeID(t wit.Type) (ids.TypeID, error) {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return typedb.Int8, nil
	case wit.U16, wit.S16:
		return typedb.Int16, nil
	case wit.U32, wit.S32, wit.Char:
		return typedb.Int32, nil
	case wit.U64, wit.S64:
		return typedb.Int64, nil
	case wit.F32:
		return typedb.Float, nil
	case wit.F64:
		return typedb.Double, nil
	case wit.String:
		return c.slice("string"), nil
	case *wit.TypeDef:
		return c.def(typ)
	}
	return ids.InvalidType, errors.Unsupported(errors.PhaseLoad, fmt.Sprintf("wit type %T", t))
}

// slice returns the shared {ptr, len} struct for name.
func (c *witConverter) slice(name string) ids.TypeID {
	if id, ok := c.slices[name]; ok {
		return id
	}
	id := c.add(sliceRecord(name))
	c.slices[name] = id
	return id
}

func sliceRecord(name string) typedb.Record {
	return typedb.Record{
		Name:   name,
		Kind:   typedb.KindStruct,
		Extent: 8,
		Members: []typedb.MemberRecord{
			{Name: "ptr", Offset: 0, Type: typedb.Int32, Count: 1},
			{Name: "len", Offset: 4, Type: typedb.Int32, Count: 1},
		},
	}
}

func intOfSize(size uint32) (ids.TypeID, bool) {
	switch size {
	case 1:
		return typedb.Int8, true
	case 2:
		return typedb.Int16, true
	case 4:
		return typedb.Int32, true
	case 8:
		return typedb.Int64, true
	}
	return ids.InvalidType, false
}

func (c *witConverter) def(t *wit.TypeDef) (ids.TypeID, error) {
	if id, ok := c.byDef[t]; ok {
		return id, nil
	}

	name := ""
	if t.Name != nil {
		name = *t.Name
	}
	info := c.calc.Calculate(t)

	var (
		id  ids.TypeID
		err error
	)
	switch kind := t.Kind.(type) {
	case *wit.Record:
		types := make([]wit.Type, len(kind.Fields))
		names := make([]string, len(kind.Fields))
		for i, f := range kind.Fields {
			types[i], names[i] = f.Type, f.Name
		}
		id, err = c.sequence(name, info, types, names)
	case *wit.Tuple:
		names := make([]string, len(kind.Types))
		for i := range names {
			names[i] = strconv.Itoa(i)
		}
		id, err = c.sequence(name, info, kind.Types, names)
	case *wit.List:
		if name == "" {
			id = c.slice("list")
		} else {
			id = c.add(sliceRecord(name))
		}
	case *wit.Enum, *wit.Own, *wit.Borrow:
		id, _ = intOfSize(info.Size)
	case *wit.Flags:
		id = c.flags(name, info)
	case *wit.Variant, *wit.Option, *wit.Result:
		id = c.tagged(name, info)
	case wit.Type:
		id, err = c.typeID(kind)
	default:
		err = errors.Unsupported(errors.PhaseLoad, fmt.Sprintf("wit %T definition %q", t.Kind, name))
	}
	if err != nil {
		return ids.InvalidType, err
	}
	c.byDef[t] = id
	return id, nil
}

func (c *witConverter) sequence(name string, info layout.Info, types []wit.Type, names []string) (ids.TypeID, error) {
	members := make([]typedb.MemberRecord, 0, len(types))
	for i, typ := range types {
		mid, err := c.typeID(typ)
		if err != nil {
			return ids.InvalidType, err
		}
		if fieldSize := c.calc.Calculate(typ).Size; fieldSize == 0 {
			continue
		}
		members = append(members, typedb.MemberRecord{
			Name:   names[i],
			Offset: uint64(info.Offsets[i]),
			Type:   mid,
			Count:  1,
		})
	}
	r := typedb.Record{
		Name:    name,
		Kind:    typedb.KindStruct,
		Extent:  uint64(info.Size),
		Members: members,
	}
	if name != "" {
		r.Flags = typedb.FlagUserDefined
	}
	return c.add(r), nil
}

func (c *witConverter) flags(name string, info layout.Info) ids.TypeID {
	if id, ok := intOfSize(info.Size); ok {
		return id
	}
	r := typedb.Record{
		Name:    name,
		Kind:    typedb.KindArray,
		Element: typedb.Int32,
		Length:  uint64(info.Size / 4),
	}
	return c.add(r)
}

func (c *witConverter) tagged(name string, info layout.Info) ids.TypeID {
	r := typedb.Record{
		Name:   name,
		Kind:   typedb.KindStruct,
		Extent: uint64(info.Size),
	}
	tag, ok := intOfSize(info.Disc)
	if !ok {
		return c.add(r)
	}
	r.Members = []typedb.MemberRecord{{Name: "tag", Offset: 0, Type: tag, Count: 1}}
	if info.Size > info.Payload {
		r.Members = append(r.Members, typedb.MemberRecord{
			Name:   "payload",
			Offset: uint64(info.Payload),
			Type:   typedb.Int8,
			Count:  uint64(info.Size - info.Payload),
		})
	}
	return c.add(r)
}
