package catalog

import (
	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
	"github.com/wippyai/typeart-runtime/typedb"
)

// document is the file shape shared by the YAML and JSON formats.
type document struct {
	Version string      `yaml:"version,omitempty" json:"version,omitempty"`
	Types   []typeEntry `yaml:"types" json:"types"`
}

// typeEntry accepts two member encodings: a list of member mappings, or the
// parallel offsets/types/sizes arrays written by older type generators.
type typeEntry struct {
	Pointee     *int32        `yaml:"pointee,omitempty" json:"pointee,omitempty"`
	Element     *int32        `yaml:"element,omitempty" json:"element,omitempty"`
	MemberCount *int          `yaml:"member_count,omitempty" json:"member_count,omitempty"`
	Name        string        `yaml:"name" json:"name"`
	Kind        string        `yaml:"kind,omitempty" json:"kind,omitempty"`
	Members     []memberEntry `yaml:"members,omitempty" json:"members,omitempty"`
	Offsets     []uint64      `yaml:"offsets,omitempty" json:"offsets,omitempty"`
	MemberTypes []int32       `yaml:"types,omitempty" json:"types,omitempty"`
	Sizes       []uint64      `yaml:"sizes,omitempty" json:"sizes,omitempty"`
	Extent      uint64        `yaml:"extent" json:"extent"`
	Length      uint64        `yaml:"length,omitempty" json:"length,omitempty"`
	ID          int32         `yaml:"id" json:"id"`
	Flags       uint8         `yaml:"flags,omitempty" json:"flags,omitempty"`
}

type memberEntry struct {
	Count  *uint64 `yaml:"count,omitempty" json:"count,omitempty"`
	Name   string  `yaml:"name,omitempty" json:"name,omitempty"`
	Offset uint64  `yaml:"offset" json:"offset"`
	Type   int32   `yaml:"type" json:"type"`
}

func (e *typeEntry) label() string {
	if e.Name != "" {
		return e.Name
	}
	return ids.TypeID(e.ID).String()
}

func (e *typeEntry) legacy() bool {
	return e.MemberCount != nil || len(e.Offsets) > 0 || len(e.MemberTypes) > 0 || len(e.Sizes) > 0
}

func (d *document) records() (*typedb.RecordSet, error) {
	set := &typedb.RecordSet{
		Version: d.Version,
		Records: make([]typedb.Record, 0, len(d.Types)),
	}
	for i := range d.Types {
		r, err := d.Types[i].record()
		if err != nil {
			return nil, err
		}
		set.Records = append(set.Records, r)
	}
	return set, nil
}

func (e *typeEntry) record() (typedb.Record, error) {
	r := typedb.Record{
		ID:      ids.TypeID(e.ID),
		Name:    e.Name,
		Extent:  e.Extent,
		Flags:   typedb.Flag(e.Flags),
		Element: ids.InvalidType,
		Pointee: ids.UnknownType,
	}

	if e.Kind != "" {
		k, ok := typedb.ParseKind(e.Kind)
		if !ok || k == typedb.KindBuiltin {
			return r, errors.Malformed(e.label(), "kind %q cannot be declared", e.Kind)
		}
		r.Kind = k
	}

	if r.Kind != typedb.KindStruct && (len(e.Members) > 0 || e.legacy()) {
		return r, errors.Malformed(e.label(), "%s type declares members", r.Kind)
	}

	switch r.Kind {
	case typedb.KindStruct:
		members, err := e.members()
		if err != nil {
			return r, err
		}
		r.Members = members
	case typedb.KindArray:
		if e.Element == nil {
			return r, errors.Malformed(e.label(), "array without element type")
		}
		r.Element = ids.TypeID(*e.Element)
		r.Length = e.Length
	case typedb.KindPointer:
		if e.Pointee != nil {
			r.Pointee = ids.TypeID(*e.Pointee)
		}
	}
	return r, nil
}

func (e *typeEntry) members() ([]typedb.MemberRecord, error) {
	if len(e.Members) > 0 && e.legacy() {
		return nil, errors.Malformed(e.label(), "both members and offsets are given")
	}

	if !e.legacy() {
		out := make([]typedb.MemberRecord, len(e.Members))
		for i, m := range e.Members {
			count := uint64(1)
			if m.Count != nil {
				count = *m.Count
			}
			out[i] = typedb.MemberRecord{
				Name:   m.Name,
				Offset: m.Offset,
				Type:   ids.TypeID(m.Type),
				Count:  count,
			}
		}
		return out, nil
	}

	n := len(e.Offsets)
	if (e.MemberCount != nil && *e.MemberCount != n) || len(e.MemberTypes) != n || len(e.Sizes) != n {
		return nil, errors.Malformed(e.label(), "member_count, offsets, types and sizes disagree")
	}
	out := make([]typedb.MemberRecord, n)
	for i := range out {
		out[i] = typedb.MemberRecord{
			Offset: e.Offsets[i],
			Type:   ids.TypeID(e.MemberTypes[i]),
			Count:  e.Sizes[i],
		}
	}
	return out, nil
}

// fromRecords renders a record set in the member-list encoding.
func fromRecords(set *typedb.RecordSet) *document {
	doc := &document{
		Version: set.Version,
		Types:   make([]typeEntry, len(set.Records)),
	}
	for i, r := range set.Records {
		e := typeEntry{
			ID:     int32(r.ID),
			Name:   r.Name,
			Kind:   r.Kind.String(),
			Extent: r.Extent,
			Flags:  uint8(r.Flags),
		}
		switch r.Kind {
		case typedb.KindStruct:
			e.Members = make([]memberEntry, len(r.Members))
			for j, m := range r.Members {
				count := m.Count
				e.Members[j] = memberEntry{
					Name:   m.Name,
					Offset: m.Offset,
					Type:   int32(m.Type),
					Count:  &count,
				}
			}
		case typedb.KindArray:
			elem := int32(r.Element)
			e.Element = &elem
			e.Length = r.Length
		case typedb.KindPointer:
			pointee := int32(r.Pointee)
			e.Pointee = &pointee
		}
		doc.Types[i] = e
	}
	return doc
}

// FromCatalog rebuilds the record set a catalog was loaded from.
func FromCatalog(cat *typedb.Catalog) *typedb.RecordSet {
	set := &typedb.RecordSet{Version: cat.Version()}
	for _, id := range cat.Types() {
		d := cat.Lookup(id)
		r := typedb.Record{
			ID:      d.ID,
			Name:    d.Name,
			Kind:    d.Kind,
			Extent:  d.Size,
			Flags:   d.Flags,
			Element: d.Elem,
			Length:  d.Length,
			Pointee: d.Pointee,
		}
		for _, m := range d.Members {
			r.Members = append(r.Members, typedb.MemberRecord(m))
		}
		set.Records = append(set.Records, r)
	}
	return set
}
