package typedb

import (
	"context"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
)

// MemberRecord is the source form of a struct member.
type MemberRecord struct {
	Name   string
	Offset uint64
	Type   ids.TypeID
	Count  uint64
}

// Record is one normalized type description as produced by a Source.
//
// Extent is the declared byte size. It is required for structs, optional for
// arrays (checked against Length times the element size) and optional for
// pointers (defaults to PointerSize). Pointee should be ids.UnknownType for
// opaque pointers.
type Record struct {
	Name    string
	Members []MemberRecord
	Extent  uint64
	Length  uint64
	ID      ids.TypeID
	Element ids.TypeID
	Pointee ids.TypeID
	Kind    Kind
	Flags   Flag
}

// RecordSet is a versioned collection of records loaded as one catalog.
type RecordSet struct {
	Version string
	Records []Record
}

// Source produces a RecordSet. Sources report an absent input with an
// errors.KindMissing error so Load can classify it.
type Source interface {
	Load(ctx context.Context) (*RecordSet, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (*RecordSet, error)

func (f SourceFunc) Load(ctx context.Context) (*RecordSet, error) {
	return f(ctx)
}

// Static returns a Source that always yields set.
func Static(set *RecordSet) Source {
	return SourceFunc(func(context.Context) (*RecordSet, error) {
		if set == nil {
			return nil, errors.Missing("static record set", nil)
		}
		return set, nil
	})
}
