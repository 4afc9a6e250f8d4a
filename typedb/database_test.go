package typedb

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
)

const (
	pointID ids.TypeID = 256 + iota
	segmentID
	bufferID
	nodeID
)

func pointRecords() *RecordSet {
	return &RecordSet{
		Version: "1.0.0",
		Records: []Record{
			{
				ID:     pointID,
				Name:   "Point",
				Kind:   KindStruct,
				Extent: 8,
				Flags:  FlagUserDefined,
				Members: []MemberRecord{
					{Name: "x", Offset: 0, Type: Int32, Count: 1},
					{Name: "y", Offset: 4, Type: Int32, Count: 1},
				},
			},
			{
				ID:     segmentID,
				Name:   "Segment",
				Kind:   KindStruct,
				Extent: 24,
				Members: []MemberRecord{
					{Name: "ends", Offset: 0, Type: pointID, Count: 2},
					{Name: "weight", Offset: 16, Type: Double, Count: 1},
				},
			},
			{
				ID:      bufferID,
				Name:    "Buffer",
				Kind:    KindArray,
				Element: segmentID,
				Length:  4,
			},
			{
				ID:      nodeID,
				Name:    "NodePtr",
				Kind:    KindPointer,
				Pointee: segmentID,
			},
		},
	}
}

func loaded(t *testing.T, set *RecordSet) *Database {
	t.Helper()
	db := New()
	if err := db.Load(context.Background(), Static(set)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return db
}

func TestNew_BuiltinsOnly(t *testing.T) {
	db := New()
	if db.Loaded() {
		t.Error("fresh database reports loaded")
	}

	for i := ids.TypeID(0); i < ids.NumBuiltins; i++ {
		d, ok := db.Describe(i)
		if !ok {
			t.Fatalf("builtin %d missing", i)
		}
		if d.ID != i {
			t.Errorf("builtin %d has id %d", i, d.ID)
		}
	}

	size, ok := db.SizeOf(Double)
	if !ok || size != 8 {
		t.Errorf("SizeOf(double) = %d, %v", size, ok)
	}
	if _, ok := db.Describe(pointID); ok {
		t.Error("user type present before load")
	}
}

func TestDescribe_Sentinels(t *testing.T) {
	db := loaded(t, pointRecords())
	for _, id := range []ids.TypeID{ids.UnknownType, ids.InvalidType, 11, 300} {
		if _, ok := db.Describe(id); ok {
			t.Errorf("Describe(%v) succeeded", id)
		}
		if _, ok := db.SizeOf(id); ok {
			t.Errorf("SizeOf(%v) succeeded", id)
		}
	}
}

func TestLoad_Sizes(t *testing.T) {
	db := loaded(t, pointRecords())

	tests := []struct {
		id   ids.TypeID
		size uint64
		kind Kind
	}{
		{pointID, 8, KindStruct},
		{segmentID, 24, KindStruct},
		{bufferID, 96, KindArray},
		{nodeID, PointerSize, KindPointer},
	}
	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			d, ok := db.Describe(tt.id)
			if !ok {
				t.Fatal("not found")
			}
			if d.Size != tt.size {
				t.Errorf("Size = %d, want %d", d.Size, tt.size)
			}
			if d.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", d.Kind, tt.kind)
			}
		})
	}

	cat := db.Snapshot()
	if cat.MaxDepth() != 3 {
		t.Errorf("MaxDepth = %d, want 3", cat.MaxDepth())
	}
	if cat.Version() != "1.0.0" {
		t.Errorf("Version = %q", cat.Version())
	}
	if got := cat.Types(); len(got) != 4 || got[0] != pointID || got[3] != nodeID {
		t.Errorf("Types = %v", got)
	}
	if id, ok := cat.ByName("Segment"); !ok || id != segmentID {
		t.Errorf("ByName(Segment) = %v, %v", id, ok)
	}
	if id, ok := cat.ByName("double"); !ok || id != Double {
		t.Errorf("ByName(double) = %v, %v", id, ok)
	}
	if !cat.IsStruct(pointID) || cat.IsStruct(bufferID) {
		t.Error("IsStruct mismatch")
	}
	if !cat.IsUserDefined(pointID) || cat.IsUserDefined(segmentID) {
		t.Error("IsUserDefined mismatch")
	}
	if cat.Name(ids.TypeID(999)) != "type(999)" {
		t.Errorf("Name(999) = %q", cat.Name(999))
	}
}

func TestDescribe_ReturnsCopy(t *testing.T) {
	db := loaded(t, pointRecords())

	d, _ := db.Describe(pointID)
	d.Members[0].Type = Double
	d.Name = "Mutated"

	again, _ := db.Describe(pointID)
	if again.Members[0].Type != Int32 || again.Name != "Point" {
		t.Error("caller mutation leaked into catalog")
	}
}

func TestMemberAt(t *testing.T) {
	db := loaded(t, pointRecords())
	d := db.Snapshot().Lookup(segmentID)

	tests := []struct {
		off  uint64
		want int
	}{
		{0, 0},
		{15, 0},
		{16, 1},
		{23, 1},
	}
	for _, tt := range tests {
		got, ok := d.MemberAt(tt.off)
		if !ok || got != tt.want {
			t.Errorf("MemberAt(%d) = %d, %v, want %d", tt.off, got, ok, tt.want)
		}
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RecordSet)
		kind    errors.Kind
		message string
	}{
		{
			name:   "reserved id",
			mutate: func(s *RecordSet) { s.Records[0].ID = 12 },
			kind:   errors.KindMalformed,
		},
		{
			name:   "duplicate id",
			mutate: func(s *RecordSet) { s.Records[1].ID = pointID },
			kind:   errors.KindMalformed,
		},
		{
			name: "offsets not increasing",
			mutate: func(s *RecordSet) {
				s.Records[0].Members[1].Offset = 0
			},
			kind: errors.KindMalformed,
		},
		{
			name: "unknown member type",
			mutate: func(s *RecordSet) {
				s.Records[0].Members[1].Type = 4000
			},
			kind: errors.KindMalformed,
		},
		{
			name: "sentinel member type",
			mutate: func(s *RecordSet) {
				s.Records[0].Members[1].Type = ids.UnknownType
			},
			kind: errors.KindMalformed,
		},
		{
			name: "zero count",
			mutate: func(s *RecordSet) {
				s.Records[0].Members[0].Count = 0
			},
			kind: errors.KindMalformed,
		},
		{
			name: "overlapping members",
			mutate: func(s *RecordSet) {
				s.Records[0].Members[0].Count = 2
			},
			kind: errors.KindMalformed,
		},
		{
			name:   "member past extent",
			mutate: func(s *RecordSet) { s.Records[0].Extent = 6 },
			kind:   errors.KindMalformed,
		},
		{
			name:   "array extent mismatch",
			mutate: func(s *RecordSet) { s.Records[2].Extent = 100 },
			kind:   errors.KindMalformed,
		},
		{
			name:   "array size overflow",
			mutate: func(s *RecordSet) { s.Records[2].Length = 1 << 62 },
			kind:   errors.KindMalformed,
		},
		{
			name:   "unknown pointee",
			mutate: func(s *RecordSet) { s.Records[3].Pointee = 5000 },
			kind:   errors.KindMalformed,
		},
		{
			name:   "builtin kind",
			mutate: func(s *RecordSet) { s.Records[3].Kind = KindBuiltin },
			kind:   errors.KindMalformed,
		},
		{
			name:   "bad version",
			mutate: func(s *RecordSet) { s.Version = "not-a-version" },
			kind:   errors.KindMalformed,
		},
		{
			name:   "incompatible major",
			mutate: func(s *RecordSet) { s.Version = "2.0.0" },
			kind:   errors.KindMalformed,
		},
		{
			name: "self containment",
			mutate: func(s *RecordSet) {
				s.Records[0].Members[1].Type = pointID
				s.Records[0].Extent = 12
			},
			kind: errors.KindCycleRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := pointRecords()
			tt.mutate(set)
			err := New().Load(context.Background(), Static(set))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsKind(err, tt.kind) {
				t.Errorf("kind = %v, want %v (%v)", errors.KindOf(err), tt.kind, err)
			}
		})
	}
}

func TestLoad_CycleKeepsPreviousCatalog(t *testing.T) {
	db := loaded(t, pointRecords())

	const a, b ids.TypeID = 300, 301
	cyclic := &RecordSet{Records: []Record{
		{ID: a, Name: "A", Kind: KindStruct, Extent: 8, Members: []MemberRecord{{Offset: 0, Type: b, Count: 1}}},
		{ID: b, Name: "B", Kind: KindStruct, Extent: 8, Members: []MemberRecord{{Offset: 0, Type: a, Count: 1}}},
	}}

	err := db.Load(context.Background(), Static(cyclic))
	if !errors.IsKind(err, errors.KindCycleRejected) {
		t.Fatalf("err = %v, want cycle_rejected", err)
	}
	var te *errors.Error
	if !stderrors.As(err, &te) || len(te.Path) != 3 || te.Path[0] != te.Path[2] {
		t.Errorf("cycle path = %v", te.Path)
	}

	if _, ok := db.Describe(a); ok {
		t.Error("rejected type became visible")
	}
	if size, ok := db.SizeOf(pointID); !ok || size != 8 {
		t.Error("previous catalog no longer queryable")
	}
}

func TestLoad_PointerCycleAllowed(t *testing.T) {
	const list, listPtr ids.TypeID = 300, 301
	set := &RecordSet{Records: []Record{
		{ID: list, Name: "List", Kind: KindStruct, Extent: 16, Members: []MemberRecord{
			{Name: "value", Offset: 0, Type: Int64, Count: 1},
			{Name: "next", Offset: 8, Type: listPtr, Count: 1},
		}},
		{ID: listPtr, Name: "List*", Kind: KindPointer, Extent: 8, Pointee: list},
	}}
	db := loaded(t, set)
	if d, ok := db.Describe(listPtr); !ok || d.Pointee != list {
		t.Errorf("Describe(List*) = %+v, %v", d, ok)
	}
}

func TestLoad_Missing(t *testing.T) {
	db := New()
	if err := db.Load(context.Background(), nil); !errors.IsKind(err, errors.KindMissing) {
		t.Errorf("nil source: %v", err)
	}

	absent := SourceFunc(func(context.Context) (*RecordSet, error) {
		return nil, errors.Missing("types.yaml", nil)
	})
	if err := db.Load(context.Background(), absent); !errors.IsKind(err, errors.KindMissing) {
		t.Errorf("absent source: %v", err)
	}

	broken := SourceFunc(func(context.Context) (*RecordSet, error) {
		return nil, fmt.Errorf("decode: unexpected token")
	})
	if err := db.Load(context.Background(), broken); !errors.IsKind(err, errors.KindMalformed) {
		t.Errorf("broken source: %v", err)
	}
	if db.Loaded() {
		t.Error("failed loads marked database loaded")
	}
}

func TestLoad_ConcurrentReaders(t *testing.T) {
	db := loaded(t, pointRecords())
	replacement := pointRecords()
	replacement.Version = "1.1.0"
	replacement.Records[0].Extent = 16
	replacement.Records[1].Members[1].Offset = 32
	replacement.Records[1].Extent = 40

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				cat := db.Snapshot()
				p, _ := cat.SizeOf(pointID)
				s, _ := cat.SizeOf(segmentID)
				switch cat.Version() {
				case "1.0.0":
					if p != 8 || s != 24 {
						t.Errorf("mixed catalog: %d %d", p, s)
						return
					}
				case "1.1.0":
					if p != 16 || s != 40 {
						t.Errorf("mixed catalog: %d %d", p, s)
						return
					}
				}
			}
		}()
	}
	for i := 0; i < 20; i++ {
		set := pointRecords()
		if i%2 == 1 {
			set = replacement
		}
		if err := db.Load(context.Background(), Static(set)); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
	wg.Wait()
}
