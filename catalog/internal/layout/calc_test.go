package layout

import (
	"testing"

	"go.bytecodealliance.org/wit"
)

func TestCalculatePrimitives(t *testing.T) {
	c := NewCalculator()

	tests := []struct {
		typ   wit.Type
		name  string
		size  uint32
		align uint32
	}{
		{wit.Bool{}, "bool", 1, 1},
		{wit.U8{}, "u8", 1, 1},
		{wit.S16{}, "s16", 2, 2},
		{wit.U32{}, "u32", 4, 4},
		{wit.S64{}, "s64", 8, 8},
		{wit.F32{}, "f32", 4, 4},
		{wit.F64{}, "f64", 8, 8},
		{wit.Char{}, "char", 4, 4},
		{wit.String{}, "string", 8, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := c.Calculate(tc.typ)
			if info.Size != tc.size {
				t.Errorf("size: got %d, want %d", info.Size, tc.size)
			}
			if info.Align != tc.align {
				t.Errorf("align: got %d, want %d", info.Align, tc.align)
			}
		})
	}
}

func TestCalculateRecord(t *testing.T) {
	c := NewCalculator()

	t.Run("mixed_alignment", func(t *testing.T) {
		typedef := &wit.TypeDef{Kind: &wit.Record{
			Fields: []wit.Field{
				{Name: "a", Type: wit.U8{}},
				{Name: "b", Type: wit.U32{}},
				{Name: "c", Type: wit.U8{}},
			},
		}}
		info := c.Calculate(typedef)

		want := []uint32{0, 4, 8}
		for i, off := range want {
			if info.Offsets[i] != off {
				t.Errorf("field %d offset: got %d, want %d", i, info.Offsets[i], off)
			}
		}
		if info.Size != 12 {
			t.Errorf("size: got %d, want 12", info.Size)
		}
		if info.Align != 4 {
			t.Errorf("align: got %d, want 4", info.Align)
		}
	})

	t.Run("nested", func(t *testing.T) {
		inner := &wit.TypeDef{Kind: &wit.Record{
			Fields: []wit.Field{{Name: "v", Type: wit.U64{}}},
		}}
		outer := &wit.TypeDef{Kind: &wit.Record{
			Fields: []wit.Field{
				{Name: "tag", Type: wit.U8{}},
				{Name: "inner", Type: inner},
			},
		}}
		info := c.Calculate(outer)
		if info.Offsets[1] != 8 || info.Size != 16 || info.Align != 8 {
			t.Errorf("got %+v", info)
		}
	})
}

func TestCalculateTuple(t *testing.T) {
	c := NewCalculator()

	info := c.Calculate(&wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.U8{}, wit.U64{}, wit.U8{}}}})
	if info.Size != 24 {
		t.Errorf("size: got %d, want 24", info.Size)
	}
	if info.Offsets[2] != 16 {
		t.Errorf("third offset: got %d, want 16", info.Offsets[2])
	}
}

func TestCalculateTagged(t *testing.T) {
	c := NewCalculator()

	tests := []struct {
		name    string
		kind    wit.TypeDefKind
		size    uint32
		payload uint32
	}{
		{"option_u32", &wit.Option{Type: wit.U32{}}, 8, 4},
		{"option_u8", &wit.Option{Type: wit.U8{}}, 2, 1},
		{"result_u64_string", &wit.Result{OK: wit.U64{}, Err: wit.String{}}, 16, 8},
		{"result_empty", &wit.Result{}, 1, 1},
		{"variant", &wit.Variant{Cases: []wit.Case{{Name: "a"}, {Name: "b", Type: wit.U16{}}}}, 4, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := c.Calculate(&wit.TypeDef{Kind: tc.kind})
			if info.Size != tc.size {
				t.Errorf("size: got %d, want %d", info.Size, tc.size)
			}
			if info.Payload != tc.payload {
				t.Errorf("payload: got %d, want %d", info.Payload, tc.payload)
			}
			if info.Disc != 1 {
				t.Errorf("disc: got %d, want 1", info.Disc)
			}
		})
	}
}

func TestCalculateFlags(t *testing.T) {
	c := NewCalculator()

	tests := []struct {
		n    int
		size uint32
	}{
		{0, 0}, {1, 1}, {8, 1}, {9, 2}, {17, 4}, {33, 8}, {65, 12},
	}
	for _, tc := range tests {
		fs := make([]wit.Flag, tc.n)
		info := c.Calculate(&wit.TypeDef{Kind: &wit.Flags{Flags: fs}})
		if info.Size != tc.size {
			t.Errorf("%d flags: size %d, want %d", tc.n, info.Size, tc.size)
		}
	}
}

func TestDiscriminantSize(t *testing.T) {
	tests := []struct {
		cases int
		want  uint32
	}{
		{1, 1}, {256, 1}, {257, 2}, {65536, 2}, {65537, 4},
	}
	for _, tc := range tests {
		if got := DiscriminantSize(tc.cases); got != tc.want {
			t.Errorf("DiscriminantSize(%d) = %d, want %d", tc.cases, got, tc.want)
		}
	}
}

func TestCalculateHandles(t *testing.T) {
	c := NewCalculator()
	res := &wit.TypeDef{Kind: &wit.Resource{}}

	for name, kind := range map[string]wit.TypeDefKind{
		"own":    &wit.Own{Type: res},
		"borrow": &wit.Borrow{Type: res},
	} {
		info := c.Calculate(&wit.TypeDef{Kind: kind})
		if info.Size != 4 || info.Align != 4 {
			t.Errorf("%s: got size %d align %d, want 4/4", name, info.Size, info.Align)
		}
	}
}
