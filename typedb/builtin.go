package typedb

import (
	"unsafe"

	"github.com/wippyai/typeart-runtime/ids"
)

// Builtin type ids. They are present in every catalog.
const (
	Int8 ids.TypeID = iota
	Int16
	Int32
	Int64
	Half
	Float
	Double
	Float128
	X86Float80
	PPCFloat128
	Pointer
)

// PointerSize is the byte size of the builtin pointer type.
const PointerSize = uint64(unsafe.Sizeof(uintptr(0)))

var builtins = [ids.NumBuiltins]Descriptor{
	Int8:        {ID: Int8, Name: "int8", Kind: KindBuiltin, Size: 1},
	Int16:       {ID: Int16, Name: "int16", Kind: KindBuiltin, Size: 2},
	Int32:       {ID: Int32, Name: "int32", Kind: KindBuiltin, Size: 4},
	Int64:       {ID: Int64, Name: "int64", Kind: KindBuiltin, Size: 8},
	Half:        {ID: Half, Name: "half", Kind: KindBuiltin, Size: 2},
	Float:       {ID: Float, Name: "float", Kind: KindBuiltin, Size: 4},
	Double:      {ID: Double, Name: "double", Kind: KindBuiltin, Size: 8},
	Float128:    {ID: Float128, Name: "float128", Kind: KindBuiltin, Size: 16},
	X86Float80:  {ID: X86Float80, Name: "x86_float80", Kind: KindBuiltin, Size: 16},
	PPCFloat128: {ID: PPCFloat128, Name: "ppc_float128", Kind: KindBuiltin, Size: 16},
	Pointer:     {ID: Pointer, Name: "pointer", Kind: KindPointer, Size: PointerSize, Pointee: ids.UnknownType},
}

// BuiltinByName returns the builtin id with the given name.
func BuiltinByName(name string) (ids.TypeID, bool) {
	for i := range builtins {
		if builtins[i].Name == name {
			return builtins[i].ID, true
		}
	}
	return ids.InvalidType, false
}
