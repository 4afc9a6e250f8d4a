package ids

import "strconv"

// TypeID identifies an entry of the type catalog.
//
// Values below FirstUserType are reserved: the builtin scalar ids occupy the
// bottom of the range and UnknownType marks an allocation whose type could not
// be determined when it was instrumented. InvalidType is an explicit error
// marker and is never a catalog key.
type TypeID int32

const (
	// InvalidType marks an erroneous or uninitialized type id.
	InvalidType TypeID = -1

	// UnknownType marks a type that was not determined at instrumentation time.
	UnknownType TypeID = 255

	// NumBuiltins is the number of builtin scalar ids starting at zero.
	NumBuiltins = 11

	// FirstUserType is the smallest id a catalog may assign to its own types.
	FirstUserType TypeID = 256
)

// IsSentinel reports whether id is UnknownType or InvalidType.
func (id TypeID) IsSentinel() bool {
	return id == UnknownType || id == InvalidType
}

// IsReserved reports whether id lies in the range catalogs may not assign.
func (id TypeID) IsReserved() bool {
	return id < FirstUserType
}

// IsBuiltin reports whether id names one of the builtin scalar types.
func (id TypeID) IsBuiltin() bool {
	return id >= 0 && id < NumBuiltins
}

func (id TypeID) String() string {
	switch id {
	case InvalidType:
		return "type(invalid)"
	case UnknownType:
		return "type(unknown)"
	}
	return "type(" + strconv.FormatInt(int64(id), 10) + ")"
}

// AllocID distinguishes one tracked allocation event from another.
// AllocID 0 is reserved and always invalid.
type AllocID uint64

// InvalidAlloc is returned where no allocation was recorded.
const InvalidAlloc AllocID = 0

// IsValid reports whether id refers to a recorded allocation event.
func (id AllocID) IsValid() bool {
	return id != InvalidAlloc
}

func (id AllocID) String() string {
	if id == InvalidAlloc {
		return "alloc(invalid)"
	}
	return "alloc(" + strconv.FormatUint(uint64(id), 10) + ")"
}
