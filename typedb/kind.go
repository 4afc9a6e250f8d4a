package typedb

// Kind classifies a type descriptor.
// The zero value is KindStruct so that catalog records default to aggregates.
type Kind uint8

const (
	KindStruct Kind = iota
	KindArray
	KindPointer
	KindBuiltin
)

var kindNames = [...]string{
	KindStruct:  "struct",
	KindArray:   "array",
	KindPointer: "pointer",
	KindBuiltin: "builtin",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// IsAggregate reports whether values of this kind have addressable sub-elements.
func (k Kind) IsAggregate() bool {
	return k == KindStruct || k == KindArray
}

// Flag carries producer-supplied classification bits for struct types.
type Flag uint8

const (
	FlagUserDefined Flag = 1 << 0
	FlagVector      Flag = 1 << 1
)

func (f Flag) Has(bit Flag) bool {
	return f&bit != 0
}
