package layout

import (
	"go.bytecodealliance.org/wit"
)

// Info is the canonical ABI layout of one WIT type.
type Info struct {
	// Offsets holds field offsets for records and tuples, in declaration order.
	Offsets []uint32
	Size    uint32
	Align   uint32
	// Payload is the payload offset for variants, options and results.
	Payload uint32
	// Disc is the discriminant size for variants, options, results and enums.
	Disc uint32
}

type Calculator struct {
	cache map[*wit.TypeDef]Info
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[*wit.TypeDef]Info),
	}
}

func (c *Calculator) Calculate(t wit.Type) Info {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Info{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Info{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Info{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Info{Size: 8, Align: 8}
	case wit.String:
		return Info{Size: 8, Align: 4} // [ptr: u32, len: u32]
	case *wit.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		return Info{Size: 0, Align: 1}
	}
}

func (c *Calculator) calculateTypeDef(t *wit.TypeDef) Info {
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var info Info

	switch kind := t.Kind.(type) {
	case *wit.Record:
		types := make([]wit.Type, len(kind.Fields))
		for i, f := range kind.Fields {
			types[i] = f.Type
		}
		info = c.sequence(types)
	case *wit.Tuple:
		info = c.sequence(kind.Types)
	case *wit.Variant:
		payloads := make([]wit.Type, 0, len(kind.Cases))
		for _, cs := range kind.Cases {
			payloads = append(payloads, cs.Type)
		}
		info = c.tagged(len(kind.Cases), payloads)
	case *wit.Option:
		info = c.tagged(2, []wit.Type{kind.Type})
	case *wit.Result:
		info = c.tagged(2, []wit.Type{kind.OK, kind.Err})
	case *wit.Enum:
		size := DiscriminantSize(len(kind.Cases))
		info = Info{Size: size, Align: size, Disc: size}
	case *wit.List:
		info = Info{Size: 8, Align: 4}
	case *wit.Flags:
		info = flags(len(kind.Flags))
	case *wit.Own, *wit.Borrow:
		info = Info{Size: 4, Align: 4}
	case wit.Type:
		info = c.Calculate(kind)
	default:
		info = Info{Size: 0, Align: 1}
	}

	c.cache[t] = info
	return info
}

// sequence lays out fields one after another with alignment padding.
func (c *Calculator) sequence(types []wit.Type) Info {
	if len(types) == 0 {
		return Info{Size: 0, Align: 1}
	}

	offsets := make([]uint32, len(types))
	maxAlign := uint32(1)
	offset := uint32(0)

	for i, typ := range types {
		field := c.Calculate(typ)

		offset = AlignTo(offset, field.Align)
		offsets[i] = offset

		if field.Align > maxAlign {
			maxAlign = field.Align
		}

		offset += field.Size
	}

	return Info{
		Size:    AlignTo(offset, maxAlign),
		Align:   maxAlign,
		Offsets: offsets,
	}
}

// tagged lays out a discriminant followed by the largest payload.
// Nil payloads are cases without data.
func (c *Calculator) tagged(cases int, payloads []wit.Type) Info {
	if cases == 0 {
		return Info{Size: 0, Align: 1}
	}

	disc := DiscriminantSize(cases)
	maxAlign := disc
	maxSize := uint32(0)

	for _, p := range payloads {
		if p == nil {
			continue
		}
		l := c.Calculate(p)
		if l.Align > maxAlign {
			maxAlign = l.Align
		}
		if l.Size > maxSize {
			maxSize = l.Size
		}
	}

	payload := AlignTo(disc, maxAlign)
	return Info{
		Size:    AlignTo(payload+maxSize, maxAlign),
		Align:   maxAlign,
		Payload: payload,
		Disc:    disc,
	}
}

func flags(n int) Info {
	switch {
	case n == 0:
		return Info{Size: 0, Align: 1}
	case n <= 8:
		return Info{Size: 1, Align: 1}
	case n <= 16:
		return Info{Size: 2, Align: 2}
	case n <= 32:
		return Info{Size: 4, Align: 4}
	case n <= 64:
		return Info{Size: 8, Align: 8}
	}
	// >64 flags: multiple u32s
	return Info{Size: uint32((n + 31) / 32 * 4), Align: 4}
}
