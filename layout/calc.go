package layout

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/scope-layout/internal/abi"
)

// Info is the size and alignment of a WIT type, with field offsets for records.
type Info struct {
	FieldOffs map[string]uint32
	Size      uint32
	Align     uint32
}

// Calculator computes canonical ABI layouts for the WIT types that describe
// section elements. It is not safe for concurrent use.
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
		info = c.Record(kind)
	case *wit.Tuple:
		info = c.tuple(kind)
	case wit.Type:
		info = c.Calculate(kind)
	default:
		info = Info{Size: 0, Align: 1}
	}

	c.cache[t] = info
	return info
}

// Record lays fields out in declaration order, each at its natural alignment.
func (c *Calculator) Record(r *wit.Record) Info {
	if len(r.Fields) == 0 {
		return Info{Size: 0, Align: 1}
	}

	fieldOffs := make(map[string]uint32, len(r.Fields))
	maxAlign := uint32(1)
	offset := uint32(0)

	for _, field := range r.Fields {
		fl := c.Calculate(field.Type)

		offset = abi.AlignTo(offset, fl.Align)
		fieldOffs[field.Name] = offset

		if fl.Align > maxAlign {
			maxAlign = fl.Align
		}
		offset += fl.Size
	}

	return Info{
		Size:      abi.AlignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: fieldOffs,
	}
}

func (c *Calculator) tuple(t *wit.Tuple) Info {
	if len(t.Types) == 0 {
		return Info{Size: 0, Align: 1}
	}

	maxAlign := uint32(1)
	offset := uint32(0)
	for _, typ := range t.Types {
		el := c.Calculate(typ)
		offset = abi.AlignTo(offset, el.Align)
		if el.Align > maxAlign {
			maxAlign = el.Align
		}
		offset += el.Size
	}

	return Info{
		Size:  abi.AlignTo(offset, maxAlign),
		Align: maxAlign,
	}
}
