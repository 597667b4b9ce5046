package layout

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/scope-layout/errors"
	"github.com/wippyai/scope-layout/heap"
	"github.com/wippyai/scope-layout/internal/abi"
)

// Field is one tagged word within a section element.
type Field struct {
	Name    string
	Variant heap.Variant
	Offset  uint32
}

// Element describes the shape of one section element.
type Element struct {
	Fields []Field
	Stride uint32
}

// Word is a single-slot element holding a member of v.
func Word(v heap.Variant) Element {
	return Element{
		Stride: abi.WordSize,
		Fields: []Field{{Name: "value", Variant: v}},
	}
}

// RecordLayout derives an element from a WIT record. Every field must occupy
// exactly one tagged word; variants are assigned positionally.
func RecordLayout(r *wit.Record, variants ...heap.Variant) (Element, error) {
	if len(variants) != len(r.Fields) {
		return Element{}, errors.New(errors.PhaseLayout, errors.KindInvalidInput).
			Detail("record has %d fields, got %d variants", len(r.Fields), len(variants)).
			Build()
	}

	c := NewCalculator()
	info := c.Record(r)

	e := Element{Stride: info.Size, Fields: make([]Field, len(r.Fields))}
	for i, f := range r.Fields {
		fi := c.Calculate(f.Type)
		if fi.Size != abi.WordSize {
			return Element{}, errors.New(errors.PhaseLayout, errors.KindInvalidData).
				Path(f.Name).
				Expected("32-bit field").
				Detail("field is %d bytes", fi.Size).
				Build()
		}
		e.Fields[i] = Field{Name: f.Name, Offset: info.FieldOffs[f.Name], Variant: variants[i]}
	}
	return e, nil
}

// MustRecordLayout is RecordLayout for static tables.
func MustRecordLayout(r *wit.Record, variants ...heap.Variant) Element {
	e, err := RecordLayout(r, variants...)
	if err != nil {
		panic(err)
	}
	return e
}

// Field returns the field with the given name and its position.
func (e Element) Field(name string) (Field, int, bool) {
	for i, f := range e.Fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return Field{}, -1, false
}
