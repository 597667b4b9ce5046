package layout

import (
	"strconv"

	"github.com/wippyai/scope-layout/errors"
	"github.com/wippyai/scope-layout/heap"
	"github.com/wippyai/scope-layout/internal/abi"
)

// ID identifies a section by its position in the table.
type ID int

// Reader loads elements of sections that precede the one being counted.
type Reader interface {
	Load(id ID, index int) heap.Value
}

// CountFunc derives a section's element count from the decoded header and,
// for sections whose length is stored in an earlier section, from a Reader.
type CountFunc[H any] func(h H, r Reader) uint32

// Section is one row of a layout table.
type Section[H any] struct {
	Count  CountFunc[H]
	Name   string
	Elem   Element
	ID     ID
	Stride uint32
}

// Table is the ordered list of trailing sections of a variable-length object.
// Section order is the layout order.
type Table[H any] struct {
	Name       string
	Sections   []Section[H]
	HeaderSize uint32
}

// NewTable checks that IDs follow table order and that strides match their
// element descriptions.
func NewTable[H any](name string, headerSize uint32, sections ...Section[H]) (*Table[H], error) {
	if headerSize%abi.WordSize != 0 {
		return nil, errors.New(errors.PhaseLayout, errors.KindInvalidInput).
			Path(name).
			Detail("header size %d is not word aligned", headerSize).
			Build()
	}
	for i, s := range sections {
		path := []string{name, s.Name}
		switch {
		case s.ID != ID(i):
			return nil, errors.New(errors.PhaseLayout, errors.KindInvalidInput).
				Path(path...).
				Detail("section id %d at position %d", s.ID, i).
				Build()
		case s.Stride == 0 || s.Stride%abi.WordSize != 0:
			return nil, errors.New(errors.PhaseLayout, errors.KindInvalidInput).
				Path(path...).
				Detail("stride %d is not a positive multiple of the word size", s.Stride).
				Build()
		case s.Stride != s.Elem.Stride:
			return nil, errors.New(errors.PhaseLayout, errors.KindInvalidInput).
				Path(path...).
				Detail("stride %d disagrees with element stride %d", s.Stride, s.Elem.Stride).
				Build()
		case s.Count == nil:
			return nil, errors.FieldMissing(errors.PhaseLayout, path, "count")
		}
	}
	return &Table[H]{Name: name, HeaderSize: headerSize, Sections: sections}, nil
}

// MustTable is NewTable for package-level tables.
func MustTable[H any](name string, headerSize uint32, sections ...Section[H]) *Table[H] {
	t, err := NewTable(name, headerSize, sections...)
	if err != nil {
		panic(err)
	}
	return t
}

// Plan folds section sizes for an object already in memory at base. Counts
// that depend on earlier sections read them through load.
func (t *Table[H]) Plan(base uint32, h H, load func(addr uint32) heap.Value) (Plan, error) {
	r := &objectReader{base: base, load: load}
	return t.fold(h, r, func(p *Plan) { r.plan = p })
}

// PlanFrom folds section sizes with a caller-supplied Reader, used before the
// object exists.
func (t *Table[H]) PlanFrom(h H, r Reader) (Plan, error) {
	return t.fold(h, r, nil)
}

func (t *Table[H]) fold(h H, r Reader, bind func(*Plan)) (Plan, error) {
	p := Plan{Views: make([]View, 0, len(t.Sections))}
	if bind != nil {
		bind(&p)
	}

	offset := t.HeaderSize
	for _, s := range t.Sections {
		count := s.Count(h, r)
		size, ok := abi.SafeMulU32(s.Stride, count)
		if !ok {
			return Plan{}, errors.Overflow(errors.PhaseLayout, []string{t.Name, s.Name}, count, "section size")
		}
		p.Views = append(p.Views, View{
			ID:     s.ID,
			Name:   s.Name,
			Offset: offset,
			Stride: s.Stride,
			Count:  count,
			Elem:   s.Elem,
		})
		if offset, ok = abi.SafeAddU32(offset, size); !ok {
			return Plan{}, errors.Overflow(errors.PhaseLayout, []string{t.Name, s.Name}, size, "object size")
		}
	}
	p.Size = offset
	return p, nil
}

// View is the resolved placement of one section.
type View struct {
	Name   string
	Elem   Element
	ID     ID
	Offset uint32
	Stride uint32
	Count  uint32
}

// Present reports whether the section has any elements.
func (v View) Present() bool {
	return v.Count > 0
}

// Size returns Stride*Count.
func (v View) Size() uint32 {
	return v.Stride * v.Count
}

// ElementOffset returns the offset of element index from the object start.
// An index outside [0, Count) is fatal.
func (v View) ElementOffset(index int) uint32 {
	errors.CheckIndex(errors.PhaseAccess, []string{v.Name}, index, v.Count)
	return v.Offset + uint32(index)*v.Stride
}

// FieldOffset returns the offset of one field of element index.
func (v View) FieldOffset(index int, field string) uint32 {
	f, _, ok := v.Elem.Field(field)
	if !ok {
		errors.Unreachable(errors.PhaseAccess, []string{v.Name, strconv.Itoa(index), field}, "no such field")
	}
	return v.ElementOffset(index) + f.Offset
}

// Plan is the folded layout of one object.
type Plan struct {
	Views []View
	Size  uint32
}

// View returns the placement of section id.
func (p Plan) View(id ID) View {
	errors.CheckIndex(errors.PhaseLayout, []string{"sections"}, int(id), uint32(len(p.Views)))
	return p.Views[id]
}

// objectReader resolves loads against the views folded so far.
type objectReader struct {
	plan *Plan
	load func(addr uint32) heap.Value
	base uint32
}

func (r *objectReader) Load(id ID, index int) heap.Value {
	// Only sections already folded have a placement.
	v := r.plan.View(id)
	return r.load(r.base + v.ElementOffset(index))
}
