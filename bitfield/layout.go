package bitfield

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/wippyai/scope-layout/errors"
)

// Layout is an ordered table of fields sharing one word.
type Layout struct {
	Name   string
	Bits   uint8
	Fields []Field
}

// Next returns a field of the given width placed right after the last one.
// It is meant for building tables in declaration order.
func Next(prev Field, name string, width uint8) Field {
	return Field{Name: name, Shift: prev.End(), Width: width}
}

// Validate checks that every field fits in the word and that no two overlap.
func (l Layout) Validate() error {
	var err error
	for i, f := range l.Fields {
		if f.Width == 0 {
			err = multierr.Append(err, errors.InvalidData(errors.PhaseEncode, []string{l.Name, f.Name}, "zero-width field"))
			continue
		}
		if f.End() > l.Bits {
			err = multierr.Append(err, errors.InvalidData(errors.PhaseEncode, []string{l.Name, f.Name},
				fmt.Sprintf("field ends at bit %d, word has %d", f.End(), l.Bits)))
		}
		for _, g := range l.Fields[:i] {
			if f.Overlaps(g) {
				err = multierr.Append(err, errors.InvalidData(errors.PhaseEncode, []string{l.Name, f.Name},
					fmt.Sprintf("overlaps %s", g)))
			}
		}
	}
	return err
}

// Used returns the union mask of all fields.
func (l Layout) Used() uint32 {
	var m uint32
	for _, f := range l.Fields {
		m |= f.Mask()
	}
	return m
}
