// Package layout computes the placement of trailing sections in
// variable-length heap objects.
//
// A Table lists sections in layout order. Each section has a fixed element
// stride and a count derived from the object's header (or, for counts stored
// in the object itself, from an earlier section). Offsets are never stored:
// Plan folds stride*count over the table to place every section.
//
// Multi-field element shapes are described as WIT records and laid out with
// canonical ABI alignment rules.
package layout
