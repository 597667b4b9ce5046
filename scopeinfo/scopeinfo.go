package scopeinfo

import (
	"strconv"

	"github.com/wippyai/scope-layout/errors"
	"github.com/wippyai/scope-layout/heap"
	"github.com/wippyai/scope-layout/layout"
)

// ScopeInfo is a view of a scope descriptor in a heap.
//
// Section lengths are fixed at allocation, so the plan is computed once per
// view. Element values stay mutable; stores are single-writer.
type ScopeInfo struct {
	h      *heap.Heap
	header Header
	plan   layout.Plan
	addr   uint32
}

func view(h *heap.Heap, addr uint32) *ScopeInfo {
	hdr := Header{
		Flags:             DecodeFlags(loadSmi(h, addr+FlagsOffset, "flags")),
		ParameterCount:    loadSmi(h, addr+ParameterCountOffset, "parameterCount"),
		ContextLocalCount: loadSmi(h, addr+ContextLocalCountOffset, "contextLocalCount"),
	}
	plan, err := Sections.Plan(addr, hdr, h.Load)
	if err != nil {
		errors.Unreachable(errors.PhaseLayout, []string{"ScopeInfo"}, "%v", err)
	}
	return &ScopeInfo{h: h, addr: addr, header: hdr, plan: plan}
}

func loadSmi(h *heap.Heap, addr uint32, name string) uint32 {
	v := h.Load(addr)
	if !v.IsSmi() || v.SmiValue() < 0 {
		errors.Unreachable(errors.PhaseDecode, []string{"header", name}, "expected non-negative Smi, got %s", v)
	}
	return uint32(v.SmiValue())
}

// Ref returns the tagged reference to the descriptor.
func (s *ScopeInfo) Ref() heap.Value { return heap.Ref(s.addr) }

// Address returns the object start.
func (s *ScopeInfo) Address() uint32 { return s.addr }

// Heap returns the heap holding the descriptor.
func (s *ScopeInfo) Heap() *heap.Heap { return s.h }

// Size returns the object size in bytes.
func (s *ScopeInfo) Size() uint32 { return s.plan.Size }

// Plan returns the resolved section layout.
func (s *ScopeInfo) Plan() layout.Plan { return s.plan }

// Header returns the decoded fixed header.
func (s *ScopeInfo) Header() Header { return s.header }

func (s *ScopeInfo) Flags() Flags { return s.header.Flags }

func (s *ScopeInfo) ParameterCount() int { return int(s.header.ParameterCount) }

func (s *ScopeInfo) ContextLocalCount() int { return int(s.header.ContextLocalCount) }

func (s *ScopeInfo) ScopeType() ScopeType { return s.header.Flags.ScopeType }

// IsEmpty reports whether this is the empty descriptor.
func (s *ScopeInfo) IsEmpty() bool { return s.header.Flags.IsEmpty }

func (s *ScopeInfo) HasOuterScopeInfo() bool { return s.header.Flags.HasOuterScopeInfo }

// SectionView returns the placement of a section.
func (s *ScopeInfo) SectionView(id layout.ID) layout.View {
	return s.plan.View(id)
}

func (s *ScopeInfo) wordView(id layout.ID) layout.View {
	v := s.plan.View(id)
	if len(v.Elem.Fields) != 1 {
		errors.Unreachable(errors.PhaseAccess, []string{v.Name}, "element has %d fields", len(v.Elem.Fields))
	}
	return v
}

// LoadElement loads element index of a single-word section. An index outside
// the section is fatal.
func (s *ScopeInfo) LoadElement(id layout.ID, index int) heap.Value {
	v := s.wordView(id)
	return s.h.Load(s.addr + v.ElementOffset(index))
}

// StoreElement stores element index of a single-word section. A value outside
// the section's variant set is rejected with a cast error. Sections holding a
// length are fixed at construction; storing to one is fatal.
func (s *ScopeInfo) StoreElement(id layout.ID, index int, val heap.Value) error {
	s.checkWritable(id)
	return s.storeElement(id, index, val)
}

func (s *ScopeInfo) storeElement(id layout.ID, index int, val heap.Value) error {
	v := s.wordView(id)
	off := v.ElementOffset(index)
	return s.store(v, index, v.Elem.Fields[0], off, val)
}

func (s *ScopeInfo) checkWritable(id layout.ID) {
	if isLengthSection(id) {
		errors.Unreachable(errors.PhaseAccess, []string{s.plan.View(id).Name}, "section length is immutable")
	}
}

// LoadField loads one field of element index.
func (s *ScopeInfo) LoadField(id layout.ID, index int, field string) heap.Value {
	v := s.plan.View(id)
	return s.h.Load(s.addr + v.FieldOffset(index, field))
}

// StoreField stores one field of element index, checking its variant set.
func (s *ScopeInfo) StoreField(id layout.ID, index int, field string, val heap.Value) error {
	s.checkWritable(id)
	return s.storeField(id, index, field, val)
}

func (s *ScopeInfo) storeField(id layout.ID, index int, field string, val heap.Value) error {
	v := s.plan.View(id)
	off := v.FieldOffset(index, field)
	f, _, _ := v.Elem.Field(field)
	return s.store(v, index, f, off, val)
}

func (s *ScopeInfo) store(v layout.View, index int, f layout.Field, off uint32, val heap.Value) error {
	if !s.h.Matches(f.Variant, val) {
		return errors.InvalidVariant([]string{v.Name, strconv.Itoa(index), f.Name}, f.Variant.Name, s.h.TypeName(val))
	}
	s.h.Store(s.addr+off, val)
	return nil
}

func (s *ScopeInfo) name(v heap.Value, path string) string {
	n, err := s.h.NameString(v)
	if err != nil {
		errors.Unreachable(errors.PhaseAccess, []string{path}, "%v", err)
	}
	return n
}

func (s *ScopeInfo) smi(v heap.Value, path string) int {
	if !v.IsSmi() {
		errors.Unreachable(errors.PhaseAccess, []string{path}, "expected Smi, got %s", s.h.TypeName(v))
	}
	return int(v.SmiValue())
}

func (s *ScopeInfo) properties(v heap.Value, path string) VariableProperties {
	return DecodeProperties(uint32(s.smi(v, path)))
}

func (s *ScopeInfo) storeSmi(id layout.ID, index int, field string, n int) error {
	v, ok := heap.SmiFromInt(n)
	if !ok {
		return errors.Overflow(errors.PhaseAccess, []string{s.plan.View(id).Name, field}, n, "Smi")
	}
	if field == FieldValue {
		return s.storeElement(id, index, v)
	}
	return s.storeField(id, index, field, v)
}

func (s *ScopeInfo) storeProperties(id layout.ID, index int, field string, p VariableProperties) error {
	w, err := EncodeProperties(p)
	if err != nil {
		return err
	}
	return s.storeSmi(id, index, field, int(w))
}

// optionalName decodes a Name|undefined slot.
func (s *ScopeInfo) optionalName(v heap.Value, path string) (string, bool) {
	if v == s.h.Undefined() {
		return "", false
	}
	return s.name(v, path), true
}

// ContextLocalName returns the name of context local i.
func (s *ScopeInfo) ContextLocalName(i int) string {
	return s.name(s.LoadElement(ContextLocalNames, i), "contextLocalNames")
}

// SetContextLocalName replaces the name of context local i.
func (s *ScopeInfo) SetContextLocalName(i int, name string) error {
	v, err := s.h.NewString(name)
	if err != nil {
		return err
	}
	return s.StoreElement(ContextLocalNames, i, v)
}

// ContextLocalInfo returns the properties of context local i.
func (s *ScopeInfo) ContextLocalInfo(i int) VariableProperties {
	return s.properties(s.LoadElement(ContextLocalInfos, i), "contextLocalInfos")
}

func (s *ScopeInfo) SetContextLocalInfo(i int, p VariableProperties) error {
	return s.storeProperties(ContextLocalInfos, i, FieldValue, p)
}

// ContextLocalIndex returns the index of the context local called name.
func (s *ScopeInfo) ContextLocalIndex(name string) (int, bool) {
	for i := 0; i < s.ContextLocalCount(); i++ {
		if s.ContextLocalName(i) == name {
			return i, true
		}
	}
	return -1, false
}

// SavedClassVariableIndex returns the saved class variable's context slot.
func (s *ScopeInfo) SavedClassVariableIndex() int {
	return s.smi(s.LoadElement(SavedClassVariableInfo, 0), "savedClassVariableInfo")
}

// SetSavedClassVariableIndex back-patches the saved class variable slot once
// the class scope has been analyzed.
func (s *ScopeInfo) SetSavedClassVariableIndex(index int) error {
	if index < 0 {
		return errors.New(errors.PhaseAccess, errors.KindInvalidInput).
			Path("savedClassVariableInfo").
			Value(index).
			Detail("negative context slot").
			Build()
	}
	return s.storeSmi(SavedClassVariableInfo, 0, FieldValue, index)
}

// ReceiverInfo returns the receiver's slot index.
func (s *ScopeInfo) ReceiverInfo() int {
	return s.smi(s.LoadElement(ReceiverInfo, 0), "receiverInfo")
}

// FunctionName returns the function variable's name, or false when it is undefined.
func (s *ScopeInfo) FunctionName() (string, bool) {
	return s.optionalName(s.LoadField(FunctionNameInfo, 0, FieldName), "functionNameInfo.name")
}

func (s *ScopeInfo) FunctionNameProperties() VariableProperties {
	return s.properties(s.LoadField(FunctionNameInfo, 0, FieldProperties), "functionNameInfo.properties")
}

// InferredFunctionName returns the inferred name, or false when it is undefined.
func (s *ScopeInfo) InferredFunctionName() (string, bool) {
	return s.optionalName(s.LoadElement(InferredFunctionName, 0), "inferredFunctionName")
}

// SetInferredFunctionName replaces the inferred name.
func (s *ScopeInfo) SetInferredFunctionName(name string) error {
	v, err := s.h.NewString(name)
	if err != nil {
		return err
	}
	return s.StoreElement(InferredFunctionName, 0, v)
}

// Position returns the source range of the scope.
func (s *ScopeInfo) Position() (start, end int) {
	start = s.smi(s.LoadField(PositionInfo, 0, FieldStart), "positionInfo.start")
	end = s.smi(s.LoadField(PositionInfo, 0, FieldEnd), "positionInfo.end")
	return start, end
}

// SetPosition updates the source range. Positions are patched after the
// scope body has been parsed.
func (s *ScopeInfo) SetPosition(start, end int) error {
	if start > end {
		return errors.New(errors.PhaseAccess, errors.KindInvalidInput).
			Path("positionInfo").
			Detail("start %d after end %d", start, end).
			Build()
	}
	if err := s.storeSmi(PositionInfo, 0, FieldStart, start); err != nil {
		return err
	}
	return s.storeSmi(PositionInfo, 0, FieldEnd, end)
}

// OuterScopeInfo returns the enclosing descriptor, or false for the hole.
func (s *ScopeInfo) OuterScopeInfo() (*ScopeInfo, bool) {
	v := s.LoadElement(OuterScopeInfo, 0)
	if v == s.h.TheHole() {
		return nil, false
	}
	outer, err := Cast(s.h, v)
	if err != nil {
		errors.Unreachable(errors.PhaseAccess, []string{"outerScopeInfo"}, "%v", err)
	}
	return outer, true
}

// OuterChain walks outer descriptors from the nearest to the outermost.
func (s *ScopeInfo) OuterChain() []*ScopeInfo {
	var chain []*ScopeInfo
	cur := s
	for cur.HasOuterScopeInfo() {
		outer, ok := cur.OuterScopeInfo()
		if !ok {
			break
		}
		chain = append(chain, outer)
		cur = outer
	}
	return chain
}

// LocalsBlockList returns the set of names blocked from outer lookup, or false
// for the hole.
func (s *ScopeInfo) LocalsBlockList() (heap.Value, bool) {
	v := s.LoadElement(LocalsBlockList, 0)
	if v == s.h.TheHole() {
		return v, false
	}
	return v, true
}

// IsBlocked reports whether lookup of name must stop at this scope instead
// of continuing to the outer chain.
func (s *ScopeInfo) IsBlocked(name string) (bool, error) {
	if !s.Flags().HasLocalsBlockList {
		return false, nil
	}
	set, ok := s.LocalsBlockList()
	if !ok {
		return false, nil
	}
	return s.h.StringSetContains(set, name)
}

// ModuleInfo returns the module's SourceTextModuleInfo.
func (s *ScopeInfo) ModuleInfo() heap.Value {
	return s.LoadElement(ModuleInfo, 0)
}

func (s *ScopeInfo) ModuleVariableCount() int {
	return s.smi(s.LoadElement(ModuleVariableCount, 0), "moduleVariableCount")
}

// ModuleVariable is a decoded module variable entry.
type ModuleVariable struct {
	Name       string
	Index      int
	Properties VariableProperties
}

// ModuleVariable returns module variable i.
func (s *ScopeInfo) ModuleVariable(i int) ModuleVariable {
	return ModuleVariable{
		Index:      s.smi(s.LoadField(ModuleVariables, i, FieldIndex), "moduleVariables.index"),
		Name:       s.name(s.LoadField(ModuleVariables, i, FieldName), "moduleVariables.name"),
		Properties: s.properties(s.LoadField(ModuleVariables, i, FieldProperties), "moduleVariables.properties"),
	}
}

// ModuleVariableIndex returns the position of the module variable called name.
func (s *ScopeInfo) ModuleVariableIndex(name string) (int, bool) {
	if s.ScopeType() != ModuleScope {
		return -1, false
	}
	for i := 0; i < s.ModuleVariableCount(); i++ {
		if s.name(s.LoadField(ModuleVariables, i, FieldName), "moduleVariables.name") == name {
			return i, true
		}
	}
	return -1, false
}
