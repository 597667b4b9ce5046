package scopeinfo

import (
	"strconv"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/scope-layout/errors"
	"github.com/wippyai/scope-layout/heap"
	"github.com/wippyai/scope-layout/layout"
)

// Local describes a context-allocated variable.
type Local struct {
	// Parameter is the formal parameter position, nil for non-parameters.
	Parameter     *int
	Name          string
	Mode          VariableMode
	Init          InitializationFlag
	MaybeAssigned MaybeAssignedFlag
	IsStatic      IsStaticFlag
}

// Properties returns the encoded form of the local's attributes.
func (l Local) Properties() VariableProperties {
	p := VariableProperties{
		Mode:            l.Mode,
		Init:            l.Init,
		MaybeAssigned:   l.MaybeAssigned,
		IsStatic:        l.IsStatic,
		ParameterNumber: NotAParameter,
	}
	if l.Parameter != nil {
		p.ParameterNumber = uint16(*l.Parameter)
	}
	return p
}

// Position is a source range.
type Position struct {
	Start int
	End   int
}

// Module carries the module-only sections.
type Module struct {
	Requests  []string
	Variables []ModuleVariable
}

// Descriptor is everything needed to build a ScopeInfo. Optional sections are
// pointers or slices; each must be set exactly when the flags make the
// section present.
type Descriptor struct {
	OuterScopeInfo          *ScopeInfo
	SavedClassVariableIndex *int
	ReceiverInfo            *int
	FunctionName            *Local
	InferredFunctionName    *string
	Position                *Position
	Module                  *Module
	Locals                  []Local
	LocalsBlockList         []string
	Flags                   Flags
	ParameterCount          int
}

func (d *Descriptor) header() Header {
	return Header{
		Flags:             d.Flags,
		ParameterCount:    uint32(d.ParameterCount),
		ContextLocalCount: uint32(len(d.Locals)),
	}
}

// presence checks that a payload is supplied exactly when its section exists.
func presence(present, supplied bool, name string) error {
	switch {
	case present && !supplied:
		return errors.FieldMissing(errors.PhaseConstruct, []string{"descriptor"}, name)
	case !present && supplied:
		return errors.FieldUnknown(errors.PhaseConstruct, []string{"descriptor"}, name)
	}
	return nil
}

func checkSmi(n int, path ...string) error {
	if n < 0 || n > heap.MaxSmi {
		return errors.Overflow(errors.PhaseConstruct, path, n, "non-negative Smi")
	}
	return nil
}

func checkLocal(l Local, path ...string) error {
	var err error
	if l.Parameter != nil && (*l.Parameter < 0 || *l.Parameter >= NotAParameter) {
		err = multierr.Append(err, errors.Overflow(errors.PhaseConstruct, append(path, "parameter"), *l.Parameter, "parameter number"))
	}
	if _, e := EncodeProperties(l.Properties()); e != nil {
		err = multierr.Append(err, e)
	}
	return err
}

// Validate reports every inconsistency between the flags and the payloads.
func (d *Descriptor) Validate() error {
	var err error
	f := d.Flags

	if _, e := EncodeFlags(f); e != nil {
		err = multierr.Append(err, e)
	}
	err = multierr.Append(err, checkSmi(d.ParameterCount, "parameterCount"))
	err = multierr.Append(err, checkSmi(len(d.Locals), "contextLocalCount"))

	for i, l := range d.Locals {
		p := []string{"locals", strconv.Itoa(i)}
		if l.Name == "" {
			err = multierr.Append(err, errors.InvalidInput(errors.PhaseConstruct, "local "+strconv.Itoa(i)+" has no name"))
		}
		err = multierr.Append(err, checkLocal(l, p...))
	}

	err = multierr.Append(err, presence(f.HasSavedClassVariableIndex, d.SavedClassVariableIndex != nil, "savedClassVariableIndex"))
	if d.SavedClassVariableIndex != nil {
		err = multierr.Append(err, checkSmi(*d.SavedClassVariableIndex, "savedClassVariableIndex"))
	}

	if d.ReceiverInfo != nil {
		err = multierr.Append(err, presence(hasReceiverInfo(f.ScopeType), true, "receiverInfo"))
		err = multierr.Append(err, checkSmi(*d.ReceiverInfo, "receiverInfo"))
	}

	err = multierr.Append(err, presence(f.HasFunctionName(), d.FunctionName != nil, "functionName"))
	if d.FunctionName != nil {
		err = multierr.Append(err, checkLocal(*d.FunctionName, "functionName"))
	}

	err = multierr.Append(err, presence(f.HasInferredFunctionName, d.InferredFunctionName != nil, "inferredFunctionName"))

	if d.Position != nil {
		err = multierr.Append(err, presence(hasPositionInfo(f.ScopeType), true, "position"))
		err = multierr.Append(err, checkSmi(d.Position.Start, "position", "start"))
		err = multierr.Append(err, checkSmi(d.Position.End, "position", "end"))
		if d.Position.Start > d.Position.End {
			err = multierr.Append(err, errors.InvalidInput(errors.PhaseConstruct, "position start after end"))
		}
	}

	err = multierr.Append(err, presence(f.HasOuterScopeInfo, d.OuterScopeInfo != nil, "outerScopeInfo"))
	err = multierr.Append(err, presence(f.HasLocalsBlockList, d.LocalsBlockList != nil, "localsBlockList"))

	err = multierr.Append(err, presence(f.ScopeType == ModuleScope, d.Module != nil, "module"))
	if d.Module != nil {
		err = multierr.Append(err, checkSmi(len(d.Module.Variables), "moduleVariableCount"))
		for i, v := range d.Module.Variables {
			p := []string{"module", "variables", strconv.Itoa(i)}
			if v.Name == "" {
				err = multierr.Append(err, errors.InvalidInput(errors.PhaseConstruct, "module variable "+strconv.Itoa(i)+" has no name"))
			}
			err = multierr.Append(err, checkSmi(v.Index, append(p, "index")...))
			if _, e := EncodeProperties(v.Properties); e != nil {
				err = multierr.Append(err, e)
			}
		}
	}

	if f.IsEmpty && (len(d.Locals) > 0 || d.ParameterCount > 0) {
		err = multierr.Append(err, errors.InvalidInput(errors.PhaseConstruct, "empty scope with locals or parameters"))
	}
	return err
}

// descriptorReader answers section loads from the descriptor before the
// object exists.
type descriptorReader struct {
	d *Descriptor
}

func (r descriptorReader) Load(id layout.ID, index int) heap.Value {
	if id != ModuleVariableCount || index != 0 || r.d.Module == nil {
		errors.Unreachable(errors.PhaseLayout, []string{"descriptor"}, "no stored count for section %d", id)
	}
	return heap.Smi(int32(len(r.d.Module.Variables)))
}

// resolved holds the heap values a descriptor refers to, allocated before the
// descriptor itself so that a failure leaves no half-written object.
type resolved struct {
	localNames    []heap.Value
	functionName  heap.Value
	inferredName  heap.Value
	blockList     heap.Value
	moduleInfo    heap.Value
	moduleNames   []heap.Value
	outerScopeRef heap.Value
}

func (d *Descriptor) resolve(h *heap.Heap) (*resolved, error) {
	r := &resolved{
		functionName:  h.Undefined(),
		inferredName:  h.Undefined(),
		blockList:     h.TheHole(),
		outerScopeRef: h.TheHole(),
	}

	var err error
	r.localNames = make([]heap.Value, len(d.Locals))
	for i, l := range d.Locals {
		if r.localNames[i], err = h.NewString(l.Name); err != nil {
			return nil, err
		}
	}
	if d.FunctionName != nil && d.FunctionName.Name != "" {
		if r.functionName, err = h.NewString(d.FunctionName.Name); err != nil {
			return nil, err
		}
	}
	if d.InferredFunctionName != nil && *d.InferredFunctionName != "" {
		if r.inferredName, err = h.NewString(*d.InferredFunctionName); err != nil {
			return nil, err
		}
	}
	if d.LocalsBlockList != nil {
		if r.blockList, err = h.NewStringSet(d.LocalsBlockList); err != nil {
			return nil, err
		}
	}
	if d.OuterScopeInfo != nil {
		if d.OuterScopeInfo.Heap() != h {
			return nil, errors.InvalidInput(errors.PhaseConstruct, "outer scope info belongs to another heap")
		}
		r.outerScopeRef = d.OuterScopeInfo.Ref()
	}
	if d.Module != nil {
		if r.moduleInfo, err = h.NewModuleInfo(d.Module.Requests); err != nil {
			return nil, err
		}
		r.moduleNames = make([]heap.Value, len(d.Module.Variables))
		for i, v := range d.Module.Variables {
			if r.moduleNames[i], err = h.NewString(v.Name); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// New allocates a ScopeInfo for d. The object is sized from the header alone
// and section lengths are final from this point on.
func New(h *heap.Heap, d Descriptor) (*ScopeInfo, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	flags, err := EncodeFlags(d.Flags)
	if err != nil {
		return nil, err
	}

	hdr := d.header()
	plan, err := Sections.PlanFrom(hdr, descriptorReader{&d})
	if err != nil {
		return nil, err
	}

	r, err := d.resolve(h)
	if err != nil {
		return nil, err
	}

	addr, err := h.Allocate(plan.Size, heap.RootScopeInfoMap)
	if err != nil {
		return nil, err
	}
	h.Store(addr+ReservedOffset, heap.Smi(0))
	h.Store(addr+FlagsOffset, heap.Smi(int32(flags)))
	h.Store(addr+ParameterCountOffset, heap.Smi(int32(hdr.ParameterCount)))
	h.Store(addr+ContextLocalCountOffset, heap.Smi(int32(hdr.ContextLocalCount)))

	si := &ScopeInfo{h: h, addr: addr, header: hdr, plan: plan}
	if err := si.fill(&d, r); err != nil {
		return nil, err
	}

	Logger().Debug("scope info allocated",
		zap.Stringer("scopeType", d.Flags.ScopeType),
		zap.Uint32("address", addr),
		zap.Uint32("size", plan.Size),
		zap.Int("locals", len(d.Locals)))
	return si, nil
}

func (s *ScopeInfo) fill(d *Descriptor, r *resolved) error {
	var err error
	for i, l := range d.Locals {
		err = multierr.Append(err, s.StoreElement(ContextLocalNames, i, r.localNames[i]))
		err = multierr.Append(err, s.storeProperties(ContextLocalInfos, i, FieldValue, l.Properties()))
	}
	if s.plan.View(SavedClassVariableInfo).Present() {
		err = multierr.Append(err, s.SetSavedClassVariableIndex(*d.SavedClassVariableIndex))
	}
	if s.plan.View(ReceiverInfo).Present() {
		receiver := 0
		if d.ReceiverInfo != nil {
			receiver = *d.ReceiverInfo
		}
		err = multierr.Append(err, s.storeSmi(ReceiverInfo, 0, FieldValue, receiver))
	}
	if s.plan.View(FunctionNameInfo).Present() {
		err = multierr.Append(err, s.StoreField(FunctionNameInfo, 0, FieldName, r.functionName))
		err = multierr.Append(err, s.storeProperties(FunctionNameInfo, 0, FieldProperties, d.FunctionName.Properties()))
	}
	if s.plan.View(InferredFunctionName).Present() {
		err = multierr.Append(err, s.StoreElement(InferredFunctionName, 0, r.inferredName))
	}
	if s.plan.View(PositionInfo).Present() {
		pos := Position{}
		if d.Position != nil {
			pos = *d.Position
		}
		err = multierr.Append(err, s.SetPosition(pos.Start, pos.End))
	}
	if s.plan.View(OuterScopeInfo).Present() {
		err = multierr.Append(err, s.StoreElement(OuterScopeInfo, 0, r.outerScopeRef))
	}
	if s.plan.View(LocalsBlockList).Present() {
		err = multierr.Append(err, s.StoreElement(LocalsBlockList, 0, r.blockList))
	}
	if s.plan.View(ModuleInfo).Present() {
		err = multierr.Append(err, s.StoreElement(ModuleInfo, 0, r.moduleInfo))
		err = multierr.Append(err, s.storeSmi(ModuleVariableCount, 0, FieldValue, len(d.Module.Variables)))
		for i, v := range d.Module.Variables {
			err = multierr.Append(err, s.storeSmi(ModuleVariables, i, FieldIndex, v.Index))
			err = multierr.Append(err, s.StoreField(ModuleVariables, i, FieldName, r.moduleNames[i]))
			err = multierr.Append(err, s.storeProperties(ModuleVariables, i, FieldProperties, v.Properties))
		}
	}
	return err
}

var emptyMu sync.Mutex

// EmptyScopeInfo returns the heap's empty descriptor, creating and rooting it
// on first use.
func EmptyScopeInfo(h *heap.Heap) (*ScopeInfo, error) {
	emptyMu.Lock()
	defer emptyMu.Unlock()

	if v := h.Root(heap.RootEmptyScopeInfo); Is(h, v) {
		return Cast(h, v)
	}
	si, err := New(h, Descriptor{Flags: Flags{ScopeType: ClassScope, IsEmpty: true}})
	if err != nil {
		return nil, err
	}
	h.SetRoot(heap.RootEmptyScopeInfo, si.Ref())
	return si, nil
}
