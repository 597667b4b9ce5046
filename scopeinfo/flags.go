package scopeinfo

import (
	"go.uber.org/multierr"

	"github.com/wippyai/scope-layout/bitfield"
	"github.com/wippyai/scope-layout/errors"
)

// ScopeType is the kind of lexical scope.
type ScopeType uint8

const (
	ClassScope ScopeType = iota
	EvalScope
	FunctionScope
	ModuleScope
	ScriptScope
	CatchScope
	BlockScope
	WithScope
	numScopeTypes
)

var scopeTypeNames = [numScopeTypes]string{
	"class", "eval", "function", "module", "script", "catch", "block", "with",
}

func (t ScopeType) String() string {
	if t >= numScopeTypes {
		return "invalid"
	}
	return scopeTypeNames[t]
}

// Valid reports whether t is a declared scope type.
func (t ScopeType) Valid() bool {
	return t < numScopeTypes
}

// ParseScopeType accepts the names String returns.
func ParseScopeType(s string) (ScopeType, error) {
	for i, n := range scopeTypeNames {
		if n == s {
			return ScopeType(i), nil
		}
	}
	return 0, errors.InvalidEnum(errors.PhaseConfig, []string{"scopeType"}, s, "ScopeType")
}

// LanguageMode is sloppy or strict.
type LanguageMode uint8

const (
	Sloppy LanguageMode = iota
	Strict
)

func (m LanguageMode) String() string {
	if m == Strict {
		return "strict"
	}
	return "sloppy"
}

// VariableAllocationInfo says where a special variable lives.
type VariableAllocationInfo uint8

const (
	AllocNone VariableAllocationInfo = iota
	AllocStack
	AllocContext
	AllocUnused
)

var allocNames = [...]string{"none", "stack", "context", "unused"}

func (a VariableAllocationInfo) String() string {
	if int(a) >= len(allocNames) {
		return "invalid"
	}
	return allocNames[a]
}

// ParseAllocation accepts the names String returns.
func ParseAllocation(s string) (VariableAllocationInfo, error) {
	for i, n := range allocNames {
		if n == s {
			return VariableAllocationInfo(i), nil
		}
	}
	return 0, errors.InvalidEnum(errors.PhaseConfig, nil, s, "VariableAllocationInfo")
}

// FunctionKind is an opaque 5-bit function classification.
type FunctionKind uint8

// Flags is the decoded flags word of a ScopeInfo.
type Flags struct {
	ScopeType                        ScopeType
	SloppyEvalCanCall                bool
	LanguageMode                     LanguageMode
	DeclarationScope                 bool
	ReceiverVariable                 VariableAllocationInfo
	HasClassBrand                    bool
	HasSavedClassVariableIndex       bool
	HasNewTarget                     bool
	FunctionVariable                 VariableAllocationInfo
	HasInferredFunctionName          bool
	IsAsmModule                      bool
	HasSimpleParameters              bool
	FunctionKind                     FunctionKind
	HasOuterScopeInfo                bool
	IsDebugEvaluateScope             bool
	ForceContextAllocation           bool
	PrivateNameLookupSkipsOuterClass bool
	HasContextExtensionSlot          bool
	IsReplModeScope                  bool
	HasLocalsBlockList               bool
	IsEmpty                          bool
}

// HasReceiver reports whether the receiver is allocated on the stack or in the context.
func (f Flags) HasReceiver() bool {
	return f.ReceiverVariable == AllocStack || f.ReceiverVariable == AllocContext
}

// HasFunctionName reports whether the scope records a function variable.
func (f Flags) HasFunctionName() bool {
	return f.FunctionVariable != AllocNone
}

// Bit layout of the flags word, LSB first.
var (
	scopeTypeField                        = bitfield.Field{Name: "scopeType", Shift: 0, Width: 4}
	sloppyEvalCanCallField                = bitfield.Next(scopeTypeField, "sloppyEvalCanCall", 1)
	languageModeField                     = bitfield.Next(sloppyEvalCanCallField, "languageMode", 1)
	declarationScopeField                 = bitfield.Next(languageModeField, "declarationScope", 1)
	receiverVariableField                 = bitfield.Next(declarationScopeField, "receiverVariable", 2)
	hasClassBrandField                    = bitfield.Next(receiverVariableField, "hasClassBrand", 1)
	hasSavedClassVariableIndexField       = bitfield.Next(hasClassBrandField, "hasSavedClassVariableIndex", 1)
	hasNewTargetField                     = bitfield.Next(hasSavedClassVariableIndexField, "hasNewTarget", 1)
	functionVariableField                 = bitfield.Next(hasNewTargetField, "functionVariable", 2)
	hasInferredFunctionNameField          = bitfield.Next(functionVariableField, "hasInferredFunctionName", 1)
	isAsmModuleField                      = bitfield.Next(hasInferredFunctionNameField, "isAsmModule", 1)
	hasSimpleParametersField              = bitfield.Next(isAsmModuleField, "hasSimpleParameters", 1)
	functionKindField                     = bitfield.Next(hasSimpleParametersField, "functionKind", 5)
	hasOuterScopeInfoField                = bitfield.Next(functionKindField, "hasOuterScopeInfo", 1)
	isDebugEvaluateScopeField             = bitfield.Next(hasOuterScopeInfoField, "isDebugEvaluateScope", 1)
	forceContextAllocationField           = bitfield.Next(isDebugEvaluateScopeField, "forceContextAllocation", 1)
	privateNameLookupSkipsOuterClassField = bitfield.Next(forceContextAllocationField, "privateNameLookupSkipsOuterClass", 1)
	hasContextExtensionSlotField          = bitfield.Next(privateNameLookupSkipsOuterClassField, "hasContextExtensionSlot", 1)
	isReplModeScopeField                  = bitfield.Next(hasContextExtensionSlotField, "isReplModeScope", 1)
	hasLocalsBlockListField               = bitfield.Next(isReplModeScopeField, "hasLocalsBlockList", 1)
	isEmptyField                          = bitfield.Next(hasLocalsBlockListField, "isEmpty", 1)
)

// FlagsLayout is the field table of the flags word. The word is stored as a
// Smi, so it has 31 usable bits.
var FlagsLayout = bitfield.Layout{
	Name: "flags",
	Bits: 31,
	Fields: []bitfield.Field{
		scopeTypeField, sloppyEvalCanCallField, languageModeField, declarationScopeField,
		receiverVariableField, hasClassBrandField, hasSavedClassVariableIndexField,
		hasNewTargetField, functionVariableField, hasInferredFunctionNameField,
		isAsmModuleField, hasSimpleParametersField, functionKindField,
		hasOuterScopeInfoField, isDebugEvaluateScopeField, forceContextAllocationField,
		privateNameLookupSkipsOuterClassField, hasContextExtensionSlotField,
		isReplModeScopeField, hasLocalsBlockListField, isEmptyField,
	},
}

// EncodeFlags packs f. Enum values outside their declared sets are rejected.
func EncodeFlags(f Flags) (uint32, error) {
	if !f.ScopeType.Valid() {
		return 0, errors.InvalidEnum(errors.PhaseEncode, []string{"flags", "scopeType"}, uint8(f.ScopeType), "ScopeType")
	}
	if f.LanguageMode > Strict {
		return 0, errors.InvalidEnum(errors.PhaseEncode, []string{"flags", "languageMode"}, uint8(f.LanguageMode), "LanguageMode")
	}

	var w uint32
	var err error
	set := func(field bitfield.Field, v uint32) {
		var e error
		w, e = field.Encode(w, v)
		err = multierr.Append(err, e)
	}
	set(scopeTypeField, uint32(f.ScopeType))
	set(languageModeField, uint32(f.LanguageMode))
	set(receiverVariableField, uint32(f.ReceiverVariable))
	set(functionVariableField, uint32(f.FunctionVariable))
	set(functionKindField, uint32(f.FunctionKind))
	if err != nil {
		return 0, err
	}

	w = sloppyEvalCanCallField.EncodeBool(w, f.SloppyEvalCanCall)
	w = declarationScopeField.EncodeBool(w, f.DeclarationScope)
	w = hasClassBrandField.EncodeBool(w, f.HasClassBrand)
	w = hasSavedClassVariableIndexField.EncodeBool(w, f.HasSavedClassVariableIndex)
	w = hasNewTargetField.EncodeBool(w, f.HasNewTarget)
	w = hasInferredFunctionNameField.EncodeBool(w, f.HasInferredFunctionName)
	w = isAsmModuleField.EncodeBool(w, f.IsAsmModule)
	w = hasSimpleParametersField.EncodeBool(w, f.HasSimpleParameters)
	w = hasOuterScopeInfoField.EncodeBool(w, f.HasOuterScopeInfo)
	w = isDebugEvaluateScopeField.EncodeBool(w, f.IsDebugEvaluateScope)
	w = forceContextAllocationField.EncodeBool(w, f.ForceContextAllocation)
	w = privateNameLookupSkipsOuterClassField.EncodeBool(w, f.PrivateNameLookupSkipsOuterClass)
	w = hasContextExtensionSlotField.EncodeBool(w, f.HasContextExtensionSlot)
	w = isReplModeScopeField.EncodeBool(w, f.IsReplModeScope)
	w = hasLocalsBlockListField.EncodeBool(w, f.HasLocalsBlockList)
	w = isEmptyField.EncodeBool(w, f.IsEmpty)
	return w, nil
}

// DecodeScopeType extracts the scope type. A value outside the declared set
// means a corrupt header and is fatal.
func DecodeScopeType(w uint32) ScopeType {
	t := bitfield.Get[ScopeType](w, scopeTypeField)
	if !t.Valid() {
		errors.Unreachable(errors.PhaseDecode, []string{"flags", "scopeType"}, "scope type %d", t)
	}
	return t
}

// DecodeFlags unpacks a flags word.
func DecodeFlags(w uint32) Flags {
	if w&^FlagsLayout.Used() != 0 {
		errors.Unreachable(errors.PhaseDecode, []string{"flags"}, "unknown bits %#x", w&^FlagsLayout.Used())
	}
	return Flags{
		ScopeType:                        DecodeScopeType(w),
		SloppyEvalCanCall:                sloppyEvalCanCallField.DecodeBool(w),
		LanguageMode:                     bitfield.Get[LanguageMode](w, languageModeField),
		DeclarationScope:                 declarationScopeField.DecodeBool(w),
		ReceiverVariable:                 bitfield.Get[VariableAllocationInfo](w, receiverVariableField),
		HasClassBrand:                    hasClassBrandField.DecodeBool(w),
		HasSavedClassVariableIndex:       hasSavedClassVariableIndexField.DecodeBool(w),
		HasNewTarget:                     hasNewTargetField.DecodeBool(w),
		FunctionVariable:                 bitfield.Get[VariableAllocationInfo](w, functionVariableField),
		HasInferredFunctionName:          hasInferredFunctionNameField.DecodeBool(w),
		IsAsmModule:                      isAsmModuleField.DecodeBool(w),
		HasSimpleParameters:              hasSimpleParametersField.DecodeBool(w),
		FunctionKind:                     bitfield.Get[FunctionKind](w, functionKindField),
		HasOuterScopeInfo:                hasOuterScopeInfoField.DecodeBool(w),
		IsDebugEvaluateScope:             isDebugEvaluateScopeField.DecodeBool(w),
		ForceContextAllocation:           forceContextAllocationField.DecodeBool(w),
		PrivateNameLookupSkipsOuterClass: privateNameLookupSkipsOuterClassField.DecodeBool(w),
		HasContextExtensionSlot:          hasContextExtensionSlotField.DecodeBool(w),
		IsReplModeScope:                  isReplModeScopeField.DecodeBool(w),
		HasLocalsBlockList:               hasLocalsBlockListField.DecodeBool(w),
		IsEmpty:                          isEmptyField.DecodeBool(w),
	}
}
