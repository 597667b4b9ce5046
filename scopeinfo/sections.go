package scopeinfo

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/scope-layout/heap"
	"github.com/wippyai/scope-layout/layout"
)

// Header offsets from the object start.
const (
	MapOffset               = 0
	ReservedOffset          = 4
	FlagsOffset             = 8
	ParameterCountOffset    = 12
	ContextLocalCountOffset = 16
	HeaderSize              = 20
)

// Header is the fixed prefix every section count derives from.
type Header struct {
	Flags             Flags
	ParameterCount    uint32
	ContextLocalCount uint32
}

// Section identifiers, in layout order.
const (
	ContextLocalNames layout.ID = iota
	ContextLocalInfos
	SavedClassVariableInfo
	ReceiverInfo
	FunctionNameInfo
	InferredFunctionName
	PositionInfo
	OuterScopeInfo
	LocalsBlockList
	ModuleInfo
	ModuleVariableCount
	ModuleVariables
)

// Field names of multi-word elements.
const (
	FieldValue      = "value"
	FieldName       = "name"
	FieldProperties = "properties"
	FieldStart      = "start"
	FieldEnd        = "end"
	FieldIndex      = "index"
)

// Tagged references are described as u32 fields, Smis as s32.
var (
	functionNameElement = layout.MustRecordLayout(&wit.Record{Fields: []wit.Field{
		{Name: FieldName, Type: wit.U32{}},
		{Name: FieldProperties, Type: wit.S32{}},
	}}, heap.VariantNameOrUndefined, heap.VariantSmi)

	positionElement = layout.MustRecordLayout(&wit.Record{Fields: []wit.Field{
		{Name: FieldStart, Type: wit.S32{}},
		{Name: FieldEnd, Type: wit.S32{}},
	}}, heap.VariantSmi, heap.VariantSmi)

	moduleVariableElement = layout.MustRecordLayout(&wit.Record{Fields: []wit.Field{
		{Name: FieldIndex, Type: wit.S32{}},
		{Name: FieldName, Type: wit.U32{}},
		{Name: FieldProperties, Type: wit.S32{}},
	}}, heap.VariantSmi, heap.VariantName, heap.VariantSmi)
)

func one(present bool) uint32 {
	if present {
		return 1
	}
	return 0
}

// isLengthSection reports sections whose value is the element count of a
// later section.
func isLengthSection(id layout.ID) bool {
	return id == ModuleVariableCount
}

// hasReceiverInfo and hasPositionInfo share one scope-type set.
func hasReceiverInfo(t ScopeType) bool {
	switch t {
	case FunctionScope, ScriptScope, EvalScope, ModuleScope:
		return true
	}
	return false
}

func hasPositionInfo(t ScopeType) bool {
	return hasReceiverInfo(t)
}

// Sections is the layout table of ScopeInfo trailing sections.
var Sections = layout.MustTable("ScopeInfo", HeaderSize,
	layout.Section[Header]{
		ID: ContextLocalNames, Name: "contextLocalNames", Stride: 4, Elem: layout.Word(heap.VariantName),
		Count: func(h Header, _ layout.Reader) uint32 { return h.ContextLocalCount },
	},
	layout.Section[Header]{
		ID: ContextLocalInfos, Name: "contextLocalInfos", Stride: 4, Elem: layout.Word(heap.VariantSmi),
		Count: func(h Header, _ layout.Reader) uint32 { return h.ContextLocalCount },
	},
	layout.Section[Header]{
		ID: SavedClassVariableInfo, Name: "savedClassVariableInfo", Stride: 4, Elem: layout.Word(heap.VariantSmi),
		Count: func(h Header, _ layout.Reader) uint32 { return one(h.Flags.HasSavedClassVariableIndex) },
	},
	layout.Section[Header]{
		ID: ReceiverInfo, Name: "receiverInfo", Stride: 4, Elem: layout.Word(heap.VariantSmi),
		Count: func(h Header, _ layout.Reader) uint32 { return one(hasReceiverInfo(h.Flags.ScopeType)) },
	},
	layout.Section[Header]{
		ID: FunctionNameInfo, Name: "functionNameInfo", Stride: 8, Elem: functionNameElement,
		Count: func(h Header, _ layout.Reader) uint32 { return one(h.Flags.HasFunctionName()) },
	},
	layout.Section[Header]{
		ID: InferredFunctionName, Name: "inferredFunctionName", Stride: 4, Elem: layout.Word(heap.VariantNameOrUndefined),
		Count: func(h Header, _ layout.Reader) uint32 { return one(h.Flags.HasInferredFunctionName) },
	},
	layout.Section[Header]{
		ID: PositionInfo, Name: "positionInfo", Stride: 8, Elem: positionElement,
		Count: func(h Header, _ layout.Reader) uint32 { return one(hasPositionInfo(h.Flags.ScopeType)) },
	},
	layout.Section[Header]{
		ID: OuterScopeInfo, Name: "outerScopeInfo", Stride: 4, Elem: layout.Word(heap.VariantScopeInfoOrHole),
		Count: func(h Header, _ layout.Reader) uint32 { return one(h.Flags.HasOuterScopeInfo) },
	},
	layout.Section[Header]{
		ID: LocalsBlockList, Name: "localsBlockList", Stride: 4, Elem: layout.Word(heap.VariantStringSetOrHole),
		Count: func(h Header, _ layout.Reader) uint32 { return one(h.Flags.HasLocalsBlockList) },
	},
	layout.Section[Header]{
		ID: ModuleInfo, Name: "moduleInfo", Stride: 4, Elem: layout.Word(heap.VariantModuleInfo),
		Count: func(h Header, _ layout.Reader) uint32 { return one(h.Flags.ScopeType == ModuleScope) },
	},
	layout.Section[Header]{
		ID: ModuleVariableCount, Name: "moduleVariableCount", Stride: 4, Elem: layout.Word(heap.VariantSmi),
		Count: func(h Header, _ layout.Reader) uint32 { return one(h.Flags.ScopeType == ModuleScope) },
	},
	layout.Section[Header]{
		ID: ModuleVariables, Name: "moduleVariables", Stride: 12, Elem: moduleVariableElement,
		Count: func(h Header, r layout.Reader) uint32 {
			if h.Flags.ScopeType != ModuleScope {
				return 0
			}
			return uint32(r.Load(ModuleVariableCount, 0).SmiValue())
		},
	},
)
