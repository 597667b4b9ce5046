package scopeinfo

import (
	"github.com/wippyai/scope-layout/bitfield"
	"github.com/wippyai/scope-layout/errors"
)

// VariableMode is the declaration kind of a variable.
type VariableMode uint8

const (
	Let VariableMode = iota
	Const
	Var
	Temporary
	Dynamic
	DynamicGlobal
	DynamicLocal
	PrivateMethod
	PrivateSetterOnly
	PrivateGetterOnly
	PrivateGetterAndSetter
	numVariableModes
)

var variableModeNames = [numVariableModes]string{
	"let", "const", "var", "temporary", "dynamic", "dynamic_global", "dynamic_local",
	"private_method", "private_setter_only", "private_getter_only", "private_getter_and_setter",
}

func (m VariableMode) String() string {
	if m >= numVariableModes {
		return "invalid"
	}
	return variableModeNames[m]
}

// Valid reports whether m is a declared mode.
func (m VariableMode) Valid() bool {
	return m < numVariableModes
}

// ParseVariableMode accepts the names String returns.
func ParseVariableMode(s string) (VariableMode, error) {
	for i, n := range variableModeNames {
		if n == s {
			return VariableMode(i), nil
		}
	}
	return 0, errors.InvalidEnum(errors.PhaseConfig, []string{"mode"}, s, "VariableMode")
}

// InitializationFlag says whether a hole check is needed before first use.
type InitializationFlag uint8

const (
	NeedsInitialization InitializationFlag = iota
	CreatedInitialized
)

// MaybeAssignedFlag says whether the variable may be reassigned.
type MaybeAssignedFlag uint8

const (
	NotAssigned MaybeAssignedFlag = iota
	MaybeAssigned
)

// IsStaticFlag marks static class members.
type IsStaticFlag uint8

const (
	NotStatic IsStaticFlag = iota
	Static
)

// NotAParameter is the parameter number of variables that are not parameters.
const NotAParameter = 0xFFFF

// VariableProperties is the decoded per-variable properties word.
type VariableProperties struct {
	Mode            VariableMode
	Init            InitializationFlag
	MaybeAssigned   MaybeAssignedFlag
	ParameterNumber uint16
	IsStatic        IsStaticFlag
}

// IsParameter reports whether the variable is a formal parameter.
func (p VariableProperties) IsParameter() bool {
	return p.ParameterNumber != NotAParameter
}

var (
	variableModeField      = bitfield.Field{Name: "variableMode", Shift: 0, Width: 4}
	initFlagField          = bitfield.Next(variableModeField, "initializationFlag", 1)
	maybeAssignedFlagField = bitfield.Next(initFlagField, "maybeAssignedFlag", 1)
	parameterNumberField   = bitfield.Next(maybeAssignedFlagField, "parameterNumber", 16)
	isStaticFlagField      = bitfield.Next(parameterNumberField, "isStaticFlag", 1)
)

// PropertiesLayout is the field table of the properties word.
var PropertiesLayout = bitfield.Layout{
	Name: "properties",
	Bits: 31,
	Fields: []bitfield.Field{
		variableModeField, initFlagField, maybeAssignedFlagField, parameterNumberField, isStaticFlagField,
	},
}

// EncodeProperties packs p.
func EncodeProperties(p VariableProperties) (uint32, error) {
	if !p.Mode.Valid() {
		return 0, errors.InvalidEnum(errors.PhaseEncode, []string{"properties", "variableMode"}, uint8(p.Mode), "VariableMode")
	}
	var w uint32
	var err error
	if w, err = bitfield.Set(w, variableModeField, p.Mode); err != nil {
		return 0, err
	}
	if w, err = bitfield.Set(w, initFlagField, p.Init); err != nil {
		return 0, err
	}
	if w, err = bitfield.Set(w, maybeAssignedFlagField, p.MaybeAssigned); err != nil {
		return 0, err
	}
	if w, err = bitfield.Set(w, parameterNumberField, p.ParameterNumber); err != nil {
		return 0, err
	}
	return bitfield.Set(w, isStaticFlagField, p.IsStatic)
}

// DecodeProperties unpacks a properties word. An undeclared variable mode is fatal.
func DecodeProperties(w uint32) VariableProperties {
	if w&^PropertiesLayout.Used() != 0 {
		errors.Unreachable(errors.PhaseDecode, []string{"properties"}, "unknown bits %#x", w&^PropertiesLayout.Used())
	}
	p := VariableProperties{
		Mode:            bitfield.Get[VariableMode](w, variableModeField),
		Init:            bitfield.Get[InitializationFlag](w, initFlagField),
		MaybeAssigned:   bitfield.Get[MaybeAssignedFlag](w, maybeAssignedFlagField),
		ParameterNumber: bitfield.Get[uint16](w, parameterNumberField),
		IsStatic:        bitfield.Get[IsStaticFlag](w, isStaticFlagField),
	}
	if !p.Mode.Valid() {
		errors.Unreachable(errors.PhaseDecode, []string{"properties", "variableMode"}, "variable mode %d", p.Mode)
	}
	return p
}
