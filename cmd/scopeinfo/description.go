package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/scope-layout/errors"
	"github.com/wippyai/scope-layout/heap"
	"github.com/wippyai/scope-layout/scopeinfo"
)

// File is a YAML scope description. Scopes are built in order, so an outer
// reference must name an earlier entry.
type File struct {
	Scopes []ScopeSpec `yaml:"scopes"`
}

type ScopeSpec struct {
	Name                    string        `yaml:"name"`
	Type                    string        `yaml:"type"`
	Outer                   string        `yaml:"outer"`
	LanguageMode            string        `yaml:"languageMode"`
	Receiver                string        `yaml:"receiver"`
	FunctionVariable        string        `yaml:"functionVariable"`
	FunctionKind            uint8         `yaml:"functionKind"`
	ParameterCount          int           `yaml:"parameterCount"`
	ReceiverInfo            *int          `yaml:"receiverInfo"`
	SavedClassVariableIndex *int          `yaml:"savedClassVariableIndex"`
	InferredName            *string       `yaml:"inferredName"`
	FunctionName            *LocalSpec    `yaml:"functionName"`
	Position                *PositionSpec `yaml:"position"`
	Module                  *ModuleSpec   `yaml:"module"`
	Locals                  []LocalSpec   `yaml:"locals"`
	BlockList               []string      `yaml:"blockList"`
	Options                 []string      `yaml:"options"`
}

type LocalSpec struct {
	Parameter     *int   `yaml:"parameter"`
	Name          string `yaml:"name"`
	Mode          string `yaml:"mode"`
	Initialized   bool   `yaml:"initialized"`
	MaybeAssigned bool   `yaml:"maybeAssigned"`
	Static        bool   `yaml:"static"`
}

type PositionSpec struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

type ModuleSpec struct {
	Requests  []string             `yaml:"requests"`
	Variables []ModuleVariableSpec `yaml:"variables"`
}

type ModuleVariableSpec struct {
	LocalSpec `yaml:",inline"`
	Index     int `yaml:"index"`
}

// flagOptions maps the single-bit flags a description may switch on.
var flagOptions = map[string]func(*scopeinfo.Flags){
	"sloppyEvalCanCall":                func(f *scopeinfo.Flags) { f.SloppyEvalCanCall = true },
	"declarationScope":                 func(f *scopeinfo.Flags) { f.DeclarationScope = true },
	"classBrand":                       func(f *scopeinfo.Flags) { f.HasClassBrand = true },
	"newTarget":                        func(f *scopeinfo.Flags) { f.HasNewTarget = true },
	"asmModule":                        func(f *scopeinfo.Flags) { f.IsAsmModule = true },
	"simpleParameters":                 func(f *scopeinfo.Flags) { f.HasSimpleParameters = true },
	"debugEvaluate":                    func(f *scopeinfo.Flags) { f.IsDebugEvaluateScope = true },
	"forceContextAllocation":           func(f *scopeinfo.Flags) { f.ForceContextAllocation = true },
	"privateNameLookupSkipsOuterClass": func(f *scopeinfo.Flags) { f.PrivateNameLookupSkipsOuterClass = true },
	"contextExtensionSlot":             func(f *scopeinfo.Flags) { f.HasContextExtensionSlot = true },
	"replMode":                         func(f *scopeinfo.Flags) { f.IsReplModeScope = true },
}

// ReadFile parses a description from path, or from stdin when path is "-".
func ReadFile(path string) (*File, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "open "+path)
		}
		defer f.Close()
		r = f
	}
	return Decode(r)
}

// Decode parses a description. Unknown keys are rejected.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, errors.InvalidInput(errors.PhaseConfig, "empty description")
		}
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse description")
	}
	if len(f.Scopes) == 0 {
		return nil, errors.InvalidInput(errors.PhaseConfig, "description has no scopes")
	}
	return &f, nil
}

func (l LocalSpec) local() (scopeinfo.Local, error) {
	out := scopeinfo.Local{Name: l.Name, Parameter: l.Parameter}
	if l.Mode != "" {
		mode, err := scopeinfo.ParseVariableMode(l.Mode)
		if err != nil {
			return out, err
		}
		out.Mode = mode
	}
	if l.Initialized {
		out.Init = scopeinfo.CreatedInitialized
	}
	if l.MaybeAssigned {
		out.MaybeAssigned = scopeinfo.MaybeAssigned
	}
	if l.Static {
		out.IsStatic = scopeinfo.Static
	}
	return out, nil
}

// Descriptor converts s into a descriptor. outer is the already built scope
// named by s.Outer, or nil.
func (s ScopeSpec) Descriptor(outer *scopeinfo.ScopeInfo) (scopeinfo.Descriptor, error) {
	var d scopeinfo.Descriptor

	st, err := scopeinfo.ParseScopeType(s.Type)
	if err != nil {
		return d, err
	}
	d.Flags.ScopeType = st

	switch s.LanguageMode {
	case "", "sloppy":
	case "strict":
		d.Flags.LanguageMode = scopeinfo.Strict
	default:
		return d, errors.InvalidEnum(errors.PhaseConfig, []string{s.Name, "languageMode"}, s.LanguageMode, "LanguageMode")
	}
	if s.Receiver != "" {
		if d.Flags.ReceiverVariable, err = scopeinfo.ParseAllocation(s.Receiver); err != nil {
			return d, err
		}
	}
	if s.FunctionVariable != "" {
		if d.Flags.FunctionVariable, err = scopeinfo.ParseAllocation(s.FunctionVariable); err != nil {
			return d, err
		}
	} else if s.FunctionName != nil {
		d.Flags.FunctionVariable = scopeinfo.AllocContext
	}
	d.Flags.FunctionKind = scopeinfo.FunctionKind(s.FunctionKind)
	for _, name := range s.Options {
		set, ok := flagOptions[name]
		if !ok {
			return d, errors.FieldUnknown(errors.PhaseConfig, []string{s.Name, "options"}, name)
		}
		set(&d.Flags)
	}

	d.ParameterCount = s.ParameterCount
	d.ReceiverInfo = s.ReceiverInfo
	for i, ls := range s.Locals {
		l, err := ls.local()
		if err != nil {
			return d, fmt.Errorf("%s: local %d: %w", s.Name, i, err)
		}
		d.Locals = append(d.Locals, l)
	}

	if s.SavedClassVariableIndex != nil {
		d.Flags.HasSavedClassVariableIndex = true
		d.SavedClassVariableIndex = s.SavedClassVariableIndex
	}
	if s.FunctionName != nil {
		fn, err := s.FunctionName.local()
		if err != nil {
			return d, fmt.Errorf("%s: function name: %w", s.Name, err)
		}
		d.FunctionName = &fn
	}
	if s.InferredName != nil {
		d.Flags.HasInferredFunctionName = true
		d.InferredFunctionName = s.InferredName
	}
	if s.Position != nil {
		d.Position = &scopeinfo.Position{Start: s.Position.Start, End: s.Position.End}
	}
	if outer != nil {
		d.Flags.HasOuterScopeInfo = true
		d.OuterScopeInfo = outer
	}
	if s.BlockList != nil {
		d.Flags.HasLocalsBlockList = true
		d.LocalsBlockList = s.BlockList
	}
	if s.Module != nil {
		m := &scopeinfo.Module{Requests: s.Module.Requests}
		for i, vs := range s.Module.Variables {
			l, err := vs.local()
			if err != nil {
				return d, fmt.Errorf("%s: module variable %d: %w", s.Name, i, err)
			}
			m.Variables = append(m.Variables, scopeinfo.ModuleVariable{
				Name:       l.Name,
				Index:      vs.Index,
				Properties: l.Properties(),
			})
		}
		d.Module = m
	}
	return d, nil
}

// Built is a described scope after allocation.
type Built struct {
	Name  string
	Scope *scopeinfo.ScopeInfo
}

// Build allocates every scope of f on h, in file order.
func (f *File) Build(h *heap.Heap) ([]Built, error) {
	byName := make(map[string]*scopeinfo.ScopeInfo, len(f.Scopes))
	out := make([]Built, 0, len(f.Scopes))

	for i, s := range f.Scopes {
		if s.Name == "" {
			s.Name = fmt.Sprintf("scope%d", i)
		}
		if _, dup := byName[s.Name]; dup {
			return nil, errors.InvalidInput(errors.PhaseConfig, "duplicate scope name "+s.Name)
		}

		var outer *scopeinfo.ScopeInfo
		if s.Outer != "" {
			o, ok := byName[s.Outer]
			if !ok {
				return nil, errors.NotFound(errors.PhaseConfig, "outer scope", s.Outer)
			}
			outer = o
		}

		d, err := s.Descriptor(outer)
		if err != nil {
			return nil, err
		}
		si, err := scopeinfo.New(h, d)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		byName[s.Name] = si
		out = append(out, Built{Name: s.Name, Scope: si})
	}
	return out, nil
}
