package heap

// InstanceType is the 16-bit type tag stored in every Map.
type InstanceType uint16

const (
	InternalizedStringType InstanceType = 0
	ConsStringType         InstanceType = 1
	SlicedStringType       InstanceType = 2
	ThinStringType         InstanceType = 3
	ExternalStringType     InstanceType = 4
	LastStringType         InstanceType = 7
	SymbolType             InstanceType = 8
	OddballType            InstanceType = 64
	FixedArrayType         InstanceType = 96
	ModuleInfoType         InstanceType = 97
	StringSetType          InstanceType = 100
	ScopeInfoType          InstanceType = 133
	MapType                InstanceType = 160
)

// TypeRange is an inclusive range of instance types.
type TypeRange struct {
	Start InstanceType
	End   InstanceType
}

// Exact returns a single-tag range.
func Exact(t InstanceType) TypeRange {
	return TypeRange{Start: t, End: t}
}

// Contains reports Start <= t <= End with one unsigned compare:
// t-Start wraps to a large value when t < Start.
func (r TypeRange) Contains(t InstanceType) bool {
	return uint32(t)-uint32(r.Start) <= uint32(r.End)-uint32(r.Start)
}

// IsExact reports whether the range names a single tag.
func (r TypeRange) IsExact() bool {
	return r.Start == r.End
}

// Class names a type (or a contiguous family of types) that can be downcast to.
type Class uint8

const (
	ClassName Class = iota
	ClassString
	ClassSymbol
	ClassOddball
	ClassFixedArrayBase
	ClassFixedArray
	ClassModuleInfo
	ClassStringSet
	ClassScopeInfo
	ClassMap
	numClasses
)

// ClassInfo is a row of the downcast dispatch table.
type ClassInfo struct {
	Name  string
	Range TypeRange
	// Map is the root holding the class's only map, or NoRoot when the class
	// spans several maps and must be range-checked.
	RootMap RootIndex
}

var classTable = [numClasses]ClassInfo{
	ClassName:           {Name: "Name", Range: TypeRange{InternalizedStringType, SymbolType}, RootMap: NoRoot},
	ClassString:         {Name: "String", Range: TypeRange{InternalizedStringType, LastStringType}, RootMap: NoRoot},
	ClassSymbol:         {Name: "Symbol", Range: Exact(SymbolType), RootMap: RootSymbolMap},
	ClassOddball:        {Name: "Oddball", Range: Exact(OddballType), RootMap: RootOddballMap},
	ClassFixedArrayBase: {Name: "FixedArrayBase", Range: TypeRange{FixedArrayType, StringSetType}, RootMap: NoRoot},
	ClassFixedArray:     {Name: "FixedArray", Range: Exact(FixedArrayType), RootMap: RootFixedArrayMap},
	ClassModuleInfo:     {Name: "SourceTextModuleInfo", Range: Exact(ModuleInfoType), RootMap: RootModuleInfoMap},
	ClassStringSet:      {Name: "StringSet", Range: Exact(StringSetType), RootMap: RootStringSetMap},
	ClassScopeInfo:      {Name: "ScopeInfo", Range: Exact(ScopeInfoType), RootMap: RootScopeInfoMap},
	ClassMap:            {Name: "Map", Range: Exact(MapType), RootMap: RootMetaMap},
}

// Info returns the dispatch row for c.
func (c Class) Info() ClassInfo {
	return classTable[c]
}

func (c Class) String() string {
	if c >= numClasses {
		return "Unknown"
	}
	return classTable[c].Name
}

// mostSpecific lists exact classes first so Classify prefers them.
var mostSpecific = []Class{
	ClassSymbol, ClassOddball, ClassFixedArray, ClassModuleInfo, ClassStringSet,
	ClassScopeInfo, ClassMap, ClassString, ClassFixedArrayBase,
}

// Classify maps an instance type to the most specific class containing it.
func Classify(t InstanceType) (Class, bool) {
	for _, c := range mostSpecific {
		if classTable[c].Range.Contains(t) {
			return c, true
		}
	}
	return 0, false
}

// Variant is a closed set of values a slot may hold.
type Variant struct {
	Name      string
	Classes   []Class
	Smi       bool
	Undefined bool
	TheHole   bool
}

var (
	VariantSmi             = Variant{Name: "Smi", Smi: true}
	VariantName            = Variant{Name: "Name", Classes: []Class{ClassName}}
	VariantNameOrUndefined = Variant{Name: "Name|Undefined", Classes: []Class{ClassName}, Undefined: true}
	VariantScopeInfoOrHole = Variant{Name: "ScopeInfo|TheHole", Classes: []Class{ClassScopeInfo}, TheHole: true}
	VariantStringSetOrHole = Variant{Name: "StringSet|TheHole", Classes: []Class{ClassStringSet}, TheHole: true}
	VariantModuleInfo      = Variant{Name: "SourceTextModuleInfo", Classes: []Class{ClassModuleInfo}}
)

// HoldsReferences reports whether any member of the variant is a heap object.
func (v Variant) HoldsReferences() bool {
	return len(v.Classes) > 0 || v.Undefined || v.TheHole
}
