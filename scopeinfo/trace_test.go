package scopeinfo

import (
	"testing"

	"github.com/wippyai/scope-layout/heap"
	"github.com/wippyai/scope-layout/layout"
)

func TestIsReferenceSlot(t *testing.T) {
	tests := []struct {
		id    layout.ID
		field string
		want  bool
	}{
		{ContextLocalNames, FieldValue, true},
		{ContextLocalInfos, FieldValue, false},
		{SavedClassVariableInfo, FieldValue, false},
		{ReceiverInfo, FieldValue, false},
		{FunctionNameInfo, FieldName, true},
		{FunctionNameInfo, FieldProperties, false},
		{InferredFunctionName, FieldValue, true},
		{PositionInfo, FieldStart, false},
		{PositionInfo, FieldEnd, false},
		{OuterScopeInfo, FieldValue, true},
		{LocalsBlockList, FieldValue, true},
		{ModuleInfo, FieldValue, true},
		{ModuleVariableCount, FieldValue, false},
		{ModuleVariables, FieldIndex, false},
		{ModuleVariables, FieldName, true},
		{ModuleVariables, FieldProperties, false},
		{ModuleVariables, "missing", false},
		{layout.ID(40), FieldValue, false},
	}
	for _, tt := range tests {
		if got := IsReferenceSlot(tt.id, tt.field); got != tt.want {
			t.Errorf("IsReferenceSlot(%d, %s): got %v, want %v", tt.id, tt.field, got, tt.want)
		}
	}
}

func TestReferenceSlots(t *testing.T) {
	h := newTestHeap(t)
	si := functionScope(t, h, scriptScope(t, h))

	want := []uint32{20, 24, 40, 56}
	slots := si.ReferenceSlots()
	if len(slots) != len(want) {
		t.Fatalf("slots: got %v, want offsets %v", slots, want)
	}
	for i, off := range want {
		if slots[i] != si.Address()+off {
			t.Errorf("slot %d: got %#x, want %#x", i, slots[i], si.Address()+off)
		}
	}

	var visited []heap.Value
	si.VisitReferences(func(_ uint32, v heap.Value) {
		visited = append(visited, v)
	})
	if len(visited) != 5 {
		t.Fatalf("visited: got %d, want 5", len(visited))
	}
	if visited[0] != h.Root(heap.RootScopeInfoMap) {
		t.Errorf("first visit should be the map, got %s", h.Describe(visited[0]))
	}
	for _, v := range visited {
		if !v.IsHeapObject() {
			t.Errorf("visited non-reference %s", v)
		}
	}
}
