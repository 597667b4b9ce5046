package snapshot

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/wippyai/scope-layout/errors"
	"github.com/wippyai/scope-layout/heap"
	"github.com/wippyai/scope-layout/scopeinfo"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func buildScopes(t *testing.T) (*heap.Heap, *scopeinfo.ScopeInfo) {
	t.Helper()
	h, err := heap.New(heap.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	script, err := scopeinfo.New(h, scopeinfo.Descriptor{
		Flags:  scopeinfo.Flags{ScopeType: scopeinfo.ScriptScope},
		Locals: []scopeinfo.Local{{Name: "top"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	fn, err := scopeinfo.New(h, scopeinfo.Descriptor{
		Flags: scopeinfo.Flags{
			ScopeType:         scopeinfo.FunctionScope,
			FunctionVariable:  scopeinfo.AllocContext,
			HasOuterScopeInfo: true,
		},
		Locals:         []scopeinfo.Local{{Name: "a"}, {Name: "b"}},
		FunctionName:   &scopeinfo.Local{Name: "g"},
		OuterScopeInfo: script,
	})
	if err != nil {
		t.Fatal(err)
	}
	return h, fn
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	h, fn := buildScopes(t)

	if err := s.Save(ctx, "base", h, fn); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored, scopes, err := s.Load(ctx, "base")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(scopes) != 1 {
		t.Fatalf("scopes: got %d, want 1", len(scopes))
	}
	si := scopes[0]
	if si.Heap() != restored {
		t.Error("descriptor not bound to the restored heap")
	}
	if got := si.ContextLocalName(1); got != "b" {
		t.Errorf("local 1: got %q, want %q", got, "b")
	}
	if name, ok := si.FunctionName(); !ok || name != "g" {
		t.Errorf("function name: got (%q, %v)", name, ok)
	}
	chain := si.OuterChain()
	if len(chain) != 1 || chain[0].ContextLocalName(0) != "top" {
		t.Errorf("outer chain not restored")
	}

	// The restored heap keeps allocating where the saved heap stopped.
	if _, err := scopeinfo.New(restored, scopeinfo.Descriptor{Flags: scopeinfo.Flags{ScopeType: scopeinfo.BlockScope}}); err != nil {
		t.Errorf("allocation after load: %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	h, fn := buildScopes(t)

	for _, name := range []string{"zeta", "alpha"} {
		if err := s.Save(ctx, name, h, fn); err != nil {
			t.Fatal(err)
		}
	}
	// Saving twice under one name replaces the entry.
	if err := s.Save(ctx, "alpha", h); err != nil {
		t.Fatal(err)
	}

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("list: got %d entries, want 2", len(infos))
	}
	if infos[0].Name != "alpha" || infos[1].Name != "zeta" {
		t.Errorf("order: got %s, %s", infos[0].Name, infos[1].Name)
	}
	if infos[0].Scopes != 0 || infos[1].Scopes != 1 {
		t.Errorf("scope counts: got %d, %d", infos[0].Scopes, infos[1].Scopes)
	}
	if infos[0].Size != int(h.Top()) || infos[0].Format != FormatVersion {
		t.Errorf("info: got %+v", infos[0])
	}

	if err := s.Delete(ctx, "zeta"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Load(ctx, "zeta"); !stderrors.Is(err, &errors.Error{Kind: errors.KindNotFound}) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := s.Delete(ctx, "zeta"); !stderrors.Is(err, &errors.Error{Kind: errors.KindNotFound}) {
		t.Errorf("second delete: expected not found, got %v", err)
	}
}

func TestLoad_IncompatibleFormat(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	h, _ := buildScopes(t)

	if err := s.Save(ctx, "old", h); err != nil {
		t.Fatal(err)
	}
	snap, err := s.get(ctx, "old")
	if err != nil {
		t.Fatal(err)
	}
	snap.Format = "2.1.0"
	if err := s.db.Upsert("old", snap); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.Load(ctx, "old"); !stderrors.Is(err, &errors.Error{Kind: errors.KindIncompatible}) {
		t.Errorf("expected incompatible, got %v", err)
	}
}

func TestCheckFormat(t *testing.T) {
	tests := []struct {
		format string
		ok     bool
	}{
		{"1.0.0", true},
		{"1.4.2", true},
		{"0.9.0", false},
		{"2.0.0", false},
		{"not-a-version", false},
	}
	for _, tt := range tests {
		err := CheckFormat(tt.format)
		if (err == nil) != tt.ok {
			t.Errorf("CheckFormat(%q): got %v, want ok=%v", tt.format, err, tt.ok)
		}
	}
}

func TestSave_Rejects(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	h, fn := buildScopes(t)
	other, _ := buildScopes(t)

	if err := s.Save(ctx, "", h); err == nil {
		t.Error("empty name accepted")
	}
	if err := s.Save(ctx, "mixed", other, fn); err == nil {
		t.Error("descriptor from another heap accepted")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.Save(cancelled, "late", h); !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context cancelled, got %v", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	h, fn := buildScopes(t)
	if err := s.Save(ctx, "base", h, fn); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(snap *Snapshot)
	}{
		{"entry inside an object", func(snap *Snapshot) { snap.Scopes[0] += 4 }},
		{"entry past top", func(snap *Snapshot) { snap.Scopes[0] = snap.Top | 1 }},
		{"map word overwritten", func(snap *Snapshot) {
			addr := snap.Scopes[0] &^ 1
			copy(snap.Image[addr:], []byte{0xF9, 0xFF, 0xFF, 0xFF})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := s.get(ctx, "base")
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(snap)
			if err := s.db.Upsert("bad", snap); err != nil {
				t.Fatal(err)
			}
			if _, _, err := s.Load(ctx, "bad"); !stderrors.Is(err, &errors.Error{Kind: errors.KindInvalidData}) {
				t.Errorf("got %v, want invalid data", err)
			}
		})
	}
}
