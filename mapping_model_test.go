package sqlmap

import (
	"reflect"
	"testing"
)

func TestMergeResultMapParentDropsConstructorAndOverridden(t *testing.T) {
	parent := NewResultMap("P", reflect.TypeOf(struct{}{}), []ResultMapping{
		{Property: "id", Flags: ResultFlagID},
		{Property: "name"},
		{Property: "x", Flags: ResultFlagConstructor},
	}, nil)

	child := []ResultMapping{
		{Property: "email"},
		{Property: "y", Flags: ResultFlagConstructor},
	}

	merged := mergeResultMapParent(parent, child)

	var got []string
	for _, m := range merged {
		got = append(got, m.Property)
	}
	want := []string{"email", "y", "id", "name"}
	if len(got) != len(want) {
		t.Fatalf("merged = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("merged = %v, want %v", got, want)
		}
	}
}

func TestMergeResultMapParentKeepsParentConstructorWhenChildHasNone(t *testing.T) {
	parent := NewResultMap("P", reflect.TypeOf(struct{}{}), []ResultMapping{
		{Property: "x", Flags: ResultFlagConstructor},
	}, nil)
	merged := mergeResultMapParent(parent, []ResultMapping{{Property: "name"}})
	if len(merged) != 2 {
		t.Fatalf("expected parent constructor mapping retained, got %v", merged)
	}
	if merged[0].Property != "x" || merged[1].Property != "name" {
		t.Fatalf("unexpected merge order: %v", merged)
	}
}

func TestResultMapDerivesConstructorAndIDSubslices(t *testing.T) {
	typ := reflect.TypeOf(struct{}{})
	rm := NewResultMap("id", typ, []ResultMapping{
		{Property: "id", Flags: ResultFlagID},
		{Property: "x", Flags: ResultFlagConstructor},
		{Property: "child", NestedResultMapID: "otherMap"},
	}, nil)
	if len(rm.IDMappings) != 1 || rm.IDMappings[0].Property != "id" {
		t.Fatalf("IDMappings = %v", rm.IDMappings)
	}
	if len(rm.ConstructorArg) != 1 || rm.ConstructorArg[0].Property != "x" {
		t.Fatalf("ConstructorArg = %v", rm.ConstructorArg)
	}
	if !rm.HasNestedMaps {
		t.Fatal("expected HasNestedMaps true")
	}
}

func TestInlineParameterMapID(t *testing.T) {
	if got := inlineParameterMapID("ns.selectUser"); got != "ns.selectUser-Inline" {
		t.Fatalf("got %q", got)
	}
}

func TestIsSelect(t *testing.T) {
	s := &MappedStatement{SQLCommandType: SQLSelect}
	if !s.IsSelect() {
		t.Fatal("expected IsSelect true")
	}
	s.SQLCommandType = SQLUpdate
	if s.IsSelect() {
		t.Fatal("expected IsSelect false")
	}
}

func TestIsCompositeResult(t *testing.T) {
	m := ResultMapping{}
	if m.IsCompositeResult() {
		t.Fatal("expected non-composite")
	}
	m.Composite = []ResultMapping{{Property: "a"}}
	if !m.IsCompositeResult() {
		t.Fatal("expected composite")
	}
}
