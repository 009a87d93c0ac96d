package sqlmap

import (
	"reflect"
	"testing"
)

type scanPlanUser struct {
	ID       int
	FullName string
}

func TestColumnBindingsFromResultMap(t *testing.T) {
	rt := reflect.TypeOf(scanPlanUser{})
	rm := NewResultMap("users.UserMap", rt, []ResultMapping{
		{Property: "ID", Column: "id", FieldType: reflect.TypeOf(0), Flags: ResultFlagID},
		{Property: "FullName", Column: "full_name", FieldType: reflect.TypeOf("")},
	}, nil)

	byCol := columnBindings(rt, rm)
	if len(byCol) != 2 {
		t.Fatalf("len(byCol) = %d, want 2", len(byCol))
	}
	if b, ok := byCol["id"]; !ok || b.prop != "ID" {
		t.Fatalf("byCol[id] = %+v, %v, want ID binding", b, ok)
	}
	if b, ok := byCol["full_name"]; !ok || b.prop != "FullName" {
		t.Fatalf("byCol[full_name] = %+v, %v, want FullName binding", b, ok)
	}
}

func TestColumnBindingsInlineAutoMapFallsBackToReadableProperties(t *testing.T) {
	rt := reflect.TypeOf(scanPlanUser{})
	byCol := columnBindings(rt, nil)
	if _, ok := byCol["id"]; !ok {
		t.Fatal("expected auto-map to expose ID as 'id'")
	}
	if _, ok := byCol["fullname"]; !ok {
		t.Fatal("expected auto-map to expose FullName as 'fullname'")
	}
}

func TestColumnBindingsSkipsCompositeAndNestedMappings(t *testing.T) {
	rt := reflect.TypeOf(scanPlanUser{})
	rm := NewResultMap("users.UserMap", rt, []ResultMapping{
		{Property: "ID", Column: "id", FieldType: reflect.TypeOf(0)},
		{Property: "FullName", NestedResultMapID: "users.NameMap"},
	}, nil)
	byCol := columnBindings(rt, rm)
	if _, ok := byCol["full_name"]; ok {
		t.Fatal("expected a nested-result-map mapping to be excluded from column bindings")
	}
	if len(byCol) != 1 {
		t.Fatalf("len(byCol) = %d, want 1", len(byCol))
	}
}

func TestNormalizeColAsciiStripsQuotingAndLowercases(t *testing.T) {
	cases := map[string]string{
		`"Full_Name"`: "full_name",
		"`ID`":        "id",
		"[Count]":     "count",
		"PlainCol":    "plaincol",
	}
	for in, want := range cases {
		if got := normalizeColAscii(in); got != want {
			t.Fatalf("normalizeColAscii(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPickIndirectConvertsNamedIntType(t *testing.T) {
	type userID int
	convTo, post, ok := pickIndirect(reflect.TypeOf(userID(0)))
	if !ok || convTo.Kind() != reflect.Int64 {
		t.Fatalf("pickIndirect(userID) = %v, %v, want int64 temp, true", convTo, ok)
	}
	dst := reflect.New(reflect.TypeOf(userID(0))).Elem()
	src := reflect.ValueOf(int64(7))
	if err := post(dst, src); err != nil {
		t.Fatalf("post: %v", err)
	}
	if dst.Interface().(userID) != 7 {
		t.Fatalf("dst = %v, want 7", dst.Interface())
	}
}

func TestPickIndirectRejectsAlreadyScannableKind(t *testing.T) {
	if _, _, ok := pickIndirect(reflect.TypeOf(true)); ok {
		t.Fatal("expected bool (already directly scannable) to skip indirection")
	}
}
