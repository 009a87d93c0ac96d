package sqlmap

import (
	"reflect"
	"testing"
)

type mcAddress struct {
	City string
}

type mcOrder struct {
	Total int
}

type mcUser struct {
	Name    string
	Address mcAddress
	Orders  []mcOrder
}

func TestMetaClassFindPropertyNested(t *testing.T) {
	m := NewMetaClass(reflect.TypeOf(mcUser{}))
	if got := m.FindProperty("address.city", true); got != "Address.City" {
		t.Fatalf("FindProperty = %q", got)
	}
	if got := m.FindProperty("missing", true); got != "" {
		t.Fatalf("FindProperty(missing) = %q, want empty", got)
	}
}

func TestMetaClassGetterTypeIndexed(t *testing.T) {
	m := NewMetaClass(reflect.TypeOf(mcUser{}))
	typ, ok := m.GetterType("orders[0].total")
	if !ok {
		t.Fatal("expected GetterType to resolve")
	}
	if typ.Kind() != reflect.Int {
		t.Fatalf("GetterType = %v, want int", typ)
	}
}

func TestMetaClassGetSetValue(t *testing.T) {
	m := NewMetaClass(reflect.TypeOf(mcUser{}))
	target := reflect.New(reflect.TypeOf(mcUser{})).Elem()

	if err := m.SetValue(target, "address.city", reflect.ValueOf("Springfield")); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	v, err := m.GetValue(target, "address.city")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if v.String() != "Springfield" {
		t.Fatalf("GetValue = %q", v.String())
	}
}

func TestMetaClassGetValueIndexed(t *testing.T) {
	m := NewMetaClass(reflect.TypeOf(mcUser{}))
	target := reflect.New(reflect.TypeOf(mcUser{})).Elem()
	target.FieldByName("Orders").Set(reflect.ValueOf([]mcOrder{{Total: 5}, {Total: 9}}))

	v, err := m.GetValue(target, "orders[1].total")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if v.Int() != 9 {
		t.Fatalf("GetValue = %d, want 9", v.Int())
	}
}
