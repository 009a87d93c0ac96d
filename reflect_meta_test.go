package sqlmap

import (
	"reflect"
	"testing"
)

type priceHolder struct {
	cents int
}

func (p *priceHolder) GetPrice() float64   { return float64(p.cents) / 100 }
func (p *priceHolder) SetPrice(v float64)  { p.cents = int(v * 100) }
func (p *priceHolder) IsDiscounted() bool  { return p.cents < 0 }

func TestClassMetaConventionMethodAccessors(t *testing.T) {
	cm := classMetaFor(reflect.TypeOf(priceHolder{}))
	if !cm.HasGetter("price") || !cm.HasSetter("price") {
		t.Fatal("expected GetPrice/SetPrice registered as getter/setter for 'price'")
	}
	typ, ok := cm.GetterType("price")
	if !ok || typ.Kind() != reflect.Float64 {
		t.Fatalf("GetterType(price) = %v, %v, want float64, true", typ, ok)
	}
	if !cm.HasGetter("discounted") {
		t.Fatal("expected IsDiscounted registered as getter for 'discounted'")
	}
}

type ambBaseA struct{ Tag string }
type ambBaseB struct{ Tag string }
type ambHost struct {
	ambBaseA
	ambBaseB
}

func TestClassMetaAmbiguousPromotedFieldRaisesOnUse(t *testing.T) {
	m := NewMetaClass(reflect.TypeOf(ambHost{}))
	target := reflect.New(reflect.TypeOf(ambHost{})).Elem()

	if canonical := m.FindProperty("tag", true); canonical != "Tag" {
		t.Fatalf("FindProperty(tag) = %q, want Tag (ambiguity surfaces on use, not lookup)", canonical)
	}
	if _, err := m.GetValue(target, "tag"); err == nil {
		t.Fatal("expected GetValue on an ambiguously-promoted field to fail")
	}
}

type plainOuter struct {
	Visible string
	hidden  string
}

func TestClassMetaReadableWritablePropertiesExcludeUnexportedFields(t *testing.T) {
	cm := classMetaFor(reflect.TypeOf(plainOuter{}))
	readable := cm.ReadableProperties()
	for _, p := range readable {
		if p == "hidden" {
			t.Fatal("unexported, non-embedded field must not be promoted")
		}
	}
	found := false
	for _, p := range readable {
		if p == "Visible" {
			found = true
		}
	}
	if !found {
		t.Fatalf("readable = %v, want to contain Visible", readable)
	}
}
