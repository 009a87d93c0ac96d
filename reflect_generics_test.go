package sqlmap

import (
	"reflect"
	"testing"
)

func TestResolveFieldTypeConcreteAndVariable(t *testing.T) {
	concrete := GenericType{Shape: ShapeConcrete, Concrete: reflect.TypeOf("")}
	if got := ResolveFieldType(concrete, nil); got != reflect.TypeOf("") {
		t.Fatalf("ResolveFieldType(concrete) = %v, want string", got)
	}

	tv := GenericType{Shape: ShapeTypeVariable, Variable: "T"}
	bindings := map[string]reflect.Type{"T": reflect.TypeOf(0)}
	if got := ResolveFieldType(tv, bindings); got != reflect.TypeOf(0) {
		t.Fatalf("ResolveFieldType(T) = %v, want int", got)
	}
	if got := ResolveFieldType(tv, nil); got != anyType {
		t.Fatalf("ResolveFieldType(unbound T) = %v, want any", got)
	}
}

func TestResolveFieldTypeParameterizedSliceAndMap(t *testing.T) {
	sliceOfT := GenericType{
		Shape: ShapeParameterized,
		Raw:   reflect.TypeOf([]any(nil)),
		Args:  []GenericType{{Shape: ShapeTypeVariable, Variable: "T"}},
	}
	bindings := map[string]reflect.Type{"T": reflect.TypeOf("")}
	got := ResolveFieldType(sliceOfT, bindings)
	if got != reflect.SliceOf(reflect.TypeOf("")) {
		t.Fatalf("ResolveFieldType(sliceOfT) = %v, want []string", got)
	}

	mapOfKV := GenericType{
		Shape: ShapeParameterized,
		Raw:   reflect.TypeOf(map[string]any(nil)),
		Args: []GenericType{
			{Shape: ShapeConcrete, Concrete: reflect.TypeOf("")},
			{Shape: ShapeTypeVariable, Variable: "V"},
		},
	}
	bindings = map[string]reflect.Type{"V": reflect.TypeOf(0)}
	got = ResolveFieldType(mapOfKV, bindings)
	want := reflect.MapOf(reflect.TypeOf(""), reflect.TypeOf(0))
	if got != want {
		t.Fatalf("ResolveFieldType(mapOfKV) = %v, want %v", got, want)
	}
}

func TestResolveFieldTypeWildcardBound(t *testing.T) {
	bounded := GenericType{
		Shape: ShapeWildcard,
		Bound: &GenericType{Shape: ShapeConcrete, Concrete: reflect.TypeOf(int64(0))},
	}
	if got := ResolveFieldType(bounded, nil); got != reflect.TypeOf(int64(0)) {
		t.Fatalf("ResolveFieldType(bounded wildcard) = %v, want int64", got)
	}
	unbounded := GenericType{Shape: ShapeWildcard}
	if got := ResolveFieldType(unbounded, nil); got != anyType {
		t.Fatalf("ResolveFieldType(unbounded wildcard) = %v, want any", got)
	}
}

// fixedBinding always reports the same type-argument table regardless of
// receiver state, since BindingsFromPath derives bindings from a type's
// zero value rather than from a live instance.
type fixedBinding struct{}

func (fixedBinding) TypeArguments() map[string]reflect.Type {
	return map[string]reflect.Type{"T": reflect.TypeOf("")}
}

type repository struct {
	fixedBinding
}

func TestBindingsFromPathWalksEmbeddingChain(t *testing.T) {
	bindings := BindingsFromPath(reflect.TypeOf(repository{}), reflect.TypeOf(fixedBinding{}))
	typ, ok := bindings["T"]
	if !ok || typ != reflect.TypeOf("") {
		t.Fatalf("bindings[T] = %v, %v, want string, true", typ, ok)
	}
}

func TestResolveParamTypes(t *testing.T) {
	declared := []GenericType{
		{Shape: ShapeConcrete, Concrete: reflect.TypeOf("")},
		{Shape: ShapeTypeVariable, Variable: "T"},
	}
	bindings := map[string]reflect.Type{"T": reflect.TypeOf(false)}
	got := ResolveParamTypes(declared, bindings)
	if len(got) != 2 || got[0] != reflect.TypeOf("") || got[1] != reflect.TypeOf(false) {
		t.Fatalf("ResolveParamTypes = %v", got)
	}
}
