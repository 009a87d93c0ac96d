package sqlmap

import "reflect"

// TypeShape tags the variants a declared field/return/parameter type
// can take before it is resolved to a concrete reflect.Type. Go's own
// generics are monomorphized away by the time reflect sees a value —
// there are no runtime type variables left to walk — so this sum type
// exists for the case of a host without runtime generic metadata that
// instead supplies a pre-extracted schema. GenericBinding below is that
// schema's hook.
type TypeShape int

const (
	ShapeConcrete TypeShape = iota
	ShapeTypeVariable
	ShapeParameterized
	ShapeGenericArray
	ShapeWildcard
)

// GenericType is a declared type expressed in a data-driven shape:
// {TypeVariable, Parameterized, GenericArray, Wildcard, Concrete}.
type GenericType struct {
	Shape    TypeShape
	Concrete reflect.Type  // Shape == ShapeConcrete
	Variable string        // Shape == ShapeTypeVariable
	Raw      reflect.Type  // Shape == ShapeParameterized: the unparameterized container type (e.g. []T's slice-ness, or a map)
	Args     []GenericType // Shape == ShapeParameterized: actual type arguments, in declaration order
	Elem     *GenericType  // Shape == ShapeGenericArray
	Bound    *GenericType  // Shape == ShapeWildcard: upper bound, nil means unbounded (resolves to any)
}

// GenericBinding is implemented by a declaring type that carries its
// own type-variable → concrete-type table, the structural stand-in for
// walking a generic superclass chain: composing types that embed a
// GenericBinding propagate bindings down the embedding chain, each
// level's type-variable arguments translated through the previous
// level's binding table.
type GenericBinding interface {
	TypeArguments() map[string]reflect.Type
}

// ResolveFieldType, ResolveReturnType, and ResolveParamTypes all share
// this core: resolve a GenericType against a binding table to a
// concrete reflect.Type. Declared types the caller never expressed
// generically should use ShapeConcrete, resolved unconditionally to
// declared.Concrete.
func ResolveFieldType(declared GenericType, bindings map[string]reflect.Type) reflect.Type {
	switch declared.Shape {
	case ShapeConcrete:
		return declared.Concrete
	case ShapeTypeVariable:
		if t, ok := bindings[declared.Variable]; ok {
			return t
		}
		return anyType
	case ShapeParameterized:
		return resolveParameterized(declared, bindings)
	case ShapeGenericArray:
		elem := ResolveFieldType(*declared.Elem, bindings)
		return reflect.SliceOf(elem)
	case ShapeWildcard:
		if declared.Bound != nil {
			return ResolveFieldType(*declared.Bound, bindings)
		}
		return anyType
	default:
		return anyType
	}
}

// ResolveReturnType resolves a method's declared return type the same
// way ResolveFieldType resolves a field's.
func ResolveReturnType(declared GenericType, bindings map[string]reflect.Type) reflect.Type {
	return ResolveFieldType(declared, bindings)
}

// ResolveParamTypes resolves each of a method's declared parameter
// types the same way ResolveFieldType resolves a field's.
func ResolveParamTypes(declared []GenericType, bindings map[string]reflect.Type) []reflect.Type {
	out := make([]reflect.Type, len(declared))
	for i, d := range declared {
		out[i] = ResolveFieldType(d, bindings)
	}
	return out
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// resolveParameterized handles the two container shapes this package's
// mapping model actually declares generically: slices (one argument,
// the element type) and maps (two arguments, key then value). Raw, when
// set to a concrete slice or map type, is returned with its element
// type(s) substituted; otherwise the resolved first argument's slice
// type is used as a reasonable default.
func resolveParameterized(declared GenericType, bindings map[string]reflect.Type) reflect.Type {
	resolvedArgs := make([]reflect.Type, len(declared.Args))
	for i, a := range declared.Args {
		resolvedArgs[i] = ResolveFieldType(a, bindings)
	}
	if declared.Raw != nil {
		switch declared.Raw.Kind() {
		case reflect.Map:
			if len(resolvedArgs) == 2 {
				return reflect.MapOf(resolvedArgs[0], resolvedArgs[1])
			}
		case reflect.Slice, reflect.Array:
			if len(resolvedArgs) == 1 {
				return reflect.SliceOf(resolvedArgs[0])
			}
		}
		return declared.Raw
	}
	if len(resolvedArgs) == 1 {
		return reflect.SliceOf(resolvedArgs[0])
	}
	return anyType
}

// BindingsFromPath walks source's embedding chain looking for an
// embedded field whose type implements GenericBinding and is either
// equal to declaring or assignable to it, merging every binding table
// found along the way: the structural analogue of walking a source
// type's generic superclass and interfaces until a parameterized
// ancestor equal to the declaring type is found.
func BindingsFromPath(source, declaring reflect.Type) map[string]reflect.Type {
	bindings := make(map[string]reflect.Type)
	st := derefPtr(source)
	if st == declaring || st.AssignableTo(declaring) {
		mergeBindings(bindings, st)
	}
	visited := make(map[reflect.Type]bool)
	walkEmbeddingForBindings(st, declaring, bindings, visited)
	return bindings
}

func mergeBindings(dst map[string]reflect.Type, t reflect.Type) {
	zero := reflect.Zero(t)
	if gb, ok := zero.Interface().(GenericBinding); ok {
		for k, v := range gb.TypeArguments() {
			dst[k] = v
		}
		return
	}
	if reflect.PointerTo(t).Implements(genericBindingType) {
		pv := reflect.New(t)
		if gb, ok := pv.Interface().(GenericBinding); ok {
			for k, v := range gb.TypeArguments() {
				dst[k] = v
			}
		}
	}
}

var genericBindingType = reflect.TypeOf((*GenericBinding)(nil)).Elem()

func walkEmbeddingForBindings(t, declaring reflect.Type, bindings map[string]reflect.Type, visited map[reflect.Type]bool) {
	if visited[t] {
		return
	}
	visited[t] = true
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous {
			continue
		}
		ft := derefPtr(sf.Type)
		if ft == declaring || ft.AssignableTo(declaring) {
			mergeBindings(bindings, ft)
		}
		mergeBindings(bindings, ft)
		walkEmbeddingForBindings(ft, declaring, bindings, visited)
	}
}
