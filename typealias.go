package sqlmap

import (
	"reflect"
	"strings"
	"sync"
	"time"
)

// TypeAliasRegistry maps short, case-insensitive names to concrete Go
// types. It is pre-seeded with primitives, common collection shapes,
// and the handful of driver-adjacent aliases this package itself uses
// (see newTypeAliasRegistry).
//
// Re-registering an alias with a type equal to what is already stored
// is a no-op; re-registering it with a different type is an error.
type TypeAliasRegistry struct {
	mu      sync.RWMutex
	aliases map[string]reflect.Type
}

func newTypeAliasRegistry() *TypeAliasRegistry {
	r := &TypeAliasRegistry{aliases: make(map[string]reflect.Type)}
	r.seed()
	return r
}

func (r *TypeAliasRegistry) seed() {
	type pair struct {
		alias string
		typ   any
	}
	seeds := []pair{
		{"string", ""},
		{"byte", byte(0)},
		{"char", ' '},
		{"boolean", false},
		{"bool", false},
		{"int", int(0)},
		{"integer", int(0)},
		{"long", int64(0)},
		{"short", int16(0)},
		{"float", float32(0)},
		{"double", float64(0)},
		{"decimal", float64(0)},
		{"bigdecimal", float64(0)},
		{"biginteger", int64(0)},
		{"map", map[string]any(nil)},
		{"hashmap", map[string]any(nil)},
		{"list", []any(nil)},
		{"arraylist", []any(nil)},
		{"collection", []any(nil)},
		{"date", time.Time{}},
	}
	for _, s := range seeds {
		r.aliases[strings.ToLower(s.alias)] = reflect.TypeOf(s.typ)
	}
	// byte[], string[], int[] and friends: register the array/slice
	// variants under an "[]"-suffixed alias.
	r.aliases["string[]"] = reflect.TypeOf([]string(nil))
	r.aliases["byte[]"] = reflect.TypeOf([]byte(nil))
	r.aliases["int[]"] = reflect.TypeOf([]int(nil))
	r.aliases["object[]"] = reflect.TypeOf([]any(nil))
	r.aliases["object"] = reflect.TypeOf((*any)(nil)).Elem()
	r.aliases["iterator"] = reflect.TypeOf((*Iterator)(nil)).Elem()
	r.aliases["resultset"] = reflect.TypeOf((*RowIterator)(nil)).Elem()
}

// Iterator is the Go analogue of java.util.Iterator used only as a
// type-alias registration target; callers rarely need to name it
// directly.
type Iterator interface {
	Next() bool
}

// RowIterator is the Go analogue of java.sql.ResultSet used only as a
// type-alias registration target.
type RowIterator interface {
	Next() bool
	Scan(dest ...any) error
}

// Register associates alias with typ. Re-registering the same alias
// with an equal type is idempotent; registering it with a different
// type is a BuilderError.
func (r *TypeAliasRegistry) Register(alias string, typ reflect.Type) error {
	key := strings.ToLower(alias)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.aliases[key]; ok {
		if existing == typ {
			return nil
		}
		return &BuilderError{Message: "type alias '" + alias + "' is already mapped to " + existing.String() + ", cannot be mapped to " + typ.String()}
	}
	r.aliases[key] = typ
	return nil
}

// RegisterType derives the alias from typ's simple (unqualified) name
// and registers it, lowercased.
func (r *TypeAliasRegistry) RegisterType(typ reflect.Type) error {
	name := typ.Name()
	if name == "" {
		name = typ.String()
	}
	return r.Register(name, typ)
}

// RegisterAssignable registers every type in candidates that is
// assignable to superType, using each type's simple name as alias. It
// is the data-driven equivalent of registerPackage(name, superType):
// Go has no runtime package scanning, so the caller supplies the
// candidate type list (e.g. gathered via go/packages at generation
// time, or simply hand-enumerated).
func (r *TypeAliasRegistry) RegisterAssignable(candidates []reflect.Type, superType reflect.Type) error {
	for _, t := range candidates {
		if superType != nil && !t.AssignableTo(superType) {
			continue
		}
		if err := r.RegisterType(t); err != nil {
			return err
		}
	}
	return nil
}

// resolveTypeName resolves name (an alias or, via config's alias
// registry, a fully-qualified reference) against config's
// TypeAliasRegistry. An empty name resolves to (nil, nil): many XML
// attributes this package decodes (javaType, resultType, ...) are
// optional.
func resolveTypeName(config *Configuration, name string) (reflect.Type, error) {
	if name == "" {
		return nil, nil
	}
	return config.Aliases.Resolve(name, nil)
}

// Resolve looks up alias case-insensitively. Resolution of an alias
// that was never registered falls back to treating it as an already
// fully-qualified reference handled by resolveQualified; if that also
// fails, a TypeAliasError is returned.
func (r *TypeAliasRegistry) Resolve(alias string, resolveQualified func(string) (reflect.Type, bool)) (reflect.Type, error) {
	key := strings.ToLower(alias)
	r.mu.RLock()
	t, ok := r.aliases[key]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}
	if resolveQualified != nil {
		if t, ok := resolveQualified(alias); ok {
			return t, nil
		}
	}
	return nil, &TypeAliasError{Alias: alias}
}
