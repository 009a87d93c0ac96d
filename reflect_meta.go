package sqlmap

import (
	"reflect"
	"sort"
	"strings"
	"sync"
)

// accessorKind tags the different ways a property can be read or
// written. It is the Go analogue of the invoker hierarchy (MethodInvoker,
// GetFieldInvoker, AmbiguousMethodInvoker, ...) from the reflection
// engine this package's property resolution is grounded on.
type accessorKind uint8

const (
	accessorField accessorKind = iota
	accessorMethod
	accessorAmbiguous
)

// accessor is a tagged sum {MethodGetter, FieldGetter, MethodSetter,
// FieldSetter, AmbiguousAccessor}: a single `invoke` operation covers
// every shape, with the ambiguous case carrying the error it raises on
// use instead of at registration time.
type accessor struct {
	kind    accessorKind
	typ     reflect.Type // return type (getter) or parameter type (setter)
	index   []int        // field path, set when kind == accessorField
	method  reflect.Method
	errMsg  string // set when kind == accessorAmbiguous
	isBool  bool   // getter only: true if backed by an Is-prefixed method
}

// get reads the property from target, an addressable struct value (as
// returned by reflect.New(t).Elem()). Method-backed accessors take
// target's address to satisfy the pointer receiver Go promotes
// Get/Is/Set methods through.
func (a *accessor) get(target reflect.Value, property, typeName string) (reflect.Value, error) {
	switch a.kind {
	case accessorAmbiguous:
		return reflect.Value{}, &ReflectionError{Type: typeName, Property: property, Message: a.errMsg}
	case accessorMethod:
		out := a.method.Func.Call([]reflect.Value{target.Addr()})
		return out[0], nil
	default:
		return fieldByPathAlloc(target, a.index), nil
	}
}

// set writes val into the property on target, an addressable struct value.
func (a *accessor) set(target reflect.Value, val reflect.Value, property, typeName string) error {
	switch a.kind {
	case accessorAmbiguous:
		return &ReflectionError{Type: typeName, Property: property, Message: a.errMsg}
	case accessorMethod:
		a.method.Func.Call([]reflect.Value{target.Addr(), val})
		return nil
	default:
		fieldByPathAlloc(target, a.index).Set(val)
		return nil
	}
}

// ClassMeta caches the readable/writable properties of a single Go
// type: the getter/setter accessor for each property name, and a
// case-insensitive index used for underscore-tolerant lookups.
type ClassMeta struct {
	typ      reflect.Type
	getters  map[string]*accessor
	setters  map[string]*accessor
	readable []string
	writable []string
	ciIndex  map[string]string // lowercase, underscores stripped -> canonical name
	ciPlain  map[string]string // lowercase, underscores kept -> canonical name
}

var (
	classMetaCache sync.Map // reflect.Type -> *ClassMeta
)

// classMetaFor returns the cached ClassMeta for t (a struct or pointer
// to struct), building it on first use. Concurrent callers may race on
// the miss path; either resulting instance is equivalent, so the race
// is harmless.
func classMetaFor(t reflect.Type) *ClassMeta {
	st := derefPtr(t)
	if v, ok := classMetaCache.Load(st); ok {
		return v.(*ClassMeta)
	}
	cm := buildClassMeta(st)
	actual, _ := classMetaCache.LoadOrStore(st, cm)
	return actual.(*ClassMeta)
}

type fieldCandidate struct {
	depth int
	index []int
	sf    reflect.StructField
}

// collectFields walks t and every anonymous (embedded) struct field,
// recording every field name reachable at every depth. Reducing each
// name's candidate list to its shallowest entries is what later
// reproduces Go's own field-promotion ambiguity rule: a name with more
// than one candidate at the shallowest depth is ambiguous.
func collectFields(t reflect.Type) map[string][]fieldCandidate {
	result := make(map[string][]fieldCandidate)
	type queued struct {
		t      reflect.Type
		prefix []int
		depth  int
	}
	queue := []queued{{t, nil, 0}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		st := derefPtr(item.t)
		if st.Kind() != reflect.Struct {
			continue
		}
		for i := 0; i < st.NumField(); i++ {
			sf := st.Field(i)
			if sf.PkgPath != "" && !sf.Anonymous {
				continue // unexported, non-embedded: not promotable
			}
			if sf.Name == "_" {
				continue
			}
			path := append(append([]int(nil), item.prefix...), i)
			result[sf.Name] = append(result[sf.Name], fieldCandidate{depth: item.depth, index: path, sf: sf})
			if sf.Anonymous {
				ft := derefPtr(sf.Type)
				if ft.Kind() == reflect.Struct {
					queue = append(queue, queued{ft, path, item.depth + 1})
				}
			}
		}
	}
	return result
}

func shallowest(cands []fieldCandidate) []fieldCandidate {
	min := cands[0].depth
	for _, c := range cands {
		if c.depth < min {
			min = c.depth
		}
	}
	out := make([]fieldCandidate, 0, 1)
	for _, c := range cands {
		if c.depth == min {
			out = append(out, c)
		}
	}
	return out
}

// buildClassMeta runs the ClassMeta construction algorithm: convention-
// named Get/Is/Set methods are collected first, then any field left
// without a registered getter or setter is promoted to fill the gap,
// with ambiguous field-promotion recorded as a throwing accessor rather
// than rejected outright.
func buildClassMeta(t reflect.Type) *ClassMeta {
	cm := &ClassMeta{
		typ:     t,
		getters: make(map[string]*accessor),
		setters: make(map[string]*accessor),
		ciIndex: make(map[string]string),
		ciPlain: make(map[string]string),
	}

	if t.Kind() == reflect.Struct {
		collectConventionMethods(t, cm)
	}

	if t.Kind() == reflect.Struct {
		fields := collectFields(t)
		for name, cands := range fields {
			winners := shallowest(cands)
			if len(winners) > 1 {
				msg := "ambiguous promoted field '" + name + "' on " + t.String()
				amb := &accessor{kind: accessorAmbiguous, typ: winners[0].sf.Type, errMsg: msg}
				if _, ok := cm.getters[lowerFirst(name)]; !ok {
					cm.getters[name] = amb
				}
				if _, ok := cm.setters[lowerFirst(name)]; !ok {
					cm.setters[name] = amb
				}
				continue
			}
			w := winners[0]
			if isReservedPropertyName(name) {
				continue
			}
			if _, ok := cm.getters[name]; !ok {
				cm.getters[name] = &accessor{kind: accessorField, typ: w.sf.Type, index: w.index}
			}
			if _, ok := cm.setters[name]; !ok {
				cm.setters[name] = &accessor{kind: accessorField, typ: w.sf.Type, index: w.index}
			}
		}
	}

	for name := range cm.getters {
		cm.readable = append(cm.readable, name)
		cm.ciIndex[caseInsensitiveKey(name)] = name
		cm.ciPlain[toLowerAscii(name)] = name
	}
	for name := range cm.setters {
		cm.writable = append(cm.writable, name)
		cm.ciIndex[caseInsensitiveKey(name)] = name
		cm.ciPlain[toLowerAscii(name)] = name
	}
	sort.Strings(cm.readable)
	sort.Strings(cm.writable)
	return cm
}

func isReservedPropertyName(name string) bool {
	return name == "" || strings.HasPrefix(name, "$") || name == "serialVersionUID" || name == "Class"
}

// collectConventionMethods registers GetX/IsX (getter) and SetX (setter)
// methods declared on, or promoted to, t. errorReturn values on setters
// are permitted and ignored, matching the common Go "setter that can
// fail" shape; the error is not surfaced through this accessor (callers
// needing that should call the method directly).
func collectConventionMethods(t reflect.Type, cm *ClassMeta) {
	pt := reflect.PointerTo(t)
	for i := 0; i < pt.NumMethod(); i++ {
		m := pt.Method(i)
		name := m.Name
		switch {
		case strings.HasPrefix(name, "Get") && len(name) > 3:
			if m.Type.NumIn() == 1 && m.Type.NumOut() == 1 {
				prop := lowerFirst(name[3:])
				cm.getters[prop] = &accessor{kind: accessorMethod, typ: m.Type.Out(0), method: m}
			}
		case strings.HasPrefix(name, "Is") && len(name) > 2:
			if m.Type.NumIn() == 1 && m.Type.NumOut() == 1 && m.Type.Out(0).Kind() == reflect.Bool {
				prop := lowerFirst(name[2:])
				cm.getters[prop] = &accessor{kind: accessorMethod, typ: m.Type.Out(0), method: m, isBool: true}
			}
		case strings.HasPrefix(name, "Set") && len(name) > 3:
			if m.Type.NumIn() == 2 && (m.Type.NumOut() == 0 || (m.Type.NumOut() == 1 && isErrorType(m.Type.Out(0)))) {
				prop := lowerFirst(name[3:])
				cm.setters[prop] = &accessor{kind: accessorMethod, typ: m.Type.In(1), method: m}
			}
		}
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func isErrorType(t reflect.Type) bool { return t.Implements(errorType) }

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if 'A' <= b[0] && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

func caseInsensitiveKey(s string) string {
	s = toLowerAscii(s)
	if !strings.Contains(s, "_") {
		return s
	}
	return strings.ReplaceAll(s, "_", "")
}

// HasGetter reports whether property has a registered getter (of any
// kind, including ambiguous).
func (cm *ClassMeta) HasGetter(property string) bool {
	_, ok := cm.getters[property]
	return ok
}

// HasSetter reports whether property has a registered setter.
func (cm *ClassMeta) HasSetter(property string) bool {
	_, ok := cm.setters[property]
	return ok
}

// GetterType returns the declared return type of property's getter.
func (cm *ClassMeta) GetterType(property string) (reflect.Type, bool) {
	a, ok := cm.getters[property]
	if !ok {
		return nil, false
	}
	return a.typ, true
}

// SetterType returns the declared parameter type of property's setter.
func (cm *ClassMeta) SetterType(property string) (reflect.Type, bool) {
	a, ok := cm.setters[property]
	if !ok {
		return nil, false
	}
	return a.typ, true
}

// FindProperty returns property's canonical (registered) capitalization,
// or "" if no such property is known. When useCamelCase is true,
// underscores are stripped from property before lookup.
func (cm *ClassMeta) FindProperty(property string, useCamelCase bool) string {
	key := toLowerAscii(property)
	if useCamelCase {
		return cm.ciIndex[strings.ReplaceAll(key, "_", "")]
	}
	return cm.ciPlain[key]
}

// ReadableProperties returns the sorted list of property names with a
// registered getter.
func (cm *ClassMeta) ReadableProperties() []string { return append([]string(nil), cm.readable...) }

// WritableProperties returns the sorted list of property names with a
// registered setter.
func (cm *ClassMeta) WritableProperties() []string { return append([]string(nil), cm.writable...) }
