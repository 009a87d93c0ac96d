package sqlmap

import (
	"database/sql"
	"fmt"
	"hash/fnv"
	"reflect"
	"sync"
)

// rowScanner turns database/sql rows into Go values driven by a
// *ResultMap (or, absent one, a case-insensitive auto-map against the
// destination type's readable properties). Each NewSession call creates
// its own rowScanner, shared with the transaction Sessions that
// Session.Begin derives from it; its plan cache amortizes the
// column/property matching across repeated calls to the same statement.
type rowScanner struct {
	plans sync.Map // scanPlanKey -> *scanPlan
}

func newRowScanner() *rowScanner { return &rowScanner{} }

type scanPlanKey struct {
	rt      reflect.Type
	rmID    string // "" for auto-map
	colHash uint64
	ncols   int
}

// scanPlan is the per (destination type, result map, column set)
// binding: one scanStep per returned column.
type scanPlan struct {
	rt       reflect.Type
	steps    []scanStep
	isStruct bool
	isScan   bool // rt implements sql.Scanner
}

type scanStepKind uint8

const (
	scanDrop     scanStepKind = iota // column has no destination, sink it
	scanDirect                       // scan straight into the property
	scanIndirect                     // scan into a temp value, convert, then set
	scanWhole                        // single-column sql.Scanner destination
)

type scanStep struct {
	kind      scanStepKind
	property  string       // MetaClass path, set for scanDirect/scanIndirect
	fieldType reflect.Type // the property's declared type
	convTo    reflect.Type // temp scan type, set for scanIndirect only
	post      func(dst, src reflect.Value) error
}

// plan resolves (rt, rm, cols) to a cached scanPlan, building one on
// first use.
func (s *rowScanner) plan(rt reflect.Type, rm *ResultMap, cols []string) (*scanPlan, error) {
	h := fnv.New64a()
	normalized := make([]string, len(cols))
	for i, c := range cols {
		normalized[i] = normalizeColAscii(c)
		_, _ = h.Write([]byte(normalized[i]))
		_, _ = h.Write([]byte{0})
	}
	rmID := ""
	if rm != nil {
		rmID = rm.ID
	}
	key := scanPlanKey{rt: rt, rmID: rmID, colHash: h.Sum64(), ncols: len(cols)}
	if v, ok := s.plans.Load(key); ok {
		return v.(*scanPlan), nil
	}

	p := &scanPlan{rt: rt, isStruct: isStructType(rt), isScan: implementsScanner(rt)}

	switch {
	case p.isStruct:
		byCol := columnBindings(rt, rm)
		p.steps = make([]scanStep, len(normalized))
		for i, c := range normalized {
			b, ok := byCol[c]
			if !ok {
				p.steps[i] = scanStep{kind: scanDrop}
				continue
			}
			st, err := makeScanStep(b.prop, b.typ)
			if err != nil {
				return nil, err
			}
			p.steps[i] = st
		}
	case p.isScan:
		if len(cols) != 1 {
			return nil, fmt.Errorf("sqlmap: scanning %s requires exactly 1 column; got %d", rt, len(cols))
		}
		p.steps = []scanStep{{kind: scanWhole}}
	default:
		if len(cols) != 1 {
			return nil, fmt.Errorf("sqlmap: cannot map %d columns into %s; use a struct or a result map", len(cols), rt)
		}
		st, err := makeWholeScanStep(rt)
		if err != nil {
			return nil, err
		}
		p.steps = []scanStep{st}
	}

	actual, _ := s.plans.LoadOrStore(key, p)
	return actual.(*scanPlan), nil
}

// columnBinding is one normalized-column -> (property, type) entry.
type columnBinding struct {
	prop string
	typ  reflect.Type
}

// columnBindings derives a normalized-column -> columnBinding lookup
// from rm's mappings. Only when rm is nil does it fall back to rt's
// readable properties, keyed by the lower-cased property name — the
// "inline auto-map" rule; underscores are not stripped, and a column
// that a non-nil rm does not map is left unbound.
func columnBindings(rt reflect.Type, rm *ResultMap) map[string]columnBinding {
	out := make(map[string]columnBinding)
	cm := classMetaFor(rt)
	if rm != nil {
		for _, m := range rm.Mappings {
			if m.IsCompositeResult() || m.NestedResultMapID != "" || m.NestedSelectID != "" {
				continue
			}
			ft := m.FieldType
			if ft == nil {
				ft, _ = cm.GetterType(m.Property)
			}
			if ft == nil {
				continue // no way to know what Go type to scan this column into
			}
			out[normalizeColAscii(m.Column)] = columnBinding{prop: m.Property, typ: ft}
		}
		return out
	}
	for _, p := range cm.ReadableProperties() {
		ft, _ := cm.GetterType(p)
		out[toLowerAscii(p)] = columnBinding{prop: p, typ: ft}
	}
	return out
}

func makeScanStep(property string, ft reflect.Type) (scanStep, error) {
	if implementsScanner(ft) {
		return scanStep{kind: scanDirect, property: property, fieldType: ft}, nil
	}
	if convTo, post, ok := pickIndirect(ft); ok {
		return scanStep{kind: scanIndirect, property: property, fieldType: ft, convTo: convTo, post: post}, nil
	}
	return scanStep{kind: scanDirect, property: property, fieldType: ft}, nil
}

func makeWholeScanStep(t reflect.Type) (scanStep, error) {
	if convTo, post, ok := pickIndirect(t); ok {
		return scanStep{kind: scanIndirect, fieldType: t, convTo: convTo, post: post}, nil
	}
	return scanStep{kind: scanDirect, fieldType: t}, nil
}

// destPtrs allocates the scan targets for one row against target, an
// addressable value of p.rt (or *p.rt, for the whole-scanner case),
// and returns a cleanup closure that moves any indirect temporaries
// into their final properties via MetaClass.SetValue.
func (p *scanPlan) destPtrs(target reflect.Value) ([]any, func() error, error) {
	if !p.isStruct && p.steps[0].kind == scanWhole {
		return []any{target.Addr().Interface()}, func() error { return nil }, nil
	}
	if !p.isStruct {
		st := p.steps[0]
		switch st.kind {
		case scanDirect:
			return []any{target.Addr().Interface()}, func() error { return nil }, nil
		case scanIndirect:
			tmp := reflect.New(st.convTo).Elem()
			return []any{tmp.Addr().Interface()}, func() error { return st.post(target, tmp) }, nil
		default:
			var sink sql.RawBytes
			return []any{&sink}, func() error { return nil }, nil
		}
	}

	mc := NewMetaClass(p.rt)
	dests := make([]any, len(p.steps))
	var finals []func() error
	var sink sql.RawBytes

	for i, st := range p.steps {
		switch st.kind {
		case scanDrop:
			dests[i] = &sink
		case scanDirect:
			tmp := reflect.New(st.fieldType).Elem()
			property := st.property
			dests[i] = tmp.Addr().Interface()
			finals = append(finals, func() error {
				return mc.SetValue(target, property, tmp)
			})
		case scanIndirect:
			tmp := reflect.New(st.convTo).Elem()
			property := st.property
			fieldType := st.fieldType
			post := st.post
			dests[i] = tmp.Addr().Interface()
			finals = append(finals, func() error {
				dst := reflect.New(fieldType).Elem()
				if err := post(dst, tmp); err != nil {
					return err
				}
				return mc.SetValue(target, property, dst)
			})
		default:
			dests[i] = &sink
		}
	}

	cleanup := func() error {
		for _, f := range finals {
			if err := f(); err != nil {
				return err
			}
		}
		return nil
	}
	return dests, cleanup, nil
}

// scanRow scans the current row of rows into a new value of type T,
// consulting rm for column/property bindings when non-nil.
func scanRow[T any](s *rowScanner, rows *sql.Rows, rm *ResultMap) (T, error) {
	var zero T

	cols, err := rows.Columns()
	if err != nil {
		return zero, err
	}
	if len(cols) == 0 {
		return zero, fmt.Errorf("sqlmap: query returned zero columns")
	}

	rt := reflect.TypeOf((*T)(nil)).Elem()
	pl, err := s.plan(rt, rm, cols)
	if err != nil {
		return zero, err
	}

	rv := reflect.New(derefPtr(rt))
	dests, cleanup, err := pl.destPtrs(rv.Elem())
	if err != nil {
		return zero, err
	}
	if err := rows.Scan(dests...); err != nil {
		return zero, err
	}
	if err := cleanup(); err != nil {
		return zero, err
	}

	if rt.Kind() == reflect.Ptr {
		return rv.Interface().(T), nil
	}
	return rv.Elem().Interface().(T), nil
}

func isStructType(t reflect.Type) bool { return derefPtr(t).Kind() == reflect.Struct }

func implementsScanner(t reflect.Type) bool {
	scanner := reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	return reflect.PointerTo(derefPtr(t)).Implements(scanner)
}

// pickIndirect returns a temporary scan type and a post-assignment
// function converting from that temporary into dstType, for the shapes
// database/sql cannot scan into directly:
//   - []byte -> string (builtin string only)
//   - numeric widenings for builtin primitives (int*/uint*/float*)
//   - named types whose underlying type is a primitive, including
//     through one or more pointer layers
func pickIndirect(dstType reflect.Type) (reflect.Type, func(dst, src reflect.Value) error, bool) {
	dt := dstType
	base := derefPtr(dstType)

	if base == reflect.TypeOf("") && dt.Kind() != reflect.Ptr {
		tmp := reflect.TypeOf([]byte(nil))
		return tmp, func(dst, src reflect.Value) error {
			if src.IsNil() {
				dst.SetString("")
				return nil
			}
			dst.SetString(string(src.Bytes()))
			return nil
		}, true
	}

	if dt == base {
		switch base.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			tmp := reflect.TypeOf(int64(0))
			return tmp, func(dst, src reflect.Value) error { dst.SetInt(src.Int()); return nil }, true
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			tmp := reflect.TypeOf(uint64(0))
			return tmp, func(dst, src reflect.Value) error { dst.SetUint(src.Uint()); return nil }, true
		case reflect.Float32, reflect.Float64:
			tmp := reflect.TypeOf(float64(0))
			return tmp, func(dst, src reflect.Value) error { dst.SetFloat(src.Float()); return nil }, true
		}
	}

	under := dt
	ptrCount := 0
	for under.Kind() == reflect.Ptr {
		under = under.Elem()
		ptrCount++
	}

	if under.Kind() != reflect.Struct {
		switch under.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			tmp := reflect.TypeOf(int64(0))
			return tmp, func(dst, src reflect.Value) error {
				val := reflect.New(under).Elem()
				val.SetInt(src.Int())
				return assignWithPointers(dst, val, dt, ptrCount)
			}, true
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			tmp := reflect.TypeOf(uint64(0))
			return tmp, func(dst, src reflect.Value) error {
				val := reflect.New(under).Elem()
				val.SetUint(src.Uint())
				return assignWithPointers(dst, val, dt, ptrCount)
			}, true
		case reflect.Float32, reflect.Float64:
			tmp := reflect.TypeOf(float64(0))
			return tmp, func(dst, src reflect.Value) error {
				val := reflect.New(under).Elem()
				val.SetFloat(src.Float())
				return assignWithPointers(dst, val, dt, ptrCount)
			}, true
		case reflect.String:
			tmp := reflect.TypeOf("")
			return tmp, func(dst, src reflect.Value) error {
				val := reflect.New(under).Elem()
				val.SetString(src.String())
				return assignWithPointers(dst, val, dt, ptrCount)
			}, true
		}
	}

	return nil, nil, false
}

// assignWithPointers converts val to dt, re-applying ptrCount pointer
// layers before the final Convert.
func assignWithPointers(dst, val reflect.Value, dt reflect.Type, ptrCount int) error {
	if ptrCount <= 0 {
		dst.Set(val.Convert(dt))
		return nil
	}
	cur := val.Addr()
	for i := 1; i < ptrCount; i++ {
		tmp := reflect.New(cur.Type())
		tmp.Elem().Set(cur)
		cur = tmp
	}
	dst.Set(cur.Convert(dt))
	return nil
}

// normalizeColAscii strips a single layer of SQL identifier quoting
// ("...", `...`, [...]) and lower-cases the result, matching how
// ResultMapping.Column and struct property names are compared.
func normalizeColAscii(s string) string {
	if l := len(s); l >= 2 {
		switch s[0] {
		case '"':
			if s[l-1] == '"' {
				s = s[1 : l-1]
			}
		case '`':
			if s[l-1] == '`' {
				s = s[1 : l-1]
			}
		case '[':
			if s[l-1] == ']' {
				s = s[1 : l-1]
			}
		}
	}
	return toLowerAscii(s)
}
