package sqlmap

import "reflect"

// ResultFlag marks a bit of extra meaning a ResultMapping carries beyond
// a plain column-to-property binding.
type ResultFlag uint8

const (
	// ResultFlagID marks a mapping as part of the row's identity,
	// consulted by comparison/caching paths that need a stable key.
	ResultFlagID ResultFlag = 1 << iota
	// ResultFlagConstructor marks a mapping as feeding a constructor
	// argument rather than a post-construction setter.
	ResultFlagConstructor
)

// Has reports whether f includes flag.
func (f ResultFlag) Has(flag ResultFlag) bool { return f&flag != 0 }

// ResultMapping binds one result column to one destination property (or
// constructor argument). Column/Property are as declared; NestedSelectID
// and NestedResultMapID are mutually informative ways to populate a
// property from a related query or a nested block of the same row set.
type ResultMapping struct {
	Property          string
	Column            string
	FieldType         reflect.Type
	JDBCType          string
	TypeHandler       string
	NestedSelectID    string
	NestedResultMapID string
	Flags             ResultFlag
	Composite         []ResultMapping // multi-column foreign/composite keys
	NotNullColumns    []string
	ColumnPrefix      string
	ForeignColumn     string
	Lazy              bool
}

// IsCompositeResult reports whether m aggregates multiple columns
// (IN (m.Composite) is non-empty) rather than binding a single column.
func (m ResultMapping) IsCompositeResult() bool { return len(m.Composite) > 0 }

// Discriminator picks a nested ResultMap id based on the value of one
// column, falling back to no sub-map when the value is absent from Cases.
type Discriminator struct {
	Column string
	Cases  map[string]string // discriminator value -> result-map id
}

// ResultMap is the fully-resolved, immutable shape produced by the
// builder for one <resultMap> element (after any extends merge has been
// applied — see mergeResultMapParent).
type ResultMap struct {
	ID             string
	Type           reflect.Type
	Mappings       []ResultMapping
	Discriminator  *Discriminator
	HasNestedMaps  bool
	ConstructorArg []ResultMapping // subset of Mappings flagged Constructor, in declared order
	IDMappings     []ResultMapping // subset of Mappings flagged ID
}

// NewResultMap derives the constructor/ID sub-slices from mappings and
// freezes the result; callers should treat the returned value as
// read-only from this point on.
func NewResultMap(id string, typ reflect.Type, mappings []ResultMapping, disc *Discriminator) *ResultMap {
	rm := &ResultMap{ID: id, Type: typ, Mappings: mappings, Discriminator: disc}
	for _, m := range mappings {
		if m.Flags.Has(ResultFlagConstructor) {
			rm.ConstructorArg = append(rm.ConstructorArg, m)
		}
		if m.Flags.Has(ResultFlagID) {
			rm.IDMappings = append(rm.IDMappings, m)
		}
		if m.NestedResultMapID != "" {
			rm.HasNestedMaps = true
		}
	}
	return rm
}

// mergeResultMapParent implements the extends rule: parent mappings are
// prepended ahead of the child's own, minus any the child redeclares by
// property name; if the child declares any constructor mapping, every
// parent constructor mapping is dropped outright rather than merged.
func mergeResultMapParent(parent *ResultMap, childMappings []ResultMapping) []ResultMapping {
	childHasConstructor := false
	childProps := make(map[string]bool, len(childMappings))
	for _, m := range childMappings {
		childProps[m.Property] = true
		if m.Flags.Has(ResultFlagConstructor) {
			childHasConstructor = true
		}
	}
	merged := make([]ResultMapping, 0, len(parent.Mappings)+len(childMappings))
	for _, pm := range parent.Mappings {
		if pm.Flags.Has(ResultFlagConstructor) && childHasConstructor {
			continue
		}
		if childProps[pm.Property] {
			continue
		}
		merged = append(merged, pm)
	}
	merged = append(merged, childMappings...)
	return merged
}

// ParameterMapping is ResultMapping's write-side counterpart: binds one
// placeholder in a statement's parameter map to a host-object property.
type ParameterMapping struct {
	Property    string
	FieldType   reflect.Type
	JDBCType    string
	TypeHandler string
	Mode        ParameterMode
	NumericScale int
	ResultMapID string // for OUT cursor parameters bound back to a result map
}

// ParameterMap is the fully-resolved, immutable shape produced by the
// builder for one <parameterMap> element or an inline auto-map.
type ParameterMap struct {
	ID       string
	Type     reflect.Type
	Mappings []ParameterMapping
}

// inlineParameterMapID derives the synthetic id the builder assigns a
// statement's own implicit parameter map: "statementId-Inline".
func inlineParameterMapID(statementID string) string { return statementID + "-Inline" }

// MappedStatement is the fully-resolved, immutable description of one
// <select|insert|update|delete> element.
type MappedStatement struct {
	ID               string
	Resource         string
	SQL              string // static statement text, #{property}/${property} tokens intact
	SQLCommandType   SQLCommandType
	StatementKind    StatementKind
	ParameterMapID   string
	ResultMapIDs     []string
	FetchSize        int
	Timeout          int
	FlushCacheOnExec bool
	UseCache         bool
	KeyGenerator     bool
	KeyProperty      []string
	KeyColumn        []string
	DatabaseID       string
	Cache            Cache
	ResultOrdered    bool
	ResultSets       []string
	ResultSetType    ResultSetType
	DirtySelect      bool
}

// IsSelect reports whether the statement is a SELECT, the only kind
// whose result is read back into host objects via a ResultMap.
func (s *MappedStatement) IsSelect() bool { return s.SQLCommandType == SQLSelect }
