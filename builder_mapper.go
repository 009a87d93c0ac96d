package sqlmap

import (
	"encoding/xml"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// XMLMapperBuilder parses one namespace's mapper document against a
// shared Configuration. Unlike the root document, element order within
// <mapper> carries no mandated sequence of its own in the source XML,
// so this builder decodes the whole element in one Unmarshal and then
// walks its children in a fixed processing order.
type XMLMapperBuilder struct {
	config    *Configuration
	resource  string
	assistant *MapperBuilderAssistant
	sqlFragments map[string]string // localId (unqualified) -> raw inner XML, after databaseId filtering
}

// NewXMLMapperBuilder returns a builder for one mapper document read
// from resource (used only for error messages and the resource-loaded
// idempotence guard).
func NewXMLMapperBuilder(config *Configuration, resource string) *XMLMapperBuilder {
	return &XMLMapperBuilder{
		config:       config,
		resource:     resource,
		assistant:    NewMapperBuilderAssistant(config, resource),
		sqlFragments: make(map[string]string),
	}
}

// Parse decodes data as a <mapper> document and runs a fixed
// processing order: namespace, cache-ref, cache, parameterMap, sql
// fragments, resultMap, statements. It does not bind the namespace to a
// mapper type; Configuration.BindMapper records such a binding only
// when called explicitly.
func (b *XMLMapperBuilder) Parse(data []byte) error {
	if b.config.IsResourceLoaded(b.resource) {
		return nil
	}
	var doc mapperDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return &BuilderError{Resource: b.resource, Message: "malformed mapper document", Err: err}
	}
	if err := b.assistant.SetNamespace(doc.Namespace); err != nil {
		return err
	}

	if doc.CacheRef != nil {
		b.assistant.UseCacheRef()
		if err := b.assistant.AddCacheRef(doc.CacheRef.Namespace); err != nil {
			return err
		}
	}

	if doc.Cache != nil {
		if err := b.buildCache(doc.Cache); err != nil {
			return err
		}
	}

	for _, pm := range doc.ParameterMap {
		if err := b.parseParameterMap(pm); err != nil {
			return err
		}
	}

	b.collectSQLFragments(doc.SQL)

	for _, rm := range doc.ResultMap {
		b.parseResultMap(rm)
	}

	for _, s := range doc.Select {
		b.parseStatement(s, SQLSelect)
	}
	for _, s := range doc.Insert {
		b.parseStatement(s, SQLInsert)
	}
	for _, s := range doc.Update {
		b.parseStatement(s, SQLUpdate)
	}
	for _, s := range doc.Delete {
		b.parseStatement(s, SQLDelete)
	}

	b.config.MarkResourceLoaded(b.resource)
	return b.config.DrainPending()
}

// SQLFragments returns the raw inner XML of every <sql> fragment this
// document declared, keyed by its local (unqualified) id and already
// filtered by database id. Assembling dynamic SQL from these fragments
// (resolving <include refid="..."/> and friends) is a separate
// concern; this builder's responsibility ends at making the filtered
// fragment text available.
func (b *XMLMapperBuilder) SQLFragments() map[string]string { return b.sqlFragments }

func (b *XMLMapperBuilder) buildCache(el *cacheElem) error {
	props := make(map[string]string, len(el.Property))
	for _, p := range el.Property {
		props[p.Name] = p.Value
	}
	builder := NewCacheBuilder(b.assistant.Namespace()).WithProperties(props)
	if el.Size != "" {
		if n, err := strconv.Atoi(el.Size); err == nil {
			builder.WithSize(n)
		}
	}
	if el.FlushInterval != "" {
		if ms, err := strconv.Atoi(el.FlushInterval); err == nil {
			builder.WithFlushInterval(time.Duration(ms) * time.Millisecond)
		}
	}
	if el.ReadWrite != "" {
		if rw, err := strconv.ParseBool(el.ReadWrite); err == nil {
			builder.WithReadWrite(rw)
		}
	}
	if el.Blocking != "" {
		if blk, err := strconv.ParseBool(el.Blocking); err == nil {
			builder.WithBlocking(blk)
		}
	}
	if b.config.Settings.CacheEnabled {
		builder.WithLogging(b.config.Log)
	}
	b.assistant.BuildCache(builder)
	return nil
}

func (b *XMLMapperBuilder) parseParameterMap(el parameterMapElem) error {
	typ, err := resolveTypeName(b.config, el.Type)
	if err != nil {
		return err
	}
	mappings := make([]ParameterMapping, 0, len(el.Parameter))
	for _, p := range el.Parameter {
		ft, err := resolveTypeName(b.config, p.JavaType)
		if err != nil {
			ft = nil
		}
		mappings = append(mappings, ParameterMapping{
			Property:    p.Property,
			FieldType:   ft,
			JDBCType:    p.JDBCType,
			TypeHandler: p.TypeHandler,
			Mode:        parseParameterMode(p.Mode),
			NumericScale: atoiOr(p.Scale, 0),
		})
	}
	qualifiedID, err := b.assistant.ApplyCurrentNamespace(el.ID, false)
	if err != nil {
		return err
	}
	return b.config.AddParameterMap(&ParameterMap{ID: qualifiedID, Type: typ, Mappings: mappings})
}

func parseParameterMode(mode string) ParameterMode {
	switch strings.ToUpper(mode) {
	case "OUT":
		return ParameterOut
	case "INOUT":
		return ParameterInOut
	default:
		return ParameterIn
	}
}

// collectSQLFragments applies databaseId filtering: a
// fragment with a databaseId is kept only if it matches the
// configuration's current database id; a fragment without one is kept
// unless a same-id fragment specifying the current database id also
// exists, in which case the latter wins.
func (b *XMLMapperBuilder) collectSQLFragments(frags []sqlFragmentElem) {
	current := b.config.DatabaseID
	byID := make(map[string]sqlFragmentElem)
	for _, f := range frags {
		if f.DatabaseID != "" && f.DatabaseID != current {
			continue
		}
		existing, ok := byID[f.ID]
		if ok && existing.DatabaseID == "" && f.DatabaseID == current && current != "" {
			byID[f.ID] = f
			continue
		}
		if !ok {
			byID[f.ID] = f
		}
	}
	for id, f := range byID {
		b.sqlFragments[id] = f.Raw
	}
}

func (b *XMLMapperBuilder) parseResultMap(el resultMapElem) {
	build := func() (*ResultMap, error) {
		typ, err := resolveTypeName(b.config, el.Type)
		if err != nil {
			return nil, err
		}
		var mappings []ResultMapping
		if el.Constructor != nil {
			for _, a := range el.Constructor.IDArg {
				mappings = append(mappings, b.toResultMapping(a, ResultFlagID|ResultFlagConstructor))
			}
			for _, a := range el.Constructor.Arg {
				mappings = append(mappings, b.toResultMapping(a, ResultFlagConstructor))
			}
		}
		for _, r := range el.ID_ {
			mappings = append(mappings, b.toResultMapping(r, ResultFlagID))
		}
		for _, r := range el.Result {
			mappings = append(mappings, b.toResultMapping(r, 0))
		}
		var disc *Discriminator
		if el.Discriminator != nil {
			disc = &Discriminator{Column: el.Discriminator.Column, Cases: make(map[string]string, len(el.Discriminator.Case))}
			for _, c := range el.Discriminator.Case {
				qualified, err := b.assistant.ApplyCurrentNamespace(c.ResultMap, true)
				if err != nil {
					return nil, err
				}
				disc.Cases[c.Value] = qualified
			}
		}
		return b.assistant.AddResultMap(el.ID, el.Extends, typ, mappings, disc)
	}
	if _, err := build(); err != nil {
		var fre *ForwardReferenceError
		if asForwardReferenceError(err, &fre) {
			qualifiedID, qerr := b.assistant.ApplyCurrentNamespace(el.ID, false)
			if qerr != nil {
				qualifiedID = el.ID
			}
			b.assistant.EnqueueResultMap(qualifiedID, build)
		}
	}
}

func (b *XMLMapperBuilder) toResultMapping(el resultElem, flags ResultFlag) ResultMapping {
	var composite []ResultMapping
	if strings.HasPrefix(strings.TrimSpace(el.Column), "{") {
		if cols, err := parseCompositeColumnName(el.Column); err == nil {
			for _, c := range cols {
				composite = append(composite, ResultMapping{Property: c.Property, Column: c.Column})
			}
		}
	}
	ft, _ := resolveTypeName(b.config, el.JavaType)
	nestedResultMapID := ""
	if el.ResultMap != "" {
		if qualified, err := b.assistant.ApplyCurrentNamespace(el.ResultMap, true); err == nil {
			nestedResultMapID = qualified
		}
	}
	nestedSelectID := ""
	if el.Select != "" {
		if qualified, err := b.assistant.ApplyCurrentNamespace(el.Select, true); err == nil {
			nestedSelectID = qualified
		}
	}
	var notNull []string
	if el.NotNullColumn != "" {
		notNull = splitCommaTrim(el.NotNullColumn)
	}
	return ResultMapping{
		Property:          el.Property,
		Column:            el.Column,
		FieldType:         ft,
		JDBCType:          el.JDBCType,
		TypeHandler:       el.TypeHandler,
		NestedSelectID:    nestedSelectID,
		NestedResultMapID: nestedResultMapID,
		Flags:             flags,
		Composite:         composite,
		NotNullColumns:    notNull,
		ColumnPrefix:      el.ColumnPrefix,
		ForeignColumn:     el.ForeignColumn,
		Lazy:              el.Lazy == "lazy",
	}
}

// parseStatement runs the "two passes" rule over a single
// statement element: first filtered by the current database id, then
// (when the element itself carries no databaseId) unconditionally. In
// this builder the two passes collapse to one decision since each
// element is visited exactly once: the filter below drops statements
// for another database, and Configuration.AddMappedStatement lets a
// statement tagged with the current database id win over an untagged
// one of the same id, in either document order.
func (b *XMLMapperBuilder) parseStatement(el statementElem, cmd SQLCommandType) {
	if el.DatabaseID != "" && el.DatabaseID != b.config.DatabaseID {
		return
	}
	build := func() (*MappedStatement, error) {
		var resultType, parameterType reflect.Type
		if rt, err := resolveTypeName(b.config, el.ResultType); err == nil {
			resultType = rt
		}
		if pt, err := resolveTypeName(b.config, el.ParameterType); err == nil {
			parameterType = pt
		}
		opts := MappedStatementOptions{
			SQL:              cleanStatementSQL(el.Raw, b.config.Settings.ShrinkWhitespacesInSQL),
			FetchSize:        atoiOr(el.FetchSize, 0),
			Timeout:          atoiOr(el.Timeout, 0),
			FlushCacheOnExec: parseBoolOr(el.FlushCache, cmd != SQLSelect),
			UseCache:         parseBoolOr(el.UseCache, cmd == SQLSelect),
			KeyProperty:      splitCommaTrim(el.KeyProperty),
			KeyColumn:        splitCommaTrim(el.KeyColumn),
			DatabaseID:       el.DatabaseID,
			ResultOrdered:    parseBoolOr(el.ResultOrdered, false),
			ResultSets:       splitCommaTrim(el.ResultSets),
			ResultSetType:    parseResultSetType(el.ResultSetType),
		}
		return b.assistant.AddMappedStatement(
			el.ID, cmd, parseStatementKind(el.StatementType),
			el.ResultMap, resultType, el.ParameterMap, parameterType, opts,
		)
	}
	if _, err := build(); err != nil {
		var fre *ForwardReferenceError
		if asForwardReferenceError(err, &fre) {
			qualifiedID, qerr := b.assistant.ApplyCurrentNamespace(el.ID, false)
			if qerr != nil {
				qualifiedID = el.ID
			}
			work := &statementWork{id: qualifiedID, rebuild: build}
			resolve := func(w *statementWork) error {
				_, err := w.rebuild()
				return err
			}
			b.config.pendingStatements.Enqueue(work, resolve)
		}
	}
}

func parseStatementKind(v string) StatementKind {
	switch strings.ToUpper(v) {
	case "PREPARED":
		return StatementPrepared
	case "CALLABLE":
		return StatementCallable
	default:
		return StatementStatement
	}
}

func parseResultSetType(v string) ResultSetType {
	switch strings.ToUpper(v) {
	case "FORWARD_ONLY":
		return ResultSetForwardOnly
	case "SCROLL_INSENSITIVE":
		return ResultSetScrollInsensitive
	case "SCROLL_SENSITIVE":
		return ResultSetScrollSensitive
	default:
		return ResultSetDefault
	}
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseBoolOr(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

