package sqlmap

import (
	"reflect"
	"strings"
)

// MapperBuilderAssistant carries the per-document state a mapper parse
// accumulates as it walks one namespace's elements: the bound
// namespace, the current database id filter, and the cache (if any)
// statements in this namespace should attach to. One assistant is
// created per mapper document and discarded once parsing of that
// document (and any later pending-queue drain touching it) completes.
type MapperBuilderAssistant struct {
	config      *Configuration
	resource    string
	namespace   string
	currentCache Cache
	unresolvedCacheRef bool
}

// NewMapperBuilderAssistant returns an assistant bound to no namespace
// yet; SetNamespace must be called before anything else.
func NewMapperBuilderAssistant(config *Configuration, resource string) *MapperBuilderAssistant {
	return &MapperBuilderAssistant{config: config, resource: resource}
}

// SetNamespace binds the assistant to namespace. Calling it a second
// time with a different value is a BuilderError: changing the
// namespace of an already-bound assistant is not allowed.
func (a *MapperBuilderAssistant) SetNamespace(namespace string) error {
	if namespace == "" {
		return &BuilderError{Resource: a.resource, Message: "mapper element requires a namespace attribute"}
	}
	if a.namespace != "" && a.namespace != namespace {
		return &BuilderError{Resource: a.resource, Message: "cannot change namespace from '" + a.namespace + "' to '" + namespace + "'"}
	}
	a.namespace = namespace
	return nil
}

func (a *MapperBuilderAssistant) Namespace() string { return a.namespace }

// ApplyCurrentNamespace normalizes id to namespace.localId. A
// reference (isReference == true)
// already containing a dot passes through unchanged; a definition
// containing a dot is rejected outright.
func (a *MapperBuilderAssistant) ApplyCurrentNamespace(id string, isReference bool) (string, error) {
	if id == "" {
		return "", &BuilderError{Resource: a.resource, Message: "empty id in namespace '" + a.namespace + "'"}
	}
	if strings.Contains(id, ".") {
		if isReference {
			return id, nil
		}
		return "", &BuilderError{Resource: a.resource, Message: "id '" + id + "' must not contain '.' when used as a definition"}
	}
	if a.namespace == "" {
		return "", &BuilderError{Resource: a.resource, Message: "namespace is required to qualify id '" + id + "'"}
	}
	return a.namespace + "." + id, nil
}

// cacheRefWork is the unit of pending-queue work for a <cache-ref>: the
// namespace declaring the reference and the namespace it points at.
type cacheRefWork struct {
	namespace string
	target    string
}

// AddCacheRef records that a.namespace shares its cache with
// targetNamespace, resolving immediately if possible and enqueueing to
// the configuration's pending-cache-refs queue otherwise.
func (a *MapperBuilderAssistant) AddCacheRef(targetNamespace string) error {
	a.config.AddCacheRef(a.namespace, targetNamespace)
	work := &cacheRefWork{namespace: a.namespace, target: targetNamespace}
	resolve := func(w *cacheRefWork) error { return a.resolveCacheRef(w) }
	return a.config.pendingCacheRefs.TryResolve(work, resolve)
}

func (a *MapperBuilderAssistant) resolveCacheRef(w *cacheRefWork) error {
	cache, ok := a.config.Cache(w.target)
	if !ok {
		return &ForwardReferenceError{Reference: "cache-ref " + w.namespace + " -> " + w.target}
	}
	a.config.AddCache(w.namespace, cache)
	if w.namespace == a.namespace {
		a.currentCache = cache
		a.unresolvedCacheRef = false
	}
	return nil
}

// UseCacheRef marks this document's namespace as still waiting on its
// cache-ref resolution; addMappedStatement consults this to decide
// whether to enqueue statements instead of building them immediately.
func (a *MapperBuilderAssistant) UseCacheRef() { a.unresolvedCacheRef = true }

// BuildCache constructs and registers this namespace's own <cache>,
// distinct from a <cache-ref> to another namespace.
func (a *MapperBuilderAssistant) BuildCache(builder *CacheBuilder) Cache {
	cache := builder.Build()
	a.config.AddCache(a.namespace, cache)
	a.currentCache = cache
	return cache
}

// resultMapWork is the unit of pending-queue work for a <resultMap>: the
// id and a thunk that attempts (re-)building it, set up by the mapper
// parser which alone knows how to decode the element's children.
type resultMapWork struct {
	id      string
	rebuild func() (*ResultMap, error)
}

// AddResultMap resolves id's extends parent (if any) via resolveParent,
// merges parent mappings per mergeResultMapParent, constructs the
// ResultMap, and registers it. A missing parent raises
// ForwardReferenceError, which the caller (the mapper parser) is
// expected to catch and enqueue via EnqueueResultMap.
func (a *MapperBuilderAssistant) AddResultMap(id, extendsID string, typ reflect.Type, mappings []ResultMapping, disc *Discriminator) (*ResultMap, error) {
	qualifiedID, err := a.ApplyCurrentNamespace(id, false)
	if err != nil {
		return nil, err
	}
	if extendsID != "" {
		qualifiedExtends, err := a.ApplyCurrentNamespace(extendsID, true)
		if err != nil {
			return nil, err
		}
		parent, ok := a.config.ResultMap(qualifiedExtends)
		if !ok {
			return nil, &ForwardReferenceError{Reference: "resultMap " + qualifiedID + " extends " + qualifiedExtends}
		}
		mappings = mergeResultMapParent(parent, mappings)
	}
	rm := NewResultMap(qualifiedID, typ, mappings, disc)
	if err := a.config.AddResultMap(rm); err != nil {
		return nil, err
	}
	return rm, nil
}

// EnqueueResultMap enqueues rebuild (a closure over the element's
// decoded children, capturing whatever it needs to retry) onto the
// pending-result-maps queue after a ForwardReferenceError.
func (a *MapperBuilderAssistant) EnqueueResultMap(id string, rebuild func() (*ResultMap, error)) {
	work := &resultMapWork{id: id, rebuild: rebuild}
	resolve := func(w *resultMapWork) error {
		_, err := w.rebuild()
		return err
	}
	a.config.pendingResultMaps.Enqueue(work, resolve)
}

// statementWork is the unit of pending-queue work for a mapped
// statement.
type statementWork struct {
	id      string
	rebuild func() (*MappedStatement, error)
}

// AddMappedStatement gates on the namespace's cache-ref: if the
// current mapper's cache reference has not yet resolved, statement
// construction raises ForwardReferenceError and is enqueued.
// Otherwise it attaches the current namespace's cache (if any),
// resolves the result-map id list, synthesizes or resolves the
// parameter map, and registers the statement.
func (a *MapperBuilderAssistant) AddMappedStatement(
	id string,
	sqlCommandType SQLCommandType,
	statementKind StatementKind,
	resultMapRefs string, // comma-separated ids, or "" for inline auto-map
	resultType reflect.Type,
	parameterMapRef string, // explicit parameterMap id, or "" for inline/parameterType
	parameterType reflect.Type,
	opts MappedStatementOptions,
) (*MappedStatement, error) {
	if a.unresolvedCacheRef {
		return nil, &ForwardReferenceError{Reference: "mapped statement " + id + " awaiting cache-ref for namespace " + a.namespace}
	}
	qualifiedID, err := a.ApplyCurrentNamespace(id, false)
	if err != nil {
		return nil, err
	}

	resultMapIDs, err := a.resolveResultMapIDs(qualifiedID, resultMapRefs, resultType)
	if err != nil {
		return nil, err
	}

	parameterMapID, err := a.resolveParameterMapID(qualifiedID, parameterMapRef, parameterType)
	if err != nil {
		return nil, err
	}

	ms := &MappedStatement{
		ID:               qualifiedID,
		Resource:         a.resource,
		SQL:              opts.SQL,
		SQLCommandType:   sqlCommandType,
		StatementKind:    statementKind,
		ParameterMapID:   parameterMapID,
		ResultMapIDs:     resultMapIDs,
		FetchSize:        opts.FetchSize,
		Timeout:          opts.Timeout,
		FlushCacheOnExec: opts.FlushCacheOnExec,
		UseCache:         opts.UseCache,
		KeyProperty:      opts.KeyProperty,
		KeyColumn:        opts.KeyColumn,
		DatabaseID:       opts.DatabaseID,
		Cache:            a.currentCache,
		ResultOrdered:    opts.ResultOrdered,
		ResultSets:       opts.ResultSets,
		ResultSetType:    opts.ResultSetType,
	}
	if err := a.config.AddMappedStatement(ms); err != nil {
		return nil, err
	}
	return ms, nil
}

// MappedStatementOptions carries the non-identifying statement
// attributes, grouped to keep AddMappedStatement's signature
// from growing without bound as more attributes are recognized.
type MappedStatementOptions struct {
	SQL              string
	FetchSize        int
	Timeout          int
	FlushCacheOnExec bool
	UseCache         bool
	KeyProperty      []string
	KeyColumn        []string
	DatabaseID       string
	ResultOrdered    bool
	ResultSets       []string
	ResultSetType    ResultSetType
}

func (a *MapperBuilderAssistant) resolveResultMapIDs(qualifiedStatementID, resultMapRefs string, resultType reflect.Type) ([]string, error) {
	if resultMapRefs == "" {
		if resultType == nil {
			return nil, nil
		}
		inlineID := qualifiedStatementID + "-Inline"
		if _, ok := a.config.ResultMap(inlineID); !ok {
			rm := NewResultMap(inlineID, resultType, autoMapMappings(resultType), nil)
			if err := a.config.AddResultMap(rm); err != nil {
				return nil, err
			}
		}
		return []string{inlineID}, nil
	}
	parts := splitCommaTrim(resultMapRefs)
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		qualified, err := a.ApplyCurrentNamespace(p, true)
		if err != nil {
			return nil, err
		}
		if _, ok := a.config.ResultMap(qualified); !ok {
			return nil, &ForwardReferenceError{Reference: "resultMap " + qualified}
		}
		ids = append(ids, qualified)
	}
	return ids, nil
}

// autoMapMappings synthesizes a flat ResultMap from resultType's
// readable properties: the "inline auto-map" path for statements with
// no explicit resultMap.
func autoMapMappings(resultType reflect.Type) []ResultMapping {
	cm := classMetaFor(derefPtr(resultType))
	props := cm.ReadableProperties()
	mappings := make([]ResultMapping, 0, len(props))
	for _, p := range props {
		t, _ := cm.GetterType(p)
		mappings = append(mappings, ResultMapping{Property: p, Column: p, FieldType: t})
	}
	return mappings
}

func (a *MapperBuilderAssistant) resolveParameterMapID(qualifiedStatementID, parameterMapRef string, parameterType reflect.Type) (string, error) {
	if parameterMapRef != "" {
		qualified, err := a.ApplyCurrentNamespace(parameterMapRef, true)
		if err != nil {
			return "", err
		}
		if _, ok := a.config.ParameterMap(qualified); !ok {
			return "", &ForwardReferenceError{Reference: "parameterMap " + qualified}
		}
		return qualified, nil
	}
	inlineID := inlineParameterMapID(qualifiedStatementID)
	var mappings []ParameterMapping
	if parameterType != nil {
		mappings = autoMapParameterMappings(parameterType)
	}
	pm := &ParameterMap{ID: inlineID, Type: parameterType, Mappings: mappings}
	if err := a.config.AddParameterMap(pm); err != nil {
		return "", err
	}
	return inlineID, nil
}

func autoMapParameterMappings(parameterType reflect.Type) []ParameterMapping {
	cm := classMetaFor(derefPtr(parameterType))
	props := cm.WritableProperties()
	mappings := make([]ParameterMapping, 0, len(props))
	for _, p := range props {
		t, _ := cm.SetterType(p)
		mappings = append(mappings, ParameterMapping{Property: p, FieldType: t, Mode: ParameterIn})
	}
	return mappings
}

// parseCompositeColumnName parses a "{prop=col,prop2=col2}" composite
// key expression. Per the decision recorded in DESIGN.md, a malformed
// token (one without exactly one '=') is rejected with a BuilderError
// rather than silently dropped.
func parseCompositeColumnName(expr string) ([]compositeColumn, error) {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimPrefix(expr, "{")
	expr = strings.TrimSuffix(expr, "}")
	if expr == "" {
		return nil, nil
	}
	tokens := strings.Split(expr, ",")
	out := make([]compositeColumn, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		eq := strings.IndexByte(tok, '=')
		if eq < 0 || strings.IndexByte(tok[eq+1:], '=') >= 0 {
			return nil, &BuilderError{Message: "malformed composite column token '" + tok + "', expected exactly one '='"}
		}
		out = append(out, compositeColumn{
			Property: strings.TrimSpace(tok[:eq]),
			Column:   strings.TrimSpace(tok[eq+1:]),
		})
	}
	return out, nil
}

type compositeColumn struct {
	Property string
	Column   string
}
