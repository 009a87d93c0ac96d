package sqlmap

import (
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Configuration is the process-wide registry: every
// mapped statement, result map, parameter map, and cache produced by a
// builder run, plus the pending queues that tolerate forward references
// until the whole document set has been parsed. It carries no
// module-level singleton; callers construct one with
// NewConfiguration and thread it through their own call graph.
type Configuration struct {
	mu sync.RWMutex

	statements    map[string]*MappedStatement
	resultMaps    map[string]*ResultMap
	parameterMaps map[string]*ParameterMap
	caches        map[string]Cache
	cacheRefMap   map[string]string // namespace -> namespace it shares a cache with
	loadedResources map[string]bool

	pendingResultMaps *pendingQueue[*resultMapWork]
	pendingCacheRefs  *pendingQueue[*cacheRefWork]
	pendingStatements *pendingQueue[*statementWork]

	Settings  Settings
	Aliases   *TypeAliasRegistry
	Log       logger
	DatabaseID string

	mapperRegistry map[string]reflect.Type // namespace -> bound mapper interface/struct type
}

// NewConfiguration returns an empty Configuration with default settings
// and a pre-seeded type-alias registry.
func NewConfiguration() *Configuration {
	return &Configuration{
		statements:      make(map[string]*MappedStatement),
		resultMaps:      make(map[string]*ResultMap),
		parameterMaps:   make(map[string]*ParameterMap),
		caches:          make(map[string]Cache),
		cacheRefMap:     make(map[string]string),
		loadedResources: make(map[string]bool),

		pendingResultMaps: newPendingQueue[*resultMapWork](),
		pendingCacheRefs:  newPendingQueue[*cacheRefWork](),
		pendingStatements: newPendingQueue[*statementWork](),

		Settings: DefaultSettings(),
		Aliases:  newTypeAliasRegistry(),
		Log:      defaultLogger(),

		mapperRegistry: make(map[string]reflect.Type),
	}
}

// IsResourceLoaded reports whether resource has already been parsed,
// the idempotence guard every builder checks before reparsing.
func (c *Configuration) IsResourceLoaded(resource string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedResources[resource]
}

// MarkResourceLoaded records resource as parsed.
func (c *Configuration) MarkResourceLoaded(resource string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadedResources[resource] = true
}

// AddResultMap registers rm under its own id. A re-registration with an
// unequal value is a BuilderError; with an equal one it is a no-op.
func (c *Configuration) AddResultMap(rm *ResultMap) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.resultMaps[rm.ID]; ok {
		if resultMapsEqual(existing, rm) {
			return nil
		}
		return &BuilderError{Message: "result map '" + rm.ID + "' already registered with a different definition"}
	}
	c.resultMaps[rm.ID] = rm
	return nil
}

func (c *Configuration) ResultMap(id string) (*ResultMap, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rm, ok := c.resultMaps[id]
	return rm, ok
}

func resultMapsEqual(a, b *ResultMap) bool {
	return a.Type == b.Type && len(a.Mappings) == len(b.Mappings)
}

// AddParameterMap registers pm under its own id, with the same
// equal-or-conflict rule as AddResultMap.
func (c *Configuration) AddParameterMap(pm *ParameterMap) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.parameterMaps[pm.ID]; ok {
		if existing.Type == pm.Type {
			return nil
		}
		return &BuilderError{Message: "parameter map '" + pm.ID + "' already registered with a different definition"}
	}
	c.parameterMaps[pm.ID] = pm
	return nil
}

func (c *Configuration) ParameterMap(id string) (*ParameterMap, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pm, ok := c.parameterMaps[id]
	return pm, ok
}

// AddCache registers cache under namespace.
func (c *Configuration) AddCache(namespace string, cache Cache) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caches[namespace] = cache
}

func (c *Configuration) Cache(namespace string) (Cache, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cache, ok := c.caches[namespace]
	return cache, ok
}

// AddCacheRef records that fromNamespace shares its cache with
// toNamespace.
func (c *Configuration) AddCacheRef(fromNamespace, toNamespace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheRefMap[fromNamespace] = toNamespace
}

func (c *Configuration) CacheRef(namespace string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ref, ok := c.cacheRefMap[namespace]
	return ref, ok
}

// AddMappedStatement registers ms under its own id, enforcing the same
// equal-or-conflict rule. A statement carrying a database id takes
// precedence over one without under the same id, whichever of the two
// is registered first.
func (c *Configuration) AddMappedStatement(ms *MappedStatement) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.statements[ms.ID]; ok {
		if existing.DatabaseID == "" && ms.DatabaseID != "" {
			c.statements[ms.ID] = ms
			return nil
		}
		if existing.DatabaseID != "" && ms.DatabaseID == "" {
			return nil
		}
		if existing.SQLCommandType == ms.SQLCommandType {
			return nil
		}
		return &BuilderError{Message: "mapped statement '" + ms.ID + "' already registered with a different definition"}
	}
	c.statements[ms.ID] = ms
	return nil
}

func (c *Configuration) MappedStatement(id string) (*MappedStatement, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ms, ok := c.statements[id]
	return ms, ok
}

// StatementIDs returns every registered statement id, sorted.
func (c *Configuration) StatementIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.statements))
	for id := range c.statements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BindMapper records that namespace is backed by host type t, silently
// doing nothing if a binding already exists: a present explicit
// binding simply wins.
func (c *Configuration) BindMapper(namespace string, t reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.mapperRegistry[namespace]; ok {
		return
	}
	c.mapperRegistry[namespace] = t
}

func (c *Configuration) MapperType(namespace string) (reflect.Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.mapperRegistry[namespace]
	return t, ok
}

// DrainPending retries every queued result map, cache-ref, and statement
// once. It is safe to call after every mapper document and again at the
// end of the root parse.
func (c *Configuration) DrainPending() error {
	if err := c.pendingCacheRefs.Drain(); err != nil {
		return err
	}
	if err := c.pendingResultMaps.Drain(); err != nil {
		return err
	}
	if err := c.pendingStatements.Drain(); err != nil {
		return err
	}
	return nil
}

// Seal validates that every pending queue has fully drained, raising a
// BuilderError naming the unresolved entries otherwise.
func (c *Configuration) Seal() error {
	if err := c.DrainPending(); err != nil {
		return err
	}
	var unresolved []string
	for _, w := range c.pendingResultMaps.Values() {
		unresolved = append(unresolved, "result map "+w.id)
	}
	for _, w := range c.pendingCacheRefs.Values() {
		unresolved = append(unresolved, "cache-ref "+w.namespace+" -> "+w.target)
	}
	for _, w := range c.pendingStatements.Values() {
		unresolved = append(unresolved, "statement "+w.id)
	}
	if len(unresolved) > 0 {
		return &BuilderError{Message: "unresolved references remain: " + strings.Join(unresolved, "; ")}
	}
	return nil
}
