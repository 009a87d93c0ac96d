package sqlmap

import (
	"bytes"
	"encoding/gob"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// Cache is the namespace-scoped second-level cache surface every
// decorator in this file implements. Keys and values are caller-defined;
// the decorator chain only needs to move them around, not interpret
// them.
type Cache interface {
	ID() string
	PutObject(key, value any)
	GetObject(key any) (any, bool)
	RemoveObject(key any) bool
	Clear()
	Size() int
}

// PerpetualCache is the base implementation every decorator chain wraps:
// a plain mutex-guarded map with no eviction of its own.
type PerpetualCache struct {
	id string
	mu sync.Mutex
	m  map[any]any
}

// NewPerpetualCache returns an empty PerpetualCache identified by id.
func NewPerpetualCache(id string) *PerpetualCache {
	return &PerpetualCache{id: id, m: make(map[any]any)}
}

func (c *PerpetualCache) ID() string { return c.id }

func (c *PerpetualCache) PutObject(key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

func (c *PerpetualCache) GetObject(key any) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *PerpetualCache) RemoveObject(key any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.m[key]
	delete(c.m, key)
	return ok
}

func (c *PerpetualCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[any]any)
}

func (c *PerpetualCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// LruCache decorates a base Cache with bounded-size eviction, backed by
// hashicorp/golang-lru so the eviction policy itself is not reimplemented
// here. Evicted keys are also removed from the wrapped base cache so the
// two stay in sync.
type LruCache struct {
	delegate Cache
	lru      *lru.Cache
}

// NewLruCache wraps delegate with an LRU index of size entries (default
// 1024 when size <= 0, matching this family's usual default).
func NewLruCache(delegate Cache, size int) *LruCache {
	if size <= 0 {
		size = 1024
	}
	c := &LruCache{delegate: delegate}
	c.lru, _ = lru.NewWithEvict(size, func(key, _ any) {
		delegate.RemoveObject(key)
	})
	return c
}

func (c *LruCache) ID() string { return c.delegate.ID() }

func (c *LruCache) PutObject(key, value any) {
	c.delegate.PutObject(key, value)
	c.lru.Add(key, struct{}{})
}

func (c *LruCache) GetObject(key any) (any, bool) {
	c.lru.Get(key) // touch: refresh recency
	return c.delegate.GetObject(key)
}

func (c *LruCache) RemoveObject(key any) bool {
	c.lru.Remove(key)
	return c.delegate.RemoveObject(key)
}

func (c *LruCache) Clear() {
	c.lru.Purge()
	c.delegate.Clear()
}

func (c *LruCache) Size() int { return c.delegate.Size() }

// ScheduledFlushCache decorates a base Cache with a periodic full clear,
// started the first time GetObject/PutObject/RemoveObject observes the
// interval has elapsed — no background goroutine is needed since the decorator
// chain is only ever touched from request-serving goroutines anyway.
type ScheduledFlushCache struct {
	delegate Cache
	interval time.Duration
	mu       sync.Mutex
	last     time.Time
	now      func() time.Time
}

// NewScheduledFlushCache wraps delegate, clearing it whenever more than
// interval has elapsed since the last clear (or construction).
func NewScheduledFlushCache(delegate Cache, interval time.Duration) *ScheduledFlushCache {
	return &ScheduledFlushCache{delegate: delegate, interval: interval, last: time.Now(), now: time.Now}
}

func (c *ScheduledFlushCache) clearIfDue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now().Sub(c.last) >= c.interval {
		c.delegate.Clear()
		c.last = c.now()
	}
}

func (c *ScheduledFlushCache) ID() string { return c.delegate.ID() }

func (c *ScheduledFlushCache) PutObject(key, value any) {
	c.clearIfDue()
	c.delegate.PutObject(key, value)
}

func (c *ScheduledFlushCache) GetObject(key any) (any, bool) {
	c.clearIfDue()
	return c.delegate.GetObject(key)
}

func (c *ScheduledFlushCache) RemoveObject(key any) bool {
	c.clearIfDue()
	return c.delegate.RemoveObject(key)
}

func (c *ScheduledFlushCache) Clear() {
	c.mu.Lock()
	c.last = c.now()
	c.mu.Unlock()
	c.delegate.Clear()
}

func (c *ScheduledFlushCache) Size() int { return c.delegate.Size() }

// SynchronizedCache decorates a base Cache with a single exclusive lock
// around every operation. Most delegates (PerpetualCache, LruCache) are
// already internally synchronized; this decorator exists for the rare
// case the chain still asks for it: a delegate whose own synchronization is
// insufficient to cover a read-modify-write sequence spanning multiple
// calls through this Cache interface.
type SynchronizedCache struct {
	delegate Cache
	mu       sync.Mutex
}

func NewSynchronizedCache(delegate Cache) *SynchronizedCache {
	return &SynchronizedCache{delegate: delegate}
}

func (c *SynchronizedCache) ID() string { return c.delegate.ID() }

func (c *SynchronizedCache) PutObject(key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate.PutObject(key, value)
}

func (c *SynchronizedCache) GetObject(key any) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate.GetObject(key)
}

func (c *SynchronizedCache) RemoveObject(key any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate.RemoveObject(key)
}

func (c *SynchronizedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate.Clear()
}

func (c *SynchronizedCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate.Size()
}

// LoggingCache decorates a base Cache with hit-ratio logging, reported
// at Debug level on every GetObject call.
type LoggingCache struct {
	delegate  Cache
	log       logger
	mu        sync.Mutex
	hits      int64
	requests  int64
}

func NewLoggingCache(delegate Cache, log logger) *LoggingCache {
	if log == nil {
		log = nopLogger{}
	}
	return &LoggingCache{delegate: delegate, log: log}
}

func (c *LoggingCache) ID() string { return c.delegate.ID() }

func (c *LoggingCache) PutObject(key, value any) { c.delegate.PutObject(key, value) }

func (c *LoggingCache) GetObject(key any) (any, bool) {
	v, ok := c.delegate.GetObject(key)
	c.mu.Lock()
	c.requests++
	if ok {
		c.hits++
	}
	ratio := float64(0)
	if c.requests > 0 {
		ratio = float64(c.hits) / float64(c.requests)
	}
	c.log.Debugf("cache %s hit ratio: %.3f", c.delegate.ID(), ratio)
	c.mu.Unlock()
	return v, ok
}

func (c *LoggingCache) RemoveObject(key any) bool { return c.delegate.RemoveObject(key) }
func (c *LoggingCache) Clear()                    { c.delegate.Clear() }
func (c *LoggingCache) Size() int                 { return c.delegate.Size() }

// SerializedCache decorates a base Cache by gob-encoding values on the
// way in and decoding a fresh copy on the way out, so callers can never
// observe another caller's mutation of a previously cached value through
// a shared pointer. Values must be gob-encodable; a value that is not is
// stored as-is with the encode error silently ignored, matching the
// best-effort IgnorableError posture used elsewhere for similar
// defensive-copy paths.
type SerializedCache struct {
	delegate Cache
}

func NewSerializedCache(delegate Cache) *SerializedCache {
	return &SerializedCache{delegate: delegate}
}

func (c *SerializedCache) ID() string { return c.delegate.ID() }

func (c *SerializedCache) PutObject(key, value any) {
	defer func() {
		if recover() != nil {
			c.delegate.PutObject(key, value)
		}
	}()
	if value != nil {
		gob.Register(value) // interface-typed encoding needs the concrete type registered
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
		c.delegate.PutObject(key, value)
		return
	}
	c.delegate.PutObject(key, buf.Bytes())
}

func (c *SerializedCache) GetObject(key any) (any, bool) {
	raw, ok := c.delegate.GetObject(key)
	if !ok {
		return nil, false
	}
	b, ok := raw.([]byte)
	if !ok {
		return raw, true
	}
	var value any
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&value); err != nil {
		return nil, false
	}
	return value, true
}

func (c *SerializedCache) RemoveObject(key any) bool { return c.delegate.RemoveObject(key) }
func (c *SerializedCache) Clear()                    { c.delegate.Clear() }
func (c *SerializedCache) Size() int                 { return c.delegate.Size() }

// BlockingCache decorates a base Cache with per-key locking: a miss on
// GetObject holds that key's lock until the corresponding PutObject (or
// RemoveObject) releases it, so concurrent callers racing to populate
// the same key serialize onto a single computation instead of stampeding
// the backing store.
type BlockingCache struct {
	delegate Cache
	timeout  time.Duration
	mu       sync.Mutex
	locks    map[any]*sync.Mutex
}

func NewBlockingCache(delegate Cache, timeout time.Duration) *BlockingCache {
	return &BlockingCache{delegate: delegate, timeout: timeout, locks: make(map[any]*sync.Mutex)}
}

func (c *BlockingCache) lockFor(key any) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

func (c *BlockingCache) ID() string { return c.delegate.ID() }

func (c *BlockingCache) GetObject(key any) (any, bool) {
	c.lockFor(key).Lock()
	v, ok := c.delegate.GetObject(key)
	if ok {
		c.lockFor(key).Unlock()
	}
	// A miss keeps the lock held; the matching PutObject/RemoveObject
	// below releases it once this goroutine supplies the value.
	return v, ok
}

func (c *BlockingCache) PutObject(key, value any) {
	c.delegate.PutObject(key, value)
	c.releaseIfHeld(key)
}

func (c *BlockingCache) RemoveObject(key any) bool {
	ok := c.delegate.RemoveObject(key)
	c.releaseIfHeld(key)
	return ok
}

func (c *BlockingCache) releaseIfHeld(key any) {
	l := c.lockFor(key)
	// TryLock: only unlock if this goroutine (or a prior miss) is the
	// one holding it; releasing an already-unlocked mutex would panic.
	if !l.TryLock() {
		l.Unlock()
		return
	}
	l.Unlock()
}

func (c *BlockingCache) Clear() { c.delegate.Clear() }
func (c *BlockingCache) Size() int { return c.delegate.Size() }

// CacheBuilder assembles the decorator chain declaratively, in the outer
// ordering: base -> eviction -> [scheduled-flush] ->
// synchronized -> [logging] -> [serialized] -> [blocking].
type CacheBuilder struct {
	id            string
	size          int
	flushInterval time.Duration
	readWrite     bool
	blocking      bool
	logging       bool
	log           logger
	properties    map[string]string
}

// NewCacheBuilder starts a builder for the cache identified by id, with
// defaults of a base implementation (PerpetualCache) and an eviction
// decorator (LruCache).
func NewCacheBuilder(id string) *CacheBuilder {
	return &CacheBuilder{id: id, size: 1024, readWrite: true}
}

func (b *CacheBuilder) WithSize(size int) *CacheBuilder             { b.size = size; return b }
func (b *CacheBuilder) WithFlushInterval(d time.Duration) *CacheBuilder { b.flushInterval = d; return b }
func (b *CacheBuilder) WithReadWrite(rw bool) *CacheBuilder          { b.readWrite = rw; return b }
func (b *CacheBuilder) WithBlocking(blocking bool) *CacheBuilder     { b.blocking = blocking; return b }
func (b *CacheBuilder) WithLogging(log logger) *CacheBuilder         { b.logging = true; b.log = log; return b }
func (b *CacheBuilder) WithProperties(props map[string]string) *CacheBuilder {
	b.properties = props
	return b
}

// Build assembles the decorator chain and applies Properties via a
// capability probe: any key in b.properties matching a setter-shaped
// property on the outermost cache's underlying type is assigned after
// type coercion through the reflection engine.
func (b *CacheBuilder) Build() Cache {
	var c Cache = NewPerpetualCache(b.id)
	c = NewLruCache(c, b.size)
	if b.flushInterval > 0 {
		c = NewScheduledFlushCache(c, b.flushInterval)
	}
	c = NewSynchronizedCache(c)
	if b.logging {
		c = NewLoggingCache(c, b.log)
	}
	if !b.readWrite {
		c = NewSerializedCache(c)
	}
	if b.blocking {
		c = NewBlockingCache(c, 0)
	}
	applyCacheProperties(c, b.properties)
	return c
}

// applyCacheProperties is a capability probe: a property
// key is applied only when the cache's concrete type exposes a matching
// setter, via the same ClassMeta used for host-object property binding.
func applyCacheProperties(c Cache, props map[string]string) {
	if len(props) == 0 {
		return
	}
	rv := reflectValueOf(c)
	if !rv.IsValid() {
		return
	}
	cm := classMetaFor(rv.Type())
	target := unwrapToStruct(rv)
	for key, raw := range props {
		canonical := cm.FindProperty(key, true)
		if canonical == "" {
			continue
		}
		setterType, ok := cm.SetterType(canonical)
		if !ok {
			continue
		}
		coerced, err := coerceStringTo(raw, setterType)
		if err != nil {
			continue
		}
		a := cm.setters[canonical]
		_ = a.set(target, coerced, canonical, rv.Type().String())
	}
}
