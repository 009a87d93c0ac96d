/*
Package sqlmap is the runtime core of a SQL mapping framework: it turns
declarative XML descriptions of SQL statements into an executable
statement registry, resolves dotted host-object property paths against
a reflection model, and manages a pooled database/sql-compatible
connection layer with liveness checking and overdue reclamation.

# Overview

A [XMLConfigBuilder] reads a root configuration document plus one mapper
document per namespace and populates a [Configuration] registry. Mapper
documents may forward-reference caches, result maps, and statements
defined in mappers not yet parsed; the builder enqueues these and drains
the pending sets after each document and again at the end of the parse.
The resulting [Configuration] is immutable at rest: statements, result
maps, parameter maps, and caches are frozen before being looked up by
id.

At runtime, [MetaClass] resolves property paths like "a.b[3].c" against
a Go struct type, including paths that traverse generic containers and
embedded-struct promotion. [PooledDataSource] hands out
database/sql-compatible connections from a bounded pool, reclaiming
connections checked out past their allotted time. A [Session] binds a
[Configuration] to a live [DB], resolving a statement id to its SQL
text and executing it through [Select], [SelectOne], or Execute.

# Mapping rules

  - A statement's SQL text carries #{property} tokens (bound
    positionally, rewritten to the driver's placeholder style by
    [Placeholder]) and ${property} tokens (substituted as literal SQL
    text before the query is sent, the escape hatch for identifiers a
    bound parameter cannot carry).
  - Columns bind to result-map properties by explicit column/property
    pairs, falling back to case-insensitive property ←→ column
    matching when a statement has no resultMap (the "inline auto-map"
    case).
  - If a destination type (or property) implements sql.Scanner, its
    Scan method receives the driver value.
  - Nested result maps and nested-select associations are resolved by
    id, tolerating forward references during the build phase.
  - Parameter maps bind host-object properties to #{...} tokens by
    name; an inline parameter map is synthesized for statements that
    name a bare host type instead of a parameterMap id.

# Performance

On first use of a (Type, ResultMap, ColumnSet) combination, a Session
builds a scan plan (column → property path and destination strategy).
Plans are cached per Session in a lazily-initialized, concurrency-safe
map (sync.Map). Reflector metadata built by the configuration builder is
cached per type for the registry's lifetime.

# Error handling

  - [BuilderError] is fatal to the current parse and is returned to the
    caller.
  - [ForwardReferenceError] is caught at the enclosing element and
    queued for a later drain; it never escapes a finished build — a
    queue still non-empty at seal time surfaces as a [BuilderError].
  - [ReflectionError], [TypeAliasError], and [ConnectionError] surface to
    the caller; nothing in this package recovers from them internally.
  - [ExecutionError] reports an unknown statement id, a statement used
    against the wrong Session method, or a #{...} token with no
    matching property. [SelectOne] returns sql.ErrNoRows when no row
    matches.

# Compatibility

[Session] works with any database/sql driver; [PlaceholderFor] picks
the positional placeholder style ("?", "$1", "@p1", ":1") from a
driver name. This package does not parse or rewrite SQL text beyond
#{...}/${...} token extraction; write everything else exactly as your
driver expects.
*/
package sqlmap
