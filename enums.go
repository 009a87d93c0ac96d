package sqlmap

//go:generate stringer -type=SQLCommandType,StatementKind,ResultSetType,ParameterMode,AutoMappingBehavior,AutoMappingUnknownColumnBehavior,ExecutorType,LocalCacheScope -output enums_string.go

// SQLCommandType identifies the kind of SQL a MappedStatement executes.
type SQLCommandType int

const (
	SQLUnknown SQLCommandType = iota
	SQLSelect
	SQLInsert
	SQLUpdate
	SQLDelete
	SQLFlush
)

// StatementKind identifies how a statement is prepared for execution.
type StatementKind int

const (
	StatementStatement StatementKind = iota
	StatementPrepared
	StatementCallable
)

// ResultSetType controls cursor scrollability/sensitivity for a query.
type ResultSetType int

const (
	ResultSetDefault ResultSetType = iota
	ResultSetForwardOnly
	ResultSetScrollInsensitive
	ResultSetScrollSensitive
)

// ParameterMode identifies the direction of a callable-statement parameter.
type ParameterMode int

const (
	ParameterIn ParameterMode = iota
	ParameterOut
	ParameterInOut
)

// AutoMappingBehavior controls how aggressively unmapped columns are
// matched to properties when no explicit result mapping exists for them.
type AutoMappingBehavior int

const (
	AutoMappingNone AutoMappingBehavior = iota
	AutoMappingPartial
	AutoMappingFull
)

// AutoMappingUnknownColumnBehavior controls what happens when an
// automapped column cannot be matched to any property.
type AutoMappingUnknownColumnBehavior int

const (
	UnknownColumnNone AutoMappingUnknownColumnBehavior = iota
	UnknownColumnWarning
	UnknownColumnFailing
)

// ExecutorType selects the default statement-execution strategy.
type ExecutorType int

const (
	ExecutorSimple ExecutorType = iota
	ExecutorReuse
	ExecutorBatch
)

// LocalCacheScope controls the lifetime of the per-call local cache.
type LocalCacheScope int

const (
	LocalCacheSession LocalCacheScope = iota
	LocalCacheStatement
)
