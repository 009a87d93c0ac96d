package sqlmap

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
)

// Querier is satisfied by *sql.DB, *sql.Tx, and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer is satisfied by *sql.DB, *sql.Tx, and *sql.Conn.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Beginner is satisfied by *sql.DB and *sql.Conn (*sql.Tx has no Begin
// of its own).
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// DB is the full surface a Session drives a mapped statement against.
type DB interface {
	Querier
	Execer
	Beginner
}

// Session binds a Configuration's statement registry to a live
// database handle. Every call resolves a statement id to its SQL
// text and bindings, executes it, and (for selects) scans the result
// through the statement's result map. A Session is safe for
// concurrent use; its scan-plan cache is shared across every call.
type Session struct {
	cfg     *Configuration
	db      DB
	ph      Placeholder
	scanner *rowScanner
}

// NewSession returns a Session executing ms lookups from cfg against
// db, rewriting #{...} bound placeholders to ph's style.
func NewSession(cfg *Configuration, db DB, ph Placeholder) *Session {
	return &Session{cfg: cfg, db: db, ph: ph, scanner: newRowScanner()}
}

// Begin starts a transaction and returns a Session bound to it,
// sharing the parent's Configuration, placeholder style, and scan-plan
// cache.
func (s *Session) Begin(ctx context.Context, opts *sql.TxOptions) (*Session, *sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return &Session{cfg: s.cfg, db: txDB{tx}, ph: s.ph, scanner: s.scanner}, tx, nil
}

// txDB adapts *sql.Tx (which has no Begin/BeginTx of its own) to DB
// for the lifetime of a nested Session; calling Begin on it is a
// programmer error the type system otherwise can't rule out, since
// *sql.Tx is itself the product of a Begin call.
type txDB struct{ *sql.Tx }

func (txDB) BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error) {
	return nil, &ExecutionError{Message: "cannot Begin a transaction from within a transaction"}
}

// statement resolves id and enforces that it matches wantSelect, the
// one distinction that determines which Session method may run it: a
// select's result flows through a ResultMap and scanRow, anything else
// through Execute.
func (s *Session) statement(id string, wantSelect bool) (*MappedStatement, error) {
	ms, ok := s.cfg.MappedStatement(id)
	if !ok {
		return nil, &ExecutionError{StatementID: id, Message: "no mapped statement registered for this id"}
	}
	if wantSelect && !ms.IsSelect() {
		return nil, &ExecutionError{StatementID: id, Message: "statement is not a select"}
	}
	if !wantSelect && ms.IsSelect() {
		return nil, &ExecutionError{StatementID: id, Message: "statement is a select, use Select or SelectOne"}
	}
	return ms, nil
}

// bind resolves ms.SQL's #{...}/${...} tokens against param via the
// statement's parameter map (or, absent one, direct struct/map
// property lookup) and returns the driver-ready query text plus its
// positional bound arguments.
func (s *Session) bind(ms *MappedStatement, param any) (string, []any, error) {
	toks, err := findStatementTokens(ms.SQL)
	if err != nil {
		return "", nil, &ExecutionError{StatementID: ms.ID, Message: err.Error()}
	}
	if len(toks) == 0 {
		return rewritePlaceholders(ms.SQL, s.ph), nil, nil
	}

	pm, _ := s.cfg.ParameterMap(ms.ParameterMapID)

	var b []byte
	args := make([]any, 0, len(toks))
	last := 0
	for _, t := range toks {
		b = append(b, ms.SQL[last:t.start]...)
		val, err := resolveParam(pm, param, t.name)
		if err != nil {
			return "", nil, &ExecutionError{StatementID: ms.ID, Message: err.Error()}
		}
		if t.literal {
			b = append(b, renderLiteral(val)...)
		} else {
			b = append(b, '?')
			args = append(args, val)
		}
		last = t.end
	}
	b = append(b, ms.SQL[last:]...)
	return rewritePlaceholders(string(b), s.ph), args, nil
}

// resolveParam reads name off param, preferring the spelling of pm's
// matching declared property (compared case-insensitively; the
// mapping's JavaType and mode are not consulted) and falling back to a direct
// lookup against param itself when no parameter map applies — the
// inline parameter map case for statements bound to a bare host type
// or a map[string]any.
func resolveParam(pm *ParameterMap, param any, name string) (any, error) {
	if param == nil {
		return nil, &ExecutionError{Message: "no parameter value supplied for #{" + name + "}"}
	}
	if m, ok := param.(map[string]any); ok {
		if v, ok := m[name]; ok {
			return v, nil
		}
		return nil, &ExecutionError{Message: "missing key " + name + " in parameter map"}
	}

	rv := reflect.ValueOf(param)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, &ExecutionError{Message: "nil parameter pointer"}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, &ExecutionError{Message: "parameter must be a struct or map[string]any"}
	}

	property := name
	if pm != nil {
		for _, m := range pm.Mappings {
			if toLowerAscii(m.Property) == toLowerAscii(name) {
				property = m.Property
				break
			}
		}
	}
	mc := NewMetaClass(rv.Type())
	val, err := mc.GetValue(rv, property)
	if err != nil {
		return nil, err
	}
	return val.Interface(), nil
}

// renderLiteral formats v for direct SQL text substitution (${...}
// tokens), the MyBatis escape hatch for identifiers and other values a
// bound placeholder can't carry (table names, ORDER BY columns).
// Callers are responsible for the value being safe to inline; unlike
// #{...} this bypasses driver-level escaping entirely.
func renderLiteral(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Select runs a select statement and returns every result row scanned
// into T via its result map (or a case-insensitive auto-map when the
// statement declares none).
func Select[T any](ctx context.Context, s *Session, statementID string, param any) ([]T, error) {
	ms, err := s.statement(statementID, true)
	if err != nil {
		return nil, err
	}
	query, args, err := s.bind(ms, param)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rm := s.resultMapFor(ms)
	var out []T
	for rows.Next() {
		v, err := scanRow[T](s.scanner, rows, rm)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SelectOne runs a select statement and scans its first row into T,
// returning sql.ErrNoRows if the query yields no rows.
func SelectOne[T any](ctx context.Context, s *Session, statementID string, param any) (out T, err error) {
	ms, err := s.statement(statementID, true)
	if err != nil {
		return out, err
	}
	query, args, err := s.bind(ms, param)
	if err != nil {
		return out, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return out, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return out, err
		}
		return out, sql.ErrNoRows
	}
	rm := s.resultMapFor(ms)
	return scanRow[T](s.scanner, rows, rm)
}

// Execute runs an insert/update/delete statement, invalidating the
// statement's cache (if any and if the statement flags it) on success.
func (s *Session) Execute(ctx context.Context, statementID string, param any) (sql.Result, error) {
	ms, err := s.statement(statementID, false)
	if err != nil {
		return nil, err
	}
	query, args, err := s.bind(ms, param)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if ms.FlushCacheOnExec && ms.Cache != nil {
		ms.Cache.Clear()
	}
	return res, nil
}

func (s *Session) resultMapFor(ms *MappedStatement) *ResultMap {
	if len(ms.ResultMapIDs) == 0 {
		return nil
	}
	rm, _ := s.cfg.ResultMap(ms.ResultMapIDs[0])
	return rm
}
