package sqlmap

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"reflect"
	"sync"
	"testing"
)

// recordingConn is a driver.Conn double that records every query/args
// pair it receives and answers from a caller-supplied script, without
// touching a real database.
type recordingConn struct {
	mu      sync.Mutex
	calls   []recordedCall
	rows    func(query string) (cols []string, data [][]driver.Value)
	execRes func(query string) (lastInsertID, rowsAffected int64)
}

type recordedCall struct {
	query string
	args  []driver.Value
}

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return &recordingStmt{conn: c, query: query}, nil
}
func (c *recordingConn) Close() error              { return nil }
func (c *recordingConn) Begin() (driver.Tx, error) { return fakeTx{}, nil }

type recordingStmt struct {
	conn  *recordingConn
	query string
}

func (s *recordingStmt) Close() error  { return nil }
func (s *recordingStmt) NumInput() int { return -1 }

func (s *recordingStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.conn.mu.Lock()
	s.conn.calls = append(s.conn.calls, recordedCall{query: s.query, args: args})
	s.conn.mu.Unlock()
	affected := int64(1)
	if s.conn.execRes != nil {
		_, affected = s.conn.execRes(s.query)
	}
	return driver.RowsAffected(affected), nil
}

func (s *recordingStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.conn.mu.Lock()
	s.conn.calls = append(s.conn.calls, recordedCall{query: s.query, args: args})
	s.conn.mu.Unlock()
	var cols []string
	var data [][]driver.Value
	if s.conn.rows != nil {
		cols, data = s.conn.rows(s.query)
	}
	return &recordingRows{cols: cols, data: data}, nil
}

type recordingRows struct {
	cols []string
	data [][]driver.Value
	pos  int
}

func (r *recordingRows) Columns() []string { return r.cols }
func (r *recordingRows) Close() error      { return nil }
func (r *recordingRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}

type singleConnConnector struct{ conn driver.Conn }

func (c singleConnConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c singleConnConnector) Driver() driver.Driver                       { return recordingDriver{} }

type recordingDriver struct{}

func (recordingDriver) Open(name string) (driver.Conn, error) {
	return nil, &ConnectionError{Message: "recordingDriver.Open is unused; tests connect via singleConnConnector"}
}

func testSession(t *testing.T, conn *recordingConn) (*Session, *Configuration) {
	t.Helper()
	db := sql.OpenDB(singleConnConnector{conn: conn})
	cfg := NewConfiguration()
	return NewSession(cfg, db, PlaceholderQuestion), cfg
}

type sessionUser struct {
	ID   int
	Name string
}

func registerUserFindByID(t *testing.T, cfg *Configuration) {
	t.Helper()
	rt := reflect.TypeOf(sessionUser{})
	rm := NewResultMap("users.UserMap", rt, []ResultMapping{
		{Property: "ID", Column: "id", FieldType: reflect.TypeOf(0), Flags: ResultFlagID},
		{Property: "Name", Column: "name", FieldType: reflect.TypeOf("")},
	}, nil)
	if err := cfg.AddResultMap(rm); err != nil {
		t.Fatalf("AddResultMap: %v", err)
	}
	if err := cfg.AddMappedStatement(&MappedStatement{
		ID:             "users.findByID",
		SQL:            "SELECT id, name FROM users WHERE id = #{id}",
		SQLCommandType: SQLSelect,
		ResultMapIDs:   []string{rm.ID},
		ParameterMapID: inlineParameterMapID("users.findByID"),
	}); err != nil {
		t.Fatalf("AddMappedStatement: %v", err)
	}
}

func TestSessionSelectScansThroughResultMap(t *testing.T) {
	conn := &recordingConn{
		rows: func(query string) ([]string, [][]driver.Value) {
			return []string{"id", "name"}, [][]driver.Value{{int64(1), "Ann"}, {int64(2), "Bo"}}
		},
	}
	session, cfg := testSession(t, conn)
	registerUserFindByID(t, cfg)

	got, err := Select[sessionUser](context.Background(), session, "users.findByID", map[string]any{"id": 1})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	want := []sessionUser{{ID: 1, Name: "Ann"}, {ID: 2, Name: "Bo"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Select = %+v, want %+v", got, want)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.calls) != 1 {
		t.Fatalf("len(calls) = %d, want 1", len(conn.calls))
	}
	call := conn.calls[0]
	if call.query != "SELECT id, name FROM users WHERE id = ?" {
		t.Fatalf("query = %q, want #{id} rewritten to ?", call.query)
	}
	if len(call.args) != 1 || call.args[0] != int64(1) {
		t.Fatalf("args = %v, want [1]", call.args)
	}
}

func TestSessionSelectOneReturnsErrNoRowsOnEmptyResult(t *testing.T) {
	conn := &recordingConn{
		rows: func(query string) ([]string, [][]driver.Value) {
			return []string{"id", "name"}, nil
		},
	}
	session, cfg := testSession(t, conn)
	registerUserFindByID(t, cfg)

	_, err := SelectOne[sessionUser](context.Background(), session, "users.findByID", map[string]any{"id": 99})
	if err != sql.ErrNoRows {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestSessionBindRewritesLiteralToken(t *testing.T) {
	conn := &recordingConn{
		rows: func(query string) ([]string, [][]driver.Value) {
			return []string{"id", "name"}, nil
		},
	}
	session, cfg := testSession(t, conn)
	rt := reflect.TypeOf(sessionUser{})
	rm := NewResultMap("users.UserMap", rt, []ResultMapping{
		{Property: "ID", Column: "id", FieldType: reflect.TypeOf(0)},
		{Property: "Name", Column: "name", FieldType: reflect.TypeOf("")},
	}, nil)
	if err := cfg.AddResultMap(rm); err != nil {
		t.Fatalf("AddResultMap: %v", err)
	}
	if err := cfg.AddMappedStatement(&MappedStatement{
		ID:             "users.sorted",
		SQL:            "SELECT id, name FROM users ORDER BY ${sortColumn}",
		SQLCommandType: SQLSelect,
		ResultMapIDs:   []string{rm.ID},
	}); err != nil {
		t.Fatalf("AddMappedStatement: %v", err)
	}

	_, err := Select[sessionUser](context.Background(), session, "users.sorted", map[string]any{"sortColumn": "name"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.calls[0].query != "SELECT id, name FROM users ORDER BY name" {
		t.Fatalf("query = %q, want literal substitution with no bound arg", conn.calls[0].query)
	}
	if len(conn.calls[0].args) != 0 {
		t.Fatalf("args = %v, want none for a ${...} token", conn.calls[0].args)
	}
}

func TestSessionExecuteRewritesPlaceholderStyle(t *testing.T) {
	conn := &recordingConn{}
	db := sql.OpenDB(singleConnConnector{conn: conn})
	cfg := NewConfiguration()
	session := NewSession(cfg, db, PlaceholderDollar)
	if err := cfg.AddMappedStatement(&MappedStatement{
		ID:             "users.insert",
		SQL:            "INSERT INTO users (id, name) VALUES (#{id}, #{name})",
		SQLCommandType: SQLInsert,
		ParameterMapID: inlineParameterMapID("users.insert"),
	}); err != nil {
		t.Fatalf("AddMappedStatement: %v", err)
	}

	if _, err := session.Execute(context.Background(), "users.insert", map[string]any{"id": 3, "name": "Cy"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.calls[0].query != "INSERT INTO users (id, name) VALUES ($1, $2)" {
		t.Fatalf("query = %q, want $1/$2 placeholders", conn.calls[0].query)
	}
}

func TestSessionUnknownStatementReturnsExecutionError(t *testing.T) {
	session, _ := testSession(t, &recordingConn{})
	_, err := Select[sessionUser](context.Background(), session, "users.missing", nil)
	var execErr *ExecutionError
	if err == nil {
		t.Fatal("expected an error for an unregistered statement id")
	}
	if !asExecutionError(err, &execErr) {
		t.Fatalf("err = %v (%T), want *ExecutionError", err, err)
	}
	if execErr.StatementID != "users.missing" {
		t.Fatalf("StatementID = %q, want users.missing", execErr.StatementID)
	}
}

func TestSessionSelectAgainstNonSelectStatementReturnsExecutionError(t *testing.T) {
	session, cfg := testSession(t, &recordingConn{})
	if err := cfg.AddMappedStatement(&MappedStatement{
		ID:             "users.delete",
		SQL:            "DELETE FROM users WHERE id = #{id}",
		SQLCommandType: SQLDelete,
	}); err != nil {
		t.Fatalf("AddMappedStatement: %v", err)
	}
	_, err := Select[sessionUser](context.Background(), session, "users.delete", map[string]any{"id": 1})
	var execErr *ExecutionError
	if !asExecutionError(err, &execErr) {
		t.Fatalf("err = %v, want *ExecutionError", err)
	}
}

func asExecutionError(err error, target **ExecutionError) bool {
	if ee, ok := err.(*ExecutionError); ok {
		*target = ee
		return true
	}
	return false
}
