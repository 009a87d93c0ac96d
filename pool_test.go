package sqlmap

import (
	"context"
	"database/sql/driver"
	"io"
	"sync"
	"testing"
	"time"
)

// fakeConn is a minimal driver.Conn + driver.Pinger double; it never
// touches a real database, only tracks close/ping state for assertions.
type fakeConn struct {
	mu      sync.Mutex
	closed  bool
	pingErr error
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) { return &fakeStmt{}, nil }
func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
func (c *fakeConn) Begin() (driver.Tx, error) { return fakeTx{}, nil }
func (c *fakeConn) Ping(ctx context.Context) error { return c.pingErr }
func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

type fakeStmt struct{}

func (fakeStmt) Close() error                                   { return nil }
func (fakeStmt) NumInput() int                                   { return 0 }
func (fakeStmt) Exec(args []driver.Value) (driver.Result, error) { return nil, nil }
func (fakeStmt) Query(args []driver.Value) (driver.Rows, error)  { return fakeRows{}, nil }

type fakeRows struct{}

func (fakeRows) Columns() []string              { return nil }
func (fakeRows) Close() error                   { return nil }
func (fakeRows) Next(dest []driver.Value) error { return io.EOF }

// fakeDriver opens a fresh *fakeConn per Open call and records every
// connection it has ever produced, so tests can assert on growth and
// closure without a real database/sql driver registration.
type fakeDriver struct {
	mu     sync.Mutex
	opened []*fakeConn
}

func (d *fakeDriver) Open(name string) (driver.Conn, error) {
	c := &fakeConn{}
	d.mu.Lock()
	d.opened = append(d.opened, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDriver) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.opened)
}

func testPool(cfg PoolConfig, drv *fakeDriver) *PooledDataSource {
	creds := DataSourceCredentials{Driver: drv, DSN: "test.db", AutoCommit: true}
	return NewPooledDataSource(cfg, creds, nopLogger{})
}

func TestPooledDataSourcePopGrowsUpToMaxActive(t *testing.T) {
	drv := &fakeDriver{}
	cfg := DefaultPoolConfig()
	cfg.MaxActive = 2
	pool := testPool(cfg, drv)

	a, err := pool.Pop(context.Background(), "caller-a")
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	b, err := pool.Pop(context.Background(), "caller-b")
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if a == b {
		t.Fatal("expected two distinct pooled connections")
	}
	if drv.openCount() != 2 {
		t.Fatalf("openCount = %d, want 2", drv.openCount())
	}
	stats := pool.Stats()
	if stats.ActiveCount != 2 {
		t.Fatalf("ActiveCount = %d, want 2", stats.ActiveCount)
	}
}

func TestPooledDataSourcePushRecyclesIntoIdle(t *testing.T) {
	drv := &fakeDriver{}
	cfg := DefaultPoolConfig()
	pool := testPool(cfg, drv)

	pc, err := pool.Pop(context.Background(), "caller")
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	rawBefore, _ := pc.Raw()
	pool.Push(pc)

	if pc.isValid() {
		t.Fatal("expected pushed wrapper invalidated")
	}
	stats := pool.Stats()
	if stats.IdleCount != 1 || stats.ActiveCount != 0 {
		t.Fatalf("stats = %+v, want 1 idle, 0 active", stats)
	}

	pc2, err := pool.Pop(context.Background(), "caller")
	if err != nil {
		t.Fatalf("Pop (reuse): %v", err)
	}
	rawAfter, _ := pc2.Raw()
	if rawAfter != rawBefore {
		t.Fatal("expected the same underlying raw connection to be recycled from idle")
	}
	if drv.openCount() != 1 {
		t.Fatalf("openCount = %d, want 1 (no new connection opened on reuse)", drv.openCount())
	}
}

func TestPooledDataSourceReclaimsOverdueConnection(t *testing.T) {
	drv := &fakeDriver{}
	cfg := DefaultPoolConfig()
	cfg.MaxActive = 1
	cfg.MaxCheckoutTime = 0
	pool := testPool(cfg, drv)

	first, err := pool.Pop(context.Background(), "caller-1")
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	time.Sleep(time.Millisecond)

	second, err := pool.Pop(context.Background(), "caller-2")
	if err != nil {
		t.Fatalf("Pop (overdue reclaim): %v", err)
	}
	if first.isValid() {
		t.Fatal("expected the overdue connection's original wrapper invalidated")
	}
	if drv.openCount() != 1 {
		t.Fatalf("openCount = %d, want 1 (overdue reclaim reuses the raw connection)", drv.openCount())
	}
	stats := pool.Stats()
	if stats.ClaimedOverdueCount != 1 {
		t.Fatalf("ClaimedOverdueCount = %d, want 1", stats.ClaimedOverdueCount)
	}
	if stats.ActiveCount != 1 {
		t.Fatalf("ActiveCount = %d, want 1", stats.ActiveCount)
	}
	_ = second
}

func TestPooledDataSourceForceCloseAllOnCredentialChange(t *testing.T) {
	drv := &fakeDriver{}
	cfg := DefaultPoolConfig()
	pool := testPool(cfg, drv)

	pc, err := pool.Pop(context.Background(), "caller")
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	pool.Push(pc)
	if pool.Stats().IdleCount != 1 {
		t.Fatal("expected one idle connection before credential change")
	}

	raw := drv.opened[0]
	pool.SetPassword("new-password")

	if !raw.isClosed() {
		t.Fatal("expected raw connection closed by forceCloseAll")
	}
	stats := pool.Stats()
	if stats.IdleCount != 0 || stats.ActiveCount != 0 {
		t.Fatalf("stats = %+v, want empty pool after credential change", stats)
	}
}

func TestRunPingQueryUsesPingerWhenAvailable(t *testing.T) {
	c := &fakeConn{}
	ok, err := runPingQuery(c, "SELECT 1", true)
	if err != nil || !ok {
		t.Fatalf("runPingQuery = %v, %v, want true, nil", ok, err)
	}

	c.pingErr = context.DeadlineExceeded
	ok, err = runPingQuery(c, "SELECT 1", true)
	if ok || err == nil {
		t.Fatalf("runPingQuery with failing Ping = %v, %v, want false, err", ok, err)
	}
}
