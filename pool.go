package sqlmap

import (
	"context"
	"database/sql/driver"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PooledConnection wraps one raw driver.Conn together with the pool
// bookkeeping a pooled connection needs: creation/last-used/checkout timestamps, the
// connection-type code it was opened under, and a validity flag that is
// flipped false the moment the connection is reclaimed or closed so any
// lingering caller-held reference notices on next use.
type PooledConnection struct {
	id         string
	raw        driver.Conn
	pool       *PooledDataSource
	createdAt  time.Time
	lastUsedAt time.Time
	checkedOutAt time.Time
	typeCode   uint64

	mu    sync.Mutex
	valid bool
}

// Raw returns the underlying driver.Conn, or nil if this wrapper has
// been invalidated.
func (pc *PooledConnection) Raw() (driver.Conn, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if !pc.valid {
		return nil, &ConnectionError{Message: "connection " + pc.id + " is no longer valid (reclaimed or closed)"}
	}
	return pc.raw, nil
}

func (pc *PooledConnection) invalidate() {
	pc.mu.Lock()
	pc.valid = false
	pc.mu.Unlock()
}

func (pc *PooledConnection) isValid() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.valid
}

// CheckoutDuration reports how long this connection has been active.
func (pc *PooledConnection) CheckoutDuration() time.Duration { return time.Since(pc.checkedOutAt) }

// PoolState is the pool's counters, read via PooledDataSource.Stats.
type PoolState struct {
	RequestCount          int64
	AccumulatedRequestTime time.Duration
	AccumulatedCheckoutTime time.Duration
	AccumulatedWaitTime   time.Duration
	HadToWaitCount        int64
	BadConnectionCount    int64
	ClaimedOverdueCount   int64
	IdleCount             int
	ActiveCount           int
}

// PooledDataSource is a synchronous, bounded connection pool:
// idle/active partitioning under a single lock, overdue
// checkout reclamation, optional liveness ping, and bad-connection
// tolerance. One mutex serializes every mutation; one condition
// variable on that same mutex signals returning connections to waiters
// blocked in Pop.
type PooledDataSource struct {
	cfg   PoolConfig
	creds DataSourceCredentials
	log   logger

	mu            sync.Mutex
	cond          *sync.Cond
	idle          []*PooledConnection
	active        []*PooledConnection
	expectedType  uint64
	localBadCounts map[string]int // caller-supplied token -> consecutive bad-connection count
	state         PoolState
}

// NewPooledDataSource constructs a pool with cfg's dimensions, opening
// new raw connections via creds when it needs to grow.
func NewPooledDataSource(cfg PoolConfig, creds DataSourceCredentials, log logger) *PooledDataSource {
	if log == nil {
		log = nopLogger{}
	}
	p := &PooledDataSource{
		cfg:            cfg,
		creds:          creds,
		log:            log,
		expectedType:   creds.typeCode(),
		localBadCounts: make(map[string]int),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Pop implements the pool's checkout algorithm. callerToken
// distinguishes concurrent requesters for the purpose of
// maxLocalBadTolerance; pass any stable per-goroutine/per-request value
// (e.g. a context key or a generated id).
func (p *PooledDataSource) Pop(ctx context.Context, callerToken string) (*PooledConnection, error) {
	start := time.Now()
	var waited time.Duration
	hadToWait := false

	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		var candidate *PooledConnection

		switch {
		case len(p.idle) > 0:
			candidate = p.idle[0]
			p.idle = p.idle[1:]

		case len(p.active) < p.cfg.MaxActive:
			raw, err := p.openRaw(ctx)
			if err != nil {
				return nil, &ConnectionError{Message: "failed to open new connection", Err: err}
			}
			now := time.Now()
			candidate = &PooledConnection{
				id: uuid.NewString(), raw: raw, pool: p,
				createdAt: now, lastUsedAt: now, typeCode: p.expectedType, valid: true,
			}

		default:
			oldest := p.active[0]
			if oldest.CheckoutDuration() > p.cfg.MaxCheckoutTime {
				p.state.ClaimedOverdueCount++
				p.active = p.active[1:]
				raw, err := oldest.Raw()
				if err == nil {
					rollbackIfNotAutoCommit(raw, p.creds.AutoCommit)
				}
				oldest.invalidate()
				candidate = &PooledConnection{
					id: uuid.NewString(), raw: oldest.raw, pool: p,
					createdAt: oldest.createdAt, lastUsedAt: oldest.lastUsedAt,
					typeCode: oldest.typeCode, valid: true,
				}
				p.log.Warnf("pool: reclaimed overdue connection %s after %s", oldest.id, oldest.CheckoutDuration())
			} else {
				waitStart := time.Now()
				hadToWait = true
				waitDone := make(chan struct{})
				go func() {
					select {
					case <-ctx.Done():
						p.mu.Lock()
						p.cond.Broadcast()
						p.mu.Unlock()
					case <-waitDone:
					}
				}()
				timer := time.AfterFunc(p.cfg.TimeToWait, func() {
					p.mu.Lock()
					p.cond.Broadcast()
					p.mu.Unlock()
				})
				p.cond.Wait()
				timer.Stop()
				close(waitDone)
				waited += time.Since(waitStart)
				if ctx.Err() != nil {
					return nil, &ConnectionError{Message: "checkout interrupted", Err: ctx.Err()}
				}
				continue
			}
		}

		valid, pingErr := p.pingValid(candidate)
		if !valid {
			p.state.BadConnectionCount++
			p.localBadCounts[callerToken]++
			if p.localBadCounts[callerToken] > p.cfg.MaxIdle+p.cfg.MaxLocalBadTolerance {
				return nil, &ConnectionError{Message: "pool exhausted: too many bad connections for this requester", Err: pingErr}
			}
			candidate.invalidate()
			continue
		}

		rollbackIfNotAutoCommit(candidate.raw, p.creds.AutoCommit)
		now := time.Now()
		candidate.typeCode = p.expectedType
		candidate.checkedOutAt = now
		candidate.lastUsedAt = now
		p.active = append(p.active, candidate)
		p.state.RequestCount++
		p.state.AccumulatedRequestTime += time.Since(start)
		if hadToWait {
			p.state.HadToWaitCount++
			p.state.AccumulatedWaitTime += waited
		}
		delete(p.localBadCounts, callerToken)
		return candidate, nil
	}
}

// Push implements the pool's return algorithm.
func (p *PooledDataSource) Push(pc *PooledConnection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := -1
	for i, a := range p.active {
		if a == pc {
			idx = i
			break
		}
	}
	if idx >= 0 {
		p.active = append(p.active[:idx], p.active[idx+1:]...)
	}
	p.state.AccumulatedCheckoutTime += pc.CheckoutDuration()

	valid, _ := p.pingValid(pc)
	if valid && len(p.idle) < p.cfg.MaxIdle && pc.typeCode == p.expectedType {
		rollbackIfNotAutoCommit(pc.raw, p.creds.AutoCommit)
		fresh := &PooledConnection{
			id: uuid.NewString(), raw: pc.raw, pool: p,
			createdAt: pc.createdAt, lastUsedAt: time.Now(),
			typeCode: pc.typeCode, valid: true,
		}
		pc.invalidate()
		p.idle = append(p.idle, fresh)
		p.cond.Signal()
		return
	}

	if !valid {
		p.state.BadConnectionCount++
	}
	pc.raw.Close()
	pc.invalidate()
}

// pingValid implements the pool's liveness rule: the raw connection must
// not be closed, and, when pingEnabled and pingNotUsedFor is
// non-negative and the wrapper's idle time exceeds it, pingQuery must
// execute without error.
func (p *PooledDataSource) pingValid(pc *PooledConnection) (bool, error) {
	if !pc.isValid() {
		return false, &ConnectionError{Message: "already invalidated"}
	}
	if !p.cfg.PingEnabled || p.cfg.PingNotUsedFor < 0 {
		return true, nil
	}
	if time.Since(pc.lastUsedAt) <= p.cfg.PingNotUsedFor {
		return true, nil
	}
	return runPingQuery(pc.raw, p.cfg.PingQuery, p.creds.AutoCommit)
}

// runPingQuery executes query against raw via the lowest-level
// database/sql/driver surface available on the connection, closing its
// result set and rolling back afterward when not in auto-commit mode.
func runPingQuery(raw driver.Conn, query string, autoCommit bool) (bool, error) {
	defer rollbackIfNotAutoCommit(raw, autoCommit)
	if pinger, ok := raw.(driver.Pinger); ok {
		if err := pinger.Ping(context.Background()); err != nil {
			return false, err
		}
		return true, nil
	}
	stmt, err := raw.Prepare(query)
	if err != nil {
		return false, err
	}
	defer stmt.Close()
	rows, err := stmt.Query(nil)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	return true, nil
}

// rollbackIfNotAutoCommit rolls back any transaction implicitly left
// open on raw. database/sql/driver has no ambient autocommit flag the
// way a JDBC Connection does; this begins and immediately rolls back a
// transaction as the closest idiomatic analogue, swallowing errors as
// an IgnorableError-style best-effort operation.
func rollbackIfNotAutoCommit(raw driver.Conn, autoCommit bool) {
	if autoCommit || raw == nil {
		return
	}
	tx, err := raw.Begin()
	if err != nil {
		return
	}
	_ = tx.Rollback()
}

func (p *PooledDataSource) openRaw(ctx context.Context) (driver.Conn, error) {
	dsn := p.creds.driverPropertiesDSN()
	if connector, ok := p.creds.Driver.(interface {
		OpenConnector(name string) (driver.Connector, error)
	}); ok {
		c, err := connector.OpenConnector(dsn)
		if err != nil {
			return nil, err
		}
		return c.Connect(ctx)
	}
	return p.creds.Driver.Open(dsn)
}

// forceCloseAll drains, under the lock,
// both collections from the tail forward, rolling back (when not
// auto-commit) and closing each raw connection, invalidating each
// wrapper, then recompute the expected type-code from current
// credentials. Called by every credential/dimension setter so
// subsequent returns do not recycle stale connections.
func (p *PooledDataSource) forceCloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeAllLocked(p.active)
	p.closeAllLocked(p.idle)
	p.active = nil
	p.idle = nil
	p.expectedType = p.creds.typeCode()
	p.cond.Broadcast()
}

func (p *PooledDataSource) closeAllLocked(conns []*PooledConnection) {
	for i := len(conns) - 1; i >= 0; i-- {
		pc := conns[i]
		rollbackIfNotAutoCommit(pc.raw, p.creds.AutoCommit)
		pc.raw.Close()
		pc.invalidate()
	}
}

// Stats returns a snapshot of the pool's counters and current
// idle/active sizes.
func (p *PooledDataSource) Stats() PoolState {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	s.IdleCount = len(p.idle)
	s.ActiveCount = len(p.active)
	return s
}

// SetDriver, SetDSN, SetUsername, SetPassword, SetAutoCommit, and
// SetDriverProperty all call forceCloseAll, so a credential
// change never lets a stale connection be recycled into a caller
// expecting the new identity.

func (p *PooledDataSource) SetDriver(d driver.Driver) {
	p.mu.Lock()
	p.creds.Driver = d
	p.mu.Unlock()
	p.forceCloseAll()
}

func (p *PooledDataSource) SetDSN(dsn string) {
	p.mu.Lock()
	p.creds.DSN = dsn
	p.mu.Unlock()
	p.forceCloseAll()
}

func (p *PooledDataSource) SetUsername(username string) {
	p.mu.Lock()
	p.creds.Username = username
	p.mu.Unlock()
	p.forceCloseAll()
}

func (p *PooledDataSource) SetPassword(password string) {
	p.mu.Lock()
	p.creds.Password = password
	p.mu.Unlock()
	p.forceCloseAll()
}

func (p *PooledDataSource) SetAutoCommit(autoCommit bool) {
	p.mu.Lock()
	p.creds.AutoCommit = autoCommit
	p.mu.Unlock()
	p.forceCloseAll()
}

func (p *PooledDataSource) SetDriverProperty(key, value string) {
	p.mu.Lock()
	if p.creds.DriverProperties == nil {
		p.creds.DriverProperties = make(map[string]string)
	}
	p.creds.DriverProperties[key] = value
	p.mu.Unlock()
	p.forceCloseAll()
}

// SetPoolDimensions updates the pool's sizing/timing parameters,
// calling forceCloseAll since pool dimensions are one of the setter
// categories that must invalidate outstanding state.
func (p *PooledDataSource) SetPoolDimensions(cfg PoolConfig) {
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	p.forceCloseAll()
}
