package sqlmap

import (
	"database/sql/driver"
	"hash/fnv"
	"sort"
	"time"
)

// PoolConfig holds the dimensioning parameters of a PooledDataSource,
// each with the defaults this family ships.
type PoolConfig struct {
	MaxActive             int           // default 10: hard cap on simultaneously checked-out connections
	MaxIdle               int           // default 5: cap on retained idle connections
	MaxCheckoutTime       time.Duration // default 20s: after which an active connection is reclaimable
	TimeToWait            time.Duration // default 20s: max wait for a returned connection before retrying
	MaxLocalBadTolerance  int           // default 3: additional attempts permitted a requester hitting bad connections
	PingEnabled           bool
	PingQuery             string
	PingNotUsedFor        time.Duration // a negative value disables time-gated pinging
}

// DefaultPoolConfig returns the default pool dimensions.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxActive:            10,
		MaxIdle:              5,
		MaxCheckoutTime:      20 * time.Second,
		TimeToWait:           20 * time.Second,
		MaxLocalBadTolerance: 3,
		PingEnabled:          false,
		PingQuery:            "NO PING QUERY SET",
		PingNotUsedFor:       0,
	}
}

// applyPoolConfigKV applies one "via data-source properties" pool key
// to cfg, reporting an unrecognized key as false (not a hard
// error: unrecognized keys here fall through to the arbitrary driver.*
// pass-through properties, unlike <settings>'s closed key set).
func applyPoolConfigKV(cfg *PoolConfig, key, value string) bool {
	switch key {
	case "poolMaximumActiveConnections":
		cfg.MaxActive = atoiOr(value, cfg.MaxActive)
	case "poolMaximumIdleConnections":
		cfg.MaxIdle = atoiOr(value, cfg.MaxIdle)
	case "poolMaximumCheckoutTime":
		cfg.MaxCheckoutTime = time.Duration(atoiOr(value, int(cfg.MaxCheckoutTime/time.Millisecond))) * time.Millisecond
	case "poolTimeToWait":
		cfg.TimeToWait = time.Duration(atoiOr(value, int(cfg.TimeToWait/time.Millisecond))) * time.Millisecond
	case "poolMaximumLocalBadConnectionTolerance":
		cfg.MaxLocalBadTolerance = atoiOr(value, cfg.MaxLocalBadTolerance)
	case "poolPingQuery":
		cfg.PingQuery = value
	case "poolPingEnabled":
		cfg.PingEnabled = parseBoolOr(value, cfg.PingEnabled)
	case "poolPingConnectionsNotUsedFor":
		cfg.PingNotUsedFor = time.Duration(atoiOr(value, int(cfg.PingNotUsedFor/time.Millisecond))) * time.Millisecond
	default:
		return false
	}
	return true
}

// DataSourceCredentials groups the connection identity a PooledDataSource
// opens raw connections with: driver/DSN/username/password and
// arbitrary driver-specific pass-through properties. Changing any field
// after construction must go through the pool's setter methods so
// forceCloseAll runs.
type DataSourceCredentials struct {
	Driver           driver.Driver
	DSN              string
	Username         string
	Password         string
	DriverProperties map[string]string
	AutoCommit       bool
}

// typeCode hashes url ∥ user ∥ password with FNV-1a, the same hashing
// style scanplan.go uses for its column-set cache key. A returned
// wrapper whose type-code no longer matches is closed rather than
// retained (a type-code mismatch), so credential changes take effect for
// future checkouts without needing to track every outstanding
// connection individually.
func (c DataSourceCredentials) typeCode() uint64 {
	h := fnv.New64a()
	h.Write([]byte(c.DSN))
	h.Write([]byte{0})
	h.Write([]byte(c.Username))
	h.Write([]byte{0})
	h.Write([]byte(c.Password))
	return h.Sum64()
}

// driverPropertiesDSN appends c.DriverProperties to c.DSN as
// "key=value" pairs in sorted key order (deterministic across map
// iteration), joined by '&' after a '?' if the DSN doesn't already
// carry one. typeCode above hashes the bare DSN, not these pairs.
func (c DataSourceCredentials) driverPropertiesDSN() string {
	if len(c.DriverProperties) == 0 {
		return c.DSN
	}
	keys := make([]string, 0, len(c.DriverProperties))
	for k := range c.DriverProperties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	dsn := c.DSN
	sep := "?"
	if containsByte(dsn, '?') {
		sep = "&"
	}
	for _, k := range keys {
		dsn += sep + k + "=" + c.DriverProperties[k]
		sep = "&"
	}
	return dsn
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
