package birthday

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultSQLitePath      = "data.db"
	defaultMySQLPort       = 3306
	defaultPostgresPort    = 5432
	defaultDatabaseName    = "birthday_perks"
	defaultPoolMaxOpen     = 10
	defaultPoolMaxIdle     = 2
	defaultConnTimeout     = 30 * time.Second
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
	defaultOpTimeout       = 10 * time.Second

	defaultCacheTTL     = 30 * time.Minute
	defaultCacheMaxSize = 1000
)

// StoreConfig controls how a Store is constructed.
type StoreConfig struct {
	Backend Backend

	// Path is the database file for the embedded backend. A DSN such as
	// ":memory:" or a file: URI is passed through untouched.
	Path string

	// Connection parameters for the networked backends.
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// Pool bounds and timeouts for the networked backends. ConnTimeout also
	// bounds the dial, so a saturated pool degrades to a reported failure
	// rather than an unbounded stall.
	PoolMaxOpen     int
	PoolMaxIdle     int
	ConnTimeout     time.Duration
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// OpTimeout bounds each store operation when the caller's context
	// carries no deadline of its own.
	OpTimeout time.Duration
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	if c.Path == "" {
		c.Path = defaultSQLitePath
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		if c.Backend == BackendPostgres {
			c.Port = defaultPostgresPort
		} else {
			c.Port = defaultMySQLPort
		}
	}
	if c.Database == "" {
		c.Database = defaultDatabaseName
	}
	if c.PoolMaxOpen <= 0 {
		c.PoolMaxOpen = defaultPoolMaxOpen
	}
	if c.PoolMaxIdle <= 0 {
		c.PoolMaxIdle = defaultPoolMaxIdle
	}
	if c.ConnTimeout <= 0 {
		c.ConnTimeout = defaultConnTimeout
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = defaultConnMaxIdleTime
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = defaultOpTimeout
	}
	return c
}

// dsn resolves the driver name and data source for the configured backend.
func (c StoreConfig) dsn() (driverName, dsn string) {
	switch c.Backend {
	case BackendMySQL:
		timeout := c.ConnTimeout
		return "mysql", fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&timeout=%s&readTimeout=%s&writeTimeout=%s",
			c.Username, c.Password, c.Host, c.Port, c.Database,
			timeout, timeout, timeout,
		)
	case BackendPostgres:
		return "pgx", fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=disable&connect_timeout=%d",
			c.Username, c.Password, c.Host, c.Port, c.Database,
			int(c.ConnTimeout.Seconds()),
		)
	default:
		return "sqlite", sqliteDSN(c.Path)
	}
}

// sqliteDSN wraps a plain file path with the WAL/busy-timeout pragmas the
// embedded store runs with. Explicit DSNs pass through untouched.
func sqliteDSN(path string) string {
	if strings.Contains(path, ":memory:") || strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path +
		"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)"
}

// Rules are the policy knobs consumed by callers of Record's policy methods.
// The record layer itself does not enforce them; it only answers questions
// parameterized by them.
type Rules struct {
	// AllowModify permits changing an already-set birth date at all.
	AllowModify bool
	// ModifyLimitPerYear caps birth-date changes per calendar year;
	// negative means unlimited.
	ModifyLimitPerYear int
	// ClaimWindowDays is the trailing grace period, in days, after the
	// recurrence date during which the yearly entitlement may be claimed.
	ClaimWindowDays int
	// UpcomingDays is the horizon for upcoming-birthday listings.
	UpcomingDays int
}

// DefaultRules returns the stock policy: one locked-in birthday change per
// year, a week-long claim window, and a 30-day upcoming horizon.
func DefaultRules() Rules {
	return Rules{
		AllowModify:        false,
		ModifyLimitPerYear: 1,
		ClaimWindowDays:    7,
		UpcomingDays:       30,
	}
}
