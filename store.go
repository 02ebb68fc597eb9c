package birthday

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Backend identifies a concrete store implementation.
type Backend string

const (
	// BackendSQLite is the embedded single-writer file store.
	BackendSQLite Backend = "sqlite"
	// BackendMySQL is the networked connection-pooled store.
	BackendMySQL Backend = "mysql"
	// BackendPostgres is the networked store speaking the postgres dialect.
	BackendPostgres Backend = "postgres"
	// BackendMemory is the in-process store used for tests and development.
	BackendMemory Backend = "memory"
)

// Store is the persistence contract shared by all backends. Every method is
// safe for concurrent use; blocking happens only inside these calls and is
// bounded by the operation timeout configured on the backend. Absence of a
// record is never an error: Fetch returns (nil, nil) on a miss.
type Store interface {
	// Backend names the implementation, for diagnostics only.
	Backend() Backend
	// Initialize opens the backing resources and ensures the schema exists.
	// It is idempotent and upgrades a legacy table missing the birth_year
	// column rather than failing.
	Initialize(ctx context.Context) error
	// Close releases all connections; further calls fail with ErrStoreClosed.
	Close() error
	// Upsert inserts or replaces the record keyed by its ID. Concurrent
	// readers never observe a partially-written row.
	Upsert(ctx context.Context, rec *Record) error
	// Fetch returns the record for id, or nil when none exists.
	Fetch(ctx context.Context, id uuid.UUID) (*Record, error)
	// Delete removes the record for id; deleting a missing id is a no-op.
	Delete(ctx context.Context, id uuid.UUID) error
	// Exists reports whether a record for id is present.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// FindByMonthDay returns every record whose recurrence date is exactly
	// (month, day).
	FindByMonthDay(ctx context.Context, month time.Month, day int) ([]*Record, error)
	// FindUpcoming returns records whose next recurrence falls within
	// withinDays of now, sorted ascending by days-until.
	FindUpcoming(ctx context.Context, withinDays int, now time.Time) ([]*Record, error)
	// FindAllWithBirthday returns every record that has a birth date set.
	FindAllWithBirthday(ctx context.Context) ([]*Record, error)
}

// ErrStoreClosed is reported by any store operation after Close.
var ErrStoreClosed = errors.New("store is closed")

// StoreError wraps every failure surfaced by a Store, carrying the backend
// and the operation that failed. Callers must treat it as "unknown outcome",
// not as absence.
type StoreError struct {
	Backend Backend
	Op      string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(backend Backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Backend: backend, Op: op, Err: err}
}
