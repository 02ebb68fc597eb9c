// Package recordfake provides a deterministic in-memory store plus
// call-count assertions for tests. It wraps the memory backend so no
// external services are needed.
package recordfake

import (
	"context"
	"sync"
	"testing"
	"time"

	birthday "github.com/GalaxyPoke/PlayerBirthdayPerks"
	"github.com/google/uuid"
)

// Op identifies a store operation for assertions.
type Op string

const (
	OpInitialize     Op = "initialize"
	OpUpsert         Op = "upsert"
	OpFetch          Op = "fetch"
	OpDelete         Op = "delete"
	OpExists         Op = "exists"
	OpFindByMonthDay Op = "find_by_month_day"
	OpFindUpcoming   Op = "find_upcoming"
	OpFindAll        Op = "find_all_with_birthday"
)

// Fake is a Store that records every call, for asserting cache behavior
// (e.g. that a Get after a Save never reaches the store).
type Fake struct {
	inner birthday.Store

	mu     sync.Mutex
	counts map[Op]map[string]int

	// FailWith, when set, is returned by every subsequent store operation.
	// FailOn targets a single operation instead.
	failMu   sync.Mutex
	failWith error
	failOps  map[Op]error
}

// New creates a Fake backed by the in-memory store.
func New() *Fake {
	return &Fake{
		inner:  birthday.NewMemoryStore(),
		counts: make(map[Op]map[string]int),
	}
}

var _ birthday.Store = (*Fake)(nil)

// FailWith makes every following operation return err; nil restores normal
// behavior.
func (f *Fake) FailWith(err error) {
	f.failMu.Lock()
	f.failWith = err
	f.failMu.Unlock()
}

// FailOn makes only op return err; nil clears the injection for op.
func (f *Fake) FailOn(op Op, err error) {
	f.failMu.Lock()
	if f.failOps == nil {
		f.failOps = make(map[Op]error)
	}
	if err == nil {
		delete(f.failOps, op)
	} else {
		f.failOps[op] = err
	}
	f.failMu.Unlock()
}

// Reset clears recorded counts.
func (f *Fake) Reset() {
	f.mu.Lock()
	f.counts = make(map[Op]map[string]int)
	f.mu.Unlock()
}

// AssertCalled verifies id was touched by op the expected number of times.
func (f *Fake) AssertCalled(t *testing.T, op Op, id uuid.UUID, times int) {
	t.Helper()
	if got := f.Count(op, id); got != times {
		t.Fatalf("expected %s %s called %d times, got %d", op, id, times, got)
	}
}

// AssertTotal verifies the total call count for op across ids.
func (f *Fake) AssertTotal(t *testing.T, op Op, times int) {
	t.Helper()
	if got := f.Total(op); got != times {
		t.Fatalf("expected %s total=%d, got %d", op, times, got)
	}
}

// Count returns calls for op+id.
func (f *Fake) Count(op Op, id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[op] == nil {
		return 0
	}
	return f.counts[op][id.String()]
}

// Total returns total calls for op across ids.
func (f *Fake) Total(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int
	for _, n := range f.counts[op] {
		sum += n
	}
	return sum
}

func (f *Fake) bump(op Op, key string) error {
	f.mu.Lock()
	if f.counts[op] == nil {
		f.counts[op] = make(map[string]int)
	}
	f.counts[op][key]++
	f.mu.Unlock()

	f.failMu.Lock()
	defer f.failMu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	return f.failOps[op]
}

func (f *Fake) Backend() birthday.Backend { return f.inner.Backend() }

func (f *Fake) Initialize(ctx context.Context) error {
	if err := f.bump(OpInitialize, ""); err != nil {
		return err
	}
	return f.inner.Initialize(ctx)
}

func (f *Fake) Close() error { return f.inner.Close() }

func (f *Fake) Upsert(ctx context.Context, rec *birthday.Record) error {
	if err := f.bump(OpUpsert, rec.ID.String()); err != nil {
		return err
	}
	return f.inner.Upsert(ctx, rec)
}

func (f *Fake) Fetch(ctx context.Context, id uuid.UUID) (*birthday.Record, error) {
	if err := f.bump(OpFetch, id.String()); err != nil {
		return nil, err
	}
	return f.inner.Fetch(ctx, id)
}

func (f *Fake) Delete(ctx context.Context, id uuid.UUID) error {
	if err := f.bump(OpDelete, id.String()); err != nil {
		return err
	}
	return f.inner.Delete(ctx, id)
}

func (f *Fake) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := f.bump(OpExists, id.String()); err != nil {
		return false, err
	}
	return f.inner.Exists(ctx, id)
}

func (f *Fake) FindByMonthDay(ctx context.Context, month time.Month, day int) ([]*birthday.Record, error) {
	if err := f.bump(OpFindByMonthDay, ""); err != nil {
		return nil, err
	}
	return f.inner.FindByMonthDay(ctx, month, day)
}

func (f *Fake) FindUpcoming(ctx context.Context, withinDays int, now time.Time) ([]*birthday.Record, error) {
	if err := f.bump(OpFindUpcoming, ""); err != nil {
		return nil, err
	}
	return f.inner.FindUpcoming(ctx, withinDays, now)
}

func (f *Fake) FindAllWithBirthday(ctx context.Context) ([]*birthday.Record, error) {
	if err := f.bump(OpFindAll, ""); err != nil {
		return nil, err
	}
	return f.inner.FindAllWithBirthday(ctx)
}
