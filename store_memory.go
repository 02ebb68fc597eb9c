package birthday

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// memoryStore keeps records in-process. It backs tests and development
// setups; durable deployments use the sqlite or networked backends.
type memoryStore struct {
	cache *gocache.Cache

	mu     sync.Mutex
	closed bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		// Records never expire on their own; the cleanup janitor stays off.
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

func (s *memoryStore) Backend() Backend { return BackendMemory }

func (s *memoryStore) Initialize(context.Context) error {
	return s.checkOpen("initialize")
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storeErr(BackendMemory, "close", ErrStoreClosed)
	}
	s.closed = true
	s.cache.Flush()
	return nil
}

func (s *memoryStore) Upsert(_ context.Context, rec *Record) error {
	if err := s.checkOpen("upsert"); err != nil {
		return err
	}
	// Clones on both write and read keep callers' mutations from aliasing
	// the stored copy, matching the isolation of the SQL backends.
	s.cache.Set(rec.ID.String(), rec.Clone(), gocache.NoExpiration)
	return nil
}

func (s *memoryStore) Fetch(_ context.Context, id uuid.UUID) (*Record, error) {
	if err := s.checkOpen("fetch"); err != nil {
		return nil, err
	}
	item, ok := s.cache.Get(id.String())
	if !ok {
		return nil, nil
	}
	rec, ok := item.(*Record)
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (s *memoryStore) Delete(_ context.Context, id uuid.UUID) error {
	if err := s.checkOpen("delete"); err != nil {
		return err
	}
	s.cache.Delete(id.String())
	return nil
}

func (s *memoryStore) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	if err := s.checkOpen("exists"); err != nil {
		return false, err
	}
	_, ok := s.cache.Get(id.String())
	return ok, nil
}

func (s *memoryStore) FindByMonthDay(_ context.Context, month time.Month, day int) ([]*Record, error) {
	if err := s.checkOpen("find_by_month_day"); err != nil {
		return nil, err
	}
	var records []*Record
	for _, item := range s.cache.Items() {
		rec, ok := item.Object.(*Record)
		if !ok {
			continue
		}
		if m, d, set := rec.MonthDay(); set && m == month && d == day {
			records = append(records, rec.Clone())
		}
	}
	return records, nil
}

func (s *memoryStore) FindUpcoming(ctx context.Context, withinDays int, now time.Time) ([]*Record, error) {
	all, err := s.FindAllWithBirthday(ctx)
	if err != nil {
		return nil, err
	}
	return filterUpcoming(all, withinDays, now), nil
}

func (s *memoryStore) FindAllWithBirthday(_ context.Context) ([]*Record, error) {
	if err := s.checkOpen("find_all_with_birthday"); err != nil {
		return nil, err
	}
	var records []*Record
	for _, item := range s.cache.Items() {
		rec, ok := item.Object.(*Record)
		if !ok {
			continue
		}
		if rec.HasBirthdaySet() {
			records = append(records, rec.Clone())
		}
	}
	return records, nil
}

func (s *memoryStore) checkOpen(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storeErr(BackendMemory, op, ErrStoreClosed)
	}
	return nil
}
