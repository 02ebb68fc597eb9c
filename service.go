package birthday

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service is the cache-aside orchestrator in front of a Store. It owns the
// only in-process cache of records: reads consult the cache and fall back to
// the store, writes go through to both. Construct one Service per process
// after the store's Initialize succeeds and hand it to every collaborator
// that needs record access.
//
// Per-key cache operations are atomic; cross-key consistency and
// read-modify-write serialization for a single identity stay with the
// caller, which in practice is the one session driving that identity.
type Service struct {
	store    Store
	ttl      time.Duration
	maxSize  int
	now      func() time.Time
	observer Observer

	mu      sync.Mutex
	entries map[uuid.UUID]*cacheEntry
}

type cacheEntry struct {
	record     *Record
	insertedAt time.Time
}

// NewService wraps store with a bounded, time-expiring record cache.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		ttl:     defaultCacheTTL,
		maxSize: defaultCacheMaxSize,
		now:     time.Now,
		entries: make(map[uuid.UUID]*cacheEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store; list queries (FindUpcoming,
// FindByMonthDay) go straight to it, as only single-id lookups are cached.
func (s *Service) Store() Store { return s.store }

// Get returns the record for id, or nil when none exists. A fresh cache
// entry answers without I/O; a store miss is not cached.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	start := s.now()

	s.mu.Lock()
	if entry, ok := s.entries[id]; ok && !s.expired(entry, start) {
		rec := entry.record
		s.mu.Unlock()
		s.observe(ctx, "get", id, true, nil, start)
		return rec, nil
	}
	s.mu.Unlock()

	rec, err := s.store.Fetch(ctx, id)
	if err != nil {
		s.observe(ctx, "get", id, false, err, start)
		return nil, err
	}
	if rec != nil {
		s.put(id, rec)
	}
	s.observe(ctx, "get", id, false, nil, start)
	return rec, nil
}

// GetOrCreate returns the record for id, creating and persisting a default
// one on first access. When the stored display name no longer matches the
// currently observed one, it is refreshed and persisted before returning, so
// the name column stays current without a dedicated update path. A failed
// create propagates its error rather than returning an unpersisted record.
func (s *Service) GetOrCreate(ctx context.Context, id uuid.UUID, displayName string) (*Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = NewRecord(id, s.now())
		rec.SetDisplayName(displayName, s.now())
		if err := s.Save(ctx, rec); err != nil {
			return nil, err
		}
		return rec, nil
	}
	if rec.DisplayName != displayName {
		rec.SetDisplayName(displayName, s.now())
		if err := s.Save(ctx, rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Save writes rec to the cache and through to the store. Once Save returns
// nil, a Get for the same id sees the saved record without a store
// round-trip. A store failure propagates unchanged; no retry happens here.
func (s *Service) Save(ctx context.Context, rec *Record) error {
	start := s.now()
	s.put(rec.ID, rec)
	err := s.store.Upsert(ctx, rec)
	s.observe(ctx, "save", rec.ID, false, err, start)
	return err
}

// Delete removes the record from both cache and store. The next access
// recreates a fresh default record via GetOrCreate.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	start := s.now()
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	err := s.store.Delete(ctx, id)
	s.observe(ctx, "delete", id, false, err, start)
	return err
}

// Invalidate drops the cache entry for id without touching the store.
func (s *Service) Invalidate(id uuid.UUID) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// Clear drops every cache entry without touching the store.
func (s *Service) Clear() {
	s.mu.Lock()
	s.entries = make(map[uuid.UUID]*cacheEntry)
	s.mu.Unlock()
}

// CacheLen reports how many entries the cache currently holds.
func (s *Service) CacheLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close clears the cache and closes the underlying store.
func (s *Service) Close() error {
	s.Clear()
	return s.store.Close()
}

func (s *Service) put(id uuid.UUID, rec *Record) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[id]; !exists {
		s.evictLocked(now)
	}
	s.entries[id] = &cacheEntry{record: rec, insertedAt: now}
}

// evictLocked makes room for one insert: purge expired entries first, then
// drop oldest-inserted entries until under the bound. Insertion time, not
// last access, decides age; this is a bounded-staleness cache, not an LRU.
func (s *Service) evictLocked(now time.Time) {
	if len(s.entries) < s.maxSize {
		return
	}
	for id, entry := range s.entries {
		if s.expired(entry, now) {
			delete(s.entries, id)
		}
	}
	if len(s.entries) < s.maxSize {
		return
	}

	type aged struct {
		id         uuid.UUID
		insertedAt time.Time
	}
	oldest := make([]aged, 0, len(s.entries))
	for id, entry := range s.entries {
		oldest = append(oldest, aged{id: id, insertedAt: entry.insertedAt})
	}
	sort.Slice(oldest, func(i, j int) bool {
		return oldest[i].insertedAt.Before(oldest[j].insertedAt)
	})
	for _, candidate := range oldest {
		if len(s.entries) < s.maxSize {
			break
		}
		delete(s.entries, candidate.id)
	}
}

func (s *Service) expired(entry *cacheEntry, now time.Time) bool {
	return now.Sub(entry.insertedAt) > s.ttl
}

func (s *Service) observe(ctx context.Context, op string, id uuid.UUID, hit bool, err error, start time.Time) {
	if s.observer == nil {
		return
	}
	s.observer.OnRecordOp(ctx, op, id, hit, err, s.now().Sub(start), s.store.Backend())
}
