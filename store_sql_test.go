package birthday_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	birthday "github.com/GalaxyPoke/PlayerBirthdayPerks"
	"github.com/GalaxyPoke/PlayerBirthdayPerks/storetest"
)

func newSQLiteStore(t *testing.T) birthday.Store {
	t.Helper()
	store, err := birthday.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("create sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreContract(t *testing.T) {
	storetest.RunStoreContract(t, newSQLiteStore(t), storetest.Options{})
}

func TestSQLiteStoreBackend(t *testing.T) {
	if got := newSQLiteStore(t).Backend(); got != birthday.BackendSQLite {
		t.Fatalf("expected sqlite backend, got %q", got)
	}
}

func TestSQLiteStoreFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "perks.db")
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	store, err := birthday.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	rec := birthday.NewRecord(uuid.New(), now)
	rec.SetDisplayName("Alice", now)
	rec.SetBirthDate(time.Date(2000, time.March, 15, 0, 0, 0, 0, time.UTC), now)
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// The record survives a full reopen of the file.
	store, err = birthday.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("reinitialize: %v", err)
	}
	got, err := store.Fetch(ctx, rec.ID)
	if err != nil {
		t.Fatalf("fetch after reopen: %v", err)
	}
	if got == nil || got.DisplayName != "Alice" {
		t.Fatalf("expected persisted record, got %+v", got)
	}
	if m, d, ok := got.MonthDay(); !ok || m != time.March || d != 15 {
		t.Fatalf("expected March 15 recurrence, got %v-%v ok=%v", m, d, ok)
	}
}

// Installations created before the birth year column existed must upgrade in
// place and read their rows back with the year-2000 fallback.
func TestSQLiteStoreUpgradesLegacySchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.db")
	id := uuid.New()

	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE birthday_players (
		uuid TEXT PRIMARY KEY,
		player_name TEXT,
		birthday_month INTEGER,
		birthday_day INTEGER,
		last_claim_year INTEGER DEFAULT 0,
		last_claim_date TEXT,
		modify_count_this_year INTEGER DEFAULT 0,
		last_modify_year INTEGER DEFAULT 0,
		entitlement_expiry TEXT,
		created_at TEXT,
		updated_at TEXT
	)`)
	if err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	_, err = db.Exec(
		`INSERT INTO birthday_players (uuid, player_name, birthday_month, birthday_day) VALUES (?, ?, ?, ?)`,
		id.String(), "OldTimer", 2, 29)
	if err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close raw db: %v", err)
	}

	store, err := birthday.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer store.Close()
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("initialize against legacy schema: %v", err)
	}

	got, err := store.Fetch(ctx, id)
	if err != nil {
		t.Fatalf("fetch legacy row: %v", err)
	}
	if got == nil {
		t.Fatal("expected legacy row to survive the upgrade")
	}
	if got.BirthDate == nil {
		t.Fatal("expected legacy month/day to produce a birth date")
	}
	// Year 2000 is a leap year, so even a Feb 29 legacy row stays valid.
	if got.BirthDate.Year() != 2000 {
		t.Fatalf("expected year-2000 fallback, got %d", got.BirthDate.Year())
	}
	if m, d, _ := got.MonthDay(); m != time.February || d != 29 {
		t.Fatalf("expected Feb 29 recurrence preserved, got %v-%v", m, d)
	}

	// The upgraded schema accepts full writes.
	got.SetBirthDate(time.Date(1996, time.February, 29, 0, 0, 0, 0, time.UTC), time.Now().UTC())
	if err := store.Upsert(ctx, got); err != nil {
		t.Fatalf("upsert into upgraded schema: %v", err)
	}
	again, err := store.Fetch(ctx, id)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if again.BirthDate.Year() != 1996 {
		t.Fatalf("expected birth year persisted after upgrade, got %d", again.BirthDate.Year())
	}
}

func TestSQLiteStoreClosed(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := store.Close(); !errors.Is(err, birthday.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed from double close, got %v", err)
	}
	if _, err := store.Fetch(ctx, uuid.New()); !errors.Is(err, birthday.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed from fetch, got %v", err)
	}
	err := store.Upsert(ctx, birthday.NewRecord(uuid.New(), time.Now()))
	if !errors.Is(err, birthday.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed from upsert, got %v", err)
	}

	var storeErr *birthday.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %T", err)
	}
	if storeErr.Backend != birthday.BackendSQLite || storeErr.Op != "upsert" {
		t.Fatalf("unexpected error detail: %+v", storeErr)
	}
}
