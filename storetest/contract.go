// Package storetest provides a backend-agnostic contract suite for Store
// implementations. Backend packages and integration tests run the same
// assertions against sqlite, memory, and containerized servers.
package storetest

import (
	"context"
	"testing"
	"time"

	birthday "github.com/GalaxyPoke/PlayerBirthdayPerks"
	"github.com/google/uuid"
)

// Store is the contract under test.
type Store = birthday.Store

// Options configures the shared contract checks.
type Options struct {
	// Now pins the clock for upcoming-birthday assertions. Defaults to
	// 2024-06-01, far from any year boundary.
	Now time.Time
}

// RunStoreContract runs the shared Store contract suite. The store must be
// empty; the suite calls Initialize itself and leaves records behind.
func RunStoreContract(t *testing.T, store Store, opts Options) {
	t.Helper()
	ctx := context.Background()

	now := opts.Now
	if now.IsZero() {
		now = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	}

	// Initialize is idempotent.
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("second initialize failed: %v", err)
	}

	// Missing id: not an error, not a record.
	missing := uuid.New()
	if rec, err := store.Fetch(ctx, missing); err != nil || rec != nil {
		t.Fatalf("expected clean miss, got rec=%v err=%v", rec, err)
	}
	if ok, err := store.Exists(ctx, missing); err != nil || ok {
		t.Fatalf("expected exists=false, got ok=%v err=%v", ok, err)
	}

	// Upsert/Fetch round-trip with every field populated.
	full := birthday.NewRecord(uuid.New(), now)
	full.SetDisplayName("Alice", now)
	full.SetBirthDate(time.Date(1996, time.March, 15, 0, 0, 0, 0, time.UTC), now)
	full.MarkClaimed(now)
	full.IncrementModifyCount(now)
	full.SetEntitlementExpiry(now.AddDate(0, 0, 30), now)
	if err := store.Upsert(ctx, full); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	got, err := store.Fetch(ctx, full.ID)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	assertRecordsEqual(t, full, got)

	// Upsert replaces in place.
	full.SetDisplayName("Alicia", now)
	if err := store.Upsert(ctx, full); err != nil {
		t.Fatalf("replace upsert failed: %v", err)
	}
	got, err = store.Fetch(ctx, full.ID)
	if err != nil {
		t.Fatalf("fetch after replace failed: %v", err)
	}
	if got.DisplayName != "Alicia" {
		t.Fatalf("expected replaced name, got %q", got.DisplayName)
	}

	// A record without a birth date round-trips its nils.
	bare := birthday.NewRecord(uuid.New(), now)
	bare.SetDisplayName("Bob", now)
	if err := store.Upsert(ctx, bare); err != nil {
		t.Fatalf("bare upsert failed: %v", err)
	}
	got, err = store.Fetch(ctx, bare.ID)
	if err != nil {
		t.Fatalf("bare fetch failed: %v", err)
	}
	if got.HasBirthdaySet() || got.LastClaimDate != nil || got.EntitlementExpiry != nil {
		t.Fatalf("expected unset optionals, got %+v", got)
	}

	// Month/day lookup sees only matching recurrence dates.
	sameDay, err := store.FindByMonthDay(ctx, time.March, 15)
	if err != nil {
		t.Fatalf("find by month/day failed: %v", err)
	}
	if len(sameDay) != 1 || sameDay[0].ID != full.ID {
		t.Fatalf("expected exactly the March 15 record, got %d", len(sameDay))
	}
	if none, err := store.FindByMonthDay(ctx, time.March, 16); err != nil || len(none) != 0 {
		t.Fatalf("expected no March 16 records, got %d err=%v", len(none), err)
	}

	// Upcoming listing: windowed and sorted ascending by days-until.
	soon := birthday.NewRecord(uuid.New(), now)
	soon.SetDisplayName("Carol", now)
	soon.SetBirthDate(birthday.DateOf(now.AddDate(0, 0, 3)), now)
	if err := store.Upsert(ctx, soon); err != nil {
		t.Fatalf("upsert soon failed: %v", err)
	}
	later := birthday.NewRecord(uuid.New(), now)
	later.SetDisplayName("Dan", now)
	later.SetBirthDate(birthday.DateOf(now.AddDate(0, 0, 10)), now)
	if err := store.Upsert(ctx, later); err != nil {
		t.Fatalf("upsert later failed: %v", err)
	}
	upcoming, err := store.FindUpcoming(ctx, 14, now)
	if err != nil {
		t.Fatalf("find upcoming failed: %v", err)
	}
	if len(upcoming) != 2 {
		t.Fatalf("expected 2 upcoming records, got %d", len(upcoming))
	}
	if upcoming[0].ID != soon.ID || upcoming[1].ID != later.ID {
		t.Fatalf("expected ascending days-until order")
	}
	narrow, err := store.FindUpcoming(ctx, 5, now)
	if err != nil {
		t.Fatalf("narrow find upcoming failed: %v", err)
	}
	if len(narrow) != 1 || narrow[0].ID != soon.ID {
		t.Fatalf("expected only the 3-day record within 5 days, got %d", len(narrow))
	}

	// All-with-birthday excludes records without one.
	withBirthday, err := store.FindAllWithBirthday(ctx)
	if err != nil {
		t.Fatalf("find all with birthday failed: %v", err)
	}
	if len(withBirthday) != 3 {
		t.Fatalf("expected 3 records with birthdays, got %d", len(withBirthday))
	}
	for _, rec := range withBirthday {
		if rec.ID == bare.ID {
			t.Fatalf("record without birth date leaked into listing")
		}
	}

	// Delete is idempotent.
	if err := store.Delete(ctx, bare.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.Delete(ctx, bare.ID); err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
	if rec, err := store.Fetch(ctx, bare.ID); err != nil || rec != nil {
		t.Fatalf("expected deleted record gone, rec=%v err=%v", rec, err)
	}
}

func assertRecordsEqual(t *testing.T, want, got *birthday.Record) {
	t.Helper()
	if got == nil {
		t.Fatalf("expected record %s, got nil", want.ID)
	}
	if got.ID != want.ID {
		t.Fatalf("id mismatch: want %s got %s", want.ID, got.ID)
	}
	if got.DisplayName != want.DisplayName {
		t.Fatalf("display name mismatch: want %q got %q", want.DisplayName, got.DisplayName)
	}
	assertDatesEqual(t, "birth date", want.BirthDate, got.BirthDate)
	assertDatesEqual(t, "last claim date", want.LastClaimDate, got.LastClaimDate)
	assertDatesEqual(t, "entitlement expiry", want.EntitlementExpiry, got.EntitlementExpiry)
	if got.LastClaimYear != want.LastClaimYear {
		t.Fatalf("last claim year mismatch: want %d got %d", want.LastClaimYear, got.LastClaimYear)
	}
	if got.ModifyCountThisYear != want.ModifyCountThisYear {
		t.Fatalf("modify count mismatch: want %d got %d", want.ModifyCountThisYear, got.ModifyCountThisYear)
	}
	if got.LastModifyYear != want.LastModifyYear {
		t.Fatalf("modify year mismatch: want %d got %d", want.LastModifyYear, got.LastModifyYear)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created at mismatch: want %s got %s", want.CreatedAt, got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Fatalf("updated at mismatch: want %s got %s", want.UpdatedAt, got.UpdatedAt)
	}
}

func assertDatesEqual(t *testing.T, field string, want, got *time.Time) {
	t.Helper()
	switch {
	case want == nil && got == nil:
	case want == nil || got == nil:
		t.Fatalf("%s mismatch: want %v got %v", field, want, got)
	case !want.Equal(*got):
		t.Fatalf("%s mismatch: want %s got %s", field, want, got)
	}
}
