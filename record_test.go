package birthday

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func recordWithBirthDate(t *testing.T, birth time.Time, now time.Time) *Record {
	t.Helper()
	rec := NewRecord(uuid.New(), now)
	rec.SetBirthDate(birth, now)
	return rec
}

func TestNewRecordDefaults(t *testing.T) {
	now := time.Date(2024, time.June, 1, 15, 30, 0, 0, time.UTC)
	rec := NewRecord(uuid.New(), now)

	if rec.HasBirthdaySet() {
		t.Fatal("fresh record should have no birth date")
	}
	if rec.IsBirthdayToday(now) {
		t.Fatal("fresh record cannot have a birthday today")
	}
	if got := rec.DaysUntilBirthday(now); got != -1 {
		t.Fatalf("expected countdown -1 without birth date, got %d", got)
	}
	if got := rec.Age(now); got != -1 {
		t.Fatalf("expected age -1 without birth date, got %d", got)
	}
	if _, ok := rec.NextBirthday(now); ok {
		t.Fatal("expected no next birthday without birth date")
	}
	if rec.IsBirthdayInWindow(7, now) {
		t.Fatal("expected no window match without birth date")
	}
	if !rec.CreatedAt.Equal(date(2024, time.June, 1)) {
		t.Fatalf("expected day-precise created at, got %s", rec.CreatedAt)
	}
}

func TestIsBirthdayToday(t *testing.T) {
	birth := date(2000, time.March, 15)
	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"on the day", date(2024, time.March, 15), true},
		{"day before", date(2024, time.March, 14), false},
		{"day after", date(2024, time.March, 16), false},
		{"same day other month", date(2024, time.April, 15), false},
		{"any hour counts", time.Date(2024, time.March, 15, 23, 59, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := recordWithBirthDate(t, birth, tc.now)
			if got := rec.IsBirthdayToday(tc.now); got != tc.want {
				t.Fatalf("IsBirthdayToday(%s) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestDaysUntilBirthday(t *testing.T) {
	birth := date(2000, time.March, 15)
	cases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"day before", date(2024, time.March, 14), 1},
		{"on the day counts to next year", date(2024, time.March, 15), 365},
		{"day after", date(2024, time.March, 16), 364},
		{"new year", date(2025, time.January, 1), 73},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := recordWithBirthDate(t, birth, tc.now)
			if got := rec.DaysUntilBirthday(tc.now); got != tc.want {
				t.Fatalf("DaysUntilBirthday(%s) = %d, want %d", tc.now, got, tc.want)
			}
		})
	}
}

func TestIsBirthdayInWindow(t *testing.T) {
	birth := date(2000, time.March, 15)
	cases := []struct {
		name       string
		windowDays int
		now        time.Time
		want       bool
	}{
		{"on the day", 7, date(2024, time.March, 15), true},
		{"last day of window", 7, date(2024, time.March, 22), true},
		{"one past the window", 7, date(2024, time.March, 23), false},
		{"window never looks forward", 7, date(2024, time.March, 14), false},
		{"zero window is the day only", 0, date(2024, time.March, 15), true},
		{"zero window excludes day after", 0, date(2024, time.March, 16), false},
		{"no crossing into next year", 7, date(2025, time.March, 14), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := recordWithBirthDate(t, birth, tc.now)
			if got := rec.IsBirthdayInWindow(tc.windowDays, tc.now); got != tc.want {
				t.Fatalf("IsBirthdayInWindow(%d, %s) = %v, want %v", tc.windowDays, tc.now, got, tc.want)
			}
		})
	}
}

func TestLeapDayFallsBackToFebruary28(t *testing.T) {
	birth := date(2000, time.February, 29)
	now := date(2023, time.February, 27)
	rec := recordWithBirthDate(t, birth, now)

	if got := rec.DaysUntilBirthday(now); got != 1 {
		t.Fatalf("expected countdown 1 to the Feb 28 fallback, got %d", got)
	}
	next, ok := rec.NextBirthday(now)
	if !ok || !next.Equal(date(2023, time.February, 28)) {
		t.Fatalf("expected next birthday 2023-02-28, got %s ok=%v", next, ok)
	}
	if !rec.IsBirthdayInWindow(7, date(2023, time.February, 28)) {
		t.Fatal("expected the Feb 28 fallback day inside the window")
	}
	if !rec.IsBirthdayInWindow(7, date(2023, time.March, 7)) {
		t.Fatal("expected window to trail the Feb 28 fallback")
	}

	// In a leap year the occurrence is the real Feb 29 again.
	next, ok = rec.NextBirthday(date(2024, time.January, 1))
	if !ok || !next.Equal(date(2024, time.February, 29)) {
		t.Fatalf("expected next birthday 2024-02-29, got %s ok=%v", next, ok)
	}
}

func TestAge(t *testing.T) {
	birth := date(1996, time.March, 15)
	cases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"day before the birthday", date(2024, time.March, 14), 27},
		{"on the birthday", date(2024, time.March, 15), 28},
		{"day after", date(2024, time.March, 16), 28},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := recordWithBirthDate(t, birth, tc.now)
			if got := rec.Age(tc.now); got != tc.want {
				t.Fatalf("Age(%s) = %d, want %d", tc.now, got, tc.want)
			}
		})
	}
}

func TestClaimTracking(t *testing.T) {
	now := date(2024, time.March, 15)
	rec := recordWithBirthDate(t, date(2000, time.March, 15), now)

	if rec.HasClaimedThisYear(now) {
		t.Fatal("expected no claim before MarkClaimed")
	}
	rec.MarkClaimed(now)
	if !rec.HasClaimedThisYear(now) {
		t.Fatal("expected claim recorded for the current year")
	}
	if rec.LastClaimDate == nil || !rec.LastClaimDate.Equal(now) {
		t.Fatalf("expected last claim date %s, got %v", now, rec.LastClaimDate)
	}

	// The claim does not carry into the next calendar year.
	nextYear := date(2025, time.March, 15)
	if rec.HasClaimedThisYear(nextYear) {
		t.Fatal("expected claim to reset on year rollover")
	}
}

func TestModifyPolicy(t *testing.T) {
	now := date(2024, time.June, 1)

	t.Run("frozen once set when modification is disallowed", func(t *testing.T) {
		rec := recordWithBirthDate(t, date(2000, time.March, 15), now)
		if rec.CanModifyBirthday(false, 1, now) {
			t.Fatal("expected set birth date to be frozen")
		}
		unset := NewRecord(uuid.New(), now)
		if !unset.CanModifyBirthday(false, 1, now) {
			t.Fatal("expected first set to be allowed even when modification is off")
		}
	})

	t.Run("per-year limit", func(t *testing.T) {
		rec := recordWithBirthDate(t, date(2000, time.March, 15), now)
		if !rec.CanModifyBirthday(true, 1, now) {
			t.Fatal("expected modification allowed before the limit")
		}
		if got := rec.RemainingModifyCount(1, now); got != 1 {
			t.Fatalf("expected 1 remaining, got %d", got)
		}
		rec.IncrementModifyCount(now)
		if rec.CanModifyBirthday(true, 1, now) {
			t.Fatal("expected limit reached after one modification")
		}
		if got := rec.RemainingModifyCount(1, now); got != 0 {
			t.Fatalf("expected 0 remaining, got %d", got)
		}
	})

	t.Run("limit resets on year rollover", func(t *testing.T) {
		rec := recordWithBirthDate(t, date(2000, time.March, 15), now)
		rec.IncrementModifyCount(now)
		nextYear := date(2025, time.June, 1)
		if !rec.CanModifyBirthday(true, 1, nextYear) {
			t.Fatal("expected counter to reset in a new year")
		}
		if got := rec.RemainingModifyCount(1, nextYear); got != 1 {
			t.Fatalf("expected full allowance in a new year, got %d", got)
		}
		rec.IncrementModifyCount(nextYear)
		if rec.ModifyCountThisYear != 1 || rec.LastModifyYear != 2025 {
			t.Fatalf("expected counter restarted at 1 for 2025, got %d/%d",
				rec.ModifyCountThisYear, rec.LastModifyYear)
		}
	})

	t.Run("negative limit is unlimited", func(t *testing.T) {
		rec := recordWithBirthDate(t, date(2000, time.March, 15), now)
		for i := 0; i < 5; i++ {
			if !rec.CanModifyBirthday(true, -1, now) {
				t.Fatalf("expected unlimited modification, blocked at %d", i)
			}
			rec.IncrementModifyCount(now)
		}
		if got := rec.RemainingModifyCount(-1, now); got != -1 {
			t.Fatalf("expected -1 for unlimited, got %d", got)
		}
	})
}

func TestEntitlement(t *testing.T) {
	now := date(2024, time.June, 1)
	rec := NewRecord(uuid.New(), now)

	if rec.HasValidEntitlement(now) {
		t.Fatal("expected no entitlement by default")
	}
	rec.SetEntitlementExpiry(date(2024, time.June, 8), now)
	if !rec.HasValidEntitlement(now) {
		t.Fatal("expected entitlement valid before expiry")
	}
	if !rec.HasValidEntitlement(date(2024, time.June, 8)) {
		t.Fatal("expected expiry day itself to count")
	}
	if rec.HasValidEntitlement(date(2024, time.June, 9)) {
		t.Fatal("expected entitlement expired the day after")
	}
}

func TestClearBirthDate(t *testing.T) {
	now := date(2024, time.June, 1)
	rec := recordWithBirthDate(t, date(2000, time.March, 15), now)

	rec.ClearBirthDate(now)
	if rec.HasBirthdaySet() {
		t.Fatal("expected birth date cleared")
	}
	if _, _, ok := rec.MonthDay(); ok {
		t.Fatal("expected no month/day after clearing")
	}
}

func TestCloneDetachesDates(t *testing.T) {
	now := date(2024, time.June, 1)
	rec := recordWithBirthDate(t, date(2000, time.March, 15), now)
	rec.MarkClaimed(now)
	rec.SetEntitlementExpiry(date(2024, time.July, 1), now)

	clone := rec.Clone()
	clone.SetBirthDate(date(1990, time.December, 25), now)
	clone.SetEntitlementExpiry(date(2030, time.January, 1), now)

	if m, d, _ := rec.MonthDay(); m != time.March || d != 15 {
		t.Fatalf("clone mutation leaked into original: %d-%d", m, d)
	}
	if rec.EntitlementExpiry.Year() != 2024 {
		t.Fatalf("clone expiry mutation leaked into original: %s", rec.EntitlementExpiry)
	}
}

func TestValidMonthDay(t *testing.T) {
	cases := []struct {
		month time.Month
		day   int
		want  bool
	}{
		{time.January, 1, true},
		{time.January, 31, true},
		{time.April, 31, false},
		{time.February, 29, true},
		{time.February, 30, false},
		{time.December, 31, true},
		{time.January, 0, false},
		{time.Month(0), 10, false},
		{time.Month(13), 10, false},
	}
	for _, tc := range cases {
		if got := ValidMonthDay(tc.month, tc.day); got != tc.want {
			t.Fatalf("ValidMonthDay(%d, %d) = %v, want %v", tc.month, tc.day, got, tc.want)
		}
	}
}

func TestZodiac(t *testing.T) {
	now := date(2024, time.June, 1)

	t.Run("unset birth date", func(t *testing.T) {
		rec := NewRecord(uuid.New(), now)
		if got := rec.Zodiac(); got != ZodiacUnknown {
			t.Fatalf("expected unknown zodiac without birth date, got %q", got)
		}
	})

	cases := []struct {
		month time.Month
		day   int
		want  Zodiac
	}{
		{time.January, 19, ZodiacCapricorn},
		{time.January, 20, ZodiacAquarius},
		{time.February, 18, ZodiacAquarius},
		{time.February, 19, ZodiacPisces},
		{time.February, 29, ZodiacPisces},
		{time.March, 20, ZodiacPisces},
		{time.March, 21, ZodiacAries},
		{time.April, 19, ZodiacAries},
		{time.April, 20, ZodiacTaurus},
		{time.May, 20, ZodiacTaurus},
		{time.May, 21, ZodiacGemini},
		{time.June, 21, ZodiacGemini},
		{time.June, 22, ZodiacCancer},
		{time.July, 22, ZodiacCancer},
		{time.July, 23, ZodiacLeo},
		{time.August, 22, ZodiacLeo},
		{time.August, 23, ZodiacVirgo},
		{time.September, 22, ZodiacVirgo},
		{time.September, 23, ZodiacLibra},
		{time.October, 23, ZodiacLibra},
		{time.October, 24, ZodiacScorpio},
		{time.November, 22, ZodiacScorpio},
		{time.November, 23, ZodiacSagittarius},
		{time.December, 21, ZodiacSagittarius},
		{time.December, 22, ZodiacCapricorn},
		{time.January, 1, ZodiacCapricorn},
	}
	for _, tc := range cases {
		if got := ZodiacOf(tc.month, tc.day); got != tc.want {
			t.Fatalf("ZodiacOf(%s, %d) = %q, want %q", tc.month, tc.day, got, tc.want)
		}
		rec := recordWithBirthDate(t, date(2000, tc.month, tc.day), now)
		if got := rec.Zodiac(); got != tc.want {
			t.Fatalf("Zodiac() for %s %d = %q, want %q", tc.month, tc.day, got, tc.want)
		}
	}

	if got := ZodiacOf(time.Month(13), 10); got != ZodiacUnknown {
		t.Fatalf("expected unknown for invalid month, got %q", got)
	}
	if got := ZodiacOf(time.April, 31); got != ZodiacUnknown {
		t.Fatalf("expected unknown for invalid day, got %q", got)
	}
}

func TestMutatorsRefreshUpdatedAt(t *testing.T) {
	created := date(2024, time.January, 1)
	rec := NewRecord(uuid.New(), created)

	later := date(2024, time.June, 1)
	rec.SetDisplayName("Alice", later)
	if !rec.UpdatedAt.Equal(later) {
		t.Fatalf("expected updated at %s, got %s", later, rec.UpdatedAt)
	}
	if !rec.CreatedAt.Equal(created) {
		t.Fatalf("created at must not move, got %s", rec.CreatedAt)
	}
}
