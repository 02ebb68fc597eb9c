package birthday

import (
	"time"

	"github.com/google/uuid"
)

// Record is the per-identity birthday state: an optional birth date, the
// yearly claim and modification counters, and a time-bounded entitlement.
// All calendar logic takes "now" explicitly so callers (and tests) control
// the clock; none of the methods perform I/O or panic.
//
// A Record returned by the Service is mutable and owned by the caller that
// drives that identity's interaction. Mutators refresh UpdatedAt; persisting
// the change is the caller's job via Service.Save.
type Record struct {
	ID          uuid.UUID
	DisplayName string

	// BirthDate is nil until the identity sets one. The year component is
	// informational (age display); month and day drive the recurring logic.
	BirthDate *time.Time

	LastClaimYear int
	LastClaimDate *time.Time

	ModifyCountThisYear int
	LastModifyYear      int

	// EntitlementExpiry marks the end of a time-bounded bonus. Nil or a past
	// date means no entitlement is currently held.
	EntitlementExpiry *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord returns a fresh default Record for a previously-unseen identity.
func NewRecord(id uuid.UUID, now time.Time) *Record {
	today := DateOf(now)
	return &Record{
		ID:        id,
		CreatedAt: today,
		UpdatedAt: today,
	}
}

// HasBirthdaySet reports whether a birth date is present.
func (r *Record) HasBirthdaySet() bool {
	return r.BirthDate != nil
}

// IsBirthdayToday reports whether now falls on the recurrence (month, day).
func (r *Record) IsBirthdayToday(now time.Time) bool {
	if r.BirthDate == nil {
		return false
	}
	return r.BirthDate.Month() == now.Month() && r.BirthDate.Day() == now.Day()
}

// DaysUntilBirthday returns the non-negative number of days until the next
// occurrence of the recurrence date, or -1 when no birth date is set. On the
// recurrence day itself it counts to next year's occurrence; same-day
// claimability is IsBirthdayInWindow's job, not this countdown's.
func (r *Record) DaysUntilBirthday(now time.Time) int {
	if r.BirthDate == nil {
		return -1
	}
	today := DateOf(now)
	next := occurrenceInYear(*r.BirthDate, today.Year())
	if !next.After(today) {
		next = occurrenceInYear(*r.BirthDate, today.Year()+1)
	}
	return daysBetween(today, next)
}

// IsBirthdayInWindow reports whether now is the recurrence date or at most
// windowDays days after it within the current year. The window trails the
// recurrence date only; it never looks forward past it, and it does not
// cross the year boundary.
func (r *Record) IsBirthdayInWindow(windowDays int, now time.Time) bool {
	if r.BirthDate == nil {
		return false
	}
	today := DateOf(now)
	occurrence := occurrenceInYear(*r.BirthDate, today.Year())
	if occurrence.Before(today) {
		return daysBetween(occurrence, today) <= windowDays
	}
	return occurrence.Equal(today)
}

// Age returns full elapsed years since the birth date, or -1 when unset.
func (r *Record) Age(now time.Time) int {
	if r.BirthDate == nil {
		return -1
	}
	today := DateOf(now)
	years := today.Year() - r.BirthDate.Year()
	if occurrenceInYear(*r.BirthDate, today.Year()).After(today) {
		years--
	}
	return years
}

// NextBirthday returns the next occurrence of the recurrence date strictly
// after today. The second result is false when no birth date is set.
func (r *Record) NextBirthday(now time.Time) (time.Time, bool) {
	if r.BirthDate == nil {
		return time.Time{}, false
	}
	today := DateOf(now)
	next := occurrenceInYear(*r.BirthDate, today.Year())
	if !next.After(today) {
		next = occurrenceInYear(*r.BirthDate, today.Year()+1)
	}
	return next, true
}

// HasClaimedThisYear reports whether the yearly entitlement was already
// granted in now's calendar year. Claims are tracked by year, so at most one
// claim is representable per year however long the claim window is.
func (r *Record) HasClaimedThisYear(now time.Time) bool {
	return r.LastClaimYear == now.Year()
}

// MarkClaimed records a successful claim in now's calendar year.
func (r *Record) MarkClaimed(now time.Time) {
	today := DateOf(now)
	r.LastClaimYear = today.Year()
	r.LastClaimDate = &today
	r.UpdatedAt = today
}

// CanModifyBirthday applies the modification policy: a set birth date is
// frozen when allowModify is false, a negative modifyLimit means unlimited,
// and the per-year counter resets implicitly when the year rolls over.
func (r *Record) CanModifyBirthday(allowModify bool, modifyLimit int, now time.Time) bool {
	if !allowModify && r.BirthDate != nil {
		return false
	}
	if modifyLimit < 0 {
		return true
	}
	if r.LastModifyYear != now.Year() {
		return true
	}
	return r.ModifyCountThisYear < modifyLimit
}

// RemainingModifyCount returns how many modifications are left this year,
// or -1 to signal an unlimited policy.
func (r *Record) RemainingModifyCount(modifyLimit int, now time.Time) int {
	if modifyLimit < 0 {
		return -1
	}
	if r.LastModifyYear != now.Year() {
		return modifyLimit
	}
	if remaining := modifyLimit - r.ModifyCountThisYear; remaining > 0 {
		return remaining
	}
	return 0
}

// IncrementModifyCount bumps the per-year modification counter, resetting it
// to 1 when the stored year differs from now's year.
func (r *Record) IncrementModifyCount(now time.Time) {
	if r.LastModifyYear != now.Year() {
		r.ModifyCountThisYear = 1
		r.LastModifyYear = now.Year()
	} else {
		r.ModifyCountThisYear++
	}
	r.UpdatedAt = DateOf(now)
}

// HasValidEntitlement reports whether an entitlement expiry is set and not
// yet in the past (the expiry day itself still counts).
func (r *Record) HasValidEntitlement(now time.Time) bool {
	if r.EntitlementExpiry == nil {
		return false
	}
	return !DateOf(now).After(*r.EntitlementExpiry)
}

// SetDisplayName updates the last-observed name.
func (r *Record) SetDisplayName(name string, now time.Time) {
	r.DisplayName = name
	r.UpdatedAt = DateOf(now)
}

// SetBirthDate replaces the birth date. Counting the change against the
// modification limit is the caller's responsibility (IncrementModifyCount).
func (r *Record) SetBirthDate(date time.Time, now time.Time) {
	d := DateOf(date)
	r.BirthDate = &d
	r.UpdatedAt = DateOf(now)
}

// ClearBirthDate removes the birth date entirely.
func (r *Record) ClearBirthDate(now time.Time) {
	r.BirthDate = nil
	r.UpdatedAt = DateOf(now)
}

// SetEntitlementExpiry extends or replaces the entitlement expiry date.
func (r *Record) SetEntitlementExpiry(expiry time.Time, now time.Time) {
	d := DateOf(expiry)
	r.EntitlementExpiry = &d
	r.UpdatedAt = DateOf(now)
}

// Zodiac returns the western zodiac sign for the birth date, or
// ZodiacUnknown when no birth date is set.
func (r *Record) Zodiac() Zodiac {
	if r.BirthDate == nil {
		return ZodiacUnknown
	}
	return ZodiacOf(r.BirthDate.Month(), r.BirthDate.Day())
}

// MonthDay returns the recurrence (month, day); ok is false when unset.
func (r *Record) MonthDay() (month time.Month, day int, ok bool) {
	if r.BirthDate == nil {
		return 0, 0, false
	}
	return r.BirthDate.Month(), r.BirthDate.Day(), true
}

// Clone returns a deep copy, detaching the optional date pointers.
func (r *Record) Clone() *Record {
	clone := *r
	clone.BirthDate = cloneDate(r.BirthDate)
	clone.LastClaimDate = cloneDate(r.LastClaimDate)
	clone.EntitlementExpiry = cloneDate(r.EntitlementExpiry)
	return &clone
}

// Zodiac is a western zodiac sign.
type Zodiac string

const (
	ZodiacUnknown     Zodiac = "unknown"
	ZodiacCapricorn   Zodiac = "capricorn"
	ZodiacAquarius    Zodiac = "aquarius"
	ZodiacPisces      Zodiac = "pisces"
	ZodiacAries       Zodiac = "aries"
	ZodiacTaurus      Zodiac = "taurus"
	ZodiacGemini      Zodiac = "gemini"
	ZodiacCancer      Zodiac = "cancer"
	ZodiacLeo         Zodiac = "leo"
	ZodiacVirgo       Zodiac = "virgo"
	ZodiacLibra       Zodiac = "libra"
	ZodiacScorpio     Zodiac = "scorpio"
	ZodiacSagittarius Zodiac = "sagittarius"
)

// ZodiacOf maps a (month, day) to its sign. Each month splits on the day the
// later sign begins; out-of-range input yields ZodiacUnknown.
func ZodiacOf(month time.Month, day int) Zodiac {
	if !ValidMonthDay(month, day) {
		return ZodiacUnknown
	}
	switch month {
	case time.January:
		return splitSign(day, 20, ZodiacAquarius, ZodiacCapricorn)
	case time.February:
		return splitSign(day, 19, ZodiacPisces, ZodiacAquarius)
	case time.March:
		return splitSign(day, 21, ZodiacAries, ZodiacPisces)
	case time.April:
		return splitSign(day, 20, ZodiacTaurus, ZodiacAries)
	case time.May:
		return splitSign(day, 21, ZodiacGemini, ZodiacTaurus)
	case time.June:
		return splitSign(day, 22, ZodiacCancer, ZodiacGemini)
	case time.July:
		return splitSign(day, 23, ZodiacLeo, ZodiacCancer)
	case time.August:
		return splitSign(day, 23, ZodiacVirgo, ZodiacLeo)
	case time.September:
		return splitSign(day, 23, ZodiacLibra, ZodiacVirgo)
	case time.October:
		return splitSign(day, 24, ZodiacScorpio, ZodiacLibra)
	case time.November:
		return splitSign(day, 23, ZodiacSagittarius, ZodiacScorpio)
	default:
		return splitSign(day, 22, ZodiacCapricorn, ZodiacSagittarius)
	}
}

func splitSign(day, cutoff int, onOrAfter, before Zodiac) Zodiac {
	if day >= cutoff {
		return onOrAfter
	}
	return before
}

// ValidMonthDay reports whether (month, day) is a plausible recurrence date.
// February 29 is accepted; leap handling happens at projection time.
func ValidMonthDay(month time.Month, day int) bool {
	if month < time.January || month > time.December {
		return false
	}
	if day < 1 {
		return false
	}
	switch month {
	case time.January, time.March, time.May, time.July, time.August, time.October, time.December:
		return day <= 31
	case time.April, time.June, time.September, time.November:
		return day <= 30
	default:
		return day <= 29
	}
}

// DateOf truncates t to day precision in UTC. All persisted and compared
// dates in this package are day-precise UTC midnights.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// occurrenceInYear projects a recurrence (month, day) into year. A Feb 29
// recurrence resolves to Feb 28 in non-leap years; every projection in this
// package goes through here so countdown, window, and next-occurrence logic
// cannot disagree.
func occurrenceInYear(birth time.Time, year int) time.Time {
	month, day := birth.Month(), birth.Day()
	if month == time.February && day == 29 && !isLeapYear(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// daysBetween counts whole days from a to b; both must be UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

func cloneDate(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}
