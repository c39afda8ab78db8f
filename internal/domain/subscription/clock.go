package subscription

import (
	"fmt"
	"time"
)

// DefaultTimezone governs "today" when no timezone is configured
const DefaultTimezone = "America/Tegucigalpa"

// Clock answers "what calendar day is it" in one configured timezone.
// Every expiry decision for every tenant uses the same zone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock creates a clock for the named IANA timezone
func NewClock(timezone string) (Clock, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid subscription timezone %q: %w", timezone, err)
	}
	return Clock{loc: loc, now: time.Now}, nil
}

// FixedClock returns a clock frozen at the given calendar day, for tests and simulations
func FixedClock(day time.Time) Clock {
	return Clock{loc: time.UTC, now: func() time.Time { return day }}
}

// Today returns the current calendar date
func (c Clock) Today() time.Time {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	loc := c.loc
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now().In(loc))
}

// Location returns the clock's timezone
func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// DateOf truncates t to its calendar date, expressed at midnight UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the calendar date n days after date
func AddDays(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}
