// Package datetime normalizes calendar-date handling to a single timezone.
// Door availability and year-scoped score matching both depend on every
// comparison happening in the same zone.
package datetime

import (
	"fmt"
	"strconv"
	"time"
)

// Clock supplies the current time. Injected so date-gated logic is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	loc *time.Location
}

var _ Clock = (*SystemClock)(nil)

// NewSystemClock resolves the timezone name. An empty name means UTC.
func NewSystemClock(timezone string) (*SystemClock, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &SystemClock{loc: loc}, nil
}

func (c *SystemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// FixedClock always returns the same instant. For tests.
type FixedClock struct {
	T time.Time
}

var _ Clock = FixedClock{}

func (c FixedClock) Now() time.Time { return c.T }

// YearNumber extracts the 4-digit year from a stored year value. It accepts
// a bare "2025", an ISO date like "2025-01-01", or anything else whose first
// four characters are digits, so string and date representations of the same
// year compare equal.
func YearNumber(year string) (int, bool) {
	if len(year) < 4 {
		return 0, false
	}
	n, err := strconv.Atoi(year[:4])
	if err != nil || n < 1000 || n > 9999 {
		return 0, false
	}
	return n, true
}

// SameYear reports whether two stored year values denote the same calendar
// year, tolerant of mismatched representations.
func SameYear(a, b string) bool {
	na, okA := YearNumber(a)
	nb, okB := YearNumber(b)
	return okA && okB && na == nb
}

// DoorDate is the calendar date a door unlocks: December doorNumber of the
// given year, at midnight in loc.
func DoorDate(year, doorNumber int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(year, time.December, doorNumber, 0, 0, 0, 0, loc)
}

// DateOnly truncates an instant to its calendar date, preserving location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
