/*
Package calendar provides day-granularity dates and date ranges.

PURPOSE:
  Attendance and ledger entries are keyed by calendar day, never by wall-clock
  instant. A punch happens at a timestamp, but the attendance record it belongs
  to, the labor credit it produces, and the ledger row it lands on are all
  identified by the day alone. This package gives that day a concrete type so
  it cannot be confused with a timestamp.

KEY CONCEPTS:
  - Date:   A calendar day (normalized to midnight UTC internally)
  - Period: An inclusive [Start, End] range of days, used for statements and
    recalculation batches

DESIGN PRINCIPLES:
  1. Dates are values: comparable, immutable, safe as map keys
  2. No time zones at this layer: the surrounding system records local site
     days; the Date just names them
  3. Formatting is fixed to ISO (2006-01-02) for storage and APIs

SEE ALSO:
  - attendance: records keyed by Date
  - ledger: transactions dated by Date, statements windowed by Period
*/
package calendar

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - A calendar day
// =============================================================================

// Date identifies a single calendar day. The zero value is the zero day and
// reports IsZero() == true.
type Date struct {
	t time.Time
}

// NewDate constructs a Date from year/month/day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to the calendar day it falls on.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses an ISO date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) IsZero() bool      { return d.t.IsZero() }

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive [Start, End] range of calendar days. Statements and
// recalculation batches always operate over a Period.
type Period struct {
	Start Date
	End   Date
}

// NewPeriod builds a period; callers should check Valid() on user input.
func NewPeriod(start, end Date) Period {
	return Period{Start: start, End: end}
}

// Valid reports whether End is not before Start.
func (p Period) Valid() bool {
	return !p.End.Before(p.Start)
}

// Contains reports whether the day falls within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns every day in the period in order.
func (p Period) Days() []Date {
	var days []Date
	for cur := p.Start; cur.BeforeOrEqual(p.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

// TrailingDays returns the period covering the last n days up to and
// including end. Used for the rolling recalculation window.
func TrailingDays(end Date, n int) Period {
	return Period{Start: end.AddDays(-(n - 1)), End: end}
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
