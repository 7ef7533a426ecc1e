/*
score.go - Duty-point calculator

PURPOSE:
  Scores one check-in/check-out pair against the three fixed duty windows of
  the working day. Each window is worth half a point and is awarded in full
  when at least 80% of it is covered - there is no partial credit.

THE WINDOWS (anchored to check-in's calendar day):
  Early Morning  06:00 - 09:00   0.5
  Morning        09:00 - 13:00   0.5
  (lunch)        13:00 - 14:00   unscored
  Afternoon      14:00 - 18:00   0.5

  Minutes before 06:00, after 18:00, or during lunch never contribute.
  Maximum score is 1.5; the only reachable values are 0, 0.5, 1.0, 1.5.

EDGE BEHAVIOR:
  - checkOut <= checkIn scores 0 for every window (no error)
  - Cross-midnight shifts are not supported: windows are always placed on
    check-in's own calendar day

EXAMPLE:
  Score(09:00, 13:00) = 0.5   (exactly one window, fully covered)
  Score(06:00, 18:00) = 1.5   (all three windows)
  Score(09:30, 12:00) = 0     (2.5h of 4h = 62.5% < 80%)
*/
package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxDailyPoints is the ceiling of the duty-point scale: all three windows
// covered in one day.
var MaxDailyPoints = decimal.New(15, -1) // 1.5

// halfPoint is the award for one fully covered window.
var halfPoint = decimal.New(5, -1) // 0.5

// dutyWindow is one scored stretch of the working day, in hours on the
// check-in's calendar day.
type dutyWindow struct {
	startHour int
	endHour   int
	points    decimal.Decimal
}

// The lunch hour 13:00-14:00 is the gap between the second and third window.
var dutyWindows = []dutyWindow{
	{startHour: 6, endHour: 9, points: halfPoint},
	{startHour: 9, endHour: 13, points: halfPoint},
	{startHour: 14, endHour: 18, points: halfPoint},
}

// coverageNum/coverageDen encode the 80% award threshold as exact integer
// arithmetic on durations: overlap/window >= 4/5.
const (
	coverageNum = 4
	coverageDen = 5
)

// Score computes the duty points earned by a shift from checkIn to checkOut.
//
// Each duty window is checked independently: the overlap between the shift
// and the window is measured, and the window's full points are awarded when
// the overlap covers at least 80% of it. The threshold is a hard cutoff, not
// a ramp. Inverted or empty shifts score zero. Score never fails.
func Score(checkIn, checkOut time.Time) decimal.Decimal {
	total := decimal.Zero
	if !checkOut.After(checkIn) {
		return total
	}

	for _, w := range dutyWindows {
		winStart := onDayOf(checkIn, w.startHour)
		winEnd := onDayOf(checkIn, w.endHour)

		start := maxTime(checkIn, winStart)
		end := minTime(checkOut, winEnd)
		if !end.After(start) {
			continue
		}

		overlap := end.Sub(start)
		span := winEnd.Sub(winStart)
		// overlap/span >= coverageNum/coverageDen, without float rounding
		if overlap*coverageDen >= span*coverageNum {
			total = total.Add(w.points)
		}
	}
	return total
}

// onDayOf places an hour boundary on the calendar day of anchor, in the
// anchor's own location.
func onDayOf(anchor time.Time, hour int) time.Time {
	return time.Date(anchor.Year(), anchor.Month(), anchor.Day(), hour, 0, 0, 0, anchor.Location())
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
