/*
resolve.go - Shift-fraction resolver

PURPOSE:
  Picks the best available labor-weight signal for one attendance record.
  The ledger costs a record as ShiftFraction(record) * worker.DailyWage, so
  this chain decides how much a day of recorded attendance is worth when the
  record may predate punch tracking, be mid-shift, or carry a stored score.

RESOLUTION ORDER (reproduced exactly; the order is the contract):
  1. ABSENT always resolves to 0, regardless of punch data
  2. A stored DutyPoints value (including 0) is trusted verbatim
  3. Both punches present: compute via Score
  4. Punch-in only: 0 - an open shift has earned nothing yet
  5. No punch data: status heuristic (present=1, half_day=0.5, else 0)

  Step 2 before step 3 means a recalculated score sticks until the next
  recalculation, and step 4 before step 5 means a punched-in worker is never
  credited a full day by their status alone.

ShiftFraction never fails and always returns a definite number.
*/
package attendance

import "github.com/shopspring/decimal"

// ShiftFraction resolves the labor weight of a single attendance record.
// See the resolution order above; legacy records without punch data still
// carry a sensible weight, while punch-based records are only trusted once
// punched out.
func ShiftFraction(rec Record) decimal.Decimal {
	if rec.Status == StatusAbsent {
		return decimal.Zero
	}

	if rec.DutyPoints != nil {
		return *rec.DutyPoints
	}

	switch {
	case rec.Closed():
		return Score(*rec.PunchIn, *rec.PunchOut)
	case rec.Open():
		return decimal.Zero
	}

	switch rec.Status {
	case StatusPresent:
		return decimal.NewFromInt(1)
	case StatusHalfDay:
		return halfPoint
	default:
		return decimal.Zero
	}
}
