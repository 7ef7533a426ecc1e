/*
aggregate.go - Merging manual cash entries with derived labor credits

PURPOSE:
  Builds the merged transaction set for one team from the current snapshots:
  the team's manual transactions pass through unchanged, and every attendance
  record of the team's workers is costed and bucketed into one labor credit
  per calendar date.

PIPELINE:
  1. Filter manual transactions to the team
  2. Index the team's workers by id (wage lookup)
  3. For each attendance record of a team worker:
       fraction = attendance.ShiftFraction(record)
       cost     = fraction * worker.DailyWage   (when fraction > 0)
     accumulated into a per-date bucket
  4. Emit one LaborCredit per non-empty date bucket

TOLERANCE:
  A record whose worker is missing from the snapshot is silently skipped: a
  team's ledger should still compute with incomplete worker data. Aggregate
  is pure and never fails; the output order is unspecified - ordering is
  Reconcile's job.
*/
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/sitebook/wage-engine/attendance"
	"github.com/sitebook/wage-engine/calendar"
)

// Aggregate merges a team's manual transactions with labor credits derived
// from the attendance snapshot. See the pipeline above. The result is
// unordered; callers hand it to Reconcile.
func Aggregate(
	teamID attendance.TeamID,
	manual []ManualTransaction,
	records []attendance.Record,
	workers []attendance.Worker,
) []Transaction {
	var merged []Transaction

	for _, m := range manual {
		if m.TeamID == teamID {
			merged = append(merged, Manual{Tx: m})
		}
	}

	wages := make(map[attendance.WorkerID]decimal.Decimal)
	for _, w := range workers {
		if w.TeamID == teamID {
			wages[w.ID] = w.DailyWage
		}
	}

	totals := make(map[calendar.Date]decimal.Decimal)
	counts := make(map[calendar.Date]int)
	for _, rec := range records {
		wage, ok := wages[rec.WorkerID]
		if !ok {
			continue
		}
		fraction := attendance.ShiftFraction(rec)
		if !fraction.IsPositive() {
			continue
		}
		totals[rec.Date] = totals[rec.Date].Add(fraction.Mul(wage))
		counts[rec.Date]++
	}

	for day, total := range totals {
		if !total.IsPositive() {
			// A zero-wage team still produces zero-value buckets; dates with
			// no value are omitted entirely.
			continue
		}
		merged = append(merged, LaborCredit{Day: day, Value: total, Workers: counts[day]})
	}

	return merged
}
