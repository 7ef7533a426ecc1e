/*
Package attendance turns raw punch data into labor value.

PURPOSE:
  This package contains the computational heart of wage reconciliation:
  scoring a check-in/check-out pair against the fixed daily duty windows,
  and resolving the best available labor-weight signal for a single
  attendance record.

KEY CONCEPTS IN THIS FILE (types.go):
  - Record: One worker's attendance for one calendar day
  - Worker: A wage-earning team member (read-only to this engine)
  - Status: present / half_day / absent, used when punch data is missing

DESIGN PRINCIPLES:
  1. Records are snapshots: the engine never mutates its inputs
  2. Precision: duty points and wages use decimal.Decimal, never float64
  3. An open shift (punched in, not yet out) is worth nothing until closed

SEE ALSO:
  - score.go: Duty-point calculator over the fixed windows
  - resolve.go: Fallback chain from stored points to status heuristics
*/
package attendance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sitebook/wage-engine/calendar"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type WorkerID string
type TeamID string
type SiteID string

// =============================================================================
// STATUS
// =============================================================================

// Status is the manually recorded attendance state. It is the weakest labor
// signal: punch data and stored duty points take precedence over it.
type Status string

const (
	StatusPresent Status = "present"
	StatusHalfDay Status = "half_day"
	StatusAbsent  Status = "absent"
)

// ValidStatus reports whether s is one of the known states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPresent, StatusHalfDay, StatusAbsent:
		return true
	}
	return false
}

// =============================================================================
// RECORD - One worker, one day
// =============================================================================

// Record is one worker's attendance for one calendar day.
//
// PunchIn/PunchOut are optional: legacy records carry only a Status.
// DutyPoints, when set, is a previously computed score in [0, MaxDailyPoints]
// and is trusted verbatim by the resolver.
type Record struct {
	ID         string
	WorkerID   WorkerID
	SiteID     SiteID
	Date       calendar.Date
	PunchIn    *time.Time
	PunchOut   *time.Time
	Status     Status
	DutyPoints *decimal.Decimal
}

// Open reports whether the shift has been started but not yet closed.
// Open shifts score 0 until punched out.
func (r Record) Open() bool {
	return r.PunchIn != nil && r.PunchOut == nil
}

// Closed reports whether both punches are present, making the record
// eligible for duty-point (re)computation.
func (r Record) Closed() bool {
	return r.PunchIn != nil && r.PunchOut != nil
}

// =============================================================================
// WORKER - Wage-earning team member
// =============================================================================

// Worker links a worker to a team and carries the daily wage used to cost
// attendance. Workers are owned by team management; this engine only reads
// them.
type Worker struct {
	ID        WorkerID
	TeamID    TeamID
	Name      string
	DailyWage decimal.Decimal // per full duty point of 1.0; never negative
}
