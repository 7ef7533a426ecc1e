/*
Package store defines the persistence boundary of the wage engine.

PURPOSE:
  The computation packages (attendance, ledger, recalc) work on read-only
  snapshots; this package is where those snapshots come from and where the
  two permitted mutations land: manual-transaction CRUD and duty-point
  updates written back by the recalculation batch.

KEY INTERFACE:
  Store: workers, attendance records, and manual transactions.

MUTATION RULES:
  - Workers are written by team management; this engine only creates them
    through the admin API and otherwise reads them
  - Attendance mutation is limited to punch-out and duty-point updates
  - Manual transactions are fully mutable; derived labor credits are never
    persisted and have no place here at all

IMPLEMENTATIONS:
  - store/sqlite: production SQLite (WAL, migrate on open)
  - store/memory: in-memory for tests and dev

SEE ALSO:
  - api: loads snapshots per request and recomputes statements
  - recalc: uses ListAttendance + UpdateDutyPoints as its ports
*/
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sitebook/wage-engine/attendance"
	"github.com/sitebook/wage-engine/calendar"
	"github.com/sitebook/wage-engine/ledger"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateID is returned when inserting a row whose id already exists.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrDuplicateAttendance is returned when a worker already has an
	// attendance record for that day.
	ErrDuplicateAttendance = errors.New("attendance already recorded for worker and day")
)

// =============================================================================
// STORE
// =============================================================================

// Store persists workers, attendance records, and manual transactions.
// Reads return copies; callers may treat results as immutable snapshots.
type Store interface {
	// Workers
	SaveWorker(ctx context.Context, w attendance.Worker) error
	GetWorker(ctx context.Context, id attendance.WorkerID) (*attendance.Worker, error)
	ListWorkersByTeam(ctx context.Context, teamID attendance.TeamID) ([]attendance.Worker, error)

	// Attendance
	SaveAttendance(ctx context.Context, rec attendance.Record) error
	GetAttendance(ctx context.Context, id string) (*attendance.Record, error)
	// ListAttendance returns every record dated within the period, across
	// all workers, ordered by date then worker.
	ListAttendance(ctx context.Context, period calendar.Period) ([]attendance.Record, error)
	// ClosePunch sets the punch-out time of an open shift together with the
	// score computed from the completed pair.
	ClosePunch(ctx context.Context, id string, punchOut time.Time, points decimal.Decimal) error
	// UpdateDutyPoints writes a recomputed score; the only attendance field
	// the recalculation batch may touch.
	UpdateDutyPoints(ctx context.Context, id string, points decimal.Decimal) error

	// Manual transactions
	SaveTransaction(ctx context.Context, tx ledger.ManualTransaction) error
	GetTransaction(ctx context.Context, id string) (*ledger.ManualTransaction, error)
	UpdateTransaction(ctx context.Context, tx ledger.ManualTransaction) error
	DeleteTransaction(ctx context.Context, id string) error
	ListTransactionsByTeam(ctx context.Context, teamID attendance.TeamID) ([]ledger.ManualTransaction, error)
}
