/*
Package recalc re-derives duty points over a date range of stored records.

PURPOSE:
  When duty windows were mis-scored (clock drift, backfilled punches, a
  fixed scoring bug), the batch runner walks every closed attendance record
  in a range, recomputes its duty points from the punches, and writes the
  updated score back through an injected mutation port.

DESIGN:
  - Strictly sequential: one persistence call at a time, awaited before the
    next. This keeps progress reporting accurate and avoids hammering the
    store with a parallel burst of writes.
  - Partial-failure semantics: a record whose update fails is logged and
    skipped; one failure never aborts the batch.
  - The refresh hook always fires after the loop, success or not, so
    dependent views recompute from the updated snapshot.
  - State machine: Idle -> Running(done/total) -> Idle, observable via
    Status(). A second Run while one is in flight is rejected.
  - Cancellation: ctx is checked between records; the in-flight update is
    always awaited. A canceled run still fires the refresh hook.

SEE ALSO:
  - attendance/score.go: The calculator being re-applied
  - store: implements the fetch and update ports
*/
package recalc

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/sitebook/wage-engine/attendance"
	"github.com/sitebook/wage-engine/calendar"
)

// ErrAlreadyRunning is returned when a batch is started while another one is
// still in flight.
var ErrAlreadyRunning = errors.New("recalculation already running")

// =============================================================================
// PORTS - Injected capabilities
// =============================================================================

// Fetcher loads the attendance snapshot for a period.
type Fetcher func(ctx context.Context, period calendar.Period) ([]attendance.Record, error)

// Updater persists one recomputed record. An error fails only that record.
type Updater func(ctx context.Context, rec attendance.Record) error

// ProgressFunc observes batch progress after each record.
type ProgressFunc func(done, total int)

// RefreshFunc is invoked once after the loop so dependent views reload.
type RefreshFunc func()

// =============================================================================
// RUNNER
// =============================================================================

// State of the runner's batch loop.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Status is a snapshot of the runner's progress.
type Status struct {
	State State
	Done  int
	Total int
}

// Summary reports how a finished batch went. Failed counts records whose
// update was rejected; the batch completes regardless.
type Summary struct {
	Total   int
	Updated int
	Failed  int
	Skipped int // remaining records when the context was canceled
}

// Runner drives the duty-point calculator over stored attendance records.
type Runner struct {
	fetch      Fetcher
	update     Updater
	onProgress ProgressFunc
	refresh    RefreshFunc
	logger     *zap.Logger

	mu     sync.Mutex
	status Status
}

// Option customizes a Runner.
type Option func(*Runner)

// WithProgress registers a progress observer.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) { r.onProgress = fn }
}

// WithRefresh registers the post-batch refresh hook.
func WithRefresh(fn RefreshFunc) Option {
	return func(r *Runner) { r.refresh = fn }
}

// WithLogger sets the logger; the default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner wires a Runner to its fetch and update ports.
func NewRunner(fetch Fetcher, update Updater, opts ...Option) *Runner {
	r := &Runner{
		fetch:      fetch,
		update:     update,
		onProgress: func(int, int) {},
		refresh:    func() {},
		logger:     zap.NewNop(),
		status:     Status{State: StateIdle},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Status returns a snapshot of the current batch progress.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Run recomputes duty points for every closed record in the period.
//
// Only records with both punches are eligible: an open shift has nothing to
// recompute from. Records are processed strictly sequentially; each update
// is awaited before the next record starts and before progress is reported.
// If no record is eligible the run is a no-op and the refresh hook does not
// fire.
func (r *Runner) Run(ctx context.Context, period calendar.Period) (Summary, error) {
	r.mu.Lock()
	if r.status.State == StateRunning {
		r.mu.Unlock()
		return Summary{}, ErrAlreadyRunning
	}
	r.status = Status{State: StateRunning}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.status = Status{State: StateIdle}
		r.mu.Unlock()
	}()

	records, err := r.fetch(ctx, period)
	if err != nil {
		return Summary{}, err
	}

	var eligible []attendance.Record
	for _, rec := range records {
		if rec.Closed() {
			eligible = append(eligible, rec)
		}
	}

	summary := Summary{Total: len(eligible)}
	if summary.Total == 0 {
		r.logger.Info("recalculation skipped, no closed shifts in range",
			zap.String("period", period.String()))
		return summary, nil
	}

	r.mu.Lock()
	r.status.Total = summary.Total
	r.mu.Unlock()

	defer r.refresh()

	for i, rec := range eligible {
		select {
		case <-ctx.Done():
			summary.Skipped = summary.Total - i
			r.logger.Warn("recalculation canceled",
				zap.Int("done", i), zap.Int("total", summary.Total))
			return summary, ctx.Err()
		default:
		}

		pts := attendance.Score(*rec.PunchIn, *rec.PunchOut)
		rec.DutyPoints = &pts

		if err := r.update(ctx, rec); err != nil {
			summary.Failed++
			r.logger.Warn("duty-point update failed, continuing",
				zap.String("record", rec.ID), zap.Error(err))
		} else {
			summary.Updated++
		}

		done := i + 1
		r.mu.Lock()
		r.status.Done = done
		r.mu.Unlock()
		r.onProgress(done, summary.Total)
	}

	r.logger.Info("recalculation finished",
		zap.String("period", period.String()),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed))
	return summary, nil
}
