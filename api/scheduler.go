/*
scheduler.go - Nightly duty-point recalculation

PURPOSE:
  Runs the recalculation batch on a cron schedule so that scoring changes
  and late punch-outs converge without anyone pressing the admin button.

DESIGN:
  - robfig/cron drives the schedule (standard 5-field expressions)
  - Each firing recomputes a trailing window ending today
  - Overlapping runs are impossible: the runner rejects a second Run and
    the scheduler just logs the skip

CONFIGURATION:
  - Schedule: cron expression (default: "30 2 * * *")
  - WindowDays: trailing window length (default: 14)

USAGE:
  sched, err := NewRecalcScheduler(handler, "30 2 * * *", 14)
  sched.Start()
  // ... later
  sched.Stop()

SEE ALSO:
  - handlers.go: TriggerRecalc endpoint (manual recalculation)
  - recalc/runner.go: the batch itself
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sitebook/wage-engine/calendar"
	"github.com/sitebook/wage-engine/recalc"
)

// RecalcScheduler fires the recalculation batch on a cron schedule.
type RecalcScheduler struct {
	handler    *Handler
	log        *zap.Logger
	cron       *cron.Cron
	entryID    cron.EntryID
	windowDays int
}

// NewRecalcScheduler wires the handler's runner to a cron schedule.
func NewRecalcScheduler(h *Handler, schedule string, windowDays int) (*RecalcScheduler, error) {
	rs := &RecalcScheduler{
		handler:    h,
		log:        h.Log,
		cron:       cron.New(),
		windowDays: windowDays,
	}

	id, err := rs.cron.AddFunc(schedule, rs.runOnce)
	if err != nil {
		return nil, fmt.Errorf("invalid recalculation schedule %q: %w", schedule, err)
	}
	rs.entryID = id
	return rs, nil
}

// Start begins the schedule.
func (rs *RecalcScheduler) Start() {
	rs.cron.Start()
	rs.log.Info("recalculation scheduler started",
		zap.Time("next_run", rs.NextRun()))
}

// Stop halts the schedule, waiting for an in-flight run to finish.
func (rs *RecalcScheduler) Stop() {
	ctx := rs.cron.Stop()
	<-ctx.Done()
	rs.log.Info("recalculation scheduler stopped")
}

// NextRun returns when the next scheduled run will fire.
func (rs *RecalcScheduler) NextRun() time.Time {
	return rs.cron.Entry(rs.entryID).Next
}

func (rs *RecalcScheduler) runOnce() {
	period := calendar.TrailingDays(calendar.Today(), rs.windowDays)

	summary, err := rs.handler.Runner.Run(context.Background(), period)
	if err != nil {
		if errors.Is(err, recalc.ErrAlreadyRunning) {
			rs.log.Info("scheduled recalculation skipped, already running")
			return
		}
		rs.log.Error("scheduled recalculation failed", zap.Error(err))
		return
	}

	rs.log.Info("scheduled recalculation completed",
		zap.String("period", period.String()),
		zap.Int("total", summary.Total),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed))
}
