package recalc_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitebook/wage-engine/attendance"
	"github.com/sitebook/wage-engine/calendar"
	"github.com/sitebook/wage-engine/recalc"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func closedRecord(id string, d calendar.Date) attendance.Record {
	in := time.Date(d.Year(), d.Month(), d.Day(), 6, 0, 0, 0, time.UTC)
	out := time.Date(d.Year(), d.Month(), d.Day(), 18, 0, 0, 0, time.UTC)
	return attendance.Record{
		ID:       id,
		WorkerID: "w-1",
		Date:     d,
		PunchIn:  &in,
		PunchOut: &out,
		Status:   attendance.StatusPresent,
	}
}

func openRecord(id string, d calendar.Date) attendance.Record {
	in := time.Date(d.Year(), d.Month(), d.Day(), 6, 0, 0, 0, time.UTC)
	return attendance.Record{ID: id, WorkerID: "w-1", Date: d, PunchIn: &in, Status: attendance.StatusPresent}
}

func fixedFetch(records ...attendance.Record) recalc.Fetcher {
	return func(context.Context, calendar.Period) ([]attendance.Record, error) {
		return records, nil
	}
}

type updateLog struct {
	mu      sync.Mutex
	updated []attendance.Record
	failOn  map[string]bool
}

func (u *updateLog) update(_ context.Context, rec attendance.Record) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failOn[rec.ID] {
		return errors.New("persistence rejected")
	}
	u.updated = append(u.updated, rec)
	return nil
}

var testPeriod = calendar.NewPeriod(
	calendar.NewDate(2025, time.March, 1),
	calendar.NewDate(2025, time.March, 14),
)

// =============================================================================
// BATCH SEMANTICS
// =============================================================================

func TestRun_ProgressReachesTotal(t *testing.T) {
	records := []attendance.Record{
		closedRecord("a", calendar.NewDate(2025, time.March, 10)),
		closedRecord("b", calendar.NewDate(2025, time.March, 11)),
		closedRecord("c", calendar.NewDate(2025, time.March, 12)),
	}
	sink := &updateLog{}

	var progress [][2]int
	runner := recalc.NewRunner(fixedFetch(records...), sink.update,
		recalc.WithProgress(func(done, total int) {
			progress = append(progress, [2]int{done, total})
		}))

	summary, err := runner.Run(context.Background(), testPeriod)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Updated)
	require.NotEmpty(t, progress)
	assert.Equal(t, [2]int{3, 3}, progress[len(progress)-1], "final progress call reports done=total")
	assert.Len(t, progress, 3, "one progress call per record")
}

func TestRun_RecomputesAndPersistsPoints(t *testing.T) {
	sink := &updateLog{}
	runner := recalc.NewRunner(
		fixedFetch(closedRecord("a", calendar.NewDate(2025, time.March, 10))),
		sink.update)

	_, err := runner.Run(context.Background(), testPeriod)
	require.NoError(t, err)

	require.Len(t, sink.updated, 1)
	require.NotNil(t, sink.updated[0].DutyPoints)
	assert.Equal(t, "1.5", sink.updated[0].DutyPoints.String(), "06:00-18:00 covers all windows")
}

func TestRun_OpenShiftsNotEligible(t *testing.T) {
	sink := &updateLog{}
	runner := recalc.NewRunner(
		fixedFetch(
			openRecord("open", calendar.NewDate(2025, time.March, 10)),
			closedRecord("closed", calendar.NewDate(2025, time.March, 11)),
		),
		sink.update)

	summary, err := runner.Run(context.Background(), testPeriod)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Total, "only the closed shift is eligible")
	require.Len(t, sink.updated, 1)
	assert.Equal(t, "closed", sink.updated[0].ID)
}

func TestRun_NoneEligible_NoOpWithoutRefresh(t *testing.T) {
	refreshed := false
	sink := &updateLog{}
	runner := recalc.NewRunner(
		fixedFetch(openRecord("open", calendar.NewDate(2025, time.March, 10))),
		sink.update,
		recalc.WithRefresh(func() { refreshed = true }))

	summary, err := runner.Run(context.Background(), testPeriod)
	require.NoError(t, err)

	assert.Equal(t, recalc.Summary{}, summary)
	assert.False(t, refreshed, "nothing to recompute, nothing to refresh")
}

func TestRun_FailureContinuesAndStillRefreshes(t *testing.T) {
	// GIVEN: Persistence rejects the middle record
	// THEN: All records are attempted, progress reaches done=total, and the
	//       refresh hook still fires
	records := []attendance.Record{
		closedRecord("a", calendar.NewDate(2025, time.March, 10)),
		closedRecord("b", calendar.NewDate(2025, time.March, 11)),
		closedRecord("c", calendar.NewDate(2025, time.March, 12)),
	}
	sink := &updateLog{failOn: map[string]bool{"b": true}}

	refreshed := false
	var last [2]int
	runner := recalc.NewRunner(fixedFetch(records...), sink.update,
		recalc.WithRefresh(func() { refreshed = true }),
		recalc.WithProgress(func(done, total int) { last = [2]int{done, total} }))

	summary, err := runner.Run(context.Background(), testPeriod)
	require.NoError(t, err, "a per-record failure never fails the batch")

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Updated)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, [2]int{3, 3}, last)
	assert.True(t, refreshed)
}

func TestRun_StrictlySequential(t *testing.T) {
	records := []attendance.Record{
		closedRecord("a", calendar.NewDate(2025, time.March, 10)),
		closedRecord("b", calendar.NewDate(2025, time.March, 11)),
		closedRecord("c", calendar.NewDate(2025, time.March, 12)),
	}
	sink := &updateLog{}
	runner := recalc.NewRunner(fixedFetch(records...), sink.update)

	_, err := runner.Run(context.Background(), testPeriod)
	require.NoError(t, err)

	require.Len(t, sink.updated, 3)
	assert.Equal(t, "a", sink.updated[0].ID)
	assert.Equal(t, "b", sink.updated[1].ID)
	assert.Equal(t, "c", sink.updated[2].ID)
}

func TestRun_FetchErrorAbortsWithoutRefresh(t *testing.T) {
	refreshed := false
	runner := recalc.NewRunner(
		func(context.Context, calendar.Period) ([]attendance.Record, error) {
			return nil, errors.New("snapshot unavailable")
		},
		(&updateLog{}).update,
		recalc.WithRefresh(func() { refreshed = true }))

	_, err := runner.Run(context.Background(), testPeriod)

	assert.Error(t, err)
	assert.False(t, refreshed)
}

// =============================================================================
// STATE MACHINE
// =============================================================================

func TestRun_SecondRunWhileRunningRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	blockingUpdate := func(context.Context, attendance.Record) error {
		close(started)
		<-release
		return nil
	}

	runner := recalc.NewRunner(
		fixedFetch(closedRecord("a", calendar.NewDate(2025, time.March, 10))),
		blockingUpdate)

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background(), testPeriod)
		done <- err
	}()

	<-started
	assert.Equal(t, recalc.StateRunning, runner.Status().State)

	_, err := runner.Run(context.Background(), testPeriod)
	assert.ErrorIs(t, err, recalc.ErrAlreadyRunning)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, recalc.StateIdle, runner.Status().State)
}

func TestRun_CancellationStopsBetweenRecords(t *testing.T) {
	// The in-flight update is awaited; remaining records are skipped and the
	// refresh hook still fires.
	ctx, cancel := context.WithCancel(context.Background())
	records := []attendance.Record{
		closedRecord("a", calendar.NewDate(2025, time.March, 10)),
		closedRecord("b", calendar.NewDate(2025, time.March, 11)),
		closedRecord("c", calendar.NewDate(2025, time.March, 12)),
	}

	sink := &updateLog{}
	cancelAfterFirst := func(c context.Context, rec attendance.Record) error {
		err := sink.update(c, rec)
		cancel()
		return err
	}

	refreshed := false
	runner := recalc.NewRunner(fixedFetch(records...), cancelAfterFirst,
		recalc.WithRefresh(func() { refreshed = true }))

	summary, err := runner.Run(ctx, testPeriod)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 2, summary.Skipped)
	assert.True(t, refreshed)
	assert.Len(t, sink.updated, 1)
}
