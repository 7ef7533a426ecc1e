/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Statement endpoint merging manual transactions with labor credits
- Transaction CRUD validation and conflict handling
- Attendance recording and punch-out scoring
- Synchronous recalculation endpoint
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitebook/wage-engine/attendance"
	"github.com/sitebook/wage-engine/calendar"
	"github.com/sitebook/wage-engine/ledger"
	"github.com/sitebook/wage-engine/store/memory"
)

func newTestServer(t *testing.T) (*memory.Memory, http.Handler) {
	t.Helper()
	st := memory.New()
	h := NewHandler(st, zap.NewNop())
	return st, NewRouter(h, []string{"*"})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func seedWorker(t *testing.T, st *memory.Memory, id, team, wage string) {
	t.Helper()
	require.NoError(t, st.SaveWorker(context.Background(), attendance.Worker{
		ID:        attendance.WorkerID(id),
		TeamID:    attendance.TeamID(team),
		Name:      "Worker " + id,
		DailyWage: decimal.RequireFromString(wage),
	}))
}

// =============================================================================
// LEDGER
// =============================================================================

func TestGetLedger_MergesManualAndLabor(t *testing.T) {
	// GIVEN a worker with a full attendance day and one manual debit
	// recorded before the requested window
	st, router := newTestServer(t)
	ctx := context.Background()
	seedWorker(t, st, "w1", "team-1", "800")

	points := decimal.RequireFromString("1")
	require.NoError(t, st.SaveAttendance(ctx, attendance.Record{
		ID:         "att-1",
		WorkerID:   "w1",
		Date:       calendar.NewDate(2026, time.March, 10),
		Status:     attendance.StatusPresent,
		DutyPoints: &points,
	}))
	require.NoError(t, st.SaveTransaction(ctx, ledger.ManualTransaction{
		ID:     "tx-1",
		TeamID: "team-1",
		Date:   calendar.NewDate(2026, time.March, 1),
		Amount: decimal.RequireFromString("1000"),
		Kind:   ledger.Debit,
	}))

	// WHEN fetching the statement for a window after the debit
	rr := doJSON(t, router, http.MethodGet, "/api/teams/team-1/ledger?start=2026-03-05&end=2026-03-15", nil)

	// THEN the debit forms the opening balance and the labor credit is the
	// only entry
	require.Equal(t, http.StatusOK, rr.Code)
	stmt := decodeBody[StatementDTO](t, rr)
	assert.Equal(t, "team-1", stmt.TeamID)
	assertMoneyString(t, "1000", stmt.OpeningBalance)
	assertMoneyString(t, "200", stmt.ClosingBalance)
	assertMoneyString(t, "0", stmt.TotalDebit)
	assertMoneyString(t, "800", stmt.TotalCredit)
	require.Len(t, stmt.Entries, 1)
	assert.Equal(t, "labor", stmt.Entries[0].Source)
	assert.Equal(t, "2026-03-10", stmt.Entries[0].Date)
	assert.Equal(t, 1, stmt.Entries[0].Workers)
	assertMoneyString(t, "200", stmt.Entries[0].RunningBalance)
}

func TestGetLedger_EmptyTeam(t *testing.T) {
	// GIVEN no data at all
	_, router := newTestServer(t)

	// WHEN fetching a statement for an unknown team
	rr := doJSON(t, router, http.MethodGet, "/api/teams/ghost/ledger?start=2026-03-01&end=2026-03-31", nil)

	// THEN the statement is empty, not an error
	require.Equal(t, http.StatusOK, rr.Code)
	stmt := decodeBody[StatementDTO](t, rr)
	assertMoneyString(t, "0", stmt.OpeningBalance)
	assertMoneyString(t, "0", stmt.ClosingBalance)
	assert.Empty(t, stmt.Entries)
}

func TestGetLedger_RejectsHalfRange(t *testing.T) {
	_, router := newTestServer(t)

	rr := doJSON(t, router, http.MethodGet, "/api/teams/team-1/ledger?start=2026-03-01", nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestTransactionLifecycle(t *testing.T) {
	st, router := newTestServer(t)

	// Create
	rr := doJSON(t, router, http.MethodPost, "/api/teams/team-1/transactions", SaveTransactionRequest{
		Date:        "2026-03-12",
		Amount:      "250.50",
		Kind:        "debit",
		Description: "advance payment",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeBody[TransactionDTO](t, rr)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "team-1", created.TeamID)

	// Update
	rr = doJSON(t, router, http.MethodPut, "/api/transactions/"+created.ID, SaveTransactionRequest{
		Date:   "2026-03-13",
		Amount: "300",
		Kind:   "credit",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	updated := decodeBody[TransactionDTO](t, rr)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "credit", updated.Kind)

	// Stored copy reflects the update
	stored, err := st.GetTransaction(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Credit, stored.Kind)

	// Delete
	rr = doJSON(t, router, http.MethodDelete, "/api/transactions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, "/api/transactions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateTransaction_Validation(t *testing.T) {
	_, router := newTestServer(t)

	t.Run("bad kind", func(t *testing.T) {
		rr := doJSON(t, router, http.MethodPost, "/api/teams/team-1/transactions", SaveTransactionRequest{
			Date: "2026-03-12", Amount: "100", Kind: "transfer",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		rr := doJSON(t, router, http.MethodPost, "/api/teams/team-1/transactions", SaveTransactionRequest{
			Date: "2026-03-12", Amount: "-5", Kind: "debit",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("bad date", func(t *testing.T) {
		rr := doJSON(t, router, http.MethodPost, "/api/teams/team-1/transactions", SaveTransactionRequest{
			Date: "12/03/2026", Amount: "100", Kind: "debit",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestAttendanceFlow_PunchOutScoresShift(t *testing.T) {
	// GIVEN a registered worker with an open shift starting at 06:00
	st, router := newTestServer(t)
	seedWorker(t, st, "w1", "team-1", "800")

	rr := doJSON(t, router, http.MethodPost, "/api/attendance", CreateAttendanceRequest{
		WorkerID: "w1",
		Date:     "2026-03-10",
		PunchIn:  strPtr("2026-03-10T06:00:00Z"),
		Status:   "present",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	rec := decodeBody[AttendanceDTO](t, rr)
	require.Nil(t, rec.DutyPoints)

	// WHEN punching out at 18:00
	rr = doJSON(t, router, http.MethodPost, "/api/attendance/"+rec.ID+"/punch-out", PunchOutRequest{
		PunchOut: "2026-03-10T18:00:00Z",
	})

	// THEN the full-day score is stored with the punch
	require.Equal(t, http.StatusOK, rr.Code)
	closed := decodeBody[AttendanceDTO](t, rr)
	require.NotNil(t, closed.DutyPoints)
	assertMoneyString(t, "1.5", *closed.DutyPoints)

	stored, err := st.GetAttendance(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PunchOut)
	require.NotNil(t, stored.DutyPoints)

	// AND a second punch-out conflicts
	rr = doJSON(t, router, http.MethodPost, "/api/attendance/"+rec.ID+"/punch-out", PunchOutRequest{
		PunchOut: "2026-03-10T19:00:00Z",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCreateAttendance_Conflicts(t *testing.T) {
	st, router := newTestServer(t)
	seedWorker(t, st, "w1", "team-1", "800")

	t.Run("unknown worker", func(t *testing.T) {
		rr := doJSON(t, router, http.MethodPost, "/api/attendance", CreateAttendanceRequest{
			WorkerID: "ghost", Date: "2026-03-10", Status: "present",
		})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("duplicate worker-day", func(t *testing.T) {
		first := doJSON(t, router, http.MethodPost, "/api/attendance", CreateAttendanceRequest{
			WorkerID: "w1", Date: "2026-03-10", Status: "present",
		})
		require.Equal(t, http.StatusCreated, first.Code)

		second := doJSON(t, router, http.MethodPost, "/api/attendance", CreateAttendanceRequest{
			WorkerID: "w1", Date: "2026-03-10", Status: "half_day",
		})
		assert.Equal(t, http.StatusConflict, second.Code)
	})

	t.Run("unknown status", func(t *testing.T) {
		rr := doJSON(t, router, http.MethodPost, "/api/attendance", CreateAttendanceRequest{
			WorkerID: "w1", Date: "2026-03-11", Status: "vacationing",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

// brokenWorkerStore simulates a database failure on worker lookups.
type brokenWorkerStore struct {
	*memory.Memory
}

func (b *brokenWorkerStore) GetWorker(context.Context, attendance.WorkerID) (*attendance.Worker, error) {
	return nil, errors.New("disk I/O error")
}

func TestCreateAttendance_StoreFailureIsNot404(t *testing.T) {
	// GIVEN a store whose worker lookup fails outright
	h := NewHandler(&brokenWorkerStore{Memory: memory.New()}, zap.NewNop())
	router := NewRouter(h, []string{"*"})

	// WHEN recording attendance
	rr := doJSON(t, router, http.MethodPost, "/api/attendance", CreateAttendanceRequest{
		WorkerID: "w1", Date: "2026-03-10", Status: "present",
	})

	// THEN the failure surfaces as a server error, not a missing worker
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

// =============================================================================
// RECALCULATION
// =============================================================================

func TestTriggerRecalc_RecomputesClosedShifts(t *testing.T) {
	// GIVEN a closed shift whose stored points are stale
	st, router := newTestServer(t)
	ctx := context.Background()
	seedWorker(t, st, "w1", "team-1", "800")

	punchIn := time.Date(2026, time.March, 10, 6, 0, 0, 0, time.UTC)
	punchOut := time.Date(2026, time.March, 10, 18, 0, 0, 0, time.UTC)
	stale := decimal.RequireFromString("0.5")
	require.NoError(t, st.SaveAttendance(ctx, attendance.Record{
		ID:         "att-1",
		WorkerID:   "w1",
		Date:       calendar.NewDate(2026, time.March, 10),
		PunchIn:    &punchIn,
		PunchOut:   &punchOut,
		Status:     attendance.StatusPresent,
		DutyPoints: &stale,
	}))

	// WHEN triggering recalculation over that window
	rr := doJSON(t, router, http.MethodPost, "/api/admin/recalculate", RecalcRequest{
		Start: "2026-03-01", End: "2026-03-31",
	})

	// THEN the run reports one update and the store holds the fresh score
	require.Equal(t, http.StatusOK, rr.Code)
	summary := decodeBody[RecalcSummaryDTO](t, rr)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 0, summary.Failed)

	stored, err := st.GetAttendance(ctx, "att-1")
	require.NoError(t, err)
	require.NotNil(t, stored.DutyPoints)
	assertMoneyString(t, "1.5", stored.DutyPoints.String())
}

func TestTriggerRecalc_RejectsInvertedWindow(t *testing.T) {
	_, router := newTestServer(t)

	rr := doJSON(t, router, http.MethodPost, "/api/admin/recalculate", RecalcRequest{
		Start: "2026-03-31", End: "2026-03-01",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTriggerRecalc_BodyHandling(t *testing.T) {
	_, router := newTestServer(t)

	t.Run("empty body uses default window", func(t *testing.T) {
		rr := doJSON(t, router, http.MethodPost, "/api/admin/recalculate", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		summary := decodeBody[RecalcSummaryDTO](t, rr)
		assert.Zero(t, summary.Total)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/recalculate",
			bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestRecalcStatus_Idle(t *testing.T) {
	_, router := newTestServer(t)

	rr := doJSON(t, router, http.MethodGet, "/api/admin/recalculate/status", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	status := decodeBody[RecalcStatusDTO](t, rr)
	assert.Equal(t, "idle", status.State)
	assert.Zero(t, status.Total)
}

// =============================================================================
// WORKERS
// =============================================================================

func TestWorkerRoundtrip(t *testing.T) {
	_, router := newTestServer(t)

	rr := doJSON(t, router, http.MethodPost, "/api/workers", CreateWorkerRequest{
		TeamID:    "team-1",
		Name:      "Asha",
		DailyWage: "650",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeBody[WorkerDTO](t, rr)
	assert.NotEmpty(t, created.ID)

	rr = doJSON(t, router, http.MethodGet, "/api/teams/team-1/workers", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	workers := decodeBody[[]WorkerDTO](t, rr)
	require.Len(t, workers, 1)
	assert.Equal(t, "Asha", workers[0].Name)
}

func TestCreateWorker_RejectsNegativeWage(t *testing.T) {
	_, router := newTestServer(t)

	rr := doJSON(t, router, http.MethodPost, "/api/workers", CreateWorkerRequest{
		TeamID:    "team-1",
		Name:      "Asha",
		DailyWage: "-10",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// assertMoneyString compares decimal strings by value so "200" and "200.0"
// are interchangeable.
func assertMoneyString(t *testing.T, want, got string) {
	t.Helper()
	w := decimal.RequireFromString(want)
	g := decimal.RequireFromString(got)
	assert.Truef(t, w.Equal(g), "want %s, got %s", want, got)
}
