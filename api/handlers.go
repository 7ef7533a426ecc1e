/*
handlers.go - HTTP API handlers for the wage reconciliation engine

PURPOSE:
  Exposes the wage engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Workers:
    GET    /api/teams/{id}/workers       List team workers
    POST   /api/workers                  Register worker

  Attendance:
    GET    /api/attendance               List records in a date range
    POST   /api/attendance               Record a worker-day
    POST   /api/attendance/{id}/punch-out Close an open shift

  Ledger:
    GET    /api/teams/{id}/ledger        Reconciled statement for a period
    GET    /api/teams/{id}/transactions  List manual transactions
    POST   /api/teams/{id}/transactions  Create manual transaction
    PUT    /api/transactions/{id}        Update manual transaction
    DELETE /api/transactions/{id}        Delete manual transaction

  Admin:
    POST   /api/admin/recalculate        Recompute duty points (synchronous)
    GET    /api/admin/recalculate/status Runner progress

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Log: Structured logger
  - Runner: Duty-point recalculation batch, wired to the store
  - Cached statements, invalidated on any write

STATEMENT FLOW:
  1. Load the team's manual transactions, workers, and attendance snapshot
  2. ledger.Aggregate merges manual entries with derived labor credits
  3. ledger.Reconcile orders them and computes running balances
  Statements are never persisted; the cache only spares repeated reads
  between writes.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate, shift not open, recalculation running)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Nightly recalculation
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sitebook/wage-engine/attendance"
	"github.com/sitebook/wage-engine/calendar"
	"github.com/sitebook/wage-engine/ledger"
	"github.com/sitebook/wage-engine/recalc"
	"github.com/sitebook/wage-engine/store"
)

// defaultStatementDays is the window served when the client names none.
const defaultStatementDays = 30

// ledgerEpoch bounds the attendance scan that feeds a statement's opening
// balance. Labor credits before this date do not exist.
var ledgerEpoch = calendar.NewDate(2000, time.January, 1)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  store.Store
	Log    *zap.Logger
	Runner *recalc.Runner

	// RecalcWindowDays is the trailing window recomputed when a
	// recalculation request names no period.
	RecalcWindowDays int

	// Cached statements, keyed by team and period. Any write drops the
	// whole cache; correctness never depends on it.
	mu         sync.RWMutex
	statements map[string]ledger.Statement
}

// NewHandler creates a new handler backed by the given store.
func NewHandler(st store.Store, log *zap.Logger) *Handler {
	h := &Handler{
		Store:            st,
		Log:              log,
		RecalcWindowDays: 14,
		statements:       make(map[string]ledger.Statement),
	}
	h.Runner = recalc.NewRunner(
		st.ListAttendance,
		func(ctx context.Context, rec attendance.Record) error {
			if rec.DutyPoints == nil {
				return fmt.Errorf("record %s has no recomputed points", rec.ID)
			}
			return st.UpdateDutyPoints(ctx, rec.ID, *rec.DutyPoints)
		},
		recalc.WithLogger(log),
		recalc.WithRefresh(h.invalidateStatements),
	)
	return h
}

func (h *Handler) invalidateStatements() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statements = make(map[string]ledger.Statement)
}

// statementFor returns the reconciled statement, computing and caching it
// when no cached copy survives.
func (h *Handler) statementFor(ctx context.Context, teamID attendance.TeamID, period calendar.Period) (ledger.Statement, error) {
	key := string(teamID) + "|" + period.String()

	h.mu.RLock()
	stmt, ok := h.statements[key]
	h.mu.RUnlock()
	if ok {
		return stmt, nil
	}

	manual, err := h.Store.ListTransactionsByTeam(ctx, teamID)
	if err != nil {
		return ledger.Statement{}, err
	}
	workers, err := h.Store.ListWorkersByTeam(ctx, teamID)
	if err != nil {
		return ledger.Statement{}, err
	}
	// The attendance scan reaches back to the epoch so labor credits before
	// the window still land in the opening balance.
	records, err := h.Store.ListAttendance(ctx, calendar.NewPeriod(ledgerEpoch, period.End))
	if err != nil {
		return ledger.Statement{}, err
	}

	merged := ledger.Aggregate(teamID, manual, records, workers)
	stmt = ledger.Reconcile(merged, period)

	h.mu.Lock()
	h.statements[key] = stmt
	h.mu.Unlock()
	return stmt, nil
}

// =============================================================================
// WORKER HANDLERS
// =============================================================================

// ListWorkers returns the workers of a team.
// GET /api/teams/{id}/workers
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	teamID := attendance.TeamID(chi.URLParam(r, "id"))

	workers, err := h.Store.ListWorkersByTeam(r.Context(), teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list workers", err)
		return
	}

	dtos := make([]WorkerDTO, len(workers))
	for i, worker := range workers {
		dtos[i] = toWorkerDTO(worker)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateWorker registers a worker.
// POST /api/workers
func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TeamID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "team_id and name are required", nil)
		return
	}

	wage, err := decimal.NewFromString(req.DailyWage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid daily_wage", err)
		return
	}
	if wage.IsNegative() {
		writeError(w, http.StatusBadRequest, "daily_wage cannot be negative", nil)
		return
	}

	worker := attendance.Worker{
		ID:        attendance.WorkerID(req.ID),
		TeamID:    attendance.TeamID(req.TeamID),
		Name:      req.Name,
		DailyWage: wage,
	}
	if worker.ID == "" {
		worker.ID = attendance.WorkerID(uuid.NewString())
	}

	if err := h.Store.SaveWorker(r.Context(), worker); err != nil {
		if errors.Is(err, store.ErrDuplicateID) {
			writeError(w, http.StatusConflict, "Worker already exists", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create worker", err)
		return
	}

	h.invalidateStatements()
	writeJSON(w, http.StatusCreated, toWorkerDTO(worker))
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// ListAttendanceRecords returns attendance records within a date range.
// GET /api/attendance?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) ListAttendanceRecords(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromQuery(r, defaultStatementDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	records, err := h.Store.ListAttendance(r.Context(), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list attendance", err)
		return
	}

	dtos := make([]AttendanceDTO, len(records))
	for i, rec := range records {
		dtos[i] = toAttendanceDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAttendance records a worker-day.
// POST /api/attendance
func (h *Handler) CreateAttendance(w http.ResponseWriter, r *http.Request) {
	var req CreateAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.WorkerID == "" {
		writeError(w, http.StatusBadRequest, "worker_id is required", nil)
		return
	}

	day, err := calendar.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	status := attendance.Status(req.Status)
	if !attendance.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, "Invalid status", nil)
		return
	}

	rec := attendance.Record{
		ID:       uuid.NewString(),
		WorkerID: attendance.WorkerID(req.WorkerID),
		SiteID:   attendance.SiteID(req.SiteID),
		Date:     day,
		Status:   status,
	}
	if req.PunchIn != nil {
		punchIn, err := time.Parse(time.RFC3339, *req.PunchIn)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid punch_in format (use RFC3339)", err)
			return
		}
		rec.PunchIn = &punchIn
	}

	if _, err := h.Store.GetWorker(r.Context(), rec.WorkerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Worker not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get worker", err)
		return
	}

	if err := h.Store.SaveAttendance(r.Context(), rec); err != nil {
		if errors.Is(err, store.ErrDuplicateAttendance) {
			writeError(w, http.StatusConflict, "Attendance already recorded for this worker and day", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save attendance", err)
		return
	}

	h.invalidateStatements()
	writeJSON(w, http.StatusCreated, toAttendanceDTO(rec))
}

// PunchOut closes an open shift and scores the completed punch pair.
// POST /api/attendance/{id}/punch-out
func (h *Handler) PunchOut(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PunchOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	punchOut, err := time.Parse(time.RFC3339, req.PunchOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid punch_out format (use RFC3339)", err)
		return
	}

	rec, err := h.Store.GetAttendance(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Attendance record not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get attendance", err)
		return
	}
	if !rec.Open() {
		writeError(w, http.StatusConflict, "Shift is not open", nil)
		return
	}
	if !punchOut.After(*rec.PunchIn) {
		writeError(w, http.StatusBadRequest, "punch_out must be after punch_in", nil)
		return
	}

	points := attendance.Score(*rec.PunchIn, punchOut)
	if err := h.Store.ClosePunch(r.Context(), id, punchOut, points); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to close shift", err)
		return
	}

	rec.PunchOut = &punchOut
	rec.DutyPoints = &points

	h.invalidateStatements()
	writeJSON(w, http.StatusOK, toAttendanceDTO(*rec))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// GetLedger returns the reconciled statement for a team over a period.
// GET /api/teams/{id}/ledger?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	teamID := attendance.TeamID(chi.URLParam(r, "id"))

	period, err := periodFromQuery(r, defaultStatementDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	stmt, err := h.statementFor(r.Context(), teamID, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build statement", err)
		return
	}

	writeJSON(w, http.StatusOK, toStatementDTO(teamID, stmt))
}

// ListTransactions returns a team's manual transactions.
// GET /api/teams/{id}/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	teamID := attendance.TeamID(chi.URLParam(r, "id"))

	txs, err := h.Store.ListTransactionsByTeam(r.Context(), teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTransaction records a manual transaction for a team.
// POST /api/teams/{id}/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	teamID := attendance.TeamID(chi.URLParam(r, "id"))

	tx, ok := h.decodeTransaction(w, r)
	if !ok {
		return
	}
	tx.ID = uuid.NewString()
	tx.TeamID = teamID

	if err := h.Store.SaveTransaction(r.Context(), tx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save transaction", err)
		return
	}

	h.invalidateStatements()
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// UpdateTransaction rewrites a manual transaction.
// PUT /api/transactions/{id}
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.Store.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Transaction not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get transaction", err)
		return
	}

	tx, ok := h.decodeTransaction(w, r)
	if !ok {
		return
	}
	tx.ID = existing.ID
	tx.TeamID = existing.TeamID

	if err := h.Store.UpdateTransaction(r.Context(), tx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update transaction", err)
		return
	}

	h.invalidateStatements()
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// DeleteTransaction removes a manual transaction.
// DELETE /api/transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Transaction not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete transaction", err)
		return
	}

	h.invalidateStatements()
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// decodeTransaction parses and validates the shared create/update body.
func (h *Handler) decodeTransaction(w http.ResponseWriter, r *http.Request) (ledger.ManualTransaction, bool) {
	var req SaveTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return ledger.ManualTransaction{}, false
	}

	day, err := calendar.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return ledger.ManualTransaction{}, false
	}

	kind := ledger.Kind(req.Kind)
	if !ledger.ValidKind(kind) {
		writeError(w, http.StatusBadRequest, "kind must be debit or credit", nil)
		return ledger.ManualTransaction{}, false
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return ledger.ManualTransaction{}, false
	}
	if !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be positive", nil)
		return ledger.ManualTransaction{}, false
	}

	return ledger.ManualTransaction{
		Date:        day,
		Amount:      amount,
		Kind:        kind,
		Description: req.Description,
	}, true
}

// =============================================================================
// RECALCULATION HANDLERS
// =============================================================================

// TriggerRecalc recomputes duty points over a window, synchronously.
// POST /api/admin/recalculate
func (h *Handler) TriggerRecalc(w http.ResponseWriter, r *http.Request) {
	var req RecalcRequest
	// An empty body means the default window; anything else must parse.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	period := calendar.TrailingDays(calendar.Today(), h.RecalcWindowDays)
	if req.Start != "" && req.End != "" {
		start, err := calendar.ParseDate(req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start date", err)
			return
		}
		end, err := calendar.ParseDate(req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end date", err)
			return
		}
		period = calendar.NewPeriod(start, end)
	}
	if !period.Valid() {
		writeError(w, http.StatusBadRequest, "start must not be after end", nil)
		return
	}

	summary, err := h.Runner.Run(r.Context(), period)
	if err != nil {
		if errors.Is(err, recalc.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "Recalculation already running", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Recalculation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// RecalcStatus reports runner progress.
// GET /api/admin/recalculate/status
func (h *Handler) RecalcStatus(w http.ResponseWriter, r *http.Request) {
	status := h.Runner.Status()
	writeJSON(w, http.StatusOK, RecalcStatusDTO{
		State: string(status.State),
		Done:  status.Done,
		Total: status.Total,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// periodFromQuery reads ?start and ?end, defaulting to a trailing window
// ending today when both are absent.
func periodFromQuery(r *http.Request, trailingDays int) (calendar.Period, error) {
	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")

	if startRaw == "" && endRaw == "" {
		return calendar.TrailingDays(calendar.Today(), trailingDays), nil
	}
	if startRaw == "" || endRaw == "" {
		return calendar.Period{}, errors.New("start and end must be given together")
	}

	start, err := calendar.ParseDate(startRaw)
	if err != nil {
		return calendar.Period{}, fmt.Errorf("invalid start: %w", err)
	}
	end, err := calendar.ParseDate(endRaw)
	if err != nil {
		return calendar.Period{}, fmt.Errorf("invalid end: %w", err)
	}

	period := calendar.NewPeriod(start, end)
	if !period.Valid() {
		return calendar.Period{}, errors.New("start must not be after end")
	}
	return period, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func strPtr(s string) *string {
	return &s
}
