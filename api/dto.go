/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND POINTS:
  Internally everything is shopspring decimal. Amounts cross the JSON
  boundary as strings ("1400.00") so clients never see float artifacts;
  duty points do the same ("1.5").

TYPES:
  Workers:
    WorkerDTO, CreateWorkerRequest

  Attendance:
    AttendanceDTO, CreateAttendanceRequest, PunchOutRequest

  Ledger:
    TransactionDTO, SaveTransactionRequest, EntryDTO, StatementDTO

  Recalculation:
    RecalcRequest, RecalcSummaryDTO, RecalcStatusDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/reconcile.go: Statement, the domain view behind StatementDTO
*/
package api

import (
	"time"

	"github.com/sitebook/wage-engine/attendance"
	"github.com/sitebook/wage-engine/ledger"
	"github.com/sitebook/wage-engine/recalc"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// WorkerDTO represents a team worker in API responses.
type WorkerDTO struct {
	ID        string `json:"id"`
	TeamID    string `json:"team_id"`
	Name      string `json:"name"`
	DailyWage string `json:"daily_wage"`
}

// CreateWorkerRequest is the request to register a worker.
type CreateWorkerRequest struct {
	ID        string `json:"id,omitempty"`
	TeamID    string `json:"team_id"`
	Name      string `json:"name"`
	DailyWage string `json:"daily_wage"`
}

// AttendanceDTO represents one worker-day attendance record.
type AttendanceDTO struct {
	ID         string  `json:"id"`
	WorkerID   string  `json:"worker_id"`
	SiteID     string  `json:"site_id,omitempty"`
	Date       string  `json:"date"`
	PunchIn    *string `json:"punch_in,omitempty"`
	PunchOut   *string `json:"punch_out,omitempty"`
	Status     string  `json:"status"`
	DutyPoints *string `json:"duty_points,omitempty"`
}

// CreateAttendanceRequest is the request to record attendance for a day.
type CreateAttendanceRequest struct {
	WorkerID string  `json:"worker_id"`
	SiteID   string  `json:"site_id,omitempty"`
	Date     string  `json:"date"`
	PunchIn  *string `json:"punch_in,omitempty"`
	Status   string  `json:"status"`
}

// PunchOutRequest closes an open shift.
type PunchOutRequest struct {
	PunchOut string `json:"punch_out"`
}

// TransactionDTO represents a manual ledger transaction.
type TransactionDTO struct {
	ID          string `json:"id"`
	TeamID      string `json:"team_id"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
}

// SaveTransactionRequest creates or updates a manual transaction.
type SaveTransactionRequest struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
}

// EntryDTO is one line of a reconciled statement. Source is "manual" for
// persisted cash entries and "labor" for derived labor credits; only manual
// entries carry an id.
type EntryDTO struct {
	Source         string `json:"source"`
	ID             string `json:"id,omitempty"`
	Date           string `json:"date"`
	Kind           string `json:"kind"`
	Amount         string `json:"amount"`
	Description    string `json:"description,omitempty"`
	Workers        int    `json:"workers,omitempty"`
	RunningBalance string `json:"running_balance"`
}

// StatementDTO is the reconciled ledger view for one team over one period.
type StatementDTO struct {
	TeamID         string     `json:"team_id"`
	Start          string     `json:"start"`
	End            string     `json:"end"`
	OpeningBalance string     `json:"opening_balance"`
	ClosingBalance string     `json:"closing_balance"`
	TotalDebit     string     `json:"total_debit"`
	TotalCredit    string     `json:"total_credit"`
	Entries        []EntryDTO `json:"entries"`
}

// RecalcRequest selects the window to recompute. Both fields optional; the
// default window trails from today.
type RecalcRequest struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// RecalcSummaryDTO reports the outcome of a recalculation run.
type RecalcSummaryDTO struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// RecalcStatusDTO reports runner progress.
type RecalcStatusDTO struct {
	State string `json:"state"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toWorkerDTO(w attendance.Worker) WorkerDTO {
	return WorkerDTO{
		ID:        string(w.ID),
		TeamID:    string(w.TeamID),
		Name:      w.Name,
		DailyWage: w.DailyWage.String(),
	}
}

func toAttendanceDTO(rec attendance.Record) AttendanceDTO {
	dto := AttendanceDTO{
		ID:       rec.ID,
		WorkerID: string(rec.WorkerID),
		SiteID:   string(rec.SiteID),
		Date:     rec.Date.String(),
		Status:   string(rec.Status),
	}
	if rec.PunchIn != nil {
		dto.PunchIn = strPtr(rec.PunchIn.Format(time.RFC3339))
	}
	if rec.PunchOut != nil {
		dto.PunchOut = strPtr(rec.PunchOut.Format(time.RFC3339))
	}
	if rec.DutyPoints != nil {
		dto.DutyPoints = strPtr(rec.DutyPoints.String())
	}
	return dto
}

func toTransactionDTO(tx ledger.ManualTransaction) TransactionDTO {
	return TransactionDTO{
		ID:          tx.ID,
		TeamID:      string(tx.TeamID),
		Date:        tx.Date.String(),
		Amount:      tx.Amount.String(),
		Kind:        string(tx.Kind),
		Description: tx.Description,
	}
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	dto := EntryDTO{
		Date:           e.Date().String(),
		Kind:           string(e.Kind()),
		Amount:         e.Amount().String(),
		RunningBalance: e.RunningBalance.String(),
	}
	switch tx := e.Transaction.(type) {
	case ledger.Manual:
		dto.Source = "manual"
		dto.ID = tx.Tx.ID
		dto.Description = tx.Tx.Description
	case ledger.LaborCredit:
		dto.Source = "labor"
		dto.Workers = tx.Workers
	}
	return dto
}

func toStatementDTO(teamID attendance.TeamID, stmt ledger.Statement) StatementDTO {
	entries := make([]EntryDTO, len(stmt.Entries))
	for i, e := range stmt.Entries {
		entries[i] = toEntryDTO(e)
	}
	return StatementDTO{
		TeamID:         string(teamID),
		Start:          stmt.Period.Start.String(),
		End:            stmt.Period.End.String(),
		OpeningBalance: stmt.OpeningBalance.String(),
		ClosingBalance: stmt.ClosingBalance.String(),
		TotalDebit:     stmt.TotalDebit.String(),
		TotalCredit:    stmt.TotalCredit.String(),
		Entries:        entries,
	}
}

func toSummaryDTO(s recalc.Summary) RecalcSummaryDTO {
	return RecalcSummaryDTO{
		Total:   s.Total,
		Updated: s.Updated,
		Failed:  s.Failed,
		Skipped: s.Skipped,
	}
}
