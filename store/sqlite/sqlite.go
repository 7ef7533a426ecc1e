/*
Package sqlite provides the SQLite-backed implementation of store.Store.

PURPOSE:
  Persists workers, attendance records, and manual transactions. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  workers:             Team members and their daily wage
  attendance_records:  One row per worker per day; punches and duty points
  manual_transactions: User-entered cash entries (the only mutable ledger rows)

WHAT IS DELIBERATELY ABSENT:
  No table for labor credits or statements. Both are derived from the rows
  above on every query; persisting them would just create state that can go
  stale.

CONSTRAINTS:
  - idx_attendance_worker_day: a worker has at most one attendance record
    per calendar day
  - manual_transactions.kind is CHECK-constrained to debit/credit

PRECISION:
  Wages, amounts, and duty points are stored as decimal strings, never as
  floating-point columns.

WAL MODE:
  SQLite is opened with WAL so readers don't block during the sequential
  writes of a recalculation batch.

USAGE:
  st, err := sqlite.New("./data/sitebook.db")
  defer st.Close()

SEE ALSO:
  - store/store.go: Interface definition
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/sitebook/wage-engine/attendance"
	"github.com/sitebook/wage-engine/calendar"
	"github.com/sitebook/wage-engine/ledger"
	"github.com/sitebook/wage-engine/store"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		team_id TEXT NOT NULL,
		name TEXT NOT NULL,
		daily_wage TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_workers_team ON workers(team_id);

	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		site_id TEXT,
		date TEXT NOT NULL,
		punch_in TEXT,
		punch_out TEXT,
		status TEXT NOT NULL,
		duty_points TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One attendance row per worker per day.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_worker_day
		ON attendance_records(worker_id, date);
	CREATE INDEX IF NOT EXISTS idx_attendance_date
		ON attendance_records(date);

	CREATE TABLE IF NOT EXISTS manual_transactions (
		id TEXT PRIMARY KEY,
		team_id TEXT NOT NULL,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('debit', 'credit')),
		description TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_team_date
		ON manual_transactions(team_id, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WORKERS
// =============================================================================

func (s *Store) SaveWorker(ctx context.Context, w attendance.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workers (id, team_id, name, daily_wage, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.TeamID, w.Name, w.DailyWage.String(), nowISO(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return store.ErrDuplicateID
		}
		return fmt.Errorf("failed to save worker: %w", err)
	}
	return nil
}

func (s *Store) GetWorker(ctx context.Context, id attendance.WorkerID) (*attendance.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, team_id, name, daily_wage FROM workers WHERE id = ?`, id)

	var w attendance.Worker
	var wage string
	if err := row.Scan(&w.ID, &w.TeamID, &w.Name, &wage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	wageDec, err := parseDecimal(wage)
	if err != nil {
		return nil, fmt.Errorf("corrupt worker wage: %w", err)
	}
	w.DailyWage = wageDec
	return &w, nil
}

func (s *Store) ListWorkersByTeam(ctx context.Context, teamID attendance.TeamID) ([]attendance.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, team_id, name, daily_wage FROM workers WHERE team_id = ? ORDER BY id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer rows.Close()

	var workers []attendance.Worker
	for rows.Next() {
		var w attendance.Worker
		var wage string
		if err := rows.Scan(&w.ID, &w.TeamID, &w.Name, &wage); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		if w.DailyWage, err = parseDecimal(wage); err != nil {
			return nil, fmt.Errorf("corrupt worker wage: %w", err)
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (s *Store) SaveAttendance(ctx context.Context, rec attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowISO()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_records
		(id, worker_id, site_id, date, punch_in, punch_out, status, duty_points, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.WorkerID,
		string(rec.SiteID),
		rec.Date.String(),
		nullTime(rec.PunchIn),
		nullTime(rec.PunchOut),
		rec.Status,
		nullDecimal(rec.DutyPoints),
		now,
		now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			if strings.Contains(err.Error(), "worker_id") {
				return store.ErrDuplicateAttendance
			}
			return store.ErrDuplicateID
		}
		return fmt.Errorf("failed to save attendance: %w", err)
	}
	return nil
}

func (s *Store) GetAttendance(ctx context.Context, id string) (*attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, worker_id, site_id, date, punch_in, punch_out, status, duty_points
		FROM attendance_records WHERE id = ?`, id)

	rec, err := scanAttendance(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *Store) ListAttendance(ctx context.Context, period calendar.Period) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, worker_id, site_id, date, punch_in, punch_out, status, duty_points
		FROM attendance_records
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, worker_id ASC`,
		period.Start.String(), period.End.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanAttendance(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *Store) ClosePunch(ctx context.Context, id string, punchOut time.Time, points decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET punch_out = ?, duty_points = ?, updated_at = ?
		WHERE id = ?`,
		punchOut.Format(time.RFC3339), points.String(), nowISO(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to close punch: %w", err)
	}
	return checkAffected(res)
}

func (s *Store) UpdateDutyPoints(ctx context.Context, id string, points decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE attendance_records SET duty_points = ?, updated_at = ? WHERE id = ?`,
		points.String(), nowISO(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update duty points: %w", err)
	}
	return checkAffected(res)
}

// =============================================================================
// MANUAL TRANSACTIONS
// =============================================================================

func (s *Store) SaveTransaction(ctx context.Context, tx ledger.ManualTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowISO()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manual_transactions (id, team_id, date, amount, kind, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.TeamID, tx.Date.String(), tx.Amount.String(), tx.Kind, tx.Description, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return store.ErrDuplicateID
		}
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*ledger.ManualTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, team_id, date, amount, kind, description
		FROM manual_transactions WHERE id = ?`, id)

	tx, err := scanTransaction(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx ledger.ManualTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE manual_transactions
		SET date = ?, amount = ?, kind = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		tx.Date.String(), tx.Amount.String(), tx.Kind, tx.Description, nowISO(), tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return checkAffected(res)
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM manual_transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return checkAffected(res)
}

func (s *Store) ListTransactionsByTeam(ctx context.Context, teamID attendance.TeamID) ([]ledger.ManualTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, date, amount, kind, description
		FROM manual_transactions
		WHERE team_id = ?
		ORDER BY date ASC, id ASC`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.ManualTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type scanFunc func(dest ...any) error

func scanAttendance(scan scanFunc) (*attendance.Record, error) {
	var (
		rec        attendance.Record
		siteID     sql.NullString
		date       string
		punchIn    sql.NullString
		punchOut   sql.NullString
		dutyPoints sql.NullString
	)

	err := scan(&rec.ID, &rec.WorkerID, &siteID, &date, &punchIn, &punchOut, &rec.Status, &dutyPoints)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan attendance: %w", err)
	}

	rec.SiteID = attendance.SiteID(siteID.String)
	d, err := calendar.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("corrupt attendance date: %w", err)
	}
	rec.Date = d

	if rec.PunchIn, err = parseNullTime(punchIn); err != nil {
		return nil, fmt.Errorf("corrupt punch_in: %w", err)
	}
	if rec.PunchOut, err = parseNullTime(punchOut); err != nil {
		return nil, fmt.Errorf("corrupt punch_out: %w", err)
	}
	if dutyPoints.Valid {
		pts, err := parseDecimal(dutyPoints.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt duty points: %w", err)
		}
		rec.DutyPoints = &pts
	}
	return &rec, nil
}

func scanTransaction(scan scanFunc) (*ledger.ManualTransaction, error) {
	var (
		tx          ledger.ManualTransaction
		date        string
		amount      string
		description sql.NullString
	)

	err := scan(&tx.ID, &tx.TeamID, &date, &amount, &tx.Kind, &description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	d, err := calendar.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("corrupt transaction date: %w", err)
	}
	tx.Date = d
	if tx.Amount, err = parseDecimal(amount); err != nil {
		return nil, fmt.Errorf("corrupt transaction amount: %w", err)
	}
	tx.Description = description.String
	return &tx, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullTime keeps the punch's own UTC offset: the duty windows are wall-clock
// times of the check-in's day, so normalizing to UTC would move them for any
// non-UTC site.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
