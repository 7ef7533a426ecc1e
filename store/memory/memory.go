// Package memory provides an in-memory Store implementation (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sitebook/wage-engine/attendance"
	"github.com/sitebook/wage-engine/calendar"
	"github.com/sitebook/wage-engine/ledger"
	"github.com/sitebook/wage-engine/store"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	workers      map[attendance.WorkerID]attendance.Worker
	records      map[string]attendance.Record
	recordByDay  map[dayKey]string
	transactions map[string]ledger.ManualTransaction
}

type dayKey struct {
	WorkerID attendance.WorkerID
	Date     calendar.Date
}

func New() *Memory {
	return &Memory{
		workers:      make(map[attendance.WorkerID]attendance.Worker),
		records:      make(map[string]attendance.Record),
		recordByDay:  make(map[dayKey]string),
		transactions: make(map[string]ledger.ManualTransaction),
	}
}

var _ store.Store = (*Memory)(nil)

// =============================================================================
// WORKERS
// =============================================================================

func (m *Memory) SaveWorker(_ context.Context, w attendance.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.workers[w.ID]; exists {
		return store.ErrDuplicateID
	}
	m.workers[w.ID] = w
	return nil
}

func (m *Memory) GetWorker(_ context.Context, id attendance.WorkerID) (*attendance.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

func (m *Memory) ListWorkersByTeam(_ context.Context, teamID attendance.TeamID) ([]attendance.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []attendance.Worker
	for _, w := range m.workers {
		if w.TeamID == teamID {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (m *Memory) SaveAttendance(_ context.Context, rec attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.ID]; exists {
		return store.ErrDuplicateID
	}
	k := dayKey{WorkerID: rec.WorkerID, Date: rec.Date}
	if _, exists := m.recordByDay[k]; exists {
		return store.ErrDuplicateAttendance
	}
	m.records[rec.ID] = copyRecord(rec)
	m.recordByDay[k] = rec.ID
	return nil
}

func (m *Memory) GetAttendance(_ context.Context, id string) (*attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := copyRecord(rec)
	return &out, nil
}

func (m *Memory) ListAttendance(_ context.Context, period calendar.Period) ([]attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []attendance.Record
	for _, rec := range m.records {
		if period.Contains(rec.Date) {
			result = append(result, copyRecord(rec))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].WorkerID < result[j].WorkerID
	})
	return result, nil
}

func (m *Memory) ClosePunch(_ context.Context, id string, punchOut time.Time, points decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return store.ErrNotFound
	}
	out := punchOut
	pts := points
	rec.PunchOut = &out
	rec.DutyPoints = &pts
	m.records[id] = rec
	return nil
}

func (m *Memory) UpdateDutyPoints(_ context.Context, id string, points decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return store.ErrNotFound
	}
	pts := points
	rec.DutyPoints = &pts
	m.records[id] = rec
	return nil
}

// =============================================================================
// MANUAL TRANSACTIONS
// =============================================================================

func (m *Memory) SaveTransaction(_ context.Context, tx ledger.ManualTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.transactions[tx.ID]; exists {
		return store.ErrDuplicateID
	}
	m.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) GetTransaction(_ context.Context, id string) (*ledger.ManualTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &tx, nil
}

func (m *Memory) UpdateTransaction(_ context.Context, tx ledger.ManualTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[tx.ID]; !ok {
		return store.ErrNotFound
	}
	m.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) DeleteTransaction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.transactions, id)
	return nil
}

func (m *Memory) ListTransactionsByTeam(_ context.Context, teamID attendance.TeamID) ([]ledger.ManualTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.ManualTransaction
	for _, tx := range m.transactions {
		if tx.TeamID == teamID {
			result = append(result, tx)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// copyRecord deep-copies the pointer fields so stored state cannot be
// mutated through a returned snapshot.
func copyRecord(rec attendance.Record) attendance.Record {
	out := rec
	if rec.PunchIn != nil {
		v := *rec.PunchIn
		out.PunchIn = &v
	}
	if rec.PunchOut != nil {
		v := *rec.PunchOut
		out.PunchOut = &v
	}
	if rec.DutyPoints != nil {
		v := *rec.DutyPoints
		out.DutyPoints = &v
	}
	return out
}
