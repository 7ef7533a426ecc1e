/*
reconcile.go - Chronological statement with opening/running/closing balances

PURPOSE:
  Turns a merged transaction set into the account statement a user reads:
  every transaction before the window folds into the opening balance, every
  transaction inside the window becomes an entry with a running balance, and
  everything after the window is ignored.

SIGN CONVENTION:
  Balances track what the team owes. A debit (cash advanced) raises the
  balance; a credit (settlement or labor value) lowers it. totalCredit
  deliberately mixes manual settlements and derived labor credits - both
  reduce the debt the same way.

ORDERING:
  Entries are sorted ascending by date. Same-date ties break
  deterministically: manual entries before the day's labor credit, manual
  ties by id. The tie-break only affects the intra-day running-balance
  sequence, never the end-of-day balance.

Reconcile is pure and deterministic: identical inputs produce identical
statements, and empty input yields an all-zero statement.
*/
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sitebook/wage-engine/calendar"
)

// =============================================================================
// STATEMENT - The ledger view handed to reporting
// =============================================================================

// Entry is a transaction annotated with the balance after applying it.
type Entry struct {
	Transaction
	RunningBalance decimal.Decimal
}

// Statement is the reconciled account view for one team over one period.
// It is transient: recomputed from the current snapshots on every request,
// never stored.
type Statement struct {
	Period         calendar.Period
	Entries        []Entry
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	TotalDebit     decimal.Decimal
	TotalCredit    decimal.Decimal
}

// Reconcile orders the merged transactions and computes the statement for
// the requested period. Transactions dated before the period form the
// opening balance; transactions after it are dropped.
func Reconcile(txs []Transaction, period calendar.Period) Statement {
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessTransaction(sorted[i], sorted[j])
	})

	st := Statement{
		Period:         period,
		OpeningBalance: decimal.Zero,
		ClosingBalance: decimal.Zero,
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
	}

	var within []Transaction
	for _, tx := range sorted {
		switch {
		case tx.Date().Before(period.Start):
			st.OpeningBalance = st.OpeningBalance.Add(tx.Signed())
		case tx.Date().After(period.End):
			// Ignored entirely.
		default:
			within = append(within, tx)
		}
	}

	running := st.OpeningBalance
	for _, tx := range within {
		running = running.Add(tx.Signed())
		st.Entries = append(st.Entries, Entry{Transaction: tx, RunningBalance: running})

		if tx.Kind() == Debit {
			st.TotalDebit = st.TotalDebit.Add(tx.Amount())
		} else {
			st.TotalCredit = st.TotalCredit.Add(tx.Amount())
		}
	}

	st.ClosingBalance = st.OpeningBalance
	if len(st.Entries) > 0 {
		st.ClosingBalance = st.Entries[len(st.Entries)-1].RunningBalance
	}
	return st
}

// lessTransaction orders by date, then manual before the day's labor credit,
// then manual id. The input may arrive in map-iteration order, so the sort
// key must be total for determinism.
func lessTransaction(a, b Transaction) bool {
	if !a.Date().Equal(b.Date()) {
		return a.Date().Before(b.Date())
	}
	ma, aManual := a.(Manual)
	mb, bManual := b.(Manual)
	if aManual != bManual {
		return aManual
	}
	if aManual && bManual {
		return ma.Tx.ID < mb.Tx.ID
	}
	// Two labor credits on one date cannot occur for a single team.
	return false
}
