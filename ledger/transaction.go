/*
Package ledger reconciles a team's cash transactions against its labor value.

PURPOSE:
  A team's account is a mix of two very different things: manual cash
  transactions entered by a user (advances and settlements, persisted, with
  stable ids) and labor credits derived from attendance (recomputed on every
  query, never stored). This package merges the two and produces a
  chronological statement with opening, running, and closing balances.

KEY CONCEPTS IN THIS FILE (transaction.go):
  - ManualTransaction: A persisted cash entry (DEBIT or CREDIT)
  - Transaction: The sealed union of Manual | LaborCredit
  - Signed amounts: DEBIT increases what the team owes, CREDIT decreases it

DESIGN PRINCIPLES:
  1. The union is sealed: only Manual and LaborCredit implement Transaction,
     so edit/delete paths that take a ManualTransaction cannot be handed a
     derived labor credit by construction
  2. Kind is an explicit tag, never inferred from free-text descriptions
  3. Everything here is a pure function of its input snapshots

SEE ALSO:
  - aggregate.go: Merges manual entries with derived labor credits
  - reconcile.go: Orders the merged set and computes balances
*/
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/sitebook/wage-engine/attendance"
	"github.com/sitebook/wage-engine/calendar"
)

// =============================================================================
// KIND - Signed direction of a ledger entry
// =============================================================================

// Kind tags the direction of a transaction on the team's account.
type Kind string

const (
	// Debit is cash advanced to the team; it increases what the team owes.
	Debit Kind = "debit"
	// Credit is a settlement or earned labor value; it decreases what the
	// team owes.
	Credit Kind = "credit"
)

// ValidKind reports whether k is a known direction.
func ValidKind(k Kind) bool {
	return k == Debit || k == Credit
}

// =============================================================================
// MANUAL TRANSACTION - Persisted cash entry
// =============================================================================

// ManualTransaction is a cash entry recorded by explicit user action. It is
// the only mutable ledger input: created, edited, and deleted through the
// store, never derived.
type ManualTransaction struct {
	ID          string
	TeamID      attendance.TeamID
	Date        calendar.Date
	Amount      decimal.Decimal // always positive; direction lives in Kind
	Kind        Kind
	Description string
}

// =============================================================================
// TRANSACTION - Sealed union of Manual | LaborCredit
// =============================================================================

// Transaction is one entry of a team's merged ledger: either a manual cash
// transaction or a derived labor credit. The interface is sealed; the two
// variants in this file are the only implementations.
type Transaction interface {
	// Date is the calendar day the entry applies to.
	Date() calendar.Date

	// Amount is the unsigned magnitude; always positive.
	Amount() decimal.Decimal

	// Kind is the signed direction of the entry.
	Kind() Kind

	// Signed returns +Amount for a debit and -Amount for a credit.
	Signed() decimal.Decimal

	// sealed keeps the variant set closed to this package.
	sealed()
}

// Manual wraps a persisted cash entry as a ledger transaction.
type Manual struct {
	Tx ManualTransaction
}

func (m Manual) Date() calendar.Date     { return m.Tx.Date }
func (m Manual) Amount() decimal.Decimal { return m.Tx.Amount }
func (m Manual) Kind() Kind              { return m.Tx.Kind }
func (m Manual) Signed() decimal.Decimal { return signed(m.Tx.Kind, m.Tx.Amount) }
func (m Manual) sealed()                 {}

// LaborCredit is one day of a team's earned labor value: the sum of
// shift-fraction * daily-wage across the team's workers for that date.
// It is derived on every query, carries no id, and cannot be edited or
// deleted - there is nothing to edit.
type LaborCredit struct {
	Day     calendar.Date
	Value   decimal.Decimal // always positive; zero-value days are not emitted
	Workers int             // attendance records that contributed
}

func (l LaborCredit) Date() calendar.Date     { return l.Day }
func (l LaborCredit) Amount() decimal.Decimal { return l.Value }
func (l LaborCredit) Kind() Kind              { return Credit }
func (l LaborCredit) Signed() decimal.Decimal { return l.Value.Neg() }
func (l LaborCredit) sealed()                 {}

func signed(k Kind, amount decimal.Decimal) decimal.Decimal {
	if k == Debit {
		return amount
	}
	return amount.Neg()
}
