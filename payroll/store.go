/*
store.go - Persistence interface for ledger state

PURPOSE:
  Defines the boundary between the ledger and the database. The ledger
  keeps its working state in memory; a StateStore makes that state survive
  restarts. Different implementations can use SQLite or memory.

WRITE DISCIPLINE:
  SaveState replaces the whole state atomically. The ledger calls it after
  bookkeeping and before settlement; if settlement fails the previous state
  is saved again, so the store never keeps a mutation whose transfer did
  not happen.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite tables (employees, ledger_state)
  - payroll/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Calls LoadState in New and SaveState on every mutation
*/
package payroll

import (
	"context"

	"github.com/shopspring/decimal"
)

// State is the persisted form of a ledger.
type State struct {
	Owner     Address
	Account   Address
	Strategy  Strategy
	Total     decimal.Decimal // maintained total; zero for the recomputed strategy
	Employees []Employee      // roster in storage order
}

// StateStore persists ledger state.
type StateStore interface {
	// LoadState returns the saved state, or nil when nothing was saved.
	LoadState(ctx context.Context) (*State, error)

	// SaveState atomically replaces the saved state.
	SaveState(ctx context.Context, s State) error
}
