/*
Package payroll provides the payroll ledger engine.

PURPOSE:
  This package tracks a roster of employees, accrues salary obligations over
  fixed pay periods and disburses funds from a pooled balance under owner
  control. Everything that touches money or the roster goes through the
  Ledger controller defined in ledger.go.

KEY CONCEPTS IN THIS FILE (types.go):
  - Address: Identity of the owner, an employee or a vault account
  - Employee: Roster entry (address, scaled salary, last payday)
  - Strategy: How the outstanding salary total is computed
  - Payment / Due: Results of settlement and of payday inspection

DESIGN PRINCIPLES:
  1. Precision: All money is decimal.Decimal restricted to integers
  2. One basis: Salaries are stored scaled by the base unit and every
     comparison uses the stored value
  3. Explicit state: The ledger is a struct owned by one controller,
     there is no package-level mutable state

USAGE:
  vault := store.NewMemory()
  ledger, err := payroll.New(ctx, "0xowner", vault,
      payroll.WithStrategy(payroll.StrategyMaintained))
  err = ledger.AddEmployee(ctx, "0xowner", "0xalice", decimal.NewFromInt(1000))

SEE ALSO:
  - registry.go: Roster with O(1) lookup and swap removal
  - accountant.go: Recomputed and maintained salary totals
  - schedule.go: Pay periods and payment authorization
  - funds.go: Balance, runway and the settlement vault
  - ledger.go: The controller tying it all together
*/
package payroll

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ADDRESS
// =============================================================================

// Address identifies a participant. Addresses are compared case-insensitively.
type Address string

// ZeroAddress is the canonical "no address" value.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// NewAddress normalizes s into an Address.
func NewAddress(s string) Address {
	return Address(strings.ToLower(strings.TrimSpace(s)))
}

// IsZero reports whether a is empty or the zero address.
func (a Address) IsZero() bool {
	n := NewAddress(string(a))
	return n == "" || n == ZeroAddress
}

func (a Address) String() string { return string(a) }

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is a roster entry. Salary is stored in base units.
type Employee struct {
	Address    Address
	Salary     decimal.Decimal
	LastPayday time.Time
}

// =============================================================================
// STRATEGY
// =============================================================================

// Strategy selects how the outstanding salary total is computed.
type Strategy string

const (
	// StrategyRecomputed sums the roster on every query.
	StrategyRecomputed Strategy = "recomputed"
	// StrategyMaintained keeps a running total updated on every mutation.
	StrategyMaintained Strategy = "maintained"
)

// ParseStrategy converts a configuration value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyRecomputed:
		return StrategyRecomputed, nil
	case StrategyMaintained, "":
		return StrategyMaintained, nil
	default:
		return "", fmt.Errorf("unknown salary strategy %q", s)
	}
}

// =============================================================================
// SETTLEMENT RESULTS
// =============================================================================

// Payment describes funds sent to an employee.
type Payment struct {
	Employee Address
	Amount   decimal.Decimal
	Periods  int64
	PaidAt   time.Time
}

// Due describes an employee with at least one unpaid period.
type Due struct {
	Employee   Address
	Periods    int64
	Owed       decimal.Decimal
	LastPayday time.Time
}

// =============================================================================
// AMOUNT HELPERS
// =============================================================================

// isPositiveInteger reports whether d is a whole number greater than zero.
func isPositiveInteger(d decimal.Decimal) bool {
	return d.IsPositive() && d.IsInteger()
}
