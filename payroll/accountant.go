package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCOUNTANT - Outstanding salary total
// =============================================================================

// Accountant computes the sum of all current salaries. Both strategies
// receive every roster mutation, with the same scaled salaries the
// registry stored, and must agree at every observation point.
type Accountant interface {
	// Strategy names the implementation.
	Strategy() Strategy

	// Added records a new employee's salary.
	Added(salary decimal.Decimal) error

	// Updated records a salary change from old to new.
	Updated(old, new decimal.Decimal) error

	// Removed records that an employee with salary left the roster.
	Removed(salary decimal.Decimal) error

	// Total returns the outstanding salary total for roster r.
	Total(r *Registry) decimal.Decimal

	clone() Accountant
}

// NewAccountant returns the accountant for s.
func NewAccountant(s Strategy) (Accountant, error) {
	switch s {
	case StrategyRecomputed:
		return &RecomputedAccountant{}, nil
	case StrategyMaintained:
		return &MaintainedAccountant{total: decimal.Zero}, nil
	default:
		return nil, fmt.Errorf("unknown salary strategy %q", s)
	}
}

// -----------------------------------------------------------------------------
// Recomputed: O(n) per query, no state
// -----------------------------------------------------------------------------

// RecomputedAccountant walks the roster on every Total call.
type RecomputedAccountant struct{}

func (*RecomputedAccountant) Strategy() Strategy                { return StrategyRecomputed }
func (*RecomputedAccountant) Added(decimal.Decimal) error        { return nil }
func (*RecomputedAccountant) Updated(_, _ decimal.Decimal) error { return nil }
func (*RecomputedAccountant) Removed(decimal.Decimal) error      { return nil }
func (a *RecomputedAccountant) clone() Accountant                { return &RecomputedAccountant{} }

func (*RecomputedAccountant) Total(r *Registry) decimal.Decimal {
	return sumSalaries(r)
}

// -----------------------------------------------------------------------------
// Maintained: O(1) per query, running total
// -----------------------------------------------------------------------------

// MaintainedAccountant keeps a running total. A change that would drive the
// total below zero is refused with ErrInvariantViolation.
type MaintainedAccountant struct {
	total decimal.Decimal
}

func (*MaintainedAccountant) Strategy() Strategy { return StrategyMaintained }

func (a *MaintainedAccountant) Added(salary decimal.Decimal) error {
	a.total = a.total.Add(salary)
	return nil
}

func (a *MaintainedAccountant) Updated(old, new decimal.Decimal) error {
	if old.Equal(new) {
		return nil
	}
	return a.apply(new.Sub(old))
}

func (a *MaintainedAccountant) Removed(salary decimal.Decimal) error {
	return a.apply(salary.Neg())
}

func (a *MaintainedAccountant) Total(*Registry) decimal.Decimal { return a.total }

func (a *MaintainedAccountant) clone() Accountant {
	return &MaintainedAccountant{total: a.total}
}

func (a *MaintainedAccountant) apply(delta decimal.Decimal) error {
	next := a.total.Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("%w: total %s adjusted by %s", ErrInvariantViolation, a.total, delta)
	}
	a.total = next
	return nil
}

// restoreAccountant rebuilds an accountant from persisted state and checks
// the maintained total against the roster.
func restoreAccountant(s Strategy, total decimal.Decimal, r *Registry) (Accountant, error) {
	acc, err := NewAccountant(s)
	if err != nil {
		return nil, err
	}
	if m, ok := acc.(*MaintainedAccountant); ok {
		if sum := sumSalaries(r); !total.Equal(sum) {
			return nil, fmt.Errorf("%w: persisted total %s, roster sum %s", ErrInvariantViolation, total, sum)
		}
		m.total = total
	}
	return acc, nil
}

func sumSalaries(r *Registry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.employees {
		total = total.Add(e.Salary)
	}
	return total
}
