/*
registry.go - The employee roster

PURPOSE:
  Owns the roster and enforces address uniqueness. Employees live in a dense
  slice; an address->index map kept in sync on every mutation makes Find
  and Exists O(1).

REMOVAL:
  Removal moves the last employee into the freed slot and shrinks the slice
  by one. Roster order is therefore not meaningful.

SALARY BASIS:
  The registry only ever sees scaled salaries. The settlement check in
  Update compares the stored salary with the scaled incoming salary, the
  same values the accountant uses to adjust the running total.
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// Registry is the roster of employees.
type Registry struct {
	employees []Employee
	index     map[Address]int
}

// NewRegistry returns an empty roster.
func NewRegistry() *Registry {
	return &Registry{index: make(map[Address]int)}
}

// Len returns the roster size.
func (r *Registry) Len() int { return len(r.employees) }

// Find returns the employee and its position, or ErrNotFound.
func (r *Registry) Find(addr Address) (Employee, int, error) {
	i, ok := r.index[NewAddress(string(addr))]
	if !ok {
		return Employee{}, -1, ErrNotFound
	}
	return r.employees[i], i, nil
}

// Exists reports whether addr is on the roster.
func (r *Registry) Exists(addr Address) bool {
	_, _, err := r.Find(addr)
	return err == nil
}

// Employees returns a copy of the roster in storage order.
func (r *Registry) Employees() []Employee {
	out := make([]Employee, len(r.employees))
	copy(out, r.employees)
	return out
}

// Add appends a new employee paid from now on. salary is already scaled.
func (r *Registry) Add(addr Address, salary decimal.Decimal, now time.Time) (Employee, error) {
	addr = NewAddress(string(addr))
	if addr.IsZero() {
		return Employee{}, invalidArgument("employee address is zero")
	}
	if !isPositiveInteger(salary) {
		return Employee{}, invalidArgument("salary must be a positive integer, got %s", salary)
	}
	if r.Exists(addr) {
		return Employee{}, ErrDuplicateEmployee
	}

	e := Employee{Address: addr, Salary: salary, LastPayday: now}
	r.index[addr] = len(r.employees)
	r.employees = append(r.employees, e)
	return e, nil
}

// Update overwrites address and salary of oldAddr in place. lastPayday is
// kept. A salary change is refused while a whole period is unpaid.
// It returns the record as it was before the update.
func (r *Registry) Update(oldAddr, newAddr Address, salary decimal.Decimal, sched Schedule, now time.Time) (Employee, error) {
	oldAddr = NewAddress(string(oldAddr))
	newAddr = NewAddress(string(newAddr))
	if oldAddr.IsZero() || newAddr.IsZero() {
		return Employee{}, invalidArgument("employee address is zero")
	}
	if !isPositiveInteger(salary) {
		return Employee{}, invalidArgument("salary must be a positive integer, got %s", salary)
	}

	prev, i, err := r.Find(oldAddr)
	if err != nil {
		return Employee{}, err
	}
	if newAddr != oldAddr && r.Exists(newAddr) {
		return Employee{}, ErrDuplicateEmployee
	}
	if !prev.Salary.Equal(salary) {
		if periods := sched.UnpaidPeriods(prev.LastPayday, now); periods >= 1 {
			return Employee{}, &UnsettledObligationError{Employee: oldAddr, Periods: periods}
		}
	}

	r.employees[i].Address = newAddr
	r.employees[i].Salary = salary
	if newAddr != oldAddr {
		delete(r.index, oldAddr)
		r.index[newAddr] = i
	}
	return prev, nil
}

// Remove deletes addr by swapping the last employee into its slot.
// It returns the removed record.
func (r *Registry) Remove(addr Address) (Employee, error) {
	removed, i, err := r.Find(addr)
	if err != nil {
		return Employee{}, err
	}

	last := len(r.employees) - 1
	if i != last {
		r.employees[i] = r.employees[last]
		r.index[r.employees[i].Address] = i
	}
	r.employees[last] = Employee{}
	r.employees = r.employees[:last]
	delete(r.index, removed.Address)
	return removed, nil
}

// markPaid advances lastPayday of addr.
func (r *Registry) markPaid(addr Address, at time.Time) error {
	_, i, err := r.Find(addr)
	if err != nil {
		return err
	}
	r.employees[i].LastPayday = at
	return nil
}

// clone returns an independent copy for rollback.
func (r *Registry) clone() *Registry {
	c := &Registry{
		employees: r.Employees(),
		index:     make(map[Address]int, len(r.index)),
	}
	for k, v := range r.index {
		c.index[k] = v
	}
	return c
}

// restoreRegistry rebuilds a roster from a persisted slice.
func restoreRegistry(employees []Employee) (*Registry, error) {
	r := NewRegistry()
	for _, e := range employees {
		addr := NewAddress(string(e.Address))
		if addr.IsZero() || !isPositiveInteger(e.Salary) {
			return nil, invalidArgument("persisted employee %q is malformed", e.Address)
		}
		if r.Exists(addr) {
			return nil, ErrDuplicateEmployee
		}
		e.Address = addr
		r.index[addr] = len(r.employees)
		r.employees = append(r.employees, e)
	}
	return r, nil
}
