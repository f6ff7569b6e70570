// Package store provides in-memory implementations of the payroll
// persistence and settlement interfaces.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-ledger/payroll"
)

// =============================================================================
// MEMORY STORE - Vault, state store and event recorder (for testing/dev)
// =============================================================================

// Memory implements payroll.Vault, payroll.Depositor, payroll.StateStore and
// payroll.Notifier.
type Memory struct {
	mu       sync.RWMutex
	balances map[payroll.Address]decimal.Decimal
	rejects  map[payroll.Address]bool
	state    *payroll.State
	events   []payroll.Event
}

func NewMemory() *Memory {
	return &Memory{
		balances: make(map[payroll.Address]decimal.Decimal),
		rejects:  make(map[payroll.Address]bool),
	}
}

// -----------------------------------------------------------------------------
// Vault
// -----------------------------------------------------------------------------

func (m *Memory) Balance(_ context.Context, account payroll.Address) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balanceLocked(account), nil
}

// Deposit credits amount to account.
func (m *Memory) Deposit(_ context.Context, to payroll.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.IsInteger() {
		return payroll.ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(to)
	m.balances[k] = m.balanceLocked(k).Add(amount)
	return nil
}

// Transfer moves amount atomically: the check and both writes happen under
// one lock.
func (m *Memory) Transfer(_ context.Context, from, to payroll.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return payroll.ErrInvalidArgument
	}
	if key(from) == key(to) {
		return fmt.Errorf("%w: transfer from %s to itself", payroll.ErrInvalidArgument, from)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rejects[key(to)] {
		return payroll.ErrTransferRejected
	}
	available := m.balanceLocked(from)
	if amount.GreaterThan(available) {
		return &payroll.InsufficientFundsError{Available: available, Requested: amount}
	}
	m.balances[key(from)] = available.Sub(amount)
	m.balances[key(to)] = m.balanceLocked(to).Add(amount)
	return nil
}

// Reject makes every transfer to addr fail, as a recipient that refuses
// funds would.
func (m *Memory) Reject(addr payroll.Address, reject bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reject {
		m.rejects[key(addr)] = true
		return
	}
	delete(m.rejects, key(addr))
}

func (m *Memory) balanceLocked(account payroll.Address) decimal.Decimal {
	if b, ok := m.balances[key(account)]; ok {
		return b
	}
	return decimal.Zero
}

// -----------------------------------------------------------------------------
// State store
// -----------------------------------------------------------------------------

func (m *Memory) LoadState(_ context.Context) (*payroll.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return nil, nil
	}
	s := copyState(*m.state)
	return &s, nil
}

func (m *Memory) SaveState(_ context.Context, s payroll.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := copyState(s)
	m.state = &c
	return nil
}

func copyState(s payroll.State) payroll.State {
	employees := make([]payroll.Employee, len(s.Employees))
	copy(employees, s.Employees)
	s.Employees = employees
	return s
}

// -----------------------------------------------------------------------------
// Notifier
// -----------------------------------------------------------------------------

// Notify records ev.
func (m *Memory) Notify(_ context.Context, ev payroll.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Events returns recorded events in emission order.
func (m *Memory) Events() []payroll.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]payroll.Event, len(m.events))
	copy(result, m.events)
	return result
}

func key(a payroll.Address) payroll.Address {
	return payroll.NewAddress(string(a))
}
