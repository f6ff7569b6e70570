/*
ledger.go - The payroll controller

PURPOSE:
  The Ledger owns the roster, the salary accountant, the pay schedule, the
  pooled funds and the access rules. Every external operation goes through
  one of its methods and runs to completion or fails with no visible change.

CRITICAL INVARIANTS:
  1. TOTAL: accountant.Total() == sum of roster salaries after every
     operation, for both strategies
  2. UNIQUE: no two roster entries share an address
  3. ATOMIC: a failed operation leaves roster, total and persisted state
     exactly as they were
  4. SETTLE LAST: the vault is called only after bookkeeping (payday
     advance, total update, removal) is final and persisted

OPERATION PIPELINE:
  1. Access guard (OwnerOnly / EmployeeOnly)
  2. Snapshot roster + accountant
  3. Mutate registry and accountant together
  4. SaveState on the StateStore, if any
  5. Vault.Transfer, if the operation moves money
  6. On failure in 3-5: restore snapshot, re-save it, return the error
  7. Notify observers

CONCURRENCY:
  A single mutex serializes operations. Nothing inside an operation
  suspends except the store and vault calls, which run under the lock.

SEE ALSO:
  - registry.go, accountant.go, schedule.go, funds.go, access.go
  - api/handlers.go: HTTP surface over these methods
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultBaseUnit scales whole salary units to base units (10^18).
var DefaultBaseUnit = decimal.New(1, 18)

// DefaultAccount is the vault account holding the pooled balance.
const DefaultAccount Address = "payroll-ledger"

// =============================================================================
// OPTIONS
// =============================================================================

type options struct {
	strategy Strategy
	baseUnit decimal.Decimal
	period   time.Duration
	account  Address
	clock    Clock
	store    StateStore
	notifier Notifier
	logger   *zap.Logger
}

// Option configures a Ledger.
type Option func(*options)

// WithStrategy selects the accountant. Defaults to StrategyMaintained.
func WithStrategy(s Strategy) Option { return func(o *options) { o.strategy = s } }

// WithBaseUnit sets the salary scale. Defaults to DefaultBaseUnit.
func WithBaseUnit(u decimal.Decimal) Option { return func(o *options) { o.baseUnit = u } }

// WithPayPeriod sets the pay period. Defaults to DefaultPayPeriod.
func WithPayPeriod(d time.Duration) Option { return func(o *options) { o.period = d } }

// WithAccount sets the vault account holding the pooled balance.
func WithAccount(a Address) Option { return func(o *options) { o.account = a } }

// WithClock sets the time source. Defaults to SystemClock.
func WithClock(c Clock) Option { return func(o *options) { o.clock = c } }

// WithStateStore persists ledger state and restores it in New.
func WithStateStore(s StateStore) Option { return func(o *options) { o.store = s } }

// WithNotifier receives an Event after each completed operation.
func WithNotifier(n Notifier) Option { return func(o *options) { o.notifier = n } }

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is the single controller over all payroll state.
type Ledger struct {
	mu sync.Mutex

	access     AccessControl
	registry   *Registry
	accountant Accountant
	schedule   Schedule
	funds      Funds
	baseUnit   decimal.Decimal

	clock    Clock
	store    StateStore
	notifier Notifier
	logger   *zap.Logger
}

// New creates a ledger owned by owner, settling through vault. When a
// StateStore holds earlier state it is restored: the owner must match and
// a maintained total must equal the roster sum.
func New(ctx context.Context, owner Address, vault Vault, opts ...Option) (*Ledger, error) {
	o := options{
		strategy: StrategyMaintained,
		baseUnit: DefaultBaseUnit,
		period:   DefaultPayPeriod,
		account:  DefaultAccount,
		clock:    SystemClock{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if owner.IsZero() {
		return nil, invalidArgument("owner address is zero")
	}
	if vault == nil {
		return nil, invalidArgument("vault is required")
	}
	if !isPositiveInteger(o.baseUnit) {
		return nil, invalidArgument("base unit must be a positive integer, got %s", o.baseUnit)
	}
	if o.account.IsZero() {
		return nil, invalidArgument("ledger account address is zero")
	}
	if NewAddress(string(o.account)) == NewAddress(string(owner)) {
		return nil, invalidArgument("ledger account %q must differ from the owner", o.account)
	}

	acc, err := NewAccountant(o.strategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	l := &Ledger{
		access:     NewAccessControl(owner),
		registry:   NewRegistry(),
		accountant: acc,
		schedule:   NewSchedule(o.period),
		funds:      NewFunds(vault, NewAddress(string(o.account))),
		baseUnit:   o.baseUnit,
		clock:      o.clock,
		store:      o.store,
		notifier:   o.notifier,
		logger:     o.logger,
	}

	if l.store != nil {
		if err := l.load(ctx); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Ledger) load(ctx context.Context) error {
	st, err := l.store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ledger state: %w", err)
	}
	if st == nil {
		return nil
	}
	if NewAddress(string(st.Owner)) != l.access.Owner() {
		return fmt.Errorf("%w: stored %q, configured %q", ErrOwnerMismatch, st.Owner, l.access.Owner())
	}

	reg, err := restoreRegistry(st.Employees)
	if err != nil {
		return fmt.Errorf("failed to restore roster: %w", err)
	}

	total := st.Total
	if st.Strategy != l.accountant.Strategy() {
		// Switching strategy: seed the running total from the roster.
		total = sumSalaries(reg)
	}
	acc, err := restoreAccountant(l.accountant.Strategy(), total, reg)
	if err != nil {
		return err
	}

	l.registry = reg
	l.accountant = acc
	l.logger.Info("ledger state restored",
		zap.Int("employees", reg.Len()),
		zap.String("strategy", string(acc.Strategy())),
		zap.Stringer("total", acc.Total(reg)))
	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

func (l *Ledger) Owner() Address            { return l.access.Owner() }
func (l *Ledger) Account() Address          { return l.funds.Account() }
func (l *Ledger) BaseUnit() decimal.Decimal { return l.baseUnit }
func (l *Ledger) Schedule() Schedule        { return l.schedule }

func (l *Ledger) Strategy() Strategy {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accountant.Strategy()
}

// NumberOfEmployee returns the roster size.
func (l *Ledger) NumberOfEmployee() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.Len()
}

// Employee returns the roster entry for addr.
func (l *Ledger) Employee(addr Address) (Employee, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, _, err := l.registry.Find(addr)
	return e, err
}

// Employees returns a copy of the roster.
func (l *Ledger) Employees() []Employee {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.Employees()
}

// Roster returns a copy of the roster and its salary total, read under one
// lock so both describe the same state.
func (l *Ledger) Roster() ([]Employee, decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.Employees(), l.accountant.Total(l.registry)
}

// Balance returns the pooled balance. Anyone may read it; AddFund is the
// owner's observation that also records a fund event.
func (l *Ledger) Balance(ctx context.Context) (decimal.Decimal, error) {
	b, err := l.funds.Balance(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	return b, nil
}

// TotalSalary returns the outstanding salary total per period.
func (l *Ledger) TotalSalary() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accountant.Total(l.registry)
}

// DuePayments lists employees with at least one unpaid period.
func (l *Ledger) DuePayments() []Due {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	var due []Due
	for _, e := range l.registry.employees {
		owed, periods := l.schedule.Owed(e, now)
		if periods < 1 {
			continue
		}
		due = append(due, Due{Employee: e.Address, Periods: periods, Owed: owed, LastPayday: e.LastPayday})
	}
	return due
}

// =============================================================================
// FUND OPERATIONS
// =============================================================================

// AddFund reports the current pooled balance. Deposits reach the vault
// through its own deposit path; this call moves nothing.
func (l *Ledger) AddFund(ctx context.Context, caller Address) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.OwnerOnly(caller); err != nil {
		return decimal.Zero, err
	}
	balance, err := l.funds.Balance(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}

	ev := newEvent(EventFundAdded, l.clock.Now())
	ev.Employee = l.access.Owner()
	ev.Balance = balance
	l.notify(ctx, ev)
	return balance, nil
}

// Withdraw transfers amount base units from the pool to the owner.
func (l *Ledger) Withdraw(ctx context.Context, caller Address, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.OwnerOnly(caller); err != nil {
		return err
	}
	balance, err := l.funds.Balance(ctx)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}
	if err := CheckWithdrawal(balance, amount); err != nil {
		return err
	}

	if err := l.settle(ctx, l.snapshot(), transfer{to: l.access.Owner(), amount: amount}); err != nil {
		return err
	}

	ev := newEvent(EventWithdrawal, l.clock.Now())
	ev.Employee = l.access.Owner()
	ev.Amount = amount
	ev.Balance = l.balanceOrZero(ctx)
	l.notify(ctx, ev)
	l.logger.Info("withdrawal made", zap.Stringer("amount", amount))
	return nil
}

// CalculateRunway returns balance / outstanding total in whole periods.
func (l *Ledger) CalculateRunway(ctx context.Context) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := l.accountant.Total(l.registry)
	if !total.IsPositive() {
		return decimal.Zero, ErrNoActiveObligations
	}
	balance, err := l.funds.Balance(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	return Runway(balance, total)
}

// HasEnoughFund reports whether the balance covers at least one period.
// An empty roster is undefined, not sufficient: it returns
// ErrNoActiveObligations.
func (l *Ledger) HasEnoughFund(ctx context.Context) (bool, error) {
	runway, err := l.CalculateRunway(ctx)
	if err != nil {
		return false, err
	}
	return runway.IsPositive(), nil
}

// =============================================================================
// EMPLOYEE OPERATIONS
// =============================================================================

// GetPaid pays the caller salary × elapsed whole periods and advances its
// payday to now.
func (l *Ledger) GetPaid(ctx context.Context, caller Address) (Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.EmployeeOnly(caller, l.registry); err != nil {
		return Payment{}, err
	}
	now := l.clock.Now()

	// The amount comes from the record as it was before the payday advance.
	emp, _, err := l.registry.Find(caller)
	if err != nil {
		return Payment{}, err
	}
	amount, periods, err := l.schedule.AuthorizePayment(emp, now)
	if err != nil {
		return Payment{}, err
	}

	snap := l.snapshot()
	if err := l.registry.markPaid(emp.Address, now); err != nil {
		return Payment{}, err
	}
	if err := l.persist(ctx, snap); err != nil {
		return Payment{}, err
	}
	if err := l.settle(ctx, snap, transfer{to: emp.Address, amount: amount}); err != nil {
		return Payment{}, err
	}

	payment := Payment{Employee: emp.Address, Amount: amount, Periods: periods, PaidAt: now}
	ev := newEvent(EventPaymentMade, now)
	ev.Employee = emp.Address
	ev.Salary = emp.Salary
	ev.Amount = amount
	ev.Balance = l.balanceOrZero(ctx)
	l.notify(ctx, ev)
	l.logger.Info("payment made",
		zap.String("employee", emp.Address.String()),
		zap.Int64("periods", periods),
		zap.Stringer("amount", amount))
	return payment, nil
}

// =============================================================================
// OWNER ROSTER OPERATIONS
// =============================================================================

// AddEmployee puts addr on the roster with salary whole units per period.
func (l *Ledger) AddEmployee(ctx context.Context, caller, addr Address, salary decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.OwnerOnly(caller); err != nil {
		return err
	}
	scaled, err := l.scale(salary)
	if err != nil {
		return err
	}
	if err := l.checkPayee(addr); err != nil {
		return err
	}
	now := l.clock.Now()

	snap := l.snapshot()
	emp, err := l.registry.Add(addr, scaled, now)
	if err != nil {
		return err
	}
	if err := l.accountant.Added(emp.Salary); err != nil {
		l.restore(snap)
		return err
	}
	if err := l.persist(ctx, snap); err != nil {
		return err
	}

	ev := newEvent(EventEmployeeAdded, now)
	ev.Employee = emp.Address
	ev.Salary = emp.Salary
	l.notify(ctx, ev)
	l.logger.Info("employee added",
		zap.String("employee", emp.Address.String()),
		zap.Stringer("salary", emp.Salary))
	return nil
}

// UpdateEmployee changes the address and salary of addr. A salary change
// is refused while the employee has a whole unpaid period.
func (l *Ledger) UpdateEmployee(ctx context.Context, caller, addr, newAddr Address, salary decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.OwnerOnly(caller); err != nil {
		return err
	}
	scaled, err := l.scale(salary)
	if err != nil {
		return err
	}
	if err := l.checkPayee(newAddr); err != nil {
		return err
	}
	now := l.clock.Now()

	snap := l.snapshot()
	prev, err := l.registry.Update(addr, newAddr, scaled, l.schedule, now)
	if err != nil {
		return err
	}
	// Same basis as the registry check: stored salary vs scaled salary.
	if err := l.accountant.Updated(prev.Salary, scaled); err != nil {
		l.restore(snap)
		return err
	}
	if err := l.persist(ctx, snap); err != nil {
		return err
	}

	ev := newEvent(EventEmployeeUpdated, now)
	ev.Employee = prev.Address
	if a := NewAddress(string(newAddr)); a != prev.Address {
		ev.NewAddress = a
	}
	ev.Salary = scaled
	l.notify(ctx, ev)
	l.logger.Info("employee updated",
		zap.String("employee", prev.Address.String()),
		zap.String("new_address", NewAddress(string(newAddr)).String()),
		zap.Stringer("salary", scaled))
	return nil
}

// RemoveEmployee settles what addr is owed, then deletes it from the
// roster. It returns the settlement, whose Amount may be zero.
func (l *Ledger) RemoveEmployee(ctx context.Context, caller, addr Address) (Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.OwnerOnly(caller); err != nil {
		return Payment{}, err
	}
	emp, _, err := l.registry.Find(addr)
	if err != nil {
		return Payment{}, err
	}
	now := l.clock.Now()
	owed, periods := l.schedule.Owed(emp, now)

	snap := l.snapshot()
	if _, err := l.registry.Remove(emp.Address); err != nil {
		return Payment{}, err
	}
	if err := l.accountant.Removed(emp.Salary); err != nil {
		l.restore(snap)
		return Payment{}, err
	}
	if err := l.persist(ctx, snap); err != nil {
		return Payment{}, err
	}
	if err := l.settle(ctx, snap, transfer{to: emp.Address, amount: owed}); err != nil {
		return Payment{}, err
	}

	ev := newEvent(EventEmployeeRemoved, now)
	ev.Employee = emp.Address
	ev.Salary = emp.Salary
	ev.Amount = owed
	ev.Balance = l.balanceOrZero(ctx)
	l.notify(ctx, ev)
	l.logger.Info("employee removed",
		zap.String("employee", emp.Address.String()),
		zap.Int64("periods", periods),
		zap.Stringer("settled", owed))
	return Payment{Employee: emp.Address, Amount: owed, Periods: periods, PaidAt: now}, nil
}

// =============================================================================
// ATOMICITY
// =============================================================================

type snapshot struct {
	registry   *Registry
	accountant Accountant
}

func (l *Ledger) snapshot() snapshot {
	return snapshot{registry: l.registry.clone(), accountant: l.accountant.clone()}
}

func (l *Ledger) restore(s snapshot) {
	l.registry = s.registry
	l.accountant = s.accountant
}

func (l *Ledger) state() State {
	st := State{
		Owner:     l.access.Owner(),
		Account:   l.funds.Account(),
		Strategy:  l.accountant.Strategy(),
		Total:     decimal.Zero,
		Employees: l.registry.Employees(),
	}
	if l.accountant.Strategy() == StrategyMaintained {
		st.Total = l.accountant.Total(l.registry)
	}
	return st
}

// persist saves the mutated state, restoring snap on failure.
func (l *Ledger) persist(ctx context.Context, snap snapshot) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.SaveState(ctx, l.state()); err != nil {
		l.restore(snap)
		l.logger.Warn("rolled back: state not persisted", zap.Error(err))
		return fmt.Errorf("failed to persist ledger state: %w", err)
	}
	return nil
}

// settle runs the transfer. On failure it restores snap in memory and in
// the store.
func (l *Ledger) settle(ctx context.Context, snap snapshot, t transfer) error {
	if !t.amount.IsPositive() {
		return nil
	}
	err := l.funds.vault.Transfer(ctx, l.funds.Account(), t.to, t.amount)
	if err == nil {
		return nil
	}

	l.restore(snap)
	if l.store != nil {
		if serr := l.store.SaveState(ctx, l.state()); serr != nil {
			l.logger.Error("failed to re-persist state after settlement failure",
				zap.Error(serr), zap.NamedError("settlement_error", err))
			err = errors.Join(err, serr)
		}
	}
	l.logger.Warn("rolled back: settlement failed",
		zap.String("to", t.to.String()),
		zap.Stringer("amount", t.amount),
		zap.Error(err))
	return fmt.Errorf("settlement to %s failed: %w", t.to, err)
}

func (l *Ledger) scale(salary decimal.Decimal) (decimal.Decimal, error) {
	if !isPositiveInteger(salary) {
		return decimal.Zero, invalidArgument("salary must be a positive integer, got %s", salary)
	}
	return salary.Mul(l.baseUnit), nil
}

// checkPayee refuses the pool account as an employee address: a transfer
// from the pool to itself moves nothing.
func (l *Ledger) checkPayee(addr Address) error {
	if NewAddress(string(addr)) == l.funds.Account() {
		return invalidArgument("employee address %q is the ledger account", addr)
	}
	return nil
}

func (l *Ledger) balanceOrZero(ctx context.Context) decimal.Decimal {
	b, err := l.funds.Balance(ctx)
	if err != nil {
		l.logger.Warn("failed to read balance for notification", zap.Error(err))
		return decimal.Zero
	}
	return b
}

func (l *Ledger) notify(ctx context.Context, ev Event) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Notify(ctx, ev); err != nil {
		l.logger.Warn("notification failed",
			zap.String("type", string(ev.Type)),
			zap.Error(err))
	}
}
