/*
Package sqlite provides a SQLite-backed implementation of the payroll
storage and settlement interfaces.

PURPOSE:
  Implements payroll.Vault, payroll.Depositor, payroll.StateStore and
  payroll.Notifier on one SQLite database, so a single file holds the
  roster, the account balances and the event journal.

INTERFACES IMPLEMENTED:
  payroll.Vault:      Account balances and atomic transfers
  payroll.Depositor:  External deposits into an account
  payroll.StateStore: Roster, owner and maintained total
  payroll.Notifier:   Append-only event journal

KEY TABLES:
  accounts:      One row per address, balance as decimal text
  ledger_state:  Single row (id = 1): owner, account, strategy, total
  employees:     Roster, ordered by position
  events:        Notifications in emission order

ATOMICITY:
  Transfer reads the source balance and writes both rows in one database
  transaction. SaveState replaces the roster in one transaction.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single open connection, which
  also keeps ":memory:" databases consistent across calls.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger, err := payroll.New(ctx, owner, store,
      payroll.WithStateStore(store), payroll.WithNotifier(store))

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - payroll/funds.go: Vault contract
  - payroll/store.go: StateStore contract
  - payroll/store/memory.go: In-memory implementation for testing
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
	"github.com/warp/payroll-ledger/payroll"
)

// Store implements the payroll storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Vault accounts
	CREATE TABLE IF NOT EXISTS accounts (
		address TEXT PRIMARY KEY,
		balance TEXT NOT NULL,
		accepts_funds BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TEXT NOT NULL
	);

	-- Ledger header (single row)
	CREATE TABLE IF NOT EXISTS ledger_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		owner TEXT NOT NULL,
		account TEXT NOT NULL,
		strategy TEXT NOT NULL,
		total TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Roster
	CREATE TABLE IF NOT EXISTS employees (
		address TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		salary TEXT NOT NULL,
		last_payday TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_position
		ON employees(position);

	-- Event journal (append-only)
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		employee TEXT,
		new_address TEXT,
		salary TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance TEXT NOT NULL,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_employee
		ON events(employee);
	CREATE INDEX IF NOT EXISTS idx_events_type
		ON events(type);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// VAULT (payroll.Vault, payroll.Depositor)
// =============================================================================

// Balance returns the balance of account, zero for unknown accounts.
func (s *Store) Balance(ctx context.Context, account payroll.Address) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, _, err := s.account(ctx, s.db, account)
	return b, err
}

// Deposit credits amount to account.
func (s *Store) Deposit(ctx context.Context, to payroll.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.IsInteger() {
		return fmt.Errorf("%w: deposit must be a positive integer, got %s", payroll.ErrInvalidArgument, amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	current, _, err := s.account(ctx, sqlTx, to)
	if err != nil {
		return err
	}
	if err := s.setBalance(ctx, sqlTx, to, current.Add(amount)); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Transfer moves amount from one account to another in a single transaction.
func (s *Store) Transfer(ctx context.Context, from, to payroll.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: transfer must be positive, got %s", payroll.ErrInvalidArgument, amount)
	}
	if normalize(from) == normalize(to) {
		return fmt.Errorf("%w: transfer from %s to itself", payroll.ErrInvalidArgument, from)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	available, _, err := s.account(ctx, sqlTx, from)
	if err != nil {
		return err
	}
	received, accepts, err := s.account(ctx, sqlTx, to)
	if err != nil {
		return err
	}
	if !accepts {
		return payroll.ErrTransferRejected
	}
	if amount.GreaterThan(available) {
		return &payroll.InsufficientFundsError{Available: available, Requested: amount}
	}
	if err := s.setBalance(ctx, sqlTx, from, available.Sub(amount)); err != nil {
		return err
	}
	if err := s.setBalance(ctx, sqlTx, to, received.Add(amount)); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// SetAcceptsFunds controls whether transfers to addr are accepted.
func (s *Store) SetAcceptsFunds(ctx context.Context, addr payroll.Address, accepts bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (address, balance, accepts_funds, updated_at)
		VALUES (?, '0', ?, ?)
		ON CONFLICT(address) DO UPDATE SET accepts_funds = excluded.accepts_funds, updated_at = excluded.updated_at
	`, normalize(addr), accepts, now())
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

func (s *Store) account(ctx context.Context, q execQuerier, addr payroll.Address) (decimal.Decimal, bool, error) {
	var (
		balance string
		accepts bool
	)
	err := q.QueryRowContext(ctx,
		"SELECT balance, accepts_funds FROM accounts WHERE address = ?",
		normalize(addr),
	).Scan(&balance, &accepts)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, true, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to read account: %w", err)
	}

	d, err := decimal.NewFromString(balance)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("corrupt balance for %s: %w", addr, err)
	}
	return d, accepts, nil
}

func (s *Store) setBalance(ctx context.Context, q execQuerier, addr payroll.Address, balance decimal.Decimal) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO accounts (address, balance, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at
	`, normalize(addr), balance.String(), now())
	if err != nil {
		return fmt.Errorf("failed to write balance: %w", err)
	}
	return nil
}

// =============================================================================
// STATE STORE (payroll.StateStore)
// =============================================================================

// LoadState returns the saved ledger, or nil if none was saved.
func (s *Store) LoadState(ctx context.Context) (*payroll.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		st       payroll.State
		owner    string
		account  string
		strategy string
		total    string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT owner, account, strategy, total FROM ledger_state WHERE id = 1",
	).Scan(&owner, &account, &strategy, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger state: %w", err)
	}

	st.Owner = payroll.Address(owner)
	st.Account = payroll.Address(account)
	st.Strategy = payroll.Strategy(strategy)
	if st.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("corrupt ledger total: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT address, salary, last_payday FROM employees ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		st.Employees = append(st.Employees, e)
	}
	return &st, rows.Err()
}

// SaveState replaces the saved ledger in one transaction.
func (s *Store) SaveState(ctx context.Context, st payroll.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO ledger_state (id, owner, account, strategy, total, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner = excluded.owner,
			account = excluded.account,
			strategy = excluded.strategy,
			total = excluded.total,
			updated_at = excluded.updated_at
	`, normalize(st.Owner), normalize(st.Account), string(st.Strategy), st.Total.String(), now())
	if err != nil {
		return fmt.Errorf("failed to save ledger state: %w", err)
	}

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM employees"); err != nil {
		return fmt.Errorf("failed to clear employees: %w", err)
	}
	for i, e := range st.Employees {
		_, err := sqlTx.ExecContext(ctx,
			"INSERT INTO employees (address, position, salary, last_payday) VALUES (?, ?, ?, ?)",
			normalize(e.Address), i, e.Salary.String(), e.LastPayday.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to save employee %s: %w", e.Address, err)
		}
	}

	return sqlTx.Commit()
}

func scanEmployee(rows *sql.Rows) (payroll.Employee, error) {
	var (
		e          payroll.Employee
		address    string
		salary     string
		lastPayday string
	)
	if err := rows.Scan(&address, &salary, &lastPayday); err != nil {
		return e, fmt.Errorf("failed to scan employee: %w", err)
	}

	e.Address = payroll.Address(address)
	var err error
	if e.Salary, err = decimal.NewFromString(salary); err != nil {
		return e, fmt.Errorf("corrupt salary for %s: %w", address, err)
	}
	if e.LastPayday, err = time.Parse(time.RFC3339Nano, lastPayday); err != nil {
		return e, fmt.Errorf("corrupt payday for %s: %w", address, err)
	}
	return e, nil
}

// =============================================================================
// EVENT JOURNAL (payroll.Notifier)
// =============================================================================

// Notify appends ev to the journal.
func (s *Store) Notify(ctx context.Context, ev payroll.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, type, employee, new_address, salary, amount, balance, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ID,
		string(ev.Type),
		nullString(string(ev.Employee)),
		nullString(string(ev.NewAddress)),
		ev.Salary.String(),
		ev.Amount.String(),
		ev.Balance.String(),
		ev.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// EventFilter narrows ListEvents. Zero values match everything.
type EventFilter struct {
	Employee payroll.Address
	Types    []payroll.EventType
	Limit    int
}

// ListEvents returns journal entries in emission order.
func (s *Store) ListEvents(ctx context.Context, filter EventFilter) ([]payroll.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, type, employee, new_address, salary, amount, balance, at
		FROM events
		WHERE 1 = 1`
	var args []any
	if filter.Employee != "" {
		query += " AND (employee = ? OR new_address = ?)"
		a := normalize(filter.Employee)
		args = append(args, a, a)
	}
	if len(filter.Types) > 0 {
		query += " AND type IN (?" + strings.Repeat(",?", len(filter.Types)-1) + ")"
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}
	query += " ORDER BY seq ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []payroll.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (payroll.Event, error) {
	var (
		ev         payroll.Event
		typ        string
		employee   sql.NullString
		newAddress sql.NullString
		salary     string
		amount     string
		balance    string
		at         string
	)
	if err := rows.Scan(&ev.ID, &typ, &employee, &newAddress, &salary, &amount, &balance, &at); err != nil {
		return ev, fmt.Errorf("failed to scan event: %w", err)
	}

	ev.Type = payroll.EventType(typ)
	ev.Employee = payroll.Address(employee.String)
	ev.NewAddress = payroll.Address(newAddress.String)
	var err error
	if ev.Salary, err = parseDecimal("salary", salary); err != nil {
		return ev, fmt.Errorf("corrupt event %s: %w", ev.ID, err)
	}
	if ev.Amount, err = parseDecimal("amount", amount); err != nil {
		return ev, fmt.Errorf("corrupt event %s: %w", ev.ID, err)
	}
	if ev.Balance, err = parseDecimal("balance", balance); err != nil {
		return ev, fmt.Errorf("corrupt event %s: %w", ev.ID, err)
	}
	if ev.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
		return ev, fmt.Errorf("corrupt event %s: timestamp: %w", ev.ID, err)
	}
	return ev, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func normalize(a payroll.Address) string {
	return string(payroll.NewAddress(string(a)))
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
