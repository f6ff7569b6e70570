package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-ledger/payroll"
	"github.com/warp/payroll-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const owner payroll.Address = "0xowner"

var t0 = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

func d(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func balanceOf(t *testing.T, s *sqlite.Store, a payroll.Address) decimal.Decimal {
	t.Helper()
	b, err := s.Balance(context.Background(), a)
	require.NoError(t, err)
	return b
}

// =============================================================================
// VAULT
// =============================================================================

func TestStore_DepositAndTransfer(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	assert.True(t, balanceOf(t, s, "0xa").IsZero(), "unknown account is empty")

	require.NoError(t, s.Deposit(ctx, "0xA", d(1000)))
	require.NoError(t, s.Deposit(ctx, "0xa", d(500)))
	assert.True(t, balanceOf(t, s, "0xa").Equal(d(1500)))

	require.NoError(t, s.Transfer(ctx, "0xa", "0xb", d(600)))
	assert.True(t, balanceOf(t, s, "0xa").Equal(d(900)))
	assert.True(t, balanceOf(t, s, "0xb").Equal(d(600)))
}

func TestStore_Transfer_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Deposit(ctx, "0xa", d(100)))

	err := s.Transfer(ctx, "0xa", "0xb", d(101))
	var ie *payroll.InsufficientFundsError
	require.ErrorAs(t, err, &ie)
	assert.True(t, ie.Available.Equal(d(100)))

	assert.True(t, balanceOf(t, s, "0xa").Equal(d(100)))
	assert.True(t, balanceOf(t, s, "0xb").IsZero())
}

func TestStore_Transfer_RejectingRecipient(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Deposit(ctx, "0xa", d(100)))
	require.NoError(t, s.SetAcceptsFunds(ctx, "0xb", false))

	err := s.Transfer(ctx, "0xa", "0xb", d(10))
	assert.ErrorIs(t, err, payroll.ErrTransferRejected)
	assert.True(t, balanceOf(t, s, "0xa").Equal(d(100)))

	require.NoError(t, s.SetAcceptsFunds(ctx, "0xb", true))
	require.NoError(t, s.Transfer(ctx, "0xa", "0xb", d(10)))
	assert.True(t, balanceOf(t, s, "0xb").Equal(d(10)))
}

func TestStore_Transfer_RejectsSelfTransfer(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Deposit(ctx, payroll.DefaultAccount, d(100)))

	err := s.Transfer(ctx, payroll.DefaultAccount, "PAYROLL-LEDGER", d(10))
	assert.ErrorIs(t, err, payroll.ErrInvalidArgument)
	assert.True(t, balanceOf(t, s, payroll.DefaultAccount).Equal(d(100)))
}

func TestStore_Deposit_RejectsNonPositive(t *testing.T) {
	s := newTestStore(t)
	assert.ErrorIs(t, s.Deposit(context.Background(), "0xa", d(0)), payroll.ErrInvalidArgument)
	assert.ErrorIs(t, s.Deposit(context.Background(), "0xa", decimal.RequireFromString("0.5")), payroll.ErrInvalidArgument)
}

func TestStore_BalancesBeyondInt64(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	huge := decimal.RequireFromString("123456789012345678901234567890")

	require.NoError(t, s.Deposit(ctx, "0xa", huge))
	require.NoError(t, s.Deposit(ctx, "0xa", huge))
	assert.True(t, balanceOf(t, s, "0xa").Equal(huge.Add(huge)))
}

// =============================================================================
// STATE STORE
// =============================================================================

func TestStore_StateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	st, err := s.LoadState(ctx)
	require.NoError(t, err)
	assert.Nil(t, st)

	want := payroll.State{
		Owner:    owner,
		Account:  payroll.DefaultAccount,
		Strategy: payroll.StrategyMaintained,
		Total:    d(3000),
		Employees: []payroll.Employee{
			{Address: "0xb", Salary: d(2000), LastPayday: t0.Add(time.Hour)},
			{Address: "0xa", Salary: d(1000), LastPayday: t0},
		},
	}
	require.NoError(t, s.SaveState(ctx, want))

	got, err := s.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Owner, got.Owner)
	assert.Equal(t, want.Strategy, got.Strategy)
	assert.True(t, want.Total.Equal(got.Total))
	require.Len(t, got.Employees, 2)
	assert.Equal(t, payroll.Address("0xb"), got.Employees[0].Address, "position order is kept")
	assert.True(t, got.Employees[0].LastPayday.Equal(t0.Add(time.Hour)))

	// Saving a smaller roster replaces the old one
	want.Employees = want.Employees[1:]
	want.Total = d(1000)
	require.NoError(t, s.SaveState(ctx, want))
	got, err = s.LoadState(ctx)
	require.NoError(t, err)
	require.Len(t, got.Employees, 1)
	assert.Equal(t, payroll.Address("0xa"), got.Employees[0].Address)
}

// =============================================================================
// EVENT JOURNAL
// =============================================================================

func TestStore_EventJournal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	events := []payroll.Event{
		{ID: "e1", Type: payroll.EventEmployeeAdded, Employee: "0xa", Salary: d(10), Amount: d(0), Balance: d(0), At: t0},
		{ID: "e2", Type: payroll.EventEmployeeUpdated, Employee: "0xa", NewAddress: "0xb", Salary: d(10), Amount: d(0), Balance: d(0), At: t0},
		{ID: "e3", Type: payroll.EventFundAdded, Employee: owner, Salary: d(0), Amount: d(0), Balance: d(99), At: t0},
	}
	for _, ev := range events {
		require.NoError(t, s.Notify(ctx, ev))
	}

	all, err := s.ListEvents(ctx, sqlite.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "e1", all[0].ID)
	assert.Equal(t, payroll.Address("0xb"), all[1].NewAddress)
	assert.True(t, all[2].Balance.Equal(d(99)))
	assert.True(t, all[0].At.Equal(t0))

	byEmployee, err := s.ListEvents(ctx, sqlite.EventFilter{Employee: "0xB"})
	require.NoError(t, err)
	require.Len(t, byEmployee, 1)
	assert.Equal(t, "e2", byEmployee[0].ID)

	byType, err := s.ListEvents(ctx, sqlite.EventFilter{Types: []payroll.EventType{payroll.EventFundAdded, payroll.EventEmployeeAdded}})
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	limited, err := s.ListEvents(ctx, sqlite.EventFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	// Duplicate IDs are refused
	assert.Error(t, s.Notify(ctx, events[0]))
}

func TestStore_ListEvents_ReportsCorruptRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "payroll.db")
	s, err := sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()

	ev := payroll.Event{ID: "e1", Type: payroll.EventPaymentMade, Employee: "0xa", Salary: d(10), Amount: d(10), Balance: d(90), At: t0}
	require.NoError(t, s.Notify(ctx, ev))

	corrupt := func(t *testing.T, column, value string) {
		t.Helper()
		db, err := sql.Open("sqlite3", path)
		require.NoError(t, err)
		defer db.Close()
		_, err = db.ExecContext(ctx, "UPDATE events SET "+column+" = ? WHERE id = 'e1'", value)
		require.NoError(t, err)
	}

	tests := []struct {
		column string
		value  string
	}{
		{"amount", "ten"},
		{"balance", ""},
		{"at", "yesterday"},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			corrupt(t, tt.column, tt.value)

			_, err := s.ListEvents(ctx, sqlite.EventFilter{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "corrupt event e1")

			// restore the row for the next case
			corrupt(t, "amount", "10")
			corrupt(t, "balance", "90")
			corrupt(t, "at", t0.Format(time.RFC3339Nano))
			_, err = s.ListEvents(ctx, sqlite.EventFilter{})
			require.NoError(t, err)
		})
	}
}

// =============================================================================
// LEDGER INTEGRATION
// =============================================================================

func TestStore_LedgerSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "payroll.db")
	clock := payroll.NewManualClock(t0)

	open := func() (*payroll.Ledger, *sqlite.Store) {
		s, err := sqlite.New(path)
		require.NoError(t, err)
		l, err := payroll.New(ctx, owner, s,
			payroll.WithBaseUnit(decimal.NewFromInt(1)),
			payroll.WithClock(clock),
			payroll.WithStateStore(s),
			payroll.WithNotifier(s))
		require.NoError(t, err)
		return l, s
	}

	// GIVEN: a funded ledger with two employees, one paid
	l, s := open()
	require.NoError(t, s.Deposit(ctx, payroll.DefaultAccount, d(10000)))
	require.NoError(t, l.AddEmployee(ctx, owner, "0xa", d(1000)))
	require.NoError(t, l.AddEmployee(ctx, owner, "0xb", d(2000)))
	clock.Advance(payroll.DefaultPayPeriod)
	_, err := l.GetPaid(ctx, "0xa")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// WHEN: reopening
	l, s = open()
	defer s.Close()

	// THEN: roster, paydays, total and balances are intact
	assert.Equal(t, 2, l.NumberOfEmployee())
	assert.True(t, l.TotalSalary().Equal(d(3000)))
	a, err := l.Employee("0xa")
	require.NoError(t, err)
	assert.True(t, a.LastPayday.Equal(t0.Add(payroll.DefaultPayPeriod)))

	runway, err := l.CalculateRunway(ctx)
	require.NoError(t, err)
	assert.True(t, runway.Equal(d(3)), "9000 / 3000, got %s", runway)

	_, err = l.GetPaid(ctx, "0xa")
	assert.ErrorIs(t, err, payroll.ErrTooEarly)

	journal, err := s.ListEvents(ctx, sqlite.EventFilter{Types: []payroll.EventType{payroll.EventPaymentMade}})
	require.NoError(t, err)
	require.Len(t, journal, 1)
	assert.True(t, journal[0].Amount.Equal(d(1000)))
}

func TestStore_LedgerRollsBackRejectedRemoval(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	clock := payroll.NewManualClock(t0)
	l, err := payroll.New(ctx, owner, s,
		payroll.WithBaseUnit(decimal.NewFromInt(1)),
		payroll.WithClock(clock),
		payroll.WithStateStore(s))
	require.NoError(t, err)

	require.NoError(t, s.Deposit(ctx, payroll.DefaultAccount, d(5000)))
	require.NoError(t, l.AddEmployee(ctx, owner, "0xa", d(1000)))
	require.NoError(t, s.SetAcceptsFunds(ctx, "0xa", false))
	clock.Advance(payroll.DefaultPayPeriod)

	_, err = l.RemoveEmployee(ctx, owner, "0xa")
	assert.ErrorIs(t, err, payroll.ErrTransferRejected)
	assert.Equal(t, 1, l.NumberOfEmployee())

	// The persisted roster was restored too
	st, err := s.LoadState(ctx)
	require.NoError(t, err)
	require.Len(t, st.Employees, 1)
	assert.True(t, st.Total.Equal(d(1000)))
}
