package payroll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-ledger/payroll"
)

func TestSchedule_UnpaidPeriods(t *testing.T) {
	s := payroll.NewSchedule(0)
	day := 24 * time.Hour

	tests := []struct {
		name    string
		elapsed time.Duration
		want    int64
	}{
		{"same instant", 0, 0},
		{"one day", day, 0},
		{"just under a period", 30*day - time.Second, 0},
		{"exactly one period", 30 * day, 1},
		{"two and a half periods", 75 * day, 2},
		{"clock behind payday", -day, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.UnpaidPeriods(t0, t0.Add(tt.elapsed)))
		})
	}
}

func TestSchedule_NonPositivePeriodFallsBackToDefault(t *testing.T) {
	assert.Equal(t, payroll.DefaultPayPeriod, payroll.NewSchedule(-time.Hour).Period)
	assert.Equal(t, time.Hour, payroll.NewSchedule(time.Hour).Period)
}

func TestSchedule_AuthorizePayment(t *testing.T) {
	s := payroll.NewSchedule(0)
	e := payroll.Employee{Address: "0xa", Salary: d(1000), LastPayday: t0}

	_, _, err := s.AuthorizePayment(e, t0.Add(10*24*time.Hour))
	require.ErrorIs(t, err, payroll.ErrTooEarly)
	var te *payroll.TooEarlyError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.NextPayday.Equal(t0.Add(payroll.DefaultPayPeriod)))

	amount, periods, err := s.AuthorizePayment(e, t0.Add(3*payroll.DefaultPayPeriod+time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), periods)
	assert.True(t, amount.Equal(d(3000)), "got %s", amount)
}

func TestRunway(t *testing.T) {
	r, err := payroll.Runway(d(10000), d(3000))
	require.NoError(t, err)
	assert.True(t, r.Equal(d(3)), "got %s", r)

	r, err = payroll.Runway(d(2999), d(3000))
	require.NoError(t, err)
	assert.True(t, r.IsZero())

	_, err = payroll.Runway(d(10000), d(0))
	assert.ErrorIs(t, err, payroll.ErrNoActiveObligations)
}

func TestCheckWithdrawal(t *testing.T) {
	assert.NoError(t, payroll.CheckWithdrawal(d(100), d(100)))

	err := payroll.CheckWithdrawal(d(100), d(101))
	assert.ErrorIs(t, err, payroll.ErrInsufficientFunds)
	var ie *payroll.InsufficientFundsError
	require.ErrorAs(t, err, &ie)
	assert.True(t, ie.Available.Equal(d(100)))
	assert.True(t, ie.Requested.Equal(d(101)))

	assert.ErrorIs(t, payroll.CheckWithdrawal(d(100), d(0)), payroll.ErrInvalidArgument)
}
