package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPayPeriod is one pay period: 30 days.
const DefaultPayPeriod = 30 * 24 * time.Hour

// =============================================================================
// SCHEDULE - Whole pay periods and payment authorization
// =============================================================================

// Schedule determines elapsed pay periods and what an employee is owed.
//
// Only whole periods count. A partial period is never paid and is not
// carried over once lastPayday is advanced.
type Schedule struct {
	Period time.Duration
}

// NewSchedule returns a schedule with the given period, or the default
// period when period is not positive.
func NewSchedule(period time.Duration) Schedule {
	if period <= 0 {
		period = DefaultPayPeriod
	}
	return Schedule{Period: period}
}

// UnpaidPeriods returns floor((now - lastPayday) / Period). A clock that
// reads earlier than lastPayday yields zero.
func (s Schedule) UnpaidPeriods(lastPayday, now time.Time) int64 {
	if !now.After(lastPayday) {
		return 0
	}
	return int64(now.Sub(lastPayday) / s.Period)
}

// Owed returns salary × unpaid periods, which may be zero.
func (s Schedule) Owed(e Employee, now time.Time) (decimal.Decimal, int64) {
	periods := s.UnpaidPeriods(e.LastPayday, now)
	return e.Salary.Mul(decimal.NewFromInt(periods)), periods
}

// AuthorizePayment returns the amount owed to e, failing with ErrTooEarly
// when less than one period has elapsed.
func (s Schedule) AuthorizePayment(e Employee, now time.Time) (decimal.Decimal, int64, error) {
	amount, periods := s.Owed(e, now)
	if periods < 1 {
		return decimal.Zero, 0, &TooEarlyError{Employee: e.Address, NextPayday: s.NextPayday(e)}
	}
	return amount, periods, nil
}

// NextPayday is the first instant at which e can be paid.
func (s Schedule) NextPayday(e Employee) time.Time {
	return e.LastPayday.Add(s.Period)
}
