/*
errors.go - Centralized error types for the payroll ledger

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every failure aborts the whole operation; callers match on the sentinels
  with errors.Is and never retry automatically.

ERROR CATEGORIES:
  1. Access errors - Caller lacks the required role
  2. Input errors - Zero address, non-positive or fractional amount
  3. Roster errors - Duplicate or missing employee
  4. Timing errors - Unpaid periods block an update, payday not reached
  5. Fund errors - Balance too low, no obligations to divide by
  6. Internal errors - Aggregate drift, persisted state mismatch

SEE ALSO:
  - ledger.go: Returns these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package payroll

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnauthorized is returned when the caller fails a role check.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidArgument is returned for zero addresses or non-positive amounts.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateEmployee is returned when an address is already on the roster.
	ErrDuplicateEmployee = errors.New("duplicate employee")

	// ErrNotFound is returned when an address is not on the roster.
	ErrNotFound = errors.New("employee not found")

	// ErrUnsettledObligation is returned when a salary change would erase
	// unpaid periods.
	ErrUnsettledObligation = errors.New("unsettled obligation")

	// ErrTooEarly is returned when no full pay period has elapsed.
	ErrTooEarly = errors.New("too early")

	// ErrInsufficientFunds is returned when the balance cannot cover a transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNoActiveObligations is returned when runway is asked of an empty roster.
	ErrNoActiveObligations = errors.New("no active obligations")

	// ErrTransferRejected is returned when the recipient refuses a transfer.
	ErrTransferRejected = errors.New("transfer rejected by recipient")

	// ErrInvariantViolation is returned when the salary total no longer
	// matches the roster.
	ErrInvariantViolation = errors.New("salary total invariant violated")

	// ErrOwnerMismatch is returned when persisted state belongs to another owner.
	ErrOwnerMismatch = errors.New("persisted ledger belongs to a different owner")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError provides details about a shortage.
type InsufficientFundsError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, requested %s",
		e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// UnsettledObligationError names the employee whose unpaid periods block an update.
type UnsettledObligationError struct {
	Employee Address
	Periods  int64
}

func (e *UnsettledObligationError) Error() string {
	return fmt.Sprintf("unsettled obligation: %s has %d unpaid period(s)", e.Employee, e.Periods)
}

func (e *UnsettledObligationError) Unwrap() error {
	return ErrUnsettledObligation
}

// TooEarlyError reports when the next payment becomes available.
type TooEarlyError struct {
	Employee   Address
	NextPayday time.Time
}

func (e *TooEarlyError) Error() string {
	return fmt.Sprintf("too early: %s can be paid from %s",
		e.Employee, e.NextPayday.UTC().Format(time.RFC3339))
}

func (e *TooEarlyError) Unwrap() error {
	return ErrTooEarly
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to the caller's input or timing.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrDuplicateEmployee) ||
		errors.Is(err, ErrUnsettledObligation) ||
		errors.Is(err, ErrTooEarly) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrNoActiveObligations)
}

// IsNotFound returns true if the error indicates a missing employee.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthError returns true if the caller was refused.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
