/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the ledger
  types from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Response wrappers

AMOUNTS:
  decimal.Decimal marshals as a JSON string, so balances beyond 2^53 survive
  JavaScript clients. Requests accept either a string or a number.
  Salaries in requests are whole units per period; every other amount is in
  base units.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-ledger/payroll"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	Address     string          `json:"address"`
	Salary      decimal.Decimal `json:"salary"`
	SalaryUnits decimal.Decimal `json:"salary_units"`
	LastPayday  string          `json:"last_payday"`
	NextPayday  string          `json:"next_payday"`
}

// EmployeeListResponse is the roster with its aggregates.
type EmployeeListResponse struct {
	Employees   []EmployeeDTO   `json:"employees"`
	Count       int             `json:"count"`
	TotalSalary decimal.Decimal `json:"total_salary"`
}

// CountResponse carries numberOfEmployee.
type CountResponse struct {
	Count int `json:"count"`
}

// AddEmployeeRequest is the body for POST /api/employees.
type AddEmployeeRequest struct {
	Address string          `json:"address"`
	Salary  decimal.Decimal `json:"salary"`
}

// UpdateEmployeeRequest is the body for PUT /api/employees/{address}.
// An empty NewAddress keeps the current one.
type UpdateEmployeeRequest struct {
	NewAddress string          `json:"new_address"`
	Salary     decimal.Decimal `json:"salary"`
}

// =============================================================================
// FUNDS
// =============================================================================

// AmountRequest is the body for deposits and withdrawals, in base units.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// BalanceResponse reports the pooled balance.
type BalanceResponse struct {
	Account string          `json:"account"`
	Balance decimal.Decimal `json:"balance"`
}

// RunwayResponse carries calculateRunway.
type RunwayResponse struct {
	Runway decimal.Decimal `json:"runway"`
}

// SufficiencyResponse carries hasEnoughFund.
type SufficiencyResponse struct {
	Sufficient bool `json:"sufficient"`
}

// PaymentDTO is a settlement made to an employee.
type PaymentDTO struct {
	Employee string          `json:"employee"`
	Amount   decimal.Decimal `json:"amount"`
	Periods  int64           `json:"periods"`
	PaidAt   string          `json:"paid_at"`
}

// =============================================================================
// EVENTS
// =============================================================================

// EventDTO is a journal entry.
type EventDTO struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Employee   string           `json:"employee,omitempty"`
	NewAddress string           `json:"new_address,omitempty"`
	Salary     *decimal.Decimal `json:"salary,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Balance    decimal.Decimal  `json:"balance"`
	At         string           `json:"at"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEmployeeDTO(e payroll.Employee, baseUnit decimal.Decimal, sched payroll.Schedule) EmployeeDTO {
	return EmployeeDTO{
		Address:     e.Address.String(),
		Salary:      e.Salary,
		SalaryUnits: e.Salary.Div(baseUnit),
		LastPayday:  e.LastPayday.UTC().Format(time.RFC3339),
		NextPayday:  sched.NextPayday(e).UTC().Format(time.RFC3339),
	}
}

func toPaymentDTO(p payroll.Payment) PaymentDTO {
	return PaymentDTO{
		Employee: p.Employee.String(),
		Amount:   p.Amount,
		Periods:  p.Periods,
		PaidAt:   p.PaidAt.UTC().Format(time.RFC3339),
	}
}

func toEventDTO(ev payroll.Event) EventDTO {
	dto := EventDTO{
		ID:         ev.ID,
		Type:       string(ev.Type),
		Employee:   ev.Employee.String(),
		NewAddress: ev.NewAddress.String(),
		Balance:    ev.Balance,
		At:         ev.At.UTC().Format(time.RFC3339Nano),
	}
	if !ev.Salary.IsZero() {
		s := ev.Salary
		dto.Salary = &s
	}
	if !ev.Amount.IsZero() {
		a := ev.Amount
		dto.Amount = &a
	}
	return dto
}
