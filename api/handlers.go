/*
handlers.go - HTTP API handlers for the payroll ledger

PURPOSE:
  Exposes the ledger via REST API. Handles HTTP request/response, JSON
  serialization, and delegates every decision to payroll.Ledger.

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Ledger: The single controller over payroll state
  - Journal: Read side of the event log (SQLite)
  - Depositor: Credits the ledger account (vault deposit path)
  - Issuer: Verifies caller tokens
  - Logger: Structured logger

REQUEST FLOW:
  1. Resolve caller (authenticated routes only)
  2. Parse and decode the body
  3. Call the ledger operation
  4. Serialize the response, or map the error to a status

ERROR HANDLING:
  Errors are returned as JSON {"error", "details"} with:
  - 400: Invalid argument, malformed body
  - 401: Missing or invalid token
  - 403: Caller lacks the role
  - 404: Employee not found
  - 409: Duplicate, unsettled obligation, too early
  - 422: Insufficient funds, no active obligations
  - 500: Internal errors, rejected transfers

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup
  - payroll/ledger.go: Operations
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/payroll-ledger/auth"
	"github.com/warp/payroll-ledger/payroll"
	"github.com/warp/payroll-ledger/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Journal lists recorded ledger events.
type Journal interface {
	ListEvents(ctx context.Context, filter sqlite.EventFilter) ([]payroll.Event, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger    *payroll.Ledger
	Journal   Journal
	Depositor payroll.Depositor
	Issuer    *auth.Issuer
	Logger    *zap.Logger
}

// NewHandler creates a handler. A nil logger discards output.
func NewHandler(ledger *payroll.Ledger, journal Journal, depositor payroll.Depositor, issuer *auth.Issuer, logger *zap.Logger) *Handler {
	return &Handler{
		Ledger:    ledger,
		Journal:   journal,
		Depositor: depositor,
		Issuer:    issuer,
		Logger:    logger,
	}
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// =============================================================================
// EMPLOYEE ENDPOINTS
// =============================================================================

// ListEmployees returns the roster with count and total salary.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, total := h.Ledger.Roster()
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e, h.Ledger.BaseUnit(), h.Ledger.Schedule())
	}
	writeJSON(w, http.StatusOK, EmployeeListResponse{
		Employees:   dtos,
		Count:       len(dtos),
		TotalSalary: total,
	})
}

// CountEmployees returns numberOfEmployee.
// GET /api/employees/count
func (h *Handler) CountEmployees(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CountResponse{Count: h.Ledger.NumberOfEmployee()})
}

// GetEmployee returns a single employee.
// GET /api/employees/{address}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	e, err := h.Ledger.Employee(payroll.NewAddress(chi.URLParam(r, "address")))
	if err != nil {
		h.fail(w, r, "Employee not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(e, h.Ledger.BaseUnit(), h.Ledger.Schedule()))
}

// AddEmployee puts an address on the roster.
// POST /api/employees
func (h *Handler) AddEmployee(w http.ResponseWriter, r *http.Request) {
	var req AddEmployeeRequest
	if !decode(w, r, &req) {
		return
	}
	addr := payroll.NewAddress(req.Address)
	if err := h.Ledger.AddEmployee(r.Context(), callerOrZero(r), addr, req.Salary); err != nil {
		h.fail(w, r, "Failed to add employee", err)
		return
	}
	e, err := h.Ledger.Employee(addr)
	if err != nil {
		h.fail(w, r, "Failed to read employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(e, h.Ledger.BaseUnit(), h.Ledger.Schedule()))
}

// UpdateEmployee changes an employee's address and salary.
// PUT /api/employees/{address}
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req UpdateEmployeeRequest
	if !decode(w, r, &req) {
		return
	}
	addr := payroll.NewAddress(chi.URLParam(r, "address"))
	newAddr := payroll.NewAddress(req.NewAddress)
	if newAddr == "" {
		newAddr = addr
	}
	if err := h.Ledger.UpdateEmployee(r.Context(), callerOrZero(r), addr, newAddr, req.Salary); err != nil {
		h.fail(w, r, "Failed to update employee", err)
		return
	}
	e, err := h.Ledger.Employee(newAddr)
	if err != nil {
		h.fail(w, r, "Failed to read employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(e, h.Ledger.BaseUnit(), h.Ledger.Schedule()))
}

// RemoveEmployee settles and removes an employee.
// DELETE /api/employees/{address}
func (h *Handler) RemoveEmployee(w http.ResponseWriter, r *http.Request) {
	addr := payroll.NewAddress(chi.URLParam(r, "address"))
	payment, err := h.Ledger.RemoveEmployee(r.Context(), callerOrZero(r), addr)
	if err != nil {
		h.fail(w, r, "Failed to remove employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(payment))
}

// =============================================================================
// FUND ENDPOINTS
// =============================================================================

// AddFund reports the pooled balance.
// POST /api/funds
func (h *Handler) AddFund(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Ledger.AddFund(r.Context(), callerOrZero(r))
	if err != nil {
		h.fail(w, r, "Failed to add fund", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Account: h.Ledger.Account().String(), Balance: balance})
}

// Deposit credits the ledger account. Anyone authenticated may fund it.
// POST /api/deposits
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if !decode(w, r, &req) {
		return
	}
	ctx, caller := r.Context(), callerOrZero(r)
	if err := h.Depositor.Deposit(ctx, h.Ledger.Account(), req.Amount); err != nil {
		h.fail(w, r, "Failed to deposit", err)
		return
	}
	h.logger().Info("deposit received",
		zap.String("from", caller.String()),
		zap.Stringer("amount", req.Amount))

	// The owner's deposit goes through AddFund so the fund event is recorded.
	var (
		balance decimal.Decimal
		err     error
	)
	if caller == h.Ledger.Owner() {
		balance, err = h.Ledger.AddFund(ctx, caller)
	} else {
		balance, err = h.Ledger.Balance(ctx)
	}
	if err != nil {
		h.fail(w, r, "Failed to read balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Account: h.Ledger.Account().String(), Balance: balance})
}

// Withdraw moves base units from the pool to the owner.
// POST /api/withdrawals
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Ledger.Withdraw(r.Context(), callerOrZero(r), req.Amount); err != nil {
		h.fail(w, r, "Failed to withdraw", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRunway returns calculateRunway.
// GET /api/runway
func (h *Handler) GetRunway(w http.ResponseWriter, r *http.Request) {
	runway, err := h.Ledger.CalculateRunway(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to calculate runway", err)
		return
	}
	writeJSON(w, http.StatusOK, RunwayResponse{Runway: runway})
}

// GetSufficiency returns hasEnoughFund.
// GET /api/runway/sufficient
func (h *Handler) GetSufficiency(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Ledger.HasEnoughFund(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to check funds", err)
		return
	}
	writeJSON(w, http.StatusOK, SufficiencyResponse{Sufficient: ok})
}

// =============================================================================
// PAYMENT ENDPOINTS
// =============================================================================

// GetPaid pays the calling employee for elapsed periods.
// POST /api/payments
func (h *Handler) GetPaid(w http.ResponseWriter, r *http.Request) {
	payment, err := h.Ledger.GetPaid(r.Context(), callerOrZero(r))
	if err != nil {
		h.fail(w, r, "Failed to pay", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(payment))
}

// =============================================================================
// EVENT ENDPOINTS
// =============================================================================

// ListEvents returns the journal.
// GET /api/events?employee=0x..&type=payment_made,fund_added&limit=50
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := sqlite.EventFilter{Employee: payroll.NewAddress(q.Get("employee"))}
	if types := q.Get("type"); types != "" {
		for _, t := range strings.Split(types, ",") {
			filter.Types = append(filter.Types, payroll.EventType(strings.TrimSpace(t)))
		}
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", fmt.Errorf("%w: limit %q", payroll.ErrInvalidArgument, limit))
			return
		}
		filter.Limit = n
	}

	events, err := h.Journal.ListEvents(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to list events", err)
		return
	}
	dtos := make([]EventDTO, len(events))
	for i, ev := range events {
		dtos[i] = toEventDTO(ev)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// fail maps err to a status and logs server-side failures.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	switch {
	case status < http.StatusInternalServerError:
	case errors.Is(err, payroll.ErrTransferRejected):
		// Settlement refused by the recipient: the ledger rolled back.
		h.logger().Warn(message,
			zap.String("path", r.URL.Path),
			zap.String("caller", callerOrZero(r).String()),
			zap.Error(err))
	default:
		h.logger().Error(message,
			zap.String("path", r.URL.Path),
			zap.String("caller", callerOrZero(r).String()),
			zap.Error(err))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
