package payroll

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// EVENTS - Notifications for external observers
// =============================================================================

type EventType string

const (
	EventEmployeeAdded   EventType = "employee_added"
	EventEmployeeUpdated EventType = "employee_updated"
	EventEmployeeRemoved EventType = "employee_removed"
	EventFundAdded       EventType = "fund_added"
	EventPaymentMade     EventType = "payment_made"
	EventWithdrawal      EventType = "withdrawal_made"
)

// Event is emitted after an operation completes. Unused fields are zero.
type Event struct {
	ID         string
	Type       EventType
	Employee   Address // employee concerned, or the owner for fund events
	NewAddress Address // set on updates that change the address
	Salary     decimal.Decimal
	Amount     decimal.Decimal // amount transferred
	Balance    decimal.Decimal // pooled balance after the operation
	At         time.Time
}

func newEvent(t EventType, at time.Time) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    t,
		Salary:  decimal.Zero,
		Amount:  decimal.Zero,
		Balance: decimal.Zero,
		At:      at,
	}
}

// Notifier receives events. Notification failures never undo an operation.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// MultiNotifier fans an event out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes each event as a structured log line.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	fields := []zap.Field{
		zap.String("event_id", ev.ID),
		zap.String("type", string(ev.Type)),
		zap.String("employee", ev.Employee.String()),
		zap.Time("at", ev.At),
	}
	if ev.NewAddress != "" {
		fields = append(fields, zap.String("new_address", ev.NewAddress.String()))
	}
	if !ev.Salary.IsZero() {
		fields = append(fields, zap.Stringer("salary", ev.Salary))
	}
	if !ev.Amount.IsZero() {
		fields = append(fields, zap.Stringer("amount", ev.Amount))
	}
	fields = append(fields, zap.Stringer("balance", ev.Balance))
	n.Logger.Info("payroll event", fields...)
	return nil
}
