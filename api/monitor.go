/*
monitor.go - Background payday monitor

PURPOSE:
  Periodically reports the ledger's runway and which employees have whole
  unpaid periods. It never pays anyone: payment stays a pull operation by
  the employee.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Checks once immediately on start
  - Warns when the pool cannot cover the next period

USAGE:
  monitor := NewPaydayMonitor(ledger, logger, time.Hour)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - payroll/ledger.go: CalculateRunway, DuePayments
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/payroll-ledger/payroll"
)

// PaydayMonitor logs runway and due payments on a ticker.
type PaydayMonitor struct {
	Ledger        *payroll.Ledger
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPaydayMonitor creates a monitor. A non-positive interval disables it.
func NewPaydayMonitor(ledger *payroll.Ledger, logger *zap.Logger, interval time.Duration) *PaydayMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaydayMonitor{
		Ledger:        ledger,
		Logger:        logger.Named("monitor"),
		CheckInterval: interval,
		Enabled:       interval > 0,
	}
}

// Start begins the monitor.
func (m *PaydayMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Enabled {
		m.Logger.Info("disabled, not starting")
		return
	}
	if m.ticker != nil {
		return
	}

	m.ticker = time.NewTicker(m.CheckInterval)
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go m.run(m.ticker, m.stop)

	m.Logger.Info("started", zap.Duration("interval", m.CheckInterval))
}

// Stop stops the monitor and waits for a running check to finish.
func (m *PaydayMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	close(m.stop)
	m.wg.Wait()
	m.ticker = nil
	m.Logger.Info("stopped")
}

func (m *PaydayMonitor) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer m.wg.Done()

	m.RunNow()
	for {
		select {
		case <-ticker.C:
			m.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow performs one check synchronously.
func (m *PaydayMonitor) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runway, err := m.Ledger.CalculateRunway(ctx)
	switch {
	case errors.Is(err, payroll.ErrNoActiveObligations):
		m.Logger.Debug("no active obligations")
	case err != nil:
		m.Logger.Error("runway check failed", zap.Error(err))
	case !runway.IsPositive():
		m.Logger.Warn("funds do not cover the next period",
			zap.Stringer("total_salary", m.Ledger.TotalSalary()))
	default:
		m.Logger.Info("runway", zap.Stringer("periods", runway))
	}

	for _, due := range m.Ledger.DuePayments() {
		m.Logger.Info("payment due",
			zap.String("employee", due.Employee.String()),
			zap.Int64("periods", due.Periods),
			zap.Stringer("owed", due.Owed),
			zap.Time("last_payday", due.LastPayday))
	}
}
