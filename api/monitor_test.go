package api

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/payroll-ledger/payroll"
	"github.com/warp/payroll-ledger/payroll/store"
)

func newMonitorFixture(t *testing.T) (*PaydayMonitor, *observer.ObservedLogs, *payroll.Ledger, *store.Memory, *payroll.ManualClock) {
	t.Helper()
	vault := store.NewMemory()
	clock := payroll.NewManualClock(t0)
	ledger, err := payroll.New(context.Background(), owner, vault,
		payroll.WithBaseUnit(decimal.NewFromInt(1)),
		payroll.WithClock(clock))
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	return NewPaydayMonitor(ledger, zap.New(core), time.Hour), logs, ledger, vault, clock
}

func TestPaydayMonitor_RunNow(t *testing.T) {
	ctx := context.Background()
	m, logs, ledger, vault, clock := newMonitorFixture(t)

	// Empty roster
	m.RunNow()
	assert.Equal(t, 1, logs.FilterMessage("no active obligations").Len())

	// Unfunded roster
	require.NoError(t, ledger.AddEmployee(ctx, owner, "0xa", decimal.NewFromInt(1000)))
	m.RunNow()
	assert.Equal(t, 1, logs.FilterMessage("funds do not cover the next period").Len())

	// Funded, one period elapsed
	require.NoError(t, vault.Deposit(ctx, payroll.DefaultAccount, decimal.NewFromInt(2500)))
	clock.Advance(payroll.DefaultPayPeriod)
	m.RunNow()

	runway := logs.FilterMessage("runway").All()
	require.Len(t, runway, 1)
	assert.Equal(t, "2", runway[0].ContextMap()["periods"])

	due := logs.FilterMessage("payment due").All()
	require.Len(t, due, 1)
	fields := due[0].ContextMap()
	assert.Equal(t, "0xa", fields["employee"])
	assert.Equal(t, int64(1), fields["periods"])
	assert.Equal(t, "1000", fields["owed"])
}

func TestPaydayMonitor_StartStop(t *testing.T) {
	m, logs, _, _, _ := newMonitorFixture(t)

	m.Start()
	m.Start()
	m.Stop()
	m.Stop()

	assert.Equal(t, 1, logs.FilterMessage("started").Len())
	assert.Equal(t, 1, logs.FilterMessage("stopped").Len())
	assert.GreaterOrEqual(t, logs.FilterMessage("no active obligations").Len(), 1, "checks once on start")
}

func TestPaydayMonitor_Disabled(t *testing.T) {
	m, logs, _, _, _ := newMonitorFixture(t)
	m.Enabled = false

	m.Start()
	m.Stop()

	assert.Equal(t, 1, logs.FilterMessage("disabled, not starting").Len())
	assert.Zero(t, logs.FilterMessage("started").Len())
}
