package payroll_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-ledger/payroll"
)

var t0 = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func d(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestRegistry_Add_RejectsInvalidInput(t *testing.T) {
	r := payroll.NewRegistry()

	_, err := r.Add("", d(100), t0)
	assert.ErrorIs(t, err, payroll.ErrInvalidArgument)

	_, err = r.Add(payroll.ZeroAddress, d(100), t0)
	assert.ErrorIs(t, err, payroll.ErrInvalidArgument)

	_, err = r.Add("0xa", d(0), t0)
	assert.ErrorIs(t, err, payroll.ErrInvalidArgument)

	_, err = r.Add("0xa", d(-5), t0)
	assert.ErrorIs(t, err, payroll.ErrInvalidArgument)

	_, err = r.Add("0xa", decimal.RequireFromString("1.5"), t0)
	assert.ErrorIs(t, err, payroll.ErrInvalidArgument)

	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Add_DuplicateIsCaseInsensitive(t *testing.T) {
	r := payroll.NewRegistry()
	_, err := r.Add("0xAbC", d(100), t0)
	require.NoError(t, err)

	_, err = r.Add("0xabc", d(200), t0)
	assert.ErrorIs(t, err, payroll.ErrDuplicateEmployee)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Find(t *testing.T) {
	r := payroll.NewRegistry()
	_, err := r.Add("0xa", d(100), t0)
	require.NoError(t, err)

	e, pos, err := r.Find("0xa")
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	assert.Equal(t, payroll.Address("0xa"), e.Address)
	assert.True(t, e.LastPayday.Equal(t0))

	_, pos, err = r.Find("0xb")
	assert.ErrorIs(t, err, payroll.ErrNotFound)
	assert.Equal(t, -1, pos)
	assert.False(t, r.Exists("0xb"))
}

func TestRegistry_Remove_SwapsLastIntoSlot(t *testing.T) {
	// GIVEN: [a, b, c]
	r := payroll.NewRegistry()
	for _, a := range []payroll.Address{"0xa", "0xb", "0xc"} {
		_, err := r.Add(a, d(100), t0)
		require.NoError(t, err)
	}

	// WHEN: removing the first entry
	removed, err := r.Remove("0xa")
	require.NoError(t, err)

	// THEN: c moved into a's slot and stays findable
	assert.Equal(t, payroll.Address("0xa"), removed.Address)
	assert.Equal(t, 2, r.Len())
	_, pos, err := r.Find("0xc")
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	_, pos, err = r.Find("0xb")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.False(t, r.Exists("0xa"))

	_, err = r.Remove("0xa")
	assert.ErrorIs(t, err, payroll.ErrNotFound)
}

func TestRegistry_Remove_LastAndOnly(t *testing.T) {
	r := payroll.NewRegistry()
	_, err := r.Add("0xa", d(100), t0)
	require.NoError(t, err)

	_, err = r.Remove("0xa")
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Employees())

	_, err = r.Add("0xa", d(100), t0)
	assert.NoError(t, err)
}

func TestRegistry_Update(t *testing.T) {
	sched := payroll.NewSchedule(0)

	t.Run("address change keeps slot and payday", func(t *testing.T) {
		r := payroll.NewRegistry()
		_, err := r.Add("0xa", d(100), t0)
		require.NoError(t, err)

		prev, err := r.Update("0xa", "0xz", d(100), sched, t0.Add(45*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, payroll.Address("0xa"), prev.Address)

		e, pos, err := r.Find("0xz")
		require.NoError(t, err)
		assert.Equal(t, 0, pos)
		assert.True(t, e.LastPayday.Equal(t0))
		assert.False(t, r.Exists("0xa"))
	})

	t.Run("salary change within first period", func(t *testing.T) {
		r := payroll.NewRegistry()
		_, err := r.Add("0xa", d(100), t0)
		require.NoError(t, err)

		prev, err := r.Update("0xa", "0xa", d(250), sched, t0.Add(29*24*time.Hour))
		require.NoError(t, err)
		assert.True(t, prev.Salary.Equal(d(100)))

		e, _, _ := r.Find("0xa")
		assert.True(t, e.Salary.Equal(d(250)))
	})

	t.Run("salary change with unpaid period", func(t *testing.T) {
		r := payroll.NewRegistry()
		_, err := r.Add("0xa", d(100), t0)
		require.NoError(t, err)

		_, err = r.Update("0xa", "0xa", d(250), sched, t0.Add(payroll.DefaultPayPeriod))
		assert.ErrorIs(t, err, payroll.ErrUnsettledObligation)

		var ue *payroll.UnsettledObligationError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, int64(1), ue.Periods)

		e, _, _ := r.Find("0xa")
		assert.True(t, e.Salary.Equal(d(100)))
	})

	t.Run("rejects collisions and bad input", func(t *testing.T) {
		r := payroll.NewRegistry()
		_, err := r.Add("0xa", d(100), t0)
		require.NoError(t, err)
		_, err = r.Add("0xb", d(100), t0)
		require.NoError(t, err)

		_, err = r.Update("0xa", "0xB", d(100), sched, t0)
		assert.ErrorIs(t, err, payroll.ErrDuplicateEmployee)

		_, err = r.Update("0xq", "0xr", d(100), sched, t0)
		assert.ErrorIs(t, err, payroll.ErrNotFound)

		_, err = r.Update("0xa", payroll.ZeroAddress, d(100), sched, t0)
		assert.ErrorIs(t, err, payroll.ErrInvalidArgument)

		_, err = r.Update("0xa", "0xa", d(0), sched, t0)
		assert.ErrorIs(t, err, payroll.ErrInvalidArgument)
	})
}
