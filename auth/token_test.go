package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-ledger/payroll"
)

func TestIssuer_RoundTrip(t *testing.T) {
	i, err := NewIssuer("secret")
	require.NoError(t, err)

	token, err := i.Issue("0xAbC", time.Hour)
	require.NoError(t, err)

	addr, err := i.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, payroll.Address("0xabc"), addr)
}

func TestIssuer_RejectsBadTokens(t *testing.T) {
	i, err := NewIssuer("secret")
	require.NoError(t, err)
	other, err := NewIssuer("other")
	require.NoError(t, err)

	_, err = i.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = i.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	forged, err := other.Issue("0xa", time.Hour)
	require.NoError(t, err)
	_, err = i.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := i.Issue("0xa", time.Minute)
	require.NoError(t, err)
	i.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = i.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_Validation(t *testing.T) {
	_, err := NewIssuer("")
	assert.Error(t, err)

	i, err := NewIssuer("secret")
	require.NoError(t, err)
	_, err = i.Issue(payroll.ZeroAddress, time.Hour)
	assert.ErrorIs(t, err, payroll.ErrInvalidArgument)
}
