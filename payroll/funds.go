package payroll

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VAULT - The settlement primitive
// =============================================================================

// Vault moves value between accounts. It is the external settlement
// primitive: a Transfer either completes or fails with no effect. Failures
// unwrap to ErrInsufficientFunds or ErrTransferRejected.
type Vault interface {
	// Balance returns the current amount held by account.
	Balance(ctx context.Context, account Address) (decimal.Decimal, error)

	// Transfer moves amount from one account to another.
	Transfer(ctx context.Context, from, to Address, amount decimal.Decimal) error
}

// Depositor is implemented by vaults that accept external deposits.
type Depositor interface {
	Deposit(ctx context.Context, to Address, amount decimal.Decimal) error
}

// =============================================================================
// FUNDS - Balance, runway and withdrawal gating
// =============================================================================

// Funds reads the pooled balance of the ledger account.
type Funds struct {
	vault   Vault
	account Address
}

// NewFunds binds the ledger account held in vault.
func NewFunds(vault Vault, account Address) Funds {
	return Funds{vault: vault, account: account}
}

// Account is the address holding the pooled balance.
func (f Funds) Account() Address { return f.account }

// Balance returns the current pooled balance.
func (f Funds) Balance(ctx context.Context) (decimal.Decimal, error) {
	return f.vault.Balance(ctx, f.account)
}

// Runway returns how many whole periods balance covers at total salary
// per period. An empty total fails with ErrNoActiveObligations.
func Runway(balance, total decimal.Decimal) (decimal.Decimal, error) {
	if !total.IsPositive() {
		return decimal.Zero, ErrNoActiveObligations
	}
	q, _ := balance.QuoRem(total, 0)
	return q, nil
}

// CheckWithdrawal fails with InsufficientFundsError when amount exceeds balance.
func CheckWithdrawal(balance, amount decimal.Decimal) error {
	if !isPositiveInteger(amount) {
		return invalidArgument("amount must be a positive integer, got %s", amount)
	}
	if amount.GreaterThan(balance) {
		return &InsufficientFundsError{Available: balance, Requested: amount}
	}
	return nil
}

// transfer is a settlement scheduled to run after bookkeeping.
type transfer struct {
	to     Address
	amount decimal.Decimal
}
