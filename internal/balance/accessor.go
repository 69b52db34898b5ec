// Package balance mutates balances atomically and reconstructs historical
// balances from the transaction ledger.
package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbank/balance-service/shared/apperr"
	"github.com/ledgerbank/balance-service/shared/models"
)

type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, bool, error)
}

type LedgerStore interface {
	SumAmountsByType(ctx context.Context, userID string, after, before *time.Time) (map[models.TransactionType]decimal.Decimal, error)
}

type Accessor struct {
	users  UserStore
	ledger LedgerStore
}

func NewAccessor(users UserStore, ledger LedgerStore) *Accessor {
	return &Accessor{users: users, ledger: ledger}
}

// ApplyDelta adds a signed amount to the user's balance and returns the new
// balance. The conditional update is the only write; when it does not apply
// nothing changed, and a read tells a missing user from insufficient funds.
func (a *Accessor) ApplyDelta(ctx context.Context, userID string, delta decimal.Decimal) (decimal.Decimal, error) {
	balance, applied, err := a.users.AdjustBalance(ctx, userID, delta)
	if err != nil {
		return decimal.Zero, err
	}
	if applied {
		return balance, nil
	}

	user, err := a.users.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to resolve rejected balance update: %w", err)
	}
	if user == nil {
		return decimal.Zero, apperr.ErrUserNotFound
	}
	return decimal.Zero, apperr.ErrInsufficientBalance
}

// HistoricalBalance is the net of every transaction created at or before
// asOf.
func (a *Accessor) HistoricalBalance(ctx context.Context, userID string, asOf time.Time) (decimal.Decimal, error) {
	return a.NetBalance(ctx, userID, nil, &asOf)
}

// NetBalance is deposits minus withdrawals over the inclusive, optional
// created_at window.
func (a *Accessor) NetBalance(ctx context.Context, userID string, after, before *time.Time) (decimal.Decimal, error) {
	user, err := a.users.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if user == nil {
		return decimal.Zero, apperr.ErrUserNotFound
	}

	sums, err := a.ledger.SumAmountsByType(ctx, userID, after, before)
	if err != nil {
		return decimal.Zero, err
	}
	net := sums[models.TransactionTypeDeposit].Sub(sums[models.TransactionTypeWithdraw])
	return net.Round(models.MoneyScale), nil
}
